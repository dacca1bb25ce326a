package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cypherlabdev/odds-analytics-service/internal/cache"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

type countingPruner struct {
	calls int
}

func (p *countingPruner) Prune(context.Context) (int, error) {
	p.calls++
	return 0, nil
}

func setupTestLocker(t *testing.T) *cache.Locker {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisCache := cache.NewRedisCache(cache.RedisCacheConfig{Addr: mr.Addr(), KeyPrefix: "test:"}, zerolog.Nop())
	t.Cleanup(func() { redisCache.Close() })
	return cache.NewLocker(redisCache)
}

// seedArtifacts completes one live and one ended fingerprint through the api
func seedArtifacts(t *testing.T, setup *testPipelineSetup) {
	setup.builder.EXPECT().
		BuildArtifact(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fp models.Fingerprint) (any, bool, error) {
			return map[string]string{"event": fp.EventID}, fp.EventID == "ended", nil
		}).
		Times(2)
	setup.publisher.EXPECT().PublishArtifactUpdate(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	for _, id := range []string{"live", "ended"} {
		in := oddsTrigger()
		in.EventID = id
		req, err := setup.pipeline.Trigger(setup.ctx, in, models.SourceAPI)
		require.NoError(t, err)
		require.Equal(t, models.StatusCompleted, req.Status)
	}
}

// TestSweep_RetriggersLiveArtifacts tests that only live recently requested artifacts refresh
func TestSweep_RetriggersLiveArtifacts(t *testing.T) {
	setup := setupTestPipeline(t, Config{})
	defer setup.cleanup()
	seedArtifacts(t, setup)

	scheduler := NewScheduler(setup.pipeline, setup.store, setupTestLocker(t), nil, SchedulerConfig{}, zerolog.Nop())

	setup.builder.EXPECT().
		BuildArtifact(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fp models.Fingerprint) (any, bool, error) {
			assert.Equal(t, "live", fp.EventID)
			return map[string]string{"event": fp.EventID}, false, nil
		}).
		Times(1)

	triggered, err := scheduler.Sweep(setup.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, triggered)
}

// TestSweep_OutsideActiveWindow tests that old triggers are not refreshed
func TestSweep_OutsideActiveWindow(t *testing.T) {
	setup := setupTestPipeline(t, Config{})
	defer setup.cleanup()
	seedArtifacts(t, setup)

	scheduler := NewScheduler(setup.pipeline, setup.store, nil, nil, SchedulerConfig{ActiveWindow: time.Hour}, zerolog.Nop())
	scheduler.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	triggered, err := scheduler.Sweep(setup.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, triggered)
}

// TestSweep_LockHeldElsewhere tests that a second instance skips the sweep
func TestSweep_LockHeldElsewhere(t *testing.T) {
	setup := setupTestPipeline(t, Config{})
	defer setup.cleanup()
	seedArtifacts(t, setup)

	locker := setupTestLocker(t)
	unlock, err := locker.Acquire(setup.ctx, sweepLockKey, time.Minute)
	require.NoError(t, err)
	defer unlock()

	scheduler := NewScheduler(setup.pipeline, setup.store, locker, nil, SchedulerConfig{}, zerolog.Nop())

	triggered, err := scheduler.Sweep(setup.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, triggered)
}

// TestSweep_StoppedPipeline tests that a sweep during shutdown ends quietly
func TestSweep_StoppedPipeline(t *testing.T) {
	setup := setupTestPipeline(t, Config{})
	defer setup.cleanup()
	seedArtifacts(t, setup)

	require.NoError(t, setup.pipeline.Stop(setup.ctx))
	scheduler := NewScheduler(setup.pipeline, setup.store, nil, nil, SchedulerConfig{}, zerolog.Nop())

	triggered, err := scheduler.Sweep(setup.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, triggered)
}

// TestScheduler_StartStop tests job registration
func TestScheduler_StartStop(t *testing.T) {
	setup := setupTestPipeline(t, Config{})
	defer setup.cleanup()

	pruner := &countingPruner{}
	scheduler := NewScheduler(setup.pipeline, setup.store, nil, pruner, SchedulerConfig{RefreshInterval: time.Hour}, zerolog.Nop())

	require.NoError(t, scheduler.Start(setup.ctx))
	assert.Len(t, scheduler.cron.Jobs(), 2)
	scheduler.Stop()

	assert.Equal(t, 0, pruner.calls)
}

// TestScheduler_InvalidPruneTime tests that a bad daily time is reported
func TestScheduler_InvalidPruneTime(t *testing.T) {
	setup := setupTestPipeline(t, Config{})
	defer setup.cleanup()

	scheduler := NewScheduler(setup.pipeline, setup.store, nil, &countingPruner{}, SchedulerConfig{PruneAt: "25:99"}, zerolog.Nop())

	assert.Error(t, scheduler.Start(setup.ctx))
}

// Package pipeline turns generation triggers into content addressed static
// artifacts. Each fingerprint has at most one open request; a run writes a
// new file only when the serialized payload hash changed.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/odds-analytics-service/internal/blob"
	"github.com/cypherlabdev/odds-analytics-service/internal/metrics"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/internal/provider"
	"github.com/cypherlabdev/odds-analytics-service/internal/store"
)

// ErrStopped is returned by Trigger after Stop
var ErrStopped = errors.New("pipeline stopped")

// ArtifactBuilder produces the payload of one generation unit
type ArtifactBuilder interface {
	BuildArtifact(ctx context.Context, fp models.Fingerprint) (payload any, ended bool, err error)
}

// Publisher announces changed artifacts
type Publisher interface {
	PublishArtifactUpdate(ctx context.Context, update models.ArtifactUpdate) error
}

// Config holds pipeline configuration
type Config struct {
	Workers           int           // 0 runs generation inline in Trigger
	QueueSize         int           // e.g., 100
	RunTimeout        time.Duration // e.g., 60 * time.Second
	DefaultBookmakers []string
	Regions           models.Regions
}

// Pipeline claims generation requests and runs them on a bounded worker pool
type Pipeline struct {
	store     store.RequestStore
	blobs     blob.Store
	builder   ArtifactBuilder
	publisher Publisher
	cfg       Config
	now       func() time.Time
	logger    zerolog.Logger

	mu      sync.RWMutex
	queue   chan *models.GenerationRequest
	stopped bool
	wg      sync.WaitGroup
}

// New creates a pipeline. publisher may be nil.
func New(
	requests store.RequestStore,
	blobs blob.Store,
	builder ArtifactBuilder,
	publisher Publisher,
	cfg Config,
	logger zerolog.Logger,
) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 60 * time.Second
	}
	p := &Pipeline{
		store:     requests,
		blobs:     blobs,
		builder:   builder,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With().Str("component", "generation_pipeline").Logger(),
	}
	if cfg.Workers > 0 {
		p.queue = make(chan *models.GenerationRequest, cfg.QueueSize)
	}
	return p
}

// Start launches the workers
func (p *Pipeline) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info().Int("workers", p.cfg.Workers).Int("queue_size", p.cfg.QueueSize).Msg("generation pipeline started")
}

// Stop refuses new triggers and waits for queued runs to finish or ctx to end
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.queue != nil {
			close(p.queue)
		}
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info().Msg("generation pipeline stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("generation workers still running: %w", ctx.Err())
	}
}

// Trigger validates the input, then claims or reuses the open request of its
// fingerprint. A new request is queued, or run to completion before
// returning when the pipeline has no workers.
func (p *Pipeline) Trigger(ctx context.Context, in models.GenerationTrigger, source models.TriggerSource) (*models.GenerationRequest, error) {
	eventID, err := models.ValidateEventID(in.EventID)
	if err != nil {
		return nil, err
	}
	kind, err := models.ParseMarketKind(in.Market)
	if err != nil {
		return nil, err
	}
	artifact, err := models.ParseArtifactKind(in.Artifact)
	if err != nil {
		return nil, err
	}

	bookmakers, err := p.cfg.Regions.Filter(in.Region, in.Bookmakers)
	if err != nil {
		return nil, err
	}
	if len(models.CanonicalBookmakers(bookmakers)) == 0 {
		bookmakers = p.cfg.DefaultBookmakers
	}
	books, err := provider.ValidateBookmakers(bookmakers)
	if err != nil {
		return nil, err
	}

	return p.TriggerFingerprint(ctx, models.NewFingerprint(eventID, kind, books, artifact), source)
}

// TriggerFingerprint claims a request for an already validated fingerprint
func (p *Pipeline) TriggerFingerprint(ctx context.Context, fp models.Fingerprint, source models.TriggerSource) (*models.GenerationRequest, error) {
	p.mu.RLock()
	stopped := p.stopped
	p.mu.RUnlock()
	if stopped {
		return nil, ErrStopped
	}

	req, created, err := p.store.ClaimRequest(ctx, fp, source)
	if err != nil {
		return nil, fmt.Errorf("failed to claim generation request: %w", err)
	}
	if !created {
		p.logger.Debug().
			Str("request_id", req.ID.String()).
			Str("fingerprint", fp.Key()).
			Str("status", string(req.Status)).
			Msg("reusing open generation request")
		return req, nil
	}

	p.logger.Info().
		Str("request_id", req.ID.String()).
		Str("fingerprint", fp.Key()).
		Str("source", string(source)).
		Msg("generation request created")

	if p.queue == nil {
		// runs do not inherit cancellation from the trigger
		p.Run(context.WithoutCancel(ctx), req)
		return p.store.GetRequest(ctx, req.ID)
	}
	return p.enqueue(ctx, req)
}

func (p *Pipeline) enqueue(ctx context.Context, req *models.GenerationRequest) (*models.GenerationRequest, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.stopped {
		select {
		case p.queue <- req:
			metrics.GenerationQueueDepth.Inc()
			return req, nil
		default:
		}
	}

	// the request must not stay open when no worker will pick it up
	msg := "generation queue is full"
	if p.stopped {
		msg = "generation pipeline is stopping"
	}
	if _, err := p.store.TransitionStatus(ctx, req.ID, models.StatusQueued, models.StatusFailed, models.KindInternal, msg); err != nil {
		return nil, fmt.Errorf("failed to reject generation request: %w", err)
	}
	metrics.GenerationRuns.WithLabelValues(string(req.Source), "rejected").Inc()
	p.logger.Warn().Str("request_id", req.ID.String()).Msg(msg)
	return p.store.GetRequest(ctx, req.ID)
}

func (p *Pipeline) worker(id int) {
	defer p.wg.Done()
	for req := range p.queue {
		metrics.GenerationQueueDepth.Dec()
		p.Run(context.Background(), req)
	}
	p.logger.Debug().Int("worker", id).Msg("generation worker exited")
}

// Run executes one claimed request: queued -> running -> completed | failed.
// A request that is no longer queued is left alone.
func (p *Pipeline) Run(ctx context.Context, req *models.GenerationRequest) {
	ok, err := p.store.TransitionStatus(ctx, req.ID, models.StatusQueued, models.StatusRunning, "", "")
	if err != nil {
		p.logger.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to start generation run")
		return
	}
	if !ok {
		p.logger.Debug().Str("request_id", req.ID.String()).Msg("generation request already taken")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	start := time.Now()
	changed, err := p.generate(ctx, req)
	metrics.GenerationDuration.WithLabelValues(string(req.Fingerprint.ArtifactKind)).Observe(time.Since(start).Seconds())

	if err != nil {
		p.fail(ctx, req, err)
		return
	}
	if _, err := p.store.TransitionStatus(context.WithoutCancel(ctx), req.ID, models.StatusRunning, models.StatusCompleted, "", ""); err != nil {
		p.logger.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to complete generation request")
		return
	}

	result := "unchanged"
	if changed != nil {
		result = "written"
		p.publish(ctx, *changed)
	}
	metrics.GenerationRuns.WithLabelValues(string(req.Source), result).Inc()

	p.logger.Info().
		Str("request_id", req.ID.String()).
		Str("fingerprint", req.Fingerprint.Key()).
		Str("result", result).
		Dur("duration", time.Since(start)).
		Msg("generation run completed")
}

// generate builds, hashes and stores the artifact. It returns the update to
// announce when the content changed, nil when it did not.
func (p *Pipeline) generate(ctx context.Context, req *models.GenerationRequest) (*models.ArtifactUpdate, error) {
	fp := req.Fingerprint

	payload, ended, err := p.builder.BuildArtifact(ctx, fp)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, models.NewError(models.KindInternal, "failed to encode artifact", err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := p.store.GetArtifact(ctx, fp.Key())
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}

	now := p.now().UTC()
	if existing != nil && existing.ContentHash == hash {
		if err := p.store.TouchArtifact(ctx, fp.Key(), now, ended); err != nil {
			return nil, fmt.Errorf("failed to touch artifact: %w", err)
		}
		return nil, nil
	}

	// content before metadata: the row never points at a missing file
	path := blob.ArtifactPath(fp, hash, now)
	if err := p.blobs.Put(ctx, path, data); err != nil {
		return nil, models.NewError(models.KindInternal, "failed to write artifact file", err)
	}
	if err := p.store.UpsertArtifact(ctx, models.StaticArtifact{
		FingerprintKey: fp.Key(),
		RequestID:      req.ID,
		ContentHash:    hash,
		Path:           path,
		UpdatedAt:      now,
		CheckedAt:      now,
		Ended:          ended,
	}); err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}
	metrics.ArtifactWrites.WithLabelValues(string(fp.ArtifactKind)).Inc()

	return &models.ArtifactUpdate{
		RequestID:   req.ID,
		Fingerprint: fp,
		Path:        path,
		ContentHash: hash,
		UpdatedAt:   now,
	}, nil
}

func (p *Pipeline) fail(ctx context.Context, req *models.GenerationRequest, cause error) {
	kind := models.KindOf(cause)
	msg := models.MessageOf(cause)

	// the run context may have expired; the failure must still be recorded
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := p.store.TransitionStatus(recordCtx, req.ID, models.StatusRunning, models.StatusFailed, kind, msg); err != nil {
		p.logger.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to record generation failure")
	}
	metrics.GenerationRuns.WithLabelValues(string(req.Source), "failed").Inc()

	p.logger.Warn().
		Err(cause).
		Str("request_id", req.ID.String()).
		Str("fingerprint", req.Fingerprint.Key()).
		Str("error_kind", string(kind)).
		Msg("generation run failed")
}

func (p *Pipeline) publish(ctx context.Context, update models.ArtifactUpdate) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishArtifactUpdate(ctx, update); err != nil {
		// Don't fail the run on notification errors
		p.logger.Warn().Err(err).Str("path", update.Path).Msg("failed to publish artifact update")
	}
}

// Status reports a request and, once completed, its fingerprint's artifact
func (p *Pipeline) Status(ctx context.Context, id uuid.UUID) (*models.GenerationStatus, error) {
	req, err := p.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &models.GenerationStatus{
		RequestID: req.ID,
		Status:    req.Status,
		ErrorKind: req.ErrorKind,
		Error:     req.Error,
	}
	if req.Status != models.StatusCompleted {
		return status, nil
	}

	artifact, err := p.store.GetArtifact(ctx, req.Fingerprint.Key())
	if errors.Is(err, models.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}
	updated := artifact.UpdatedAt
	status.Path = artifact.Path
	status.Hash = artifact.ContentHash
	status.UpdatedAt = &updated
	return status, nil
}

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabdev/odds-analytics-service/internal/cache"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

type testClientSetup struct {
	client    *Client
	server    *httptest.Server
	miniRedis *miniredis.Miniredis
	cache     *cache.RedisCache
	calls     *atomic.Int32
	lastQuery chan string
}

func setupTestClient(t *testing.T, handler http.HandlerFunc) *testClientSetup {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	calls := &atomic.Int32{}
	lastQuery := make(chan string, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case lastQuery <- r.URL.Path + "?" + r.URL.RawQuery:
		default:
		}
		handler(w, r)
	}))

	redisCache := cache.NewRedisCache(cache.RedisCacheConfig{Addr: mr.Addr()}, zerolog.Nop())
	client := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "secret",
		Timeout:    2 * time.Second,
		EventsTTL:  5 * time.Minute,
		LiveTTL:    30 * time.Second,
		LeaguesTTL: 24 * time.Hour,
		OddsTTL:    time.Minute,
	}, redisCache, zerolog.Nop())

	return &testClientSetup{
		client:    client,
		server:    server,
		miniRedis: mr,
		cache:     redisCache,
		calls:     calls,
		lastQuery: lastQuery,
	}
}

func (s *testClientSetup) cleanup() {
	s.server.Close()
	s.cache.Close()
	s.miniRedis.Close()
}

func okJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}
}

// TestOdds_RequestShapeAndCache tests query parameters and the read-through cache
func TestOdds_RequestShapeAndCache(t *testing.T) {
	setup := setupTestClient(t, okJSON(`{"id":"123","bookmakers":{}}`))
	defer setup.cleanup()
	ctx := context.Background()

	resp, err := setup.client.Odds(ctx, "123", models.MarketTotals, []string{"Betano", "bet365"}, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"123","bookmakers":{}}`, string(resp.Body))
	assert.False(t, resp.Cached)

	query := <-setup.lastQuery
	assert.Contains(t, query, "/odds?")
	assert.Contains(t, query, "apiKey=secret")
	assert.Contains(t, query, "bookmakers=bet365%2Cbetano")
	assert.Contains(t, query, "markets=Totals")
	assert.Contains(t, query, "eventId=123")

	again, err := setup.client.Odds(ctx, "123", models.MarketTotals, []string{"bet365", "betano"}, false)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, resp.FetchedAt.Unix(), again.FetchedAt.Unix())
	assert.Equal(t, int32(1), setup.calls.Load())

	_, err = setup.client.Odds(ctx, "123", models.MarketTotals, []string{"bet365", "betano"}, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), setup.calls.Load(), "fresh reads bypass the cache")
}

// TestOdds_BookmakerCeiling tests that more than five bookmakers never reach the provider
func TestOdds_BookmakerCeiling(t *testing.T) {
	setup := setupTestClient(t, okJSON(`{}`))
	defer setup.cleanup()

	_, err := setup.client.Odds(context.Background(), "123", models.MarketMatchLine,
		[]string{"a", "b", "c", "d", "e", "f"}, false)

	assert.ErrorIs(t, err, models.ErrUpstreamRejected)
	assert.Equal(t, int32(0), setup.calls.Load())
}

// TestOdds_NotFoundIsNoData tests that 404 is an empty result
func TestOdds_NotFoundIsNoData(t *testing.T) {
	setup := setupTestClient(t, status(http.StatusNotFound))
	defer setup.cleanup()

	resp, err := setup.client.Odds(context.Background(), "123", models.MarketMatchLine, []string{"bet365"}, false)

	require.NoError(t, err)
	assert.True(t, resp.Empty())
}

// TestStatusMapping tests provider status codes onto error kinds
func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want models.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, models.KindUpstreamUnavailable},
		{"server error", http.StatusBadGateway, models.KindUpstreamUnavailable},
		{"unauthorized", http.StatusUnauthorized, models.KindUpstreamRejected},
		{"forbidden", http.StatusForbidden, models.KindUpstreamRejected},
		{"bad request", http.StatusBadRequest, models.KindUpstreamRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := setupTestClient(t, status(tt.code))
			defer setup.cleanup()

			_, err := setup.client.Odds(context.Background(), "123", models.MarketMatchLine, []string{"bet365"}, false)

			require.Error(t, err)
			assert.Equal(t, tt.want, models.KindOf(err))
			assert.False(t, setup.miniRedis.Exists("odds:123:match-line:bet365"), "errors are never cached")
		})
	}
}

// TestTimeout tests that a slow provider is reported unavailable
func TestTimeout(t *testing.T) {
	setup := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	defer setup.cleanup()
	setup.client.http.Timeout = 50 * time.Millisecond

	_, err := setup.client.Events(context.Background(), models.EventFilter{})

	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

// TestConcurrentFetchesShareOneCall tests singleflight collapsing
func TestConcurrentFetchesShareOneCall(t *testing.T) {
	release := make(chan struct{})
	setup := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`[]`))
	})
	defer setup.cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := setup.client.Leagues(context.Background(), "football")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return setup.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), setup.calls.Load())
}

// TestSharedFetchSurvivesCancelledCaller tests that a caller giving up does
// not fail the callers sharing its fetch
func TestSharedFetchSurvivesCancelledCaller(t *testing.T) {
	setup := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"id":"123","bookmakers":{}}`))
	})
	defer setup.cleanup()

	readerCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	readerErr := make(chan error, 1)
	go func() {
		_, err := setup.client.Odds(readerCtx, "123", models.MarketMatchLine, []string{"bet365"}, false)
		readerErr <- err
	}()
	require.Eventually(t, func() bool { return setup.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := setup.client.Odds(context.Background(), "123", models.MarketMatchLine, []string{"bet365"}, true)

	require.NoError(t, err)
	assert.False(t, resp.Empty())
	assert.Equal(t, int32(1), setup.calls.Load())
	assert.ErrorIs(t, <-readerErr, models.ErrUpstreamUnavailable)
}

// TestEvents_DateBounds tests date-only filters gaining times of day
func TestEvents_DateBounds(t *testing.T) {
	setup := setupTestClient(t, okJSON(`[]`))
	defer setup.cleanup()

	_, err := setup.client.Events(context.Background(), models.EventFilter{Sport: "football", From: "2026-01-15", To: "2026-01-16"})
	require.NoError(t, err)

	query := <-setup.lastQuery
	assert.Contains(t, query, "from=2026-01-15T00%3A00%3A00Z")
	assert.Contains(t, query, "to=2026-01-16T23%3A59%3A59Z")
}

// TestValidateBookmakers tests canonicalization
func TestValidateBookmakers(t *testing.T) {
	books, err := ValidateBookmakers([]string{" Bet365", "betano", "bet365"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bet365", "betano"}, books)

	_, err = ValidateBookmakers(nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

// TestCatalogEndpoints tests request paths and caching of the catalogue reads
func TestCatalogEndpoints(t *testing.T) {
	setup := setupTestClient(t, okJSON(`[{"id":"1"}]`))
	defer setup.cleanup()
	ctx := context.Background()

	_, err := setup.client.Sports(ctx)
	require.NoError(t, err)
	assert.Contains(t, <-setup.lastQuery, "/sports?")

	_, err = setup.client.Bookmakers(ctx)
	require.NoError(t, err)
	assert.Contains(t, <-setup.lastQuery, "/bookmakers?")

	_, err = setup.client.Participants(ctx, "football", "flamengo")
	require.NoError(t, err)
	query := <-setup.lastQuery
	assert.Contains(t, query, "/participants?")
	assert.Contains(t, query, "sport=football")
	assert.Contains(t, query, "search=flamengo")

	_, err = setup.client.Participant(ctx, "42")
	require.NoError(t, err)
	assert.Contains(t, <-setup.lastQuery, "/participants/42?")

	again, err := setup.client.Sports(ctx)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, int32(4), setup.calls.Load())

	_, err = setup.client.Participants(ctx, " ", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = setup.client.Participant(ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cypherlabdev/odds-analytics-service/internal/mocks"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/internal/provider"
	"github.com/cypherlabdev/odds-analytics-service/internal/service"
	"github.com/cypherlabdev/odds-analytics-service/pkg/consensus"
)

// testHandlerSetup is a helper struct to hold test dependencies
type testHandlerSetup struct {
	router    http.Handler
	analytics *mocks.MockAnalytics
	generator *mocks.MockGenerator
	ctrl      *gomock.Controller
}

// setupTestHandler creates the router with mocked dependencies
func setupTestHandler(t *testing.T, checks ...ReadyCheck) *testHandlerSetup {
	ctrl := gomock.NewController(t)
	logger := zerolog.Nop()

	analytics := mocks.NewMockAnalytics(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	router := NewRouter(
		NewOddsHandler(analytics, logger),
		NewGenerationHandler(generator, logger),
		checks,
		RouterConfig{},
		logger,
	)

	return &testHandlerSetup{
		router:    router,
		analytics: analytics,
		generator: generator,
		ctrl:      ctrl,
	}
}

// cleanup cleans up test resources
func (s *testHandlerSetup) cleanup() {
	s.ctrl.Finish()
}

func (s *testHandlerSetup) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// TestHealth tests the liveness endpoint
func TestHealth(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	rec := setup.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

// TestReady tests dependency probing
func TestReady(t *testing.T) {
	healthy := setupTestHandler(t, ReadyCheck{Name: "redis", Check: func(context.Context) error { return nil }})
	defer healthy.cleanup()

	rec := healthy.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	broken := setupTestHandler(t, ReadyCheck{Name: "postgres", Check: func(context.Context) error { return errors.New("refused") }})
	defer broken.cleanup()

	rec = broken.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "postgres unavailable", rec.Body.String())
}

// TestGetOdds tests query parsing and the JSON body
func TestGetOdds(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	snap := &models.OddsSnapshot{
		Event:      models.EventInfo{ID: "123"},
		MarketKind: models.MarketTotals,
		Quotes:     []models.MarketQuote{},
	}
	setup.analytics.EXPECT().
		Odds(gomock.Any(), service.OddsQuery{EventID: "123", Market: "totals", Bookmakers: []string{"bet365", "Betano"}, Region: "br"}).
		Return(snap, nil)

	rec := setup.do(http.MethodGet, "/api/v1/odds?eventId=123&market=totals&bookmakers=bet365,%20Betano&region=br", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got models.OddsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "123", got.Event.ID)
	assert.Equal(t, models.MarketTotals, got.MarketKind)
}

// TestGetOdds_MissingEvent tests input validation
func TestGetOdds_MissingEvent(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	rec := setup.do(http.MethodGet, "/api/v1/odds?market=totals", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, models.KindInvalidInput, resp.Error)
	assert.Equal(t, "eventId is required", resp.Message)
}

// TestErrorMapping tests the error kind to status mapping
func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   models.ErrorKind
		wantMsg    string
	}{
		{
			name:       "upstream unavailable",
			err:        models.NewError(models.KindUpstreamUnavailable, "odds provider unavailable", nil),
			wantStatus: http.StatusBadGateway,
			wantKind:   models.KindUpstreamUnavailable,
			wantMsg:    "odds provider unavailable",
		},
		{
			name:       "upstream rejected",
			err:        models.NewError(models.KindUpstreamRejected, "at most 5 bookmakers per request", nil),
			wantStatus: http.StatusForbidden,
			wantKind:   models.KindUpstreamRejected,
			wantMsg:    "at most 5 bookmakers per request",
		},
		{
			name:       "unsupported market",
			err:        models.NewError(models.KindUnsupportedMarket, `unsupported market "corners"`, nil),
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindUnsupportedMarket,
			wantMsg:    `unsupported market "corners"`,
		},
		{
			name:       "not found",
			err:        models.NewError(models.KindNotFound, "no such thing", nil),
			wantStatus: http.StatusNotFound,
			wantKind:   models.KindNotFound,
			wantMsg:    "no such thing",
		},
		{
			name:       "internal",
			err:        errors.New("dial tcp 10.0.0.7:5432: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   models.KindInternal,
			wantMsg:    "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := setupTestHandler(t)
			defer setup.cleanup()

			setup.analytics.EXPECT().Odds(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rec := setup.do(http.MethodGet, "/api/v1/odds?eventId=123", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantKind, resp.Error)
			assert.Equal(t, tt.wantMsg, resp.Message)
		})
	}
}

// TestGetValueBets tests parameter parsing for value bets
func TestGetValueBets(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	setup.analytics.EXPECT().
		ValueBets(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q service.ValueBetsQuery) ([]models.ValueBetCandidate, error) {
			assert.Equal(t, []string{"1", "2", "3"}, q.EventIDs)
			assert.Equal(t, "match-line", q.Market)
			require.NotNil(t, q.MinEV)
			assert.Equal(t, 3.5, *q.MinEV)
			assert.Equal(t, 5, q.Limit)
			return []models.ValueBetCandidate{{EventID: "1", BookmakerKey: "bet365", ExpectedValuePct: 4.2}}, nil
		})

	rec := setup.do(http.MethodGet, "/api/v1/value-bets?eventIds=1,2&eventIds=3&market=match-line&minEV=3.5&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count     int                        `json:"count"`
		ValueBets []models.ValueBetCandidate `json:"value_bets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "bet365", body.ValueBets[0].BookmakerKey)
}

// TestGetValueBets_DefaultsLeftToService tests that absent parameters stay unset
func TestGetValueBets_DefaultsLeftToService(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	setup.analytics.EXPECT().
		ValueBets(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q service.ValueBetsQuery) ([]models.ValueBetCandidate, error) {
			assert.Nil(t, q.MinEV)
			assert.Zero(t, q.Limit)
			assert.Nil(t, q.Bookmakers)
			return []models.ValueBetCandidate{}, nil
		})

	rec := setup.do(http.MethodGet, "/api/v1/value-bets?eventIds=1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count": 0, "value_bets": []}`, rec.Body.String())
}

// TestGetValueBets_BadNumbers tests rejection of unparsable parameters
func TestGetValueBets_BadNumbers(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	for _, target := range []string{
		"/api/v1/value-bets?eventIds=1&minEV=high",
		"/api/v1/value-bets?eventIds=1&minEV=NaN",
		"/api/v1/value-bets?eventIds=1&minEV=-Inf",
		"/api/v1/value-bets?eventIds=1&limit=-1",
		"/api/v1/arbitrage?eventIds=1&minProfit=x",
		"/api/v1/arbitrage?eventIds=1&minProfit=nan",
		"/api/v1/arbitrage?eventIds=1&minProfit=%2BInf",
		"/api/v1/arbitrage?eventIds=1&totalStake=0",
	} {
		rec := setup.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, models.KindInvalidInput, decodeError(t, rec).Error, target)
	}
}

// TestGetArbitrage tests parameter parsing for arbitrage
func TestGetArbitrage(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	setup.analytics.EXPECT().
		Arbitrage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q service.ArbitrageQuery) ([]models.ArbitrageOpportunity, error) {
			assert.Equal(t, []string{"777"}, q.EventIDs)
			assert.Equal(t, []string{"booka", "bookb"}, q.Bookmakers)
			require.NotNil(t, q.MinProfit)
			assert.Equal(t, 0.5, *q.MinProfit)
			assert.True(t, q.TotalStake.Equal(decimal.NewFromInt(250)))
			return []models.ArbitrageOpportunity{}, nil
		})

	rec := setup.do(http.MethodGet, "/api/v1/arbitrage?eventIds=777&market=asian-handicap&bookmakers=booka&bookmakers=bookb&minProfit=0.5&totalStake=250", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count": 0, "arbitrage": []}`, rec.Body.String())
}

// TestArtifactMatchesServedBody tests that a generated artifact has the bytes
// the read endpoint serves for the same parameters
func TestArtifactMatchesServedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	logger := zerolog.Nop()

	const oddsBody = `{
		"id": 123,
		"home": "Flamengo",
		"away": "Palmeiras",
		"bookmakers": {
			"Bet365": [{"name": "ML", "updatedAt": "2026-01-13T20:45:00Z", "odds": [{"home": "2.40", "draw": "3.40", "away": "3.50"}]}],
			"Betano": [{"name": "ML", "updatedAt": "2026-01-13T20:46:00Z", "odds": [{"home": "1.95", "draw": "3.40", "away": "3.50"}]}]
		}
	}`

	p := mocks.NewMockOddsProvider(ctrl)
	p.EXPECT().Odds(gomock.Any(), "123", models.MarketMatchLine, []string{"bet365", "betano"}, gomock.Any()).
		Return(&provider.Response{Body: []byte(oddsBody), FetchedAt: time.Date(2026, 1, 13, 21, 0, 0, 0, time.UTC)}, nil).
		Times(4)

	defaults := service.DefaultDefaults()
	defaults.Bookmakers = []string{"bet365", "betano"}
	analytics := service.NewAnalyticsService(p, consensus.NewEngine(consensus.MethodMean, logger), nil, defaults, logger)
	router := NewRouter(NewOddsHandler(analytics, logger), NewGenerationHandler(mocks.NewMockGenerator(ctrl), logger), nil, RouterConfig{}, logger)

	tests := []struct {
		name     string
		target   string
		artifact models.ArtifactKind
	}{
		{name: "value bets", target: "/api/v1/value-bets?eventIds=123&market=match-line", artifact: models.ArtifactValueBets},
		{name: "arbitrage", target: "/api/v1/arbitrage?eventIds=123&market=match-line", artifact: models.ArtifactArbitrage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			payload, _, err := analytics.BuildArtifact(context.Background(), models.NewFingerprint("123", models.MarketMatchLine, defaults.Bookmakers, tt.artifact))
			require.NoError(t, err)
			content, err := json.Marshal(payload)
			require.NoError(t, err)

			assert.Equal(t, string(content), strings.TrimSpace(rec.Body.String()))
		})
	}
}

// TestCatalogEndpoints tests the sports, bookmakers and participants listings
func TestCatalogEndpoints(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	setup.analytics.EXPECT().Sports(gomock.Any()).Return([]models.Sport{{Key: "football", Title: "Football", Active: true}}, nil)
	setup.analytics.EXPECT().Bookmakers(gomock.Any(), "br").Return([]models.Bookmaker{{Key: "betano", Name: "Betano", IsActive: true}}, nil)
	setup.analytics.EXPECT().
		Participants(gomock.Any(), service.ParticipantsQuery{Sport: "football", Search: "fla", Limit: 10, Offset: 20}).
		Return(&models.ParticipantPage{Data: []models.Participant{{ID: "9", Name: "Flamengo", Slug: "flamengo", Sport: "football"}}, Total: 21}, nil)
	setup.analytics.EXPECT().Participant(gomock.Any(), "9").Return(&models.Participant{ID: "9", Name: "Flamengo"}, nil)
	setup.analytics.EXPECT().Participant(gomock.Any(), "404").Return(nil, models.NewError(models.KindNotFound, "participant not found", nil))

	rec := setup.do(http.MethodGet, "/api/v1/sports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"key": "football", "title": "Football", "active": true}]`, rec.Body.String())

	rec = setup.do(http.MethodGet, "/api/v1/bookmakers?region=br", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"key": "betano", "name": "Betano", "is_active": true}]`, rec.Body.String())

	rec = setup.do(http.MethodGet, "/api/v1/participants?sport=football&search=fla&limit=10&offset=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data": [{"id": "9", "name": "Flamengo", "slug": "flamengo", "sport": "football"}], "total": 21}`, rec.Body.String())

	rec = setup.do(http.MethodGet, "/api/v1/participants/9", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = setup.do(http.MethodGet, "/api/v1/participants/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = setup.do(http.MethodGet, "/api/v1/participants?sport=football&offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestGetMovements tests the movement history endpoint
func TestGetMovements(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	setup.analytics.EXPECT().
		Movements(gomock.Any(), "123", "bet365", "btts").
		Return(&models.MovementHistory{EventID: "123", BookmakerKey: "bet365", MarketKind: models.MarketBTTS, Movements: []models.MovementRecord{}}, nil)

	rec := setup.do(http.MethodGet, "/api/v1/odds/movements?eventId=123&bookmaker=bet365&market=btts", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.MovementHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.Movements)
}

// TestListings tests the events, live events and leagues endpoints
func TestListings(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	setup.analytics.EXPECT().
		Events(gomock.Any(), models.EventFilter{Sport: "football", League: "serie-a", From: "2026-01-15"}).
		Return([]models.Event{{ID: "1"}}, nil)
	setup.analytics.EXPECT().LiveEvents(gomock.Any(), "basketball").Return([]models.Event{}, nil)
	setup.analytics.EXPECT().Leagues(gomock.Any(), "football").Return([]models.League{{Name: "Serie A", Slug: "serie-a"}}, nil)

	rec := setup.do(http.MethodGet, "/api/v1/events?sport=football&league=serie-a&from=2026-01-15", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = setup.do(http.MethodGet, "/api/v1/events/live?sport=basketball", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count": 0, "events": []}`, rec.Body.String())

	rec = setup.do(http.MethodGet, "/api/v1/leagues?sport=football", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slug":"serie-a"`)
}

// TestGenerate tests the generation trigger endpoint
func TestGenerate(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	id := uuid.New()
	in := models.GenerationTrigger{EventID: "123", Market: "totals", Bookmakers: []string{"bet365"}}
	updated := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	setup.generator.EXPECT().
		Trigger(gomock.Any(), in, models.SourceAPI).
		Return(&models.GenerationRequest{ID: id, Status: models.StatusCompleted, Source: models.SourceAPI}, nil)
	setup.generator.EXPECT().
		Status(gomock.Any(), id).
		Return(&models.GenerationStatus{RequestID: id, Status: models.StatusCompleted, Path: "2026/01/odds-123-totals-3f2a9c01d4e5.json", UpdatedAt: &updated}, nil)

	rec := setup.do(http.MethodPost, "/api/v1/generate", `{"event_id": "123", "market": "totals", "bookmakers": ["bet365"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.RequestID)
	assert.Equal(t, models.StatusCompleted, resp.Status)
	assert.Equal(t, "2026/01/odds-123-totals-3f2a9c01d4e5.json", resp.Path)
}

// TestGenerate_Queued tests that an open request is accepted
func TestGenerate_Queued(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	id := uuid.New()
	setup.generator.EXPECT().Trigger(gomock.Any(), gomock.Any(), models.SourceAPI).Return(&models.GenerationRequest{ID: id, Status: models.StatusQueued}, nil)
	setup.generator.EXPECT().Status(gomock.Any(), id).Return(&models.GenerationStatus{RequestID: id, Status: models.StatusQueued}, nil)

	rec := setup.do(http.MethodPost, "/api/v1/generate", `{"event_id": "123"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path":""`)
}

// TestGenerate_Errors tests body and trigger failures
func TestGenerate_Errors(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	rec := setup.do(http.MethodPost, "/api/v1/generate", `{"event_id": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	setup.generator.EXPECT().
		Trigger(gomock.Any(), gomock.Any(), models.SourceAPI).
		Return(nil, models.NewError(models.KindUpstreamRejected, "at most 5 bookmakers per request", nil))

	rec = setup.do(http.MethodPost, "/api/v1/generate", `{"event_id": "123", "bookmakers": ["a","b","c","d","e","f"]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, models.KindUpstreamRejected, decodeError(t, rec).Error)
}

// TestGetFile tests the generation status endpoint
func TestGetFile(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	rec := setup.do(http.MethodGet, "/api/v1/files/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	missing := uuid.New()
	setup.generator.EXPECT().Status(gomock.Any(), missing).Return(nil, models.NewError(models.KindNotFound, "generation request not found", nil))
	rec = setup.do(http.MethodGet, "/api/v1/files/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	failed := uuid.New()
	setup.generator.EXPECT().Status(gomock.Any(), failed).Return(&models.GenerationStatus{
		RequestID: failed,
		Status:    models.StatusFailed,
		ErrorKind: models.KindUpstreamUnavailable,
		Error:     "odds provider unavailable",
	}, nil)
	rec = setup.do(http.MethodGet, "/api/v1/files/"+failed.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.GenerationStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.StatusFailed, status.Status)
	assert.Equal(t, models.KindUpstreamUnavailable, status.ErrorKind)
}

// TestCORSPreflight tests the CORS middleware
func TestCORSPreflight(t *testing.T) {
	setup := setupTestHandler(t)
	defer setup.cleanup()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/generate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	setup.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

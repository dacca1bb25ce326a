package http

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/internal/service"
)

// Analytics serves the read endpoints
type Analytics interface {
	Odds(ctx context.Context, q service.OddsQuery) (*models.OddsSnapshot, error)
	ValueBets(ctx context.Context, q service.ValueBetsQuery) ([]models.ValueBetCandidate, error)
	Arbitrage(ctx context.Context, q service.ArbitrageQuery) ([]models.ArbitrageOpportunity, error)
	Movements(ctx context.Context, eventID, bookmaker, market string) (*models.MovementHistory, error)
	Events(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	LiveEvents(ctx context.Context, sport string) ([]models.Event, error)
	Leagues(ctx context.Context, sport string) ([]models.League, error)
	Sports(ctx context.Context) ([]models.Sport, error)
	Bookmakers(ctx context.Context, region string) ([]models.Bookmaker, error)
	Participants(ctx context.Context, q service.ParticipantsQuery) (*models.ParticipantPage, error)
	Participant(ctx context.Context, id string) (*models.Participant, error)
}

// OddsHandler handles the odds and analytics read endpoints
type OddsHandler struct {
	analytics Analytics
	logger    zerolog.Logger
}

// NewOddsHandler creates a new odds HTTP handler
func NewOddsHandler(analytics Analytics, logger zerolog.Logger) *OddsHandler {
	return &OddsHandler{
		analytics: analytics,
		logger:    logger.With().Str("component", "odds_handler").Logger(),
	}
}

// GetEvents handles GET /api/v1/events?sport&league&status&from&to
func (h *OddsHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.analytics.Events(r.Context(), models.EventFilter{
		Sport:  q.Get("sport"),
		League: q.Get("league"),
		Status: q.Get("status"),
		From:   q.Get("from"),
		To:     q.Get("to"),
	})
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

// GetLiveEvents handles GET /api/v1/events/live?sport
func (h *OddsHandler) GetLiveEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.analytics.LiveEvents(r.Context(), r.URL.Query().Get("sport"))
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

// GetLeagues handles GET /api/v1/leagues?sport
func (h *OddsHandler) GetLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.analytics.Leagues(r.Context(), r.URL.Query().Get("sport"))
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, map[string]any{
		"count":   len(leagues),
		"leagues": leagues,
	})
}

// GetSports handles GET /api/v1/sports
func (h *OddsHandler) GetSports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.analytics.Sports(r.Context())
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, sports)
}

// GetBookmakers handles GET /api/v1/bookmakers?region
func (h *OddsHandler) GetBookmakers(w http.ResponseWriter, r *http.Request) {
	books, err := h.analytics.Bookmakers(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, books)
}

// GetParticipants handles GET /api/v1/participants?sport&search&limit&offset
func (h *OddsHandler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.ParticipantsQuery{Sport: q.Get("sport"), Search: q.Get("search")}

	var err error
	if query.Limit, err = optionalInt(q.Get("limit"), "limit"); err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}
	if query.Offset, err = optionalInt(q.Get("offset"), "offset"); err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	page, err := h.analytics.Participants(r.Context(), query)
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, page)
}

// GetParticipant handles GET /api/v1/participants/{participant_id}
func (h *OddsHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := h.analytics.Participant(r.Context(), chi.URLParam(r, "participant_id"))
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, p)
}

// GetOdds handles GET /api/v1/odds?eventId&market&bookmakers&region
func (h *OddsHandler) GetOdds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eventID := strings.TrimSpace(q.Get("eventId"))
	if eventID == "" {
		errorResponse(w, r, h.logger, invalidInput("eventId is required"))
		return
	}

	snap, err := h.analytics.Odds(r.Context(), service.OddsQuery{
		EventID:    eventID,
		Market:     q.Get("market"),
		Bookmakers: splitList(q["bookmakers"]),
		Region:     q.Get("region"),
	})
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, snap)
}

// GetMovements handles GET /api/v1/odds/movements?eventId&bookmaker&market
func (h *OddsHandler) GetMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	history, err := h.analytics.Movements(r.Context(), q.Get("eventId"), q.Get("bookmaker"), q.Get("market"))
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, history)
}

// GetValueBets handles GET /api/v1/value-bets?eventIds&market&bookmakers&region&minEV&limit
func (h *OddsHandler) GetValueBets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.ValueBetsQuery{MarketQuery: marketQuery(r)}

	var err error
	if query.MinEV, err = optionalFloat(q.Get("minEV"), "minEV"); err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}
	if query.Limit, err = optionalInt(q.Get("limit"), "limit"); err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	bets, err := h.analytics.ValueBets(r.Context(), query)
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, models.NewValueBetsResult(bets))
}

// GetArbitrage handles GET /api/v1/arbitrage?eventIds&market&bookmakers&region&minProfit&limit&totalStake
func (h *OddsHandler) GetArbitrage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.ArbitrageQuery{MarketQuery: marketQuery(r)}

	var err error
	if query.MinProfit, err = optionalFloat(q.Get("minProfit"), "minProfit"); err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}
	if query.Limit, err = optionalInt(q.Get("limit"), "limit"); err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}
	if raw := strings.TrimSpace(q.Get("totalStake")); raw != "" {
		stake, err := decimal.NewFromString(raw)
		if err != nil || !stake.IsPositive() {
			errorResponse(w, r, h.logger, invalidInput("totalStake must be a positive number"))
			return
		}
		query.TotalStake = stake
	}

	opps, err := h.analytics.Arbitrage(r.Context(), query)
	if err != nil {
		errorResponse(w, r, h.logger, err)
		return
	}

	jsonResponse(w, h.logger, http.StatusOK, models.NewArbitrageResult(opps))
}

func marketQuery(r *http.Request) service.MarketQuery {
	q := r.URL.Query()
	return service.MarketQuery{
		EventIDs:   splitList(q["eventIds"]),
		Market:     q.Get("market"),
		Bookmakers: splitList(q["bookmakers"]),
		Region:     q.Get("region"),
	}
}

// splitList accepts both repeated parameters and comma separated values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func optionalFloat(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, invalidInput(name + " must be a finite number")
	}
	return &v, nil
}

func optionalInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, invalidInput(name + " must be a non-negative integer")
	}
	return v, nil
}

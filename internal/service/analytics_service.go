package service

import (
	"context"
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cypherlabdev/odds-analytics-service/internal/metrics"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/internal/provider"
	"github.com/cypherlabdev/odds-analytics-service/pkg/consensus"
	"github.com/cypherlabdev/odds-analytics-service/pkg/detector"
	"github.com/cypherlabdev/odds-analytics-service/pkg/normalizer"
)

const (
	// MaxEvents caps the event ids of one value-bet or arbitrage query
	MaxEvents = 20

	DefaultParticipants = 100
	MaxParticipants     = 500

	fetchConcurrency = 4
)

// Defaults are the configured values used when a query leaves a field empty
type Defaults struct {
	Bookmakers     []string
	MinEV          float64
	ValueBetLimit  int
	MinProfit      float64
	ArbitrageLimit int
	TotalStake     decimal.Decimal
	// Regions restricts the bookmakers queried for a region code
	Regions models.Regions
	// LeagueWhitelist keeps only listed leagues in event listings, matched
	// against the league slug or name. Entries may use * and ? wildcards.
	LeagueWhitelist []string
}

// DefaultDefaults returns the built-in query defaults
func DefaultDefaults() Defaults {
	return Defaults{
		Bookmakers:     []string{"betano", "sportingbet", "betfair", "bet365"},
		MinEV:          detector.DefaultMinEV,
		ValueBetLimit:  detector.DefaultValueBetLimit,
		MinProfit:      detector.DefaultMinProfit,
		ArbitrageLimit: detector.DefaultArbitrageLimit,
		TotalStake:     detector.DefaultTotalStake,
	}
}

// OddsQuery selects one event, one market and a bookmaker set. A region
// restricts the bookmakers to those licensed there.
type OddsQuery struct {
	EventID    string
	Market     string
	Bookmakers []string
	Region     string
}

// MarketQuery selects events, one market and a bookmaker set
type MarketQuery struct {
	EventIDs   []string
	Market     string
	Bookmakers []string
	Region     string
}

// ValueBetsQuery is a value-bet scan. Nil MinEV uses the default.
type ValueBetsQuery struct {
	MarketQuery
	MinEV *float64
	Limit int
}

// ArbitrageQuery is an arbitrage scan. Nil MinProfit and a zero TotalStake
// use the defaults.
type ArbitrageQuery struct {
	MarketQuery
	MinProfit  *float64
	Limit      int
	TotalStake decimal.Decimal
}

// AnalyticsService orchestrates fetching, normalization, movement recording
// and the detectors
type AnalyticsService struct {
	provider   OddsProvider
	normalizer *normalizer.Normalizer
	consensus  *consensus.Engine
	recorder   MovementRecorder
	defaults   Defaults
	logger     zerolog.Logger
}

// NewAnalyticsService creates a new analytics service. recorder may be nil.
func NewAnalyticsService(
	p OddsProvider,
	engine *consensus.Engine,
	recorder MovementRecorder,
	defaults Defaults,
	logger zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		provider:   p,
		normalizer: normalizer.NewNormalizer(logger),
		consensus:  engine,
		recorder:   recorder,
		defaults:   defaults,
		logger:     logger.With().Str("component", "analytics_service").Logger(),
	}
}

// Odds returns the normalized quotes of one event and market
func (s *AnalyticsService) Odds(ctx context.Context, q OddsQuery) (*models.OddsSnapshot, error) {
	eventID, err := models.ValidateEventID(q.EventID)
	if err != nil {
		return nil, err
	}
	kind, books, err := s.resolve(q.Market, q.Region, q.Bookmakers)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, eventID, kind, books, false)
}

// ValueBets scans one or more events for prices above the consensus
func (s *AnalyticsService) ValueBets(ctx context.Context, q ValueBetsQuery) ([]models.ValueBetCandidate, error) {
	if err := finiteThreshold("minEV", q.MinEV); err != nil {
		return nil, err
	}
	snaps, err := s.fanOut(ctx, q.MarketQuery)
	if err != nil {
		return nil, err
	}
	return s.rankValueBets(snaps, s.valueBetParams(q)), nil
}

// Arbitrage scans one or more events for cross-bookmaker arbitrage
func (s *AnalyticsService) Arbitrage(ctx context.Context, q ArbitrageQuery) ([]models.ArbitrageOpportunity, error) {
	if err := finiteThreshold("minProfit", q.MinProfit); err != nil {
		return nil, err
	}
	snaps, err := s.fanOut(ctx, q.MarketQuery)
	if err != nil {
		return nil, err
	}
	return rankArbitrage(snaps, s.arbitrageParams(q)), nil
}

// Movements returns the recorded price history of one bookmaker's market
func (s *AnalyticsService) Movements(ctx context.Context, eventID, bookmaker, market string) (*models.MovementHistory, error) {
	eventID, err := models.ValidateEventID(eventID)
	if err != nil {
		return nil, err
	}
	book := models.BookmakerKey(bookmaker)
	if book == "" {
		return nil, models.NewError(models.KindInvalidInput, "bookmaker is required", nil)
	}
	kind, err := models.ParseMarketKind(market)
	if err != nil {
		return nil, err
	}

	key := models.MovementKey{EventID: eventID, BookmakerKey: book, MarketKind: kind}
	if s.recorder == nil {
		return &models.MovementHistory{
			EventID:      key.EventID,
			BookmakerKey: key.BookmakerKey,
			MarketKind:   key.MarketKind,
			Movements:    []models.MovementRecord{},
		}, nil
	}
	return s.recorder.History(ctx, key)
}

// Events lists fixtures
func (s *AnalyticsService) Events(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	resp, err := s.provider.Events(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.parseEvents(resp, "")
}

// LiveEvents lists in-play fixtures, optionally for one sport
func (s *AnalyticsService) LiveEvents(ctx context.Context, sport string) ([]models.Event, error) {
	resp, err := s.provider.LiveEvents(ctx)
	if err != nil {
		return nil, err
	}
	return s.parseEvents(resp, sport)
}

// Leagues lists competitions
func (s *AnalyticsService) Leagues(ctx context.Context, sport string) ([]models.League, error) {
	resp, err := s.provider.Leagues(ctx, sport)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return []models.League{}, nil
	}
	return normalizer.ParseLeagues(resp.Body)
}

// Sports lists the provider's sports
func (s *AnalyticsService) Sports(ctx context.Context) ([]models.Sport, error) {
	resp, err := s.provider.Sports(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return []models.Sport{}, nil
	}
	return normalizer.ParseSports(resp.Body)
}

// Bookmakers lists the provider's bookmakers. A region keeps only the
// bookmakers licensed there.
func (s *AnalyticsService) Bookmakers(ctx context.Context, region string) ([]models.Bookmaker, error) {
	var allowed map[string]bool
	if strings.TrimSpace(region) != "" {
		books, err := s.defaults.Regions.Allowed(region)
		if err != nil {
			return nil, err
		}
		allowed = make(map[string]bool, len(books))
		for _, b := range books {
			allowed[b] = true
		}
	}

	resp, err := s.provider.Bookmakers(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return []models.Bookmaker{}, nil
	}
	books, err := normalizer.ParseBookmakers(resp.Body)
	if err != nil || allowed == nil {
		return books, err
	}

	filtered := make([]models.Bookmaker, 0, len(books))
	for _, b := range books {
		if allowed[models.BookmakerKey(b.Key)] {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// ParticipantsQuery pages the teams of one sport
type ParticipantsQuery struct {
	Sport  string
	Search string
	Limit  int
	Offset int
}

// Participants lists the teams of a sport, one page at a time
func (s *AnalyticsService) Participants(ctx context.Context, q ParticipantsQuery) (*models.ParticipantPage, error) {
	sport := strings.TrimSpace(q.Sport)
	if sport == "" {
		return nil, models.NewError(models.KindInvalidInput, "sport is required", nil)
	}
	if q.Limit > MaxParticipants || q.Offset < 0 || q.Limit < 0 {
		return nil, models.NewError(models.KindInvalidInput,
			fmt.Sprintf("limit must be between 1 and %d and offset non-negative", MaxParticipants), nil)
	}
	limit := q.Limit
	if limit == 0 {
		limit = DefaultParticipants
	}

	resp, err := s.provider.Participants(ctx, sport, strings.TrimSpace(q.Search))
	if err != nil {
		return nil, err
	}
	all := []models.Participant{}
	if !resp.Empty() {
		if all, err = normalizer.ParseParticipants(resp.Body, sport); err != nil {
			return nil, err
		}
	}

	start := min(q.Offset, len(all))
	end := min(start+limit, len(all))
	return &models.ParticipantPage{Data: all[start:end], Total: len(all)}, nil
}

// Participant returns one team by id
func (s *AnalyticsService) Participant(ctx context.Context, id string) (*models.Participant, error) {
	resp, err := s.provider.Participant(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return nil, models.NewError(models.KindNotFound, "participant not found", nil)
	}
	return normalizer.ParseParticipant(resp.Body)
}

// BuildArtifact produces the payload of one generation unit from fresh
// provider data. The payload is the read endpoint response body for the same
// parameters. ended reports that the event has finished.
func (s *AnalyticsService) BuildArtifact(ctx context.Context, fp models.Fingerprint) (payload any, ended bool, err error) {
	snap, err := s.snapshot(ctx, fp.EventID, fp.MarketKind, fp.Bookmakers, true)
	if err != nil {
		return nil, false, err
	}
	ended = snap.Event.Ended

	switch fp.ArtifactKind {
	case models.ArtifactOdds, "":
		return snap, ended, nil
	case models.ArtifactValueBets:
		bets := s.rankValueBets([]*models.OddsSnapshot{snap}, s.valueBetParams(ValueBetsQuery{}))
		return models.NewValueBetsResult(bets), ended, nil
	case models.ArtifactArbitrage:
		opps := rankArbitrage([]*models.OddsSnapshot{snap}, s.arbitrageParams(ArbitrageQuery{}))
		return models.NewArbitrageResult(opps), ended, nil
	}
	return nil, false, models.NewError(models.KindInvalidInput, fmt.Sprintf("unknown artifact kind %q", fp.ArtifactKind), nil)
}

func (s *AnalyticsService) rankValueBets(snaps []*models.OddsSnapshot, params models.ValueBetParams) []models.ValueBetCandidate {
	perEvent := params
	perEvent.Limit = detector.MaxLimit

	lists := make([][]models.ValueBetCandidate, 0, len(snaps))
	for _, snap := range snaps {
		cons, err := s.consensus.Compute(snap.Event.ID, snap.MarketKind, snap.Quotes)
		if err != nil {
			// an event without quotes contributes nothing
			continue
		}
		lists = append(lists, detector.ValueBets(snap.Quotes, cons, perEvent))
	}
	return detector.MergeValueBets(lists, params.Limit)
}

func rankArbitrage(snaps []*models.OddsSnapshot, params models.ArbitrageParams) []models.ArbitrageOpportunity {
	perEvent := params
	perEvent.Limit = detector.MaxLimit

	lists := make([][]models.ArbitrageOpportunity, 0, len(snaps))
	for _, snap := range snaps {
		lists = append(lists, detector.Arbitrage(snap.Quotes, snap.MarketKind, perEvent))
	}
	return detector.MergeArbitrage(lists, params.Limit)
}

func (s *AnalyticsService) valueBetParams(q ValueBetsQuery) models.ValueBetParams {
	p := models.ValueBetParams{MinEV: s.defaults.MinEV, MinContributors: 2, Limit: detector.ClampLimit(q.Limit, s.defaults.ValueBetLimit)}
	if q.MinEV != nil {
		p.MinEV = *q.MinEV
	}
	return p
}

func (s *AnalyticsService) arbitrageParams(q ArbitrageQuery) models.ArbitrageParams {
	p := models.ArbitrageParams{
		MinProfit:  s.defaults.MinProfit,
		TotalStake: s.defaults.TotalStake,
		Limit:      detector.ClampLimit(q.Limit, s.defaults.ArbitrageLimit),
	}
	if q.MinProfit != nil {
		p.MinProfit = *q.MinProfit
	}
	if q.TotalStake.GreaterThan(decimal.Zero) {
		p.TotalStake = q.TotalStake
	}
	return p
}

// fanOut fetches every event of q in parallel, keeping the input order
func (s *AnalyticsService) fanOut(ctx context.Context, q MarketQuery) ([]*models.OddsSnapshot, error) {
	ids := uniqueIDs(q.EventIDs)
	if len(ids) == 0 {
		return nil, models.NewError(models.KindInvalidInput, "at least one event id is required", nil)
	}
	if len(ids) > MaxEvents {
		return nil, models.NewError(models.KindInvalidInput, fmt.Sprintf("at most %d event ids per request, got %d", MaxEvents, len(ids)), nil)
	}
	for _, id := range ids {
		if _, err := models.ValidateEventID(id); err != nil {
			return nil, err
		}
	}
	kind, books, err := s.resolve(q.Market, q.Region, q.Bookmakers)
	if err != nil {
		return nil, err
	}

	snaps := make([]*models.OddsSnapshot, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			snap, err := s.snapshot(gctx, id, kind, books, false)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (s *AnalyticsService) resolve(market, region string, bookmakers []string) (models.MarketKind, []string, error) {
	kind, err := models.ParseMarketKind(market)
	if err != nil {
		return "", nil, err
	}
	bookmakers, err = s.defaults.Regions.Filter(region, bookmakers)
	if err != nil {
		return "", nil, err
	}
	if len(models.CanonicalBookmakers(bookmakers)) == 0 {
		bookmakers = s.defaults.Bookmakers
	}
	books, err := provider.ValidateBookmakers(bookmakers)
	if err != nil {
		return "", nil, err
	}
	return kind, books, nil
}

// snapshot fetches and normalizes one event. An absent event or market is an
// empty snapshot.
func (s *AnalyticsService) snapshot(ctx context.Context, eventID string, kind models.MarketKind, books []string, fresh bool) (*models.OddsSnapshot, error) {
	eventID = strings.TrimSpace(eventID)
	resp, err := s.provider.Odds(ctx, eventID, kind, books, fresh)
	if err != nil {
		return nil, err
	}

	snap := &models.OddsSnapshot{
		Event:      models.EventInfo{ID: eventID},
		MarketKind: kind,
		Quotes:     []models.MarketQuote{},
	}
	if resp.Empty() {
		return snap, nil
	}

	result, err := s.normalizer.Normalize(resp.Body, kind, resp.FetchedAt)
	if err != nil {
		return nil, err
	}
	for _, rej := range result.Rejected {
		metrics.QuotesRejected.WithLabelValues(string(kind), string(models.KindOf(rej.Err))).Inc()
	}
	if n := len(result.Rejected); n > 0 {
		s.logger.Warn().
			Str("event_id", eventID).
			Str("market", string(kind)).
			Int("rejected", n).
			Int("accepted", len(result.Quotes)).
			Msg("provider quotes rejected during normalization")
	}

	if result.Event.ID != "" {
		snap.Event = result.Event
	}
	snap.Quotes = result.Quotes

	if s.recorder != nil && len(result.Quotes) > 0 {
		if _, err := s.recorder.Observe(ctx, result.Quotes); err != nil {
			// Don't fail the read on movement log errors
			s.logger.Warn().Err(err).Str("event_id", eventID).Msg("failed to record movements")
		}
	}
	return snap, nil
}

func (s *AnalyticsService) parseEvents(resp *provider.Response, sport string) ([]models.Event, error) {
	if resp.Empty() {
		return []models.Event{}, nil
	}
	events, skipped, err := normalizer.ParseEvents(resp.Body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Msg("skipped unparseable events")
	}
	if sport == "" && len(s.defaults.LeagueWhitelist) == 0 {
		return events, nil
	}

	filtered := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if sport != "" && !strings.EqualFold(ev.Sport, sport) {
			continue
		}
		if !leagueAllowed(s.defaults.LeagueWhitelist, ev) {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered, nil
}

// leagueAllowed reports whether ev's league matches an entry of whitelist. An
// empty whitelist allows every league.
func leagueAllowed(whitelist []string, ev models.Event) bool {
	if len(whitelist) == 0 {
		return true
	}
	slug := strings.ToLower(ev.LeagueSlug)
	name := strings.ToLower(ev.League)
	for _, entry := range whitelist {
		pattern := strings.ToLower(strings.TrimSpace(entry))
		for _, candidate := range []string{slug, name} {
			if candidate == "" {
				continue
			}
			if ok, err := path.Match(pattern, candidate); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func finiteThreshold(name string, v *float64) error {
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return models.NewError(models.KindInvalidInput, name+" must be a finite number", nil)
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

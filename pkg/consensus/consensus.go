package consensus

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// Method selects how bookmaker prices are combined
type Method string

const (
	// MethodMean averages decimal odds per selection
	MethodMean Method = "mean"
	// MethodNoVig removes each bookmaker's margin before averaging
	MethodNoVig Method = "novig"
)

// ParseMethod parses a consensus method name, defaulting to mean
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodMean:
		return MethodMean, nil
	case MethodNoVig:
		return MethodNoVig, nil
	}
	return "", fmt.Errorf("unknown consensus method %q", s)
}

// Engine derives reference prices from a set of bookmaker quotes
type Engine struct {
	method Method
	logger zerolog.Logger
}

// NewEngine creates a consensus engine
func NewEngine(method Method, logger zerolog.Logger) *Engine {
	if method == "" {
		method = MethodMean
	}
	return &Engine{
		method: method,
		logger: logger.With().Str("component", "consensus").Logger(),
	}
}

// Method returns the configured method
func (e *Engine) Method() Method {
	return e.method
}

type accumulator struct {
	selection models.Selection
	sum       float64
	books     map[string]bool
	order     int
}

// Compute aggregates quotes for one event and market. Every selection is
// averaged over the bookmakers that price it, so a line quoted by a single
// bookmaker passes through with one contributor.
func (e *Engine) Compute(eventID string, kind models.MarketKind, quotes []models.MarketQuote) (*models.ConsensusOdds, error) {
	if len(quotes) == 0 {
		return nil, models.NewError(models.KindInsufficientQuotes,
			fmt.Sprintf("no quotes for event %s market %s", eventID, kind), nil)
	}

	accs := make(map[string]*accumulator)
	books := make(map[string]bool)

	for _, q := range quotes {
		if q.MarketKind != kind {
			continue
		}
		values := e.values(kind, q.Payload.Prices())
		for _, v := range values {
			key := v.Selection.Key()
			acc, ok := accs[key]
			if !ok {
				acc = &accumulator{selection: v.Selection, books: make(map[string]bool), order: len(accs)}
				accs[key] = acc
			}
			if acc.books[q.BookmakerKey] {
				continue
			}
			acc.books[q.BookmakerKey] = true
			acc.sum += v.Odds
			books[q.BookmakerKey] = true
		}
	}

	if len(accs) == 0 {
		return nil, models.NewError(models.KindInsufficientQuotes,
			fmt.Sprintf("no %s quotes for event %s", kind, eventID), nil)
	}

	ordered := make([]*accumulator, 0, len(accs))
	for _, acc := range accs {
		ordered = append(ordered, acc)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.selection.HasLine() && b.selection.HasLine() && a.selection.LineValue() != b.selection.LineValue() {
			return a.selection.LineValue() < b.selection.LineValue()
		}
		return a.order < b.order
	})

	result := &models.ConsensusOdds{
		EventID:    eventID,
		MarketKind: kind,
		Prices:     make([]models.ConsensusPrice, 0, len(ordered)),
		Bookmakers: len(books),
	}
	for _, acc := range ordered {
		avg := acc.sum / float64(len(acc.books))
		odds := avg
		if e.method == MethodNoVig {
			odds = 1 / avg
		}
		result.Prices = append(result.Prices, models.ConsensusPrice{
			Selection:    acc.selection,
			Odds:         odds,
			Contributors: len(acc.books),
		})
	}

	e.logger.Debug().
		Str("event_id", eventID).
		Str("market", string(kind)).
		Str("method", string(e.method)).
		Int("bookmakers", result.Bookmakers).
		Int("selections", len(result.Prices)).
		Msg("computed consensus")

	return result, nil
}

// values returns what gets averaged per selection: the decimal price for the
// mean method, the fair probability for the no-vig method
func (e *Engine) values(kind models.MarketKind, prices []models.Price) []models.Price {
	if e.method != MethodNoVig {
		return prices
	}

	fair := make(map[string]float64, len(prices))
	byKey := make(map[string]float64, len(prices))
	sels := make([]models.Selection, 0, len(prices))
	for _, p := range prices {
		byKey[p.Selection.Key()] = p.Odds
		sels = append(sels, p.Selection)
	}

	for _, group := range models.ExclusiveGroups(kind, sels) {
		probs := make([]float64, len(group))
		for i, s := range group {
			probs[i] = 1 / byKey[s.Key()]
		}
		normalized := RemoveVig(probs)
		for i, s := range group {
			fair[s.Key()] = normalized[i]
		}
	}

	out := make([]models.Price, 0, len(prices))
	for _, p := range prices {
		prob, ok := fair[p.Selection.Key()]
		if !ok {
			// outside any exhaustive group, keep the raw implied probability
			prob = 1 / p.Odds
		}
		out = append(out, models.Price{Selection: p.Selection, Odds: prob})
	}
	return out
}

// RemoveVig scales implied probabilities proportionally so they sum to one
func RemoveVig(probs []float64) []float64 {
	total := 0.0
	for _, p := range probs {
		total += p
	}
	out := make([]float64, len(probs))
	if total <= 0 {
		return out
	}
	for i, p := range probs {
		out[i] = p / total
	}
	return out
}

package detector

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

const (
	DefaultMinEV          = 2.0
	DefaultValueBetLimit  = 10
	DefaultMinProfit      = 1.0
	DefaultArbitrageLimit = 5
	MaxLimit              = 50
)

// DefaultTotalStake is the stake used when a caller does not supply one
var DefaultTotalStake = decimal.NewFromInt(100)

type scoredBet struct {
	candidate models.ValueBetCandidate
	ev        float64
}

// ValueBets scores every bookmaker price against the consensus and returns
// the qualifying candidates, best first. The threshold is applied to the
// unrounded expected value.
func ValueBets(quotes []models.MarketQuote, consensus *models.ConsensusOdds, params models.ValueBetParams) []models.ValueBetCandidate {
	if consensus == nil || len(quotes) == 0 || !finite(params.MinEV) {
		return []models.ValueBetCandidate{}
	}
	minContributors := max(params.MinContributors, 2)
	computedAt := latestObservation(quotes)

	var scored []scoredBet
	for _, q := range quotes {
		if q.MarketKind != consensus.MarketKind {
			continue
		}
		for _, price := range q.Payload.Prices() {
			ref, ok := consensus.Lookup(price.Selection)
			if !ok || ref.Contributors < minContributors || ref.Odds <= 0 {
				continue
			}
			ev := ExpectedValuePct(price.Odds, ref.Odds)
			if !finite(ev) || ev < params.MinEV {
				continue
			}
			scored = append(scored, scoredBet{
				ev: ev,
				candidate: models.ValueBetCandidate{
					EventID:          q.EventID,
					BookmakerKey:     q.BookmakerKey,
					MarketKind:       q.MarketKind,
					BetSide:          price.Selection,
					ExpectedValuePct: round(ev, 2),
					BookmakerOdds:    price.Odds,
					ConsensusOdds:    round(ref.Odds, 4),
					Contributors:     ref.Contributors,
					DirectLink:       q.DirectLink,
					ObservedAt:       q.ObservedAt,
					ComputedAt:       computedAt,
				},
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.ev != b.ev {
			return a.ev > b.ev
		}
		if !a.candidate.ObservedAt.Equal(b.candidate.ObservedAt) {
			return a.candidate.ObservedAt.After(b.candidate.ObservedAt)
		}
		if a.candidate.BookmakerKey != b.candidate.BookmakerKey {
			return a.candidate.BookmakerKey < b.candidate.BookmakerKey
		}
		return a.candidate.BetSide.Key() < b.candidate.BetSide.Key()
	})

	limit := ClampLimit(params.Limit, DefaultValueBetLimit)
	out := make([]models.ValueBetCandidate, 0, min(len(scored), limit))
	for i := 0; i < len(scored) && i < limit; i++ {
		out = append(out, scored[i].candidate)
	}
	return out
}

// ExpectedValuePct returns (bookmaker/consensus - 1) * 100
func ExpectedValuePct(bookmakerOdds, consensusOdds float64) float64 {
	return (bookmakerOdds/consensusOdds - 1) * 100
}

// ClampLimit applies the default for non-positive limits and caps at MaxLimit
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func latestObservation(quotes []models.MarketQuote) time.Time {
	var latest time.Time
	for _, q := range quotes {
		if q.ObservedAt.After(latest) {
			latest = q.ObservedAt
		}
	}
	return latest
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

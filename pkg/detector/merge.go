package detector

import (
	"sort"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// MergeValueBets combines per-event results into one ranking: expected value
// desc, then most recent observation, then bookmaker key
func MergeValueBets(lists [][]models.ValueBetCandidate, limit int) []models.ValueBetCandidate {
	out := make([]models.ValueBetCandidate, 0)
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ExpectedValuePct != b.ExpectedValuePct {
			return a.ExpectedValuePct > b.ExpectedValuePct
		}
		if !a.ObservedAt.Equal(b.ObservedAt) {
			return a.ObservedAt.After(b.ObservedAt)
		}
		return a.BookmakerKey < b.BookmakerKey
	})
	if limit = ClampLimit(limit, DefaultValueBetLimit); len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MergeArbitrage combines per-event results by margin desc
func MergeArbitrage(lists [][]models.ArbitrageOpportunity, limit int) []models.ArbitrageOpportunity {
	out := make([]models.ArbitrageOpportunity, 0)
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitMarginPct > out[j].ProfitMarginPct
	})
	if limit = ClampLimit(limit, DefaultArbitrageLimit); len(out) > limit {
		out = out[:limit]
	}
	return out
}

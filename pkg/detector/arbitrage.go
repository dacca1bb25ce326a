package detector

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

type bestPrice struct {
	leg   models.ArbitrageLeg
	quote models.MarketQuote
}

// Arbitrage combines the best price of every outcome in each exclusive group
// across bookmakers and returns the combinations whose implied probabilities
// sum below 100% by at least MinProfit points, best margin first. Correct
// score legs only combine bookmakers that list the same scores, so Other
// covers the same residual in every leg.
func Arbitrage(quotes []models.MarketQuote, kind models.MarketKind, params models.ArbitrageParams) []models.ArbitrageOpportunity {
	if !finite(params.MinProfit) {
		return []models.ArbitrageOpportunity{}
	}
	totalStake := params.TotalStake
	if totalStake.LessThanOrEqual(decimal.Zero) {
		totalStake = DefaultTotalStake
	}
	computedAt := latestObservation(quotes)

	var found []models.ArbitrageOpportunity
	if kind == models.MarketCorrectScore {
		for _, part := range byScoreList(quotes) {
			found = append(found, combine(part, kind, params.MinProfit, totalStake, computedAt)...)
		}
	} else {
		found = combine(quotes, kind, params.MinProfit, totalStake, computedAt)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].ProfitMarginPct > found[j].ProfitMarginPct
	})

	limit := ClampLimit(params.Limit, DefaultArbitrageLimit)
	if len(found) > limit {
		found = found[:limit]
	}
	if found == nil {
		found = []models.ArbitrageOpportunity{}
	}
	return found
}

func combine(quotes []models.MarketQuote, kind models.MarketKind, minProfit float64, totalStake decimal.Decimal, computedAt time.Time) []models.ArbitrageOpportunity {
	best := make(map[string]bestPrice)
	var selections []models.Selection
	eventID := ""

	for _, q := range quotes {
		if q.MarketKind != kind {
			continue
		}
		eventID = q.EventID
		for _, price := range q.Payload.Prices() {
			key := price.Selection.Key()
			current, ok := best[key]
			if !ok {
				selections = append(selections, price.Selection)
			}
			if !ok || better(price.Odds, q, current) {
				best[key] = bestPrice{
					leg: models.ArbitrageLeg{
						Selection:    price.Selection,
						BookmakerKey: q.BookmakerKey,
						Odds:         price.Odds,
						DirectLink:   q.DirectLink,
					},
					quote: q,
				}
			}
		}
	}

	var found []models.ArbitrageOpportunity
	for _, group := range models.ExclusiveGroups(kind, selections) {
		legs := make([]models.ArbitrageLeg, 0, len(group))
		for _, sel := range group {
			b, ok := best[sel.Key()]
			if !ok {
				legs = nil
				break
			}
			legs = append(legs, b.leg)
		}
		if len(legs) < 2 {
			continue
		}

		odds := make([]float64, len(legs))
		for i, l := range legs {
			odds[i] = l.Odds
		}
		implied := ImpliedProbabilityPct(odds)
		margin := 100 - implied
		if implied >= 100 || margin < minProfit {
			continue
		}

		opp := models.ArbitrageOpportunity{
			EventID:               eventID,
			MarketKind:            kind,
			Legs:                  legs,
			ImpliedProbabilityPct: round(implied, 2),
			ProfitMarginPct:       round(margin, 2),
			TotalStake:            totalStake,
			OptimalStakes:         OptimalStakes(legs, totalStake),
			ComputedAt:            computedAt,
		}
		if group[0].Line != nil {
			line := *group[0].Line
			opp.Line = &line
		}
		found = append(found, opp)
	}
	return found
}

// byScoreList partitions correct score quotes by their listed scores, in
// first-seen order
func byScoreList(quotes []models.MarketQuote) [][]models.MarketQuote {
	index := make(map[string]int)
	var parts [][]models.MarketQuote
	for _, q := range quotes {
		if q.MarketKind != models.MarketCorrectScore {
			continue
		}
		prices := q.Payload.Prices()
		keys := make([]string, 0, len(prices))
		for _, p := range prices {
			keys = append(keys, p.Selection.Key())
		}
		sort.Strings(keys)
		sig := strings.Join(keys, ",")

		i, ok := index[sig]
		if !ok {
			i = len(parts)
			index[sig] = i
			parts = append(parts, nil)
		}
		parts[i] = append(parts[i], q)
	}
	return parts
}

// better reports whether odds from q beat the current best: higher price,
// then the more recent observation, then the lower bookmaker key
func better(odds float64, q models.MarketQuote, current bestPrice) bool {
	if odds != current.leg.Odds {
		return odds > current.leg.Odds
	}
	if !q.ObservedAt.Equal(current.quote.ObservedAt) {
		return q.ObservedAt.After(current.quote.ObservedAt)
	}
	return q.BookmakerKey < current.leg.BookmakerKey
}

// ImpliedProbabilityPct returns the sum of 1/odds as a percentage
func ImpliedProbabilityPct(odds []float64) float64 {
	sum := 0.0
	for _, o := range odds {
		sum += 1 / o
	}
	return sum * 100
}

// OptimalStakes splits total so every leg returns the same amount. Stakes are
// rounded to 4 places and the last leg takes the remainder so they add up to
// total exactly.
func OptimalStakes(legs []models.ArbitrageLeg, total decimal.Decimal) []models.OptimalStake {
	one := decimal.NewFromInt(1)
	inverses := make([]decimal.Decimal, len(legs))
	sum := decimal.Zero
	for i, l := range legs {
		inverses[i] = one.Div(decimal.NewFromFloat(l.Odds))
		sum = sum.Add(inverses[i])
	}

	stakes := make([]models.OptimalStake, len(legs))
	allocated := decimal.Zero
	for i, l := range legs {
		var stake decimal.Decimal
		if i == len(legs)-1 {
			stake = total.Sub(allocated)
		} else {
			stake = total.Mul(inverses[i]).Div(sum).Round(4)
			allocated = allocated.Add(stake)
		}
		stakes[i] = models.OptimalStake{
			Selection:       l.Selection,
			BookmakerKey:    l.BookmakerKey,
			Stake:           stake,
			PotentialReturn: stake.Mul(decimal.NewFromFloat(l.Odds)).Round(2),
		}
	}
	return stakes
}

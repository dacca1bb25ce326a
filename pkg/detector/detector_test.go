package detector

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/pkg/consensus"
)

var observed = time.Date(2026, 1, 13, 20, 0, 0, 0, time.UTC)

func mlQuote(book string, home, draw, away float64, at time.Time) models.MarketQuote {
	return models.MarketQuote{
		EventID:      "e1",
		BookmakerKey: book,
		MarketKind:   models.MarketMatchLine,
		Payload:      models.Payload{MatchLine: &models.MatchLineOdds{Home: home, Draw: draw, Away: away}},
		ObservedAt:   at,
	}
}

func ahQuote(book string, hdp, home, away float64) models.MarketQuote {
	return models.MarketQuote{
		EventID:      "e1",
		BookmakerKey: book,
		MarketKind:   models.MarketAsianHandicap,
		Payload:      models.Payload{AsianHandicap: []models.HandicapLine{{Hdp: hdp, Home: home, Away: away}}},
		ObservedAt:   observed,
	}
}

func computeConsensus(t *testing.T, kind models.MarketKind, quotes []models.MarketQuote) *models.ConsensusOdds {
	t.Helper()
	c, err := consensus.NewEngine(consensus.MethodMean, zerolog.Nop()).Compute("e1", kind, quotes)
	require.NoError(t, err)
	return c
}

// TestValueBets_Threshold tests qualification at and above the minimum EV
func TestValueBets_Threshold(t *testing.T) {
	quotes := []models.MarketQuote{
		mlQuote("bet365", 2.10, 3.40, 3.50, observed),
		mlQuote("betano", 1.95, 3.40, 3.50, observed),
	}
	c := computeConsensus(t, models.MarketMatchLine, quotes)

	bets := ValueBets(quotes, c, models.ValueBetParams{MinEV: 2.0})
	require.Len(t, bets, 1)
	assert.Equal(t, "bet365", bets[0].BookmakerKey)
	assert.Equal(t, models.OutcomeHome, bets[0].BetSide.Outcome)
	assert.Equal(t, 3.70, bets[0].ExpectedValuePct)
	assert.Equal(t, 2.10, bets[0].BookmakerOdds)
	assert.InDelta(t, 2.025, bets[0].ConsensusOdds, 1e-9)
	assert.Equal(t, 2, bets[0].Contributors)
	assert.Equal(t, observed, bets[0].ComputedAt)

	assert.Empty(t, ValueBets(quotes, c, models.ValueBetParams{MinEV: 5.0}))
}

// TestValueBets_SingleSourceExcluded tests that one contributor never qualifies
func TestValueBets_SingleSourceExcluded(t *testing.T) {
	quotes := []models.MarketQuote{mlQuote("bet365", 2.10, 3.40, 3.50, observed)}
	c := computeConsensus(t, models.MarketMatchLine, quotes)

	// every price equals its own consensus so EV is zero
	assert.Empty(t, ValueBets(quotes, c, models.ValueBetParams{MinEV: -100}))
}

// TestValueBets_Ordering tests EV ordering, recency tie-break and the limit
func TestValueBets_Ordering(t *testing.T) {
	later := observed.Add(time.Minute)
	quotes := []models.MarketQuote{
		mlQuote("alpha", 2.20, 3.60, 3.00, observed),
		mlQuote("beta", 2.20, 3.00, 3.00, later),
		mlQuote("gamma", 1.60, 3.00, 3.00, observed),
	}
	c := computeConsensus(t, models.MarketMatchLine, quotes)

	bets := ValueBets(quotes, c, models.ValueBetParams{MinEV: 2.0})

	require.Len(t, bets, 3)
	// draw consensus 3.2, alpha draw EV 12.5
	assert.Equal(t, "alpha", bets[0].BookmakerKey)
	assert.Equal(t, models.OutcomeDraw, bets[0].BetSide.Outcome)
	// home consensus 2.0, both EV 10; beta observed later
	assert.Equal(t, "beta", bets[1].BookmakerKey)
	assert.Equal(t, "alpha", bets[2].BookmakerKey)
	assert.Equal(t, later, bets[0].ComputedAt)

	limited := ValueBets(quotes, c, models.ValueBetParams{MinEV: 2.0, Limit: 1})
	assert.Len(t, limited, 1)
}

// TestClampLimit tests limit defaults and the ceiling
func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultValueBetLimit, ClampLimit(0, DefaultValueBetLimit))
	assert.Equal(t, 7, ClampLimit(7, DefaultValueBetLimit))
	assert.Equal(t, MaxLimit, ClampLimit(500, DefaultValueBetLimit))
}

// TestArbitrage_TwoLeg tests implied probability, margin and stake split
func TestArbitrage_TwoLeg(t *testing.T) {
	quotes := []models.MarketQuote{
		ahQuote("booka", -0.5, 2.15, 1.70),
		ahQuote("bookb", -0.5, 1.75, 2.20),
	}

	opps := Arbitrage(quotes, models.MarketAsianHandicap, models.ArbitrageParams{MinProfit: 1.0})

	require.Len(t, opps, 1)
	opp := opps[0]
	require.NotNil(t, opp.Line)
	assert.Equal(t, -0.5, *opp.Line)
	assert.Equal(t, 91.97, opp.ImpliedProbabilityPct)
	assert.Equal(t, 8.03, opp.ProfitMarginPct)
	assert.True(t, opp.TotalStake.Equal(decimal.NewFromInt(100)))

	require.Len(t, opp.Legs, 2)
	assert.Equal(t, "booka", opp.Legs[0].BookmakerKey)
	assert.Equal(t, "bookb", opp.Legs[1].BookmakerKey)

	require.Len(t, opp.OptimalStakes, 2)
	assert.Equal(t, "50.5747", opp.OptimalStakes[0].Stake.String())
	assert.Equal(t, "49.4253", opp.OptimalStakes[1].Stake.String())
	assert.True(t, opp.OptimalStakes[0].Stake.Add(opp.OptimalStakes[1].Stake).Equal(decimal.NewFromInt(100)))

	diff := opp.OptimalStakes[0].PotentialReturn.Sub(opp.OptimalStakes[1].PotentialReturn).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.01)), "returns differ by %s", diff)
	assert.Equal(t, "108.74", opp.OptimalStakes[0].PotentialReturn.String())
}

// TestArbitrage_ThreeWay tests a match-line combination across three bookmakers
func TestArbitrage_ThreeWay(t *testing.T) {
	quotes := []models.MarketQuote{
		mlQuote("booka", 2.60, 3.20, 2.80, observed),
		mlQuote("bookb", 2.30, 3.90, 2.90, observed),
		mlQuote("bookc", 2.40, 3.30, 3.60, observed),
	}

	opps := Arbitrage(quotes, models.MarketMatchLine, models.ArbitrageParams{MinProfit: 1.0, TotalStake: decimal.NewFromInt(250)})

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.Nil(t, opp.Line)
	assert.Equal(t, 91.88, opp.ImpliedProbabilityPct)
	assert.Equal(t, 8.12, opp.ProfitMarginPct)

	total := decimal.Zero
	for _, s := range opp.OptimalStakes {
		total = total.Add(s.Stake)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(250)))

	first := opp.OptimalStakes[0].PotentialReturn
	for _, s := range opp.OptimalStakes[1:] {
		assert.True(t, first.Sub(s.PotentialReturn).Abs().LessThanOrEqual(decimal.NewFromFloat(0.01)))
	}
}

// TestArbitrage_NoOpportunity tests a normal over-round market
func TestArbitrage_NoOpportunity(t *testing.T) {
	quotes := []models.MarketQuote{
		mlQuote("booka", 2.10, 3.40, 3.50, observed),
		mlQuote("bookb", 2.05, 3.30, 3.60, observed),
	}

	opps := Arbitrage(quotes, models.MarketMatchLine, models.ArbitrageParams{MinProfit: 1.0})

	assert.NotNil(t, opps)
	assert.Empty(t, opps)
}

// TestArbitrage_MinProfit tests the margin threshold
func TestArbitrage_MinProfit(t *testing.T) {
	quotes := []models.MarketQuote{
		ahQuote("booka", 0, 2.15, 1.70),
		ahQuote("bookb", 0, 1.75, 2.20),
	}

	assert.Empty(t, Arbitrage(quotes, models.MarketAsianHandicap, models.ArbitrageParams{MinProfit: 9.0}))
}

// TestArbitrage_CorrectScoreNeedsOther tests that a non-exhaustive score list is skipped
func TestArbitrage_CorrectScoreNeedsOther(t *testing.T) {
	quote := func(book string, scores ...models.ScoreOdds) models.MarketQuote {
		return models.MarketQuote{
			EventID:      "e1",
			BookmakerKey: book,
			MarketKind:   models.MarketCorrectScore,
			Payload:      models.Payload{CorrectScore: scores},
		}
	}
	// implied well under 100% but "Other" is missing
	quotes := []models.MarketQuote{
		quote("booka", models.ScoreOdds{Score: "1-0", Odds: 7}, models.ScoreOdds{Score: "0-0", Odds: 9}),
	}
	assert.Empty(t, Arbitrage(quotes, models.MarketCorrectScore, models.ArbitrageParams{MinProfit: 1.0}))

	// another bookmaker's Other does not complete a different score list
	quotes = append(quotes, quote("bookb", models.ScoreOdds{Score: models.ScoreOther, Odds: 1.5}))
	assert.Empty(t, Arbitrage(quotes, models.MarketCorrectScore, models.ArbitrageParams{MinProfit: 1.0}))
}

// TestArbitrage_CorrectScoreSameScoreList tests that only bookmakers listing
// the same scores are combined
func TestArbitrage_CorrectScoreSameScoreList(t *testing.T) {
	quote := func(book string, scores ...models.ScoreOdds) models.MarketQuote {
		return models.MarketQuote{
			EventID:      "e1",
			BookmakerKey: book,
			MarketKind:   models.MarketCorrectScore,
			Payload:      models.Payload{CorrectScore: scores},
		}
	}
	quotes := []models.MarketQuote{
		quote("booka", models.ScoreOdds{Score: "1-0", Odds: 7}, models.ScoreOdds{Score: "0-0", Odds: 9}, models.ScoreOdds{Score: models.ScoreOther, Odds: 1.5}),
		quote("bookb", models.ScoreOdds{Score: "1-0", Odds: 8}, models.ScoreOdds{Score: "0-0", Odds: 8}, models.ScoreOdds{Score: models.ScoreOther, Odds: 1.4}),
		// Other here also covers 0-0, so its 1-0 price must not join the lists above
		quote("bookc", models.ScoreOdds{Score: "1-0", Odds: 20}, models.ScoreOdds{Score: models.ScoreOther, Odds: 1.05}),
	}

	opps := Arbitrage(quotes, models.MarketCorrectScore, models.ArbitrageParams{MinProfit: 1.0})

	require.Len(t, opps, 1)
	opp := opps[0]
	require.Len(t, opp.Legs, 3)
	assert.Equal(t, 90.28, opp.ImpliedProbabilityPct)
	assert.Equal(t, 9.72, opp.ProfitMarginPct)
	for _, leg := range opp.Legs {
		assert.NotEqual(t, "bookc", leg.BookmakerKey)
		if leg.Selection.Outcome == "1-0" {
			assert.Equal(t, "bookb", leg.BookmakerKey)
			assert.Equal(t, 8.0, leg.Odds)
		}
	}
}

// TestDetectors_NonFiniteThreshold tests that NaN and infinite thresholds qualify nothing
func TestDetectors_NonFiniteThreshold(t *testing.T) {
	quotes := []models.MarketQuote{
		mlQuote("bet365", 2.10, 3.40, 3.50, observed),
		mlQuote("betano", 1.95, 3.40, 3.50, observed),
	}
	c := computeConsensus(t, models.MarketMatchLine, quotes)
	assert.Empty(t, ValueBets(quotes, c, models.ValueBetParams{MinEV: math.NaN()}))
	assert.Empty(t, ValueBets(quotes, c, models.ValueBetParams{MinEV: math.Inf(1)}))
	assert.Empty(t, ValueBets(quotes, c, models.ValueBetParams{MinEV: math.Inf(-1)}))

	arb := []models.MarketQuote{
		ahQuote("booka", 0, 2.15, 1.70),
		ahQuote("bookb", 0, 1.75, 2.20),
	}
	require.NotEmpty(t, Arbitrage(arb, models.MarketAsianHandicap, models.ArbitrageParams{MinProfit: 1.0}))
	assert.Empty(t, Arbitrage(arb, models.MarketAsianHandicap, models.ArbitrageParams{MinProfit: math.NaN()}))
	assert.Empty(t, Arbitrage(arb, models.MarketAsianHandicap, models.ArbitrageParams{MinProfit: math.Inf(-1)}))
}

// TestArbitrage_DoubleChanceNeverQualifies tests that overlapping outcomes are not combined
func TestArbitrage_DoubleChanceNeverQualifies(t *testing.T) {
	quotes := []models.MarketQuote{{
		EventID:      "e1",
		BookmakerKey: "booka",
		MarketKind:   models.MarketDoubleChance,
		Payload:      models.Payload{DoubleChance: &models.DoubleChanceOdds{HomeDraw: 5, DrawAway: 5, HomeAway: 5}},
	}}

	assert.Empty(t, Arbitrage(quotes, models.MarketDoubleChance, models.ArbitrageParams{MinProfit: 1.0}))
}

// TestMergeValueBets tests ranking across events
func TestMergeValueBets(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	lists := [][]models.ValueBetCandidate{
		{{EventID: "1", BookmakerKey: "bet365", ExpectedValuePct: 3.5, ObservedAt: now}},
		{
			{EventID: "2", BookmakerKey: "betano", ExpectedValuePct: 5.0, ObservedAt: now},
			{EventID: "2", BookmakerKey: "betfair", ExpectedValuePct: 3.5, ObservedAt: now.Add(time.Minute)},
		},
	}

	got := MergeValueBets(lists, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].EventID)
	assert.Equal(t, "betfair", got[1].BookmakerKey, "newer observation wins the tie")
	assert.NotNil(t, MergeValueBets(nil, 0))
}

// TestMergeArbitrage tests ranking and the cap across events
func TestMergeArbitrage(t *testing.T) {
	lists := [][]models.ArbitrageOpportunity{
		{{EventID: "1", ProfitMarginPct: 1.5}},
		{{EventID: "2", ProfitMarginPct: 4.2}, {EventID: "2", ProfitMarginPct: 2.0}},
	}

	got := MergeArbitrage(lists, 0)

	require.Len(t, got, 3)
	assert.Equal(t, 4.2, got[0].ProfitMarginPct)
	assert.Equal(t, 1.5, got[2].ProfitMarginPct)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsensusPrice is the aggregated price of one selection
type ConsensusPrice struct {
	Selection    Selection `json:"selection"`
	Odds         float64   `json:"odds"`
	Contributors int       `json:"contributors"`
}

// ConsensusOdds is the reference price set for one event and market. It is
// derived on every call and never stored.
type ConsensusOdds struct {
	EventID    string           `json:"event_id"`
	MarketKind MarketKind       `json:"market_kind"`
	Prices     []ConsensusPrice `json:"prices"`
	Bookmakers int              `json:"bookmakers"`
}

// Lookup returns the consensus price for a selection
func (c ConsensusOdds) Lookup(sel Selection) (ConsensusPrice, bool) {
	key := sel.Key()
	for _, p := range c.Prices {
		if p.Selection.Key() == key {
			return p, true
		}
	}
	return ConsensusPrice{}, false
}

// ValueBetCandidate is a bookmaker price judged favourable against consensus
type ValueBetCandidate struct {
	EventID          string     `json:"event_id"`
	BookmakerKey     string     `json:"bookmaker_key"`
	MarketKind       MarketKind `json:"market_kind"`
	BetSide          Selection  `json:"bet_side"`
	ExpectedValuePct float64    `json:"expected_value_pct"`
	BookmakerOdds    float64    `json:"bookmaker_odds"`
	ConsensusOdds    float64    `json:"consensus_odds"`
	Contributors     int        `json:"contributors"`
	DirectLink       string     `json:"direct_link,omitempty"`
	ObservedAt       time.Time  `json:"observed_at"`
	ComputedAt       time.Time  `json:"computed_at"`
}

// ValueBetParams configures value bet detection
type ValueBetParams struct {
	MinEV           float64 // percent, e.g. 2.0
	MinContributors int     // consensus contributors required, at least 2
	Limit           int
}

// ArbitrageLeg is one outcome of an arbitrage combination
type ArbitrageLeg struct {
	Selection    Selection `json:"selection"`
	BookmakerKey string    `json:"bookmaker_key"`
	Odds         float64   `json:"odds"`
	DirectLink   string    `json:"direct_link,omitempty"`
}

// OptimalStake is the stake and return of one leg for a given total stake
type OptimalStake struct {
	Selection       Selection       `json:"selection"`
	BookmakerKey    string          `json:"bookmaker_key"`
	Stake           decimal.Decimal `json:"stake"`
	PotentialReturn decimal.Decimal `json:"potential_return"`
}

// ArbitrageOpportunity is a set of best prices across bookmakers whose implied
// probabilities sum below 100%
type ArbitrageOpportunity struct {
	EventID               string          `json:"event_id"`
	MarketKind            MarketKind      `json:"market_kind"`
	Line                  *float64        `json:"line,omitempty"`
	Legs                  []ArbitrageLeg  `json:"legs"`
	ImpliedProbabilityPct float64         `json:"implied_probability_pct"`
	ProfitMarginPct       float64         `json:"profit_margin_pct"`
	TotalStake            decimal.Decimal `json:"total_stake"`
	OptimalStakes         []OptimalStake  `json:"optimal_stakes"`
	ComputedAt            time.Time       `json:"computed_at"`
}

// ValueBetsResult is the value-bets response body and artifact payload
type ValueBetsResult struct {
	Count     int                 `json:"count"`
	ValueBets []ValueBetCandidate `json:"value_bets"`
}

// NewValueBetsResult wraps bets. A nil slice is encoded as [].
func NewValueBetsResult(bets []ValueBetCandidate) ValueBetsResult {
	if bets == nil {
		bets = []ValueBetCandidate{}
	}
	return ValueBetsResult{Count: len(bets), ValueBets: bets}
}

// ArbitrageResult is the arbitrage response body and artifact payload
type ArbitrageResult struct {
	Count     int                    `json:"count"`
	Arbitrage []ArbitrageOpportunity `json:"arbitrage"`
}

// NewArbitrageResult wraps opps. A nil slice is encoded as [].
func NewArbitrageResult(opps []ArbitrageOpportunity) ArbitrageResult {
	if opps == nil {
		opps = []ArbitrageOpportunity{}
	}
	return ArbitrageResult{Count: len(opps), Arbitrage: opps}
}

// ArbitrageParams configures arbitrage detection
type ArbitrageParams struct {
	MinProfit  float64 // percent, e.g. 1.0
	TotalStake decimal.Decimal
	Limit      int
}

// MovementRecord is one observed quote change
type MovementRecord struct {
	EventID      string     `json:"event_id"`
	BookmakerKey string     `json:"bookmaker_key"`
	MarketKind   MarketKind `json:"market_kind"`
	Snapshot     Payload    `json:"snapshot"`
	ObservedAt   time.Time  `json:"observed_at"`
}

// MovementKey identifies one movement log
type MovementKey struct {
	EventID      string
	BookmakerKey string
	MarketKind   MarketKind
}

// Key returns the key of the log the record belongs to
func (r MovementRecord) Key() MovementKey {
	return MovementKey{EventID: r.EventID, BookmakerKey: r.BookmakerKey, MarketKind: r.MarketKind}
}

// MovementHistory is the movements read model
type MovementHistory struct {
	EventID      string           `json:"event_id"`
	BookmakerKey string           `json:"bookmaker_key"`
	MarketKind   MarketKind       `json:"market_kind"`
	Opening      *MovementRecord  `json:"opening,omitempty"`
	Latest       *MovementRecord  `json:"latest,omitempty"`
	Movements    []MovementRecord `json:"movements"`
}

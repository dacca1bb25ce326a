package models

import (
	"fmt"
	"time"
)

// MatchLineOdds is the 1x2 payload
type MatchLineOdds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// HandicapLine is one asian handicap line
type HandicapLine struct {
	Hdp  float64 `json:"hdp"`
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

// TotalsLine is one over/under line
type TotalsLine struct {
	Line  float64 `json:"line"`
	Over  float64 `json:"over"`
	Under float64 `json:"under"`
}

// BTTSOdds is the both-teams-to-score payload
type BTTSOdds struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

// ScoreOdds is one correct-score entry
type ScoreOdds struct {
	Score string  `json:"score"`
	Odds  float64 `json:"odds"`
}

// DoubleChanceOdds is the double-chance payload
type DoubleChanceOdds struct {
	HomeDraw float64 `json:"1X"`
	DrawAway float64 `json:"X2"`
	HomeAway float64 `json:"12"`
}

// Payload holds the market specific prices of a quote. Exactly one member is
// set and it matches the quote's MarketKind.
type Payload struct {
	MatchLine     *MatchLineOdds    `json:"match_line,omitempty"`
	AsianHandicap []HandicapLine    `json:"asian_handicap,omitempty"`
	Totals        []TotalsLine      `json:"totals,omitempty"`
	BTTS          *BTTSOdds         `json:"btts,omitempty"`
	CorrectScore  []ScoreOdds       `json:"correct_score,omitempty"`
	DoubleChance  *DoubleChanceOdds `json:"double_chance,omitempty"`
}

// Prices flattens the payload into one price per selection
func (p Payload) Prices() []Price {
	var prices []Price
	if p.MatchLine != nil {
		prices = append(prices,
			Price{Selection: NewSelection(OutcomeHome), Odds: p.MatchLine.Home},
			Price{Selection: NewSelection(OutcomeDraw), Odds: p.MatchLine.Draw},
			Price{Selection: NewSelection(OutcomeAway), Odds: p.MatchLine.Away},
		)
	}
	for _, l := range p.AsianHandicap {
		prices = append(prices,
			Price{Selection: NewLineSelection(OutcomeHome, l.Hdp), Odds: l.Home},
			Price{Selection: NewLineSelection(OutcomeAway, l.Hdp), Odds: l.Away},
		)
	}
	for _, l := range p.Totals {
		prices = append(prices,
			Price{Selection: NewLineSelection(OutcomeOver, l.Line), Odds: l.Over},
			Price{Selection: NewLineSelection(OutcomeUnder, l.Line), Odds: l.Under},
		)
	}
	if p.BTTS != nil {
		prices = append(prices,
			Price{Selection: NewSelection(OutcomeYes), Odds: p.BTTS.Yes},
			Price{Selection: NewSelection(OutcomeNo), Odds: p.BTTS.No},
		)
	}
	for _, s := range p.CorrectScore {
		prices = append(prices, Price{Selection: NewSelection(s.Score), Odds: s.Odds})
	}
	if p.DoubleChance != nil {
		prices = append(prices,
			Price{Selection: NewSelection(OutcomeHomeDraw), Odds: p.DoubleChance.HomeDraw},
			Price{Selection: NewSelection(OutcomeDrawAway), Odds: p.DoubleChance.DrawAway},
			Price{Selection: NewSelection(OutcomeHomeAway), Odds: p.DoubleChance.HomeAway},
		)
	}
	return prices
}

// Validate checks that exactly the member for kind is set and every price is
// a usable decimal price
func (p Payload) Validate(kind MarketKind) error {
	set := 0
	matches := false
	check := func(present bool, k MarketKind) {
		if present {
			set++
			if k == kind {
				matches = true
			}
		}
	}
	check(p.MatchLine != nil, MarketMatchLine)
	check(len(p.AsianHandicap) > 0, MarketAsianHandicap)
	check(len(p.Totals) > 0, MarketTotals)
	check(p.BTTS != nil, MarketBTTS)
	check(len(p.CorrectScore) > 0, MarketCorrectScore)
	check(p.DoubleChance != nil, MarketDoubleChance)

	if set != 1 || !matches {
		return NewError(KindMalformedQuote, fmt.Sprintf("payload does not match market %s", kind), nil)
	}
	for _, price := range p.Prices() {
		if price.Odds <= 1 {
			return NewError(KindMalformedQuote, fmt.Sprintf("invalid price %v for %s", price.Odds, price.Selection), nil)
		}
	}
	return nil
}

// EventInfo describes the fixture a set of quotes belongs to
type EventInfo struct {
	ID           string    `json:"id"`
	Home         string    `json:"home"`
	Away         string    `json:"away"`
	Sport        string    `json:"sport"`
	League       string    `json:"league,omitempty"`
	CommenceTime time.Time `json:"commence_time"`
	Ended        bool      `json:"ended"`
}

// MarketQuote is one bookmaker's price for one event and market at one
// observation time. Quotes are values; a new observation is a new quote.
type MarketQuote struct {
	EventID      string     `json:"event_id"`
	BookmakerKey string     `json:"bookmaker_key"`
	Bookmaker    string     `json:"bookmaker"`
	MarketKind   MarketKind `json:"market_kind"`
	Payload      Payload    `json:"payload"`
	ObservedAt   time.Time  `json:"observed_at"`
	DirectLink   string     `json:"direct_link,omitempty"`

	// ObservedAtEstimated marks an ObservedAt taken from the fetch clock
	// because the provider sent no updatedAt
	ObservedAtEstimated bool `json:"-"`
}

// OddsSnapshot is the odds read model and the "odds" artifact payload
type OddsSnapshot struct {
	Event      EventInfo     `json:"event"`
	MarketKind MarketKind    `json:"market_kind"`
	Quotes     []MarketQuote `json:"quotes"`
}

// Event is a listed fixture from the events endpoints
type Event struct {
	ID           string    `json:"id"`
	Home         string    `json:"home"`
	Away         string    `json:"away"`
	Sport        string    `json:"sport"`
	League       string    `json:"league,omitempty"`
	LeagueSlug   string    `json:"league_slug,omitempty"`
	Status       string    `json:"status"`
	CommenceTime time.Time `json:"commence_time"`
	HomeScore    *int      `json:"home_score,omitempty"`
	AwayScore    *int      `json:"away_score,omitempty"`
	Minute       *int      `json:"minute,omitempty"`
}

// League is a competition listed by the provider
type League struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Sport string `json:"sport,omitempty"`
}

// EventFilter narrows event listings
type EventFilter struct {
	Sport  string
	League string
	Status string
	From   string
	To     string
}

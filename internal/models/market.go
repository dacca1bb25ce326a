package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MarketKind is the canonical market identifier
type MarketKind string

const (
	MarketMatchLine     MarketKind = "match-line"
	MarketAsianHandicap MarketKind = "asian-handicap"
	MarketTotals        MarketKind = "totals"
	MarketBTTS          MarketKind = "btts"
	MarketCorrectScore  MarketKind = "correct-score"
	MarketDoubleChance  MarketKind = "double-chance"
)

// MarketKinds lists every supported kind in a stable order
var MarketKinds = []MarketKind{
	MarketMatchLine,
	MarketAsianHandicap,
	MarketTotals,
	MarketBTTS,
	MarketCorrectScore,
	MarketDoubleChance,
}

// providerMarkets maps every provider market name we understand onto a kind.
// Anything not listed here is an unsupported market.
var providerMarkets = map[string]MarketKind{
	"ML":                  MarketMatchLine,
	"1x2":                 MarketMatchLine,
	"h2h":                 MarketMatchLine,
	"Asian Handicap":      MarketAsianHandicap,
	"AH":                  MarketAsianHandicap,
	"asian_handicap":      MarketAsianHandicap,
	"Spread":              MarketAsianHandicap,
	"Totals":              MarketTotals,
	"Over/Under":          MarketTotals,
	"totals":              MarketTotals,
	"Both Teams to Score": MarketBTTS,
	"BTTS":                MarketBTTS,
	"btts":                MarketBTTS,
	"Correct Score":       MarketCorrectScore,
	"correct_score":       MarketCorrectScore,
	"Double Chance":       MarketDoubleChance,
	"double_chance":       MarketDoubleChance,
}

// requestNames is the market name sent to the provider for each kind
var requestNames = map[MarketKind]string{
	MarketMatchLine:     "ML",
	MarketAsianHandicap: "Asian Handicap",
	MarketTotals:        "Totals",
	MarketBTTS:          "Both Teams to Score",
	MarketCorrectScore:  "Correct Score",
	MarketDoubleChance:  "Double Chance",
}

// legacyNames are the API spellings accepted from callers
var legacyNames = map[string]MarketKind{
	"1x2":            MarketMatchLine,
	"ml":             MarketMatchLine,
	"asian_handicap": MarketAsianHandicap,
	"correct_score":  MarketCorrectScore,
	"double_chance":  MarketDoubleChance,
}

// ParseMarketKind parses a caller supplied market name
func ParseMarketKind(s string) (MarketKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return MarketMatchLine, nil
	}
	for _, k := range MarketKinds {
		if string(k) == name {
			return k, nil
		}
	}
	if k, ok := legacyNames[name]; ok {
		return k, nil
	}
	return "", NewError(KindUnsupportedMarket, fmt.Sprintf("unsupported market %q", s), nil)
}

// MarketKindFromProvider resolves a provider market name through the lookup table
func MarketKindFromProvider(name string) (MarketKind, error) {
	if k, ok := providerMarkets[strings.TrimSpace(name)]; ok {
		return k, nil
	}
	return "", NewError(KindUnsupportedMarket, fmt.Sprintf("unsupported provider market %q", name), nil)
}

// RequestName returns the provider market name used when querying odds
func (k MarketKind) RequestName() string {
	return requestNames[k]
}

// Valid reports whether k is one of the canonical kinds
func (k MarketKind) Valid() bool {
	_, ok := requestNames[k]
	return ok
}

// LineBased reports whether quotes of this kind are keyed by a line value
func (k MarketKind) LineBased() bool {
	return k == MarketTotals || k == MarketAsianHandicap
}

// Outcome names used in selections
const (
	OutcomeHome     = "home"
	OutcomeDraw     = "draw"
	OutcomeAway     = "away"
	OutcomeOver     = "over"
	OutcomeUnder    = "under"
	OutcomeYes      = "yes"
	OutcomeNo       = "no"
	OutcomeHomeDraw = "1X"
	OutcomeDrawAway = "X2"
	OutcomeHomeAway = "12"

	// ScoreOther is the correct-score sentinel covering every unlisted score
	ScoreOther = "Other"
)

// Selection identifies one priced outcome within a market
type Selection struct {
	Outcome string   `json:"outcome"`
	Line    *float64 `json:"line,omitempty"`
}

// NewSelection creates a selection without a line
func NewSelection(outcome string) Selection {
	return Selection{Outcome: outcome}
}

// NewLineSelection creates a selection at a line value
func NewLineSelection(outcome string, line float64) Selection {
	l := line
	return Selection{Outcome: outcome, Line: &l}
}

// Key returns a comparable key, e.g. "over@2.5"
func (s Selection) Key() string {
	if s.Line == nil {
		return s.Outcome
	}
	return s.Outcome + "@" + strconv.FormatFloat(*s.Line, 'f', -1, 64)
}

// HasLine reports whether the selection carries a line value
func (s Selection) HasLine() bool {
	return s.Line != nil
}

// LineValue returns the line or zero
func (s Selection) LineValue() float64 {
	if s.Line == nil {
		return 0
	}
	return *s.Line
}

func (s Selection) String() string {
	return s.Key()
}

// Price is a decimal price for a selection
type Price struct {
	Selection Selection `json:"selection"`
	Odds      float64   `json:"odds"`
}

// ExclusiveGroups partitions selections into sets of mutually exclusive,
// exhaustive outcomes for kind. Groups are returned in a stable order and a
// group is only emitted when every member outcome is present.
func ExclusiveGroups(kind MarketKind, selections []Selection) [][]Selection {
	present := make(map[string]Selection, len(selections))
	for _, s := range selections {
		present[s.Key()] = s
	}

	complete := func(members ...Selection) []Selection {
		for _, m := range members {
			if _, ok := present[m.Key()]; !ok {
				return nil
			}
		}
		return members
	}

	var groups [][]Selection
	switch kind {
	case MarketMatchLine:
		if g := complete(NewSelection(OutcomeHome), NewSelection(OutcomeDraw), NewSelection(OutcomeAway)); g != nil {
			groups = append(groups, g)
		}
	case MarketBTTS:
		if g := complete(NewSelection(OutcomeYes), NewSelection(OutcomeNo)); g != nil {
			groups = append(groups, g)
		}
	case MarketTotals, MarketAsianHandicap:
		first, second := OutcomeOver, OutcomeUnder
		if kind == MarketAsianHandicap {
			first, second = OutcomeHome, OutcomeAway
		}
		for _, line := range lines(selections) {
			if g := complete(NewLineSelection(first, line), NewLineSelection(second, line)); g != nil {
				groups = append(groups, g)
			}
		}
	case MarketCorrectScore:
		if _, ok := present[ScoreOther]; !ok {
			return nil
		}
		scores := make([]Selection, 0, len(present))
		for _, s := range present {
			scores = append(scores, s)
		}
		sort.Slice(scores, func(i, j int) bool { return scores[i].Outcome < scores[j].Outcome })
		groups = append(groups, scores)
	case MarketDoubleChance:
		// 1X, X2 and 12 overlap pairwise
	}
	return groups
}

func lines(selections []Selection) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, s := range selections {
		if s.Line == nil || seen[*s.Line] {
			continue
		}
		seen[*s.Line] = true
		out = append(out, *s.Line)
	}
	sort.Float64s(out)
	return out
}

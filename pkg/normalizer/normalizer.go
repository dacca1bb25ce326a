package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// QuoteError is a per-bookmaker rejection. The rest of the response is still
// normalized when one bookmaker's market is unusable.
type QuoteError struct {
	BookmakerKey string
	Market       string
	Err          error
}

func (e QuoteError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.BookmakerKey, e.Market, e.Err)
}

// Result is the outcome of normalizing one odds response
type Result struct {
	Event    models.EventInfo
	Quotes   []models.MarketQuote
	Rejected []QuoteError
}

// Normalizer converts raw provider odds responses into canonical quotes
type Normalizer struct {
	logger zerolog.Logger
}

// NewNormalizer creates a new quote normalizer
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With().Str("component", "normalizer").Logger(),
	}
}

type rawEvent struct {
	ID           json.RawMessage        `json:"id"`
	Home         string                 `json:"home"`
	Away         string                 `json:"away"`
	HomeTeam     string                 `json:"home_team"`
	AwayTeam     string                 `json:"away_team"`
	Date         string                 `json:"date"`
	CommenceTime string                 `json:"commence_time"`
	Sport        json.RawMessage        `json:"sport"`
	League       json.RawMessage        `json:"league"`
	Status       string                 `json:"status"`
	Completed    bool                   `json:"completed"`
	Bookmakers   map[string][]rawMarket `json:"bookmakers"`
}

type rawMarket struct {
	Name       string          `json:"name"`
	UpdatedAt  string          `json:"updatedAt"`
	Odds       json.RawMessage `json:"odds"`
	Href       string          `json:"href"`
	DirectLink string          `json:"directLink"`
}

type rawEntry map[string]json.RawMessage

// Normalize decodes raw and returns one quote per bookmaker quoting kind.
// fetchedAt stands in for observed_at when the provider omits updatedAt; such
// quotes are flagged ObservedAtEstimated.
func (n *Normalizer) Normalize(raw []byte, kind models.MarketKind, fetchedAt time.Time) (*Result, error) {
	if !kind.Valid() {
		return nil, models.NewError(models.KindUnsupportedMarket, fmt.Sprintf("unsupported market %q", kind), nil)
	}

	var ev rawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, models.NewError(models.KindMalformedQuote, "odds response could not be decoded", err)
	}

	result := &Result{Event: eventInfo(ev)}

	names := make([]string, 0, len(ev.Bookmakers))
	for name := range ev.Bookmakers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := models.BookmakerKey(name)
		found := false
		for _, m := range ev.Bookmakers[name] {
			mk, err := models.MarketKindFromProvider(m.Name)
			if err != nil {
				n.reject(result, key, m.Name, err)
				continue
			}
			if mk != kind || found {
				continue
			}

			payload, err := parsePayload(kind, m.Odds)
			if err == nil {
				err = payload.Validate(kind)
			}
			if err != nil {
				n.reject(result, key, m.Name, err)
				continue
			}

			observedAt, estimated := parseTime(m.UpdatedAt), false
			if observedAt.IsZero() {
				observedAt, estimated = fetchedAt.UTC(), true
			}

			link := m.DirectLink
			if link == "" {
				link = m.Href
			}
			result.Quotes = append(result.Quotes, models.MarketQuote{
				EventID:      result.Event.ID,
				BookmakerKey: key,
				Bookmaker:    name,
				MarketKind:   kind,
				Payload:      payload,
				ObservedAt:   observedAt,
				DirectLink:   link,

				ObservedAtEstimated: estimated,
			})
			found = true
		}
	}

	n.logger.Debug().
		Str("event_id", result.Event.ID).
		Str("market", string(kind)).
		Int("quotes", len(result.Quotes)).
		Int("rejected", len(result.Rejected)).
		Msg("normalized odds")

	return result, nil
}

func (n *Normalizer) reject(result *Result, bookmaker, market string, err error) {
	n.logger.Warn().
		Err(err).
		Str("event_id", result.Event.ID).
		Str("bookmaker", bookmaker).
		Str("provider_market", market).
		Msg("rejected quote")
	result.Rejected = append(result.Rejected, QuoteError{BookmakerKey: bookmaker, Market: market, Err: err})
}

// eventInfo never falls back to the clock for commence_time so that the same
// upstream body always yields the same event
func eventInfo(ev rawEvent) models.EventInfo {
	info := models.EventInfo{
		ID:     rawString(ev.ID),
		Home:   firstNonEmpty(ev.Home, ev.HomeTeam),
		Away:   firstNonEmpty(ev.Away, ev.AwayTeam),
		Sport:  nestedName(ev.Sport, "slug"),
		League: nestedName(ev.League, "name"),
		Ended:  ev.Completed || isEndedStatus(ev.Status),
	}
	if info.Sport == "" {
		info.Sport = "football"
	}
	info.CommenceTime = parseTime(firstNonEmpty(ev.Date, ev.CommenceTime))
	return info
}

func isEndedStatus(status string) bool {
	switch strings.ToLower(status) {
	case "ended", "finished", "settled", "completed":
		return true
	}
	return false
}

func parsePayload(kind models.MarketKind, raw json.RawMessage) (models.Payload, error) {
	var p models.Payload
	switch kind {
	case models.MarketMatchLine:
		e, err := firstEntry(raw)
		if err != nil {
			return p, err
		}
		var ml models.MatchLineOdds
		if ml.Home, err = e.price("home"); err != nil {
			return p, err
		}
		if ml.Draw, err = e.price("draw"); err != nil {
			return p, err
		}
		if ml.Away, err = e.price("away"); err != nil {
			return p, err
		}
		p.MatchLine = &ml

	case models.MarketAsianHandicap:
		entries, err := entryList(raw)
		if err != nil {
			return p, err
		}
		for _, e := range entries {
			var l models.HandicapLine
			if l.Hdp, err = e.number("hdp"); err != nil {
				return p, err
			}
			if l.Home, err = e.price("home"); err != nil {
				return p, err
			}
			if l.Away, err = e.price("away"); err != nil {
				return p, err
			}
			p.AsianHandicap = append(p.AsianHandicap, l)
		}
		sort.Slice(p.AsianHandicap, func(i, j int) bool { return p.AsianHandicap[i].Hdp < p.AsianHandicap[j].Hdp })

	case models.MarketTotals:
		entries, err := entryList(raw)
		if err != nil {
			return p, err
		}
		for _, e := range entries {
			var l models.TotalsLine
			if l.Line, err = e.number("line", "hdp"); err != nil {
				return p, err
			}
			if l.Over, err = e.price("over"); err != nil {
				return p, err
			}
			if l.Under, err = e.price("under"); err != nil {
				return p, err
			}
			p.Totals = append(p.Totals, l)
		}
		sort.Slice(p.Totals, func(i, j int) bool { return p.Totals[i].Line < p.Totals[j].Line })

	case models.MarketBTTS:
		e, err := firstEntry(raw)
		if err != nil {
			return p, err
		}
		var b models.BTTSOdds
		if b.Yes, err = e.price("yes"); err != nil {
			return p, err
		}
		if b.No, err = e.price("no"); err != nil {
			return p, err
		}
		p.BTTS = &b

	case models.MarketCorrectScore:
		entries, err := entryList(raw)
		if err != nil {
			return p, err
		}
		for _, e := range entries {
			score := rawString(e["score"])
			if score == "" {
				return p, malformed("score entry without score")
			}
			odds, err := e.price("odds")
			if err != nil {
				return p, err
			}
			p.CorrectScore = append(p.CorrectScore, models.ScoreOdds{Score: score, Odds: odds})
		}

	case models.MarketDoubleChance:
		e, err := firstEntry(raw)
		if err != nil {
			return p, err
		}
		var dc models.DoubleChanceOdds
		if dc.HomeDraw, err = e.price("1X", "home_draw"); err != nil {
			return p, err
		}
		if dc.DrawAway, err = e.price("X2", "draw_away"); err != nil {
			return p, err
		}
		if dc.HomeAway, err = e.price("12", "home_away"); err != nil {
			return p, err
		}
		p.DoubleChance = &dc
	}
	return p, nil
}

// firstEntry accepts either a single object or a list whose first element
// is the current price
func firstEntry(raw json.RawMessage) (rawEntry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var e rawEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, malformed("odds object could not be decoded")
		}
		return e, nil
	}
	entries, err := entryList(raw)
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

func entryList(raw json.RawMessage) ([]rawEntry, error) {
	var entries []rawEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, malformed("odds list could not be decoded")
	}
	if len(entries) == 0 {
		return nil, malformed("odds list is empty")
	}
	return entries, nil
}

// price reads the first present field as a decimal price
func (e rawEntry) price(fields ...string) (float64, error) {
	v, err := e.number(fields...)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, malformed(fmt.Sprintf("non-positive price for %s", fields[0]))
	}
	return v, nil
}

// number reads the first present field, accepting JSON numbers and numeric strings
func (e rawEntry) number(fields ...string) (float64, error) {
	for _, f := range fields {
		raw, ok := e[f]
		if !ok || string(raw) == "null" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rawString(raw)), 64)
		if err != nil {
			return 0, malformed(fmt.Sprintf("unparseable value for %s", f))
		}
		return v, nil
	}
	return 0, malformed(fmt.Sprintf("missing field %s", fields[0]))
}

func malformed(msg string) error {
	return models.NewError(models.KindMalformedQuote, msg, nil)
}

// rawString renders a JSON string or number as plain text
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// nestedName reads either a plain string or field of an object
func nestedName(raw json.RawMessage, field string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		return rawString(obj[field])
	}
	return rawString(raw)
}

// parseTime returns the zero time for empty or unparseable values
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

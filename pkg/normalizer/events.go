package normalizer

import (
	"encoding/json"
	"strings"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// event statuses exposed by the events endpoints
const (
	StatusNotStarted = "not_started"
	StatusLive       = "live"
	StatusEnded      = "ended"
)

type rawListedEvent struct {
	rawEvent
	Scores *struct {
		Home json.RawMessage `json:"home"`
		Away json.RawMessage `json:"away"`
	} `json:"scores"`
	Minute json.RawMessage `json:"minute"`
}

// ParseEvents decodes an events listing. Entries that cannot be decoded are
// skipped and counted in the returned skip total.
func ParseEvents(raw []byte) ([]models.Event, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, models.NewError(models.KindMalformedQuote, "events response could not be decoded", err)
	}

	events := make([]models.Event, 0, len(items))
	skipped := 0
	for _, item := range items {
		var ev rawListedEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			skipped++
			continue
		}
		info := eventInfo(ev.rawEvent)
		if info.ID == "" {
			skipped++
			continue
		}
		out := models.Event{
			ID:           info.ID,
			Home:         info.Home,
			Away:         info.Away,
			Sport:        info.Sport,
			League:       info.League,
			LeagueSlug:   nestedName(ev.League, "slug"),
			Status:       eventStatus(ev.Status, info.Ended),
			CommenceTime: info.CommenceTime,
			Minute:       intPtr(ev.Minute),
		}
		if ev.Scores != nil {
			out.HomeScore = intPtr(ev.Scores.Home)
			out.AwayScore = intPtr(ev.Scores.Away)
		}
		events = append(events, out)
	}
	return events, skipped, nil
}

// ParseLeagues decodes a leagues listing
func ParseLeagues(raw []byte) ([]models.League, error) {
	var items []struct {
		Name  string          `json:"name"`
		Slug  string          `json:"slug"`
		Sport json.RawMessage `json:"sport"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, models.NewError(models.KindMalformedQuote, "leagues response could not be decoded", err)
	}
	leagues := make([]models.League, 0, len(items))
	for _, item := range items {
		if item.Name == "" && item.Slug == "" {
			continue
		}
		leagues = append(leagues, models.League{
			Name:  item.Name,
			Slug:  item.Slug,
			Sport: nestedName(item.Sport, "slug"),
		})
	}
	return leagues, nil
}

func eventStatus(status string, ended bool) string {
	if ended {
		return StatusEnded
	}
	switch strings.ToLower(status) {
	case "live", "in_progress", "inprogress":
		return StatusLive
	}
	return StatusNotStarted
}

func intPtr(raw json.RawMessage) *int {
	text := rawString(raw)
	if text == "" {
		return nil
	}
	var v float64
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil
	}
	n := int(v)
	return &n
}

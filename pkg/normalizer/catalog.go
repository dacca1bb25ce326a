package normalizer

import (
	"encoding/json"
	"strings"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// ParseSports decodes a sports listing
func ParseSports(raw []byte) ([]models.Sport, error) {
	var items []struct {
		Slug   string `json:"slug"`
		Key    string `json:"key"`
		Name   string `json:"name"`
		Title  string `json:"title"`
		Active *bool  `json:"active"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, models.NewError(models.KindMalformedQuote, "sports response could not be decoded", err)
	}
	sports := make([]models.Sport, 0, len(items))
	for _, item := range items {
		key := firstNonEmpty(item.Slug, item.Key)
		if key == "" {
			continue
		}
		sports = append(sports, models.Sport{
			Key:    key,
			Title:  firstNonEmpty(item.Name, item.Title),
			Active: item.Active == nil || *item.Active,
		})
	}
	return sports, nil
}

// ParseBookmakers decodes a bookmakers listing
func ParseBookmakers(raw []byte) ([]models.Bookmaker, error) {
	var items []struct {
		Key      string `json:"key"`
		Slug     string `json:"slug"`
		Name     string `json:"name"`
		Title    string `json:"title"`
		Region   string `json:"region"`
		IsActive *bool  `json:"isActive"`
		Active   *bool  `json:"active"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, models.NewError(models.KindMalformedQuote, "bookmakers response could not be decoded", err)
	}
	books := make([]models.Bookmaker, 0, len(items))
	for _, item := range items {
		name := firstNonEmpty(item.Name, item.Title)
		key := firstNonEmpty(item.Key, item.Slug)
		if key == "" {
			key = models.BookmakerKey(name)
		}
		if key == "" {
			continue
		}
		active := true
		switch {
		case item.IsActive != nil:
			active = *item.IsActive
		case item.Active != nil:
			active = *item.Active
		}
		books = append(books, models.Bookmaker{Key: key, Name: name, Region: item.Region, IsActive: active})
	}
	return books, nil
}

type rawParticipant struct {
	ID      json.RawMessage `json:"id"`
	Name    string          `json:"name"`
	Slug    string          `json:"slug"`
	Sport   json.RawMessage `json:"sport"`
	Country json.RawMessage `json:"country"`
	Logo    string          `json:"logo"`
}

func (p rawParticipant) participant(sport string) models.Participant {
	out := models.Participant{
		ID:      rawString(p.ID),
		Name:    p.Name,
		Slug:    p.Slug,
		Sport:   firstNonEmpty(nestedName(p.Sport, "slug"), sport),
		Country: nestedName(p.Country, "name"),
		Logo:    p.Logo,
	}
	if out.Slug == "" {
		out.Slug = strings.ReplaceAll(strings.ToLower(p.Name), " ", "-")
	}
	return out
}

// ParseParticipants decodes a participants listing. sport fills entries
// that do not name their own.
func ParseParticipants(raw []byte, sport string) ([]models.Participant, error) {
	var items []rawParticipant
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, models.NewError(models.KindMalformedQuote, "participants response could not be decoded", err)
	}
	out := make([]models.Participant, 0, len(items))
	for _, item := range items {
		out = append(out, item.participant(sport))
	}
	return out, nil
}

// ParseParticipant decodes a single participant
func ParseParticipant(raw []byte) (*models.Participant, error) {
	var item rawParticipant
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, models.NewError(models.KindMalformedQuote, "participant response could not be decoded", err)
	}
	p := item.participant("")
	return &p, nil
}

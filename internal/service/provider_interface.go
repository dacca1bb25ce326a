package service

import (
	"context"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/internal/provider"
)

// OddsProvider abstracts the upstream odds API
// This allows for easier testing and mocking
type OddsProvider interface {
	Odds(ctx context.Context, eventID string, kind models.MarketKind, bookmakers []string, fresh bool) (*provider.Response, error)
	Events(ctx context.Context, filter models.EventFilter) (*provider.Response, error)
	LiveEvents(ctx context.Context) (*provider.Response, error)
	Leagues(ctx context.Context, sport string) (*provider.Response, error)
	Sports(ctx context.Context) (*provider.Response, error)
	Bookmakers(ctx context.Context) (*provider.Response, error)
	Participants(ctx context.Context, sport, search string) (*provider.Response, error)
	Participant(ctx context.Context, id string) (*provider.Response, error)
}

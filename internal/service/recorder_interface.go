package service

import (
	"context"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// MovementRecorder abstracts the movement log
type MovementRecorder interface {
	Observe(ctx context.Context, quotes []models.MarketQuote) (int, error)
	History(ctx context.Context, key models.MovementKey) (*models.MovementHistory, error)
}

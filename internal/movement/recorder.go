// Package movement records how bookmaker prices change over time.
package movement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cypherlabdev/odds-analytics-service/internal/metrics"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/internal/store"
)

// DefaultRetention is how long movement records are kept
const DefaultRetention = 30 * 24 * time.Hour

// Recorder appends a movement record whenever a bookmaker's payload for an
// (event, market) differs from the last one recorded
type Recorder struct {
	store     store.MovementStore
	retention time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewRecorder creates a recorder. A non-positive retention uses DefaultRetention.
func NewRecorder(movements store.MovementStore, retention time.Duration, logger zerolog.Logger) *Recorder {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Recorder{
		store:     movements,
		retention: retention,
		now:       time.Now,
		logger:    logger.With().Str("component", "movement_recorder").Logger(),
	}
}

// Observe compares each quote with the latest record for its key and appends
// the changed ones. Quotes older than the latest record are ignored. A quote
// whose observed_at was estimated from the fetch clock and whose payload is
// unchanged takes the recorded observed_at, so unchanged prices keep a stable
// timestamp. quotes is updated in place. It returns the number of records
// appended; failures on one quote do not stop the others.
func (r *Recorder) Observe(ctx context.Context, quotes []models.MarketQuote) (int, error) {
	appended := 0
	var errs []error

	for i := range quotes {
		q := &quotes[i]
		latest, changed, err := r.store.AppendIfChanged(ctx, models.MovementRecord{
			EventID:      q.EventID,
			BookmakerKey: q.BookmakerKey,
			MarketKind:   q.MarketKind,
			Snapshot:     q.Payload,
			ObservedAt:   q.ObservedAt.UTC(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to record movement for %s/%s: %w", q.EventID, q.BookmakerKey, err))
			continue
		}
		if changed {
			appended++
			metrics.MovementsRecorded.WithLabelValues(string(q.MarketKind)).Inc()
			continue
		}
		if q.ObservedAtEstimated {
			q.ObservedAt = latest.ObservedAt.UTC()
		}
	}

	if appended > 0 {
		r.logger.Debug().Int("appended", appended).Int("observed", len(quotes)).Msg("recorded movements")
	}
	return appended, errors.Join(errs...)
}

// History returns the records of one key inside the retention window.
// Nothing recorded is an empty history, not an error.
func (r *Recorder) History(ctx context.Context, key models.MovementKey) (*models.MovementHistory, error) {
	records, err := r.store.Range(ctx, key, r.now().Add(-r.retention))
	if err != nil {
		return nil, fmt.Errorf("failed to read movements: %w", err)
	}

	history := &models.MovementHistory{
		EventID:      key.EventID,
		BookmakerKey: key.BookmakerKey,
		MarketKind:   key.MarketKind,
		Movements:    records,
	}
	if history.Movements == nil {
		history.Movements = []models.MovementRecord{}
	}
	if n := len(records); n > 0 {
		opening, latest := records[0], records[n-1]
		history.Opening = &opening
		history.Latest = &latest
	}
	return history, nil
}

// Prune drops records older than the retention window
func (r *Recorder) Prune(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.retention)
	n, err := r.store.Prune(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("failed to prune movements: %w", err)
	}
	r.logger.Info().Int("pruned", n).Time("cutoff", cutoff).Msg("pruned movement records")
	return n, nil
}

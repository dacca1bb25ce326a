// Package store persists generation requests, static artifact rows and
// movement logs.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// RequestStore holds generation requests and the artifact row per fingerprint
type RequestStore interface {
	// ClaimRequest returns the open (queued or running) request for the
	// fingerprint, or atomically creates a queued one. created reports which.
	ClaimRequest(ctx context.Context, fp models.Fingerprint, source models.TriggerSource) (req *models.GenerationRequest, created bool, err error)

	// GetRequest returns models.ErrNotFound for unknown ids
	GetRequest(ctx context.Context, id uuid.UUID) (*models.GenerationRequest, error)

	// TransitionStatus moves a request from one status to another. It
	// reports false, without error, when the request is not in from.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.RequestStatus, errKind models.ErrorKind, errMsg string) (bool, error)

	// GetArtifact returns models.ErrNotFound when the fingerprint has no artifact
	GetArtifact(ctx context.Context, fingerprintKey string) (*models.StaticArtifact, error)
	UpsertArtifact(ctx context.Context, artifact models.StaticArtifact) error
	TouchArtifact(ctx context.Context, fingerprintKey string, checkedAt time.Time, ended bool) error

	// ListRefreshable returns fingerprints whose artifact has not ended and
	// that an api or kafka trigger completed at or after since.
	ListRefreshable(ctx context.Context, since time.Time) ([]models.Fingerprint, error)
}

// MovementStore is an append-only log of quote snapshots
type MovementStore interface {
	// AppendIfChanged appends record unless it is older than the latest
	// record of its key or carries the same snapshot. The comparison and the
	// write are atomic per key. latest is the newest record after the call.
	AppendIfChanged(ctx context.Context, record models.MovementRecord) (latest models.MovementRecord, appended bool, err error)
	// Range returns records observed at or after since, oldest first
	Range(ctx context.Context, key models.MovementKey, since time.Time) ([]models.MovementRecord, error)
	// Prune drops records observed before cutoff
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// supersedes reports whether record should be appended after latest
func supersedes(latest *models.MovementRecord, record models.MovementRecord) (bool, error) {
	if latest == nil {
		return true, nil
	}
	if record.ObservedAt.Before(latest.ObservedAt) {
		return false, nil
	}
	a, err := json.Marshal(latest.Snapshot)
	if err != nil {
		return false, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	b, err := json.Marshal(record.Snapshot)
	if err != nil {
		return false, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return !bytes.Equal(a, b), nil
}

func requestNotFound(id uuid.UUID) error {
	return models.NewError(models.KindNotFound, "generation request "+id.String()+" not found", nil)
}

func artifactNotFound(key string) error {
	return models.NewError(models.KindNotFound, "no artifact for "+key, nil)
}

func isExternal(source models.TriggerSource) bool {
	return source == models.SourceAPI || source == models.SourceKafka
}

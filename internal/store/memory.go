package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// MemoryStore keeps everything in process. Used for tests and single node
// deployments without PostgreSQL.
type MemoryStore struct {
	mu        sync.Mutex
	requests  map[uuid.UUID]*models.GenerationRequest
	open      map[string]uuid.UUID // fingerprint key -> open request
	artifacts map[string]*models.StaticArtifact
	movements map[models.MovementKey][]models.MovementRecord
	now       func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:  make(map[uuid.UUID]*models.GenerationRequest),
		open:      make(map[string]uuid.UUID),
		artifacts: make(map[string]*models.StaticArtifact),
		movements: make(map[models.MovementKey][]models.MovementRecord),
		now:       time.Now,
	}
}

func (s *MemoryStore) ClaimRequest(_ context.Context, fp models.Fingerprint, source models.TriggerSource) (*models.GenerationRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fp.Key()
	if id, ok := s.open[key]; ok {
		existing := *s.requests[id]
		return &existing, false, nil
	}

	now := s.now().UTC()
	req := &models.GenerationRequest{
		ID:          uuid.New(),
		Fingerprint: fp,
		Status:      models.StatusQueued,
		Source:      source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.requests[req.ID] = req
	s.open[key] = req.ID

	out := *req
	return &out, true, nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id uuid.UUID) (*models.GenerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, requestNotFound(id)
	}
	out := *req
	return &out, nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.RequestStatus, errKind models.ErrorKind, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return false, requestNotFound(id)
	}
	if req.Status != from {
		return false, nil
	}

	req.Status = to
	req.ErrorKind = errKind
	req.Error = errMsg
	req.UpdatedAt = s.now().UTC()
	if !to.Open() {
		delete(s.open, req.Fingerprint.Key())
	}
	return true, nil
}

func (s *MemoryStore) GetArtifact(_ context.Context, fingerprintKey string) (*models.StaticArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[fingerprintKey]
	if !ok {
		return nil, artifactNotFound(fingerprintKey)
	}
	out := *a
	return &out, nil
}

func (s *MemoryStore) UpsertArtifact(_ context.Context, artifact models.StaticArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := artifact
	s.artifacts[artifact.FingerprintKey] = &a
	return nil
}

func (s *MemoryStore) TouchArtifact(_ context.Context, fingerprintKey string, checkedAt time.Time, ended bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[fingerprintKey]
	if !ok {
		return artifactNotFound(fingerprintKey)
	}
	a.CheckedAt = checkedAt
	a.Ended = a.Ended || ended
	return nil
}

func (s *MemoryStore) ListRefreshable(_ context.Context, since time.Time) ([]models.Fingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var out []models.Fingerprint
	for _, req := range s.requests {
		if !isExternal(req.Source) || req.Status != models.StatusCompleted || req.UpdatedAt.Before(since) {
			continue
		}
		key := req.Fingerprint.Key()
		if seen[key] {
			continue
		}
		a, ok := s.artifacts[key]
		if !ok || a.Ended {
			continue
		}
		seen[key] = true
		out = append(out, req.Fingerprint)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *MemoryStore) AppendIfChanged(_ context.Context, record models.MovementRecord) (models.MovementRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.Key()
	log := s.movements[key]
	var latest *models.MovementRecord
	if len(log) > 0 {
		latest = &log[len(log)-1]
	}

	ok, err := supersedes(latest, record)
	if err != nil {
		return models.MovementRecord{}, false, err
	}
	if !ok {
		return *latest, false, nil
	}
	s.movements[key] = append(log, record)
	return record, true, nil
}

func (s *MemoryStore) Range(_ context.Context, key models.MovementKey, since time.Time) ([]models.MovementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.MovementRecord, 0)
	for _, rec := range s.movements[key] {
		if !rec.ObservedAt.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for key, log := range s.movements {
		kept := log[:0]
		for _, rec := range log {
			if rec.ObservedAt.Before(cutoff) {
				pruned++
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(s.movements, key)
			continue
		}
		s.movements[key] = kept
	}
	return pruned, nil
}

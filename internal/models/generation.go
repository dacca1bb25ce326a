package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArtifactKind selects the payload a generation run serializes
type ArtifactKind string

const (
	ArtifactOdds      ArtifactKind = "odds"
	ArtifactValueBets ArtifactKind = "value-bets"
	ArtifactArbitrage ArtifactKind = "arbitrage"
)

// ParseArtifactKind parses an artifact kind, defaulting to odds
func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch ArtifactKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", ArtifactOdds:
		return ArtifactOdds, nil
	case ArtifactValueBets, "value_bets":
		return ArtifactValueBets, nil
	case ArtifactArbitrage:
		return ArtifactArbitrage, nil
	}
	return "", NewError(KindInvalidInput, fmt.Sprintf("unknown artifact kind %q", s), nil)
}

// RequestStatus is the lifecycle state of a generation request
type RequestStatus string

const (
	StatusQueued    RequestStatus = "queued"
	StatusRunning   RequestStatus = "running"
	StatusCompleted RequestStatus = "completed"
	StatusFailed    RequestStatus = "failed"
)

// Open reports whether the request is still in flight
func (s RequestStatus) Open() bool {
	return s == StatusQueued || s == StatusRunning
}

// TriggerSource records what started a generation request
type TriggerSource string

const (
	SourceAPI     TriggerSource = "api"
	SourceKafka   TriggerSource = "kafka"
	SourceRefresh TriggerSource = "refresh"
)

// Fingerprint identifies one generation unit
type Fingerprint struct {
	EventID      string       `json:"event_id"`
	MarketKind   MarketKind   `json:"market_kind"`
	Bookmakers   []string     `json:"bookmakers"`
	ArtifactKind ArtifactKind `json:"artifact_kind"`
}

// NewFingerprint builds a fingerprint with a canonical bookmaker set
func NewFingerprint(eventID string, kind MarketKind, bookmakers []string, artifact ArtifactKind) Fingerprint {
	if artifact == "" {
		artifact = ArtifactOdds
	}
	return Fingerprint{
		EventID:      strings.TrimSpace(eventID),
		MarketKind:   kind,
		Bookmakers:   CanonicalBookmakers(bookmakers),
		ArtifactKind: artifact,
	}
}

// Key returns the string form used for uniqueness checks and storage,
// e.g. "odds|123|totals|bet365,betano"
func (f Fingerprint) Key() string {
	return strings.Join([]string{
		string(f.ArtifactKind),
		f.EventID,
		string(f.MarketKind),
		strings.Join(f.Bookmakers, ","),
	}, "|")
}

// keySeparators may not appear inside a fingerprint key part
const keySeparators = "|,"

// ValidateEventID trims id and rejects values that cannot be part of a
// fingerprint key
func ValidateEventID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", NewError(KindInvalidInput, "event id is required", nil)
	}
	if strings.ContainsAny(id, keySeparators) {
		return "", NewError(KindInvalidInput, fmt.Sprintf("event id %q must not contain '|' or ','", id), nil)
	}
	return id, nil
}

// ParseFingerprintKey reverses Key
func ParseFingerprintKey(key string) (Fingerprint, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 4 {
		return Fingerprint{}, fmt.Errorf("invalid fingerprint key %q", key)
	}
	var books []string
	if parts[3] != "" {
		books = strings.Split(parts[3], ",")
	}
	return Fingerprint{
		ArtifactKind: ArtifactKind(parts[0]),
		EventID:      parts[1],
		MarketKind:   MarketKind(parts[2]),
		Bookmakers:   books,
	}, nil
}

// CanonicalBookmakers lowercases, deduplicates and sorts bookmaker keys
func CanonicalBookmakers(bookmakers []string) []string {
	seen := make(map[string]bool, len(bookmakers))
	out := make([]string, 0, len(bookmakers))
	for _, b := range bookmakers {
		k := BookmakerKey(b)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BookmakerKey converts a provider bookmaker name into its key, e.g.
// "Bet 365" -> "bet_365"
func BookmakerKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// GenerationRequest is one durable generation attempt for a fingerprint
type GenerationRequest struct {
	ID          uuid.UUID     `json:"id"`
	Fingerprint Fingerprint   `json:"fingerprint"`
	Status      RequestStatus `json:"status"`
	Source      TriggerSource `json:"source"`
	ErrorKind   ErrorKind     `json:"error_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// StaticArtifact is the latest generated file for a fingerprint
type StaticArtifact struct {
	FingerprintKey string    `json:"fingerprint_key"`
	RequestID      uuid.UUID `json:"request_id"`
	ContentHash    string    `json:"content_hash"`
	Path           string    `json:"path"`
	UpdatedAt      time.Time `json:"updated_at"`
	CheckedAt      time.Time `json:"checked_at"`
	Ended          bool      `json:"ended"`
}

// GenerationStatus is the status query read model
type GenerationStatus struct {
	RequestID uuid.UUID     `json:"request_id"`
	Status    RequestStatus `json:"status"`
	Path      string        `json:"path,omitempty"`
	Hash      string        `json:"hash,omitempty"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ArtifactUpdate is published whenever an artifact's content changes
type ArtifactUpdate struct {
	RequestID   uuid.UUID   `json:"request_id"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Path        string      `json:"path"`
	ContentHash string      `json:"content_hash"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// GenerationTrigger is the inbound generation message (HTTP body or Kafka value)
type GenerationTrigger struct {
	EventID    string   `json:"event_id"`
	Market     string   `json:"market"`
	Bookmakers []string `json:"bookmakers,omitempty"`
	Artifact   string   `json:"artifact,omitempty"`
	Region     string   `json:"region,omitempty"`
}

package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// claim attempts before giving up when the open request keeps closing under us
const maxClaimAttempts = 3

// PostgresConfig holds connection settings
type PostgresConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// pgxPool is the subset of *pgxpool.Pool the store uses
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements RequestStore and MovementStore on PostgreSQL
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore connects, pings and returns a store. Call Migrate before use.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return newPostgresStore(pool), nil
}

func newPostgresStore(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Migrate applies embedded migrations in name order, recording each in
// schema_migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		var applied bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, name,
		).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if applied {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

const requestColumns = `id, event_id, market_kind, bookmakers, artifact_kind,
	status, source, error_kind, error, created_at, updated_at`

func (s *PostgresStore) ClaimRequest(ctx context.Context, fp models.Fingerprint, source models.TriggerSource) (*models.GenerationRequest, bool, error) {
	key := fp.Key()

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		now := time.Now().UTC()
		id := uuid.New()

		tag, err := s.pool.Exec(ctx, `
			INSERT INTO generation_requests (
				id, fingerprint_key, event_id, market_kind, bookmakers, artifact_kind,
				status, source, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			ON CONFLICT (fingerprint_key) WHERE status IN ('queued', 'running') DO NOTHING`,
			id, key, fp.EventID, string(fp.MarketKind), fp.Bookmakers, string(fp.ArtifactKind),
			string(models.StatusQueued), string(source), now,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to insert generation request: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return &models.GenerationRequest{
				ID:          id,
				Fingerprint: fp,
				Status:      models.StatusQueued,
				Source:      source,
				CreatedAt:   now,
				UpdatedAt:   now,
			}, true, nil
		}

		row := s.pool.QueryRow(ctx, `SELECT `+requestColumns+`
			FROM generation_requests
			WHERE fingerprint_key = $1 AND status IN ('queued', 'running')`, key)
		existing, err := scanRequest(row)
		if errors.Is(err, pgx.ErrNoRows) {
			// the open request finished between the insert and the select
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to load open generation request: %w", err)
		}
		return existing, false, nil
	}
	return nil, false, models.NewError(models.KindInternal, "could not claim generation request for "+key, nil)
}

func (s *PostgresStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.GenerationRequest, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM generation_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, requestNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation request %s: %w", id, err)
	}
	return req, nil
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.RequestStatus, errKind models.ErrorKind, errMsg string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE generation_requests
		SET status = $3, error_kind = $4, error = $5, updated_at = $6
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), string(errKind), errMsg, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition generation request %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM generation_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check generation request %s: %w", id, err)
	}
	if !exists {
		return false, requestNotFound(id)
	}
	return false, nil
}

func (s *PostgresStore) GetArtifact(ctx context.Context, fingerprintKey string) (*models.StaticArtifact, error) {
	var a models.StaticArtifact
	err := s.pool.QueryRow(ctx, `
		SELECT fingerprint_key, request_id, content_hash, path, updated_at, checked_at, ended
		FROM static_artifacts WHERE fingerprint_key = $1`, fingerprintKey).
		Scan(&a.FingerprintKey, &a.RequestID, &a.ContentHash, &a.Path, &a.UpdatedAt, &a.CheckedAt, &a.Ended)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, artifactNotFound(fingerprintKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact %s: %w", fingerprintKey, err)
	}
	return &a, nil
}

func (s *PostgresStore) UpsertArtifact(ctx context.Context, a models.StaticArtifact) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO static_artifacts (fingerprint_key, request_id, content_hash, path, updated_at, checked_at, ended)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (fingerprint_key) DO UPDATE SET
			request_id   = EXCLUDED.request_id,
			content_hash = EXCLUDED.content_hash,
			path         = EXCLUDED.path,
			updated_at   = EXCLUDED.updated_at,
			checked_at   = EXCLUDED.checked_at,
			ended        = EXCLUDED.ended`,
		a.FingerprintKey, a.RequestID, a.ContentHash, a.Path, a.UpdatedAt, a.CheckedAt, a.Ended,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert artifact %s: %w", a.FingerprintKey, err)
	}
	return nil
}

func (s *PostgresStore) TouchArtifact(ctx context.Context, fingerprintKey string, checkedAt time.Time, ended bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE static_artifacts SET checked_at = $2, ended = ended OR $3
		WHERE fingerprint_key = $1`, fingerprintKey, checkedAt, ended)
	if err != nil {
		return fmt.Errorf("failed to touch artifact %s: %w", fingerprintKey, err)
	}
	if tag.RowsAffected() == 0 {
		return artifactNotFound(fingerprintKey)
	}
	return nil
}

func (s *PostgresStore) ListRefreshable(ctx context.Context, since time.Time) ([]models.Fingerprint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (r.fingerprint_key) r.event_id, r.market_kind, r.bookmakers, r.artifact_kind
		FROM generation_requests r
		JOIN static_artifacts a ON a.fingerprint_key = r.fingerprint_key
		WHERE r.source IN ('api', 'kafka')
		  AND r.status = 'completed'
		  AND r.updated_at >= $1
		  AND NOT a.ended
		ORDER BY r.fingerprint_key`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list refreshable fingerprints: %w", err)
	}
	defer rows.Close()

	var out []models.Fingerprint
	for rows.Next() {
		var fp models.Fingerprint
		var kind, artifact string
		if err := rows.Scan(&fp.EventID, &kind, &fp.Bookmakers, &artifact); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		fp.MarketKind = models.MarketKind(kind)
		fp.ArtifactKind = models.ArtifactKind(artifact)
		out = append(out, fp)
	}
	return out, rows.Err()
}

// AppendIfChanged serializes writers of one key with a transaction scoped
// advisory lock
func (s *PostgresStore) AppendIfChanged(ctx context.Context, record models.MovementRecord) (models.MovementRecord, bool, error) {
	key := record.Key()
	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return models.MovementRecord{}, false, fmt.Errorf("failed to encode movement snapshot: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.MovementRecord{}, false, fmt.Errorf("failed to begin movement append: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
		key.EventID+"|"+key.BookmakerKey+"|"+string(key.MarketKind)); err != nil {
		return models.MovementRecord{}, false, fmt.Errorf("failed to lock movement log: %w", err)
	}

	prev, err := latestMovement(ctx, tx, key)
	if err != nil {
		return models.MovementRecord{}, false, err
	}
	ok, err := supersedes(prev, record)
	if err != nil {
		return models.MovementRecord{}, false, err
	}
	if !ok {
		return *prev, false, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO odds_movements (event_id, bookmaker_key, market_kind, snapshot, observed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		record.EventID, record.BookmakerKey, string(record.MarketKind), snapshot, record.ObservedAt,
	); err != nil {
		return models.MovementRecord{}, false, fmt.Errorf("failed to append movement: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.MovementRecord{}, false, fmt.Errorf("failed to commit movement: %w", err)
	}
	return record, true, nil
}

func latestMovement(ctx context.Context, tx pgx.Tx, key models.MovementKey) (*models.MovementRecord, error) {
	var snapshot []byte
	rec := models.MovementRecord{EventID: key.EventID, BookmakerKey: key.BookmakerKey, MarketKind: key.MarketKind}
	err := tx.QueryRow(ctx, `
		SELECT snapshot, observed_at FROM odds_movements
		WHERE event_id = $1 AND bookmaker_key = $2 AND market_kind = $3
		ORDER BY observed_at DESC, id DESC LIMIT 1`,
		key.EventID, key.BookmakerKey, string(key.MarketKind)).Scan(&snapshot, &rec.ObservedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest movement: %w", err)
	}
	if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode movement snapshot: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) Range(ctx context.Context, key models.MovementKey, since time.Time) ([]models.MovementRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT snapshot, observed_at FROM odds_movements
		WHERE event_id = $1 AND bookmaker_key = $2 AND market_kind = $3 AND observed_at >= $4
		ORDER BY observed_at, id`,
		key.EventID, key.BookmakerKey, string(key.MarketKind), since)
	if err != nil {
		return nil, fmt.Errorf("failed to range movements: %w", err)
	}
	defer rows.Close()

	out := make([]models.MovementRecord, 0)
	for rows.Next() {
		var snapshot []byte
		rec := models.MovementRecord{EventID: key.EventID, BookmakerKey: key.BookmakerKey, MarketKind: key.MarketKind}
		if err := rows.Scan(&snapshot, &rec.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode movement snapshot: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM odds_movements WHERE observed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune movements: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRequest(row pgx.Row) (*models.GenerationRequest, error) {
	var req models.GenerationRequest
	var kind, artifact, status, source, errKind string
	err := row.Scan(
		&req.ID, &req.Fingerprint.EventID, &kind, &req.Fingerprint.Bookmakers, &artifact,
		&status, &source, &errKind, &req.Error, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Fingerprint.MarketKind = models.MarketKind(kind)
	req.Fingerprint.ArtifactKind = models.ArtifactKind(artifact)
	req.Status = models.RequestStatus(status)
	req.Source = models.TriggerSource(source)
	req.ErrorKind = models.ErrorKind(errKind)
	return &req, nil
}

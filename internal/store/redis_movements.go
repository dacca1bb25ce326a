package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// attempts before giving up on a log key that keeps changing under WATCH
const maxAppendAttempts = 5

// RedisMovementStore keeps one sorted set per (event, bookmaker, market),
// scored by observed_at in milliseconds. A set of log keys drives pruning.
type RedisMovementStore struct {
	client *redis.Client
	prefix string
}

// NewRedisMovementStore creates a movement log on an existing connection
func NewRedisMovementStore(client *redis.Client, keyPrefix string) *RedisMovementStore {
	return &RedisMovementStore{client: client, prefix: keyPrefix + "movements:"}
}

func (s *RedisMovementStore) logKey(key models.MovementKey) string {
	return s.prefix + key.EventID + ":" + key.BookmakerKey + ":" + string(key.MarketKind)
}

func (s *RedisMovementStore) indexKey() string {
	return s.prefix + "index"
}

// AppendIfChanged runs the comparison under WATCH on the log key and retries
// when a concurrent writer touches it first
func (s *RedisMovementStore) AppendIfChanged(ctx context.Context, record models.MovementRecord) (models.MovementRecord, bool, error) {
	member, err := json.Marshal(record)
	if err != nil {
		return models.MovementRecord{}, false, fmt.Errorf("failed to encode movement: %w", err)
	}
	logKey := s.logKey(record.Key())

	var latest models.MovementRecord
	var appended bool
	txf := func(tx *redis.Tx) error {
		members, err := tx.ZRevRange(ctx, logKey, 0, 0).Result()
		if err != nil {
			return fmt.Errorf("failed to read latest movement: %w", err)
		}
		var prev *models.MovementRecord
		if len(members) > 0 {
			prev = &models.MovementRecord{}
			if err := json.Unmarshal([]byte(members[0]), prev); err != nil {
				return fmt.Errorf("failed to decode movement: %w", err)
			}
		}

		ok, err := supersedes(prev, record)
		if err != nil {
			return err
		}
		if !ok {
			latest, appended = *prev, false
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, logKey, redis.Z{Score: float64(record.ObservedAt.UnixMilli()), Member: member})
			pipe.SAdd(ctx, s.indexKey(), logKey)
			return nil
		})
		if err != nil {
			return err
		}
		latest, appended = record, true
		return nil
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, logKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return models.MovementRecord{}, false, fmt.Errorf("failed to append movement: %w", err)
		}
		return latest, appended, nil
	}
	return models.MovementRecord{}, false, fmt.Errorf("failed to append movement: %s kept changing", logKey)
}

func (s *RedisMovementStore) Range(ctx context.Context, key models.MovementKey, since time.Time) ([]models.MovementRecord, error) {
	members, err := s.client.ZRangeByScore(ctx, s.logKey(key), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range movements: %w", err)
	}

	out := make([]models.MovementRecord, 0, len(members))
	for _, m := range members {
		var rec models.MovementRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode movement: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisMovementStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	logKeys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list movement logs: %w", err)
	}

	// exclusive upper bound: records at exactly cutoff are kept
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	pruned := 0
	for _, logKey := range logKeys {
		n, err := s.client.ZRemRangeByScore(ctx, logKey, "-inf", upper).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to prune %s: %w", logKey, err)
		}
		pruned += int(n)

		left, err := s.client.ZCard(ctx, logKey).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to count %s: %w", logKey, err)
		}
		if left == 0 {
			s.client.SRem(ctx, s.indexKey(), logKey)
		}
	}
	return pruned, nil
}

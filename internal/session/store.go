package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/travel-auth/internal/persistence"
)

const keyPrefix = "session:"

// Record is the JSON blob stored per session.
type Record struct {
	UserID         string         `json:"userId"`
	Payload        map[string]any `json:"payload"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastAccessedAt time.Time      `json:"lastAccessedAt"`
}

// Store keeps ephemeral session data in Redis with sliding expiration.
type Store struct {
	redis *persistence.ConnectionManager
	ttl   time.Duration
	now   func() time.Time
}

// NewStore builds a session store with the given default TTL.
func NewStore(redis *persistence.ConnectionManager, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{redis: redis, ttl: ttl, now: time.Now}
}

// Create stores a new session and returns its id. The id embeds the user id
// so all sessions of a user can be found by prefix scan; the random suffix
// makes collisions negligible and no uniqueness re-check is performed.
func (s *Store) Create(ctx context.Context, userID string, payload map[string]any) (string, error) {
	client, err := s.redis.Get(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	sessionID := fmt.Sprintf("%s:%d:%s", userID, now.UnixNano(), uuid.NewString()[:8])
	record := Record{
		UserID:         userID,
		Payload:        payload,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	if err := client.Set(ctx, keyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Get returns the session payload, refreshing lastAccessedAt and the TTL.
// A miss returns nil without side effects.
func (s *Store) Get(ctx context.Context, sessionID string) (map[string]any, error) {
	record, client, err := s.load(ctx, sessionID)
	if err != nil || record == nil {
		return nil, err
	}

	record.LastAccessedAt = s.now()
	if err := s.save(ctx, client, sessionID, record); err != nil {
		return nil, err
	}
	return record.Payload, nil
}

// Update merges the patch into the session payload and resets the TTL.
// Returns false when the session does not exist.
func (s *Store) Update(ctx context.Context, sessionID string, patch map[string]any) (bool, error) {
	record, client, err := s.load(ctx, sessionID)
	if err != nil || record == nil {
		return false, err
	}

	if record.Payload == nil {
		record.Payload = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		record.Payload[k] = v
	}
	record.LastAccessedAt = s.now()

	if err := s.save(ctx, client, sessionID, record); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a session. Returns true when a session existed.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	client, err := s.redis.Get(ctx)
	if err != nil {
		return false, err
	}
	deleted, err := client.Del(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// DeleteAllForUser scans session:{userId}:* and removes every match.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	client, err := s.redis.Get(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int64
	iter := client.Scan(ctx, 0, keyPrefix+userID+":*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func (s *Store) load(ctx context.Context, sessionID string) (*Record, *redis.Client, error) {
	client, err := s.redis.Get(ctx)
	if err != nil {
		return nil, nil, err
	}

	data, err := client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, client, nil
		}
		return nil, nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, nil, err
	}
	return &record, client, nil
}

func (s *Store) save(ctx context.Context, client *redis.Client, sessionID string, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return client.Set(ctx, keyPrefix+sessionID, data, s.ttl).Err()
}

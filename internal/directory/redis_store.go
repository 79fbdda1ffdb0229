// Package directory keeps the group and organization ids of each user in Redis so the
// membership builder can resolve them without trusting extra request headers.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("membership entry not found")

// Entry is the stored membership of one user.
type Entry struct {
	UserID          int64     `json:"userId"`
	GroupIDs        []int64   `json:"groupIds"`
	OrganizationIDs []int64   `json:"organizationIds"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// RedisStore stores one JSON entry per user under "membership:<userId>".
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore connects to redisURL. A ttl of zero keeps entries until they are deleted.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "membership:",
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) key(userID int64) string {
	return fmt.Sprintf("%s%d", s.prefix, userID)
}

// Save replaces the entry for entry.UserID. Ids are sorted and deduplicated.
func (s *RedisStore) Save(ctx context.Context, entry Entry) (Entry, error) {
	if entry.UserID <= 0 {
		return Entry{}, fmt.Errorf("save membership: user id must be positive")
	}
	entry.GroupIDs = normalizeIDs(entry.GroupIDs)
	entry.OrganizationIDs = normalizeIDs(entry.OrganizationIDs)
	entry.UpdatedAt = s.now().UTC()

	payload, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal membership: %w", err)
	}
	if err := s.client.Set(ctx, s.key(entry.UserID), payload, s.ttl).Err(); err != nil {
		return Entry{}, fmt.Errorf("save membership: %w", err)
	}
	zap.L().Debug("membership saved",
		zap.Int64("user_id", entry.UserID),
		zap.Int("groups", len(entry.GroupIDs)),
		zap.Int("organizations", len(entry.OrganizationIDs)),
	)
	return entry, nil
}

func (s *RedisStore) Lookup(ctx context.Context, userID int64) (Entry, error) {
	payload, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lookup membership: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return Entry{}, fmt.Errorf("unmarshal membership: %w", err)
	}
	return entry, nil
}

// Delete removes the entry. Deleting a missing entry is not an error.
func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func normalizeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

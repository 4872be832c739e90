package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one key per session and lets Redis expire it.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client, Prefix: "session:"}
}

func (s *RedisStore) key(id string) string {
	return s.Prefix + id
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.Client.Set(ctx, s.key(rec.ID), rec.Identifier, ttl).Err()
}

func (s *RedisStore) Active(ctx context.Context, id string) (bool, error) {
	n, err := s.Client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Revoke(ctx context.Context, id string) error {
	return s.Client.Del(ctx, s.key(id)).Err()
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as one Redis hash that expires as a whole
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) hashKey(sessionID uuid.UUID) string {
	return s.prefix + sessionID.String()
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, sessionID uuid.UUID, key string, dest interface{}) (bool, error) {
	data, err := s.client.HGet(ctx, s.hashKey(sessionID), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session value %s: %w", key, err)
	}
	return true, decode(data, dest)
}

// Set implements Store. Writing any value extends the whole session.
func (s *RedisStore) Set(ctx context.Context, sessionID uuid.UUID, key string, value interface{}) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	hashKey := s.hashKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, hashKey, key, data)
	pipe.Expire(ctx, hashKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write session value %s: %w", key, err)
	}
	return nil
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context, sessionID uuid.UUID, key string) error {
	if err := s.client.HDel(ctx, s.hashKey(sessionID), key).Err(); err != nil {
		return fmt.Errorf("failed to delete session value %s: %w", key, err)
	}
	return nil
}

// Clear implements Store
func (s *RedisStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.client.Del(ctx, s.hashKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

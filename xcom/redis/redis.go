// Package redis implements xcom.Store on Redis so task values survive a
// restart of the crawler between retries.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ali-crawler/xcom"
)

// Store implements xcom.Store using Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ xcom.Store = (*Store)(nil)

// NewStore creates a Redis-backed store. Values expire after ttl; zero keeps them.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *Store) Push(ctx context.Context, runID, taskID string, value []byte) error {
	if err := s.client.Set(ctx, xcom.Key(runID, taskID), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set xcom: %w", err)
	}
	return nil
}

func (s *Store) Pull(ctx context.Context, runID, taskID string) ([]byte, error) {
	data, err := s.client.Get(ctx, xcom.Key(runID, taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: run %s task %s", xcom.ErrNotFound, runID, taskID)
		}
		return nil, fmt.Errorf("redis get xcom: %w", err)
	}
	return data, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

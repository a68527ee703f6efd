// Package redisstore persists submission records in Redis as JSON values
// with a per-record TTL.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

const keyPrefix = "submission:"

// Store implements domain.SubmissionStore on a Redis client.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing client. The caller owns the client lifecycle.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("op=redisstore.Dial addr=%s: %w", addr, err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Set(ctx context.Context, sub domain.Submission, ttl time.Duration) error {
	b, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("op=redisstore.Set id=%s: %w", sub.ID, err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+sub.ID, b, ttl).Err(); err != nil {
		return fmt.Errorf("op=redisstore.Set id=%s: %w", sub.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Submission, error) {
	b, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Submission{}, fmt.Errorf("op=redisstore.Get id=%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("op=redisstore.Get id=%s: %w", id, err)
	}
	var sub domain.Submission
	if err := json.Unmarshal(b, &sub); err != nil {
		return domain.Submission{}, fmt.Errorf("op=redisstore.Get id=%s: %w", id, err)
	}
	return sub, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("op=redisstore.Delete id=%s: %w", id, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("op=redisstore.Ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

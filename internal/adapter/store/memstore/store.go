// Package memstore is an in-process domain.SubmissionStore for development
// and tests. Records expire lazily on read.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

type entry struct {
	sub       domain.Submission
	expiresAt time.Time
}

type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *Store) Set(_ context.Context, sub domain.Submission, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.entries[sub.ID] = entry{sub: sub, expiresAt: expiresAt}
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.Submission{}, fmt.Errorf("op=memstore.Get id=%s: %w", id, domain.ErrNotFound)
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, id)
		return domain.Submission{}, fmt.Errorf("op=memstore.Get id=%s: %w", id, domain.ErrNotFound)
	}
	return e.sub, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

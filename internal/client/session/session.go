// Package session holds the client's current user. Every change is written
// through to the local metadata cache under common.SessionCacheKey so a
// restarted client can rehydrate it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/ojtauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
)

// Record is what gets cached.
type Record struct {
	User   *models.User      `json:"user"`
	Tokens *models.TokenPair `json:"tokens,omitempty"`
}

// Store is safe for concurrent use. Reads never touch the cache.
type Store struct {
	mu     sync.RWMutex
	rec    *Record
	repo   metadata.Repository
	logger logging.Logger
}

func NewStore(repo metadata.Repository, logger logging.Logger) *Store {
	return &Store{repo: repo, logger: logger.With("module", "session")}
}

// Load reads the cached record into memory. A missing or unreadable entry
// yields an empty session; an unreadable one is also deleted.
func (s *Store) Load(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.repo.Get(ctx, common.SessionCacheKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		s.rec = nil
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.User == nil {
		s.logger.Warn(ctx, "discarding unreadable session cache", "error", err)
		s.rec = nil
		return nil, s.repo.Delete(ctx, common.SessionCacheKey)
	}
	s.rec = &rec
	return &rec, nil
}

// CurrentUser returns the authenticated user or nil.
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return nil
	}
	return s.rec.User
}

func (s *Store) Tokens() *models.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return nil
	}
	return s.rec.Tokens
}

// SetCurrentUser persists and then installs the new identity. When the cache
// write fails nothing changes.
func (s *Store) SetCurrentUser(ctx context.Context, user *models.User, tokens *models.TokenPair) error {
	if user == nil {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &Record{User: user, Tokens: tokens}
	if err := s.persist(ctx, rec); err != nil {
		return err
	}
	s.rec = rec
	return nil
}

// UpdateTokens swaps the token pair of the current session. It is a no-op
// with no user, so a late refresh cannot resurrect a cleared session.
func (s *Store) UpdateTokens(ctx context.Context, tokens *models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil
	}
	rec := &Record{User: s.rec.User, Tokens: tokens}
	if err := s.persist(ctx, rec); err != nil {
		return err
	}
	s.rec = rec
	return nil
}

// Clear empties memory unconditionally and deletes the cache entry. The
// returned error only concerns the cache.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	if err := s.repo.Delete(ctx, common.SessionCacheKey); err != nil {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}

// Forget empties memory and leaves the cache entry for the next start.
func (s *Store) Forget() {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
}

func (s *Store) persist(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.repo.Set(ctx, common.SessionCacheKey, raw); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

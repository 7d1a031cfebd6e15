// Package session persists the access token and the signed-in user's profile
// across process invocations.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taskctl/internal/logging"
	"taskctl/internal/service"
)

// Fixed backend keys.
const (
	TokenKey = "accessToken"
	UserKey  = "currentUser"
)

// OpTimeout bounds each backend operation.
const OpTimeout = 3 * time.Second

// ErrEmptyToken is returned when storing an empty token.
var ErrEmptyToken = errors.New("session: empty token")

// Store holds at most one token and one cached profile.
// Read failures are reported to the logger and treated as absent.
type Store struct {
	backend Backend
	log     *slog.Logger
}

// NewStore returns a store over backend. A nil logger discards diagnostics.
func NewStore(backend Backend, log *slog.Logger) *Store {
	return &Store{backend: backend, log: logging.OrDiscard(log)}
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), OpTimeout)
}

// SetToken replaces the stored token.
func (s *Store) SetToken(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	ctx, cancel := opContext()
	defer cancel()
	if err := s.backend.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Token returns the stored token.
func (s *Store) Token() (string, bool) {
	ctx, cancel := opContext()
	defer cancel()
	v, ok, err := s.backend.Get(ctx, TokenKey)
	if err != nil {
		s.log.Warn("session token unreadable", "error", err)
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// SetUser caches the signed-in user's profile.
func (s *Store) SetUser(u service.UserProfile) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()
	if err := s.backend.Set(ctx, UserKey, string(data)); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// User returns the cached profile. Corrupted data is discarded and reported
// as absent.
func (s *Store) User() (service.UserProfile, bool) {
	ctx, cancel := opContext()
	defer cancel()
	v, ok, err := s.backend.Get(ctx, UserKey)
	if err != nil {
		s.log.Warn("session profile unreadable", "error", err)
		return service.UserProfile{}, false
	}
	if !ok {
		return service.UserProfile{}, false
	}

	var u service.UserProfile
	if err := json.Unmarshal([]byte(v), &u); err != nil || u.ID == "" {
		if err == nil {
			err = errors.New("profile has no id")
		}
		s.log.Warn("discarding corrupted session profile", "error", err)
		if derr := s.backend.Delete(ctx, UserKey); derr != nil {
			s.log.Warn("failed to discard session profile", "error", derr)
		}
		return service.UserProfile{}, false
	}
	return u, true
}

// Clear removes the token and the profile. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	ctx, cancel := opContext()
	defer cancel()
	if err := s.backend.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

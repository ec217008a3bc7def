// Package session owns the authentication token lifecycle.
//
// The store is the single source of truth for authenticated-vs-anonymous
// mode. It transitions Anonymous -> Authenticated on a successful login and
// back on logout or on the first unauthorized response. Startup is
// optimistic: a persisted token means Authenticated until the server says
// otherwise.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"tdsync/internal/config"
	"tdsync/internal/service"
)

// ErrAnonymous is returned by Token when no session exists.
var ErrAnonymous = errors.New("not logged in")

// Store holds the current session. It implements oauth2.TokenSource so the
// backend can attach the bearer token to every request.
type Store struct {
	mu    sync.Mutex
	cfg   *config.Config
	token *oauth2.Token
	email string
}

// Load creates a Store, reading the persisted token if one exists.
// A corrupt token file is treated as Anonymous.
func Load(cfg *config.Config) *Store {
	s := &Store{cfg: cfg}
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return s
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil || tok.AccessToken == "" {
		return s
	}
	s.token = &tok
	s.email, _ = parseClaims(tok.AccessToken)
	return s
}

// Authenticated reports whether a session token is held.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil
}

// Email returns the account email derived from the token claims.
// Empty when anonymous or when the token carries no subject.
func (s *Store) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// ExpiresAt returns the token expiry from its claims, zero if unknown.
func (s *Store) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return time.Time{}
	}
	_, exp := parseClaims(s.token.AccessToken)
	return exp
}

// Token implements oauth2.TokenSource. Returns ErrAnonymous when no
// session exists; validity is confirmed by the server, not pre-checked.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, ErrAnonymous
	}
	return s.token, nil
}

// Login exchanges credentials for a token via the gateway, persists it and
// transitions to Authenticated. On failure the store stays Anonymous.
func (s *Store) Login(ctx context.Context, svc service.Service, email, password string) error {
	raw, err := svc.Login(ctx, email, password)
	if err != nil {
		return err
	}

	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if sub, exp := parseClaims(raw); !exp.IsZero() {
		tok.Expiry = exp
		if sub != "" {
			email = sub
		}
	}

	if err := s.cfg.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := saveToken(s.cfg.TokenPath(), tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	s.mu.Lock()
	s.token = tok
	s.email = email
	s.mu.Unlock()
	return nil
}

// Register requests account creation. It never authenticates; callers
// route the user to login on success.
func (s *Store) Register(ctx context.Context, svc service.Service, email, password string) error {
	return svc.Register(ctx, email, password)
}

// CurrentUser confirms the token server-side. An unauthorized response
// triggers exactly one logout (logout is idempotent).
func (s *Store) CurrentUser(ctx context.Context, svc service.Service) (service.User, error) {
	user, err := svc.CurrentUser(ctx)
	if err != nil {
		if service.IsUnauthorized(err) {
			s.Logout()
		}
		return service.User{}, err
	}
	return user, nil
}

// Logout clears the persisted token and transitions to Anonymous.
// Idempotent: calling it while already Anonymous is a no-op.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.token = nil
	s.email = ""
	s.mu.Unlock()

	if err := s.cfg.RemoveToken(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// parseClaims extracts the subject and expiry from a JWT access token
// without verifying the signature. Opaque tokens yield zero values.
func parseClaims(raw string) (string, time.Time) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return "", time.Time{}
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return claims.Subject, exp
}

// saveToken writes the token file with mode 0600.
func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

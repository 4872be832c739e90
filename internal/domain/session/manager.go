package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const CookieName = "auth-storage"

// Manager owns the session lifecycle: Create on login, Resolve per request,
// Destroy on logout. A nil Store makes sessions stateless.
type Manager struct {
	secret     string
	ttl        time.Duration
	store      Store
	secure     bool
	cookieName string
}

type Option func(*Manager)

// WithSecureCookie marks the cookie mirror Secure (production).
func WithSecureCookie(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

func NewManager(secret string, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{secret: secret, ttl: ttl, cookieName: CookieName}
	if m.ttl <= 0 {
		m.ttl = 8 * time.Hour
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a session and its signed credential without touching any transport.
func (m *Manager) Issue(ctx context.Context, subject Subject) (*Session, error) {
	if subject.Identifier == "" || !subject.Rank.Valid() {
		return nil, fmt.Errorf("issue session: %w", ErrMalformed)
	}
	s := &Session{
		ID:        uuid.NewString(),
		Subject:   subject,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	token, err := GenerateToken(m.secret, claimsFor(s), m.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	s.Token = token

	if m.store != nil {
		rec := Record{ID: HashID(s.ID), Identifier: subject.Identifier, ExpiresAt: s.ExpiresAt}
		if err := m.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("store session: %w", err)
		}
	}
	return s, nil
}

// Create issues a session and writes the cookie mirror.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, subject Subject) (*Session, error) {
	s, err := m.Issue(ctx, subject)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.Token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Destroy revokes the request's session, if any, and always clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(1, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if m.store == nil {
		return nil
	}
	s, err := m.Resolve(ctx, r)
	if err != nil {
		return nil
	}
	if err := m.store.Revoke(ctx, HashID(s.ID)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Resolve decodes the request's credential. It only ever fails with an error
// wrapping ErrMissing or ErrMalformed, including when decoding panics.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (s *Session, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s = nil
			err = fmt.Errorf("%w: %v", ErrMalformed, rec)
		}
	}()

	raw := m.credential(r)
	if raw == "" {
		return nil, ErrMissing
	}
	claims, err := ParseToken(m.secret, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	s, err = sessionFromClaims(claims, raw)
	if err != nil {
		return nil, err
	}

	if m.store != nil {
		active, err := m.store.Active(ctx, HashID(s.ID))
		if err != nil {
			return nil, fmt.Errorf("%w: session lookup: %v", ErrMalformed, err)
		}
		if !active {
			return nil, fmt.Errorf("%w: session revoked or expired", ErrMalformed)
		}
	}
	return s, nil
}

// credential prefers the cookie mirror and falls back to a bearer token.
func (m *Manager) credential(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Refresh swaps the request's live session for a new one with a fresh expiry.
// The old credential is revoked, so a leaked token stops working at rotation.
func (m *Manager) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	old, err := m.Resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	s, err := m.Create(ctx, w, old.Subject)
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.Revoke(ctx, HashID(old.ID)); err != nil {
			return nil, fmt.Errorf("revoke session: %w", err)
		}
	}
	return s, nil
}

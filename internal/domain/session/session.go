package session

import (
	"context"
	"errors"
	"time"

	"rhportal/internal/domain/access"
)

var (
	// ErrMissing means no credential was presented, or it says the caller is signed out.
	ErrMissing = errors.New("session credential missing")
	// ErrMalformed covers credentials that cannot be trusted: undecodable, badly
	// signed, expired, revoked, or carrying an invalid rank.
	ErrMalformed = errors.New("session credential malformed")
)

// Subject is the authenticated actor.
type Subject struct {
	Identifier  string      `json:"identifier"`
	DisplayName string      `json:"displayName,omitempty"`
	Rank        access.Rank `json:"rank"`
}

// Session is the live authenticated context of one subject, from login to logout.
type Session struct {
	ID        string
	Subject   Subject
	Token     string
	ExpiresAt time.Time
}

// Record is the server-side copy of a session.
type Record struct {
	ID         string
	Identifier string
	ExpiresAt  time.Time
}

// Store keeps server-side session records so logout can invalidate a
// credential before it expires. Implementations receive the hashed id.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Active(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string) error
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// RankFrom is the subject's rank, or access.NoRank when there is no session.
func RankFrom(ctx context.Context) access.Rank {
	if s, ok := FromContext(ctx); ok {
		return s.Subject.Rank
	}
	return access.NoRank
}

package middleware

import (
	"context"
	"errors"
	"net/http"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/session"
)

// SessionResolver decodes the caller's credential. Implementations report
// failures as session.ErrMissing or session.ErrMalformed.
type SessionResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*session.Session, error)
}

// resolve never panics and never returns an error outside the two sentinels.
func resolve(sessions SessionResolver, r *http.Request) (s *session.Session, cred access.Credential) {
	defer func() {
		if rec := recover(); rec != nil {
			s, cred = nil, access.CredentialMalformed
		}
	}()

	s, err := sessions.Resolve(r.Context(), r)
	switch {
	case err == nil && s != nil && s.Subject.Rank.Valid():
		return s, access.CredentialValid
	case err == nil, errors.Is(err, session.ErrMalformed):
		return nil, access.CredentialMalformed
	case errors.Is(err, session.ErrMissing):
		return nil, access.CredentialAbsent
	default:
		return nil, access.CredentialMalformed
	}
}

// Auth attaches the caller's session to the context when one resolves, and
// the credential state in every case. It never rejects a request; gates
// further down decide.
func Auth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, cred := resolve(sessions, r)
			ctx := withCredential(r.Context(), cred)
			if cred == access.CredentialValid {
				ctx = session.NewContext(ctx, s)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type credentialKey struct{}

func withCredential(ctx context.Context, cred access.Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, cred)
}

// GetCredential reports what Auth or RouteAccess found on the request.
// Requests that passed through neither count as absent.
func GetCredential(ctx context.Context) access.Credential {
	if cred, ok := ctx.Value(credentialKey{}).(access.Credential); ok {
		return cred
	}
	return access.CredentialAbsent
}

func GetSession(ctx context.Context) (*session.Session, bool) {
	return session.FromContext(ctx)
}

// describeRank is used in denial messages.
func describeRank(r access.Rank) string {
	if !r.Valid() {
		return "none"
	}
	return r.String()
}

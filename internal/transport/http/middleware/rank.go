package middleware

import (
	"net/http"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/session"
	"rhportal/internal/transport/http/api"
)

// RequireRank gates JSON routes: 401 without a session, 403 below required.
func RequireRank(required access.Rank) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := session.FromContext(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if err := access.Check(s.Subject.Rank, required); err != nil {
				api.Fail(w, http.StatusForbidden, "insufficient_rank",
					"rank "+describeRank(s.Subject.Rank)+" is below required rank "+describeRank(required),
					GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

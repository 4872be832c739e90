package middleware

import (
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/audit"
	"rhportal/internal/domain/session"
	"rhportal/internal/platform/metrics"
	"rhportal/internal/platform/requestctx"
)

type routeAccess struct {
	policy   *access.Policy
	sessions SessionResolver
	log      *zap.Logger
	metrics  *metrics.Collector
	auditor  audit.Recorder
}

type AccessOption func(*routeAccess)

func WithAccessLogger(log *zap.Logger) AccessOption {
	return func(ra *routeAccess) {
		if log != nil {
			ra.log = log
		}
	}
}

func WithAccessMetrics(m *metrics.Collector) AccessOption {
	return func(ra *routeAccess) {
		ra.metrics = m
	}
}

// WithAuditor records redirects caused by insufficient rank.
func WithAuditor(rec audit.Recorder) AccessOption {
	return func(ra *routeAccess) {
		ra.auditor = rec
	}
}

// RouteAccess is the authoritative page gate. Every request ends in exactly
// one of: pass through, redirect to login, redirect to the default page.
// It never answers with an error status.
func RouteAccess(policy *access.Policy, sessions SessionResolver, opts ...AccessOption) func(http.Handler) http.Handler {
	ra := &routeAccess{policy: policy, sessions: sessions, log: zap.NewNop()}
	for _, opt := range opts {
		opt(ra)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, cred := resolve(ra.sessions, r)
			rank := access.NoRank
			actor := ""
			if s != nil {
				rank = s.Subject.Rank
				actor = s.Subject.Identifier
			}

			clean := CanonicalPath(r.URL.Path)
			d := ra.policy.Decide(clean, cred, rank)
			noteDecision(r.Context(), d, actor)
			ra.metrics.Decision(d.Outcome.String(), d.Credential.String())

			switch d.Outcome {
			case access.RedirectLogin:
				if cred == access.CredentialMalformed {
					ra.log.Debug("malformed credential", zap.String("path", r.URL.Path), zap.String("requestId", GetRequestID(r.Context())))
				}
				redirect(w, r, d.Location)
				return
			case access.RedirectDefault:
				ra.recordDenial(r, clean, d, actor)
				redirect(w, r, d.Location)
				return
			}
			if clean != r.URL.Path {
				target := clean
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				redirect(w, r, target)
				return
			}

			ctx := withCredential(r.Context(), cred)
			if s != nil {
				ctx = session.NewContext(ctx, s)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (ra *routeAccess) recordDenial(r *http.Request, path string, d access.Decision, actor string) {
	if ra.auditor == nil {
		return
	}
	evt := audit.Event{
		Actor:     actor,
		Action:    audit.ActionAccessDenied,
		Path:      path,
		Outcome:   d.Outcome.String(),
		RequestID: GetRequestID(r.Context()),
		IP:        requestctx.GetClientIP(r.Context()),
	}
	detail := map[string]string{"subjectRank": d.SubjectRank.String(), "requiredRank": d.RequiredRank.String()}
	if err := ra.auditor.Record(r.Context(), evt, detail); err != nil {
		ra.log.Warn("audit record failed", zap.String("action", evt.Action), zap.Error(err))
	}
}

// redirect uses 303 after non-idempotent methods so the follow-up is a GET.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	status := http.StatusFound
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, location, status)
}

// CanonicalPath resolves dot segments and repeated slashes, so the gate decides
// on the same path the handlers serve.
func CanonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	clean := path.Clean(p)
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	return clean
}

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/platform/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

type decisionSlot struct {
	decision *access.Decision
	actor    string
}

type decisionKey struct{}

// noteDecision lets RouteAccess hand its decision back to the request log line.
func noteDecision(ctx context.Context, d access.Decision, actor string) {
	if slot, ok := ctx.Value(decisionKey{}).(*decisionSlot); ok {
		slot.decision = &d
		slot.actor = actor
	}
}

// Logger writes one structured line per request and feeds the request metrics.
func Logger(log *zap.Logger, m *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			slot := &decisionSlot{}
			r = r.WithContext(context.WithValue(r.Context(), decisionKey{}, slot))
			next.ServeHTTP(recorder, r)

			duration := time.Since(start)
			route := routePattern(r)
			m.Record(route, r.Method, recorder.status, duration)

			fields := []zap.Field{
				zap.String("requestId", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", recorder.status),
				zap.Duration("duration", duration),
			}
			if slot.decision != nil {
				fields = append(fields,
					zap.String("decision", slot.decision.Outcome.String()),
					zap.String("credential", slot.decision.Credential.String()),
					zap.Stringer("requiredRank", slot.decision.RequiredRank),
				)
			}
			if slot.actor != "" {
				fields = append(fields, zap.String("actor", slot.actor))
			}
			log.Info("request", fields...)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

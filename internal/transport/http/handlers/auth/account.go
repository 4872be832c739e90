package authhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/audit"
	"rhportal/internal/domain/identity"
	"rhportal/internal/domain/session"
	"rhportal/internal/platform/requestctx"
	"rhportal/internal/transport/http/api"
	"rhportal/internal/transport/http/middleware"
)

type SecondFactorEnroller interface {
	Begin(ctx context.Context, identifier string) (identity.Enrollment, error)
	Confirm(ctx context.Context, identifier, code string) error
	Disable(ctx context.Context, identifier, code string) error
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

type refreshResponse struct {
	Token       string          `json:"token"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	User        session.Subject `json:"user"`
	LandingPath string          `json:"landingPath"`
}

// RegisterAccount mounts the endpoints that act on the caller's own session
// and second factor. It expects middleware.Auth upstream.
func (h *Handler) RegisterAccount(r chi.Router) {
	r.Post("/auth/refresh", h.HandleRefresh)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRank(access.MinRank))
		r.Post("/auth/mfa/setup", h.HandleMFASetup)
		r.Post("/auth/mfa/enable", h.HandleMFAEnable)
		r.Post("/auth/mfa/disable", h.HandleMFADisable)
	})
}

// HandleRefresh rotates a live session. The subject and rank carry over; a
// revoked or forged credential gets 401 and nothing is issued.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Refresh(r.Context(), w, r)
	if err != nil {
		if errors.Is(err, session.ErrMissing) || errors.Is(err, session.ErrMalformed) {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", requestctx.GetRequestID(r.Context()))
			return
		}
		h.Log.Error("refresh session failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to rotate session", requestctx.GetRequestID(r.Context()))
		return
	}
	h.recordAt(r.Context(), r.URL.Path, audit.ActionSessionRefresh, s.Subject.Identifier, "success", nil)
	api.Success(w, refreshResponse{
		Token:       s.Token,
		ExpiresAt:   s.ExpiresAt,
		User:        s.Subject,
		LandingPath: h.Policy.LandingPath(s.Subject.Rank),
	}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	s, ok := h.mfaSubject(w, r)
	if !ok {
		return
	}
	enrollment, err := h.SecondFactors.Begin(r.Context(), s.Subject.Identifier)
	if err != nil {
		h.mfaFail(w, r, "mfa_setup_failed", err)
		return
	}
	api.Success(w, enrollment, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	s, ok := h.mfaSubject(w, r)
	if !ok {
		return
	}
	payload, ok := decodeCode(w, r)
	if !ok {
		return
	}
	if err := h.SecondFactors.Confirm(r.Context(), s.Subject.Identifier, payload.Code); err != nil {
		h.mfaFail(w, r, "mfa_enable_failed", err)
		return
	}
	h.recordAt(r.Context(), r.URL.Path, audit.ActionTOTPEnabled, s.Subject.Identifier, "success", nil)
	api.Success(w, map[string]string{"status": "enabled"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	s, ok := h.mfaSubject(w, r)
	if !ok {
		return
	}
	payload, ok := decodeCode(w, r)
	if !ok {
		return
	}
	if err := h.SecondFactors.Disable(r.Context(), s.Subject.Identifier, payload.Code); err != nil {
		h.mfaFail(w, r, "mfa_disable_failed", err)
		return
	}
	h.recordAt(r.Context(), r.URL.Path, audit.ActionTOTPDisabled, s.Subject.Identifier, "success", nil)
	api.Success(w, map[string]string{"status": "disabled"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) mfaSubject(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
		return nil, false
	}
	if h.SecondFactors == nil {
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", requestctx.GetRequestID(r.Context()))
		return nil, false
	}
	return s, true
}

func decodeCode(w http.ResponseWriter, r *http.Request) (mfaCodeRequest, bool) {
	var payload mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return payload, false
	}
	return payload, true
}

func (h *Handler) mfaFail(w http.ResponseWriter, r *http.Request, fallback string, err error) {
	reqID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, identity.ErrSecondFactorUnavailable):
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", reqID)
	case errors.Is(err, identity.ErrSecondFactorActive):
		api.Fail(w, http.StatusConflict, "mfa_active", "mfa already enabled", reqID)
	case errors.Is(err, identity.ErrSecondFactorMissing):
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", reqID)
	case errors.Is(err, identity.ErrInvalidCode):
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", reqID)
	default:
		h.Log.Error("second factor update failed", zap.String("path", r.URL.Path), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, fallback, "mfa update failed", reqID)
	}
}

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
	"rhportal/internal/platform/metrics"
	"rhportal/internal/platform/requestctx"
	"rhportal/internal/transport/http/api"
	"rhportal/internal/transport/http/view"
)

const (
	msgInvalidCredentials = "Credenciais inválidas"
	msgCodeRequired       = "Informe o código de verificação"
	msgLoginUnavailable   = "Não foi possível entrar agora. Tente novamente."
)

type Handler struct {
	Identity      identity.Authenticator
	SecondFactors SecondFactorEnroller
	Sessions      *session.Manager
	Policy        *access.Policy
	View          *view.Renderer
	Audit         audit.Recorder
	Metrics       *metrics.Collector
	Log           *zap.Logger
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
	Code       string `json:"code"`
}

type loginResponse struct {
	Token       string            `json:"token"`
	ExpiresAt   time.Time         `json:"expiresAt"`
	User        identity.Identity `json:"user"`
	LandingPath string            `json:"landingPath"`
}

// RegisterPages mounts the HTML login form. It belongs behind RouteAccess.
func (h *Handler) RegisterPages(r chi.Router) {
	r.Get(h.Policy.LoginPath, h.HandleLoginForm)
	r.Post(h.Policy.LoginPath, h.HandleLogin)
}

func (h *Handler) RegisterAPI(r chi.Router) {
	r.Post("/auth/login", h.HandleAPILogin)
	r.Post("/auth/logout", h.HandleAPILogout)
}

func (h *Handler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, h.Policy.LandingPath(s.Subject.Rank), http.StatusFound)
		return
	}
	h.renderLogin(w, r, http.StatusOK, view.Login{})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, view.Login{Error: msgInvalidCredentials})
		return
	}
	creds := identity.Credentials{
		Identifier: r.PostForm.Get("matricula"),
		Secret:     r.PostForm.Get("senha"),
		Code:       r.PostForm.Get("codigo"),
	}

	id, err := h.authenticate(r, creds)
	if err != nil {
		form := view.Login{Identifier: creds.Identifier}
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, identity.ErrCodeRequired):
			form.Error, form.CodeRequired = msgCodeRequired, true
		case errors.Is(err, identity.ErrInvalidCredentials):
			form.Error = msgInvalidCredentials
		default:
			form.Error, status = msgLoginUnavailable, http.StatusInternalServerError
		}
		h.renderLogin(w, r, status, form)
		return
	}

	if _, err := h.Sessions.Create(r.Context(), w, subjectOf(id)); err != nil {
		h.Log.Error("create session failed", zap.String("identifier", id.Identifier), zap.Error(err))
		h.renderLogin(w, r, http.StatusInternalServerError, view.Login{Identifier: creds.Identifier, Error: msgLoginUnavailable})
		return
	}
	http.Redirect(w, r, h.Policy.LandingPath(id.Rank), http.StatusSeeOther)
}

// HandleLogout always ends signed out, whatever state the credential was in.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.destroy(w, r)
	http.Redirect(w, r, h.Policy.LoginPath, http.StatusSeeOther)
}

func (h *Handler) HandleAPILogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	id, err := h.authenticate(r, identity.Credentials{Identifier: payload.Identifier, Secret: payload.Secret, Code: payload.Code})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrCodeRequired):
			api.Fail(w, http.StatusUnauthorized, "code_required", "second factor code required", requestctx.GetRequestID(r.Context()))
		case errors.Is(err, identity.ErrInvalidCredentials):
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestctx.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "login_failed", "login unavailable", requestctx.GetRequestID(r.Context()))
		}
		return
	}

	s, err := h.Sessions.Create(r.Context(), w, subjectOf(id))
	if err != nil {
		h.Log.Error("create session failed", zap.String("identifier", id.Identifier), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to start session", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, loginResponse{
		Token:       s.Token,
		ExpiresAt:   s.ExpiresAt,
		User:        id,
		LandingPath: h.Policy.LandingPath(id.Rank),
	}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleAPILogout(w http.ResponseWriter, r *http.Request) {
	h.destroy(w, r)
	api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
}

// authenticate runs the identity check and records the attempt.
func (h *Handler) authenticate(r *http.Request, creds identity.Credentials) (identity.Identity, error) {
	id, err := h.Identity.Authenticate(r.Context(), creds)
	actor := identity.NormalizeIdentifier(creds.Identifier)
	switch {
	case err == nil:
		h.Metrics.Login("success")
		h.record(r.Context(), audit.ActionLoginSucceeded, id.Identifier, "success", map[string]string{"rank": id.Rank.String()})
	case errors.Is(err, identity.ErrCodeRequired):
		h.Metrics.Login("code_required")
	case errors.Is(err, identity.ErrInvalidCredentials):
		h.Metrics.Login("failure")
		h.record(r.Context(), audit.ActionLoginFailed, actor, "failure", nil)
	default:
		h.Metrics.Login("error")
		h.Log.Error("authenticate failed", zap.String("identifier", actor), zap.Error(err))
	}
	return id, err
}

func (h *Handler) destroy(w http.ResponseWriter, r *http.Request) {
	actor := ""
	if s, err := h.Sessions.Resolve(r.Context(), r); err == nil {
		actor = s.Subject.Identifier
	}
	if err := h.Sessions.Destroy(r.Context(), w, r); err != nil {
		h.Log.Warn("destroy session failed", zap.Error(err))
	}
	if actor != "" {
		h.record(r.Context(), audit.ActionLogout, actor, "success", nil)
	}
}

func (h *Handler) record(ctx context.Context, action, actor, outcome string, detail any) {
	h.recordAt(ctx, h.Policy.LoginPath, action, actor, outcome, detail)
}

func (h *Handler) recordAt(ctx context.Context, path, action, actor, outcome string, detail any) {
	if h.Audit == nil {
		return
	}
	evt := audit.Event{
		Actor:     actor,
		Action:    action,
		Path:      path,
		Outcome:   outcome,
		RequestID: requestctx.GetRequestID(ctx),
		IP:        requestctx.GetClientIP(ctx),
	}
	if err := h.Audit.Record(ctx, evt, detail); err != nil {
		h.Log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, form view.Login) {
	if err := h.View.Login(w, status, form); err != nil {
		h.Log.Error("render login failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func subjectOf(id identity.Identity) session.Subject {
	return session.Subject{Identifier: id.Identifier, DisplayName: id.DisplayName, Rank: id.Rank}
}

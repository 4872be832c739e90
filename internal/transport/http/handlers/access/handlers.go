package accesshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/session"
	"rhportal/internal/transport/http/api"
	"rhportal/internal/transport/http/middleware"
)

type Handler struct {
	Policy *access.Policy
}

func NewHandler(policy *access.Policy) *Handler {
	return &Handler{Policy: policy}
}

type meResponse struct {
	User             session.Subject `json:"user"`
	LandingPath      string          `json:"landingPath"`
	Navigation       []access.Entry  `json:"navigation"`
	PermittedActions []string        `json:"permittedActions"`
}

type checkResponse struct {
	Path         string      `json:"path"`
	Outcome      string      `json:"outcome"`
	Location     string      `json:"location,omitempty"`
	Credential   string      `json:"credential"`
	SubjectRank  access.Rank `json:"subjectRank"`
	RequiredRank access.Rank `json:"requiredRank"`
	Public       bool        `json:"public"`
}

// RegisterRoutes expects middleware.Auth to run in front.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRank(access.MinRank)).Get("/me", h.handleMe)
	r.With(middleware.RequireRank(access.MinRank)).Get("/navigation", h.handleNavigation)
	r.Get("/access/check", h.handleCheck)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	rank := s.Subject.Rank
	api.Success(w, meResponse{
		User:             s.Subject,
		LandingPath:      h.Policy.LandingPath(rank),
		Navigation:       h.Policy.NavigationFor(rank),
		PermittedActions: h.Policy.PermittedActions(rank),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	nav := h.Policy.NavigationFor(session.RankFrom(r.Context()))
	api.Success(w, nav, middleware.GetRequestID(r.Context()))
}

// handleCheck answers what the page router would do with the caller on path,
// without following it.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" || path[0] != '/' {
		api.Fail(w, http.StatusBadRequest, "invalid_path", "path must be absolute", middleware.GetRequestID(r.Context()))
		return
	}
	path = middleware.CanonicalPath(path)

	cred, rank := middleware.GetCredential(r.Context()), access.NoRank
	if s, ok := session.FromContext(r.Context()); ok {
		cred, rank = access.CredentialValid, s.Subject.Rank
	}
	d := h.Policy.Decide(path, cred, rank)
	api.Success(w, checkResponse{
		Path:         path,
		Outcome:      d.Outcome.String(),
		Location:     d.Location,
		Credential:   d.Credential.String(),
		SubjectRank:  d.SubjectRank,
		RequiredRank: h.Policy.RequiredRank(path),
		Public:       h.Policy.IsPublic(path),
	}, middleware.GetRequestID(r.Context()))
}

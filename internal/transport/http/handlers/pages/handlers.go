package pageshandler

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/session"
	"rhportal/internal/transport/http/view"
)

const approveVacations = "ferias.aprovar"

type Handler struct {
	Policy *access.Policy
	View   *view.Renderer
	Log    *zap.Logger
}

func NewHandler(policy *access.Policy, renderer *view.Renderer, log *zap.Logger) *Handler {
	return &Handler{Policy: policy, View: renderer, Log: log}
}

// RegisterRoutes mounts the portal pages. They expect RouteAccess in front.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleHome)
	r.Get("/dashboard", h.HandleDashboard)
	r.Get("/ferias", h.HandleVacations)
	r.Get("/*", h.HandleSection)
}

// HandleHome sends the visitor to the page for their rank, or to login.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	target := h.Policy.LandingPath(session.RankFrom(r.Context()))
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	page, ok := h.basePage(w, r)
	if !ok {
		return
	}
	page.Dashboard = dashboardFor(page.Subject.Rank)
	h.render(w, r, page)
}

func (h *Handler) HandleVacations(w http.ResponseWriter, r *http.Request) {
	page, ok := h.basePage(w, r)
	if !ok {
		return
	}
	rank := page.Subject.Rank
	page.Vacations = &view.Vacations{
		CanRequest: h.Policy.CanPerform(rank, "ferias.solicitar"),
		Approvals: view.NewGuard(rank, h.requiredFor(approveVacations)).
			WithFallback(`<p class="hint">As aprovações de férias ficam com a gestão de RH.</p>`),
	}
	h.render(w, r, page)
}

func (h *Handler) HandleSection(w http.ResponseWriter, r *http.Request) {
	page, ok := h.basePage(w, r)
	if !ok {
		return
	}
	h.render(w, r, page)
}

// basePage resolves the navigation section for the request path and wraps it
// in a guard at the stricter of the section's and the path's route rank.
// Unknown paths are 404.
func (h *Handler) basePage(w http.ResponseWriter, r *http.Request) (view.Page, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, h.Policy.LoginPath, http.StatusFound)
		return view.Page{}, false
	}
	clean := path.Clean("/" + r.URL.Path)
	section, found := h.lookupSection(clean)
	if !found {
		http.NotFound(w, r)
		return view.Page{}, false
	}

	rank := s.Subject.Rank
	return view.Page{
		Title:      section.Title,
		Subject:    s.Subject,
		Navigation: h.Policy.NavigationFor(rank),
		ActivePath: section.Path,
		Guard:      view.NewGuard(rank, h.requiredForPage(clean, section)),
		Section:    section,
		Actions:    sectionActions(h.Policy.PermittedActions(rank), section.Path),
	}, true
}

// lookupSection finds the entry or child for p, walking up one segment at a
// time so deeper links still land on their section.
func (h *Handler) lookupSection(p string) (access.Entry, bool) {
	for current := path.Clean(p); current != "/" && current != "."; current = path.Dir(current) {
		for _, entry := range h.Policy.Navigation {
			if entry.Path == current {
				return entry, true
			}
			for _, child := range entry.Children {
				if child.Path == current {
					return child, true
				}
			}
		}
	}
	return access.Entry{}, false
}

func (h *Handler) requiredForPage(clean string, section access.Entry) access.Rank {
	required := h.Policy.RequiredRank(section.Path)
	if byPath := h.Policy.RequiredRank(clean); byPath > required {
		required = byPath
	}
	if section.RequiredRank > required {
		required = section.RequiredRank
	}
	return required
}

func (h *Handler) requiredFor(action string) access.Rank {
	if required, ok := h.Policy.Actions[action]; ok {
		return required
	}
	return access.MaxRank
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page view.Page) {
	if err := h.View.Page(w, http.StatusOK, page); err != nil {
		h.Log.Error("render page failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// sectionActions keeps the permitted actions named after the section's first
// path segment, e.g. "ferias.*" on /ferias/calendario.
func sectionActions(permitted []string, sectionPath string) []string {
	segment := strings.SplitN(strings.TrimPrefix(sectionPath, "/"), "/", 2)[0]
	if segment == "" {
		return nil
	}
	var out []string
	for _, action := range permitted {
		if strings.HasPrefix(action, segment+".") {
			out = append(out, action)
		}
	}
	return out
}

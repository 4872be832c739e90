package view

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Guard is the advisory, in-page counterpart of the route middleware: a
// region that renders only when the subject holds RequiredRank, and
// otherwise shows Fallback or the default denial panel.
type Guard struct {
	SubjectRank  access.Rank
	RequiredRank access.Rank
	Fallback     template.HTML
}

func NewGuard(subject, required access.Rank) Guard {
	return Guard{SubjectRank: subject, RequiredRank: required}
}

func (g Guard) WithFallback(fallback template.HTML) Guard {
	g.Fallback = fallback
	return g
}

func (g Guard) Allowed() bool {
	return access.Allowed(g.SubjectRank, g.RequiredRank)
}

type Link struct {
	Title string
	Href  string
}

type Dashboard struct {
	Heading      string
	Subheading   string
	QuickActions []Link
	// Management sections shown below the quick actions.
	Management Guard
	Executive  Guard
}

type Vacations struct {
	CanRequest bool
	Approvals  Guard
}

// Page is one screen inside the portal layout.
type Page struct {
	Title      string
	Subject    session.Subject
	Navigation []access.Entry
	ActivePath string
	Guard      Guard
	Section    access.Entry
	Actions    []string
	Dashboard  *Dashboard
	Vacations  *Vacations
}

type Login struct {
	Identifier   string
	Error        string
	CodeRequired bool
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("rhportal").Funcs(template.FuncMap{
		"rankLabel": rankLabel,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Page(w http.ResponseWriter, status int, page Page) error {
	return r.render(w, status, "page", page)
}

func (r *Renderer) Login(w http.ResponseWriter, status int, login Login) error {
	return r.render(w, status, "login", login)
}

// render buffers so a template error never leaves a half-written page.
func (r *Renderer) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func rankLabel(r access.Rank) string {
	if !r.Valid() {
		return "nenhum"
	}
	return r.String()
}

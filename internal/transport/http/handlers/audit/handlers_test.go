package audithandler

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/audit"
	"rhportal/internal/domain/session"
	"rhportal/internal/transport/http/middleware"
)

type fakeLister struct {
	events    []audit.Event
	err       error
	gotFilter audit.Filter
	gotLimit  int
	gotOffset int
}

func (f *fakeLister) List(_ context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	f.gotFilter, f.gotLimit, f.gotOffset = filter, limit, offset
	return f.events, f.err
}

func setup(t *testing.T, lister *fakeLister) (http.Handler, *session.Manager) {
	t.Helper()
	sessions := session.NewManager("audit-handler-secret", time.Hour)
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(sessions))
		NewHandler(lister, 4, zap.NewNop()).RegisterRoutes(r)
	})
	return r, sessions
}

func request(t *testing.T, h http.Handler, sessions *session.Manager, target string, rank access.Rank) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if rank != access.NoRank {
		s, err := sessions.Issue(context.Background(), session.Subject{Identifier: "admin", Rank: rank})
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.Token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListRequiresRank(t *testing.T) {
	h, sessions := setup(t, &fakeLister{})
	assert.Equal(t, http.StatusUnauthorized, request(t, h, sessions, "/api/v1/audit", access.NoRank).Code)
	assert.Equal(t, http.StatusForbidden, request(t, h, sessions, "/api/v1/audit", 3).Code)
	assert.Equal(t, http.StatusForbidden, request(t, h, sessions, "/api/v1/audit/export", 3).Code)
}

func TestListPassesFilterAndPage(t *testing.T) {
	lister := &fakeLister{events: []audit.Event{{ID: "e1", Actor: "operador", Action: audit.ActionAccessDenied, Path: "/folha"}}}
	h, sessions := setup(t, lister)

	rec := request(t, h, sessions, "/api/v1/audit?action=access.denied&actor=operador&limit=900&offset=10", 4)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path":"/folha"`)
	assert.Equal(t, audit.Filter{Action: "access.denied", Actor: "operador"}, lister.gotFilter)
	assert.Equal(t, 500, lister.gotLimit)
	assert.Equal(t, 10, lister.gotOffset)
}

func TestListFailure(t *testing.T) {
	h, sessions := setup(t, &fakeLister{err: errors.New("db down")})
	rec := request(t, h, sessions, "/api/v1/audit", 5)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "audit_list_failed")
}

func TestExportCSV(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{events: []audit.Event{
		{ID: "e1", Actor: "admin", Action: audit.ActionLoginSucceeded, Path: "/login", Outcome: "success", RequestID: "r1", IP: "10.0.0.1", CreatedAt: created},
	}}
	h, sessions := setup(t, lister)

	rec := request(t, h, sessions, "/api/v1/audit/export", 4)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "actor", rows[0][1])
	assert.Equal(t, []string{"e1", "admin", audit.ActionLoginSucceeded, "/login", "success", "r1", "10.0.0.1", "2024-03-01T12:00:00Z"}, rows[1])
	assert.Equal(t, exportLimit, lister.gotLimit)
}

func TestExportNeutralisesFormulas(t *testing.T) {
	lister := &fakeLister{events: []audit.Event{
		{ID: "e1", Actor: `=HYPERLINK("http://x","y")`, Action: audit.ActionLoginFailed, Path: "/login", RequestID: "@cmd"},
		{ID: "e2", Actor: "+55", Action: audit.ActionLoginFailed, Path: "/login", RequestID: "-1"},
	}}
	h, sessions := setup(t, lister)

	rec := request(t, h, sessions, "/api/v1/audit/export", 4)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, `'=HYPERLINK("http://x","y")`, rows[1][1])
	assert.Equal(t, "'@cmd", rows[1][5])
	assert.Equal(t, "'+55", rows[2][1])
	assert.Equal(t, "'-1", rows[2][5])
	assert.Equal(t, "/login", rows[1][3])
}

func TestCSVCell(t *testing.T) {
	assert.Equal(t, "", csvCell(""))
	assert.Equal(t, "admin", csvCell("admin"))
	assert.Equal(t, "'\tx", csvCell("\tx"))
}

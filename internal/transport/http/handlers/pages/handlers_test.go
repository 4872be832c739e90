package pageshandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/session"
	"rhportal/internal/transport/http/middleware"
	"rhportal/internal/transport/http/view"
)

type fixture struct {
	router   http.Handler
	handler  *Handler
	sessions *session.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	policy, err := access.DefaultPolicy()
	require.NoError(t, err)
	renderer, err := view.New()
	require.NoError(t, err)
	sessions := session.NewManager("pages-secret", time.Hour)
	h := NewHandler(policy, renderer, zap.NewNop())

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RouteAccess(policy, sessions))
		h.RegisterRoutes(r)
	})
	return fixture{router: r, handler: h, sessions: sessions}
}

func (f fixture) get(t *testing.T, path string, rank access.Rank) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if rank != access.NoRank {
		s, err := f.sessions.Issue(context.Background(), session.Subject{Identifier: "user", DisplayName: "Usuário Teste", Rank: rank})
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.Token})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHomeRedirectsByRank(t *testing.T) {
	f := newFixture(t)
	cases := map[access.Rank]string{
		access.NoRank: "/login",
		1:             "/ponto",
		2:             "/funcionarios",
		3:             "/funcionarios",
		4:             "/dashboard",
		5:             "/dashboard",
	}
	for rank, want := range cases {
		rec := f.get(t, "/", rank)
		assert.Equal(t, http.StatusFound, rec.Code, "rank %d", rank)
		assert.Equal(t, want, rec.Header().Get("Location"), "rank %d", rank)
	}
}

func TestDashboardContentByRank(t *testing.T) {
	f := newFixture(t)

	body := f.get(t, "/dashboard", 5).Body.String()
	assert.Contains(t, body, "Dashboard Executivo")
	assert.Contains(t, body, "Processar Folha")
	assert.Contains(t, body, "Visão executiva")

	body = f.get(t, "/dashboard", 3).Body.String()
	assert.Contains(t, body, "Dashboard RH")
	assert.Contains(t, body, "Aprovar Férias")
	assert.Contains(t, body, "Gestão de pessoas")
	assert.NotContains(t, body, "Visão executiva")

	body = f.get(t, "/dashboard", 1).Body.String()
	assert.Contains(t, body, "Meu Dashboard")
	assert.Contains(t, body, "Marcar Ponto")
	assert.NotContains(t, body, "Gestão de pessoas")
}

func TestSidebarIsFilteredByRank(t *testing.T) {
	f := newFixture(t)

	body := f.get(t, "/dashboard", 1).Body.String()
	assert.Contains(t, body, ">Ponto Eletrônico</a>")
	assert.NotContains(t, body, ">Folha de Pagamento</a>")
	assert.NotContains(t, body, ">Licenças</a>")

	body = f.get(t, "/dashboard", 4).Body.String()
	assert.Contains(t, body, ">Folha de Pagamento</a>")
	assert.Contains(t, body, ">Configurações</a>")
}

func TestVacationApprovalsColumn(t *testing.T) {
	f := newFixture(t)

	body := f.get(t, "/ferias", 3).Body.String()
	assert.Contains(t, body, "<h2>Aprovações</h2>")
	assert.Contains(t, body, "Solicitar férias")

	body = f.get(t, "/ferias", 1).Body.String()
	assert.NotContains(t, body, "<h2>Aprovações</h2>")
	assert.Contains(t, body, "As aprovações de férias ficam com a gestão de RH.")
	assert.Contains(t, body, "Solicitar férias")
}

func TestSectionPages(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/ponto/historico", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Meu Histórico</h1>")

	rec = f.get(t, "/admissao/novo/etapa-2", 3)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Novo Processo</h1>")
	assert.Contains(t, body, "admissao.iniciar")

	assert.Equal(t, http.StatusNotFound, f.get(t, "/nao-existe", 5).Code)
}

func TestMiddlewareRedirectsBeforePageGuard(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/folha/holerites", 2)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

// Without the middleware in front, the page guard still renders the denial
// panel rather than the content.
func TestPageGuardDeniesInPlace(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/folha/holerites", nil)
	ctx := session.NewContext(req.Context(), &session.Session{Subject: session.Subject{Identifier: "operador", Rank: 2}})
	rec := httptest.NewRecorder()
	f.handler.HandleSection(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Acesso Negado")
	assert.Contains(t, body, "Rank 2")
	assert.Contains(t, body, "Rank 4")
	assert.NotContains(t, body, "<h1>Holerites</h1>")
}

func TestDashboardTiers(t *testing.T) {
	assert.Equal(t, "Meu Dashboard", dashboardFor(2).Heading)
	assert.Equal(t, "Dashboard RH", dashboardFor(3).Heading)
	assert.Equal(t, "Dashboard Executivo", dashboardFor(4).Heading)
	assert.Equal(t, "Meu Dashboard", dashboardFor(access.NoRank).Heading)
}

func TestSectionActions(t *testing.T) {
	permitted := []string{"admissao.iniciar", "ferias.aprovar", "ferias.solicitar"}
	assert.Equal(t, []string{"ferias.aprovar", "ferias.solicitar"}, sectionActions(permitted, "/ferias/calendario"))
	assert.Nil(t, sectionActions(permitted, "/ponto"))
}

func TestPageGuardUsesSectionRankForDotSegments(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/ponto/../folha", "/ponto/../configuracoes/backup"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		ctx := session.NewContext(req.Context(), &session.Session{Subject: session.Subject{Identifier: "operador", Rank: 2}})
		rec := httptest.NewRecorder()
		f.handler.HandleSection(rec, req.WithContext(ctx))

		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Acesso Negado", target)
		assert.Contains(t, rec.Body.String(), "Rank 4", target)
	}
}

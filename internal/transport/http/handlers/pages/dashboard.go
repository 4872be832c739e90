package pageshandler

import (
	"rhportal/internal/domain/access"
	"rhportal/internal/transport/http/view"
)

type dashboardTier struct {
	minRank      access.Rank
	heading      string
	subheading   string
	quickActions []view.Link
}

// Ordered from the highest tier down.
var dashboardTiers = []dashboardTier{
	{
		minRank:    4,
		heading:    "Dashboard Executivo",
		subheading: "Visão executiva completa do sistema",
		quickActions: []view.Link{
			{Title: "Processar Folha", Href: "/folha"},
			{Title: "Relatório Geral", Href: "/relatorios/geral"},
			{Title: "Backup Sistema", Href: "/configuracoes/backup"},
			{Title: "Usuários", Href: "/configuracoes/usuarios"},
		},
	},
	{
		minRank:    3,
		heading:    "Dashboard RH",
		subheading: "Gestão de recursos humanos",
		quickActions: []view.Link{
			{Title: "Nova Admissão", Href: "/admissao/novo"},
			{Title: "Aprovar Férias", Href: "/ferias/aprovacoes"},
			{Title: "Relatórios RH", Href: "/relatorios"},
			{Title: "Funcionários", Href: "/funcionarios"},
		},
	},
	{
		minRank:    access.MinRank,
		heading:    "Meu Dashboard",
		subheading: "Suas informações pessoais e ações rápidas",
		quickActions: []view.Link{
			{Title: "Marcar Ponto", Href: "/ponto"},
			{Title: "Solicitar Férias", Href: "/ferias/solicitar"},
			{Title: "Meu Perfil", Href: "/funcionarios/perfil"},
			{Title: "Novo Ticket", Href: "/atendimento/novo"},
		},
	},
}

func dashboardFor(rank access.Rank) *view.Dashboard {
	tier := dashboardTiers[len(dashboardTiers)-1]
	for _, candidate := range dashboardTiers {
		if access.Allowed(rank, candidate.minRank) {
			tier = candidate
			break
		}
	}
	return &view.Dashboard{
		Heading:      tier.heading,
		Subheading:   tier.subheading,
		QuickActions: tier.quickActions,
		Management:   view.NewGuard(rank, 3),
		Executive:    view.NewGuard(rank, 4),
	}
}

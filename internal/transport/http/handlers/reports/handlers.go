package reportshandler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/reports"
	"rhportal/internal/domain/session"
	"rhportal/internal/transport/http/api"
	"rhportal/internal/transport/http/middleware"
)

const permissionsPath = "/configuracoes/permissoes.pdf"

type Handler struct {
	Policy *access.Policy
	Log    *zap.Logger
	Now    func() time.Time
}

func NewHandler(policy *access.Policy, log *zap.Logger) *Handler {
	return &Handler{Policy: policy, Log: log, Now: time.Now}
}

// RegisterRoutes mounts the report behind the page router; the action gate
// applies on top of the route gate.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(permissionsPath, h.handlePermissionsPDF)
}

func (h *Handler) handlePermissionsPDF(w http.ResponseWriter, r *http.Request) {
	rank := session.RankFrom(r.Context())
	if !h.Policy.CanPerform(rank, "configuracoes.usuarios") {
		api.Fail(w, http.StatusForbidden, "insufficient_rank", "permissions report requires a higher rank", middleware.GetRequestID(r.Context()))
		return
	}

	var buf bytes.Buffer
	if err := reports.WritePermissionsPDF(&buf, h.Policy, h.Now()); err != nil {
		h.Log.Error("permissions pdf failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=permissoes.pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Warn("permissions pdf write failed", zap.Error(err))
	}
}

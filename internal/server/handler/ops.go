package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/soumik404/basecast/internal/domain"
)

// AuditReader reads the append-only settlement audit log.
type AuditReader interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// ProjectionCounter reports projection row counts.
type ProjectionCounter interface {
	Count(ctx context.Context) (int64, error)
}

// ChainCounter reports the contract's prediction counter.
type ChainCounter interface {
	NextPredictionID(ctx context.Context) (int64, error)
}

// OpsHandler serves operator endpoints: the audit trail and projection stats.
type OpsHandler struct {
	audit  AuditReader
	counts ProjectionCounter
	chain  ChainCounter
	logger *slog.Logger
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(audit AuditReader, counts ProjectionCounter, chain ChainCounter, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{
		audit:  audit,
		counts: counts,
		chain:  chain,
		logger: logger,
	}
}

// Audit returns recent audit log entries, newest first.
// GET /api/audit?limit=50&offset=0
func (h *OpsHandler) Audit(w http.ResponseWriter, r *http.Request) {
	rows, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list audit log failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string][]domain.AuditEntry{"entries": rows})
}

// statsResponse summarises projection volume against the contract counter. A
// gap between the two is a reconciliation signal.
type statsResponse struct {
	Predictions      int64 `json:"predictions"`
	ChainPredictions int64 `json:"chain_predictions"`
}

// Stats returns the projection row count alongside the contract's own
// prediction count.
// GET /api/stats
func (h *OpsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := h.counts.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "count predictions failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	next, err := h.chain.NextPredictionID(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "read prediction counter failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Predictions:      n,
		ChainPredictions: next - 1,
	})
}

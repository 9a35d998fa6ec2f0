package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/soumik404/basecast/internal/domain"
)

// VerifierService defines what the verifier handler requires.
type VerifierService interface {
	Add(ctx context.Context, actor, addr, name string) (domain.Verifier, error)
	Remove(ctx context.Context, actor, addr string) error
	List(ctx context.Context) ([]domain.Verifier, error)
}

// VerifierHandler serves the verifier registry endpoints.
type VerifierHandler struct {
	verifiers VerifierService
	logger    *slog.Logger
}

// NewVerifierHandler creates a VerifierHandler.
func NewVerifierHandler(verifiers VerifierService, logger *slog.Logger) *VerifierHandler {
	return &VerifierHandler{
		verifiers: verifiers,
		logger:    logger,
	}
}

// listVerifiersResponse wraps the registry listing.
type listVerifiersResponse struct {
	Verifiers []domain.Verifier `json:"verifiers"`
}

// List returns the active verifier registry.
// GET /api/verifiers
func (h *VerifierHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.verifiers.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list verifiers failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list verifiers")
		return
	}
	if rows == nil {
		rows = []domain.Verifier{}
	}
	writeJSON(w, http.StatusOK, listVerifiersResponse{Verifiers: rows})
}

// addVerifierRequest is the JSON body for registering a verifier.
type addVerifierRequest struct {
	Actor   string `json:"actor"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Add registers a new verifier. Owner-only.
// POST /api/verifiers
func (h *VerifierHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addVerifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	v, err := h.verifiers.Add(r.Context(), req.Actor, req.Address, req.Name)
	if err != nil {
		if isServerError(err) {
			h.logger.ErrorContext(r.Context(), "handler: add verifier failed",
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// removeVerifierRequest is the JSON body for revoking a verifier.
type removeVerifierRequest struct {
	Actor string `json:"actor"`
}

// Remove revokes a verifier. Owner-only.
// DELETE /api/verifiers/{address}
func (h *VerifierHandler) Remove(w http.ResponseWriter, r *http.Request) {
	addr := r.PathValue("address")
	if addr == "" {
		writeError(w, http.StatusBadRequest, "missing verifier address")
		return
	}

	var req removeVerifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.verifiers.Remove(r.Context(), req.Actor, addr); err != nil {
		if isServerError(err) {
			h.logger.ErrorContext(r.Context(), "handler: remove verifier failed",
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "removed",
		"address": addr,
	})
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/soumik404/basecast/internal/domain"
	"github.com/soumik404/basecast/internal/service"
)

// PredictionReader defines the read paths the prediction handler requires.
type PredictionReader interface {
	Get(ctx context.Context, predictionID int64) (domain.Prediction, error)
	List(ctx context.Context, status domain.PredictionStatus, opts domain.ListOpts) ([]domain.Prediction, error)
	Pending(ctx context.Context, opts domain.ListOpts) ([]domain.Prediction, error)
	Quote(ctx context.Context, predictionID int64, choice domain.BetChoice, amount float64) (service.Quote, error)
	Proposals(ctx context.Context, predictionID int64) ([]domain.Proposal, error)
}

// PredictionWriter defines the settlement operations the prediction handler
// requires.
type PredictionWriter interface {
	CreatePrediction(ctx context.Context, in service.CreatePredictionInput) (domain.Prediction, error)
	ProposeResult(ctx context.Context, predictionID int64, proposer string, result domain.BetChoice) (domain.Prediction, error)
	VerifyResult(ctx context.Context, predictionID int64, verifier string, approve bool, reason string) (domain.Prediction, error)
}

// Reconciler repairs one projection row from chain state.
type Reconciler interface {
	Reconcile(ctx context.Context, predictionID int64) (domain.Prediction, error)
}

// PredictionHandler serves prediction HTTP endpoints.
type PredictionHandler struct {
	reader     PredictionReader
	writer     PredictionWriter
	reconciler Reconciler
	logger     *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(reader PredictionReader, writer PredictionWriter, reconciler Reconciler, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{
		reader:     reader,
		writer:     writer,
		reconciler: reconciler,
		logger:     logger,
	}
}

// listPredictionsResponse wraps the list response.
type listPredictionsResponse struct {
	Predictions []domain.Prediction `json:"predictions"`
}

// List returns predictions, optionally filtered by status.
// GET /api/predictions?status=&limit=50&offset=0
func (h *PredictionHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.PredictionStatus(r.URL.Query().Get("status"))
	rows, err := h.reader.List(r.Context(), status, parseListOpts(r))
	if err != nil {
		h.fail(r, w, "list predictions", err)
		return
	}
	if rows == nil {
		rows = []domain.Prediction{}
	}
	writeJSON(w, http.StatusOK, listPredictionsResponse{Predictions: rows})
}

// Get returns one prediction by its on-chain numeric id.
// GET /api/predictions/{id}
func (h *PredictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.reader.Get(r.Context(), id)
	if err != nil {
		h.fail(r, w, "get prediction", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Pending returns the verifier queue.
// GET /api/predictions/pending
func (h *PredictionHandler) Pending(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reader.Pending(r.Context(), parseListOpts(r))
	if err != nil {
		h.fail(r, w, "list pending", err)
		return
	}
	if rows == nil {
		rows = []domain.Prediction{}
	}
	writeJSON(w, http.StatusOK, listPredictionsResponse{Predictions: rows})
}

// createPredictionRequest is the JSON body for creating a prediction.
type createPredictionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Currency    string    `json:"currency"`
	Deadline    time.Time `json:"deadline"`
	MaxCapacity float64   `json:"max_capacity"`
	Creator     string    `json:"creator"`
}

// Create opens a new prediction on chain and projects it.
// POST /api/predictions
func (h *PredictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.writer.CreatePrediction(r.Context(), service.CreatePredictionInput{
		Title:       req.Title,
		Description: req.Description,
		Currency:    domain.StakeCurrency(req.Currency),
		Deadline:    req.Deadline,
		MaxCapacity: req.MaxCapacity,
		Creator:     req.Creator,
	})
	if err != nil {
		h.fail(r, w, "create prediction", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Quote simulates a wager against the current pools.
// GET /api/predictions/{id}/quote?choice=yes&amount=25
func (h *PredictionHandler) Quote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	choice := domain.BetChoice(q.Get("choice"))
	amount, parseErr := parseAmount(q.Get("amount"))
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, parseErr.Error())
		return
	}

	quote, err := h.reader.Quote(r.Context(), id, choice, amount)
	if err != nil {
		h.fail(r, w, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Proposals returns the proposal history of a prediction, newest round
// included, for the verifier view.
// GET /api/predictions/{id}/proposals
func (h *PredictionHandler) Proposals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.reader.Proposals(r.Context(), id)
	if err != nil {
		h.fail(r, w, "list proposals", err)
		return
	}
	if rows == nil {
		rows = []domain.Proposal{}
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Proposal{"proposals": rows})
}

// proposeRequest is the JSON body for proposing a result.
type proposeRequest struct {
	Proposer string `json:"proposer"`
	Result   string `json:"result"`
}

// Propose stages a result for verification.
// POST /api/predictions/{id}/propose
func (h *PredictionHandler) Propose(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.writer.ProposeResult(r.Context(), id, req.Proposer, domain.BetChoice(req.Result))
	if err != nil {
		h.fail(r, w, "propose result", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// verifyRequest is the JSON body for verifying a proposed result.
type verifyRequest struct {
	Verifier string `json:"verifier"`
	Approve  bool   `json:"approve"`
	Reason   string `json:"reason"`
}

// Verify approves or rejects the pending proposal.
// POST /api/predictions/{id}/verify
func (h *PredictionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !req.Approve && req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required when rejecting")
		return
	}

	p, err := h.writer.VerifyResult(r.Context(), id, req.Verifier, req.Approve, req.Reason)
	if err != nil {
		h.fail(r, w, "verify result", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Reconcile repairs one projection row from the contract. Operator endpoint.
// POST /api/predictions/{id}/reconcile
func (h *PredictionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.reconciler.Reconcile(r.Context(), id)
	if err != nil {
		h.fail(r, w, "reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PredictionHandler) fail(r *http.Request, w http.ResponseWriter, action string, err error) {
	if isServerError(err) {
		h.logger.ErrorContext(r.Context(), "handler: "+action+" failed",
			slog.String("error", err.Error()),
		)
	}
	writeDomainError(w, err)
}

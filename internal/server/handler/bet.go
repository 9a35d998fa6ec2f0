package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/soumik404/basecast/internal/domain"
	"github.com/soumik404/basecast/internal/service"
)

// BetReader defines the bet read paths the handler requires.
type BetReader interface {
	Bets(ctx context.Context, predictionID int64, bettor string, opts domain.ListOpts) ([]domain.Bet, error)
	UserBet(ctx context.Context, predictionID int64, bettor string) (domain.Bet, error)
}

// BetWriter defines the settlement operations the handler requires.
type BetWriter interface {
	PlaceBet(ctx context.Context, in service.PlaceBetInput) (domain.Bet, error)
	ClaimReward(ctx context.Context, betDocID, claimer string) (domain.Bet, error)
}

// BetHandler serves bet HTTP endpoints.
type BetHandler struct {
	reader BetReader
	writer BetWriter
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(reader BetReader, writer BetWriter, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		reader: reader,
		writer: writer,
		logger: logger,
	}
}

// listBetsResponse wraps the list response.
type listBetsResponse struct {
	Bets []domain.Bet `json:"bets"`
}

// List returns bets by user or by prediction. When both are given it returns
// the user's single bet on that prediction, so clients can check exposure
// before attempting a doomed duplicate.
// GET /api/bets?user=0x...&prediction=42
func (h *BetHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := q.Get("user")
	predictionRaw := q.Get("prediction")

	if user == "" && predictionRaw == "" {
		writeError(w, http.StatusBadRequest, "user or prediction query parameter required")
		return
	}

	var predictionID int64
	if predictionRaw != "" {
		id, err := strconv.ParseInt(predictionRaw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "prediction must be numeric")
			return
		}
		predictionID = id
	}

	// Exposure query: one (user, prediction) pair.
	if user != "" && predictionID != 0 {
		b, err := h.reader.UserBet(r.Context(), predictionID, user)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusOK, listBetsResponse{Bets: []domain.Bet{}})
				return
			}
			h.fail(r, w, "user bet", err)
			return
		}
		writeJSON(w, http.StatusOK, listBetsResponse{Bets: []domain.Bet{b}})
		return
	}

	rows, err := h.reader.Bets(r.Context(), predictionID, user, parseListOpts(r))
	if err != nil {
		h.fail(r, w, "list bets", err)
		return
	}
	if rows == nil {
		rows = []domain.Bet{}
	}
	writeJSON(w, http.StatusOK, listBetsResponse{Bets: rows})
}

// placeBetRequest is the JSON body for placing a bet.
type placeBetRequest struct {
	PredictionID int64   `json:"prediction_id"`
	Bettor       string  `json:"bettor"`
	Choice       string  `json:"choice"`
	Amount       float64 `json:"amount"`
}

// Place submits a wager.
// POST /api/bets
func (h *BetHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	b, err := h.writer.PlaceBet(r.Context(), service.PlaceBetInput{
		PredictionID: req.PredictionID,
		Bettor:       req.Bettor,
		Choice:       domain.BetChoice(req.Choice),
		Amount:       req.Amount,
	})
	if err != nil {
		h.fail(r, w, "place bet", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// claimRequest is the JSON body for claiming a reward.
type claimRequest struct {
	Claimer string `json:"claimer"`
}

// Claim claims the payout of a winning bet.
// POST /api/bets/{id}/claim
func (h *BetHandler) Claim(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	if docID == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	b, err := h.writer.ClaimReward(r.Context(), docID, req.Claimer)
	if err != nil {
		h.fail(r, w, "claim reward", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BetHandler) fail(r *http.Request, w http.ResponseWriter, action string, err error) {
	if isServerError(err) {
		h.logger.ErrorContext(r.Context(), "handler: "+action+" failed",
			slog.String("error", err.Error()),
		)
	}
	writeDomainError(w, err)
}

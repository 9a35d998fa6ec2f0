package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumik404/basecast/internal/domain"
)

func newPredictionFixture(t *testing.T) (*PredictionService, *fakePredictionStore, *fakeBetStore, *fakeCache) {
	t.Helper()
	predictions := newFakePredictionStore()
	bets := newFakeBetStore()
	cache := newFakeCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewPredictionService(predictions, bets, newFakeProposalStore(), cache, logger)
	return svc, predictions, bets, cache
}

func TestPredictionGet_CacheAside(t *testing.T) {
	svc, predictions, _, cache := newPredictionFixture(t)
	predictions.rows[7] = domain.Prediction{DocID: "doc-p", PredictionID: 7, Title: "cached?"}

	// First read misses the cache and fills it.
	p, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "cached?", p.Title)

	cached, err := cache.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "cached?", cached.Title)

	// Second read is served from cache even if the store row changes.
	predictions.rows[7] = domain.Prediction{DocID: "doc-p", PredictionID: 7, Title: "changed"}
	p, err = svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "cached?", p.Title)
}

func TestPredictionGet_NotFound(t *testing.T) {
	svc, _, _, _ := newPredictionFixture(t)

	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuote_ParimutuelMath(t *testing.T) {
	svc, predictions, _, _ := newPredictionFixture(t)
	predictions.rows[7] = domain.Prediction{
		DocID: "doc-p", PredictionID: 7,
		TotalYes: 100, TotalNo: 50,
		Status: domain.StatusActive,
	}

	q, err := svc.Quote(context.Background(), 7, domain.ChoiceYes, 50)
	require.NoError(t, err)

	// payout = 50 / (100+50) * (100+50+50) = 66.67
	assert.InDelta(t, 200.0/3.0, q.Payout, 1e-9)
	assert.InDelta(t, 200.0/3.0-50, q.Profit, 1e-9)
	assert.InDelta(t, (200.0/3.0)/50, q.Multiplier, 1e-9)
}

func TestQuote_Validation(t *testing.T) {
	svc, predictions, _, _ := newPredictionFixture(t)
	predictions.rows[7] = domain.Prediction{DocID: "doc-p", PredictionID: 7, Status: domain.StatusActive}

	_, err := svc.Quote(context.Background(), 7, "maybe", 10)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Quote(context.Background(), 7, domain.ChoiceYes, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserBet_Exposure(t *testing.T) {
	svc, _, bets, _ := newPredictionFixture(t)
	bets.rows["bet-1"] = domain.Bet{
		DocID: "bet-1", PredictionID: 7,
		Bettor: testBettor, Choice: domain.ChoiceNo, Amount: 25,
	}

	b, err := svc.UserBet(context.Background(), 7, testBettor)
	require.NoError(t, err)
	assert.Equal(t, domain.ChoiceNo, b.Choice)

	_, err = svc.UserBet(context.Background(), 7, testCreator)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

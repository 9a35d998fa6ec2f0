package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumik404/basecast/internal/domain"
)

const (
	testCreator  = "0x1111111111111111111111111111111111111111"
	testBettor   = "0x2222222222222222222222222222222222222222"
	testVerifier = "0x3333333333333333333333333333333333333333"
	testOwner    = "0x4444444444444444444444444444444444444444"
)

type settlementFixture struct {
	svc         *SettlementService
	chain       *fakeChain
	predictions *fakePredictionStore
	bets        *fakeBetStore
	proposals   *fakeProposalStore
	cache       *fakeCache
	lbCache     *fakeLeaderboardCache
	locks       *fakeLockManager
	bus         *fakeBus
	audit       *fakeAudit
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()
	f := &settlementFixture{
		chain:       newFakeChain(),
		predictions: newFakePredictionStore(),
		bets:        newFakeBetStore(),
		proposals:   newFakeProposalStore(),
		cache:       newFakeCache(),
		lbCache:     &fakeLeaderboardCache{},
		locks:       &fakeLockManager{},
		bus:         &fakeBus{},
		audit:       &fakeAudit{},
	}
	f.chain.owner = testOwner
	f.chain.from = testBettor

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewSettlementService(
		f.chain, f.chain,
		f.predictions, f.bets, f.proposals,
		f.cache, f.lbCache, f.locks, f.bus, f.audit,
		logger,
	)
	return f
}

// seedActive puts a matching active prediction on the fake chain and in the
// projection store.
func (f *settlementFixture) seedActive(predictionID int64, deadline time.Time) {
	f.chain.predictions[predictionID] = domain.OnchainPrediction{
		PredictionID: predictionID,
		Deadline:     deadline,
		StatusCode:   domain.StatusCodeActive,
	}
	if predictionID >= f.chain.nextID {
		f.chain.nextID = predictionID + 1
	}
	f.predictions.rows[predictionID] = domain.Prediction{
		DocID:        "doc-p",
		PredictionID: predictionID,
		Title:        "will it rain tomorrow",
		Currency:     domain.CurrencyETH,
		Deadline:     deadline,
		Creator:      testCreator,
		Status:       domain.StatusActive,
	}
}

func TestCreatePrediction_Success(t *testing.T) {
	f := newSettlementFixture(t)
	deadline := time.Now().Add(24 * time.Hour)

	p, err := f.svc.CreatePrediction(context.Background(), CreatePredictionInput{
		Title:    "will it rain tomorrow",
		Currency: domain.CurrencyUSDC,
		Deadline: deadline,
		Creator:  testCreator,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.PredictionID)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.NotEmpty(t, p.DocID)

	stored, err := f.predictions.GetByPredictionID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, testCreator, stored.Creator)
	assert.True(t, f.audit.has(domain.EventPredictionCreated))
}

func TestCreatePrediction_Validation(t *testing.T) {
	f := newSettlementFixture(t)
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name string
		in   CreatePredictionInput
	}{
		{"empty title", CreatePredictionInput{Currency: domain.CurrencyETH, Deadline: future}},
		{"bad currency", CreatePredictionInput{Title: "x", Currency: "DOGE", Deadline: future}},
		{"past deadline", CreatePredictionInput{Title: "x", Currency: domain.CurrencyETH, Deadline: time.Now().Add(-time.Hour)}},
		{"negative capacity", CreatePredictionInput{Title: "x", Currency: domain.CurrencyETH, Deadline: future, MaxCapacity: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreatePrediction(context.Background(), tc.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Zero(t, f.chain.submits, "validation failures must not submit transactions")
}

func TestCreatePrediction_InterleavedCreation(t *testing.T) {
	f := newSettlementFixture(t)
	deadline := time.Now().Add(24 * time.Hour)

	// A competing creation from another caller lands while ours confirms,
	// bumping the contract counter past our id.
	f.chain.onConfirm = func() {
		f.chain.mu.Lock()
		defer f.chain.mu.Unlock()
		id := f.chain.nextID
		f.chain.nextID++
		f.chain.predictions[id] = domain.OnchainPrediction{
			PredictionID: id,
			Deadline:     deadline,
			StatusCode:   domain.StatusCodeActive,
		}
	}

	p, err := f.svc.CreatePrediction(context.Background(), CreatePredictionInput{
		Title:    "will it rain tomorrow",
		Currency: domain.CurrencyETH,
		Deadline: deadline,
		Creator:  testCreator,
	})
	require.NoError(t, err)

	// The id comes from our own receipt, not the shared counter.
	assert.Equal(t, int64(1), p.PredictionID)
	stored, err := f.predictions.GetByPredictionID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, testCreator, stored.Creator)

	_, err = f.predictions.GetByPredictionID(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrNotFound, "the stranger's creation must not be projected")
}

func TestPlaceBet_Success(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(time.Hour))

	b, err := f.svc.PlaceBet(context.Background(), PlaceBetInput{
		PredictionID: 7,
		Bettor:       testBettor,
		Choice:       domain.ChoiceYes,
		Amount:       50,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), b.BetID, "contract-assigned id read back after confirmation")
	assert.Equal(t, domain.ChoiceYes, b.Choice)

	stored, err := f.predictions.GetByPredictionID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 50.0, stored.TotalYes)
	assert.Contains(t, f.cache.invalidated, int64(7))
	assert.True(t, f.audit.has(domain.EventBetConfirmed))
}

func TestPlaceBet_BetIDFromReceipt(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(time.Hour))
	f.chain.lagUserBets = true

	b, err := f.svc.PlaceBet(context.Background(), PlaceBetInput{
		PredictionID: 7,
		Bettor:       testBettor,
		Choice:       domain.ChoiceYes,
		Amount:       50,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.BetID, "the id comes from the receipt even when the bet index lags")
}

func TestPlaceBet_MissingReceiptLog(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(time.Hour))
	f.chain.dropLogs = true

	_, err := f.svc.PlaceBet(context.Background(), PlaceBetInput{
		PredictionID: 7,
		Bettor:       testBettor,
		Choice:       domain.ChoiceYes,
		Amount:       50,
	})
	require.Error(t, err, "a bet whose id cannot be recovered must not be projected")
	assert.Empty(t, f.bets.rows)
}

func TestPlaceBet_DuplicateOnchainBet(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(time.Hour))

	// A confirmed bet already exists on chain for this bettor, even though
	// the projection knows nothing about it.
	f.chain.bets[9] = domain.OnchainBet{
		BetID: 9, PredictionID: 7, Bettor: testBettor,
		Choice: true, Amount: 10,
	}
	f.chain.userBets[testBettor] = []int64{9}

	_, err := f.svc.PlaceBet(context.Background(), PlaceBetInput{
		PredictionID: 7,
		Bettor:       testBettor,
		Choice:       domain.ChoiceNo,
		Amount:       25,
	})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Zero(t, f.chain.submits, "duplicate guard must fire before submission")
}

func TestPlaceBet_ConfirmTimeout(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(time.Hour))
	f.chain.confirmErr = domain.ErrTxTimeout

	_, err := f.svc.PlaceBet(context.Background(), PlaceBetInput{
		PredictionID: 7,
		Bettor:       testBettor,
		Choice:       domain.ChoiceYes,
		Amount:       50,
	})
	assert.ErrorIs(t, err, domain.ErrTxTimeout)

	// No projection write may happen for an unconfirmed transaction.
	assert.Empty(t, f.bets.rows)
	stored, _ := f.predictions.GetByPredictionID(context.Background(), 7)
	assert.Zero(t, stored.TotalYes)
}

func TestPlaceBet_SignerDeclined(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(time.Hour))
	f.chain.submitErr = domain.ErrTxRejected

	_, err := f.svc.PlaceBet(context.Background(), PlaceBetInput{
		PredictionID: 7,
		Bettor:       testBettor,
		Choice:       domain.ChoiceYes,
		Amount:       50,
	})
	assert.ErrorIs(t, err, domain.ErrTxRejected)
	assert.Empty(t, f.bets.rows)
}

func TestPlaceBet_LockHeld(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(time.Hour))
	f.locks.held = true

	_, err := f.svc.PlaceBet(context.Background(), PlaceBetInput{
		PredictionID: 7,
		Bettor:       testBettor,
		Choice:       domain.ChoiceYes,
		Amount:       50,
	})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestProposeResult_Success(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(-time.Hour))

	p, err := f.svc.ProposeResult(context.Background(), 7, testCreator, domain.ChoiceYes)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingVerification, p.Status)
	require.NotNil(t, p.ProposedResult)
	assert.Equal(t, domain.ChoiceYes, *p.ProposedResult)

	prop, err := f.proposals.GetOpen(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, testCreator, prop.ProposedBy)
	assert.False(t, prop.Verified)
}

func TestProposeResult_NonCreator(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedActive(7, time.Now().Add(-time.Hour))

	_, err := f.svc.ProposeResult(context.Background(), 7, testBettor, domain.ChoiceYes)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Zero(t, f.chain.submits)
}

// seedPending stages a pending-verification prediction with pools on both
// sides and an open proposal row.
func (f *settlementFixture) seedPending(predictionID int64, proposed domain.BetChoice, totalYes, totalNo float64) {
	f.chain.predictions[predictionID] = domain.OnchainPrediction{
		PredictionID: predictionID,
		Deadline:     time.Now().Add(-time.Hour),
		TotalYes:     totalYes,
		TotalNo:      totalNo,
		StatusCode:   domain.StatusCodePendingVerification,
	}
	f.chain.proposed[predictionID] = proposed == domain.ChoiceYes
	now := time.Now()
	f.predictions.rows[predictionID] = domain.Prediction{
		DocID:          "doc-p",
		PredictionID:   predictionID,
		Currency:       domain.CurrencyETH,
		Deadline:       time.Now().Add(-time.Hour),
		Creator:        testCreator,
		TotalYes:       totalYes,
		TotalNo:        totalNo,
		Status:         domain.StatusPendingVerification,
		ProposedResult: &proposed,
		ProposedBy:     testCreator,
		ProposedAt:     &now,
	}
	f.proposals.rows["prop-1"] = domain.Proposal{
		DocID:        "prop-1",
		PredictionID: predictionID,
		Result:       proposed,
		ProposedBy:   testCreator,
		ProposedAt:   now,
	}
}

func TestVerifyResult_Unauthorized(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedPending(7, domain.ChoiceYes, 100, 50)

	_, err := f.svc.VerifyResult(context.Background(), 7, testBettor, true, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Zero(t, f.chain.submits)
}

func TestVerifyResult_OwnerFallback(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedPending(7, domain.ChoiceYes, 100, 50)

	_, err := f.svc.VerifyResult(context.Background(), 7, testOwner, true, "")
	assert.NoError(t, err, "the owner may verify without registry membership")
}

func TestVerifyResult_ApprovePaysWinners(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedPending(7, domain.ChoiceYes, 100, 50)
	f.chain.verifiers[testVerifier] = true

	f.bets.rows["bet-win"] = domain.Bet{
		DocID: "bet-win", BetID: 1, PredictionID: 7,
		Bettor: testBettor, Choice: domain.ChoiceYes, Amount: 100,
	}
	f.bets.rows["bet-lose"] = domain.Bet{
		DocID: "bet-lose", BetID: 2, PredictionID: 7,
		Bettor: testCreator, Choice: domain.ChoiceNo, Amount: 50,
	}

	p, err := f.svc.VerifyResult(context.Background(), 7, testVerifier, true, "")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusResolved, p.Status)
	require.NotNil(t, p.Result)
	assert.Equal(t, domain.ChoiceYes, *p.Result)

	// Sole yes-bettor takes the whole pool.
	assert.InDelta(t, 150.0, f.bets.payouts["bet-win"], 1e-9)
	assert.Zero(t, f.bets.payouts["bet-lose"])

	prop, err := f.proposals.ListByPrediction(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, prop, 1)
	assert.True(t, prop[0].Verified)
	assert.True(t, prop[0].Approved)

	assert.Equal(t, 1, f.lbCache.invalidations)
	assert.True(t, f.audit.has(domain.EventResolved))

	// Chain reflects the resolution.
	onchain, _ := f.chain.ReadPrediction(context.Background(), 7)
	assert.Equal(t, domain.StatusCodeResolved, onchain.StatusCode)
	assert.True(t, onchain.FinalResult)
}

func TestVerifyResult_RejectReturnsChainToActive(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedPending(7, domain.ChoiceYes, 100, 50)
	f.chain.verifiers[testVerifier] = true

	p, err := f.svc.VerifyResult(context.Background(), 7, testVerifier, false, "source disputes outcome")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Nil(t, p.ProposedResult)
	assert.Equal(t, "source disputes outcome", p.RejectionReason)
	assert.Equal(t, 1, f.chain.submits, "rejection rides the verify transaction")

	// The contract itself is back to active; a sweep must not resurrect
	// the dead proposal.
	onchain, _ := f.chain.ReadPrediction(context.Background(), 7)
	assert.Equal(t, domain.StatusCodeActive, onchain.StatusCode)

	prop, err := f.proposals.ListByPrediction(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, prop, 1)
	assert.True(t, prop[0].Verified)
	assert.False(t, prop[0].Approved)
	assert.Equal(t, "source disputes outcome", prop[0].RejectionReason)
}

func TestVerifyResult_RejectThenReproposeAndApprove(t *testing.T) {
	f := newSettlementFixture(t)
	f.seedPending(7, domain.ChoiceYes, 100, 50)
	f.chain.verifiers[testVerifier] = true

	f.bets.rows["bet-yes"] = domain.Bet{
		DocID: "bet-yes", BetID: 1, PredictionID: 7,
		Bettor: testBettor, Choice: domain.ChoiceYes, Amount: 100,
	}
	f.bets.rows["bet-no"] = domain.Bet{
		DocID: "bet-no", BetID: 2, PredictionID: 7,
		Bettor: testCreator, Choice: domain.ChoiceNo, Amount: 50,
	}

	_, err := f.svc.VerifyResult(context.Background(), 7, testVerifier, false, "insufficient evidence")
	require.NoError(t, err)

	// After the rejection the creator's second proposal is accepted.
	p, err := f.svc.ProposeResult(context.Background(), 7, testCreator, domain.ChoiceNo)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, p.Status)

	// And an approval settles it with the new result.
	p, err = f.svc.VerifyResult(context.Background(), 7, testVerifier, true, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, p.Status)
	require.NotNil(t, p.Result)
	assert.Equal(t, domain.ChoiceNo, *p.Result)
	assert.InDelta(t, 150.0, f.bets.payouts["bet-no"], 1e-9)

	_, err = f.proposals.GetOpen(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound, "both proposal rounds are closed")
}

func TestVerifyResult_StrandedPool(t *testing.T) {
	f := newSettlementFixture(t)
	// Everything staked on no, yes wins: nobody can claim.
	f.seedPending(7, domain.ChoiceYes, 0, 50)
	f.chain.verifiers[testVerifier] = true

	_, err := f.svc.VerifyResult(context.Background(), 7, testVerifier, true, "")
	require.NoError(t, err)

	assert.True(t, f.audit.has(domain.EventPoolStranded))
}

func TestClaimReward_Success(t *testing.T) {
	f := newSettlementFixture(t)
	result := domain.ChoiceYes
	payout := 150.0
	f.predictions.rows[7] = domain.Prediction{
		DocID: "doc-p", PredictionID: 7,
		Status: domain.StatusResolved, Result: &result,
	}
	f.bets.rows["bet-win"] = domain.Bet{
		DocID: "bet-win", BetID: 1, PredictionID: 7,
		Bettor: testBettor, Choice: domain.ChoiceYes, Amount: 100,
		Payout: &payout,
	}
	f.chain.bets[1] = domain.OnchainBet{BetID: 1, PredictionID: 7, Bettor: testBettor, Choice: true, Amount: 100}

	b, err := f.svc.ClaimReward(context.Background(), "bet-win", testBettor)
	require.NoError(t, err)
	assert.True(t, b.Claimed)

	stored, _ := f.bets.GetByDocID(context.Background(), "bet-win")
	assert.True(t, stored.Claimed)
	assert.True(t, f.audit.has(domain.EventRewardClaimed))
}

func TestClaimReward_ByOnchainBetID(t *testing.T) {
	f := newSettlementFixture(t)
	result := domain.ChoiceYes
	payout := 150.0
	f.predictions.rows[7] = domain.Prediction{
		DocID: "doc-p", PredictionID: 7,
		Status: domain.StatusResolved, Result: &result,
	}
	f.bets.rows["bet-win"] = domain.Bet{
		DocID: "bet-win", BetID: 42, PredictionID: 7,
		Bettor: testBettor, Choice: domain.ChoiceYes, Amount: 100,
		Payout: &payout,
	}
	f.chain.bets[42] = domain.OnchainBet{BetID: 42, PredictionID: 7, Bettor: testBettor, Choice: true, Amount: 100}

	b, err := f.svc.ClaimReward(context.Background(), "42", testBettor)
	require.NoError(t, err)
	assert.True(t, b.Claimed)
	assert.Equal(t, "bet-win", b.DocID)
}

func TestClaimReward_WrongClaimer(t *testing.T) {
	f := newSettlementFixture(t)
	result := domain.ChoiceYes
	payout := 150.0
	f.predictions.rows[7] = domain.Prediction{
		DocID: "doc-p", PredictionID: 7,
		Status: domain.StatusResolved, Result: &result,
	}
	f.bets.rows["bet-win"] = domain.Bet{
		DocID: "bet-win", BetID: 1, PredictionID: 7,
		Bettor: testBettor, Choice: domain.ChoiceYes, Amount: 100,
		Payout: &payout,
	}

	_, err := f.svc.ClaimReward(context.Background(), "bet-win", testCreator)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Zero(t, f.chain.submits)
}

func TestClaimReward_AlreadyClaimed(t *testing.T) {
	f := newSettlementFixture(t)
	result := domain.ChoiceYes
	payout := 150.0
	f.predictions.rows[7] = domain.Prediction{
		DocID: "doc-p", PredictionID: 7,
		Status: domain.StatusResolved, Result: &result,
	}
	f.bets.rows["bet-win"] = domain.Bet{
		DocID: "bet-win", BetID: 1, PredictionID: 7,
		Bettor: testBettor, Choice: domain.ChoiceYes, Amount: 100,
		Payout: &payout, Claimed: true,
	}

	_, err := f.svc.ClaimReward(context.Background(), "bet-win", testBettor)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Zero(t, f.chain.submits)
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	creator = "0x1111111111111111111111111111111111111111"
	bettor1 = "0x2222222222222222222222222222222222222222"
	votary  = "0x3333333333333333333333333333333333333333"
)

func activePrediction(deadline time.Time) Prediction {
	return Prediction{
		DocID:        "doc-1",
		PredictionID: 7,
		Title:        "ETH above 4000 by month end",
		Currency:     CurrencyUSDC,
		Deadline:     deadline,
		MaxCapacity:  1000,
		Creator:      creator,
		Status:       StatusActive,
	}
}

func TestPropose_BeforeDeadline(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(time.Hour))

	_, err := Propose(p, creator, ChoiceYes, now)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestPropose_NonCreator(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(-time.Hour))

	_, err := Propose(p, bettor1, ChoiceYes, now)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPropose_Success(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(-time.Hour))

	got, err := Propose(p, creator, ChoiceYes, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingVerification, got.Status)
	require.NotNil(t, got.ProposedResult)
	assert.Equal(t, ChoiceYes, *got.ProposedResult)
	assert.Equal(t, creator, got.ProposedBy)
}

func TestPropose_CreatorCaseInsensitive(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(-time.Hour))

	_, err := Propose(p, "0X1111111111111111111111111111111111111111", ChoiceNo, now)
	assert.NoError(t, err)
}

func TestPropose_AlreadyPending(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(-time.Hour))
	p, err := Propose(p, creator, ChoiceYes, now)
	require.NoError(t, err)

	_, err = Propose(p, creator, ChoiceNo, now)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestRejectThenRepropose(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(-time.Hour))
	p, err := Propose(p, creator, ChoiceYes, now)
	require.NoError(t, err)

	p, err = Reject(p, votary, "insufficient evidence", now)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, p.Status)
	assert.Nil(t, p.ProposedResult)
	assert.Empty(t, p.ProposedBy)
	assert.Equal(t, "insufficient evidence", p.RejectionReason)

	// A second proposal from the creator is then accepted and clears the
	// recorded rejection reason.
	p, err = Propose(p, creator, ChoiceYes, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingVerification, p.Status)
	assert.Empty(t, p.RejectionReason)
}

func TestApprove_SetsFinalResult(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(-time.Hour))
	p, err := Propose(p, creator, ChoiceNo, now)
	require.NoError(t, err)

	p, err = Approve(p, votary, now)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, p.Status)
	require.NotNil(t, p.Result)
	assert.Equal(t, ChoiceNo, *p.Result)
	assert.Equal(t, votary, p.VerifiedBy)
}

func TestApprove_NotPending(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(-time.Hour))

	_, err := Approve(p, votary, now)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestTerminalStatesAbsorb(t *testing.T) {
	now := time.Now()
	for _, status := range []PredictionStatus{StatusResolved, StatusCancelled} {
		p := activePrediction(now.Add(-time.Hour))
		p.Status = status

		_, err := Propose(p, creator, ChoiceYes, now)
		assert.ErrorIs(t, err, ErrPrecondition, "propose on %s", status)

		_, err = ApplyBet(p, bettor1, ChoiceYes, 10, nil, now.Add(-2*time.Hour))
		assert.ErrorIs(t, err, ErrPrecondition, "bet on %s", status)
	}
}

func TestApplyBet_Success(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(time.Hour))
	p.TotalYes = 300
	p.TotalNo = 400

	got, err := ApplyBet(p, bettor1, ChoiceYes, 100, nil, now)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, got.TotalYes, 1e-9)
	assert.InDelta(t, 400.0, got.TotalNo, 1e-9)
}

func TestApplyBet_DuplicateRejected(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(time.Hour))
	existing := &Bet{Bettor: bettor1, PredictionID: 7, Choice: ChoiceYes, Amount: 50}

	// Even the same choice is rejected; top-ups are not supported.
	_, err := ApplyBet(p, bettor1, ChoiceYes, 100, existing, now)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorContains(t, err, "yes")

	_, err = ApplyBet(p, bettor1, ChoiceNo, 100, existing, now)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestApplyBet_CapacityExceeded(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(time.Hour))
	p.TotalYes = 600
	p.TotalNo = 350

	_, err := ApplyBet(p, bettor1, ChoiceNo, 100, nil, now)
	assert.ErrorIs(t, err, ErrPrecondition)

	// Exactly at capacity is allowed.
	_, err = ApplyBet(p, bettor1, ChoiceNo, 50, nil, now)
	assert.NoError(t, err)
}

func TestApplyBet_Validation(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(time.Hour))

	_, err := ApplyBet(p, bettor1, "maybe", 100, nil, now)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ApplyBet(p, bettor1, ChoiceYes, 0, nil, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApplyBet_GuardFailureLeavesInputUntouched(t *testing.T) {
	now := time.Now()
	p := activePrediction(now.Add(-time.Minute))
	p.TotalYes = 300

	got, err := ApplyBet(p, bettor1, ChoiceYes, 100, nil, now)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, p, got)
}

func TestClaim(t *testing.T) {
	now := time.Now()
	result := ChoiceYes
	payout := 275.0
	p := activePrediction(now.Add(-time.Hour))
	p.Status = StatusResolved
	p.Result = &result

	b := Bet{DocID: "bet-1", Bettor: bettor1, PredictionID: 7, Choice: ChoiceYes, Amount: 100, Payout: &payout}

	got, err := Claim(p, b, bettor1, now)
	require.NoError(t, err)
	assert.True(t, got.Claimed)

	// Second claim is rejected.
	_, err = Claim(p, got, bettor1, now)
	assert.ErrorIs(t, err, ErrPrecondition)

	// Wrong principal.
	_, err = Claim(p, b, creator, now)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Losing bet.
	loser := Bet{DocID: "bet-2", Bettor: bettor1, Choice: ChoiceNo, Amount: 50, Payout: new(float64)}
	_, err = Claim(p, loser, bettor1, now)
	assert.ErrorIs(t, err, ErrPrecondition)
}

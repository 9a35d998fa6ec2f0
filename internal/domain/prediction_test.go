package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromCode(t *testing.T) {
	assert.Equal(t, StatusActive, StatusFromCode(0))
	assert.Equal(t, StatusPendingVerification, StatusFromCode(1))
	assert.Equal(t, StatusResolved, StatusFromCode(2))
	assert.Equal(t, StatusCancelled, StatusFromCode(3))
	assert.Equal(t, PredictionStatus(""), StatusFromCode(9))
}

func TestStatusCodeRoundTrip(t *testing.T) {
	for _, s := range []PredictionStatus{StatusActive, StatusPendingVerification, StatusResolved, StatusCancelled} {
		assert.Equal(t, s, StatusFromCode(s.Code()))
	}
	// Rejected has no on-chain code; it rides on active.
	assert.Equal(t, StatusCodeActive, StatusRejected.Code())
}

func TestChoiceBoolEncoding(t *testing.T) {
	assert.Equal(t, ChoiceYes, ChoiceFromBool(true))
	assert.Equal(t, ChoiceNo, ChoiceFromBool(false))
	assert.True(t, ChoiceYes.Bool())
	assert.False(t, ChoiceNo.Bool())
	assert.False(t, BetChoice("maybe").Valid())
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusActive.Terminal())
	assert.False(t, StatusPendingVerification.Terminal())
}

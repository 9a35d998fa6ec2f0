package ethereum

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleOutput_MalformedResponse(t *testing.T) {
	_, err := singleOutput("nextPredictionId", nil)
	require.Error(t, err, "an empty unpack must error, not panic")
	assert.Contains(t, err.Error(), "expected 1 output")

	_, err = singleOutput("owner", []any{big.NewInt(1), big.NewInt(2)})
	require.Error(t, err)
}

func TestSingleOutput_WellFormed(t *testing.T) {
	v, err := singleOutput("verifiers", []any{true})
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestBetIDs(t *testing.T) {
	ids, err := betIDs([]any{[]*big.Int{big.NewInt(3), big.NewInt(7)}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, ids)

	_, err = betIDs(nil)
	assert.Error(t, err)

	_, err = betIDs([]any{"not a list"})
	assert.Error(t, err)
}

func TestUnitConversion(t *testing.T) {
	units := toUnits(1.5)
	assert.Equal(t, "1500000000000000000", units.String())
	assert.InDelta(t, 1.5, fromUnits(units), 1e-9)
	assert.Zero(t, fromUnits(nil))
}

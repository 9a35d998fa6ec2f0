package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/soumik404/basecast/internal/domain"
)

// call executes a read-only contract call and unpacks the outputs.
func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := marketABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("ethereum: pack %s: %w", method, err)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("ethereum: call %s: %w", method, err)
	}

	vals, err := marketABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("ethereum: unpack %s: %w", method, err)
	}
	return vals, nil
}

// ReadPrediction returns the contract's authoritative record of a
// prediction.
func (c *Client) ReadPrediction(ctx context.Context, predictionID int64) (domain.OnchainPrediction, error) {
	vals, err := c.call(ctx, "getPrediction", big.NewInt(predictionID))
	if err != nil {
		return domain.OnchainPrediction{}, err
	}
	if len(vals) != 6 {
		return domain.OnchainPrediction{}, fmt.Errorf("ethereum: getPrediction: expected 6 outputs, got %d", len(vals))
	}

	deadline, _ := vals[0].(*big.Int)
	maxCapacity, _ := vals[1].(*big.Int)
	totalYes, _ := vals[2].(*big.Int)
	totalNo, _ := vals[3].(*big.Int)
	status, _ := vals[4].(uint8)
	finalResult, _ := vals[5].(bool)

	if deadline == nil {
		return domain.OnchainPrediction{}, fmt.Errorf("ethereum: getPrediction %d: malformed response", predictionID)
	}

	return domain.OnchainPrediction{
		PredictionID: predictionID,
		Deadline:     time.Unix(deadline.Int64(), 0).UTC(),
		MaxCapacity:  fromUnits(maxCapacity),
		TotalYes:     fromUnits(totalYes),
		TotalNo:      fromUnits(totalNo),
		StatusCode:   status,
		FinalResult:  finalResult,
	}, nil
}

// ReadBet returns the contract's record of a single wager.
func (c *Client) ReadBet(ctx context.Context, betID int64) (domain.OnchainBet, error) {
	vals, err := c.call(ctx, "getBet", big.NewInt(betID))
	if err != nil {
		return domain.OnchainBet{}, err
	}
	if len(vals) != 5 {
		return domain.OnchainBet{}, fmt.Errorf("ethereum: getBet: expected 5 outputs, got %d", len(vals))
	}

	predictionID, _ := vals[0].(*big.Int)
	bettor, _ := vals[1].(common.Address)
	choice, _ := vals[2].(bool)
	amount, _ := vals[3].(*big.Int)
	claimed, _ := vals[4].(bool)

	if predictionID == nil {
		return domain.OnchainBet{}, fmt.Errorf("ethereum: getBet %d: malformed response", betID)
	}

	return domain.OnchainBet{
		BetID:        betID,
		PredictionID: predictionID.Int64(),
		Bettor:       bettor.Hex(),
		Choice:       choice,
		Amount:       fromUnits(amount),
		Claimed:      claimed,
	}, nil
}

// UserBets returns the ids of every confirmed bet placed by the address.
func (c *Client) UserBets(ctx context.Context, bettor string) ([]int64, error) {
	vals, err := c.call(ctx, "getUserBets", common.HexToAddress(bettor))
	if err != nil {
		return nil, err
	}
	return betIDs(vals)
}

// PredictionBets returns the ids of every confirmed bet on a prediction.
func (c *Client) PredictionBets(ctx context.Context, predictionID int64) ([]int64, error) {
	vals, err := c.call(ctx, "getPredictionBets", big.NewInt(predictionID))
	if err != nil {
		return nil, err
	}
	return betIDs(vals)
}

// singleOutput returns the sole output of a view call, guarding arity so a
// malformed node response surfaces as an error instead of an index panic.
func singleOutput(method string, vals []any) (any, error) {
	if len(vals) != 1 {
		return nil, fmt.Errorf("ethereum: %s: expected 1 output, got %d", method, len(vals))
	}
	return vals[0], nil
}

func betIDs(vals []any) ([]int64, error) {
	v, err := singleOutput("bet ids", vals)
	if err != nil {
		return nil, err
	}
	raw, ok := v.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("ethereum: unexpected bet id list type %T", vals[0])
	}
	ids := make([]int64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Int64())
	}
	return ids, nil
}

// NextPredictionID returns the contract's monotonically increasing counter.
func (c *Client) NextPredictionID(ctx context.Context) (int64, error) {
	vals, err := c.call(ctx, "nextPredictionId")
	if err != nil {
		return 0, err
	}
	v, err := singleOutput("nextPredictionId", vals)
	if err != nil {
		return 0, err
	}
	next, ok := v.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("ethereum: unexpected nextPredictionId type %T", v)
	}
	return next.Int64(), nil
}

// Owner returns the contract owner address.
func (c *Client) Owner(ctx context.Context) (string, error) {
	vals, err := c.call(ctx, "owner")
	if err != nil {
		return "", err
	}
	v, err := singleOutput("owner", vals)
	if err != nil {
		return "", err
	}
	addr, ok := v.(common.Address)
	if !ok {
		return "", fmt.Errorf("ethereum: unexpected owner type %T", v)
	}
	return addr.Hex(), nil
}

// IsVerifier checks the contract's verifier registry for the address.
func (c *Client) IsVerifier(ctx context.Context, addr string) (bool, error) {
	vals, err := c.call(ctx, "verifiers", common.HexToAddress(addr))
	if err != nil {
		return false, err
	}
	v, err := singleOutput("verifiers", vals)
	if err != nil {
		return false, err
	}
	ok, isBool := v.(bool)
	if !isBool {
		return false, fmt.Errorf("ethereum: unexpected verifiers type %T", v)
	}
	return ok, nil
}

// Compile-time interface check.
var _ domain.ChainReader = (*Client)(nil)

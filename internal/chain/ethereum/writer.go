package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/soumik404/basecast/internal/domain"
)

// sendTx packs, signs, and submits a transaction to the given contract and
// returns its hash. value is the native-token amount attached (nil for
// token-denominated calls).
func (c *Client) sendTx(ctx context.Context, to common.Address, data []byte, value *big.Int) (string, error) {
	if c.key == nil {
		return "", fmt.Errorf("ethereum: no signing key configured")
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("ethereum: nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("ethereum: gas price: %w", err)
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:     c.from,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
		Data:     data,
	})
	if err != nil {
		// Fall back to the configured limit when the node refuses to
		// estimate (common with pending-state dependent calls).
		gas = c.gasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("ethereum: sign: %w", domain.ErrTxRejected)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("ethereum: send: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// CreatePrediction submits a createPrediction transaction.
func (c *Client) CreatePrediction(ctx context.Context, title, description string, currency domain.StakeCurrency, deadline time.Time, maxCapacity float64) (string, error) {
	data, err := marketABI.Pack("createPrediction",
		title, description,
		currency == domain.CurrencyUSDC,
		big.NewInt(deadline.Unix()),
		toUnits(maxCapacity),
	)
	if err != nil {
		return "", fmt.Errorf("ethereum: pack createPrediction: %w", err)
	}
	return c.sendTx(ctx, c.contract, data, nil)
}

// PlaceBet submits a placeBet transaction. Native-token stakes ride as the
// transaction value; token stakes are approved to the market first.
func (c *Client) PlaceBet(ctx context.Context, predictionID int64, choice bool, amount float64, currency domain.StakeCurrency) (string, error) {
	units := toUnits(amount)

	var value *big.Int
	if currency == domain.CurrencyUSDC {
		if err := c.approveToken(ctx, units); err != nil {
			return "", err
		}
	} else {
		value = units
	}

	data, err := marketABI.Pack("placeBet", big.NewInt(predictionID), choice, units)
	if err != nil {
		return "", fmt.Errorf("ethereum: pack placeBet: %w", err)
	}
	return c.sendTx(ctx, c.contract, data, value)
}

// approveToken grants the market contract spending rights for the stake and
// waits for the approval to confirm before the bet is submitted.
func (c *Client) approveToken(ctx context.Context, amount *big.Int) error {
	data, err := erc20ABI.Pack("approve", c.contract, amount)
	if err != nil {
		return fmt.Errorf("ethereum: pack approve: %w", err)
	}

	hash, err := c.sendTx(ctx, c.token, data, nil)
	if err != nil {
		return fmt.Errorf("ethereum: token approve: %w", err)
	}

	if _, err := c.WaitConfirmed(ctx, hash); err != nil {
		return fmt.Errorf("ethereum: token approve %s: %w", hash, err)
	}
	return nil
}

// ProposeResult submits a proposeResult transaction.
func (c *Client) ProposeResult(ctx context.Context, predictionID int64, result bool) (string, error) {
	data, err := marketABI.Pack("proposeResult", big.NewInt(predictionID), result)
	if err != nil {
		return "", fmt.Errorf("ethereum: pack proposeResult: %w", err)
	}
	return c.sendTx(ctx, c.contract, data, nil)
}

// VerifyResult submits a verifyResult transaction. The contract resolves
// with its stored proposed result on approval and returns the prediction to
// active on rejection.
func (c *Client) VerifyResult(ctx context.Context, predictionID int64, approve bool, rejectionReason string) (string, error) {
	data, err := marketABI.Pack("verifyResult", big.NewInt(predictionID), approve, rejectionReason)
	if err != nil {
		return "", fmt.Errorf("ethereum: pack verifyResult: %w", err)
	}
	return c.sendTx(ctx, c.contract, data, nil)
}

// ClaimReward submits a claimReward transaction for the bet.
func (c *Client) ClaimReward(ctx context.Context, betID int64) (string, error) {
	data, err := marketABI.Pack("claimReward", big.NewInt(betID))
	if err != nil {
		return "", fmt.Errorf("ethereum: pack claimReward: %w", err)
	}
	return c.sendTx(ctx, c.contract, data, nil)
}

// AddVerifier submits an addVerifier transaction.
func (c *Client) AddVerifier(ctx context.Context, addr string) (string, error) {
	data, err := marketABI.Pack("addVerifier", common.HexToAddress(addr))
	if err != nil {
		return "", fmt.Errorf("ethereum: pack addVerifier: %w", err)
	}
	return c.sendTx(ctx, c.contract, data, nil)
}

// RemoveVerifier submits a removeVerifier transaction.
func (c *Client) RemoveVerifier(ctx context.Context, addr string) (string, error) {
	data, err := marketABI.Pack("removeVerifier", common.HexToAddress(addr))
	if err != nil {
		return "", fmt.Errorf("ethereum: pack removeVerifier: %w", err)
	}
	return c.sendTx(ctx, c.contract, data, nil)
}

// CreatedPredictionID reads the prediction id from the creation receipt's
// PredictionCreated log.
func (c *Client) CreatedPredictionID(ctx context.Context, txHash string) (int64, error) {
	return c.receiptLogID(ctx, txHash, "PredictionCreated")
}

// PlacedBetID reads the bet id from the bet receipt's BetPlaced log.
func (c *Client) PlacedBetID(ctx context.Context, txHash string) (int64, error) {
	return c.receiptLogID(ctx, txHash, "BetPlaced")
}

// receiptLogID extracts the first indexed topic of the named contract event
// from a mined transaction's receipt.
func (c *Client) receiptLogID(ctx context.Context, txHash, event string) (int64, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return 0, fmt.Errorf("ethereum: receipt %s: %w", txHash, err)
	}
	topic := marketABI.Events[event].ID
	for _, lg := range receipt.Logs {
		if lg.Address != c.contract || len(lg.Topics) < 2 || lg.Topics[0] != topic {
			continue
		}
		return lg.Topics[1].Big().Int64(), nil
	}
	return 0, fmt.Errorf("ethereum: tx %s: no %s log in receipt", txHash, event)
}

// WaitConfirmed polls for the transaction receipt until it is mined or the
// configured confirmation timeout elapses. A timeout does not mean failure:
// the transaction may still land, so the outcome is a distinct retryable
// pending state.
func (c *Client) WaitConfirmed(ctx context.Context, txHash string) (domain.TxStatus, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return domain.TxPending, fmt.Errorf("ethereum: tx %s: %w", txHash, domain.ErrTxTimeout)
			}
			return domain.TxPending, waitCtx.Err()
		case <-ticker.C:
			receipt, err := c.eth.TransactionReceipt(waitCtx, hash)
			if err != nil {
				continue // not yet mined
			}
			if receipt.Status == types.ReceiptStatusFailed {
				return domain.TxFailed, fmt.Errorf("ethereum: tx %s: %w", txHash, domain.ErrTxReverted)
			}
			return domain.TxConfirmed, nil
		}
	}
}

// Compile-time interface check.
var _ domain.ChainWriter = (*Client)(nil)

// Package ethereum implements domain.ChainReader and domain.ChainWriter
// against the PredictionMarket contract using go-ethereum.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	// defaultGasLimit is the conservative fallback when estimation fails.
	defaultGasLimit = uint64(300_000)

	// receiptPollInterval is how often WaitConfirmed polls for a receipt.
	receiptPollInterval = 3 * time.Second
)

// weiPerUnit converts between whole stake units and the 18-decimal fixed
// point the market contract stores all amounts in, for both ETH and the
// stake token.
var weiPerUnit = new(big.Float).SetFloat64(1e18)

// Contract ABIs, parsed once at startup.
var (
	marketABI abi.ABI
	erc20ABI  abi.ABI
)

func init() {
	var err error

	marketABI, err = abi.JSON(strings.NewReader(`[
		{"name":"createPrediction","type":"function","inputs":[
			{"name":"title","type":"string"},
			{"name":"description","type":"string"},
			{"name":"useToken","type":"bool"},
			{"name":"deadline","type":"uint256"},
			{"name":"maxCapacity","type":"uint256"}],"outputs":[]},
		{"name":"placeBet","type":"function","stateMutability":"payable","inputs":[
			{"name":"predictionId","type":"uint256"},
			{"name":"choice","type":"bool"},
			{"name":"amount","type":"uint256"}],"outputs":[]},
		{"name":"proposeResult","type":"function","inputs":[
			{"name":"predictionId","type":"uint256"},
			{"name":"result","type":"bool"}],"outputs":[]},
		{"name":"verifyResult","type":"function","inputs":[
			{"name":"predictionId","type":"uint256"},
			{"name":"approve","type":"bool"},
			{"name":"rejectionReason","type":"string"}],"outputs":[]},
		{"name":"claimReward","type":"function","inputs":[
			{"name":"betId","type":"uint256"}],"outputs":[]},
		{"name":"addVerifier","type":"function","inputs":[
			{"name":"verifier","type":"address"}],"outputs":[]},
		{"name":"removeVerifier","type":"function","inputs":[
			{"name":"verifier","type":"address"}],"outputs":[]},
		{"name":"getPrediction","type":"function","stateMutability":"view","inputs":[
			{"name":"predictionId","type":"uint256"}],"outputs":[
			{"name":"deadline","type":"uint256"},
			{"name":"maxCapacity","type":"uint256"},
			{"name":"totalYes","type":"uint256"},
			{"name":"totalNo","type":"uint256"},
			{"name":"status","type":"uint8"},
			{"name":"finalResult","type":"bool"}]},
		{"name":"getBet","type":"function","stateMutability":"view","inputs":[
			{"name":"betId","type":"uint256"}],"outputs":[
			{"name":"predictionId","type":"uint256"},
			{"name":"bettor","type":"address"},
			{"name":"choice","type":"bool"},
			{"name":"amount","type":"uint256"},
			{"name":"claimed","type":"bool"}]},
		{"name":"getUserBets","type":"function","stateMutability":"view","inputs":[
			{"name":"user","type":"address"}],"outputs":[
			{"name":"","type":"uint256[]"}]},
		{"name":"getPredictionBets","type":"function","stateMutability":"view","inputs":[
			{"name":"predictionId","type":"uint256"}],"outputs":[
			{"name":"","type":"uint256[]"}]},
		{"name":"nextPredictionId","type":"function","stateMutability":"view","inputs":[],"outputs":[
			{"name":"","type":"uint256"}]},
		{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[
			{"name":"","type":"address"}]},
		{"name":"verifiers","type":"function","stateMutability":"view","inputs":[
			{"name":"","type":"address"}],"outputs":[
			{"name":"","type":"bool"}]},
		{"name":"PredictionCreated","type":"event","inputs":[
			{"name":"predictionId","type":"uint256","indexed":true},
			{"name":"creator","type":"address","indexed":true},
			{"name":"title","type":"string","indexed":false},
			{"name":"useToken","type":"bool","indexed":false},
			{"name":"deadline","type":"uint256","indexed":false},
			{"name":"maxCapacity","type":"uint256","indexed":false}]},
		{"name":"BetPlaced","type":"event","inputs":[
			{"name":"betId","type":"uint256","indexed":true},
			{"name":"predictionId","type":"uint256","indexed":true},
			{"name":"bettor","type":"address","indexed":true},
			{"name":"choice","type":"bool","indexed":false},
			{"name":"amount","type":"uint256","indexed":false}]}
	]`))
	if err != nil {
		panic("ethereum: market abi parse: " + err.Error())
	}

	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{"name":"approve","type":"function","inputs":[
			{"name":"spender","type":"address"},
			{"name":"amount","type":"uint256"}],"outputs":[
			{"name":"","type":"bool"}]}
	]`))
	if err != nil {
		panic("ethereum: erc20 abi parse: " + err.Error())
	}
}

// Config holds connection and signing parameters for the chain client.
type Config struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	TokenAddress    string // stake token (USDC) for fungible-token predictions
	PrivateKeyHex   string
	ConfirmTimeout  time.Duration
	GasLimit        uint64
}

// Client talks to the PredictionMarket contract over JSON-RPC. It implements
// both domain.ChainReader and domain.ChainWriter.
type Client struct {
	eth      *ethclient.Client
	chainID  *big.Int
	contract common.Address
	token    common.Address
	key      *ecdsa.PrivateKey
	from     common.Address

	confirmTimeout time.Duration
	gasLimit       uint64
}

// New dials the RPC endpoint and prepares the signing key. An empty
// PrivateKeyHex yields a read-only client; write calls will fail.
func New(ctx context.Context, cfg Config) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ethereum: dial %s: %w", cfg.RPCURL, err)
	}

	var key *ecdsa.PrivateKey
	if cfg.PrivateKeyHex != "" {
		key, err = ethcrypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("ethereum: invalid private key: %w", err)
		}
	}

	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 90 * time.Second
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = defaultGasLimit
	}

	c := &Client{
		eth:            eth,
		chainID:        big.NewInt(cfg.ChainID),
		contract:       common.HexToAddress(cfg.ContractAddress),
		token:          common.HexToAddress(cfg.TokenAddress),
		key:            key,
		confirmTimeout: confirmTimeout,
		gasLimit:       gasLimit,
	}
	if key != nil {
		c.from = ethcrypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

// From returns the address transactions are signed with.
func (c *Client) From() string {
	return c.from.Hex()
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Ping verifies RPC connectivity and that the node is on the expected chain.
func (c *Client) Ping(ctx context.Context) error {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("ethereum: ping: %w", err)
	}
	if id.Cmp(c.chainID) != 0 {
		return fmt.Errorf("ethereum: ping: unexpected chain id %s, want %s", id, c.chainID)
	}
	return nil
}

// toUnits converts a whole stake amount to the contract's 18-decimal fixed
// point.
func toUnits(amount float64) *big.Int {
	f := new(big.Float).SetFloat64(amount)
	f.Mul(f, weiPerUnit)
	i, _ := f.Int(nil)
	return i
}

// fromUnits converts an 18-decimal contract amount to whole stake units.
func fromUnits(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	f.Quo(f, weiPerUnit)
	v, _ := f.Float64()
	return v
}

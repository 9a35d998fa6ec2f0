package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soumik404/basecast/internal/domain"
)

// fakeChain is an in-memory stand-in for the market contract. Write calls
// mutate state the way the contract would, so confirmed reads reflect
// submitted transactions.
type fakeChain struct {
	mu sync.Mutex

	predictions map[int64]domain.OnchainPrediction
	bets        map[int64]domain.OnchainBet
	userBets    map[string][]int64
	proposed    map[int64]bool
	nextID      int64
	nextBetID   int64
	owner       string
	verifiers   map[string]bool

	// created and placed mirror the receipt event logs: the id each
	// confirmed transaction carries, keyed by tx hash.
	created map[string]int64
	placed  map[string]int64

	// from is the address bets submitted through the fake are recorded
	// under, mirroring the backend signing wallet.
	from string

	submitErr  error
	confirmErr error
	readErr    error

	// dropLogs simulates a receipt whose event log cannot be found.
	dropLogs bool
	// lagUserBets simulates a node whose bet index trails the receipt.
	lagUserBets bool
	// onConfirm, when set, runs once while a transaction confirms, so a
	// test can land a competing transaction in the gap.
	onConfirm func()

	submits int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		predictions: make(map[int64]domain.OnchainPrediction),
		bets:        make(map[int64]domain.OnchainBet),
		userBets:    make(map[string][]int64),
		proposed:    make(map[int64]bool),
		created:     make(map[string]int64),
		placed:      make(map[string]int64),
		nextID:      1,
		nextBetID:   1,
		verifiers:   make(map[string]bool),
	}
}

func (c *fakeChain) ReadPrediction(_ context.Context, predictionID int64) (domain.OnchainPrediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return domain.OnchainPrediction{}, c.readErr
	}
	p, ok := c.predictions[predictionID]
	if !ok {
		return domain.OnchainPrediction{}, fmt.Errorf("prediction %d: %w", predictionID, domain.ErrNotFound)
	}
	return p, nil
}

func (c *fakeChain) ReadBet(_ context.Context, betID int64) (domain.OnchainBet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bets[betID]
	if !ok {
		return domain.OnchainBet{}, fmt.Errorf("bet %d: %w", betID, domain.ErrNotFound)
	}
	return b, nil
}

func (c *fakeChain) UserBets(_ context.Context, bettor string) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.userBets[bettor]...), nil
}

func (c *fakeChain) PredictionBets(_ context.Context, predictionID int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []int64
	for id, b := range c.bets {
		if b.PredictionID == predictionID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *fakeChain) NextPredictionID(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextID, nil
}

func (c *fakeChain) Owner(_ context.Context) (string, error) {
	return c.owner, nil
}

func (c *fakeChain) IsVerifier(_ context.Context, addr string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifiers[addr], nil
}

func (c *fakeChain) CreatePrediction(_ context.Context, _, _ string, _ domain.StakeCurrency, deadline time.Time, maxCapacity float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	id := c.nextID
	c.nextID++
	c.predictions[id] = domain.OnchainPrediction{
		PredictionID: id,
		Deadline:     deadline,
		MaxCapacity:  maxCapacity,
		StatusCode:   domain.StatusCodeActive,
	}
	hash := fmt.Sprintf("0xtx%d", c.submits)
	c.created[hash] = id
	return hash, nil
}

func (c *fakeChain) PlaceBet(_ context.Context, predictionID int64, choice bool, amount float64, _ domain.StakeCurrency) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	hash := fmt.Sprintf("0xtx%d", c.submits)
	if c.confirmErr == nil {
		id := c.nextBetID
		c.nextBetID++
		c.bets[id] = domain.OnchainBet{
			BetID:        id,
			PredictionID: predictionID,
			Bettor:       c.from,
			Choice:       choice,
			Amount:       amount,
		}
		if !c.lagUserBets {
			c.userBets[c.from] = append(c.userBets[c.from], id)
		}
		c.placed[hash] = id
		p := c.predictions[predictionID]
		if choice {
			p.TotalYes += amount
		} else {
			p.TotalNo += amount
		}
		c.predictions[predictionID] = p
	}
	return hash, nil
}

func (c *fakeChain) ProposeResult(_ context.Context, predictionID int64, result bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	p := c.predictions[predictionID]
	p.StatusCode = domain.StatusCodePendingVerification
	c.predictions[predictionID] = p
	c.proposed[predictionID] = result
	return fmt.Sprintf("0xtx%d", c.submits), nil
}

func (c *fakeChain) VerifyResult(_ context.Context, predictionID int64, approve bool, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	p := c.predictions[predictionID]
	if approve {
		p.StatusCode = domain.StatusCodeResolved
		p.FinalResult = c.proposed[predictionID]
	} else {
		p.StatusCode = domain.StatusCodeActive
		delete(c.proposed, predictionID)
	}
	c.predictions[predictionID] = p
	return fmt.Sprintf("0xtx%d", c.submits), nil
}

func (c *fakeChain) ClaimReward(_ context.Context, betID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	b := c.bets[betID]
	b.Claimed = true
	c.bets[betID] = b
	return fmt.Sprintf("0xtx%d", c.submits), nil
}

func (c *fakeChain) AddVerifier(_ context.Context, addr string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	c.verifiers[addr] = true
	return fmt.Sprintf("0xtx%d", c.submits), nil
}

func (c *fakeChain) RemoveVerifier(_ context.Context, addr string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	delete(c.verifiers, addr)
	return fmt.Sprintf("0xtx%d", c.submits), nil
}

func (c *fakeChain) WaitConfirmed(_ context.Context, _ string) (domain.TxStatus, error) {
	c.mu.Lock()
	hook := c.onConfirm
	c.onConfirm = nil
	confirmErr := c.confirmErr
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	if confirmErr != nil {
		status := domain.TxFailed
		if confirmErr == domain.ErrTxTimeout {
			status = domain.TxPending
		}
		return status, confirmErr
	}
	return domain.TxConfirmed, nil
}

func (c *fakeChain) CreatedPredictionID(_ context.Context, txHash string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.created[txHash]
	if c.dropLogs || !ok {
		return 0, fmt.Errorf("tx %s: no creation log in receipt", txHash)
	}
	return id, nil
}

func (c *fakeChain) PlacedBetID(_ context.Context, txHash string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.placed[txHash]
	if c.dropLogs || !ok {
		return 0, fmt.Errorf("tx %s: no bet log in receipt", txHash)
	}
	return id, nil
}

type fakePredictionStore struct {
	mu      sync.Mutex
	rows    map[int64]domain.Prediction
	upserts int
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{rows: make(map[int64]domain.Prediction)}
}

func (s *fakePredictionStore) Upsert(_ context.Context, p domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.PredictionID] = p
	s.upserts++
	return nil
}

func (s *fakePredictionStore) GetByPredictionID(_ context.Context, predictionID int64) (domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[predictionID]
	if !ok {
		return domain.Prediction{}, fmt.Errorf("prediction %d: %w", predictionID, domain.ErrNotFound)
	}
	return p, nil
}

func (s *fakePredictionStore) ListByStatus(_ context.Context, status domain.PredictionStatus, _ domain.ListOpts) ([]domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Prediction
	for _, p := range s.rows {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePredictionStore) ListActive(_ context.Context, opts domain.ListOpts) ([]domain.Prediction, error) {
	return s.ListByStatus(context.Background(), domain.StatusActive, opts)
}

func (s *fakePredictionStore) ListUpdatedSince(_ context.Context, since time.Time, limit int) ([]domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Prediction
	for _, p := range s.rows {
		if !p.UpdatedAt.Before(since) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePredictionStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

type fakeBetStore struct {
	mu      sync.Mutex
	rows    map[string]domain.Bet
	payouts map[string]float64
}

func newFakeBetStore() *fakeBetStore {
	return &fakeBetStore{rows: make(map[string]domain.Bet)}
}

func (s *fakeBetStore) Create(_ context.Context, b domain.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[b.DocID] = b
	return nil
}

func (s *fakeBetStore) GetByDocID(_ context.Context, docID string) (domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[docID]
	if !ok {
		return domain.Bet{}, fmt.Errorf("bet %q: %w", docID, domain.ErrNotFound)
	}
	return b, nil
}

func (s *fakeBetStore) GetByBetID(_ context.Context, betID int64) (domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.rows {
		if b.BetID == betID {
			return b, nil
		}
	}
	return domain.Bet{}, domain.ErrNotFound
}

func (s *fakeBetStore) GetUserBet(_ context.Context, predictionID int64, bettor string) (domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.rows {
		if b.PredictionID == predictionID && b.Bettor == bettor {
			return b, nil
		}
	}
	return domain.Bet{}, domain.ErrNotFound
}

func (s *fakeBetStore) ListByPrediction(_ context.Context, predictionID int64, _ domain.ListOpts) ([]domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Bet
	for _, b := range s.rows {
		if b.PredictionID == predictionID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeBetStore) ListByUser(_ context.Context, bettor string, _ domain.ListOpts) ([]domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Bet
	for _, b := range s.rows {
		if b.Bettor == bettor {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeBetStore) SetPayouts(_ context.Context, payouts map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payouts = payouts
	for docID, amount := range payouts {
		if b, ok := s.rows[docID]; ok {
			v := amount
			b.Payout = &v
			s.rows[docID] = b
		}
	}
	return nil
}

func (s *fakeBetStore) MarkClaimed(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[docID]
	if !ok {
		return domain.ErrNotFound
	}
	b.Claimed = true
	s.rows[docID] = b
	return nil
}

type fakeProposalStore struct {
	mu   sync.Mutex
	rows map[string]domain.Proposal
}

func newFakeProposalStore() *fakeProposalStore {
	return &fakeProposalStore{rows: make(map[string]domain.Proposal)}
}

func (s *fakeProposalStore) Create(_ context.Context, p domain.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.DocID] = p
	return nil
}

func (s *fakeProposalStore) GetOpen(_ context.Context, predictionID int64) (domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if p.PredictionID == predictionID && !p.Verified {
			return p, nil
		}
	}
	return domain.Proposal{}, domain.ErrNotFound
}

func (s *fakeProposalStore) Update(_ context.Context, p domain.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p.DocID]; !ok {
		return domain.ErrNotFound
	}
	s.rows[p.DocID] = p
	return nil
}

func (s *fakeProposalStore) ListByPrediction(_ context.Context, predictionID int64) ([]domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Proposal
	for _, p := range s.rows {
		if p.PredictionID == predictionID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeLockManager struct {
	held bool
}

func (l *fakeLockManager) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	return func() {}, nil
}

type fakeCache struct {
	mu           sync.Mutex
	invalidated  []int64
	entries      map[int64]domain.Prediction
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int64]domain.Prediction)}
}

func (c *fakeCache) Set(_ context.Context, p domain.Prediction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.PredictionID] = p
	return nil
}

func (c *fakeCache) Get(_ context.Context, predictionID int64) (domain.Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[predictionID]
	if !ok {
		return domain.Prediction{}, domain.ErrNotFound
	}
	return p, nil
}

func (c *fakeCache) Invalidate(_ context.Context, predictionID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, predictionID)
	c.invalidated = append(c.invalidated, predictionID)
	return nil
}

type fakeLeaderboardCache struct {
	invalidations int
}

func (c *fakeLeaderboardCache) Set(_ context.Context, _ []domain.LeaderboardEntry) error {
	return nil
}

func (c *fakeLeaderboardCache) Get(_ context.Context) ([]domain.LeaderboardEntry, error) {
	return nil, domain.ErrNotFound
}

func (c *fakeLeaderboardCache) Invalidate(_ context.Context) error {
	c.invalidations++
	return nil
}

type fakeBus struct {
	mu        sync.Mutex
	published [][]byte
}

func (b *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, payload)
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (a *fakeAudit) has(event string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.events {
		if e == event {
			return true
		}
	}
	return false
}

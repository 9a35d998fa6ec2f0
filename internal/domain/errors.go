package domain

import "errors"

var (
	// ErrValidation marks malformed input caught before any transaction is
	// attempted (missing field, non-positive stake, bad choice value).
	ErrValidation = errors.New("invalid input")

	// ErrUnauthorized marks a wrong principal for the action: a non-creator
	// proposing, a non-verifier verifying, a non-owner managing verifiers.
	// Never retried.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPrecondition marks a data-dependent guard failure: deadline not
	// passed, capacity exceeded, duplicate bet, already claimed. The wrapped
	// message names the guard that failed.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNotFound marks a missing prediction, bet, proposal, or verifier.
	ErrNotFound = errors.New("not found")

	// ErrTxRejected means the signer declined to sign. A benign cancellation,
	// not a failure; the orchestrator performs no projection write.
	ErrTxRejected = errors.New("transaction rejected by signer")

	// ErrTxReverted means the submitted transaction failed on-chain.
	ErrTxReverted = errors.New("transaction reverted")

	// ErrTxTimeout means confirmation did not arrive within the configured
	// bound. The transaction may still land; the caller may retry the wait
	// but must not re-apply off-chain side effects.
	ErrTxTimeout = errors.New("transaction confirmation timed out")

	// ErrReconcileNotFound means reconciliation found no off-chain record to
	// repair for the given on-chain id.
	ErrReconcileNotFound = errors.New("no projection record to reconcile")

	// ErrLockHeld means a distributed settlement lock is already held.
	ErrLockHeld = errors.New("lock already held")
)

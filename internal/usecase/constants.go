package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// MaxPostRetries bounds the optimistic retry loop around chain
	// position assignment before surfacing contention to the caller
	MaxPostRetries = 5

	// DefaultBackwardHops bounds a backward segment verification walk
	DefaultBackwardHops = 1000

	// VerifyCacheTTL is how long a full-chain verification result is
	// served from cache
	VerifyCacheTTL = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// EntryNumberPrefix prefixes generated journal entry numbers
	EntryNumberPrefix = "JE-"
)

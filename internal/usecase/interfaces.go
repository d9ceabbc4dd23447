package usecase

import (
	"context"
	"time"

	"github.com/iho/chainledger/internal/domain"
)

// EntryFilter narrows entry listings.
type EntryFilter struct {
	Status   domain.EntryStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// EntryRepository defines data access for journal entries.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.JournalEntry) error
	// Update persists a draft mutation guarded by the entry's version.
	// Returns domain.ErrVersionConflict when the stored version moved.
	Update(ctx context.Context, entry *domain.JournalEntry, expectedVersion int64) error
	// UpdateTx persists a status transition inside a transaction, with
	// the same optimistic version guard.
	UpdateTx(ctx context.Context, tx Transaction, entry *domain.JournalEntry, expectedVersion int64) error
	GetByNumber(ctx context.Context, entryNumber string) (*domain.JournalEntry, error)
	GetByNumberForUpdate(ctx context.Context, tx Transaction, entryNumber string) (*domain.JournalEntry, error)
	// GetByHash finds the posted entry whose chain hash matches.
	GetByHash(ctx context.Context, hash string) (*domain.JournalEntry, error)
	// GetChainTipForUpdate locks and returns the highest-position
	// posted entry, or (nil, nil) when the chain is empty.
	GetChainTipForUpdate(ctx context.Context, tx Transaction) (*domain.JournalEntry, error)
	// ListPostedByPosition streams posted entries ordered by chain
	// position, starting at fromPosition inclusive.
	ListPostedByPosition(ctx context.Context, fromPosition int64, limit int) ([]*domain.JournalEntry, error)
	List(ctx context.Context, filter EntryFilter) ([]*domain.JournalEntry, error)
}

// AccountRepository defines data access for the chart of accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByCode(ctx context.Context, code string) (*domain.Account, error)
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	// Snapshot fetches the referenced accounts in one round trip.
	// Missing IDs are simply absent from the snapshot; the validator
	// fails closed on them.
	Snapshot(ctx context.Context, ids []string) (domain.AccountSnapshot, error)
}

// AccountRegistry is the lookup contract the validator depends on.
// AccountRepository satisfies it; external registries may too.
type AccountRegistry interface {
	Snapshot(ctx context.Context, ids []string) (domain.AccountSnapshot, error)
}

// BalanceReader aggregates posted lines per account. EntryRepository
// satisfies it.
type BalanceReader interface {
	PostedBalance(ctx context.Context, accountID string) (*domain.AccountBalance, error)
}

// AuditRepository defines data access for the audit log mirror.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	GetByEntry(ctx context.Context, entryNumber string) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

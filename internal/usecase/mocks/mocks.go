package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase"
)

func cloneEntry(e *domain.JournalEntry) *domain.JournalEntry {
	c := *e
	c.Lines = append([]domain.JournalLine(nil), e.Lines...)
	c.AuditTrail = append([]domain.AuditRecord(nil), e.AuditTrail...)
	return &c
}

// MockEntryRepository is an in-memory implementation of
// usecase.EntryRepository. Defaults behave like the real store,
// including optimistic version checks; Func fields override
// individual methods.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.JournalEntry

	CreateFunc               func(ctx context.Context, entry *domain.JournalEntry) error
	UpdateFunc               func(ctx context.Context, entry *domain.JournalEntry, expectedVersion int64) error
	UpdateTxFunc             func(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry, expectedVersion int64) error
	GetByNumberFunc          func(ctx context.Context, entryNumber string) (*domain.JournalEntry, error)
	GetByHashFunc            func(ctx context.Context, hash string) (*domain.JournalEntry, error)
	GetChainTipForUpdateFunc func(ctx context.Context, tx usecase.Transaction) (*domain.JournalEntry, error)
	ListPostedFunc           func(ctx context.Context, fromPosition int64, limit int) ([]*domain.JournalEntry, error)
	ListFunc                 func(ctx context.Context, filter usecase.EntryFilter) ([]*domain.JournalEntry, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.JournalEntry),
	}
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *domain.JournalEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.EntryNumber]; ok {
		return domain.ErrDuplicateEntryNumber
	}
	m.entries[entry.EntryNumber] = cloneEntry(entry)
	return nil
}

func (m *MockEntryRepository) Update(ctx context.Context, entry *domain.JournalEntry, expectedVersion int64) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, entry, expectedVersion)
	}
	return m.update(entry, expectedVersion)
}

func (m *MockEntryRepository) UpdateTx(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry, expectedVersion int64) error {
	if m.UpdateTxFunc != nil {
		return m.UpdateTxFunc(ctx, tx, entry, expectedVersion)
	}
	return m.update(entry, expectedVersion)
}

func (m *MockEntryRepository) update(entry *domain.JournalEntry, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.entries[entry.EntryNumber]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	m.entries[entry.EntryNumber] = cloneEntry(entry)
	return nil
}

func (m *MockEntryRepository) GetByNumber(ctx context.Context, entryNumber string) (*domain.JournalEntry, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, entryNumber)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[entryNumber]; ok {
		return cloneEntry(e), nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, entryNumber string) (*domain.JournalEntry, error) {
	return m.GetByNumber(ctx, entryNumber)
}

func (m *MockEntryRepository) GetByHash(ctx context.Context, hash string) (*domain.JournalEntry, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, hash)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.Status != domain.StatusDraft && e.Hash == hash {
			return cloneEntry(e), nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetChainTipForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.JournalEntry, error) {
	if m.GetChainTipForUpdateFunc != nil {
		return m.GetChainTipForUpdateFunc(ctx, tx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tip *domain.JournalEntry
	for _, e := range m.entries {
		if e.Status == domain.StatusDraft {
			continue
		}
		if tip == nil || e.ChainPosition > tip.ChainPosition {
			tip = e
		}
	}
	if tip == nil {
		return nil, nil
	}
	return cloneEntry(tip), nil
}

func (m *MockEntryRepository) ListPostedByPosition(ctx context.Context, fromPosition int64, limit int) ([]*domain.JournalEntry, error) {
	if m.ListPostedFunc != nil {
		return m.ListPostedFunc(ctx, fromPosition, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	byPosition := make(map[int64]*domain.JournalEntry)
	var max int64 = -1
	for _, e := range m.entries {
		if e.Status == domain.StatusDraft {
			continue
		}
		byPosition[e.ChainPosition] = e
		if e.ChainPosition > max {
			max = e.ChainPosition
		}
	}
	var out []*domain.JournalEntry
	for pos := fromPosition; pos <= max && len(out) < limit; pos++ {
		if e, ok := byPosition[pos]; ok {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (m *MockEntryRepository) List(ctx context.Context, filter usecase.EntryFilter) ([]*domain.JournalEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.JournalEntry
	for _, e := range m.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

// Put seeds an entry directly, bypassing validation. Test helper.
func (m *MockEntryRepository) Put(entry *domain.JournalEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.EntryNumber] = cloneEntry(entry)
}

// Corrupt mutates a stored entry in place, bypassing the API. Test
// helper for tamper scenarios.
func (m *MockEntryRepository) Corrupt(entryNumber string, mutate func(*domain.JournalEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[entryNumber]; ok {
		mutate(e)
	}
}

// MockAccountRepository is an in-memory implementation of
// usecase.AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc    func(ctx context.Context, account *domain.Account) error
	GetByIDFunc   func(ctx context.Context, id string) (*domain.Account, error)
	GetByCodeFunc func(ctx context.Context, code string) (*domain.Account, error)
	SetActiveFunc func(ctx context.Context, id string, active bool, updatedAt time.Time) error
	ListFunc      func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	SnapshotFunc  func(ctx context.Context, ids []string) (domain.AccountSnapshot, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByCode(ctx context.Context, code string) (*domain.Account, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Code == code {
			c := *a
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Active = active
	a.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Account
	for _, a := range m.accounts {
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

func (m *MockAccountRepository) Snapshot(ctx context.Context, ids []string) (domain.AccountSnapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make(domain.AccountSnapshot, len(ids))
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			c := *a
			snapshot[id] = &c
		}
	}
	return snapshot, nil
}

// MockAuditRepository records audit log rows in memory.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog

	CreateTxFunc   func(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error
	GetByEntryFunc func(ctx context.Context, entryNumber string) ([]*domain.AuditLog, error)
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) GetByEntry(ctx context.Context, entryNumber string) ([]*domain.AuditLog, error) {
	if m.GetByEntryFunc != nil {
		return m.GetByEntryFunc(ctx, entryNumber)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditLog
	for _, l := range m.logs {
		if l.EntryNumber == entryNumber {
			out = append(out, l)
		}
	}
	return out, nil
}

// Count returns the number of recorded rows for an entry and action.
func (m *MockAuditRepository) Count(entryNumber, action string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, l := range m.logs {
		if l.EntryNumber == entryNumber && l.Action == action {
			n++
		}
	}
	return n
}

// MockTransactionManager serializes transactions with a mutex, the way
// row locks serialize the real chain-tip read. Begin blocks until the
// previous transaction commits or rolls back.
type MockTransactionManager struct {
	mu sync.Mutex

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	return &MockTransaction{release: m.mu.Unlock}, nil
}

// MockTransaction completes at most once.
type MockTransaction struct {
	once    sync.Once
	release func()

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	t.done()
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}
	t.done()
	return nil
}

func (t *MockTransaction) done() {
	if t.release != nil {
		t.once.Do(t.release)
	}
}

// MockIDGenerator generates ULIDs unless overridden.
type MockIDGenerator struct {
	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return ulid.Make().String()
}

// MockCache is an in-memory usecase.Cache without TTL eviction.
type MockCache struct {
	mu    sync.RWMutex
	items map[string][]byte

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

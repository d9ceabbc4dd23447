package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/infrastructure/metrics"
)

// EntryUseCase drives the journal entry lifecycle: draft editing,
// posting onto the hash chain and voiding. Validation runs outside any
// lock; chain position assignment runs inside a transaction that locks
// the chain tip, retried a bounded number of times under contention.
type EntryUseCase struct {
	txManager   TransactionManager
	entryRepo   EntryRepository
	registry    AccountRegistry
	auditRepo   AuditRepository
	engine      *domain.ChainEngine
	idGen       IDGenerator
	verifyCache Cache
	metrics     *metrics.Metrics
}

// NewEntryUseCase creates a new EntryUseCase. metrics may be nil.
func NewEntryUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	registry AccountRegistry,
	auditRepo AuditRepository,
	engine *domain.ChainEngine,
	idGen IDGenerator,
	verifyCache Cache,
	m *metrics.Metrics,
) *EntryUseCase {
	return &EntryUseCase{
		txManager:   txManager,
		entryRepo:   entryRepo,
		registry:    registry,
		auditRepo:   auditRepo,
		engine:      engine,
		idGen:       idGen,
		verifyCache: verifyCache,
		metrics:     m,
	}
}

// LineInput is one line of a draft entry.
type LineInput struct {
	AccountID   string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// CreateEntryInput represents input for creating a draft entry.
type CreateEntryInput struct {
	Date        time.Time
	Description string
	Reference   string
	Lines       []LineInput
}

// CreateDraft validates and persists a new draft entry. The entry
// number is assigned here and never changes.
func (uc *EntryUseCase) CreateDraft(ctx context.Context, input CreateEntryInput) (*domain.JournalEntry, error) {
	now := time.Now().UTC()

	entry := &domain.JournalEntry{
		EntryNumber: EntryNumberPrefix + uc.idGen.Generate(),
		Date:        input.Date.UTC(),
		Description: input.Description,
		Reference:   input.Reference,
		Lines:       linesFromInput(input.Lines),
		Status:      domain.StatusDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	normalized, err := uc.validate(ctx, entry)
	if err != nil {
		return nil, err
	}

	if err := uc.entryRepo.Create(ctx, normalized); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesDrafted.Inc()
	}

	return normalized, nil
}

// UpdateEntryInput represents a draft mutation. Nil fields are left
// unchanged; a non-nil Lines replaces the line set.
type UpdateEntryInput struct {
	EntryNumber string
	Date        *time.Time
	Description *string
	Reference   *string
	Lines       []LineInput
}

// UpdateDraft mutates a draft entry. A content change against a
// posted entry surfaces the immutability violation naming the field;
// other non-draft edits are rejected as invalid transitions.
func (uc *EntryUseCase) UpdateDraft(ctx context.Context, input UpdateEntryInput) (*domain.JournalEntry, error) {
	entry, err := uc.entryRepo.GetByNumber(ctx, input.EntryNumber)
	if err != nil {
		return nil, err
	}

	updated := applyUpdate(entry, input)

	if !entry.Status.CanTransitionTo(domain.StatusDraft) {
		if v := domain.ValidatePostedMutation(entry, updated); v != nil {
			return nil, v
		}
		return nil, domain.NewStateTransitionError(entry.EntryNumber, entry.Status, domain.StatusDraft)
	}

	normalized, err := uc.validate(ctx, updated)
	if err != nil {
		return nil, err
	}

	normalized.Version = entry.Version + 1
	if err := uc.entryRepo.Update(ctx, normalized, entry.Version); err != nil {
		return nil, err
	}

	return normalized, nil
}

// applyUpdate folds the non-nil input fields into a copy of the entry.
func applyUpdate(entry *domain.JournalEntry, input UpdateEntryInput) *domain.JournalEntry {
	updated := *entry
	updated.Lines = append([]domain.JournalLine(nil), entry.Lines...)
	if input.Date != nil {
		updated.Date = input.Date.UTC()
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}
	if input.Reference != nil {
		updated.Reference = *input.Reference
	}
	if input.Lines != nil {
		updated.Lines = linesFromInput(input.Lines)
	}
	updated.UpdatedAt = time.Now().UTC()
	return &updated
}

// Post transitions a draft entry to posted: assigns the next chain
// position, links prevHash to the chain tip, computes both hashes and
// records the audit trail. Concurrent posts against the same tip are
// retried with backoff; exhaustion surfaces ErrChainContention.
func (uc *EntryUseCase) Post(ctx context.Context, entryNumber, actor string) (*domain.JournalEntry, error) {
	if actor == "" {
		return nil, domain.ErrActorRequired
	}

	// Validation does not depend on other entries, so it runs before
	// taking any lock.
	entry, err := uc.entryRepo.GetByNumber(ctx, entryNumber)
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanTransitionTo(domain.StatusPosted) {
		return nil, domain.NewStateTransitionError(entry.EntryNumber, entry.Status, domain.StatusPosted)
	}
	if _, err := uc.validate(ctx, entry); err != nil {
		return nil, err
	}

	start := time.Now()
	var posted *domain.JournalEntry

	operation := func() error {
		var attemptErr error
		posted, attemptErr = uc.attemptPost(ctx, entryNumber, actor)
		if attemptErr == nil {
			return nil
		}
		if errors.Is(attemptErr, domain.ErrVersionConflict) || errors.Is(attemptErr, domain.ErrChainContention) {
			if uc.metrics != nil {
				uc.metrics.PostRetries.Inc()
			}
			return attemptErr
		}
		return backoff.Permanent(attemptErr)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, MaxPostRetries), ctx)); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrChainContention) {
			if uc.metrics != nil {
				uc.metrics.PostContention.Inc()
			}
			return nil, fmt.Errorf("%w: posting %s", domain.ErrChainContention, entryNumber)
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesPosted.Inc()
		uc.metrics.PostDuration.Observe(time.Since(start).Seconds())
	}

	uc.invalidateVerifyCache(ctx)
	return posted, nil
}

// attemptPost performs one transactional posting attempt.
func (uc *EntryUseCase) attemptPost(ctx context.Context, entryNumber, actor string) (*domain.JournalEntry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, err := uc.entryRepo.GetByNumberForUpdate(ctx, tx, entryNumber)
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanTransitionTo(domain.StatusPosted) {
		return nil, domain.NewStateTransitionError(entry.EntryNumber, entry.Status, domain.StatusPosted)
	}

	tip, err := uc.entryRepo.GetChainTipForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	posted := *entry
	posted.Lines = append([]domain.JournalLine(nil), entry.Lines...)

	if tip == nil {
		posted.ChainPosition = 0
		posted.PrevHash = domain.Genesis
	} else {
		posted.ChainPosition = tip.ChainPosition + 1
		posted.PrevHash = tip.Hash
	}

	posted.Status = domain.StatusPosted
	posted.PostedBy = actor
	posted.PostedAt = &now
	posted.Hash = uc.engine.EntryHash(&posted, posted.PrevHash)
	posted.ImmutableHash = uc.engine.ImmutableHash(&posted)
	posted.UpdatedAt = now
	posted.AppendAudit(domain.AuditActionPost, actor, now, map[string]any{
		"chain_position": posted.ChainPosition,
	})
	posted.Version = entry.Version + 1

	if err := uc.entryRepo.UpdateTx(ctx, tx, &posted, entry.Version); err != nil {
		return nil, err
	}

	if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		EntryNumber: posted.EntryNumber,
		Action:      domain.AuditActionPost,
		PerformedBy: actor,
		Details:     domain.JSON{"chain_position": posted.ChainPosition, "hash": posted.Hash},
		CreatedAt:   now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &posted, nil
}

// Void transitions a posted entry to voided. Content fields and both
// hashes stay exactly as posted; only the void whitelist changes. A
// concurrent void or mutation is rejected via the version guard, not
// overwritten.
func (uc *EntryUseCase) Void(ctx context.Context, entryNumber, actor, reason string) (*domain.JournalEntry, error) {
	if actor == "" {
		return nil, domain.ErrActorRequired
	}
	if err := domain.ValidateVoidReason(reason); err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, err := uc.entryRepo.GetByNumberForUpdate(ctx, tx, entryNumber)
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanTransitionTo(domain.StatusVoided) {
		return nil, domain.NewStateTransitionError(entry.EntryNumber, entry.Status, domain.StatusVoided)
	}

	now := time.Now().UTC()
	voided := *entry
	voided.Lines = append([]domain.JournalLine(nil), entry.Lines...)
	voided.Status = domain.StatusVoided
	voided.VoidedBy = actor
	voided.VoidedAt = &now
	voided.VoidReason = reason
	voided.UpdatedAt = now
	voided.AppendAudit(domain.AuditActionVoid, actor, now, map[string]any{"reason": reason})
	voided.Version = entry.Version + 1

	if v := domain.ValidatePostedMutation(entry, &voided); v != nil {
		return nil, v
	}

	if err := uc.entryRepo.UpdateTx(ctx, tx, &voided, entry.Version); err != nil {
		return nil, err
	}

	if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		EntryNumber: voided.EntryNumber,
		Action:      domain.AuditActionVoid,
		PerformedBy: actor,
		Details:     domain.JSON{"reason": reason},
		CreatedAt:   now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesVoided.Inc()
	}

	return &voided, nil
}

// GetEntry retrieves an entry by number.
func (uc *EntryUseCase) GetEntry(ctx context.Context, entryNumber string) (*domain.JournalEntry, error) {
	return uc.entryRepo.GetByNumber(ctx, entryNumber)
}

// ListEntries lists entries by filter.
func (uc *EntryUseCase) ListEntries(ctx context.Context, filter EntryFilter) ([]*domain.JournalEntry, error) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.entryRepo.List(ctx, filter)
}

// GetAuditLog lists the audit log mirror rows for an entry.
func (uc *EntryUseCase) GetAuditLog(ctx context.Context, entryNumber string) ([]*domain.AuditLog, error) {
	return uc.auditRepo.GetByEntry(ctx, entryNumber)
}

// validate snapshots the referenced accounts and runs the invariant
// checks. Registry failures fail closed.
func (uc *EntryUseCase) validate(ctx context.Context, entry *domain.JournalEntry) (*domain.JournalEntry, error) {
	ids := make([]string, 0, len(entry.Lines))
	seen := make(map[string]bool, len(entry.Lines))
	for _, l := range entry.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}

	snapshot, err := uc.registry.Snapshot(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: account registry: %v", domain.ErrDependencyUnavailable, err)
	}

	normalized, violation := domain.ValidateEntry(entry, snapshot)
	if violation != nil {
		return nil, violation
	}
	return normalized, nil
}

func (uc *EntryUseCase) invalidateVerifyCache(ctx context.Context) {
	if uc.verifyCache != nil {
		// Best effort: a stale cached verification only delays the
		// next fresh pass by the TTL.
		_ = uc.verifyCache.Delete(ctx, verifyCacheKey)
	}
}

func linesFromInput(in []LineInput) []domain.JournalLine {
	lines := make([]domain.JournalLine, len(in))
	for i, l := range in {
		lines[i] = domain.JournalLine{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return lines
}

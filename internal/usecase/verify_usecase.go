package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/infrastructure/metrics"
)

const (
	verifyCacheKey = "chain:verify:full"

	// verifyBatchSize is how many posted entries a full-chain pass
	// loads per round trip.
	verifyBatchSize = 500
)

// VerifyUseCase walks the hash chain and reports every discrepancy it
// finds. Verification is read-only and safe to run concurrently with
// posting: it only compares entries it actually read.
type VerifyUseCase struct {
	entryRepo EntryRepository
	engine    *domain.ChainEngine
	cache     Cache
	metrics   *metrics.Metrics
}

// NewVerifyUseCase creates a new VerifyUseCase. metrics may be nil.
func NewVerifyUseCase(entryRepo EntryRepository, engine *domain.ChainEngine, cache Cache, m *metrics.Metrics) *VerifyUseCase {
	return &VerifyUseCase{
		entryRepo: entryRepo,
		engine:    engine,
		cache:     cache,
		metrics:   m,
	}
}

// VerifyChain recomputes every posted entry's linkage in chain order
// and returns the complete discrepancy list. The expected hash
// advances to the stored hash after every entry, valid or not, so one
// corrupted entry flags only itself, not everything after it.
func (uc *VerifyUseCase) VerifyChain(ctx context.Context) (*domain.ChainVerification, error) {
	if cached := uc.cachedResult(ctx); cached != nil {
		if uc.metrics != nil {
			uc.metrics.VerifyCacheHits.Inc()
		}
		return cached, nil
	}

	start := time.Now()
	result := &domain.ChainVerification{}
	expectedPrev := domain.Genesis
	expectedPosition := int64(0)

	from := int64(0)
	for {
		batch, err := uc.entryRepo.ListPostedByPosition(ctx, from, verifyBatchSize)
		if err != nil {
			// An incomplete pass must never be reported as valid.
			return nil, fmt.Errorf("chain verification aborted at position %d: %w", expectedPosition, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, entry := range batch {
			uc.checkEntry(entry, expectedPrev, expectedPosition, result)
			expectedPrev = entry.Hash
			expectedPosition = entry.ChainPosition + 1
			result.EntriesChecked++
		}

		from = batch[len(batch)-1].ChainPosition + 1
		if len(batch) < verifyBatchSize {
			break
		}
	}

	result.Valid = len(result.Discrepancies) == 0
	uc.recordVerification(result, time.Since(start))
	uc.storeResult(ctx, result)
	return result, nil
}

func (uc *VerifyUseCase) recordVerification(result *domain.ChainVerification, elapsed time.Duration) {
	if uc.metrics == nil {
		return
	}
	outcome := "valid"
	if !result.Valid {
		outcome = "invalid"
	}
	uc.metrics.VerificationsRun.WithLabelValues(outcome).Inc()
	uc.metrics.VerifyDuration.Observe(elapsed.Seconds())
	for _, d := range result.Discrepancies {
		uc.metrics.DiscrepanciesFound.WithLabelValues(string(d.Kind)).Inc()
	}
}

// VerifyEntry recomputes a single entry's hashes against its stored
// content.
func (uc *VerifyUseCase) VerifyEntry(ctx context.Context, entryNumber string) (*domain.ChainVerification, error) {
	entry, err := uc.entryRepo.GetByNumber(ctx, entryNumber)
	if err != nil {
		return nil, err
	}
	if entry.Status == domain.StatusDraft {
		return nil, fmt.Errorf("%w: %s is a draft", domain.ErrEntryNotVerifiable, entryNumber)
	}

	result := &domain.ChainVerification{EntriesChecked: 1}
	if !uc.engine.VerifyEntryHash(entry) {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Position:    entry.ChainPosition,
			EntryNumber: entry.EntryNumber,
			Kind:        domain.DiscrepancyHash,
			Detail:      "stored hash does not match recomputed content hash",
		})
	}
	if !uc.engine.VerifyImmutableHash(entry) {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Position:    entry.ChainPosition,
			EntryNumber: entry.EntryNumber,
			Kind:        domain.DiscrepancyImmutableHash,
			Detail:      "stored immutable hash does not match recomputed posted content",
		})
	}
	if v := domain.ValidateAuditCompleteness(entry); v != nil {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Position:    entry.ChainPosition,
			EntryNumber: entry.EntryNumber,
			Kind:        domain.DiscrepancyMissingAudit,
			Detail:      v.Message,
		})
	}

	result.Valid = len(result.Discrepancies) == 0
	return result, nil
}

// VerifyBackward walks predecessors from the given entry via
// prevHash -> hash lookups until genesis or the hop bound. A
// predecessor that cannot be located breaks the walk and is reported,
// never skipped.
func (uc *VerifyUseCase) VerifyBackward(ctx context.Context, entryNumber string, maxHops int) (*domain.ChainVerification, error) {
	if maxHops <= 0 {
		maxHops = DefaultBackwardHops
	}

	entry, err := uc.entryRepo.GetByNumber(ctx, entryNumber)
	if err != nil {
		return nil, err
	}
	if entry.Status == domain.StatusDraft {
		return nil, fmt.Errorf("%w: %s is a draft", domain.ErrEntryNotVerifiable, entryNumber)
	}

	result := &domain.ChainVerification{}

	current := entry
	for hops := 0; hops < maxHops; hops++ {
		if !uc.engine.VerifyEntryHash(current) {
			result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
				Position:    current.ChainPosition,
				EntryNumber: current.EntryNumber,
				Kind:        domain.DiscrepancyHash,
				Detail:      "stored hash does not match recomputed content hash",
			})
		}
		result.EntriesChecked++

		if current.PrevHash == domain.Genesis {
			break
		}

		prev, err := uc.entryRepo.GetByHash(ctx, current.PrevHash)
		if err != nil {
			result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
				Position:    current.ChainPosition,
				EntryNumber: current.EntryNumber,
				Kind:        domain.DiscrepancyNoPredecessor,
				Detail:      fmt.Sprintf("no posted entry has hash %s", current.PrevHash),
			})
			break
		}
		current = prev
	}

	result.Valid = len(result.Discrepancies) == 0
	return result, nil
}

// checkEntry records discrepancies for one entry during a full pass.
func (uc *VerifyUseCase) checkEntry(entry *domain.JournalEntry, expectedPrev string, expectedPosition int64, result *domain.ChainVerification) {
	if entry.ChainPosition != expectedPosition {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Position:    entry.ChainPosition,
			EntryNumber: entry.EntryNumber,
			Kind:        domain.DiscrepancyPositionGap,
			Detail:      fmt.Sprintf("expected position %d, found %d", expectedPosition, entry.ChainPosition),
		})
	}
	if entry.PrevHash != expectedPrev {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Position:    entry.ChainPosition,
			EntryNumber: entry.EntryNumber,
			Kind:        domain.DiscrepancyPrevHash,
			Detail:      "prevHash does not match predecessor's hash",
		})
	}
	if !uc.engine.VerifyEntryHash(entry) {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Position:    entry.ChainPosition,
			EntryNumber: entry.EntryNumber,
			Kind:        domain.DiscrepancyHash,
			Detail:      "stored hash does not match recomputed content hash",
		})
	}
	if !uc.engine.VerifyImmutableHash(entry) {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Position:    entry.ChainPosition,
			EntryNumber: entry.EntryNumber,
			Kind:        domain.DiscrepancyImmutableHash,
			Detail:      "stored immutable hash does not match recomputed posted content",
		})
	}
	if v := domain.ValidateAuditCompleteness(entry); v != nil {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Position:    entry.ChainPosition,
			EntryNumber: entry.EntryNumber,
			Kind:        domain.DiscrepancyMissingAudit,
			Detail:      v.Message,
		})
	}
}

func (uc *VerifyUseCase) cachedResult(ctx context.Context) *domain.ChainVerification {
	if uc.cache == nil {
		return nil
	}
	data, err := uc.cache.Get(ctx, verifyCacheKey)
	if err != nil || data == nil {
		return nil
	}
	var result domain.ChainVerification
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (uc *VerifyUseCase) storeResult(ctx context.Context, result *domain.ChainVerification) {
	if uc.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = uc.cache.Set(ctx, verifyCacheKey, data, VerifyCacheTTL)
}

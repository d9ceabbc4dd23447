package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase"
	"github.com/iho/chainledger/internal/usecase/mocks"
)

type entryFixture struct {
	uc        *usecase.EntryUseCase
	entryRepo *mocks.MockEntryRepository
	accounts  *mocks.MockAccountRepository
	auditRepo *mocks.MockAuditRepository
	engine    *domain.ChainEngine
	cache     *mocks.MockCache
}

func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()

	engine, err := domain.NewChainEngine([]byte("test-hash-key"))
	if err != nil {
		t.Fatalf("creating chain engine: %v", err)
	}

	accounts := mocks.NewMockAccountRepository()
	now := time.Now().UTC()
	for _, a := range []*domain.Account{
		{ID: "acc-cash", Code: "1000", Name: "Cash", Type: domain.AccountAsset, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "acc-rent", Code: "6000", Name: "Rent Expense", Type: domain.AccountExpense, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "acc-frozen", Code: "9999", Name: "Frozen", Type: domain.AccountAsset, Active: false, CreatedAt: now, UpdatedAt: now},
	} {
		if err := accounts.Create(context.Background(), a); err != nil {
			t.Fatalf("seeding account %s: %v", a.ID, err)
		}
	}

	entryRepo := mocks.NewMockEntryRepository()
	auditRepo := mocks.NewMockAuditRepository()
	cache := mocks.NewMockCache()

	uc := usecase.NewEntryUseCase(
		mocks.NewMockTransactionManager(),
		entryRepo,
		accounts,
		auditRepo,
		engine,
		mocks.NewMockIDGenerator(),
		cache,
		nil,
	)

	return &entryFixture{
		uc:        uc,
		entryRepo: entryRepo,
		accounts:  accounts,
		auditRepo: auditRepo,
		engine:    engine,
		cache:     cache,
	}
}

func balancedInput(amount string) usecase.CreateEntryInput {
	return usecase.CreateEntryInput{
		Date:        time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Description: "Office rent",
		Reference:   "INV-42",
		Lines: []usecase.LineInput{
			{AccountID: "acc-rent", Debit: decimal.RequireFromString(amount), Description: "June rent"},
			{AccountID: "acc-cash", Credit: decimal.RequireFromString(amount)},
		},
	}
}

func TestEntryUseCase_CreateDraft(t *testing.T) {
	t.Run("balanced entry becomes a draft", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("1000.00"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.Status != domain.StatusDraft {
			t.Errorf("expected status draft, got %s", entry.Status)
		}
		if entry.EntryNumber == "" {
			t.Error("expected entry number to be assigned")
		}
		if entry.Hash != "" || entry.PrevHash != "" {
			t.Error("draft must not carry chain hashes")
		}
		if entry.Version != 1 {
			t.Errorf("expected version 1, got %d", entry.Version)
		}
	})

	t.Run("unbalanced entry is rejected", func(t *testing.T) {
		f := newEntryFixture(t)

		input := balancedInput("1000.00")
		input.Lines[1].Credit = decimal.RequireFromString("999.99")

		_, err := f.uc.CreateDraft(context.Background(), input)
		var v *domain.Violation
		if !errors.As(err, &v) {
			t.Fatalf("expected violation, got %v", err)
		}
		if v.Invariant != domain.InvariantDoubleEntry {
			t.Errorf("expected %s violation, got %s", domain.InvariantDoubleEntry, v.Invariant)
		}
	})

	t.Run("unknown account fails closed", func(t *testing.T) {
		f := newEntryFixture(t)

		input := balancedInput("50.00")
		input.Lines[0].AccountID = "acc-missing"

		_, err := f.uc.CreateDraft(context.Background(), input)
		var v *domain.Violation
		if !errors.As(err, &v) {
			t.Fatalf("expected violation, got %v", err)
		}
		if v.Code != domain.CodeUnknownAccount {
			t.Errorf("expected code %s, got %s", domain.CodeUnknownAccount, v.Code)
		}
	})

	t.Run("inactive account is rejected", func(t *testing.T) {
		f := newEntryFixture(t)

		input := balancedInput("50.00")
		input.Lines[0].AccountID = "acc-frozen"

		_, err := f.uc.CreateDraft(context.Background(), input)
		var v *domain.Violation
		if !errors.As(err, &v) {
			t.Fatalf("expected violation, got %v", err)
		}
		if v.Code != domain.CodeInactiveAccount {
			t.Errorf("expected code %s, got %s", domain.CodeInactiveAccount, v.Code)
		}
	})

	t.Run("registry outage fails closed", func(t *testing.T) {
		f := newEntryFixture(t)
		f.accounts.SnapshotFunc = func(ctx context.Context, ids []string) (domain.AccountSnapshot, error) {
			return nil, errors.New("connection refused")
		}

		_, err := f.uc.CreateDraft(context.Background(), balancedInput("10.00"))
		if !errors.Is(err, domain.ErrDependencyUnavailable) {
			t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
		}
	})
}

func TestEntryUseCase_UpdateDraft(t *testing.T) {
	t.Run("draft fields can change", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("1000.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}

		desc := "Office rent, corrected"
		updated, err := f.uc.UpdateDraft(context.Background(), usecase.UpdateEntryInput{
			EntryNumber: entry.EntryNumber,
			Description: &desc,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Description != desc {
			t.Errorf("expected description %q, got %q", desc, updated.Description)
		}
		if updated.Version != entry.Version+1 {
			t.Errorf("expected version %d, got %d", entry.Version+1, updated.Version)
		}
	})

	t.Run("posted entry cannot be edited", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("1000.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}
		if _, err := f.uc.Post(context.Background(), entry.EntryNumber, "alice"); err != nil {
			t.Fatalf("posting: %v", err)
		}

		desc := "tampered"
		_, err = f.uc.UpdateDraft(context.Background(), usecase.UpdateEntryInput{
			EntryNumber: entry.EntryNumber,
			Description: &desc,
		})

		var violation *domain.Violation
		if !errors.As(err, &violation) {
			t.Fatalf("expected an immutability violation, got %v", err)
		}
		if violation.Invariant != domain.InvariantImmutability || violation.Code != domain.CodeImmutableField {
			t.Fatalf("unexpected violation: %+v", violation)
		}
		if violation.Details["field"] != "description" {
			t.Fatalf("expected the description field to be named, got %+v", violation.Details)
		}
	})

	t.Run("field-free update of a posted entry is a transition failure", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("1000.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}
		if _, err := f.uc.Post(context.Background(), entry.EntryNumber, "alice"); err != nil {
			t.Fatalf("posting: %v", err)
		}

		_, err = f.uc.UpdateDraft(context.Background(), usecase.UpdateEntryInput{
			EntryNumber: entry.EntryNumber,
		})
		if !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("expected invalid state transition, got %v", err)
		}
	})
}

func TestEntryUseCase_Post(t *testing.T) {
	t.Run("first post anchors the chain at genesis", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("1000.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}

		posted, err := f.uc.Post(context.Background(), entry.EntryNumber, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if posted.Status != domain.StatusPosted {
			t.Errorf("expected status posted, got %s", posted.Status)
		}
		if posted.ChainPosition != 0 {
			t.Errorf("expected chain position 0, got %d", posted.ChainPosition)
		}
		if posted.PrevHash != domain.Genesis {
			t.Errorf("expected prevHash %q, got %q", domain.Genesis, posted.PrevHash)
		}
		if !f.engine.VerifyEntryHash(posted) {
			t.Error("stored hash does not verify against content")
		}
		if !f.engine.VerifyImmutableHash(posted) {
			t.Error("stored immutable hash does not verify")
		}
		if posted.PostedBy != "alice" || posted.PostedAt == nil {
			t.Error("expected posting actor and timestamp to be recorded")
		}
		if !posted.HasAuditRecord(domain.AuditActionPost) {
			t.Error("expected POST audit record on the entry")
		}
		if n := f.auditRepo.Count(posted.EntryNumber, domain.AuditActionPost); n != 1 {
			t.Errorf("expected 1 POST audit row, got %d", n)
		}
	})

	t.Run("second post links to the first hash", func(t *testing.T) {
		f := newEntryFixture(t)

		first, err := f.uc.CreateDraft(context.Background(), balancedInput("1000.00"))
		if err != nil {
			t.Fatalf("creating first draft: %v", err)
		}
		firstPosted, err := f.uc.Post(context.Background(), first.EntryNumber, "alice")
		if err != nil {
			t.Fatalf("posting first: %v", err)
		}

		second, err := f.uc.CreateDraft(context.Background(), balancedInput("250.00"))
		if err != nil {
			t.Fatalf("creating second draft: %v", err)
		}
		secondPosted, err := f.uc.Post(context.Background(), second.EntryNumber, "alice")
		if err != nil {
			t.Fatalf("posting second: %v", err)
		}

		if secondPosted.ChainPosition != 1 {
			t.Errorf("expected chain position 1, got %d", secondPosted.ChainPosition)
		}
		if secondPosted.PrevHash != firstPosted.Hash {
			t.Errorf("expected prevHash %s, got %s", firstPosted.Hash, secondPosted.PrevHash)
		}
	})

	t.Run("posting requires an actor", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("10.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}

		if _, err := f.uc.Post(context.Background(), entry.EntryNumber, ""); !errors.Is(err, domain.ErrActorRequired) {
			t.Fatalf("expected ErrActorRequired, got %v", err)
		}
	})

	t.Run("posting twice is rejected", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("10.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}
		if _, err := f.uc.Post(context.Background(), entry.EntryNumber, "alice"); err != nil {
			t.Fatalf("first post: %v", err)
		}

		_, err = f.uc.Post(context.Background(), entry.EntryNumber, "alice")
		if !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("expected invalid state transition, got %v", err)
		}
	})

	t.Run("persistent version conflicts surface as chain contention", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("10.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}

		f.entryRepo.UpdateTxFunc = func(ctx context.Context, tx usecase.Transaction, e *domain.JournalEntry, expectedVersion int64) error {
			return domain.ErrVersionConflict
		}

		_, err = f.uc.Post(context.Background(), entry.EntryNumber, "alice")
		if !errors.Is(err, domain.ErrChainContention) {
			t.Fatalf("expected ErrChainContention, got %v", err)
		}
	})

	t.Run("a transient position collision is retried to success", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("10.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}

		// The repository reports a lost tip race as contention; the
		// next attempt re-reads the tip and lands.
		attempts := 0
		f.entryRepo.UpdateTxFunc = func(ctx context.Context, tx usecase.Transaction, e *domain.JournalEntry, expectedVersion int64) error {
			attempts++
			if attempts == 1 {
				return domain.ErrChainContention
			}
			f.entryRepo.UpdateTxFunc = nil
			return f.entryRepo.UpdateTx(ctx, tx, e, expectedVersion)
		}

		posted, err := f.uc.Post(context.Background(), entry.EntryNumber, "alice")
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if attempts != 2 {
			t.Fatalf("expected a second attempt after the collision, got %d", attempts)
		}
		if posted.ChainPosition != 0 || posted.Status != domain.StatusPosted {
			t.Fatalf("unexpected posted entry: position=%d status=%s", posted.ChainPosition, posted.Status)
		}
	})

	t.Run("concurrent posters get contiguous positions", func(t *testing.T) {
		f := newEntryFixture(t)

		const posters = 5
		numbers := make([]string, posters)
		for i := range numbers {
			entry, err := f.uc.CreateDraft(context.Background(), balancedInput(fmt.Sprintf("%d.00", (i+1)*10)))
			if err != nil {
				t.Fatalf("creating draft %d: %v", i, err)
			}
			numbers[i] = entry.EntryNumber
		}

		var wg sync.WaitGroup
		errs := make([]error, posters)
		for i := 0; i < posters; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.uc.Post(context.Background(), numbers[i], "alice")
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("poster %d failed: %v", i, err)
			}
		}

		seen := make(map[int64]string, posters)
		for _, number := range numbers {
			entry, err := f.uc.GetEntry(context.Background(), number)
			if err != nil {
				t.Fatalf("reading %s: %v", number, err)
			}
			if prev, ok := seen[entry.ChainPosition]; ok {
				t.Fatalf("position %d assigned to both %s and %s", entry.ChainPosition, prev, number)
			}
			seen[entry.ChainPosition] = number
		}
		for pos := int64(0); pos < posters; pos++ {
			if _, ok := seen[pos]; !ok {
				t.Errorf("position %d was never assigned", pos)
			}
		}

		verifier := usecase.NewVerifyUseCase(f.entryRepo, f.engine, nil, nil)
		result, err := verifier.VerifyChain(context.Background())
		if err != nil {
			t.Fatalf("verifying chain: %v", err)
		}
		if !result.Valid {
			t.Errorf("expected a valid chain, got discrepancies: %+v", result.Discrepancies)
		}
		if result.EntriesChecked != posters {
			t.Errorf("expected %d entries checked, got %d", posters, result.EntriesChecked)
		}
	})
}

func TestEntryUseCase_Void(t *testing.T) {
	postOne := func(t *testing.T, f *entryFixture) *domain.JournalEntry {
		t.Helper()
		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("1000.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}
		posted, err := f.uc.Post(context.Background(), entry.EntryNumber, "alice")
		if err != nil {
			t.Fatalf("posting: %v", err)
		}
		return posted
	}

	t.Run("void keeps the posted hashes", func(t *testing.T) {
		f := newEntryFixture(t)
		posted := postOne(t, f)

		voided, err := f.uc.Void(context.Background(), posted.EntryNumber, "bob", "duplicate entry")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if voided.Status != domain.StatusVoided {
			t.Errorf("expected status voided, got %s", voided.Status)
		}
		if voided.Hash != posted.Hash {
			t.Errorf("void changed hash: %s -> %s", posted.Hash, voided.Hash)
		}
		if voided.ImmutableHash != posted.ImmutableHash {
			t.Error("void changed the immutable hash")
		}
		if voided.VoidedBy != "bob" || voided.VoidedAt == nil || voided.VoidReason != "duplicate entry" {
			t.Error("expected void actor, timestamp and reason to be recorded")
		}
		if !voided.HasAuditRecord(domain.AuditActionVoid) {
			t.Error("expected VOID audit record on the entry")
		}
		if n := f.auditRepo.Count(posted.EntryNumber, domain.AuditActionVoid); n != 1 {
			t.Errorf("expected 1 VOID audit row, got %d", n)
		}

		// The voided entry still verifies in a full chain pass.
		verifier := usecase.NewVerifyUseCase(f.entryRepo, f.engine, nil, nil)
		result, err := verifier.VerifyChain(context.Background())
		if err != nil {
			t.Fatalf("verifying chain: %v", err)
		}
		if !result.Valid {
			t.Errorf("expected a valid chain after void, got: %+v", result.Discrepancies)
		}
	})

	t.Run("void requires a reason", func(t *testing.T) {
		f := newEntryFixture(t)
		posted := postOne(t, f)

		if _, err := f.uc.Void(context.Background(), posted.EntryNumber, "bob", "  "); !errors.Is(err, domain.ErrVoidReasonRequired) {
			t.Fatalf("expected ErrVoidReasonRequired, got %v", err)
		}
	})

	t.Run("void requires an actor", func(t *testing.T) {
		f := newEntryFixture(t)
		posted := postOne(t, f)

		if _, err := f.uc.Void(context.Background(), posted.EntryNumber, "", "duplicate"); !errors.Is(err, domain.ErrActorRequired) {
			t.Fatalf("expected ErrActorRequired, got %v", err)
		}
	})

	t.Run("draft cannot be voided", func(t *testing.T) {
		f := newEntryFixture(t)

		entry, err := f.uc.CreateDraft(context.Background(), balancedInput("10.00"))
		if err != nil {
			t.Fatalf("creating draft: %v", err)
		}

		_, err = f.uc.Void(context.Background(), entry.EntryNumber, "bob", "mistake")
		if !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("expected invalid state transition, got %v", err)
		}
	})

	t.Run("voiding twice is rejected", func(t *testing.T) {
		f := newEntryFixture(t)
		posted := postOne(t, f)

		if _, err := f.uc.Void(context.Background(), posted.EntryNumber, "bob", "duplicate"); err != nil {
			t.Fatalf("first void: %v", err)
		}
		_, err := f.uc.Void(context.Background(), posted.EntryNumber, "bob", "again")
		if !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("expected invalid state transition, got %v", err)
		}
	})
}

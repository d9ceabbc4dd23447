package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/tests/testutil"
)

func TestConcurrentPosting(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := newLedgerStack(t, testDB)

	cash := testDB.CreateTestAccount(ctx, "1000", "Cash", domain.AccountAsset)
	rent := testDB.CreateTestAccount(ctx, "6000", "Rent Expense", domain.AccountExpense)

	numEntries := 20
	drafts := make([]string, numEntries)
	for i := range drafts {
		draft, err := stack.entryUC.CreateDraft(ctx, balancedInput(cash.ID, rent.ID, decimal.RequireFromString("25.00")))
		if err != nil {
			t.Fatalf("failed to create draft %d: %v", i, err)
		}
		drafts[i] = draft.EntryNumber
	}

	var (
		wg           sync.WaitGroup
		successCount atomic.Int32
		errorCount   atomic.Int32
	)

	wg.Add(numEntries)
	for _, entryNumber := range drafts {
		go func() {
			defer wg.Done()

			if _, err := stack.entryUC.Post(ctx, entryNumber, "tester"); err != nil {
				errorCount.Add(1)
			} else {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(numEntries) {
		t.Errorf("expected %d successful posts, got %d (errors: %d)",
			numEntries, successCount.Load(), errorCount.Load())
	}

	// Every chain position must be assigned exactly once with no gaps.
	posted, err := stack.entryRepo.ListPostedByPosition(ctx, 0, numEntries+1)
	if err != nil {
		t.Fatalf("failed to list posted entries: %v", err)
	}
	if len(posted) != numEntries {
		t.Fatalf("expected %d posted entries, got %d", numEntries, len(posted))
	}
	for i, entry := range posted {
		if entry.ChainPosition != int64(i) {
			t.Fatalf("expected contiguous positions, got %d at index %d", entry.ChainPosition, i)
		}
	}

	result, err := stack.verifyUC.VerifyChain(ctx)
	if err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if !result.Valid || result.EntriesChecked != int64(numEntries) {
		t.Fatalf("expected valid chain of %d, got valid=%v checked=%d",
			numEntries, result.Valid, result.EntriesChecked)
	}
}

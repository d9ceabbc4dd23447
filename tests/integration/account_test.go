package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase"
	"github.com/iho/chainledger/tests/testutil"
)

func TestAccountManagement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := newLedgerStack(t, testDB)

	t.Run("duplicate code rejected", func(t *testing.T) {
		input := usecase.CreateAccountInput{Code: "1000", Name: "Cash", Type: domain.AccountAsset}

		if _, err := stack.accountUC.CreateAccount(ctx, input); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		input.Name = "Petty Cash"
		if _, err := stack.accountUC.CreateAccount(ctx, input); !errors.Is(err, domain.ErrDuplicateCode) {
			t.Fatalf("expected duplicate code error, got %v", err)
		}
	})

	t.Run("deactivated account blocks drafting", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		cash := testDB.CreateTestAccount(ctx, "1000", "Cash", domain.AccountAsset)
		rent := testDB.CreateTestAccount(ctx, "6000", "Rent Expense", domain.AccountExpense)

		if err := stack.accountUC.DeactivateAccount(ctx, rent.ID); err != nil {
			t.Fatalf("failed to deactivate account: %v", err)
		}

		_, err := stack.entryUC.CreateDraft(ctx, balancedInput(cash.ID, rent.ID, decimal.RequireFromString("10.00")))
		var v *domain.Violation
		if !errors.As(err, &v) || v.Code != domain.CodeInactiveAccount {
			t.Fatalf("expected inactive account violation, got %v", err)
		}

		// Reactivation restores drafting.
		if err := stack.accountUC.ReactivateAccount(ctx, rent.ID); err != nil {
			t.Fatalf("failed to reactivate account: %v", err)
		}
		if _, err := stack.entryUC.CreateDraft(ctx, balancedInput(cash.ID, rent.ID, decimal.RequireFromString("10.00"))); err != nil {
			t.Fatalf("expected draft to succeed after reactivation, got %v", err)
		}
	})

	t.Run("balances track posted entries only", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		cash := testDB.CreateTestAccount(ctx, "1000", "Cash", domain.AccountAsset)
		rent := testDB.CreateTestAccount(ctx, "6000", "Rent Expense", domain.AccountExpense)

		// A draft does not move balances.
		if _, err := stack.entryUC.CreateDraft(ctx, balancedInput(cash.ID, rent.ID, decimal.RequireFromString("40.00"))); err != nil {
			t.Fatalf("failed to create draft: %v", err)
		}
		balance, err := stack.accountUC.GetBalance(ctx, rent.ID)
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !balance.Net.IsZero() {
			t.Fatalf("draft must not move balances, got net %s", balance.Net)
		}

		posted := mustPost(t, ctx, stack, cash.ID, rent.ID)

		balance, err = stack.accountUC.GetBalance(ctx, rent.ID)
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !balance.Debits.Equal(decimal.RequireFromString("100.00")) || !balance.Net.Equal(decimal.RequireFromString("100.00")) {
			t.Fatalf("expected rent debits 100.00, got %+v", balance)
		}

		balance, err = stack.accountUC.GetBalance(ctx, cash.ID)
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !balance.Credits.Equal(decimal.RequireFromString("100.00")) || !balance.Net.Equal(decimal.RequireFromString("-100.00")) {
			t.Fatalf("expected cash credits 100.00, got %+v", balance)
		}

		// Voiding removes the entry from the totals.
		if _, err := stack.entryUC.Void(ctx, posted.EntryNumber, "supervisor", "duplicate entry"); err != nil {
			t.Fatalf("failed to void entry: %v", err)
		}
		balance, err = stack.accountUC.GetBalance(ctx, rent.ID)
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !balance.Net.IsZero() {
			t.Fatalf("voided entry must not count, got net %s", balance.Net)
		}
	})
}

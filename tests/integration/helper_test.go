package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/chainledger/internal/adapter/repository/postgres"
	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase"
	"github.com/iho/chainledger/tests/testutil"
)

// ledgerStack bundles the wired use cases backing one test database.
type ledgerStack struct {
	entryUC   *usecase.EntryUseCase
	verifyUC  *usecase.VerifyUseCase
	accountUC *usecase.AccountUseCase
	entryRepo *postgres.EntryRepository
}

func newLedgerStack(t *testing.T, testDB *testutil.TestDB) *ledgerStack {
	t.Helper()

	pool := testDB.Pool
	engine := testutil.NewChainEngine(t)

	txManager := postgres.NewTxManager(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	idGen := postgres.NewULIDGenerator()

	return &ledgerStack{
		entryUC:   usecase.NewEntryUseCase(txManager, entryRepo, accountRepo, auditRepo, engine, idGen, nil, nil),
		verifyUC:  usecase.NewVerifyUseCase(entryRepo, engine, nil, nil),
		accountUC: usecase.NewAccountUseCase(accountRepo, idGen, entryRepo),
		entryRepo: entryRepo,
	}
}

// balancedInput builds a two-line entry moving amount from cash to rent.
func balancedInput(cashID, rentID string, amount decimal.Decimal) usecase.CreateEntryInput {
	return usecase.CreateEntryInput{
		Date:        time.Now().UTC(),
		Description: "office rent",
		Lines: []usecase.LineInput{
			{AccountID: rentID, Debit: amount},
			{AccountID: cashID, Credit: amount},
		},
	}
}

func mustPost(t *testing.T, ctx context.Context, stack *ledgerStack, cashID, rentID string) *domain.JournalEntry {
	t.Helper()

	draft, err := stack.entryUC.CreateDraft(ctx, balancedInput(cashID, rentID, decimal.RequireFromString("100.00")))
	if err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}

	posted, err := stack.entryUC.Post(ctx, draft.EntryNumber, "tester")
	if err != nil {
		t.Fatalf("failed to post entry: %v", err)
	}
	return posted
}

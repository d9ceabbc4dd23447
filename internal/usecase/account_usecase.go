package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/chainledger/internal/domain"
)

// Account validation errors.
var (
	ErrAccountCodeRequired = errors.New("account code is required")
	ErrAccountNameRequired = errors.New("account name is required")
	ErrInvalidAccountType  = errors.New("invalid account type")
)

// AccountUseCase manages the chart of accounts the validator checks
// lines against.
type AccountUseCase struct {
	accountRepo AccountRepository
	idGen       IDGenerator
	balances    BalanceReader
}

// NewAccountUseCase creates a new AccountUseCase. balances may be nil
// when no journal is attached; GetBalance then reports the dependency
// as unavailable.
func NewAccountUseCase(accountRepo AccountRepository, idGen IDGenerator, balances BalanceReader) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		idGen:       idGen,
		balances:    balances,
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Code string
	Name string
	Type domain.AccountType
}

// CreateAccount creates a new active account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if input.Code == "" {
		return nil, ErrAccountCodeRequired
	}
	if input.Name == "" {
		return nil, ErrAccountNameRequired
	}
	if !input.Type.IsValid() {
		return nil, ErrInvalidAccountType
	}

	if existing, err := uc.accountRepo.GetByCode(ctx, input.Code); err == nil && existing != nil {
		return nil, domain.ErrDuplicateCode
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Code:      input.Code,
		Name:      input.Name,
		Type:      input.Type,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.accountRepo.List(ctx, limit, offset)
}

// DeactivateAccount marks an account inactive. Existing posted lines
// keep referencing it; new entries will fail validation against it.
func (uc *AccountUseCase) DeactivateAccount(ctx context.Context, id string) error {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return uc.accountRepo.SetActive(ctx, account.ID, false, time.Now().UTC())
}

// ReactivateAccount marks an account active again.
func (uc *AccountUseCase) ReactivateAccount(ctx context.Context, id string) error {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return uc.accountRepo.SetActive(ctx, account.ID, true, time.Now().UTC())
}

// GetBalance aggregates the posted lines against an account. The
// account must exist; inactive accounts still report their balance.
func (uc *AccountUseCase) GetBalance(ctx context.Context, id string) (*domain.AccountBalance, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if uc.balances == nil {
		return nil, domain.ErrDependencyUnavailable
	}
	return uc.balances.PostedBalance(ctx, account.ID)
}

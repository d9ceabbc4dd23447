package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies a chart-of-accounts entry.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountIncome    AccountType = "income"
	AccountExpense   AccountType = "expense"
)

var validAccountTypes = map[AccountType]bool{
	AccountAsset:     true,
	AccountLiability: true,
	AccountEquity:    true,
	AccountIncome:    true,
	AccountExpense:   true,
}

// IsValid checks if the account type is known.
func (t AccountType) IsValid() bool {
	return validAccountTypes[t]
}

// Account is a chart-of-accounts entry that journal lines reference.
// Inactive accounts cannot appear on new entries.
type Account struct {
	ID        string
	Code      string
	Name      string
	Type      AccountType
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountSnapshot is an immutable view of the account registry taken
// before validation. Lookups fail closed: an account absent from the
// snapshot is treated as nonexistent.
type AccountSnapshot map[string]*Account

// Lookup returns the account and whether it exists.
func (s AccountSnapshot) Lookup(id string) (*Account, bool) {
	a, ok := s[id]
	return a, ok
}

// AccountBalance aggregates the posted journal lines against one
// account. Voided entries are excluded; Net is debits minus credits.
type AccountBalance struct {
	AccountID string
	Debits    decimal.Decimal
	Credits   decimal.Decimal
	Net       decimal.Decimal
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase"
)

// LineRequest is one journal line in a create or update request.
// Amounts are decimal strings; floats are rejected by the decoder.
type LineRequest struct {
	AccountID   string          `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

func linesToInput(lines []LineRequest) []usecase.LineInput {
	out := make([]usecase.LineInput, len(lines))
	for i, l := range lines {
		out[i] = usecase.LineInput{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return out
}

// CreateEntryRequest represents a request to create a draft entry.
type CreateEntryRequest struct {
	Date        time.Time     `json:"date"`
	Description string        `json:"description"`
	Reference   string        `json:"reference,omitempty"`
	Lines       []LineRequest `json:"lines"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput() usecase.CreateEntryInput {
	return usecase.CreateEntryInput{
		Date:        r.Date,
		Description: r.Description,
		Reference:   r.Reference,
		Lines:       linesToInput(r.Lines),
	}
}

// UpdateEntryRequest represents a draft mutation. Absent fields are
// left unchanged.
type UpdateEntryRequest struct {
	Date        *time.Time    `json:"date,omitempty"`
	Description *string       `json:"description,omitempty"`
	Reference   *string       `json:"reference,omitempty"`
	Lines       []LineRequest `json:"lines,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEntryRequest) ToUseCaseInput(entryNumber string) usecase.UpdateEntryInput {
	input := usecase.UpdateEntryInput{
		EntryNumber: entryNumber,
		Date:        r.Date,
		Description: r.Description,
		Reference:   r.Reference,
	}
	if r.Lines != nil {
		input.Lines = linesToInput(r.Lines)
	}
	return input
}

// VoidEntryRequest represents a request to void a posted entry.
type VoidEntryRequest struct {
	Reason string `json:"reason"`
}

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Code: r.Code,
		Name: r.Name,
		Type: domain.AccountType(r.Type),
	}
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

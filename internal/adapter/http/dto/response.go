package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/chainledger/internal/domain"
)

// LineResponse represents a journal line in API responses.
type LineResponse struct {
	AccountID   string          `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// AuditRecordResponse represents one embedded audit record.
type AuditRecordResponse struct {
	Action      string         `json:"action"`
	PerformedBy string         `json:"performed_by"`
	PerformedAt time.Time      `json:"performed_at"`
	Details     map[string]any `json:"details,omitempty"`
}

// EntryResponse represents a journal entry in API responses. Chain
// fields are omitted while the entry is a draft.
type EntryResponse struct {
	EntryNumber   string                `json:"entry_number"`
	Date          time.Time             `json:"date"`
	Description   string                `json:"description"`
	Reference     string                `json:"reference,omitempty"`
	Lines         []LineResponse        `json:"lines"`
	Status        string                `json:"status"`
	ChainPosition *int64                `json:"chain_position,omitempty"`
	PrevHash      string                `json:"prev_hash,omitempty"`
	Hash          string                `json:"hash,omitempty"`
	ImmutableHash string                `json:"immutable_hash,omitempty"`
	PostedBy      string                `json:"posted_by,omitempty"`
	PostedAt      *time.Time            `json:"posted_at,omitempty"`
	VoidedBy      string                `json:"voided_by,omitempty"`
	VoidedAt      *time.Time            `json:"voided_at,omitempty"`
	VoidReason    string                `json:"void_reason,omitempty"`
	AuditTrail    []AuditRecordResponse `json:"audit_trail,omitempty"`
	Version       int64                 `json:"version"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.JournalEntry) *EntryResponse {
	resp := &EntryResponse{
		EntryNumber:   e.EntryNumber,
		Date:          e.Date,
		Description:   e.Description,
		Reference:     e.Reference,
		Lines:         make([]LineResponse, len(e.Lines)),
		Status:        string(e.Status),
		PrevHash:      e.PrevHash,
		Hash:          e.Hash,
		ImmutableHash: e.ImmutableHash,
		PostedBy:      e.PostedBy,
		PostedAt:      e.PostedAt,
		VoidedBy:      e.VoidedBy,
		VoidedAt:      e.VoidedAt,
		VoidReason:    e.VoidReason,
		Version:       e.Version,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	for i, l := range e.Lines {
		resp.Lines[i] = LineResponse{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	if e.Status != domain.StatusDraft {
		pos := e.ChainPosition
		resp.ChainPosition = &pos
	}
	for _, rec := range e.AuditTrail {
		resp.AuditTrail = append(resp.AuditTrail, AuditRecordResponse{
			Action:      rec.Action,
			PerformedBy: rec.PerformedBy,
			PerformedAt: rec.Timestamp,
			Details:     rec.Details,
		})
	}
	return resp
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.JournalEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// DiscrepancyResponse represents one verification finding.
type DiscrepancyResponse struct {
	Position    int64  `json:"position"`
	EntryNumber string `json:"entry_number"`
	Kind        string `json:"kind"`
	Detail      string `json:"detail,omitempty"`
}

// BalanceResponse represents an account's posted totals.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Debits    decimal.Decimal `json:"debits"`
	Credits   decimal.Decimal `json:"credits"`
	Net       decimal.Decimal `json:"net"`
}

// BalanceFromDomain converts an account balance to a response.
func BalanceFromDomain(b *domain.AccountBalance) *BalanceResponse {
	return &BalanceResponse{
		AccountID: b.AccountID,
		Debits:    b.Debits,
		Credits:   b.Credits,
		Net:       b.Net,
	}
}

// VerificationResponse represents a chain verification result.
type VerificationResponse struct {
	Valid          bool                  `json:"valid"`
	EntriesChecked int64                 `json:"entries_checked"`
	Discrepancies  []DiscrepancyResponse `json:"discrepancies,omitempty"`
}

// VerificationFromDomain converts a verification result to a response.
func VerificationFromDomain(v *domain.ChainVerification) *VerificationResponse {
	resp := &VerificationResponse{
		Valid:          v.Valid,
		EntriesChecked: v.EntriesChecked,
	}
	for _, d := range v.Discrepancies {
		resp.Discrepancies = append(resp.Discrepancies, DiscrepancyResponse{
			Position:    d.Position,
			EntryNumber: d.EntryNumber,
			Kind:        string(d.Kind),
			Detail:      d.Detail,
		})
	}
	return resp
}

// AuditLogResponse represents an audit log row in API responses.
type AuditLogResponse struct {
	ID          string         `json:"id"`
	EntryNumber string         `json:"entry_number"`
	Action      string         `json:"action"`
	PerformedBy string         `json:"performed_by"`
	RequestID   string         `json:"request_id,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// AuditLogsFromDomain converts audit log rows to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			ID:          l.ID,
			EntryNumber: l.EntryNumber,
			Action:      l.Action,
			PerformedBy: l.PerformedBy,
			RequestID:   l.RequestID,
			Details:     l.Details,
			CreatedAt:   l.CreatedAt,
		}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

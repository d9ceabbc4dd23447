package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	StatusDraft  EntryStatus = "draft"
	StatusPosted EntryStatus = "posted"
	StatusVoided EntryStatus = "voided"
)

// IsValid checks if the status is a known status.
func (s EntryStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPosted, StatusVoided:
		return true
	}
	return false
}

// CanTransitionTo reports whether a status change is legal.
// draft may stay draft or become posted; posted may become voided;
// voided is terminal.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusDraft || next == StatusPosted
	case StatusPosted:
		return next == StatusVoided
	}
	return false
}

// Genesis is the previous-hash sentinel for the entry at chain position 0.
const Genesis = "GENESIS"

// JournalLine is a single debit or credit against an account.
// Exactly one of Debit/Credit is non-zero, both are non-negative,
// and amounts carry at most two fractional digits.
type JournalLine struct {
	AccountID   string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// AuditRecord is one element of an entry's append-only audit trail.
type AuditRecord struct {
	Action      string
	PerformedBy string
	Timestamp   time.Time
	Details     map[string]any
}

// Audit trail actions.
const (
	AuditActionPost = "POST"
	AuditActionVoid = "VOID"
)

// JournalEntry is a double-entry accounting record. Once posted it is
// immutable and cryptographically linked to its chain predecessor;
// voiding flips the status and void metadata but leaves the posted
// content, and its hashes, untouched.
type JournalEntry struct {
	EntryNumber string
	Date        time.Time
	Description string
	Reference   string
	Lines       []JournalLine
	Status      EntryStatus

	// Chain fields, set at posting. ChainPosition is zero-based and
	// contiguous over posted entries. PrevHash is the predecessor's
	// Hash, or Genesis at position 0.
	ChainPosition int64
	PrevHash      string
	Hash          string
	ImmutableHash string

	PostedBy string
	PostedAt *time.Time

	VoidedBy   string
	VoidedAt   *time.Time
	VoidReason string

	AuditTrail []AuditRecord

	// Version supports optimistic concurrency on status transitions.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalDebit sums the debit side of all lines.
func (e *JournalEntry) TotalDebit() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range e.Lines {
		sum = sum.Add(l.Debit)
	}
	return sum
}

// TotalCredit sums the credit side of all lines.
func (e *JournalEntry) TotalCredit() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range e.Lines {
		sum = sum.Add(l.Credit)
	}
	return sum
}

// IsBalanced reports whether debits equal credits exactly.
func (e *JournalEntry) IsBalanced() bool {
	return e.TotalDebit().Equal(e.TotalCredit())
}

// voidMutable lists the only fields a posted->voided transition may
// touch. Everything else on a posted entry is frozen; the whitelist is
// checked by the validator and asserted in tests.
var voidMutable = map[string]bool{
	"status":     true,
	"voidedBy":   true,
	"voidedAt":   true,
	"voidReason": true,
	"auditTrail": true,
	"version":    true,
	"updatedAt":  true,
}

// VoidMutableFields returns the whitelist of field names a void
// transition is allowed to change.
func VoidMutableFields() map[string]bool {
	out := make(map[string]bool, len(voidMutable))
	for k := range voidMutable {
		out[k] = true
	}
	return out
}

// AppendAudit appends a record to the entry's audit trail.
func (e *JournalEntry) AppendAudit(action, performedBy string, at time.Time, details map[string]any) {
	e.AuditTrail = append(e.AuditTrail, AuditRecord{
		Action:      action,
		PerformedBy: performedBy,
		Timestamp:   at,
		Details:     details,
	})
}

// HasAuditRecord reports whether at least one audit record with a
// non-empty actor exists for the given action.
func (e *JournalEntry) HasAuditRecord(action string) bool {
	for _, r := range e.AuditTrail {
		if r.Action == action && r.PerformedBy != "" {
			return true
		}
	}
	return false
}

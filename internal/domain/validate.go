package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MinEntryLines is the minimum number of lines on a journal entry.
const MinEntryLines = 2

// maxAmountPlaces is the maximum number of fractional digits an amount
// may carry.
const maxAmountPlaces = 2

// ValidateEntry checks a candidate entry against the account snapshot
// and returns a normalized copy (amounts canonicalized to two decimal
// places) or the first invariant violation found. It is a pure
// function: no lookups beyond the provided snapshot, no mutation of
// the input.
//
// Check order: line count, per-line shape and precision, balance,
// account existence and activity.
func ValidateEntry(e *JournalEntry, accounts AccountSnapshot) (*JournalEntry, *Violation) {
	if len(e.Lines) < MinEntryLines {
		return nil, NewViolation(InvariantDoubleEntry, CodeTooFewLines,
			fmt.Sprintf("journal entry requires at least %d lines, got %d", MinEntryLines, len(e.Lines)),
			map[string]any{"lines": len(e.Lines)})
	}

	for i, l := range e.Lines {
		if v := validateLine(i, l); v != nil {
			return nil, v
		}
	}

	totalDebit := e.TotalDebit()
	totalCredit := e.TotalCredit()
	if !totalDebit.Equal(totalCredit) {
		return nil, NewViolation(InvariantDoubleEntry, CodeUnbalanced,
			fmt.Sprintf("debits %s do not equal credits %s", totalDebit.StringFixed(2), totalCredit.StringFixed(2)),
			map[string]any{
				"total_debit":  totalDebit.StringFixed(2),
				"total_credit": totalCredit.StringFixed(2),
			})
	}

	for i, l := range e.Lines {
		account, ok := accounts.Lookup(l.AccountID)
		if !ok {
			return nil, NewViolation(InvariantAccountIdentity, CodeUnknownAccount,
				fmt.Sprintf("line %d references unknown account %s", i, l.AccountID),
				map[string]any{"line": i, "account_id": l.AccountID})
		}
		if !account.Active {
			return nil, NewViolation(InvariantAccountIdentity, CodeInactiveAccount,
				fmt.Sprintf("line %d references inactive account %s", i, l.AccountID),
				map[string]any{"line": i, "account_id": l.AccountID})
		}
	}

	return normalizeEntry(e), nil
}

// ValidatePostedMutation diffs a proposed change against a posted
// entry. Only the void whitelist may differ; any content change is an
// immutability violation.
func ValidatePostedMutation(current, proposed *JournalEntry) *Violation {
	if current.Status != StatusPosted {
		return nil
	}

	changed := func(field string) *Violation {
		return NewViolation(InvariantImmutability, CodeImmutableField,
			fmt.Sprintf("field %s on posted entry %s is immutable", field, current.EntryNumber),
			map[string]any{"field": field, "entry_number": current.EntryNumber})
	}

	if proposed.EntryNumber != current.EntryNumber {
		return changed("entryNumber")
	}
	if !proposed.Date.Equal(current.Date) {
		return changed("date")
	}
	if proposed.Description != current.Description {
		return changed("description")
	}
	if proposed.Reference != current.Reference {
		return changed("reference")
	}
	if !linesEqual(proposed.Lines, current.Lines) {
		return changed("lines")
	}
	if proposed.ChainPosition != current.ChainPosition {
		return changed("chainPosition")
	}
	if proposed.PrevHash != current.PrevHash {
		return changed("prevHash")
	}
	if proposed.Hash != current.Hash {
		return changed("hash")
	}
	if proposed.ImmutableHash != current.ImmutableHash {
		return changed("immutableHash")
	}
	if proposed.PostedBy != current.PostedBy || !timePtrEqual(proposed.PostedAt, current.PostedAt) {
		return changed("postedBy")
	}
	return nil
}

// ValidateAuditCompleteness checks that a non-draft entry carries the
// audit record its status requires.
func ValidateAuditCompleteness(e *JournalEntry) *Violation {
	missing := func(action string) *Violation {
		return NewViolation(InvariantAuditCompleteness, CodeMissingAudit,
			fmt.Sprintf("entry %s is %s but has no %s audit record with an actor", e.EntryNumber, e.Status, action),
			map[string]any{"entry_number": e.EntryNumber, "status": string(e.Status)})
	}

	switch e.Status {
	case StatusPosted:
		if !e.HasAuditRecord(AuditActionPost) {
			return missing(AuditActionPost)
		}
	case StatusVoided:
		if !e.HasAuditRecord(AuditActionPost) {
			return missing(AuditActionPost)
		}
		if !e.HasAuditRecord(AuditActionVoid) {
			return missing(AuditActionVoid)
		}
	}
	return nil
}

func validateLine(i int, l JournalLine) *Violation {
	details := map[string]any{
		"line":       i,
		"account_id": l.AccountID,
		"debit":      l.Debit.String(),
		"credit":     l.Credit.String(),
	}

	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return NewViolation(InvariantDecimalPrecision, CodeNegativeAmount,
			fmt.Sprintf("line %d has a negative amount", i), details)
	}
	debitSet := l.Debit.IsPositive()
	creditSet := l.Credit.IsPositive()
	if debitSet && creditSet {
		return NewViolation(InvariantDecimalPrecision, CodeBothSidesSet,
			fmt.Sprintf("line %d has both debit and credit set", i), details)
	}
	if !debitSet && !creditSet {
		return NewViolation(InvariantDecimalPrecision, CodeNoSideSet,
			fmt.Sprintf("line %d has neither debit nor credit set", i), details)
	}
	if exceedsPlaces(l.Debit) || exceedsPlaces(l.Credit) {
		return NewViolation(InvariantDecimalPrecision, CodeExcessPrecision,
			fmt.Sprintf("line %d amount exceeds %d decimal places", i, maxAmountPlaces), details)
	}
	return nil
}

// exceedsPlaces reports whether d has more than maxAmountPlaces
// fractional digits. Truncation drops excess digits, so the value
// survives a round trip only when it already fits.
func exceedsPlaces(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(maxAmountPlaces))
}

// normalizeEntry returns a copy with all amounts rounded to the fixed
// precision. Inputs already validated to fit, so rounding is a
// representation change only.
func normalizeEntry(e *JournalEntry) *JournalEntry {
	out := *e
	out.Lines = make([]JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		out.Lines[i] = JournalLine{
			AccountID:   l.AccountID,
			Debit:       l.Debit.Round(maxAmountPlaces),
			Credit:      l.Credit.Round(maxAmountPlaces),
			Description: l.Description,
		}
	}
	return &out
}

func linesEqual(a, b []JournalLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].AccountID != b[i].AccountID ||
			!a[i].Debit.Equal(b[i].Debit) ||
			!a[i].Credit.Equal(b[i].Credit) ||
			a[i].Description != b[i].Description {
			return false
		}
	}
	return true
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

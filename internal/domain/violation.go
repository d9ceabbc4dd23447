package domain

import "fmt"

// Invariant names a structural or business rule every journal entry
// must satisfy.
type Invariant string

const (
	// InvariantDoubleEntry: total debits equal total credits exactly.
	InvariantDoubleEntry Invariant = "DOUBLE_ENTRY"
	// InvariantAccountIdentity: every line references an existing,
	// active account.
	InvariantAccountIdentity Invariant = "ACCOUNT_IDENTITY"
	// InvariantImmutability: posted content fields never change.
	InvariantImmutability Invariant = "IMMUTABILITY"
	// InvariantHashIntegrity: stored hashes match recomputation and
	// chain linkage.
	InvariantHashIntegrity Invariant = "HASH_INTEGRITY"
	// InvariantDecimalPrecision: amounts have at most two fractional
	// digits, one side per line, non-negative.
	InvariantDecimalPrecision Invariant = "DECIMAL_PRECISION"
	// InvariantStatusMachine: only draft->draft, draft->posted and
	// posted->voided are legal.
	InvariantStatusMachine Invariant = "STATUS_MACHINE"
	// InvariantAuditCompleteness: every non-draft entry carries at
	// least one audit record with a non-empty actor.
	InvariantAuditCompleteness Invariant = "AUDIT_COMPLETENESS"
)

// Violation codes.
const (
	CodeTooFewLines       = "TOO_FEW_LINES"
	CodeBothSidesSet      = "BOTH_SIDES_SET"
	CodeNoSideSet         = "NO_SIDE_SET"
	CodeNegativeAmount    = "NEGATIVE_AMOUNT"
	CodeExcessPrecision   = "EXCESS_PRECISION"
	CodeUnbalanced        = "UNBALANCED"
	CodeUnknownAccount    = "UNKNOWN_ACCOUNT"
	CodeInactiveAccount   = "INACTIVE_ACCOUNT"
	CodeImmutableField    = "IMMUTABILITY_VIOLATION"
	CodeMissingAudit      = "MISSING_AUDIT_RECORD"
	CodeInvalidTransition = "INVALID_STATE_TRANSITION"
)

// Violation is a structured invariant failure. It is always produced
// before any write; an entry that yields a Violation is never persisted
// in the violating state.
type Violation struct {
	Invariant Invariant
	Code      string
	Message   string
	Details   map[string]any
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s/%s: %s", v.Invariant, v.Code, v.Message)
}

// NewViolation builds a Violation.
func NewViolation(inv Invariant, code, message string, details map[string]any) *Violation {
	return &Violation{Invariant: inv, Code: code, Message: message, Details: details}
}

// DiscrepancyKind classifies a chain verification mismatch.
type DiscrepancyKind string

const (
	DiscrepancyPrevHash      DiscrepancyKind = "PREVHASH_MISMATCH"
	DiscrepancyHash          DiscrepancyKind = "HASH_MISMATCH"
	DiscrepancyImmutableHash DiscrepancyKind = "IMMUTABLE_HASH_MISMATCH"
	DiscrepancyPositionGap   DiscrepancyKind = "POSITION_GAP"
	DiscrepancyNoPredecessor DiscrepancyKind = "PREDECESSOR_NOT_FOUND"
	DiscrepancyMissingAudit  DiscrepancyKind = "MISSING_AUDIT_RECORD"
)

// Discrepancy is a single chain verification failure. Discrepancies are
// data, not errors: verification collects the complete list and never
// repairs anything.
type Discrepancy struct {
	Position    int64
	EntryNumber string
	Kind        DiscrepancyKind
	Detail      string
}

// ChainVerification is the outcome of a verification pass. Valid is
// true only when the pass completed and found no discrepancies; a pass
// that could not complete must not report Valid.
type ChainVerification struct {
	Valid          bool
	EntriesChecked int64
	Discrepancies  []Discrepancy
}

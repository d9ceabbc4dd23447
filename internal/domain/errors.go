package domain

import (
	"errors"
	"fmt"
)

var (
	// Entry errors
	ErrEntryNotFound        = errors.New("journal entry not found")
	ErrDuplicateEntryNumber = errors.New("entry number already exists")

	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is inactive")
	ErrDuplicateCode   = errors.New("account code already exists")

	// Transition errors
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrVoidReasonRequired     = errors.New("void reason is required")
	ErrActorRequired          = errors.New("actor identity is required")

	// Chain errors
	ErrChainContention       = errors.New("chain position contention, retry posting")
	ErrEntryNotVerifiable    = errors.New("entry is not on the chain and cannot be verified")
	ErrVersionConflict       = errors.New("entry was modified concurrently")
	ErrPredecessorNotFound   = errors.New("chain predecessor not found")
	ErrHashKeyRequired       = errors.New("ledger hash key must not be empty")
	ErrDependencyUnavailable = errors.New("required dependency unavailable")
)

// StateTransitionError reports an illegal status change. The entry is
// left untouched when this is returned.
type StateTransitionError struct {
	EntryNumber string
	From        EntryStatus
	To          EntryStatus
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s for entry %s", e.From, e.To, e.EntryNumber)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// NewStateTransitionError builds a StateTransitionError.
func NewStateTransitionError(entryNumber string, from, to EntryStatus) *StateTransitionError {
	return &StateTransitionError{EntryNumber: entryNumber, From: from, To: to}
}

package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEntryStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from    EntryStatus
		to      EntryStatus
		allowed bool
	}{
		{StatusDraft, StatusDraft, true},
		{StatusDraft, StatusPosted, true},
		{StatusDraft, StatusVoided, false},
		{StatusPosted, StatusVoided, true},
		{StatusPosted, StatusPosted, false},
		{StatusPosted, StatusDraft, false},
		{StatusVoided, StatusDraft, false},
		{StatusVoided, StatusPosted, false},
		{StatusVoided, StatusVoided, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestEntryTotalsAndBalance(t *testing.T) {
	t.Parallel()

	entry := &JournalEntry{
		Lines: []JournalLine{
			{AccountID: "acc-cash", Debit: decimal.RequireFromString("1000.00")},
			{AccountID: "acc-revenue", Credit: decimal.RequireFromString("600.00")},
			{AccountID: "acc-tax", Credit: decimal.RequireFromString("400.00")},
		},
	}

	if !entry.TotalDebit().Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("total debit = %s, want 1000.00", entry.TotalDebit())
	}
	if !entry.TotalCredit().Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("total credit = %s, want 1000.00", entry.TotalCredit())
	}
	if !entry.IsBalanced() {
		t.Error("expected balanced entry")
	}

	entry.Lines[2].Credit = decimal.RequireFromString("400.01")
	if entry.IsBalanced() {
		t.Error("expected unbalanced entry after amount change")
	}
}

func TestVoidMutableFieldsWhitelist(t *testing.T) {
	t.Parallel()

	want := []string{"status", "voidedBy", "voidedAt", "voidReason", "auditTrail", "version", "updatedAt"}

	got := VoidMutableFields()
	if len(got) != len(want) {
		t.Fatalf("whitelist has %d fields, want %d", len(got), len(want))
	}
	for _, f := range want {
		if !got[f] {
			t.Errorf("whitelist missing field %q", f)
		}
	}

	// Content fields must never be voidable.
	for _, f := range []string{"lines", "date", "description", "entryNumber", "hash", "immutableHash", "prevHash", "chainPosition"} {
		if got[f] {
			t.Errorf("whitelist must not contain %q", f)
		}
	}
}

func TestAppendAuditAndHasAuditRecord(t *testing.T) {
	t.Parallel()

	entry := &JournalEntry{EntryNumber: "JE-1"}
	if entry.HasAuditRecord(AuditActionPost) {
		t.Error("empty trail should have no POST record")
	}

	now := time.Now().UTC()
	entry.AppendAudit(AuditActionPost, "user-1", now, nil)
	entry.AppendAudit(AuditActionVoid, "user-2", now, map[string]any{"reason": "duplicate"})

	if !entry.HasAuditRecord(AuditActionPost) {
		t.Error("expected POST audit record")
	}
	if !entry.HasAuditRecord(AuditActionVoid) {
		t.Error("expected VOID audit record")
	}

	// A record with an empty actor does not satisfy audit completeness.
	other := &JournalEntry{}
	other.AppendAudit(AuditActionPost, "", now, nil)
	if other.HasAuditRecord(AuditActionPost) {
		t.Error("record without actor must not count")
	}
}

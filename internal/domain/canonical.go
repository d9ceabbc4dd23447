package domain

import (
	"sort"
	"strings"
	"time"
)

// Canonical serialization produces the byte form hashed by the chain
// engine. Fields are enumerated explicitly, amounts are rendered as
// fixed two-decimal strings and lines are sorted by a stable key, so
// neither map ordering nor line insertion order ever changes the hash.

const canonicalTimeFormat = time.RFC3339

// canonicalLines returns the entry's lines sorted by
// (accountID, debit, credit, description).
func canonicalLines(lines []JournalLine) []JournalLine {
	sorted := make([]JournalLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		if !a.Debit.Equal(b.Debit) {
			return a.Debit.LessThan(b.Debit)
		}
		if !a.Credit.Equal(b.Credit) {
			return a.Credit.LessThan(b.Credit)
		}
		return a.Description < b.Description
	})
	return sorted
}

func canonicalLine(l JournalLine) string {
	return strings.Join([]string{
		l.AccountID,
		l.Debit.StringFixed(2),
		l.Credit.StringFixed(2),
		l.Description,
	}, ",")
}

func canonicalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(canonicalTimeFormat)
}

// CanonicalContent serializes the entry's full content for the chain
// hash. Chain linkage fields (prevHash, hash, immutableHash, position)
// and void metadata are excluded: the chain hash commits to the posted
// content, and voiding must not disturb it.
func CanonicalContent(e *JournalEntry) string {
	parts := []string{
		"entry_number=" + e.EntryNumber,
		"date=" + e.Date.UTC().Format(canonicalTimeFormat),
		"description=" + e.Description,
		"reference=" + e.Reference,
	}
	for _, l := range canonicalLines(e.Lines) {
		parts = append(parts, "line="+canonicalLine(l))
	}
	return strings.Join(parts, "|")
}

// ImmutableContent serializes the narrow posted-immutable field set
// for the immutable hash: entryNumber, date, description, lines,
// reference, postedAt, postedBy. It is computed once, at posting, and
// is a tamper signal independent of the chain hash.
func ImmutableContent(e *JournalEntry) string {
	parts := []string{
		"entry_number=" + e.EntryNumber,
		"date=" + e.Date.UTC().Format(canonicalTimeFormat),
		"description=" + e.Description,
		"reference=" + e.Reference,
		"posted_at=" + canonicalTime(e.PostedAt),
		"posted_by=" + e.PostedBy,
	}
	for _, l := range canonicalLines(e.Lines) {
		parts = append(parts, "line="+canonicalLine(l))
	}
	return strings.Join(parts, "|")
}

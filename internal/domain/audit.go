package domain

import (
	"encoding/json"
	"time"
)

// AuditLog mirrors entry audit records into a queryable table. The
// entry's own auditTrail stays the authoritative copy; both are
// written in the same transaction as the status change.
type AuditLog struct {
	ID          string
	EntryNumber string
	Action      string
	PerformedBy string
	RequestID   string
	Details     JSON
	CreatedAt   time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

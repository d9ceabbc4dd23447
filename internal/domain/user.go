package domain

import (
	"errors"
	"time"
)

// User is an authenticated actor. Every posting or voiding call
// requires one; the auth layer supplies it, the ledger only records
// the identity.
type User struct {
	ID             string
	Email          string
	Name           string
	HashedPassword string
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Active         bool
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin has full access to all operations
	RoleAdmin Role = "admin"

	// RoleAccountant can create, post and void journal entries, but
	// cannot manage the chart of accounts
	RoleAccountant Role = "accountant"

	// RoleAuditor can view entries and run chain verification, no mutations
	RoleAuditor Role = "auditor"
)

// Valid roles
var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleAccountant: true,
	RoleAuditor:    true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanPost checks if the role can create, post or void journal entries
func (r Role) CanPost() bool {
	return r == RoleAdmin || r == RoleAccountant
}

// CanManageAccounts checks if the role can manage the chart of accounts
func (r Role) CanManageAccounts() bool {
	return r == RoleAdmin
}

// CanVerify checks if the role can run chain verification
func (r Role) CanVerify() bool {
	// All authenticated users can verify; it is read-only
	return r.IsValid()
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

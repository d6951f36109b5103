// Package models defines issuer identity types. Issuers are created by the
// registration flow and referenced, never mutated, by certificate issuance.
package models

import (
	"time"

	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// Role is a closed enumeration of authorization roles. Issuance authorization
// is decided by exhaustive match on this type, never by raw string
// comparison, so casing bugs cannot grant or deny privileges.
type Role string

const (
	RoleUnprivileged Role = "unprivileged"
	RoleIssuer       Role = "issuer"
	RoleAdmin        Role = "admin"
)

// ParseRole validates a role at trust boundaries. Unknown values are
// rejected rather than defaulted, so a typo cannot silently demote or
// promote an account.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUnprivileged, RoleIssuer, RoleAdmin:
		return Role(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
}

// CanIssue reports whether the role carries certificate-issuing privilege.
func (r Role) CanIssue() bool {
	switch r {
	case RoleIssuer, RoleAdmin:
		return true
	case RoleUnprivileged:
		return false
	default:
		return false
	}
}

// Issuer is a registered institution. PasswordHash is a bcrypt hash and must
// never leave the identity subsystem.
type Issuer struct {
	ID           id.IssuerID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

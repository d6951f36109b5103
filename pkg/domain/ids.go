// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"encoding/hex"

	"github.com/google/uuid"

	dErrors "trustchain/pkg/domain-errors"
)

// IssuerID identifies an issuing institution. Distinct type so the compiler
// rejects passing a raw string or another ID where an issuer is expected.
type IssuerID uuid.UUID

// Fingerprint is the hex-encoded SHA-256 digest of a certificate's canonical
// content. It is the permanent identity of a certificate and the correlation
// key between the primary store and the ledger.
type Fingerprint string

// FingerprintHexLen is the length of a hex-encoded 256-bit digest.
const FingerprintHexLen = 64

// ParseIssuerID validates an issuer ID at trust boundaries (handlers, API inputs).
func ParseIssuerID(s string) (IssuerID, error) {
	if s == "" {
		return IssuerID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "issuer ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return IssuerID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "invalid issuer ID format")
	}
	return IssuerID(id), nil
}

// NewIssuerID generates a fresh issuer ID.
func NewIssuerID() IssuerID {
	return IssuerID(uuid.New())
}

// ParseFingerprint validates a caller-supplied fingerprint at trust boundaries.
func ParseFingerprint(s string) (Fingerprint, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "fingerprint cannot be empty")
	}
	if len(s) != FingerprintHexLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid fingerprint length")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "fingerprint must be hex encoded")
	}
	return Fingerprint(s), nil
}

func (id IssuerID) String() string    { return uuid.UUID(id).String() }
func (fp Fingerprint) String() string { return string(fp) }

func (id IssuerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (fp Fingerprint) IsNil() bool { return fp == "" }

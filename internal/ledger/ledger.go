// Package ledger abstracts the external append-only anchoring service.
//
// The ledger is slow, externally operated, and authoritative for whether a
// fingerprint was ever anchored. Callers never see raw transport errors:
// every failure is classified into a closed set of kinds so the orchestrator
// and the reconciler can apply kind-specific retry policy.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	id "trustchain/pkg/domain"
)

// Receipt is the ledger's proof of anchoring. TxRef is opaque to this system.
type Receipt struct {
	TxRef      string
	AnchoredAt time.Time
}

// Status is the result of a read-only presence query.
type Status struct {
	Anchored bool
	Receipt  Receipt // zero unless Anchored
}

// FailureKind is the closed set of ledger failure classifications.
type FailureKind string

const (
	// KindTimeout: the ledger did not answer within the configured deadline.
	KindTimeout FailureKind = "timeout"
	// KindRejected: the ledger answered and refused the submission.
	KindRejected FailureKind = "rejected"
	// KindTransport: the ledger could not be reached at all.
	KindTransport FailureKind = "transport"
)

// Error carries a classified ledger failure. Issuance surfaces it as data in
// a StoredOnly outcome rather than failing the call.
type Error struct {
	Kind FailureKind
	Op   string // "submit" or "status"
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("ledger %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches ledger errors by kind, so errors.Is(err, &Error{Kind: KindTimeout})
// works across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the failure kind from an error chain, or "" if the error
// is not a classified ledger failure.
func KindOf(err error) FailureKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Client is the boundary to the external anchoring service.
//
// Submit must be idempotent from the caller's perspective: resubmitting an
// already-anchored fingerprint returns the existing receipt. StatusOf is
// read-only and never mutates ledger state.
type Client interface {
	Submit(ctx context.Context, fp id.Fingerprint) (Receipt, error)
	StatusOf(ctx context.Context, fp id.Fingerprint) (Status, error)
}

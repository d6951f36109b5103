package audit

import (
	"context"

	pkgerrors "trustchain/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "audit trail not found")
)

// Store is the append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByFingerprint(ctx context.Context, fingerprint string) ([]Event, error)
}

package store

import (
	"context"

	"trustchain/internal/certificate/models"
	id "trustchain/pkg/domain"
	pkgerrors "trustchain/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "certificate not found")
	// ErrDuplicate signals a create for a fingerprint that already exists.
	// Distinct from other write errors: it is the system's idempotency guard.
	ErrDuplicate = pkgerrors.New(pkgerrors.CodeDuplicateCertificate, "certificate already issued for this fingerprint")
)

// Store is the primary-store abstraction for certificate records.
//
// CreateIfAbsent must be an atomic conditional insert: under concurrent
// creates for the same fingerprint at most one succeeds and the rest observe
// ErrDuplicate. That uniqueness constraint is the only concurrency control
// issuance relies on.
type Store interface {
	CreateIfAbsent(ctx context.Context, record models.CertificateRecord) error
	FindByFingerprint(ctx context.Context, fp id.Fingerprint) (models.CertificateRecord, error)
	// MarkAnchored transitions a record to anchored with the ledger's
	// transaction reference. Anchored is terminal; marking an already
	// anchored record is a no-op.
	MarkAnchored(ctx context.Context, fp id.Fingerprint, txRef string) error
	// ListUnanchored returns up to limit records still awaiting anchoring,
	// oldest first, for the reconciliation sweep.
	ListUnanchored(ctx context.Context, limit int) ([]models.CertificateRecord, error)
}

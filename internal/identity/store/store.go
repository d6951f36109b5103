package store

import (
	"context"

	"trustchain/internal/identity/models"
	id "trustchain/pkg/domain"
	pkgerrors "trustchain/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "issuer not found")
	// ErrEmailTaken signals a registration with an already registered email.
	ErrEmailTaken = pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
)

// Store persists issuer accounts. Email uniqueness is enforced at the store
// level so concurrent registrations cannot create two accounts.
type Store interface {
	Create(ctx context.Context, issuer models.Issuer) error
	FindByID(ctx context.Context, issuerID id.IssuerID) (models.Issuer, error)
	FindByEmail(ctx context.Context, email string) (models.Issuer, error)
}

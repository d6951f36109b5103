package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"trustchain/internal/identity/models"
	id "trustchain/pkg/domain"
)

const uniqueViolation = "23505"

// PostgresStore persists issuers in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed issuer store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, issuer models.Issuer) error {
	query := `
		INSERT INTO issuers (id, name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := s.db.ExecContext(ctx, query,
		issuer.ID.String(),
		issuer.Name,
		strings.ToLower(strings.TrimSpace(issuer.Email)),
		issuer.PasswordHash,
		string(issuer.Role),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("create issuer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, issuerID id.IssuerID) (models.Issuer, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM issuers
		WHERE id = $1
	`
	issuer, err := scanIssuer(s.db.QueryRowContext(ctx, query, issuerID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Issuer{}, ErrNotFound
		}
		return models.Issuer{}, fmt.Errorf("find issuer by id: %w", err)
	}
	return issuer, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (models.Issuer, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM issuers
		WHERE email = $1
	`
	issuer, err := scanIssuer(s.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Issuer{}, ErrNotFound
		}
		return models.Issuer{}, fmt.Errorf("find issuer by email: %w", err)
	}
	return issuer, nil
}

type issuerRow interface {
	Scan(dest ...any) error
}

func scanIssuer(row issuerRow) (models.Issuer, error) {
	var issuer models.Issuer
	var rawID, rawRole string
	if err := row.Scan(&rawID, &issuer.Name, &issuer.Email, &issuer.PasswordHash, &rawRole, &issuer.CreatedAt); err != nil {
		return models.Issuer{}, err
	}

	parsedID, err := id.ParseIssuerID(rawID)
	if err != nil {
		return models.Issuer{}, fmt.Errorf("parse issuer id: %w", err)
	}
	issuer.ID = parsedID

	role, err := models.ParseRole(rawRole)
	if err != nil {
		return models.Issuer{}, fmt.Errorf("parse issuer role: %w", err)
	}
	issuer.Role = role
	return issuer, nil
}

var _ Store = (*PostgresStore)(nil)

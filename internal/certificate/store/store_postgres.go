package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"trustchain/internal/certificate/models"
	id "trustchain/pkg/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// PostgresStore persists certificate records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfAbsent relies on the unique index on fingerprint for its atomic
// conditional-insert semantics; concurrent duplicates lose with ErrDuplicate.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, record models.CertificateRecord) error {
	query := `
		INSERT INTO certificates (fingerprint, issuer_id, student_name, course_name, grade, issue_date, status, tx_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NOW())
	`
	_, err := s.db.ExecContext(ctx, query,
		record.Fingerprint.String(),
		record.IssuerID.String(),
		record.StudentName,
		record.CourseName,
		record.Grade,
		record.IssueDate,
		string(record.Status),
		record.TxRef,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fp id.Fingerprint) (models.CertificateRecord, error) {
	query := `
		SELECT fingerprint, issuer_id, student_name, course_name, grade, issue_date, status, COALESCE(tx_ref, ''), created_at
		FROM certificates
		WHERE fingerprint = $1
	`
	record, err := scanCertificate(s.db.QueryRowContext(ctx, query, fp.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CertificateRecord{}, ErrNotFound
		}
		return models.CertificateRecord{}, fmt.Errorf("find certificate by fingerprint: %w", err)
	}
	return record, nil
}

// MarkAnchored only touches rows not yet anchored, keeping anchored terminal.
func (s *PostgresStore) MarkAnchored(ctx context.Context, fp id.Fingerprint, txRef string) error {
	query := `
		UPDATE certificates
		SET status = $2, tx_ref = $3
		WHERE fingerprint = $1 AND status <> $2
	`
	_, err := s.db.ExecContext(ctx, query, fp.String(), string(models.StatusAnchored), txRef)
	if err != nil {
		return fmt.Errorf("mark certificate anchored: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnanchored(ctx context.Context, limit int) ([]models.CertificateRecord, error) {
	query := `
		SELECT fingerprint, issuer_id, student_name, course_name, grade, issue_date, status, COALESCE(tx_ref, ''), created_at
		FROM certificates
		WHERE status <> $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, string(models.StatusAnchored), limit)
	if err != nil {
		return nil, fmt.Errorf("list unanchored certificates: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-side close

	var pending []models.CertificateRecord
	for rows.Next() {
		record, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unanchored certificate: %w", err)
		}
		pending = append(pending, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unanchored certificates: %w", err)
	}
	return pending, nil
}

type certificateRow interface {
	Scan(dest ...any) error
}

func scanCertificate(row certificateRow) (models.CertificateRecord, error) {
	var record models.CertificateRecord
	var fingerprint, issuerID, status string
	if err := row.Scan(&fingerprint, &issuerID, &record.StudentName, &record.CourseName, &record.Grade, &record.IssueDate, &status, &record.TxRef, &record.CreatedAt); err != nil {
		return models.CertificateRecord{}, err
	}

	parsedIssuer, err := id.ParseIssuerID(issuerID)
	if err != nil {
		return models.CertificateRecord{}, fmt.Errorf("parse certificate issuer: %w", err)
	}
	record.IssuerID = parsedIssuer
	record.Fingerprint = id.Fingerprint(fingerprint)
	record.Status = models.AnchorStatus(status)
	return record, nil
}

var _ Store = (*PostgresStore)(nil)

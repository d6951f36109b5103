// Package service implements the issuance orchestrator and the verification
// reconciler: the dual-write sequencing against the primary store and the
// ledger, and the cross-source merge that verification performs.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustchain/internal/audit"
	"trustchain/internal/certificate/models"
	"trustchain/internal/certificate/store"
	"trustchain/internal/fingerprint"
	identitymodels "trustchain/internal/identity/models"
	"trustchain/internal/ledger"
	"trustchain/internal/platform/metrics"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// Identity is the verified (issuer id, role) pair attached to an issuance
// request by the identity collaborator. This core trusts it completely.
type Identity struct {
	IssuerID id.IssuerID
	Role     identitymodels.Role
}

// IssuerDirectory resolves issuer metadata for verification verdicts.
type IssuerDirectory interface {
	FindByID(ctx context.Context, issuerID id.IssuerID) (identitymodels.Issuer, error)
}

// AuditPublisher emits audit events for certificate lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Option configures the certificate service.
type Option func(*Service)

// Service orchestrates issuance and verification across the primary store
// and the ledger.
type Service struct {
	store   store.Store
	ledger  ledger.Client
	issuers IssuerDirectory
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewService creates a certificate service with the required dependencies.
func NewService(certStore store.Store, ledgerClient ledger.Client, issuers IssuerDirectory, opts ...Option) *Service {
	svc := &Service{
		store:   certStore,
		ledger:  ledgerClient,
		issuers: issuers,
		tracer:  otel.Tracer("trustchain/certificate"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithAuditor configures an audit publisher for the service.
func WithAuditor(auditor AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics configures application metrics for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the OpenTelemetry tracer, for tests.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// Issue runs the dual-write sequence: fingerprint, conditional store insert,
// ledger submission, outcome classification.
//
// The store write is never rolled back on ledger failure. A failed or timed
// out anchor leaves the record unanchored and returns a successful StoredOnly
// outcome (Anchored=false) carrying the classified ledger error; the
// reconciler converges such records later.
func (s *Service) Issue(ctx context.Context, content models.CertificateContent, caller Identity) (models.IssueOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.issue")
	outcome, err := s.issue(ctx, content, caller)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.String("certificate.fingerprint", outcome.Fingerprint.String()),
			attribute.Bool("certificate.anchored", outcome.Anchored),
		)
	}
	span.End()
	return outcome, err
}

func (s *Service) issue(ctx context.Context, content models.CertificateContent, caller Identity) (models.IssueOutcome, error) {
	if !caller.Role.CanIssue() {
		s.countUnauthorized()
		return models.IssueOutcome{}, dErrors.New(dErrors.CodeUnauthorized, "only issuing institutions can issue certificates")
	}
	if err := validateContent(content); err != nil {
		return models.IssueOutcome{}, err
	}

	// The authenticated identity, not the request body, decides the issuer
	// baked into the fingerprint.
	content.IssuerID = caller.IssuerID
	fp := fingerprint.New(content)

	record := models.CertificateRecord{
		Fingerprint: fp,
		IssuerID:    caller.IssuerID,
		StudentName: content.StudentName,
		CourseName:  content.CourseName,
		Grade:       content.Grade,
		IssueDate:   content.IssueDate,
		Status:      models.StatusUnanchored,
	}
	if err := s.store.CreateIfAbsent(ctx, record); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.countDuplicate()
			return models.IssueOutcome{}, err
		}
		return models.IssueOutcome{}, dErrors.Wrap(err, dErrors.CodeStorageFailure, "persist certificate")
	}

	s.emitAudit(ctx, audit.Event{
		Action:      audit.ActionCertIssued,
		IssuerID:    caller.IssuerID.String(),
		Fingerprint: fp.String(),
	})

	receipt, err := s.submitToLedger(ctx, fp)
	if err != nil {
		s.logAnchorFailure(ctx, fp, err)
		s.emitAudit(ctx, audit.Event{
			Action:      audit.ActionAnchorFailed,
			IssuerID:    caller.IssuerID.String(),
			Fingerprint: fp.String(),
			Detail:      err.Error(),
		})
		s.countStoredOnly()
		return models.IssueOutcome{Fingerprint: fp, Anchored: false, LedgerError: err}, nil
	}

	if err := s.store.MarkAnchored(ctx, fp, receipt.TxRef); err != nil {
		// The ledger holds the anchor even though the status update failed;
		// the reconciler resubmits (idempotent) and repairs the status.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "anchored on ledger but status update failed",
				"error", err,
				"fingerprint", fp.String(),
			)
		}
	}

	s.emitAudit(ctx, audit.Event{
		Action:      audit.ActionAnchorConfirmed,
		IssuerID:    caller.IssuerID.String(),
		Fingerprint: fp.String(),
		Detail:      receipt.TxRef,
	})
	s.countIssued()
	return models.IssueOutcome{Fingerprint: fp, Anchored: true, TxRef: receipt.TxRef}, nil
}

// submitToLedger wraps the ledger call with latency and failure metrics.
func (s *Service) submitToLedger(ctx context.Context, fp id.Fingerprint) (ledger.Receipt, error) {
	start := time.Now()
	receipt, err := s.ledger.Submit(ctx, fp)
	if s.metrics != nil {
		s.metrics.LedgerLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			s.metrics.LedgerFailures.WithLabelValues(string(ledger.KindOf(err))).Inc()
		}
	}
	return receipt, err
}

func validateContent(content models.CertificateContent) error {
	switch {
	case content.StudentName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "student name is required")
	case content.CourseName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "course name is required")
	case content.IssueDate == "":
		return dErrors.New(dErrors.CodeInvalidInput, "issue date is required")
	}
	if _, err := time.Parse("2006-01-02", content.IssueDate); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "issue date must be YYYY-MM-DD")
	}
	return nil
}

func (s *Service) logAnchorFailure(ctx context.Context, fp id.Fingerprint, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, "certificate stored, anchoring deferred",
		"fingerprint", fp.String(),
		"kind", string(ledger.KindOf(err)),
		"error", err,
	)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit certificate audit event",
			"error", err,
			"action", event.Action,
			"fingerprint", event.Fingerprint,
		)
	}
}

func (s *Service) countIssued() {
	if s.metrics != nil {
		s.metrics.CertificatesIssued.Inc()
	}
}

func (s *Service) countStoredOnly() {
	if s.metrics != nil {
		s.metrics.CertificatesStored.Inc()
	}
}

func (s *Service) countDuplicate() {
	if s.metrics != nil {
		s.metrics.DuplicateRejections.Inc()
	}
}

func (s *Service) countUnauthorized() {
	if s.metrics != nil {
		s.metrics.IssuanceUnauthorized.Inc()
	}
}

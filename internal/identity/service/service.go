// Package service implements issuer registration and login. This is the
// identity collaborator the certificate core trusts: once a token is minted
// here, the (issuer id, role) pair inside it is never re-verified downstream.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"trustchain/internal/audit"
	"trustchain/internal/identity/models"
	"trustchain/internal/identity/store"
	"trustchain/internal/platform/metrics"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// TokenMinter creates signed access tokens for authenticated issuers.
type TokenMinter interface {
	Mint(account models.Issuer) (string, error)
}

// AuditPublisher emits audit events for identity lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// RegisterRequest carries a new institution registration.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Option configures the identity service.
type Option func(*Service)

// Service registers institutions and authenticates logins.
type Service struct {
	store   store.Store
	tokens  TokenMinter
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates an identity service with the required dependencies.
func NewService(store store.Store, tokens TokenMinter, opts ...Option) *Service {
	svc := &Service{
		store:  store,
		tokens: tokens,
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

// Register creates a new institution account with the issuing role.
// Emails are unique; the password is stored only as a bcrypt hash.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (models.Issuer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return models.Issuer{}, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if !strings.Contains(req.Email, "@") {
		return models.Issuer{}, dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return models.Issuer{}, dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Issuer{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	issuer := models.Issuer{
		ID:           id.NewIssuerID(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         models.RoleIssuer,
	}
	if err := s.store.Create(ctx, issuer); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return models.Issuer{}, err
		}
		return models.Issuer{}, dErrors.Wrap(err, dErrors.CodeInternal, "create issuer")
	}

	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionIssuerRegistered,
		IssuerID: issuer.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IssuersRegistered.Inc()
	}

	return issuer, nil
}

// Login authenticates an institution and mints an access token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

	issuer, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.countAuthFailure()
			return "", invalid
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "look up issuer")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(issuer.PasswordHash), []byte(password)); err != nil {
		s.countAuthFailure()
		return "", invalid
	}

	signed, err := s.tokens.Mint(issuer)
	if err != nil {
		return "", err
	}

	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionIssuerLogin,
		IssuerID: issuer.ID.String(),
	})

	return signed, nil
}

// Get returns an issuer account by ID.
func (s *Service) Get(ctx context.Context, issuerID id.IssuerID) (models.Issuer, error) {
	return s.store.FindByID(ctx, issuerID)
}

func (s *Service) countAuthFailure() {
	if s.metrics != nil {
		s.metrics.AuthFailures.Inc()
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit identity audit event",
			"error", err,
			"action", event.Action,
		)
	}
}

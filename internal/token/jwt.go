// Package token mints and validates the access tokens issued at login.
// Tokens carry the verified (issuer id, role) pair that the certificate
// core trusts completely; nothing downstream re-checks identity.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trustchain/internal/identity/models"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// Claims is the JWT payload for issuer access tokens.
type Claims struct {
	IssuerID string `json:"issuer_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a token service signing with HS256.
func NewService(signingKey string, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     "trustchain",
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint creates a signed access token for a registered issuer account.
func (s *Service) Mint(account models.Issuer) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		IssuerID: account.ID.String(),
		Role:     string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}
	return signed, nil
}

// Validate parses and verifies a token string, returning its claims.
// Expired, tampered, or wrongly-signed tokens all fail with CodeUnauthorized.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid or expired token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if _, err := id.ParseIssuerID(claims.IssuerID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid issuer claim")
	}
	if _, err := models.ParseRole(claims.Role); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid role claim")
	}
	return claims, nil
}

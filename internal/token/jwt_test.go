package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustchain/internal/identity/models"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// TokenSuite tests JWT minting and validation.
//
// Justification: the (issuer id, role) pair inside these tokens is trusted
// verbatim by issuance authorization; validation must reject anything that
// could smuggle an unknown role or malformed issuer through.
type TokenSuite struct {
	suite.Suite

	svc     *Service
	account models.Issuer
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) SetupTest() {
	s.svc = NewService("test-signing-key", 15*time.Minute)
	s.account = models.Issuer{
		ID:    id.NewIssuerID(),
		Name:  "Tech University",
		Email: "registrar@tech.example",
		Role:  models.RoleIssuer,
	}
}

func (s *TokenSuite) TestMintAndValidate() {
	signed, err := s.svc.Mint(s.account)
	s.NoError(err)
	s.NotEmpty(signed)

	claims, err := s.svc.Validate(signed)
	s.NoError(err)
	s.Equal(s.account.ID.String(), claims.IssuerID)
	s.Equal(string(models.RoleIssuer), claims.Role)
	s.NotEmpty(claims.ID, "token must carry a jti")
}

func (s *TokenSuite) TestValidateRejects() {
	s.Run("token signed with a different key", func() {
		other := NewService("other-key", 15*time.Minute)
		signed, err := other.Mint(s.account)
		s.NoError(err)

		_, err = s.svc.Validate(signed)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("expired token", func() {
		past := time.Now().Add(-time.Hour)
		minting := NewService("test-signing-key", time.Minute, WithClock(func() time.Time { return past }))
		signed, err := minting.Mint(s.account)
		s.NoError(err)

		_, err = s.svc.Validate(signed)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("garbage input", func() {
		_, err := s.svc.Validate("not-a-jwt")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown role claim", func() {
		account := s.account
		account.Role = models.Role("superuser")
		signed, err := s.svc.Mint(account)
		s.NoError(err)

		_, err = s.svc.Validate(signed)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

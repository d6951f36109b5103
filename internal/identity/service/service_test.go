package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"trustchain/internal/identity/models"
	"trustchain/internal/identity/store"
	dErrors "trustchain/pkg/domain-errors"
)

// stubMinter is a test double for TokenMinter.
type stubMinter struct {
	minted []models.Issuer
	token  string
	err    error
}

func (m *stubMinter) Mint(account models.Issuer) (string, error) {
	m.minted = append(m.minted, account)
	if m.err != nil {
		return "", m.err
	}
	if m.token != "" {
		return m.token, nil
	}
	return "token-for-" + account.ID.String(), nil
}

// IdentitySuite tests registration and login.
//
// Justification: this boundary decides who gets an issuing token; regressions
// here either lock out institutions or mint privileged tokens for strangers.
type IdentitySuite struct {
	suite.Suite

	store  *store.InMemoryStore
	minter *stubMinter
	svc    *Service
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.minter = &stubMinter{}
	s.svc = NewService(s.store, s.minter)
}

func (s *IdentitySuite) SetupSubTest() {
	s.SetupTest()
}

func (s *IdentitySuite) register() models.Issuer {
	issuer, err := s.svc.Register(context.Background(), RegisterRequest{
		Name:     "Tech University",
		Email:    "Registrar@Tech.example",
		Password: "correct horse",
	})
	s.Require().NoError(err)
	return issuer
}

func (s *IdentitySuite) TestRegister() {
	s.Run("creates an issuer with the issuing role", func() {
		issuer := s.register()
		s.Equal(models.RoleIssuer, issuer.Role)
		s.Equal("registrar@tech.example", issuer.Email)
		s.NotEmpty(issuer.PasswordHash)
		s.NotEqual("correct horse", issuer.PasswordHash)
	})

	s.Run("rejects duplicate email", func() {
		s.register()
		_, err := s.svc.Register(context.Background(), RegisterRequest{
			Name:     "Another University",
			Email:    "registrar@tech.example",
			Password: "different pass",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects invalid input", func() {
		for _, req := range []RegisterRequest{
			{Name: "", Email: "a@b.c", Password: "longenough"},
			{Name: "X", Email: "not-an-email", Password: "longenough"},
			{Name: "X", Email: "a@b.c", Password: "short"},
		} {
			_, err := s.svc.Register(context.Background(), req)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func (s *IdentitySuite) TestLogin() {
	s.Run("valid credentials mint a token", func() {
		issuer := s.register()
		token, err := s.svc.Login(context.Background(), "registrar@tech.example", "correct horse")
		s.NoError(err)
		s.Equal("token-for-"+issuer.ID.String(), token)
	})

	s.Run("wrong password and unknown email fail identically", func() {
		s.register()
		_, errWrongPass := s.svc.Login(context.Background(), "registrar@tech.example", "wrong")
		_, errNoUser := s.svc.Login(context.Background(), "nobody@tech.example", "correct horse")
		s.True(dErrors.HasCode(errWrongPass, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(errNoUser, dErrors.CodeUnauthorized))
		s.Equal(errWrongPass.Error(), errNoUser.Error())
	})

	s.Run("no token is minted on failure", func() {
		s.register()
		s.minter.minted = nil
		_, _ = s.svc.Login(context.Background(), "registrar@tech.example", "wrong")
		s.Empty(s.minter.minted)
	})
}

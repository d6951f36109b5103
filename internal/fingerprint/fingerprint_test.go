package fingerprint

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"trustchain/internal/certificate/models"
	id "trustchain/pkg/domain"
)

// FingerprintSuite tests the digest that defines certificate identity.
//
// Justification: every uniqueness and correlation guarantee in the system
// rests on this function being deterministic and field-sensitive.
type FingerprintSuite struct {
	suite.Suite

	issuer id.IssuerID
}

func TestFingerprintSuite(t *testing.T) {
	suite.Run(t, new(FingerprintSuite))
}

func (s *FingerprintSuite) SetupTest() {
	s.issuer = id.IssuerID(uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
}

func (s *FingerprintSuite) content() models.CertificateContent {
	return models.CertificateContent{
		StudentName: "Alice",
		CourseName:  "CS101",
		Grade:       "A",
		IssueDate:   "2024-01-01",
		IssuerID:    s.issuer,
	}
}

func (s *FingerprintSuite) TestDeterministic() {
	s.Run("repeated calls yield identical output", func() {
		first := New(s.content())
		for range 10 {
			s.Equal(first, New(s.content()))
		}
	})

	s.Run("construction path does not matter", func() {
		var c models.CertificateContent
		c.IssuerID = s.issuer
		c.IssueDate = "2024-01-01"
		c.Grade = "A"
		c.CourseName = "CS101"
		c.StudentName = "Alice"
		s.Equal(New(s.content()), New(c))
	})

	s.Run("output is a valid 256-bit hex digest", func() {
		fp, err := id.ParseFingerprint(New(s.content()).String())
		s.NoError(err)
		s.Len(fp.String(), id.FingerprintHexLen)
	})
}

func (s *FingerprintSuite) TestFieldSensitivity() {
	base := New(s.content())

	s.Run("student name changes digest", func() {
		c := s.content()
		c.StudentName = "Alicia"
		s.NotEqual(base, New(c))
	})

	s.Run("course name changes digest", func() {
		c := s.content()
		c.CourseName = "CS102"
		s.NotEqual(base, New(c))
	})

	s.Run("grade changes digest", func() {
		c := s.content()
		c.Grade = "B"
		s.NotEqual(base, New(c))
	})

	s.Run("issue date changes digest", func() {
		c := s.content()
		c.IssueDate = "2024-01-02"
		s.NotEqual(base, New(c))
	})

	s.Run("issuer changes digest", func() {
		c := s.content()
		c.IssuerID = id.NewIssuerID()
		s.NotEqual(base, New(c))
	})

	s.Run("near-collision across adjacent fields", func() {
		// "AliceC" + "S101" vs "Alice" + "CS101": field boundaries must
		// survive canonicalization.
		c := s.content()
		c.StudentName = "AliceC"
		c.CourseName = "S101"
		s.NotEqual(base, New(c))
	})
}

package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustchain/internal/certificate/models"
	id "trustchain/pkg/domain"
)

// MemoryStoreSuite tests the in-memory certificate store.
//
// Justification: CreateIfAbsent atomicity is the only concurrency control
// issuance has; a race here double-issues certificates.
type MemoryStoreSuite struct {
	suite.Suite

	store *InMemoryStore
	fp    id.Fingerprint
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.fp = id.Fingerprint(strings.Repeat("cd", 32))
}

func (s *MemoryStoreSuite) record(fp id.Fingerprint) models.CertificateRecord {
	return models.CertificateRecord{
		Fingerprint: fp,
		IssuerID:    id.NewIssuerID(),
		StudentName: "Alice",
		CourseName:  "CS101",
		Grade:       "A",
		IssueDate:   "2024-01-01",
		Status:      models.StatusUnanchored,
	}
}

func (s *MemoryStoreSuite) TestCreateIfAbsent() {
	s.Run("first create succeeds", func() {
		s.NoError(s.store.CreateIfAbsent(context.Background(), s.record(s.fp)))
	})

	s.Run("second create fails with ErrDuplicate", func() {
		err := s.store.CreateIfAbsent(context.Background(), s.record(s.fp))
		s.True(errors.Is(err, ErrDuplicate))
	})

	s.Run("concurrent creates admit exactly one winner", func() {
		store := NewInMemoryStore()
		fp := id.Fingerprint(strings.Repeat("ef", 32))

		const attempts = 50
		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- store.CreateIfAbsent(context.Background(), s.record(fp))
			}()
		}
		wg.Wait()
		close(results)

		var wins, duplicates int
		for err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrDuplicate):
				duplicates++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}
		s.Equal(1, wins)
		s.Equal(attempts-1, duplicates)
	})
}

func (s *MemoryStoreSuite) TestFindByFingerprint() {
	s.Run("returns ErrNotFound for unknown fingerprint", func() {
		_, err := s.store.FindByFingerprint(context.Background(), s.fp)
		s.True(errors.Is(err, ErrNotFound))
	})

	s.Run("returns the stored record", func() {
		want := s.record(s.fp)
		s.NoError(s.store.CreateIfAbsent(context.Background(), want))
		got, err := s.store.FindByFingerprint(context.Background(), s.fp)
		s.NoError(err)
		s.Equal(want.StudentName, got.StudentName)
		s.Equal(models.StatusUnanchored, got.Status)
	})
}

func (s *MemoryStoreSuite) TestMarkAnchored() {
	s.Run("transitions unanchored to anchored with tx ref", func() {
		s.NoError(s.store.CreateIfAbsent(context.Background(), s.record(s.fp)))
		s.NoError(s.store.MarkAnchored(context.Background(), s.fp, "0xabc"))

		got, err := s.store.FindByFingerprint(context.Background(), s.fp)
		s.NoError(err)
		s.Equal(models.StatusAnchored, got.Status)
		s.Equal("0xabc", got.TxRef)
	})

	s.Run("anchored is terminal", func() {
		s.NoError(s.store.CreateIfAbsent(context.Background(), s.record(s.fp)))
		s.NoError(s.store.MarkAnchored(context.Background(), s.fp, "0xabc"))
		s.NoError(s.store.MarkAnchored(context.Background(), s.fp, "0xother"))

		got, err := s.store.FindByFingerprint(context.Background(), s.fp)
		s.NoError(err)
		s.Equal("0xabc", got.TxRef)
	})

	s.Run("unknown fingerprint returns ErrNotFound", func() {
		err := s.store.MarkAnchored(context.Background(), id.Fingerprint(strings.Repeat("00", 32)), "0xabc")
		s.True(errors.Is(err, ErrNotFound))
	})
}

func (s *MemoryStoreSuite) TestListUnanchored() {
	s.Run("returns pending records oldest first and honors limit", func() {
		base := time.Now().UTC()
		for i, suffix := range []string{"01", "02", "03"} {
			record := s.record(id.Fingerprint(strings.Repeat(suffix, 32)))
			record.CreatedAt = base.Add(time.Duration(i) * time.Second)
			s.NoError(s.store.CreateIfAbsent(context.Background(), record))
		}
		anchored := s.record(id.Fingerprint(strings.Repeat("04", 32)))
		s.NoError(s.store.CreateIfAbsent(context.Background(), anchored))
		s.NoError(s.store.MarkAnchored(context.Background(), anchored.Fingerprint, "0x1"))

		pending, err := s.store.ListUnanchored(context.Background(), 2)
		s.NoError(err)
		s.Len(pending, 2)
		s.Equal(id.Fingerprint(strings.Repeat("01", 32)), pending[0].Fingerprint)
		s.Equal(id.Fingerprint(strings.Repeat("02", 32)), pending[1].Fingerprint)
	})

	s.Run("empty store yields no records", func() {
		pending, err := NewInMemoryStore().ListUnanchored(context.Background(), 10)
		s.NoError(err)
		s.Empty(pending)
	})
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trustchain/internal/certificate/models"
	id "trustchain/pkg/domain"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.Fingerprint]models.CertificateRecord
}

// NewInMemoryStore constructs an empty in-memory certificate store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.Fingerprint]models.CertificateRecord)}
}

// CreateIfAbsent inserts the record unless its fingerprint already exists.
// The write lock makes the check-and-insert atomic.
func (s *InMemoryStore) CreateIfAbsent(_ context.Context, record models.CertificateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.Fingerprint]; ok {
		return ErrDuplicate
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records[record.Fingerprint] = record
	return nil
}

// FindByFingerprint retrieves a record or returns ErrNotFound.
func (s *InMemoryStore) FindByFingerprint(_ context.Context, fp id.Fingerprint) (models.CertificateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[fp]; ok {
		return record, nil
	}
	return models.CertificateRecord{}, ErrNotFound
}

// MarkAnchored flips a record to anchored. No-op if already anchored;
// ErrNotFound if the record does not exist.
func (s *InMemoryStore) MarkAnchored(_ context.Context, fp id.Fingerprint, txRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[fp]
	if !ok {
		return ErrNotFound
	}
	if record.Status == models.StatusAnchored {
		return nil
	}
	record.Status = models.StatusAnchored
	record.TxRef = txRef
	s.records[fp] = record
	return nil
}

// ListUnanchored returns records awaiting anchoring, oldest first.
func (s *InMemoryStore) ListUnanchored(_ context.Context, limit int) ([]models.CertificateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []models.CertificateRecord
	for _, record := range s.records {
		if record.Status != models.StatusAnchored {
			pending = append(pending, record)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

var _ Store = (*InMemoryStore)(nil)

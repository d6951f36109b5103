package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"trustchain/internal/identity/models"
	id "trustchain/pkg/domain"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.IssuerID]models.Issuer
	byEmail map[string]id.IssuerID
}

// NewInMemoryStore constructs an empty in-memory issuer store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.IssuerID]models.Issuer),
		byEmail: make(map[string]id.IssuerID),
	}
}

// Create inserts a new issuer, enforcing email uniqueness atomically.
func (s *InMemoryStore) Create(_ context.Context, issuer models.Issuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := normalizeEmail(issuer.Email)
	if _, ok := s.byEmail[email]; ok {
		return ErrEmailTaken
	}
	if issuer.CreatedAt.IsZero() {
		issuer.CreatedAt = time.Now().UTC()
	}
	s.byID[issuer.ID] = issuer
	s.byEmail[email] = issuer.ID
	return nil
}

// FindByID retrieves an issuer or returns ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, issuerID id.IssuerID) (models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if issuer, ok := s.byID[issuerID]; ok {
		return issuer, nil
	}
	return models.Issuer{}, ErrNotFound
}

// FindByEmail retrieves an issuer by registered email or returns ErrNotFound.
func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if issuerID, ok := s.byEmail[normalizeEmail(email)]; ok {
		return s.byID[issuerID], nil
	}
	return models.Issuer{}, ErrNotFound
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Store = (*InMemoryStore)(nil)

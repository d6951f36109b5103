package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "trustchain/pkg/domain"
)

// MemoryLedger is an in-process ledger for tests and local development. It
// honors the Submit idempotency contract: anchoring the same fingerprint
// twice returns the first receipt.
type MemoryLedger struct {
	mu      sync.RWMutex
	anchors map[id.Fingerprint]Receipt
	now     func() time.Time
}

// NewMemoryLedger constructs an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		anchors: make(map[id.Fingerprint]Receipt),
		now:     time.Now,
	}
}

// Submit anchors fp and returns its receipt, or the existing receipt when fp
// was anchored before.
func (m *MemoryLedger) Submit(_ context.Context, fp id.Fingerprint) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if receipt, ok := m.anchors[fp]; ok {
		return receipt, nil
	}
	receipt := Receipt{
		TxRef:      "mem-" + uuid.New().String(),
		AnchoredAt: m.now().UTC(),
	}
	m.anchors[fp] = receipt
	return receipt, nil
}

// StatusOf reports anchoring presence without mutating state.
func (m *MemoryLedger) StatusOf(_ context.Context, fp id.Fingerprint) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if receipt, ok := m.anchors[fp]; ok {
		return Status{Anchored: true, Receipt: receipt}, nil
	}
	return Status{Anchored: false}, nil
}

var _ Client = (*MemoryLedger)(nil)

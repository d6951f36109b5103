// Package reconciler closes the gap issuance deliberately leaves open: records
// whose ledger anchoring failed stay unanchored until a sweep here resubmits
// them. This is the only path by which an unanchored record converges without
// a brand-new issuance call.
package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"trustchain/internal/audit"
	"trustchain/internal/certificate/models"
	"trustchain/internal/certificate/store"
	"trustchain/internal/ledger"
	"trustchain/internal/platform/metrics"
	id "trustchain/pkg/domain"
)

const (
	defaultInterval    = 30 * time.Second
	defaultBatchSize   = 100
	defaultConcurrency = 4

	// Backoff floors per failure kind. A rejection is less likely to heal
	// on its own than a timeout or a dropped connection, so it waits longer
	// before the next attempt.
	retryFloorTransient = 30 * time.Second
	retryFloorRejected  = 5 * time.Minute
	retryCap            = 10 * time.Minute
)

// AuditPublisher emits audit events for reconciliation transitions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithInterval sets the sweep cadence.
func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize caps how many pending records one sweep loads.
func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithMetrics configures application metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithAuditor configures an audit publisher.
func WithAuditor(auditor AuditPublisher) Option {
	return func(r *Reconciler) {
		r.auditor = auditor
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// retryState tracks the backoff window for one fingerprint.
type retryState struct {
	nextAttempt time.Time
	delay       time.Duration
}

// Reconciler periodically resubmits unanchored certificates to the ledger.
type Reconciler struct {
	store     store.Store
	ledger    ledger.Client
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	auditor   AuditPublisher
	now       func() time.Time

	// flight collapses concurrent attempts for the same fingerprint; the
	// ledger's idempotent Submit is the second line of defense.
	flight singleflight.Group

	mu      sync.Mutex
	retries map[id.Fingerprint]retryState
}

// New creates a reconciler over the given store and ledger client.
func New(certStore store.Store, ledgerClient ledger.Client, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     certStore,
		ledger:    ledgerClient,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		now:       time.Now,
		retries:   make(map[id.Fingerprint]retryState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sweeps on a fixed cadence until ctx is canceled. It is independent of
// request-serving concurrency; issuance never waits on it.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && r.logger != nil {
				r.logger.ErrorContext(ctx, "reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one reconciliation pass and reports how many records it
// anchored. Exported so tests and operational tooling can trigger a pass
// without waiting for the ticker.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	if r.metrics != nil {
		r.metrics.ReconcileSweeps.Inc()
	}

	pending, err := r.store.ListUnanchored(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.ReconcilePending.Set(float64(len(pending)))
	}

	var anchored int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)
	for _, record := range pending {
		if !r.due(record.Fingerprint) {
			continue
		}
		g.Go(func() error {
			if r.reconcileOne(gctx, record) {
				mu.Lock()
				anchored++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return anchored, err
	}
	return anchored, nil
}

// reconcileOne resubmits a single record, reporting whether it anchored.
// Failures only adjust the backoff window; the record stays unanchored.
func (r *Reconciler) reconcileOne(ctx context.Context, record models.CertificateRecord) bool {
	fp := record.Fingerprint
	result, err, shared := r.flight.Do(fp.String(), func() (any, error) {
		receipt, err := r.ledger.Submit(ctx, fp)
		if err != nil {
			return nil, err
		}
		if err := r.store.MarkAnchored(ctx, fp, receipt.TxRef); err != nil {
			return nil, err
		}
		return receipt, nil
	})
	if err != nil {
		r.recordFailure(fp, err)
		if r.logger != nil {
			r.logger.WarnContext(ctx, "reconciliation attempt failed",
				"fingerprint", fp.String(),
				"kind", string(ledger.KindOf(err)),
				"error", err,
			)
		}
		return false
	}
	if shared {
		// A collapsed duplicate attempt; the winner does the accounting.
		return false
	}
	receipt := result.(ledger.Receipt)

	r.clearRetry(fp)
	if r.metrics != nil {
		r.metrics.ReconcileAnchored.Inc()
	}
	if r.auditor != nil {
		_ = r.auditor.Emit(ctx, audit.Event{
			Action:      audit.ActionCertReconciled,
			IssuerID:    record.IssuerID.String(),
			Fingerprint: fp.String(),
			Detail:      receipt.TxRef,
		})
	}
	if r.logger != nil {
		r.logger.InfoContext(ctx, "certificate anchored by reconciliation",
			"fingerprint", fp.String(),
			"tx_ref", receipt.TxRef,
		)
	}
	return true
}

// due reports whether fp's backoff window has elapsed.
func (r *Reconciler) due(fp id.Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.retries[fp]
	if !ok {
		return true
	}
	return !r.now().Before(state.nextAttempt)
}

// recordFailure widens fp's backoff window: doubling from a kind-specific
// floor, capped at retryCap.
func (r *Reconciler) recordFailure(fp id.Fingerprint, err error) {
	floor := retryFloorTransient
	if ledger.KindOf(err) == ledger.KindRejected {
		floor = retryFloorRejected
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.retries[fp]
	switch {
	case !ok || state.delay == 0:
		state.delay = floor
	default:
		state.delay *= 2
		if state.delay > retryCap {
			state.delay = retryCap
		}
		if state.delay < floor {
			state.delay = floor
		}
	}
	state.nextAttempt = r.now().Add(state.delay)
	r.retries[fp] = state
}

func (r *Reconciler) clearRetry(fp id.Fingerprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.retries, fp)
}

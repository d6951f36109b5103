package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"trustchain/internal/certificate/models"
	"trustchain/internal/certificate/store"
	identitymodels "trustchain/internal/identity/models"
	"trustchain/internal/ledger"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// flakyLedger wraps a real in-memory ledger with deterministic failure
// injection, so tests can exercise every classified failure path.
type flakyLedger struct {
	inner     ledger.Client
	submitErr error
	statusErr error
}

func (l *flakyLedger) Submit(ctx context.Context, fp id.Fingerprint) (ledger.Receipt, error) {
	if l.submitErr != nil {
		return ledger.Receipt{}, l.submitErr
	}
	return l.inner.Submit(ctx, fp)
}

func (l *flakyLedger) StatusOf(ctx context.Context, fp id.Fingerprint) (ledger.Status, error) {
	if l.statusErr != nil {
		return ledger.Status{}, l.statusErr
	}
	return l.inner.StatusOf(ctx, fp)
}

// stubDirectory is a test double for IssuerDirectory.
type stubDirectory struct {
	issuers map[id.IssuerID]identitymodels.Issuer
}

func (d *stubDirectory) FindByID(_ context.Context, issuerID id.IssuerID) (identitymodels.Issuer, error) {
	if issuer, ok := d.issuers[issuerID]; ok {
		return issuer, nil
	}
	return identitymodels.Issuer{}, dErrors.New(dErrors.CodeNotFound, "issuer not found")
}

// CertificateSuite tests the issuance orchestrator and verification reconciler.
//
// Justification: this is the component that reconciles the two stores under
// partial failure; every outcome classification and divergence rule in it is
// load-bearing.
type CertificateSuite struct {
	suite.Suite

	store  *store.InMemoryStore
	ledger *flakyLedger
	dir    *stubDirectory
	svc    *Service

	issuer identitymodels.Issuer
}

func TestCertificateSuite(t *testing.T) {
	suite.Run(t, new(CertificateSuite))
}

func (s *CertificateSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.ledger = &flakyLedger{inner: ledger.NewMemoryLedger()}
	s.issuer = identitymodels.Issuer{
		ID:    id.NewIssuerID(),
		Name:  "Tech University",
		Email: "registrar@tech.example",
		Role:  identitymodels.RoleIssuer,
	}
	s.dir = &stubDirectory{issuers: map[id.IssuerID]identitymodels.Issuer{s.issuer.ID: s.issuer}}
	s.svc = NewService(s.store, s.ledger, s.dir)
}

func (s *CertificateSuite) caller() Identity {
	return Identity{IssuerID: s.issuer.ID, Role: s.issuer.Role}
}

func (s *CertificateSuite) content() models.CertificateContent {
	return models.CertificateContent{
		StudentName: "Alice",
		CourseName:  "CS101",
		Grade:       "A",
		IssueDate:   "2024-01-01",
	}
}

func (s *CertificateSuite) TestIssueCompleted() {
	outcome, err := s.svc.Issue(context.Background(), s.content(), s.caller())
	s.NoError(err)
	s.True(outcome.Anchored)
	s.NotEmpty(outcome.TxRef)
	s.NoError(outcome.LedgerError)

	record, err := s.store.FindByFingerprint(context.Background(), outcome.Fingerprint)
	s.NoError(err)
	s.Equal(models.StatusAnchored, record.Status)
	s.Equal(outcome.TxRef, record.TxRef)
	s.Equal(s.issuer.ID, record.IssuerID)
}

func (s *CertificateSuite) TestIssueUnauthorized() {
	for _, role := range []identitymodels.Role{identitymodels.RoleUnprivileged, identitymodels.Role("")} {
		caller := Identity{IssuerID: s.issuer.ID, Role: role}
		_, err := s.svc.Issue(context.Background(), s.content(), caller)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}

	// No writes happened.
	pending, err := s.store.ListUnanchored(context.Background(), 10)
	s.NoError(err)
	s.Empty(pending)
}

func (s *CertificateSuite) TestIssueAdminCanIssue() {
	caller := Identity{IssuerID: s.issuer.ID, Role: identitymodels.RoleAdmin}
	outcome, err := s.svc.Issue(context.Background(), s.content(), caller)
	s.NoError(err)
	s.True(outcome.Anchored)
}

func (s *CertificateSuite) TestIssueDuplicate() {
	first, err := s.svc.Issue(context.Background(), s.content(), s.caller())
	s.NoError(err)

	_, err = s.svc.Issue(context.Background(), s.content(), s.caller())
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateCertificate))

	// Exactly one record exists for that fingerprint.
	record, err := s.store.FindByFingerprint(context.Background(), first.Fingerprint)
	s.NoError(err)
	s.Equal(first.Fingerprint, record.Fingerprint)
}

func (s *CertificateSuite) TestIssueInvalidContent() {
	for name, mutate := range map[string]func(*models.CertificateContent){
		"missing student": func(c *models.CertificateContent) { c.StudentName = "" },
		"missing course":  func(c *models.CertificateContent) { c.CourseName = "" },
		"missing date":    func(c *models.CertificateContent) { c.IssueDate = "" },
		"malformed date":  func(c *models.CertificateContent) { c.IssueDate = "January 1st" },
	} {
		s.Run(name, func() {
			c := s.content()
			mutate(&c)
			_, err := s.svc.Issue(context.Background(), c, s.caller())
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func (s *CertificateSuite) TestIssueStoredOnlyOnLedgerFailure() {
	s.ledger.submitErr = &ledger.Error{Kind: ledger.KindTimeout, Op: "submit", Err: context.DeadlineExceeded}

	outcome, err := s.svc.Issue(context.Background(), s.content(), s.caller())
	s.NoError(err, "ledger failure must not fail issuance")
	s.False(outcome.Anchored)
	s.Empty(outcome.TxRef)
	s.Equal(ledger.KindTimeout, ledger.KindOf(outcome.LedgerError))

	record, err := s.store.FindByFingerprint(context.Background(), outcome.Fingerprint)
	s.NoError(err)
	s.Equal(models.StatusUnanchored, record.Status, "store write is never rolled back")
}

func (s *CertificateSuite) TestIssueStorageFailureWhenDuplicateRace() {
	// Concurrent identical requests: the store's uniqueness constraint is
	// the only serialization; exactly one must win.
	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Issue(context.Background(), s.content(), s.caller())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, duplicates int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case dErrors.HasCode(err, dErrors.CodeDuplicateCertificate):
			duplicates++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, wins)
	s.Equal(attempts-1, duplicates)
}

func (s *CertificateSuite) TestVerifyNeverIssued() {
	_, err := s.svc.Verify(context.Background(), id.Fingerprint("deadbeef"))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CertificateSuite) TestVerifyFullScenario() {
	// Concrete scenario: live ledger, full round trip.
	outcome, err := s.svc.Issue(context.Background(), s.content(), s.caller())
	s.Require().NoError(err)
	s.Require().True(outcome.Anchored)

	verdict, err := s.svc.Verify(context.Background(), outcome.Fingerprint)
	s.NoError(err)
	s.True(verdict.StoreRecordFound)
	s.Equal(outcome.TxRef, verdict.TxRef)
	s.Equal("Tech University", verdict.IssuerName)
	s.Equal("registrar@tech.example", verdict.IssuerEmail)
	s.Equal("Alice", verdict.StudentName)
	s.Equal("CS101", verdict.CourseName)
}

func (s *CertificateSuite) TestVerifyStoredOnlyIsNotFound() {
	// Ledger down at issue time: the record exists but is not verifiable
	// until reconciliation anchors it.
	s.ledger.submitErr = &ledger.Error{Kind: ledger.KindTransport, Op: "submit"}
	outcome, err := s.svc.Issue(context.Background(), s.content(), s.caller())
	s.Require().NoError(err)
	s.Require().False(outcome.Anchored)

	s.ledger.submitErr = nil
	_, err = s.svc.Verify(context.Background(), outcome.Fingerprint)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CertificateSuite) TestVerifyLedgerYesStoreNo() {
	// Out-of-band anchoring: ledger has the fingerprint, store never did.
	fp := id.Fingerprint("feedface")
	_, err := s.ledger.inner.Submit(context.Background(), fp)
	s.Require().NoError(err)

	verdict, err := s.svc.Verify(context.Background(), fp)
	s.NoError(err, "ledger confirmation alone proves authenticity")
	s.False(verdict.StoreRecordFound)
	s.NotEmpty(verdict.TxRef)
	s.Empty(verdict.IssuerName)
	s.Empty(verdict.StudentName)
}

func (s *CertificateSuite) TestVerifyLedgerOutage() {
	s.ledger.statusErr = &ledger.Error{Kind: ledger.KindTimeout, Op: "status", Err: context.DeadlineExceeded}
	_, err := s.svc.Verify(context.Background(), id.Fingerprint("deadbeef"))
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *CertificateSuite) TestVerifyUnknownIssuerDegrades() {
	outcome, err := s.svc.Issue(context.Background(), s.content(), s.caller())
	s.Require().NoError(err)

	// Issuer disappears from the directory after issuance.
	delete(s.dir.issuers, s.issuer.ID)

	verdict, err := s.svc.Verify(context.Background(), outcome.Fingerprint)
	s.NoError(err)
	s.True(verdict.StoreRecordFound)
	s.Empty(verdict.IssuerName)
	s.Equal("Alice", verdict.StudentName)
}

func (s *CertificateSuite) TestFingerprintIdentityBoundToIssuer() {
	// Same content issued by two different institutions must not collide.
	other := identitymodels.Issuer{ID: id.NewIssuerID(), Name: "Other", Role: identitymodels.RoleIssuer}
	s.dir.issuers[other.ID] = other

	first, err := s.svc.Issue(context.Background(), s.content(), s.caller())
	s.NoError(err)

	second, err := s.svc.Issue(context.Background(), s.content(), Identity{IssuerID: other.ID, Role: other.Role})
	s.NoError(err)
	s.NotEqual(first.Fingerprint, second.Fingerprint)
}

func (s *CertificateSuite) TestIssueStorageFailure() {
	failing := &failingStore{}
	svc := NewService(failing, s.ledger, s.dir)
	_, err := svc.Issue(context.Background(), s.content(), s.caller())
	s.True(dErrors.HasCode(err, dErrors.CodeStorageFailure))
}

// failingStore simulates an unreachable primary store.
type failingStore struct{}

func (f *failingStore) CreateIfAbsent(context.Context, models.CertificateRecord) error {
	return errors.New("driver: bad connection")
}

func (f *failingStore) FindByFingerprint(context.Context, id.Fingerprint) (models.CertificateRecord, error) {
	return models.CertificateRecord{}, errors.New("driver: bad connection")
}

func (f *failingStore) MarkAnchored(context.Context, id.Fingerprint, string) error {
	return errors.New("driver: bad connection")
}

func (f *failingStore) ListUnanchored(context.Context, int) ([]models.CertificateRecord, error) {
	return nil, errors.New("driver: bad connection")
}

package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"trustchain/internal/certificate/models"
	"trustchain/internal/certificate/store"
	"trustchain/internal/ledger"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// Verify merges ledger presence and store metadata into one verdict.
//
// The ledger is authoritative for existence: no anchor means NotFound, no
// matter what the store says — a store-only record with a pending anchor is
// deliberately not yet verifiable. The store is authoritative only for
// descriptive metadata, so a missing store record degrades the verdict's
// issuer fields without failing the call.
func (s *Service) Verify(ctx context.Context, fp id.Fingerprint) (models.VerificationVerdict, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.verify",
		trace.WithAttributes(attribute.String("certificate.fingerprint", fp.String())))
	verdict, err := s.verify(ctx, fp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("certificate.store_record_found", verdict.StoreRecordFound))
	}
	span.End()
	return verdict, err
}

func (s *Service) verify(ctx context.Context, fp id.Fingerprint) (models.VerificationVerdict, error) {
	// Both sources are queried concurrently; the merge below decides what
	// each result is allowed to mean.
	var (
		status      ledger.Status
		record      models.CertificateRecord
		recordFound bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		status, err = s.ledger.StatusOf(gctx, fp)
		if err != nil {
			return dErrors.Wrap(err, ledgerErrorCode(err), "query ledger status")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		record, err = s.store.FindByFingerprint(gctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil // divergence is handled by the merge, not here
			}
			return dErrors.Wrap(err, dErrors.CodeStorageFailure, "query certificate store")
		}
		recordFound = true
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.VerificationVerdict{}, err
	}

	if !status.Anchored {
		s.countVerification("not_found")
		return models.VerificationVerdict{}, dErrors.New(dErrors.CodeNotFound, "certificate not found on ledger")
	}

	verdict := models.VerificationVerdict{
		Fingerprint:      fp,
		TxRef:            status.Receipt.TxRef,
		StoreRecordFound: recordFound,
	}
	if !recordFound {
		// Ledger-yes / store-no: the anchor alone proves authenticity;
		// descriptive metadata is simply unavailable.
		s.countVerification("verified_no_record")
		return verdict, nil
	}

	verdict.StudentName = record.StudentName
	verdict.CourseName = record.CourseName
	if issuer, err := s.issuers.FindByID(ctx, record.IssuerID); err == nil {
		verdict.IssuerName = issuer.Name
		verdict.IssuerEmail = issuer.Email
	} else if s.logger != nil {
		s.logger.WarnContext(ctx, "certificate record references unknown issuer",
			"fingerprint", fp.String(),
			"issuer_id", record.IssuerID.String(),
			"error", err,
		)
	}
	s.countVerification("verified")
	return verdict, nil
}

// ledgerErrorCode maps classified ledger failures onto domain error codes for
// the verification path, where a ledger outage is a hard error.
func ledgerErrorCode(err error) dErrors.Code {
	if ledger.KindOf(err) == ledger.KindTimeout {
		return dErrors.CodeTimeout
	}
	return dErrors.CodeInternal
}

func (s *Service) countVerification(verdict string) {
	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues(verdict).Inc()
	}
}

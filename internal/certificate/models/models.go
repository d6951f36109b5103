// Package models defines the certificate domain types shared by the
// orchestrator, reconciler, stores, and transport layer.
package models

import (
	"time"

	id "trustchain/pkg/domain"
)

// CertificateContent is the semantic payload of a certificate. It exists only
// transiently as issuance input; what persists is the CertificateRecord plus
// the fingerprint derived from this content.
type CertificateContent struct {
	StudentName string
	CourseName  string
	Grade       string
	IssueDate   string // calendar date, YYYY-MM-DD
	IssuerID    id.IssuerID
}

// AnchorStatus tracks where a certificate stands relative to the ledger.
type AnchorStatus string

const (
	// StatusUnanchored means the fingerprint was never confirmed by the
	// ledger: either never submitted or the submission failed. The
	// reconciler retries records in this state.
	StatusUnanchored AnchorStatus = "unanchored"
	// StatusAnchored means the ledger confirmed the fingerprint. Terminal.
	StatusAnchored AnchorStatus = "anchored"
	// StatusUnknown means the ledger was unreachable at the last attempt.
	// Transient; issuance must not treat it as permanent.
	StatusUnknown AnchorStatus = "unknown"
)

// CertificateRecord is the persisted form of an issued certificate.
// Fingerprint is unique at the store level; AnchorStatus and TxRef are the
// only fields mutated after creation, by the anchoring and reconciliation
// paths.
type CertificateRecord struct {
	Fingerprint id.Fingerprint
	IssuerID    id.IssuerID
	StudentName string
	CourseName  string
	Grade       string
	IssueDate   string
	Status      AnchorStatus
	TxRef       string // ledger transaction reference, empty until anchored
	CreatedAt   time.Time
}

// IssueOutcome classifies a successful issuance. Both variants mean the
// record is durably in the primary store; they differ in whether the ledger
// confirmed the anchor synchronously.
type IssueOutcome struct {
	Fingerprint id.Fingerprint
	Anchored    bool
	TxRef       string // set when Anchored
	LedgerError error  // set when !Anchored; the classified ledger failure
}

// VerificationVerdict is the merged read-model of a verification lookup.
// The ledger is authoritative for existence; the store only contributes
// descriptive metadata, so IssuerName/IssuerEmail may be absent while the
// verdict itself stands.
type VerificationVerdict struct {
	Fingerprint      id.Fingerprint
	TxRef            string
	StoreRecordFound bool
	IssuerName       string
	IssuerEmail      string
	StudentName      string
	CourseName       string
}

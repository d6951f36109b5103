package audit

import "time"

// Event is emitted from domain logic to capture key actions in the
// certificate lifecycle. Keep it transport-agnostic so stores and sinks can
// fan out.
type Event struct {
	Timestamp   time.Time
	IssuerID    string
	Fingerprint string
	Action      Action
	Detail      string // free-form context, e.g. the classified ledger failure
}

// Action is the closed set of audited lifecycle actions.
type Action string

const (
	ActionIssuerRegistered Action = "issuer_registered"
	ActionIssuerLogin      Action = "issuer_login"
	ActionCertIssued       Action = "certificate_issued"
	ActionAnchorConfirmed  Action = "anchor_confirmed"
	ActionAnchorFailed     Action = "anchor_failed"
	ActionCertReconciled   Action = "certificate_reconciled"
)

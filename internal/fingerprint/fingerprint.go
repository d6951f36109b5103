// Package fingerprint derives the permanent identity of a certificate from
// its content. The digest doubles as the primary-store key and the ledger
// correlation key, so the canonical form here must never change without a
// migration plan for every certificate already issued.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"trustchain/internal/certificate/models"
	id "trustchain/pkg/domain"
)

// canonicalContent pins the serialized field order. Two logically identical
// payloads built through different code paths must hash identically, which
// json.Marshal guarantees for a struct: fields are emitted in declaration
// order regardless of how the value was constructed.
type canonicalContent struct {
	StudentName string `json:"studentName"`
	CourseName  string `json:"courseName"`
	Grade       string `json:"grade"`
	IssueDate   string `json:"issueDate"`
	IssuerID    string `json:"issuerId"`
}

// New computes the SHA-256 fingerprint of the canonical serialization of
// content. Pure and total: every input has exactly one fingerprint.
func New(content models.CertificateContent) id.Fingerprint {
	canonical := canonicalContent{
		StudentName: content.StudentName,
		CourseName:  content.CourseName,
		Grade:       content.Grade,
		IssueDate:   content.IssueDate,
		IssuerID:    content.IssuerID.String(),
	}
	// Marshal of a flat struct of strings cannot fail.
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return id.Fingerprint(hex.EncodeToString(sum[:]))
}

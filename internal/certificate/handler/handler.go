// Package handler is the thin HTTP layer over the certificate service. It
// maps outcomes and domain errors to transport responses without embedding
// business logic.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"trustchain/internal/certificate/models"
	"trustchain/internal/certificate/service"
	identitymodels "trustchain/internal/identity/models"
	"trustchain/internal/platform/middleware"
	"trustchain/internal/transport/httputil"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
)

// Handler exposes the issue and verify endpoints.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// New creates a certificate handler.
func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type issueRequest struct {
	StudentName string `json:"studentName"`
	CourseName  string `json:"courseName"`
	Grade       string `json:"grade"`
	IssueDate   string `json:"issueDate"`
}

type issueResponse struct {
	Status          string `json:"status"`
	CertificateHash string `json:"certificateHash"`
	TransactionRef  string `json:"transactionRef,omitempty"`
	LedgerError     string `json:"ledgerError,omitempty"`
}

const (
	statusCompleted  = "COMPLETED"
	statusStoredOnly = "STORED_ANCHORING_PENDING"
)

// HandleIssue serves POST /api/certs/issue. Requires authentication; the
// issuer identity comes from the verified token, never from the body.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetAuthClaims(r.Context())
	if claims == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	issuerID, err := id.ParseIssuerID(claims.IssuerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := identitymodels.ParseRole(claims.Role)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid role claim"))
		return
	}

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	content := models.CertificateContent{
		StudentName: req.StudentName,
		CourseName:  req.CourseName,
		Grade:       req.Grade,
		IssueDate:   req.IssueDate,
	}
	outcome, err := h.svc.Issue(r.Context(), content, service.Identity{IssuerID: issuerID, Role: role})
	if err != nil {
		// The caller is authenticated; lacking the issuing role is a
		// permission problem, not a credential problem.
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			httputil.WriteJSON(w, http.StatusForbidden, map[string]string{
				"error":             string(dErrors.CodeForbidden),
				"error_description": "Only issuing institutions can issue certificates",
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	resp := issueResponse{
		Status:          statusCompleted,
		CertificateHash: outcome.Fingerprint.String(),
		TransactionRef:  outcome.TxRef,
	}
	if !outcome.Anchored {
		resp.Status = statusStoredOnly
		resp.LedgerError = outcome.LedgerError.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type verifyResponse struct {
	IsVerified     bool           `json:"isVerified"`
	TransactionRef string         `json:"transactionRef"`
	DBRecordFound  bool           `json:"dbRecordFound"`
	IssuerDetails  *issuerDetails `json:"issuerDetails,omitempty"`
	Details        *certDetails   `json:"details,omitempty"`
}

type issuerDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type certDetails struct {
	StudentName string `json:"studentName"`
	CourseName  string `json:"courseName"`
}

// HandleVerify serves GET /api/certs/verify?hash=<fingerprint>. Public.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	fp, err := id.ParseFingerprint(r.URL.Query().Get("hash"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verdict, err := h.svc.Verify(r.Context(), fp)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := verifyResponse{
		IsVerified:     true,
		TransactionRef: verdict.TxRef,
		DBRecordFound:  verdict.StoreRecordFound,
	}
	if verdict.StoreRecordFound {
		resp.IssuerDetails = &issuerDetails{Name: verdict.IssuerName, Email: verdict.IssuerEmail}
		resp.Details = &certDetails{StudentName: verdict.StudentName, CourseName: verdict.CourseName}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

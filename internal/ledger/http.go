package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	id "trustchain/pkg/domain"
)

// HTTPClient talks to an anchoring gateway over JSON/HTTP. The gateway fronts
// the actual ledger technology; this client only cares about the two-call
// contract and classifying what went wrong.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// HTTPOption configures the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient injects a custom *http.Client, mainly for tests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// WithTimeout bounds each ledger call. A hung ledger becomes a KindTimeout
// error instead of blocking the caller indefinitely.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHTTPClient constructs a client for the anchoring gateway at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type submitRequest struct {
	Fingerprint string `json:"fingerprint"`
}

type receiptResponse struct {
	TxRef      string    `json:"tx_ref"`
	AnchoredAt time.Time `json:"anchored_at"`
}

// Submit asks the gateway to anchor fp. The gateway is expected to be
// idempotent: resubmitting an anchored fingerprint returns the existing
// receipt with a 200.
func (h *HTTPClient) Submit(ctx context.Context, fp id.Fingerprint) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	body, _ := json.Marshal(submitRequest{Fingerprint: fp.String()})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/anchors", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, &Error{Kind: KindTransport, Op: "submit", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return Receipt{}, &Error{Kind: classifyTransport(err), Op: "submit", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-side close

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var rr receiptResponse
		if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
			return Receipt{}, &Error{Kind: KindTransport, Op: "submit", Err: fmt.Errorf("decode receipt: %w", err)}
		}
		return Receipt{TxRef: rr.TxRef, AnchoredAt: rr.AnchoredAt}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Receipt{}, &Error{Kind: KindRejected, Op: "submit", Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	default:
		return Receipt{}, &Error{Kind: KindTransport, Op: "submit", Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	}
}

// StatusOf reports whether fp is anchored. A 404 is a definitive "not
// anchored", not an error.
func (h *HTTPClient) StatusOf(ctx context.Context, fp id.Fingerprint) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/anchors/"+fp.String(), nil)
	if err != nil {
		return Status{}, &Error{Kind: KindTransport, Op: "status", Err: err}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Status{}, &Error{Kind: classifyTransport(err), Op: "status", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-side close

	switch {
	case resp.StatusCode == http.StatusOK:
		var rr receiptResponse
		if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
			return Status{}, &Error{Kind: KindTransport, Op: "status", Err: fmt.Errorf("decode receipt: %w", err)}
		}
		return Status{Anchored: true, Receipt: Receipt{TxRef: rr.TxRef, AnchoredAt: rr.AnchoredAt}}, nil
	case resp.StatusCode == http.StatusNotFound:
		return Status{Anchored: false}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Status{}, &Error{Kind: KindRejected, Op: "status", Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	default:
		return Status{}, &Error{Kind: KindTransport, Op: "status", Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	}
}

// classifyTransport separates deadline expiry from connection-level failure.
func classifyTransport(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

var _ Client = (*HTTPClient)(nil)

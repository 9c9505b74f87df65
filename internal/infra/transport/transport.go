// Package transport performs request/response exchanges with the voucher
// backend and folds every failure into one human-readable message.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/observability"
)

// SuccessMessage is the synthetic body returned for successful responses
// that carry no JSON.
const SuccessMessage = "Operation completed successfully"

// maxBody bounds how much of a response is read.
const maxBody = 10 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string        // e.g. http://127.0.0.1:8000/api
	Timeout    time.Duration // applied to the default http.Client only
	HTTPClient *http.Client  // optional; overrides Timeout
}

// Client implements domain.Caller over HTTP. It has no retries and no
// timeout of its own beyond what the http.Client carries.
type Client struct {
	baseURL string
	http    *http.Client
	creds   domain.Credentials
}

// New creates a Client. creds may be nil; calls are then unauthenticated.
func New(opts Options, creds domain.Credentials) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		creds:   creds,
	}
}

// SetCredentials swaps the credential source.
func (c *Client) SetCredentials(creds domain.Credentials) { c.creds = creds }

// Call sends body (JSON-encoded when non-nil) to endpoint and returns the raw
// JSON response. Non-JSON or empty successful responses yield
// {"message": SuccessMessage}. Failures are *domain.TransportError.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &domain.TransportError{Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, &domain.TransportError{Message: err.Error()}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	observability.TransportLatency.WithLabelValues(method).Observe(elapsed.Seconds())

	entry := log.WithFields(log.Fields{
		"method":     method,
		"endpoint":   endpoint,
		"request_id": requestID,
		"duration":   elapsed.String(),
	})

	if err != nil {
		observability.TransportRequests.WithLabelValues(method, "0").Inc()
		entry.WithError(err).Debug("backend call failed")
		return nil, &domain.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	observability.TransportRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	entry = entry.WithField("status", resp.StatusCode)

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := failureMessage(resp, data, readErr)
		entry.WithField("error", msg).Debug("backend call rejected")
		return nil, &domain.TransportError{Status: resp.StatusCode, Message: msg}
	}

	entry.Debug("backend call")

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return syntheticSuccess(), nil
	}
	if readErr != nil || !json.Valid(data) {
		return syntheticSuccess(), nil
	}
	return json.RawMessage(data), nil
}

// failureMessage picks detail, message or error from a JSON error body. When
// the body is not JSON it falls back to the status text, then "HTTP <code>".
func failureMessage(resp *http.Response, data []byte, readErr error) string {
	fallback := fmt.Sprintf("HTTP %d", resp.StatusCode)

	var payload any
	if readErr != nil || json.Unmarshal(data, &payload) != nil {
		if text := statusText(resp); text != "" {
			return text
		}
		return fallback
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return fallback
	}
	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// statusText is the reason phrase of the status line, without the code.
func statusText(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

func syntheticSuccess() json.RawMessage {
	data, _ := json.Marshal(domain.MessageResponse{Message: SuccessMessage})
	return data
}

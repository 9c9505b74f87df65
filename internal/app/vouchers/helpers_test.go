package vouchers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/transport"
	"github.com/voucherdesk/voucherdesk/internal/testutil/fakebackend"
)

// recordedCall is one request seen by fakeCaller.
type recordedCall struct {
	Method   string
	Endpoint string
	Body     string
}

// fakeCaller answers from a handler and records every call in order.
type fakeCaller struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(method, endpoint string) (string, error)
}

func (f *fakeCaller) Call(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	var encoded string
	if body != nil {
		b, _ := json.Marshal(body)
		encoded = string(b)
	}
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: method, Endpoint: endpoint, Body: encoded})
	h := f.handler
	f.mu.Unlock()

	resp, err := h(method, endpoint)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp), nil
}

func (f *fakeCaller) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func (f *fakeCaller) Endpoints() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Method+" "+c.Endpoint)
	}
	return out
}

// vouchersJSON renders n vouchers with ids first..first+n-1.
func vouchersJSON(first, n int) string {
	parts := make([]string, 0, n)
	for i := first; i < first+n; i++ {
		parts = append(parts, fmt.Sprintf(
			`{"id":%d,"code":"C%04d","current_balance":"100.00","total_loaded":"100.00","created_at":"2025-01-01T00:00:00Z","creator":{"id":1,"username":"admin"}}`,
			i, i))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func envelopeJSON(results string, count int) string {
	return fmt.Sprintf(`{"count":%d,"results":%s}`, count, results)
}

const statsJSON = `{"total_vouchers":12,"active_vouchers":12,"disabled_vouchers":0,"sold_vouchers":0,"total_balance":1200.0}`

func ids(items []domain.Voucher) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		out = append(out, string(v.ID))
	}
	return out
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

// newBackendCaller returns a transport authenticated against a fresh fake
// backend.
func newBackendCaller(t *testing.T) (*transport.Client, *fakebackend.Backend) {
	t.Helper()
	b := fakebackend.New(t)
	b.IssueToken("test-token")
	return transport.New(transport.Options{BaseURL: b.URL()}, staticToken("test-token")), b
}

// cancellingCaller cancels the caller's context during call cancelAt and,
// like the transport, fails any call whose context is already done.
type cancellingCaller struct {
	mu       sync.Mutex
	cancel   context.CancelFunc
	cancelAt int
	calls    []string
}

func (c *cancellingCaller) Call(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	c.mu.Lock()
	c.calls = append(c.calls, method+" "+endpoint)
	n := len(c.calls)
	c.mu.Unlock()

	if n == c.cancelAt {
		c.cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.TransportError{Message: err.Error()}
	}
	return json.RawMessage(`{"message":"ok"}`), nil
}

func (c *cancellingCaller) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

package domain

import (
	"context"
	"encoding/json"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Caller performs one request/response exchange with the backend.
// Failures are always a *TransportError carrying one message.
type Caller interface {
	Call(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error)
}

// Credentials supplies the auth token, if any, for outgoing requests.
type Credentials interface {
	Token() string
}

// Clipboard receives voucher codes copied by the operator.
type Clipboard interface {
	WriteText(text string) error
}

// KVStore is durable local key-value storage for the session.
type KVStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(keys ...string) error
}

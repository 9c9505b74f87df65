package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Local input (validation failures; deep checks are left to the server)
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrInvalidCount        = errors.New("count must be a positive integer")
	ErrInvalidCode         = errors.New("voucher code is required")
	ErrInvalidID           = errors.New("voucher id is required")
	ErrInvalidPage         = errors.New("page must be at least 1")
	ErrInvalidStatus       = errors.New("unknown voucher status")
	ErrCredentialsRequired = errors.New("username and password are required")

	// Protocol
	ErrProtocolShape     = errors.New("unexpected response shape")
	ErrDoublePagination  = errors.New("server paginated a list requested in full")
	ErrStaleResponse     = errors.New("response superseded by a newer request")
	ErrNotAuthenticated  = errors.New("not logged in")
	ErrPartialBatch      = errors.New("some operations in the batch failed")
	ErrVoucherNotFound   = errors.New("voucher not found")
	ErrVoucherNotVisible = errors.New("voucher is not on the current page")

	// Local side effects
	ErrClipboard = errors.New("clipboard write failed")
)

// TransportError is the single failure shape surfaced by the transport.
// Status is 0 when no HTTP response was received.
type TransportError struct {
	Status  int
	Message string
}

func (e *TransportError) Error() string { return e.Message }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// IsAuthFailure reports whether err is an HTTP 401 or 403 from the backend.
func IsAuthFailure(err error) bool {
	switch StatusOf(err) {
	case 401, 403:
		return true
	}
	return false
}

// Message extracts the human-readable text of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}

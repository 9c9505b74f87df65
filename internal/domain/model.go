// Package domain contains pure voucher types with ZERO infrastructure imports.
// This is the innermost ring: transport, storage and presentation depend on it.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ─── Status ─────────────────────────────────────────────────────────────────

// Status is the server-owned lifecycle state of a voucher. The client never
// stores it on the record; it is implied by the endpoint that returned it.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusSold     Status = "sold"
)

// Statuses lists the tabs in display order.
var Statuses = []Status{StatusActive, StatusDisabled, StatusSold}

// ParseStatus accepts a tab name in any case.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusDisabled:
		return StatusDisabled, nil
	case StatusSold:
		return StatusSold, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Endpoint returns the list endpoint serving vouchers in this status.
func (s Status) Endpoint() string {
	switch s {
	case StatusDisabled:
		return "/vouchers/disabled/"
	case StatusSold:
		return "/vouchers/sold/"
	default:
		return "/vouchers/"
	}
}

// Tag is the qualifier appended to balances of non-active vouchers.
func (s Status) Tag() string {
	switch s {
	case StatusDisabled:
		return "(DISABLED)"
	case StatusSold:
		return "(SOLD)"
	}
	return ""
}

// ─── Identity ───────────────────────────────────────────────────────────────

// VoucherID is the opaque server identity of a voucher. The backend sends
// integers; strings are accepted too so the client never interprets it.
type VoucherID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *VoucherID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = VoucherID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("voucher id: %w", err)
	}
	*id = VoucherID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers.
func (id VoucherID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// NormalizeCode canonicalises a voucher code typed by a user.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ─── Voucher ────────────────────────────────────────────────────────────────

// Creator is the user who issued a voucher.
type Creator struct {
	ID       VoucherID `json:"id"`
	Username string    `json:"username"`
}

// Voucher is a prepaid balance instrument as reported by the backend.
type Voucher struct {
	ID             VoucherID `json:"id"`
	Code           string    `json:"code"`
	CurrentBalance Amount    `json:"current_balance"`
	TotalLoaded    Amount    `json:"total_loaded"`
	CreatedAt      time.Time `json:"created_at"`
	Creator        *Creator  `json:"creator"`
}

// EffectiveTotalLoaded falls back to the current balance when the server
// reports no loaded total.
func (v Voucher) EffectiveTotalLoaded() Amount {
	if v.TotalLoaded.IsPositive() {
		return v.TotalLoaded
	}
	return v.CurrentBalance
}

// Spent is max(0, effectiveTotalLoaded - currentBalance).
func (v Voucher) Spent() Amount {
	d := v.EffectiveTotalLoaded().Decimal().Sub(v.CurrentBalance.Decimal())
	if d.IsNegative() {
		return Amount{}
	}
	return NewAmount(d)
}

// CreatorName returns the display name of the creator, if known.
func (v Voucher) CreatorName() string {
	if v.Creator == nil || v.Creator.Username == "" {
		return ""
	}
	return v.Creator.Username
}

// MatchesCode compares codes case-insensitively.
func (v Voucher) MatchesCode(code string) bool {
	return NormalizeCode(v.Code) == NormalizeCode(code)
}

// ─── Statistics ─────────────────────────────────────────────────────────────

// Statistics are server-side aggregates. They are always re-fetched, never
// derived from the local list.
type Statistics struct {
	TotalVouchers    int    `json:"total_vouchers"`
	TotalBalance     Amount `json:"total_balance"`
	ActiveVouchers   int    `json:"active_vouchers"`
	DisabledVouchers int    `json:"disabled_vouchers"`
	SoldVouchers     int    `json:"sold_vouchers"`
}

// ─── Identity of the operator ───────────────────────────────────────────────

// Profile is the identity returned together with the auth token.
type Profile struct {
	UserID      VoucherID `json:"user_id"`
	Username    string    `json:"username"`
	IsSuperuser bool      `json:"is_superuser"`
}

// TokenResponse is the body of a successful token exchange.
type TokenResponse struct {
	Token string `json:"token"`
	Profile
}

// MessageResponse is the minimal shape of a write acknowledgement. Writes
// may return anything; callers only rely on the optional message.
type MessageResponse struct {
	Message string `json:"message"`
}

// RechargeResponse is the body of a successful recharge.
type RechargeResponse struct {
	Message    string `json:"message"`
	NewBalance Amount `json:"new_balance"`
}

// PaymentResponse is the body of a successful public payment.
type PaymentResponse struct {
	Message          string    `json:"message"`
	VoucherCode      string    `json:"voucher_code"`
	RemainingBalance Amount    `json:"remaining_balance"`
	TransactionID    VoucherID `json:"transaction_id"`
}

// RegisterResponse is the body of a successful account registration.
type RegisterResponse struct {
	Message  string    `json:"message"`
	UserID   VoucherID `json:"user_id"`
	Username string    `json:"username"`
}

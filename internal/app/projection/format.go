// Package projection turns list state into what the operator sees: table
// rows with their action buttons, the paginator, statistics, dropdown menus,
// busy controls and transient notifications.
package projection

import (
	"time"

	"github.com/voucherdesk/voucherdesk/internal/domain"
)

// CurrencyPrefix precedes every rendered amount.
const CurrencyPrefix = "Rs "

// UnknownCreator is shown when a voucher has no creator.
const UnknownCreator = "Unknown"

// Money renders a per-voucher amount as the server sent it.
func Money(a domain.Amount) string {
	return CurrencyPrefix + a.String()
}

// Total renders an aggregate with exactly two decimals.
func Total(a domain.Amount) string {
	return CurrencyPrefix + a.Fixed2()
}

// Date renders a creation timestamp in the local zone.
func Date(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if layout == "" {
		layout = time.DateOnly
	}
	return t.Local().Format(layout)
}

// Creator returns the creator name or UnknownCreator.
func Creator(v domain.Voucher) string {
	if name := v.CreatorName(); name != "" {
		return name
	}
	return UnknownCreator
}

// EmptyMessage is shown in place of an empty table.
func EmptyMessage(s domain.Status) string {
	return "No " + string(s) + " vouchers found"
}

// BalanceLine renders a balance check result, e.g. "Rs 20.00 (DISABLED)".
func BalanceLine(balance domain.Amount, s domain.Status) string {
	line := Money(balance)
	if tag := s.Tag(); tag != "" {
		line += " " + tag
	}
	return line
}

package projection

import (
	"sync"

	"github.com/voucherdesk/voucherdesk/internal/domain"
)

// Details is the voucher details modal.
type Details struct {
	ID          domain.VoucherID `json:"id"`
	Code        string           `json:"code"`
	Status      domain.Status    `json:"status"`
	Balance     string           `json:"balance"`
	TotalLoaded string           `json:"total_loaded"`
	Spent       string           `json:"spent"`
	Created     string           `json:"created"`
	Creator     string           `json:"creator"`
}

// NewDetails projects v for the details modal.
func NewDetails(v domain.Voucher, s domain.Status, dateLayout string) Details {
	return Details{
		ID:          v.ID,
		Code:        v.Code,
		Status:      s,
		Balance:     BalanceLine(v.CurrentBalance, s),
		TotalLoaded: Money(v.EffectiveTotalLoaded()),
		Spent:       Money(v.Spent()),
		Created:     Date(v.CreatedAt, dateLayout),
		Creator:     Creator(v),
	}
}

// Menus tracks dropdown and modal visibility. At most one dropdown is open.
type Menus struct {
	mu    sync.Mutex
	open  domain.VoucherID
	modal *Details
}

// NewMenus returns menus with everything closed.
func NewMenus() *Menus { return &Menus{} }

// Toggle closes every other dropdown, then flips the target.
func (m *Menus) Toggle(id domain.VoucherID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open == id {
		m.open = ""
		return false
	}
	m.open = id
	return true
}

// Open returns the id of the open dropdown, or "".
func (m *Menus) Open() domain.VoucherID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// ShowDetails opens the details modal and closes the dropdown.
func (m *Menus) ShowDetails(d Details) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = ""
	m.modal = &d
}

// Modal returns the open modal, if any.
func (m *Menus) Modal() *Details {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modal == nil {
		return nil
	}
	d := *m.modal
	return &d
}

// CloseAll closes every dropdown and modal. It is what a click outside any
// dropdown or the close control does.
func (m *Menus) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = ""
	m.modal = nil
}

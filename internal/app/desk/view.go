package desk

import (
	"github.com/voucherdesk/voucherdesk/internal/app/projection"
	"github.com/voucherdesk/voucherdesk/internal/domain"
)

// View is everything the operator sees at one instant.
type View struct {
	Authenticated bool                      `json:"authenticated"`
	User          *domain.Profile           `json:"user,omitempty"`
	Pagination    string                    `json:"pagination"`
	List          *projection.ListView      `json:"list,omitempty"`
	Modal         *projection.Details       `json:"modal,omitempty"`
	BalanceResult string                    `json:"balance_result,omitempty"`
	Notifications []projection.Notification `json:"notifications"`
	Controls      []projection.Control      `json:"controls"`
}

// View projects the current state. Logged out, only the login view and
// notifications are shown.
func (d *Desk) View() View {
	v := View{
		Authenticated: d.Authenticated(),
		Pagination:    d.list.Mode().String(),
		Notifications: d.notifier.Active(),
		Controls:      d.controls.Snapshot(),
	}
	if !v.Authenticated {
		return v
	}

	profile := d.Profile()
	v.User = &profile
	list := projection.BuildList(d.list.Snapshot(), d.cfg.UI.DateLayout, d.menus.Open())
	v.List = &list
	v.Modal = d.menus.Modal()

	d.mu.Lock()
	v.BalanceResult = d.balance
	d.mu.Unlock()
	return v
}

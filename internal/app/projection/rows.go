package projection

import (
	"github.com/voucherdesk/voucherdesk/internal/app/vouchers"
	"github.com/voucherdesk/voucherdesk/internal/domain"
)

// Action names a control offered on a voucher row.
type Action string

const (
	ActionMarkSold Action = "mark_sold"
	ActionDetails  Action = "details"
	ActionDisable  Action = "disable"
	ActionEnable   Action = "enable"
)

// Label is the button text of an action.
func (a Action) Label() string {
	switch a {
	case ActionMarkSold:
		return "Copy & Mark Sold"
	case ActionDetails:
		return "Details"
	case ActionDisable:
		return "Disable"
	case ActionEnable:
		return "Enable"
	}
	return string(a)
}

// RowActions splits a row's controls into inline buttons and the dropdown.
type RowActions struct {
	Buttons []Action `json:"buttons"`
	Menu    []Action `json:"menu"`
}

// ActionsFor returns the controls for a voucher in status s.
func ActionsFor(s domain.Status) RowActions {
	switch s {
	case domain.StatusActive:
		return RowActions{
			Buttons: []Action{ActionMarkSold},
			Menu:    []Action{ActionDetails, ActionDisable},
		}
	case domain.StatusDisabled:
		return RowActions{Menu: []Action{ActionDetails, ActionEnable}}
	default:
		return RowActions{Menu: []Action{ActionDetails}}
	}
}

// Allows reports whether action is offered for status s.
func Allows(s domain.Status, action Action) bool {
	ra := ActionsFor(s)
	for _, a := range append(ra.Buttons, ra.Menu...) {
		if a == action {
			return true
		}
	}
	return false
}

// Row is one rendered voucher.
type Row struct {
	ID          domain.VoucherID `json:"id"`
	Code        string           `json:"code"`
	Balance     string           `json:"balance"`
	TotalLoaded string           `json:"total_loaded"`
	Spent       string           `json:"spent"`
	Created     string           `json:"created"`
	Creator     string           `json:"creator"`
	Actions     RowActions       `json:"actions"`
	MenuOpen    bool             `json:"menu_open"`
}

// PageButton is one page number control.
type PageButton struct {
	Number  int  `json:"number"`
	Current bool `json:"current"`
}

// Paginator is the rendered pagination bar.
type Paginator struct {
	Visible     bool         `json:"visible"`
	Info        string       `json:"info,omitempty"`
	Pages       []PageButton `json:"pages,omitempty"`
	PrevEnabled bool         `json:"prev_enabled"`
	NextEnabled bool         `json:"next_enabled"`
}

// StatsView is the rendered statistics panel.
type StatsView struct {
	TotalVouchers    int    `json:"total_vouchers"`
	TotalBalance     string `json:"total_balance"`
	ActiveVouchers   int    `json:"active_vouchers"`
	DisabledVouchers int    `json:"disabled_vouchers"`
	SoldVouchers     int    `json:"sold_vouchers"`
}

// ListView is the voucher table with its paginator and statistics.
type ListView struct {
	Tab       domain.Status `json:"tab"`
	Page      int           `json:"page"`
	Rows      []Row         `json:"rows"`
	Empty     string        `json:"empty,omitempty"`
	Paginator Paginator     `json:"paginator"`
	Stats     *StatsView    `json:"stats,omitempty"`
}

// BuildList projects a list snapshot. openMenu is the id of the open
// dropdown, if any.
func BuildList(snap vouchers.Snapshot, dateLayout string, openMenu domain.VoucherID) ListView {
	view := ListView{
		Tab:       snap.Filter,
		Page:      snap.Page,
		Rows:      make([]Row, 0, len(snap.Items)),
		Paginator: BuildPaginator(snap.Page, snap.PageSize, snap.Total),
	}
	actions := ActionsFor(snap.Filter)
	for _, v := range snap.Items {
		view.Rows = append(view.Rows, Row{
			ID:          v.ID,
			Code:        v.Code,
			Balance:     Money(v.CurrentBalance),
			TotalLoaded: Money(v.EffectiveTotalLoaded()),
			Spent:       Money(v.Spent()),
			Created:     Date(v.CreatedAt, dateLayout),
			Creator:     Creator(v),
			Actions:     actions,
			MenuOpen:    openMenu != "" && v.ID == openMenu,
		})
	}
	if snap.Loaded && len(view.Rows) == 0 {
		view.Empty = EmptyMessage(snap.Filter)
	}
	if snap.Stats != nil {
		view.Stats = BuildStats(*snap.Stats)
	}
	return view
}

// BuildPaginator renders the pagination bar; it is hidden when everything
// fits on one page.
func BuildPaginator(page, size, total int) Paginator {
	if !vouchers.PaginatorVisible(total, size) {
		return Paginator{}
	}
	totalPages := vouchers.TotalPages(total, size)
	p := Paginator{
		Visible:     true,
		Info:        vouchers.PageInfo(page, size, total),
		PrevEnabled: page > 1,
		NextEnabled: page < totalPages,
	}
	for _, n := range vouchers.PageNumbers(page, totalPages) {
		p.Pages = append(p.Pages, PageButton{Number: n, Current: n == page})
	}
	return p
}

// BuildStats renders server aggregates.
func BuildStats(s domain.Statistics) *StatsView {
	return &StatsView{
		TotalVouchers:    s.TotalVouchers,
		TotalBalance:     Total(s.TotalBalance),
		ActiveVouchers:   s.ActiveVouchers,
		DisabledVouchers: s.DisabledVouchers,
		SoldVouchers:     s.SoldVouchers,
	}
}

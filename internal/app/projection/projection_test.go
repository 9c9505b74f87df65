package projection

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/voucherdesk/voucherdesk/internal/app/vouchers"
	"github.com/voucherdesk/voucherdesk/internal/domain"
)

func decodeVouchers(t *testing.T, raw string) []domain.Voucher {
	t.Helper()
	var vs []domain.Voucher
	if err := json.Unmarshal([]byte(raw), &vs); err != nil {
		t.Fatalf("decode vouchers: %v", err)
	}
	return vs
}

// ─── Format Tests ───────────────────────────────────────────────────────────

func TestMoneyAndTotal(t *testing.T) {
	a, _ := domain.ParseAmount("1200.5")
	if got := Money(a); got != "Rs 1200.5" {
		t.Errorf("Money = %q, want raw value", got)
	}
	if got := Total(a); got != "Rs 1200.50" {
		t.Errorf("Total = %q, want two decimals", got)
	}
}

func TestEmptyMessage(t *testing.T) {
	want := map[domain.Status]string{
		domain.StatusActive:   "No active vouchers found",
		domain.StatusDisabled: "No disabled vouchers found",
		domain.StatusSold:     "No sold vouchers found",
	}
	for s, msg := range want {
		if got := EmptyMessage(s); got != msg {
			t.Errorf("EmptyMessage(%s) = %q, want %q", s, got, msg)
		}
	}
}

func TestBalanceLine(t *testing.T) {
	a, _ := domain.ParseAmount("20.00")
	tests := []struct {
		status domain.Status
		want   string
	}{
		{domain.StatusActive, "Rs 20.00"},
		{domain.StatusDisabled, "Rs 20.00 (DISABLED)"},
		{domain.StatusSold, "Rs 20.00 (SOLD)"},
	}
	for _, tt := range tests {
		if got := BalanceLine(a, tt.status); got != tt.want {
			t.Errorf("BalanceLine(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

// ─── Row Tests ──────────────────────────────────────────────────────────────

func TestActionsFor(t *testing.T) {
	tests := []struct {
		status  domain.Status
		buttons []Action
		menu    []Action
	}{
		{domain.StatusActive, []Action{ActionMarkSold}, []Action{ActionDetails, ActionDisable}},
		{domain.StatusDisabled, nil, []Action{ActionDetails, ActionEnable}},
		{domain.StatusSold, nil, []Action{ActionDetails}},
	}
	for _, tt := range tests {
		got := ActionsFor(tt.status)
		if !reflect.DeepEqual(got.Buttons, tt.buttons) || !reflect.DeepEqual(got.Menu, tt.menu) {
			t.Errorf("ActionsFor(%s) = %+v", tt.status, got)
		}
	}
	if Allows(domain.StatusSold, ActionEnable) {
		t.Error("sold vouchers offer no transitions")
	}
	if !Allows(domain.StatusActive, ActionMarkSold) {
		t.Error("active vouchers offer mark sold")
	}
}

func TestBuildList(t *testing.T) {
	items := decodeVouchers(t, `[
		{"id":1,"code":"AAA","current_balance":"40.00","total_loaded":"100.00","created_at":"2025-03-01T10:00:00Z","creator":{"id":1,"username":"admin"}},
		{"id":2,"code":"BBB","current_balance":"75.50","total_loaded":"0.00","created_at":"2025-03-02T10:00:00Z","creator":null}
	]`)
	snap := vouchers.Snapshot{
		Filter:   domain.StatusActive,
		Page:     1,
		PageSize: vouchers.PageSize,
		Total:    2,
		Items:    items,
		Loaded:   true,
		Stats:    &domain.Statistics{TotalVouchers: 2, TotalBalance: items[0].CurrentBalance},
	}

	view := BuildList(snap, time.DateOnly, "2")
	if len(view.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(view.Rows))
	}
	r := view.Rows[0]
	if r.Balance != "Rs 40.00" || r.TotalLoaded != "Rs 100.00" || r.Spent != "Rs 60" || r.Creator != "admin" {
		t.Errorf("row 0 = %+v", r)
	}
	if r.MenuOpen {
		t.Error("row 0 menu should be closed")
	}
	r = view.Rows[1]
	if r.TotalLoaded != "Rs 75.50" || r.Spent != "Rs 0" || r.Creator != UnknownCreator {
		t.Errorf("row 1 = %+v", r)
	}
	if !r.MenuOpen {
		t.Error("row 1 menu should be open")
	}
	if view.Empty != "" {
		t.Errorf("Empty = %q for a non-empty page", view.Empty)
	}
	if view.Paginator.Visible {
		t.Error("paginator should be hidden for two vouchers")
	}
	if view.Stats == nil || view.Stats.TotalBalance != "Rs 40.00" {
		t.Errorf("Stats = %+v", view.Stats)
	}
}

func TestBuildList_Empty(t *testing.T) {
	snap := vouchers.Snapshot{Filter: domain.StatusSold, Page: 1, PageSize: vouchers.PageSize}
	if view := BuildList(snap, "", ""); view.Empty != "" {
		t.Errorf("Empty = %q before the first load", view.Empty)
	}
	snap.Loaded = true
	if view := BuildList(snap, "", ""); view.Empty != "No sold vouchers found" {
		t.Errorf("Empty = %q", view.Empty)
	}
}

func TestBuildPaginator(t *testing.T) {
	for total := 0; total <= 5; total++ {
		if BuildPaginator(1, 5, total).Visible {
			t.Errorf("paginator visible for total=%d", total)
		}
	}

	p := BuildPaginator(2, 5, 12)
	if !p.Visible || p.Info != "Showing 6-10 of 12 vouchers" {
		t.Errorf("paginator = %+v", p)
	}
	if !p.PrevEnabled || !p.NextEnabled {
		t.Errorf("prev/next = %v/%v, want both enabled", p.PrevEnabled, p.NextEnabled)
	}
	want := []PageButton{{1, false}, {2, true}, {3, false}}
	if !reflect.DeepEqual(p.Pages, want) {
		t.Errorf("Pages = %+v, want %+v", p.Pages, want)
	}

	last := BuildPaginator(3, 5, 12)
	if last.NextEnabled {
		t.Error("next should be disabled on the last page")
	}
	first := BuildPaginator(1, 5, 12)
	if first.PrevEnabled {
		t.Error("prev should be disabled on the first page")
	}
}

// ─── Menu Tests ─────────────────────────────────────────────────────────────

func TestMenus_AtMostOneOpen(t *testing.T) {
	m := NewMenus()

	if !m.Toggle("1") || m.Open() != "1" {
		t.Fatal("Toggle(1) should open menu 1")
	}
	if !m.Toggle("2") || m.Open() != "2" {
		t.Fatal("Toggle(2) should close 1 and open 2")
	}
	if m.Toggle("2") || m.Open() != "" {
		t.Error("Toggle(2) again should close it")
	}

	m.Toggle("3")
	m.CloseAll()
	if m.Open() != "" {
		t.Error("CloseAll should close the dropdown")
	}
}

func TestMenus_Details(t *testing.T) {
	m := NewMenus()
	m.Toggle("9")

	v := decodeVouchers(t, `[{"id":9,"code":"ZZZ","current_balance":"5.00","total_loaded":"10.00"}]`)[0]
	m.ShowDetails(NewDetails(v, domain.StatusDisabled, ""))

	if m.Open() != "" {
		t.Error("opening details should close the dropdown")
	}
	d := m.Modal()
	if d == nil || d.Code != "ZZZ" || d.Balance != "Rs 5.00 (DISABLED)" || d.Spent != "Rs 5" {
		t.Errorf("modal = %+v", d)
	}

	m.CloseAll()
	if m.Modal() != nil {
		t.Error("CloseAll should close the modal")
	}
}

// ─── Control Tests ──────────────────────────────────────────────────────────

func TestControls_RestoredAfterFailure(t *testing.T) {
	c := NewControls()
	boom := errors.New("boom")

	err := c.Run(ControlCreate, func() error {
		s := c.State(ControlCreate)
		if !s.Busy || !s.Disabled || s.Label != "Creating..." {
			t.Errorf("state during run = %+v", s)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want boom", err)
	}
	s := c.State(ControlCreate)
	if s.Busy || s.Disabled || s.Label != "Create Vouchers" {
		t.Errorf("state after run = %+v", s)
	}
}

func TestControls_RestoredAfterPanic(t *testing.T) {
	c := NewControls()
	func() {
		defer func() { recover() }()
		c.Run(ControlRecharge, func() error { panic("unexpected") })
	}()
	if c.Busy(ControlRecharge) {
		t.Error("control should be restored after a panic")
	}
}

func TestControls_RejectsReentry(t *testing.T) {
	c := NewControls()
	name := RowControl(ActionMarkSold, "7")

	c.Run(name, func() error {
		if err := c.Run(name, func() error { return nil }); !errors.Is(err, ErrControlBusy) {
			t.Errorf("nested Run error = %v, want ErrControlBusy", err)
		}
		if s := c.State(name); s.Label != "Working..." {
			t.Errorf("row control busy label = %q", s.Label)
		}
		return nil
	})
	if s := c.State(name); s.Label != "Copy & Mark Sold" {
		t.Errorf("row control idle label = %q", s.Label)
	}
}

func TestControls_Snapshot(t *testing.T) {
	c := NewControls()
	snap := c.Snapshot()
	if len(snap) != len(controlLabels) {
		t.Errorf("Snapshot() = %d controls, want %d", len(snap), len(controlLabels))
	}
	for _, ctl := range snap {
		if ctl.Busy {
			t.Errorf("%s busy while idle", ctl.Name)
		}
	}
}

// ─── Notifier Tests ─────────────────────────────────────────────────────────

func TestNotifier_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotifier(5 * time.Second)
	n.SetClock(func() time.Time { return now })

	n.Success("Voucher recharged with Rs 200!")
	now = now.Add(2 * time.Second)
	n.Error("Failed to load vouchers: Invalid token.")

	if got := len(n.Active()); got != 2 {
		t.Fatalf("Active() = %d, want 2", got)
	}

	now = now.Add(3 * time.Second)
	active := n.Active()
	if len(active) != 1 || active[0].Kind != KindError {
		t.Errorf("after 5s Active() = %+v, want only the error", active)
	}

	now = now.Add(10 * time.Second)
	if got := len(n.Active()); got != 0 {
		t.Errorf("Active() = %d, want 0", got)
	}
}

func TestNotifier_Dismiss(t *testing.T) {
	n := NewNotifier(0)
	a := n.Info("Voucher details")
	n.Success("ok")

	if !n.Dismiss(a.ID) {
		t.Fatal("Dismiss should find the notification")
	}
	if n.Dismiss(a.ID) {
		t.Error("second Dismiss should report false")
	}
	active := n.Active()
	if len(active) != 1 || active[0].Message != "ok" {
		t.Errorf("Active() = %+v", active)
	}

	n.Clear()
	if len(n.Active()) != 0 {
		t.Error("Clear should remove everything")
	}
}

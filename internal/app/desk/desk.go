// Package desk is the application context of voucherdesk. A Desk owns the
// session, the transport, the list state, the voucher actions and the
// projection state, and is passed explicitly to the CLI and the dashboard
// server.
package desk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/app/executor"
	"github.com/voucherdesk/voucherdesk/internal/app/projection"
	"github.com/voucherdesk/voucherdesk/internal/app/session"
	"github.com/voucherdesk/voucherdesk/internal/app/vouchers"
	"github.com/voucherdesk/voucherdesk/internal/daemon"
	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/observability"
	"github.com/voucherdesk/voucherdesk/internal/infra/transport"
)

// Deps are the collaborators a Desk does not build itself.
type Deps struct {
	Store      domain.KVStore   // durable session storage; nil keeps it in memory
	Clipboard  domain.Clipboard // target of mark-sold copies
	HTTPClient *http.Client     // optional
}

// Desk is the explicit application context.
type Desk struct {
	cfg      daemon.Config
	session  *session.Session
	accounts *session.Service
	client   *transport.Client
	list     *vouchers.ListState
	actions  *vouchers.Actions
	tracer   *observability.Tracer
	menus    *projection.Menus
	controls *projection.Controls
	notifier *projection.Notifier

	mu      sync.Mutex
	balance string
}

// New wires a Desk from configuration.
func New(cfg daemon.Config, deps Deps) (*Desk, error) {
	mode, err := vouchers.ParseMode(cfg.API.Pagination)
	if err != nil {
		return nil, err
	}

	d := &Desk{
		cfg:      cfg,
		session:  session.New(deps.Store),
		tracer:   observability.NewTracer(observability.DefaultTracerConfig()),
		menus:    projection.NewMenus(),
		controls: projection.NewControls(),
		notifier: projection.NewNotifier(cfg.NotificationTTL()),
	}
	d.client = transport.New(transport.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.RequestTimeout(),
		HTTPClient: deps.HTTPClient,
	}, d.session)
	d.accounts = session.NewService(d.client, d.session)
	d.list = vouchers.NewListState(d.client, mode)
	d.actions = vouchers.NewActions(d.client, vouchers.ActionsConfig{
		Mode:      mode,
		Clipboard: deps.Clipboard,
		Refresh:   d.refresh,
		Runner:    executor.New(),
		Tracer:    d.tracer,
	})
	return d, nil
}

// ─── Accessors ──────────────────────────────────────────────────────────────

// Config returns the configuration the desk was built with.
func (d *Desk) Config() daemon.Config { return d.cfg }

// Authenticated reports whether a credential is held.
func (d *Desk) Authenticated() bool { return d.session.Authenticated() }

// Profile returns the logged-in identity.
func (d *Desk) Profile() domain.Profile { return d.session.Profile() }

// List exposes the list state.
func (d *Desk) List() *vouchers.ListState { return d.list }

// Notifier exposes the notifications.
func (d *Desk) Notifier() *projection.Notifier { return d.notifier }

// Tracer exposes recent action spans.
func (d *Desk) Tracer() *observability.Tracer { return d.tracer }

// BatchStats reports the bulk-create runner.
func (d *Desk) BatchStats() executor.Stats { return d.actions.Runner().Stats() }

// ─── Session ────────────────────────────────────────────────────────────────

// Resume restores a persisted session without touching the backend.
func (d *Desk) Resume() error { return d.session.Restore() }

// Start restores a persisted session and, when one is held, loads the list.
func (d *Desk) Start(ctx context.Context) error {
	if err := d.Resume(); err != nil {
		return err
	}
	if !d.Authenticated() {
		return nil
	}
	return d.Reload(ctx)
}

// Login exchanges credentials for a token and loads the dashboard.
func (d *Desk) Login(ctx context.Context, username, password string) error {
	return d.controls.Run(projection.ControlLogin, func() error {
		if _, err := d.accounts.Login(ctx, username, password); err != nil {
			d.notifier.Error("Login failed: " + domain.Message(err))
			return err
		}
		d.notifier.Success("Login successful!")
		d.list.Clear()
		d.menus.CloseAll()
		return d.Reload(ctx)
	})
}

// Logout forgets the credential and returns to the login view.
func (d *Desk) Logout() error {
	d.list.Clear()
	d.menus.CloseAll()
	d.setBalance("")
	return d.accounts.Logout()
}

// Register creates a staff account without logging in.
func (d *Desk) Register(ctx context.Context, username, email, password string) (domain.RegisterResponse, error) {
	resp, err := d.accounts.Register(ctx, username, email, password)
	if err != nil {
		d.notifier.Error("Registration failed: " + domain.Message(err))
		return resp, err
	}
	d.notifier.Success(orDefault(resp.Message, "Registration successful!"))
	return resp, nil
}

// ─── List Navigation ────────────────────────────────────────────────────────

// Reload re-fetches the current tab and page.
func (d *Desk) Reload(ctx context.Context) error {
	if err := d.requireAuth(); err != nil {
		return err
	}
	return d.loaded(d.list.Reload(ctx))
}

// SwitchTab selects a status filter.
func (d *Desk) SwitchTab(ctx context.Context, status domain.Status) error {
	if err := d.requireAuth(); err != nil {
		return err
	}
	d.menus.CloseAll()
	_, err := d.list.SwitchTab(ctx, status)
	return d.loaded(err)
}

// GoToPage jumps to page n.
func (d *Desk) GoToPage(ctx context.Context, n int) error {
	if err := d.requireAuth(); err != nil {
		return err
	}
	d.menus.CloseAll()
	return d.loaded(d.list.GoToPage(ctx, n))
}

// NextPage advances one page; on the last page it does nothing.
func (d *Desk) NextPage(ctx context.Context) error {
	if err := d.requireAuth(); err != nil {
		return err
	}
	d.menus.CloseAll()
	_, err := d.list.NextPage(ctx)
	return d.loaded(err)
}

// PreviousPage goes back one page; on the first page it does nothing.
func (d *Desk) PreviousPage(ctx context.Context) error {
	if err := d.requireAuth(); err != nil {
		return err
	}
	d.menus.CloseAll()
	_, err := d.list.PreviousPage(ctx)
	return d.loaded(err)
}

// Restore positions the list without fetching.
func (d *Desk) Restore(p vouchers.Position) { d.list.Restore(p) }

// Position returns the current tab and page.
func (d *Desk) Position() vouchers.Position { return d.list.Position() }

// loaded reports a list load failure. Superseded responses are silent. A
// rejected credential ends the session.
func (d *Desk) loaded(err error) error {
	if err == nil || errors.Is(err, domain.ErrStaleResponse) {
		return nil
	}
	d.notifier.Error("Failed to load vouchers: " + domain.Message(err))
	if domain.IsAuthFailure(err) {
		log.WithError(err).Warn("backend rejected the session; logging out")
		if lerr := d.Logout(); lerr != nil {
			log.WithError(lerr).Error("failed to clear rejected session")
		}
	}
	return err
}

// refresh is the post-mutation reload handed to the actions.
func (d *Desk) refresh(ctx context.Context) {
	if !d.Authenticated() {
		return
	}
	d.Reload(ctx)
}

func (d *Desk) requireAuth() error {
	if !d.Authenticated() {
		return domain.ErrNotAuthenticated
	}
	return nil
}

// ─── Voucher Actions ────────────────────────────────────────────────────────

// CreateBulk creates count vouchers worth amount each.
func (d *Desk) CreateBulk(ctx context.Context, amount string, count int) (executor.Result, error) {
	if err := d.requireAuth(); err != nil {
		return executor.Result{}, err
	}
	var res executor.Result
	err := d.controls.Run(projection.ControlCreate, func() error {
		value, err := domain.ParseAmount(amount)
		if err == nil {
			res, err = d.actions.CreateBulk(ctx, value, count)
		}
		if err != nil {
			d.notifier.Error("Failed to create vouchers: " + domain.Message(err))
			return err
		}
		if res.Succeeded > 0 {
			d.notifier.Success(fmt.Sprintf("Successfully created %d vouchers worth Rs %s each!", res.Succeeded, value.Decimal()))
		}
		if res.Failed > 0 {
			d.notifier.Error(fmt.Sprintf("Failed to create %d vouchers. Check console for details.", res.Failed))
		}
		return res.Err()
	})
	return res, err
}

// Recharge adds amount to the voucher with code.
func (d *Desk) Recharge(ctx context.Context, code string, amount int) (domain.RechargeResponse, error) {
	if err := d.requireAuth(); err != nil {
		return domain.RechargeResponse{}, err
	}
	var resp domain.RechargeResponse
	err := d.controls.Run(projection.ControlRecharge, func() error {
		var err error
		resp, err = d.actions.Recharge(ctx, code, amount)
		if err != nil {
			d.notifier.Error("Failed to recharge voucher: " + domain.Message(err))
			return err
		}
		d.notifier.Success(fmt.Sprintf("Voucher recharged with Rs %d!", amount))
		return nil
	})
	return resp, err
}

// Disable moves an active voucher to disabled.
func (d *Desk) Disable(ctx context.Context, id domain.VoucherID) error {
	return d.transition(ctx, projection.ActionDisable, id, d.actions.Disable,
		"Voucher disabled successfully!", "Failed to disable voucher: ")
}

// Enable moves a disabled voucher back to active.
func (d *Desk) Enable(ctx context.Context, id domain.VoucherID) error {
	return d.transition(ctx, projection.ActionEnable, id, d.actions.Enable,
		"Voucher enabled successfully!", "Failed to enable voucher: ")
}

func (d *Desk) transition(ctx context.Context, action projection.Action, id domain.VoucherID,
	call func(context.Context, domain.VoucherID) (string, error), okMsg, failPrefix string) error {
	if err := d.requireAuth(); err != nil {
		return err
	}
	d.menus.CloseAll()
	return d.controls.Run(projection.RowControl(action, string(id)), func() error {
		msg, err := call(ctx, id)
		if err != nil {
			d.notifier.Error(failPrefix + domain.Message(err))
			return err
		}
		d.notifier.Success(orDefault(msg, okMsg))
		return nil
	})
}

// MarkSold copies code to the clipboard, then marks the voucher sold.
func (d *Desk) MarkSold(ctx context.Context, id domain.VoucherID, code string) error {
	if err := d.requireAuth(); err != nil {
		return err
	}
	d.menus.CloseAll()
	return d.controls.Run(projection.RowControl(projection.ActionMarkSold, string(id)), func() error {
		if _, err := d.actions.MarkSold(ctx, id, code); err != nil {
			d.notifier.Error("Failed to copy and mark voucher as sold: " + domain.Message(err))
			return err
		}
		d.notifier.Success(fmt.Sprintf("Voucher code %s copied to clipboard and marked as sold!", code))
		return nil
	})
}

// CheckBalance looks a code up across the three lists.
func (d *Desk) CheckBalance(ctx context.Context, code string) (vouchers.Balance, error) {
	if err := d.requireAuth(); err != nil {
		return vouchers.Balance{}, err
	}
	var bal vouchers.Balance
	err := d.controls.Run(projection.ControlCheckBalance, func() error {
		var err error
		bal, err = d.actions.CheckBalance(ctx, code)
		switch {
		case errors.Is(err, domain.ErrVoucherNotFound):
			d.setBalance("Voucher not found")
			d.notifier.Error(fmt.Sprintf("Voucher %s not found", bal.Code))
		case err != nil:
			d.setBalance("Error checking balance")
			d.notifier.Error("Failed to check voucher balance: " + domain.Message(err))
		default:
			d.setBalance(projection.BalanceLine(bal.Balance, bal.Status))
			d.notifier.Push(balanceNotice(bal))
		}
		return err
	})
	return bal, err
}

func balanceNotice(b vouchers.Balance) (projection.Kind, string) {
	switch b.Status {
	case domain.StatusDisabled:
		return projection.KindError, fmt.Sprintf("Voucher %s is disabled. Balance: %s", b.Code, projection.Money(b.Balance))
	case domain.StatusSold:
		return projection.KindError, fmt.Sprintf("Voucher %s has been sold. Balance: %s", b.Code, projection.Money(b.Balance))
	}
	return projection.KindSuccess, fmt.Sprintf("Voucher %s balance: %s", b.Code, projection.Money(b.Balance))
}

// Pay spends amount from a voucher through the public payment endpoint.
func (d *Desk) Pay(ctx context.Context, code, amount string) (domain.PaymentResponse, error) {
	var resp domain.PaymentResponse
	err := d.controls.Run(projection.ControlPay, func() error {
		value, err := domain.ParseAmount(amount)
		if err == nil {
			resp, err = d.actions.Pay(ctx, code, value)
		}
		if err != nil {
			d.notifier.Error("Payment failed: " + domain.Message(err))
			return err
		}
		d.notifier.Success(orDefault(resp.Message, "Payment successful!"))
		return nil
	})
	return resp, err
}

// ─── Menus & Notifications ──────────────────────────────────────────────────

// ToggleMenu opens the dropdown of id, closing any other.
func (d *Desk) ToggleMenu(id domain.VoucherID) bool { return d.menus.Toggle(id) }

// CloseMenus closes every dropdown and modal.
func (d *Desk) CloseMenus() { d.menus.CloseAll() }

// ShowDetails opens the details modal of a voucher on the current page.
func (d *Desk) ShowDetails(id domain.VoucherID) (projection.Details, error) {
	v, ok := d.list.Item(id)
	if !ok {
		return projection.Details{}, fmt.Errorf("%w: %s", domain.ErrVoucherNotVisible, id)
	}
	details := projection.NewDetails(v, d.list.Position().Filter, d.cfg.UI.DateLayout)
	d.menus.ShowDetails(details)
	return details, nil
}

// Dismiss removes a notification.
func (d *Desk) Dismiss(id string) bool { return d.notifier.Dismiss(id) }

func (d *Desk) setBalance(s string) {
	d.mu.Lock()
	d.balance = s
	d.mu.Unlock()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

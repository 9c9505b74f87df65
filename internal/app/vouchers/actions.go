package vouchers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/app/executor"
	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/observability"
)

// RefreshFunc reloads the visible list (and with it the statistics) after a
// successful mutation. It owns reporting of its own failures.
type RefreshFunc func(ctx context.Context)

// ActionsConfig wires the collaborators of Actions.
type ActionsConfig struct {
	Mode      Mode
	Clipboard domain.Clipboard
	Refresh   RefreshFunc
	Runner    *executor.Runner      // optional; a private runner is created
	Tracer    *observability.Tracer // optional
}

// Actions issues the voucher mutations. It keeps no status cache: illegal
// transitions are rejected by the backend and surfaced as failures.
type Actions struct {
	caller    domain.Caller
	mode      Mode
	clipboard domain.Clipboard
	refresh   RefreshFunc
	runner    *executor.Runner
	tracer    *observability.Tracer
}

// NewActions creates the action set.
func NewActions(caller domain.Caller, cfg ActionsConfig) *Actions {
	a := &Actions{
		caller:    caller,
		mode:      cfg.Mode,
		clipboard: cfg.Clipboard,
		refresh:   cfg.Refresh,
		runner:    cfg.Runner,
		tracer:    cfg.Tracer,
	}
	if a.runner == nil {
		a.runner = executor.New()
	}
	if a.tracer == nil {
		a.tracer = observability.NewTracer(observability.DefaultTracerConfig())
	}
	return a
}

// Runner exposes the batch runner so callers can report its state.
func (a *Actions) Runner() *executor.Runner { return a.runner }

// Tracer exposes the action spans.
func (a *Actions) Tracer() *observability.Tracer { return a.tracer }

func (a *Actions) afterSuccess(ctx context.Context) {
	if a.refresh != nil {
		a.refresh(ctx)
	}
}

// ─── Create ─────────────────────────────────────────────────────────────────

// CreateBulk issues count independent create calls for amount, one after
// another, and never stops early. The list is refreshed when at least one
// voucher was created.
func (a *Actions) CreateBulk(ctx context.Context, amount domain.Amount, count int) (executor.Result, error) {
	if !amount.IsPositive() {
		return executor.Result{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}
	if count < 1 {
		return executor.Result{}, fmt.Errorf("%w: %d", domain.ErrInvalidCount, count)
	}

	ctx = issued(ctx)
	span := a.tracer.StartSpan(ctx, "create_bulk", map[string]string{
		"amount": amount.String(),
		"count":  fmt.Sprint(count),
	})
	body := map[string]any{"initial_value": amount}
	stepCtx := observability.WithSpanID(observability.WithTraceID(ctx, span.TraceID), span.SpanID)
	res, err := a.runner.Run(stepCtx, "create", count, func(ctx context.Context, i int) error {
		step := a.tracer.StartSpan(ctx, "create", map[string]string{"index": fmt.Sprint(i)})
		_, err := a.caller.Call(ctx, http.MethodPost, "/vouchers/", body)
		a.tracer.EndSpan(step, err)
		return err
	})
	if err != nil {
		a.tracer.EndSpan(span, err)
		return res, err
	}
	span.SetAttr("succeeded", fmt.Sprint(res.Succeeded))
	span.SetAttr("failed", fmt.Sprint(res.Failed))
	a.tracer.EndSpan(span, res.Err())

	if res.Succeeded > 0 {
		a.afterSuccess(ctx)
	}
	return res, nil
}

// ─── Recharge ───────────────────────────────────────────────────────────────

// Recharge adds a whole-rupee amount to the voucher with code.
func (a *Actions) Recharge(ctx context.Context, code string, amount int) (domain.RechargeResponse, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return domain.RechargeResponse{}, domain.ErrInvalidCode
	}
	if amount <= 0 {
		return domain.RechargeResponse{}, fmt.Errorf("%w: %d", domain.ErrInvalidAmount, amount)
	}

	var resp domain.RechargeResponse
	ctx = issued(ctx)
	err := a.traced(ctx, "recharge", map[string]string{"code": code}, func(ctx context.Context) error {
		raw, err := a.caller.Call(ctx, http.MethodPost, "/vouchers/"+url.PathEscape(code)+"/recharge/", map[string]int{"amount": amount})
		if err != nil {
			return err
		}
		decodeLoose(raw, &resp)
		return nil
	})
	if err != nil {
		return resp, err
	}
	a.afterSuccess(ctx)
	return resp, nil
}

// ─── Transitions ────────────────────────────────────────────────────────────

// Disable moves an active voucher to disabled. The backend models this as
// DELETE; nothing is deleted.
func (a *Actions) Disable(ctx context.Context, id domain.VoucherID) (string, error) {
	return a.transition(ctx, "disable", id, http.MethodDelete, "/vouchers/%s/")
}

// Enable moves a disabled voucher back to active.
func (a *Actions) Enable(ctx context.Context, id domain.VoucherID) (string, error) {
	return a.transition(ctx, "enable", id, http.MethodPost, "/vouchers/%s/enable/")
}

// MarkSold copies code to the clipboard and then marks the voucher sold.
// A clipboard failure stops before any backend call. A failed backend call
// does not undo the copy.
func (a *Actions) MarkSold(ctx context.Context, id domain.VoucherID, code string) (string, error) {
	if id == "" {
		return "", domain.ErrInvalidID
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", domain.ErrInvalidCode
	}

	var msg string
	ctx = issued(ctx)
	err := a.traced(ctx, "mark_sold", map[string]string{"id": string(id), "code": code}, func(ctx context.Context) error {
		if a.clipboard == nil {
			return fmt.Errorf("%w: no clipboard available", domain.ErrClipboard)
		}
		if err := a.clipboard.WriteText(code); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrClipboard, err)
		}
		raw, err := a.caller.Call(ctx, http.MethodPost, "/vouchers/"+url.PathEscape(string(id))+"/mark-sold/", nil)
		if err != nil {
			return err
		}
		msg = messageOf(raw)
		return nil
	})
	if err != nil {
		return "", err
	}
	a.afterSuccess(ctx)
	return msg, nil
}

func (a *Actions) transition(ctx context.Context, op string, id domain.VoucherID, method, pattern string) (string, error) {
	if id == "" {
		return "", domain.ErrInvalidID
	}
	var msg string
	ctx = issued(ctx)
	err := a.traced(ctx, op, map[string]string{"id": string(id)}, func(ctx context.Context) error {
		raw, err := a.caller.Call(ctx, method, fmt.Sprintf(pattern, url.PathEscape(string(id))), nil)
		if err != nil {
			return err
		}
		msg = messageOf(raw)
		return nil
	})
	if err != nil {
		return "", err
	}
	a.afterSuccess(ctx)
	return msg, nil
}

// ─── Balance ────────────────────────────────────────────────────────────────

// Balance is the outcome of a balance lookup.
type Balance struct {
	Code    string
	Status  domain.Status
	Balance domain.Amount
}

// CheckBalance looks code up in the active list, then disabled, then sold,
// stopping at the first hit. A code in none of them is
// domain.ErrVoucherNotFound.
func (a *Actions) CheckBalance(ctx context.Context, code string) (Balance, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return Balance{}, domain.ErrInvalidCode
	}

	var result Balance
	err := a.traced(ctx, "check_balance", map[string]string{"code": code}, func(ctx context.Context) error {
		for _, status := range domain.Statuses {
			items, err := a.fetchAll(ctx, status)
			if err != nil {
				return err
			}
			for _, v := range items {
				if v.MatchesCode(code) {
					result = Balance{Code: code, Status: status, Balance: v.CurrentBalance}
					return nil
				}
			}
		}
		return fmt.Errorf("%w: %s", domain.ErrVoucherNotFound, code)
	})
	if err != nil {
		return Balance{Code: code}, err
	}
	return result, nil
}

// pageSizeForScan is the page size used when walking a server-paginated list.
const pageSizeForScan = 100

// fetchAll returns every voucher in status under the active pagination mode.
func (a *Actions) fetchAll(ctx context.Context, status domain.Status) ([]domain.Voucher, error) {
	if a.mode == ModeClient {
		raw, err := a.caller.Call(ctx, http.MethodGet, status.Endpoint(), nil)
		if err != nil {
			return nil, err
		}
		payload, err := decodeForMode(raw, ModeClient)
		if err != nil {
			return nil, err
		}
		return payload.Items, nil
	}

	var all []domain.Voucher
	for page := 1; ; page++ {
		ep := fmt.Sprintf("%s?page=%d&page_size=%d", status.Endpoint(), page, pageSizeForScan)
		raw, err := a.caller.Call(ctx, http.MethodGet, ep, nil)
		if err != nil {
			return nil, err
		}
		payload, err := decodeForMode(raw, ModeServer)
		if err != nil {
			return nil, err
		}
		all = append(all, payload.Items...)
		if len(payload.Items) == 0 || len(all) >= payload.Total() {
			return all, nil
		}
	}
}

// ─── Payment ────────────────────────────────────────────────────────────────

// Pay spends amount from the voucher with code through the public payment
// endpoint.
func (a *Actions) Pay(ctx context.Context, code string, amount domain.Amount) (domain.PaymentResponse, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return domain.PaymentResponse{}, domain.ErrInvalidCode
	}
	if !amount.IsPositive() {
		return domain.PaymentResponse{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}

	var resp domain.PaymentResponse
	ctx = issued(ctx)
	err := a.traced(ctx, "pay", map[string]string{"code": code}, func(ctx context.Context) error {
		raw, err := a.caller.Call(ctx, http.MethodPost, "/pay/", map[string]any{
			"voucher_code": code,
			"amount":       amount,
		})
		if err != nil {
			return err
		}
		decodeLoose(raw, &resp)
		return nil
	})
	if err != nil {
		return resp, err
	}
	a.afterSuccess(ctx)
	return resp, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (a *Actions) traced(ctx context.Context, op string, attrs map[string]string, fn func(context.Context) error) error {
	span := a.tracer.StartSpan(ctx, op, attrs)
	err := fn(ctx)
	a.tracer.EndSpan(span, err)
	if err != nil {
		log.WithError(err).WithField("op", op).Debug("voucher action failed")
	}
	return err
}

// issued detaches a mutating action from its caller's cancellation. Once
// issued, an action runs to completion; the transport timeout still bounds it.
func issued(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// decodeLoose fills v from a write acknowledgement. Writes may answer with
// any shape, so decoding problems only lose the optional fields.
func decodeLoose(raw json.RawMessage, v any) {
	if err := json.Unmarshal(raw, v); err != nil {
		log.WithError(err).Debug("ignoring unexpected acknowledgement body")
	}
}

func messageOf(raw json.RawMessage) string {
	var m domain.MessageResponse
	decodeLoose(raw, &m)
	return m.Message
}

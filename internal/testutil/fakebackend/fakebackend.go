// Package fakebackend emulates the voucher REST backend in memory for tests.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ListMode selects how GET /vouchers/ is encoded.
type ListMode int

const (
	ListRaw       ListMode = iota // bare JSON array
	ListEnvelope                  // {count, results} with every item
	ListPaginated                 // {count, results} honouring page/page_size
)

// Call records one request received by the backend.
type Call struct {
	Method string
	Path   string
	Query  string
}

// Voucher is the stored record.
type Voucher struct {
	ID          int
	Code        string
	Balance     decimal.Decimal
	TotalLoaded decimal.Decimal
	Creator     string
	CreatedAt   time.Time
	Disabled    bool
	Sold        bool
}

// Backend is an in-memory voucher server.
type Backend struct {
	mu        sync.Mutex
	Server    *httptest.Server
	ListMode  ListMode
	users     map[string]string // username -> password
	tokens    map[string]string // token -> username
	vouchers  []*Voucher
	nextID    int
	calls     []Call
	failOn    map[int]bool    // 1-based create attempt numbers that fail
	forbidden map[string]bool // "METHOD /path/" answered with 403
	createSeq int
}

// New starts a backend with one staff user admin/secret.
func New(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		users:     map[string]string{"admin": "secret"},
		tokens:    map[string]string{},
		failOn:    map[int]bool{},
		forbidden: map[string]bool{},
		nextID:    1,
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base, e.g. http://127.0.0.1:1234/api.
func (b *Backend) URL() string { return b.Server.URL + "/api" }

// IssueToken registers a valid token for admin without a login round trip.
func (b *Backend) IssueToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = "admin"
}

// RevokeTokens invalidates every issued token.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]string{}
}

// FailCreates makes the given 1-based create attempts fail with HTTP 500.
func (b *Backend) FailCreates(attempts ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range attempts {
		b.failOn[n] = true
	}
}

// Forbid makes method on path (relative to /api) answer HTTP 403.
func (b *Backend) Forbid(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forbidden[method+" "+path] = true
}

// Seed inserts n vouchers with the given balance; codes are V0001.. in
// creation order. The list endpoints return newest first.
func (b *Backend) Seed(n int, balance string) []*Voucher {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Voucher, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.insert(decimal.RequireFromString(balance), "admin"))
	}
	return out
}

// Get returns a copy of the voucher with code.
func (b *Backend) Get(code string) (Voucher, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range b.vouchers {
		if v.Code == code {
			return *v, true
		}
	}
	return Voucher{}, false
}

// Calls returns every recorded request in arrival order.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo filters recorded calls by method and path.
func (b *Backend) CallsTo(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *Backend) insert(amount decimal.Decimal, creator string) *Voucher {
	v := &Voucher{
		ID:          b.nextID,
		Code:        fmt.Sprintf("V%04d", b.nextID),
		Balance:     amount,
		TotalLoaded: amount,
		Creator:     creator,
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(b.nextID) * time.Minute),
	}
	b.nextID++
	b.vouchers = append(b.vouchers, v)
	return v
}

// ─── Routes ─────────────────────────────────────────────────────────────────

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)
	r.Route("/api", func(r chi.Router) {
		r.Post("/get-token/", b.handleToken)
		r.Post("/register/", b.handleRegister)
		r.Post("/pay/", b.handlePay)

		r.Group(func(r chi.Router) {
			r.Use(b.requireToken)
			r.Get("/statistics/", b.handleStatistics)
			r.Get("/vouchers/", b.handleListActive)
			r.Post("/vouchers/", b.handleCreate)
			r.Get("/vouchers/disabled/", b.handleListWhere(func(v *Voucher) bool { return v.Disabled }))
			r.Get("/vouchers/sold/", b.handleListWhere(func(v *Voucher) bool { return v.Sold }))
			r.Delete("/vouchers/{id}/", b.handleDisable)
			r.Post("/vouchers/{id}/enable/", b.handleEnable)
			r.Post("/vouchers/{id}/mark-sold/", b.handleMarkSold)
			r.Post("/vouchers/{code}/recharge/", b.handleRecharge)
		})
	})
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		b.mu.Lock()
		b.calls = append(b.calls, Call{Method: r.Method, Path: path, Query: r.URL.RawQuery})
		forbidden := b.forbidden[r.Method+" "+path]
		b.mu.Unlock()
		if forbidden {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		b.mu.Lock()
		_, ok := b.tokens[strings.TrimPrefix(header, "Token ")]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct{ Username, Password string }
	json.NewDecoder(r.Body).Decode(&body)
	if body.Username == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username and password are required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if pw, ok := b.users[body.Username]; !ok || pw != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials or insufficient permissions"})
		return
	}
	token := "tok-" + body.Username
	b.tokens[token] = body.Username
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        token,
		"user_id":      1,
		"username":     body.Username,
		"is_superuser": body.Username == "admin",
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct{ Username, Email, Password string }
	json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[body.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username already exists"})
		return
	}
	b.users[body.Username] = body.Password
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "User created successfully",
		"user_id":  len(b.users),
		"username": body.Username,
	})
}

func (b *Backend) handleStatistics(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total, active, disabled, sold int
	balance := decimal.Zero
	for _, v := range b.vouchers {
		total++
		if v.Disabled {
			disabled++
		} else {
			active++
			balance = balance.Add(v.Balance)
		}
		if v.Sold {
			sold++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_vouchers":    total,
		"active_vouchers":   active,
		"disabled_vouchers": disabled,
		"sold_vouchers":     sold,
		"total_balance":     balance.InexactFloat64(),
	})
}

func (b *Backend) handleListActive(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	items := b.filter(func(v *Voucher) bool { return !v.Disabled && !v.Sold })
	mode := b.ListMode
	b.mu.Unlock()

	switch mode {
	case ListEnvelope:
		writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "results": items})
	case ListPaginated:
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		if page < 1 {
			page = 1
		}
		if size < 1 {
			size = 10
		}
		start := min((page-1)*size, len(items))
		end := min(start+size, len(items))
		writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "results": items[start:end]})
	default:
		writeJSON(w, http.StatusOK, items)
	}
}

func (b *Backend) handleListWhere(keep func(*Voucher) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		items := b.filter(keep)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, items)
	}
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InitialValue json.Number `json:"initial_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"initial_value": []string{"A valid number is required."}})
		return
	}
	amount, err := decimal.NewFromString(body.InitialValue.String())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"initial_value": []string{"A valid number is required."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.createSeq++
	if b.failOn[b.createSeq] {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "database is locked"})
		return
	}
	v := b.insert(amount, "admin")
	writeJSON(w, http.StatusCreated, v.wire())
}

func (b *Backend) handleDisable(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.byID(chi.URLParam(r, "id"))
	if v == nil || v.Disabled {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	v.Disabled = true
	writeJSON(w, http.StatusOK, map[string]string{
		"message":      fmt.Sprintf("Voucher %s has been disabled successfully", v.Code),
		"voucher_code": v.Code,
	})
}

func (b *Backend) handleEnable(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.byID(chi.URLParam(r, "id"))
	if v == nil || !v.Disabled {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Voucher not found or already enabled"})
		return
	}
	v.Disabled = false
	writeJSON(w, http.StatusOK, map[string]string{
		"message":      fmt.Sprintf("Voucher %s has been enabled successfully", v.Code),
		"voucher_code": v.Code,
	})
}

func (b *Backend) handleMarkSold(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.byID(chi.URLParam(r, "id"))
	if v == nil || v.Disabled || v.Sold {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Voucher not found, already sold, or disabled"})
		return
	}
	v.Sold = true
	writeJSON(w, http.StatusOK, map[string]string{
		"message":      fmt.Sprintf("Voucher %s has been marked as sold", v.Code),
		"voucher_code": v.Code,
	})
}

func (b *Backend) handleRecharge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount int `json:"amount"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	code := chi.URLParam(r, "code")
	var v *Voucher
	for _, c := range b.vouchers {
		if c.Code == code {
			v = c
		}
	}
	if v == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Voucher not found"})
		return
	}
	switch body.Amount {
	case 100, 200, 500:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"amount": []string{fmt.Sprintf("\"%d\" is not a valid choice.", body.Amount)}})
		return
	}
	amt := decimal.NewFromInt(int64(body.Amount))
	v.Balance = v.Balance.Add(amt)
	v.TotalLoaded = v.TotalLoaded.Add(amt)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     fmt.Sprintf("Voucher %s recharged with Rs %d", code, body.Amount),
		"new_balance": v.Balance.StringFixed(2),
	})
}

func (b *Backend) handlePay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VoucherCode string      `json:"voucher_code"`
		Amount      json.Number `json:"amount"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	amount, err := decimal.NewFromString(body.Amount.String())
	if err != nil || !amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"amount": []string{"Ensure this value is greater than or equal to 0.01."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range b.vouchers {
		if v.Code != body.VoucherCode {
			continue
		}
		if v.Disabled || v.Sold {
			writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Voucher is disabled or sold and cannot be used for payments."}})
			return
		}
		if v.Balance.LessThan(amount) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Insufficient balance."}})
			return
		}
		v.Balance = v.Balance.Sub(amount)
		writeJSON(w, http.StatusOK, map[string]any{
			"message":           fmt.Sprintf("Payment of Rs %s successful", amount),
			"voucher_code":      v.Code,
			"remaining_balance": v.Balance.StringFixed(2),
			"transaction_id":    99,
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"voucher_code": []string{"Invalid voucher code"}})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

type wireCreator struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type wireVoucher struct {
	ID             int         `json:"id"`
	Code           string      `json:"code"`
	CurrentBalance string      `json:"current_balance"`
	TotalLoaded    string      `json:"total_loaded"`
	Creator        wireCreator `json:"creator"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (v *Voucher) wire() wireVoucher {
	return wireVoucher{
		ID:             v.ID,
		Code:           v.Code,
		CurrentBalance: v.Balance.StringFixed(2),
		TotalLoaded:    v.TotalLoaded.StringFixed(2),
		Creator:        wireCreator{ID: 1, Username: v.Creator},
		CreatedAt:      v.CreatedAt,
	}
}

// filter returns matching vouchers newest first. Caller holds b.mu.
func (b *Backend) filter(keep func(*Voucher) bool) []wireVoucher {
	out := []wireVoucher{}
	for i := len(b.vouchers) - 1; i >= 0; i-- {
		if keep(b.vouchers[i]) {
			out = append(out, b.vouchers[i].wire())
		}
	}
	return out
}

func (b *Backend) byID(raw string) *Voucher {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	for _, v := range b.vouchers {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

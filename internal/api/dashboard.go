package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voucherdesk/voucherdesk/internal/domain"
)

// ─── Request Bodies ─────────────────────────────────────────────────────────

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createRequest struct {
	Amount json.Number `json:"amount"`
	Count  int         `json:"count"`
}

type rechargeRequest struct {
	Amount int `json:"amount"`
}

type markSoldRequest struct {
	Code string `json:"code"`
}

type payRequest struct {
	Code   string      `json:"voucher_code"`
	Amount json.Number `json:"amount"`
}

// decodeBody reads an optional JSON body into v. An empty body is fine.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

// respondView writes the current view, or the failure of the action that
// produced it.
func (s *Server) respondView(w http.ResponseWriter, err error) {
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.desk.View())
}

// ─── View ───────────────────────────────────────────────────────────────────

// GET /api/view
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.desk.View())
}

// GET /api/trace?limit=N
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"spans": s.desk.Tracer().Spans(limit),
		"total": s.desk.Tracer().SpanCount(),
	})
}

// DELETE /api/trace
func (s *Server) handleResetTrace(w http.ResponseWriter, r *http.Request) {
	s.desk.Tracer().Reset()
	writeJSON(w, http.StatusOK, map[string]any{"total": 0})
}

// GET /api/batch
func (s *Server) handleBatchStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.desk.BatchStats())
}

// ─── Session ────────────────────────────────────────────────────────────────

// POST /api/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondView(w, s.desk.Login(r.Context(), req.Username, req.Password))
}

// POST /api/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.desk.Logout())
}

// POST /api/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.desk.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ─── Navigation ─────────────────────────────────────────────────────────────

// POST /api/tabs/{status}
func (s *Server) handleSwitchTab(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.respondView(w, s.desk.SwitchTab(r.Context(), status))
}

// POST /api/pages/{n}
func (s *Server) handleGoToPage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeFailure(w, domain.ErrInvalidPage)
		return
	}
	s.respondView(w, s.desk.GoToPage(r.Context(), n))
}

// POST /api/pages/next
func (s *Server) handleNextPage(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.desk.NextPage(r.Context()))
}

// POST /api/pages/prev
func (s *Server) handlePreviousPage(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.desk.PreviousPage(r.Context()))
}

// POST /api/reload
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.desk.Reload(r.Context()))
}

// ─── Voucher Actions ────────────────────────────────────────────────────────

// POST /api/vouchers
//
// Partial batches answer 200 with the result; the notifications carry the
// per-outcome messages.
func (s *Server) handleCreateBulk(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.desk.CreateBulk(r.Context(), req.Amount.String(), req.Count)
	if err != nil && !errors.Is(err, domain.ErrPartialBatch) {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
		"view":      s.desk.View(),
	})
}

// POST /api/vouchers/{code}/recharge
func (s *Server) handleRecharge(w http.ResponseWriter, r *http.Request) {
	var req rechargeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, err := s.desk.Recharge(r.Context(), chi.URLParam(r, "code"), req.Amount)
	s.respondView(w, err)
}

// POST /api/vouchers/{id}/disable
func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.desk.Disable(r.Context(), voucherID(r)))
}

// POST /api/vouchers/{id}/enable
func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.desk.Enable(r.Context(), voucherID(r)))
}

// POST /api/vouchers/{id}/mark-sold
//
// The code defaults to the one shown on the current page.
func (s *Server) handleMarkSold(w http.ResponseWriter, r *http.Request) {
	var req markSoldRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := voucherID(r)
	code := strings.TrimSpace(req.Code)
	if code == "" {
		v, ok := s.desk.List().Item(id)
		if !ok {
			writeFailure(w, domain.ErrVoucherNotVisible)
			return
		}
		code = v.Code
	}
	s.respondView(w, s.desk.MarkSold(r.Context(), id, code))
}

// POST /api/vouchers/{id}/details
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	_, err := s.desk.ShowDetails(voucherID(r))
	s.respondView(w, err)
}

// GET /api/balance/{code}
func (s *Server) handleCheckBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.desk.CheckBalance(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":    bal.Code,
		"status":  bal.Status,
		"balance": bal.Balance,
	})
}

// POST /api/pay
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.desk.Pay(r.Context(), req.Code, req.Amount.String())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Menus & Notifications ──────────────────────────────────────────────────

// POST /api/menus/{id}/toggle
func (s *Server) handleToggleMenu(w http.ResponseWriter, r *http.Request) {
	s.desk.ToggleMenu(voucherID(r))
	writeJSON(w, http.StatusOK, s.desk.View())
}

// POST /api/menus/close
func (s *Server) handleCloseMenus(w http.ResponseWriter, r *http.Request) {
	s.desk.CloseMenus()
	writeJSON(w, http.StatusOK, s.desk.View())
}

// DELETE /api/notifications/{id}
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if !s.desk.Dismiss(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func voucherID(r *http.Request) domain.VoucherID {
	return domain.VoucherID(chi.URLParam(r, "id"))
}

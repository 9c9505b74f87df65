// Package vouchers owns the voucher list view state and the operations that
// mutate vouchers on the backend.
package vouchers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/observability"
)

// Mode selects the single pagination authority of a deployment.
type Mode int

const (
	// ModeClient fetches whole lists and slices pages locally.
	ModeClient Mode = iota
	// ModeServer asks the backend for one page at a time.
	ModeServer
)

// ParseMode maps the config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "client":
		return ModeClient, nil
	case "server":
		return ModeServer, nil
	}
	return ModeClient, fmt.Errorf("unknown pagination mode %q", s)
}

func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "client"
}

// Position is the part of the list state worth persisting between runs.
type Position struct {
	Filter domain.Status
	Page   int
}

// Snapshot is a consistent copy of the list state.
type Snapshot struct {
	Filter     domain.Status
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	Items      []domain.Voucher
	Stats      *domain.Statistics
	Loaded     bool
}

// ListState owns the status filter, page index and the current page window.
// Every request is stamped with a per-list sequence number; a response is
// applied only if its number is still the latest issued.
type ListState struct {
	caller   domain.Caller
	mode     Mode
	pageSize int

	mu       sync.Mutex
	filter   domain.Status
	page     int
	total    int
	items    []domain.Voucher
	stats    *domain.Statistics
	loaded   bool
	listSeq  uint64
	statsSeq uint64
}

// NewListState starts on the Active tab, page 1.
func NewListState(caller domain.Caller, mode Mode) *ListState {
	return &ListState{
		caller:   caller,
		mode:     mode,
		pageSize: PageSize,
		filter:   domain.StatusActive,
		page:     1,
	}
}

// Mode reports the pagination authority in force.
func (s *ListState) Mode() Mode { return s.mode }

// ─── Transitions ────────────────────────────────────────────────────────────

// SwitchTab selects a status filter and reloads from page 1. Selecting the
// current filter does nothing and reports false.
func (s *ListState) SwitchTab(ctx context.Context, filter domain.Status) (bool, error) {
	s.mu.Lock()
	if filter == s.filter {
		s.mu.Unlock()
		return false, nil
	}
	s.filter = filter
	s.page = 1
	s.items = nil
	s.total = 0
	s.loaded = false
	q := s.issueLocked()
	s.mu.Unlock()

	return true, s.fetch(ctx, q)
}

// GoToPage jumps to page n and reloads. n is not clamped to the page count.
func (s *ListState) GoToPage(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidPage, n)
	}
	s.mu.Lock()
	s.page = n
	q := s.issueLocked()
	s.mu.Unlock()

	return s.fetch(ctx, q)
}

// NextPage advances one page if there is one. It reports whether it moved.
func (s *ListState) NextPage(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.page >= TotalPages(s.total, s.pageSize) {
		s.mu.Unlock()
		return false, nil
	}
	s.page++
	q := s.issueLocked()
	s.mu.Unlock()

	return true, s.fetch(ctx, q)
}

// PreviousPage goes back one page unless on the first.
func (s *ListState) PreviousPage(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.page <= 1 {
		s.mu.Unlock()
		return false, nil
	}
	s.page--
	q := s.issueLocked()
	s.mu.Unlock()

	return true, s.fetch(ctx, q)
}

// Reload re-fetches the current filter and page, then refreshes statistics.
// It returns domain.ErrStaleResponse if a newer request superseded it.
func (s *ListState) Reload(ctx context.Context) error {
	s.mu.Lock()
	q := s.issueLocked()
	s.mu.Unlock()

	return s.fetch(ctx, q)
}

// Restore positions the state without fetching.
func (s *ListState) Restore(p Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Filter != "" {
		s.filter = p.Filter
	}
	s.page = max(1, p.Page)
}

// Position returns the filter and page.
func (s *ListState) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Position{Filter: s.filter, Page: s.page}
}

// Clear forgets everything loaded and returns to Active, page 1. In-flight
// responses are invalidated.
func (s *ListState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = domain.StatusActive
	s.page = 1
	s.total = 0
	s.items = nil
	s.stats = nil
	s.loaded = false
	s.listSeq++
	s.statsSeq++
}

// Snapshot returns a copy safe to read without the lock.
func (s *ListState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Filter:     s.filter,
		Page:       s.page,
		PageSize:   s.pageSize,
		Total:      s.total,
		TotalPages: TotalPages(s.total, s.pageSize),
		Items:      append([]domain.Voucher(nil), s.items...),
		Loaded:     s.loaded,
	}
	if s.stats != nil {
		st := *s.stats
		snap.Stats = &st
	}
	return snap
}

// Item finds a voucher on the current page by id.
func (s *ListState) Item(id domain.VoucherID) (domain.Voucher, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.items {
		if v.ID == id {
			return v, true
		}
	}
	return domain.Voucher{}, false
}

// ─── Fetching ───────────────────────────────────────────────────────────────

type listQuery struct {
	seq    uint64
	filter domain.Status
	page   int
}

func (s *ListState) issueLocked() listQuery {
	s.listSeq++
	return listQuery{seq: s.listSeq, filter: s.filter, page: s.page}
}

func (s *ListState) endpoint(q listQuery) string {
	ep := q.filter.Endpoint()
	if s.mode == ModeServer {
		ep += fmt.Sprintf("?page=%d&page_size=%d", q.page, s.pageSize)
	}
	return ep
}

func (s *ListState) fetch(ctx context.Context, q listQuery) error {
	raw, err := s.caller.Call(ctx, http.MethodGet, s.endpoint(q), nil)
	if err == nil {
		var payload domain.ListPayload
		payload, err = decodeForMode(raw, s.mode)
		if err == nil {
			if !s.apply(q, payload) {
				return s.dropped(q)
			}
			s.RefreshStatistics(ctx)
			return nil
		}
	}

	s.mu.Lock()
	stale := q.seq != s.listSeq
	s.mu.Unlock()
	if stale {
		return s.dropped(q)
	}
	return err
}

func (s *ListState) apply(q listQuery, payload domain.ListPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.seq != s.listSeq {
		return false
	}
	s.total = payload.Total()
	if s.mode == ModeServer {
		s.items = payload.Items
	} else {
		s.items = Slice(payload.Items, q.page, s.pageSize)
	}
	s.loaded = true
	observability.ListReloads.WithLabelValues(string(q.filter)).Inc()
	return true
}

func (s *ListState) dropped(q listQuery) error {
	observability.StaleResponsesDropped.WithLabelValues(string(q.filter)).Inc()
	log.WithFields(log.Fields{"tab": q.filter, "page": q.page, "seq": q.seq}).Debug("dropped stale list response")
	return domain.ErrStaleResponse
}

// decodeForMode enforces the pagination authority at the boundary.
func decodeForMode(raw json.RawMessage, mode Mode) (domain.ListPayload, error) {
	payload, err := domain.DecodeList(raw)
	if err != nil {
		return payload, err
	}
	switch mode {
	case ModeClient:
		if payload.ServerPaginated() {
			return payload, fmt.Errorf("%w: got %d of %d", domain.ErrDoublePagination, len(payload.Items), payload.Count)
		}
	case ModeServer:
		if payload.Shape != domain.ShapeEnvelope {
			return payload, fmt.Errorf("%w: server pagination requires a {results, count} envelope", domain.ErrProtocolShape)
		}
	}
	return payload, nil
}

// RefreshStatistics re-fetches the aggregates. Failures are logged and
// leave the previous figures in place.
func (s *ListState) RefreshStatistics(ctx context.Context) error {
	s.mu.Lock()
	s.statsSeq++
	seq := s.statsSeq
	s.mu.Unlock()

	raw, err := s.caller.Call(ctx, http.MethodGet, "/statistics/", nil)
	if err == nil {
		var stats domain.Statistics
		if err = json.Unmarshal(raw, &stats); err != nil {
			err = fmt.Errorf("%w: statistics: %v", domain.ErrProtocolShape, err)
		} else {
			s.mu.Lock()
			defer s.mu.Unlock()
			if seq != s.statsSeq {
				observability.StaleResponsesDropped.WithLabelValues("statistics").Inc()
				return domain.ErrStaleResponse
			}
			s.stats = &stats
			return nil
		}
	}
	if !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("failed to load statistics")
	}
	return err
}

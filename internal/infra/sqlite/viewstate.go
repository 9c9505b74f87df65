package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
)

// ViewState is the persisted position of the voucher list.
type ViewState struct {
	Tab  string
	Page int
}

// ─── View State Schema ──────────────────────────────────────────────────────

// ViewStateMigrations returns the single-row view state schema.
func ViewStateMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS view_state (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			tab        TEXT NOT NULL DEFAULT 'active',
			page       INTEGER NOT NULL DEFAULT 1 CHECK (page >= 1),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
}

// ─── View State Operations ──────────────────────────────────────────────────

// LoadViewState returns the saved view, or the initial one (active, page 1).
func (db *DB) LoadViewState() (ViewState, error) {
	vs := ViewState{Tab: "active", Page: 1}
	err := db.db.QueryRow(`SELECT tab, page FROM view_state WHERE id = 1`).Scan(&vs.Tab, &vs.Page)
	if errors.Is(err, sql.ErrNoRows) {
		return ViewState{Tab: "active", Page: 1}, nil
	}
	if err != nil {
		return vs, fmt.Errorf("load view state: %w", err)
	}
	return vs, nil
}

// SaveViewState upserts the view.
func (db *DB) SaveViewState(vs ViewState) error {
	if vs.Page < 1 {
		vs.Page = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO view_state (id, tab, page, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			tab        = excluded.tab,
			page       = excluded.page,
			updated_at = datetime('now')
	`, vs.Tab, vs.Page)
	if err != nil {
		return fmt.Errorf("save view state: %w", err)
	}
	return nil
}

// ResetViewState forgets the saved view (used on logout).
func (db *DB) ResetViewState() error {
	_, err := db.db.Exec(`DELETE FROM view_state`)
	return err
}

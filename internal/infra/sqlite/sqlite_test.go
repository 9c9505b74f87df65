package sqlite

import (
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Migration Tests ────────────────────────────────────────────────────────

func TestMigrations_TablesExist(t *testing.T) {
	db := newTestDB(t)

	for _, tbl := range []string{"kv", "view_state"} {
		t.Run(tbl, func(t *testing.T) {
			var name string
			err := db.db.QueryRow(
				`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tbl,
			).Scan(&name)
			if err != nil {
				t.Fatalf("table %s not found: %v", tbl, err)
			}
		})
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Set("auth_token", "abc"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	v, ok, err := db.Get("auth_token")
	if err != nil || !ok || v != "abc" {
		t.Errorf("Get after reopen = (%q, %v, %v), want (abc, true, nil)", v, ok, err)
	}
}

// ─── Key-Value ──────────────────────────────────────────────────────────────

func TestKV_SetGetOverwrite(t *testing.T) {
	db := newTestDB(t)

	if _, ok, err := db.Get("user"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want ok=false", ok, err)
	}

	db.Set("user", `{"username":"a"}`)
	db.Set("user", `{"username":"b"}`)

	v, ok, err := db.Get("user")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v", ok, err)
	}
	if v != `{"username":"b"}` {
		t.Errorf("value = %q, want overwritten value", v)
	}
}

func TestKV_Delete(t *testing.T) {
	db := newTestDB(t)
	db.Set("auth_token", "t")
	db.Set("user", "u")
	db.Set("other", "x")

	if err := db.Delete("auth_token", "user", "missing"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	for _, k := range []string{"auth_token", "user"} {
		if _, ok, _ := db.Get(k); ok {
			t.Errorf("%s should be deleted", k)
		}
	}
	if _, ok, _ := db.Get("other"); !ok {
		t.Error("unrelated key should survive")
	}
	if err := db.Delete(); err != nil {
		t.Errorf("Delete() with no keys: %v", err)
	}
}

// ─── View State ─────────────────────────────────────────────────────────────

func TestViewState_DefaultAndSave(t *testing.T) {
	db := newTestDB(t)

	vs, err := db.LoadViewState()
	if err != nil {
		t.Fatal(err)
	}
	if vs.Tab != "active" || vs.Page != 1 {
		t.Errorf("default = %+v, want active/1", vs)
	}

	if err := db.SaveViewState(ViewState{Tab: "sold", Page: 3}); err != nil {
		t.Fatal(err)
	}
	vs, _ = db.LoadViewState()
	if vs.Tab != "sold" || vs.Page != 3 {
		t.Errorf("saved = %+v, want sold/3", vs)
	}

	// page below 1 is coerced
	db.SaveViewState(ViewState{Tab: "disabled", Page: 0})
	vs, _ = db.LoadViewState()
	if vs.Page != 1 {
		t.Errorf("page = %d, want 1", vs.Page)
	}

	if err := db.ResetViewState(); err != nil {
		t.Fatal(err)
	}
	vs, _ = db.LoadViewState()
	if vs.Tab != "active" || vs.Page != 1 {
		t.Errorf("after reset = %+v, want active/1", vs)
	}
}

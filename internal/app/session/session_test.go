package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/sqlite"
	"github.com/voucherdesk/voucherdesk/internal/infra/transport"
	"github.com/voucherdesk/voucherdesk/internal/testutil/fakebackend"
)

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T, store domain.KVStore) (*Service, *Session, *fakebackend.Backend) {
	t.Helper()
	backend := fakebackend.New(t)
	s := New(store)
	client := transport.New(transport.Options{BaseURL: backend.URL()}, s)
	return NewService(client, s), s, backend
}

// ─── Session Tests ──────────────────────────────────────────────────────────

func TestSession_EstablishAndRestore(t *testing.T) {
	store := newTestStore(t)
	s := New(store)
	if s.Authenticated() {
		t.Fatal("new session should not be authenticated")
	}

	profile := domain.Profile{UserID: "1", Username: "admin", IsSuperuser: true}
	if err := s.Establish("tok-admin", profile); err != nil {
		t.Fatalf("Establish: %v", err)
	}

	restored := New(store)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Token() != "tok-admin" {
		t.Errorf("Token() = %q, want %q", restored.Token(), "tok-admin")
	}
	if restored.Profile() != profile {
		t.Errorf("Profile() = %+v, want %+v", restored.Profile(), profile)
	}
}

func TestSession_ClearRemovesPersistedKeys(t *testing.T) {
	store := newTestStore(t)
	s := New(store)
	s.Establish("tok", domain.Profile{Username: "admin"})

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Authenticated() {
		t.Error("session should not be authenticated after Clear")
	}
	for _, key := range []string{KeyAuthToken, KeyUser} {
		if _, ok, _ := store.Get(key); ok {
			t.Errorf("key %q still persisted after Clear", key)
		}
	}
}

func TestSession_RestoreIgnoresCorruptProfile(t *testing.T) {
	store := newTestStore(t)
	store.Set(KeyAuthToken, "tok")
	store.Set(KeyUser, "{not json")

	s := New(store)
	if err := s.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s.Token() != "tok" {
		t.Errorf("Token() = %q, want tok", s.Token())
	}
	if s.Profile().Username != "" {
		t.Errorf("Profile().Username = %q, want empty", s.Profile().Username)
	}
}

func TestSession_NilStore(t *testing.T) {
	s := New(nil)
	if err := s.Establish("tok", domain.Profile{}); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if err := s.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
}

// ─── Service Tests ──────────────────────────────────────────────────────────

func TestLogin_EstablishesSession(t *testing.T) {
	svc, s, _ := newTestService(t, newTestStore(t))

	profile, err := svc.Login(context.Background(), " admin ", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if profile.Username != "admin" || !profile.IsSuperuser {
		t.Errorf("profile = %+v", profile)
	}
	if s.Token() != "tok-admin" {
		t.Errorf("Token() = %q, want tok-admin", s.Token())
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
		wantMsg  string
	}{
		{"missing password", "admin", "", domain.ErrCredentialsRequired, ""},
		{"blank username", "   ", "secret", domain.ErrCredentialsRequired, ""},
		{"wrong password", "admin", "nope", nil, "Invalid credentials or insufficient permissions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s, backend := newTestService(t, nil)
			_, err := svc.Login(context.Background(), tt.username, tt.password)
			if err == nil {
				t.Fatal("Login should fail")
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				if n := len(backend.Calls()); n != 0 {
					t.Errorf("local validation failure made %d calls", n)
				}
			}
			if tt.wantMsg != "" && domain.Message(err) != tt.wantMsg {
				t.Errorf("message = %q, want %q", domain.Message(err), tt.wantMsg)
			}
			if s.Authenticated() {
				t.Error("failed login must not establish a session")
			}
		})
	}
}

func TestRegister(t *testing.T) {
	svc, s, backend := newTestService(t, nil)

	resp, err := svc.Register(context.Background(), "cashier", "c@example.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Username != "cashier" {
		t.Errorf("Username = %q, want cashier", resp.Username)
	}
	if s.Authenticated() {
		t.Error("Register must not log in")
	}
	if backend.CallsTo(http.MethodPost, "/register/") != 1 {
		t.Error("expected one POST /register/")
	}

	_, err = svc.Register(context.Background(), "cashier", "", "pw")
	if domain.Message(err) != "Username already exists" {
		t.Errorf("duplicate register message = %q", domain.Message(err))
	}
}

func TestLogout(t *testing.T) {
	svc, s, _ := newTestService(t, nil)
	if _, err := svc.Login(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if s.Authenticated() {
		t.Error("Logout should clear the session")
	}
}

// Package session holds the operator's credential and identity and the
// token exchange that establishes them.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/domain"
)

// Keys under which the session is persisted.
const (
	KeyAuthToken = "auth_token"
	KeyUser      = "user"
)

// Session is the credential holder. It has no logic beyond presence checks
// and persistence; the zero store keeps everything in memory.
type Session struct {
	mu      sync.RWMutex
	token   string
	profile domain.Profile
	store   domain.KVStore
}

// New creates an empty session backed by store (may be nil).
func New(store domain.KVStore) *Session {
	return &Session{store: store}
}

// Restore loads a previously persisted credential and profile.
func (s *Session) Restore() error {
	if s.store == nil {
		return nil
	}
	token, ok, err := s.store.Get(KeyAuthToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	var profile domain.Profile
	if raw, found, err := s.store.Get(KeyUser); err != nil {
		return fmt.Errorf("restore session: %w", err)
	} else if found {
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			log.WithError(err).Warn("stored user profile is unreadable; ignoring it")
			profile = domain.Profile{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.token = token
	}
	s.profile = profile
	return nil
}

// Token implements domain.Credentials.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a credential is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Profile returns the identity that came with the credential.
func (s *Session) Profile() domain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Establish stores a new credential and profile, durably when a store is set.
func (s *Session) Establish(token string, profile domain.Profile) error {
	s.mu.Lock()
	s.token = token
	s.profile = profile
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.Set(KeyAuthToken, token); err != nil {
		return err
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.store.Set(KeyUser, string(data))
}

// Clear drops the credential and removes the persisted keys.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.profile = domain.Profile{}
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.store.Delete(KeyAuthToken, KeyUser)
}

// ─── Token Exchange ─────────────────────────────────────────────────────────

// Service performs the account calls that do not need a credential.
type Service struct {
	caller  domain.Caller
	session *Session
}

// NewService binds the account calls to a session.
func NewService(caller domain.Caller, s *Session) *Service {
	return &Service{caller: caller, session: s}
}

// Login exchanges username/password for a token and establishes the session.
func (svc *Service) Login(ctx context.Context, username, password string) (domain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Profile{}, domain.ErrCredentialsRequired
	}

	raw, err := svc.caller.Call(ctx, http.MethodPost, "/get-token/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return domain.Profile{}, err
	}

	var resp domain.TokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.Profile{}, fmt.Errorf("%w: token response: %v", domain.ErrProtocolShape, err)
	}
	if resp.Token == "" {
		return domain.Profile{}, fmt.Errorf("%w: token response without token", domain.ErrProtocolShape)
	}

	if err := svc.session.Establish(resp.Token, resp.Profile); err != nil {
		return domain.Profile{}, fmt.Errorf("persist session: %w", err)
	}
	log.WithField("username", resp.Username).Info("logged in")
	return resp.Profile, nil
}

// Register creates a staff account. It does not log in.
func (svc *Service) Register(ctx context.Context, username, email, password string) (domain.RegisterResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.RegisterResponse{}, domain.ErrCredentialsRequired
	}

	raw, err := svc.caller.Call(ctx, http.MethodPost, "/register/", map[string]string{
		"username": username,
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	if err != nil {
		return domain.RegisterResponse{}, err
	}

	var resp domain.RegisterResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.RegisterResponse{}, fmt.Errorf("%w: register response: %v", domain.ErrProtocolShape, err)
	}
	return resp, nil
}

// Logout clears the session.
func (svc *Service) Logout() error {
	if err := svc.session.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	log.Info("logged out")
	return nil
}

package projection

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/infra/observability"
)

// Kind is the severity of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "warning"
)

// DefaultTTL is how long a notification stays up.
const DefaultTTL = 5 * time.Second

// Notification is a transient, dismissible message.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier holds the notifications currently on screen. Expired ones are
// pruned whenever the list is read.
type Notifier struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []Notification
}

// NewNotifier creates a notifier; ttl <= 0 means DefaultTTL.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{ttl: ttl, now: time.Now}
}

// SetClock replaces the time source.
func (n *Notifier) SetClock(now func() time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.now = now
}

// Success shows a success message.
func (n *Notifier) Success(msg string) Notification { return n.Push(KindSuccess, msg) }

// Error shows a failure message.
func (n *Notifier) Error(msg string) Notification { return n.Push(KindError, msg) }

// Info shows an informational message.
func (n *Notifier) Info(msg string) Notification { return n.Push(KindInfo, msg) }

// Push shows msg with the given kind.
func (n *Notifier) Push(kind Kind, msg string) Notification {
	n.mu.Lock()
	now := n.now()
	note := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   msg,
		CreatedAt: now,
		ExpiresAt: now.Add(n.ttl),
	}
	n.items = append(n.items, note)
	n.mu.Unlock()

	observability.Notifications.WithLabelValues(string(kind)).Inc()
	entry := log.WithField("kind", kind)
	if kind == KindError {
		entry.Warn(msg)
	} else {
		entry.Info(msg)
	}
	return note
}

// Active returns the unexpired notifications, oldest first.
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	kept := n.items[:0]
	for _, note := range n.items {
		if now.Before(note.ExpiresAt) {
			kept = append(kept, note)
		}
	}
	n.items = kept
	return append([]Notification(nil), kept...)
}

// Dismiss removes a notification before it expires.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, note := range n.items {
		if note.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every notification.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = nil
}

// Package clipboard adapts the operator's clipboard for mark-sold.
package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/voucherdesk/voucherdesk/internal/daemon"
	"github.com/voucherdesk/voucherdesk/internal/domain"
)

// ErrUnavailable is returned by System writes on hosts without a clipboard
// utility (xclip, xsel, wl-copy, pbcopy, clip.exe).
var ErrUnavailable = errors.New("no clipboard utility available on this system")

var unsupported = func() bool { return clipboard.Unsupported }

// System writes to the OS clipboard.
type System struct{}

// WriteText copies text to the OS clipboard.
func (System) WriteText(text string) error {
	if unsupported() {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}

// Memory is an in-process clipboard. It only backs mark-sold when
// configured explicitly, and in tests.
type Memory struct {
	mu      sync.Mutex
	last    string
	history []string
}

// WriteText records text.
func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = text
	m.history = append(m.history, text)
	return nil
}

// Last returns the most recently copied text.
func (m *Memory) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// History returns every copied text in order.
func (m *Memory) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// Available reports whether the host has a usable clipboard utility.
func Available() bool { return !unsupported() }

// New returns the clipboard named by kind ("system" or "memory"). The
// system clipboard is returned even when unavailable, so writes fail and
// mark-sold stops before reaching the backend.
func New(kind string) (domain.Clipboard, error) {
	switch kind {
	case daemon.ClipboardSystem, "":
		return System{}, nil
	case daemon.ClipboardMemory:
		return &Memory{}, nil
	}
	return nil, fmt.Errorf("unknown clipboard %q", kind)
}

package projection

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrControlBusy is returned when a control is clicked while its previous
// call is still running.
var ErrControlBusy = errors.New("action already in progress")

// Names of the controls that run backend calls.
const (
	ControlLogin        = "login"
	ControlCreate       = "create"
	ControlRecharge     = "recharge"
	ControlCheckBalance = "check_balance"
	ControlPay          = "pay"
)

// RowControl names the control of action on voucher id.
func RowControl(action Action, id string) string {
	return string(action) + ":" + id
}

var controlLabels = map[string][2]string{
	ControlLogin:        {"Login", "Logging in..."},
	ControlCreate:       {"Create Vouchers", "Creating..."},
	ControlRecharge:     {"Recharge", "Recharging..."},
	ControlCheckBalance: {"Check Balance", "Checking..."},
	ControlPay:          {"Pay", "Processing..."},
}

// Control is the rendered state of one button.
type Control struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
	Busy     bool   `json:"busy"`
}

// Controls tracks which buttons are busy.
type Controls struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewControls creates an idle set of controls.
func NewControls() *Controls {
	return &Controls{busy: make(map[string]struct{})}
}

// Run disables name and shows its busy label for the duration of fn. The
// control is restored however fn ends, panics included.
func (c *Controls) Run(name string, fn func() error) error {
	c.mu.Lock()
	if _, running := c.busy[name]; running {
		c.mu.Unlock()
		return ErrControlBusy
	}
	c.busy[name] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.busy, name)
		c.mu.Unlock()
	}()
	return fn()
}

// Busy reports whether name is running.
func (c *Controls) Busy(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.busy[name]
	return ok
}

// State returns the rendered state of name.
func (c *Controls) State(name string) Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.busy[name]; ok {
		return Control{Name: name, Label: busyLabel(name), Disabled: true, Busy: true}
	}
	return Control{Name: name, Label: idleLabel(name)}
}

// Snapshot returns the fixed form controls plus any busy row controls,
// sorted by name.
func (c *Controls) Snapshot() []Control {
	names := make([]string, 0, len(controlLabels))
	for name := range controlLabels {
		names = append(names, name)
	}
	c.mu.Lock()
	for name := range c.busy {
		if _, fixed := controlLabels[name]; !fixed {
			names = append(names, name)
		}
	}
	c.mu.Unlock()

	sort.Strings(names)
	out := make([]Control, 0, len(names))
	for _, name := range names {
		out = append(out, c.State(name))
	}
	return out
}

func idleLabel(name string) string {
	if l, ok := controlLabels[name]; ok {
		return l[0]
	}
	if action, _, ok := strings.Cut(name, ":"); ok {
		return Action(action).Label()
	}
	return name
}

func busyLabel(name string) string {
	if l, ok := controlLabels[name]; ok {
		return l[1]
	}
	return "Working..."
}

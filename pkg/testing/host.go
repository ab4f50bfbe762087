package testing

import (
	"maps"
	"slices"
	"sync"

	"github.com/go-drift/permissions/pkg/capability"
	"github.com/go-drift/permissions/pkg/consent"
)

// Prompt records one grant dialog the host was asked to show.
type Prompt struct {
	Token        consent.Token
	Capabilities []capability.Capability
}

// Redirect records one settings screen the host was asked to open.
type Redirect struct {
	Token      consent.Token
	Capability capability.Capability
}

type queued struct {
	token  consent.Token
	grants map[capability.Capability]bool
}

// FakeHost implements consent.Host from in-memory state.
// All methods are safe for concurrent use.
type FakeHost struct {
	table *consent.Table

	mu        sync.Mutex
	granted   map[capability.Capability]bool
	rationale map[capability.Capability]bool
	permanent map[capability.Capability]bool
	switches  map[capability.Capability]bool
	prompts   []Prompt
	redirects []Redirect
	queue     []queued
	last      consent.Token

	// OpenErr, when set, is returned by RequestPermissions and OpenSettings.
	OpenErr error
}

// NewFakeHost returns a host with nothing granted that delivers results to table.
func NewFakeHost(table *consent.Table) *FakeHost {
	return &FakeHost{
		table:     table,
		granted:   make(map[capability.Capability]bool),
		rationale: make(map[capability.Capability]bool),
		permanent: make(map[capability.Capability]bool),
		switches:  make(map[capability.Capability]bool),
	}
}

// Grant marks caps as currently granted.
func (h *FakeHost) Grant(caps ...capability.Capability) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range caps {
		h.granted[c] = true
	}
}

// SetRationale sets the rationale heuristic for c.
func (h *FakeHost) SetRationale(c capability.Capability, show bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rationale[c] = show
}

// SetPermanentlyDenied sets the "don't ask again" flag for c.
func (h *FakeHost) SetPermanentlyDenied(c capability.Capability, denied bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.permanent[c] = denied
}

// SetSwitch sets a settings-redirect switch.
func (h *FakeHost) SetSwitch(c capability.Capability, enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.switches[c] = enabled
}

// Granted reports whether c is currently granted.
func (h *FakeHost) Granted(c capability.Capability) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.granted[c]
}

// ShouldShowRationale returns the rationale heuristic set for c.
func (h *FakeHost) ShouldShowRationale(c capability.Capability) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rationale[c]
}

// PermanentlyDenied reports whether c was marked "don't ask again".
func (h *FakeHost) PermanentlyDenied(c capability.Capability) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.permanent[c]
}

// SwitchEnabled returns the settings switch state for c.
func (h *FakeHost) SwitchEnabled(c capability.Capability) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.switches[c]
}

// RequestPermissions records a prompt, or fails with OpenErr.
func (h *FakeHost) RequestPermissions(token consent.Token, caps []capability.Capability) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.OpenErr != nil {
		return h.OpenErr
	}
	h.prompts = append(h.prompts, Prompt{Token: token, Capabilities: slices.Clone(caps)})
	h.last = token
	return nil
}

// OpenSettings records a redirect, or fails with OpenErr.
func (h *FakeHost) OpenSettings(token consent.Token, c capability.Capability) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.OpenErr != nil {
		return h.OpenErr
	}
	h.redirects = append(h.redirects, Redirect{Token: token, Capability: c})
	h.last = token
	return nil
}

// Prompts returns the grant dialogs shown so far.
func (h *FakeHost) Prompts() []Prompt {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.prompts)
}

// Redirects returns the settings screens opened so far.
func (h *FakeHost) Redirects() []Redirect {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.redirects)
}

// LastToken returns the token of the most recent prompt or redirect,
// or "" if none was opened.
func (h *FakeHost) LastToken() consent.Token {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Answer records the user's dialog choices in the host state and delivers
// them to the table. It returns the table's verdict.
func (h *FakeHost) Answer(token consent.Token, grants map[capability.Capability]bool) bool {
	h.mu.Lock()
	for c, ok := range grants {
		h.granted[c] = ok
	}
	h.mu.Unlock()
	return h.table.Deliver(token, grants)
}

// ReturnFromSettings sets the switch for c and signals the table that
// the user came back from the settings screen opened for token.
func (h *FakeHost) ReturnFromSettings(token consent.Token, c capability.Capability, enabled bool) bool {
	h.SetSwitch(c, enabled)
	return h.table.Resume(token)
}

// Enqueue holds a dialog result for token until Flush.
func (h *FakeHost) Enqueue(token consent.Token, grants map[capability.Capability]bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, queued{token: token, grants: maps.Clone(grants)})
}

// Flush delivers every queued result, newest first, and returns how many
// the table accepted.
func (h *FakeHost) Flush() int {
	h.mu.Lock()
	q := h.queue
	h.queue = nil
	h.mu.Unlock()

	accepted := 0
	for i := len(q) - 1; i >= 0; i-- {
		if h.Answer(q[i].token, q[i].grants) {
			accepted++
		}
	}
	return accepted
}

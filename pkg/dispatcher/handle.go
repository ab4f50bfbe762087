package dispatcher

import (
	"sync/atomic"

	"github.com/go-drift/permissions/pkg/consent"
	"github.com/go-drift/permissions/pkg/grant"
)

// State is the position of a request in its workflow.
type State int32

const (
	// StateInit is the state before classification.
	StateInit State = iota
	// StateAwaitingRationaleAck means the rationale handler owns the request.
	StateAwaitingRationaleAck
	// StateAwaitingConsent means a prompt is open and the result is pending.
	StateAwaitingConsent
	// StateTerminal means the request finished; no further callbacks fire.
	StateTerminal
	// StateAbandoned means the owning context ended while consent was
	// pending. No callback fired and none will.
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingRationaleAck:
		return "awaiting_rationale_ack"
	case StateAwaitingConsent:
		return "awaiting_consent"
	case StateTerminal:
		return "terminal"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Handle is an opaque marker for one started request. It exposes the
// request's progress for tests and observability; it cannot steer it.
type Handle struct {
	state   atomic.Int32
	outcome atomic.Int32
	token   atomic.Value // consent.Token
	done    chan struct{}
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// State returns the current state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Outcome returns the last classified outcome, or zero before classification.
// After a consent result the state turns terminal before the outcome is
// stored, so read Outcome once Done is closed.
func (h *Handle) Outcome() grant.Outcome {
	return grant.Outcome(h.outcome.Load())
}

// Token returns the consent token, or "" if no prompt was opened.
func (h *Handle) Token() consent.Token {
	if t, ok := h.token.Load().(consent.Token); ok {
		return t
	}
	return ""
}

// Done returns a channel closed once the request is terminal or abandoned
// and its callback, if any, has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) transition(from, to State) bool {
	return h.state.CompareAndSwap(int32(from), int32(to))
}

func (h *Handle) setOutcome(o grant.Outcome) {
	h.outcome.Store(int32(o))
}

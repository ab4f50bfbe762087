// Package dispatcher runs actions that require runtime permissions.
//
// Start inspects the current grant state and either runs the action at once,
// hands control to a rationale handler, or opens a consent prompt and waits
// for the host to report back. Whatever path a request takes, at most one of
// OnGranted, OnPermissionDenied and OnNeverAskAgain fires for it.
//
//	table := consent.NewTable(nil)
//	host := platform.NewHost(table)
//	d := dispatcher.New(consent.NewChannel(host, table, nil), dispatcher.Config{
//	    Dispatch: platform.Dispatch,
//	})
//
//	set, err := capability.Ordinary(capability.Camera)
//	if err != nil {
//	    return err
//	}
//	_, err = d.Start(host.Context(), set, dispatcher.Callbacks{
//	    OnGranted:          openCamera,
//	    OnPermissionDenied: showDeniedBanner,
//	})
//
// The request has no timeout. If the host never reports a result the request
// stays in StateAwaitingConsent until its context is canceled.
package dispatcher

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync/atomic"

	"github.com/go-drift/permissions/pkg/capability"
	"github.com/go-drift/permissions/pkg/consent"
	"github.com/go-drift/permissions/pkg/errors"
	"github.com/go-drift/permissions/pkg/grant"
)

// ErrRationaleHandled is returned by RationaleRequest.Proceed when the
// rationale was already proceeded or canceled.
var ErrRationaleHandled = stderrors.New("dispatcher: rationale request already handled")

// Callbacks are the caller's handlers for one request. OnGranted is
// required. A nil optional handler takes its documented default.
type Callbacks struct {
	// OnGranted runs the guarded action.
	OnGranted func()

	// OnShowRationale explains why the capabilities are needed. It receives
	// a RationaleRequest and must later Proceed or Cancel it. When nil, the
	// rationale step is skipped and consent is requested directly.
	OnShowRationale func(req *RationaleRequest)

	// OnPermissionDenied runs when the user refuses.
	OnPermissionDenied func()

	// OnNeverAskAgain runs when a refused capability is permanently denied.
	// When nil, OnPermissionDenied runs instead.
	OnNeverAskAgain func()
}

// Config configures a Dispatcher. The zero value is usable.
type Config struct {
	// Logger receives debug records for each transition. Nil means slog.Default().
	Logger *slog.Logger

	// Dispatch schedules callbacks that follow a consent result, e.g. onto
	// the UI thread. Nil runs them inline on the goroutine that delivered
	// the result. Synchronous outcomes never go through Dispatch.
	Dispatch func(callback func())
}

// Dispatcher starts permission requests against one consent channel.
type Dispatcher struct {
	channel  *consent.Channel
	logger   *slog.Logger
	dispatch func(callback func())
}

// New creates a dispatcher that opens prompts on channel.
func New(channel *consent.Channel, cfg Config) *Dispatcher {
	d := &Dispatcher{
		channel:  channel,
		logger:   cfg.Logger,
		dispatch: cfg.Dispatch,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.dispatch == nil {
		d.dispatch = func(callback func()) { callback() }
	}
	return d
}

// Start begins a request for set and returns without waiting for consent.
//
// Configuration errors (zero set, missing OnGranted) and failures to open
// the prompt are returned here and never reach the callbacks. When every
// capability is already granted, OnGranted runs before Start returns.
//
// Canceling ctx while consent is pending abandons the request: the token is
// withdrawn, a late result is ignored, and no callback fires.
func (d *Dispatcher) Start(ctx context.Context, set capability.Set, cb Callbacks) (*Handle, error) {
	if set.IsZero() {
		return nil, errors.Configuration("dispatcher.Start", errors.ErrEmptySet)
	}
	if cb.OnGranted == nil {
		return nil, errors.Configuration("dispatcher.Start", errors.ErrMissingGranted)
	}
	r := d.newRequest(set, cb)
	if err := r.run(ctx, true); err != nil {
		return nil, err
	}
	return r.handle, nil
}

func (d *Dispatcher) newRequest(set capability.Set, cb Callbacks) *request {
	return &request{
		d:      d,
		set:    set,
		cb:     cb,
		handle: newHandle(),
		logger: d.logger.With(
			slog.String("pathway", set.Pathway().String()),
			slog.Int("capabilities", set.Len()),
		),
	}
}

// request is one pass through the workflow. It is never reused.
type request struct {
	d      *Dispatcher
	set    capability.Set
	cb     Callbacks
	handle *Handle
	logger *slog.Logger
}

func (r *request) run(ctx context.Context, askRationale bool) error {
	if ctx.Err() != nil {
		if r.handle.transition(StateInit, StateAbandoned) {
			r.logger.Debug("permission request abandoned before start")
			close(r.handle.done)
		}
		return nil
	}

	if outcome, ok := grant.Classify(r.set, r.d.channel.Host()); ok {
		switch outcome {
		case grant.AlreadyGranted:
			r.handle.setOutcome(outcome)
			r.handle.transition(StateInit, StateTerminal)
			r.logger.Debug("permission already granted")
			r.finish("onGranted", r.cb.OnGranted)
			return nil
		case grant.NeedsRationale:
			if askRationale && r.cb.OnShowRationale != nil {
				r.handle.setOutcome(outcome)
				r.handle.transition(StateInit, StateAwaitingRationaleAck)
				r.logger.Debug("permission rationale requested")
				req := &RationaleRequest{req: r, ctx: ctx}
				r.call("onShowRationale", func() { r.cb.OnShowRationale(req) })
				return nil
			}
		}
	}
	return r.await(ctx)
}

func (r *request) await(ctx context.Context) error {
	future, token, err := r.d.channel.Open(r.set)
	if err != nil {
		r.handle.transition(StateInit, StateTerminal)
		return err
	}
	r.handle.token.Store(token)
	r.logger = r.logger.With(slog.String("token", string(token)))
	r.handle.transition(StateInit, StateAwaitingConsent)
	r.logger.Debug("awaiting consent")

	stop := context.AfterFunc(ctx, func() { r.abandon(token) })
	future.Then(func(result grant.Result) {
		stop()
		r.resolve(result)
	})
	return nil
}

func (r *request) abandon(token consent.Token) {
	if !r.handle.transition(StateAwaitingConsent, StateAbandoned) {
		return
	}
	r.d.channel.Abandon(token)
	r.logger.Debug("permission request abandoned")
	close(r.handle.done)
}

func (r *request) resolve(result grant.Result) {
	outcome := grant.Resolve(r.set, result, r.d.channel.Host())
	if !r.handle.transition(StateAwaitingConsent, StateTerminal) {
		r.logger.Debug("consent result ignored", slog.String("state", r.handle.State().String()))
		return
	}
	r.handle.setOutcome(outcome)
	r.logger.Debug("consent resolved", slog.String("outcome", outcome.String()))

	op, fn := r.handlerFor(outcome)
	r.d.dispatch(func() { r.finish(op, fn) })
}

func (r *request) handlerFor(outcome grant.Outcome) (string, func()) {
	switch outcome {
	case grant.GrantedAfterPrompt:
		return "onGranted", r.cb.OnGranted
	case grant.PermanentlyDenied:
		if r.cb.OnNeverAskAgain != nil {
			return "onNeverAskAgain", r.cb.OnNeverAskAgain
		}
		return "onPermissionDenied", r.cb.OnPermissionDenied
	default:
		return "onPermissionDenied", r.cb.OnPermissionDenied
	}
}

// finish runs the terminal callback, if any, then marks the handle done.
func (r *request) finish(op string, fn func()) {
	defer close(r.handle.done)
	if fn != nil {
		r.call(op, fn)
	}
}

// call runs a caller handler, reporting a panic instead of propagating it
// into the host's delivery path.
func (r *request) call(op string, fn func()) {
	defer errors.Recover("dispatcher." + op)
	fn()
}

// RationaleRequest is handed to OnShowRationale. The handler decides whether
// to go on asking for consent. Only the first Proceed or Cancel has effect.
type RationaleRequest struct {
	req     *request
	ctx     context.Context
	handled atomic.Bool
}

// Capabilities returns the capabilities the rationale should explain.
func (rr *RationaleRequest) Capabilities() []capability.Capability {
	return rr.req.set.Capabilities()
}

// Proceed ends the original request and starts a new one that skips the
// rationale check and asks for consent directly. The new request still
// completes immediately if the capabilities were granted in the meantime.
func (rr *RationaleRequest) Proceed() (*Handle, error) {
	if !rr.handled.CompareAndSwap(false, true) {
		return nil, ErrRationaleHandled
	}
	prev := rr.req
	end := StateTerminal
	if rr.ctx.Err() != nil {
		end = StateAbandoned
	}
	if prev.handle.transition(StateAwaitingRationaleAck, end) {
		close(prev.handle.done)
	}
	next := prev.d.newRequest(prev.set, prev.cb)
	if err := next.run(rr.ctx, false); err != nil {
		return nil, err
	}
	return next.handle, nil
}

// Cancel ends the request as a denial and runs OnPermissionDenied. If the
// request's context has ended, the request is abandoned and nothing runs.
func (rr *RationaleRequest) Cancel() {
	if !rr.handled.CompareAndSwap(false, true) {
		return
	}
	prev := rr.req
	if rr.ctx.Err() != nil {
		if prev.handle.transition(StateAwaitingRationaleAck, StateAbandoned) {
			prev.logger.Debug("permission request abandoned during rationale")
			close(prev.handle.done)
		}
		return
	}
	prev.handle.setOutcome(grant.Denied)
	if !prev.handle.transition(StateAwaitingRationaleAck, StateTerminal) {
		return
	}
	prev.logger.Debug("permission rationale canceled")
	prev.finish("onPermissionDenied", prev.cb.OnPermissionDenied)
}

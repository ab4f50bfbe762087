package platform

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-drift/permissions/pkg/capability"
	"github.com/go-drift/permissions/pkg/consent"
	"github.com/go-drift/permissions/pkg/errors"
)

const (
	permissionsChannelName = "drift/permissions"
	resultsChannelName     = "drift/permissions/results"
)

// PermissionResult is the status native code reports for one capability.
type PermissionResult string

// Permission status constants.
const (
	// PermissionGranted indicates access has been granted.
	PermissionGranted PermissionResult = "granted"

	// PermissionDenied indicates the user denied the permission. The app may request again.
	PermissionDenied PermissionResult = "denied"

	// PermissionPermanentlyDenied indicates the user denied with "don't ask again".
	// Further prompts are suppressed; the user must be directed to Settings.
	PermissionPermanentlyDenied PermissionResult = "permanently_denied"

	// PermissionNotDetermined indicates the user has not yet been asked.
	PermissionNotDetermined PermissionResult = "not_determined"
)

var (
	permissionChannelsOnce sync.Once
	permissionMethods      *MethodChannel
	permissionResults      *EventChannel
)

func permissionChannels() (*MethodChannel, *EventChannel) {
	permissionChannelsOnce.Do(func() {
		permissionMethods = NewMethodChannel(permissionsChannelName)
		permissionResults = NewEventChannel(resultsChannelName)
	})
	return permissionMethods, permissionResults
}

// Host implements consent.Host over the "drift/permissions" channels.
//
// Consent results arrive on "drift/permissions/results" as
// {"token": "...", "results": {"<capability>": "granted"|"denied"|...}} and
// are delivered to the table. When the app returns to the resumed lifecycle
// state every pending settings redirect is resumed. When the app detaches,
// the context returned by Context is canceled.
type Host struct {
	methods *MethodChannel
	table   *consent.Table
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	sub             *Subscription
	removeLifecycle func()
	closed          atomic.Bool
}

// NewHost creates a host that delivers results to table and starts
// listening for results and lifecycle changes. Call Close to stop.
func NewHost(table *consent.Table) *Host {
	methods, results := permissionChannels()
	ctx, cancel := context.WithCancel(context.Background())
	h := &Host{
		methods: methods,
		table:   table,
		logger:  slog.Default().With(slog.String("component", "platform.host")),
		ctx:     ctx,
		cancel:  cancel,
	}

	h.sub = results.Listen(EventHandler{
		OnEvent: h.handleResult,
		OnError: func(err error) {
			errors.Report(&errors.Error{
				Op:      "platform.Host.results",
				Kind:    errors.KindPlatform,
				Channel: resultsChannelName,
				Err:     err,
			})
		},
	})
	h.removeLifecycle = Lifecycle.AddHandler(h.handleLifecycle)
	return h
}

// Context is canceled when the app detaches or the host is closed. Pass it
// to dispatcher.Start so pending requests are abandoned with the UI scope.
func (h *Host) Context() context.Context {
	return h.ctx
}

// Close stops event delivery and cancels Context. It is safe to call more
// than once.
func (h *Host) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.sub.Cancel()
	h.removeLifecycle()
	h.cancel()
}

// Granted reports whether c is currently granted. Bridge failures are
// reported and read as not granted.
func (h *Host) Granted(c capability.Capability) bool {
	result, err := h.invoke("check", map[string]any{"permission": string(c)})
	if err != nil {
		return false
	}
	return PermissionResult(parseString(result)) == PermissionGranted
}

// ShouldShowRationale asks native whether a rationale should precede the prompt.
func (h *Host) ShouldShowRationale(c capability.Capability) bool {
	result, err := h.invoke("shouldShowRationale", map[string]any{"permission": string(c)})
	if err != nil {
		return false
	}
	return parseBool(result)
}

// SwitchEnabled reports whether the settings switch behind action c is on.
func (h *Host) SwitchEnabled(c capability.Capability) bool {
	result, err := h.invoke("checkSwitch", map[string]any{"action": string(c)})
	if err != nil {
		return false
	}
	return parseBool(result)
}

// PermanentlyDenied asks native whether further prompts for c are suppressed.
func (h *Host) PermanentlyDenied(c capability.Capability) bool {
	result, err := h.invoke("isPermanentlyDenied", map[string]any{"permission": string(c)})
	if err != nil {
		return false
	}
	return parseBool(result)
}

// RequestPermissions shows the native grant dialog for caps.
func (h *Host) RequestPermissions(token consent.Token, caps []capability.Capability) error {
	if h.closed.Load() {
		return ErrClosed
	}
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	h.logger.Debug("requesting permissions",
		slog.String("token", string(token)),
		slog.Any("permissions", names))
	_, err := h.methods.Invoke("request", map[string]any{
		"token":       string(token),
		"permissions": names,
	})
	return err
}

// OpenSettings sends the user to the settings screen for action c.
func (h *Host) OpenSettings(token consent.Token, c capability.Capability) error {
	if h.closed.Load() {
		return ErrClosed
	}
	h.logger.Debug("opening settings",
		slog.String("token", string(token)),
		slog.String("action", string(c)))
	_, err := h.methods.Invoke("openSettings", map[string]any{
		"token":  string(token),
		"action": string(c),
	})
	return err
}

func (h *Host) invoke(method string, args map[string]any) (any, error) {
	result, err := h.methods.Invoke(method, args)
	if err != nil {
		errors.Report(&errors.Error{
			Op:      "platform.Host." + method,
			Kind:    errors.KindPlatform,
			Channel: permissionsChannelName,
			Err:     err,
		})
	}
	return result, err
}

func (h *Host) handleResult(data any) {
	token, grants, ok := parseConsentResult(data)
	if !ok {
		errors.Report(&errors.Error{
			Op:      "platform.Host.results",
			Kind:    errors.KindParsing,
			Channel: resultsChannelName,
			Err: &errors.ParseError{
				Channel:  resultsChannelName,
				DataType: "ConsentResult",
				Got:      data,
			},
		})
		return
	}
	h.table.Deliver(token, grants)
}

func (h *Host) handleLifecycle(state LifecycleState) {
	switch state {
	case LifecycleStateResumed:
		for _, token := range h.table.PendingRedirects() {
			h.table.Resume(token)
		}
	case LifecycleStateDetached:
		h.logger.Debug("app detached, abandoning pending requests",
			slog.Int("pending", len(h.table.Pending())))
		h.cancel()
	}
}

// parseConsentResult decodes a results event. Each capability maps to a
// status string or a bool; only "granted" and true count as granted.
func parseConsentResult(data any) (consent.Token, map[capability.Capability]bool, bool) {
	m := parseMap(data)
	token := parseString(m["token"])
	if token == "" {
		return "", nil, false
	}
	raw := parseMap(m["results"])
	if raw == nil {
		return "", nil, false
	}
	grants := make(map[capability.Capability]bool, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case bool:
			grants[capability.Capability(name)] = v
		case string:
			grants[capability.Capability(name)] = PermissionResult(v) == PermissionGranted
		default:
			return "", nil, false
		}
	}
	return consent.Token(token), grants, true
}

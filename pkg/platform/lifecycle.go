package platform

import (
	"sync"

	"github.com/go-drift/permissions/pkg/errors"
)

const lifecycleEventsChannel = "drift/lifecycle/events"

// Lifecycle tracks the app lifecycle reported by native code.
var Lifecycle = &LifecycleService{
	channel:  NewMethodChannel("drift/lifecycle"),
	events:   NewEventChannel(lifecycleEventsChannel),
	state:    LifecycleStateResumed,
	handlers: make(map[int]LifecycleHandler),
}

// LifecycleService manages app lifecycle events.
type LifecycleService struct {
	channel  *MethodChannel
	events   *EventChannel
	state    LifecycleState
	handlers map[int]LifecycleHandler
	nextID   int
	mu       sync.RWMutex
}

// LifecycleState represents the current app lifecycle state.
type LifecycleState string

const (
	// LifecycleStateResumed indicates the app is visible and in the foreground.
	// A settings screen returning control produces this state.
	LifecycleStateResumed LifecycleState = "resumed"

	// LifecycleStateInactive indicates the app is transitioning, for example
	// while a system permission dialog covers it.
	LifecycleStateInactive LifecycleState = "inactive"

	// LifecycleStatePaused indicates the app is not visible but still running.
	LifecycleStatePaused LifecycleState = "paused"

	// LifecycleStateDetached indicates the UI scope that owns pending
	// requests has been torn down.
	LifecycleStateDetached LifecycleState = "detached"
)

// LifecycleHandler is called when lifecycle state changes.
type LifecycleHandler func(state LifecycleState)

func init() {
	registerBuiltinInit(installLifecycleListeners)
	installLifecycleListeners()
}

func installLifecycleListeners() {
	Lifecycle.events.Listen(EventHandler{
		OnEvent: func(data any) {
			state := parseString(parseMap(data)["state"])
			if state == "" {
				errors.Report(&errors.Error{
					Op:      "lifecycle.parseEvent",
					Kind:    errors.KindParsing,
					Channel: lifecycleEventsChannel,
					Err: &errors.ParseError{
						Channel:  lifecycleEventsChannel,
						DataType: "LifecycleState",
						Got:      data,
					},
				})
				return
			}
			Lifecycle.updateState(LifecycleState(state))
		},
		OnError: func(err error) {
			errors.Report(&errors.Error{
				Op:      "lifecycle.streamError",
				Kind:    errors.KindPlatform,
				Channel: lifecycleEventsChannel,
				Err:     err,
			})
		},
	})

	Lifecycle.channel.SetHandler(func(method string, args any) (any, error) {
		switch method {
		case "didChangeState":
			if state := parseString(parseMap(args)["state"]); state != "" {
				Lifecycle.updateState(LifecycleState(state))
			}
			return nil, nil
		default:
			return nil, ErrMethodNotFound
		}
	})
}

// State returns the current lifecycle state.
func (l *LifecycleService) State() LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// AddHandler registers a handler to be called on lifecycle changes.
// It returns a function that removes the handler.
func (l *LifecycleService) AddHandler(handler LifecycleHandler) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.handlers[id] = handler
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.handlers, id)
		l.mu.Unlock()
	}
}

// updateState records newState and notifies handlers outside the lock.
// Repeated reports of the same state are dropped.
func (l *LifecycleService) updateState(newState LifecycleState) {
	l.mu.Lock()
	if l.state == newState {
		l.mu.Unlock()
		return
	}
	l.state = newState
	handlers := make([]LifecycleHandler, 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, h := range handlers {
		h(newState)
	}
}

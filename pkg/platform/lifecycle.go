package platform

import (
	stderrors "errors"
	"sync"

	"github.com/go-drift/drift-spine/pkg/errors"
)

const (
	lifecycleChannel       = "drift/lifecycle"
	lifecycleEventsChannel = "drift/lifecycle/events"
)

// LifecycleState is the host app's visibility state.
type LifecycleState string

const (
	// LifecycleStateResumed: visible and receiving input.
	LifecycleStateResumed LifecycleState = "resumed"
	// LifecycleStateInactive: visible but transitioning, e.g. behind a
	// system dialog.
	LifecycleStateInactive LifecycleState = "inactive"
	// LifecycleStatePaused: running but not visible.
	LifecycleStatePaused LifecycleState = "paused"
	// LifecycleStateDetached: hosted without any view.
	LifecycleStateDetached LifecycleState = "detached"
)

// Visible reports whether frames drawn in this state can be seen.
func (s LifecycleState) Visible() bool {
	return s == LifecycleStateResumed || s == LifecycleStateInactive
}

// LifecycleHandler is called when the lifecycle state changes.
type LifecycleHandler func(state LifecycleState)

// LifecycleService tracks the host app's lifecycle state.
type LifecycleService struct {
	channel *MethodChannel
	events  *EventChannel

	mu       sync.RWMutex
	state    LifecycleState
	handlers map[int]LifecycleHandler
	nextID   int
}

// Lifecycle is the app lifecycle service.
var Lifecycle = newLifecycleService()

func newLifecycleService() *LifecycleService {
	l := &LifecycleService{
		channel:  NewMethodChannel(lifecycleChannel),
		events:   NewEventChannel(lifecycleEventsChannel),
		state:    LifecycleStateResumed,
		handlers: make(map[int]LifecycleHandler),
	}
	l.channel.SetHandler(func(method string, args any) (any, error) {
		if method != "didChangeState" {
			return nil, ErrMethodNotFound
		}
		state := parseString(parseMap(args)["state"])
		if state == "" {
			return nil, ErrInvalidArguments
		}
		l.updateState(LifecycleState(state))
		return nil, nil
	})
	l.listen()
	RegisterResetHook(l.reset)
	return l
}

func (l *LifecycleService) listen() {
	l.events.Listen(EventHandler{
		OnEvent: func(data any) {
			state := parseString(parseMap(data)["state"])
			if state == "" {
				errors.Report(&errors.SpineError{
					Op:      "lifecycle.parseEvent",
					Kind:    errors.KindParsing,
					Channel: lifecycleEventsChannel,
					Err:     &errors.ParseError{Channel: lifecycleEventsChannel, DataType: "LifecycleState", Got: data},
				})
				return
			}
			l.updateState(LifecycleState(state))
		},
		OnError: func(err error) {
			if stderrors.Is(err, ErrPlatformUnavailable) {
				return
			}
			errors.Report(&errors.SpineError{
				Op:      "lifecycle.streamError",
				Kind:    errors.KindPlatform,
				Channel: lifecycleEventsChannel,
				Err:     err,
			})
		},
	})
}

// reset restores the resumed state without notifying handlers.
func (l *LifecycleService) reset() {
	l.mu.Lock()
	l.state = LifecycleStateResumed
	l.mu.Unlock()
	l.listen()
}

// State returns the current lifecycle state.
func (l *LifecycleService) State() LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// AddHandler registers a handler for lifecycle changes and returns a
// function that removes it.
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

func (l *LifecycleService) updateState(state LifecycleState) {
	l.mu.Lock()
	if l.state == state {
		l.mu.Unlock()
		return
	}
	l.state = state
	handlers := make([]LifecycleHandler, 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, h := range handlers {
		h(state)
	}
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler executes a service call.
type Handler interface {
	HandleCall(ctx context.Context, call *Call) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, call *Call) error

// HandleCall implements Handler.
func (f HandlerFunc) HandleCall(ctx context.Context, call *Call) error {
	return f(ctx, call)
}

// Observer is notified after every dispatched call, with the handler's result.
type Observer interface {
	ServiceCalled(call *Call, err error)
}

// Key identifies a service slot in the registry.
type Key struct {
	Domain  string `json:"domain"`
	Service string `json:"service"`
}

// String returns "domain.service".
func (k Key) String() string {
	return k.Domain + "." + k.Service
}

// newKey normalises domain and service names to lower case.
func newKey(domain, service string) Key {
	return Key{
		Domain:  strings.ToLower(strings.TrimSpace(domain)),
		Service: strings.ToLower(strings.TrimSpace(service)),
	}
}

// Registry maps (domain, service) keys to the handler currently installed for
// them.
//
// All public methods are thread-safe. Call releases the lock before invoking
// the handler, so handlers may themselves use the registry.
type Registry struct {
	handlers  map[Key]Handler
	observers []Observer
	mu        sync.RWMutex
	logger    Logger
}

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Key]Handler),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddObserver registers an observer for dispatched calls.
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, o)
	r.mu.Unlock()
}

// Register installs a handler for a new key.
// Returns ErrServiceExists if the key already has a handler.
func (r *Registry) Register(domain, service string, h Handler) error {
	key := newKey(domain, service)
	if key.Domain == "" || key.Service == "" {
		return fmt.Errorf("%w: %q.%q", ErrInvalidService, domain, service)
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrInvalidHandler, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("%w: %s", ErrServiceExists, key)
	}
	r.handlers[key] = h

	r.logger.Debug("service registered", "service", key.String())
	return nil
}

// Lookup returns the handler currently installed for a key.
func (r *Registry) Lookup(domain, service string) (Handler, bool) {
	key := newKey(domain, service)

	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[key]
	return h, ok
}

// Replace swaps the handler installed for an existing key.
// Returns ErrServiceNotFound if the key has no handler.
func (r *Registry) Replace(domain, service string, h Handler) error {
	key := newKey(domain, service)
	if h == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrInvalidHandler, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; !exists {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, key)
	}
	r.handlers[key] = h
	return nil
}

// Remove deletes a key. Returns false if the key was not registered.
func (r *Registry) Remove(domain, service string) bool {
	key := newKey(domain, service)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; !exists {
		return false
	}
	delete(r.handlers, key)

	r.logger.Debug("service removed", "service", key.String())
	return true
}

// Has reports whether a handler is registered for a key.
func (r *Registry) Has(domain, service string) bool {
	_, ok := r.Lookup(domain, service)
	return ok
}

// Services returns all registered keys sorted by domain then service.
func (r *Registry) Services() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Domain != keys[j].Domain {
			return keys[i].Domain < keys[j].Domain
		}
		return keys[i].Service < keys[j].Service
	})
	return keys
}

// Call dispatches a service call to the handler currently installed for the
// key and returns the handler's error.
//
// Parameters:
//   - ctx: Context for cancellation, passed to the handler
//   - domain, service: The key to dispatch to
//   - data: The call payload (cloned into the Call)
//   - callCtx: Execution context; an ID is generated if empty
//
// Returns:
//   - error: ErrServiceNotFound if the key has no handler, otherwise the
//     handler's result
func (r *Registry) Call(ctx context.Context, domain, service string, data Data, callCtx Context) error {
	key := newKey(domain, service)

	r.mu.RLock()
	h, ok := r.handlers[key]
	observers := r.observers
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, key)
	}

	if callCtx.ID == "" {
		origin := callCtx.Origin
		callCtx = NewContext(origin)
	}

	call := NewCall(key.Domain, key.Service, data, callCtx)
	err := h.HandleCall(ctx, call)
	if err != nil {
		r.logger.Warn("service call failed",
			"service", key.String(),
			"context_id", callCtx.ID,
			"error", err,
		)
	}

	for _, o := range observers {
		o.ServiceCalled(call, err)
	}
	return err
}

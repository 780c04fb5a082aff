package intercept

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
)

// meterName is the instrumentation scope name for interception metrics.
const meterName = "github.com/nerrad567/gray-logic-smoothlights/intercept"

// Registry is the part of the service registry that Install needs: reading
// the handler in a slot and swapping it.
type Registry interface {
	Lookup(domain, svc string) (service.Handler, bool)
	Replace(domain, svc string, h service.Handler) error
}

// MutateFunc rewrites a call's payload in place.
//
// call is the incoming call (read-only); data is a private copy of its
// payload that will be forwarded to the original handler.
type MutateFunc func(call *service.Call, data service.Data) error

// ReleaseFunc removes an interception. Calling it more than once is a no-op.
type ReleaseFunc func()

// Logger defines the logging interface used by the interceptor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures Install.
type Option func(*options)

type options struct {
	logger Logger
	meter  metric.Meter
}

// WithLogger sets the logger used for install, release and mutate failures.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeter sets the OpenTelemetry meter for interception counters.
// Without it the global MeterProvider is used, which is a noop unless one
// has been configured.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// noopRelease is returned when nothing was installed.
func noopRelease() {}

// Install replaces the handler registered for (domain, svc) with a proxy that
// runs mutate on a copy of each call's payload before delegating to the
// original handler.
//
// Parameters:
//   - reg: The registry holding the target slot
//   - domain, svc: The key to intercept, e.g. ("light", "turn_on")
//   - mutate: Payload rewrite run once per call
//   - opts: Logger and meter options
//
// Returns:
//   - ReleaseFunc: Restores the original handler. Never nil.
//   - error: ErrTargetNotFound if the key has no handler, ErrNilMutate if
//     mutate is nil. On error the ReleaseFunc is a no-op.
func Install(reg Registry, domain, svc string, mutate MutateFunc, opts ...Option) (ReleaseFunc, error) {
	o := options{logger: noopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meter == nil {
		o.meter = otel.Meter(meterName)
	}

	key := domain + "." + svc

	if mutate == nil {
		return noopRelease, fmt.Errorf("%w: %s", ErrNilMutate, key)
	}

	original, ok := reg.Lookup(domain, svc)
	if !ok {
		o.logger.Error("cannot intercept service, not registered", "service", key)
		return noopRelease, fmt.Errorf("%w: %s", ErrTargetNotFound, key)
	}

	p := newProxy(key, original, mutate, o)
	if err := reg.Replace(domain, svc, p); err != nil {
		o.logger.Error("cannot intercept service", "service", key, "error", err)
		return noopRelease, fmt.Errorf("installing proxy for %s: %w", key, err)
	}
	o.logger.Info("service intercepted", "service", key)

	var once sync.Once
	release := func() {
		once.Do(func() {
			p.released.Store(true)

			current, ok := reg.Lookup(domain, svc)
			if !ok || current != service.Handler(p) {
				o.logger.Warn("service slot was reassigned after intercept, restoring original anyway",
					"service", key,
				)
			}
			if err := reg.Replace(domain, svc, original); err != nil {
				o.logger.Error("restoring intercepted service failed", "service", key, "error", err)
				return
			}
			o.logger.Info("service interception released", "service", key)
		})
	}
	return release, nil
}

// proxy is the handler installed in place of the original.
type proxy struct {
	key      string
	original service.Handler
	mutate   MutateFunc
	logger   Logger

	calls        metric.Int64Counter
	mutateErrors metric.Int64Counter
	attrs        metric.MeasurementOption

	// released turns the proxy into a pass-through once its release function
	// has run, in case another proxy still delegates to it.
	released atomic.Bool
}

func newProxy(key string, original service.Handler, mutate MutateFunc, o options) *proxy {
	// On error the OTel API returns noop instruments.
	calls, _ := o.meter.Int64Counter(
		"smoothlights.intercept.calls",
		metric.WithDescription("Service calls that passed through an interceptor"),
		metric.WithUnit("{call}"),
	)
	mutateErrors, _ := o.meter.Int64Counter(
		"smoothlights.intercept.mutate_errors",
		metric.WithDescription("Mutate functions that returned an error or panicked"),
		metric.WithUnit("{error}"),
	)

	return &proxy{
		key:          key,
		original:     original,
		mutate:       mutate,
		logger:       o.logger,
		calls:        calls,
		mutateErrors: mutateErrors,
		attrs:        metric.WithAttributes(attribute.String("service", key)),
	}
}

// HandleCall implements service.Handler.
func (p *proxy) HandleCall(ctx context.Context, call *service.Call) error {
	if p.released.Load() {
		return p.original.HandleCall(ctx, call)
	}

	data := call.Data()
	if err := p.runMutate(call, data); err != nil {
		p.mutateErrors.Add(ctx, 1, p.attrs)
		p.logger.Error("intercept mutate failed, forwarding call",
			"service", p.key,
			"context_id", call.Context().ID,
			"error", err,
		)
	}
	p.calls.Add(ctx, 1, p.attrs)

	return p.original.HandleCall(ctx, service.NewCall(call.Domain(), call.Service(), data, call.Context()))
}

// runMutate calls mutate and converts a panic into an error.
func (p *proxy) runMutate(call *service.Call, data service.Data) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMutatePanic, r)
		}
	}()
	return p.mutate(call, data)
}

package smoothlights

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/nerrad567/gray-logic-smoothlights/internal/intercept"
	"github.com/nerrad567/gray-logic-smoothlights/internal/transition"
)

// Integration identity and settings keys.
const (
	// Domain identifies config entries owned by this integration.
	Domain = "smooth_lights"

	// Title is the title given to the config entry created by setup.
	Title = "Smooth Lights"

	ConfTransitionTime  = "transition_time"
	ConfExcludeEntities = "exclude_entities"

	// DefaultTargetDomain and DefaultTargetService name the intercepted service.
	DefaultTargetDomain  = "light"
	DefaultTargetService = "turn_on"
)

// Logger defines the logging interface used by the integration.
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

// Option configures an Integration.
type Option func(*Integration)

// WithTarget overrides the intercepted (domain, service). Empty values keep
// the defaults.
func WithTarget(domain, svc string) Option {
	return func(i *Integration) {
		if domain != "" {
			i.domain = domain
		}
		if svc != "" {
			i.service = svc
		}
	}
}

// WithLogger sets the logger passed to the policy and the interceptor.
func WithLogger(l Logger) Option {
	return func(i *Integration) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithMeter sets the OpenTelemetry meter for interception counters.
func WithMeter(m metric.Meter) Option {
	return func(i *Integration) {
		i.meter = m
	}
}

// WithRecorder sets the recorder every policy decision is reported to.
func WithRecorder(r transition.Recorder) Option {
	return func(i *Integration) {
		i.recorder = r
	}
}

// Integration activates and deactivates transition injection.
type Integration struct {
	reg      intercept.Registry
	domain   string
	service  string
	logger   Logger
	meter    metric.Meter
	recorder transition.Recorder
}

// New creates an Integration that installs on reg.
func New(reg intercept.Registry, opts ...Option) *Integration {
	i := &Integration{
		reg:     reg,
		domain:  DefaultTargetDomain,
		service: DefaultTargetService,
		logger:  noopLogger{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Handle is the state of one activation. It owns the interceptor's release
// function; the zero value is not usable.
type Handle struct {
	policy    *transition.Policy
	release   intercept.ReleaseFunc
	installed bool

	once sync.Once
}

// Config returns the settings this activation runs with.
func (h *Handle) Config() transition.Config {
	return h.policy.Config()
}

// Installed reports whether the interceptor was installed. It is false when
// the target service was missing at activation.
func (h *Handle) Installed() bool {
	return h.installed
}

// Activate validates cfg, builds the policy and installs it on the target
// service.
//
// Parameters:
//   - ctx: Cancellation for the activation
//   - cfg: Settings from the config entry
//
// Returns:
//   - *Handle: Pass to Deactivate. Non-nil even when the target is missing.
//   - error: ErrInvalidConfig, or a context error
func (i *Integration) Activate(ctx context.Context, cfg transition.Config) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	policyOpts := []transition.Option{transition.WithLogger(i.logger)}
	if i.recorder != nil {
		policyOpts = append(policyOpts, transition.WithRecorder(i.recorder))
	}
	policy := transition.NewPolicy(cfg, policyOpts...)

	interceptOpts := []intercept.Option{intercept.WithLogger(i.logger)}
	if i.meter != nil {
		interceptOpts = append(interceptOpts, intercept.WithMeter(i.meter))
	}

	release, err := intercept.Install(i.reg, i.domain, i.service, policy.Mutate, interceptOpts...)
	switch {
	case errors.Is(err, intercept.ErrTargetNotFound):
		// Install already logged the missing target.
	case err != nil:
		return nil, fmt.Errorf("installing transition policy: %w", err)
	}

	h := &Handle{
		policy:    policy,
		release:   release,
		installed: err == nil,
	}

	i.logger.Info("smooth lights activated",
		"target", i.domain+"."+i.service,
		"transition_time", cfg.TransitionTime,
		"excluded", len(cfg.ExcludeEntities),
		"installed", h.installed,
	)
	return h, nil
}

// Deactivate releases the interceptor held by h. It is idempotent and
// accepts a nil handle.
func (i *Integration) Deactivate(_ context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		h.release()
		i.logger.Info("smooth lights deactivated", "target", i.domain+"."+i.service)
	})
	return nil
}

package transition

import (
	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
)

// Decision is the outcome of evaluating one call.
type Decision string

const (
	// DecisionInjected means the default transition was added.
	DecisionInjected Decision = "injected"

	// DecisionTransitionPresent means the caller already set a transition.
	DecisionTransitionPresent Decision = "transition_present"

	// DecisionNoTarget means the call had no entity_id.
	DecisionNoTarget Decision = "no_target"

	// DecisionExcluded means at least one target entity is excluded.
	DecisionExcluded Decision = "excluded"
)

// Recorder receives every decision the policy makes.
type Recorder interface {
	RecordDecision(decision Decision, entities []string, transition float64)
}

// Logger defines the logging interface used by the policy.
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

// Option configures a Policy.
type Option func(*Policy)

// WithRecorder sets a Recorder for decision telemetry.
func WithRecorder(r Recorder) Option {
	return func(p *Policy) {
		p.recorder = r
	}
}

// WithLogger sets the logger for per-call debug output.
func WithLogger(l Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// Policy injects a default transition into light.turn_on payloads.
// A Policy is immutable after NewPolicy and safe for concurrent use.
type Policy struct {
	cfg      Config
	excluded map[string]struct{}
	recorder Recorder
	logger   Logger
}

// NewPolicy creates a Policy over a copy of cfg. The caller is expected to
// have validated cfg.
func NewPolicy(cfg Config, opts ...Option) *Policy {
	cfg = cfg.Clone()
	excluded := make(map[string]struct{}, len(cfg.ExcludeEntities))
	for _, id := range cfg.ExcludeEntities {
		excluded[id] = struct{}{}
	}

	p := &Policy{
		cfg:      cfg,
		excluded: excluded,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns a copy of the policy's configuration.
func (p *Policy) Config() Config {
	return p.cfg.Clone()
}

// Decide evaluates a payload without changing it.
//
// Returns the decision, the normalised target entity list, and
// service.ErrInvalidEntityRef if entity_id has an unsupported shape.
func (p *Policy) Decide(data service.Data) (Decision, []string, error) {
	if data.HasTransition() {
		return DecisionTransitionPresent, nil, nil
	}

	entities, err := data.EntityIDs()
	if err != nil {
		return "", nil, err
	}
	if entities == nil {
		return DecisionNoTarget, nil, nil
	}

	for _, id := range entities {
		if _, ok := p.excluded[id]; ok {
			p.logger.Debug("skipping transition for excluded entity", "entity_id", id)
			return DecisionExcluded, entities, nil
		}
	}
	return DecisionInjected, entities, nil
}

// Mutate applies the policy to data in place. It has the signature of
// intercept.MutateFunc.
func (p *Policy) Mutate(_ *service.Call, data service.Data) error {
	decision, entities, err := p.Decide(data)
	if err != nil {
		return err
	}

	if decision == DecisionInjected {
		data.SetTransition(p.cfg.TransitionTime)
		p.logger.Debug("added transition to light.turn_on",
			"transition", p.cfg.TransitionTime,
			"entity_ids", entities,
		)
	}

	if p.recorder != nil {
		transition, _ := data.Transition()
		p.recorder.RecordDecision(decision, entities, transition)
	}
	return nil
}

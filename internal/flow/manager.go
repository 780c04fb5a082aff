package flow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-smoothlights/internal/entry"
	"github.com/nerrad567/gray-logic-smoothlights/internal/smoothlights"
	"github.com/nerrad567/gray-logic-smoothlights/internal/transition"
)

// ResultType is the kind of step result.
type ResultType string

const (
	ResultForm        ResultType = "form"
	ResultCreateEntry ResultType = "create_entry"
	ResultAbort       ResultType = "abort"
)

// Step IDs.
const (
	StepUser = "user"
	StepInit = "init"
)

// ReasonSingleInstance is the abort reason when an entry already exists.
const ReasonSingleInstance = "single_instance_allowed"

const (
	// flowTTL is how long a flow may sit untouched before it is discarded.
	flowTTL = 30 * time.Minute

	// sweepInterval is how often RunCleanup looks for idle flows.
	sweepInterval = 5 * time.Minute
)

// Result is returned by every flow operation.
type Result struct {
	FlowID     string            `json:"flow_id"`
	Handler    string            `json:"handler"`
	Type       ResultType        `json:"type"`
	StepID     string            `json:"step_id,omitempty"`
	DataSchema []Field           `json:"data_schema,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Title      string            `json:"title,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Entry      *entry.Entry      `json:"result,omitempty"`
}

// Entries is the entry store the flows write to. *entry.Manager satisfies it.
type Entries interface {
	List(ctx context.Context) []entry.Entry
	Get(ctx context.Context, id string) (*entry.Entry, error)
	Create(ctx context.Context, title string, data transition.Config) (*entry.Entry, error)
	Update(ctx context.Context, id string, data transition.Config) (*entry.Entry, error)
}

// Logger defines the logging interface used by the flow manager.
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

// flowState is one in-progress flow.
type flowState struct {
	id      string
	handler string
	step    string
	entryID string
	current transition.Config
	touched time.Time
}

// Manager runs config and options flows.
type Manager struct {
	entries  Entries
	defaults transition.Config

	mu     sync.Mutex
	flows  map[string]*flowState
	logger Logger
	now    func() time.Time
}

// NewManager creates a flow manager. defaults pre-fill the setup form.
func NewManager(entries Entries, defaults transition.Config) *Manager {
	return &Manager{
		entries:  entries,
		defaults: defaults.Clone(),
		flows:    make(map[string]*flowState),
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Start begins the setup flow for handler.
//
// Returns:
//   - *Result: the user form, or an abort when an entry already exists
//   - error: ErrUnknownHandler for anything but the smooth_lights handler
func (m *Manager) Start(ctx context.Context, handler string) (*Result, error) {
	if handler != smoothlights.Domain {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHandler, handler)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries.List(ctx)) > 0 {
		return &Result{
			FlowID:  uuid.NewString(),
			Handler: handler,
			Type:    ResultAbort,
			Reason:  ReasonSingleInstance,
		}, nil
	}

	f := &flowState{
		id:      uuid.NewString(),
		handler: handler,
		step:    StepUser,
		current: m.defaults.Clone(),
		touched: m.now(),
	}
	m.flows[f.id] = f
	m.logger.Debug("config flow started", "flow_id", f.id, "step", f.step)
	return f.form(nil), nil
}

// StartOptions begins the options flow for an existing entry, pre-filled
// with its current data.
func (m *Manager) StartOptions(ctx context.Context, entryID string) (*Result, error) {
	e, err := m.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f := &flowState{
		id:      uuid.NewString(),
		handler: entryID,
		step:    StepInit,
		entryID: entryID,
		current: e.Data.Clone(),
		touched: m.now(),
	}
	m.flows[f.id] = f
	m.logger.Debug("options flow started", "flow_id", f.id, "entry_id", entryID)
	return f.form(nil), nil
}

// Configure submits input to the flow's current step.
//
// Field errors return the same form with Errors set and keep the flow open.
// On success the flow finishes: the user step creates the entry, the init
// step replaces the entry data and reloads it.
//
// Parameters:
//   - ctx: Context for entry storage and activation
//   - flowID: ID from Start or StartOptions
//   - input: Field values keyed by field name
//
// Returns:
//   - *Result: form, create_entry or abort
//   - error: ErrFlowNotFound, or an entry storage error
func (m *Manager) Configure(ctx context.Context, flowID string, input map[string]any) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.lookupLocked(flowID)
	if !ok {
		return nil, ErrFlowNotFound
	}

	cfg, fieldErrs := parseInput(input, f.current)
	if len(fieldErrs) > 0 {
		return f.form(fieldErrs), nil
	}

	switch f.step {
	case StepUser:
		if len(m.entries.List(ctx)) > 0 {
			delete(m.flows, flowID)
			return &Result{FlowID: f.id, Handler: f.handler, Type: ResultAbort, Reason: ReasonSingleInstance}, nil
		}
		e, err := m.entries.Create(ctx, smoothlights.Title, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating entry: %w", err)
		}
		delete(m.flows, flowID)
		m.logger.Info("config flow finished", "flow_id", f.id, "entry_id", e.ID)
		return &Result{FlowID: f.id, Handler: f.handler, Type: ResultCreateEntry, Title: e.Title, Entry: e}, nil

	default: // StepInit
		e, err := m.entries.Update(ctx, f.entryID, cfg)
		if err != nil {
			return nil, fmt.Errorf("updating entry: %w", err)
		}
		delete(m.flows, flowID)
		m.logger.Info("options flow finished", "flow_id", f.id, "entry_id", e.ID)
		return &Result{FlowID: f.id, Handler: f.handler, Type: ResultCreateEntry, Entry: e}, nil
	}
}

// Progress returns the current form of an open flow.
func (m *Manager) Progress(flowID string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.lookupLocked(flowID)
	if !ok {
		return nil, ErrFlowNotFound
	}
	return f.form(nil), nil
}

// Abort discards an open flow.
func (m *Manager) Abort(flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.flows[flowID]; !ok {
		return ErrFlowNotFound
	}
	delete(m.flows, flowID)
	return nil
}

// InProgress lists the open flows ordered by ID.
func (m *Manager) InProgress() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(m.now())
	out := make([]Result, 0, len(m.flows))
	for _, f := range m.flows {
		out = append(out, *f.form(nil))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlowID < out[j].FlowID })
	return out
}

// Sweep discards flows idle for longer than flowTTL and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now)
}

// RunCleanup sweeps idle flows until ctx is cancelled.
func (m *Manager) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				m.logger.Info("discarded idle flows", "count", n)
			}
		}
	}
}

func (m *Manager) sweepLocked(now time.Time) int {
	removed := 0
	for id, f := range m.flows {
		if f.expired(now) {
			delete(m.flows, id)
			removed++
		}
	}
	return removed
}

// lookupLocked returns an open flow and marks it as used. An expired flow is
// removed and reported as missing even if no sweep has run yet.
func (m *Manager) lookupLocked(flowID string) (*flowState, bool) {
	f, ok := m.flows[flowID]
	if !ok {
		return nil, false
	}
	now := m.now()
	if f.expired(now) {
		delete(m.flows, flowID)
		return nil, false
	}
	f.touched = now
	return f, true
}

func (f *flowState) expired(now time.Time) bool {
	return now.Sub(f.touched) > flowTTL
}

func (f *flowState) form(errs map[string]string) *Result {
	return &Result{
		FlowID:     f.id,
		Handler:    f.handler,
		Type:       ResultForm,
		StepID:     f.step,
		DataSchema: formSchema(f.current),
		Errors:     errs,
	}
}

package entry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-smoothlights/internal/smoothlights"
	"github.com/nerrad567/gray-logic-smoothlights/internal/transition"
)

// Logger defines the logging interface used by the Manager.
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

// Integration activates entries. *smoothlights.Integration satisfies it.
type Integration interface {
	Activate(ctx context.Context, cfg transition.Config) (*smoothlights.Handle, error)
	Deactivate(ctx context.Context, h *smoothlights.Handle) error
}

// Change describes what happened to an entry.
type Change string

const (
	ChangeCreated Change = "created"
	ChangeUpdated Change = "updated"
	ChangeRemoved Change = "removed"
)

// Observer is notified after an entry is created, updated or removed.
// Notifications are delivered without the manager's lock held.
type Observer interface {
	EntryChanged(change Change, e Entry)
}

// Manager owns the config entries and their activation handles.
type Manager struct {
	repo        Repository
	integration Integration

	mu        sync.Mutex
	entries   map[string]*Entry
	handles   map[string]*smoothlights.Handle
	observers []Observer

	logger Logger
}

// NewManager creates a Manager. Call LoadAll before serving requests.
func NewManager(repo Repository, integration Integration) *Manager {
	return &Manager{
		repo:        repo,
		integration: integration,
		entries:     make(map[string]*Entry),
		handles:     make(map[string]*smoothlights.Handle),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// AddObserver registers o for entry changes. Call before LoadAll.
func (m *Manager) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// LoadAll reads every stored entry and activates it.
//
// Activation failures are logged and leave the entry in StateSetupError;
// only a storage failure is returned.
func (m *Manager) LoadAll(ctx context.Context) error {
	stored, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading config entries: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for i := range stored {
		e := stored[i].DeepCopy()
		if _, active := m.handles[e.ID]; active {
			continue
		}
		m.entries[e.ID] = e
		if m.setupLocked(ctx, e) == nil {
			loaded++
		}
	}

	m.logger.Info("config entries loaded", "count", len(stored), "active", loaded)
	return nil
}

// Create stores a new entry and activates it.
//
// Parameters:
//   - ctx: Context for storage and activation
//   - title: Display title
//   - data: Integration settings; validated before anything is stored
//
// Returns:
//   - *Entry: The stored entry. Its State reports whether activation succeeded.
//   - error: ErrInvalidEntry or a storage error
func (m *Manager) Create(ctx context.Context, title string, data transition.Config) (*Entry, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	e := &Entry{
		ID:      uuid.NewString(),
		Domain:  smoothlights.Domain,
		Title:   title,
		Version: CurrentVersion,
		Data:    normalise(data),
		Source:  SourceUser,
		State:   StateNotLoaded,
	}
	if err := m.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("storing entry: %w", err)
	}

	m.mu.Lock()
	m.entries[e.ID] = e
	_ = m.setupLocked(ctx, e) //nolint:errcheck // Logged; the entry exists regardless
	snapshot := *e.DeepCopy()
	observers := m.observers
	m.mu.Unlock()

	m.logger.Info("config entry created", "entry_id", e.ID, "title", e.Title)
	notify(observers, ChangeCreated, snapshot)
	return &snapshot, nil
}

// Update replaces an entry's data wholesale and reloads it.
func (m *Manager) Update(ctx context.Context, id string, data transition.Config) (*Entry, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	m.mu.Lock()
	current, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrEntryNotFound
	}

	updated := current.DeepCopy()
	updated.Data = normalise(data)
	if err := m.repo.Update(ctx, updated); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("storing entry: %w", err)
	}
	m.entries[id] = updated

	if err := m.unloadLocked(ctx, updated); err != nil {
		m.logger.Warn("unloading entry for reload failed", "entry_id", id, "error", err)
	}
	_ = m.setupLocked(ctx, updated) //nolint:errcheck // Logged; state records the failure
	snapshot := *updated.DeepCopy()
	observers := m.observers
	m.mu.Unlock()

	m.logger.Info("config entry updated", "entry_id", id)
	notify(observers, ChangeUpdated, snapshot)
	return &snapshot, nil
}

// Reload deactivates and re-activates an entry with its stored data.
func (m *Manager) Reload(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	if err := m.unloadLocked(ctx, e); err != nil {
		return fmt.Errorf("unloading entry: %w", err)
	}
	return m.setupLocked(ctx, e)
}

// Delete unloads an entry and removes it from storage.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return ErrEntryNotFound
	}

	if err := m.unloadLocked(ctx, e); err != nil {
		m.logger.Warn("unloading entry for removal failed", "entry_id", id, "error", err)
	}
	if err := m.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrEntryNotFound) {
		m.mu.Unlock()
		return fmt.Errorf("deleting entry: %w", err)
	}
	delete(m.entries, id)
	snapshot := *e.DeepCopy()
	observers := m.observers
	m.mu.Unlock()

	m.logger.Info("config entry removed", "entry_id", id)
	notify(observers, ChangeRemoved, snapshot)
	return nil
}

// Get returns a copy of an entry.
func (m *Manager) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return e.DeepCopy(), nil
}

// List returns copies of all entries, oldest first.
func (m *Manager) List(_ context.Context) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Shutdown unloads every entry. Stored entries are untouched.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, e := range m.entries {
		if err := m.unloadLocked(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("unloading %s: %w", e.ID, err))
		}
	}
	m.logger.Info("config entries unloaded", "count", len(m.entries))
	return errors.Join(errs...)
}

// setupLocked activates e and records the resulting state.
func (m *Manager) setupLocked(ctx context.Context, e *Entry) error {
	h, err := m.integration.Activate(ctx, e.Data)
	if err != nil {
		e.State = StateSetupError
		m.logger.Error("config entry setup failed", "entry_id", e.ID, "error", err)
		return err
	}
	m.handles[e.ID] = h
	e.State = StateLoaded
	return nil
}

// unloadLocked deactivates e if it is active and clears its handle.
func (m *Manager) unloadLocked(ctx context.Context, e *Entry) error {
	h, ok := m.handles[e.ID]
	if !ok {
		e.State = StateNotLoaded
		return nil
	}
	delete(m.handles, e.ID)
	e.State = StateNotLoaded
	return m.integration.Deactivate(ctx, h)
}

// normalise copies data and replaces a nil exclusion list with an empty one.
func normalise(data transition.Config) transition.Config {
	data = data.Clone()
	if data.ExcludeEntities == nil {
		data.ExcludeEntities = []string{}
	}
	return data
}

func notify(observers []Observer, change Change, e Entry) {
	for _, o := range observers {
		o.EntryChanged(change, e)
	}
}

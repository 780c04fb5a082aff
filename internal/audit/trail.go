package audit

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-smoothlights/internal/entry"
)

// writeTimeout bounds each audit insert; observers carry no context.
const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by Trail.
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

// Trail records entry changes. Register it with entry.Manager.AddObserver.
type Trail struct {
	repo   Repository
	logger Logger
}

// NewTrail creates a Trail writing to repo.
func NewTrail(repo Repository) *Trail {
	return &Trail{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the trail.
func (t *Trail) SetLogger(logger Logger) {
	t.logger = logger
}

// EntryChanged implements entry.Observer. Write failures are logged, never
// propagated to the entry manager.
func (t *Trail) EntryChanged(change entry.Change, e entry.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	excluded := e.Data.ExcludeEntities
	if excluded == nil {
		excluded = []string{}
	}
	rec := &Record{
		Action:  string(change),
		EntryID: e.ID,
		Title:   e.Title,
		Details: map[string]any{
			"state":            string(e.State),
			"transition_time":  e.Data.TransitionTime,
			"exclude_entities": excluded,
		},
	}
	if err := t.repo.Create(ctx, rec); err != nil {
		t.logger.Error("writing audit record failed", "entry_id", e.ID, "action", rec.Action, "error", err)
		return
	}
	t.logger.Debug("audit record written", "id", rec.ID, "entry_id", e.ID, "action", rec.Action)
}

var _ entry.Observer = (*Trail)(nil)

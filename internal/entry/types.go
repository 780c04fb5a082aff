package entry

import (
	"time"

	"github.com/nerrad567/gray-logic-smoothlights/internal/transition"
)

// State is the runtime state of an entry. It is not persisted.
type State string

const (
	// StateNotLoaded means the entry is stored but not activated.
	StateNotLoaded State = "not_loaded"

	// StateLoaded means the entry's integration is active.
	StateLoaded State = "loaded"

	// StateSetupError means activation failed; see the logs.
	StateSetupError State = "setup_error"
)

// Source values record how an entry was created.
const (
	SourceUser = "user"
)

// CurrentVersion is the schema version of Entry.Data.
const CurrentVersion = 1

// Entry is one configured integration instance.
type Entry struct {
	ID        string            `json:"entry_id"`
	Domain    string            `json:"domain"`
	Title     string            `json:"title"`
	Version   int               `json:"version"`
	Data      transition.Config `json:"data"`
	Source    string            `json:"source"`
	State     State             `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// DeepCopy returns a copy that shares no slices with e.
func (e *Entry) DeepCopy() *Entry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Data = e.Data.Clone()
	return &cp
}

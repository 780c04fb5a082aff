package transition

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Transition time limits in seconds.
const (
	DefaultTransitionTime = 4.0
	MinTransitionTime     = 0.0
	MaxTransitionTime     = 60.0
)

// entityIDPattern matches domain.object_id with lower-case letters, digits
// and underscores.
var entityIDPattern = regexp.MustCompile(`^[a-z0-9_]+\.[a-z0-9_]+$`)

// Config is the policy configuration for one activation.
// It is replaced wholesale on reconfiguration, never patched.
type Config struct {
	// TransitionTime is the fade duration injected into calls, in seconds.
	TransitionTime float64 `json:"transition_time" yaml:"transition_time"`

	// ExcludeEntities lists entity IDs that never get a transition.
	ExcludeEntities []string `json:"exclude_entities" yaml:"exclude_entities"`
}

// DefaultConfig returns a Config with the default transition and no
// exclusions.
func DefaultConfig() Config {
	return Config{
		TransitionTime:  DefaultTransitionTime,
		ExcludeEntities: []string{},
	}
}

// Validate checks the transition range and every excluded entity ID.
// All problems are reported; each wraps ErrInvalidTransition or
// ErrInvalidEntityID.
func (c Config) Validate() error {
	var errs []error

	if math.IsNaN(c.TransitionTime) || c.TransitionTime < MinTransitionTime || c.TransitionTime > MaxTransitionTime {
		errs = append(errs, fmt.Errorf("%w: %v not in [%v, %v]",
			ErrInvalidTransition, c.TransitionTime, MinTransitionTime, MaxTransitionTime))
	}
	for _, id := range c.ExcludeEntities {
		if !ValidEntityID(id) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidEntityID, id))
		}
	}

	return errors.Join(errs...)
}

// Clone returns a copy that shares no memory with c.
func (c Config) Clone() Config {
	cpy := c
	if c.ExcludeEntities != nil {
		cpy.ExcludeEntities = make([]string, len(c.ExcludeEntities))
		copy(cpy.ExcludeEntities, c.ExcludeEntities)
	}
	return cpy
}

// IsExcluded reports whether the entity is in the exclusion list.
func (c Config) IsExcluded(entityID string) bool {
	for _, id := range c.ExcludeEntities {
		if id == entityID {
			return true
		}
	}
	return false
}

// ValidEntityID reports whether id has the form domain.object_id.
// Neither part may start or end with an underscore, and the domain may not
// contain a double underscore.
func ValidEntityID(id string) bool {
	if !entityIDPattern.MatchString(id) {
		return false
	}
	domain, object, _ := strings.Cut(id, ".")
	for _, part := range []string{domain, object} {
		if strings.HasPrefix(part, "_") || strings.HasSuffix(part, "_") {
			return false
		}
	}
	return !strings.Contains(domain, "__")
}

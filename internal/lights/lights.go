package lights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
)

// Domain is the service domain this package registers.
const Domain = "light"

// Service names in the light domain.
const (
	ServiceTurnOn  = "turn_on"
	ServiceTurnOff = "turn_off"
	ServiceToggle  = "toggle"
)

// commandQoS is the QoS for bridge commands (at least once).
const commandQoS = 1

// paramFadeMS is the bridge parameter carrying the fade in milliseconds.
const paramFadeMS = "fade_ms"

// Publisher sends MQTT messages. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger defines the logging interface used by the light domain.
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

// CommandMessage is published to a bridge for one entity.
type CommandMessage struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	DeviceID   string         `json:"device_id"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Source     string         `json:"source"`
	ContextID  string         `json:"context_id,omitempty"`
}

// Lights owns the light domain handlers.
type Lights struct {
	pub    Publisher
	topics mqtt.Topics
	logger Logger
	now    func() time.Time
}

// New creates the light domain publishing through pub.
func New(pub Publisher) *Lights {
	return &Lights{
		pub:    pub,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the light domain.
func (l *Lights) SetLogger(logger Logger) {
	l.logger = logger
}

// Register adds turn_on, turn_off and toggle to the registry.
func (l *Lights) Register(reg *service.Registry) error {
	services := []struct {
		name    string
		command string
	}{
		{ServiceTurnOn, "on"},
		{ServiceTurnOff, "off"},
		{ServiceToggle, "toggle"},
	}

	for _, s := range services {
		h := &commandHandler{lights: l, command: s.command}
		if err := reg.Register(Domain, s.name, h); err != nil {
			return fmt.Errorf("registering %s.%s: %w", Domain, s.name, err)
		}
	}
	return nil
}

// commandHandler maps one service to one bridge command.
type commandHandler struct {
	lights  *Lights
	command string
}

// HandleCall implements service.Handler.
func (h *commandHandler) HandleCall(ctx context.Context, call *service.Call) error {
	return h.lights.send(ctx, call, h.command)
}

// send publishes one command per target entity. All entities are attempted;
// failures are joined into the returned error.
func (l *Lights) send(ctx context.Context, call *service.Call, command string) error {
	data := call.Data()
	entities, err := data.EntityIDs()
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return fmt.Errorf("%w: %s", ErrNoTarget, call)
	}

	params := buildParameters(data)
	source := "service:" + call.String()

	var errs []error
	for _, entityID := range entities {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		msg := CommandMessage{
			ID:         uuid.NewString(),
			Timestamp:  l.now().UTC(),
			DeviceID:   entityID,
			Command:    command,
			Parameters: params,
			Source:     source,
			ContextID:  call.Context().ID,
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return errors.Join(append(errs, fmt.Errorf("marshalling command: %w", err))...)
		}

		topic := l.topics.BridgeCommand(Domain, entityID)
		if err := l.pub.Publish(topic, payload, commandQoS, false); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrPublishFailed, entityID, err))
			continue
		}

		l.logger.Debug("light command published",
			"entity_id", entityID,
			"command", command,
			"topic", topic,
			"context_id", call.Context().ID,
		)
	}
	return errors.Join(errs...)
}

// buildParameters copies every key except entity_id and derives fade_ms from
// a numeric transition.
func buildParameters(data service.Data) map[string]any {
	params := data.Without(service.AttrEntityID)
	if seconds, ok := data.Transition(); ok && seconds >= 0 {
		params[paramFadeMS] = int(math.Round(seconds * 1000))
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

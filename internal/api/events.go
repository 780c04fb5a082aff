package api

import (
	"github.com/nerrad567/gray-logic-smoothlights/internal/entry"
	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
)

// Event channels clients can subscribe to.
const (
	ChannelServiceCalled = "service.called"
	ChannelEntryUpdated  = "entry.updated"
)

// ServiceCalledEvent is broadcast after every dispatched service call.
type ServiceCalledEvent struct {
	Domain  string          `json:"domain"`
	Service string          `json:"service"`
	Data    service.Data    `json:"service_data"`
	Context service.Context `json:"context"`
	Error   string          `json:"error,omitempty"`
}

// EntryUpdatedEvent is broadcast when a config entry is created, updated or removed.
type EntryUpdatedEvent struct {
	Change entry.Change `json:"change"`
	Entry  entry.Entry  `json:"entry"`
}

// ServiceCalled implements service.Observer. The payload is the data as the
// caller sent it, before any interceptor rewrote it.
func (h *Hub) ServiceCalled(call *service.Call, err error) {
	ev := ServiceCalledEvent{
		Domain:  call.Domain(),
		Service: call.Service(),
		Data:    call.Data(),
		Context: call.Context(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	h.Broadcast(ChannelServiceCalled, ev)
}

// EntryChanged implements entry.Observer.
func (h *Hub) EntryChanged(change entry.Change, e entry.Entry) {
	h.Broadcast(ChannelEntryUpdated, EntryUpdatedEvent{Change: change, Entry: e})
}

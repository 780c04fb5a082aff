package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Instrument names read back from the collector.
const (
	interceptCallsMetric        = "smoothlights.intercept.calls"
	interceptMutateErrorsMetric = "smoothlights.intercept.mutate_errors"
)

// ConnectionStatus reports whether a transport is connected.
// *mqtt.Client satisfies it.
type ConnectionStatus interface {
	IsConnected() bool
}

// MetricsCollector reads the current state of the OpenTelemetry
// instruments. *sdkmetric.ManualReader satisfies it.
type MetricsCollector interface {
	Collect(ctx context.Context, rm *metricdata.ResourceMetrics) error
}

// SystemMetrics is the GET /metrics response.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	WebSocket     WSMetrics         `json:"websocket"`
	MQTT          *MQTTMetrics      `json:"mqtt,omitempty"`
	Entries       EntryMetrics      `json:"entries"`
	Services      int               `json:"services"`
	OpenFlows     int               `json:"open_flows"`
	Interception  *InterceptMetrics `json:"interception,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// InterceptMetrics sums the interception counters across all services.
type InterceptMetrics struct {
	Calls        int64 `json:"calls"`
	MutateErrors int64 `json:"mutate_errors"`
}

// EntryMetrics counts config entries by state.
type EntryMetrics struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
}

// handleMetrics returns process and integration statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Services:  len(s.services.Services()),
		OpenFlows: len(s.flows.InProgress()),
	}

	if s.mqtt != nil {
		metrics.MQTT = &MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}

	entries := s.entries.List(r.Context())
	metrics.Entries = EntryMetrics{Total: len(entries), ByState: make(map[string]int)}
	for _, e := range entries {
		metrics.Entries.ByState[string(e.State)]++
	}

	if s.telemetry != nil {
		im, err := collectInterception(r.Context(), s.telemetry)
		if err != nil {
			s.logger.Warn("collecting interception metrics failed", "error", err)
		} else {
			metrics.Interception = im
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}

// collectInterception sums every data point of the interception counters.
func collectInterception(ctx context.Context, c MetricsCollector) (*InterceptMetrics, error) {
	var rm metricdata.ResourceMetrics
	if err := c.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	im := &InterceptMetrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			switch m.Name {
			case interceptCallsMetric:
				im.Calls += total
			case interceptMutateErrorsMetric:
				im.MutateErrors += total
			}
		}
	}
	return im, nil
}

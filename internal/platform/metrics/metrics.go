// Package metrics provides observability counters for the status server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers status engine counters.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	TickFaults     int64
	LastTickTime   time.Time

	// Registry metrics
	StatusAdded    int64
	StatusRemoved  int64
	StatusRejected int64
	StatusExpired  int64

	// Persistence metrics
	StoreWrites        int64
	StoreWriteLatSum   int64
	StoreWriteLatMax   int64
	PersistenceFailure int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	StartTime time.Time
	mu        sync.RWMutex
}

var collector = New()

// New creates an isolated collector; tests use it to avoid the global one.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordTickFault records a contained tick failure.
func (c *Collector) RecordTickFault() {
	atomic.AddInt64(&c.TickFaults, 1)
}

// RecordStatusAdded records a successful registry insert.
func (c *Collector) RecordStatusAdded() {
	atomic.AddInt64(&c.StatusAdded, 1)
}

// RecordStatusRemoved records a registry removal; expired marks removals
// driven by the tick rather than by a requester.
func (c *Collector) RecordStatusRemoved(expired bool) {
	atomic.AddInt64(&c.StatusRemoved, 1)
	if expired {
		atomic.AddInt64(&c.StatusExpired, 1)
	}
}

// RecordStatusRejected records an add or remove rejected without mutation.
func (c *Collector) RecordStatusRejected() {
	atomic.AddInt64(&c.StatusRejected, 1)
}

// RecordStoreWrite records a persistence call.
func (c *Collector) RecordStoreWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.StoreWrites, 1)
	atomic.AddInt64(&c.StoreWriteLatSum, int64(latency))
	storeMax(&c.StoreWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.PersistenceFailure, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	writes := atomic.LoadInt64(&c.StoreWrites)

	var tickAvg, writeAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if writes > 0 {
		writeAvg = float64(atomic.LoadInt64(&c.StoreWriteLatSum)) / float64(writes) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"faults":         atomic.LoadInt64(&c.TickFaults),
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"status": map[string]interface{}{
			"added":    atomic.LoadInt64(&c.StatusAdded),
			"removed":  atomic.LoadInt64(&c.StatusRemoved),
			"expired":  atomic.LoadInt64(&c.StatusExpired),
			"rejected": atomic.LoadInt64(&c.StatusRejected),
		},

		"store": map[string]interface{}{
			"writes":           writes,
			"avg_write_lat_ms": writeAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.StoreWriteLatMax)) / 1e6,
			"failures":         atomic.LoadInt64(&c.PersistenceFailure),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		_ = json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		counter(w, "worldstatus_tick_count", "Total tick cycles", atomic.LoadInt64(&c.TickCount))
		counter(w, "worldstatus_tick_faults", "Tick faults contained", atomic.LoadInt64(&c.TickFaults))

		fmt.Fprintf(w, "# HELP worldstatus_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE worldstatus_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "worldstatus_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP worldstatus_status_total Status registry transitions\n")
		fmt.Fprintf(w, "# TYPE worldstatus_status_total counter\n")
		fmt.Fprintf(w, "worldstatus_status_total{op=\"added\"} %d\n", atomic.LoadInt64(&c.StatusAdded))
		fmt.Fprintf(w, "worldstatus_status_total{op=\"removed\"} %d\n", atomic.LoadInt64(&c.StatusRemoved))
		fmt.Fprintf(w, "worldstatus_status_total{op=\"expired\"} %d\n", atomic.LoadInt64(&c.StatusExpired))
		fmt.Fprintf(w, "worldstatus_status_total{op=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.StatusRejected))

		counter(w, "worldstatus_store_writes", "Total persistence calls", atomic.LoadInt64(&c.StoreWrites))
		counter(w, "worldstatus_store_failures", "Failed persistence calls", atomic.LoadInt64(&c.PersistenceFailure))

		fmt.Fprintf(w, "# HELP worldstatus_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE worldstatus_ws_connections gauge\n")
		fmt.Fprintf(w, "worldstatus_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP worldstatus_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE worldstatus_ws_messages_total counter\n")
		fmt.Fprintf(w, "worldstatus_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "worldstatus_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}

func counter(w http.ResponseWriter, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n\n", name, v)
}

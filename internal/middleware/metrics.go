package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics. It also receives pipeline outcomes
// (see advisory.Observer).
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64
	RunsQueued         atomic.Uint64
	ReportsTotal       atomic.Uint64
	ReportsDegraded    atomic.Uint64
	OracleFailures     atomic.Uint64
	DeliveryFailures   atomic.Uint64
	ContextWrites      atomic.Uint64
	StartTime          time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) ReportGenerated(degraded bool) {
	m.ReportsTotal.Add(1)
	if degraded {
		m.ReportsDegraded.Add(1)
	}
}

func (m *Metrics) OracleFailed()   { m.OracleFailures.Add(1) }
func (m *Metrics) DeliveryFailed() { m.DeliveryFailures.Add(1) }
func (m *Metrics) RunQueued()      { m.RunsQueued.Add(1) }
func (m *Metrics) ContextWritten() { m.ContextWrites.Add(1) }

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"requests_total":       m.RequestsTotal.Load(),
		"requests_in_progress": m.RequestsInProgress.Load(),
		"requests_success":     m.RequestsSuccess.Load(),
		"requests_failed":      m.RequestsFailed.Load(),
		"runs_queued":          m.RunsQueued.Load(),
		"reports_total":        m.ReportsTotal.Load(),
		"reports_degraded":     m.ReportsDegraded.Load(),
		"oracle_failures":      m.OracleFailures.Load(),
		"delivery_failures":    m.DeliveryFailures.Load(),
		"context_writes":       m.ContextWrites.Load(),
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes": mem.Alloc,
			"sys_bytes":   mem.Sys,
			"num_gc":      mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}

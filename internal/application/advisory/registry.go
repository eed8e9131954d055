package advisory

import (
	"sync"
	"time"
)

// RunStatus enum
type RunStatus string

const (
	RunQueued  RunStatus = "queued"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
)

// Run is the externally visible state of one pipeline execution.
type Run struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	Status      RunStatus  `json:"status"`
	QueuedAt    time.Time  `json:"queued_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Findings    int        `json:"findings"`
	Degraded    []string   `json:"degraded,omitempty"`
	Delivered   bool       `json:"delivered"`
	ArchiveURL  string     `json:"archive_url,omitempty"`
	ReportBytes int        `json:"report_bytes"`
}

const defaultRegistrySize = 100

// Registry keeps the most recent runs in memory.
type Registry struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
	max   int
}

func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = defaultRegistrySize
	}
	return &Registry{runs: make(map[string]*Run), max: max}
}

func (r *Registry) put(run Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		r.order = append(r.order, run.ID)
		for len(r.order) > r.max {
			delete(r.runs, r.order[0])
			r.order = r.order[1:]
		}
	}
	cp := run
	cp.Degraded = append([]string(nil), run.Degraded...)
	r.runs[run.ID] = &cp
}

// Get returns a copy of the run with id.
func (r *Registry) Get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	cp := *run
	cp.Degraded = append([]string(nil), run.Degraded...)
	return cp, true
}

// Len reports how many runs are retained.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

// Latest returns up to limit runs, newest first.
func (r *Registry) Latest(limit int) []Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}
	out := make([]Run, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.runs[r.order[i]]
		cp.Degraded = append([]string(nil), cp.Degraded...)
		out = append(out, cp)
	}
	return out
}

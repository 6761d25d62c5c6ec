// Package testutil holds fakes for aggregate tests: a hooks recorder and a
// transaction runner that injects failures.
package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/fitcoach-backend/internal/data/aggregates"
)

// HooksRecorder keeps every hook call in order.
type HooksRecorder struct {
	mu        sync.Mutex
	ops       []OperationEvent
	conflicts []string
	retries   []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	h.ops = append(h.ops, OperationEvent{Name: name, Status: status, Duration: dur})
	h.mu.Unlock()
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	h.conflicts = append(h.conflicts, name)
	h.mu.Unlock()
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	h.retries = append(h.retries, name)
	h.mu.Unlock()
}

// Statuses lists the recorded statuses of op in call order.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.ops {
		if e.Name == op {
			out = append(out, e.Status)
		}
	}
	return out
}

func (h *HooksRecorder) Conflicts(op string) int { return h.count(h.conflicts, op) }
func (h *HooksRecorder) Retries(op string) int   { return h.count(h.retries, op) }

func (h *HooksRecorder) count(names []string, op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, name := range names {
		if name == op {
			n++
		}
	}
	return n
}

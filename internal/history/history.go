// Package history keeps the most recent processed alerts for audit.
package history

import (
	"sync"

	"github.com/mitchellh/copystructure"

	"medical-alert-service/internal/models"
)

// DefaultCapacity is the number of alerts retained when no capacity is given.
const DefaultCapacity = 100

// History is a fixed-capacity ring; the oldest entry is evicted first.
type History struct {
	mu   sync.RWMutex
	data []models.AlertPayload
	head int
	len  int
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{data: make([]models.AlertPayload, capacity)}
}

// Append adds entry at the end, evicting the oldest entry when full.
func (h *History) Append(entry models.AlertPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tail := (h.head + h.len) % len(h.data)
	h.data[tail] = entry
	if h.len < len(h.data) {
		h.len++
		return
	}
	h.head = (h.head + 1) % len(h.data)
}

// Snapshot returns a deep copy of the stored entries, oldest first.
func (h *History) Snapshot() []models.AlertPayload {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.AlertPayload, 0, h.len)
	for i := 0; i < h.len; i++ {
		out = append(out, clone(h.data[(h.head+i)%len(h.data)]))
	}
	return out
}

// clone copies the maps, slices and pointers of a so callers cannot reach
// stored state.
func clone(a models.AlertPayload) models.AlertPayload {
	c, err := copystructure.Copy(a)
	if err != nil {
		a.Escalation.Teams = append([]string(nil), a.Escalation.Teams...)
		a.Context.Extra = nil
		return a
	}
	return c.(models.AlertPayload)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.len
}

func (h *History) Cap() int {
	return len(h.data)
}

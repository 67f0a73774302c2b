package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-alert-service/internal/models"
)

func alert(i int) models.AlertPayload {
	return models.AlertPayload{ID: fmt.Sprintf("alert-%03d", i)}
}

func TestHistory_KeepsLastHundred(t *testing.T) {
	h := New(DefaultCapacity)
	for i := 0; i < 150; i++ {
		h.Append(alert(i))
		assert.LessOrEqual(t, h.Len(), 100)
	}

	snap := h.Snapshot()
	require.Len(t, snap, 100)
	for i, a := range snap {
		assert.Equal(t, alert(50+i).ID, a.ID)
	}
}

func TestHistory_PartialFillIsOldestFirst(t *testing.T) {
	h := New(10)
	for i := 0; i < 3; i++ {
		h.Append(alert(i))
	}
	snap := h.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "alert-000", snap[0].ID)
	assert.Equal(t, "alert-002", snap[2].ID)
}

func TestHistory_SnapshotIsACopy(t *testing.T) {
	h := New(2)
	h.Append(alert(1))
	snap := h.Snapshot()
	snap[0].ID = "changed"
	assert.Equal(t, "alert-001", h.Snapshot()[0].ID)
}

func TestHistory_SnapshotIsDeep(t *testing.T) {
	h := New(2)
	a := alert(1)
	a.Escalation.Teams = []string{"frontend"}
	a.Context.Extra = map[string]any{"build": "1.4.2"}
	h.Append(a)

	snap := h.Snapshot()
	snap[0].Escalation.Teams[0] = "platform"
	snap[0].Context.Extra["build"] = "tampered"

	again := h.Snapshot()[0]
	assert.Equal(t, []string{"frontend"}, again.Escalation.Teams)
	assert.Equal(t, "1.4.2", again.Context.Extra["build"])
}

func TestHistory_ZeroCapacityUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Cap())
}

func TestHistory_ConcurrentAppendsNeverExceedCapacity(t *testing.T) {
	h := New(100)
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Append(alert(i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, h.Len())
	assert.Len(t, h.Snapshot(), 100)
}

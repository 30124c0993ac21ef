package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureStorage struct {
	mu      sync.Mutex
	batches [][]Event
}

func (c *captureStorage) WriteBatch(_ context.Context, events []Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := make([]Event, len(events))
	copy(batch, events)
	c.batches = append(c.batches, batch)
	return nil
}

func (c *captureStorage) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestRecorder_DrainsOnStop(t *testing.T) {
	t.Parallel()

	storage := &captureStorage{}
	rec := NewRecorder(storage, zap.NewNop())
	rec.Start()

	for i := 0; i < 250; i++ {
		rec.Record(Event{AgentID: "a-1", Action: ActionUpload, Outcome: OutcomeOK})
	}
	rec.Stop()

	// Всё, что приняли до Stop, должно оказаться в базе
	assert.Equal(t, 250, storage.total())
}

func TestRecorder_FillsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	storage := &captureStorage{}
	rec := NewRecorder(storage, zap.NewNop())
	rec.Start()

	rec.Record(Event{Action: ActionTextCreate, Outcome: OutcomeFailed, Detail: "boom"})
	rec.Stop()

	require.Equal(t, 1, storage.total())
	ev := storage.batches[0][0]
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestRecorder_FlushesByTimer(t *testing.T) {
	t.Parallel()

	storage := &captureStorage{}
	rec := NewRecorder(storage, zap.NewNop())
	rec.Start()
	defer rec.Stop()

	rec.Record(Event{Action: ActionCleanup, Outcome: OutcomeOK})

	// Меньше batchSize: запись уйдет по таймеру, не по лимиту
	require.Eventually(t, func() bool {
		return storage.total() == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestRecorder_RejectsAfterStop(t *testing.T) {
	t.Parallel()

	storage := &captureStorage{}
	rec := NewRecorder(storage, zap.NewNop())
	rec.Start()
	rec.Stop()

	// Не должно паниковать записью в закрытый канал
	rec.Record(Event{Action: ActionDelete, Outcome: OutcomeOK})
	assert.Equal(t, 0, storage.total())
}

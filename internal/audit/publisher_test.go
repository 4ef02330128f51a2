package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitFillsDefaults(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store)

	require.NoError(t, p.Emit(context.Background(), Event{
		UID:    7,
		Action: ActionCardVerified,
		Status: "verified",
	}))

	events := store.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, int64(7), events[0].UID)
}

func TestEmitPreservesExplicitFields(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store)

	stamp := time.Date(2022, 6, 6, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.Emit(context.Background(), Event{
		ID:        "event-1",
		Timestamp: stamp,
		UID:       7,
		Action:    ActionCardVerified,
		Status:    "failed",
		Reason:    "health card failed validation: signature is invalid",
	}))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "event-1", events[0].ID)
	assert.Equal(t, stamp, events[0].Timestamp)
}

func TestAsyncPublisherDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store, WithAsyncBuffer(16))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Emit(context.Background(), Event{
			UID:    int64(i),
			Action: ActionCardVerified,
			Status: "verified",
		}))
	}
	p.Close()

	assert.Len(t, store.Events(), 5)
}

func TestAsyncPublisherDropsWhenFull(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store, WithAsyncBuffer(1))

	// The consumer goroutine may drain at most one event while we flood the
	// buffer, so some of these must be dropped without blocking.
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Emit(context.Background(), Event{
			UID:    int64(i),
			Action: ActionCardVerified,
			Status: "verified",
		}))
	}
	p.Close()

	assert.LessOrEqual(t, len(store.Events()), 100)
	assert.NotEmpty(t, store.Events())
}

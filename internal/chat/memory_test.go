package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEvictsOldest(t *testing.T) {
	m := NewMemory(3)
	for i := 0; i < 5; i++ {
		m.Record(Entry{Question: fmt.Sprintf("q%d", i)})
	}

	require.Equal(t, 3, m.Len())
	entries := m.Snapshot()
	assert.Equal(t, "q2", entries[0].Question)
	assert.Equal(t, "q4", entries[2].Question)
}

func TestMemoryDefaultCapacity(t *testing.T) {
	m := NewMemory(0)
	for i := 0; i < 15; i++ {
		m.Record(Entry{Question: fmt.Sprintf("q%d", i)})
	}
	assert.Equal(t, defaultCapacity, m.Len())
}

func TestMemoryFillsTimestamp(t *testing.T) {
	m := NewMemory(5)
	m.Record(Entry{Question: "q"})
	assert.False(t, m.Snapshot()[0].Timestamp.IsZero())

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.Record(Entry{Question: "q2", Timestamp: ts})
	assert.Equal(t, ts, m.Snapshot()[1].Timestamp)
}

func TestMemorySnapshotIsCopy(t *testing.T) {
	m := NewMemory(5)
	m.Record(Entry{Question: "original"})

	snap := m.Snapshot()
	snap[0].Question = "mutated"

	assert.Equal(t, "original", m.Snapshot()[0].Question)
}

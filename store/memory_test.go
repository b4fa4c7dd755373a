package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Label string
}

func TestMemoryStoreSaveAndFind(t *testing.T) {
	s := NewMemoryObjectStore(0, nil)
	ctx := context.Background()

	doc := &testDoc{Label: "first"}
	require.True(t, s.Save(ctx, "Doc", "d1", doc))

	got := s.FindExisting(ctx, "Doc", "d1")
	require.NotNil(t, got)
	assert.Same(t, doc, got)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreMiss(t *testing.T) {
	s := NewMemoryObjectStore(0, nil)
	assert.Nil(t, s.FindExisting(context.Background(), "Doc", "missing"))
}

func TestMemoryStoreReplacesOnSave(t *testing.T) {
	s := NewMemoryObjectStore(0, nil)
	ctx := context.Background()

	s.Save(ctx, "Doc", "d1", &testDoc{Label: "old"})
	s.Save(ctx, "Doc", "d1", &testDoc{Label: "new"})

	got := s.FindExisting(ctx, "Doc", "d1").(*testDoc)
	assert.Equal(t, "new", got.Label)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryObjectStore(10*time.Millisecond, nil)
	ctx := context.Background()

	s.Save(ctx, "Doc", "d1", &testDoc{Label: "ephemeral"})
	require.NotNil(t, s.FindExisting(ctx, "Doc", "d1"))

	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, s.FindExisting(ctx, "Doc", "d1"))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryObjectStore(0, nil)
	ctx := context.Background()

	s.Save(ctx, "Doc", "d1", &testDoc{})
	s.Save(ctx, "Doc", "d2", &testDoc{})
	s.Clear()

	assert.Equal(t, 0, s.Len())
}

func TestRecordingStoreCapturesSaves(t *testing.T) {
	s := NewRecordingStore()
	ctx := context.Background()

	require.True(t, s.Save(ctx, "Doc", "d1", &testDoc{Label: "x"}))
	calls := s.SaveCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Doc", calls[0].ObjectType)
	assert.Equal(t, "d1", calls[0].ObjectName)

	s.FailSaves = true
	assert.False(t, s.Save(ctx, "Doc", "d2", &testDoc{}))
	assert.Len(t, s.SaveCalls(), 2)
	assert.Nil(t, s.FindExisting(ctx, "Doc", "d2"))
}

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) *RedisObjectStore {
	t.Helper()
	mr := miniredis.RunT(t)

	factory := func(objectType string) (interface{}, error) {
		if objectType != "Doc" {
			return nil, fmt.Errorf("unknown type %s", objectType)
		}
		return &testDoc{}, nil
	}

	s, err := NewRedisObjectStore("redis://"+mr.Addr(), "testns", ttl, factory, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStoreSaveAndFind(t *testing.T) {
	s := newRedisStore(t, 0)
	ctx := context.Background()

	require.True(t, s.Save(ctx, "Doc", "d1", &testDoc{Label: "stored"}))

	got := s.FindExisting(ctx, "Doc", "d1")
	require.NotNil(t, got)
	doc, ok := got.(*testDoc)
	require.True(t, ok)
	assert.Equal(t, "stored", doc.Label)

	hits, misses := s.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(0), misses)
}

func TestRedisStoreMissCountsAsMiss(t *testing.T) {
	s := newRedisStore(t, 0)

	assert.Nil(t, s.FindExisting(context.Background(), "Doc", "absent"))
	hits, misses := s.Stats()
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(1), misses)
}

func TestRedisStoreMaintainsTypeIndex(t *testing.T) {
	s := newRedisStore(t, 0)
	ctx := context.Background()

	s.Save(ctx, "Doc", "d1", &testDoc{})
	s.Save(ctx, "Doc", "d2", &testDoc{})

	names, err := s.ListObjects(ctx, "Doc")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1", "d2"}, names)
}

func TestRedisStoreDelete(t *testing.T) {
	s := newRedisStore(t, 0)
	ctx := context.Background()

	s.Save(ctx, "Doc", "d1", &testDoc{})
	require.NoError(t, s.Delete(ctx, "Doc", "d1"))

	assert.Nil(t, s.FindExisting(ctx, "Doc", "d1"))
	names, err := s.ListObjects(ctx, "Doc")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRedisStoreFactoryFailure(t *testing.T) {
	s := newRedisStore(t, 0)
	ctx := context.Background()

	s.Save(ctx, "Other", "o1", &testDoc{})
	assert.Nil(t, s.FindExisting(ctx, "Other", "o1"))
}

func TestRedisStoreInvalidURL(t *testing.T) {
	_, err := NewRedisObjectStore("not-a-url", "ns", 0, func(string) (interface{}, error) {
		return &testDoc{}, nil
	}, nil)
	assert.Error(t, err)
}

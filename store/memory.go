// Package store provides persistence bridge implementations for mutated
// model objects: an in-memory store for development and tests, and a
// Redis-backed store for shared durability.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
)

type memoryEntry struct {
	instance  interface{}
	expiresAt time.Time
}

func (e memoryEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// MemoryObjectStore keeps mutated objects in process memory, guarded by a
// read-write mutex. Entries optionally expire after a TTL.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memoryEntry
	ttl     time.Duration
	logger  metamodel.Logger
}

// NewMemoryObjectStore creates an in-memory store. A zero TTL means
// entries never expire.
func NewMemoryObjectStore(ttl time.Duration, logger metamodel.Logger) *MemoryObjectStore {
	if logger == nil {
		logger = &metamodel.NoOpLogger{}
	}
	return &MemoryObjectStore{
		objects: make(map[string]memoryEntry),
		ttl:     ttl,
		logger:  logger,
	}
}

func objectKey(objectType, objectName string) string {
	return objectType + "/" + objectName
}

// Save stores the instance under its type and name, replacing any
// previous version.
func (s *MemoryObjectStore) Save(ctx context.Context, objectType, objectName string, instance interface{}) bool {
	entry := memoryEntry{instance: instance}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}

	s.mu.Lock()
	s.objects[objectKey(objectType, objectName)] = entry
	s.mu.Unlock()

	s.logger.Debug("Object saved", map[string]interface{}{
		"type": objectType,
		"name": objectName,
	})
	return true
}

// FindExisting returns the stored instance or nil. Expired entries are
// removed on access.
func (s *MemoryObjectStore) FindExisting(ctx context.Context, objectType, objectName string) interface{} {
	key := objectKey(objectType, objectName)

	s.mu.RLock()
	entry, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if entry.expired() {
		s.mu.Lock()
		delete(s.objects, key)
		s.mu.Unlock()
		return nil
	}
	return entry.instance
}

// Len reports how many live entries the store holds.
func (s *MemoryObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entry := range s.objects {
		if !entry.expired() {
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (s *MemoryObjectStore) Clear() {
	s.mu.Lock()
	s.objects = make(map[string]memoryEntry)
	s.mu.Unlock()
}

package store

import (
	"context"
	"sync"
)

// SaveCall captures one Save invocation observed by a RecordingStore.
type SaveCall struct {
	ObjectType string
	ObjectName string
	Instance   interface{}
}

// RecordingStore is a test double that records every Save call and serves
// seeded objects from FindExisting. Saves succeed unless FailSaves is set.
type RecordingStore struct {
	mu        sync.Mutex
	FailSaves bool
	saves     []SaveCall
	existing  map[string]interface{}
}

// NewRecordingStore creates an empty recording store.
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{
		existing: make(map[string]interface{}),
	}
}

// Seed makes an object visible to FindExisting.
func (s *RecordingStore) Seed(objectType, objectName string, instance interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existing[objectKey(objectType, objectName)] = instance
}

func (s *RecordingStore) Save(ctx context.Context, objectType, objectName string, instance interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, SaveCall{
		ObjectType: objectType,
		ObjectName: objectName,
		Instance:   instance,
	})
	if s.FailSaves {
		return false
	}
	s.existing[objectKey(objectType, objectName)] = instance
	return true
}

func (s *RecordingStore) FindExisting(ctx context.Context, objectType, objectName string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[objectKey(objectType, objectName)]
}

// SaveCalls returns a copy of the recorded Save invocations.
func (s *RecordingStore) SaveCalls() []SaveCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SaveCall, len(s.saves))
	copy(out, s.saves)
	return out
}

package tensor

import (
	"sync"
	"sync/atomic"
)

// Storage is a reference-counted shared byte buffer.
//
// Several tensor views may alias one Storage. The buffer is never copied once
// created: writes through one view are observable through every other view.
// The data is dropped when the last reference is released.
type Storage struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // For safe deallocation
}

// NewStorage wraps data in a Storage with refCount = 1.
// The Storage takes ownership of data; callers must not retain it.
func NewStorage(data []byte) *Storage {
	s := &Storage{data: data}
	s.refCount.Store(1)
	return s
}

// Retain increments the reference count and returns s.
func (s *Storage) Retain() *Storage {
	s.refCount.Add(1)
	return s
}

// Release decrements the reference count and drops the data if it reaches 0.
func (s *Storage) Release() {
	if s.refCount.Add(-1) == 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.data = nil
	}
}

// RefCount returns the current number of references.
func (s *Storage) RefCount() int32 {
	return s.refCount.Load()
}

// IsUnique returns true if this storage has only one reference.
func (s *Storage) IsUnique() bool {
	return s.refCount.Load() == 1
}

// Bytes returns the underlying buffer.
// WARNING: Direct access to shared memory. Writes are visible to every alias.
func (s *Storage) Bytes() []byte {
	return s.data
}

// Len returns the buffer size in bytes.
func (s *Storage) Len() int {
	return len(s.data)
}

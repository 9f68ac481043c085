// Package handle maps opaque integer handles to Go values so that they can
// be referenced from C code, which may not hold Go pointers.
package handle

import (
	"sync"
)

// Handle is an opaque reference to a value in a Table. The zero Handle is
// never issued.
type Handle uintptr

// Table issues handles for values. It is safe for concurrent use.
type Table[T any] struct {
	mutex  sync.RWMutex
	next   Handle
	values map[Handle]T
}

// New returns an empty table.
func New[T any]() *Table[T] {
	return &Table[T]{values: map[Handle]T{}}
}

// Put stores a value and returns its new handle.
func (t *Table[T]) Put(value T) Handle {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for {
		t.next++
		if t.next == 0 {
			continue
		}
		if _, used := t.values[t.next]; !used {
			break
		}
	}
	t.values[t.next] = value
	return t.next
}

// Get returns the value for a handle. It returns false for the zero handle
// and for handles that were deleted or never issued.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	value, ok := t.values[h]
	return value, ok
}

// Delete removes a handle and returns the value it referred to. Deleting
// an unknown handle returns false.
func (t *Table[T]) Delete(h Handle) (T, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	value, ok := t.values[h]
	if ok {
		delete(t.values, h)
	}
	return value, ok
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.values)
}

// FILE: lixenwraith/crossprefs/events.go
package crossprefs

import (
	"sort"
	"sync"
	"sync/atomic"
)

// NodeChangeEvent reports a namespace node added to or removed from a Tree.
type NodeChangeEvent struct {
	Tree *Tree
	Name string
}

// NodeChangeListener observes structural changes of a Tree.
type NodeChangeListener interface {
	Added(event NodeChangeEvent)
	Removed(event NodeChangeEvent)
}

// NodeChangeFuncs adapts plain functions to NodeChangeListener. Nil funcs are skipped.
type NodeChangeFuncs struct {
	OnAdded   func(event NodeChangeEvent)
	OnRemoved func(event NodeChangeEvent)
}

func (f NodeChangeFuncs) Added(event NodeChangeEvent) {
	if f.OnAdded != nil {
		f.OnAdded(event)
	}
}

func (f NodeChangeFuncs) Removed(event NodeChangeEvent) {
	if f.OnRemoved != nil {
		f.OnRemoved(event)
	}
}

// AddNodeChangeListener registers l and returns an id for removal.
func (t *Tree) AddNodeChangeListener(l NodeChangeListener) int64 {
	return t.listeners.add(l)
}

// RemoveNodeChangeListener unregisters the listener with the given id.
// Safe to call from inside the listener itself.
func (t *Tree) RemoveNodeChangeListener(id int64) bool {
	return t.listeners.remove(id)
}

// ListenerCount returns the number of registered listeners
func (t *Tree) ListenerCount() int {
	t.listeners.mu.RLock()
	defer t.listeners.mu.RUnlock()
	return len(t.listeners.listeners)
}

// listenerSet manages subscribers of a tree
type listenerSet struct {
	mu        sync.RWMutex
	listeners map[int64]NodeChangeListener
	nextID    atomic.Int64
}

func (s *listenerSet) add(l NodeChangeListener) int64 {
	id := s.nextID.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int64]NodeChangeListener)
	}
	s.listeners[id] = l
	return id
}

func (s *listenerSet) remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.listeners[id]; !exists {
		return false
	}
	delete(s.listeners, id)
	return true
}

func (s *listenerSet) lookup(id int64) (NodeChangeListener, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listeners[id]
	return l, ok
}

// dispatch notifies listeners in registration order. A listener removed by an
// earlier one during the same dispatch is not called.
func (s *listenerSet) dispatch(event NodeChangeEvent, added bool) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		l, ok := s.lookup(id)
		if !ok {
			continue
		}
		if added {
			l.Added(event)
		} else {
			l.Removed(event)
		}
	}
}

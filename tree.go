// FILE: lixenwraith/crossprefs/tree.go
package crossprefs

import (
	"sort"
	"sync"
)

// node holds the values of one namespace in the tree
type node struct {
	values       map[string]string
	materialized bool // set once the host merged defaults into the node
}

// Tree is the default-scope preference tree shared by all plugins of a host.
// Namespaces are created on demand by Store handles; they become materialized,
// and raise an Added event, the first time defaults are merged into them.
type Tree struct {
	nodes     map[string]*node
	mutex     sync.RWMutex
	listeners listenerSet
}

// NewTree creates an empty preference tree.
func NewTree() *Tree {
	return &Tree{
		nodes: make(map[string]*node),
	}
}

// Store returns a lightweight handle on the given namespace.
// No node is created until a value is written.
func (t *Tree) Store(namespace string) *Node {
	return &Node{tree: t, namespace: namespace}
}

// Merge writes values for several namespaces at once. Nodes materialized by this
// call are reported through Added events, in sorted namespace order, after all
// values are in place. Empty values remove the key.
// Returns the names of the namespaces materialized by this call.
func (t *Tree) Merge(values map[string]map[string]string) []string {
	namespaces := make([]string, 0, len(values))
	for ns := range values {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var added []string

	t.mutex.Lock()
	for _, ns := range namespaces {
		n := t.nodeLocked(ns)
		for key, value := range values[ns] {
			if value == "" {
				delete(n.values, key)
				continue
			}
			n.values[key] = value
		}
		if !n.materialized {
			n.materialized = true
			added = append(added, ns)
		}
	}
	t.mutex.Unlock()

	// Listeners run without the lock so they can read, write and unregister freely
	for _, ns := range added {
		t.listeners.dispatch(NodeChangeEvent{Tree: t, Name: ns}, true)
	}

	return added
}

// RemoveNode deletes a namespace and all its values.
// A Removed event is raised if the namespace existed.
func (t *Tree) RemoveNode(namespace string) bool {
	t.mutex.Lock()
	_, exists := t.nodes[namespace]
	delete(t.nodes, namespace)
	t.mutex.Unlock()

	if exists {
		t.listeners.dispatch(NodeChangeEvent{Tree: t, Name: namespace}, false)
	}
	return exists
}

// Materialized reports whether defaults have been merged into the namespace.
func (t *Tree) Materialized(namespace string) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, exists := t.nodes[namespace]
	return exists && n.materialized
}

// Namespaces returns the names of all nodes in sorted order.
func (t *Tree) Namespaces() []string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	names := make([]string, 0, len(t.nodes))
	for ns := range t.nodes {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a deep copy of every namespace and its values.
func (t *Tree) Snapshot() map[string]map[string]string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	snapshot := make(map[string]map[string]string, len(t.nodes))
	for ns, n := range t.nodes {
		values := make(map[string]string, len(n.values))
		for k, v := range n.values {
			values[k] = v
		}
		snapshot[ns] = values
	}
	return snapshot
}

func (t *Tree) get(namespace, key string) string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if n, exists := t.nodes[namespace]; exists {
		return n.values[key]
	}
	return ""
}

func (t *Tree) put(namespace, key, value string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if value == "" {
		if n, exists := t.nodes[namespace]; exists {
			delete(n.values, key)
		}
		return
	}
	t.nodeLocked(namespace).values[key] = value
}

func (t *Tree) keys(namespace string) []string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, exists := t.nodes[namespace]
	if !exists {
		return nil
	}
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// nodeLocked returns the node for namespace, creating it if needed.
// Caller must hold the write lock.
func (t *Tree) nodeLocked(namespace string) *node {
	n, exists := t.nodes[namespace]
	if !exists {
		n = &node{values: make(map[string]string)}
		t.nodes[namespace] = n
	}
	return n
}

// Node is a Store backed by one namespace of a Tree.
type Node struct {
	tree      *Tree
	namespace string
}

func (n *Node) Namespace() string { return n.namespace }

// Get returns the value for key, or "" when unset.
func (n *Node) Get(key string) string {
	return n.tree.get(n.namespace, key)
}

// Put sets key to value. Putting "" unsets the key.
func (n *Node) Put(key, value string) {
	n.tree.put(n.namespace, key, value)
}

func (n *Node) IsEmpty() bool {
	return len(n.tree.keys(n.namespace)) == 0
}

// Keys returns the set keys in sorted order.
func (n *Node) Keys() []string {
	return n.tree.keys(n.namespace)
}

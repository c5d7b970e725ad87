package pubgrub

import (
	"sync"

	"github.com/armon/go-radix"
)

// Typed wrapper around the radix tree, keyed by package identifier. Keeps
// type assertions out of the registry code. Walks that aren't needed yet
// aren't implemented.
type containerTrie struct {
	sync.RWMutex
	t *radix.Tree
}

func newContainerTrie() *containerTrie {
	return &containerTrie{
		t: radix.New(),
	}
}

// Get is used to look up a specific package, returning its container and if
// it was found.
func (t *containerTrie) Get(pkg PackageRef) (*registryContainer, bool) {
	t.RLock()
	defer t.RUnlock()
	if c, has := t.t.Get(string(pkg)); has {
		return c.(*registryContainer), has
	}
	return nil, false
}

// Insert adds a new entry or updates an existing one. Returns if updated.
func (t *containerTrie) Insert(pkg PackageRef, c *registryContainer) (*registryContainer, bool) {
	t.Lock()
	defer t.Unlock()
	if c2, had := t.t.Insert(string(pkg), c); had {
		return c2.(*registryContainer), had
	}
	return nil, false
}

// Len returns the number of packages in the tree.
func (t *containerTrie) Len() int {
	t.RLock()
	defer t.RUnlock()
	return t.t.Len()
}

// Walk visits every container in lexical key order until fn returns true.
func (t *containerTrie) Walk(fn func(PackageRef, *registryContainer) bool) {
	t.RLock()
	defer t.RUnlock()
	t.t.Walk(func(s string, v interface{}) bool {
		return fn(PackageRef(s), v.(*registryContainer))
	})
}

// WalkPrefix visits, in lexical key order, the containers whose package
// identifier begins with the given prefix.
func (t *containerTrie) WalkPrefix(prefix string, fn func(PackageRef, *registryContainer) bool) {
	t.RLock()
	defer t.RUnlock()
	t.t.WalkPrefix(prefix, func(s string, v interface{}) bool {
		return fn(PackageRef(s), v.(*registryContainer))
	})
}

// Package crosswalk translates keys between incompatible identifier spaces and
// joins observed and simulated rows with an explicit join discipline.
package crosswalk

import (
	"fmt"

	apperrors "acceptcli/internal/errors"
)

// Crosswalk is a one-to-one mapping from K to V that remembers insertion
// order
type Crosswalk[K comparable, V any] struct {
	name   string
	keys   []K
	values map[K]V
}

// New creates an empty crosswalk
func New[K comparable, V any](name string) *Crosswalk[K, V] {
	return &Crosswalk[K, V]{name: name, values: make(map[K]V)}
}

// Name identifies the crosswalk in logs and errors
func (c *Crosswalk[K, V]) Name() string {
	return c.name
}

// Add maps k to v. A key that is already mapped is an INVARIANT error.
func (c *Crosswalk[K, V]) Add(k K, v V) error {
	if prev, ok := c.values[k]; ok {
		return apperrors.NewInvariantError(fmt.Sprintf(
			"crosswalk %s maps %v more than once (%v and %v)", c.name, k, prev, v)).
			WithContext("crosswalk", c.name)
	}
	c.keys = append(c.keys, k)
	c.values[k] = v
	return nil
}

// Lookup returns the value for k. A nil crosswalk has no entries.
func (c *Crosswalk[K, V]) Lookup(k K) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	v, ok := c.values[k]
	return v, ok
}

// Len returns the number of mapped keys
func (c *Crosswalk[K, V]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Link is the result of translating one key through a chain of crosswalks.
// Target is nil when any hop had no entry.
type Link[K comparable] struct {
	Source K
	Target *K
	// Hops counts the crosswalks the key passed through before a miss
	Hops int
}

// Chain translates keys through successive crosswalks (A to B to C) as left
// joins. Every key yields one Link; unmatched keys keep a nil Target.
func Chain[K comparable](keys []K, hops ...*Crosswalk[K, K]) []Link[K] {
	links := make([]Link[K], len(keys))
	for i, k := range keys {
		links[i] = Link[K]{Source: k}
		cur := k
		matched := true
		for _, cw := range hops {
			next, ok := cw.Lookup(cur)
			if !ok {
				matched = false
				break
			}
			cur = next
			links[i].Hops++
		}
		if matched {
			target := cur
			links[i].Target = &target
		}
	}
	return links
}

// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stackedmap maintains maps in a stack.
// Each map inherits the key/value pairs of the map at the lower level.
// It acts as a map with save-restore/snapshot-revert behavior, and is the
// journal behind the ledger's per-operation rollback.
package stackedmap

// MapGetter defines the getter method of the source map.
type MapGetter func(key any) (value any, exist bool)

// StackedMap maintains maps in a stack.
type StackedMap struct {
	src            MapGetter
	mapStack       stack
	keyRevisionMap map[any]*revisions
}

type level map[any]any

// New creates an instance of StackedMap.
// src acts as the source of data.
func New(src MapGetter) *StackedMap {
	return &StackedMap{
		src:            src,
		keyRevisionMap: make(map[any]*revisions),
	}
}

// Depth returns the depth of the stack.
func (sm *StackedMap) Depth() int {
	return len(sm.mapStack)
}

// Push pushes a new map on the stack.
// It returns the stack depth before the push.
func (sm *StackedMap) Push() int {
	sm.mapStack.push(level{})
	return len(sm.mapStack) - 1
}

// Pop pops the map at the top of the stack.
// It reverts all Put operations since the last Push.
func (sm *StackedMap) Pop() {
	top := sm.mapStack.top()
	for key := range top {
		revs := sm.keyRevisionMap[key]
		revs.pop()
		if len(*revs) == 0 {
			delete(sm.keyRevisionMap, key)
		}
	}
	sm.mapStack.pop()
}

// PopTo pops maps until the stack depth reaches depth.
func (sm *StackedMap) PopTo(depth int) {
	for len(sm.mapStack) > depth {
		sm.Pop()
	}
}

// Commit merges the map at the top of the stack into the one below,
// then pops the top. Unlike Pop, all Put operations since the last
// Push are preserved. It panics if the stack holds fewer than two maps.
func (sm *StackedMap) Commit() {
	top := sm.mapStack.top()
	below := sm.mapStack[len(sm.mapStack)-2]
	for key, value := range top {
		_, seen := below[key]
		below[key] = value

		revs := sm.keyRevisionMap[key]
		revs.pop()
		if !seen {
			revs.push(len(sm.mapStack) - 2)
		}
	}
	sm.mapStack.pop()
}

// CommitTo commits maps until the stack depth reaches depth.
func (sm *StackedMap) CommitTo(depth int) {
	for len(sm.mapStack) > depth {
		sm.Commit()
	}
}

// Get gets the value for the given key.
// The second return value indicates whether the key was found.
func (sm *StackedMap) Get(key any) (any, bool) {
	if revs, ok := sm.keyRevisionMap[key]; ok {
		if v, ok := sm.mapStack[revs.top()][key]; ok {
			return v, true
		}
	}
	return sm.src(key)
}

// Put puts a key/value pair into the map at the stack top.
// It panics if the stack is empty.
func (sm *StackedMap) Put(key, value any) {
	top := sm.mapStack.top()
	_, seen := top[key]
	top[key] = value
	if seen {
		return
	}

	// record the key revision for fast access
	rev := len(sm.mapStack) - 1
	if revs, ok := sm.keyRevisionMap[key]; ok {
		revs.push(rev)
	} else {
		sm.keyRevisionMap[key] = &revisions{rev}
	}
}

type stack []level

func (s *stack) pop() {
	*s = (*s)[:len(*s)-1]
}

func (s *stack) push(l level) {
	*s = append(*s, l)
}

func (s stack) top() level {
	return s[len(s)-1]
}

type revisions []int

func (r *revisions) pop() {
	*r = (*r)[:len(*r)-1]
}

func (r *revisions) push(v int) {
	*r = append(*r, v)
}

func (r revisions) top() int {
	return r[len(r)-1]
}

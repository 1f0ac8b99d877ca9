// Package memtable implements the in-memory write buffer (spec.md §4.6):
// an ordered map from internal key to value backed by a concurrent skip
// list, plus the immutable-queue flags a memtable acquires during the
// flush lifecycle.
//
// Reference: aalhour/rockyardkv internal/memtable/skiplist.go (atomic
// forward-pointer skip list, lock-free reads, externally synchronized
// writes) — adapted here to store a value alongside each key, since the
// memtable is a map, not a set.
package memtable

import (
	"math/rand"
	"sync/atomic"

	"github.com/Megumi-X/wing/internal/dbformat"
)

const (
	maxHeight       = 12
	branchingFactor = 4
)

type skipNode struct {
	key   dbformat.InternalKey
	value []byte
	next  []atomic.Pointer[skipNode]
}

func newSkipNode(key dbformat.InternalKey, value []byte, height int) *skipNode {
	return &skipNode{key: key, value: value, next: make([]atomic.Pointer[skipNode], height)}
}

// skipList is a lock-free-for-reads skip list keyed by internal key.
// Writes require external synchronization (the memtable's caller holds
// the write mutex per spec.md §5); concurrent readers holding an
// Iterator positioned earlier in the order never observe torn state
// because nodes, once linked, are never mutated or unlinked.
type skipList struct {
	head      *skipNode
	maxHeight atomic.Int32
	rng       *rand.Rand
}

func newSkipList() *skipList {
	sl := &skipList{head: newSkipNode(nil, nil, maxHeight)}
	sl.maxHeight.Store(1)
	sl.rng = rand.New(rand.NewSource(0xC0FFEE))
	return sl
}

func (sl *skipList) randomHeight() int {
	h := 1
	for h < maxHeight && sl.rng.Intn(branchingFactor) == 0 {
		h++
	}
	return h
}

// findGreaterOrEqual returns the first node with key >= target, filling
// prev (if non-nil) with the predecessor at each level.
func (sl *skipList) findGreaterOrEqual(target dbformat.InternalKey, prev []*skipNode) *skipNode {
	x := sl.head
	level := int(sl.maxHeight.Load()) - 1
	for {
		next := x.next[level].Load()
		if next != nil && dbformat.Less(next.key, target) {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

// Insert adds key/value to the list. Requires no equal key already exists.
func (sl *skipList) Insert(key dbformat.InternalKey, value []byte) {
	prev := make([]*skipNode, maxHeight)
	sl.findGreaterOrEqual(key, prev)

	height := sl.randomHeight()
	if cur := int(sl.maxHeight.Load()); height > cur {
		for i := cur; i < height; i++ {
			prev[i] = sl.head
		}
		sl.maxHeight.Store(int32(height))
	}

	node := newSkipNode(key, value, height)
	for i := 0; i < height; i++ {
		node.next[i].Store(prev[i].next[i].Load())
		prev[i].next[i].Store(node)
	}
}

// iterator walks the skip list in ascending internal-key order.
type iterator struct {
	list *skipList
	node *skipNode
}

func (sl *skipList) newIterator() *iterator {
	return &iterator{list: sl}
}

func (it *iterator) Valid() bool { return it.node != nil }

func (it *iterator) Key() dbformat.InternalKey { return it.node.key }

func (it *iterator) Value() []byte { return it.node.value }

func (it *iterator) Next() { it.node = it.node.next[0].Load() }

func (it *iterator) SeekToFirst() { it.node = it.list.head.next[0].Load() }

func (it *iterator) Seek(target dbformat.InternalKey) {
	it.node = it.list.findGreaterOrEqual(target, nil)
}

// Package series provides a sorted, immutable-after-load index over
// time-keyed records with inclusive range queries.
package series

import (
	"time"

	"github.com/google/btree"
)

const degree = 16

type entry[T any] struct {
	at  time.Time
	seq int
	val T
}

// Index orders records by their start time. Records sharing a start are all
// kept, in insertion order.
type Index[T any] struct {
	tree  *btree.BTreeG[entry[T]]
	keyOf func(T) time.Time
	seq   int
}

// New creates an empty index keyed by keyOf.
func New[T any](keyOf func(T) time.Time) *Index[T] {
	less := func(a, b entry[T]) bool {
		if a.at.Equal(b.at) {
			return a.seq < b.seq
		}
		return a.at.Before(b.at)
	}
	return &Index[T]{
		tree:  btree.NewG[entry[T]](degree, less),
		keyOf: keyOf,
	}
}

// Insert adds a record.
func (ix *Index[T]) Insert(v T) {
	ix.seq++
	ix.tree.ReplaceOrInsert(entry[T]{at: ix.keyOf(v), seq: ix.seq, val: v})
}

// Len returns the number of records.
func (ix *Index[T]) Len() int {
	return ix.tree.Len()
}

// Range returns every record whose key lies in [from, to], in order.
func (ix *Index[T]) Range(from, to time.Time) []T {
	var out []T
	ix.tree.AscendGreaterOrEqual(entry[T]{at: from, seq: -1}, func(e entry[T]) bool {
		if e.at.After(to) {
			return false
		}
		out = append(out, e.val)
		return true
	})
	return out
}

// At returns every record keyed exactly at t.
func (ix *Index[T]) At(t time.Time) []T {
	return ix.Range(t, t)
}

// All returns every record in order.
func (ix *Index[T]) All() []T {
	out := make([]T, 0, ix.tree.Len())
	ix.tree.Ascend(func(e entry[T]) bool {
		out = append(out, e.val)
		return true
	})
	return out
}

// Clip returns a new index holding the records in [from, to].
func (ix *Index[T]) Clip(from, to time.Time) *Index[T] {
	out := New(ix.keyOf)
	for _, v := range ix.Range(from, to) {
		out.Insert(v)
	}
	return out
}

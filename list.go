// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "sync"

// fixedList is a §4.D fixed-size record list: records are stride
// bytes apart, so get-by-index is a multiplication and one read.
type fixedList[T any] struct {
	pool     *Pool
	base     int64
	stride   int64
	count    int
	decode   func(r *Reader, offset int64) (T, error)
	cache    *generationCache[int, T]
}

// newFixedList builds a fixed-stride list. cacheCapacity <= 0 means
// every Get reads straight through the pool with no memoisation.
func newFixedList[T any](pool *Pool, base, stride int64, count, cacheCapacity int, name string, decode func(r *Reader, offset int64) (T, error)) *fixedList[T] {
	l := &fixedList[T]{pool: pool, base: base, stride: stride, count: count, decode: decode}
	if cacheCapacity > 0 {
		l.cache = newGenerationCache(cacheCapacity, name, l.fetch)
	}
	return l
}

func (l *fixedList[T]) fetch(index int) (T, error) {
	var zero T
	if index < 0 || index >= l.count {
		return zero, datasetFormatf("%s index %d out of range [0,%d)", "fixedList", index, l.count)
	}
	r, err := l.pool.Acquire()
	if err != nil {
		return zero, err
	}
	defer l.pool.Release(r)

	offset := l.base + int64(index)*l.stride
	r.Seek(offset)
	return l.decode(r, offset)
}

// Get returns the record at logical index.
func (l *fixedList[T]) Get(index int) (T, error) {
	if l.cache != nil {
		return l.cache.Get(index)
	}
	return l.fetch(index)
}

// Count returns the number of records in the list.
func (l *fixedList[T]) Count() int { return l.count }

// variableList is a §4.C variable-size record list: entities are
// keyed by byte offset. A companion index (built once, lazily) maps
// logical index -> byte offset for enumeration.
type variableList[T any] struct {
	pool   *Pool
	base   int64
	count  int
	decode func(r *Reader, offset int64) (T, int64, error) // returns value + record length
	cache  *generationCache[int64, T]

	indexMu     sync.Mutex
	offsetIndex []int64
}

// newVariableList builds an offset-keyed list. decode must return the
// byte length it consumed so the companion index can be built by
// sequential scan.
func newVariableList[T any](pool *Pool, base int64, count, cacheCapacity int, name string, decode func(r *Reader, offset int64) (T, int64, error)) *variableList[T] {
	l := &variableList[T]{pool: pool, base: base, count: count, decode: decode}
	if cacheCapacity > 0 {
		l.cache = newGenerationCache(cacheCapacity, name, l.fetchAtOffset)
	}
	return l
}

func (l *variableList[T]) fetchAtOffset(offset int64) (T, error) {
	var zero T
	r, err := l.pool.Acquire()
	if err != nil {
		return zero, err
	}
	defer l.pool.Release(r)

	r.Seek(offset)
	v, _, err := l.decode(r, offset)
	return v, err
}

// GetByOffset returns the record whose byte offset is offset
// (random access, no scan required).
func (l *variableList[T]) GetByOffset(offset int64) (T, error) {
	if l.cache != nil {
		return l.cache.Get(offset)
	}
	return l.fetchAtOffset(offset)
}

// buildIndex performs the one-time sequential scan used both to
// populate the offset index and, incidentally, validate that every
// record's declared length stays inside the region (§3 invariant 1).
func (l *variableList[T]) buildIndex() error {
	l.indexMu.Lock()
	defer l.indexMu.Unlock()

	if l.offsetIndex != nil {
		return nil
	}

	r, err := l.pool.Acquire()
	if err != nil {
		return err
	}
	defer l.pool.Release(r)

	offsets := make([]int64, 0, l.count)
	cursor := l.base
	for i := 0; i < l.count; i++ {
		r.Seek(cursor)
		_, n, err := l.decode(r, cursor)
		if err != nil {
			return err
		}
		offsets = append(offsets, cursor)
		cursor += n
	}
	l.offsetIndex = offsets
	return nil
}

// GetByIndex returns the record at logical index, building the
// companion offset index on first use.
func (l *variableList[T]) GetByIndex(index int) (T, error) {
	var zero T
	if index < 0 || index >= l.count {
		return zero, datasetFormatf("variableList index %d out of range [0,%d)", index, l.count)
	}
	if l.offsetIndex == nil {
		if err := l.buildIndex(); err != nil {
			return zero, err
		}
	}
	return l.GetByOffset(l.offsetIndex[index])
}

// Count returns the number of records in the list.
func (l *variableList[T]) Count() int { return l.count }

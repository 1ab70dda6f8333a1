package dcel

import (
	"iter"
	"slices"
)

// store is a slot arena. Removed slots go on a free list and are handed out
// again lowest first, so the next id depends only on which slots are free
// and not on the order they were freed in. Live slots never move.
type store[T any] struct {
	items []T
	alive []bool
	free  []int
	live  int
}

func (s *store[T]) add(v T) int {
	s.live++
	if n := len(s.free); n > 0 {
		i := s.free[n-1]
		s.free = s.free[:n-1]
		s.items[i] = v
		s.alive[i] = true
		return i
	}
	s.items = append(s.items, v)
	s.alive = append(s.alive, true)
	return len(s.items) - 1
}

func (s *store[T]) remove(i int) {
	var zero T
	s.items[i] = zero
	s.alive[i] = false
	// free is kept in descending order with the lowest slot on top.
	pos, _ := slices.BinarySearchFunc(s.free, i, func(e, target int) int { return target - e })
	s.free = slices.Insert(s.free, pos, i)
	s.live--
}

func (s *store[T]) has(i int) bool {
	return i >= 0 && i < len(s.items) && s.alive[i]
}

// at returns a pointer into the arena. It is invalidated by the next add.
func (s *store[T]) at(i int) *T {
	return &s.items[i]
}

// all yields live slot indices in ascending order.
func (s *store[T]) all() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range s.items {
			if s.alive[i] && !yield(i) {
				return
			}
		}
	}
}

// slots is the arena size including removed slots.
func (s *store[T]) slots() int {
	return len(s.items)
}

// rebuildFree recomputes the free list from the alive flags, lowest slot
// on top.
func (s *store[T]) rebuildFree() {
	s.free = s.free[:0]
	s.live = 0
	for i := len(s.alive) - 1; i >= 0; i-- {
		if s.alive[i] {
			s.live++
		} else {
			s.free = append(s.free, i)
		}
	}
}

func (s *store[T]) clone() store[T] {
	return store[T]{
		items: append([]T(nil), s.items...),
		alive: append([]bool(nil), s.alive...),
		free:  append([]int(nil), s.free...),
		live:  s.live,
	}
}

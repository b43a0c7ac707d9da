package types

import (
	"cmp"
	"maps"
	"slices"
)

type Set[K cmp.Ordered] map[K]struct{}

type ValueSet = Set[string]
type RowSet = Set[int]

func SetOf[K cmp.Ordered](values ...K) Set[K] {
	s := make(Set[K], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set[K]) Add(v K) {
	s[v] = struct{}{}
}

func (s Set[K]) Has(v K) bool {
	_, ok := s[v]
	return ok
}

func (a Set[K]) Intersect(b Set[K]) {
	for id := range a {
		if _, ok := b[id]; !ok {
			delete(a, id)
		}
	}
}

func (s Set[K]) Merge(other Set[K]) {
	maps.Copy(s, other)
}

func (s Set[K]) HasIntersection(other Set[K]) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

func (s Set[K]) Sorted() []K {
	return slices.Sorted(maps.Keys(s))
}

func (s Set[K]) Clone() Set[K] {
	return maps.Clone(s)
}

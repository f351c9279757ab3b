package dbinit

import (
	"maps"
	"slices"
)

// Set is a set of bean identifiers.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	s.Add(ids...)
	return s
}

func (s Set) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the identifiers in lexical order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

func (s Set) Clone() Set {
	if s == nil {
		return Set{}
	}
	return maps.Clone(s)
}

package resolver

import "slices"

// nameSet is an insertion-ordered set of package names.
type nameSet struct {
	items []string
	index map[string]struct{}
}

func newNameSet(names ...string) *nameSet {
	s := &nameSet{index: make(map[string]struct{})}
	s.add(names...)
	return s
}

func (s *nameSet) add(names ...string) {
	for _, name := range names {
		if _, ok := s.index[name]; ok {
			continue
		}
		s.index[name] = struct{}{}
		s.items = append(s.items, name)
	}
}

func (s *nameSet) has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *nameSet) len() int {
	return len(s.items)
}

// list returns a copy of the members in insertion order. It never returns nil.
func (s *nameSet) list() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// without returns names minus every member of drop, preserving order.
func without(names []string, drop ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(drop, n) {
			out = append(out, n)
		}
	}
	return out
}

func containsGroup(groups [][]string, group []string) bool {
	for _, g := range groups {
		if slices.Equal(g, group) {
			return true
		}
	}
	return false
}

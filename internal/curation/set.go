package curation

// Set is an immutable, insertion-ordered set of image ids. All mutating
// operations return a new Set, so a State value can be copied freely
// without aliasing surprises. Iteration order is insertion order, which is
// what determines export order downstream.
type Set struct {
	items []string
	index map[string]struct{}
}

func NewSet(ids ...string) Set {
	s := Set{}
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s Set) Len() int {
	return len(s.items)
}

// Values returns the members in insertion order. The slice is a copy.
func (s Set) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

func (s Set) Add(id string) Set {
	if s.Has(id) {
		return s
	}
	items := make([]string, 0, len(s.items)+1)
	items = append(items, s.items...)
	items = append(items, id)

	index := make(map[string]struct{}, len(items))
	for _, it := range items {
		index[it] = struct{}{}
	}
	return Set{items: items, index: index}
}

func (s Set) Remove(id string) Set {
	if !s.Has(id) {
		return s
	}
	items := make([]string, 0, len(s.items)-1)
	for _, it := range s.items {
		if it != id {
			items = append(items, it)
		}
	}
	index := make(map[string]struct{}, len(items))
	for _, it := range items {
		index[it] = struct{}{}
	}
	return Set{items: items, index: index}
}

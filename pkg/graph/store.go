package graph

import (
	"sort"
)

// Graph is the read surface shared by stores, unions and inferred views.
// A nil pattern position matches anything.
type Graph interface {
	Match(s, p, o *Term) []Triple
	Contains(t Triple) bool
}

// Store is an in-memory triple store indexed by subject, predicate and
// object. Triples keep insertion order; duplicates are ignored.
type Store struct {
	triples     []Triple
	seen        map[Triple]struct{}
	bySubject   map[Term][]int
	byPredicate map[Term][]int
	byObject    map[Term][]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		seen:        make(map[Triple]struct{}),
		bySubject:   make(map[Term][]int),
		byPredicate: make(map[Term][]int),
		byObject:    make(map[Term][]int),
	}
}

// Add inserts t and reports whether it was new.
func (s *Store) Add(t Triple) bool {
	if _, ok := s.seen[t]; ok {
		return false
	}
	idx := len(s.triples)
	s.seen[t] = struct{}{}
	s.triples = append(s.triples, t)
	s.bySubject[t.S] = append(s.bySubject[t.S], idx)
	s.byPredicate[t.P] = append(s.byPredicate[t.P], idx)
	s.byObject[t.O] = append(s.byObject[t.O], idx)
	return true
}

// AddAll inserts every triple of g and returns the number added.
func (s *Store) AddAll(g Graph) int {
	n := 0
	for _, t := range g.Match(nil, nil, nil) {
		if s.Add(t) {
			n++
		}
	}
	return n
}

// Len returns the number of triples.
func (s *Store) Len() int {
	return len(s.triples)
}

// Triples returns a copy of all triples in insertion order.
func (s *Store) Triples() []Triple {
	out := make([]Triple, len(s.triples))
	copy(out, s.triples)
	return out
}

// Contains reports whether t is present.
func (s *Store) Contains(t Triple) bool {
	_, ok := s.seen[t]
	return ok
}

// Match returns the triples matching the pattern in insertion order.
func (s *Store) Match(subj, pred, obj *Term) []Triple {
	if subj != nil && pred != nil && obj != nil {
		t := Triple{S: *subj, P: *pred, O: *obj}
		if s.Contains(t) {
			return []Triple{t}
		}
		return nil
	}

	candidates := s.narrowest(subj, pred, obj)
	var out []Triple
	if candidates == nil {
		for _, t := range s.triples {
			if matches(t, subj, pred, obj) {
				out = append(out, t)
			}
		}
		return out
	}
	for _, idx := range candidates {
		t := s.triples[idx]
		if matches(t, subj, pred, obj) {
			out = append(out, t)
		}
	}
	return out
}

// narrowest picks the smallest index list for the bound positions. It
// returns nil when no position is bound and an empty slice when a bound
// position has no entries.
func (s *Store) narrowest(subj, pred, obj *Term) []int {
	var best []int
	found := false
	consider := func(idx map[Term][]int, t *Term) {
		if t == nil {
			return
		}
		list := idx[*t]
		if list == nil {
			list = []int{}
		}
		if !found || len(list) < len(best) {
			best = list
			found = true
		}
	}
	consider(s.bySubject, subj)
	consider(s.byPredicate, pred)
	consider(s.byObject, obj)
	return best
}

func matches(t Triple, s, p, o *Term) bool {
	return (s == nil || t.S == *s) && (p == nil || t.P == *p) && (o == nil || t.O == *o)
}

// Union is a read-only view over several graphs. Results are deduplicated
// and keep the order of the member graphs.
type Union struct {
	graphs []Graph
}

// NewUnion creates a union view. Nil members are skipped.
func NewUnion(graphs ...Graph) *Union {
	u := &Union{}
	for _, g := range graphs {
		if g != nil {
			u.graphs = append(u.graphs, g)
		}
	}
	return u
}

// Match implements Graph.
func (u *Union) Match(s, p, o *Term) []Triple {
	if len(u.graphs) == 1 {
		return u.graphs[0].Match(s, p, o)
	}
	seen := make(map[Triple]struct{})
	var out []Triple
	for _, g := range u.graphs {
		for _, t := range g.Match(s, p, o) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Contains implements Graph.
func (u *Union) Contains(t Triple) bool {
	for _, g := range u.graphs {
		if g.Contains(t) {
			return true
		}
	}
	return false
}

// Objects returns the distinct objects of (s, p, *).
func Objects(g Graph, s Term, p string) []Term {
	return distinct(g.Match(&s, Ref(IRI(p)), nil), func(t Triple) Term { return t.O })
}

// Subjects returns the distinct subjects of (*, p, o).
func Subjects(g Graph, p string, o Term) []Term {
	return distinct(g.Match(nil, Ref(IRI(p)), &o), func(t Triple) Term { return t.S })
}

func distinct(ts []Triple, pick func(Triple) Term) []Term {
	seen := make(map[Term]struct{}, len(ts))
	var out []Term
	for _, t := range ts {
		v := pick(t)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SortedIRIs returns the IRI values among terms, sorted and deduplicated.
func SortedIRIs(terms []Term) []string {
	set := make(map[string]struct{})
	for _, t := range terms {
		if t.IsIRI() {
			set[t.Value] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

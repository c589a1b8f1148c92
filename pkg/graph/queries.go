package graph

import (
	"sort"
	"strconv"
)

// Restriction is a property constraint attached to a class through an
// owl:Restriction superclass, or a plain rdfs:domain declaration.
type Restriction struct {
	Property string
	Range    []string
	Min      *int
	Max      *int
}

// ClassesByType returns the sorted IRIs typed as typeURI.
func ClassesByType(g Graph, typeURI string) []string {
	return SortedIRIs(Subjects(g, RDFType, IRI(typeURI)))
}

// AllClasses returns the sorted IRIs typed as owl:Class or rdfs:Class.
func AllClasses(g Graph) []string {
	terms := Subjects(g, RDFType, IRI(OWLClass))
	terms = append(terms, Subjects(g, RDFType, IRI(RDFSClass))...)
	return SortedIRIs(terms)
}

// Superclasses returns the named superclasses of class. When preferInferred
// is set and inferred is non-nil, the inferred graph is used; otherwise the
// direct statements in src. Restriction nodes and self references are
// skipped. The result is sorted.
func Superclasses(src, inferred Graph, class string, preferInferred bool) []string {
	g := src
	if preferInferred && inferred != nil {
		g = inferred
	}
	var out []string
	for _, uri := range SortedIRIs(Objects(g, IRI(class), RDFSSubClassOf)) {
		if uri == class || uri == OWLThing {
			continue
		}
		out = append(out, uri)
	}
	return out
}

// Individuals returns the sorted IRIs typed as class.
func Individuals(g Graph, class string) []string {
	return SortedIRIs(Subjects(g, RDFType, IRI(class)))
}

// LiteralProperty returns the first literal value of (resource, predicate).
// Plain and English literals win over other languages; ties use lexical order.
func LiteralProperty(g Graph, resource, predicate string) (string, bool) {
	var candidates []Term
	for _, o := range Objects(g, IRI(resource), predicate) {
		if o.IsLiteral() {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := langRank(candidates[i].Lang), langRank(candidates[j].Lang)
		if ri != rj {
			return ri < rj
		}
		return candidates[i].Value < candidates[j].Value
	})
	return candidates[0].Value, true
}

func langRank(lang string) int {
	switch lang {
	case "":
		return 0
	case "en":
		return 1
	default:
		return 2
	}
}

// InverseOf returns the declared inverse of property, looking in both
// directions.
func InverseOf(g Graph, property string) (string, bool) {
	if inv := SortedIRIs(Objects(g, IRI(property), OWLInverseOf)); len(inv) > 0 {
		return inv[0], true
	}
	if inv := SortedIRIs(Subjects(g, OWLInverseOf, IRI(property))); len(inv) > 0 {
		return inv[0], true
	}
	return "", false
}

// Imports returns the sorted owl:imports targets.
func Imports(g Graph) []string {
	var targets []Term
	for _, t := range g.Match(nil, Ref(IRI(OWLImports)), nil) {
		targets = append(targets, t.O)
	}
	return SortedIRIs(targets)
}

// DomainProperties returns the properties whose rdfs:domain is class, sorted
// by property URI. Ranges come from rdfs:range.
func DomainProperties(g Graph, class string) []Restriction {
	props := SortedIRIs(Subjects(g, RDFSDomain, IRI(class)))
	out := make([]Restriction, 0, len(props))
	for _, p := range props {
		out = append(out, Restriction{
			Property: p,
			Range:    SortedIRIs(Objects(g, IRI(p), RDFSRange)),
		})
	}
	return out
}

// RestrictionProperties returns the property restrictions reachable from
// class through rdfs:subClassOf to anonymous owl:Restriction nodes. Multiple
// restrictions on the same property are merged. The result is sorted by
// property URI.
func RestrictionProperties(g Graph, class string) []Restriction {
	byProp := make(map[string]*Restriction)
	for _, sup := range Objects(g, IRI(class), RDFSSubClassOf) {
		if !sup.IsBlank() {
			continue
		}
		if !g.Contains(Triple{S: sup, P: IRI(RDFType), O: IRI(OWLRestriction)}) &&
			len(Objects(g, sup, OWLOnProperty)) == 0 {
			continue
		}
		onProp := SortedIRIs(Objects(g, sup, OWLOnProperty))
		if len(onProp) == 0 {
			continue
		}
		prop := onProp[0]
		r, ok := byProp[prop]
		if !ok {
			r = &Restriction{Property: prop}
			byProp[prop] = r
		}
		mergeRestriction(g, sup, r)
	}

	props := make([]string, 0, len(byProp))
	for p := range byProp {
		props = append(props, p)
	}
	sort.Strings(props)

	out := make([]Restriction, 0, len(props))
	for _, p := range props {
		r := byProp[p]
		if len(r.Range) == 0 {
			r.Range = SortedIRIs(Objects(g, IRI(p), RDFSRange))
		}
		out = append(out, *r)
	}
	return out
}

func mergeRestriction(g Graph, node Term, r *Restriction) {
	if v, ok := intValue(g, node, OWLCardinality, OWLQualifiedCardinality); ok {
		r.Min, r.Max = intPtr(v), intPtr(v)
	}
	if v, ok := intValue(g, node, OWLMinCardinality, OWLMinQualifiedCardinality); ok {
		r.Min = intPtr(v)
	}
	if v, ok := intValue(g, node, OWLMaxCardinality, OWLMaxQualifiedCardinality); ok {
		r.Max = intPtr(v)
	}
	for _, pred := range []string{OWLSomeValuesFrom, OWLAllValuesFrom, OWLOnClass} {
		for _, uri := range SortedIRIs(Objects(g, node, pred)) {
			r.Range = appendUnique(r.Range, uri)
		}
	}
}

func intValue(g Graph, node Term, predicates ...string) (int, bool) {
	for _, pred := range predicates {
		for _, o := range Objects(g, node, pred) {
			if !o.IsLiteral() {
				continue
			}
			if v, err := strconv.Atoi(o.Value); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func intPtr(v int) *int { return &v }

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

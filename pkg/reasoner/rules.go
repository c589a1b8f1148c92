package reasoner

import (
	"context"
	"sort"

	"github.com/ekaya-inc/ontoschema/pkg/graph"
)

// Closure returns base plus the statements entailed by these rules:
//
//   - rdfs:subClassOf is transitive, including restriction nodes
//   - owl:equivalentClass implies mutual rdfs:subClassOf
//   - rdfs:subPropertyOf is transitive; owl:equivalentProperty is mutual
//   - owl:inverseOf is symmetric
//   - a sub-property inherits rdfs:domain and rdfs:range of its ancestors
//   - statements using a sub-property hold for its ancestors
//   - rdf:type propagates along rdfs:subClassOf
//
// Hierarchies are closed first, so a single pass over each rule suffices.
func Closure(ctx context.Context, base graph.Graph) (*graph.Store, error) {
	if base == nil {
		return nil, errNilGraph
	}
	out := graph.NewStore()
	out.AddAll(base)

	subClass := hierarchy(out, graph.RDFSSubClassOf, graph.OWLEquivalentClass)
	addClosure(out, subClass, graph.RDFSSubClassOf)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subProp := hierarchy(out, graph.RDFSSubPropertyOf, graph.OWLEquivalentProperty)
	addClosure(out, subProp, graph.RDFSSubPropertyOf)

	for _, t := range out.Match(nil, graph.Ref(graph.IRI(graph.OWLInverseOf)), nil) {
		if t.O.IsLiteral() {
			continue
		}
		out.Add(graph.Triple{S: t.O, P: t.P, O: t.S})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, prop := range sortedKeys(subProp) {
		for _, anc := range subProp[prop] {
			for _, pred := range []string{graph.RDFSDomain, graph.RDFSRange} {
				for _, o := range graph.Objects(out, anc, pred) {
					out.Add(graph.Triple{S: prop, P: graph.IRI(pred), O: o})
				}
			}
			if !prop.IsIRI() || !anc.IsIRI() {
				continue
			}
			for _, t := range out.Match(nil, graph.Ref(prop), nil) {
				out.Add(graph.Triple{S: t.S, P: anc, O: t.O})
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rdfType := graph.IRI(graph.RDFType)
	for _, class := range sortedKeys(subClass) {
		instances := out.Match(nil, graph.Ref(rdfType), graph.Ref(class))
		for _, anc := range subClass[class] {
			if !anc.IsIRI() {
				continue
			}
			for _, t := range instances {
				out.Add(graph.Triple{S: t.S, P: rdfType, O: anc})
			}
		}
	}
	return out, ctx.Err()
}

// hierarchy returns, for every node with a parent, the transitive set of its
// ancestors under pred. Equivalence edges count in both directions.
func hierarchy(g graph.Graph, pred, equivalent string) map[graph.Term][]graph.Term {
	parents := make(map[graph.Term][]graph.Term)
	link := func(child, parent graph.Term) {
		if child == parent || child.IsLiteral() || parent.IsLiteral() {
			return
		}
		parents[child] = append(parents[child], parent)
	}
	for _, t := range g.Match(nil, graph.Ref(graph.IRI(pred)), nil) {
		link(t.S, t.O)
	}
	for _, t := range g.Match(nil, graph.Ref(graph.IRI(equivalent)), nil) {
		link(t.S, t.O)
		link(t.O, t.S)
	}

	closed := make(map[graph.Term][]graph.Term, len(parents))
	for node := range parents {
		seen := map[graph.Term]bool{node: true}
		queue := append([]graph.Term(nil), parents[node]...)
		var anc []graph.Term
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if seen[cur] {
				continue
			}
			seen[cur] = true
			anc = append(anc, cur)
			queue = append(queue, parents[cur]...)
		}
		closed[node] = anc
	}
	return closed
}

func addClosure(out *graph.Store, closed map[graph.Term][]graph.Term, pred string) {
	p := graph.IRI(pred)
	for _, node := range sortedKeys(closed) {
		for _, anc := range closed[node] {
			out.Add(graph.Triple{S: node, P: p, O: anc})
		}
	}
}

func sortedKeys(m map[graph.Term][]graph.Term) []graph.Term {
	keys := make([]graph.Term, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].Value < keys[j].Value
	})
	return keys
}

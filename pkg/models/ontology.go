package models

import (
	"sort"
)

// ============================================================================
// Scope
// ============================================================================

// Scope tags where a class or property was defined.
type Scope string

const (
	ScopeOntology Scope = "ONTOLOGY"
	ScopeExternal Scope = "EXTERNAL"
	ScopeConcepts Scope = "CONCEPTS"
)

// ============================================================================
// Cardinality
// ============================================================================

// Cardinality bounds. A nil Max means unbounded, a nil Min means unspecified.
type Cardinality struct {
	Min *int `json:"min,omitempty" yaml:"min,omitempty"`
	Max *int `json:"max,omitempty" yaml:"max,omitempty"`
}

// IsMany returns true if the upper bound is unbounded or greater than one.
func (c Cardinality) IsMany() bool {
	return c.Max == nil || *c.Max > 1
}

// Clone returns a deep copy.
func (c Cardinality) Clone() Cardinality {
	out := Cardinality{}
	if c.Min != nil {
		v := *c.Min
		out.Min = &v
	}
	if c.Max != nil {
		v := *c.Max
		out.Max = &v
	}
	return out
}

// Bounded returns a cardinality with both bounds set.
func Bounded(min, max int) Cardinality {
	return Cardinality{Min: &min, Max: &max}
}

// AtLeast returns a cardinality with an unbounded upper limit.
func AtLeast(min int) Cardinality {
	return Cardinality{Min: &min}
}

// ============================================================================
// Property edge
// ============================================================================

// PropertyEdge is a property as experienced by instances of its owning class.
// Every class owns its own copies; edges are matched across classes by URI.
type PropertyEdge struct {
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Label      string   `json:"label,omitempty"`
	Comment    string   `json:"comment,omitempty"`
	Range      []string `json:"range,omitempty"`
	InverseOf  string   `json:"inverse_of,omitempty"`
	Identifier bool     `json:"identifier"`

	// CardinalityTo is the cardinality seen from the owning class.
	CardinalityTo Cardinality `json:"cardinality_to"`
	// CardinalityFrom is the cardinality seen from the range side. It is only
	// populated by inverse reconciliation.
	CardinalityFrom Cardinality `json:"cardinality_from"`
}

// HasComment reports whether the property carries a non-empty comment.
func (p *PropertyEdge) HasComment() bool {
	return p.Comment != ""
}

// FirstRange returns the first candidate range URI or "".
func (p *PropertyEdge) FirstRange() string {
	if len(p.Range) == 0 {
		return ""
	}
	return p.Range[0]
}

// ============================================================================
// Class node
// ============================================================================

// ClassNode is a raw ontology class. Identity is by URI. Superclass edges are
// stored as URIs and resolved through the owning Ontology.
type ClassNode struct {
	URI          string          `json:"uri"`
	Name         string          `json:"name"`
	Label        string          `json:"label,omitempty"`
	Comment      string          `json:"comment,omitempty"`
	Scope        Scope           `json:"scope"`
	SuperClasses []string        `json:"super_classes,omitempty"`
	Properties   []*PropertyEdge `json:"properties,omitempty"`
	Individuals  []string        `json:"individuals,omitempty"`
	URITemplate  *URITemplate    `json:"uri_template,omitempty"`
}

// Property returns the property with the given URI or nil.
func (c *ClassNode) Property(uri string) *PropertyEdge {
	for _, p := range c.Properties {
		if p.URI == uri {
			return p
		}
	}
	return nil
}

// AddProperty appends p unless a property with the same URI exists.
// Returns true if the property was added.
func (c *ClassNode) AddProperty(p *PropertyEdge) bool {
	if p == nil || p.URI == "" || c.Property(p.URI) != nil {
		return false
	}
	c.Properties = append(c.Properties, p)
	return true
}

// AddSuperClass appends uri unless present or equal to the class itself.
func (c *ClassNode) AddSuperClass(uri string) {
	if uri == "" || uri == c.URI {
		return
	}
	for _, s := range c.SuperClasses {
		if s == uri {
			return
		}
	}
	c.SuperClasses = append(c.SuperClasses, uri)
}

// AddIndividual appends uri unless present.
func (c *ClassNode) AddIndividual(uri string) {
	for _, i := range c.Individuals {
		if i == uri {
			return
		}
	}
	c.Individuals = append(c.Individuals, uri)
}

// URITemplate is a Hydra IRI template attached to a class. Variables map a
// template variable name to the property URI that fills it.
type URITemplate struct {
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables"`
}

// SortedVariables returns the variable property URIs ordered by variable name.
func (t *URITemplate) SortedVariables() []string {
	names := make([]string, 0, len(t.Variables))
	for name := range t.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, t.Variables[name])
	}
	return out
}

// ============================================================================
// Ontology arena
// ============================================================================

// Ontology owns every ClassNode, keyed by URI, in insertion order.
type Ontology struct {
	URI     string
	classes []*ClassNode
	byURI   map[string]int
}

// NewOntology creates an empty ontology.
func NewOntology(uri string) *Ontology {
	return &Ontology{URI: uri, byURI: make(map[string]int)}
}

// AddClass inserts c unless a class with the same URI exists. Returns the
// canonical node for the URI.
func (o *Ontology) AddClass(c *ClassNode) *ClassNode {
	if c == nil || c.URI == "" {
		return nil
	}
	if idx, ok := o.byURI[c.URI]; ok {
		return o.classes[idx]
	}
	o.byURI[c.URI] = len(o.classes)
	o.classes = append(o.classes, c)
	return c
}

// Class returns the canonical node for uri or nil.
func (o *Ontology) Class(uri string) *ClassNode {
	if idx, ok := o.byURI[uri]; ok {
		return o.classes[idx]
	}
	return nil
}

// Classes returns the classes in insertion order. The slice is a copy.
func (o *Ontology) Classes() []*ClassNode {
	out := make([]*ClassNode, len(o.classes))
	copy(out, o.classes)
	return out
}

// Len returns the number of classes.
func (o *Ontology) Len() int {
	return len(o.classes)
}

// ClassesInScope returns classes with the given scope in insertion order.
func (o *Ontology) ClassesInScope(scope Scope) []*ClassNode {
	var out []*ClassNode
	for _, c := range o.classes {
		if c.Scope == scope {
			out = append(out, c)
		}
	}
	return out
}

// IsSubClassOf reports whether classURI has ancestorURI as a direct or
// transitive superclass. Cycles terminate.
func (o *Ontology) IsSubClassOf(classURI, ancestorURI string) bool {
	visited := map[string]bool{classURI: true}
	queue := []string{classURI}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		node := o.Class(cur)
		if node == nil {
			continue
		}
		for _, sup := range node.SuperClasses {
			if sup == ancestorURI {
				return true
			}
			if !visited[sup] {
				visited[sup] = true
				queue = append(queue, sup)
			}
		}
	}
	return false
}

// AncestorLevels returns the ancestors of classURI grouped by hop distance,
// nearest first. Each URI appears once, at its shortest distance.
func (o *Ontology) AncestorLevels(classURI string) [][]string {
	visited := map[string]bool{classURI: true}
	var levels [][]string
	frontier := []string{classURI}
	for len(frontier) > 0 {
		var next []string
		for _, cur := range frontier {
			node := o.Class(cur)
			if node == nil {
				continue
			}
			for _, sup := range node.SuperClasses {
				if visited[sup] {
					continue
				}
				visited[sup] = true
				next = append(next, sup)
			}
		}
		if len(next) > 0 {
			levels = append(levels, next)
		}
		frontier = next
	}
	return levels
}

// Ancestors returns every transitive superclass of classURI, nearest first.
func (o *Ontology) Ancestors(classURI string) []string {
	var out []string
	for _, level := range o.AncestorLevels(classURI) {
		out = append(out, level...)
	}
	return out
}

// SubClasses returns every class that is a transitive subclass of uri, in
// insertion order.
func (o *Ontology) SubClasses(uri string) []*ClassNode {
	var out []*ClassNode
	for _, c := range o.classes {
		if c.URI != uri && o.IsSubClassOf(c.URI, uri) {
			out = append(out, c)
		}
	}
	return out
}

// PropertyEdges returns every edge with the given URI across all classes.
func (o *Ontology) PropertyEdges(uri string) []*PropertyEdge {
	var out []*PropertyEdge
	for _, c := range o.classes {
		for _, p := range c.Properties {
			if p.URI == uri {
				out = append(out, p)
			}
		}
	}
	return out
}

// ============================================================================
// Concept scheme
// ============================================================================

// Concept is a controlled-vocabulary entry whose Equivalents are ontology
// class or property URIs it names.
type Concept struct {
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Label       string   `json:"label,omitempty"`
	Comment     string   `json:"comment,omitempty"`
	Equivalents []string `json:"equivalents"`
}

// ConceptScheme holds class and property concepts.
type ConceptScheme struct {
	ClassConcepts    []*Concept
	PropertyConcepts []*Concept
}

// ClassConcept returns the first class concept naming classURI or nil.
func (s *ConceptScheme) ClassConcept(classURI string) *Concept {
	if s == nil {
		return nil
	}
	return findConcept(s.ClassConcepts, classURI)
}

// PropertyConcept returns the first property concept naming propertyURI or nil.
func (s *ConceptScheme) PropertyConcept(propertyURI string) *Concept {
	if s == nil {
		return nil
	}
	return findConcept(s.PropertyConcepts, propertyURI)
}

func findConcept(concepts []*Concept, uri string) *Concept {
	for _, c := range concepts {
		for _, eq := range c.Equivalents {
			if eq == uri {
				return c
			}
		}
	}
	return nil
}

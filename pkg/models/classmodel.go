package models

// ============================================================================
// Multiplicity
// ============================================================================

// Multiplicity classifies a relation by the upper bounds seen from both sides.
type Multiplicity string

const (
	OneToOne   Multiplicity = "ONE_TO_ONE"
	OneToMany  Multiplicity = "ONE_TO_MANY"
	ManyToOne  Multiplicity = "MANY_TO_ONE"
	ManyToMany Multiplicity = "MANY_TO_MANY"
)

// ClassifyMultiplicity derives a multiplicity from the range-side cardinality
// (from) and the owner-side cardinality (to).
func ClassifyMultiplicity(from, to Cardinality) Multiplicity {
	fromMany := from.IsMany()
	toMany := to.IsMany()
	switch {
	case fromMany && toMany:
		return ManyToMany
	case fromMany:
		return ManyToOne
	case toMany:
		return OneToMany
	default:
		return OneToOne
	}
}

// ============================================================================
// Simplified class model
// ============================================================================

// ClazzKind distinguishes the three emitted node kinds.
type ClazzKind string

const (
	KindClass     ClazzKind = "class"
	KindInterface ClazzKind = "interface"
	KindEnum      ClazzKind = "enum"
)

// Clazz is an emitted class, interface or enum. It wraps the raw ClassNode
// by URI and carries the simplified attribute list.
type Clazz struct {
	URI          string       `json:"uri" yaml:"uri"`
	Name         string       `json:"name" yaml:"name"`
	Label        string       `json:"label,omitempty" yaml:"label,omitempty"`
	Comment      string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	Kind         ClazzKind    `json:"kind" yaml:"kind"`
	Attributes   []*Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Interfaces   []string     `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	SuperClasses []string     `json:"super_classes,omitempty" yaml:"super_classes,omitempty"`
	ExtendsClass string       `json:"extends_class,omitempty" yaml:"extends_class,omitempty"`
	Values       []*EnumValue `json:"values,omitempty" yaml:"values,omitempty"`
}

// Attribute returns the attribute with the given property URI or nil.
func (c *Clazz) Attribute(uri string) *Attribute {
	for _, a := range c.Attributes {
		if a.URI == uri {
			return a
		}
	}
	return nil
}

// RemoveAttribute drops the attribute with the given URI.
func (c *Clazz) RemoveAttribute(uri string) {
	out := c.Attributes[:0]
	for _, a := range c.Attributes {
		if a.URI != uri {
			out = append(out, a)
		}
	}
	c.Attributes = out
}

// Attribute wraps a PropertyEdge with its resolved target. Name and Label
// are the emitted names and may come from a property concept; the edge keeps
// the raw ones.
type Attribute struct {
	*PropertyEdge `json:"-" yaml:"-"`

	Name  string `json:"name" yaml:"name"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Target is the URI of the nearest emitted type the range resolves to,
	// or "" for datatype and unresolved ranges.
	Target       string       `json:"target,omitempty" yaml:"target,omitempty"`
	DataType     string       `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	Multiplicity Multiplicity `json:"multiplicity,omitempty" yaml:"multiplicity,omitempty"`
	PrimaryKey   bool         `json:"primary_key" yaml:"primary_key"`
}

// IsReference reports whether the attribute points at an emitted type.
func (a *Attribute) IsReference() bool {
	return a.Target != ""
}

// EnumValue is a member of an emitted enum.
type EnumValue struct {
	URI   string `json:"uri" yaml:"uri"`
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// ClassModel is the simplifier output. Each slice keeps upstream insertion
// order; membership across the three slices is disjoint.
type ClassModel struct {
	Classes    []*Clazz `json:"classes" yaml:"classes"`
	Interfaces []*Clazz `json:"interfaces" yaml:"interfaces"`
	Enums      []*Clazz `json:"enums" yaml:"enums"`
}

// Lookup returns the emitted node for uri across all three kinds.
func (m *ClassModel) Lookup(uri string) *Clazz {
	if m == nil {
		return nil
	}
	for _, set := range [][]*Clazz{m.Classes, m.Interfaces, m.Enums} {
		for _, c := range set {
			if c.URI == uri {
				return c
			}
		}
	}
	return nil
}

// All returns classes, then interfaces, then enums.
func (m *ClassModel) All() []*Clazz {
	out := make([]*Clazz, 0, len(m.Classes)+len(m.Interfaces)+len(m.Enums))
	out = append(out, m.Classes...)
	out = append(out, m.Interfaces...)
	out = append(out, m.Enums...)
	return out
}

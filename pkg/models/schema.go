package models

// Table is a relational table synthesized from an emitted class or interface.
// Join tables have an empty SourceURI.
type Table struct {
	Name      string    `json:"name" yaml:"name"`
	SourceURI string    `json:"source_uri,omitempty" yaml:"source_uri,omitempty"`
	Comment   string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	Columns   []*Column `json:"columns" yaml:"columns"`
	JoinTable bool      `json:"join_table,omitempty" yaml:"join_table,omitempty"`
}

// Column returns the column with the given name or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnForProperty returns the column derived from the given property URI.
func (t *Table) ColumnForProperty(uri string) *Column {
	for _, c := range t.Columns {
		if c.PropertyURI == uri {
			return c
		}
	}
	return nil
}

// PrimaryKeys returns the primary-key columns in column order.
func (t *Table) PrimaryKeys() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c)
		}
	}
	return out
}

// IDColumn returns the first primary-key column or nil.
func (t *Table) IDColumn() *Column {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c
		}
	}
	return nil
}

// RemoveColumn drops the named column.
func (t *Table) RemoveColumn(name string) {
	out := t.Columns[:0]
	for _, c := range t.Columns {
		if c.Name != name {
			out = append(out, c)
		}
	}
	t.Columns = out
}

// Column is a table column. PropertyURI links back to the attribute it came
// from; synthesized columns carry the identifier property URI or nothing.
type Column struct {
	Name         string       `json:"name" yaml:"name"`
	PropertyURI  string       `json:"property_uri,omitempty" yaml:"property_uri,omitempty"`
	SQLType      string       `json:"sql_type" yaml:"sql_type"`
	EnumType     string       `json:"enum_type,omitempty" yaml:"enum_type,omitempty"`
	Comment      string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	PrimaryKey   bool         `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKey   bool         `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	Nullable     bool         `json:"nullable" yaml:"nullable"`
	Multiplicity Multiplicity `json:"multiplicity,omitempty" yaml:"multiplicity,omitempty"`
}

// Clone returns a shallow copy.
func (c *Column) Clone() *Column {
	out := *c
	return &out
}

// Relation links (From, FromColumn) to (To, ToColumn).
type Relation struct {
	Name         string       `json:"name" yaml:"name"`
	PropertyURI  string       `json:"property_uri,omitempty" yaml:"property_uri,omitempty"`
	From         string       `json:"from" yaml:"from"`
	FromColumn   string       `json:"from_column" yaml:"from_column"`
	To           string       `json:"to" yaml:"to"`
	ToColumn     string       `json:"to_column" yaml:"to_column"`
	Multiplicity Multiplicity `json:"multiplicity" yaml:"multiplicity"`
	Inheritance  bool         `json:"inheritance,omitempty" yaml:"inheritance,omitempty"`
}

// EnumType is a SQL enum generated for an emitted enum or a merged join table
// discriminator.
type EnumType struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// Schema is the synthesizer output, in emission order.
type Schema struct {
	Tables    []*Table    `json:"tables" yaml:"tables"`
	Relations []*Relation `json:"relations" yaml:"relations"`
	EnumTypes []*EnumType `json:"enum_types,omitempty" yaml:"enum_types,omitempty"`
}

// Table returns the named table or nil.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TableForURI returns the table synthesized from the given class URI or nil.
func (s *Schema) TableForURI(uri string) *Table {
	for _, t := range s.Tables {
		if t.SourceURI != "" && t.SourceURI == uri {
			return t
		}
	}
	return nil
}

// EnumType returns the named enum type or nil.
func (s *Schema) EnumType(name string) *EnumType {
	for _, e := range s.EnumTypes {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// RelationsFrom returns relations whose From is the named table.
func (s *Schema) RelationsFrom(table string) []*Relation {
	var out []*Relation
	for _, r := range s.Relations {
		if r.From == table {
			out = append(out, r)
		}
	}
	return out
}

// RemoveRelation drops r by identity.
func (s *Schema) RemoveRelation(r *Relation) {
	out := s.Relations[:0]
	for _, x := range s.Relations {
		if x != r {
			out = append(out, x)
		}
	}
	s.Relations = out
}

package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/services/dag"
)

const (
	sqlVarchar   = "VARCHAR"
	sqlInt       = "INT"
	sqlDecimal   = "DECIMAL"
	sqlBoolean   = "BOOLEAN"
	sqlDate      = "DATE"
	sqlTimestamp = "TIMESTAMP"
)

// SchemaSynthesizerService derives a relational schema from the simplified
// class model.
type SchemaSynthesizerService interface {
	Synthesize(ctx context.Context, ws *models.Workspace) (*models.Schema, error)
}

type schemaSynthesizerService struct {
	cfg    *config.Config
	logger *zap.Logger
}

var (
	_ SchemaSynthesizerService   = (*schemaSynthesizerService)(nil)
	_ dag.SchemaSynthesisMethods = (*schemaSynthesizerService)(nil)
)

// NewSchemaSynthesizerService creates a new schema synthesizer.
func NewSchemaSynthesizerService(cfg *config.Config, logger *zap.Logger) SchemaSynthesizerService {
	return &schemaSynthesizerService{
		cfg:    cfg,
		logger: logger.Named("schema-synthesizer"),
	}
}

// Synthesize builds one table per class and interface, links references and
// inheritance with foreign keys, and decomposes many-to-many relations into
// join tables.
func (s *schemaSynthesizerService) Synthesize(ctx context.Context, ws *models.Workspace) (*models.Schema, error) {
	if ws.ClassModel == nil {
		return nil, errors.New("class model not built")
	}

	syn := newSynthesis(s.cfg, ws.ClassModel)
	steps := []struct {
		name string
		run  func() error
	}{
		{"enum types", infallible(syn.enumTypes)},
		{"tables", syn.tables},
		{"keys", infallible(syn.keys)},
		{"foreign keys", syn.foreignKeys},
		{"many-to-many", infallible(syn.manyToMany)},
		{"primary keys", infallible(syn.ensurePrimaryKeys)},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
		if err := step.run(); err != nil {
			return nil, apperrors.NewStageError(string(models.StageSchemaSynthesize), step.name, uriOf(err), err)
		}
	}

	s.logger.Debug("Synthesized schema",
		zap.Int("tables", len(syn.schema.Tables)),
		zap.Int("relations", len(syn.schema.Relations)),
		zap.Int("enum_types", len(syn.schema.EnumTypes)))
	return syn.schema, nil
}

// pendingColumn is an attribute column that may still become a foreign key.
type pendingColumn struct {
	table  *models.Table
	column *models.Column
	attr   *models.Attribute
}

type synthesis struct {
	cfg      *config.Config
	cm       *models.ClassModel
	schema   *models.Schema
	tableFor map[string]*models.Table
	clazzFor map[*models.Table]*models.Clazz
	enumType map[string]string
	inverses map[string]string
	pending  []pendingColumn
	idURI    string
}

func newSynthesis(cfg *config.Config, cm *models.ClassModel) *synthesis {
	idURI := cfg.IdentifierPropertyURI()
	for _, p := range cfg.Ontology.ExtraProperties {
		if p.Identifier {
			idURI = p.URI
			break
		}
	}

	inverses := make(map[string]string)
	for _, c := range cm.All() {
		for _, a := range c.Attributes {
			if a.InverseOf != "" {
				inverses[a.URI] = a.InverseOf
				inverses[a.InverseOf] = a.URI
			}
		}
	}

	return &synthesis{
		cfg:      cfg,
		cm:       cm,
		schema:   &models.Schema{},
		tableFor: make(map[string]*models.Table),
		clazzFor: make(map[*models.Table]*models.Clazz),
		enumType: make(map[string]string),
		inverses: inverses,
		idURI:    idURI,
	}
}

// ============================================================================
// Tables and columns
// ============================================================================

func (s *synthesis) enumTypes() {
	for _, e := range s.cm.Enums {
		name := ToSnakeCase(e.Name)
		if s.schema.EnumType(name) != nil {
			name = uniqueName(name, func(n string) bool { return s.schema.EnumType(n) != nil })
		}
		values := make([]string, 0, len(e.Values))
		for _, v := range e.Values {
			values = append(values, v.Name)
		}
		s.schema.EnumTypes = append(s.schema.EnumTypes, &models.EnumType{Name: name, Values: values})
		s.enumType[e.URI] = name
	}
}

func (s *synthesis) tables() error {
	for _, c := range append(append([]*models.Clazz(nil), s.cm.Classes...), s.cm.Interfaces...) {
		base := TableName(c.Name, s.cfg.Schema.TableNaming)
		if base == "" {
			return &uriError{uri: c.URI, err: fmt.Errorf("class name %q yields no table name", c.Name)}
		}
		name := uniqueName(base, func(n string) bool { return s.schema.Table(n) != nil })
		t := &models.Table{Name: name, SourceURI: c.URI, Comment: c.Comment}
		for _, a := range c.Attributes {
			if ToSnakeCase(a.Name) == "" {
				return &uriError{uri: a.URI, err: fmt.Errorf("attribute name %q yields no column name", a.Name)}
			}
			col := s.attributeColumn(t, a)
			t.Columns = append(t.Columns, col)
			s.pending = append(s.pending, pendingColumn{table: t, column: col, attr: a})
		}
		s.schema.Tables = append(s.schema.Tables, t)
		s.tableFor[c.URI] = t
		s.clazzFor[t] = c
	}
	return nil
}

// uriError ties a synthesis failure to the class or property it concerns.
type uriError struct {
	uri string
	err error
}

func (e *uriError) Error() string { return e.err.Error() }
func (e *uriError) Unwrap() error { return e.err }

func uriOf(err error) string {
	var ue *uriError
	if errors.As(err, &ue) {
		return ue.uri
	}
	return ""
}

func (s *synthesis) attributeColumn(t *models.Table, a *models.Attribute) *models.Column {
	col := &models.Column{
		Name:         uniqueColumnName(t, ToSnakeCase(a.Name)),
		PropertyURI:  a.URI,
		SQLType:      sqlType(a.FirstRange()),
		Comment:      a.Comment,
		PrimaryKey:   a.PrimaryKey,
		Multiplicity: a.Multiplicity,
	}
	col.Nullable = !col.PrimaryKey && (a.CardinalityTo.Min == nil || *a.CardinalityTo.Min == 0)
	if enum, ok := s.enumType[a.Target]; ok {
		col.SQLType = enum
		col.EnumType = enum
	}
	return col
}

// sqlType maps an XSD range to a SQL type. Anything unknown is VARCHAR.
func sqlType(rangeURI string) string {
	switch rangeURI {
	case graph.XSDInteger, graph.XSDInt, graph.XSDLong, graph.XSDNonNegativeInteger:
		return sqlInt
	case graph.XSDDecimal, graph.XSDDouble, graph.XSDFloat:
		return sqlDecimal
	case graph.XSDBoolean:
		return sqlBoolean
	case graph.XSDDate:
		return sqlDate
	case graph.XSDDateTime:
		return sqlTimestamp
	default:
		return sqlVarchar
	}
}

// idColumn returns the column other tables reference: the identifier
// property column when it is a key, else the first primary key.
func (s *synthesis) idColumn(t *models.Table) *models.Column {
	if c := t.ColumnForProperty(s.idURI); c != nil && c.PrimaryKey {
		return c
	}
	return t.IDColumn()
}

// ============================================================================
// Keys and inheritance
// ============================================================================

// keys links every table to the tables of its superclasses, parents first,
// and gives keyless tables a synthesized id column. The link to the extended
// class becomes the primary key of a table without one of its own.
func (s *synthesis) keys() {
	done := make(map[*models.Table]bool)
	visiting := make(map[*models.Table]bool)
	for _, t := range append([]*models.Table(nil), s.schema.Tables...) {
		s.linkParents(t, done, visiting)
	}
}

func (s *synthesis) linkParents(t *models.Table, done, visiting map[*models.Table]bool) {
	if done[t] || visiting[t] {
		return
	}
	visiting[t] = true
	defer delete(visiting, t)

	c := s.clazzFor[t]
	for _, sup := range c.SuperClasses {
		parent, ok := s.tableFor[sup]
		if !ok || parent == t {
			continue
		}
		s.linkParents(parent, done, visiting)
		parentID := s.idColumn(parent)
		if parentID == nil {
			continue
		}

		col := &models.Column{
			Name:       uniqueColumnName(t, parent.Name+"_"+parentID.Name),
			SQLType:    parentID.SQLType,
			EnumType:   parentID.EnumType,
			ForeignKey: true,
			PrimaryKey: sup == c.ExtendsClass && len(t.PrimaryKeys()) == 0,
		}
		if col.PrimaryKey {
			t.Columns = append([]*models.Column{col}, t.Columns...)
		} else {
			t.Columns = append(t.Columns, col)
		}
		s.schema.Relations = append(s.schema.Relations, &models.Relation{
			Name:         parent.Name,
			From:         t.Name,
			FromColumn:   col.Name,
			To:           parent.Name,
			ToColumn:     parentID.Name,
			Multiplicity: models.OneToMany,
			Inheritance:  true,
		})
	}

	s.ensurePrimaryKey(t)
	done[t] = true
}

func (s *synthesis) ensurePrimaryKey(t *models.Table) {
	if len(t.PrimaryKeys()) > 0 {
		return
	}
	col := &models.Column{
		Name:        uniqueColumnName(t, "id"),
		PropertyURI: s.idURI,
		SQLType:     sqlVarchar,
		PrimaryKey:  true,
	}
	t.Columns = append([]*models.Column{col}, t.Columns...)
}

func (s *synthesis) ensurePrimaryKeys() {
	for _, t := range s.schema.Tables {
		s.ensurePrimaryKey(t)
	}
}

// ============================================================================
// Foreign keys
// ============================================================================

// foreignKeys turns every attribute column that targets a table into a
// foreign key to that table's id column. Renames happen before any relation
// is recorded so relations see final column names.
func (s *synthesis) foreignKeys() error {
	type link struct {
		pendingColumn
		target   *models.Table
		targetID *models.Column
	}
	var links []link
	for _, p := range s.pending {
		target, ok := s.tableFor[p.attr.Target]
		if !ok {
			continue
		}
		targetID := s.idColumn(target)
		if targetID == nil {
			return &uriError{uri: p.attr.URI, err: fmt.Errorf("target table %s has no key", target.Name)}
		}
		p.column.Name = uniqueColumnName(p.table, p.column.Name+"_"+targetID.Name)
		p.column.SQLType = targetID.SQLType
		p.column.EnumType = targetID.EnumType
		p.column.ForeignKey = true
		links = append(links, link{pendingColumn: p, target: target, targetID: targetID})
	}

	for _, l := range links {
		s.schema.Relations = append(s.schema.Relations, &models.Relation{
			Name:         ToSnakeCase(l.attr.Name),
			PropertyURI:  l.attr.URI,
			From:         l.table.Name,
			FromColumn:   l.column.Name,
			To:           l.target.Name,
			ToColumn:     l.targetID.Name,
			Multiplicity: l.attr.Multiplicity,
		})
	}
	return nil
}

// uniqueColumnName returns name, or name with the first free numeric suffix.
func uniqueColumnName(t *models.Table, name string) string {
	return uniqueName(name, func(n string) bool { return t.Column(n) != nil })
}

func uniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// ============================================================================
// Many-to-many
// ============================================================================

// manyToMany replaces every MANY_TO_MANY relation with a join table and two
// MANY_TO_ONE relations. With merging enabled, parallel relations from one
// table to the same target share a join table with a discriminator column.
func (s *synthesis) manyToMany() {
	merge := s.cfg.Schema.MergeJoinTables
	for _, t := range append([]*models.Table(nil), s.schema.Tables...) {
		if t.JoinTable {
			continue
		}
		rels := s.manyToManyFrom(t)
		if merge.Enabled {
			for _, group := range groupByTarget(rels) {
				if len(group) > merge.Threshold {
					s.mergeJoin(t, group)
				}
			}
			rels = s.manyToManyFrom(t)
		}
		for _, rel := range rels {
			if !s.alive(rel) {
				continue
			}
			s.plainJoin(rel)
		}
	}
}

func (s *synthesis) manyToManyFrom(t *models.Table) []*models.Relation {
	var out []*models.Relation
	for _, r := range s.schema.RelationsFrom(t.Name) {
		if r.Multiplicity == models.ManyToMany && !r.Inheritance {
			out = append(out, r)
		}
	}
	return out
}

func groupByTarget(rels []*models.Relation) [][]*models.Relation {
	index := make(map[string]int)
	var groups [][]*models.Relation
	for _, r := range rels {
		i, ok := index[r.To]
		if !ok {
			i = len(groups)
			index[r.To] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

func (s *synthesis) alive(rel *models.Relation) bool {
	for _, r := range s.schema.Relations {
		if r == rel {
			return true
		}
	}
	return false
}

func (s *synthesis) plainJoin(rel *models.Relation) {
	from, to := s.schema.Table(rel.From), s.schema.Table(rel.To)
	name := s.joinTableName(rel)
	join, fromCopy, toCopy := s.newJoinTable(name, from, to)

	s.removeRelation(rel)
	s.appendJoinRelations(join, rel.Name, rel.PropertyURI, from, to, fromCopy, toCopy)
}

func (s *synthesis) joinTableName(rel *models.Relation) string {
	taken := func(n string) bool { return s.schema.Table(n) != nil }
	if name := rel.From + "_" + rel.To; !taken(name) {
		return name
	}
	return uniqueName(rel.From+"_"+rel.Name+"_"+rel.To, taken)
}

// newJoinTable creates a join table holding copies of both endpoints'
// primary keys. Returns the table and the copies of each endpoint's id
// column.
func (s *synthesis) newJoinTable(name string, from, to *models.Table) (*models.Table, *models.Column, *models.Column) {
	join := &models.Table{Name: name, JoinTable: true}
	fromCopy := copyKeys(join, from, s.idColumn(from))
	toCopy := copyKeys(join, to, s.idColumn(to))
	s.schema.Tables = append(s.schema.Tables, join)
	return join, fromCopy, toCopy
}

// copyKeys appends the primary keys of src to join, prefixed with the source
// table name. Returns the copy of idCol.
func copyKeys(join, src *models.Table, idCol *models.Column) *models.Column {
	var idCopy *models.Column
	for _, pk := range src.PrimaryKeys() {
		col := pk.Clone()
		col.Name = uniqueColumnName(join, src.Name+"_"+pk.Name)
		col.Comment = ""
		col.Multiplicity = ""
		col.PrimaryKey = true
		col.ForeignKey = true
		col.Nullable = false
		join.Columns = append(join.Columns, col)
		if pk == idCol {
			idCopy = col
		}
	}
	return idCopy
}

func (s *synthesis) appendJoinRelations(join *models.Table, name, propertyURI string, from, to *models.Table, fromCopy, toCopy *models.Column) {
	for _, end := range []struct {
		table *models.Table
		copy  *models.Column
	}{{from, fromCopy}, {to, toCopy}} {
		if end.copy == nil {
			continue
		}
		s.schema.Relations = append(s.schema.Relations, &models.Relation{
			Name:         name,
			PropertyURI:  propertyURI,
			From:         join.Name,
			FromColumn:   end.copy.Name,
			To:           end.table.Name,
			ToColumn:     s.idColumn(end.table).Name,
			Multiplicity: models.ManyToOne,
		})
	}
}

// mergeJoin folds parallel many-to-many relations from t to one target into
// a single join table discriminated by an enum column.
func (s *synthesis) mergeJoin(t *models.Table, group []*models.Relation) {
	to := s.schema.Table(group[0].To)
	merge := s.cfg.Schema.MergeJoinTables

	enumName := uniqueName(singularTable(t.Name)+"_"+singularTable(to.Name)+"_merge_type",
		func(n string) bool { return s.schema.EnumType(n) != nil })
	values := make([]string, 0, len(group))
	for _, r := range group {
		values = append(values, r.Name)
	}
	s.schema.EnumTypes = append(s.schema.EnumTypes, &models.EnumType{Name: enumName, Values: values})

	name := uniqueName(t.Name+"_"+to.Name, func(n string) bool { return s.schema.Table(n) != nil })
	join, fromCopy, toCopy := s.newJoinTable(name, t, to)
	join.Columns = append(join.Columns, &models.Column{
		Name:       uniqueColumnName(join, merge.AttributeName),
		SQLType:    enumName,
		EnumType:   enumName,
		PrimaryKey: true,
	})

	for _, r := range group {
		s.removeRelation(r)
	}
	s.appendJoinRelations(join, join.Name, "", t, to, fromCopy, toCopy)
}

// removeRelation drops rel, its inverse and the foreign key columns both
// added to their source tables.
func (s *synthesis) removeRelation(rel *models.Relation) {
	inverse := s.inverses[rel.PropertyURI]
	for _, r := range append([]*models.Relation(nil), s.schema.Relations...) {
		isInverse := inverse != "" && r.PropertyURI == inverse && r.From == rel.To && r.To == rel.From
		if r != rel && !isInverse {
			continue
		}
		s.schema.RemoveRelation(r)
		if t := s.schema.Table(r.From); t != nil {
			t.RemoveColumn(r.FromColumn)
		}
	}
}

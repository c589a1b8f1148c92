package render

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

const generatedHeader = "-- Generated by ontoschema. Do not edit.\n"

// maxIdentifierLength is the PostgreSQL NAMEDATALEN limit minus one.
const maxIdentifierLength = 63

var plainIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// reservedWords are the PostgreSQL reserved keywords likely to collide with
// names derived from ontology terms.
var reservedWords = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "both": true, "case": true,
	"cast": true, "check": true, "collate": true, "column": true,
	"constraint": true, "create": true, "current_date": true,
	"current_role": true, "current_time": true, "current_timestamp": true,
	"current_user": true, "default": true, "deferrable": true, "desc": true,
	"distinct": true, "do": true, "else": true, "end": true, "except": true,
	"false": true, "fetch": true, "for": true, "foreign": true, "from": true,
	"grant": true, "group": true, "having": true, "in": true,
	"initially": true, "intersect": true, "into": true, "lateral": true,
	"leading": true, "limit": true, "localtime": true, "localtimestamp": true,
	"not": true, "null": true, "offset": true, "on": true, "only": true,
	"or": true, "order": true, "placing": true, "primary": true,
	"references": true, "returning": true, "select": true,
	"session_user": true, "some": true, "symmetric": true, "table": true,
	"then": true, "to": true, "trailing": true, "true": true, "union": true,
	"unique": true, "user": true, "using": true, "variadic": true,
	"when": true, "where": true, "window": true, "with": true,
}

// QuoteIdentifier returns name as a PostgreSQL identifier, double-quoted
// when it is not a plain lower-case name or collides with a keyword.
func QuoteIdentifier(name string) string {
	if plainIdentifier.MatchString(name) && !reservedWords[name] {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral returns s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SQLRenderer emits PostgreSQL DDL for the synthesized schema.
type SQLRenderer struct {
	logger *zap.Logger
}

var _ Renderer = (*SQLRenderer)(nil)

// NewSQLRenderer creates the DDL renderer.
func NewSQLRenderer(logger *zap.Logger) *SQLRenderer {
	return &SQLRenderer{logger: logger.Named("sql-renderer")}
}

func (r *SQLRenderer) Format() string { return config.FormatSQL }

// Render writes enum types, then tables, then foreign keys, then comments.
// Foreign keys come last so table order never matters.
func (r *SQLRenderer) Render(ws *models.Workspace) ([]byte, error) {
	s := ws.Schema
	var b strings.Builder
	b.WriteString(generatedHeader)

	for _, e := range s.EnumTypes {
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("enum type %q has no values", e.Name)
		}
		values := make([]string, len(e.Values))
		for i, v := range e.Values {
			values[i] = QuoteLiteral(v)
		}
		fmt.Fprintf(&b, "\nCREATE TYPE %s AS ENUM (%s);\n", QuoteIdentifier(e.Name), strings.Join(values, ", "))
	}

	for _, t := range s.Tables {
		if err := writeCreateTable(&b, t); err != nil {
			return nil, err
		}
	}

	constraints := foreignKeyConstraints(s)
	if len(constraints) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(constraints, "\n"))
		b.WriteString("\n")
	}

	comments := r.comments(s)
	if len(comments) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(comments, "\n"))
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// RenderDrop returns the statements that undo Render, for a down migration.
func (r *SQLRenderer) RenderDrop(ws *models.Workspace) []byte {
	s := ws.Schema
	var b strings.Builder
	b.WriteString(generatedHeader)
	b.WriteString("\n")
	for i := len(s.Tables) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s CASCADE;\n", QuoteIdentifier(s.Tables[i].Name))
	}
	for i := len(s.EnumTypes) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "DROP TYPE IF EXISTS %s;\n", QuoteIdentifier(s.EnumTypes[i].Name))
	}
	return []byte(b.String())
}

func writeCreateTable(b *strings.Builder, t *models.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", t.Name)
	}
	lines := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		line := fmt.Sprintf("    %s %s", QuoteIdentifier(c.Name), columnType(c))
		if !c.Nullable {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	if pks := t.PrimaryKeys(); len(pks) > 0 {
		names := make([]string, len(pks))
		for i, c := range pks {
			names[i] = QuoteIdentifier(c.Name)
		}
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", strings.Join(names, ", ")))
	}
	fmt.Fprintf(b, "\nCREATE TABLE %s (\n%s\n);\n", QuoteIdentifier(t.Name), strings.Join(lines, ",\n"))
	return nil
}

func columnType(c *models.Column) string {
	if c.EnumType != "" {
		return QuoteIdentifier(c.EnumType)
	}
	return c.SQLType
}

// foreignKeyConstraints emits one constraint per distinct (table, column)
// pair that references another table.
func foreignKeyConstraints(s *models.Schema) []string {
	seen := make(map[string]bool)
	names := make(map[string]bool)
	var out []string
	for _, rel := range s.Relations {
		from, to := s.Table(rel.From), s.Table(rel.To)
		if from == nil || to == nil || from.Column(rel.FromColumn) == nil || to.Column(rel.ToColumn) == nil {
			continue
		}
		key := rel.From + "." + rel.FromColumn
		if seen[key] {
			continue
		}
		seen[key] = true

		name := constraintName("fk_"+rel.From+"_"+rel.FromColumn, names)
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);",
			QuoteIdentifier(rel.From), QuoteIdentifier(name), QuoteIdentifier(rel.FromColumn),
			QuoteIdentifier(rel.To), QuoteIdentifier(rel.ToColumn)))
	}
	return out
}

// constraintName truncates to the identifier limit and numbers duplicates.
func constraintName(name string, taken map[string]bool) string {
	if len(name) > maxIdentifierLength {
		name = name[:maxIdentifierLength]
	}
	candidate := name
	for i := 2; taken[candidate]; i++ {
		suffix := fmt.Sprintf("_%d", i)
		base := name
		if len(base)+len(suffix) > maxIdentifierLength {
			base = base[:maxIdentifierLength-len(suffix)]
		}
		candidate = base + suffix
	}
	taken[candidate] = true
	return candidate
}

func (r *SQLRenderer) comments(s *models.Schema) []string {
	var out []string
	for _, t := range s.Tables {
		if text, ok := r.safeComment(t.Name, t.Comment); ok {
			out = append(out, fmt.Sprintf("COMMENT ON TABLE %s IS %s;", QuoteIdentifier(t.Name), QuoteLiteral(text)))
		}
		for _, c := range t.Columns {
			target := t.Name + "." + c.Name
			if text, ok := r.safeComment(target, c.Comment); ok {
				out = append(out, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s;",
					QuoteIdentifier(t.Name), QuoteIdentifier(c.Name), QuoteLiteral(text)))
			}
		}
	}
	return out
}

// safeComment normalizes whitespace and rejects text libinjection flags.
func (r *SQLRenderer) safeComment(target, text string) (string, bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", false
	}
	if res := CheckCommentForInjection(target, text); res != nil {
		r.logger.Warn("Dropping comment that looks like SQL injection",
			zap.String("target", res.Target),
			zap.String("fingerprint", res.Fingerprint))
		return "", false
	}
	return text, true
}

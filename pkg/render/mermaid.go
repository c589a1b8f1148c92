package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

var mermaidUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// mermaidID makes a name usable as a Mermaid node id.
func mermaidID(name string) string {
	id := mermaidUnsafe.ReplaceAllString(name, "_")
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		id = "_" + id
	}
	return id
}

// mermaidLabel strips characters that end a Mermaid label.
func mermaidLabel(s string) string {
	return strings.NewReplacer(`"`, "'", "\n", " ", "\r", " ").Replace(s)
}

// cardinalityLabel formats bounds as "min..max" with "*" for unbounded.
func cardinalityLabel(c models.Cardinality) string {
	lower := "0"
	if c.Min != nil {
		lower = strconv.Itoa(*c.Min)
	}
	upper := "*"
	if c.Max != nil {
		upper = strconv.Itoa(*c.Max)
	}
	if lower == upper {
		return lower
	}
	return lower + ".." + upper
}

// ============================================================================
// Class diagram
// ============================================================================

// ClassDiagramRenderer emits a Mermaid classDiagram of the class model.
type ClassDiagramRenderer struct {
	styles bool
}

var _ Renderer = (*ClassDiagramRenderer)(nil)

// NewClassDiagramRenderer creates the class diagram renderer. With styles
// set, interfaces and enums get their own classDef.
func NewClassDiagramRenderer(styles bool) *ClassDiagramRenderer {
	return &ClassDiagramRenderer{styles: styles}
}

func (r *ClassDiagramRenderer) Format() string { return config.FormatClassDiagram }

func (r *ClassDiagramRenderer) Render(ws *models.Workspace) ([]byte, error) {
	m := ws.ClassModel
	var b strings.Builder
	b.WriteString("classDiagram\n")

	for _, c := range m.All() {
		writeClassBlock(&b, m, c)
	}

	for _, c := range append(append([]*models.Clazz{}, m.Classes...), m.Interfaces...) {
		id := mermaidID(c.Name)
		if c.ExtendsClass != "" {
			if parent := m.Lookup(c.ExtendsClass); parent != nil {
				fmt.Fprintf(&b, "    %s <|-- %s\n", mermaidID(parent.Name), id)
			}
		}
		for _, uri := range c.Interfaces {
			iface := m.Lookup(uri)
			if iface == nil {
				continue
			}
			arrow := "<|.."
			if c.Kind == models.KindInterface {
				arrow = "<|--"
			}
			fmt.Fprintf(&b, "    %s %s %s\n", mermaidID(iface.Name), arrow, id)
		}
	}

	for _, c := range append(append([]*models.Clazz{}, m.Classes...), m.Interfaces...) {
		for _, a := range c.Attributes {
			target := m.Lookup(a.Target)
			if target == nil || target.Kind == models.KindEnum {
				continue
			}
			fmt.Fprintf(&b, "    %s --> \"%s\" %s : %s\n",
				mermaidID(c.Name), cardinalityLabel(a.CardinalityTo), mermaidID(target.Name), mermaidID(a.Name))
		}
	}

	if r.styles {
		writeClassStyles(&b, m)
	}
	return []byte(b.String()), nil
}

func writeClassBlock(b *strings.Builder, m *models.ClassModel, c *models.Clazz) {
	fmt.Fprintf(b, "    class %s {\n", mermaidID(c.Name))
	switch c.Kind {
	case models.KindInterface:
		b.WriteString("        <<interface>>\n")
	case models.KindEnum:
		b.WriteString("        <<enumeration>>\n")
		for _, v := range c.Values {
			fmt.Fprintf(b, "        %s\n", mermaidID(v.Name))
		}
	}
	for _, a := range c.Attributes {
		typ := a.DataType
		if target := m.Lookup(a.Target); target != nil {
			typ = target.Name
		}
		if a.CardinalityTo.IsMany() {
			typ += "[]"
		}
		fmt.Fprintf(b, "        +%s %s\n", mermaidID(typ), mermaidID(a.Name))
	}
	b.WriteString("    }\n")
}

func writeClassStyles(b *strings.Builder, m *models.ClassModel) {
	b.WriteString("    classDef interface fill:#e8f0fe,stroke:#4a6fa5\n")
	b.WriteString("    classDef enumeration fill:#fdf3e1,stroke:#b7862b\n")
	if ids := clazzIDs(m.Interfaces); ids != "" {
		fmt.Fprintf(b, "    cssClass \"%s\" interface\n", ids)
	}
	if ids := clazzIDs(m.Enums); ids != "" {
		fmt.Fprintf(b, "    cssClass \"%s\" enumeration\n", ids)
	}
}

func clazzIDs(cs []*models.Clazz) string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = mermaidID(c.Name)
	}
	return strings.Join(ids, ",")
}

// ============================================================================
// ER diagram
// ============================================================================

// ERDiagramRenderer emits a Mermaid erDiagram of the relational schema.
type ERDiagramRenderer struct{}

var _ Renderer = (*ERDiagramRenderer)(nil)

// NewERDiagramRenderer creates the ER diagram renderer.
func NewERDiagramRenderer() *ERDiagramRenderer {
	return &ERDiagramRenderer{}
}

func (r *ERDiagramRenderer) Format() string { return config.FormatERDiagram }

func (r *ERDiagramRenderer) Render(ws *models.Workspace) ([]byte, error) {
	s := ws.Schema
	var b strings.Builder
	b.WriteString("erDiagram\n")

	for _, t := range s.Tables {
		fmt.Fprintf(&b, "    %s {\n", mermaidID(t.Name))
		for _, c := range t.Columns {
			var keys []string
			if c.PrimaryKey {
				keys = append(keys, "PK")
			}
			if c.ForeignKey {
				keys = append(keys, "FK")
			}
			line := fmt.Sprintf("        %s %s", mermaidID(columnType(c)), mermaidID(c.Name))
			if len(keys) > 0 {
				line += " " + strings.Join(keys, ", ")
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("    }\n")
	}

	for _, rel := range s.Relations {
		if s.Table(rel.From) == nil || s.Table(rel.To) == nil {
			continue
		}
		left, right := erMarkers(rel.Multiplicity)
		fmt.Fprintf(&b, "    %s %s--%s %s : \"%s\"\n",
			mermaidID(rel.From), left, right, mermaidID(rel.To), mermaidLabel(rel.Name))
	}
	return []byte(b.String()), nil
}

// erMarkers maps a multiplicity to crow's-foot ends. The first token
// describes the From side, the second the To side.
func erMarkers(m models.Multiplicity) (string, string) {
	from, to, _ := strings.Cut(string(m), "_TO_")
	left, right := "|o", "o|"
	if from == "MANY" {
		left = "}o"
	}
	if to == "MANY" {
		right = "o{"
	}
	return left, right
}

package render

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// SHACLRenderer emits one sh:NodeShape per emitted class, interface and enum.
type SHACLRenderer struct{}

var _ Renderer = (*SHACLRenderer)(nil)

// NewSHACLRenderer creates the SHACL renderer.
func NewSHACLRenderer() *SHACLRenderer {
	return &SHACLRenderer{}
}

func (r *SHACLRenderer) Format() string { return config.FormatSHACL }

func (r *SHACLRenderer) Render(ws *models.Workspace) ([]byte, error) {
	m := ws.ClassModel
	var b strings.Builder
	fmt.Fprintf(&b, "@prefix sh: <%s> .\n", graph.SHNS)
	fmt.Fprintf(&b, "@prefix xsd: <%s> .\n", graph.XSDNS)

	for _, c := range m.All() {
		if c.URI == "" {
			return nil, fmt.Errorf("shape for %q has no URI", c.Name)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "<%sShape>\n", c.URI)
		b.WriteString("    a sh:NodeShape ;\n")
		fmt.Fprintf(&b, "    sh:targetClass <%s> ;\n", c.URI)
		if c.Label != "" {
			fmt.Fprintf(&b, "    sh:name %s ;\n", turtleString(c.Label))
		}
		if c.Comment != "" {
			fmt.Fprintf(&b, "    sh:description %s ;\n", turtleString(c.Comment))
		}
		if c.Kind == models.KindEnum {
			fmt.Fprintf(&b, "    sh:in %s ;\n", enumList(c))
		}
		for _, a := range c.Attributes {
			writePropertyShape(&b, m, a)
		}
		b.WriteString("    .\n")
	}
	return []byte(b.String()), nil
}

func writePropertyShape(b *strings.Builder, m *models.ClassModel, a *models.Attribute) {
	b.WriteString("    sh:property [\n")
	fmt.Fprintf(b, "        sh:path <%s> ;\n", a.URI)
	fmt.Fprintf(b, "        sh:name %s ;\n", turtleString(a.Name))

	target := m.Lookup(a.Target)
	rangeURI := a.FirstRange()
	switch {
	case target != nil && target.Kind == models.KindEnum:
		fmt.Fprintf(b, "        sh:in %s ;\n", enumList(target))
	case target != nil:
		fmt.Fprintf(b, "        sh:class <%s> ;\n", target.URI)
	case strings.HasPrefix(rangeURI, graph.XSDNS):
		fmt.Fprintf(b, "        sh:datatype xsd:%s ;\n", strings.TrimPrefix(rangeURI, graph.XSDNS))
	case rangeURI == graph.RDFSLiteral:
		b.WriteString("        sh:nodeKind sh:Literal ;\n")
	case rangeURI != "":
		fmt.Fprintf(b, "        sh:class <%s> ;\n", rangeURI)
	}

	if min := a.CardinalityTo.Min; min != nil && *min > 0 {
		fmt.Fprintf(b, "        sh:minCount %d ;\n", *min)
	}
	if max := a.CardinalityTo.Max; max != nil {
		fmt.Fprintf(b, "        sh:maxCount %d ;\n", *max)
	}
	b.WriteString("    ] ;\n")
}

func enumList(c *models.Clazz) string {
	members := make([]string, len(c.Values))
	for i, v := range c.Values {
		members[i] = "<" + v.URI + ">"
	}
	return "( " + strings.Join(members, " ") + " )"
}

// turtleString quotes s as a Turtle short string literal.
func turtleString(s string) string {
	return `"` + strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	).Replace(s) + `"`
}

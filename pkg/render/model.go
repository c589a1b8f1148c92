package render

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// ModelRenderer dumps the class model and schema as YAML. Run ids and
// timestamps are left out so identical input gives identical output.
type ModelRenderer struct{}

var _ Renderer = (*ModelRenderer)(nil)

// NewModelRenderer creates the YAML model renderer.
func NewModelRenderer() *ModelRenderer {
	return &ModelRenderer{}
}

func (r *ModelRenderer) Format() string { return config.FormatModel }

type modelDoc struct {
	Source     string         `yaml:"source"`
	Concepts   string         `yaml:"concepts,omitempty"`
	Classes    []clazzDoc     `yaml:"classes"`
	Interfaces []clazzDoc     `yaml:"interfaces"`
	Enums      []clazzDoc     `yaml:"enums"`
	Schema     *models.Schema `yaml:"schema"`
	Warnings   []warningDoc   `yaml:"warnings,omitempty"`
}

type clazzDoc struct {
	URI          string              `yaml:"uri"`
	Name         string              `yaml:"name"`
	Label        string              `yaml:"label,omitempty"`
	Comment      string              `yaml:"comment,omitempty"`
	ExtendsClass string              `yaml:"extends_class,omitempty"`
	Interfaces   []string            `yaml:"interfaces,omitempty"`
	Attributes   []attributeDoc      `yaml:"attributes,omitempty"`
	Values       []*models.EnumValue `yaml:"values,omitempty"`
}

type attributeDoc struct {
	URI          string              `yaml:"uri"`
	Name         string              `yaml:"name"`
	Type         string              `yaml:"type"`
	Target       string              `yaml:"target,omitempty"`
	Cardinality  string              `yaml:"cardinality"`
	Multiplicity models.Multiplicity `yaml:"multiplicity,omitempty"`
	Identifier   bool                `yaml:"identifier,omitempty"`
	InverseOf    string              `yaml:"inverse_of,omitempty"`
	Comment      string              `yaml:"comment,omitempty"`
}

type warningDoc struct {
	Stage   models.StageID `yaml:"stage"`
	URI     string         `yaml:"uri,omitempty"`
	Message string         `yaml:"message"`
}

func (r *ModelRenderer) Render(ws *models.Workspace) ([]byte, error) {
	doc := modelDoc{
		Source:     ws.SourcePath,
		Concepts:   ws.ConceptsPath,
		Classes:    clazzDocs(ws.ClassModel, ws.ClassModel.Classes),
		Interfaces: clazzDocs(ws.ClassModel, ws.ClassModel.Interfaces),
		Enums:      clazzDocs(ws.ClassModel, ws.ClassModel.Enums),
		Schema:     ws.Schema,
	}
	for _, w := range ws.Warnings {
		doc.Warnings = append(doc.Warnings, warningDoc{Stage: w.Stage, URI: w.URI, Message: w.Message})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return buf.Bytes(), nil
}

func clazzDocs(m *models.ClassModel, cs []*models.Clazz) []clazzDoc {
	out := make([]clazzDoc, 0, len(cs))
	for _, c := range cs {
		d := clazzDoc{
			URI:          c.URI,
			Name:         c.Name,
			Label:        c.Label,
			Comment:      c.Comment,
			ExtendsClass: c.ExtendsClass,
			Interfaces:   c.Interfaces,
			Values:       c.Values,
		}
		for _, a := range c.Attributes {
			typ := a.DataType
			if t := m.Lookup(a.Target); t != nil {
				typ = t.Name
			}
			d.Attributes = append(d.Attributes, attributeDoc{
				URI:          a.URI,
				Name:         a.Name,
				Type:         typ,
				Target:       a.Target,
				Cardinality:  cardinalityLabel(a.CardinalityTo),
				Multiplicity: a.Multiplicity,
				Identifier:   a.Identifier,
				InverseOf:    a.InverseOf,
				Comment:      a.Comment,
			})
		}
		out = append(out, d)
	}
	return out
}

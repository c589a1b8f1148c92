package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

const hr = "http://example.org/hr#"

var prefixes = strings.NewReplacer(
	"<ex:", "<"+hr,
	"<rdf:", "<"+graph.RDFNS,
	"<rdfs:", "<"+graph.RDFSNS,
	"<owl:", "<"+graph.OWLNS,
	"<xsd:", "<"+graph.XSDNS,
	"<skos:", "<"+graph.SKOSNS,
	"<hydra:", "<"+graph.HydraNS,
)

// hrOntology: Person and Organization extend Agent. A person has at most
// one employer, any number of skills and a status drawn from two
// individuals.
const hrOntology = `
<http://example.org/hr> <rdf:type> <owl:Ontology> .
<ex:Agent> <rdf:type> <owl:Class> .
<ex:Agent> <rdfs:comment> "Something that acts" .
<ex:Person> <rdf:type> <owl:Class> .
<ex:Person> <rdfs:label> "Person"@en .
<ex:Person> <rdfs:subClassOf> <ex:Agent> .
<ex:Person> <rdfs:subClassOf> _:r1 .
_:r1 <rdf:type> <owl:Restriction> .
_:r1 <owl:onProperty> <ex:employer> .
_:r1 <owl:maxCardinality> "1"^^<xsd:nonNegativeInteger> .
<ex:Organization> <rdf:type> <owl:Class> .
<ex:Organization> <rdfs:subClassOf> <ex:Agent> .
<ex:Skill> <rdf:type> <owl:Class> .
<ex:Status> <rdf:type> <owl:Class> .
<ex:Active> <rdf:type> <ex:Status> .
<ex:Active> <rdfs:label> "Active" .
<ex:Retired> <rdf:type> <ex:Status> .
<ex:name> <rdfs:domain> <ex:Agent> .
<ex:name> <rdfs:range> <xsd:string> .
<ex:employer> <rdfs:range> <ex:Organization> .
<ex:skill> <rdfs:domain> <ex:Person> .
<ex:skill> <rdfs:range> <ex:Skill> .
<ex:status> <rdfs:domain> <ex:Person> .
<ex:status> <rdfs:range> <ex:Status> .
`

func parseNT(t *testing.T, nt string) *graph.Store {
	t.Helper()
	g, err := graph.ParseBytes([]byte(prefixes.Replace(nt)))
	require.NoError(t, err)
	return g
}

func writeNT(t *testing.T, dir, name, nt string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(prefixes.Replace(nt)), 0o644))
	return path
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Ontology.IdentifierProperty = config.DefaultIdentifierProperty
	cfg.Ontology.EnumClasses = []string{hr + "Status"}
	cfg.Schema.InterfaceThreshold = 1
	cfg.Schema.TableNaming = config.TableNamingSnake
	cfg.Schema.MergeJoinTables = config.MergeJoinTablesConfig{AttributeName: "relation_type", Threshold: 1}
	return cfg
}

// buildOntology runs every ontology builder stage in catalogue order.
func buildOntology(t *testing.T, cfg *config.Config, ws *models.Workspace) {
	t.Helper()
	ctx := context.Background()
	b := NewOntologyBuilderService(cfg, zap.NewNop())

	steps := []func(context.Context, *models.Workspace) (int, error){
		b.ExtractClasses,
		b.ExtractURITemplates,
		b.ExtractProperties,
		b.ExtractIndividuals,
		b.ApplyPropertyOverrides,
	}
	if ws.ConceptGraph != nil {
		steps = append(steps, b.ExtractConceptScheme)
	}
	steps = append(steps, b.ExtractConceptClasses, b.AddExtraProperties)
	for _, step := range steps {
		_, err := step(ctx, ws)
		require.NoError(t, err)
	}
}

// compile builds, simplifies and synthesizes the given source graph.
func compile(t *testing.T, cfg *config.Config, source string) *models.Workspace {
	t.Helper()
	ws := models.NewWorkspace("hr.nt", "")
	ws.SourceGraph = parseNT(t, source)
	buildOntology(t, cfg, ws)

	cm, err := NewClassSimplifierService(cfg, zap.NewNop()).Simplify(context.Background(), ws)
	require.NoError(t, err)
	ws.ClassModel = cm

	schema, err := NewSchemaSynthesizerService(cfg, zap.NewNop()).Synthesize(context.Background(), ws)
	require.NoError(t, err)
	ws.Schema = schema
	return ws
}

func attributeURIs(c *models.Clazz) []string {
	out := make([]string, 0, len(c.Attributes))
	for _, a := range c.Attributes {
		out = append(out, a.URI)
	}
	return out
}

func columnNames(t *models.Table) []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

func tableNames(s *models.Schema) []string {
	out := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		out = append(out, t.Name)
	}
	return out
}

func intp(v int) *int { return &v }

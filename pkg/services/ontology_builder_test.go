package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

func newBuilderWorkspace(t *testing.T, nt string) *models.Workspace {
	t.Helper()
	ws := models.NewWorkspace("hr.nt", "")
	ws.SourceGraph = parseNT(t, nt)
	return ws
}

func TestOntologyBuilder_ExtractClasses(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology+`
<ex:Person> <rdfs:subClassOf> <http://schema.org/Thing> .
`)
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())

	n, err := b.ExtractClasses(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	ont := ws.Ontology
	assert.Equal(t, "http://example.org/hr", ont.URI)

	var uris []string
	for _, c := range ont.Classes() {
		uris = append(uris, c.URI)
	}
	assert.Equal(t, []string{
		hr + "Agent", hr + "Organization", hr + "Person", hr + "Skill", hr + "Status",
		"http://schema.org/Thing",
	}, uris)

	person := ont.Class(hr + "Person")
	assert.Equal(t, models.ScopeOntology, person.Scope)
	assert.Equal(t, "Person", person.Label)
	assert.Equal(t, []string{hr + "Agent", "http://schema.org/Thing"}, person.SuperClasses)
	assert.Equal(t, "Something that acts", ont.Class(hr+"Agent").Comment)

	thing := ont.Class("http://schema.org/Thing")
	assert.Equal(t, models.ScopeExternal, thing.Scope)
	assert.Equal(t, "Thing", thing.Name)
}

func TestOntologyBuilder_ExtractClasses_SameNamespaceSuperclassIsOntologyScope(t *testing.T) {
	ws := newBuilderWorkspace(t, `
<ex:Person> <rdf:type> <owl:Class> .
<ex:Person> <rdfs:subClassOf> <ex:Undeclared> .
`)
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())

	_, err := b.ExtractClasses(context.Background(), ws)
	require.NoError(t, err)
	require.NotNil(t, ws.Ontology.Class(hr+"Undeclared"))
	assert.Equal(t, models.ScopeOntology, ws.Ontology.Class(hr+"Undeclared").Scope)
}

func TestOntologyBuilder_ExtractClasses_RequiresSourceGraph(t *testing.T) {
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())

	_, err := b.ExtractClasses(context.Background(), models.NewWorkspace("hr.nt", ""))
	require.Error(t, err)
	var se *apperrors.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, string(models.StageClassExtract), se.Stage)
}

func TestOntologyBuilder_StagesRequireClasses(t *testing.T) {
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())
	ws := newBuilderWorkspace(t, hrOntology)
	ctx := context.Background()

	for name, step := range map[string]func(context.Context, *models.Workspace) (int, error){
		"uri templates": b.ExtractURITemplates,
		"properties":    b.ExtractProperties,
		"individuals":   b.ExtractIndividuals,
		"extras":        b.AddExtraProperties,
		"overrides":     b.ApplyPropertyOverrides,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := step(ctx, ws)
			assert.ErrorIs(t, err, errOntologyNotBuilt)
		})
	}
}

func TestOntologyBuilder_ExtractProperties(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology+`
<ex:employer> <owl:inverseOf> <ex:employs> .
<ex:employer> <rdfs:comment> "Who pays the person" .
`)
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())
	ctx := context.Background()
	_, err := b.ExtractClasses(ctx, ws)
	require.NoError(t, err)

	_, err = b.ExtractProperties(ctx, ws)
	require.NoError(t, err)

	person := ws.Ontology.Class(hr + "Person")
	// Own restrictions, own domain properties, then inherited ones.
	assert.Equal(t, []string{hr + "employer", hr + "skill", hr + "status", hr + "name"}, propertyURIs(person))

	employer := person.Property(hr + "employer")
	assert.Equal(t, []string{hr + "Organization"}, employer.Range)
	assert.Nil(t, employer.CardinalityTo.Min)
	require.NotNil(t, employer.CardinalityTo.Max)
	assert.Equal(t, 1, *employer.CardinalityTo.Max)
	assert.Equal(t, hr+"employs", employer.InverseOf)
	assert.Equal(t, "Who pays the person", employer.Comment)
	assert.False(t, employer.Identifier)

	name := person.Property(hr + "name")
	assert.Equal(t, []string{graph.XSDString}, name.Range)
	assert.True(t, name.CardinalityTo.IsMany())

	// Every class owns its own copies.
	assert.NotSame(t, name, ws.Ontology.Class(hr+"Agent").Property(hr+"name"))
}

func TestOntologyBuilder_URITemplateIdentifiers(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology+`
<ex:Person> <hydra:search> _:s .
_:s <hydra:template> "http://example.org/people/{id}{?name}" .
_:s <hydra:mapping> _:m1 .
_:m1 <hydra:variable> "id" .
_:m1 <hydra:property> <ex:personId> .
_:s <hydra:mapping> _:m2 .
_:m2 <hydra:variable> "name" .
_:m2 <hydra:property> <ex:name> .
_:s <hydra:mapping> _:m3 .
_:m3 <hydra:variable> "orphan" .
<ex:personId> <rdfs:range> <xsd:string> .
`)
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())
	ctx := context.Background()
	_, err := b.ExtractClasses(ctx, ws)
	require.NoError(t, err)

	n, err := b.ExtractURITemplates(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	person := ws.Ontology.Class(hr + "Person")
	require.NotNil(t, person.URITemplate)
	assert.Equal(t, "http://example.org/people/{id}{?name}", person.URITemplate.Template)
	assert.Equal(t, map[string]string{"id": hr + "personId", "name": hr + "name"}, person.URITemplate.Variables)
	require.Len(t, ws.Warnings, 1)
	assert.Equal(t, models.StageURITemplate, ws.Warnings[0].Stage)

	_, err = b.ExtractProperties(ctx, ws)
	require.NoError(t, err)

	assert.True(t, person.Property(hr+"name").Identifier)
	personID := person.Property(hr + "personId")
	require.NotNil(t, personID, "template variables are added when nothing declares them")
	assert.True(t, personID.Identifier)
	assert.Equal(t, models.Bounded(1, 1), personID.CardinalityTo)
	assert.Equal(t, []string{graph.XSDString}, personID.Range)

	// Agent has no template so its name is not an identifier.
	assert.False(t, ws.Ontology.Class(hr+"Agent").Property(hr+"name").Identifier)
}

func TestOntologyBuilder_IdentifierProperty(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology+`
<ex:code> <rdfs:domain> <ex:Skill> .
`)
	cfg := testConfig()
	cfg.Ontology.IdentifierProperty = hr + "code"
	b := NewOntologyBuilderService(cfg, zap.NewNop())
	ctx := context.Background()
	_, err := b.ExtractClasses(ctx, ws)
	require.NoError(t, err)
	_, err = b.ExtractProperties(ctx, ws)
	require.NoError(t, err)

	assert.True(t, ws.Ontology.Class(hr+"Skill").Property(hr+"code").Identifier)
}

func TestOntologyBuilder_ExtractIndividuals(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology+`
<ex:Skill> <rdf:type> <ex:Status> .
`)
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())
	ctx := context.Background()
	_, err := b.ExtractClasses(ctx, ws)
	require.NoError(t, err)

	n, err := b.ExtractIndividuals(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{hr + "Active", hr + "Retired"}, ws.Ontology.Class(hr+"Status").Individuals,
		"classes typed with another class are not individuals")
}

func TestOntologyBuilder_AddExtraProperties(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology)
	cfg := testConfig()
	cfg.Ontology.ExtraProperties = []config.ExtraProperty{
		{URI: "urn:ontoschema:id", Name: "id", Range: graph.XSDString, Identifier: true, MinCardinality: intp(1), MaxCardinality: intp(1)},
		{URI: hr + "name"},
	}
	b := NewOntologyBuilderService(cfg, zap.NewNop())
	ctx := context.Background()
	_, err := b.ExtractClasses(ctx, ws)
	require.NoError(t, err)
	_, err = b.ExtractProperties(ctx, ws)
	require.NoError(t, err)

	n, err := b.AddExtraProperties(ctx, ws)
	require.NoError(t, err)
	// id goes everywhere; name only where it is missing (Skill, Status).
	assert.Equal(t, 5+2, n)

	for _, c := range ws.Ontology.Classes() {
		id := c.Property("urn:ontoschema:id")
		require.NotNil(t, id, c.URI)
		assert.True(t, id.Identifier)
		assert.Equal(t, "id", id.Name)
		assert.Equal(t, models.Bounded(1, 1), id.CardinalityTo)
	}
	// Existing properties are kept as extracted.
	assert.Equal(t, []string{graph.XSDString}, ws.Ontology.Class(hr+"Person").Property(hr+"name").Range)
	assert.Equal(t, "name", ws.Ontology.Class(hr+"Skill").Property(hr+"name").Name)
}

func TestOntologyBuilder_ApplyPropertyOverrides(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology)
	cfg := testConfig()
	cfg.Ontology.OverrideProperties = []config.OverrideProperty{
		{URI: hr + "name", MinCardinality: intp(1), MaxCardinality: intp(1)},
		{URI: hr + "skill", Range: graph.XSDString},
		{URI: hr + "missing", Range: graph.XSDString},
	}
	b := NewOntologyBuilderService(cfg, zap.NewNop())
	ctx := context.Background()
	_, err := b.ExtractClasses(ctx, ws)
	require.NoError(t, err)
	_, err = b.ExtractProperties(ctx, ws)
	require.NoError(t, err)

	n, err := b.ApplyPropertyOverrides(ctx, ws)
	require.NoError(t, err)
	// name on Agent, Organization and Person; skill on Person.
	assert.Equal(t, 4, n)

	for _, edge := range ws.Ontology.PropertyEdges(hr + "name") {
		assert.Equal(t, models.Bounded(1, 1), edge.CardinalityTo)
	}
	skill := ws.Ontology.Class(hr + "Person").Property(hr + "skill")
	assert.Equal(t, []string{graph.XSDString}, skill.Range)
	assert.True(t, skill.CardinalityTo.IsMany(), "range-only override keeps cardinality")

	require.Len(t, ws.Warnings, 1)
	assert.Equal(t, hr+"missing", ws.Warnings[0].URI)
}

func TestOntologyBuilder_ApplyPropertyOverrides_EmptyURI(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology)
	cfg := testConfig()
	cfg.Ontology.OverrideProperties = []config.OverrideProperty{{Range: graph.XSDString}}
	b := NewOntologyBuilderService(cfg, zap.NewNop())
	_, err := b.ExtractClasses(context.Background(), ws)
	require.NoError(t, err)

	_, err = b.ApplyPropertyOverrides(context.Background(), ws)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

const hrConcepts = `
<http://example.org/concepts#Employee> <rdf:type> <skos:Concept> .
<http://example.org/concepts#Employee> <owl:equivalentClass> <ex:Person> .
<http://example.org/concepts#Employee> <skos:prefLabel> "Employee" .
<http://example.org/concepts#Employee> <skos:definition> "A person employed by an organization" .
<http://example.org/concepts#Contractor> <rdf:type> <skos:Concept> .
<http://example.org/concepts#Contractor> <owl:equivalentClass> <ex:Contractor> .
<http://example.org/concepts#Contractor> <rdfs:label> "Contractor" .
<http://example.org/concepts#HourlyRate> <rdf:type> <skos:Concept> .
<http://example.org/concepts#HourlyRate> <owl:equivalentProperty> <ex:hourlyRate> .
`

func TestOntologyBuilder_ConceptScheme(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology+`
<ex:hourlyRate> <rdfs:domain> <ex:Contractor> .
<ex:hourlyRate> <rdfs:range> <xsd:decimal> .
<ex:nickname> <rdfs:domain> <ex:Contractor> .
`)
	ws.ConceptGraph = parseNT(t, hrConcepts)
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())
	ctx := context.Background()

	n, err := b.ExtractConceptScheme(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	scheme := ws.ConceptScheme
	employee := scheme.ClassConcept(hr + "Person")
	require.NotNil(t, employee)
	assert.Equal(t, "Employee", employee.Name)
	assert.Equal(t, "A person employed by an organization", employee.Comment)
	require.NotNil(t, scheme.PropertyConcept(hr+"hourlyRate"))
	assert.Nil(t, scheme.PropertyConcept(hr+"nickname"))

	_, err = b.ExtractClasses(ctx, ws)
	require.NoError(t, err)
	n, err = b.ExtractConceptClasses(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only concepts without an ontology class create one")

	contractor := ws.Ontology.Class(hr + "Contractor")
	require.NotNil(t, contractor)
	assert.Equal(t, models.ScopeOntology, contractor.Scope)
	assert.Equal(t, "Contractor", contractor.Label)
	assert.Equal(t, []string{hr + "hourlyRate"}, propertyURIs(contractor),
		"only properties with a property concept are attached")
	assert.Equal(t, models.Bounded(0, 1), contractor.Properties[0].CardinalityTo)
}

func TestOntologyBuilder_ExtractConceptScheme_RequiresGraph(t *testing.T) {
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())
	_, err := b.ExtractConceptScheme(context.Background(), models.NewWorkspace("hr.nt", "concepts.nt"))
	require.Error(t, err)
}

func TestOntologyBuilder_ExtractConceptClasses_NoSchemeIsNoop(t *testing.T) {
	ws := newBuilderWorkspace(t, hrOntology)
	b := NewOntologyBuilderService(testConfig(), zap.NewNop())
	_, err := b.ExtractClasses(context.Background(), ws)
	require.NoError(t, err)

	n, err := b.ExtractConceptClasses(context.Background(), ws)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOntologyBuilder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewOntologyBuilderService(testConfig(), zap.NewNop())
	_, err := b.ExtractClasses(ctx, newBuilderWorkspace(t, hrOntology))
	assert.ErrorIs(t, err, context.Canceled)
}

func propertyURIs(c *models.ClassNode) []string {
	out := make([]string, 0, len(c.Properties))
	for _, p := range c.Properties {
		out = append(out, p.URI)
	}
	return out
}

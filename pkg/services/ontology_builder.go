package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/services/dag"
)

var errOntologyNotBuilt = errors.New("ontology classes not extracted")

// OntologyBuilderService populates the raw ontology model from the workspace
// graphs. Each method is one pipeline stage and returns the number of items
// it created or changed.
type OntologyBuilderService interface {
	// ExtractClasses creates a ClassNode for every class declared in the
	// source graph and every superclass reachable from one.
	ExtractClasses(ctx context.Context, ws *models.Workspace) (int, error)

	// ExtractURITemplates attaches Hydra IRI templates to ontology classes.
	ExtractURITemplates(ctx context.Context, ws *models.Workspace) (int, error)

	// ExtractProperties collects restriction and domain properties for every
	// class, including those declared on its ancestors.
	ExtractProperties(ctx context.Context, ws *models.Workspace) (int, error)

	// ExtractIndividuals records named instances of each class.
	ExtractIndividuals(ctx context.Context, ws *models.Workspace) (int, error)

	// AddExtraProperties injects the configured extra properties.
	AddExtraProperties(ctx context.Context, ws *models.Workspace) (int, error)

	// ApplyPropertyOverrides replaces configured ranges and cardinalities.
	ApplyPropertyOverrides(ctx context.Context, ws *models.Workspace) (int, error)

	// ExtractConceptScheme reads class and property concepts.
	ExtractConceptScheme(ctx context.Context, ws *models.Workspace) (int, error)

	// ExtractConceptClasses creates classes named only by class concepts.
	ExtractConceptClasses(ctx context.Context, ws *models.Workspace) (int, error)
}

type ontologyBuilderService struct {
	cfg    *config.Config
	logger *zap.Logger
}

var (
	_ OntologyBuilderService     = (*ontologyBuilderService)(nil)
	_ dag.OntologyBuilderMethods = (*ontologyBuilderService)(nil)
)

// NewOntologyBuilderService creates a new ontology builder.
func NewOntologyBuilderService(cfg *config.Config, logger *zap.Logger) OntologyBuilderService {
	return &ontologyBuilderService{
		cfg:    cfg,
		logger: logger.Named("ontology-builder"),
	}
}

// ============================================================================
// Classes
// ============================================================================

func (s *ontologyBuilderService) ExtractClasses(ctx context.Context, ws *models.Workspace) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if ws.SourceGraph == nil {
		return 0, apperrors.NewStageError(string(models.StageClassExtract), "extract classes", "", errors.New("source graph not loaded"))
	}

	var ontologyURI string
	if uris := graph.ClassesByType(ws.SourceGraph, graph.OWLOntology); len(uris) > 0 {
		ontologyURI = uris[0]
	}
	ont := models.NewOntology(ontologyURI)
	ws.Ontology = ont

	union := ws.UnionGraph()
	labels := ws.QueryGraph()

	worklist := graph.AllClasses(ws.SourceGraph)
	for _, uri := range worklist {
		ont.AddClass(newClassNode(labels, uri, models.ScopeOntology))
	}

	for i := 0; i < len(worklist); i++ {
		uri := worklist[i]
		node := ont.Class(uri)
		for _, sup := range graph.Superclasses(union, ws.Inferred, uri, true) {
			if ont.Class(sup) == nil {
				scope := models.ScopeExternal
				if graph.Namespace(sup) == graph.Namespace(uri) {
					scope = models.ScopeOntology
				}
				ont.AddClass(newClassNode(labels, sup, scope))
				worklist = append(worklist, sup)
			}
			node.AddSuperClass(sup)
		}
	}

	dropped := canonicalizeSuperClasses(ont)
	if dropped > 0 {
		s.logger.Debug("Dropped unresolved superclass references", zap.Int("count", dropped))
	}

	s.logger.Debug("Extracted classes",
		zap.Int("ontology", len(ont.ClassesInScope(models.ScopeOntology))),
		zap.Int("external", len(ont.ClassesInScope(models.ScopeExternal))))
	return ont.Len(), nil
}

func newClassNode(g graph.Graph, uri string, scope models.Scope) *models.ClassNode {
	return &models.ClassNode{
		URI:     uri,
		Name:    graph.LocalName(uri),
		Label:   firstLiteral(g, uri, graph.RDFSLabel),
		Comment: firstLiteral(g, uri, graph.RDFSComment),
		Scope:   scope,
	}
}

// canonicalizeSuperClasses drops superclass references that have no node in
// the arena. Returns the number dropped.
func canonicalizeSuperClasses(ont *models.Ontology) int {
	dropped := 0
	for _, c := range ont.Classes() {
		kept := c.SuperClasses[:0]
		for _, sup := range c.SuperClasses {
			if ont.Class(sup) == nil {
				dropped++
				continue
			}
			kept = append(kept, sup)
		}
		c.SuperClasses = kept
	}
	return dropped
}

// ============================================================================
// URI templates
// ============================================================================

func (s *ontologyBuilderService) ExtractURITemplates(ctx context.Context, ws *models.Workspace) (int, error) {
	if ws.Ontology == nil {
		return 0, errOntologyNotBuilt
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	g := ws.QueryGraph()
	count := 0
	for _, c := range ws.Ontology.ClassesInScope(models.ScopeOntology) {
		for _, search := range graph.Objects(g, graph.IRI(c.URI), graph.HydraSearch) {
			tmpl, ok := termLiteral(g, search, graph.HydraTemplate)
			if !ok {
				continue
			}
			vars := make(map[string]string)
			for _, m := range graph.Objects(g, search, graph.HydraMapping) {
				variable, ok := termLiteral(g, m, graph.HydraVariable)
				if !ok {
					continue
				}
				props := graph.SortedIRIs(graph.Objects(g, m, graph.HydraProperty))
				if len(props) == 0 {
					ws.AddWarning(models.StageURITemplate, c.URI, "template variable %q has no property", variable)
					continue
				}
				vars[variable] = props[0]
			}
			c.URITemplate = &models.URITemplate{Template: tmpl, Variables: vars}
			count++
			break
		}
	}
	return count, nil
}

// ============================================================================
// Properties
// ============================================================================

func (s *ontologyBuilderService) ExtractProperties(ctx context.Context, ws *models.Workspace) (int, error) {
	if ws.Ontology == nil {
		return 0, errOntologyNotBuilt
	}

	g := ws.QueryGraph()
	identifierURI := s.cfg.IdentifierPropertyURI()
	count := 0

	for _, c := range ws.Ontology.Classes() {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		var templateProps []string
		if c.URITemplate != nil {
			templateProps = c.URITemplate.SortedVariables()
		}
		templateVars := make(map[string]bool, len(templateProps))
		for _, p := range templateProps {
			templateVars[p] = true
		}

		sources := append([]string{c.URI}, ws.Ontology.Ancestors(c.URI)...)
		for _, src := range sources {
			restrictions := graph.RestrictionProperties(g, src)
			restrictions = append(restrictions, graph.DomainProperties(g, src)...)
			for _, r := range restrictions {
				edge := newPropertyEdge(g, r)
				edge.Identifier = r.Property == identifierURI || templateVars[r.Property]
				if c.AddProperty(edge) {
					count++
				}
			}
		}

		// Template variables are identifiers even when nothing declares them.
		for _, p := range templateProps {
			if c.Property(p) != nil {
				continue
			}
			c.AddProperty(&models.PropertyEdge{
				URI:           p,
				Name:          graph.LocalName(p),
				Label:         firstLiteral(g, p, graph.RDFSLabel),
				Comment:       firstLiteral(g, p, graph.RDFSComment),
				Range:         graph.SortedIRIs(graph.Objects(g, graph.IRI(p), graph.RDFSRange)),
				Identifier:    true,
				CardinalityTo: models.Bounded(1, 1),
			})
			count++
		}
	}
	return count, nil
}

func newPropertyEdge(g graph.Graph, r graph.Restriction) *models.PropertyEdge {
	edge := &models.PropertyEdge{
		URI:           r.Property,
		Name:          graph.LocalName(r.Property),
		Label:         firstLiteral(g, r.Property, graph.RDFSLabel),
		Comment:       firstLiteral(g, r.Property, graph.RDFSComment),
		Range:         append([]string(nil), r.Range...),
		CardinalityTo: models.Cardinality{Min: r.Min, Max: r.Max}.Clone(),
	}
	if inv, ok := graph.InverseOf(g, r.Property); ok {
		edge.InverseOf = inv
	}
	return edge
}

// ============================================================================
// Individuals
// ============================================================================

func (s *ontologyBuilderService) ExtractIndividuals(ctx context.Context, ws *models.Workspace) (int, error) {
	if ws.Ontology == nil {
		return 0, errOntologyNotBuilt
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Asserted types only: inferred types would make every instance of a
	// subclass an individual of its ancestors too.
	union := ws.UnionGraph()
	count := 0
	for _, c := range ws.Ontology.Classes() {
		for _, ind := range graph.Individuals(union, c.URI) {
			if ws.Ontology.Class(ind) != nil {
				continue
			}
			c.AddIndividual(ind)
			count++
		}
	}
	return count, nil
}

// ============================================================================
// Configured properties
// ============================================================================

func (s *ontologyBuilderService) AddExtraProperties(ctx context.Context, ws *models.Workspace) (int, error) {
	if ws.Ontology == nil {
		return 0, errOntologyNotBuilt
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, extra := range s.cfg.Ontology.ExtraProperties {
		if extra.URI == "" {
			return count, &apperrors.ConfigError{Field: "ontology.extra_properties", Reason: "extra property has no URI"}
		}
		for _, c := range ws.Ontology.Classes() {
			if c.AddProperty(extraPropertyEdge(extra)) {
				count++
			}
		}
	}
	return count, nil
}

func extraPropertyEdge(extra config.ExtraProperty) *models.PropertyEdge {
	name := extra.Name
	if name == "" {
		name = graph.LocalName(extra.URI)
	}
	edge := &models.PropertyEdge{
		URI:           extra.URI,
		Name:          name,
		Label:         name,
		Identifier:    extra.Identifier,
		CardinalityTo: models.Cardinality{Min: extra.MinCardinality, Max: extra.MaxCardinality}.Clone(),
	}
	if extra.Range != "" {
		edge.Range = []string{extra.Range}
	}
	return edge
}

func (s *ontologyBuilderService) ApplyPropertyOverrides(ctx context.Context, ws *models.Workspace) (int, error) {
	if ws.Ontology == nil {
		return 0, errOntologyNotBuilt
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, o := range s.cfg.Ontology.OverrideProperties {
		if o.URI == "" {
			return count, &apperrors.ConfigError{Field: "ontology.override_properties", Reason: "override property has no URI"}
		}
		edges := ws.Ontology.PropertyEdges(o.URI)
		if len(edges) == 0 {
			ws.AddWarning(models.StagePropertyOverride, o.URI, "override matched no property")
			continue
		}
		for _, edge := range edges {
			if o.Range != "" {
				edge.Range = []string{o.Range}
			}
			if o.MinCardinality != nil || o.MaxCardinality != nil {
				edge.CardinalityTo = models.Cardinality{Min: o.MinCardinality, Max: o.MaxCardinality}.Clone()
			}
			count++
		}
	}
	return count, nil
}

// ============================================================================
// Concept scheme
// ============================================================================

func (s *ontologyBuilderService) ExtractConceptScheme(ctx context.Context, ws *models.Workspace) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if ws.ConceptGraph == nil {
		return 0, errors.New("concept graph not loaded")
	}

	g := ws.ConceptGraph
	scheme := &models.ConceptScheme{}
	for _, uri := range graph.ClassesByType(g, graph.SKOSConcept) {
		label := firstLiteral(g, uri, graph.SKOSPrefLabel, graph.RDFSLabel)
		comment := firstLiteral(g, uri, graph.SKOSDefinition, graph.RDFSComment)

		if eq := graph.SortedIRIs(graph.Objects(g, graph.IRI(uri), graph.OWLEquivalentClass)); len(eq) > 0 {
			scheme.ClassConcepts = append(scheme.ClassConcepts, &models.Concept{
				URI: uri, Name: graph.LocalName(uri), Label: label, Comment: comment, Equivalents: eq,
			})
		}
		if eq := graph.SortedIRIs(graph.Objects(g, graph.IRI(uri), graph.OWLEquivalentProperty)); len(eq) > 0 {
			scheme.PropertyConcepts = append(scheme.PropertyConcepts, &models.Concept{
				URI: uri, Name: graph.LocalName(uri), Label: label, Comment: comment, Equivalents: eq,
			})
		}
	}
	ws.ConceptScheme = scheme
	return len(scheme.ClassConcepts) + len(scheme.PropertyConcepts), nil
}

func (s *ontologyBuilderService) ExtractConceptClasses(ctx context.Context, ws *models.Workspace) (int, error) {
	if ws.Ontology == nil {
		return 0, errOntologyNotBuilt
	}
	if ws.ConceptScheme == nil {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	g := ws.QueryGraph()
	count := 0
	for _, concept := range ws.ConceptScheme.ClassConcepts {
		uri := concept.Equivalents[0]
		if ws.Ontology.Class(uri) != nil {
			continue
		}
		node := &models.ClassNode{
			URI:     uri,
			Name:    graph.LocalName(uri),
			Label:   concept.Label,
			Comment: concept.Comment,
			Scope:   models.ScopeOntology,
		}
		for _, r := range graph.DomainProperties(g, uri) {
			if ws.ConceptScheme.PropertyConcept(r.Property) == nil {
				continue
			}
			edge := newPropertyEdge(g, r)
			edge.CardinalityTo = models.Bounded(0, 1)
			node.AddProperty(edge)
		}
		ws.Ontology.AddClass(node)
		count++
		s.logger.Debug("Created class from concept",
			zap.String("concept", concept.URI),
			zap.String("class", uri),
			zap.Int("properties", len(node.Properties)))
	}
	return count, nil
}

// ============================================================================
// Graph helpers
// ============================================================================

// firstLiteral returns the first literal found for resource under any of
// the predicates, tried in order.
func firstLiteral(g graph.Graph, resource string, predicates ...string) string {
	for _, p := range predicates {
		if v, ok := graph.LiteralProperty(g, resource, p); ok {
			return v
		}
	}
	return ""
}

// termLiteral is firstLiteral for subjects that may be blank nodes.
func termLiteral(g graph.Graph, subject graph.Term, predicate string) (string, bool) {
	var best string
	found := false
	for _, o := range graph.Objects(g, subject, predicate) {
		if !o.IsLiteral() {
			continue
		}
		if !found || o.Value < best {
			best = o.Value
			found = true
		}
	}
	return best, found
}

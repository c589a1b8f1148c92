package dag

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// GraphLoadMethods defines the methods needed to read input graphs into the
// workspace. This interface allows the nodes to call service methods without
// causing import cycles.
type GraphLoadMethods interface {
	// LoadOntology parses the ontology file into ws.SourceGraph.
	LoadOntology(ctx context.Context, ws *models.Workspace) error

	// LoadConceptScheme parses the concept scheme file into ws.ConceptGraph.
	LoadConceptScheme(ctx context.Context, ws *models.Workspace) error
}

// OntologyLoadNode reads the source ontology graph.
type OntologyLoadNode struct {
	*BaseNode
	loader GraphLoadMethods
}

// NewOntologyLoadNode creates a new ontology load node.
func NewOntologyLoadNode(loader GraphLoadMethods, logger *zap.Logger) *OntologyLoadNode {
	return &OntologyLoadNode{
		BaseNode: NewBaseNode(Descriptors[models.StageOntologyLoad], logger),
		loader:   loader,
	}
}

// Execute loads the ontology file.
func (n *OntologyLoadNode) Execute(ctx context.Context, ws *models.Workspace, kind models.ModelKind) error {
	n.Logger().Info("Starting ontology load",
		append(runFields(ws, kind), zap.String("path", ws.SourcePath))...)

	if n.loader == nil {
		n.Logger().Info("Ontology load skipped (no loader)")
		return nil
	}
	if err := n.loader.LoadOntology(ctx, ws); err != nil {
		return err
	}

	n.Logger().Info("Ontology load complete", zap.Int("triples", ws.SourceGraph.Len()))
	return nil
}

// ConceptSchemeLoadNode reads the concept scheme graph.
type ConceptSchemeLoadNode struct {
	*BaseNode
	loader GraphLoadMethods
}

// NewConceptSchemeLoadNode creates a new concept scheme load node.
func NewConceptSchemeLoadNode(loader GraphLoadMethods, logger *zap.Logger) *ConceptSchemeLoadNode {
	return &ConceptSchemeLoadNode{
		BaseNode: NewBaseNode(Descriptors[models.StageConceptSchemeLoad], logger),
		loader:   loader,
	}
}

// Execute loads the concept scheme file.
func (n *ConceptSchemeLoadNode) Execute(ctx context.Context, ws *models.Workspace, kind models.ModelKind) error {
	n.Logger().Info("Starting concept scheme load",
		append(runFields(ws, kind), zap.String("path", ws.ConceptsPath))...)

	if n.loader == nil {
		n.Logger().Info("Concept scheme load skipped (no loader)")
		return nil
	}
	if err := n.loader.LoadConceptScheme(ctx, ws); err != nil {
		return err
	}

	n.Logger().Info("Concept scheme load complete", zap.Int("triples", ws.ConceptGraph.Len()))
	return nil
}

package dag

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// ImportMethods resolves owl:imports into the workspace.
type ImportMethods interface {
	// ResolveImports fetches every import of ws.SourceGraph. Unresolvable
	// imports are recorded as warnings, not errors. Returns the number of
	// imports resolved.
	ResolveImports(ctx context.Context, ws *models.Workspace) (int, error)
}

// ReasonerMethods computes the inferred view of the workspace graphs.
type ReasonerMethods interface {
	// InferOntology sets ws.Inferred. Leaving it nil means queries fall back
	// to the union graph.
	InferOntology(ctx context.Context, ws *models.Workspace) error
}

// ImportsNode resolves external ontologies referenced by the source.
type ImportsNode struct {
	*BaseNode
	imports ImportMethods
}

// NewImportsNode creates a new imports node.
func NewImportsNode(imports ImportMethods, logger *zap.Logger) *ImportsNode {
	return &ImportsNode{
		BaseNode: NewBaseNode(Descriptors[models.StageOntologyImports], logger),
		imports:  imports,
	}
}

// Execute resolves imports. A nil service leaves the source graph alone.
func (n *ImportsNode) Execute(ctx context.Context, ws *models.Workspace, kind models.ModelKind) error {
	n.Logger().Info("Starting import resolution", runFields(ws, kind)...)

	if n.imports == nil {
		n.Logger().Info("Import resolution skipped (disabled)")
		return nil
	}

	resolved, err := n.imports.ResolveImports(ctx, ws)
	if err != nil {
		return err
	}

	n.Logger().Info("Import resolution complete",
		zap.Int("resolved", resolved),
		zap.Int("warnings", len(ws.Warnings)))
	return nil
}

// ReasonerNode attaches the inferred graph to the workspace.
type ReasonerNode struct {
	*BaseNode
	reasoner ReasonerMethods
}

// NewReasonerNode creates a new reasoner node.
func NewReasonerNode(reasoner ReasonerMethods, logger *zap.Logger) *ReasonerNode {
	return &ReasonerNode{
		BaseNode: NewBaseNode(Descriptors[models.StageOntologyReasoner], logger),
		reasoner: reasoner,
	}
}

// Execute runs inference.
func (n *ReasonerNode) Execute(ctx context.Context, ws *models.Workspace, kind models.ModelKind) error {
	n.Logger().Info("Starting reasoner", runFields(ws, kind)...)

	if n.reasoner == nil {
		n.Logger().Info("Reasoner skipped (disabled), using asserted statements")
		return nil
	}
	if err := n.reasoner.InferOntology(ctx, ws); err != nil {
		return err
	}

	n.Logger().Info("Reasoner complete", zap.Bool("inferred", ws.Inferred != nil))
	return nil
}

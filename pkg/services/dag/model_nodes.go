package dag

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// ClassSimplifyMethods collapses the raw ontology into the emitted class model.
type ClassSimplifyMethods interface {
	Simplify(ctx context.Context, ws *models.Workspace) (*models.ClassModel, error)
}

// SchemaSynthesisMethods derives the relational schema from the class model.
type SchemaSynthesisMethods interface {
	Synthesize(ctx context.Context, ws *models.Workspace) (*models.Schema, error)
}

// ClassSimplifyNode produces ws.ClassModel.
type ClassSimplifyNode struct {
	*BaseNode
	simplifier ClassSimplifyMethods
}

// NewClassSimplifyNode creates a new class simplify node.
func NewClassSimplifyNode(simplifier ClassSimplifyMethods, logger *zap.Logger) *ClassSimplifyNode {
	return &ClassSimplifyNode{
		BaseNode:   NewBaseNode(Descriptors[models.StageClassSimplify], logger),
		simplifier: simplifier,
	}
}

// Execute simplifies the class hierarchy.
func (n *ClassSimplifyNode) Execute(ctx context.Context, ws *models.Workspace, kind models.ModelKind) error {
	n.Logger().Info("Starting class simplification", runFields(ws, kind)...)

	if n.simplifier == nil {
		return errors.New("class simplifier not set")
	}

	cm, err := n.simplifier.Simplify(ctx, ws)
	if err != nil {
		return err
	}
	ws.ClassModel = cm

	n.Logger().Info("Class simplification complete",
		zap.Int("classes", len(cm.Classes)),
		zap.Int("interfaces", len(cm.Interfaces)),
		zap.Int("enums", len(cm.Enums)))
	return nil
}

// SchemaSynthesizeNode produces ws.Schema.
type SchemaSynthesizeNode struct {
	*BaseNode
	synthesizer SchemaSynthesisMethods
}

// NewSchemaSynthesizeNode creates a new schema synthesize node.
func NewSchemaSynthesizeNode(synthesizer SchemaSynthesisMethods, logger *zap.Logger) *SchemaSynthesizeNode {
	return &SchemaSynthesizeNode{
		BaseNode:    NewBaseNode(Descriptors[models.StageSchemaSynthesize], logger),
		synthesizer: synthesizer,
	}
}

// Execute synthesizes tables, relations and enum types.
func (n *SchemaSynthesizeNode) Execute(ctx context.Context, ws *models.Workspace, kind models.ModelKind) error {
	n.Logger().Info("Starting schema synthesis", runFields(ws, kind)...)

	if n.synthesizer == nil {
		return errors.New("schema synthesizer not set")
	}

	schema, err := n.synthesizer.Synthesize(ctx, ws)
	if err != nil {
		return err
	}
	ws.Schema = schema

	n.Logger().Info("Schema synthesis complete",
		zap.Int("tables", len(schema.Tables)),
		zap.Int("relations", len(schema.Relations)),
		zap.Int("enum_types", len(schema.EnumTypes)))
	return nil
}

package dag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// OntologyBuilderMethods defines the builder steps that populate
// ws.Ontology and ws.ConceptScheme. Each step returns the number of items it
// created or changed.
type OntologyBuilderMethods interface {
	ExtractClasses(ctx context.Context, ws *models.Workspace) (int, error)
	ExtractURITemplates(ctx context.Context, ws *models.Workspace) (int, error)
	ExtractProperties(ctx context.Context, ws *models.Workspace) (int, error)
	ExtractIndividuals(ctx context.Context, ws *models.Workspace) (int, error)
	AddExtraProperties(ctx context.Context, ws *models.Workspace) (int, error)
	ApplyPropertyOverrides(ctx context.Context, ws *models.Workspace) (int, error)
	ExtractConceptScheme(ctx context.Context, ws *models.Workspace) (int, error)
	ExtractConceptClasses(ctx context.Context, ws *models.Workspace) (int, error)
}

type builderStep struct {
	title string
	unit  string
	run   func(OntologyBuilderMethods, context.Context, *models.Workspace) (int, error)
}

var builderSteps = map[models.StageID]builderStep{
	models.StageClassExtract:         {"class extraction", "classes", OntologyBuilderMethods.ExtractClasses},
	models.StageURITemplate:          {"URI template extraction", "templates", OntologyBuilderMethods.ExtractURITemplates},
	models.StagePropertyExtract:      {"property extraction", "properties", OntologyBuilderMethods.ExtractProperties},
	models.StageIndividualsExtract:   {"individual extraction", "individuals", OntologyBuilderMethods.ExtractIndividuals},
	models.StagePropertyExtra:        {"extra properties", "properties", OntologyBuilderMethods.AddExtraProperties},
	models.StagePropertyOverride:     {"property overrides", "properties", OntologyBuilderMethods.ApplyPropertyOverrides},
	models.StageConceptSchemeExtract: {"concept scheme extraction", "concepts", OntologyBuilderMethods.ExtractConceptScheme},
	models.StageConceptClassExtract:  {"concept class extraction", "classes", OntologyBuilderMethods.ExtractConceptClasses},
}

// BuilderStageIDs returns the stage ids served by BuilderNode.
func BuilderStageIDs() []models.StageID {
	ids := make([]models.StageID, 0, len(builderSteps))
	for id := range builderSteps {
		ids = append(ids, id)
	}
	return ids
}

// BuilderNode runs one ontology builder step.
type BuilderNode struct {
	*BaseNode
	step    builderStep
	builder OntologyBuilderMethods
}

// NewBuilderNode creates the node for a builder stage. Returns an error for
// a stage id that is not a builder step.
func NewBuilderNode(id models.StageID, builder OntologyBuilderMethods, logger *zap.Logger) (*BuilderNode, error) {
	step, ok := builderSteps[id]
	if !ok {
		return nil, fmt.Errorf("stage %s is not an ontology builder step", id)
	}
	return &BuilderNode{
		BaseNode: NewBaseNode(Descriptors[id], logger),
		step:     step,
		builder:  builder,
	}, nil
}

// Execute runs the builder step.
func (n *BuilderNode) Execute(ctx context.Context, ws *models.Workspace, kind models.ModelKind) error {
	n.Logger().Debug("Starting "+n.step.title, runFields(ws, kind)...)

	if n.builder == nil {
		n.Logger().Info("Builder step skipped (builder not set)")
		return nil
	}

	count, err := n.step.run(n.builder, ctx, ws)
	if err != nil {
		return err
	}

	n.Logger().Info(n.step.title+" complete", zap.Int(n.step.unit, count))
	return nil
}

package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/services/dag"
)

// GraphLoaderService reads the input graphs of a run.
type GraphLoaderService interface {
	// LoadOntology parses ws.SourcePath into ws.SourceGraph.
	LoadOntology(ctx context.Context, ws *models.Workspace) error

	// LoadConceptScheme parses ws.ConceptsPath into ws.ConceptGraph.
	LoadConceptScheme(ctx context.Context, ws *models.Workspace) error
}

type graphLoaderService struct {
	logger *zap.Logger
}

var (
	_ GraphLoaderService   = (*graphLoaderService)(nil)
	_ dag.GraphLoadMethods = (*graphLoaderService)(nil)
)

// NewGraphLoaderService creates a new graph loader.
func NewGraphLoaderService(logger *zap.Logger) GraphLoaderService {
	return &graphLoaderService{logger: logger.Named("graph-loader")}
}

func (s *graphLoaderService) LoadOntology(ctx context.Context, ws *models.Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g, err := graph.ReadFile(ws.SourcePath)
	if err != nil {
		return err
	}
	ws.SourceGraph = g
	s.logger.Debug("Loaded ontology", zap.String("path", ws.SourcePath), zap.Int("triples", g.Len()))
	return nil
}

func (s *graphLoaderService) LoadConceptScheme(ctx context.Context, ws *models.Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g, err := graph.ReadFile(ws.ConceptsPath)
	if err != nil {
		return err
	}
	ws.ConceptGraph = g
	s.logger.Debug("Loaded concept scheme", zap.String("path", ws.ConceptsPath), zap.Int("triples", g.Len()))
	return nil
}

package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/imports"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/services/dag"
)

// ImportResolver is the subset of *imports.Resolver used by the service.
type ImportResolver interface {
	ResolveAll(ctx context.Context, src graph.Graph) *imports.Result
}

// ImportService adds resolved owl:imports to the workspace.
type ImportService interface {
	ResolveImports(ctx context.Context, ws *models.Workspace) (int, error)
}

type importService struct {
	resolver ImportResolver
	logger   *zap.Logger
}

var (
	_ ImportService     = (*importService)(nil)
	_ dag.ImportMethods = (*importService)(nil)
)

// NewImportService creates a new import service.
func NewImportService(resolver ImportResolver, logger *zap.Logger) ImportService {
	return &importService{
		resolver: resolver,
		logger:   logger.Named("import-service"),
	}
}

// ResolveImports resolves every import of the source graph. Failed imports
// become workspace warnings and the run continues without them.
func (s *importService) ResolveImports(ctx context.Context, ws *models.Workspace) (int, error) {
	if ws.SourceGraph == nil {
		return 0, errors.New("source graph not loaded")
	}

	res := s.resolver.ResolveAll(ctx, ws.SourceGraph)
	for _, uri := range res.Order {
		ws.ImportGraphs[uri] = res.Graphs[uri]
		ws.ImportOrder = append(ws.ImportOrder, uri)
	}
	for _, f := range res.Failures {
		ws.AddWarning(models.StageOntologyImports, f.URI, "import skipped: %v", f.Err)
	}
	if err := ctx.Err(); err != nil {
		return len(res.Order), err
	}

	if len(res.Failures) > 0 {
		s.logger.Warn("Some imports could not be resolved",
			zap.Int("resolved", len(res.Order)),
			zap.Int("failed", len(res.Failures)))
	}
	return len(res.Order), nil
}

package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/services/dag"
)

// Inferrer is the subset of *reasoner.Reasoner used by the service.
type Inferrer interface {
	Infer(ctx context.Context, base graph.Graph, sourcePath string, imports []string) (graph.Graph, error)
}

// ReasonerService attaches the inferred view to the workspace.
type ReasonerService interface {
	InferOntology(ctx context.Context, ws *models.Workspace) error
}

type reasonerService struct {
	inferrer Inferrer
	logger   *zap.Logger
}

var (
	_ ReasonerService     = (*reasonerService)(nil)
	_ dag.ReasonerMethods = (*reasonerService)(nil)
)

// NewReasonerService creates a new reasoner service.
func NewReasonerService(inferrer Inferrer, logger *zap.Logger) ReasonerService {
	return &reasonerService{
		inferrer: inferrer,
		logger:   logger.Named("reasoner-service"),
	}
}

// InferOntology runs inference over the source graph and its imports.
// Errors are fatal; without a reasoner the builder uses asserted statements.
func (s *reasonerService) InferOntology(ctx context.Context, ws *models.Workspace) error {
	inferred, err := s.inferrer.Infer(ctx, ws.UnionGraph(), ws.SourcePath, ws.ImportOrder)
	if err != nil {
		return err
	}
	ws.Inferred = inferred
	return nil
}

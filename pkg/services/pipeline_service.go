package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/services/dag"
)

// PipelineService orders the registered stages and runs them over one
// workspace.
type PipelineService interface {
	// Plan returns the enabled stages in execution order.
	Plan() []models.StageDescriptor

	// Run executes every planned stage once per applicable model kind.
	// The first failing stage aborts the run with a *apperrors.StageError.
	Run(ctx context.Context, ws *models.Workspace) error

	SetGraphLoadMethods(methods dag.GraphLoadMethods)
	SetImportMethods(methods dag.ImportMethods)
	SetReasonerMethods(methods dag.ReasonerMethods)
	SetOntologyBuilderMethods(methods dag.OntologyBuilderMethods)
	SetClassSimplifyMethods(methods dag.ClassSimplifyMethods)
	SetSchemaSynthesisMethods(methods dag.SchemaSynthesisMethods)
}

type pipelineService struct {
	enabled map[models.StageID]bool
	logger  *zap.Logger

	graphLoadMethods       dag.GraphLoadMethods
	importMethods          dag.ImportMethods
	reasonerMethods        dag.ReasonerMethods
	builderMethods         dag.OntologyBuilderMethods
	simplifyMethods        dag.ClassSimplifyMethods
	schemaSynthesisMethods dag.SchemaSynthesisMethods
}

var _ PipelineService = (*pipelineService)(nil)

// NewPipelineService creates a pipeline over the stage catalogue. A non-empty
// stages.enabled list restricts the run to the named stages; an unknown id is
// a configuration error.
func NewPipelineService(stages config.StagesConfig, logger *zap.Logger) (PipelineService, error) {
	var enabled map[models.StageID]bool
	if len(stages.Enabled) > 0 {
		enabled = make(map[models.StageID]bool, len(stages.Enabled))
		for _, id := range stages.Enabled {
			sid := models.StageID(id)
			if _, ok := dag.Descriptors[sid]; !ok {
				return nil, &apperrors.ConfigError{Field: "stages.enabled", Reason: fmt.Sprintf("unknown stage %q", id)}
			}
			enabled[sid] = true
		}
	}
	return &pipelineService{
		enabled: enabled,
		logger:  logger.Named("pipeline"),
	}, nil
}

func (s *pipelineService) SetGraphLoadMethods(methods dag.GraphLoadMethods) {
	s.graphLoadMethods = methods
}

func (s *pipelineService) SetImportMethods(methods dag.ImportMethods) {
	s.importMethods = methods
}

func (s *pipelineService) SetReasonerMethods(methods dag.ReasonerMethods) {
	s.reasonerMethods = methods
}

func (s *pipelineService) SetOntologyBuilderMethods(methods dag.OntologyBuilderMethods) {
	s.builderMethods = methods
}

func (s *pipelineService) SetClassSimplifyMethods(methods dag.ClassSimplifyMethods) {
	s.simplifyMethods = methods
}

func (s *pipelineService) SetSchemaSynthesisMethods(methods dag.SchemaSynthesisMethods) {
	s.schemaSynthesisMethods = methods
}

func (s *pipelineService) Plan() []models.StageDescriptor {
	descs := make([]models.StageDescriptor, 0, len(dag.Descriptors))
	for id, d := range dag.Descriptors {
		if s.enabled != nil && !s.enabled[id] {
			continue
		}
		descs = append(descs, d)
	}
	return OrderStages(descs)
}

func (s *pipelineService) Run(ctx context.Context, ws *models.Workspace) error {
	plan := s.Plan()
	kinds := activeKinds(ws)

	s.logger.Info("Starting pipeline",
		zap.String("run_id", ws.RunID.String()),
		zap.Int("stages", len(plan)),
		zap.String("source", ws.SourcePath))

	executors := make([]dag.NodeExecutor, 0, len(plan))
	for _, d := range plan {
		node, err := s.getNodeExecutor(d.ID)
		if err != nil {
			return apperrors.NewStageError(string(d.ID), "configure", "", err)
		}
		executors = append(executors, node)
	}

	for _, node := range executors {
		for _, kind := range kinds {
			if !node.Descriptor().AppliesTo(kind) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return apperrors.NewStageError(string(node.Name()), "execute", "", err)
			}

			start := time.Now()
			if err := node.Execute(ctx, ws, kind); err != nil {
				s.logger.Error("Stage failed",
					zap.String("run_id", ws.RunID.String()),
					zap.String("stage", string(node.Name())),
					zap.String("kind", string(kind)),
					zap.Error(err))
				return apperrors.NewStageError(string(node.Name()), "execute", "", err)
			}
			if err := inferenceErr(ws); err != nil {
				s.logger.Error("Inference failed",
					zap.String("run_id", ws.RunID.String()),
					zap.String("stage", string(node.Name())),
					zap.Error(err))
				return apperrors.NewStageError(string(node.Name()), "infer", "", fmt.Errorf("%w: inference: %w", apperrors.ErrGraphAccess, err))
			}
			s.logger.Debug("Stage finished",
				zap.String("stage", string(node.Name())),
				zap.String("kind", string(kind)),
				zap.Duration("elapsed", time.Since(start)))
		}
	}

	s.logger.Info("Pipeline complete",
		zap.String("run_id", ws.RunID.String()),
		zap.Int("warnings", len(ws.Warnings)),
		zap.Duration("elapsed", time.Since(ws.StartedAt)))
	return nil
}

// inferenceErr reports a deferred inference failure. A lazily inferred graph
// only computes its closure when a stage first queries it.
func inferenceErr(ws *models.Workspace) error {
	if lazy, ok := ws.Inferred.(interface{ Err() error }); ok {
		return lazy.Err()
	}
	return nil
}

// activeKinds lists the model kinds this run has input for. The concept
// scheme kind is active only when a concepts file is configured.
func activeKinds(ws *models.Workspace) []models.ModelKind {
	kinds := []models.ModelKind{models.ModelKindOntology}
	if ws.ConceptsPath != "" {
		kinds = append(kinds, models.ModelKindConcepts)
	}
	return kinds
}

func (s *pipelineService) getNodeExecutor(id models.StageID) (dag.NodeExecutor, error) {
	switch id {
	case models.StageOntologyLoad:
		if s.graphLoadMethods == nil {
			return nil, fmt.Errorf("graph load methods not set")
		}
		return dag.NewOntologyLoadNode(s.graphLoadMethods, s.logger), nil

	case models.StageConceptSchemeLoad:
		if s.graphLoadMethods == nil {
			return nil, fmt.Errorf("graph load methods not set")
		}
		return dag.NewConceptSchemeLoadNode(s.graphLoadMethods, s.logger), nil

	case models.StageOntologyImports:
		// Imports are optional; a nil service leaves the source graph alone.
		return dag.NewImportsNode(s.importMethods, s.logger), nil

	case models.StageOntologyReasoner:
		return dag.NewReasonerNode(s.reasonerMethods, s.logger), nil

	case models.StageClassSimplify:
		if s.simplifyMethods == nil {
			return nil, fmt.Errorf("class simplify methods not set")
		}
		return dag.NewClassSimplifyNode(s.simplifyMethods, s.logger), nil

	case models.StageSchemaSynthesize:
		if s.schemaSynthesisMethods == nil {
			return nil, fmt.Errorf("schema synthesis methods not set")
		}
		return dag.NewSchemaSynthesizeNode(s.schemaSynthesisMethods, s.logger), nil

	default:
		if s.builderMethods == nil {
			return nil, fmt.Errorf("ontology builder methods not set")
		}
		node, err := dag.NewBuilderNode(id, s.builderMethods, s.logger)
		if err != nil {
			return nil, err
		}
		return node, nil
	}
}

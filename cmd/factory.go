package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/imports"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/reasoner"
	"github.com/ekaya-inc/ontoschema/pkg/services"
)

// newPipeline wires every stage service into a pipeline. Imports and the
// reasoner are only attached when enabled; their stages then pass the
// workspace through unchanged.
func newPipeline(cfg *config.Config, logger *zap.Logger) (services.PipelineService, error) {
	pipeline, err := services.NewPipelineService(cfg.Stages, logger)
	if err != nil {
		return nil, err
	}

	pipeline.SetGraphLoadMethods(services.NewGraphLoaderService(logger))
	if cfg.Imports.Enabled {
		resolver := imports.NewResolver(cfg.Imports, nil, logger)
		pipeline.SetImportMethods(services.NewImportService(resolver, logger))
	}
	if cfg.Reasoner.Enabled {
		pipeline.SetReasonerMethods(services.NewReasonerService(reasoner.New(cfg.Reasoner, logger), logger))
	}
	pipeline.SetOntologyBuilderMethods(services.NewOntologyBuilderService(cfg, logger))
	pipeline.SetClassSimplifyMethods(services.NewClassSimplifierService(cfg, logger))
	pipeline.SetSchemaSynthesisMethods(services.NewSchemaSynthesizerService(cfg, logger))
	return pipeline, nil
}

// compile runs the whole pipeline over the configured input files.
func compile(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*models.Workspace, error) {
	if cfg.Ontology.File == "" {
		return nil, &apperrors.ConfigError{Field: "ontology.file", Reason: "no ontology file configured"}
	}

	pipeline, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	ws := models.NewWorkspace(cfg.Ontology.File, cfg.Ontology.ConceptsFile)
	if err := pipeline.Run(ctx, ws); err != nil {
		return nil, err
	}
	if ws.Schema == nil {
		return nil, fmt.Errorf("pipeline finished without a schema; is %s enabled?", models.StageSchemaSynthesize)
	}

	for _, w := range ws.Warnings {
		logger.Warn(w.Message, zap.String("stage", string(w.Stage)), zap.String("uri", w.URI))
	}
	return ws, nil
}

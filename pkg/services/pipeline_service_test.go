package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

type failingLoader struct {
	err error
}

func (f *failingLoader) LoadOntology(ctx context.Context, ws *models.Workspace) error {
	return f.err
}

func (f *failingLoader) LoadConceptScheme(ctx context.Context, ws *models.Workspace) error {
	return f.err
}

// failedInference answers with the asserted statements and reports the
// closure failure, like a lazy graph whose computation errored.
type failedInference struct {
	graph.Graph
	err error
}

func (f *failedInference) Err() error {
	return f.err
}

type failedInferrer struct {
	err error
}

func (f *failedInferrer) Infer(ctx context.Context, base graph.Graph, sourcePath string, imports []string) (graph.Graph, error) {
	return &failedInference{Graph: base, err: f.err}, nil
}

func newTestPipeline(t *testing.T, cfg *config.Config) PipelineService {
	t.Helper()
	logger := zap.NewNop()
	p, err := NewPipelineService(cfg.Stages, logger)
	require.NoError(t, err)

	p.SetGraphLoadMethods(NewGraphLoaderService(logger))
	p.SetOntologyBuilderMethods(NewOntologyBuilderService(cfg, logger))
	p.SetClassSimplifyMethods(NewClassSimplifierService(cfg, logger))
	p.SetSchemaSynthesisMethods(NewSchemaSynthesizerService(cfg, logger))
	return p
}

func planIndex(plan []models.StageDescriptor, id models.StageID) int {
	for i, d := range plan {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func TestPipelineService_Plan(t *testing.T) {
	p, err := NewPipelineService(config.StagesConfig{}, zap.NewNop())
	require.NoError(t, err)

	plan := p.Plan()
	require.NotEmpty(t, plan)
	assert.Equal(t, models.StageConceptSchemeLoad, plan[0].ID)
	assert.Equal(t, models.StageSchemaSynthesize, plan[len(plan)-1].ID)

	simplify := planIndex(plan, models.StageClassSimplify)
	for i, d := range plan {
		if d.Satisfies(models.StageGroupOntologyModel) {
			assert.Less(t, i, simplify, "%s must run before class-simplify", d.ID)
		}
	}
	assert.Less(t, planIndex(plan, models.StageConceptSchemeExtract), planIndex(plan, models.StageConceptClassExtract))
	assert.Less(t, planIndex(plan, models.StageConceptClassExtract), planIndex(plan, models.StagePropertyExtra))
}

func TestPipelineService_UnknownStage(t *testing.T) {
	_, err := NewPipelineService(config.StagesConfig{Enabled: []string{"ontology-load", "bogus"}}, zap.NewNop())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Contains(t, err.Error(), "bogus")
}

func TestPipelineService_EnabledSubset(t *testing.T) {
	p, err := NewPipelineService(config.StagesConfig{Enabled: []string{
		string(models.StageSchemaSynthesize),
		string(models.StageOntologyLoad),
		string(models.StageClassSimplify),
	}}, zap.NewNop())
	require.NoError(t, err)

	var ids []models.StageID
	for _, d := range p.Plan() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []models.StageID{
		models.StageOntologyLoad,
		models.StageClassSimplify,
		models.StageSchemaSynthesize,
	}, ids)
}

func TestPipelineService_MissingMethods(t *testing.T) {
	p, err := NewPipelineService(config.StagesConfig{}, zap.NewNop())
	require.NoError(t, err)

	err = p.Run(context.Background(), models.NewWorkspace("hr.nt", ""))

	require.Error(t, err)
	var stageErr *apperrors.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "configure", stageErr.Operation)
	assert.ErrorIs(t, err, apperrors.ErrPipelineStage)
}

func TestPipelineService_Run(t *testing.T) {
	cfg := testConfig()
	source := writeNT(t, t.TempDir(), "hr.nt", hrOntology)
	ws := models.NewWorkspace(source, "")

	require.NoError(t, newTestPipeline(t, cfg).Run(context.Background(), ws))

	require.NotNil(t, ws.SourceGraph)
	require.NotNil(t, ws.ClassModel)
	require.NotNil(t, ws.Schema)
	assert.Nil(t, ws.ConceptGraph, "concept scheme stages only run with a concepts file")

	assert.NotNil(t, ws.ClassModel.Lookup(hr+"Person"))
	assert.Contains(t, tableNames(ws.Schema), "person")
	assert.Contains(t, tableNames(ws.Schema), "organization")
	require.NotNil(t, ws.Schema.EnumType("status"))
}

func TestPipelineService_MatchesDirectCompilation(t *testing.T) {
	cfg := testConfig()
	source := writeNT(t, t.TempDir(), "hr.nt", hrOntology)
	ws := models.NewWorkspace(source, "")
	require.NoError(t, newTestPipeline(t, cfg).Run(context.Background(), ws))

	direct := compile(t, cfg, hrOntology)

	assert.Equal(t, tableNames(direct.Schema), tableNames(ws.Schema))
	for _, table := range direct.Schema.Tables {
		got := ws.Schema.Table(table.Name)
		require.NotNil(t, got, table.Name)
		assert.Equal(t, columnNames(table), columnNames(got), table.Name)
	}
}

func TestPipelineService_RunWithConceptScheme(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	source := writeNT(t, dir, "hr.nt", hrOntology)
	concepts := writeNT(t, dir, "concepts.nt", hrConcepts)
	ws := models.NewWorkspace(source, concepts)

	require.NoError(t, newTestPipeline(t, cfg).Run(context.Background(), ws))

	require.NotNil(t, ws.ConceptGraph)
	require.NotNil(t, ws.ConceptScheme)
	require.NotNil(t, ws.Ontology.Class(hr+"Contractor"))
	assert.Equal(t, models.ScopeConcepts, ws.Ontology.Class(hr+"Contractor").Scope)
	require.NotNil(t, ws.ClassModel.Lookup(hr+"Contractor"))
	assert.NotNil(t, ws.Schema.TableForURI(hr+"Contractor"))
}

func TestPipelineService_StageFailure(t *testing.T) {
	cfg := testConfig()
	p := newTestPipeline(t, cfg)
	cause := errors.New("disk on fire")
	p.SetGraphLoadMethods(&failingLoader{err: cause})

	ws := models.NewWorkspace("hr.nt", "")
	err := p.Run(context.Background(), ws)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, apperrors.ErrPipelineStage)

	var stageErr *apperrors.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, string(models.StageOntologyLoad), stageErr.Stage)
	assert.Equal(t, "execute", stageErr.Operation)
	assert.Nil(t, ws.ClassModel, "later stages must not run")
	assert.Nil(t, ws.Schema)
}

func TestPipelineService_InferenceFailureIsFatal(t *testing.T) {
	cfg := testConfig()
	source := writeNT(t, t.TempDir(), "hr.nt", hrOntology)
	cause := errors.New("closure exhausted memory")

	p := newTestPipeline(t, cfg)
	p.SetReasonerMethods(NewReasonerService(&failedInferrer{err: cause}, zap.NewNop()))

	ws := models.NewWorkspace(source, "")
	err := p.Run(context.Background(), ws)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, apperrors.ErrGraphAccess)
	assert.True(t, apperrors.IsFatal(err))

	var stageErr *apperrors.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "infer", stageErr.Operation)
	assert.Nil(t, ws.ClassModel, "no model is built from a partial closure")
	assert.Nil(t, ws.Schema)
}

func TestPipelineService_MissingSourceFile(t *testing.T) {
	ws := models.NewWorkspace(t.TempDir()+"/missing.nt", "")

	err := newTestPipeline(t, testConfig()).Run(context.Background(), ws)

	require.Error(t, err)
	var stageErr *apperrors.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, string(models.StageOntologyLoad), stageErr.Stage)
}

func TestPipelineService_Cancelled(t *testing.T) {
	source := writeNT(t, t.TempDir(), "hr.nt", hrOntology)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ws := models.NewWorkspace(source, "")
	err := newTestPipeline(t, testConfig()).Run(ctx, ws)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ws.Schema)
}

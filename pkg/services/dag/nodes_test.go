package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

type fakeBuilder struct {
	calls []string
	err   error
}

func (f *fakeBuilder) record(name string) (int, error) {
	f.calls = append(f.calls, name)
	return len(f.calls), f.err
}

func (f *fakeBuilder) ExtractClasses(context.Context, *models.Workspace) (int, error) {
	return f.record("classes")
}
func (f *fakeBuilder) ExtractURITemplates(context.Context, *models.Workspace) (int, error) {
	return f.record("templates")
}
func (f *fakeBuilder) ExtractProperties(context.Context, *models.Workspace) (int, error) {
	return f.record("properties")
}
func (f *fakeBuilder) ExtractIndividuals(context.Context, *models.Workspace) (int, error) {
	return f.record("individuals")
}
func (f *fakeBuilder) AddExtraProperties(context.Context, *models.Workspace) (int, error) {
	return f.record("extra")
}
func (f *fakeBuilder) ApplyPropertyOverrides(context.Context, *models.Workspace) (int, error) {
	return f.record("overrides")
}
func (f *fakeBuilder) ExtractConceptScheme(context.Context, *models.Workspace) (int, error) {
	return f.record("concepts")
}
func (f *fakeBuilder) ExtractConceptClasses(context.Context, *models.Workspace) (int, error) {
	return f.record("concept-classes")
}

type fakeSimplifier struct{ model *models.ClassModel }

func (f *fakeSimplifier) Simplify(context.Context, *models.Workspace) (*models.ClassModel, error) {
	return f.model, nil
}

type fakeLoader struct{}

func (fakeLoader) LoadOntology(_ context.Context, ws *models.Workspace) error {
	ws.SourceGraph = graph.NewStore()
	return nil
}

func (fakeLoader) LoadConceptScheme(_ context.Context, ws *models.Workspace) error {
	ws.ConceptGraph = graph.NewStore()
	return nil
}

func TestDescriptors_Consistent(t *testing.T) {
	for id, d := range Descriptors {
		assert.Equal(t, id, d.ID)
		assert.NotEmpty(t, d.Kinds, "stage %s has no kinds", id)
		for _, dep := range d.Dependencies {
			satisfied := false
			for _, other := range Descriptors {
				if other.ID != id && other.Satisfies(dep) {
					satisfied = true
					break
				}
			}
			assert.True(t, satisfied, "dependency %s of %s has no provider", dep, id)
		}
	}
}

func TestBuilderNode_DispatchesStep(t *testing.T) {
	fb := &fakeBuilder{}
	ws := models.NewWorkspace("model.nt", "")

	for _, id := range []models.StageID{models.StageClassExtract, models.StagePropertyOverride, models.StageConceptClassExtract} {
		n, err := NewBuilderNode(id, fb, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, id, n.Name())
		require.NoError(t, n.Execute(context.Background(), ws, models.ModelKindOntology))
	}

	assert.Equal(t, []string{"classes", "overrides", "concept-classes"}, fb.calls)
}

func TestBuilderNode_UnknownStage(t *testing.T) {
	_, err := NewBuilderNode(models.StageClassSimplify, &fakeBuilder{}, zap.NewNop())
	require.Error(t, err)
}

func TestBuilderNode_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	n, err := NewBuilderNode(models.StagePropertyExtract, &fakeBuilder{err: boom}, zap.NewNop())
	require.NoError(t, err)

	err = n.Execute(context.Background(), models.NewWorkspace("model.nt", ""), models.ModelKindOntology)
	assert.ErrorIs(t, err, boom)
}

func TestBuilderNode_NilBuilderSkips(t *testing.T) {
	n, err := NewBuilderNode(models.StageURITemplate, nil, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, n.Execute(context.Background(), models.NewWorkspace("model.nt", ""), models.ModelKindOntology))
}

func TestClassSimplifyNode_SetsModel(t *testing.T) {
	cm := &models.ClassModel{Classes: []*models.Clazz{{URI: "http://ex.org/A", Name: "A"}}}
	ws := models.NewWorkspace("model.nt", "")

	n := NewClassSimplifyNode(&fakeSimplifier{model: cm}, zap.NewNop())
	require.NoError(t, n.Execute(context.Background(), ws, models.ModelKindOntology))
	assert.Same(t, cm, ws.ClassModel)
}

func TestSchemaSynthesizeNode_RequiresSynthesizer(t *testing.T) {
	n := NewSchemaSynthesizeNode(nil, zap.NewNop())
	err := n.Execute(context.Background(), models.NewWorkspace("model.nt", ""), models.ModelKindOntology)
	require.Error(t, err)
}

func TestLoadNodes(t *testing.T) {
	ws := models.NewWorkspace("model.nt", "concepts.nt")

	require.NoError(t, NewOntologyLoadNode(fakeLoader{}, zap.NewNop()).Execute(context.Background(), ws, models.ModelKindOntology))
	require.NoError(t, NewConceptSchemeLoadNode(fakeLoader{}, zap.NewNop()).Execute(context.Background(), ws, models.ModelKindConcepts))

	assert.NotNil(t, ws.SourceGraph)
	assert.NotNil(t, ws.ConceptGraph)
}

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
	"github.com/ekaya-inc/ontoschema/pkg/imports"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/reasoner"
)

type fakeResolver struct {
	result *imports.Result
}

func (f *fakeResolver) ResolveAll(ctx context.Context, src graph.Graph) *imports.Result {
	return f.result
}

type fakeInferrer struct {
	gotImports []string
	err        error
}

func (f *fakeInferrer) Infer(ctx context.Context, base graph.Graph, sourcePath string, imports []string) (graph.Graph, error) {
	f.gotImports = imports
	if f.err != nil {
		return nil, f.err
	}
	return graph.NewStore(), nil
}

func TestGraphLoaderService(t *testing.T) {
	dir := t.TempDir()
	ws := models.NewWorkspace(writeNT(t, dir, "hr.nt", hrOntology), writeNT(t, dir, "concepts.nt", hrConcepts))
	loader := NewGraphLoaderService(zap.NewNop())

	require.NoError(t, loader.LoadOntology(context.Background(), ws))
	require.NoError(t, loader.LoadConceptScheme(context.Background(), ws))

	assert.Equal(t, parseNT(t, hrOntology).Len(), ws.SourceGraph.Len())
	assert.Equal(t, parseNT(t, hrConcepts).Len(), ws.ConceptGraph.Len())
}

func TestGraphLoaderService_MissingFile(t *testing.T) {
	ws := models.NewWorkspace(t.TempDir()+"/none.nt", "")

	err := NewGraphLoaderService(zap.NewNop()).LoadOntology(context.Background(), ws)

	assert.ErrorIs(t, err, apperrors.ErrGraphAccess)
	assert.Nil(t, ws.SourceGraph)
}

func TestImportService_AddsGraphsAndWarnings(t *testing.T) {
	ws := models.NewWorkspace("hr.nt", "")
	ws.SourceGraph = parseNT(t, hrOntology)
	foaf := parseNT(t, `<http://xmlns.com/foaf/0.1/Person> <rdf:type> <owl:Class> .`)

	svc := NewImportService(&fakeResolver{result: &imports.Result{
		Graphs:   map[string]*graph.Store{"http://xmlns.com/foaf/0.1/": foaf},
		Order:    []string{"http://xmlns.com/foaf/0.1/"},
		Failures: []imports.Failure{{URI: "http://example.org/gone", Err: apperrors.ErrImportResolution}},
	}}, zap.NewNop())

	n, err := svc.ResolveImports(context.Background(), ws)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"http://xmlns.com/foaf/0.1/"}, ws.ImportOrder)
	assert.Same(t, foaf, ws.ImportGraphs["http://xmlns.com/foaf/0.1/"])
	require.Len(t, ws.Warnings, 1)
	assert.Equal(t, models.StageOntologyImports, ws.Warnings[0].Stage)
	assert.Equal(t, "http://example.org/gone", ws.Warnings[0].URI)
}

func TestImportService_RequiresSourceGraph(t *testing.T) {
	svc := NewImportService(&fakeResolver{result: &imports.Result{}}, zap.NewNop())
	_, err := svc.ResolveImports(context.Background(), models.NewWorkspace("hr.nt", ""))
	assert.Error(t, err)
}

func TestReasonerService(t *testing.T) {
	ws := models.NewWorkspace("hr.nt", "")
	ws.SourceGraph = parseNT(t, hrOntology)
	ws.ImportOrder = []string{"http://xmlns.com/foaf/0.1/"}
	inferrer := &fakeInferrer{}

	require.NoError(t, NewReasonerService(inferrer, zap.NewNop()).InferOntology(context.Background(), ws))

	assert.NotNil(t, ws.Inferred)
	assert.Equal(t, ws.ImportOrder, inferrer.gotImports)
}

func TestReasonerService_Error(t *testing.T) {
	ws := models.NewWorkspace("hr.nt", "")
	ws.SourceGraph = parseNT(t, hrOntology)
	cause := errors.New("closure failed")

	err := NewReasonerService(&fakeInferrer{err: cause}, zap.NewNop()).InferOntology(context.Background(), ws)

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ws.Inferred)
}

// An inferred subclass edge lets class extraction see an ancestor the
// source never states directly.
func TestReasonerService_FeedsBuilder(t *testing.T) {
	ws := models.NewWorkspace("hr.nt", "")
	ws.SourceGraph = parseNT(t, hrOntology+`
<ex:Manager> <rdf:type> <owl:Class> .
<ex:Manager> <rdfs:subClassOf> <ex:Person> .
`)
	r := reasoner.New(config.ReasonerConfig{Enabled: true, Materialize: true}, zap.NewNop())
	require.NoError(t, NewReasonerService(r, zap.NewNop()).InferOntology(context.Background(), ws))
	require.NotNil(t, ws.Inferred)

	assert.True(t, ws.Inferred.Contains(graph.Triple{
		S: graph.IRI(hr + "Manager"),
		P: graph.IRI(graph.RDFSSubClassOf),
		O: graph.IRI(hr + "Agent"),
	}))
}

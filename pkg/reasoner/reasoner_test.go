package reasoner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
)

const fixture = `
<http://ex.org/Dog> <http://www.w3.org/2000/01/rdf-schema#subClassOf> <http://ex.org/Mammal> .
<http://ex.org/Mammal> <http://www.w3.org/2000/01/rdf-schema#subClassOf> <http://ex.org/Animal> .
<http://ex.org/Animal> <http://www.w3.org/2000/01/rdf-schema#subClassOf> _:r1 .
_:r1 <http://www.w3.org/2002/07/owl#onProperty> <http://ex.org/name> .
<http://ex.org/Hound> <http://www.w3.org/2002/07/owl#equivalentClass> <http://ex.org/Dog> .
<http://ex.org/rex> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex.org/Dog> .
<http://ex.org/petName> <http://www.w3.org/2000/01/rdf-schema#subPropertyOf> <http://ex.org/name> .
<http://ex.org/name> <http://www.w3.org/2000/01/rdf-schema#domain> <http://ex.org/Animal> .
<http://ex.org/rex> <http://ex.org/petName> "Rex" .
<http://ex.org/owner> <http://www.w3.org/2002/07/owl#inverseOf> <http://ex.org/pet> .
`

func iri(v string) graph.Term { return graph.IRI(v) }

func triple(s, p, o string) graph.Triple {
	return graph.Triple{S: iri(s), P: iri(p), O: iri(o)}
}

func loadFixture(t *testing.T) *graph.Store {
	t.Helper()
	g, err := graph.ParseBytes([]byte(fixture))
	require.NoError(t, err)
	return g
}

func TestClosure_Rules(t *testing.T) {
	g, err := Closure(context.Background(), loadFixture(t))
	require.NoError(t, err)

	tests := []struct {
		name string
		want graph.Triple
	}{
		{"subclass transitivity", triple("http://ex.org/Dog", graph.RDFSSubClassOf, "http://ex.org/Animal")},
		{"equivalence forward", triple("http://ex.org/Hound", graph.RDFSSubClassOf, "http://ex.org/Dog")},
		{"equivalence backward", triple("http://ex.org/Dog", graph.RDFSSubClassOf, "http://ex.org/Hound")},
		{"equivalence inherits ancestors", triple("http://ex.org/Hound", graph.RDFSSubClassOf, "http://ex.org/Animal")},
		{"type propagation", triple("http://ex.org/rex", graph.RDFType, "http://ex.org/Animal")},
		{"inverse symmetry", triple("http://ex.org/pet", graph.OWLInverseOf, "http://ex.org/owner")},
		{"domain inheritance", triple("http://ex.org/petName", graph.RDFSDomain, "http://ex.org/Animal")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, g.Contains(tt.want), tt.want.String())
		})
	}

	assert.True(t, g.Contains(graph.Triple{
		S: iri("http://ex.org/rex"),
		P: iri("http://ex.org/name"),
		O: graph.Literal("Rex", "", ""),
	}), "sub-property statements hold for the super-property")

	assert.True(t, g.Contains(graph.Triple{
		S: iri("http://ex.org/Dog"),
		P: iri(graph.RDFSSubClassOf),
		O: graph.Blank("r1"),
	}), "restrictions are inherited")
}

func TestClosure_CyclesTerminate(t *testing.T) {
	base := graph.NewStore()
	base.Add(triple("http://ex.org/A", graph.RDFSSubClassOf, "http://ex.org/B"))
	base.Add(triple("http://ex.org/B", graph.RDFSSubClassOf, "http://ex.org/A"))

	g, err := Closure(context.Background(), base)
	require.NoError(t, err)
	assert.False(t, g.Contains(triple("http://ex.org/A", graph.RDFSSubClassOf, "http://ex.org/A")))
}

func TestClosure_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Closure(ctx, loadFixture(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCacheKey_ImportOrderIndependent(t *testing.T) {
	assert.Equal(t,
		CacheKey("model.nt", []string{"http://b", "http://a"}),
		CacheKey("model.nt", []string{"http://a", "http://b"}))
	assert.NotEqual(t, CacheKey("model.nt", nil), CacheKey("other.nt", nil))
}

func TestInfer_LazyComputesOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	r := New(config.ReasonerConfig{Enabled: true, CacheDir: dir, TTL: time.Hour}, zap.NewNop())

	g, err := r.Infer(context.Background(), loadFixture(t), filepath.Join(dir, "missing.nt"), nil)
	require.NoError(t, err)
	lazy, ok := g.(*LazyGraph)
	require.True(t, ok)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "nothing is computed before the first query")

	assert.True(t, lazy.Contains(triple("http://ex.org/Dog", graph.RDFSSubClassOf, "http://ex.org/Animal")))
	assert.NoError(t, lazy.Err())

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInfer_MaterializeUsesCache(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "model.nt")
	require.NoError(t, os.WriteFile(source, []byte(fixture), 0o644))
	// Keep the source older than the cache entry written below.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(source, old, old))

	cfg := config.ReasonerConfig{Enabled: true, Materialize: true, CacheDir: filepath.Join(dir, "cache"), TTL: time.Hour}
	r := New(cfg, zap.NewNop())

	first, err := r.Infer(context.Background(), loadFixture(t), source, []string{"http://ext.org"})
	require.NoError(t, err)
	_, isStore := first.(*graph.Store)
	require.True(t, isStore)

	// A different base proves the second result comes from the cache.
	second, err := r.Infer(context.Background(), graph.NewStore(), source, []string{"http://ext.org"})
	require.NoError(t, err)
	assert.True(t, second.Contains(triple("http://ex.org/rex", graph.RDFType, "http://ex.org/Animal")))
}

func TestInfer_StaleCacheIgnored(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "model.nt")
	require.NoError(t, os.WriteFile(source, []byte(fixture), 0o644))

	cfg := config.ReasonerConfig{Enabled: true, Materialize: true, CacheDir: filepath.Join(dir, "cache")}
	r := New(cfg, zap.NewNop())
	_, err := r.Infer(context.Background(), loadFixture(t), source, nil)
	require.NoError(t, err)

	// Touch the source so it is newer than the cached entry.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(source, future, future))

	g, err := r.Infer(context.Background(), graph.NewStore(), source, nil)
	require.NoError(t, err)
	assert.False(t, g.Contains(triple("http://ex.org/rex", graph.RDFType, "http://ex.org/Animal")))
}

func TestLazyGraph_ReportsFailure(t *testing.T) {
	cause := errors.New("closure failed")
	lazy := &LazyGraph{
		base:    loadFixture(t),
		compute: func() (*graph.Store, error) { return nil, cause },
		logger:  zap.NewNop(),
	}

	assert.NoError(t, lazy.Err(), "nothing fails before the first query")
	assert.True(t, lazy.Contains(triple("http://ex.org/Dog", graph.RDFSSubClassOf, "http://ex.org/Mammal")))
	assert.False(t, lazy.Contains(triple("http://ex.org/Dog", graph.RDFSSubClassOf, "http://ex.org/Animal")))
	assert.ErrorIs(t, lazy.Err(), cause)
}

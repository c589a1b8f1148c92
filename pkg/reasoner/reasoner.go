package reasoner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/cache"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
)

// Reasoner computes the entailment closure of a graph and caches the result
// on disk as N-Triples.
type Reasoner struct {
	cfg    config.ReasonerConfig
	cache  *cache.FileCache
	logger *zap.Logger
}

// New creates a Reasoner. An empty cache directory disables caching.
func New(cfg config.ReasonerConfig, logger *zap.Logger) *Reasoner {
	var fc *cache.FileCache
	if cfg.CacheDir != "" {
		fc = cache.New(cfg.CacheDir, cfg.TTL, ".nt", logger)
	}
	return &Reasoner{
		cfg:    cfg,
		cache:  fc,
		logger: logger.Named("reasoner"),
	}
}

// CacheKey identifies the inferred graph for a source file and its resolved
// imports. Import order does not matter.
func CacheKey(sourcePath string, imports []string) string {
	sorted := append([]string(nil), imports...)
	sort.Strings(sorted)
	return cache.Key(append([]string{sourcePath}, sorted...)...)
}

// Infer returns the inferred view of base. A cached result is used when it
// is fresh and newer than the source file. Otherwise the closure is computed
// now in materialize mode, or on first access in lazy mode. The returned
// graph always contains every statement of base.
func (r *Reasoner) Infer(ctx context.Context, base graph.Graph, sourcePath string, imports []string) (graph.Graph, error) {
	key := CacheKey(sourcePath, imports)
	if g := r.loadCached(key, sourcePath); g != nil {
		return g, nil
	}

	if r.cfg.Materialize {
		g, err := r.compute(ctx, base)
		if err != nil {
			return nil, err
		}
		r.store(key, g)
		return g, nil
	}

	// The lazy closure may run after ctx is gone; it only needs the values.
	detached := context.WithoutCancel(ctx)
	return &LazyGraph{
		base: base,
		compute: func() (*graph.Store, error) {
			g, err := r.compute(detached, base)
			if err == nil {
				r.store(key, g)
			}
			return g, err
		},
		logger: r.logger,
	}, nil
}

func (r *Reasoner) loadCached(key, sourcePath string) *graph.Store {
	if r.cache == nil {
		return nil
	}
	if info, err := os.Stat(sourcePath); err == nil {
		if entry, err := os.Stat(r.cache.Path(key)); err == nil && entry.ModTime().Before(info.ModTime()) {
			r.logger.Debug("Cached inference older than source", zap.String("source", sourcePath))
			r.cache.Invalidate(key)
			return nil
		}
	}
	data, ok := r.cache.Get(key)
	if !ok {
		return nil
	}
	g, err := graph.ParseBytes(data)
	if err != nil || g.Len() == 0 {
		r.logger.Warn("Ignoring corrupt inference cache entry", zap.Error(err))
		r.cache.Invalidate(key)
		return nil
	}
	r.logger.Info("Loaded inferred graph from cache", zap.Int("triples", g.Len()))
	return g
}

func (r *Reasoner) store(key string, g *graph.Store) {
	if r.cache == nil {
		return
	}
	data, err := graph.Marshal(g)
	if err != nil {
		r.logger.Warn("Failed to serialize inferred graph", zap.Error(err))
		return
	}
	if err := r.cache.Put(key, data); err != nil {
		r.logger.Warn("Failed to cache inferred graph", zap.Error(err))
	}
}

func (r *Reasoner) compute(ctx context.Context, base graph.Graph) (*graph.Store, error) {
	start := time.Now()
	g, err := Closure(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("%w: inference: %v", apperrors.ErrGraphAccess, err)
	}
	r.logger.Info("Inference complete",
		zap.Int("triples", g.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return g, nil
}

// LazyGraph defers inference until the first query. If inference fails the
// base graph answers the pending query and Err reports the failure, which
// callers must treat as fatal.
type LazyGraph struct {
	base    graph.Graph
	compute func() (*graph.Store, error)
	logger  *zap.Logger

	once     sync.Once
	inferred graph.Graph
	err      error
}

func (l *LazyGraph) load() graph.Graph {
	l.once.Do(func() {
		g, err := l.compute()
		if err != nil {
			l.err = err
			l.logger.Error("Inference failed", zap.Error(err))
			l.inferred = l.base
			return
		}
		l.inferred = g
	})
	return l.inferred
}

// Match implements graph.Graph.
func (l *LazyGraph) Match(s, p, o *graph.Term) []graph.Triple {
	return l.load().Match(s, p, o)
}

// Contains implements graph.Graph.
func (l *LazyGraph) Contains(t graph.Triple) bool {
	return l.load().Contains(t)
}

// Err reports the inference failure, if any, after the graph has been used.
func (l *LazyGraph) Err() error {
	return l.err
}

var errNilGraph = errors.New("nil graph")

package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/cache"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/logging"
	"github.com/ekaya-inc/ontoschema/pkg/retry"
)

const maxRedirects = 5

// maxBodySize bounds a single fetched document.
const maxBodySize = 64 << 20

// Failure records an import that could not be resolved.
type Failure struct {
	URI string
	Err error
}

// Result holds the outcome of resolving every import of a graph.
type Result struct {
	Graphs   map[string]*graph.Store
	Order    []string
	Failures []Failure
}

// Resolver fetches owl:imports targets with retries, mirrors and a disk
// cache keyed by the SHA-256 of the import URI.
type Resolver struct {
	cfg      config.ImportsConfig
	client   *http.Client
	cache    *cache.FileCache
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewResolver creates a resolver. A nil client gets a default client with
// the configured timeout; redirects are always followed manually.
func NewResolver(cfg config.ImportsConfig, client *http.Client, logger *zap.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	// Redirects are followed by fetchOnce so they can be bounded and logged.
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	var fc *cache.FileCache
	if cfg.CacheDir != "" {
		fc = cache.New(cfg.CacheDir, cfg.TTL, ".nt", logger)
	}

	return &Resolver{
		cfg:      cfg,
		client:   &c,
		cache:    fc,
		retryCfg: retry.WithMaxRetries(cfg.MaxRetries),
		logger:   logger.Named("imports"),
	}
}

// SetRetryConfig overrides the backoff used per candidate.
func (r *Resolver) SetRetryConfig(cfg *retry.Config) {
	r.retryCfg = cfg
}

// ResolveAll resolves every owl:imports target declared in src. Failures are
// collected, not returned, so callers can continue without them.
func (r *Resolver) ResolveAll(ctx context.Context, src graph.Graph) *Result {
	res := &Result{Graphs: make(map[string]*graph.Store)}
	for _, uri := range graph.Imports(src) {
		if _, done := res.Graphs[uri]; done {
			continue
		}
		g, err := r.Resolve(ctx, uri)
		if err != nil {
			r.logger.Warn("Skipping unresolved import",
				zap.String("uri", logging.SanitizeURL(uri)),
				zap.Error(err))
			res.Failures = append(res.Failures, Failure{URI: uri, Err: err})
			continue
		}
		res.Graphs[uri] = g
		res.Order = append(res.Order, uri)
	}
	return res
}

// Resolve returns the parsed graph for an import URI. The error wraps
// apperrors.ErrImportResolution.
func (r *Resolver) Resolve(ctx context.Context, uri string) (*graph.Store, error) {
	key := cache.Key(uri)
	if r.cache != nil {
		if data, ok := r.cache.Get(key); ok {
			g, err := graph.ParseBytes(data)
			if err == nil && g.Len() > 0 {
				r.logger.Debug("Loaded import from cache", zap.String("uri", uri))
				return g, nil
			}
			r.logger.Warn("Ignoring corrupt cache entry", zap.String("uri", uri), zap.Error(err))
			r.cache.Invalidate(key)
		}
	}

	var lastErr error
	for _, candidate := range r.Candidates(uri) {
		doc, err := r.fetch(ctx, candidate)
		if err != nil {
			lastErr = err
			r.logger.Debug("Candidate failed",
				zap.String("uri", uri),
				zap.String("candidate", logging.SanitizeURL(candidate)),
				zap.Error(err))
			continue
		}
		g, err := graph.ParseBytesFormat(doc.body, doc.format)
		if err != nil {
			lastErr = fmt.Errorf("parse %s as %s: %w", candidate, doc.format, err)
			continue
		}
		if g.Len() == 0 {
			lastErr = fmt.Errorf("%s: empty document", candidate)
			continue
		}

		// Entries are stored as N-Triples whatever the source format.
		if r.cache != nil {
			if err := r.cacheGraph(key, g); err != nil {
				r.logger.Warn("Failed to cache import", zap.String("uri", uri), zap.Error(err))
			}
		}
		r.logger.Info("Resolved import",
			zap.String("uri", uri),
			zap.String("from", logging.SanitizeURL(candidate)),
			zap.String("format", string(doc.format)),
			zap.Int("triples", g.Len()))
		return g, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no candidates")
	}
	return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrImportResolution, uri, lastErr)
}

func (r *Resolver) cacheGraph(key string, g *graph.Store) error {
	data, err := graph.Marshal(g)
	if err != nil {
		return err
	}
	return r.cache.Put(key, data)
}

// Candidates returns the locations tried for uri: the URI itself, then the
// mirrors of the first matching entry. Entries match exactly first, then
// ignoring fragments, then ignoring a trailing slash, then by prefix.
func (r *Resolver) Candidates(uri string) []string {
	out := []string{uri}
	for _, m := range r.findMirrors(uri) {
		if m != uri {
			out = append(out, m)
		}
	}
	return out
}

func (r *Resolver) findMirrors(ref string) []string {
	entries := r.cfg.Mirrors
	for _, e := range entries {
		if e.URI == ref {
			return e.Mirrors
		}
	}
	refNoFrag := stripFragment(ref)
	for _, e := range entries {
		if stripFragment(e.URI) == refNoFrag {
			return e.Mirrors
		}
	}
	if strings.HasSuffix(ref, "/") {
		refNoSlash := strings.TrimSuffix(ref, "/")
		for _, e := range entries {
			if strings.TrimSuffix(e.URI, "/") == refNoSlash {
				return e.Mirrors
			}
		}
	}
	for _, e := range entries {
		if e.URI != "" && strings.HasPrefix(ref, e.URI) {
			return e.Mirrors
		}
	}
	return nil
}

func stripFragment(uri string) string {
	if i := strings.IndexByte(uri, '#'); i > 0 {
		return uri[:i]
	}
	return uri
}

// document is a fetched body and the RDF format it was served as.
type document struct {
	body   []byte
	format graph.Format
}

// fetch loads one candidate with bounded retries. Local files are read
// directly and typed by extension.
func (r *Resolver) fetch(ctx context.Context, candidate string) (*document, error) {
	u, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", candidate, err)
	}
	switch u.Scheme {
	case "http", "https":
		return retry.DoWithResultIfRetryable(ctx, r.retryCfg, func() (*document, error) {
			return r.fetchOnce(ctx, candidate)
		})
	case "file":
		return readDocument(u.Path)
	case "":
		return readDocument(candidate)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func readDocument(path string) (*document, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &document{body: body, format: graph.FormatFor("", path)}, nil
}

// statusError carries a non-success HTTP status.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.url, e.status)
}

func (e *statusError) IsRetryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

func (r *Resolver) fetchOnce(ctx context.Context, target string) (*document, error) {
	current := target
	for redirects := 0; ; redirects++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		req.Header.Set("User-Agent", r.cfg.UserAgent)
		req.Header.Set("Accept", graph.AcceptHeader)

		start := time.Now()
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			r.logger.Debug("Fetched import",
				zap.String("url", logging.SanitizeURL(current)),
				zap.Int("bytes", len(body)),
				zap.Duration("elapsed", time.Since(start)))
			return &document{body: body, format: graph.FormatFor(resp.Header.Get("Content-Type"), current)}, nil

		case resp.StatusCode >= 300 && resp.StatusCode < 400:
			resp.Body.Close()
			if !r.cfg.FollowRedirects {
				return nil, retry.Permanent(&statusError{url: current, status: resp.StatusCode})
			}
			if redirects >= maxRedirects {
				return nil, retry.Permanent(fmt.Errorf("GET %s: too many redirects", target))
			}
			loc := resp.Header.Get("Location")
			if loc == "" {
				return nil, retry.Permanent(fmt.Errorf("GET %s: redirect without Location", current))
			}
			next, err := resp.Request.URL.Parse(loc)
			if err != nil {
				return nil, retry.Permanent(fmt.Errorf("GET %s: invalid redirect location: %w", current, err))
			}
			r.logger.Debug("Following redirect",
				zap.String("to", logging.SanitizeURL(next.String())),
				zap.Int("redirect", redirects+1))
			current = next.String()

		default:
			resp.Body.Close()
			return nil, &statusError{url: current, status: resp.StatusCode}
		}
	}
}

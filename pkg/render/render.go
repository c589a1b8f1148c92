package render

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/cache"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// Renderer formats the finished workspace model as text.
type Renderer interface {
	// Format returns the output format id (e.g. "sql").
	Format() string

	// Render returns the rendered document. It must not mutate ws.
	Render(ws *models.Workspace) ([]byte, error)
}

// Output is one rendered document and where it goes.
type Output struct {
	Format string
	Path   string
	Data   []byte
}

// NewRenderers returns the renderers selected by cfg.Formats in the fixed
// order sql, class diagram, ER diagram, SHACL, model.
func NewRenderers(cfg config.OutputConfig, logger *zap.Logger) []Renderer {
	all := []Renderer{
		NewSQLRenderer(logger),
		NewClassDiagramRenderer(cfg.ClassDiagramStyles),
		NewERDiagramRenderer(),
		NewSHACLRenderer(),
		NewModelRenderer(),
	}
	var out []Renderer
	for _, r := range all {
		if cfg.Enabled(r.Format()) {
			out = append(out, r)
		}
	}
	return out
}

// RenderAll renders every document in memory. Nothing is written, so a
// failing renderer leaves no partial output behind.
func RenderAll(ws *models.Workspace, renderers []Renderer, cfg config.OutputConfig) ([]Output, error) {
	if ws.ClassModel == nil || ws.Schema == nil {
		return nil, fmt.Errorf("render: pipeline has not produced a model")
	}
	outputs := make([]Output, 0, len(renderers))
	for _, r := range renderers {
		data, err := r.Render(ws)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", r.Format(), err)
		}
		outputs = append(outputs, Output{
			Format: r.Format(),
			Path:   filepath.Join(cfg.Dir, fileName(cfg, r.Format())),
			Data:   data,
		})
	}
	return outputs, nil
}

// WriteAll writes every output or none. Each document is first staged in a
// temp file beside its target; only when all are staged are they renamed
// into place. On failure the staged files and any directories created here
// are removed.
func WriteAll(outputs []Output, logger *zap.Logger) error {
	var created []string
	staged := make([]string, 0, len(outputs))
	rollback := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
		for i := len(created) - 1; i >= 0; i-- {
			_ = os.Remove(created[i])
		}
	}

	for _, o := range outputs {
		dirs, err := mkdirAll(filepath.Dir(o.Path))
		created = append(created, dirs...)
		if err != nil {
			rollback()
			return fmt.Errorf("create output dir: %w", err)
		}
		if info, err := os.Stat(o.Path); err == nil && info.IsDir() {
			rollback()
			return fmt.Errorf("write %s: target is a directory", o.Path)
		}
		tmp, err := cache.StageFile(o.Path, o.Data, 0o644)
		if err != nil {
			rollback()
			return fmt.Errorf("write %s: %w", o.Path, err)
		}
		staged = append(staged, tmp)
	}

	for i, o := range outputs {
		if err := os.Rename(staged[i], o.Path); err != nil {
			staged = staged[i:]
			created = nil
			rollback()
			return fmt.Errorf("write %s: %w", o.Path, err)
		}
		logger.Info("Wrote output",
			zap.String("format", o.Format),
			zap.String("path", o.Path),
			zap.Int("bytes", len(o.Data)))
	}
	return nil
}

// mkdirAll creates dir and its missing parents, returning the directories it
// created from the outermost down.
func mkdirAll(dir string) ([]string, error) {
	var missing []string
	for d := dir; ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil {
			break
		}
		missing = append([]string{d}, missing...)
		if filepath.Dir(d) == d {
			break
		}
	}
	return missing, os.MkdirAll(dir, 0o755)
}

func fileName(cfg config.OutputConfig, format string) string {
	switch format {
	case config.FormatSQL:
		return cfg.SQLFile
	case config.FormatClassDiagram:
		return cfg.ClassDiagramFile
	case config.FormatERDiagram:
		return cfg.ERDiagramFile
	case config.FormatSHACL:
		return cfg.SHACLFile
	default:
		return cfg.ModelFile
	}
}

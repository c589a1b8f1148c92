package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConfiguration    = errors.New("configuration error")
	ErrGraphAccess      = errors.New("graph access error")
	ErrImportResolution = errors.New("import resolution error")
	ErrCache            = errors.New("cache error")
	ErrPipelineStage    = errors.New("pipeline stage error")
)

// ConfigError reports an invalid configuration value. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// StageError carries the failing stage and, when known, the class or property
// URI that was being processed.
type StageError struct {
	Stage     string
	Operation string
	URI       string
	Err       error
}

func (e *StageError) Error() string {
	var b strings.Builder
	b.WriteString("stage ")
	b.WriteString(e.Stage)
	if e.Operation != "" {
		b.WriteString(": ")
		b.WriteString(e.Operation)
	}
	if e.URI != "" {
		b.WriteString(" <")
		b.WriteString(e.URI)
		b.WriteString(">")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPipelineStage}
	}
	return []error{ErrPipelineStage, e.Err}
}

// NewStageError wraps err with the stage context. An err that already is a
// StageError is returned unchanged so the innermost stage wins.
func NewStageError(stage, operation, uri string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Operation: operation, URI: uri, Err: err}
}

// IsFatal reports whether err must abort the run. Import and cache failures
// degrade gracefully; everything else stops the pipeline.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrImportResolution) || errors.Is(err, ErrCache) {
		return errors.Is(err, ErrPipelineStage)
	}
	return true
}

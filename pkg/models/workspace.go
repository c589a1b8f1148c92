package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ontoschema/pkg/graph"
)

// Warning is a non-fatal problem recorded during a run.
type Warning struct {
	Stage   StageID   `json:"stage" yaml:"stage"`
	URI     string    `json:"uri,omitempty" yaml:"uri,omitempty"`
	Message string    `json:"message" yaml:"message"`
	At      time.Time `json:"at" yaml:"at"`
}

// Workspace is the single mutable model shared by every stage of one run.
// Stages execute sequentially and mutate it in place.
type Workspace struct {
	RunID     uuid.UUID
	StartedAt time.Time

	// SourcePath is the ontology file; ConceptsPath the optional concept scheme.
	SourcePath   string
	ConceptsPath string

	SourceGraph  *graph.Store
	ConceptGraph *graph.Store
	ImportGraphs map[string]*graph.Store
	// ImportOrder lists resolved import URIs in resolution order.
	ImportOrder []string
	// Inferred is the entailment-closed view, or nil when reasoning is off.
	Inferred graph.Graph

	Ontology      *Ontology
	ConceptScheme *ConceptScheme
	ClassModel    *ClassModel
	Schema        *Schema

	Warnings []Warning
}

// NewWorkspace creates an empty workspace for one run.
func NewWorkspace(sourcePath, conceptsPath string) *Workspace {
	return &Workspace{
		RunID:        uuid.New(),
		StartedAt:    time.Now().UTC(),
		SourcePath:   sourcePath,
		ConceptsPath: conceptsPath,
		ImportGraphs: make(map[string]*graph.Store),
	}
}

// AddWarning records a non-fatal problem.
func (w *Workspace) AddWarning(stage StageID, uri, format string, args ...any) {
	w.Warnings = append(w.Warnings, Warning{
		Stage:   stage,
		URI:     uri,
		Message: fmt.Sprintf(format, args...),
		At:      time.Now().UTC(),
	})
}

// UnionGraph returns the source graph plus every resolved import.
func (w *Workspace) UnionGraph() graph.Graph {
	graphs := make([]graph.Graph, 0, 1+len(w.ImportOrder))
	if w.SourceGraph != nil {
		graphs = append(graphs, w.SourceGraph)
	}
	for _, uri := range w.ImportOrder {
		if g, ok := w.ImportGraphs[uri]; ok {
			graphs = append(graphs, g)
		}
	}
	return graph.NewUnion(graphs...)
}

// QueryGraph returns the inferred view when present, else the union graph.
func (w *Workspace) QueryGraph() graph.Graph {
	if w.Inferred != nil {
		return w.Inferred
	}
	return w.UnionGraph()
}

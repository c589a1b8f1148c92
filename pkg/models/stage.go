package models

// ============================================================================
// Model kinds
// ============================================================================

// ModelKind identifies which shared model a stage operates on.
type ModelKind string

const (
	ModelKindOntology ModelKind = "ontology"
	ModelKindConcepts ModelKind = "concepts"
)

// AllModelKinds lists kinds in the order the orchestrator applies them.
var AllModelKinds = []ModelKind{ModelKindOntology, ModelKindConcepts}

// ============================================================================
// Stage identifiers
// ============================================================================

// StageID is the stable identifier of a pipeline stage. It doubles as the
// tie-break key when ordering stages.
type StageID string

const (
	StageOntologyLoad           StageID = "ontology-load"
	StageConceptSchemeLoad      StageID = "concept-scheme-load"
	StageOntologyImports        StageID = "ontology-imports"
	StageOntologyReasoner       StageID = "ontology-reasoner"
	StageClassExtract           StageID = "ontology-class-extract"
	StageURITemplate            StageID = "ontology-uri-template"
	StagePropertyExtract        StageID = "ontology-property-extract"
	StageIndividualsExtract     StageID = "ontology-individuals-extract"
	StagePropertyExtra          StageID = "ontology-property-extra"
	StagePropertyOverride       StageID = "ontology-property-override"
	StageConceptSchemeExtract   StageID = "concept-scheme-extract"
	StageConceptClassExtract    StageID = "concept-class-extract"
	StageClassSimplify          StageID = "class-simplify"
	StageSchemaSynthesize       StageID = "schema-synthesize"
	StageGroupOntologyModel     StageID = "ontology-model"
	StageGroupConceptSchemeData StageID = "concept-scheme"
)

// ============================================================================
// Stage descriptor
// ============================================================================

// StageDescriptor is the static registration of a stage. Dependencies name
// stage ids or group ids; a group id is satisfied by every stage that lists
// it in Provides.
type StageDescriptor struct {
	ID           StageID     `json:"id" yaml:"id"`
	Kinds        []ModelKind `json:"kinds" yaml:"kinds"`
	Dependencies []StageID   `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Provides     []StageID   `json:"provides,omitempty" yaml:"provides,omitempty"`
}

// AppliesTo reports whether the stage runs for the given model kind.
func (d StageDescriptor) AppliesTo(kind ModelKind) bool {
	for _, k := range d.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Satisfies reports whether this stage satisfies a dependency on id.
func (d StageDescriptor) Satisfies(id StageID) bool {
	if d.ID == id {
		return true
	}
	for _, p := range d.Provides {
		if p == id {
			return true
		}
	}
	return false
}

package dag

import "github.com/ekaya-inc/ontoschema/pkg/models"

var (
	ontologyOnly = []models.ModelKind{models.ModelKindOntology}
	conceptsOnly = []models.ModelKind{models.ModelKindConcepts}
	builderGroup = []models.StageID{models.StageGroupOntologyModel}
)

// Descriptors is the static stage registration. Every builder stage provides
// the ontology-model group, so class-simplify runs after all of them.
var Descriptors = map[models.StageID]models.StageDescriptor{
	models.StageOntologyLoad: {
		ID:    models.StageOntologyLoad,
		Kinds: ontologyOnly,
	},
	models.StageConceptSchemeLoad: {
		ID:       models.StageConceptSchemeLoad,
		Kinds:    conceptsOnly,
		Provides: []models.StageID{models.StageGroupConceptSchemeData},
	},
	models.StageOntologyImports: {
		ID:           models.StageOntologyImports,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageOntologyLoad},
	},
	models.StageOntologyReasoner: {
		ID:           models.StageOntologyReasoner,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageOntologyImports},
	},
	models.StageClassExtract: {
		ID:           models.StageClassExtract,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageOntologyReasoner},
		Provides:     builderGroup,
	},
	models.StageURITemplate: {
		ID:           models.StageURITemplate,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageClassExtract},
		Provides:     builderGroup,
	},
	models.StagePropertyExtract: {
		ID:           models.StagePropertyExtract,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageClassExtract, models.StageURITemplate},
		Provides:     builderGroup,
	},
	models.StageIndividualsExtract: {
		ID:           models.StageIndividualsExtract,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageClassExtract},
		Provides:     builderGroup,
	},
	models.StagePropertyExtra: {
		ID:           models.StagePropertyExtra,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageClassExtract, models.StageConceptClassExtract},
		Provides:     builderGroup,
	},
	models.StagePropertyOverride: {
		ID:           models.StagePropertyOverride,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StagePropertyExtract},
		Provides:     builderGroup,
	},
	models.StageConceptSchemeExtract: {
		ID:           models.StageConceptSchemeExtract,
		Kinds:        conceptsOnly,
		Dependencies: []models.StageID{models.StageConceptSchemeLoad},
		Provides:     []models.StageID{models.StageGroupConceptSchemeData},
	},
	models.StageConceptClassExtract: {
		ID:           models.StageConceptClassExtract,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageClassExtract, models.StageConceptSchemeExtract},
		Provides:     builderGroup,
	},
	models.StageClassSimplify: {
		ID:           models.StageClassSimplify,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageGroupOntologyModel, models.StageGroupConceptSchemeData},
	},
	models.StageSchemaSynthesize: {
		ID:           models.StageSchemaSynthesize,
		Kinds:        ontologyOnly,
		Dependencies: []models.StageID{models.StageClassSimplify},
	},
}

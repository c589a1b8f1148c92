package graph

// Namespaces.
const (
	RDFNS   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNS  = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNS   = "http://www.w3.org/2002/07/owl#"
	XSDNS   = "http://www.w3.org/2001/XMLSchema#"
	SKOSNS  = "http://www.w3.org/2004/02/skos/core#"
	HydraNS = "http://www.w3.org/ns/hydra/core#"
	SHNS    = "http://www.w3.org/ns/shacl#"
)

// RDF and RDFS.
const (
	RDFType           = RDFNS + "type"
	RDFID             = RDFNS + "id"
	RDFLangString     = RDFNS + "langString"
	RDFSClass         = RDFSNS + "Class"
	RDFSSubClassOf    = RDFSNS + "subClassOf"
	RDFSSubPropertyOf = RDFSNS + "subPropertyOf"
	RDFSDomain        = RDFSNS + "domain"
	RDFSRange         = RDFSNS + "range"
	RDFSLabel         = RDFSNS + "label"
	RDFSComment       = RDFSNS + "comment"
	RDFSDatatype      = RDFSNS + "Datatype"
	RDFSLiteral       = RDFSNS + "Literal"
)

// OWL.
const (
	OWLClass                   = OWLNS + "Class"
	OWLThing                   = OWLNS + "Thing"
	OWLOntology                = OWLNS + "Ontology"
	OWLImports                 = OWLNS + "imports"
	OWLRestriction             = OWLNS + "Restriction"
	OWLOnProperty              = OWLNS + "onProperty"
	OWLOnClass                 = OWLNS + "onClass"
	OWLSomeValuesFrom          = OWLNS + "someValuesFrom"
	OWLAllValuesFrom           = OWLNS + "allValuesFrom"
	OWLCardinality             = OWLNS + "cardinality"
	OWLMinCardinality          = OWLNS + "minCardinality"
	OWLMaxCardinality          = OWLNS + "maxCardinality"
	OWLQualifiedCardinality    = OWLNS + "qualifiedCardinality"
	OWLMinQualifiedCardinality = OWLNS + "minQualifiedCardinality"
	OWLMaxQualifiedCardinality = OWLNS + "maxQualifiedCardinality"
	OWLEquivalentClass         = OWLNS + "equivalentClass"
	OWLEquivalentProperty      = OWLNS + "equivalentProperty"
	OWLInverseOf               = OWLNS + "inverseOf"
	OWLObjectProperty          = OWLNS + "ObjectProperty"
	OWLDatatypeProperty        = OWLNS + "DatatypeProperty"
	OWLNamedIndividual         = OWLNS + "NamedIndividual"
)

// XSD datatypes.
const (
	XSDString             = XSDNS + "string"
	XSDInteger            = XSDNS + "integer"
	XSDInt                = XSDNS + "int"
	XSDLong               = XSDNS + "long"
	XSDDecimal            = XSDNS + "decimal"
	XSDDouble             = XSDNS + "double"
	XSDFloat              = XSDNS + "float"
	XSDBoolean            = XSDNS + "boolean"
	XSDDate               = XSDNS + "date"
	XSDDateTime           = XSDNS + "dateTime"
	XSDNonNegativeInteger = XSDNS + "nonNegativeInteger"
)

// SKOS and Hydra.
const (
	SKOSConcept      = SKOSNS + "Concept"
	SKOSPrefLabel    = SKOSNS + "prefLabel"
	SKOSDefinition   = SKOSNS + "definition"
	HydraIriTemplate = HydraNS + "IriTemplate"
	HydraTemplate    = HydraNS + "template"
	HydraMapping     = HydraNS + "mapping"
	HydraVariable    = HydraNS + "variable"
	HydraProperty    = HydraNS + "property"
	HydraSearch      = HydraNS + "search"
)

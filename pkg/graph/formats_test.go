package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		contentType string
		location    string
		want        Format
	}{
		{"text/turtle", "http://ex.org/onto", FormatTurtle},
		{"text/turtle; charset=utf-8", "", FormatTurtle},
		{"application/rdf+xml", "http://ex.org/onto.ttl", FormatRDFXML},
		{"application/n-triples", "", FormatNTriples},
		{"application/octet-stream", "http://ex.org/onto.ttl", FormatTurtle},
		{"", "http://ex.org/onto.owl?version=2", FormatRDFXML},
		{"", "/tmp/hr.NT", FormatNTriples},
		{"text/html", "http://ex.org/onto", FormatNTriples},
		{"", "", FormatNTriples},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFor(tt.contentType, tt.location), "%q %q", tt.contentType, tt.location)
	}
}

const turtleDoc = `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix ex: <http://ex.org/> .

ex:A a owl:Class ;
    rdfs:label "Person"@en ;
    rdfs:comment "A human" ;
    rdfs:subClassOf [ a owl:Restriction ;
        owl:onProperty ex:name ;
        owl:maxCardinality "1"^^xsd:nonNegativeInteger ] .
`

func TestParseFormat_Turtle(t *testing.T) {
	s, err := ParseFormat(strings.NewReader(turtleDoc), FormatTurtle)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Len())

	label, ok := LiteralProperty(s, "http://ex.org/A", RDFSLabel)
	require.True(t, ok)
	assert.Equal(t, "Person", label)

	comments := s.Match(Ref(IRI("http://ex.org/A")), Ref(IRI(RDFSComment)), nil)
	require.Len(t, comments, 1)
	assert.Equal(t, Literal("A human", "", ""), comments[0].O, "plain literals carry no datatype")

	restrictions := Objects(s, IRI("http://ex.org/A"), RDFSSubClassOf)
	require.Len(t, restrictions, 1)
	require.True(t, restrictions[0].IsBlank())
	card := s.Match(&restrictions[0], Ref(IRI(OWLMaxCardinality)), nil)
	require.Len(t, card, 1)
	assert.Equal(t, XSDNonNegativeInteger, card[0].O.Datatype)
}

func TestParseFormat_Malformed(t *testing.T) {
	_, err := ParseFormat(strings.NewReader("ex:A a ."), FormatTurtle)
	assert.Error(t, err)

	_, err = ParseFormat(strings.NewReader(""), Format("json-ld"))
	assert.Error(t, err)
}

func TestReadFile_TurtleByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr.ttl")
	require.NoError(t, os.WriteFile(path, []byte(turtleDoc), 0o644))

	s, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://ex.org/A"}, ClassesByType(s, OWLClass))
}

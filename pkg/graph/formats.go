package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"
)

// Format is an RDF serialization the loader can read.
type Format string

const (
	FormatNTriples Format = "ntriples"
	FormatTurtle   Format = "turtle"
	FormatRDFXML   Format = "rdfxml"
)

// AcceptHeader lists the media types FormatFor understands, preferred first.
const AcceptHeader = "text/turtle, application/n-triples, application/rdf+xml;q=0.9, text/plain;q=0.5, */*;q=0.1"

var mediaTypes = map[string]Format{
	"text/turtle":           FormatTurtle,
	"application/x-turtle":  FormatTurtle,
	"application/n-triples": FormatNTriples,
	"text/plain":            FormatNTriples,
	"application/rdf+xml":   FormatRDFXML,
	"application/xml":       FormatRDFXML,
	"text/xml":              FormatRDFXML,
}

var extensions = map[string]Format{
	".ttl": FormatTurtle,
	".nt":  FormatNTriples,
	".rdf": FormatRDFXML,
	".owl": FormatRDFXML,
	".xml": FormatRDFXML,
}

// FormatFor picks the format of a document from its Content-Type, falling
// back to the extension of location and then to N-Triples.
func FormatFor(contentType, location string) Format {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if f, ok := mediaTypes[strings.ToLower(mt)]; ok {
				return f
			}
		}
	}
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	if f, ok := extensions[strings.ToLower(filepath.Ext(location))]; ok {
		return f
	}
	return FormatNTriples
}

// ParseFormat reads r in the given format into a new store. N-Triples uses
// the line parser; Turtle and RDF/XML are decoded by knakk/rdf.
func ParseFormat(r io.Reader, f Format) (*Store, error) {
	var codec rdf.Format
	switch f {
	case FormatNTriples, "":
		return Parse(r)
	case FormatTurtle:
		codec = rdf.Turtle
	case FormatRDFXML:
		codec = rdf.RDFXML
	default:
		return nil, fmt.Errorf("unsupported rdf format %q", f)
	}

	store := NewStore()
	dec := rdf.NewTripleDecoder(r, codec)
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return store, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		triple, err := fromRDF(t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		store.Add(triple)
	}
}

// ParseBytesFormat parses in-memory content in the given format.
func ParseBytesFormat(data []byte, f Format) (*Store, error) {
	return ParseFormat(bytes.NewReader(data), f)
}

func fromRDF(t rdf.Triple) (Triple, error) {
	s, err := fromRDFTerm(t.Subj)
	if err != nil {
		return Triple{}, err
	}
	p, err := fromRDFTerm(t.Pred)
	if err != nil {
		return Triple{}, err
	}
	o, err := fromRDFTerm(t.Obj)
	if err != nil {
		return Triple{}, err
	}
	return Triple{S: s, P: p, O: o}, nil
}

// fromRDFTerm converts a decoded term. Plain and language-tagged literals
// drop their implicit datatype so they equal the N-Triples reading.
func fromRDFTerm(t rdf.Term) (Term, error) {
	switch v := t.(type) {
	case rdf.IRI:
		return IRI(v.String()), nil
	case rdf.Blank:
		return Blank(strings.TrimPrefix(v.String(), "_:")), nil
	case rdf.Literal:
		dt := v.DataType.String()
		if v.Lang() != "" || dt == XSDString || dt == RDFLangString {
			dt = ""
		}
		return Literal(v.String(), dt, v.Lang()), nil
	default:
		return Term{}, fmt.Errorf("unsupported term %v", t)
	}
}

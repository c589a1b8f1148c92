package graph

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
)

// ParseError reports a malformed N-Triples line.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("n-triples line %d: %s", e.Line, e.Reason)
}

// ReadFile parses an RDF file into a new store. The format follows the
// file extension; unknown extensions are read as N-Triples.
func ReadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apperrors.ErrGraphAccess, path, err)
	}
	defer f.Close()

	s, err := ParseFormat(f, FormatFor("", path))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", apperrors.ErrGraphAccess, path, err)
	}
	return s, nil
}

// ParseBytes parses N-Triples content held in memory.
func ParseBytes(data []byte) (*Store, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads N-Triples from r into a new store.
func Parse(r io.Reader) (*Store, error) {
	store := NewStore()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Reason: err.Error()}
		}
		store.Add(t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return store, nil
}

func parseLine(line string) (Triple, error) {
	p := &lineParser{src: line}

	s, err := p.term()
	if err != nil {
		return Triple{}, fmt.Errorf("subject: %w", err)
	}
	if s.IsLiteral() {
		return Triple{}, fmt.Errorf("subject must not be a literal")
	}
	pred, err := p.term()
	if err != nil {
		return Triple{}, fmt.Errorf("predicate: %w", err)
	}
	if !pred.IsIRI() {
		return Triple{}, fmt.Errorf("predicate must be an IRI")
	}
	o, err := p.term()
	if err != nil {
		return Triple{}, fmt.Errorf("object: %w", err)
	}

	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '.' {
		return Triple{}, fmt.Errorf("missing terminating '.'")
	}
	p.pos++
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] != '#' {
		return Triple{}, fmt.Errorf("unexpected content after '.'")
	}
	return Triple{S: s, P: pred, O: o}, nil
}

type lineParser struct {
	src string
	pos int
}

func (p *lineParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *lineParser) term() (Term, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Term{}, fmt.Errorf("unexpected end of line")
	}
	switch {
	case p.src[p.pos] == '<':
		v, err := p.iri()
		if err != nil {
			return Term{}, err
		}
		return IRI(v), nil
	case strings.HasPrefix(p.src[p.pos:], "_:"):
		p.pos += 2
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != ' ' && p.src[p.pos] != '\t' {
			p.pos++
		}
		// A label directly followed by the final dot.
		label := strings.TrimSuffix(p.src[start:p.pos], ".")
		if len(label) < p.pos-start {
			p.pos--
		}
		if label == "" {
			return Term{}, fmt.Errorf("empty blank node label")
		}
		return Blank(label), nil
	case p.src[p.pos] == '"':
		return p.literal()
	default:
		return Term{}, fmt.Errorf("unexpected character %q", p.src[p.pos])
	}
}

func (p *lineParser) iri() (string, error) {
	end := strings.IndexByte(p.src[p.pos:], '>')
	if end < 0 {
		return "", fmt.Errorf("unterminated IRI")
	}
	raw := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1
	return unescape(raw)
}

func (p *lineParser) literal() (Term, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return Term{}, fmt.Errorf("unterminated literal")
		}
		c := p.src[p.pos]
		if c == '"' {
			p.pos++
			break
		}
		if c == '\\' {
			r, n, err := decodeEscape(p.src[p.pos:])
			if err != nil {
				return Term{}, err
			}
			b.WriteRune(r)
			p.pos += n
			continue
		}
		b.WriteByte(c)
		p.pos++
	}

	value := b.String()
	if p.pos < len(p.src) && p.src[p.pos] == '@' {
		start := p.pos + 1
		p.pos++
		for p.pos < len(p.src) && (isAlnum(p.src[p.pos]) || p.src[p.pos] == '-') {
			p.pos++
		}
		return Literal(value, "", p.src[start:p.pos]), nil
	}
	if strings.HasPrefix(p.src[p.pos:], "^^") {
		p.pos += 2
		if p.pos >= len(p.src) || p.src[p.pos] != '<' {
			return Term{}, fmt.Errorf("datatype must be an IRI")
		}
		dt, err := p.iri()
		if err != nil {
			return Term{}, err
		}
		return Literal(value, dt, ""), nil
	}
	return Literal(value, "", ""), nil
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}
		r, n, err := decodeEscape(s[i:])
		if err != nil {
			return "", err
		}
		b.WriteRune(r)
		i += n
	}
	return b.String(), nil
}

// decodeEscape decodes the escape sequence at the start of s.
func decodeEscape(s string) (rune, int, error) {
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("dangling escape")
	}
	switch s[1] {
	case 't':
		return '\t', 2, nil
	case 'b':
		return '\b', 2, nil
	case 'n':
		return '\n', 2, nil
	case 'r':
		return '\r', 2, nil
	case 'f':
		return '\f', 2, nil
	case '"':
		return '"', 2, nil
	case '\'':
		return '\'', 2, nil
	case '\\':
		return '\\', 2, nil
	case 'u', 'U':
		width := 4
		if s[1] == 'U' {
			width = 8
		}
		if len(s) < 2+width {
			return 0, 0, fmt.Errorf("short unicode escape")
		}
		v, err := strconv.ParseUint(s[2:2+width], 16, 32)
		if err != nil || !utf8.ValidRune(rune(v)) {
			return 0, 0, fmt.Errorf("invalid unicode escape %q", s[:2+width])
		}
		return rune(v), 2 + width, nil
	default:
		return 0, 0, fmt.Errorf("unknown escape \\%c", s[1])
	}
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Write serializes g as N-Triples with lines sorted, so equal graphs produce
// identical bytes.
func Write(w io.Writer, g Graph) error {
	triples := g.Match(nil, nil, nil)
	lines := make([]string, 0, len(triples))
	for _, t := range triples {
		lines = append(lines, t.String())
	}
	sort.Strings(lines)

	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Marshal returns the sorted N-Triples serialization of g.
func Marshal(g Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

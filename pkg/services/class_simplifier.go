package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/graph"
	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/services/dag"
)

var errUnnamed = errors.New("no usable name")

// ClassSimplifierService collapses the raw ontology hierarchy into emitted
// classes, interfaces and enums.
type ClassSimplifierService interface {
	Simplify(ctx context.Context, ws *models.Workspace) (*models.ClassModel, error)
}

type classSimplifierService struct {
	cfg    *config.Config
	logger *zap.Logger
}

var (
	_ ClassSimplifierService   = (*classSimplifierService)(nil)
	_ dag.ClassSimplifyMethods = (*classSimplifierService)(nil)
)

// NewClassSimplifierService creates a new class simplifier.
func NewClassSimplifierService(cfg *config.Config, logger *zap.Logger) ClassSimplifierService {
	return &classSimplifierService{
		cfg:    cfg,
		logger: logger.Named("class-simplifier"),
	}
}

// Simplify runs the simplification steps in order: partition, interface
// filtering and narrowing, enum detection, inherited attribute elision,
// superclass reduction, inverse reconciliation and final range resolution.
func (s *classSimplifierService) Simplify(ctx context.Context, ws *models.Workspace) (*models.ClassModel, error) {
	if ws.Ontology == nil {
		return nil, errOntologyNotBuilt
	}

	sim := newSimplification(s.cfg, ws)
	steps := []struct {
		name string
		run  func() error
	}{
		{"partition", infallible(sim.partition)},
		{"filter interfaces", infallible(sim.filterInterfaces)},
		{"narrow interfaces", infallible(sim.narrowInterfaces)},
		{"detect enums", infallible(sim.detectEnums)},
		{"elide inherited attributes", infallible(sim.elideInherited)},
		{"reduce superclasses", infallible(sim.reduceSuperClasses)},
		{"reconcile inverses", infallible(sim.reconcileInverses)},
		{"finalize attributes", sim.finalize},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
		if err := step.run(); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("Simplified class model",
		zap.Int("classes", len(sim.model.Classes)),
		zap.Int("interfaces", len(sim.model.Interfaces)),
		zap.Int("enums", len(sim.model.Enums)))
	return sim.model, nil
}

// simplification holds the state of one Simplify call. Emitted membership
// lives in the three model slices; kinds indexes them by URI.
type simplification struct {
	cfg    *config.Config
	ws     *models.Workspace
	ont    *models.Ontology
	scheme *models.ConceptScheme
	model  *models.ClassModel
	kinds  map[string]models.ClazzKind
	extras map[string]bool
}

func newSimplification(cfg *config.Config, ws *models.Workspace) *simplification {
	extras := make(map[string]bool, len(cfg.Ontology.ExtraProperties))
	for _, p := range cfg.Ontology.ExtraProperties {
		extras[p.URI] = true
	}
	return &simplification{
		cfg:    cfg,
		ws:     ws,
		ont:    ws.Ontology,
		scheme: ws.ConceptScheme,
		model:  &models.ClassModel{},
		kinds:  make(map[string]models.ClazzKind),
		extras: extras,
	}
}

// ============================================================================
// Membership
// ============================================================================

func (s *simplification) reindex() {
	s.kinds = make(map[string]models.ClazzKind, len(s.model.Classes)+len(s.model.Interfaces)+len(s.model.Enums))
	for _, c := range s.model.All() {
		s.kinds[c.URI] = c.Kind
	}
}

func (s *simplification) kind(uri string) (models.ClazzKind, bool) {
	k, ok := s.kinds[uri]
	return k, ok
}

func (s *simplification) lookup(uri string) *models.Clazz {
	if _, ok := s.kinds[uri]; !ok {
		return nil
	}
	return s.model.Lookup(uri)
}

// structural returns classes followed by interfaces, the node kinds that
// carry attributes.
func (s *simplification) structural() []*models.Clazz {
	out := make([]*models.Clazz, 0, len(s.model.Classes)+len(s.model.Interfaces))
	out = append(out, s.model.Classes...)
	return append(out, s.model.Interfaces...)
}

// implementers returns the emitted classes that have uri as an ancestor.
func (s *simplification) implementers(uri string) []*models.Clazz {
	var out []*models.Clazz
	for _, c := range s.model.Classes {
		if s.ont.IsSubClassOf(c.URI, uri) {
			out = append(out, c)
		}
	}
	return out
}

// ============================================================================
// Partition
// ============================================================================

func (s *simplification) partition() {
	enums := make(map[string]bool, len(s.cfg.Ontology.EnumClasses))
	for _, uri := range s.cfg.Ontology.EnumClasses {
		if s.ont.Class(uri) == nil {
			s.ws.AddWarning(models.StageClassSimplify, uri, "configured enum class not found")
			continue
		}
		enums[uri] = true
	}

	for _, node := range s.ont.Classes() {
		switch {
		case enums[node.URI]:
			s.model.Enums = append(s.model.Enums, s.newClazz(node, models.KindEnum))
		case node.Scope == models.ScopeExternal:
			s.model.Interfaces = append(s.model.Interfaces, s.newClazz(node, models.KindInterface))
		default:
			s.model.Classes = append(s.model.Classes, s.newClazz(node, models.KindClass))
		}
	}
	s.reindex()
	s.resolveRanges()
}

func (s *simplification) newClazz(node *models.ClassNode, kind models.ClazzKind) *models.Clazz {
	c := &models.Clazz{
		URI:     node.URI,
		Name:    node.Name,
		Label:   node.Label,
		Comment: node.Comment,
		Kind:    kind,
	}
	if concept := s.classConcept(node.URI); concept != nil {
		c.Name = concept.Name
		if concept.Label != "" {
			c.Label = concept.Label
		}
		if c.Comment == "" {
			c.Comment = concept.Comment
		}
	}
	if kind == models.KindEnum {
		return c
	}
	for _, edge := range node.Properties {
		c.Attributes = append(c.Attributes, s.newAttribute(edge))
	}
	return c
}

func (s *simplification) newAttribute(edge *models.PropertyEdge) *models.Attribute {
	a := &models.Attribute{
		PropertyEdge: edge,
		Name:         edge.Name,
		Label:        edge.Label,
		PrimaryKey:   edge.Identifier,
	}
	if s.cfg.Ontology.UseConceptNames {
		if concept := s.scheme.PropertyConcept(edge.URI); concept != nil {
			a.Name = concept.Name
			if concept.Label != "" {
				a.Label = concept.Label
			}
		}
	}
	return a
}

func (s *simplification) classConcept(uri string) *models.Concept {
	if !s.cfg.Ontology.UseConceptNames {
		return nil
	}
	return s.scheme.ClassConcept(uri)
}

// ============================================================================
// Nearest emitted type
// ============================================================================

// nearest resolves uri to the emitted node that represents it: the node
// itself, else the most specific emitted ancestor. Among equally specific
// ancestors interfaces win over enums, and enums over classes. Returns nil
// when nothing emitted represents uri.
func (s *simplification) nearest(uri string) *models.Clazz {
	if c := s.lookup(uri); c != nil {
		return c
	}

	var candidates []string
	for _, anc := range s.ont.Ancestors(uri) {
		if _, ok := s.kind(anc); ok {
			candidates = append(candidates, anc)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	specific := s.mostSpecific(candidates)
	for _, want := range []models.ClazzKind{models.KindInterface, models.KindEnum, models.KindClass} {
		for _, uri := range specific {
			if k, _ := s.kind(uri); k == want {
				return s.lookup(uri)
			}
		}
	}
	return nil
}

// mostSpecific drops every candidate that is a strict ancestor of another
// candidate. Mutually equivalent candidates all survive. The input order is
// kept.
func (s *simplification) mostSpecific(candidates []string) []string {
	var out []string
	for _, x := range candidates {
		redundant := false
		for _, y := range candidates {
			if x != y && s.ont.IsSubClassOf(y, x) && !s.ont.IsSubClassOf(x, y) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, x)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

// resolveRanges points every attribute at the nearest emitted type of its
// first resolvable range.
func (s *simplification) resolveRanges() {
	for _, c := range s.structural() {
		for _, a := range c.Attributes {
			a.Target = ""
			for _, r := range a.Range {
				if t := s.nearest(r); t != nil {
					a.Target = t.URI
					break
				}
			}
		}
	}
}

// ============================================================================
// Interfaces
// ============================================================================

// filterInterfaces keeps an interface only if some class attribute targets
// it and it has more implementers than the configured threshold.
func (s *simplification) filterInterfaces() {
	referenced := make(map[string]bool)
	for _, c := range s.model.Classes {
		for _, a := range c.Attributes {
			if a.Target != "" {
				referenced[a.Target] = true
			}
		}
	}

	kept := s.model.Interfaces[:0]
	for _, iface := range s.model.Interfaces {
		if referenced[iface.URI] && len(s.implementers(iface.URI)) > s.cfg.Schema.InterfaceThreshold {
			kept = append(kept, iface)
		}
	}
	s.model.Interfaces = kept
	s.reindex()
	s.resolveRanges()
}

// narrowInterfaces reduces each interface to the attributes every
// implementer has. An interface without implementers is left unchanged.
func (s *simplification) narrowInterfaces() {
	for _, iface := range s.model.Interfaces {
		impls := s.implementers(iface.URI)
		if len(impls) == 0 {
			continue
		}
		kept := iface.Attributes[:0]
		for _, a := range iface.Attributes {
			shared := true
			for _, impl := range impls {
				if impl.Attribute(a.URI) == nil {
					shared = false
					break
				}
			}
			if shared {
				kept = append(kept, a)
			}
		}
		iface.Attributes = kept
	}
}

// ============================================================================
// Enums
// ============================================================================

// detectEnums fills enum values from member subclasses and individuals and
// removes members from the class and interface sets. A subclass is a member
// when every property it has is an identifier, a configured extra property,
// or declared on the enum class itself.
func (s *simplification) detectEnums() {
	members := make(map[string]bool)
	g := s.ws.QueryGraph()

	for _, enum := range s.model.Enums {
		node := s.ont.Class(enum.URI)
		enum.Attributes = nil
		seen := make(map[string]bool)

		for _, sub := range s.ont.SubClasses(enum.URI) {
			if k, ok := s.kind(sub.URI); ok && k == models.KindEnum {
				continue
			}
			if !s.enumMember(node, sub) || seen[sub.URI] {
				continue
			}
			seen[sub.URI] = true
			members[sub.URI] = true
			name := sub.Name
			if concept := s.classConcept(sub.URI); concept != nil {
				name = concept.Name
			}
			enum.Values = append(enum.Values, &models.EnumValue{
				URI:   sub.URI,
				Name:  UpperSnake(name),
				Label: sub.Label,
			})
		}

		for _, ind := range node.Individuals {
			if seen[ind] {
				continue
			}
			seen[ind] = true
			label, _ := graph.LiteralProperty(g, ind, graph.RDFSLabel)
			enum.Values = append(enum.Values, &models.EnumValue{
				URI:   ind,
				Name:  UpperSnake(graph.LocalName(ind)),
				Label: label,
			})
		}
	}

	if len(members) == 0 {
		return
	}
	s.model.Classes = removeMembers(s.model.Classes, members)
	s.model.Interfaces = removeMembers(s.model.Interfaces, members)
	s.reindex()
	s.resolveRanges()
}

// enumMember reports whether sub carries nothing beyond what every enum value
// has anyway. Properties declared on the enum class itself, such as a code or
// a label, are shared by all members and do not disqualify sub.
func (s *simplification) enumMember(enum, sub *models.ClassNode) bool {
	for _, p := range sub.Properties {
		if p.Identifier || s.extras[p.URI] || enum.Property(p.URI) != nil {
			continue
		}
		return false
	}
	return true
}

func removeMembers(set []*models.Clazz, members map[string]bool) []*models.Clazz {
	kept := set[:0]
	for _, c := range set {
		if !members[c.URI] {
			kept = append(kept, c)
		}
	}
	return kept
}

// ============================================================================
// Inheritance
// ============================================================================

// elideInherited drops class attributes already declared by an emitted
// concrete ancestor.
func (s *simplification) elideInherited() {
	for _, c := range s.model.Classes {
		inherited := make(map[string]bool)
		for _, anc := range s.ont.Ancestors(c.URI) {
			if k, ok := s.kind(anc); !ok || k != models.KindClass {
				continue
			}
			for _, p := range s.ont.Class(anc).Properties {
				inherited[p.URI] = true
			}
		}
		if len(inherited) == 0 {
			continue
		}
		kept := c.Attributes[:0]
		for _, a := range c.Attributes {
			if !inherited[a.URI] {
				kept = append(kept, a)
			}
		}
		c.Attributes = kept
	}
}

// reduceSuperClasses keeps the most specific emitted class and interface
// ancestors. The first surviving class by URI becomes ExtendsClass.
func (s *simplification) reduceSuperClasses() {
	for _, c := range s.structural() {
		var candidates []string
		for _, anc := range s.ont.Ancestors(c.URI) {
			if k, ok := s.kind(anc); ok && k != models.KindEnum {
				candidates = append(candidates, anc)
			}
		}

		var survivors []string
		for _, x := range candidates {
			redundant := false
			for _, y := range candidates {
				if x == y || !s.ont.IsSubClassOf(y, x) {
					continue
				}
				// Equivalent classes keep the smaller URI.
				if !s.ont.IsSubClassOf(x, y) || y < x {
					redundant = true
					break
				}
			}
			if !redundant {
				survivors = append(survivors, x)
			}
		}
		sort.Strings(survivors)

		c.SuperClasses = survivors
		c.ExtendsClass = ""
		c.Interfaces = nil
		for _, sup := range survivors {
			k, _ := s.kind(sup)
			switch {
			case k == models.KindInterface:
				c.Interfaces = append(c.Interfaces, sup)
			case c.ExtendsClass == "":
				c.ExtendsClass = sup
			}
		}
	}
}

// ============================================================================
// Inverse properties
// ============================================================================

// reconcileInverses copies cardinalities across each inverse pair and keeps
// one visible direction. When neither side has a comment, the larger URI
// gets a synthesized one so it survives. Any other commentless inverse is
// dropped from classes, even when its partner is missing. A self-inverse
// property pairs with itself and is always kept.
func (s *simplification) reconcileInverses() {
	inverses := make(map[string]string)
	reconciled := make(map[string]bool)
	for _, c := range s.structural() {
		for _, a := range c.Attributes {
			if a.InverseOf == a.URI && !reconciled[a.URI] {
				// A self-inverse edge is its own opposite end.
				reconciled[a.URI] = true
				for _, e := range s.ont.PropertyEdges(a.URI) {
					e.CardinalityFrom = e.CardinalityTo.Clone()
				}
				continue
			}
			if isInverse(a) {
				if _, ok := inverses[a.URI]; !ok {
					inverses[a.URI] = a.InverseOf
				}
			}
		}
	}
	uris := make([]string, 0, len(inverses))
	for uri := range inverses {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	for _, p := range uris {
		q := inverses[p]
		if reconciled[p] || reconciled[q] {
			continue
		}
		pEdges := s.ont.PropertyEdges(p)
		qEdges := s.ont.PropertyEdges(q)
		if len(pEdges) == 0 || len(qEdges) == 0 {
			continue
		}
		reconciled[p], reconciled[q] = true, true

		pCard, qCard := pEdges[0].CardinalityTo, qEdges[0].CardinalityTo
		for _, e := range pEdges {
			e.CardinalityFrom = qCard.Clone()
		}
		for _, e := range qEdges {
			e.CardinalityFrom = pCard.Clone()
		}

		if anyComment(pEdges) || anyComment(qEdges) {
			continue
		}
		smaller, edges := q, pEdges
		if q > p {
			smaller, edges = p, qEdges
		}
		for _, e := range edges {
			e.Comment = "Inverse property of " + smaller
		}
	}

	for _, iface := range s.model.Interfaces {
		kept := iface.Attributes[:0]
		for _, a := range iface.Attributes {
			if !isInverse(a) {
				kept = append(kept, a)
			}
		}
		iface.Attributes = kept
	}
	for _, c := range s.model.Classes {
		kept := c.Attributes[:0]
		for _, a := range c.Attributes {
			if isInverse(a) && !a.HasComment() {
				continue
			}
			kept = append(kept, a)
		}
		c.Attributes = kept
	}
}

// isInverse reports whether a declares an inverse other than itself.
func isInverse(a *models.Attribute) bool {
	return a.InverseOf != "" && a.InverseOf != a.URI
}

func anyComment(edges []*models.PropertyEdge) bool {
	for _, e := range edges {
		if e.HasComment() {
			return true
		}
	}
	return false
}

// ============================================================================
// Finalize
// ============================================================================

// finalize resolves ranges and derives multiplicities and data types. Every
// emitted node and attribute must have a name by now.
func (s *simplification) finalize() error {
	s.resolveRanges()
	for _, c := range s.model.All() {
		if c.Name == "" {
			return simplifyError(c.URI, errUnnamed)
		}
	}
	for _, c := range s.structural() {
		for _, a := range c.Attributes {
			if a.Name == "" {
				return simplifyError(a.URI, errUnnamed)
			}
			a.Multiplicity = models.ClassifyMultiplicity(a.CardinalityFrom, a.CardinalityTo)
			a.DataType = s.dataType(a)
		}
	}
	return nil
}

func simplifyError(uri string, err error) error {
	return apperrors.NewStageError(string(models.StageClassSimplify), "finalize attributes", uri, err)
}

// infallible adapts a step that cannot fail.
func infallible(step func()) func() error {
	return func() error {
		step()
		return nil
	}
}

func (s *simplification) dataType(a *models.Attribute) string {
	if a.Target != "" {
		if t := s.lookup(a.Target); t != nil {
			return t.Name
		}
	}
	r := a.FirstRange()
	if r == "" {
		return "String"
	}
	return capitalize(graph.LocalName(r))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Package pattern builds the Relax NG pattern algebra from a simplified
// schema tree and implements the Brzozowski-derivative operations used
// to validate XML documents against it.
//
// Patterns form a tagged sum type, the same shape as the teacher's
// xsd.Type: an unexported marker method (isPattern) plus a Kind enum
// for dispatch, rather than a deep interface hierarchy with per-variant
// virtual methods.
package pattern // import "aqwari.net/relaxng/pattern"

// A Kind identifies which variant of Pattern a value holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindNotAllowed
	KindText
	KindValue
	KindData
	KindList
	KindRef
	KindDefine
	KindOneOrMore
	KindChoice
	KindGroup
	KindInterleave
	KindElement
	KindAttribute
	KindGrammar
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNotAllowed:
		return "notAllowed"
	case KindText:
		return "text"
	case KindValue:
		return "value"
	case KindData:
		return "data"
	case KindList:
		return "list"
	case KindRef:
		return "ref"
	case KindDefine:
		return "define"
	case KindOneOrMore:
		return "oneOrMore"
	case KindChoice:
		return "choice"
	case KindGroup:
		return "group"
	case KindInterleave:
		return "interleave"
	case KindElement:
		return "element"
	case KindAttribute:
		return "attribute"
	case KindGrammar:
		return "grammar"
	default:
		return "unknown"
	}
}

// A Pattern is one of the tagged variants listed by Kind. Use Kind() to
// dispatch, then a type switch on the concrete type for field access.
type Pattern interface {
	isPattern()
	// Kind reports which variant this value is.
	Kind() Kind
	// Path is the diagnostic path of the schema element this pattern
	// was built from, or "" for a pattern synthesized by the algebra
	// (e.g. a derivative's residual).
	Path() string
	// cacheBox returns this instance's derivative memo table. It is
	// unexported so only algebra.go's derivative functions can use it;
	// every concrete Pattern gets one for free by embedding base.
	cacheBox() *derivCache
}

// base is embedded in every concrete Pattern to carry its diagnostic
// path and per-instance derivative caches.
type base struct {
	path string

	cache derivCache
}

func (base) isPattern()               {}
func (b base) Path() string           { return b.path }
func (b *base) cacheBox() *derivCache { return &b.cache }

// Empty matches the empty sequence and nothing else.
type Empty struct{ base }

func (*Empty) Kind() Kind { return KindEmpty }

// NotAllowed matches nothing; it is the algebra's bottom/failure value.
type NotAllowed struct{ base }

func (*NotAllowed) Kind() Kind { return KindNotAllowed }

// Text matches any sequence of character data, including none.
type Text struct{ base }

func (*Text) Kind() Kind { return KindText }

// Value matches a single literal of a datatype.
type Value struct {
	base
	Type            string
	DatatypeLibrary string
	NS              string
	Literal         string
}

func (*Value) Kind() Kind { return KindValue }

// A Param is a single name/value pair passed to a datatype library when
// constructing a Data pattern.
type Param struct {
	Name  string
	Value string
}

// Data matches any value accepted by a datatype, optionally excluding
// values matched by Except.
type Data struct {
	base
	Type            string
	DatatypeLibrary string
	Params          []Param
	Except          Pattern // nil, or a Choice/Value/Data tree
}

func (*Data) Kind() Kind { return KindData }

// List matches text content that, split on whitespace, matches Body as
// a sequence of tokens.
type List struct {
	base
	Body Pattern
}

func (*List) Kind() Kind { return KindList }

// Ref matches whatever its named Define matches. Ref never holds a
// direct pointer to its Define; it is resolved lazily through the
// owning Grammar's definition table, so cyclic grammars never form a
// reference cycle in the Go object graph itself.
type Ref struct {
	base
	Name string

	grammar *Grammar
}

func (*Ref) Kind() Kind { return KindRef }

// NewRef builds a Ref to name within g. It exists for callers outside
// this package (the compact-format decoder) that need to reconstruct
// a Grammar without a simplified tree to run Build over; ordinary
// schema loading never calls it directly.
func NewRef(g *Grammar, name string) *Ref {
	return &Ref{Name: name, grammar: g}
}

// Define names a pattern so it can be the target of a Ref or ParentRef.
type Define struct {
	base
	Name string
	Body Pattern
}

func (*Define) Kind() Kind { return KindDefine }

// OneOrMore matches one or more repetitions of Body in sequence.
type OneOrMore struct {
	base
	Body Pattern
}

func (*OneOrMore) Kind() Kind { return KindOneOrMore }

// Choice matches whatever either A or B matches.
type Choice struct {
	base
	A, B Pattern
}

func (*Choice) Kind() Kind { return KindChoice }

// Group matches A followed by B.
type Group struct {
	base
	A, B Pattern
}

func (*Group) Kind() Kind { return KindGroup }

// Interleave matches A and B in any interleaving of their respective
// matches.
type Interleave struct {
	base
	A, B Pattern
}

func (*Interleave) Kind() Kind { return KindInterleave }

// Element matches a single element whose name is accepted by NameClass
// and whose content matches Body. Post-simplification, Element appears
// only as the body of a Define.
type Element struct {
	base
	NameClass NameClass
	Body      Pattern
}

func (*Element) Kind() Kind { return KindElement }

// Attribute matches a single attribute whose name is accepted by
// NameClass and whose value matches Body.
type Attribute struct {
	base
	NameClass NameClass
	Body      Pattern
}

func (*Attribute) Kind() Kind { return KindAttribute }

// Grammar owns a definition table and the pattern for Start, the
// pattern a validator begins walking with.
type Grammar struct {
	base
	Start   Pattern
	Defines map[string]*Define
	// Order preserves the document order the defines were built in,
	// for deterministic iteration (diagnostics, compact-format
	// encoding).
	Order []string

	// nullableCache memoizes nullableOfDefine's grammar-wide fixed
	// point, computed once on first use.
	nullableCache map[*Define]bool
}

func (*Grammar) Kind() Kind { return KindGrammar }

// Resolve looks up name in g's definition table.
func (g *Grammar) Resolve(name string) (*Define, bool) {
	d, ok := g.Defines[name]
	return d, ok
}

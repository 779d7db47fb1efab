package pattern

import "strings"

// derivCache holds the per-instance memoization the specification's
// §4.5 calls for, keyed by the derivative's varying argument. Grammar
// patterns (Element, Group, Interleave, ...) are built once by Build
// and shared for the life of a Grammar, so memoizing here pays off
// across repeated validations of the same schema; patterns synthesized
// fresh by the algebra itself (after, the NewGroup/NewChoice results)
// get a cache too but rarely see a second lookup, since nothing keeps
// them around past the derivative step that built them.
//
// EndAttrDeriv has no cache field: it is the identity function (see its
// doc comment), so there is nothing to memoize.
type derivCache struct {
	startTag  map[qname]Pattern
	text      map[string]Pattern
	endTag    Pattern
	endTagSet bool
}

type qname struct{ ns, local string }

// Nullable reports whether p matches the empty sequence. Ref resolves
// through its owning Grammar's fixed-point nullable table (see
// Grammar.nullableOfDefine), which is how recursive grammars terminate:
// every definition's nullable value is initialized false and iterated
// to a fixed point, exactly as the design notes call for.
func Nullable(p Pattern) bool {
	switch v := p.(type) {
	case *Empty:
		return true
	case *NotAllowed:
		return false
	case *Text:
		return true
	case *Value:
		return false
	case *Data:
		return false
	case *List:
		return true
	case *Ref:
		def, ok := v.grammar.Resolve(v.Name)
		if !ok {
			return false
		}
		return v.grammar.nullableOfDefine(def)
	case *OneOrMore:
		return Nullable(v.Body)
	case *Choice:
		return Nullable(v.A) || Nullable(v.B)
	case *Group:
		return Nullable(v.A) && Nullable(v.B)
	case *Interleave:
		return Nullable(v.A) && Nullable(v.B)
	case *Element:
		return false
	case *Attribute:
		return false
	case *Grammar:
		return Nullable(v.Start)
	case *after:
		return Nullable(v.P1) && Nullable(v.P2)
	default:
		return false
	}
}

// nullableOfDefine returns def's nullability, computing the grammar-wide
// fixed point on first use and caching it for the life of the Grammar.
func (g *Grammar) nullableOfDefine(def *Define) bool {
	if g.nullableCache == nil {
		g.nullableCache = make(map[*Define]bool, len(g.Defines))
		for {
			changed := false
			for _, name := range g.Order {
				d := g.Defines[name]
				n := nullableFixed(d.Body, g.nullableCache)
				if n != g.nullableCache[d] {
					g.nullableCache[d] = n
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}
	return g.nullableCache[def]
}

// nullableFixed is Nullable, but consults the in-progress fixed-point
// table for Refs instead of recursing into nullableOfDefine (which
// would deadlock rebuilding the very table it's called from).
func nullableFixed(p Pattern, table map[*Define]bool) bool {
	switch v := p.(type) {
	case *Ref:
		def, ok := v.grammar.Resolve(v.Name)
		if !ok {
			return false
		}
		return table[def]
	case *OneOrMore:
		return nullableFixed(v.Body, table)
	case *Choice:
		return nullableFixed(v.A, table) || nullableFixed(v.B, table)
	case *Group:
		return nullableFixed(v.A, table) && nullableFixed(v.B, table)
	case *Interleave:
		return nullableFixed(v.A, table) && nullableFixed(v.B, table)
	case *after:
		return nullableFixed(v.P1, table) && nullableFixed(v.P2, table)
	default:
		return Nullable(p)
	}
}

// after is an internal-only pattern produced by the derivative algebra
// (never by Build, never serialized): once a start tag has been
// accepted, the residual becomes after(content, continuation), where
// continuation is what the surrounding pattern becomes once this
// element's content is later found nullable at its end tag. This is
// the textbook derivative-based formulation used by the deriving
// validators this algebra is modeled on; it keeps the walker's state
// to a single residual pattern instead of an explicit element stack.
type after struct {
	base
	P1, P2 Pattern
}

func (*after) Kind() Kind { return Kind(-1) }

// newAfter builds an after pattern, collapsing to NotAllowed if either
// side already is.
func newAfter(p1, p2 Pattern) Pattern {
	if isNotAllowed(p1) || isNotAllowed(p2) {
		return &NotAllowed{}
	}
	return &after{P1: p1, P2: p2}
}

func isNotAllowed(p Pattern) bool {
	_, ok := p.(*NotAllowed)
	return ok
}
func isEmpty(p Pattern) bool {
	_, ok := p.(*Empty)
	return ok
}

// applyAfter threads merge through the after/Choice shape a recursive
// derivative call may have returned, rewriting after(p1,p2) to
// after(p1, merge(p2)) so an open child element's continuation
// correctly carries the rest of its parent's Group/Interleave/
// OneOrMore operand instead of losing it. This is the groupAfter/
// interleaveAfter merge step of the derivative algorithm this package
// implements: a derivative taken inside an already-open element must
// land back inside that element's after wrapper, not beside it.
//
// A recursive call that did not touch an after at all (the ordinary
// case for StartAttrDeriv and TextDeriv, which never introduce one)
// falls through to the default case, where merge is simply applied
// directly — matching the un-nested NewGroup/NewInterleave call the
// same branch would have made without an after in play.
func applyAfter(p Pattern, merge func(Pattern) Pattern) Pattern {
	switch v := p.(type) {
	case *after:
		return newAfter(v.P1, merge(v.P2))
	case *Choice:
		return NewChoice(applyAfter(v.A, merge), applyAfter(v.B, merge))
	default:
		return merge(p)
	}
}

// NewChoice builds a Choice pattern, applying the smart-constructor
// rules from §4.5: Choice(notAllowed, p) = p, and the same for the
// mirror case.
func NewChoice(a, b Pattern) Pattern {
	if isNotAllowed(a) {
		return b
	}
	if isNotAllowed(b) {
		return a
	}
	return &Choice{A: a, B: b}
}

// NewGroup builds a Group pattern, collapsing Group(empty, p) = p and
// Group(notAllowed, p) = notAllowed (and their mirrors).
func NewGroup(a, b Pattern) Pattern {
	if isNotAllowed(a) || isNotAllowed(b) {
		return &NotAllowed{}
	}
	if isEmpty(a) {
		return b
	}
	if isEmpty(b) {
		return a
	}
	return &Group{A: a, B: b}
}

// NewInterleave builds an Interleave pattern with the same empty/
// notAllowed collapsing rules as NewGroup.
func NewInterleave(a, b Pattern) Pattern {
	if isNotAllowed(a) || isNotAllowed(b) {
		return &NotAllowed{}
	}
	if isEmpty(a) {
		return b
	}
	if isEmpty(b) {
		return a
	}
	return &Interleave{A: a, B: b}
}

// NewOneOrMore builds a OneOrMore pattern, collapsing
// OneOrMore(notAllowed) = notAllowed.
func NewOneOrMore(p Pattern) Pattern {
	if isNotAllowed(p) {
		return &NotAllowed{}
	}
	return &OneOrMore{Body: p}
}

// resolveRef transparently substitutes a Ref with its Define's body, so
// the derivative dispatch below never needs a *Ref or *Define case of
// its own; grammars resolve lazily, by name, at the moment a deriv
// needs to see through them.
func resolveRef(p Pattern) Pattern {
	ref, ok := p.(*Ref)
	if !ok {
		return p
	}
	def, ok := ref.grammar.Resolve(ref.Name)
	if !ok {
		return &NotAllowed{}
	}
	return def.Body
}

// StartTagOpenDeriv computes the residual after a start tag (ns,local)
// is seen, before any of its attributes are processed.
func StartTagOpenDeriv(p Pattern, ns, local string) Pattern {
	p = resolveRef(p)
	box := p.cacheBox()
	key := qname{ns, local}
	if box.startTag == nil {
		box.startTag = make(map[qname]Pattern)
	} else if cached, ok := box.startTag[key]; ok {
		return cached
	}
	result := startTagOpenDeriv(p, ns, local)
	box.startTag[key] = result
	return result
}

func startTagOpenDeriv(p Pattern, ns, local string) Pattern {
	switch v := p.(type) {
	case *Choice:
		return NewChoice(StartTagOpenDeriv(v.A, ns, local), StartTagOpenDeriv(v.B, ns, local))
	case *Group:
		x := applyAfter(StartTagOpenDeriv(v.A, ns, local), func(c Pattern) Pattern { return NewGroup(c, v.B) })
		if Nullable(v.A) {
			x = NewChoice(x, StartTagOpenDeriv(v.B, ns, local))
		}
		return x
	case *Interleave:
		x := applyAfter(StartTagOpenDeriv(v.A, ns, local), func(c Pattern) Pattern { return NewInterleave(c, v.B) })
		y := applyAfter(StartTagOpenDeriv(v.B, ns, local), func(c Pattern) Pattern { return NewInterleave(v.A, c) })
		return NewChoice(x, y)
	case *OneOrMore:
		return applyAfter(StartTagOpenDeriv(v.Body, ns, local), func(c Pattern) Pattern {
			return NewGroup(c, NewChoice(NewOneOrMore(v.Body), &Empty{}))
		})
	case *Element:
		if v.NameClass.Contains(ns, local) {
			return newAfter(v.Body, &Empty{})
		}
		return &NotAllowed{}
	case *after:
		return applyAfter(StartTagOpenDeriv(v.P1, ns, local), func(c Pattern) Pattern { return newAfter(c, v.P2) })
	default:
		return &NotAllowed{}
	}
}

// StartAttrDeriv computes the residual after an attribute (ns,local)
// with the given lexical value is seen. Attribute order never matters,
// so unlike Group's start-tag handling, both operand orders are tried
// unconditionally rather than being gated on nullable.
func StartAttrDeriv(p Pattern, ns, local, value string) Pattern {
	p = resolveRef(p)
	switch v := p.(type) {
	case *Choice:
		return NewChoice(StartAttrDeriv(v.A, ns, local, value), StartAttrDeriv(v.B, ns, local, value))
	case *Group:
		return NewChoice(
			applyAfter(StartAttrDeriv(v.A, ns, local, value), func(c Pattern) Pattern { return NewGroup(c, v.B) }),
			applyAfter(StartAttrDeriv(v.B, ns, local, value), func(c Pattern) Pattern { return NewGroup(v.A, c) }),
		)
	case *Interleave:
		return NewChoice(
			applyAfter(StartAttrDeriv(v.A, ns, local, value), func(c Pattern) Pattern { return NewInterleave(c, v.B) }),
			applyAfter(StartAttrDeriv(v.B, ns, local, value), func(c Pattern) Pattern { return NewInterleave(v.A, c) }),
		)
	case *OneOrMore:
		return applyAfter(StartAttrDeriv(v.Body, ns, local, value), func(c Pattern) Pattern {
			return NewGroup(c, NewChoice(NewOneOrMore(v.Body), &Empty{}))
		})
	case *Attribute:
		if !v.NameClass.Contains(ns, local) {
			return &NotAllowed{}
		}
		if valueMatches(v.Body, value) {
			return &Empty{}
		}
		return &NotAllowed{}
	case *after:
		return applyAfter(StartAttrDeriv(v.P1, ns, local, value), func(c Pattern) Pattern { return newAfter(c, v.P2) })
	default:
		return &NotAllowed{}
	}
}

// valueMatches reports whether an attribute or list-item's literal text
// is accepted by the value pattern p, by driving p's textDeriv with the
// whole string and checking nullability of the result.
func valueMatches(p Pattern, text string) bool {
	return Nullable(TextDeriv(p, text))
}

// TextDeriv computes the residual after character content is seen.
// List splits the buffered text on whitespace and threads each token
// through its body pattern in turn.
func TextDeriv(p Pattern, text string) Pattern {
	p = resolveRef(p)
	box := p.cacheBox()
	if box.text == nil {
		box.text = make(map[string]Pattern)
	} else if cached, ok := box.text[text]; ok {
		return cached
	}
	result := textDeriv(p, text)
	box.text[text] = result
	return result
}

func textDeriv(p Pattern, text string) Pattern {
	switch v := p.(type) {
	case *Choice:
		return NewChoice(TextDeriv(v.A, text), TextDeriv(v.B, text))
	case *Group:
		x := applyAfter(TextDeriv(v.A, text), func(c Pattern) Pattern { return NewGroup(c, v.B) })
		if Nullable(v.A) {
			x = NewChoice(x, TextDeriv(v.B, text))
		}
		return x
	case *Interleave:
		return NewChoice(
			applyAfter(TextDeriv(v.A, text), func(c Pattern) Pattern { return NewInterleave(c, v.B) }),
			applyAfter(TextDeriv(v.B, text), func(c Pattern) Pattern { return NewInterleave(v.A, c) }),
		)
	case *OneOrMore:
		return applyAfter(TextDeriv(v.Body, text), func(c Pattern) Pattern {
			return NewGroup(c, NewChoice(NewOneOrMore(v.Body), &Empty{}))
		})
	case *Text:
		return v
	case *Value:
		if matchesValue(v, text) {
			return &Empty{}
		}
		return &NotAllowed{}
	case *Data:
		if matchesData(v, text) {
			return &Empty{}
		}
		return &NotAllowed{}
	case *List:
		if listMatches(v.Body, text) {
			return &Empty{}
		}
		return &NotAllowed{}
	case *after:
		return applyAfter(TextDeriv(v.P1, text), func(c Pattern) Pattern { return newAfter(c, v.P2) })
	default:
		// A pattern that doesn't accept text directly (Empty, NotAllowed,
		// Attribute, Element, ...) still accepts whitespace-only content,
		// per the derivative algorithm's text rule: insignificant
		// whitespace between markup is always allowed, even where the
		// content model has no <text/> of its own.
		if strings.TrimSpace(text) == "" {
			return p
		}
		return &NotAllowed{}
	}
}

// matchesValue reports whether text, after the whitespace folding the
// built-in datatype library applies to "token"-like types, equals the
// value pattern's literal. Facet-aware datatype libraries are out of
// scope (see DESIGN.md); equality after whitespace collapse is the
// built-in library's actual comparison rule for its only two types
// (string, token) and a reasonable approximation for others.
func matchesValue(v *Value, text string) bool {
	return collapse(text) == collapse(v.Literal)
}

// matchesData reports whether text is accepted by a Data pattern's
// datatype. Without a pluggable facet-checking datatype library wired
// in (see DESIGN.md), any non-empty lexical space is accepted for every
// built-in type except when excluded by Except.
func matchesData(d *Data, text string) bool {
	if d.Except != nil && Nullable(TextDeriv(d.Except, text)) {
		return false
	}
	return true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// listMatches reports whether text, split on whitespace, is accepted
// as a sequence of tokens by body.
func listMatches(body Pattern, text string) bool {
	residual := body
	for _, tok := range strings.Fields(text) {
		residual = TextDeriv(residual, tok)
		if isNotAllowed(residual) {
			return false
		}
	}
	return Nullable(residual)
}

// EndTagDeriv computes the residual once an end tag is seen, after any
// buffered text has already been folded in via TextDeriv.
func EndTagDeriv(p Pattern) Pattern {
	p = resolveRef(p)
	box := p.cacheBox()
	if box.endTagSet {
		return box.endTag
	}
	result := endTagDeriv(p)
	box.endTag, box.endTagSet = result, true
	return result
}

func endTagDeriv(p Pattern) Pattern {
	switch v := p.(type) {
	case *Choice:
		return NewChoice(EndTagDeriv(v.A), EndTagDeriv(v.B))
	case *after:
		if Nullable(v.P1) {
			return v.P2
		}
		return &NotAllowed{}
	default:
		return &NotAllowed{}
	}
}

// EndAttrDeriv is the residual transition from "all attributes seen"
// to "ready for text/child content". The attribute algebra above
// already leaves any unsatisfied, non-nullable Attribute in place, so
// no pattern rewrite is needed here: a missing required attribute
// surfaces naturally as a later startTagOpenDeriv/textDeriv/endTagDeriv
// failure against the leftover Attribute node. EndAttrDeriv exists as
// its own step (matching the §4.6 state machine) so the walker has a
// place to check for, and report, that case immediately rather than
// waiting for a confusing downstream error.
func EndAttrDeriv(p Pattern) Pattern {
	return p
}

// MissingAttribute does a best-effort structural search for a required
// Attribute pattern left unconsumed in p, for a precise diagnostic at
// leaveStartTag time rather than a generic "does not match" error at
// end tag. It does not attempt a full satisfiability analysis of
// Choice; it reports the first Attribute reachable through Group/after
// wrappers that both operands still require.
func MissingAttribute(p Pattern) (ns, local string, ok bool) {
	switch v := resolveRef(p).(type) {
	case *Attribute:
		if n, ok := v.NameClass.(Name); ok {
			return n.NS, n.Local, true
		}
		return "", "", true
	case *Group:
		if !Nullable(v.A) {
			if ns, local, ok := MissingAttribute(v.A); ok {
				return ns, local, ok
			}
		}
		if !Nullable(v.B) {
			return MissingAttribute(v.B)
		}
	case *Interleave:
		if !Nullable(v.A) {
			if ns, local, ok := MissingAttribute(v.A); ok {
				return ns, local, ok
			}
		}
		if !Nullable(v.B) {
			return MissingAttribute(v.B)
		}
	case *after:
		return MissingAttribute(v.P1)
	case *OneOrMore:
		return MissingAttribute(v.Body)
	}
	return "", "", false
}

// Package walker drives a pattern.Grammar's derivative algebra from a
// stream of XML parse events, collecting ValidationErrors rather than
// stopping at the first one (best-guess recovery, per the design).
//
// The listener surface is trimmed to the three events the teacher's
// moznion-helium/sax.ContentHandler models as StartElement/EndElement/
// Characters — every DTD, entity and locator method that interface
// carries is dropped, since Relax NG validation has no DTD surface.
package walker // import "aqwari.net/relaxng/walker"

import (
	"fmt"

	"aqwari.net/relaxng/pattern"
	"aqwari.net/relaxng/rngerr"
)

// A ValidationError is one mismatch between a document and a grammar.
// A Walker accumulates these instead of stopping at the first one.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Listener is a three-event surface (open, close, text) for document
// sources. It mirrors on_open/on_close/on_text from the design note,
// named for what each event carries. Walker does not implement it; a
// Walker is driven through StartTagAndAttributes, Text and EndTag.
type Listener interface {
	OnOpen(uri, local string, attrs []Attr)
	OnClose(uri, local string)
	OnText(chars string)
}

// An Attr is one attribute delivered with a start tag.
type Attr struct {
	URI, Local, Value string
}

// Walker validates a stream of XML events against a Grammar. It holds
// exactly one residual pattern; descending into nested elements is
// modeled entirely within the pattern algebra's "after" construct (see
// pattern.StartTagOpenDeriv), so no separate per-depth pattern stack is
// needed here — only a namespace-frame stack, which is a genuinely
// separate, orthogonal piece of state.
type Walker struct {
	grammar *pattern.Grammar

	residual pattern.Pattern
	nsFrames []map[string]string

	inStartTag bool
	seenAttrs  map[attrKey]bool
	textBuf    string
	path       []string

	Errors []*ValidationError
}

type attrKey struct{ uri, local string }

// New returns a Walker ready to validate a document against g,
// starting at g's Start pattern.
func New(g *pattern.Grammar) *Walker {
	return &Walker{
		grammar:  g,
		residual: g.Start,
	}
}

func (w *Walker) fail(format string, args ...interface{}) {
	w.Errors = append(w.Errors, &ValidationError{
		Path:    w.currentPath(),
		Message: fmt.Sprintf(format, args...),
	})
}

func (w *Walker) currentPath() string {
	if len(w.path) == 0 {
		return "/"
	}
	p := ""
	for _, s := range w.path {
		p += "/" + s
	}
	return p
}

// EnterContext pushes an empty namespace-prefix frame.
func (w *Walker) EnterContext() {
	w.nsFrames = append(w.nsFrames, make(map[string]string))
}

// DefinePrefix binds prefix to uri in the top namespace frame.
func (w *Walker) DefinePrefix(prefix, uri string) {
	if len(w.nsFrames) == 0 {
		w.EnterContext()
	}
	w.nsFrames[len(w.nsFrames)-1][prefix] = uri
}

// LeaveContext pops the top namespace frame.
func (w *Walker) LeaveContext() {
	if len(w.nsFrames) > 0 {
		w.nsFrames = w.nsFrames[:len(w.nsFrames)-1]
	}
}

// ResolvePrefix looks up prefix in the walker's own namespace-context
// stack (innermost frame first). This is independent of any schema
// tree's scope resolution; it exists purely for documents being
// validated.
func (w *Walker) ResolvePrefix(prefix string) (string, bool) {
	for i := len(w.nsFrames) - 1; i >= 0; i-- {
		if uri, ok := w.nsFrames[i][prefix]; ok {
			return uri, true
		}
	}
	return "", false
}

// StartTagAndAttributes computes the start-tag derivative, then a
// start-attr derivative per attribute (attrs may arrive in any order;
// duplicate attribute names are rejected regardless of order), then
// leaveStartTag.
func (w *Walker) StartTagAndAttributes(uri, local string, attrs []Attr) {
	w.flushText()
	w.path = append(w.path, local)

	next := pattern.StartTagOpenDeriv(w.residual, uri, local)
	if _, ok := next.(*pattern.NotAllowed); ok {
		w.fail("element <%s> (namespace %q) is not allowed here", local, uri)
		// Enter the rejected element with text-only content, so that its
		// end tag returns to the residual from before it instead of being
		// taken as the end of the parent.
		skip := &pattern.Group{A: &pattern.Element{NameClass: pattern.AnyName{}, Body: &pattern.Text{}}, B: w.residual}
		next = pattern.StartTagOpenDeriv(skip, uri, local)
	}
	w.adopt(next, "element <%s> (namespace %q) is not allowed here", local, uri)

	for k := range w.seenAttrs {
		delete(w.seenAttrs, k)
	}
	if w.seenAttrs == nil {
		w.seenAttrs = make(map[attrKey]bool, len(attrs))
	}
	for _, a := range attrs {
		key := attrKey{a.URI, a.Local}
		if w.seenAttrs[key] {
			w.fail("duplicate attribute %q (namespace %q)", a.Local, a.URI)
			continue
		}
		w.seenAttrs[key] = true
		next := pattern.StartAttrDeriv(w.residual, a.URI, a.Local, a.Value)
		w.adopt(next, "attribute %q (namespace %q) with value %q is not allowed here", a.Local, a.URI, a.Value)
	}

	if ns, local, ok := pattern.MissingAttribute(w.residual); ok {
		w.fail("missing required attribute %q (namespace %q)", local, ns)
	}
	w.residual = pattern.EndAttrDeriv(w.residual)
}

// Text buffers character data; it is folded into the residual lazily,
// as a single string, at the next structural event (EndTag or a
// sibling StartTagAndAttributes), because datatypes that constrain the
// full lexical value need to see it whole, not split across calls.
func (w *Walker) Text(chars string) {
	w.textBuf += chars
}

func (w *Walker) flushText() {
	if w.textBuf == "" {
		return
	}
	next := pattern.TextDeriv(w.residual, w.textBuf)
	w.adopt(next, "text %q is not allowed here", w.textBuf)
	w.textBuf = ""
}

// EndTag flushes any buffered text, then computes the end-tag
// derivative.
func (w *Walker) EndTag(uri, local string) {
	w.flushText()
	next := pattern.EndTagDeriv(w.residual)
	w.adopt(next, "element <%s> is missing required content", local)
	if len(w.path) > 0 {
		w.path = w.path[:len(w.path)-1]
	}
}

// adopt installs next as the residual unless it is NotAllowed, in
// which case it records a failure and keeps the previous residual:
// the "best-guess recovery" mode, so one mismatch doesn't cascade into
// a wall of downstream errors about an element the walker never really
// descended into.
func (w *Walker) adopt(next pattern.Pattern, format string, args ...interface{}) {
	if _, ok := next.(*pattern.NotAllowed); ok {
		w.fail(format, args...)
		return
	}
	w.residual = next
}

// Finish must be called after the top-level EndTag. It checks that the
// residual is nullable, per the terminal rule in the design, and
// returns the accumulated errors (nil if the document validated
// cleanly).
func (w *Walker) Finish() []*ValidationError {
	if !pattern.Nullable(w.residual) {
		w.fail("document ended with required content unmatched")
	}
	return w.Errors
}

// Validate drives a Walker by replaying evs against g and returns the
// accumulated errors, a convenience for callers that already have a
// fully materialized event list rather than a streaming source.
func Validate(g *pattern.Grammar, evs []Event) []*ValidationError {
	w := New(g)
	for _, ev := range evs {
		switch ev.Kind {
		case EventEnterContext:
			w.EnterContext()
		case EventDefinePrefix:
			w.DefinePrefix(ev.Prefix, ev.URI)
		case EventLeaveContext:
			w.LeaveContext()
		case EventStartTag:
			w.StartTagAndAttributes(ev.URI, ev.Local, ev.Attrs)
		case EventText:
			w.Text(ev.Text)
		case EventEndTag:
			w.EndTag(ev.URI, ev.Local)
		}
	}
	return w.Finish()
}

// An EventKind identifies which field of an Event is populated.
type EventKind int

const (
	EventEnterContext EventKind = iota
	EventDefinePrefix
	EventLeaveContext
	EventStartTag
	EventText
	EventEndTag
)

// Event is a single recorded parse event, used by Validate and by
// tests that want to replay a fixed event sequence without wiring a
// real XML decoder.
type Event struct {
	Kind   EventKind
	URI    string
	Local  string
	Prefix string
	Attrs  []Attr
	Text   string
}

// NewValidationStop wraps errs as a single rngerr.Validation error for
// callers that want a plain Go error rather than the raw slice (e.g.
// cmd/rngvalidate, which needs one error value to decide its exit
// code).
func NewValidationStop(errs []*ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	if len(errs) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(errs)-1)
	}
	return rngerr.New(rngerr.Validation, errs[0].Path, "%s", msg)
}

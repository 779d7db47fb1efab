// Package xmltree converts XML documents into a mutable tree of Go
// structs.
//
// The xmltree package provides routines for accessing and rewriting an
// XML document as a tree, along with functionality to resolve
// namespace-prefixed strings at any point in the tree. Unlike a plain
// decode into a struct, an xmltree.Element tree can be mutated in place:
// children can be inserted, removed or replaced, and each node can be
// asked for its path from the document root.
package xmltree // import "aqwari.net/relaxng/xmltree"

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

const recursionLimit = 3000

var errDeepXML = errors.New("xmltree: xml document too deeply nested")

// A Node is either an *Element or a *Text. It is the unit of storage in
// an Element's Children list.
type Node interface {
	isNode()
	// Parent returns the containing Element, or nil if the node is
	// not currently attached to a tree.
	Parent() *Element
	setParent(*Element)
}

// An Element represents a single element in an XML document. Elements
// may have zero or more children, each either an *Element or a *Text.
// An Element also captures the xml namespace prefixes in scope at its
// position in the document, so that arbitrary QNames in attribute
// values can be resolved.
type Element struct {
	xml.StartElement
	// The XML namespace scope at this element's location in the
	// document.
	Scope
	// The raw content contained within this element's start and
	// end tags, as it appeared in the original document. Only set
	// for trees built by Parse; stale after mutation.
	Content []byte
	// Children of this element, in document order.
	Children []Node

	parent *Element
	path   string // "" means "needs recompute"
}

// Text is an immutable run of character content appearing between
// elements.
type Text struct {
	Value string

	parent *Element
}

func (*Element) isNode() {}
func (*Text) isNode()    {}

// Parent returns the Element currently containing this node, or nil.
func (el *Element) Parent() *Element { return el.parent }
func (t *Text) Parent() *Element     { return t.parent }

func (el *Element) setParent(p *Element) { el.parent = p }
func (t *Text) setParent(p *Element)     { t.parent = p }

// NewText returns a new, unattached Text node.
func NewText(s string) *Text {
	return &Text{Value: s}
}

// Attr gets the value of the first attribute whose name matches the
// space and local arguments. If space is the empty string, only
// attributes' local names are considered when looking for a match.
// If an attribute could not be found, the empty string is returned.
func (el *Element) Attr(space, local string) string {
	for _, v := range el.StartElement.Attr {
		if v.Name.Local != local {
			continue
		}
		if space == "" || space == v.Name.Space {
			return v.Value
		}
	}
	return ""
}

// AttrOK is like Attr, but also reports whether the attribute was
// present at all, distinguishing a declared-but-empty value from one
// that is simply absent.
func (el *Element) AttrOK(space, local string) (string, bool) {
	for _, v := range el.StartElement.Attr {
		if v.Name.Local != local {
			continue
		}
		if space == "" || space == v.Name.Space {
			return v.Value, true
		}
	}
	return "", false
}

// MustAttr is like Attr, but panics with a descriptive message
// identifying el's path if the attribute is not present.
func (el *Element) MustAttr(space, local string) string {
	for _, v := range el.StartElement.Attr {
		if v.Name.Local != local {
			continue
		}
		if space == "" || space == v.Name.Space {
			return v.Value
		}
	}
	panic(fmt.Sprintf("%s: missing required attribute %q", el.Path(), local))
}

// The JoinScope method joins two Scopes together. When resolving
// prefixes using the returned scope, the prefix list in the argument
// Scope is searched before that of the receiver Scope.
func (outer *Scope) JoinScope(inner *Scope) *Scope {
	return &Scope{append(outer.ns, inner.ns...)}
}

// Unmarshal parses the XML encoding of the Element and stores the result
// in the value pointed to by v. Unmarshal follows the same rules as
// xml.Unmarshal, but only parses the portion of the XML document
// contained by the Element.
//
// BUG(droyo): Unmarshal re-serializes the Element's Content as it was
// captured by Parse; further modifications to a tree of Elements are
// ignored by Unmarshal.
func (el *Element) Unmarshal(v interface{}) error {
	start := el.StartElement
	for _, ns := range el.ns {
		name := xml.Name{Space: "", Local: "xmlns"}
		if ns.Local != "" {
			name.Local += ":" + ns.Local
		}
		start.Attr = append(start.Attr, xml.Attr{Name: name, Value: ns.Space})
	}
	if start.Name.Space != "" {
		for i := len(el.ns) - 1; i >= 0; i-- {
			if el.ns[i].Space == start.Name.Space {
				start.Name.Space = ""
				start.Name.Local = el.ns[i].Local + ":" + start.Name.Local
				break
			}
		}
		if start.Name.Space != "" {
			return fmt.Errorf("could not find namespace prefix for %q when decoding %s",
				start.Name.Space, start.Name.Local)
		}
	}

	var buf bytes.Buffer
	e := xml.NewEncoder(&buf)

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Flush(); err != nil {
		return err
	}
	buf.Write(el.Content)
	if err := e.EncodeToken(xml.EndElement{Name: start.Name}); err != nil {
		return err
	}
	if err := e.Flush(); err != nil {
		return err
	}
	return xml.Unmarshal(buf.Bytes(), v)
}

// A Scope represents the xml namespace scope at a given position in
// the document.
type Scope struct {
	ns []xml.Name
}

// Resolve translates an XML QName (namespace-prefixed string) to an
// xml.Name with a canonicalized namespace in its Space field. If qname
// does not have a prefix, the default namespace is used. If a namespace
// prefix cannot be resolved, the returned value's Space field will be
// the unresolved prefix. Use ResolveNS to detect when a namespace
// prefix cannot be resolved.
func (scope *Scope) Resolve(qname string) xml.Name {
	name, _ := scope.ResolveNS(qname)
	return name
}

// The ResolveNS method is like Resolve, but returns false for its second
// return value if a namespace prefix cannot be resolved.
func (scope *Scope) ResolveNS(qname string) (xml.Name, bool) {
	var prefix, local string
	parts := strings.SplitN(qname, ":", 2)
	if len(parts) == 2 {
		prefix, local = parts[0], parts[1]
	} else {
		prefix, local = "", parts[0]
	}
	// xml and xmlns are reserved prefixes with fixed meanings,
	// regardless of what is (or isn't) declared in scope.
	switch prefix {
	case "xml":
		return xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: local}, true
	case "xmlns":
		return xml.Name{Space: "http://www.w3.org/2000/xmlns/", Local: local}, true
	}
	for i := len(scope.ns) - 1; i >= 0; i-- {
		if scope.ns[i].Local == prefix {
			return xml.Name{Space: scope.ns[i].Space, Local: local}, true
		}
	}
	return xml.Name{Space: prefix, Local: local}, false
}

// ResolveDefault is like Resolve, but allows for the default namespace to
// be overridden. The namespace of strings without a namespace prefix
// (known as an NCName in XML terminology) will be defaultns.
func (scope *Scope) ResolveDefault(qname, defaultns string) xml.Name {
	if defaultns == "" || strings.Contains(qname, ":") {
		return scope.Resolve(qname)
	}
	return xml.Name{Space: defaultns, Local: qname}
}

// Prefix is the inverse of Resolve. It uses the closest prefix
// defined for a namespace to create a string of the form
// prefix:local. If the namespace cannot be found, or is the
// default namespace, an unqualified name is returned.
func (scope *Scope) Prefix(name xml.Name) (qname string) {
	if name.Space == "" {
		return name.Local
	}
	for i := len(scope.ns) - 1; i >= 0; i-- {
		if scope.ns[i].Space == name.Space {
			if scope.ns[i].Local == "" {
				return name.Local
			}
			return scope.ns[i].Local + ":" + name.Local
		}
	}
	return name.Local
}

func (scope *Scope) pushNS(tag xml.StartElement) {
	var ns []xml.Name
	for _, attr := range tag.Attr {
		if attr.Name.Space == "xmlns" {
			ns = append(ns, xml.Name{Space: attr.Value, Local: attr.Name.Local})
		} else if attr.Name.Local == "xmlns" {
			ns = append(ns, xml.Name{Space: attr.Value, Local: ""})
		} else {
			continue
		}
	}
	if len(ns) > 0 {
		scope.ns = append(scope.ns, ns...)
		// Ensure that future additions to the scope create
		// a new backing array. This prevents the scope from
		// being clobbered during parsing.
		scope.ns = scope.ns[:len(scope.ns):len(scope.ns)]
	}
}

// Save some typing when scanning xml
type scanner struct {
	*xml.Decoder
	tok xml.Token
	err error
}

func (s *scanner) scan() bool {
	if s.err != nil {
		return false
	}
	s.tok, s.err = s.Token()
	return s.err == nil
}

// preserveWhitespace reports whether el is one of the elements in which
// whitespace-only text is significant and must not be stripped.
func preserveWhitespace(el *Element) bool {
	switch el.Name.Local {
	case "param", "value":
		return true
	}
	return false
}

// Parse builds a tree of Elements by reading an XML document. The
// byte slice passed to Parse is expected to be a valid XML document
// with a single root element.
//
// Text nodes that consist entirely of whitespace are dropped from the
// resulting tree, except inside <param> and <value> elements (in either
// the Relax NG or null namespace), where whitespace may be significant.
func Parse(doc []byte) (*Element, error) {
	d := xml.NewDecoder(bytes.NewReader(doc))
	sc := scanner{Decoder: d}
	root := new(Element)

	for sc.scan() {
		if start, ok := sc.tok.(xml.StartElement); ok {
			root.StartElement = start
			break
		}
	}
	if sc.err != nil {
		return nil, sc.err
	}
	if err := root.parse(&sc, doc, 0); err != nil {
		return nil, err
	}
	return root, nil
}

func (el *Element) parse(sc *scanner, data []byte, depth int) error {
	if depth > recursionLimit {
		return errDeepXML
	}
	el.pushNS(el.StartElement)

	begin := sc.InputOffset()
	end := begin
walk:
	for sc.scan() {
		switch tok := sc.tok.(type) {
		case xml.StartElement:
			child := &Element{StartElement: tok.Copy(), Scope: el.Scope}
			if err := child.parse(sc, data, depth+1); err != nil {
				return err
			}
			el.appendRaw(child)
		case xml.CharData:
			if text := strings.TrimSpace(string(tok)); text != "" || preserveWhitespace(el) {
				el.appendRaw(&Text{Value: string(tok)})
			}
		case xml.EndElement:
			if tok.Name != el.Name {
				return fmt.Errorf("expecting </%s>, got </%s>", el.Prefix(el.Name), el.Prefix(tok.Name))
			}
			el.Content = data[int(begin):int(end)]
			break walk
		}
		end = sc.InputOffset()
	}
	return sc.err
}

// appendRaw appends child without detaching it from any previous
// parent; used only during Parse, where children are freshly built.
func (el *Element) appendRaw(child Node) {
	child.setParent(el)
	el.Children = append(el.Children, child)
}

// walkFunc is the type of the function called for each of an Element's
// descendant Elements.
type walkFunc func(*Element)

func (el *Element) walk(fn walkFunc) {
	for _, c := range el.Children {
		if e, ok := c.(*Element); ok {
			fn(e)
		}
	}
}

// SearchFunc traverses the Element tree in depth-first order and returns
// a slice of Elements for which the function fn returns true. The root
// itself is not tested. SearchFunc also searches the children of Elements
// that match, so the result may hold both an Element and some of its
// descendants.
func (root *Element) SearchFunc(fn func(*Element) bool) []*Element {
	var results []*Element
	var search func(el *Element)

	search = func(el *Element) {
		if fn(el) {
			results = append(results, el)
		}
		el.walk(search)
	}
	root.walk(search)
	return results
}

// Search searches the Element tree for Elements with an xml tag
// matching the name and xml namespace. If space is the empty string,
// any namespace is matched.
func (root *Element) Search(space, local string) []*Element {
	return root.SearchFunc(func(el *Element) bool {
		if local != el.Name.Local {
			return false
		}
		return space == "" || space == el.Name.Space
	})
}

// Flatten returns every Element in the tree rooted at root, including
// root itself, in depth-first document order.
func (root *Element) Flatten() []*Element {
	result := []*Element{root}
	root.walk(func(el *Element) {
		result = append(result, el.Flatten()...)
	})
	return result
}

// Text returns the concatenation of all descendant Text node values, in
// document order.
func (el *Element) Text() string {
	var buf strings.Builder
	for _, c := range el.Children {
		switch n := c.(type) {
		case *Text:
			buf.WriteString(n.Value)
		case *Element:
			buf.WriteString(n.Text())
		}
	}
	return buf.String()
}

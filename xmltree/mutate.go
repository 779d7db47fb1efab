package xmltree

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// NewElement returns a new, unattached Element with the given
// namespace and local name, and no attributes, scope or children. It
// is the usual way to construct synthetic elements from a rewrite pass
// (see package simplify), which then attaches them with Append,
// Prepend, InsertAt or ReplaceChildWith.
func NewElement(space, local string) *Element {
	return &Element{
		StartElement: xml.StartElement{Name: xml.Name{Space: space, Local: local}},
	}
}

// SetParent detaches node from whatever Element currently contains it
// (if any) and marks newParent as its container. SetParent does not
// itself add node to newParent.Children; it is called by the mutation
// methods below, which maintain both the parent pointer and the
// Children slice together.
//
// Reparenting a node that already has a parent is the normal case: the
// node is silently removed from its previous parent's Children first.
// Calling SetParent to make an Element its own ancestor is a
// programming error. When built with the rngdebug build tag, this is
// detected and panics; in normal builds the caller is trusted not to
// construct such a cycle.
func (el *Element) SetParent(newParent *Element) {
	setParent(el, newParent)
}

func setParent(node Node, newParent *Element) {
	if old := node.Parent(); old != nil && old != newParent {
		old.removeNode(node)
	}
	assertNoCycle(node, newParent)
	node.setParent(newParent)
	if e, ok := node.(*Element); ok {
		e.path = ""
		// A freshly synthesized Element (as built by NewElement for
		// a rewrite pass) has never seen an xmlns declaration of its
		// own; it inherits its new parent's fully accumulated scope,
		// mirroring what Parse does for every element it reads.
		if newParent != nil && len(e.ns) == 0 {
			e.Scope = newParent.Scope
		}
	}
}

// removeNode deletes the first occurrence of node from el.Children by
// identity, without touching node's parent pointer.
func (el *Element) removeNode(node Node) {
	for i, c := range el.Children {
		if c == node {
			el.Children = append(el.Children[:i], el.Children[i+1:]...)
			el.invalidatePath()
			return
		}
	}
}

func (el *Element) invalidatePath() {
	el.path = ""
	el.walk(func(c *Element) { c.invalidatePath() })
}

// Append adds one or more children to the end of el's Children list.
// Any child already attached elsewhere is first removed from its
// previous parent.
func (el *Element) Append(children ...Node) {
	for _, c := range children {
		setParent(c, el)
		el.Children = append(el.Children, c)
	}
	el.invalidatePath()
}

// Prepend adds one or more children to the beginning of el's Children
// list, preserving their relative order.
func (el *Element) Prepend(children ...Node) {
	for _, c := range children {
		setParent(c, el)
	}
	el.Children = append(append([]Node{}, children...), el.Children...)
	el.invalidatePath()
}

// InsertAt inserts children at position i in el's Children list. It
// panics if i is out of range (0 <= i <= len(el.Children)).
func (el *Element) InsertAt(i int, children ...Node) {
	if i < 0 || i > len(el.Children) {
		panic(fmt.Sprintf("xmltree: InsertAt: index %d out of range [0,%d]", i, len(el.Children)))
	}
	for _, c := range children {
		setParent(c, el)
	}
	tail := append([]Node{}, el.Children[i:]...)
	el.Children = append(el.Children[:i], append(children, tail...)...)
	el.invalidatePath()
}

// RemoveChild removes the first occurrence of child from el's Children,
// by identity. It is a no-op if child is not a direct child of el.
func (el *Element) RemoveChild(child Node) {
	for i, c := range el.Children {
		if c == child {
			el.RemoveChildAt(i)
			return
		}
	}
}

// RemoveChildAt removes the child at index i. It panics if i is out of
// range.
func (el *Element) RemoveChildAt(i int) {
	if i < 0 || i >= len(el.Children) {
		panic(fmt.Sprintf("xmltree: RemoveChildAt: index %d out of range [0,%d)", i, len(el.Children)))
	}
	child := el.Children[i]
	child.setParent(nil)
	el.Children = append(el.Children[:i], el.Children[i+1:]...)
	el.invalidatePath()
}

// ReplaceChildWith replaces the first occurrence of old (by identity)
// with repl. It is a no-op if old is not a direct child of el.
func (el *Element) ReplaceChildWith(old, repl Node) {
	for i, c := range el.Children {
		if c == old {
			old.setParent(nil)
			setParent(repl, el)
			el.Children[i] = repl
			el.invalidatePath()
			return
		}
	}
}

// Empty removes all children of el, detaching each of them.
func (el *Element) Empty() {
	for _, c := range el.Children {
		c.setParent(nil)
	}
	el.Children = nil
	el.invalidatePath()
}

// Clone returns a deep copy of the subtree rooted at el. The clone
// shares no structure with the original: every Element and Text node is
// freshly allocated, and the clone's root has no parent.
func (el *Element) Clone() *Element {
	clone := &Element{
		StartElement: el.StartElement.Copy(),
		Scope:        el.Scope,
	}
	for _, c := range el.Children {
		switch n := c.(type) {
		case *Element:
			child := n.Clone()
			setParent(child, clone)
			clone.Children = append(clone.Children, child)
		case *Text:
			child := &Text{Value: n.Value}
			setParent(child, clone)
			clone.Children = append(clone.Children, child)
		}
	}
	return clone
}

// SetAttribute sets the value of the attribute named local in the space
// namespace, adding it if not already present. SetAttribute rejects
// attribute local names containing a colon; use a namespace-qualified
// call instead.
func (el *Element) SetAttribute(space, local, value string) error {
	if strings.Contains(local, ":") {
		return fmt.Errorf("xmltree: SetAttribute: invalid local name %q", local)
	}
	for i, a := range el.StartElement.Attr {
		if a.Name.Local != local {
			continue
		}
		if space == "" || a.Name.Space == space {
			el.StartElement.Attr[i].Value = value
			return nil
		}
	}
	el.StartElement.Attr = append(el.StartElement.Attr, xml.Attr{
		Name:  xml.Name{Space: space, Local: local},
		Value: value,
	})
	return nil
}

// SetXmlns declares value as the default namespace for el, equivalent
// to setting an unprefixed xmlns attribute.
func (el *Element) SetXmlns(value string) {
	el.SetAttribute("xmlns", "", value)
	el.pushNS(el.StartElement)
}

// RemoveAttribute deletes the first attribute named local in the space
// namespace. It is a no-op if no such attribute is present.
func (el *Element) RemoveAttribute(space, local string) {
	attrs := el.StartElement.Attr
	for i, a := range attrs {
		if a.Name.Local != local {
			continue
		}
		if space != "" && a.Name.Space != space {
			continue
		}
		el.StartElement.Attr = append(attrs[:i:i], attrs[i+1:]...)
		return
	}
}

// Attributes returns the element's attributes in document order.
func (el *Element) Attributes() []xml.Attr {
	return el.StartElement.Attr
}

// Path returns a stable, XPath-like string describing el's location
// from the document root, of the form /a/b[@name='x']/c. The
// "[@name=...]" predicate is included when the element carries a name
// attribute, or has a child <name> element whose text supplies the
// name. The returned value is memoized and recomputed only after el or
// one of its ancestors is reparented.
func (el *Element) Path() string {
	if el.path != "" {
		return el.path
	}
	var segs []string
	for n := el; n != nil; n = n.parent {
		segs = append([]string{n.pathSegment()}, segs...)
	}
	el.path = "/" + strings.Join(segs, "/")
	return el.path
}

func (el *Element) pathSegment() string {
	name := el.Name.Local
	if attr := el.Attr("", "name"); attr != "" {
		return fmt.Sprintf("%s[@name='%s']", name, attr)
	}
	for _, c := range el.Children {
		if child, ok := c.(*Element); ok && child.Name.Local == "name" {
			if text := strings.TrimSpace(child.Text()); text != "" {
				return fmt.Sprintf("%s[@name='%s']", name, text)
			}
		}
	}
	return name
}

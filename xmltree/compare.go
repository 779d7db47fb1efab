package xmltree

import (
	"encoding/xml"
	"sort"
	"strings"
)

// Equal returns true if two xmltree.Elements are structurally equal,
// ignoring differences in whitespace, sub-element order, and namespace
// prefixes. Equal is used by the simplifier's tests to check the
// idempotence invariant: simplify(simplify(S)) must be structurally
// equal to simplify(S).
func Equal(a, b *Element) bool {
	return equal(a, b, 0)
}

type byName []Node

func (l byName) Len() int { return len(l) }
func (l byName) Less(i, j int) bool {
	return sortKey(l[i]) < sortKey(l[j])
}
func (l byName) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

func sortKey(n Node) string {
	switch v := n.(type) {
	case *Element:
		return "\x01" + v.Name.Space + "\x00" + v.Name.Local
	case *Text:
		return "\x00" + v.Value
	}
	return ""
}

func equal(a, b *Element, depth int) bool {
	const maxDepth = 1000
	if depth > maxDepth {
		return false
	}
	if !equalElement(a, b) {
		return false
	}
	achild := elementChildren(a)
	bchild := elementChildren(b)
	if len(achild) != len(bchild) {
		return false
	}
	if strings.TrimSpace(a.Text()) != strings.TrimSpace(b.Text()) {
		return false
	}
	if len(achild) == 0 {
		return true
	}
	sort.Sort(byName(achild))
	sort.Sort(byName(bchild))
	for i := range achild {
		ae, aok := achild[i].(*Element)
		be, bok := bchild[i].(*Element)
		if aok != bok {
			return false
		}
		if aok && !equal(ae, be, depth+1) {
			return false
		}
	}
	return true
}

func elementChildren(el *Element) []Node {
	var result []Node
	for _, c := range el.Children {
		if _, ok := c.(*Element); ok {
			result = append(result, c)
		}
	}
	return result
}

func equalElement(a, b *Element) bool {
	if a.Name != b.Name {
		return false
	}
	attrs := make(map[xml.Name]string)
	for _, attr := range a.StartElement.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		attrs[attr.Name] = attr.Value
	}

	for _, attr := range b.StartElement.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		if v, ok := attrs[attr.Name]; !ok || v != attr.Value {
			return false
		}
	}
	return true
}

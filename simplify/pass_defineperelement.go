package simplify

import (
	"fmt"

	"aqwari.net/relaxng/xmltree"
)

// passDefinePerElement implements step 16, the last of the sixteen.
// Every <element> not already the sole child of a <define> is lifted
// into a fresh <define name="__<local>-elt-<K>">, appended to the
// (now unique, per step 15) top-level grammar, with a <ref> to it left
// in the element's original position. K is the element's 1-based
// position in document order among all <element> nodes in the tree:
// XPath's preceding axis already excludes ancestors, so adding the
// ancestor count back in, as the specification's formula for K does,
// simply recovers plain preorder rank.
//
// Once every element has a <define> of its own, any remaining
// <define> whose body contains no <element> at all is a pure pattern
// with nothing left to name for its own sake; every <ref> to it is
// replaced by a fresh copy of its body, and the define is dropped.
func passDefinePerElement(cfg *Config, root *xmltree.Element) *xmltree.Element {
	top := root
	elements := elementsNamed(root, "element")
	for k, el := range elements {
		if isSoleChildOfDefine(el) {
			continue
		}
		factorOutElement(top, el, k+1)
	}
	inlinePurePatternDefines(top)
	return root
}

func factorOutElement(top *xmltree.Element, el *xmltree.Element, k int) {
	name := fmt.Sprintf("__%s-elt-%d", el.Name.Local, k)
	parent := el.Parent()
	def := newElement("define")
	def.SetAttribute("", "name", name)
	ref := newElement("ref")
	ref.SetAttribute("", "name", name)
	parent.ReplaceChildWith(el, ref)
	def.Append(el)
	top.Append(def)
}

// isSoleChildOfDefine reports whether el is already exactly the one
// element child of a <define>, the form step 16 leaves every <element>
// in.
func isSoleChildOfDefine(el *xmltree.Element) bool {
	parent := el.Parent()
	if parent == nil || !isRNG(parent, "define") {
		return false
	}
	return len(elementChildren(parent)) == 1
}

// elementsNamed returns every Relax NG structure element named local
// in root's subtree, in document order.
func elementsNamed(root *xmltree.Element, local string) []*xmltree.Element {
	var result []*xmltree.Element
	for _, el := range root.Flatten() {
		if isRNG(el, local) {
			result = append(result, el)
		}
	}
	return result
}

// containsElement reports whether el's subtree (including el itself)
// contains any <element>.
func containsElement(el *xmltree.Element) bool {
	for _, c := range el.Flatten() {
		if isRNG(c, "element") {
			return true
		}
	}
	return false
}

// inlinePurePatternDefines removes every <define> in top whose body
// has no <element> anywhere in it, replacing each <ref> that pointed
// to it with a fresh clone of its body. Definitions may reference other
// pure-pattern definitions, so this proceeds in rounds until no
// qualifying define remains (bounded, since each round strictly
// shrinks the set of pure-pattern defines in a well-formed grammar: a
// cycle of refs with no <element> anywhere in it describes an infinite
// pattern, which cannot arise from a valid schema).
func inlinePurePatternDefines(top *xmltree.Element) {
	for round := 0; round < len(elementChildren(top))+1; round++ {
		defines := elementsNamed(top, "define")
		var target *xmltree.Element
		for _, def := range defines {
			if def.Parent() != top {
				continue
			}
			if !containsElement(def) {
				target = def
				break
			}
		}
		if target == nil {
			return
		}
		name := target.Attr("", "name")
		body := elementChildren(target)
		for _, el := range elementsNamed(top, "ref") {
			if el.Attr("", "name") != name {
				continue
			}
			parent := el.Parent()
			if parent == nil {
				continue
			}
			if len(body) == 0 {
				parent.ReplaceChildWith(el, newElement("notAllowed"))
				continue
			}
			parent.ReplaceChildWith(el, body[0].Clone())
		}
		top.RemoveChild(target)
	}
}

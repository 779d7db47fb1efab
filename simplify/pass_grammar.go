package simplify

import (
	"fmt"

	"aqwari.net/relaxng/xmltree"
)

// passGrammar implements step 15: grammar unification. Every <define>
// anywhere in the tree, however deeply nested its owning <grammar> is,
// ends up a direct child of the single remaining top-level <grammar>,
// with a name made unique by appending "-gr-<N>", N being the owning
// grammar's 1-based position in document order. <ref> targets are
// renamed along with the defines they point to; <parentRef> becomes a
// <ref> pointed at the renamed definition in the immediately enclosing
// grammar.
//
// The renaming happens only when the tree holds more than one
// <grammar>. With a single grammar, every <define> and <ref> keeps its
// original name and no "-gr-<N>" suffix is added.
//
// If the document element is not itself a <grammar> (a bare pattern,
// with no refs to resolve), one is synthesized to hold it as its sole
// <start>, matching how a lone pattern is treated as implicitly
// grammar-wrapped by every other stage of this pipeline.
func passGrammar(cfg *Config, root *xmltree.Element) *xmltree.Element {
	if !isRNG(root, "grammar") {
		root = wrapInGrammar(root)
	}

	grammars := grammarsInOrder(root)
	if len(grammars) <= 1 {
		return root
	}

	renameByGrammar := make(map[*xmltree.Element]map[string]string, len(grammars))
	indexByGrammar := make(map[*xmltree.Element]int, len(grammars))
	for i, g := range grammars {
		n := i + 1
		indexByGrammar[g] = n
		rename := make(map[string]string)
		for _, def := range elementChildren(g) {
			if isRNG(def, "define") {
				old := def.Attr("", "name")
				rename[old] = fmt.Sprintf("%s-gr-%d", old, n)
			}
		}
		renameByGrammar[g] = rename
	}

	// Rewrite every <define name>, <ref name> and <parentRef name> in
	// place before any hoisting happens, while every element's nearest
	// enclosing grammar is still reachable by walking parents.
	for _, el := range root.Flatten() {
		switch {
		case isRNG(el, "define"):
			g := enclosingGrammar(el)
			if new, ok := renameByGrammar[g][el.Attr("", "name")]; ok {
				el.SetAttribute("", "name", new)
			}
		case isRNG(el, "ref"):
			g := enclosingGrammar(el)
			if new, ok := renameByGrammar[g][el.Attr("", "name")]; ok {
				el.SetAttribute("", "name", new)
			}
		case isRNG(el, "parentRef"):
			g := enclosingGrammar(el)
			parent := enclosingGrammar(g.Parent())
			if parent != nil {
				if new, ok := renameByGrammar[parent][el.Attr("", "name")]; ok {
					el.SetAttribute("", "name", new)
				}
			}
			el.StartElement.Name.Local = "ref"
		}
	}

	top := grammars[0]
	// Hoist bottom-up so a grammar nested inside another nested grammar
	// has already had its defines moved to top, and been replaced by a
	// <ref> in its parent, by the time the parent's own defines move to
	// top.
	for i := len(grammars) - 1; i >= 1; i-- {
		g := grammars[i]
		n := indexByGrammar[g]
		start := findStart(g)
		synthName := fmt.Sprintf("start-gr-%d", n)
		def := newElement("define")
		def.SetAttribute("", "name", synthName)
		if start != nil {
			for _, c := range elementChildren(start) {
				c.SetParent(nil)
				def.Append(c)
			}
		}
		top.Append(def)
		for _, def := range elementChildren(g) {
			if isRNG(def, "define") {
				def.SetParent(nil)
				top.Append(def)
			}
		}
		ref := newElement("ref")
		ref.SetAttribute("", "name", synthName)
		parent := g.Parent()
		if parent != nil {
			parent.ReplaceChildWith(g, ref)
		}
	}
	return root
}

func wrapInGrammar(root *xmltree.Element) *xmltree.Element {
	grammar := newElement("grammar")
	start := newElement("start")
	grammar.Append(start)
	start.Append(root)
	return grammar
}

// grammarsInOrder returns every <grammar> element in root's subtree, in
// document order, including root itself if it is one.
func grammarsInOrder(root *xmltree.Element) []*xmltree.Element {
	var result []*xmltree.Element
	for _, el := range root.Flatten() {
		if isRNG(el, "grammar") {
			result = append(result, el)
		}
	}
	return result
}

// enclosingGrammar returns the nearest ancestor of el (or el itself)
// that is a <grammar>, or nil if none exists.
func enclosingGrammar(el *xmltree.Element) *xmltree.Element {
	for n := el; n != nil; n = n.Parent() {
		if isRNG(n, "grammar") {
			return n
		}
	}
	return nil
}

// findStart returns g's direct-child <start> element, or nil.
func findStart(g *xmltree.Element) *xmltree.Element {
	for _, c := range elementChildren(g) {
		if isRNG(c, "start") {
			return c
		}
	}
	return nil
}

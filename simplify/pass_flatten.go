package simplify

import (
	"aqwari.net/relaxng/rngerr"
	"aqwari.net/relaxng/xmltree"
)

// passFlatten implements step 8: every <div> wrapper is removed, its
// children hoisted into its parent at the position the div occupied.
func passFlatten(cfg *Config, root *xmltree.Element) *xmltree.Element {
	if isRNG(root, "div") {
		root = promoteDivRoot(root)
	}
	for {
		divs := root.Search(StructureNS, "div")
		if len(divs) == 0 {
			break
		}
		for _, div := range divs {
			parent := div.Parent()
			if parent == nil {
				continue
			}
			children := elementOrTextChildren(div)
			idx := indexOfChild(parent, div)
			parent.RemoveChildAt(idx)
			parent.InsertAt(idx, children...)
		}
	}
	return root
}

// promoteDivRoot handles a document element of <div>, which arises
// when passInclude's synthesized wrapper div is itself fed back through
// Simplify as a whole document (never for a well-formed standalone
// schema, whose document element may not be div, but defensively
// correct for either case): its sole element child becomes the new
// root.
func promoteDivRoot(div *xmltree.Element) *xmltree.Element {
	children := elementChildren(div)
	if len(children) != 1 {
		rngerrStopAmbiguousDivRoot(div)
	}
	only := children[0]
	div.RemoveChild(only)
	return only
}

func rngerrStopAmbiguousDivRoot(div *xmltree.Element) {
	rngerr.Stop(rngerr.SchemaStructure, div.Path(), "document element <div> must have exactly one pattern child")
}

func elementOrTextChildren(el *xmltree.Element) []xmltree.Node {
	return append([]xmltree.Node{}, el.Children...)
}

func indexOfChild(parent *xmltree.Element, child xmltree.Node) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return -1
}

package simplify

import "aqwari.net/relaxng/xmltree"

// passEmpty implements step 14, the empty-propagation analogue of step
// 13:
//
//	group(empty, X)      -> X
//	interleave(empty, X) -> X
//	oneOrMore(empty)     -> empty
func passEmpty(cfg *Config, root *xmltree.Element) *xmltree.Element {
	return collapseEmpty(root)
}

func collapseEmpty(el *xmltree.Element) *xmltree.Element {
	for _, c := range elementChildren(el) {
		if rewritten := collapseEmpty(c); rewritten != c {
			el.ReplaceChildWith(c, rewritten)
		}
	}
	children := elementChildren(el)
	switch el.Name.Local {
	case "group", "interleave":
		if len(children) == 2 {
			if isRNG(children[0], "empty") {
				children[1].SetParent(nil)
				return children[1]
			}
			if isRNG(children[1], "empty") {
				children[0].SetParent(nil)
				return children[0]
			}
		}
	case "oneOrMore":
		if len(children) == 1 && isRNG(children[0], "empty") {
			return newElement("empty")
		}
	}
	return el
}

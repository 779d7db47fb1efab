package simplify

import "aqwari.net/relaxng/xmltree"

// passNotAllowed implements step 13: any pattern containing notAllowed
// as a required child collapses, bottom-up, per the Relax NG
// specification's table:
//
//	group(notAllowed, X)      -> notAllowed
//	interleave(notAllowed, X) -> notAllowed
//	choice(notAllowed, X)     -> X
//	oneOrMore(notAllowed)     -> notAllowed
//	attribute(NC, notAllowed) -> notAllowed
//	list(notAllowed)          -> notAllowed
//
// group/interleave/choice are symmetric: the rule applies regardless
// of which of the two (binarized, per step 9) children is notAllowed.
func passNotAllowed(cfg *Config, root *xmltree.Element) *xmltree.Element {
	return collapseNotAllowed(root)
}

func collapseNotAllowed(el *xmltree.Element) *xmltree.Element {
	for _, c := range elementChildren(el) {
		if rewritten := collapseNotAllowed(c); rewritten != c {
			el.ReplaceChildWith(c, rewritten)
		}
	}
	children := elementChildren(el)
	switch el.Name.Local {
	case "group", "interleave":
		if len(children) == 2 {
			if isRNG(children[0], "notAllowed") || isRNG(children[1], "notAllowed") {
				return newElement("notAllowed")
			}
		}
	case "choice":
		if len(children) == 2 {
			if isRNG(children[0], "notAllowed") {
				children[1].SetParent(nil)
				return children[1]
			}
			if isRNG(children[1], "notAllowed") {
				children[0].SetParent(nil)
				return children[0]
			}
		}
	case "oneOrMore", "list":
		if len(children) == 1 && isRNG(children[0], "notAllowed") {
			return newElement("notAllowed")
		}
	case "attribute":
		if len(children) == 2 && isRNG(children[1], "notAllowed") {
			return newElement("notAllowed")
		}
	}
	return el
}

package simplify

import "aqwari.net/relaxng/xmltree"

var binaryOps = map[string]bool{"group": true, "interleave": true, "choice": true}

// passBinary implements step 9: every n-ary group/interleave/choice is
// rewritten into a right-associated chain of two-child operators of the
// same kind, e.g. group(a,b,c) becomes group(a, group(b,c)). A
// single-child group/interleave/choice collapses to that child.
func passBinary(cfg *Config, root *xmltree.Element) *xmltree.Element {
	return binarize(root)
}

// binarize returns the binarized form of el, recursing into children
// first so the rewrite works bottom-up.
func binarize(el *xmltree.Element) *xmltree.Element {
	for _, c := range elementChildren(el) {
		if rewritten := binarize(c); rewritten != c {
			el.ReplaceChildWith(c, rewritten)
		}
	}
	if !binaryOps[el.Name.Local] || el.Name.Space != StructureNS {
		return el
	}
	children := elementChildren(el)
	switch len(children) {
	case 0:
		return el
	case 1:
		only := children[0]
		only.SetParent(nil)
		return only
	default:
		return rightAssociate(el.Name.Local, children)
	}
}

// rightAssociate builds group(a, group(b, group(c, d))) from [a,b,c,d].
func rightAssociate(local string, children []*xmltree.Element) *xmltree.Element {
	for _, c := range children {
		c.SetParent(nil)
	}
	acc := children[len(children)-1]
	for i := len(children) - 2; i >= 0; i-- {
		node := newElement(local)
		node.Append(children[i], acc)
		acc = node
	}
	return acc
}

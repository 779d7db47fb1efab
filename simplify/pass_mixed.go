package simplify

import "aqwari.net/relaxng/xmltree"

// passMixed implements step 10: <mixed>p</mixed> becomes
// <interleave><text/>p</interleave>.
func passMixed(cfg *Config, root *xmltree.Element) *xmltree.Element {
	if isRNG(root, "mixed") {
		root = rewriteMixed(root)
	}
	for _, el := range root.Flatten() {
		for _, c := range elementChildren(el) {
			if isRNG(c, "mixed") {
				el.ReplaceChildWith(c, rewriteMixed(c))
			}
		}
	}
	return root
}

func rewriteMixed(mixed *xmltree.Element) *xmltree.Element {
	body := elementChildren(mixed)[0]
	body.SetParent(nil)
	interleave := newElement("interleave")
	interleave.Append(newElement("text"), body)
	return interleave
}

package simplify

import "aqwari.net/relaxng/xmltree"

// passNsPropagation implements step 6: the ns attribute established (or
// explicitly authored) on an ancestor propagates down to every <name>,
// <nsName> and <value> that does not already carry its own.
func passNsPropagation(cfg *Config, root *xmltree.Element) *xmltree.Element {
	propagateNS(root, "")
	return root
}

func propagateNS(el *xmltree.Element, inherited string) {
	ns := inherited
	if v, ok := el.AttrOK("", "ns"); ok {
		ns = v
	}
	switch {
	case isRNG(el, "name"), isRNG(el, "nsName"), isRNG(el, "value"):
		el.SetAttribute("", "ns", ns)
	}
	for _, c := range elementChildren(el) {
		propagateNS(c, ns)
	}
}

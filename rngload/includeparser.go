package rngload

import "aqwari.net/relaxng/xmltree"

// HasIncludeOrExternalRef reports whether root's tree contains an
// <include> or <externalRef> element anywhere. It is a cheap
// short-circuiting scan used by the simplifier to skip steps 3 and 4
// entirely on schemas that compose nothing, grounded on the teacher's
// xsd.Imports short-circuiting Search over <import>/<include>.
func HasIncludeOrExternalRef(root *xmltree.Element) bool {
	found := false
	var scan func(el *xmltree.Element) bool
	scan = func(el *xmltree.Element) bool {
		if el.Name.Space == StructureNS && (el.Name.Local == "include" || el.Name.Local == "externalRef") {
			found = true
			return false
		}
		return true
	}
	// SearchFunc cannot itself short-circuit, so we stop descending
	// as soon as the first match is found by walking by hand.
	var walk func(el *xmltree.Element)
	walk = func(el *xmltree.Element) {
		if found {
			return
		}
		if !scan(el) {
			return
		}
		for _, c := range el.Children {
			if child, ok := c.(*xmltree.Element); ok {
				walk(child)
				if found {
					return
				}
			}
		}
	}
	walk(root)
	return found
}

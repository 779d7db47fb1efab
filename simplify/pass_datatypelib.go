package simplify

import "aqwari.net/relaxng/xmltree"

// passDatatypeLibrary implements step 2: every element inherits a
// resolved datatypeLibrary from its nearest ancestor that declares one,
// defaulting to the built-in library when none is in scope. Once every
// element has been stamped with its resolved value, the attribute is
// stripped from everywhere except <data> and <value>, the only elements
// that actually consult it.
//
// Propagation never crosses an <externalRef> boundary: passExternalRef
// stamps datatypeLibrary="" on the root of an inlined external schema
// before recursing into it, so that boundary is already explicit by the
// time this pass would otherwise be tempted to reach across it.
func passDatatypeLibrary(cfg *Config, root *xmltree.Element) *xmltree.Element {
	propagateDatatypeLibrary(root, BuiltinDatatypeLibrary)
	walkElements(root, func(el *xmltree.Element) {
		if !isRNG(el, "data") && !isRNG(el, "value") {
			removeAttr(el, "", "datatypeLibrary")
		}
	})
	return root
}

func propagateDatatypeLibrary(el *xmltree.Element, inherited string) {
	lib := inherited
	if v, ok := el.AttrOK("", "datatypeLibrary"); ok {
		lib = v
	}
	el.SetAttribute("", "datatypeLibrary", lib)
	for _, c := range elementChildren(el) {
		propagateDatatypeLibrary(c, lib)
	}
}

// removeAttr deletes the named attribute from el, if present.
func removeAttr(el *xmltree.Element, space, local string) {
	el.RemoveAttribute(space, local)
}

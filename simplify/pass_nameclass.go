package simplify

import "aqwari.net/relaxng/xmltree"

// passNameClass implements step 5: the shorthand <element name="X">...
// and <attribute name="X".../> forms are rewritten to their full
// <element><name>X</name>...</element> form, and every <element>/
// <attribute> is given an explicit ns attribute: an element inherits
// its nearest ancestor's ns (an attribute never does — attributes are
// unqualified by default, so one with no explicit ns gets ns="").
//
// Step 6 (passNsPropagation) is what actually pushes these resolved ns
// values down onto the name-class elements (name, nsName, value); this
// step only establishes them on element/attribute itself.
func passNameClass(cfg *Config, root *xmltree.Element) *xmltree.Element {
	normalizeNameClass(root, "")
	return root
}

func normalizeNameClass(el *xmltree.Element, ancestorNS string) {
	ns := ancestorNS
	switch {
	case isRNG(el, "element"):
		if v, ok := el.AttrOK("", "ns"); ok {
			ns = v
		}
		el.SetAttribute("", "ns", ns)
		expandNameShorthand(el, ns)
	case isRNG(el, "attribute"):
		if _, ok := el.AttrOK("", "ns"); !ok {
			el.SetAttribute("", "ns", "")
		}
		expandNameShorthand(el, el.Attr("", "ns"))
		// An attribute with nothing but a name class has an implicit
		// <text/> content pattern.
		if len(elementChildren(el)) == 1 {
			el.Append(newElement("text"))
		}
	}
	for _, c := range elementChildren(el) {
		normalizeNameClass(c, ns)
	}
}

// expandNameShorthand converts an element/attribute's name="X" shorthand
// attribute into an explicit <name ns="...">X</name> child, inserted as
// the first child.
func expandNameShorthand(el *xmltree.Element, ns string) {
	name, ok := el.AttrOK("", "name")
	if !ok {
		return
	}
	el.RemoveAttribute("", "name")
	nameEl := newElement("name")
	nameEl.SetAttribute("", "ns", ns)
	nameEl.Append(xmltree.NewText(name))
	el.InsertAt(0, nameEl)
}

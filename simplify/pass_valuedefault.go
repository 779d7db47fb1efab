package simplify

import "aqwari.net/relaxng/xmltree"

// dtdCompatibilityNS is the DTD Compatibility annotation namespace used
// for the a:defaultValue attribute on <attribute> elements; it carries
// no meaning for the pattern algebra and is stripped during
// simplification.
const dtdCompatibilityNS = "http://relaxng.org/ns/compatibility/annotations/1.0"

// passValueDefault implements step 12: the DTD-compatibility
// a:defaultValue annotation is removed from <attribute> elements, and
// every <value> with no explicit type attribute defaults to
// type="token" in the built-in datatype library.
func passValueDefault(cfg *Config, root *xmltree.Element) *xmltree.Element {
	walkElements(root, func(el *xmltree.Element) {
		if isRNG(el, "attribute") {
			el.RemoveAttribute(dtdCompatibilityNS, "defaultValue")
		}
		if isRNG(el, "value") {
			if _, ok := el.AttrOK("", "type"); !ok {
				el.SetAttribute("", "type", "token")
			}
		}
	})
	return root
}

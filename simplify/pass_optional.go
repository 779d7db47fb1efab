package simplify

import "aqwari.net/relaxng/xmltree"

// passOptional implements step 11:
//
//	<optional>p</optional>    -> <choice><empty/>p</choice>
//	<zeroOrMore>p</zeroOrMore> -> <choice><oneOrMore>p</oneOrMore><empty/></choice>
func passOptional(cfg *Config, root *xmltree.Element) *xmltree.Element {
	if rewritten := rewriteOptional(root); rewritten != root {
		root = rewritten
	}
	for _, el := range root.Flatten() {
		for _, c := range elementChildren(el) {
			if rewritten := rewriteOptional(c); rewritten != c {
				el.ReplaceChildWith(c, rewritten)
			}
		}
	}
	return root
}

func rewriteOptional(el *xmltree.Element) *xmltree.Element {
	switch {
	case isRNG(el, "optional"):
		body := elementChildren(el)[0]
		body.SetParent(nil)
		choice := newElement("choice")
		choice.Append(newElement("empty"), body)
		return choice
	case isRNG(el, "zeroOrMore"):
		body := elementChildren(el)[0]
		body.SetParent(nil)
		oneOrMore := newElement("oneOrMore")
		oneOrMore.Append(body)
		choice := newElement("choice")
		choice.Append(oneOrMore, newElement("empty"))
		return choice
	default:
		return el
	}
}

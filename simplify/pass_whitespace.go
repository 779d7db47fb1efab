package simplify

import (
	"net/url"
	"strings"

	"aqwari.net/relaxng/xmltree"
)

// passWhitespace implements step 1: normalize whitespace in `name` and
// `href`-bearing attributes/text, and fold xml:base onto every element
// that carries an href so its value is a fully resolved absolute URI.
func passWhitespace(cfg *Config, root *xmltree.Element) *xmltree.Element {
	walkElements(root, func(el *xmltree.Element) {
		if name := el.Attr("", "name"); name != "" {
			el.SetAttribute("", "name", strings.TrimSpace(name))
		}
		if isRNG(el, "name") {
			setText(el, strings.TrimSpace(el.Text()))
		}
		if href := el.Attr("", "href"); href != "" {
			el.SetAttribute("", "href", resolveAgainstBase(el, strings.TrimSpace(href)))
		}
	})
	return root
}

// resolveAgainstBase resolves href against the nearest xml:base in
// scope (walking up from el), producing a fully resolved URI string.
// If no xml:base is found or parsing fails, href is returned unchanged.
func resolveAgainstBase(el *xmltree.Element, href string) string {
	base := ""
	for n := el; n != nil; n = n.Parent() {
		if b := n.Attr("http://www.w3.org/XML/1998/namespace", "base"); b != "" {
			base = b
			break
		}
	}
	if base == "" {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// setText replaces el's children with a single Text node carrying s
// (or removes all children if s is empty).
func setText(el *xmltree.Element, s string) {
	el.Empty()
	if s != "" {
		el.Append(xmltree.NewText(s))
	}
}

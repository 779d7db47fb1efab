package simplify

import (
	"aqwari.net/relaxng/rngerr"
	"aqwari.net/relaxng/xmltree"
)

// passExternalRef implements step 3: every <externalRef href="..."/> is
// replaced by the document element of the schema it names. The fetched
// schema is itself simplified through steps 1-2 (and has any
// externalRefs of its own resolved first, so inlining is always of an
// already-fully-resolved subtree), and its root is stamped with
// datatypeLibrary="" before that happens if it does not already carry
// one, so that datatypeLibrary propagation can never reach back across
// the file boundary into the document that contained the externalRef.
func passExternalRef(cfg *Config, root *xmltree.Element) *xmltree.Element {
	if isRNG(root, "externalRef") {
		return inlineExternalRef(cfg, root)
	}
	for _, el := range root.Flatten() {
		for _, c := range elementChildren(el) {
			if !isRNG(c, "externalRef") {
				continue
			}
			el.ReplaceChildWith(c, inlineExternalRef(cfg, c))
		}
	}
	return root
}

func inlineExternalRef(cfg *Config, ref *xmltree.Element) *xmltree.Element {
	href := ref.Attr("", "href")
	if href == "" {
		rngerr.Stop(rngerr.SchemaStructure, ref.Path(), "externalRef missing href")
	}
	cached, err := cfg.loader.Fetch(href)
	if err != nil {
		rngerr.Stop(rngerr.ResourceLoad, ref.Path(), "%v", err)
	}
	// The loader caches one tree per location; clone it before mutating
	// or splicing it in, so two externalRefs to the same href don't end
	// up sharing nodes (and so the cache stays pristine for reuse).
	fetched := cached.Clone()

	if _, ok := fetched.AttrOK("", "datatypeLibrary"); !ok {
		fetched.SetAttribute("", "datatypeLibrary", BuiltinDatatypeLibrary)
	}
	if ns := ref.Attr("", "ns"); ns != "" {
		if _, ok := fetched.AttrOK("", "ns"); !ok {
			fetched.SetAttribute("", "ns", ns)
		}
	}

	fetched = passWhitespace(cfg, fetched)
	fetched = passDatatypeLibrary(cfg, fetched)
	fetched = passExternalRef(cfg, fetched)
	return fetched
}

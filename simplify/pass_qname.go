package simplify

import (
	"strings"

	"aqwari.net/relaxng/rngerr"
	"aqwari.net/relaxng/xmltree"
)

// passQName implements step 7: a <name> whose text is a prefixed QName
// (e.g. "xhtml:p") is split into its local part, with ns resolved from
// the namespace declarations in scope at that element's original
// position in the document — overriding whatever ns step 6 propagated
// onto it, since an explicit prefix always wins.
func passQName(cfg *Config, root *xmltree.Element) *xmltree.Element {
	walkElements(root, func(el *xmltree.Element) {
		if !isRNG(el, "name") {
			return
		}
		text := strings.TrimSpace(el.Text())
		if !strings.Contains(text, ":") {
			return
		}
		name, ok := el.ResolveNS(text)
		if !ok {
			rngerr.Stop(rngerr.SchemaStructure, el.Path(), "unresolvable namespace prefix in QName %q", text)
		}
		el.SetAttribute("", "ns", name.Space)
		el.Empty()
		el.Append(xmltree.NewText(name.Local))
	})
	return root
}

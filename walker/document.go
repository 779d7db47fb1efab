package walker

import (
	"aqwari.net/relaxng/pattern"
	"aqwari.net/relaxng/xmltree"
)

// ValidateTree drives a Walker over an already-parsed XML document
// tree and returns the accumulated errors. It is the bridge between
// the event-based Walker surface spec.md §4.6 describes and the
// xmltree.Element model this module's loader already builds documents
// with — there is no second, document-only XML parser in this module
// (see SPEC_FULL.md's non-goals), so validating a document means
// walking the same tree type schemas are loaded into.
func ValidateTree(g *pattern.Grammar, doc *xmltree.Element) []*ValidationError {
	w := New(g)
	walkElement(w, doc)
	return w.Finish()
}

func walkElement(w *Walker, el *xmltree.Element) {
	attrs := make([]Attr, len(el.StartElement.Attr))
	for i, a := range el.StartElement.Attr {
		attrs[i] = Attr{URI: a.Name.Space, Local: a.Name.Local, Value: a.Value}
	}
	w.StartTagAndAttributes(el.Name.Space, el.Name.Local, attrs)
	for _, c := range el.Children {
		switch v := c.(type) {
		case *xmltree.Element:
			walkElement(w, v)
		case *xmltree.Text:
			w.Text(v.Value)
		}
	}
	w.EndTag(el.Name.Space, el.Name.Local)
}

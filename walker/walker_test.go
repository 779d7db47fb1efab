package walker

import (
	"testing"

	"github.com/kr/pretty"

	"aqwari.net/relaxng/pattern"
)

// grammar for: <a id="text"><b/></a>
func testGrammar() *pattern.Grammar {
	g := &pattern.Grammar{Defines: make(map[string]*pattern.Define)}
	bPattern := &pattern.Element{NameClass: pattern.Name{Local: "b"}, Body: &pattern.Empty{}}
	aAttr := &pattern.Attribute{NameClass: pattern.Name{Local: "id"}, Body: &pattern.Text{}}
	aBody := &pattern.Group{A: aAttr, B: bPattern}
	g.Start = &pattern.Element{NameClass: pattern.Name{Local: "a"}, Body: aBody}
	return g
}

func TestWalkerValidDocument(t *testing.T) {
	g := testGrammar()
	errs := Validate(g, []Event{
		{Kind: EventStartTag, Local: "a", Attrs: []Attr{{Local: "id", Value: "42"}}},
		{Kind: EventStartTag, Local: "b"},
		{Kind: EventEndTag, Local: "b"},
		{Kind: EventEndTag, Local: "a"},
	})
	if len(errs) != 0 {
		t.Errorf("expected a valid document to produce no errors, got:\n%# v", pretty.Formatter(errs))
	}
}

func TestWalkerMissingAttribute(t *testing.T) {
	g := testGrammar()
	errs := Validate(g, []Event{
		{Kind: EventStartTag, Local: "a"},
		{Kind: EventStartTag, Local: "b"},
		{Kind: EventEndTag, Local: "b"},
		{Kind: EventEndTag, Local: "a"},
	})
	if len(errs) == 0 {
		t.Fatalf("expected a missing required attribute to be reported")
	}
}

func TestWalkerUnexpectedElement(t *testing.T) {
	g := testGrammar()
	errs := Validate(g, []Event{
		{Kind: EventStartTag, Local: "zzz"},
	})
	if len(errs) == 0 {
		t.Fatalf("expected an unrecognized element to be reported")
	}
}

func TestWalkerDuplicateAttribute(t *testing.T) {
	g := testGrammar()
	errs := Validate(g, []Event{
		{Kind: EventStartTag, Local: "a", Attrs: []Attr{
			{Local: "id", Value: "1"},
			{Local: "id", Value: "2"},
		}},
		{Kind: EventStartTag, Local: "b"},
		{Kind: EventEndTag, Local: "b"},
		{Kind: EventEndTag, Local: "a"},
	})
	found := false
	for _, e := range errs {
		if e.Message != "" {
			found = true
		}
	}
	if !found || len(errs) == 0 {
		t.Fatalf("expected duplicate attribute to be reported")
	}
}

func TestWalkerNamespaceContextStack(t *testing.T) {
	w := New(testGrammar())
	w.EnterContext()
	w.DefinePrefix("x", "urn:example")
	if uri, ok := w.ResolvePrefix("x"); !ok || uri != "urn:example" {
		t.Errorf("ResolvePrefix(%q) = (%q,%v), want (%q,true)", "x", uri, ok, "urn:example")
	}
	w.LeaveContext()
	if _, ok := w.ResolvePrefix("x"); ok {
		t.Errorf("prefix should not resolve after its context frame is left")
	}
}

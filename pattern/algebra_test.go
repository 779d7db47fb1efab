package pattern

import (
	"testing"

	"github.com/kr/pretty"
)

func mkGrammar(start Pattern, defines map[string]Pattern) *Grammar {
	g := &Grammar{Defines: make(map[string]*Define)}
	for name, body := range defines {
		def := &Define{Name: name, Body: body}
		g.Defines[name] = def
		g.Order = append(g.Order, name)
	}
	g.Start = start
	return g
}

func TestNullable(t *testing.T) {
	tests := []struct {
		name string
		p    Pattern
		want bool
	}{
		{"empty", &Empty{}, true},
		{"notAllowed", &NotAllowed{}, false},
		{"text", &Text{}, true},
		{"value", &Value{Literal: "x"}, false},
		{"oneOrMore of empty", &OneOrMore{Body: &Empty{}}, true},
		{"oneOrMore of notAllowed", &OneOrMore{Body: &NotAllowed{}}, false},
		{"choice either nullable", &Choice{A: &NotAllowed{}, B: &Empty{}}, true},
		{"group both required", &Group{A: &Empty{}, B: &Text{}}, true},
		{"group one non-nullable", &Group{A: &Empty{}, B: &Value{Literal: "x"}}, false},
		{"interleave both nullable", &Interleave{A: &Empty{}, B: &Empty{}}, true},
		{"element never nullable", &Element{NameClass: Name{Local: "a"}, Body: &Empty{}}, false},
		{"attribute never nullable", &Attribute{NameClass: Name{Local: "a"}, Body: &Text{}}, false},
	}
	for _, tt := range tests {
		if got := Nullable(tt.p); got != tt.want {
			t.Errorf("%s: Nullable() = %v, want %v\npattern: %# v", tt.name, got, tt.want, pretty.Formatter(tt.p))
		}
	}
}

func TestNullableRecursiveGrammar(t *testing.T) {
	// start = element a { ref b }, b = choice(empty, element a2 { ref b })
	// the grammar itself is never nullable (it always begins with an
	// element), but ref resolution must still terminate rather than
	// infinitely recurse.
	g := mkGrammar(nil, nil)
	bBody := &Choice{A: &Empty{}, B: &Element{NameClass: Name{Local: "a2"}, Body: &Ref{Name: "b", grammar: g}}}
	def := &Define{Name: "b", Body: bBody}
	g.Defines["b"] = def
	g.Order = []string{"b"}
	g.Start = &Element{NameClass: Name{Local: "a"}, Body: &Ref{Name: "b", grammar: g}}

	if Nullable(g.Start) {
		t.Errorf("grammar starting with a required element must not be nullable")
	}
	if !g.nullableOfDefine(def) {
		t.Errorf("define b should be nullable (its choice includes empty)")
	}
}

func TestSmartConstructors(t *testing.T) {
	empty := &Empty{}
	notAllowed := &NotAllowed{}
	text := &Text{}

	if got := NewChoice(notAllowed, text); got != Pattern(text) {
		t.Errorf("Choice(notAllowed, p) should collapse to p")
	}
	if got := NewChoice(text, notAllowed); got != Pattern(text) {
		t.Errorf("Choice(p, notAllowed) should collapse to p")
	}
	if got := NewGroup(empty, text); got != Pattern(text) {
		t.Errorf("Group(empty, p) should collapse to p")
	}
	if got := NewGroup(text, empty); got != Pattern(text) {
		t.Errorf("Group(p, empty) should collapse to p")
	}
	if _, ok := NewGroup(notAllowed, text).(*NotAllowed); !ok {
		t.Errorf("Group(notAllowed, p) should collapse to notAllowed")
	}
	if _, ok := NewOneOrMore(notAllowed).(*NotAllowed); !ok {
		t.Errorf("OneOrMore(notAllowed) should collapse to notAllowed")
	}
}

func TestStartTagOpenDerivElement(t *testing.T) {
	content := &Text{}
	p := &Element{NameClass: Name{NS: "", Local: "a"}, Body: content}

	next := StartTagOpenDeriv(p, "", "a")
	if !Nullable(next) {
		t.Errorf("after entering a matching <a>text</a> element, residual should be nullable")
	}

	miss := StartTagOpenDeriv(p, "", "b")
	if _, ok := miss.(*NotAllowed); !ok {
		t.Errorf("StartTagOpenDeriv with a non-matching name should be NotAllowed, got %v", miss.Kind())
	}
}

func TestFullElementWalk(t *testing.T) {
	// <a>hello</a>
	p := &Element{NameClass: Name{Local: "a"}, Body: &Text{}}

	r := StartTagOpenDeriv(p, "", "a")
	r = EndAttrDeriv(r)
	r = TextDeriv(r, "hello")
	r = EndTagDeriv(r)

	if !Nullable(r) {
		t.Errorf("after a full matching element, residual should be nullable")
	}
}

func TestAttributeValueMatch(t *testing.T) {
	p := &Attribute{NameClass: Name{Local: "id"}, Body: &Text{}}

	ok := StartAttrDeriv(p, "", "id", "123")
	if !Nullable(ok) {
		t.Errorf("attribute with matching name should derive to an empty residual")
	}

	bad := StartAttrDeriv(p, "", "other", "123")
	if _, notAllowed := bad.(*NotAllowed); !notAllowed {
		t.Errorf("attribute with non-matching name should be NotAllowed")
	}
}

func TestMissingAttribute(t *testing.T) {
	p := &Group{
		A: &Attribute{NameClass: Name{Local: "id"}, Body: &Text{}},
		B: &Text{},
	}
	ns, local, ok := MissingAttribute(p)
	if !ok || local != "id" || ns != "" {
		t.Errorf("MissingAttribute() = (%q,%q,%v), want (\"\",\"id\",true)", ns, local, ok)
	}
}

func TestListMatches(t *testing.T) {
	body := &OneOrMore{Body: &Value{Literal: "x"}}
	if !listMatches(body, "x x x") {
		t.Errorf("list of three x tokens should match oneOrMore(value x)")
	}
	if listMatches(body, "x y x") {
		t.Errorf("list containing a mismatched token should not match")
	}
}

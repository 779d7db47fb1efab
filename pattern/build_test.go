package pattern

import (
	"testing"

	"aqwari.net/relaxng/xmltree"
)

const buildNS = `xmlns="http://relaxng.org/ns/structure/1.0"`

func mustBuild(t *testing.T, doc string) *Grammar {
	t.Helper()
	root, err := xmltree.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g, err := Build(root)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestBuildRejectsNonGrammarRoot(t *testing.T) {
	root, err := xmltree.Parse([]byte(`<element name="a" ` + buildNS + `><empty/></element>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Build(root); err == nil {
		t.Fatalf("expected Build to reject a non-<grammar> document element")
	}
}

func TestBuildRejectsMissingStart(t *testing.T) {
	root, err := xmltree.Parse([]byte(`<grammar ` + buildNS + `><define name="a"><empty/></define></grammar>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Build(root); err == nil {
		t.Fatalf("expected Build to reject a grammar with no <start>")
	}
}

func TestBuildTrivialElement(t *testing.T) {
	g := mustBuild(t, `
	<grammar `+buildNS+`>
		<start>
			<element>
				<name>a</name>
				<empty/>
			</element>
		</start>
	</grammar>`)

	el, ok := g.Start.(*Element)
	if !ok {
		t.Fatalf("Start = %T, want *Element", g.Start)
	}
	name, ok := el.NameClass.(Name)
	if !ok || name.Local != "a" {
		t.Fatalf("Start element name class = %#v, want Name{Local: \"a\"}", el.NameClass)
	}
	if _, ok := el.Body.(*Empty); !ok {
		t.Fatalf("Start element body = %T, want *Empty", el.Body)
	}
}

func TestBuildResolvesRefThroughGrammar(t *testing.T) {
	g := mustBuild(t, `
	<grammar `+buildNS+`>
		<start><ref name="top"/></start>
		<define name="top">
			<element>
				<name>a</name>
				<empty/>
			</element>
		</define>
	</grammar>`)

	ref, ok := g.Start.(*Ref)
	if !ok {
		t.Fatalf("Start = %T, want *Ref", g.Start)
	}
	def, ok := g.Resolve(ref.Name)
	if !ok {
		t.Fatalf("Resolve(%q) failed", ref.Name)
	}
	if _, ok := def.Body.(*Element); !ok {
		t.Fatalf("resolved define body = %T, want *Element", def.Body)
	}
	// Nullable must dereference the Ref transparently.
	if Nullable(g.Start) {
		t.Fatalf("expected a <ref> to a required element to be non-nullable")
	}
}

func TestBuildRecursiveGrammarNullable(t *testing.T) {
	// top = choice(empty, group(element a, ref top))
	g := mustBuild(t, `
	<grammar `+buildNS+`>
		<start><ref name="top"/></start>
		<define name="top">
			<choice>
				<empty/>
				<group>
					<element>
						<name>a</name>
						<empty/>
					</element>
					<ref name="top"/>
				</group>
			</choice>
		</define>
	</grammar>`)

	if !Nullable(g.Start) {
		t.Fatalf("expected the recursive grammar's start to be nullable (empty branch of the top-level choice)")
	}
}

func TestBuildDataWithParamsAndExcept(t *testing.T) {
	g := mustBuild(t, `
	<grammar `+buildNS+`>
		<start>
			<data type="token" datatypeLibrary="">
				<param name="pattern">[a-z]+</param>
				<except><value>bad</value></except>
			</data>
		</start>
	</grammar>`)

	d, ok := g.Start.(*Data)
	if !ok {
		t.Fatalf("Start = %T, want *Data", g.Start)
	}
	if d.Type != "token" {
		t.Fatalf("Data.Type = %q, want %q", d.Type, "token")
	}
	if len(d.Params) != 1 || d.Params[0].Name != "pattern" || d.Params[0].Value != "[a-z]+" {
		t.Fatalf("Data.Params = %#v, want one pattern param", d.Params)
	}
	if d.Except == nil {
		t.Fatalf("expected Data.Except to be set")
	}
}

func TestBuildNameClassChoiceAndNsName(t *testing.T) {
	g := mustBuild(t, `
	<grammar `+buildNS+`>
		<start>
			<element>
				<choice>
					<name ns="urn:a">a</name>
					<nsName ns="urn:b"/>
				</choice>
				<empty/>
			</element>
		</start>
	</grammar>`)

	el := g.Start.(*Element)
	choice, ok := el.NameClass.(NameChoice)
	if !ok {
		t.Fatalf("NameClass = %T, want NameChoice", el.NameClass)
	}
	if !choice.Contains("urn:a", "a") {
		t.Fatalf("expected the name-class choice to accept {urn:a}a")
	}
	if !choice.Contains("urn:b", "anything") {
		t.Fatalf("expected the name-class choice to accept any local name in urn:b")
	}
	if choice.Contains("urn:c", "x") {
		t.Fatalf("expected the name-class choice to reject an unrelated namespace")
	}
}

func TestBuildRejectsUnbalancedBinary(t *testing.T) {
	root, err := xmltree.Parse([]byte(`
	<grammar ` + buildNS + `>
		<start>
			<choice>
				<empty/>
			</choice>
		</start>
	</grammar>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Build(root); err == nil {
		t.Fatalf("expected Build to reject a <choice> with only one child")
	}
}

func TestBuildFullWalk(t *testing.T) {
	g := mustBuild(t, `
	<grammar `+buildNS+`>
		<start>
			<element>
				<name>a</name>
				<group>
					<attribute>
						<name>id</name>
						<text/>
					</attribute>
					<text/>
				</group>
			</element>
		</start>
	</grammar>`)

	next := StartTagOpenDeriv(g.Start, "", "a")
	next = StartAttrDeriv(next, "", "id", "hello")
	next = EndAttrDeriv(next)
	next = TextDeriv(next, "some text")
	next = EndTagDeriv(next)
	if !Nullable(next) {
		t.Fatalf("expected <a id=\"hello\">some text</a> to validate cleanly against its own grammar")
	}
}

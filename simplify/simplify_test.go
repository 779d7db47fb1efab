package simplify

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"aqwari.net/relaxng/xmltree"
)

func mustParse(t *testing.T, doc string) *xmltree.Element {
	t.Helper()
	root, err := xmltree.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return root
}

const ns = `xmlns="http://relaxng.org/ns/structure/1.0"`

func TestSimplifyTrivialSchema(t *testing.T) {
	root := mustParse(t, `<element name="a" `+ns+`><text/></element>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if !isRNG(out, "grammar") {
		t.Fatalf("expected simplification to produce a <grammar> root, got <%s>", out.Name.Local)
	}
	defines := out.Search(StructureNS, "define")
	if len(defines) != 1 {
		t.Fatalf("expected exactly one <define>, got %d", len(defines))
	}
	elements := out.Search(StructureNS, "element")
	if len(elements) != 1 {
		t.Fatalf("expected exactly one <element>, got %d", len(elements))
	}
	names := elements[0].Search(StructureNS, "name")
	if len(names) != 1 || names[0].Text() != "a" {
		t.Fatalf("expected the element's name-class to be <name>a</name>, got %v", names)
	}
}

func TestSimplifyOptionalDesugars(t *testing.T) {
	root := mustParse(t, `<element name="a" `+ns+`><optional><attribute name="id"><text/></attribute></optional></element>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if got := out.Search(StructureNS, "optional"); len(got) != 0 {
		t.Fatalf("expected <optional> to be desugared away, found %d", len(got))
	}
	if got := out.Search(StructureNS, "choice"); len(got) == 0 {
		t.Fatalf("expected <optional> to desugar into a <choice>")
	}
}

func TestSimplifyZeroOrMoreDesugars(t *testing.T) {
	root := mustParse(t, `<element name="a" `+ns+`><zeroOrMore><element name="b"><empty/></element></zeroOrMore></element>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if got := out.Search(StructureNS, "zeroOrMore"); len(got) != 0 {
		t.Fatalf("expected <zeroOrMore> to be desugared away, found %d", len(got))
	}
	if got := out.Search(StructureNS, "oneOrMore"); len(got) == 0 {
		t.Fatalf("expected <zeroOrMore> to desugar into a choice containing <oneOrMore>")
	}
}

func TestSimplifyMixedDesugars(t *testing.T) {
	root := mustParse(t, `<element name="a" `+ns+`><mixed><element name="b"><empty/></element></mixed></element>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if got := out.Search(StructureNS, "mixed"); len(got) != 0 {
		t.Fatalf("expected <mixed> to be desugared away, found %d", len(got))
	}
	interleaves := out.Search(StructureNS, "interleave")
	if len(interleaves) == 0 {
		t.Fatalf("expected <mixed> to desugar into an <interleave> with <text/>")
	}
}

func TestSimplifyNotAllowedPropagates(t *testing.T) {
	root := mustParse(t, `
	<element name="a" `+ns+`>
		<group>
			<notAllowed/>
			<text/>
		</group>
	</element>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	// The element's whole body collapses to notAllowed; the element
	// itself remains (an element is never itself collapsed away), but
	// its body must be exactly <notAllowed/>.
	elements := out.Search(StructureNS, "element")
	if len(elements) != 1 {
		t.Fatalf("expected exactly one <element>, got %d", len(elements))
	}
	body := elementChildren(elements[0])
	if len(body) != 2 || !isRNG(body[1], "notAllowed") {
		t.Fatalf("expected the element body to collapse to <notAllowed/>, got:\n%# v", pretty.Formatter(body))
	}
}

func TestSimplifyEmptyPropagates(t *testing.T) {
	root := mustParse(t, `
	<element name="a" `+ns+`>
		<group>
			<empty/>
			<element name="b"><empty/></element>
		</group>
	</element>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	outer := out.Search(StructureNS, "element")[0]
	body := elementChildren(outer)
	if len(body) != 2 || !isRNG(body[1], "ref") {
		t.Fatalf("expected group(empty, element b) to collapse to just the inner element (a <ref> to its own define after step 16), got %#v", body)
	}
}

func TestSimplifyBinaryIsRightAssociated(t *testing.T) {
	root := mustParse(t, `
	<element name="a" `+ns+`>
		<group>
			<attribute name="x"><text/></attribute>
			<attribute name="y"><text/></attribute>
			<attribute name="z"><text/></attribute>
		</group>
	</element>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	groups := out.Search(StructureNS, "group")
	if len(groups) != 2 {
		t.Fatalf("a 3-way group should binarize into 2 nested <group> elements, got %d", len(groups))
	}
}

func TestGrammarRenamingTwoDefines(t *testing.T) {
	root := mustParse(t, `
	<grammar `+ns+`>
		<start><ref name="top"/></start>
		<define name="top">
			<grammar>
				<start><ref name="foo"/></start>
				<define name="foo"><element name="a"><empty/></element></define>
			</grammar>
		</define>
		<grammar>
			<start><ref name="foo"/></start>
			<define name="foo"><element name="b"><empty/></element></define>
		</grammar>
	</grammar>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	var gotNames []string
	for _, def := range out.Search(StructureNS, "define") {
		if strings.HasPrefix(def.Attr("", "name"), "foo-gr-") {
			gotNames = append(gotNames, def.Attr("", "name"))
		}
	}
	if len(gotNames) != 2 {
		t.Fatalf("expected two renamed foo-gr-N defines, got %v", gotNames)
	}
}

func TestDefinePerElementFactorsOutElements(t *testing.T) {
	root := mustParse(t, `
	<element name="a" `+ns+`>
		<group>
			<element name="b"><empty/></element>
			<element name="c"><empty/></element>
		</group>
	</element>`)

	out, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	// Every <element> except one directly inside a <define> must be
	// factored out into its own <define>, leaving a <ref> in its place.
	refs := out.Search(StructureNS, "ref")
	if len(refs) < 2 {
		t.Fatalf("expected at least 2 synthesized <ref>s from define-per-element, got %d", len(refs))
	}
}

func TestSimplifyIsIdempotent(t *testing.T) {
	root := mustParse(t, `
	<element name="a" `+ns+`>
		<optional><attribute name="id"><data type="token"/></attribute></optional>
		<zeroOrMore><element name="b"><text/></element></zeroOrMore>
	</element>`)

	once, err := Simplify(root)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	onceXML := string(xmltree.Marshal(once))

	twice, err := Simplify(once.Clone())
	if err != nil {
		t.Fatalf("second Simplify: %v", err)
	}
	twiceXML := string(xmltree.Marshal(twice))

	if onceXML != twiceXML {
		t.Fatalf("simplify(simplify(S)) != simplify(S):\n--- once ---\n%s\n--- twice ---\n%s", onceXML, twiceXML)
	}
}

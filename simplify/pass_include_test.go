package simplify

import (
	"os"
	"path/filepath"
	"testing"

	"aqwari.net/relaxng/rngload"
	"aqwari.net/relaxng/xmltree"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

// TestIncludeOverrideNested pins the Open Question decision in
// DESIGN.md: an <include>'s overrides only ever see the fully-resolved
// content of the grammar they include — a further nested <include>
// inside that grammar is resolved first, and the outer override
// replaces whatever the inner include ultimately contributed, not a
// partially-resolved placeholder for it.
//
// base.rng:   include "middle.rng", override define "item" to use <b/>
// middle.rng: include "inner.rng" (no overrides)
// inner.rng:  grammar defining start and define "item" as <a/>
//
// The override in base.rng must win over inner.rng's "item", since
// middle.rng's own include has already pulled inner.rng's definitions
// up into middle.rng by the time base.rng's override is applied.
func TestIncludeOverrideNested(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "inner.rng", `
	<grammar xmlns="http://relaxng.org/ns/structure/1.0">
		<start><ref name="item"/></start>
		<define name="item"><element name="a"><empty/></element></define>
	</grammar>`)

	writeFile(t, dir, "middle.rng", `
	<grammar xmlns="http://relaxng.org/ns/structure/1.0">
		<include href="inner.rng"/>
	</grammar>`)

	root, err := xmltree.Parse([]byte(`
	<grammar xmlns="http://relaxng.org/ns/structure/1.0">
		<include href="middle.rng">
			<define name="item"><element name="b"><empty/></element></define>
		</include>
	</grammar>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out, err := Simplify(root, WithLoader(rngload.New(rngload.WithBaseDir(dir))))
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}

	names := make(map[string]bool)
	for _, el := range out.Search(StructureNS, "element") {
		names[el.Attr("", "name")] = true
		for _, nc := range el.Search(StructureNS, "name") {
			names[nc.Text()] = true
		}
	}
	if names["b"] != true {
		t.Errorf("expected the override's <element name=\"b\"> to survive simplification")
	}
	if names["a"] == true {
		t.Errorf("expected inner.rng's overridden <element name=\"a\"> to be gone, found it alongside the override")
	}
}

func TestExternalRefDatatypeLibraryBoundary(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "inner.rng", `
	<element name="a" xmlns="http://relaxng.org/ns/structure/1.0">
		<data type="string"/>
	</element>`)

	root, err := xmltree.Parse([]byte(`
	<element name="outer" xmlns="http://relaxng.org/ns/structure/1.0" datatypeLibrary="urn:example:outer-lib">
		<externalRef href="inner.rng"/>
	</element>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out, err := Simplify(root, WithLoader(rngload.New(rngload.WithBaseDir(dir))))
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}

	dataEls := out.Search(StructureNS, "data")
	if len(dataEls) != 1 {
		t.Fatalf("expected exactly one <data>, got %d", len(dataEls))
	}
	if lib := dataEls[0].Attr("", "datatypeLibrary"); lib != BuiltinDatatypeLibrary {
		t.Errorf("externalRef'd <data> datatypeLibrary = %q, want the built-in library (empty string), not the outer schema's %q", lib, "urn:example:outer-lib")
	}
}

package walker_test

import (
	"os"
	"path/filepath"
	"testing"

	"aqwari.net/relaxng/pattern"
	"aqwari.net/relaxng/simplify"
	"aqwari.net/relaxng/walker"
	"aqwari.net/relaxng/xmltree"
)

// loadGrammar runs the full schema pipeline (parse, simplify, build)
// against a fixture under testdata/.
func loadGrammar(t *testing.T, name string) *pattern.Grammar {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "testdata", name))
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", name, err)
	}
	root, err := xmltree.Parse(data)
	if err != nil {
		t.Fatalf("Parse(%s): %v", name, err)
	}
	simplified, err := simplify.Simplify(root)
	if err != nil {
		t.Fatalf("Simplify(%s): %v", name, err)
	}
	g, err := pattern.Build(simplified)
	if err != nil {
		t.Fatalf("Build(%s): %v", name, err)
	}
	return g
}

func loadDoc(t *testing.T, name string) *xmltree.Element {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "testdata", name))
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", name, err)
	}
	doc, err := xmltree.Parse(data)
	if err != nil {
		t.Fatalf("Parse(%s): %v", name, err)
	}
	return doc
}

// TestTrivialScenario pins spec scenario 1: <element name="a"><text/></element>.
func TestTrivialScenario(t *testing.T) {
	g := loadGrammar(t, "trivial.rng")

	if errs := walker.ValidateTree(g, loadDoc(t, "trivial-valid.xml")); len(errs) != 0 {
		t.Errorf("<a>hi</a> should validate cleanly, got %v", errs)
	}
	errs := walker.ValidateTree(g, loadDoc(t, "trivial-invalid.xml"))
	if len(errs) != 1 {
		t.Fatalf("<a><b/></a> should produce exactly 1 error, got %d: %v", len(errs), errs)
	}
}

// TestAttributeScenario pins spec scenario 2: a required "id" attribute,
// with an unexpected extra attribute also rejected.
func TestAttributeScenario(t *testing.T) {
	g := loadGrammar(t, "attribute.rng")

	if errs := walker.ValidateTree(g, loadDoc(t, "attribute-valid.xml")); len(errs) != 0 {
		t.Errorf("<x id=\"3\"/> should validate cleanly, got %v", errs)
	}
	if errs := walker.ValidateTree(g, loadDoc(t, "attribute-missing.xml")); len(errs) == 0 {
		t.Errorf("<x/> should report the missing required attribute")
	}
	if errs := walker.ValidateTree(g, loadDoc(t, "attribute-extra.xml")); len(errs) == 0 {
		t.Errorf("<x id=\"3\" extra=\"1\"/> should report the unexpected attribute")
	}
}

// TestInterleaveScenario pins spec scenario 3: interleaved <a/> and <b/>
// validate in either order, but two <a/>s in a row do not.
func TestInterleaveScenario(t *testing.T) {
	g := loadGrammar(t, "interleave.rng")

	if errs := walker.ValidateTree(g, loadDoc(t, "interleave-valid.xml")); len(errs) != 0 {
		t.Errorf("<r><b/><a/></r> should validate cleanly regardless of interleave order, got %v", errs)
	}
	if errs := walker.ValidateTree(g, loadDoc(t, "interleave-invalid.xml")); len(errs) == 0 {
		t.Errorf("<r><a/><a/></r> should report a validation error")
	}
}

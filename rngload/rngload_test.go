package rngload

import (
	"strings"
	"testing"

	"aqwari.net/relaxng/internal/testutil"
	"aqwari.net/relaxng/xmltree"
)

const simpleSchema = `<?xml version="1.0"?>
<element name="a" xmlns="http://relaxng.org/ns/structure/1.0">
  <text/>
</element>`

func TestFetchHTTP(t *testing.T) {
	client := testutil.FakeClient("http://example.com/a.rng", []byte(simpleSchema))
	ld := New(WithHTTPClient(&client))

	root, err := ld.Fetch("http://example.com/a.rng")
	if err != nil {
		t.Fatal(err)
	}
	if root.Name.Local != "element" {
		t.Fatalf("root.Name.Local = %q, want %q", root.Name.Local, "element")
	}

	// Fetching again should hit the cache, not the fake transport,
	// which only answers the one URL it was configured with.
	if _, err := ld.Fetch("http://example.com/a.rng"); err != nil {
		t.Fatalf("second Fetch (cached) failed: %v", err)
	}
}

func TestFetchRejectsForeignNamespace(t *testing.T) {
	body := `<?xml version="1.0"?>
<schema xmlns="http://www.w3.org/2001/XMLSchema"/>`
	client := testutil.FakeClient("http://example.com/bad.rng", []byte(body))
	ld := New(WithHTTPClient(&client))

	_, err := ld.Fetch("http://example.com/bad.rng")
	if err == nil {
		t.Fatal("expected an error for an element outside the Relax NG namespace")
	}
	if !strings.Contains(err.Error(), "structure namespace") {
		t.Fatalf("error = %v, want mention of the structure namespace", err)
	}
}

func TestFetchDetectsCycle(t *testing.T) {
	ld := New()
	ld.loading["x"] = true
	if _, err := ld.Fetch("x"); err == nil {
		t.Fatal("expected cycle detection to return an error")
	}
}

func TestHasIncludeOrExternalRef(t *testing.T) {
	withInclude := `<?xml version="1.0"?>
<grammar xmlns="http://relaxng.org/ns/structure/1.0">
  <include href="other.rng"/>
</grammar>`
	withoutInclude := `<?xml version="1.0"?>
<element name="a" xmlns="http://relaxng.org/ns/structure/1.0"><text/></element>`

	root, err := xmltree.Parse([]byte(withInclude))
	if err != nil {
		t.Fatal(err)
	}
	if !HasIncludeOrExternalRef(root) {
		t.Error("expected HasIncludeOrExternalRef to find the <include>")
	}

	root, err = xmltree.Parse([]byte(withoutInclude))
	if err != nil {
		t.Fatal(err)
	}
	if HasIncludeOrExternalRef(root) {
		t.Error("expected HasIncludeOrExternalRef to find nothing")
	}
}

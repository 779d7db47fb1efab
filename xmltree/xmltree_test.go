package xmltree

import (
	"encoding/xml"
	"testing"

	"github.com/kr/pretty"
)

const structureNS = "http://relaxng.org/ns/structure/1.0"

var doc = []byte(`<?xml version="1.0" encoding="utf-8"?>
<grammar xmlns="http://relaxng.org/ns/structure/1.0" xmlns:rng="http://relaxng.org/ns/structure/1.0" xmlns:dt="http://www.w3.org/2001/XMLSchema-datatypes" xmlns:ex="http://example.com/schema/" xmlns:a="http://example.com/rng/a" xmlns:db="http://example.com/rng/db" datatypeLibrary="http://www.w3.org/2001/XMLSchema-datatypes">
  <start>
    <element name="document">
      <ref name="body" />
    </element>
  </start>
  <rng:define name="body" xmlns="http://example.com/custom2/">
    <rng:element name="body">
      <rng:zeroOrMore>
        <rng:ref name="paragraph" />
      </rng:zeroOrMore>
    </rng:element>
  </rng:define>
  <rng:define name="paragraph" xmlns="http://example.com/custom/">
    <rng:element name="paragraph">
      <rng:data type="string" datatypeLibrary="http://www.w3.org/2001/XMLSchema-datatypes" />
    </rng:element>
  </rng:define>
</grammar>`)

func TestParse(t *testing.T) {
	var buf struct {
		Data []byte `xml:",innerxml"`
	}
	el, err := Parse(doc)
	if err != nil {
		t.Fatal(err)
	}
	el.walk(func(el *Element) {
		el.walk(func(el *Element) {
			if err := el.Unmarshal(&buf); err != nil {
				t.Error(err)
			}
			t.Logf("%s", buf.Data)
		})
	})
	if err != nil {
		t.Error(err)
	}
}

func TestSearch(t *testing.T) {
	root, err := Parse(doc)
	if err != nil {
		t.Fatal(err)
	}

	result := root.Search(structureNS, "define")
	if len(result) != 2 {
		t.Errorf("Expected Search(%q, \"define\") to return 2 results, got %d",
			structureNS, len(result))
	}
}

func TestNSResolution(t *testing.T) {
	root, err := Parse(doc)
	if err != nil {
		t.Fatal(err)
	}

	for _, el := range root.Search(structureNS, "grammar") {
		for _, prefix := range []string{"dt", "ex", "a", "db"} {
			if name, ok := el.ResolveNS(prefix + ":foo"); !ok {
				t.Errorf("Failed to resolve %s: prefix at <%s>", prefix, el.Name.Local)
			} else {
				t.Logf("Resoved prefix %s to %q at <%s name=%q>", prefix, name.Space,
					el.Name.Local, el.Attr("", "name"))
			}
		}
	}

	defaultns := root.SearchFunc(func(el *Element) bool {
		if (el.Name != xml.Name{structureNS, "define"}) {
			return false
		}
		return el.Attr("", "name") == "paragraph"
	})[0]

	name := defaultns.Resolve("foo")
	if name.Space != "http://example.com/custom/" {
		t.Errorf("Resolve default namespace at <%s name=%q>: wanted %q, got %q",
			defaultns.Prefix(defaultns.Name), defaultns.Attr("", "name"), defaultns.Attr("", "xmlns"), name.Space)
		t.Logf("NS stack is %# v", pretty.Formatter(defaultns.Scope))
	}
}

func TestString(t *testing.T) {
	root, err := Parse(doc)
	if err != nil {
		t.Fatal(err)
	}
	s := root.String()
	if len(s) < 5 {
		t.Error(s)
	}
	t.Log(s)
}

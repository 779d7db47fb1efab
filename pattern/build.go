package pattern

import (
	"strings"

	"aqwari.net/relaxng/rngerr"
	"aqwari.net/relaxng/rngload"
	"aqwari.net/relaxng/xmltree"
)

// structureNS is the Relax NG structure namespace every element in a
// simplified tree is expected to carry.
const structureNS = rngload.StructureNS

// Build performs a depth-first traversal of a fully simplified schema
// tree and returns the Grammar it denotes. The document element must be
// a <grammar>; anything else is a SchemaStructure error, matching the
// simplifier's own contract that grammar unification (step 15) leaves
// exactly one <grammar> at the root.
func Build(root *xmltree.Element) (g *Grammar, err error) {
	defer rngerr.Catch(&err)

	if !isRNG(root, "grammar") {
		rngerr.Stop(rngerr.SchemaStructure, root.Path(), "document element must be <grammar>, got <%s>", root.Name.Local)
	}
	g = &Grammar{Defines: make(map[string]*Define)}

	var startEl *xmltree.Element
	for _, c := range elementChildren(root) {
		switch {
		case isRNG(c, "start"):
			startEl = c
		case isRNG(c, "define"):
			name := c.MustAttr("", "name")
			body := elementChildren(c)
			if len(body) == 0 {
				rngerr.Stop(rngerr.SchemaStructure, c.Path(), "define %q has no body", name)
			}
			def := &Define{Name: name}
			g.Defines[name] = def
			g.Order = append(g.Order, name)
			def.Body = buildPattern(g, body[0])
		}
	}
	if startEl == nil {
		rngerr.Stop(rngerr.SchemaStructure, root.Path(), "grammar has no <start>")
	}
	body := elementChildren(startEl)
	if len(body) == 0 {
		rngerr.Stop(rngerr.SchemaStructure, startEl.Path(), "start has no body")
	}
	g.Start = buildPattern(g, body[0])
	if refErr := checkReferences(g); refErr != nil {
		return nil, refErr
	}
	return g, nil
}

func buildPattern(g *Grammar, el *xmltree.Element) Pattern {
	if el.Name.Space != structureNS {
		rngerr.Stop(rngerr.SchemaStructure, el.Path(), "element <%s> is outside the Relax NG structure namespace", el.Name.Local)
	}
	switch el.Name.Local {
	case "empty":
		return &Empty{base{path: el.Path()}}
	case "notAllowed":
		return &NotAllowed{base{path: el.Path()}}
	case "text":
		return &Text{base{path: el.Path()}}
	case "value":
		return buildValue(el)
	case "data":
		return buildData(g, el)
	case "list":
		return &List{base: base{path: el.Path()}, Body: buildPattern(g, elementChildren(el)[0])}
	case "ref":
		return &Ref{base: base{path: el.Path()}, Name: el.MustAttr("", "name"), grammar: g}
	case "oneOrMore":
		return &OneOrMore{base: base{path: el.Path()}, Body: buildPattern(g, elementChildren(el)[0])}
	case "choice", "group", "interleave":
		return buildBinary(g, el)
	case "element":
		return buildElement(g, el)
	case "attribute":
		return buildAttribute(g, el)
	default:
		rngerr.Stop(rngerr.SchemaStructure, el.Path(), "unexpected pattern element <%s>", el.Name.Local)
		panic("unreachable")
	}
}

func buildValue(el *xmltree.Element) Pattern {
	return &Value{
		base:            base{path: el.Path()},
		Type:            el.Attr("", "type"),
		DatatypeLibrary: el.Attr("", "datatypeLibrary"),
		NS:              el.Attr("", "ns"),
		Literal:         el.Text(),
	}
}

func buildData(g *Grammar, el *xmltree.Element) Pattern {
	d := &Data{
		base:            base{path: el.Path()},
		Type:            el.MustAttr("", "type"),
		DatatypeLibrary: el.Attr("", "datatypeLibrary"),
	}
	for _, c := range elementChildren(el) {
		switch {
		case isRNG(c, "param"):
			d.Params = append(d.Params, Param{Name: c.Attr("", "name"), Value: c.Text()})
		case isRNG(c, "except"):
			inner := elementChildren(c)
			if len(inner) > 0 {
				d.Except = buildPattern(g, inner[0])
			}
		}
	}
	return d
}

func buildBinary(g *Grammar, el *xmltree.Element) Pattern {
	children := elementChildren(el)
	if len(children) != 2 {
		rngerr.Stop(rngerr.SchemaStructure, el.Path(), "<%s> must be binary after simplification, has %d children", el.Name.Local, len(children))
	}
	a := buildPattern(g, children[0])
	b := buildPattern(g, children[1])
	path := el.Path()
	switch el.Name.Local {
	case "choice":
		return &Choice{base: base{path: path}, A: a, B: b}
	case "group":
		return &Group{base: base{path: path}, A: a, B: b}
	default:
		return &Interleave{base: base{path: path}, A: a, B: b}
	}
}

func buildElement(g *Grammar, el *xmltree.Element) Pattern {
	children := elementChildren(el)
	if len(children) != 2 {
		rngerr.Stop(rngerr.SchemaStructure, el.Path(), "<element> must have a name class and a body")
	}
	return &Element{
		base:      base{path: el.Path()},
		NameClass: buildNameClass(children[0]),
		Body:      buildPattern(g, children[1]),
	}
}

func buildAttribute(g *Grammar, el *xmltree.Element) Pattern {
	children := elementChildren(el)
	if len(children) != 2 {
		rngerr.Stop(rngerr.SchemaStructure, el.Path(), "<attribute> must have a name class and a body")
	}
	return &Attribute{
		base:      base{path: el.Path()},
		NameClass: buildNameClass(children[0]),
		Body:      buildPattern(g, children[1]),
	}
}

func buildNameClass(el *xmltree.Element) NameClass {
	switch el.Name.Local {
	case "name":
		return Name{NS: el.Attr("", "ns"), Local: strings.TrimSpace(el.Text())}
	case "nsName":
		return NsName{NS: el.Attr("", "ns"), Except: buildNameClassExcept(el)}
	case "anyName":
		return AnyName{Except: buildNameClassExcept(el)}
	case "choice":
		children := elementChildren(el)
		if len(children) != 2 {
			rngerr.Stop(rngerr.SchemaStructure, el.Path(), "name-class <choice> must be binary after simplification")
		}
		return NameChoice{A: buildNameClass(children[0]), B: buildNameClass(children[1])}
	default:
		rngerr.Stop(rngerr.SchemaStructure, el.Path(), "unexpected name-class element <%s>", el.Name.Local)
		panic("unreachable")
	}
}

func buildNameClassExcept(el *xmltree.Element) NameClass {
	for _, c := range elementChildren(el) {
		if isRNG(c, "except") {
			inner := elementChildren(c)
			if len(inner) == 0 {
				return nil
			}
			return buildNameClass(inner[0])
		}
	}
	return nil
}

func elementChildren(el *xmltree.Element) []*xmltree.Element {
	var result []*xmltree.Element
	for _, c := range el.Children {
		if e, ok := c.(*xmltree.Element); ok {
			result = append(result, e)
		}
	}
	return result
}

func isRNG(el *xmltree.Element, local string) bool {
	return el.Name.Space == structureNS && el.Name.Local == local
}

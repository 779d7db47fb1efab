// Package compact implements the nested-array, JSON-backed
// serialisation of a pattern.Grammar (C7): envelope {v, o, d}, a
// stable integer code per pattern kind, and an optional "rename"
// pass that replaces Define/Ref names with small integers ordered by
// usage frequency.
//
// The outer envelope is decoded with the standard library's
// encoding/json (see DESIGN.md: no example in the retrieval pack wires
// an alternative codec for a format this small, and the format is
// explicitly JSON-like by design); the nested array-of-arrays payload
// is built and walked by hand, the same "construct an AST, walk it to
// re-emit" shape internal/gen uses for generated Go source, minus the
// go/ast-specific parts.
package compact // import "aqwari.net/relaxng/compact"

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"aqwari.net/relaxng/internal/dependency"
	"aqwari.net/relaxng/pattern"
	"aqwari.net/relaxng/rngerr"
)

// Code identifies a node's pattern (or name-class) kind in the
// serialized form. The values are fixed by the format, not by Go
// iota ordering, so they're spelled out explicitly.
type Code int

const (
	CodeArray      Code = 0
	CodeEmpty      Code = 1
	CodeData       Code = 2
	CodeList       Code = 3
	CodeParam      Code = 4
	CodeValue      Code = 5
	CodeNotAllowed Code = 6
	CodeText       Code = 7
	CodeRef        Code = 8
	CodeOneOrMore  Code = 9
	CodeChoice     Code = 10
	CodeGroup      Code = 11
	CodeAttribute  Code = 12
	CodeElement    Code = 13
	CodeDefine     Code = 14
	CodeGrammar    Code = 15
	CodeEName      Code = 16 // reserved; Name already inlines (ns, local)
	CodeInterleave Code = 17
	CodeName       Code = 18
	CodeNameChoice Code = 19
	CodeNsName     Code = 20
	CodeAnyName    Code = 21
)

const formatVersion = 3

// OptNoPaths, when set in an envelope's o field, means path strings
// are omitted from every node (bit 1 of the options field).
const OptNoPaths = 1 << 0

// A Writer controls how Write serializes a Grammar.
type Writer struct {
	// NoPaths omits diagnostic path strings from every node, shrinking
	// the output at the cost of worse post-hoc diagnostics on a loaded
	// grammar.
	NoPaths bool
	// Rename replaces every Define/Ref name with a small integer,
	// assigned in decreasing order of reference-count, the shortest
	// numbers going to the most-referenced definitions.
	Rename bool
	// FormatVersion overrides the "v" envelope field. Zero means
	// formatVersion, this package's own current version; Read rejects
	// anything older than 3, so a caller has no reason to set this
	// below that floor.
	FormatVersion int
	// Indent pretty-prints the JSON envelope with two-space
	// indentation, for a human reading a dump rather than a program
	// parsing one back in with Read.
	Indent bool
}

// Write serializes g as the envelope described in the package comment.
func Write(g *pattern.Grammar, w io.Writer, opts Writer) error {
	var options int
	if opts.NoPaths {
		options |= OptNoPaths
	}
	names := identityRenames(g)
	if opts.Rename {
		names = frequencyRenames(g)
	}
	version := formatVersion
	if opts.FormatVersion != 0 {
		version = opts.FormatVersion
	}
	enc := &encoder{noPaths: opts.NoPaths, names: names}
	doc := map[string]interface{}{
		"v": version,
		"o": options,
		"d": enc.grammar(g),
	}
	jsonEnc := json.NewEncoder(w)
	if opts.Indent {
		jsonEnc.SetIndent("", "  ")
	}
	return jsonEnc.Encode(doc)
}

// identityRenames leaves every Define/Ref name unchanged.
func identityRenames(g *pattern.Grammar) map[string]string {
	m := make(map[string]string, len(g.Order))
	for _, name := range g.Order {
		m[name] = name
	}
	return m
}

// frequencyRenames counts how many times each Define is referenced by
// a Ref anywhere in g, and assigns ascending integer names 0, 1, 2...
// in decreasing order of that count. Ties are broken by
// internal/dependency's deterministic topological Flatten order over
// the Define -> Ref-target edges, so the assignment never depends on
// Go map iteration order.
func frequencyRenames(g *pattern.Grammar) map[string]string {
	counts := make(map[string]int, len(g.Order))
	for _, name := range g.Order {
		counts[name] = 0
	}
	var graph dependency.Graph
	for _, name := range g.Order {
		def := g.Defines[name]
		countRefs(def.Body, counts)
		for _, dep := range refTargets(def.Body) {
			graph.Add(name, dep)
		}
	}
	countRefs(g.Start, counts)

	var order []string
	graph.Flatten(func(name string) {
		if _, ok := counts[name]; ok {
			order = append(order, name)
		}
	})
	for _, name := range g.Order {
		if !contains(order, name) {
			order = append(order, name)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	names := make(map[string]string, len(order))
	for i, name := range order {
		names[name] = strconv.Itoa(i)
	}
	return names
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func countRefs(p pattern.Pattern, counts map[string]int) {
	walkPattern(p, func(ref *pattern.Ref) {
		counts[ref.Name]++
	})
}

func refTargets(p pattern.Pattern) []string {
	var names []string
	walkPattern(p, func(ref *pattern.Ref) {
		names = append(names, ref.Name)
	})
	return names
}

// walkPattern visits every Ref reachable from p without following
// Ref -> Define edges (that would require resolving through the
// Grammar and could loop on a recursive grammar); it only needs the
// Ref nodes that are physically present in p's own subtree.
func walkPattern(p pattern.Pattern, visit func(*pattern.Ref)) {
	switch v := p.(type) {
	case *pattern.Ref:
		visit(v)
	case *pattern.List:
		walkPattern(v.Body, visit)
	case *pattern.OneOrMore:
		walkPattern(v.Body, visit)
	case *pattern.Choice:
		walkPattern(v.A, visit)
		walkPattern(v.B, visit)
	case *pattern.Group:
		walkPattern(v.A, visit)
		walkPattern(v.B, visit)
	case *pattern.Interleave:
		walkPattern(v.A, visit)
		walkPattern(v.B, visit)
	case *pattern.Element:
		walkPattern(v.Body, visit)
	case *pattern.Attribute:
		walkPattern(v.Body, visit)
	case *pattern.Data:
		if v.Except != nil {
			walkPattern(v.Except, visit)
		}
	}
}

type encoder struct {
	noPaths bool
	names   map[string]string
}

func (e *encoder) path(p pattern.Pattern) interface{} {
	if e.noPaths {
		return nil
	}
	return p.Path()
}

func (e *encoder) name(name string) string {
	if n, ok := e.names[name]; ok {
		return n
	}
	return name
}

func (e *encoder) grammar(g *pattern.Grammar) []interface{} {
	defs := []interface{}{CodeArray}
	for _, name := range g.Order {
		defs = append(defs, e.define(g.Defines[name]))
	}
	return []interface{}{CodeGrammar, e.path(g), e.pattern(g.Start), defs}
}

func (e *encoder) define(d *pattern.Define) []interface{} {
	return []interface{}{CodeDefine, e.path(d), e.name(d.Name), e.pattern(d.Body)}
}

func (e *encoder) pattern(p pattern.Pattern) interface{} {
	switch v := p.(type) {
	case *pattern.Empty:
		return []interface{}{CodeEmpty, e.path(p)}
	case *pattern.NotAllowed:
		return []interface{}{CodeNotAllowed, e.path(p)}
	case *pattern.Text:
		return []interface{}{CodeText, e.path(p)}
	case *pattern.Value:
		return []interface{}{CodeValue, e.path(p), v.Type, v.DatatypeLibrary, v.NS, v.Literal}
	case *pattern.Data:
		params := []interface{}{CodeArray}
		for _, p := range v.Params {
			params = append(params, []interface{}{CodeParam, nil, p.Name, p.Value})
		}
		var except interface{}
		if v.Except != nil {
			except = e.pattern(v.Except)
		}
		return []interface{}{CodeData, e.path(p), v.Type, v.DatatypeLibrary, params, except}
	case *pattern.List:
		return []interface{}{CodeList, e.path(p), e.pattern(v.Body)}
	case *pattern.Ref:
		return []interface{}{CodeRef, e.path(p), e.name(v.Name)}
	case *pattern.OneOrMore:
		return []interface{}{CodeOneOrMore, e.path(p), e.pattern(v.Body)}
	case *pattern.Choice:
		return []interface{}{CodeChoice, e.path(p), e.pattern(v.A), e.pattern(v.B)}
	case *pattern.Group:
		return []interface{}{CodeGroup, e.path(p), e.pattern(v.A), e.pattern(v.B)}
	case *pattern.Interleave:
		return []interface{}{CodeInterleave, e.path(p), e.pattern(v.A), e.pattern(v.B)}
	case *pattern.Element:
		return []interface{}{CodeElement, e.path(p), e.nameClass(v.NameClass), e.pattern(v.Body)}
	case *pattern.Attribute:
		return []interface{}{CodeAttribute, e.path(p), e.nameClass(v.NameClass), e.pattern(v.Body)}
	default:
		panic(fmt.Sprintf("compact: unexpected pattern kind %v", p.Kind()))
	}
}

func (e *encoder) nameClass(nc pattern.NameClass) interface{} {
	switch v := nc.(type) {
	case pattern.Name:
		return []interface{}{CodeName, v.NS, v.Local}
	case pattern.NameChoice:
		return []interface{}{CodeNameChoice, e.nameClass(v.A), e.nameClass(v.B)}
	case pattern.NsName:
		var except interface{}
		if v.Except != nil {
			except = e.nameClass(v.Except)
		}
		return []interface{}{CodeNsName, v.NS, except}
	case pattern.AnyName:
		var except interface{}
		if v.Except != nil {
			except = e.nameClass(v.Except)
		}
		return []interface{}{CodeAnyName, except}
	default:
		panic(fmt.Sprintf("compact: unexpected name-class kind %v", nc.NameKind()))
	}
}

// Read parses a compact-format envelope and rebuilds the Grammar it
// denotes.
func Read(r io.Reader) (*pattern.Grammar, error) {
	var doc struct {
		V *int           `json:"v"`
		O int            `json:"o"`
		D []interface{}  `json:"d"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, rngerr.New(rngerr.ResourceLoad, "", "invalid compact-format envelope: %v", err)
	}
	if doc.V == nil {
		return nil, rngerr.New(rngerr.OldFormat, "", "compact-format envelope has no version field")
	}
	if *doc.V != formatVersion {
		return nil, rngerr.New(rngerr.UnknownFormat, "", "compact-format version %d is not supported (want %d)", *doc.V, formatVersion)
	}
	dec := &decoder{}
	return dec.grammar(doc.D)
}

type decoder struct {
	g *pattern.Grammar
}

func (d *decoder) code(node []interface{}) Code {
	n, ok := node[0].(float64)
	if !ok {
		rngerr.Stop(rngerr.ResourceLoad, "", "compact-format node has a non-numeric code")
	}
	return Code(int(n))
}

func asNode(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	n, ok := v.([]interface{})
	if !ok {
		rngerr.Stop(rngerr.ResourceLoad, "", "compact-format node is not an array")
	}
	return n
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func (d *decoder) grammar(node []interface{}) (g *pattern.Grammar, err error) {
	defer rngerr.Catch(&err)
	if d.code(node) != CodeGrammar {
		rngerr.Stop(rngerr.ResourceLoad, "", "expected a Grammar node, got code %d", d.code(node))
	}
	g = &pattern.Grammar{Defines: make(map[string]*pattern.Define)}
	d.g = g
	startNode := asNode(node[2])
	defsNode := asNode(node[3])

	// Defines are registered by name before any body is decoded, since
	// a Ref anywhere in the payload (including inside an earlier
	// Define's own body, for a recursive grammar) must be able to find
	// its target through g.Defines regardless of declaration order.
	var defNodes [][]interface{}
	for _, raw := range defsNode[1:] {
		defNode := asNode(raw)
		if d.code(defNode) != CodeDefine {
			rngerr.Stop(rngerr.ResourceLoad, "", "expected a Define node, got code %d", d.code(defNode))
		}
		name := asString(defNode[2])
		def := &pattern.Define{Name: name}
		g.Defines[name] = def
		g.Order = append(g.Order, name)
		defNodes = append(defNodes, defNode)
	}
	for _, defNode := range defNodes {
		name := asString(defNode[2])
		g.Defines[name].Body = d.pattern(asNode(defNode[3]))
	}
	g.Start = d.pattern(startNode)
	return g, nil
}

func (d *decoder) pattern(node []interface{}) pattern.Pattern {
	if node == nil {
		return nil
	}
	switch d.code(node) {
	case CodeEmpty:
		return &pattern.Empty{}
	case CodeNotAllowed:
		return &pattern.NotAllowed{}
	case CodeText:
		return &pattern.Text{}
	case CodeValue:
		return &pattern.Value{
			Type:            asString(node[2]),
			DatatypeLibrary: asString(node[3]),
			NS:              asString(node[4]),
			Literal:         asString(node[5]),
		}
	case CodeData:
		data := &pattern.Data{
			Type:            asString(node[2]),
			DatatypeLibrary: asString(node[3]),
		}
		for _, raw := range asNode(node[4])[1:] {
			p := asNode(raw)
			data.Params = append(data.Params, pattern.Param{Name: asString(p[2]), Value: asString(p[3])})
		}
		if except := asNode(node[5]); except != nil {
			data.Except = d.pattern(except)
		}
		return data
	case CodeList:
		return &pattern.List{Body: d.pattern(asNode(node[2]))}
	case CodeRef:
		return pattern.NewRef(d.g, asString(node[2]))
	case CodeOneOrMore:
		return &pattern.OneOrMore{Body: d.pattern(asNode(node[2]))}
	case CodeChoice:
		return &pattern.Choice{A: d.pattern(asNode(node[2])), B: d.pattern(asNode(node[3]))}
	case CodeGroup:
		return &pattern.Group{A: d.pattern(asNode(node[2])), B: d.pattern(asNode(node[3]))}
	case CodeInterleave:
		return &pattern.Interleave{A: d.pattern(asNode(node[2])), B: d.pattern(asNode(node[3]))}
	case CodeElement:
		return &pattern.Element{NameClass: d.nameClass(asNode(node[2])), Body: d.pattern(asNode(node[3]))}
	case CodeAttribute:
		return &pattern.Attribute{NameClass: d.nameClass(asNode(node[2])), Body: d.pattern(asNode(node[3]))}
	default:
		rngerr.Stop(rngerr.ResourceLoad, "", "unexpected pattern code %d", d.code(node))
		panic("unreachable")
	}
}

func (d *decoder) nameClass(node []interface{}) pattern.NameClass {
	switch d.code(node) {
	case CodeName:
		return pattern.Name{NS: asString(node[1]), Local: asString(node[2])}
	case CodeNameChoice:
		return pattern.NameChoice{A: d.nameClass(asNode(node[1])), B: d.nameClass(asNode(node[2]))}
	case CodeNsName:
		nc := pattern.NsName{NS: asString(node[1])}
		if except := asNode(node[2]); except != nil {
			nc.Except = d.nameClass(except)
		}
		return nc
	case CodeAnyName:
		nc := pattern.AnyName{}
		if except := asNode(node[1]); except != nil {
			nc.Except = d.nameClass(except)
		}
		return nc
	default:
		rngerr.Stop(rngerr.ResourceLoad, "", "unexpected name-class code %d", d.code(node))
		panic("unreachable")
	}
}

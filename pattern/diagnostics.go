package pattern

import (
	"sort"
	"strings"

	"aqwari.net/relaxng/internal/dependency"
	"aqwari.net/relaxng/rngerr"
)

// rootRef is the synthetic dependency.Graph target standing in for
// Grammar.Start's own position in the reference graph, distinct from
// any real NCName a schema's define/name attributes could carry.
const rootRef = "\x00start"

// checkReferences walks every Ref reachable from Start and from each
// Define's body and reports two structural problems spec.md §8's
// property 2 calls for in a built Grammar: a Ref naming a Define that
// does not exist, and a Define nobody ever refers to. internal/
// dependency.Graph builds the define -> ref-target edges and supplies
// the same deterministic, map-order-independent walk order compact's
// rename pass uses, so the orphan list here and the ids frequencyRenames
// assigns are both reproducible across runs of the same Grammar.
func checkReferences(g *Grammar) error {
	var graph dependency.Graph
	referenced := make(map[string]bool)
	var unresolved []string

	record := func(owner string, body Pattern) {
		graph.Add(owner, owner)
		walkRefs(body, func(ref *Ref) {
			referenced[ref.Name] = true
			graph.Add(owner, ref.Name)
			if _, ok := g.Defines[ref.Name]; !ok {
				unresolved = append(unresolved, ref.Name)
			}
		})
	}
	record(rootRef, g.Start)
	for _, name := range g.Order {
		record(name, g.Defines[name].Body)
	}

	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		return rngerr.New(rngerr.SchemaStructure, "", "unresolved ref(s): %s", strings.Join(unresolved, ", "))
	}

	var orphans []string
	graph.Flatten(func(name string) {
		if _, ok := g.Defines[name]; ok && !referenced[name] {
			orphans = append(orphans, name)
		}
	})
	if len(orphans) > 0 {
		return rngerr.New(rngerr.SchemaStructure, "", "orphan definition(s), never referenced by any ref: %s", strings.Join(orphans, ", "))
	}
	return nil
}

// walkRefs visits every Ref physically present in p's own subtree,
// without resolving Ref -> Define (that would require the owning
// Grammar and could loop on a recursive grammar); the same restriction
// compact.walkPattern observes for the same reason.
func walkRefs(p Pattern, visit func(*Ref)) {
	switch v := p.(type) {
	case *Ref:
		visit(v)
	case *List:
		walkRefs(v.Body, visit)
	case *OneOrMore:
		walkRefs(v.Body, visit)
	case *Choice:
		walkRefs(v.A, visit)
		walkRefs(v.B, visit)
	case *Group:
		walkRefs(v.A, visit)
		walkRefs(v.B, visit)
	case *Interleave:
		walkRefs(v.A, visit)
		walkRefs(v.B, visit)
	case *Element:
		walkRefs(v.Body, visit)
	case *Attribute:
		walkRefs(v.Body, visit)
	case *Data:
		if v.Except != nil {
			walkRefs(v.Except, visit)
		}
	}
}

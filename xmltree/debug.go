//go:build rngdebug

package xmltree

import "fmt"

// assertNoCycle panics if attaching node under newParent would make
// node an ancestor of itself. This check walks newParent's ancestor
// chain, so it is only enabled under the rngdebug build tag: the cost
// is linear in tree depth per mutation, which is wasted work once a
// schema tree is known to be well-formed.
func assertNoCycle(node Node, newParent *Element) {
	el, ok := node.(*Element)
	if !ok || newParent == nil {
		return
	}
	for p := newParent; p != nil; p = p.parent {
		if p == el {
			panic(fmt.Sprintf("xmltree: cycle detected: %s is already an ancestor of its new parent", el.Path()))
		}
	}
}

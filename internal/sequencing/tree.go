package sequencing

import (
	"github.com/mind-engage/scorm-engine/internal/content"
)

// Tree is the reconstructed content hierarchy of one organization. Nodes
// live in a flat arena indexed by position; parent and children are arena
// indices. The tree is immutable after Build and safe for concurrent reads.
type Tree struct {
	nodes        []Node
	roots        []int
	byID         map[int64]int
	byIdentifier map[string]int
}

// Node is one arena slot.
type Node struct {
	SCO      content.SCO
	Parent   int // arena index, -1 at the top level
	Children []int
}

// Build reconstructs the hierarchy from flat parent pointers: one pass to
// index every object by identifier, one pass to attach each to its
// parent's children list. Objects whose parent identifier is unknown sit
// at the top level rather than vanishing.
func Build(scoes []content.SCO) *Tree {
	t := &Tree{
		nodes:        make([]Node, len(scoes)),
		byID:         make(map[int64]int, len(scoes)),
		byIdentifier: make(map[string]int, len(scoes)),
	}
	for i, sco := range scoes {
		t.nodes[i] = Node{SCO: sco, Parent: -1}
		t.byID[sco.ID] = i
		t.byIdentifier[sco.Identifier] = i
	}
	for i, sco := range scoes {
		parent, ok := t.byIdentifier[sco.Parent]
		if !ok || sco.Parent == content.RootParent || parent == i {
			t.roots = append(t.roots, i)
			continue
		}
		t.nodes[i].Parent = parent
		t.nodes[parent].Children = append(t.nodes[parent].Children, i)
	}
	return t
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the arena slot at idx.
func (t *Tree) Node(idx int) *Node { return &t.nodes[idx] }

// IndexOf locates a SCO by its numeric id.
func (t *Tree) IndexOf(id int64) (int, bool) {
	idx, ok := t.byID[id]
	return idx, ok
}

// IndexOfIdentifier locates a SCO by its package-scoped identifier.
func (t *Tree) IndexOfIdentifier(identifier string) (int, bool) {
	idx, ok := t.byIdentifier[identifier]
	return idx, ok
}

// Flatten returns arena indices in depth-first document order: each node
// before its children, siblings in input order.
func (t *Tree) Flatten() []int {
	out := make([]int, 0, len(t.nodes))
	var walk func(int)
	walk = func(idx int) {
		out = append(out, idx)
		for _, child := range t.nodes[idx].Children {
			walk(child)
		}
	}
	for _, root := range t.roots {
		walk(root)
	}
	return out
}

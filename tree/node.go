package tree

// Kind distinguishes the two node variants. The set is closed: traversal code
// switches exhaustively over it.
type Kind uint8

const (
	// KindFolder is an internal node owning an ordered list of children.
	KindFolder Kind = iota
	// KindData is a leaf carrying a reference to an external payload.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindData:
		return "data"
	}
	return "unknown"
}

// Payload is the externally-owned object associated with a Data node. The
// engine is the sole owner of the node; the payload only holds a weak
// back-reference, installed on create and cleared on delete/merge. A payload
// may outlive its node's removal.
type Payload interface {
	// PayloadKey returns a stable identity string for the payload (e.g. a
	// UUID). FullPath is a mutable cache; collaborators needing long-term
	// identity key off this instead.
	PayloadKey() string

	// SetNode installs the back-reference to the owning Data node, or clears
	// it when called with nil.
	SetNode(n *Node)
}

// Node is a single entry in the namespace: either a Folder or a Data leaf,
// per its Kind. All mutation goes through Tree operations; external holders
// treat a Node as read-only and as invalidated once a Delete/Merge removes it.
type Node struct {
	id         uint64
	kind       Kind
	name       string
	fullPath   string // cached root-relative path, '/'-separated
	nameOffset int    // offset into fullPath where name begins
	parent     *Node  // nil only for the root
	index      int    // position within parent's ordered children
	depth      int    // distance from the root
	locked     bool
	selected   bool

	// folder state
	children         []*Node
	totalDescendants int
	totalDataNodes   int
	expanded         bool

	// data state
	payload Payload
}

// ID returns the node's identifier: unique for the lifetime of the tree,
// monotonically assigned, never reused.
func (n *Node) ID() uint64 { return n.id }

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the node's name (last path component).
func (n *Node) Name() string { return n.name }

// Path returns the cached root-relative path. The root's path is "".
func (n *Node) Path() string { return n.fullPath }

// NameOffset returns the offset into Path at which Name begins, so callers
// can slice the directory prefix without recomputation.
func (n *Node) NameOffset() int { return n.nameOffset }

// Dir returns the path of the containing folder, sliced from the cached path.
func (n *Node) Dir() string {
	if n.nameOffset == 0 {
		return ""
	}
	return n.fullPath[:n.nameOffset-1]
}

// Parent returns the containing folder; nil only for the root.
func (n *Node) Parent() *Node { return n.parent }

// IndexInParent returns the node's position within its parent's children.
func (n *Node) IndexInParent() int { return n.index }

// Depth returns the distance from the root.
func (n *Node) Depth() int { return n.depth }

func (n *Node) Locked() bool   { return n.locked }
func (n *Node) Selected() bool { return n.selected }

// Expanded reports the folder's UI expansion flag; always false for data nodes.
func (n *Node) Expanded() bool { return n.expanded }

// IsFolder reports whether the node is the Folder variant.
func (n *Node) IsFolder() bool { return n.kind == KindFolder }

// IsData reports whether the node is the Data variant.
func (n *Node) IsData() bool { return n.kind == KindData }

// IsRoot reports whether the node is the distinguished root folder.
func (n *Node) IsRoot() bool { return n.parent == nil && n.kind == KindFolder }

// Payload returns the external payload of a Data node; nil for folders.
func (n *Node) Payload() Payload { return n.payload }

// Children returns the folder's ordered children. The slice is owned by the
// tree; callers must not mutate it and must not retain it across mutations.
func (n *Node) Children() []*Node { return n.children }

// ChildCount returns the number of immediate children.
func (n *Node) ChildCount() int { return len(n.children) }

// TotalDescendants returns the recursive count of all nodes below the folder.
func (n *Node) TotalDescendants() int { return n.totalDescendants }

// TotalDataNodes returns the recursive count of Data leaves below the folder.
func (n *Node) TotalDataNodes() int { return n.totalDataNodes }

// Walk visits the node and every descendant depth-first in child order,
// stopping early if fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// subtreeCounts returns the node's own contribution to ancestor counters:
// the subtree size including the node itself, and the data leaves within.
func subtreeCounts(n *Node) (nodes, data int) {
	nodes = 1
	if n.kind == KindData {
		return nodes, 1
	}
	return nodes + n.totalDescendants, n.totalDataNodes
}

// applyCountDelta walks from folder to the root applying a counter delta.
func applyCountDelta(folder *Node, nodes, data int) {
	for f := folder; f != nil; f = f.parent {
		f.totalDescendants += nodes
		f.totalDataNodes += data
	}
}

// insertChildAt places child at position i in parent's sorted children,
// shifting the tail and refreshing the shifted indices.
func insertChildAt(parent *Node, i int, child *Node) {
	parent.children = append(parent.children, nil)
	copy(parent.children[i+1:], parent.children[i:])
	parent.children[i] = child
	child.parent = parent
	for j := i; j < len(parent.children); j++ {
		parent.children[j].index = j
	}
}

// removeChildAt detaches the child at position i, shifting the tail and
// refreshing the shifted indices. The detached node keeps its subtree but
// loses its parent link.
func removeChildAt(parent *Node, i int) *Node {
	child := parent.children[i]
	copy(parent.children[i:], parent.children[i+1:])
	parent.children[len(parent.children)-1] = nil
	parent.children = parent.children[:len(parent.children)-1]
	for j := i; j < len(parent.children); j++ {
		parent.children[j].index = j
	}
	child.parent = nil
	child.index = 0
	return child
}

// isInSubtree reports whether candidate is node itself or a descendant of
// node, by walking upward from candidate toward the root. Every reparenting
// operation must run this check before detaching.
func isInSubtree(node, candidate *Node) bool {
	for p := candidate; p != nil; p = p.parent {
		if p == node {
			return true
		}
	}
	return false
}

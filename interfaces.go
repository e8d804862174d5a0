package arbor

import "github.com/arborfs/arbor/tree"

// NodeInfo provides read-only access to node information for external
// consumers that should not see the mutating surface.
type NodeInfo interface {
	// Name returns the node's name (last path component)
	Name() string

	// ID returns the unique node identifier
	ID() uint64

	// Path returns the full root-relative path of the node
	Path() string

	// IsFolder reports whether the node is a folder
	IsFolder() bool

	// Depth returns the distance from the root
	Depth() int
}

var _ NodeInfo = (*tree.Node)(nil)

// TreeOperator defines the core namespace operations that external consumers
// need; *tree.Tree is the only implementation.
type TreeOperator interface {
	Root() *tree.Node
	Find(path string) (*tree.Node, bool)
	CreateFolder(parent *tree.Node, name string) (*tree.Node, error)
	CreateDataNode(parent *tree.Node, name string, payload tree.Payload) (*tree.Node, error)
	FindOrCreateAllFolders(path string) (*tree.Node, error)
	Delete(n *tree.Node) error
}

var _ TreeOperator = (*tree.Tree)(nil)

package tree

import (
	"sync/atomic"

	"github.com/arborfs/arbor/config"
	"github.com/arborfs/arbor/internal/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// rootID is the id assigned to the root folder when a Tree is constructed.
const rootID = 1

// Tree is the namespace engine: it owns the entire node graph and is the only
// way to mutate it. All mutating operations must run on a single goroutine
// (the host's main thread); the engine takes no internal locks. NodeByID reads
// go through a concurrent registry and are safe from any goroutine.
type Tree struct {
	cfg  *config.Config
	cmp  Comparer
	root *Node

	lastID   atomic.Uint64             // last node id assigned; ids are never reused
	registry *xsync.MapOf[uint64, *Node] // maps live node ids to nodes

	subs      []changeSub
	pathSubs  []pathSub
	nextSubID uint64
}

// NewTree constructs an empty namespace with only the root folder. A nil cfg
// uses defaults. The comparer is fixed here and cannot change afterwards.
func NewTree(cfg *config.Config) *Tree {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	cmp := Comparer(CompareFold)
	if cfg.CaseSensitive {
		cmp = CompareOrdinal
	}

	root := &Node{id: rootID, kind: KindFolder, expanded: true}

	t := &Tree{
		cfg:      cfg,
		cmp:      cmp,
		root:     root,
		registry: xsync.NewMapOf[uint64, *Node](),
	}
	t.lastID.Store(rootID)
	t.registry.Store(rootID, root)
	return t
}

// Root returns the distinguished root folder. It is never renameable,
// movable, or deletable.
func (t *Tree) Root() *Node { return t.root }

// NodeByID resolves a live node by its stable id. Safe to call from any
// goroutine.
func (t *Tree) NodeByID(id uint64) (*Node, bool) {
	return t.registry.Load(id)
}

// Comparer returns the name ordering fixed at construction.
func (t *Tree) Comparer() Comparer { return t.cmp }

func (t *Tree) fixName(raw string) string {
	return FixName(raw, t.cfg.Placeholder)
}

// searchChildren binary-searches parent's sorted children for name. When the
// name is absent, idx is the insertion point that keeps the list sorted.
func (t *Tree) searchChildren(parent *Node, name string) (idx int, found bool) {
	lo, hi := 0, len(parent.children)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c := t.cmp(parent.children[mid].name, name)
		if c == 0 {
			return mid, true
		}
		if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, false
}

// childPath joins a prospective child name onto parent's cached path.
func childPath(parent *Node, name string) string {
	if parent.parent == nil {
		return name
	}
	return parent.fullPath + string(Separator) + name
}

// computePath refreshes the node's cached path, name offset and depth from
// its parent's cache.
func (t *Tree) computePath(n *Node) {
	p := n.parent
	switch {
	case p == nil:
		n.fullPath, n.nameOffset, n.depth = "", 0, 0
	case p == t.root:
		n.fullPath, n.nameOffset, n.depth = n.name, 0, 1
	default:
		n.fullPath = p.fullPath + string(Separator) + n.name
		n.nameOffset = len(p.fullPath) + 1
		n.depth = p.depth + 1
	}
}

// refreshSubtreePaths recomputes the cached paths of n and every descendant,
// then fires the path feed for each Data node whose path actually changed.
func (t *Tree) refreshSubtreePaths(n *Node) {
	var changed []PathChange
	t.updatePaths(n, &changed)
	for _, pc := range changed {
		t.emitPathChange(pc)
	}
}

func (t *Tree) updatePaths(n *Node, out *[]PathChange) {
	old := n.fullPath
	t.computePath(n)
	if n.kind == KindData && old != n.fullPath {
		*out = append(*out, PathChange{Node: n, OldPath: old})
	}
	for _, c := range n.children {
		t.updatePaths(c, out)
	}
}

// detach removes n from its parent and walks the counter delta up to the root.
func (t *Tree) detach(n *Node) {
	parent := n.parent
	nodes, data := subtreeCounts(n)
	removeChildAt(parent, n.index)
	applyCountDelta(parent, -nodes, -data)
}

// attachAt inserts n into parent's children at the sorted position idx and
// walks the counter delta up to the root.
func (t *Tree) attachAt(n, parent *Node, idx int) {
	insertChildAt(parent, idx, n)
	nodes, data := subtreeCounts(n)
	applyCountDelta(parent, nodes, data)
}

func (t *Tree) newNode(kind Kind, name string, payload Payload) *Node {
	return &Node{
		id:      t.lastID.Add(1),
		kind:    kind,
		name:    name,
		payload: payload,
	}
}

// destroy retires every node in the subtree: registry entries are dropped and
// Data payload back-references severed. Ids are never handed out again.
func (t *Tree) destroy(n *Node) {
	n.Walk(func(m *Node) bool {
		t.registry.Delete(m.id)
		if m.kind == KindData && m.payload != nil {
			m.payload.SetNode(nil)
		}
		return true
	})
}

// Find walks the tree from the root along path, binary-searching each
// folder's children per segment. On failure it returns the deepest folder
// reached and false; a non-terminal segment naming a Data leaf is a failure.
// The empty path finds the root.
func (t *Tree) Find(path string) (node *Node, found bool) {
	cur := t.root
	seg, rest := SplitDirectory(path)
	for seg != "" {
		idx, ok := t.searchChildren(cur, seg)
		if !ok {
			return cur, false
		}
		child := cur.children[idx]
		next, nextRest := SplitDirectory(rest)
		if next != "" && !child.IsFolder() {
			return cur, false
		}
		cur = child
		seg, rest = next, nextRest
	}
	return cur, true
}

// Lookup is Find with an error surface: a miss yields a not-found error
// identifying the requested path instead of the deepest folder reached.
func (t *Tree) Lookup(path string) (*Node, error) {
	n, ok := t.Find(path)
	if !ok {
		return nil, newError(KindNotFound, path, "no such node")
	}
	return n, nil
}

// createChild is the shared factory behind the public create operations.
func (t *Tree) createChild(parent *Node, raw string, kind Kind, payload Payload, dedup bool) (*Node, error) {
	if parent == nil {
		parent = t.root
	}
	if !parent.IsFolder() {
		return nil, newError(KindInvalidTarget, parent.fullPath, "parent is not a folder")
	}

	name := t.fixName(raw)
	idx, found := t.searchChildren(parent, name)
	for found {
		if !dedup {
			return nil, newError(KindNameCollision, childPath(parent, name), "an item of that name already exists")
		}
		name = IncrementDuplicate(name)
		idx, found = t.searchChildren(parent, name)
	}

	n := t.newNode(kind, name, payload)
	t.attachAt(n, parent, idx)
	t.computePath(n)
	t.registry.Store(n.id, n)
	if payload != nil {
		payload.SetNode(n)
	}

	evKind := FolderAdded
	if kind == KindData {
		evKind = DataAdded
	}
	t.emit(Change{Kind: evKind, Node: n, NewParent: parent})
	return n, nil
}

// CreateFolder creates a new empty folder under parent (the root when parent
// is nil). It fails with a name collision if any sibling of that name exists,
// folder or not.
func (t *Tree) CreateFolder(parent *Node, name string) (*Node, error) {
	folder, err := t.createChild(parent, name, KindFolder, nil, false)
	if err != nil {
		return nil, err
	}
	logger := util.GetLogger("Tree.CreateFolder")
	logger.Debug().Str("path", folder.fullPath).Uint64("id", folder.id).Msg("Created folder")
	return folder, nil
}

// CreateDataNode creates a Data leaf under parent carrying payload, and
// installs the payload's back-reference. It fails with a name collision if
// any sibling of that name exists, regardless of its kind.
func (t *Tree) CreateDataNode(parent *Node, name string, payload Payload) (*Node, error) {
	return t.createChild(parent, name, KindData, payload, false)
}

// CreateDuplicateDataNode is CreateDataNode with automatic duplicate-name
// resolution: the candidate name is incremented ("X" -> "X (2)" -> "X (3)")
// until no sibling collides. It never fails due to naming.
func (t *Tree) CreateDuplicateDataNode(parent *Node, name string, payload Payload) (*Node, error) {
	return t.createChild(parent, name, KindData, payload, true)
}

// FindOrCreateFolder returns the existing folder child of that name, creating
// it when absent. It fails only when a non-folder sibling of that name exists.
func (t *Tree) FindOrCreateFolder(parent *Node, name string) (*Node, error) {
	if parent == nil {
		parent = t.root
	}
	if !parent.IsFolder() {
		return nil, newError(KindInvalidTarget, parent.fullPath, "parent is not a folder")
	}

	fixed := t.fixName(name)
	if idx, found := t.searchChildren(parent, fixed); found {
		child := parent.children[idx]
		if !child.IsFolder() {
			return nil, newError(KindNameCollision, childPath(parent, fixed), "a non-folder item of that name already exists")
		}
		return child, nil
	}
	return t.createChild(parent, fixed, KindFolder, nil, false)
}

// FindOrCreateAllFolders resolves path from the root, creating every missing
// folder along the way. On a collision with a non-folder segment the already
// created prefix remains and the returned error identifies the failing
// segment's path.
func (t *Tree) FindOrCreateAllFolders(path string) (*Node, error) {
	return t.findOrCreateFolders(splitSegments(path))
}

func (t *Tree) findOrCreateFolders(segments []string) (*Node, error) {
	cur := t.root
	for _, seg := range segments {
		next, err := t.FindOrCreateFolder(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// splitSegments breaks a path into its non-empty trimmed segments.
func splitSegments(path string) []string {
	var segs []string
	for {
		seg, rest := SplitDirectory(path)
		if seg == "" {
			return segs
		}
		segs = append(segs, seg)
		path = rest
	}
}

// Rename renames a non-root node in place, relocating it within its parent's
// sorted children. Renaming a node to its current name is a reported no-op.
// A sibling already holding the fixed new name fails with ItemExists.
func (t *Tree) Rename(n *Node, newName string) (Outcome, error) {
	return t.rename(n, newName, false)
}

// RenameWithDuplicates is Rename with automatic duplicate-name resolution
// instead of an ItemExists failure.
func (t *Tree) RenameWithDuplicates(n *Node, newName string) (Outcome, error) {
	return t.rename(n, newName, true)
}

func (t *Tree) rename(n *Node, raw string, dedup bool) (Outcome, error) {
	if n == nil {
		return InvalidOperation, newError(KindInvalidTarget, "", "nil node")
	}
	if n.IsRoot() {
		return InvalidOperation, newError(KindRootViolation, "", "cannot rename the root")
	}

	name := t.fixName(raw)
	for {
		idx, found := t.searchChildren(n.parent, name)
		if !found {
			break
		}
		if n.parent.children[idx] == n {
			if name == n.name {
				return SuccessNothingDone, nil
			}
			// Comparer-equal variant of the node's own name (e.g. a case
			// change): rename in place.
			break
		}
		if !dedup {
			return ItemExists, newError(KindNameCollision, childPath(n.parent, name), "an item of that name already exists")
		}
		name = IncrementDuplicate(name)
	}

	t.relocate(n, name)
	t.refreshSubtreePaths(n)
	t.emit(Change{Kind: ObjectRenamed, Node: n})
	return Success, nil
}

// relocate renames n and re-inserts it at the sorted position within its
// current parent, shifting only the indices between the old and new slots.
func (t *Tree) relocate(n *Node, name string) {
	parent := n.parent
	removeChildAt(parent, n.index)
	n.name = name
	idx, _ := t.searchChildren(parent, name)
	insertChildAt(parent, idx, n)
}

// Move reparents a non-root node into newParent, keeping the destination's
// children sorted. Moving into the current parent is a reported no-op. When
// the destination already holds a same-named folder and n is itself a folder
// the move degrades into Merge(n, sibling); a same-named non-folder sibling
// fails with ItemExists.
func (t *Tree) Move(n, newParent *Node) (Outcome, error) {
	if n == nil || newParent == nil {
		return InvalidOperation, newError(KindInvalidTarget, "", "nil node")
	}
	if n.IsRoot() {
		return InvalidOperation, newError(KindRootViolation, "", "cannot move the root")
	}
	if !newParent.IsFolder() {
		return InvalidOperation, newError(KindInvalidTarget, newParent.fullPath, "destination is not a folder")
	}
	if newParent == n.parent {
		return SuccessNothingDone, nil
	}
	if isInSubtree(n, newParent) {
		return CircularReference, newError(KindCircularReference, newParent.fullPath, "destination is inside the moved subtree")
	}

	idx, found := t.searchChildren(newParent, n.name)
	if found {
		sibling := newParent.children[idx]
		if sibling.IsFolder() && n.IsFolder() {
			return t.Merge(n, sibling)
		}
		return ItemExists, newError(KindNameCollision, childPath(newParent, n.name), "an item of that name already exists")
	}

	prev := n.parent
	t.detach(n)
	t.attachAt(n, newParent, idx)
	t.refreshSubtreePaths(n)
	t.emit(Change{Kind: ObjectMoved, Node: n, PrevParent: prev, NewParent: newParent})
	return Success, nil
}

// RenameAndMove resolves newPath into a folder prefix (created on demand via
// the FindOrCreateAllFolders rules) and a final name, then reparents and
// renames n in a single structural step. The operation is reported as one
// ObjectMoved change even when only the name differs.
func (t *Tree) RenameAndMove(n *Node, newPath string) (Outcome, error) {
	return t.renameAndMove(n, newPath, false)
}

// RenameAndMoveWithDuplicates is RenameAndMove with automatic duplicate-name
// resolution on the final name.
func (t *Tree) RenameAndMoveWithDuplicates(n *Node, newPath string) (Outcome, error) {
	return t.renameAndMove(n, newPath, true)
}

func (t *Tree) renameAndMove(n *Node, newPath string, dedup bool) (Outcome, error) {
	if n == nil {
		return InvalidOperation, newError(KindInvalidTarget, "", "nil node")
	}
	if n.IsRoot() {
		return InvalidOperation, newError(KindRootViolation, "", "cannot move the root")
	}

	segments := splitSegments(newPath)
	if len(segments) == 0 {
		return InvalidOperation, newError(KindInvalidTarget, newPath, "empty destination path")
	}
	name := t.fixName(segments[len(segments)-1])

	dest := t.root
	if len(segments) > 1 {
		var err error
		if dest, err = t.findOrCreateFolders(segments[:len(segments)-1]); err != nil {
			return ItemExists, err
		}
	}
	// The prefix folders may have just been created, so the cycle check has
	// to run against the resolved destination, not the raw path.
	if isInSubtree(n, dest) {
		return CircularReference, newError(KindCircularReference, dest.fullPath, "destination is inside the moved subtree")
	}

	for {
		idx, found := t.searchChildren(dest, name)
		if !found {
			break
		}
		if dest.children[idx] == n {
			if name == n.name {
				return SuccessNothingDone, nil
			}
			break
		}
		if !dedup {
			return ItemExists, newError(KindNameCollision, childPath(dest, name), "an item of that name already exists")
		}
		name = IncrementDuplicate(name)
	}

	prev := n.parent
	t.detach(n)
	n.name = name
	idx, _ := t.searchChildren(dest, name)
	t.attachAt(n, dest, idx)
	t.refreshSubtreePaths(n)
	t.emit(Change{Kind: ObjectMoved, Node: n, PrevParent: prev, NewParent: dest})
	return Success, nil
}

// Delete detaches a non-root node from its parent and retires its whole
// subtree: ids leave the registry for good and Data payload back-references
// are severed.
func (t *Tree) Delete(n *Node) error {
	if n == nil {
		return newError(KindInvalidTarget, "", "nil node")
	}
	if n.IsRoot() {
		return newError(KindRootViolation, "", "cannot delete the root")
	}

	prev := n.parent
	t.detach(n)
	t.destroy(n)
	t.emit(Change{Kind: ObjectRemoved, Node: n, PrevParent: prev})

	logger := util.GetLogger("Tree.Delete")
	logger.Debug().Str("path", n.fullPath).Uint64("id", n.id).Msg("Deleted node")
	return nil
}

// Merge moves every child of folder `from` into folder `to`, applying the
// same collision rules as Move per child: same-named folder pairs merge
// recursively, children colliding with a non-folder sibling stay behind.
// When every child moved, `from` itself is deleted and the outcome is
// Success; otherwise `from` survives with the leftovers and the outcome is
// PartialSuccess or, with zero children moved, NoSuccess.
//
// One aggregate change event describes the whole merge: FolderMerged for a
// full merge, PartialMerge for a partial one, nothing for NoSuccess (the
// tree did not change).
func (t *Tree) Merge(from, to *Node) (Outcome, error) {
	prev := (*Node)(nil)
	if from != nil {
		prev = from.parent
	}

	out, err := t.merge(from, to)
	if err != nil {
		return out, err
	}

	switch out {
	case Success:
		t.emit(Change{Kind: FolderMerged, Node: from, PrevParent: prev, NewParent: to})
	case PartialSuccess:
		t.emit(Change{Kind: PartialMerge, Node: from, PrevParent: prev, NewParent: to})
	}

	logger := util.GetLogger("Tree.Merge")
	logger.Debug().Str("to", to.fullPath).Stringer("outcome", out).Msg("Merged folder")
	return out, nil
}

func (t *Tree) merge(from, to *Node) (Outcome, error) {
	if from == nil || to == nil {
		return InvalidOperation, newError(KindInvalidTarget, "", "nil node")
	}
	if from.IsRoot() {
		return InvalidOperation, newError(KindRootViolation, "", "cannot merge the root away")
	}
	if !from.IsFolder() || !to.IsFolder() {
		return InvalidOperation, newError(KindInvalidTarget, from.fullPath, "merge requires two folders")
	}
	if from == to {
		return SuccessNothingDone, nil
	}
	if isInSubtree(from, to) {
		return CircularReference, newError(KindCircularReference, to.fullPath, "destination is inside the merged subtree")
	}

	// Children are moved off a snapshot: each successful move mutates
	// from.children under us.
	pending := make([]*Node, len(from.children))
	copy(pending, from.children)

	moved := 0
	for _, child := range pending {
		idx, found := t.searchChildren(to, child.name)
		if found {
			sibling := to.children[idx]
			if sibling.IsFolder() && child.IsFolder() {
				// Recursive merge; only a full merge removes the child
				// from `from`.
				if sub, _ := t.merge(child, sibling); sub == Success {
					moved++
				}
			}
			// A non-folder collision leaves the child behind.
			continue
		}
		t.detach(child)
		t.attachAt(child, to, idx)
		t.refreshSubtreePaths(child)
		moved++
	}

	if moved == len(pending) {
		// Everything moved (or the source was empty): the source folder goes.
		t.detach(from)
		t.destroy(from)
		return Success, nil
	}
	if moved == 0 {
		return NoSuccess, nil
	}
	return PartialSuccess, nil
}

// SetLocked flips the node's locked flag, emitting LockedChanged. Setting the
// current value is a silent no-op.
func (t *Tree) SetLocked(n *Node, locked bool) {
	if n == nil || n.locked == locked {
		return
	}
	n.locked = locked
	t.emit(Change{Kind: LockedChanged, Node: n})
}

// SetExpanded flips a folder's expanded flag, emitting ExpandedChanged.
// Ignored for data nodes.
func (t *Tree) SetExpanded(n *Node, expanded bool) {
	if n == nil || !n.IsFolder() || n.expanded == expanded {
		return
	}
	n.expanded = expanded
	t.emit(Change{Kind: ExpandedChanged, Node: n})
}

// SetSelected flips the node's selected flag, emitting SelectedChanged.
func (t *Tree) SetSelected(n *Node, selected bool) {
	if n == nil || n.selected == selected {
		return
	}
	n.selected = selected
	t.emit(Change{Kind: SelectedChanged, Node: n})
}

// BeginReload announces a bulk replay (e.g. the persistence collaborator
// loading a saved namespace); subscribers typically suspend incremental
// cache updates until EndReload.
func (t *Tree) BeginReload() {
	t.emit(Change{Kind: ReloadStarting})
}

// EndReload announces the end of a bulk replay.
func (t *Tree) EndReload() {
	t.emit(Change{Kind: Reload})
}

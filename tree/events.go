package tree

import "sort"

// ChangeKind identifies the mutation a Change describes.
type ChangeKind uint8

const (
	ObjectRenamed ChangeKind = iota
	ObjectRemoved
	FolderAdded
	DataAdded
	ObjectMoved
	FolderMerged // full merge: every child moved, source folder deleted
	PartialMerge // some children moved, source folder retained
	ReloadStarting
	Reload
	LockedChanged
	ExpandedChanged
	SelectedChanged
)

func (k ChangeKind) String() string {
	switch k {
	case ObjectRenamed:
		return "object-renamed"
	case ObjectRemoved:
		return "object-removed"
	case FolderAdded:
		return "folder-added"
	case DataAdded:
		return "data-added"
	case ObjectMoved:
		return "object-moved"
	case FolderMerged:
		return "folder-merged"
	case PartialMerge:
		return "partial-merge"
	case ReloadStarting:
		return "reload-starting"
	case Reload:
		return "reload"
	case LockedChanged:
		return "locked-changed"
	case ExpandedChanged:
		return "expanded-changed"
	case SelectedChanged:
		return "selected-changed"
	}
	return "unknown"
}

// Change describes one committed mutation. Exactly one Change is emitted per
// logically-completed operation; bulk merges emit a single aggregate event.
// PrevParent and NewParent are set where the kind makes them meaningful
// (moves, merges, removals).
type Change struct {
	Kind       ChangeKind
	Node       *Node
	PrevParent *Node
	NewParent  *Node
}

// PathChange is emitted on the dedicated path feed whenever a Data node's
// effective path changes, whether through its own rename/move or through an
// ancestor's. OldPath is the cached path before the mutation.
type PathChange struct {
	Node    *Node
	OldPath string
}

// ChangeHandler receives committed-mutation events.
type ChangeHandler func(Change)

// PathChangeHandler receives Data-node path-change events.
type PathChangeHandler func(PathChange)

type changeSub struct {
	id       uint64
	priority int
	fn       ChangeHandler
}

type pathSub struct {
	id uint64
	fn PathChangeHandler
}

// Subscribe registers handler on the change feed. Handlers run synchronously
// on the mutating goroutine, in ascending priority order (registration order
// for equal priorities), before the mutating call returns. A handler must not
// re-enter a mutating operation on the same Tree.
// The returned id unsubscribes via Unsubscribe.
func (t *Tree) Subscribe(priority int, handler ChangeHandler) uint64 {
	id := t.nextSubID
	t.nextSubID++
	t.subs = append(t.subs, changeSub{id: id, priority: priority, fn: handler})
	sort.SliceStable(t.subs, func(i, j int) bool {
		return t.subs[i].priority < t.subs[j].priority
	})
	return id
}

// Unsubscribe removes a change feed subscription by id.
func (t *Tree) Unsubscribe(id uint64) {
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

// SubscribePathChanges registers handler on the Data-node path feed. Path
// events for an operation fire before its Change event, so subscribers see
// old paths before learning of the structural change that invalidated them.
func (t *Tree) SubscribePathChanges(handler PathChangeHandler) uint64 {
	id := t.nextSubID
	t.nextSubID++
	t.pathSubs = append(t.pathSubs, pathSub{id: id, fn: handler})
	return id
}

// UnsubscribePathChanges removes a path feed subscription by id.
func (t *Tree) UnsubscribePathChanges(id uint64) {
	for i, s := range t.pathSubs {
		if s.id == id {
			t.pathSubs = append(t.pathSubs[:i], t.pathSubs[i+1:]...)
			return
		}
	}
}

func (t *Tree) emit(c Change) {
	for _, s := range t.subs {
		s.fn(c)
	}
}

func (t *Tree) emitPathChange(pc PathChange) {
	for _, s := range t.pathSubs {
		s.fn(pc)
	}
}

package persist

import (
	"github.com/arborfs/arbor/internal/util"
	"github.com/arborfs/arbor/tree"
)

// saverPriority runs the saver's feed handler after ordinary caches so it
// observes their updated state.
const saverPriority = 100

// Saver subscribes to the change and path feeds and keeps a dirty flag plus
// an incremental payload-key -> path index, so Flush never has to rescan the
// tree to know whether or what to write. Like all feed subscribers it runs on
// the mutating goroutine.
type Saver struct {
	t    *tree.Tree
	path string

	dirty     bool
	reloading bool
	index     map[string]string // payload key -> current full path

	subID     uint64
	pathSubID uint64
}

// NewSaver attaches a Saver for the given snapshot file. Call Close to
// detach it from the feeds.
func NewSaver(t *tree.Tree, path string) *Saver {
	s := &Saver{
		t:     t,
		path:  path,
		index: make(map[string]string),
	}
	s.subID = t.Subscribe(saverPriority, s.onChange)
	s.pathSubID = t.SubscribePathChanges(s.onPathChange)
	s.rebuildIndex()
	return s
}

// Close detaches the saver from the tree's feeds.
func (s *Saver) Close() {
	s.t.Unsubscribe(s.subID)
	s.t.UnsubscribePathChanges(s.pathSubID)
}

// Dirty reports whether mutations since the last Flush require a save.
func (s *Saver) Dirty() bool { return s.dirty }

// ItemPath returns the indexed path for a payload key.
func (s *Saver) ItemPath(key string) (string, bool) {
	p, ok := s.index[key]
	return p, ok
}

// Flush writes a snapshot if anything changed since the last one.
func (s *Saver) Flush() error {
	if !s.dirty {
		return nil
	}
	if err := Capture(s.t).Save(s.path); err != nil {
		return err
	}
	s.dirty = false
	logger := util.GetLogger("persist.Saver")
	logger.Debug().Str("path", s.path).Msg("Snapshot written")
	return nil
}

func (s *Saver) onChange(c tree.Change) {
	switch c.Kind {
	case tree.ReloadStarting:
		// Bulk replay ahead: skip incremental bookkeeping until it ends.
		s.reloading = true
		return
	case tree.Reload:
		s.reloading = false
		s.rebuildIndex()
		s.dirty = true
		return
	case tree.SelectedChanged:
		// Selection is transient UI state and is not persisted.
		return
	}
	if s.reloading {
		return
	}

	switch c.Kind {
	case tree.DataAdded:
		if p := c.Node.Payload(); p != nil {
			s.index[p.PayloadKey()] = c.Node.Path()
		}
	case tree.ObjectRemoved, tree.FolderMerged:
		s.dropSubtree(c.Node)
	}
	s.dirty = true
}

func (s *Saver) onPathChange(pc tree.PathChange) {
	if s.reloading {
		return
	}
	if p := pc.Node.Payload(); p != nil {
		s.index[p.PayloadKey()] = pc.Node.Path()
	}
	s.dirty = true
}

// dropSubtree removes every indexed payload under a removed node. The node
// is already detached, so the walk sees exactly the leftovers being retired.
func (s *Saver) dropSubtree(n *tree.Node) {
	n.Walk(func(m *tree.Node) bool {
		if m.IsData() {
			if p := m.Payload(); p != nil {
				delete(s.index, p.PayloadKey())
			}
		}
		return true
	})
}

func (s *Saver) rebuildIndex() {
	s.index = make(map[string]string)
	s.t.Root().Walk(func(n *tree.Node) bool {
		if n.IsData() {
			if p := n.Payload(); p != nil {
				s.index[p.PayloadKey()] = n.Path()
			}
		}
		return true
	})
}

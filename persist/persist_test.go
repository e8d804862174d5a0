package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arborfs/arbor/config"
	"github.com/arborfs/arbor/tree"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *tree.Tree {
	return tree.NewTree(config.NewDefaultConfig())
}

func buildSampleTree(t *testing.T) (*tree.Tree, *ItemPayload) {
	t.Helper()

	tr := newTestTree()
	folder, err := tr.FindOrCreateAllFolders("games/mods")
	require.NoError(t, err)
	tr.SetExpanded(folder, true)
	tr.SetLocked(folder, true)

	payload := NewItemPayload()
	leaf, err := tr.CreateDataNode(folder, "First Mod", payload)
	require.NoError(t, err)
	tr.SetLocked(leaf, true)

	_, err = tr.CreateDataNode(tr.Root(), "Loose Item", NewItemPayload())
	require.NoError(t, err)
	return tr, payload
}

func TestCapture(t *testing.T) {
	t.Parallel()

	tr, payload := buildSampleTree(t)
	snap := Capture(tr)

	require.Len(t, snap.Folders, 2)
	assert.Equal(t, "games", snap.Folders[0].Path)
	assert.Equal(t, FolderRecord{Path: "games/mods", Locked: true, Expanded: true}, snap.Folders[1])

	require.Len(t, snap.Items, 2)
	assert.Equal(t, ItemRecord{
		Key:    payload.PayloadKey(),
		Path:   "games/mods/First Mod",
		Locked: true,
	}, snap.Items[0])
	assert.Equal(t, "Loose Item", snap.Items[1].Path)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	tr, _ := buildSampleTree(t)
	snap := Capture(tr)

	path := filepath.Join(t.TempDir(), "namespace.yaml")
	require.NoError(t, snap.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestRestore(t *testing.T) {
	t.Parallel()

	src, payload := buildSampleTree(t)
	snap := Capture(src)

	dst := newTestTree()
	skipped := Restore(dst, snap, nil)
	assert.Zero(t, skipped)

	folder, ok := dst.Find("games/mods")
	require.True(t, ok)
	assert.True(t, folder.Locked())
	assert.True(t, folder.Expanded())

	leaf, ok := dst.Find("games/mods/First Mod")
	require.True(t, ok)
	require.True(t, leaf.IsData())
	assert.True(t, leaf.Locked())
	assert.Equal(t, payload.PayloadKey(), leaf.Payload().PayloadKey())

	assert.Equal(t, src.Root().TotalDescendants(), dst.Root().TotalDescendants())
	assert.Equal(t, src.Root().TotalDataNodes(), dst.Root().TotalDataNodes())
}

func TestRestore_SkipsBadRecords(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{
		Items: []ItemRecord{
			{Key: "not-a-uuid", Path: "a/item"},
			{Key: uuid.NewString(), Path: "a/good"},
		},
	}

	dst := newTestTree()
	skipped := Restore(dst, snap, nil)
	assert.Equal(t, 1, skipped)

	_, ok := dst.Find("a/good")
	assert.True(t, ok)
	_, ok = dst.Find("a/item")
	assert.False(t, ok)
}

func TestRestore_EmitsReloadBracket(t *testing.T) {
	t.Parallel()

	dst := newTestTree()
	var kinds []tree.ChangeKind
	dst.Subscribe(0, func(c tree.Change) { kinds = append(kinds, c.Kind) })

	Restore(dst, &Snapshot{Folders: []FolderRecord{{Path: "a"}}}, nil)

	require.NotEmpty(t, kinds)
	assert.Equal(t, tree.ReloadStarting, kinds[0])
	assert.Equal(t, tree.Reload, kinds[len(kinds)-1])
}

func TestItemPayload_KeyRoundTrip(t *testing.T) {
	t.Parallel()

	p := NewItemPayload()
	rebuilt, err := ItemPayloadFromKey(p.PayloadKey())
	require.NoError(t, err)
	assert.Equal(t, p.PayloadKey(), rebuilt.PayloadKey())

	_, err = ItemPayloadFromKey("garbage")
	require.Error(t, err)
}

func TestSaver_DirtyTracking(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	path := filepath.Join(t.TempDir(), "ns.yaml")
	s := NewSaver(tr, path)
	defer s.Close()

	assert.False(t, s.Dirty())
	require.NoError(t, s.Flush(), "clean flush writes nothing")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = tr.CreateFolder(nil, "a")
	require.NoError(t, err)
	assert.True(t, s.Dirty())

	require.NoError(t, s.Flush())
	assert.False(t, s.Dirty())
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSaver_IndexFollowsMoves(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	s := NewSaver(tr, filepath.Join(t.TempDir(), "ns.yaml"))
	defer s.Close()

	payload := NewItemPayload()
	leaf, err := tr.CreateDataNode(nil, "Item", payload)
	require.NoError(t, err)

	got, ok := s.ItemPath(payload.PayloadKey())
	require.True(t, ok)
	assert.Equal(t, "Item", got)

	dst, err := tr.CreateFolder(nil, "dst")
	require.NoError(t, err)
	_, err = tr.Move(leaf, dst)
	require.NoError(t, err)

	got, ok = s.ItemPath(payload.PayloadKey())
	require.True(t, ok)
	assert.Equal(t, "dst/Item", got)

	require.NoError(t, tr.Delete(leaf))
	_, ok = s.ItemPath(payload.PayloadKey())
	assert.False(t, ok, "deleted items leave the index")
}

func TestSaver_AncestorRenameReindexes(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	s := NewSaver(tr, filepath.Join(t.TempDir(), "ns.yaml"))
	defer s.Close()

	folder, err := tr.FindOrCreateAllFolders("a/b")
	require.NoError(t, err)
	payload := NewItemPayload()
	_, err = tr.CreateDataNode(folder, "Item", payload)
	require.NoError(t, err)

	a, ok := tr.Find("a")
	require.True(t, ok)
	_, err = tr.Rename(a, "renamed")
	require.NoError(t, err)

	got, ok := s.ItemPath(payload.PayloadKey())
	require.True(t, ok)
	assert.Equal(t, "renamed/b/Item", got)
}

func TestSaver_RestoreRebuildsIndex(t *testing.T) {
	t.Parallel()

	src, payload := buildSampleTree(t)
	snap := Capture(src)

	dst := newTestTree()
	s := NewSaver(dst, filepath.Join(t.TempDir(), "ns.yaml"))
	defer s.Close()

	Restore(dst, snap, nil)

	assert.True(t, s.Dirty())
	got, ok := s.ItemPath(payload.PayloadKey())
	require.True(t, ok)
	assert.Equal(t, "games/mods/First Mod", got)
}

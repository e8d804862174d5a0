package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario: a merge where one child collides with a non-folder sibling moves
// everything else, reports partial success, and keeps the source folder with
// exactly the leftovers.
func TestMerge_Partial(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	x, err := tr.CreateFolder(nil, "X")
	require.NoError(t, err)
	y, err := tr.CreateFolder(nil, "Y")
	require.NoError(t, err)
	_, err = tr.CreateDataNode(x, "a", &testPayload{key: "xa"})
	require.NoError(t, err)
	_, err = tr.CreateDataNode(x, "b", &testPayload{key: "xb"})
	require.NoError(t, err)
	_, err = tr.CreateDataNode(y, "a", &testPayload{key: "ya"})
	require.NoError(t, err)
	_, err = tr.CreateDataNode(y, "c", &testPayload{key: "yc"})
	require.NoError(t, err)

	out, err := tr.Merge(x, y)
	require.NoError(t, err)
	assert.Equal(t, PartialSuccess, out)

	// "b" moved; "a" stayed behind because a non-folder "a" exists in Y
	assert.Equal(t, []string{"a"}, childNames(x))
	assert.Equal(t, []string{"a", "b", "c"}, childNames(y))

	// X survives the partial merge
	_, ok := tr.Find("X")
	assert.True(t, ok)
	_, ok = tr.NodeByID(x.ID())
	assert.True(t, ok)
	checkInvariants(t, tr)
}

func TestMerge_FullDeletesSource(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	x, err := tr.CreateFolder(nil, "X")
	require.NoError(t, err)
	y, err := tr.CreateFolder(nil, "Y")
	require.NoError(t, err)
	_, err = tr.CreateDataNode(x, "a", &testPayload{key: "xa"})
	require.NoError(t, err)
	_, err = tr.CreateDataNode(x, "b", &testPayload{key: "xb"})
	require.NoError(t, err)

	out, err := tr.Merge(x, y)
	require.NoError(t, err)
	assert.Equal(t, Success, out)

	_, ok := tr.Find("X")
	assert.False(t, ok)
	_, ok = tr.NodeByID(x.ID())
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, childNames(y))
	checkInvariants(t, tr)
}

func TestMerge_NoSuccess(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	x, err := tr.CreateFolder(nil, "X")
	require.NoError(t, err)
	y, err := tr.CreateFolder(nil, "Y")
	require.NoError(t, err)
	_, err = tr.CreateDataNode(x, "a", &testPayload{key: "xa"})
	require.NoError(t, err)
	_, err = tr.CreateDataNode(y, "a", &testPayload{key: "ya"})
	require.NoError(t, err)

	out, err := tr.Merge(x, y)
	require.NoError(t, err)
	assert.Equal(t, NoSuccess, out)

	// Both sides untouched
	assert.Equal(t, []string{"a"}, childNames(x))
	assert.Equal(t, []string{"a"}, childNames(y))
	checkInvariants(t, tr)
}

// Same-named folder children merge recursively instead of colliding.
func TestMerge_RecursesIntoSameNamedFolders(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	x, err := tr.CreateFolder(nil, "X")
	require.NoError(t, err)
	y, err := tr.CreateFolder(nil, "Y")
	require.NoError(t, err)
	xs, err := tr.CreateFolder(x, "shared")
	require.NoError(t, err)
	_, err = tr.CreateDataNode(xs, "from-x", &testPayload{key: "1"})
	require.NoError(t, err)
	ys, err := tr.CreateFolder(y, "shared")
	require.NoError(t, err)
	_, err = tr.CreateDataNode(ys, "from-y", &testPayload{key: "2"})
	require.NoError(t, err)

	out, err := tr.Merge(x, y)
	require.NoError(t, err)
	assert.Equal(t, Success, out)

	assert.Equal(t, []string{"from-x", "from-y"}, childNames(ys))
	_, ok := tr.Find("X")
	assert.False(t, ok)
	checkInvariants(t, tr)
}

// A nested collision keeps the colliding leaf in place through the recursive
// merge, retaining the whole chain of folders above it.
func TestMerge_NestedPartialKeepsChain(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	x, err := tr.CreateFolder(nil, "X")
	require.NoError(t, err)
	y, err := tr.CreateFolder(nil, "Y")
	require.NoError(t, err)
	xs, err := tr.CreateFolder(x, "shared")
	require.NoError(t, err)
	_, err = tr.CreateDataNode(xs, "clash", &testPayload{key: "1"})
	require.NoError(t, err)
	ys, err := tr.CreateFolder(y, "shared")
	require.NoError(t, err)
	_, err = tr.CreateDataNode(ys, "clash", &testPayload{key: "2"})
	require.NoError(t, err)

	out, err := tr.Merge(x, y)
	require.NoError(t, err)
	assert.Equal(t, NoSuccess, out)

	// X/shared/clash is still reachable
	_, ok := tr.Find("X/shared/clash")
	assert.True(t, ok)
	checkInvariants(t, tr)
}

func TestMerge_EmptySource(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	x, err := tr.CreateFolder(nil, "X")
	require.NoError(t, err)
	y, err := tr.CreateFolder(nil, "Y")
	require.NoError(t, err)

	// Vacuously full: nothing to move, the source folder goes away
	out, err := tr.Merge(x, y)
	require.NoError(t, err)
	assert.Equal(t, Success, out)
	_, ok := tr.Find("X")
	assert.False(t, ok)
	checkInvariants(t, tr)
}

func TestMerge_Root(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	y, err := tr.CreateFolder(nil, "Y")
	require.NoError(t, err)

	out, err := tr.Merge(tr.Root(), y)
	assert.Equal(t, InvalidOperation, out)
	assert.True(t, IsRootViolation(err))
}

func TestMerge_IntoOwnDescendant(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	x, err := tr.CreateFolder(nil, "X")
	require.NoError(t, err)
	inner, err := tr.CreateFolder(x, "inner")
	require.NoError(t, err)

	out, err := tr.Merge(x, inner)
	assert.Equal(t, CircularReference, out)
	assert.True(t, IsCircularReference(err))
	checkInvariants(t, tr)
}

func TestMerge_SelfIsNoOp(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	x, err := tr.CreateFolder(nil, "X")
	require.NoError(t, err)

	out, err := tr.Merge(x, x)
	require.NoError(t, err)
	assert.Equal(t, SuccessNothingDone, out)
}

// Scenario: a composite rename+move creates the missing folder chain and
// relocates the node in one structural step.
func TestRenameAndMoveWithDuplicates_CreatesChain(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	leaf, err := tr.CreateDataNode(nil, "Old", &testPayload{key: "k"})
	require.NoError(t, err)

	out, err := tr.RenameAndMoveWithDuplicates(leaf, "Folder1/Folder2/Item")
	require.NoError(t, err)
	assert.Equal(t, Success, out)

	assert.Equal(t, "Folder1/Folder2/Item", leaf.Path())
	assert.Equal(t, "Item", leaf.Name())
	f2, ok := tr.Find("Folder1/Folder2")
	require.True(t, ok)
	assert.Same(t, f2, leaf.Parent())
	checkInvariants(t, tr)
}

func TestRenameAndMove_Collision(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	leaf, err := tr.CreateDataNode(nil, "Old", &testPayload{key: "1"})
	require.NoError(t, err)
	dst, err := tr.CreateFolder(nil, "dst")
	require.NoError(t, err)
	_, err = tr.CreateDataNode(dst, "Item", &testPayload{key: "2"})
	require.NoError(t, err)

	out, err := tr.RenameAndMove(leaf, "dst/Item")
	assert.Equal(t, ItemExists, out)
	assert.True(t, IsNameCollision(err))
	assert.Equal(t, "Old", leaf.Path(), "failed composite op must not mutate the node")

	// With duplicate resolution the same request succeeds
	out, err = tr.RenameAndMoveWithDuplicates(leaf, "dst/Item")
	require.NoError(t, err)
	assert.Equal(t, Success, out)
	assert.Equal(t, "dst/Item (2)", leaf.Path())
	checkInvariants(t, tr)
}

func TestRenameAndMove_SamePlaceIsNoOp(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	dst, err := tr.CreateFolder(nil, "dst")
	require.NoError(t, err)
	leaf, err := tr.CreateDataNode(dst, "Item", &testPayload{key: "k"})
	require.NoError(t, err)

	out, err := tr.RenameAndMove(leaf, "dst/Item")
	require.NoError(t, err)
	assert.Equal(t, SuccessNothingDone, out)
}

func TestRenameAndMove_IntoOwnSubtree(t *testing.T) {
	t.Parallel()

	tr := newTestTree()
	a, err := tr.CreateFolder(nil, "A")
	require.NoError(t, err)
	_, err = tr.CreateFolder(a, "B")
	require.NoError(t, err)

	out, err := tr.RenameAndMove(a, "A/B/moved")
	assert.Equal(t, CircularReference, out)
	assert.True(t, IsCircularReference(err))
	assert.Equal(t, "A", a.Path())
	checkInvariants(t, tr)
}

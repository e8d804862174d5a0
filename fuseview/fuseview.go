// Package fuseview exposes a read-only FUSE projection of a namespace
// tree. Folders appear as directories and data nodes as regular files
// whose content is produced by the node's payload. All write paths
// return EROFS.
//
// The projection reads the tree live. The namespace engine is
// single-writer, so callers that mutate the tree while it is mounted
// must serialize mutations with kernel-triggered reads themselves,
// typically by unmounting around bulk edits.
package fuseview

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/arborfs/arbor/config"
	"github.com/arborfs/arbor/internal/util"
	"github.com/arborfs/arbor/tree"
)

// ContentProvider is an optional payload capability. Payloads that
// implement it control the bytes served for their file; all others are
// rendered as their payload key followed by a newline.
type ContentProvider interface {
	Content() []byte
}

// Mount mounts a read-only view of t at mountpoint. The caller must
// call Unmount on the returned server when done. The mountpoint
// directory is created if it does not exist.
func Mount(t *tree.Tree, mountpoint string, cfg *config.Config) (*fuse.Server, error) {
	if t == nil {
		return nil, fmt.Errorf("tree is required")
	}
	if mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	if err := os.MkdirAll(mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", mountpoint, err)
	}

	// Short timeouts: directory entries change underneath the kernel
	// whenever the tree is edited, so stale caching is kept brief.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	root := &dirNode{tree: t, node: t.Root()}
	server, err := gofuse.Mount(mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		Logger:          util.NewLogLogger("fuseview", util.ErrorLevel),
		MountOptions: fuse.MountOptions{
			Debug:  cfg.MountOptions.Debug,
			FsName: cfg.MountOptions.FsName,
			Name:   cfg.MountOptions.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting at %s: %w", mountpoint, err)
	}

	logger := util.GetLogger("fuseview")
	logger.Info().Str("mountpoint", mountpoint).Msg("Mounted read-only view")
	return server, nil
}

// dirNode projects a folder node as a directory.
type dirNode struct {
	gofuse.Inode
	tree *tree.Tree
	node *tree.Node
}

var _ gofuse.InodeEmbedder = (*dirNode)(nil)
var _ gofuse.NodeLookuper = (*dirNode)(nil)
var _ gofuse.NodeReaddirer = (*dirNode)(nil)
var _ gofuse.NodeGetattrer = (*dirNode)(nil)

func (d *dirNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o555
	return 0
}

func (d *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	// Resolve with the tree's own comparer so a case-insensitive
	// namespace stays case-insensitive through the mount.
	cmp := d.tree.Comparer()
	for _, c := range d.node.Children() {
		if cmp(c.Name(), name) == 0 {
			return d.inodeFor(ctx, c, out)
		}
	}
	return nil, syscall.ENOENT
}

func (d *dirNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	children := d.node.Children()
	entries := make([]fuse.DirEntry, 0, len(children))
	for _, c := range children {
		mode := uint32(syscall.S_IFREG)
		if c.IsFolder() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{
			Name: c.Name(),
			Mode: mode,
			Ino:  c.ID(),
		})
	}
	return &sliceDirStream{entries: entries}, 0
}

func (d *dirNode) inodeFor(ctx context.Context, child *tree.Node, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	// Tree node ids are stable for a node's lifetime and never reused,
	// which makes them safe inode numbers.
	if child.IsFolder() {
		inode := d.NewInode(ctx, &dirNode{tree: d.tree, node: child},
			gofuse.StableAttr{Mode: syscall.S_IFDIR, Ino: child.ID()})
		out.Mode = syscall.S_IFDIR | 0o555
		return inode, 0
	}

	content := renderContent(child)
	inode := d.NewInode(ctx, &fileNode{node: child},
		gofuse.StableAttr{Mode: syscall.S_IFREG, Ino: child.ID()})
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(len(content))
	return inode, 0
}

// fileNode projects a data node as a read-only regular file.
type fileNode struct {
	gofuse.Inode
	node *tree.Node
}

var _ gofuse.InodeEmbedder = (*fileNode)(nil)
var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeReader = (*fileNode)(nil)

func (f *fileNode) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	content := renderContent(f.node)
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(len(content))
	out.Blocks = (out.Size + 511) / 512
	return 0
}

func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	// Content is snapshotted per open so a rename mid-read cannot tear
	// the bytes the kernel sees.
	return &contentHandle{content: renderContent(f.node)}, 0, 0
}

func (f *fileNode) Read(ctx context.Context, fh gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h, ok := fh.(*contentHandle)
	if !ok {
		h = &contentHandle{content: renderContent(f.node)}
	}
	if off >= int64(len(h.content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(h.content)) {
		end = int64(len(h.content))
	}
	return fuse.ReadResultData(h.content[off:end]), 0
}

// contentHandle pins the rendered bytes for the duration of one open.
type contentHandle struct {
	content []byte
}

func renderContent(n *tree.Node) []byte {
	p := n.Payload()
	if p == nil {
		return nil
	}
	if cp, ok := p.(ContentProvider); ok {
		return cp.Content()
	}
	return []byte(p.PayloadKey() + "\n")
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}

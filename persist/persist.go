// Package persist saves and restores the namespace skeleton: folder paths
// with their flags, and data-node placements keyed by stable payload
// identity. Payload contents are never serialized here; the host owns those.
package persist

import (
	"fmt"
	"os"
	"strings"

	"github.com/arborfs/arbor/internal/util"
	"github.com/arborfs/arbor/tree"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FolderRecord is one saved folder.
type FolderRecord struct {
	Path     string `yaml:"path"`
	Locked   bool   `yaml:"locked,omitempty"`
	Expanded bool   `yaml:"expanded,omitempty"`
}

// ItemRecord is one saved data-node placement. Key is the payload's stable
// identity; Path is where the node sat when the snapshot was taken.
type ItemRecord struct {
	Key    string `yaml:"key"`
	Path   string `yaml:"path"`
	Locked bool   `yaml:"locked,omitempty"`
}

// Snapshot is the serialized shape of a namespace.
type Snapshot struct {
	Folders []FolderRecord `yaml:"folders"`
	Items   []ItemRecord   `yaml:"items"`
}

// Capture walks the tree and records every folder and data-node placement in
// traversal order. Folder order does not matter for restore; the engine
// re-sorts on replay.
func Capture(t *tree.Tree) *Snapshot {
	snap := &Snapshot{}
	t.Root().Walk(func(n *tree.Node) bool {
		if n.IsRoot() {
			return true
		}
		if n.IsFolder() {
			snap.Folders = append(snap.Folders, FolderRecord{
				Path:     n.Path(),
				Locked:   n.Locked(),
				Expanded: n.Expanded(),
			})
			return true
		}
		rec := ItemRecord{Path: n.Path(), Locked: n.Locked()}
		if p := n.Payload(); p != nil {
			rec.Key = p.PayloadKey()
		}
		snap.Items = append(snap.Items, rec)
		return true
	})
	return snap
}

// Save writes the snapshot as YAML.
func (s *Snapshot) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a YAML snapshot from disk.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// PayloadResolver turns a saved payload key back into a live payload. Hosts
// with their own payload store supply a resolver that looks the object up;
// ResolveItemPayload rebuilds the bundled minimal payload type.
type PayloadResolver func(key string) (tree.Payload, error)

// Restore replays the snapshot into t, bracketed by the reload events so
// feed subscribers can suspend incremental updates. Records that collide
// with existing content are skipped and counted, not fatal: a snapshot is
// user data, one bad record should not lose the rest.
func Restore(t *tree.Tree, snap *Snapshot, resolve PayloadResolver) (skipped int) {
	logger := util.GetLogger("persist.Restore")
	if resolve == nil {
		resolve = ResolveItemPayload
	}

	t.BeginReload()
	defer t.EndReload()

	for _, rec := range snap.Folders {
		folder, err := t.FindOrCreateAllFolders(rec.Path)
		if err != nil {
			logger.Warn().Err(err).Str("path", rec.Path).Msg("Skipping folder record")
			skipped++
			continue
		}
		t.SetLocked(folder, rec.Locked)
		t.SetExpanded(folder, rec.Expanded)
	}

	for _, rec := range snap.Items {
		dir, name := splitItemPath(rec.Path)
		parent := t.Root()
		if dir != "" {
			var ferr error
			if parent, ferr = t.FindOrCreateAllFolders(dir); ferr != nil {
				logger.Warn().Err(ferr).Str("path", rec.Path).Msg("Skipping item record")
				skipped++
				continue
			}
		}
		payload, perr := resolve(rec.Key)
		if perr != nil {
			logger.Warn().Err(perr).Str("key", rec.Key).Msg("Skipping unresolvable payload")
			skipped++
			continue
		}
		node, cerr := t.CreateDataNode(parent, name, payload)
		if cerr != nil {
			logger.Warn().Err(cerr).Str("path", rec.Path).Msg("Skipping colliding item record")
			skipped++
			continue
		}
		t.SetLocked(node, rec.Locked)
	}

	if skipped > 0 {
		logger.Info().Int("skipped", skipped).Msg("Restore finished with skipped records")
	}
	return skipped
}

// splitItemPath separates a stored full path into directory and final name.
// Stored paths are engine-generated, so a plain split on the last separator
// is enough.
func splitItemPath(path string) (dir, name string) {
	if i := strings.LastIndexByte(path, tree.Separator); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// ItemPayload is a minimal ready-made Payload with a UUID identity, for
// hosts that have no richer payload object of their own.
type ItemPayload struct {
	id   uuid.UUID
	node *tree.Node
}

// NewItemPayload creates a payload with a fresh random identity.
func NewItemPayload() *ItemPayload {
	return &ItemPayload{id: uuid.New()}
}

// ItemPayloadFromKey rebuilds a payload from its saved key.
func ItemPayloadFromKey(key string) (*ItemPayload, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return nil, fmt.Errorf("invalid payload key %q: %w", key, err)
	}
	return &ItemPayload{id: id}, nil
}

// ResolveItemPayload is the PayloadResolver for ItemPayload keys.
func ResolveItemPayload(key string) (tree.Payload, error) {
	return ItemPayloadFromKey(key)
}

func (p *ItemPayload) PayloadKey() string { return p.id.String() }

// SetNode installs or clears the back-reference to the owning node.
func (p *ItemPayload) SetNode(n *tree.Node) { p.node = n }

// Node returns the owning Data node, nil once the node has been removed.
func (p *ItemPayload) Node() *tree.Node { return p.node }

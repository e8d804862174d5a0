package arbor

import (
	"github.com/arborfs/arbor/config"
	"github.com/arborfs/arbor/tree"
)

// New creates a namespace Tree given your config.
func New(cfg *config.Config) *tree.Tree {
	return tree.NewTree(cfg)
}

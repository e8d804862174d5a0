package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arborfs/arbor"
	"github.com/arborfs/arbor/persist"
	"github.com/arborfs/arbor/tree"
)

var treeCmd = &cobra.Command{
	Use:   "tree <snapshot>",
	Short: "Print the hierarchy stored in a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := persist.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading snapshot %s: %w", args[0], err)
		}

		t := arbor.New(cfg)
		if skipped := persist.Restore(t, snap, nil); skipped > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d record(s) skipped\n", skipped)
		}

		out := cmd.OutOrStdout()
		root := t.Root()
		root.Walk(func(n *tree.Node) bool {
			if n.IsRoot() {
				return true
			}
			indent := strings.Repeat("  ", n.Depth()-1)
			marker := ""
			if n.IsFolder() {
				marker = string(tree.Separator)
			}
			fmt.Fprintf(out, "%s%s%s\n", indent, n.Name(), marker)
			return true
		})
		fmt.Fprintf(out, "\n%d node(s), %d item(s)\n", root.TotalDescendants(), root.TotalDataNodes())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

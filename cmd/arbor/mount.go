package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arborfs/arbor"
	"github.com/arborfs/arbor/fuseview"
	"github.com/arborfs/arbor/internal/util"
	"github.com/arborfs/arbor/persist"
)

var umountFirst bool

var mountCmd = &cobra.Command{
	Use:   "mount <snapshot> <mountpoint>",
	Short: "Mount a snapshot as a read-only filesystem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		snapPath, mnt := args[0], args[1]
		logger := util.GetLogger("main")

		if umountFirst {
			// Ignore the error if nothing is mounted there.
			exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
		}

		snap, err := persist.Load(snapPath)
		if err != nil {
			return fmt.Errorf("loading snapshot %s: %w", snapPath, err)
		}

		t := arbor.New(cfg)
		if skipped := persist.Restore(t, snap, nil); skipped > 0 {
			logger.Warn().Int("skipped", skipped).Msg("Some snapshot records were skipped")
		}

		server, err := fuseview.Mount(t, mnt, cfg)
		if err != nil {
			return fmt.Errorf("mounting at %s: %w", mnt, err)
		}
		logger.Info().Str("snapshot", snapPath).Str("mountpoint", mnt).Msg("Filesystem mounted")

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		sig := <-signalChan
		logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")

		if err := server.Unmount(); err != nil {
			return fmt.Errorf("unmounting %s: %w", mnt, err)
		}
		return nil
	},
}

func init() {
	mountCmd.Flags().BoolVarP(&umountFirst, "umount", "u", false,
		"Unmount the target first if needed before mounting again")
	rootCmd.AddCommand(mountCmd)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/arborfs/arbor/config"
	"github.com/arborfs/arbor/internal/util"
)

var (
	verbose    int
	configPath string

	// cfg is resolved once in PersistentPreRunE and shared by subcommands.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "arbor",
		Short: "Virtual namespace tree with snapshots and a read-only FUSE view",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			cfg, err = loadConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML or JSON config override file")
}

// loadConfig builds the effective Config from the override file (if any)
// and the CLI flags, and initializes the global logger from it.
func loadConfig() (*config.Config, error) {
	c := config.NewDefaultConfig()
	if configPath != "" {
		override, err := config.LoadConfigOverrideFile(configPath)
		if err != nil {
			return nil, err
		}
		c.Merge(override)
	}
	// CLI verbosity wins over the file.
	c.Merge(&config.ConfigOverride{LogLvl: &verbose})

	util.InitializeLogger(c.LogLvl)
	return c, nil
}

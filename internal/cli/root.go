// Package cli defines the stash command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/stash/internal/config"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// env is shared by every subcommand once the root pre-run has loaded the
// configuration.
type env struct {
	configPath string
	cfg        *config.Config
	log        logger.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:   "stash",
		Short: "Bookmark interchange and maintenance service.",
		Long: `stash keeps a folder tree of bookmarks and a short reading list.
It imports and exports CSV snapshots and Netscape bookmark files, checks
links for dead targets and fills in missing favicons.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			e.cfg = cfg
			e.log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
			return nil
		},

		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (YAML); STASH_* env vars override it")

	cmd.AddCommand(
		newServeCmd(e),
		newExportCmd(e),
		newImportCmd(e),
		newCheckLinksCmd(e),
		newRefreshFaviconsCmd(e),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the command named by os.Args. ctx is cancelled on shutdown
// signals.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

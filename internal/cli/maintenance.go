package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/stash/internal/app"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

func newCheckLinksCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "check-links",
		Short: "Probe every bookmark and record whether its link is valid or dead.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := app.OpenStore(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			defer utils.Close(st, "store", e.log)

			engine := app.NewEngine(st, app.NewWebClient(e.cfg), e.cfg, e.log)
			report, err := engine.CheckLinks(cmd.Context())
			if _, werr := fmt.Fprintf(cmd.OutOrStdout(), "valid: %d\ndead: %d\n", report.Valid, report.Dead); werr != nil {
				return werr
			}
			return err
		},
	}
}

func newRefreshFaviconsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-favicons",
		Short: "Fetch icons for bookmarks that have none.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := app.OpenStore(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			defer utils.Close(st, "store", e.log)

			engine := app.NewEngine(st, app.NewWebClient(e.cfg), e.cfg, e.log)
			updated, err := engine.RefreshFavicons(cmd.Context())
			if _, werr := fmt.Fprintf(cmd.OutOrStdout(), "updated: %d\n", updated); werr != nil {
				return werr
			}
			return err
		},
	}
}

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/stash/internal/app"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/transfer/csvfile"
	"github.com/MrSnakeDoc/stash/internal/transfer/netscape"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

const (
	formatCSV  = "csv"
	formatHTML = "html"
)

// resolveFormat returns the explicit format, or guesses it from the file
// extension when none was given.
func resolveFormat(format, path string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
			format = formatHTML
		default:
			format = formatCSV
		}
	}
	if format != formatCSV && format != formatHTML {
		return "", fmt.Errorf("unknown format %q (want csv or html)", format)
	}
	return format, nil
}

func newExportCmd(e *env) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every folder and bookmark as CSV or a Netscape bookmark file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := resolveFormat(format, output)
			if err != nil {
				return err
			}

			st, err := app.OpenStore(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			defer utils.Close(st, "store", e.log)

			var body string
			if format == formatHTML {
				body, err = netscape.ExportStore(cmd.Context(), st)
			} else {
				body, err = csvfile.ExportStore(cmd.Context(), st)
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			e.log.Info("export written",
				logger.String("file", output),
				logger.String("format", format))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "csv or html (default: from the output extension, else csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(e *env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the collection with a CSV snapshot, or merge a Netscape bookmark file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := resolveFormat(format, path)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer utils.Close(f, path, e.log)

			st, err := app.OpenStore(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			defer utils.Close(st, "store", e.log)

			out := cmd.OutOrStdout()
			if format == formatHTML {
				stats, err := netscape.ImportReader(cmd.Context(), f, st)
				if err != nil {
					return fmt.Errorf("import of %s rejected: %w", path, err)
				}
				_, err = fmt.Fprintf(out, "folders created: %d\nbookmarks added: %d\nskipped: %d\n",
					stats.FoldersCreated, stats.BookmarksAdded, stats.Skipped)
				return err
			}

			stats, err := csvfile.Import(cmd.Context(), f, st)
			if err != nil {
				return fmt.Errorf("import of %s rejected: %w", path, err)
			}
			_, err = fmt.Fprintf(out, "folders: %d\nbookmarks: %d\nskipped: %d\n",
				stats.Folders, stats.Bookmarks, stats.Skipped)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "csv or html (default: from the file extension)")
	return cmd
}

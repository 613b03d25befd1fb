package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/drawpipe"
	"github.com/tsawler/drawpipe/vector"
)

func newPathsCmd() *cobra.Command {
	var page int
	var output string

	cmd := &cobra.Command{
		Use:   "paths <pdf>",
		Short: "Print a page's painted paths as JSON",
		Long: `Paths lists the page's painted paths in paint order with coordinates in
points from the top-left corner. The output can be edited and fed to redraw.

Examples:
  drawpipe paths plans.pdf --page 2
  drawpipe paths plans.pdf --page 2 -o page2.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext := drawpipe.Open(args[0])
			defer ext.Close()

			info, err := ext.PageInfo(page)
			if err != nil {
				return err
			}
			paths, err := ext.DrawPaths(page)
			if err != nil {
				if paths == nil {
					return err
				}
				slog.Warn("vector.page.damaged", "page", page, "paths", len(paths), "error", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return vector.EncodeDump(w, vector.Dump{
				Page:   page,
				Width:  info.Width,
				Height: info.Height,
				Paths:  paths,
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number, 1-indexed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

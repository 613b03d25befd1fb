package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/drawpipe/vector"
)

func newRedrawCmd() *cobra.Command {
	var width, height float64
	var output string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "redraw <paths.json>",
		Short: "Render a JSON path dump as a single-page vector PDF",
		Long: `Redraw reads paths written by the paths command (or a bare JSON array of
paths) and draws them through the same interpreter extract uses.

Examples:
  drawpipe redraw page2.json -o page2.pdf
  drawpipe redraw page2.json --width 612 --height 792 -o letter.pdf
  drawpipe redraw page2.json --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			dump, err := vector.DecodeDump(f)
			f.Close()
			if err != nil {
				return err
			}
			if width > 0 {
				dump.Width = width
			}
			if height > 0 {
				dump.Height = height
			}
			info := dump.PageInfo()

			if dryRun {
				rc := &vector.RecordingCanvas{}
				res := vector.Interpret(info, dump.Paths, rc)
				if err := res.Error(); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, c := range rc.Calls {
					fmt.Fprintln(out, c)
				}
				fmt.Fprintf(out, "commit (%d paths)\n", res.Paths)
				return nil
			}

			if dump.Width <= 0 || dump.Height <= 0 {
				return fmt.Errorf("page size unknown: pass --width and --height")
			}
			if output == "" {
				return fmt.Errorf("--output is required unless --dry-run is set")
			}
			res := vector.Interpret(info, dump.Paths, vector.NewPDFCanvas(dump.Width, dump.Height, output))
			if err := res.Error(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Written: %s (%d paths)\n", output, res.Paths)
			return nil
		},
	}

	cmd.Flags().Float64Var(&width, "width", 0, "Page width in points (default: from the dump)")
	cmd.Flags().Float64Var(&height, "height", 0, "Page height in points (default: from the dump)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PDF file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print canvas calls instead of writing a PDF")
	return cmd
}

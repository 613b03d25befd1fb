package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tsawler/drawpipe"
)

func newExtractCmd() *cobra.Command {
	cfg := drawpipe.LoadConfig()
	var noVector, noRaster bool

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract vector pages and drawing regions from a PDF",
		Long: `Extract runs both paths over every selected page:

  vectors/page_<n>.pdf                 painted paths rebuilt as vectors
  drawings/page_<n>.png                the rendered page
  drawings/page_<n>_drawing_<i>.*      each cleaned drawing region
  drawings_info.json                   region boxes and formats per page

Defaults come from DRAWPIPE_* environment variables; flags win.

Examples:
  drawpipe extract plans.pdf --output-dir out
  drawpipe extract plans.pdf --pages 2,3 --dpi 600 --format tif --workbook
  drawpipe extract plans.pdf --no-raster`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Vector = cfg.Vector && !noVector
			cfg.Raster = cfg.Raster && !noRaster

			p, err := drawpipe.New(cfg, slog.Default())
			if err != nil {
				return err
			}
			summary, err := p.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Processed %d pages (%d failed), %d drawings, %d vector pages, %d format violations\n",
				summary.PagesProcessed, summary.PagesFailed, summary.RegionsFound, summary.VectorPages, summary.FormatViolations)
			if summary.Title != "" {
				fmt.Fprintf(out, "  title:    %s\n", summary.Title)
			}
			if summary.Manifest != "" {
				fmt.Fprintf(out, "  manifest: %s\n", summary.Manifest)
			}
			if summary.Workbook != "" {
				fmt.Fprintf(out, "  workbook: %s\n", summary.Workbook)
			}
			fmt.Fprintf(out, "  run id:   %s\n", summary.RunID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Output directory")
	f.IntVar(&cfg.DPI, "dpi", cfg.DPI, "Rendering resolution")
	f.Float64Var(&cfg.MinArea, "min-area", cfg.MinArea, "Contour area a drawing must exceed, in px²")
	f.IntVar(&cfg.Padding, "padding", cfg.Padding, "Pixels added around each drawing")
	f.IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality, "JPEG quality (1-100)")
	f.IntSliceVar(&cfg.Pages, "pages", cfg.Pages, "Pages to process, 1-indexed (default: all)")
	f.StringSliceVar(&cfg.Formats, "format", cfg.Formats, "Extra region formats (tif)")
	f.BoolVar(&noVector, "no-vector", false, "Skip the vector path")
	f.BoolVar(&noRaster, "no-raster", false, "Skip the raster path")
	f.StringVar(&cfg.Rasterizer, "rasterizer", cfg.Rasterizer, "Page renderer: auto, native or pdftoppm")
	f.StringVar(&cfg.PdftoppmPath, "pdftoppm", cfg.PdftoppmPath, "pdftoppm binary")
	f.StringVar(&cfg.Trace, "trace", cfg.Trace, "SVG tracing with potrace: auto or off")
	f.StringVar(&cfg.PotracePath, "potrace", cfg.PotracePath, "potrace binary")
	f.BoolVar(&cfg.Workbook, "workbook", cfg.Workbook, "Also write drawings_info.xlsx")
	return cmd
}

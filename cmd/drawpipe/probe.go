package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tsawler/drawpipe"
	"github.com/tsawler/drawpipe/internal/runner"
	"github.com/tsawler/drawpipe/trace"
)

func newProbeCmd() *cobra.Command {
	cfg := drawpipe.LoadConfig()

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report which optional tools are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if path := runner.LookPath(cfg.PdftoppmPath); path != "" {
				fmt.Fprintf(out, "pdftoppm: available (%s)\n", path)
			} else {
				fmt.Fprintln(out, "pdftoppm: unavailable, pages render with the native renderer")
			}

			tracer := trace.New(cfg.PotracePath, nil, slog.Default())
			if tracer.Probe(cmd.Context()) == trace.Available {
				fmt.Fprintln(out, "potrace:  available, regions are also exported as svg")
			} else {
				fmt.Fprintln(out, "potrace:  unavailable, svg export is skipped")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.PdftoppmPath, "pdftoppm", cfg.PdftoppmPath, "pdftoppm binary")
	cmd.Flags().StringVar(&cfg.PotracePath, "potrace", cfg.PotracePath, "potrace binary")
	return cmd
}

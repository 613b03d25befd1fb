// Command drawpipe extracts technical drawings from PDF files.
//
// Usage:
//
//	drawpipe extract plans.pdf --output-dir out
//	drawpipe paths plans.pdf --page 2 > page2.json
//	drawpipe redraw page2.json -o page2.pdf
//	drawpipe probe
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

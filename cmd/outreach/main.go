// Command outreach discovers Reddit users of a product: multi-provider
// URL search, scraping, and LLM evidence extraction, persisted through
// the configured storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/outreach/internal/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		// Zero URLs across all providers is the one workflow outcome that
		// maps to a non-zero exit; it is reported, not printed as an error.
		if !errors.Is(err, workflow.ErrNoURLsFound) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

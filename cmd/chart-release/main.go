// Package main provides the chart-release CLI: it resolves the version of a
// CI build and rolls it out to a GitOps repository.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nathantilsley/chart-release/internal/platform/config"
	"github.com/nathantilsley/chart-release/internal/release/domain"
)

func main() {
	if err := run(); err != nil {
		reportError(os.Stdout, os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err with its kind on stderr and as a workflow error
// annotation on stdout, where the Actions runner picks up commands.
func reportError(stdout, stderr io.Writer, err error) {
	kind := domain.KindOf(err)
	fmt.Fprintf(stderr, "error: %s: %s\n", kind, err)
	fmt.Fprintf(stdout, "::error title=%s::%s\n", escapeProperty(kind), escapeData(err.Error()))
}

func run() error {
	// Load configuration; flags may override it
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(&cfg).ExecuteContext(ctx)
}

// escapeData escapes a workflow command message.
func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

// escapeProperty escapes a workflow command property value.
func escapeProperty(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C").Replace(s)
}

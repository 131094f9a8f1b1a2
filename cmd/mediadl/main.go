// Package main is the entrypoint of mediadl.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mediadl/internal/cfg"
	"mediadl/internal/domain/errs"
	"mediadl/internal/domain/paths"
)

// main is the main entrypoint of the program.
func main() {
	os.Exit(run())
}

func run() int {
	if err := paths.InitProgFilesDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "mediadl exiting with error: %v\n", err)
		return 1
	}

	if err := cfg.InitCommands(); err != nil {
		fmt.Fprintf(os.Stderr, "mediadl exiting with error: %v\n", err)
		return 1
	}

	// Cancellable context for shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer cancel()

	err := cfg.Execute(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errs.ErrCanceled):
		fmt.Fprintln(os.Stderr, errs.CanceledMsg)
		return 130
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

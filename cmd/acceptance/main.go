package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	apperrors "acceptcli/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for configuration
// errors, 1 for everything else
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case apperrors.IsType(err, apperrors.ErrTypeConfig):
		return 2
	default:
		return 1
	}
}

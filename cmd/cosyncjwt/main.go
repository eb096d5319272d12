package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cosync/cosyncjwt/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx)
	if err == nil {
		return
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
		stop()
		os.Exit(cli.ExitInterrupted)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	stop()
	os.Exit(cli.ExitCode(err))
}

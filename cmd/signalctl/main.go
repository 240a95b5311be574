package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/videomeet-signaling/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

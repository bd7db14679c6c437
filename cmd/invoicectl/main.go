package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zainab-noor-25/invoice-api/internal/app"
	"github.com/zainab-noor-25/invoice-api/internal/cli"
	"github.com/zainab-noor-25/invoice-api/internal/common"
)

func main() {
	logger := common.NewLogger(os.Stderr)
	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, cfg, logger)
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"

	"ragkb"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Invoke InvokeCommand `cmd:"invoke" help:"Ask the deployed query function a question."`
	Serve  ServeCommand  `cmd:"serve" help:"Run the query handler as a local HTTP server."`
	Import ImportCommand `cmd:"import" help:"Build a local knowledge base from markdown files."`
}

func main() {
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	log := ragkb.NewLogger(os.Stderr, level, false)
	ragkb.Logger = log
	return log
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"ragkb/app"
	"ragkb/config"
	"ragkb/server"

	"github.com/gin-gonic/gin"
)

type ServeCommand struct {
	ListenAddr string `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:9020"`
	LocalDB    string `help:"Path of a local chromem database, overrides LOCAL_DB." default:""`
	LogLevel   string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ServeCommand) Run(ctx context.Context) error {
	log := getLogger(c.LogLevel)
	cfg := config.Load()
	if c.LocalDB != "" {
		cfg.LocalDBPath = c.LocalDB
	}
	h, release, err := app.NewHandler(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}
	defer release()

	gin.SetMode(gin.ReleaseMode)
	log.Info("Listening", slog.String("addr", c.ListenAddr), slog.String("path", server.QueryPath))
	return server.New(h).Run(c.ListenAddr)
}

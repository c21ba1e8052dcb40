package main

import (
	"context"
	"os"

	"ragkb"
	"ragkb/app"
	"ragkb/config"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	cfg := config.Load()
	ragkb.Logger = ragkb.NewLogger(os.Stdout, cfg.LogLevel, true)
	log := ragkb.Logger

	h, release, err := app.NewHandler(context.Background(), cfg, log)
	if err != nil {
		log.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	defer release()

	lambda.Start(h.Handle)
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"ragkb/ingest"
	"ragkb/localstore"
)

type ImportCommand struct {
	Dir         string `arg:"" help:"Directory with markdown files." type:"existingdir"`
	Output      string `help:"Path of the chromem database to write." default:"db.gob"`
	PostgresURL string `help:"Import into Postgres instead of a chromem file." env:"POSTGRES_URL" default:""`
	DropTable   bool   `help:"Recreate the Postgres table before importing."`
	BaseRef     string `help:"Prefix for document links." default:""`
	LogLevel    string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ImportCommand) Run(ctx context.Context) error {
	log := getLogger(c.LogLevel)
	if c.PostgresURL != "" {
		pg, err := localstore.Connect(ctx, c.PostgresURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.CreateTable(ctx, c.DropTable); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
		return importDir(ctx, log, pg, "postgres", c.BaseRef, c.Dir)
	}

	db, err := localstore.Init()
	if err != nil {
		return err
	}
	if err := importDir(ctx, log, db, "chromem", c.BaseRef, c.Dir); err != nil {
		return err
	}
	return db.Store(c.Output)
}

// importDir reports the chunk count only once the whole directory is in.
func importDir(ctx context.Context, log *slog.Logger, sink ingest.Sink, store, baseRef, dir string) error {
	n, err := ingest.NewImporter(sink, baseRef).ProcessDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("import into %s after %d chunks: %w", store, n, err)
	}
	log.Info("Imported", "chunks", n, "store", store)
	return nil
}

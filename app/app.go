// Package app wires configuration, provider and handler together for the
// Lambda function and the local server.
package app

import (
	"context"
	"log/slog"

	"ragkb/config"
	"ragkb/handler"
	"ragkb/knowledgebase"
	"ragkb/localkb"
	"ragkb/localstore"
)

// NewHandler picks the Bedrock knowledge base, or the local one when
// LOCAL_DB or POSTGRES_URL is set. The returned func releases the local store.
func NewHandler(ctx context.Context, cfg config.Config, log *slog.Logger) (*handler.Handler, func(), error) {
	if !config.ValidateTemplate(cfg.PromptTemplate) {
		log.Warn("Prompt template lacks a placeholder",
			"searchResults", config.SearchResultsPlaceholder,
			"userInput", config.UserInputPlaceholder)
	}
	if !cfg.Local() {
		log.Info("Using Bedrock knowledge base", "knowledgeBaseId", cfg.KnowledgeBaseID, "stream", cfg.StreamAnswer)
		return handler.New(log, cfg.AllowedOrigin, knowledgebase.Factory(cfg)), func() {}, nil
	}

	retriever, release, err := openRetriever(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return handler.New(log, cfg.AllowedOrigin, localkb.Factory(retriever, cfg)), release, nil
}

func openRetriever(ctx context.Context, cfg config.Config, log *slog.Logger) (localkb.Retriever, func(), error) {
	if cfg.PostgresURL != "" {
		log.Info("Using local knowledge base", "store", "postgres")
		pg, err := localstore.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	log.Info("Using local knowledge base", "store", "chromem", "path", cfg.LocalDBPath)
	db, err := localstore.Load(cfg.LocalDBPath)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {}, nil
}

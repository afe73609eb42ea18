package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/extract/pdftotext"
	bleveidx "github.com/custodia-labs/lexrag/internal/adapters/driven/index/bleve"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/llm/failover"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/llm/groq"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/services"
	"github.com/custodia-labs/lexrag/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest the corpus and serve the answer API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := configfile.Load(configPath)
	if err != nil {
		return err
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	corpus := services.NewCorpus()
	ingest := services.NewIngestService(cfg.Corpus.DocsDir, pdftotext.New(), bleveidx.Factory, corpus)

	// Serving waits for the first full ingestion pass; requests
	// before the snapshot is published get a not-ready answer anyway,
	// but there is no point listening with nothing indexed.
	ctx := context.Background()
	stats, err := ingest.Run(ctx)
	if err != nil {
		return fmt.Errorf("initial ingestion: %w", err)
	}
	fmt.Printf("indexed %d chunks from %d files (aws=%d lei=%d)\n",
		stats.Chunks, stats.Files, stats.ByType["aws"], stats.ByType["lei"])

	if cfg.Corpus.Watch {
		go func() {
			if err := ingest.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("corpus watcher stopped: %v", err)
			}
		}()
	}

	answer := services.NewAnswerService(
		corpus,
		services.NewRouter(),
		services.NewRetriever(),
		services.NewPromptBuilder(),
		generator,
	)

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := httpapi.New(answer)
	fmt.Printf("lexrag listening on :%s (backends: %s)\n", cfg.Server.Port, generator.Name())
	return server.Run(":" + cfg.Server.Port)
}

// buildGenerator assembles the failover pair from configuration. The
// cloud backend is optional; the local one is always configured.
func buildGenerator(cfg configfile.Config) (driven.Generator, error) {
	var primary driven.Generator
	if cfg.Groq.APIKey != "" {
		g, err := groq.New(groq.Config{
			APIKey:  cfg.Groq.APIKey,
			BaseURL: cfg.Groq.BaseURL,
			Model:   cfg.Groq.Model,
		})
		if err != nil {
			return nil, err
		}
		primary = g
	} else {
		logger.Info("GROQ_API_KEY not set; using local backend only")
	}

	secondary := ollama.New(ollama.Config{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
	})

	return failover.New(primary, secondary), nil
}

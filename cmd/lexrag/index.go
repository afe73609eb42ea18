package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/extract/pdftotext"
	bleveidx "github.com/custodia-labs/lexrag/internal/adapters/driven/index/bleve"
	"github.com/custodia-labs/lexrag/internal/core/services"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run one ingestion pass and print corpus statistics",
	Long: `Extracts, chunks and indexes the PDF corpus without starting
the server. Useful to verify the corpus before deploying.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := configfile.Load(configPath)
	if err != nil {
		return err
	}

	corpus := services.NewCorpus()
	ingest := services.NewIngestService(cfg.Corpus.DocsDir, pdftotext.New(), bleveidx.Factory, corpus)

	stats, err := ingest.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("files indexed:    %d\n", stats.Files)
	fmt.Printf("files skipped:    %d\n", stats.Skipped)
	fmt.Printf("chunks:           %d\n", stats.Chunks)
	fmt.Printf("metadata-only:    %d\n", stats.Metadata)
	for docType, n := range stats.ByType {
		fmt.Printf("chunks[%s]:      %d\n", docType, n)
	}
	return nil
}

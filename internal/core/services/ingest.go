package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lexrag/internal/chunker"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// truncatedFallbackLength bounds the single chunk produced when a
// document yields raw text but no usable chunks.
const truncatedFallbackLength = 2000

// rebuildDebounce coalesces filesystem event bursts into one rebuild.
const rebuildDebounce = 2 * time.Second

// IngestStats summarizes one ingestion pass.
type IngestStats struct {
	Files    int
	Chunks   int
	Skipped  int
	Metadata int
	ByType   map[domain.DocType]int
}

// IngestService builds corpus snapshots from a directory of PDFs and
// publishes them to the corpus.
type IngestService struct {
	docsDir   string
	extractor driven.TextExtractor
	newIndex  driven.IndexFactory
	splitter  *chunker.Chunker
	corpus    *Corpus
}

// NewIngestService creates an ingest service.
func NewIngestService(
	docsDir string,
	extractor driven.TextExtractor,
	newIndex driven.IndexFactory,
	corpus *Corpus,
) *IngestService {
	return &IngestService{
		docsDir:   docsDir,
		extractor: extractor,
		newIndex:  newIndex,
		splitter:  chunker.New(),
		corpus:    corpus,
	}
}

// Run performs a full ingestion pass and atomically publishes the
// resulting snapshot. Per-document failures are logged and skipped;
// they never abort the pass.
func (s *IngestService) Run(ctx context.Context) (IngestStats, error) {
	logger.Section("Ingestion")
	stats := IngestStats{ByType: make(map[domain.DocType]int)}

	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		return stats, fmt.Errorf("read docs dir %s: %w", s.docsDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	var chunks []domain.Chunk
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		docChunks, err := s.ingestFile(ctx, file)
		if err != nil {
			logger.Warn("skipping %s: %v", file, err)
			stats.Skipped++
			continue
		}

		stats.Files++
		if len(docChunks) == 1 && docChunks[0].Text == docChunks[0].Title {
			stats.Metadata++
		}
		for _, c := range docChunks {
			stats.ByType[c.DocType]++
		}
		chunks = append(chunks, docChunks...)
		logger.Debug("indexed %s: %d chunks (%s)", file, len(docChunks), docChunks[0].DocType)
	}
	stats.Chunks = len(chunks)

	index, err := s.newIndex()
	if err != nil {
		return stats, fmt.Errorf("create index: %w", err)
	}
	if err := index.IndexAll(ctx, chunks); err != nil {
		index.Close()
		return stats, fmt.Errorf("index corpus: %w", err)
	}

	s.corpus.Publish(NewSnapshot(chunks, index))
	logger.Info("index ready: %d chunks from %d files", stats.Chunks, stats.Files)
	return stats, nil
}

// ingestFile extracts, chunks and tags one document.
func (s *IngestService) ingestFile(ctx context.Context, file string) ([]domain.Chunk, error) {
	path := filepath.Join(s.docsDir, file)
	raw, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	title := strings.TrimSuffix(file, filepath.Ext(file))
	docType := domain.DocTypeForFile(file)

	pieces := s.splitter.Split(raw)
	if len(pieces) == 0 && len(raw) > 0 {
		// Raw text exists but chunking produced nothing usable.
		cut := truncateToRune(raw, truncatedFallbackLength)
		pieces = []string{chunker.Normalize(cut)}
	}
	if len(pieces) == 0 {
		// Scanned or image-only document: index a metadata-only
		// stand-in so it stays discoverable by name.
		return []domain.Chunk{{
			ID:         title,
			Title:      title,
			SourceFile: file,
			Text:       title,
			ChunkIndex: 0,
			DocType:    docType,
		}}, nil
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s__%d", title, i),
			Title:      title,
			SourceFile: file,
			Text:       text,
			ChunkIndex: i,
			DocType:    docType,
		})
	}
	return chunks, nil
}

// Watch rebuilds the corpus when the docs directory changes. Event
// bursts are debounced; the new snapshot replaces the old one
// atomically. Blocks until the context is cancelled.
func (s *IngestService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.docsDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.docsDir, err)
	}

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("docs dir changed: %s", ev)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(rebuildDebounce, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)

		case <-rebuild:
			if _, err := s.Run(ctx); err != nil {
				logger.Warn("rebuild failed, keeping previous snapshot: %v", err)
			}
		}
	}
}

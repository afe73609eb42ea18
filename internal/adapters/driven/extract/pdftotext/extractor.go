// Package pdftotext extracts plain text from PDF files using the
// poppler pdftotext binary.
package pdftotext

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Extractor implements the port.
var _ driven.TextExtractor = (*Extractor)(nil)

// CommandRunner executes an external command and returns its stdout.
// Indirection point for tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor shells out to pdftotext. An empty result is not an
// error: image-only PDFs legitimately carry no extractable text.
type Extractor struct {
	runner CommandRunner
}

// New creates an extractor using the system pdftotext binary.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// Extract converts one PDF file to plain text.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-q", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext %s: %w", path, err)
	}
	return string(out), nil
}

// Package failover multiplexes two LLM backends behind the Generator
// port: the primary is tried first, the secondary transparently takes
// over on failure.
package failover

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure Generator implements the port.
var _ driven.Generator = (*Generator)(nil)

// Generator wraps a primary and a secondary backend. Either may be
// nil, in which case only the other is used.
type Generator struct {
	primary   driven.Generator
	secondary driven.Generator
}

// New creates the failover generator.
func New(primary, secondary driven.Generator) *Generator {
	return &Generator{primary: primary, secondary: secondary}
}

// Name identifies the multiplexed pair.
func (g *Generator) Name() string {
	var names []string
	if g.primary != nil {
		names = append(names, g.primary.Name())
	}
	if g.secondary != nil {
		names = append(names, g.secondary.Name())
	}
	return strings.Join(names, "→")
}

// Generate tries the primary and falls back to the secondary. An
// empty answer counts as a failure. When both backends fail the
// error wraps domain.ErrBackendUnavailable so callers can degrade
// instead of surfacing a hard failure.
func (g *Generator) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var firstErr error

	if g.primary != nil {
		text, err := g.primary.Generate(ctx, prompt, opts)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = fmt.Errorf("empty answer")
		}
		firstErr = fmt.Errorf("%s: %w", g.primary.Name(), err)
		logger.Warn("primary backend failed, falling back: %v", firstErr)
	}

	if g.secondary != nil {
		text, err := g.secondary.Generate(ctx, prompt, opts)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = fmt.Errorf("empty answer")
		}
		logger.Warn("secondary backend failed: %v", err)
		return "", fmt.Errorf("%w: %s: %v", domain.ErrBackendUnavailable, g.secondary.Name(), err)
	}

	return "", fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, firstErr)
}

// Stream tries the primary in streaming mode and falls back to the
// secondary when the stream cannot be established. Mid-stream frame
// errors are the adapters' concern; once a stream is open there is no
// switching.
func (g *Generator) Stream(ctx context.Context, prompt string, opts driven.GenerateOptions) (driven.TokenStream, error) {
	var firstErr error

	if g.primary != nil {
		ts, err := g.primary.Stream(ctx, prompt, opts)
		if err == nil {
			return ts, nil
		}
		firstErr = fmt.Errorf("%s: %w", g.primary.Name(), err)
		logger.Warn("primary stream failed, falling back: %v", firstErr)
	}

	if g.secondary != nil {
		ts, err := g.secondary.Stream(ctx, prompt, opts)
		if err == nil {
			return ts, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrBackendUnavailable, g.secondary.Name(), err)
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, firstErr)
}

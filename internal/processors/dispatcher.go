// Package processors routes uploaded files to media-type processing
// strategies. Each strategy loads its format, splits the content into
// chunks through the splitting hooks and returns chunks ready for
// embedding.
package processors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/logger"
)

// Dispatcher maps file extensions to processing strategies.
type Dispatcher struct {
	strategies map[string]driven.ProcessingStrategy
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		strategies: make(map[string]driven.ProcessingStrategy),
	}
}

// Register adds a strategy under each of its extensions.
// A later registration for the same extension wins.
func (d *Dispatcher) Register(s driven.ProcessingStrategy) {
	for _, ext := range s.Extensions() {
		d.strategies[strings.ToLower(ext)] = s
	}
}

// ForFile selects the strategy for a filename by extension.
// Returns domain.ErrUnsupportedMediaType when no strategy matches.
func (d *Dispatcher) ForFile(filename string) (driven.ProcessingStrategy, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	s, ok := d.strategies[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, ext)
	}
	return s, nil
}

// Extensions returns every registered extension.
func (d *Dispatcher) Extensions() []string {
	exts := make([]string, 0, len(d.strategies))
	for ext := range d.strategies {
		exts = append(exts, ext)
	}
	return exts
}

// Process runs the matching strategy over the file content.
func (d *Dispatcher) Process(ctx context.Context, raw []byte, filename string, run driven.HookRunner) ([]domain.Document, error) {
	s, err := d.ForFile(filename)
	if err != nil {
		return nil, err
	}

	logger.Info("Processing %s with %s strategy", filename, s.Name())

	chunks, err := s.Process(ctx, raw, filename, run)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", s.Name(), err)
	}

	total := 0
	for _, c := range chunks {
		total += EstimateTokens(c.Content)
	}
	logger.Info("Produced %d chunks from %s (~%d tokens)", len(chunks), filename, total)

	return chunks, nil
}

// EstimateTokens approximates the token count of a text. Four characters
// per token is close enough for cost logging.
func EstimateTokens(text string) int {
	return len(text) / 4
}

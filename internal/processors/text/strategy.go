// Package text processes plain text uploads.
package text

import (
	"context"
	"strings"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/processors/splitter"
)

// DefaultChunkSize is the chunk size for plain text in characters.
const DefaultChunkSize = 4000

// DefaultChunkOverlap is the overlap for plain text in characters.
const DefaultChunkOverlap = 200

// Ensure Strategy implements the interface.
var _ driven.ProcessingStrategy = (*Strategy)(nil)

// Strategy handles plain text files.
type Strategy struct {
	chunkSize int
	overlap   int
}

// Option configures the strategy.
type Option func(*Strategy)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Strategy) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Strategy) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a plain text strategy.
func New(opts ...Option) *Strategy {
	s := &Strategy{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the strategy name.
func (s *Strategy) Name() string {
	return "text"
}

// Extensions returns the handled file extensions.
func (s *Strategy) Extensions() []string {
	return []string{".txt"}
}

// Process splits the file content into chunks through the splitting hooks.
func (s *Strategy) Process(ctx context.Context, raw []byte, _ string, run driven.HookRunner) ([]domain.Document, error) {
	content := string(raw)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	docs := []domain.Document{{
		Content:  content,
		Metadata: map[string]any{},
	}}
	return splitter.SplitWithHooks(ctx, run, docs, s.chunkSize, s.overlap)
}

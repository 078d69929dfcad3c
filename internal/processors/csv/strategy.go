// Package csv processes CSV uploads.
//
// Each data row becomes one document rendered as "header: value" lines,
// so a row stays self-describing after it is separated from the header.
// Rows whose every value is empty are dropped before splitting.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/processors/splitter"
)

// DefaultChunkSize is the chunk size for CSV rows in characters.
const DefaultChunkSize = 400

// DefaultChunkOverlap is the overlap for CSV rows in characters.
// Rows are independent records, so no overlap.
const DefaultChunkOverlap = 0

// Ensure Strategy implements the interface.
var _ driven.ProcessingStrategy = (*Strategy)(nil)

// Strategy handles CSV files.
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

// New creates a CSV strategy.
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
	return "csv"
}

// Extensions returns the handled file extensions.
func (s *Strategy) Extensions() []string {
	return []string{".csv"}
}

// Process renders each row as a document and splits through the
// splitting hooks.
func (s *Strategy) Process(ctx context.Context, raw []byte, _ string, run driven.HookRunner) ([]domain.Document, error) {
	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	docs := make([]domain.Document, 0, len(records)-1)
	for i, row := range records[1:] {
		content := renderRow(header, row)
		if isEmptyRow(content) {
			continue
		}
		docs = append(docs, domain.Document{
			Content:  content,
			Metadata: map[string]any{"row": i + 1},
		})
	}

	return splitter.SplitWithHooks(ctx, run, docs, s.chunkSize, s.overlap)
}

// renderRow produces one "header: value" line per field.
// Extra cells without a matching header are dropped.
func renderRow(header, row []string) string {
	n := len(row)
	if len(header) < n {
		n = len(header)
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(header[i])
		b.WriteString(": ")
		b.WriteString(row[i])
	}
	return b.String()
}

// isEmptyRow reports whether every value in a rendered row is empty.
// A line that does not parse as "key: value" conservatively keeps the row.
func isEmptyRow(content string) bool {
	if strings.TrimSpace(content) == "" {
		return true
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			return false
		}
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// Package excel processes spreadsheet uploads.
//
// Only the OOXML container (.xlsx) is readable: the archive is opened as
// a ZIP, shared strings are resolved and each worksheet becomes one
// document of pipe-separated rows. Legacy binary .xls content is rejected.
package excel

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"sort"
	"strings"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/processors/splitter"
)

// DefaultChunkSize is the chunk size for spreadsheets in characters.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the overlap for spreadsheets in characters.
const DefaultChunkOverlap = 10

// Ensure Strategy implements the interface.
var _ driven.ProcessingStrategy = (*Strategy)(nil)

// Strategy handles spreadsheet files.
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

// New creates a spreadsheet strategy.
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
	return "excel"
}

// Extensions returns the handled file extensions.
func (s *Strategy) Extensions() []string {
	return []string{".xlsx", ".xls"}
}

// Process renders each worksheet as a document and splits through the
// splitting hooks.
func (s *Strategy) Process(ctx context.Context, raw []byte, _ string, run driven.HookRunner) ([]domain.Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		// Legacy .xls or corrupt upload.
		return nil, domain.ErrUnsupportedMediaType
	}

	shared, err := readSharedStrings(reader)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	for i, file := range worksheetFiles(reader) {
		content, err := renderWorksheet(file, shared)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			Content:  content,
			Metadata: map[string]any{"sheet": i + 1},
		})
	}

	return splitter.SplitWithHooks(ctx, run, docs, s.chunkSize, s.overlap)
}

// worksheetFiles returns the worksheet entries in name order.
func worksheetFiles(reader *zip.Reader) []*zip.File {
	var sheets []*zip.File
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "xl/worksheets/") && strings.HasSuffix(file.Name, ".xml") {
			sheets = append(sheets, file)
		}
	}
	sort.Slice(sheets, func(i, j int) bool { return sheets[i].Name < sheets[j].Name })
	return sheets
}

// sharedStringsXML represents xl/sharedStrings.xml.
type sharedStringsXML struct {
	Items []struct {
		Text string `xml:"t"`
	} `xml:"si"`
}

// readSharedStrings loads the shared string table, which cell values of
// type "s" index into.
func readSharedStrings(reader *zip.Reader) ([]string, error) {
	for _, file := range reader.File {
		if file.Name != "xl/sharedStrings.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, domain.ErrInvalidInput
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, domain.ErrInvalidInput
		}

		var table sharedStringsXML
		if err := xml.Unmarshal(content, &table); err != nil {
			return nil, domain.ErrInvalidInput
		}

		strs := make([]string, len(table.Items))
		for i, item := range table.Items {
			strs[i] = item.Text
		}
		return strs, nil
	}
	return nil, nil
}

// worksheetXML represents one xl/worksheets/sheetN.xml.
type worksheetXML struct {
	Rows []struct {
		Cells []cellXML `xml:"c"`
	} `xml:"sheetData>row"`
}

type cellXML struct {
	Type  string `xml:"t,attr"`
	Value string `xml:"v"`
}

// renderWorksheet produces one pipe-separated line per row.
func renderWorksheet(file *zip.File, shared []string) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", domain.ErrInvalidInput
	}

	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", domain.ErrInvalidInput
	}

	var sheet worksheetXML
	if err := xml.Unmarshal(content, &sheet); err != nil {
		return "", domain.ErrInvalidInput
	}

	var b strings.Builder
	for _, row := range sheet.Rows {
		values := make([]string, 0, len(row.Cells))
		empty := true
		for _, cell := range row.Cells {
			values = append(values, cellValue(cell, shared))
			if strings.TrimSpace(values[len(values)-1]) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(values, " | "))
	}
	return b.String(), nil
}

// cellValue resolves a cell to its display text. Type "s" indexes the
// shared string table; everything else keeps the literal value.
func cellValue(cell cellXML, shared []string) string {
	if cell.Type == "s" {
		var idx int
		for _, r := range cell.Value {
			if r < '0' || r > '9' {
				return cell.Value
			}
			idx = idx*10 + int(r-'0')
		}
		if idx < len(shared) {
			return shared[idx]
		}
		return ""
	}
	return cell.Value
}

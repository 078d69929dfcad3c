// Package pdf processes PDF uploads.
//
// Text extraction shells out to the poppler pdftotext tool. Pages arrive
// separated by form feeds and each page becomes one chunk; PDF page
// boundaries are kept instead of re-splitting.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// minPageLength mirrors the splitter's minimum chunk length: pages with
// less content than this carry no useful signal.
const minPageLength = 10

// Ensure Strategy implements the interface.
var _ driven.ProcessingStrategy = (*Strategy)(nil)

// CommandRunner executes an external command and returns its stdout.
// It exists so tests can substitute pdftotext.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Strategy handles PDF files.
type Strategy struct {
	runner CommandRunner
}

// New creates a PDF strategy using the system pdftotext.
func New() *Strategy {
	return &Strategy{runner: execRunner{}}
}

// NewWithRunner creates a PDF strategy with a custom command runner.
func NewWithRunner(runner CommandRunner) *Strategy {
	return &Strategy{runner: runner}
}

// CheckAvailable verifies pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return `PDF support requires the pdftotext tool (poppler):
  macOS:         brew install poppler
  Debian/Ubuntu: sudo apt install poppler-utils
  Fedora:        sudo dnf install poppler-utils`
}

// Name returns the strategy name.
func (s *Strategy) Name() string {
	return "pdf"
}

// Extensions returns the handled file extensions.
func (s *Strategy) Extensions() []string {
	return []string{".pdf"}
}

// Process extracts text with pdftotext and emits one chunk per page.
func (s *Strategy) Process(ctx context.Context, raw []byte, filename string, _ driven.HookRunner) ([]domain.Document, error) {
	if err := CheckAvailable(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "warren-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp pdf: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	tmp.Close()

	out, err := s.runner.Run(ctx, "pdftotext", "-layout", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", filepath.Base(filename), err)
	}

	return pagesToDocuments(string(out)), nil
}

// pagesToDocuments splits pdftotext output on form feeds, one document
// per page. Near-empty pages are dropped.
func pagesToDocuments(out string) []domain.Document {
	pages := strings.Split(out, "\f")
	docs := make([]domain.Document, 0, len(pages))
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if len(page) <= minPageLength {
			continue
		}
		docs = append(docs, domain.Document{
			Content:  page,
			Metadata: map[string]any{"page": i + 1},
		})
	}
	return docs
}

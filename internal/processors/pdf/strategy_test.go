package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
}

func (m *mockRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return m.output, m.err
}

func TestNew(t *testing.T) {
	s := New()
	require.NotNil(t, s)
	assert.Equal(t, "pdf", s.Name())
	assert.Equal(t, []string{".pdf"}, s.Extensions())
}

func TestNewWithRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("test output")}
	s := NewWithRunner(runner)
	require.NotNil(t, s)
	assert.Equal(t, runner, s.runner)
}

func TestPagesToDocuments(t *testing.T) {
	out := "First page with real content.\fSecond page, also substantial.\f\f   \f"

	docs := pagesToDocuments(out)
	require.Len(t, docs, 2)
	assert.Equal(t, "First page with real content.", docs[0].Content)
	assert.Equal(t, 1, docs[0].Metadata["page"])
	assert.Equal(t, "Second page, also substantial.", docs[1].Content)
	assert.Equal(t, 2, docs[1].Metadata["page"])
}

func TestPagesToDocuments_TinyPagesDropped(t *testing.T) {
	out := "short\fThis page clears the minimum length."

	docs := pagesToDocuments(out)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].Metadata["page"])
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Error(t, ErrPDFToolNotFound)
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

// Process tests need pdftotext on PATH because availability is checked
// before the runner is consulted.
func TestProcess_WithMockRunner(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not in PATH, skipping mock runner test")
	}

	runner := &mockRunner{output: []byte("Page one content here.\fPage two content here.")}
	s := NewWithRunner(runner)

	docs, err := s.Process(context.Background(), []byte("%PDF-1.4 fake"), "doc.pdf", nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Page one content here.", docs[0].Content)
}

func TestProcess_RunnerError(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not in PATH, skipping runner error test")
	}

	runner := &mockRunner{err: errors.New("pdftotext crashed")}
	s := NewWithRunner(runner)

	docs, err := s.Process(context.Background(), []byte("%PDF-1.4 fake"), "doc.pdf", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Nil(t, docs)
}

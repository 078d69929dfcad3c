package processors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/processors/splitter"
	"github.com/warren-labs/warren/internal/processors/text"
)

// fakeStrategy records calls for dispatcher tests.
type fakeStrategy struct {
	name   string
	exts   []string
	chunks []domain.Document
	err    error
	called bool
}

func (f *fakeStrategy) Name() string { return f.name }
func (f *fakeStrategy) Extensions() []string { return f.exts }
func (f *fakeStrategy) Process(_ context.Context, _ []byte, _ string, _ driven.HookRunner) ([]domain.Document, error) {
	f.called = true
	return f.chunks, f.err
}

func TestDispatcher_ForFile(t *testing.T) {
	d := NewDispatcher()
	s := &fakeStrategy{name: "fake", exts: []string{".txt", ".log"}}
	d.Register(s)

	t.Run("matches by extension", func(t *testing.T) {
		got, err := d.ForFile("notes.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Name() != "fake" {
			t.Errorf("expected fake strategy, got %s", got.Name())
		}
	})

	t.Run("extension match is case insensitive", func(t *testing.T) {
		if _, err := d.ForFile("NOTES.TXT"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := d.ForFile("image.png")
		if !errors.Is(err, domain.ErrUnsupportedMediaType) {
			t.Errorf("expected ErrUnsupportedMediaType, got %v", err)
		}
	})

	t.Run("no extension", func(t *testing.T) {
		_, err := d.ForFile("README")
		if !errors.Is(err, domain.ErrUnsupportedMediaType) {
			t.Errorf("expected ErrUnsupportedMediaType, got %v", err)
		}
	})
}

func TestDispatcher_Process(t *testing.T) {
	d := NewDispatcher()
	want := []domain.Document{{Content: "chunk content"}}
	s := &fakeStrategy{name: "fake", exts: []string{".txt"}, chunks: want}
	d.Register(s)

	chunks, err := d.Process(context.Background(), []byte("raw"), "notes.txt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.called {
		t.Error("strategy was not invoked")
	}
	if len(chunks) != 1 || chunks[0].Content != "chunk content" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
}

func TestDispatcher_ProcessStrategyError(t *testing.T) {
	d := NewDispatcher()
	s := &fakeStrategy{name: "fake", exts: []string{".txt"}, err: errors.New("boom")}
	d.Register(s)

	_, err := d.Process(context.Background(), []byte("raw"), "notes.txt", nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewDefaultDispatcher(t *testing.T) {
	d := NewDefaultDispatcher()

	for _, ext := range []string{".txt", ".md", ".csv", ".pdf", ".docx", ".doc", ".xlsx", ".xls"} {
		if _, err := d.ForFile("file" + ext); err != nil {
			t.Errorf("expected strategy for %s, got error: %v", ext, err)
		}
	}
}

// mapConfig is an in-memory config store for override tests.
type mapConfig map[string]any

var _ driven.ConfigStore = mapConfig{}

func (m mapConfig) Get(key string) (any, bool)      { v, ok := m[key]; return v, ok }
func (m mapConfig) GetString(key string) string     { s, _ := m[key].(string); return s }
func (m mapConfig) GetFloat(key string) float64     { f, _ := m[key].(float64); return f }
func (m mapConfig) GetBool(key string) bool         { b, _ := m[key].(bool); return b }
func (m mapConfig) Set(key string, value any) error { m[key] = value; return nil }
func (m mapConfig) Save() error                     { return nil }
func (m mapConfig) Load() error                     { return nil }
func (m mapConfig) Path() string                    { return "" }

func (m mapConfig) GetInt(key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// captureSplit is a hook runner that records the split request the
// strategy hands to the splitting stage.
func captureSplit(req **domain.SplitRequest) driven.HookRunner {
	return func(_ context.Context, name string, v any) (any, error) {
		if name == splitter.HookSplit {
			r := v.(*domain.SplitRequest)
			*req = r
			return splitter.SplitDocuments(r.Documents, r.ChunkSize, r.Overlap), nil
		}
		return v, nil
	}
}

func TestNewDispatcherFromConfig(t *testing.T) {
	t.Run("overrides reach the strategy", func(t *testing.T) {
		d := NewDispatcherFromConfig(mapConfig{
			"chunking.text.size":    int64(120),
			"chunking.text.overlap": int64(0),
		})

		var req *domain.SplitRequest
		_, err := d.Process(context.Background(), []byte(strings.Repeat("word ", 100)), "notes.txt", captureSplit(&req))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req == nil {
			t.Fatal("split stage never ran")
		}
		if req.ChunkSize != 120 {
			t.Errorf("chunk size = %d, want 120", req.ChunkSize)
		}
		if req.Overlap != 0 {
			t.Errorf("overlap = %d, want 0", req.Overlap)
		}
	})

	t.Run("absent keys keep the standard policy", func(t *testing.T) {
		d := NewDispatcherFromConfig(mapConfig{})

		var req *domain.SplitRequest
		_, err := d.Process(context.Background(), []byte("just a few words"), "notes.txt", captureSplit(&req))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.ChunkSize != text.DefaultChunkSize {
			t.Errorf("chunk size = %d, want %d", req.ChunkSize, text.DefaultChunkSize)
		}
		if req.Overlap != text.DefaultChunkOverlap {
			t.Errorf("overlap = %d, want %d", req.Overlap, text.DefaultChunkOverlap)
		}
	})

	t.Run("every default extension stays registered", func(t *testing.T) {
		d := NewDispatcherFromConfig(mapConfig{})
		for _, ext := range []string{".txt", ".md", ".csv", ".pdf", ".docx", ".xlsx"} {
			if _, err := d.ForFile("file" + ext); err != nil {
				t.Errorf("expected strategy for %s, got error: %v", ext, err)
			}
		}
	})
}

package processors

import (
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/processors/csv"
	"github.com/warren-labs/warren/internal/processors/excel"
	"github.com/warren-labs/warren/internal/processors/markdown"
	"github.com/warren-labs/warren/internal/processors/pdf"
	"github.com/warren-labs/warren/internal/processors/text"
	"github.com/warren-labs/warren/internal/processors/word"
)

// NewDefaultDispatcher creates a dispatcher with every built-in strategy
// registered under its standard policy.
func NewDefaultDispatcher() *Dispatcher {
	d := NewDispatcher()
	d.Register(text.New())
	d.Register(markdown.New())
	d.Register(csv.New())
	d.Register(pdf.New())
	d.Register(word.New())
	d.Register(excel.New())
	return d
}

// NewDispatcherFromConfig creates the default dispatcher with chunking
// policies overridden from config. "chunking.<strategy>.size" and
// "chunking.<strategy>.overlap" adjust the named strategy (text,
// markdown, csv, word, excel); an absent key keeps the strategy's
// standard policy. The pdf strategy chunks on page boundaries and takes
// no overrides.
func NewDispatcherFromConfig(cfg driven.ConfigStore) *Dispatcher {
	d := NewDispatcher()
	d.Register(text.New(chunkOverrides(cfg, "text", text.WithChunkSize, text.WithOverlap)...))
	d.Register(markdown.New(chunkOverrides(cfg, "markdown", markdown.WithChunkSize, markdown.WithOverlap)...))
	d.Register(csv.New(chunkOverrides(cfg, "csv", csv.WithChunkSize, csv.WithOverlap)...))
	d.Register(pdf.New())
	d.Register(word.New(chunkOverrides(cfg, "word", word.WithChunkSize, word.WithOverlap)...))
	d.Register(excel.New(chunkOverrides(cfg, "excel", excel.WithChunkSize, excel.WithOverlap)...))
	return d
}

// chunkOverrides builds one strategy's option list from its config keys.
// Presence is checked with Get so an explicit zero overlap still counts
// as an override.
func chunkOverrides[O any](cfg driven.ConfigStore, strategy string, size, overlap func(int) O) []O {
	var opts []O
	if key := "chunking." + strategy + ".size"; hasKey(cfg, key) {
		opts = append(opts, size(cfg.GetInt(key)))
	}
	if key := "chunking." + strategy + ".overlap"; hasKey(cfg, key) {
		opts = append(opts, overlap(cfg.GetInt(key)))
	}
	return opts
}

func hasKey(cfg driven.ConfigStore, key string) bool {
	_, ok := cfg.Get(key)
	return ok
}

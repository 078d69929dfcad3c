package driven

import (
	"context"

	"github.com/warren-labs/warren/internal/core/domain"
)

// VectorStore opens named on-disk vector collections.
// One collection exists per knowledge base, plus the shared "procedural"
// collection holding embedded tool descriptions.
type VectorStore interface {
	// Open loads the named collection, creating and seeding it with a
	// placeholder record when it does not exist yet. It only errors on
	// real I/O failures, never on absence.
	Open(name string) (VectorCollection, error)

	// Drop removes the named collection from disk.
	Drop(name string) error
}

// VectorCollection is one named vector index with its docstore.
// Mutations happen in memory; Save flushes to disk. Implementations
// serialise concurrent access per collection name.
type VectorCollection interface {
	// Name returns the collection name.
	Name() string

	// AddTexts embeds and inserts the given texts with their metadata.
	// Texts that are empty after trimming are skipped without an id, so
	// the returned slice may be shorter than the input. Ids are returned
	// in input order.
	AddTexts(ctx context.Context, texts []string, metadatas []map[string]any) ([]string, error)

	// Remove deletes the given ids and reindexes the survivors densely.
	// A nil ids slice empties the collection. Repeating an id returns
	// domain.ErrDuplicateRemovalID. Returns the number removed and the
	// total before removal.
	Remove(ctx context.Context, ids []string) (removed int, totalBefore int, err error)

	// Entries returns every stored entry keyed by id.
	Entries() map[string]domain.Document

	// Search embeds the query and returns up to k entries scoring at or
	// above threshold, best first.
	Search(ctx context.Context, query string, k int, threshold float64) ([]domain.RecallResult, error)

	// Save flushes the index and docstore to disk.
	Save(ctx context.Context) error
}

package driven

import (
	"context"
	"time"

	"github.com/warren-labs/warren/internal/core/domain"
)

// ProvenanceStore persists the mapping from stored vectors to the source
// files they were ingested from.
type ProvenanceStore interface {
	// SaveRecords inserts provenance rows in one transaction.
	SaveRecords(ctx context.Context, records []domain.ProvenanceRecord) error

	// RecordsByFilename returns the rows for one file in one knowledge base.
	RecordsByFilename(ctx context.Context, kbID, filename string) ([]domain.ProvenanceRecord, error)

	// RecordsByKnowledgeBase returns every row for one knowledge base.
	RecordsByKnowledgeBase(ctx context.Context, kbID string) ([]domain.ProvenanceRecord, error)

	// DeleteByFilename removes the rows for one file in one knowledge base.
	DeleteByFilename(ctx context.Context, kbID, filename string) error

	// DeleteByKnowledgeBase removes every row for one knowledge base.
	DeleteByKnowledgeBase(ctx context.Context, kbID string) error

	// RemoteEditTime returns the stored remote edit time for a file, or
	// the zero time when no row exists.
	RemoteEditTime(ctx context.Context, kbID, filename string) (time.Time, error)
}

// PluginStateStore persists the active-plugin allow-list.
type PluginStateStore interface {
	// SaveActivePlugins replaces the stored allow-list.
	SaveActivePlugins(ctx context.Context, ids []string) error

	// LoadActivePlugins returns the stored allow-list. An empty store
	// returns an empty slice, not an error.
	LoadActivePlugins(ctx context.Context) ([]string, error)
}

// KnowledgeBaseStore persists knowledge base definitions.
type KnowledgeBaseStore interface {
	// SaveKnowledgeBase inserts or updates a knowledge base.
	SaveKnowledgeBase(ctx context.Context, kb domain.KnowledgeBase) error

	// GetKnowledgeBase returns one knowledge base by id.
	// Returns domain.ErrNotFound when absent.
	GetKnowledgeBase(ctx context.Context, id string) (domain.KnowledgeBase, error)

	// ListKnowledgeBases returns every knowledge base.
	ListKnowledgeBases(ctx context.Context) ([]domain.KnowledgeBase, error)

	// DeleteKnowledgeBase removes one knowledge base by id.
	DeleteKnowledgeBase(ctx context.Context, id string) error
}

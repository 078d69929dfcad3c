package processors

import (
	"context"
	"fmt"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/processors/splitter"
)

// HookStoreDocuments runs before pre-parsed documents are split. Plugins
// hook it to append companion documents, e.g. summaries of the originals.
const HookStoreDocuments = "before_ingestion_stores_documents"

// ProcessParsed handles documents already parsed by an external fetcher.
// They skip media-type dispatch and go straight through the store hook
// and the splitting hooks with the plain text policy.
func ProcessParsed(ctx context.Context, docs []domain.Document, run driven.HookRunner) ([]domain.Document, error) {
	v, err := run(ctx, HookStoreDocuments, docs)
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", HookStoreDocuments, err)
	}
	docs, ok := v.([]domain.Document)
	if !ok {
		return nil, fmt.Errorf("%w: hook %s returned %T", domain.ErrInvalidInput, HookStoreDocuments, v)
	}

	return splitter.SplitWithHooks(ctx, run, docs, splitter.DefaultChunkSize, splitter.DefaultChunkOverlap)
}

package splitter

import (
	"context"
	"fmt"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
)

// Hook names bracketing the split stage. Plugins hook them to reshape
// documents before splitting, replace the splitting algorithm, or edit
// the produced chunks.
const (
	HookBeforeSplit = "before_splitter_splits_text"
	HookSplit       = "splitter_splits_text"
	HookAfterSplit  = "after_splitter_splitted_text"
)

// SplitWithHooks runs the three-stage split flow over the documents.
// The middle stage carries a SplitRequest; its default implementation is
// SplitDocuments.
func SplitWithHooks(ctx context.Context, run driven.HookRunner, docs []domain.Document, chunkSize, overlap int) ([]domain.Document, error) {
	v, err := run(ctx, HookBeforeSplit, docs)
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", HookBeforeSplit, err)
	}
	docs, err = asDocuments(v)
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", HookBeforeSplit, err)
	}

	v, err = run(ctx, HookSplit, &domain.SplitRequest{
		Documents: docs,
		ChunkSize: chunkSize,
		Overlap:   overlap,
	})
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", HookSplit, err)
	}
	docs, err = asDocuments(v)
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", HookSplit, err)
	}

	v, err = run(ctx, HookAfterSplit, docs)
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", HookAfterSplit, err)
	}
	docs, err = asDocuments(v)
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", HookAfterSplit, err)
	}
	return docs, nil
}

// SplitDocuments splits each document's content with the recursive
// splitter, duplicating the source document's metadata onto every chunk.
// It is the default implementation of the "splitter_splits_text" hook.
func SplitDocuments(docs []domain.Document, chunkSize, overlap int) []domain.Document {
	s := New(WithChunkSize(chunkSize), WithOverlap(overlap))

	var chunks []domain.Document
	for _, doc := range docs {
		for _, content := range s.Split(doc.Content) {
			chunks = append(chunks, domain.Document{
				Content:  content,
				Metadata: copyMetadata(doc.Metadata),
			})
		}
	}
	return chunks
}

// asDocuments coerces a hook return value back to a document slice.
func asDocuments(v any) ([]domain.Document, error) {
	switch d := v.(type) {
	case []domain.Document:
		return d, nil
	case *domain.SplitRequest:
		return d.Documents, nil
	default:
		return nil, fmt.Errorf("%w: hook returned %T, want []domain.Document", domain.ErrInvalidInput, v)
	}
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

package driven

import (
	"context"

	"github.com/warren-labs/warren/internal/core/domain"
)

// HookRunner dispatches a named extension hook through the plugin
// orchestrator. Strategies use it to let plugins observe and reshape
// documents at each pipeline stage.
type HookRunner func(ctx context.Context, name string, value any) (any, error)

// ProcessingStrategy converts one uploaded file into storable chunks.
// One strategy exists per media type; selection is by file extension.
type ProcessingStrategy interface {
	// Name returns the strategy name for logging.
	Name() string

	// Extensions returns the handled file extensions, lowercased with
	// leading dot.
	Extensions() []string

	// Process converts raw file bytes into chunks ready for embedding.
	Process(ctx context.Context, raw []byte, filename string, run HookRunner) ([]domain.Document, error)
}

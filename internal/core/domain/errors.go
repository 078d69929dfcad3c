package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Plugin Errors.

	// ErrPluginNotFound indicates a plugin id is not known to the orchestrator.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrInvalidPlugin indicates a plugin folder fails validation
	// (missing directory, no Go sources).
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrInvalidPluginArchive indicates an install archive does not contain
	// exactly one top-level plugin folder.
	ErrInvalidPluginArchive = errors.New("invalid plugin archive")

	// ErrHookNotFound indicates no active plugin implements a hook name.
	// The core plugin defaults every known hook, so this signals a
	// misconfigured deployment rather than a routine miss.
	ErrHookNotFound = errors.New("hook not found")

	// Ingestion Errors.

	// ErrUnsupportedMediaType indicates no processing strategy exists for
	// the file's media type.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// Memory Errors.

	// ErrDuplicateRemovalID indicates a removal batch names the same vector
	// id more than once.
	ErrDuplicateRemovalID = errors.New("duplicate id in removal batch")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbedderUnavailable indicates the embedding service is not configured.
	// Memory recall and ingestion are disabled without embeddings.
	ErrEmbedderUnavailable = errors.New("embedding service unavailable")
)

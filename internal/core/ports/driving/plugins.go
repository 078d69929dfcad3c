package driving

import (
	"context"
	"time"

	"github.com/warren-labs/warren/internal/core/domain"
)

// PluginService administers the plugin ecosystem: discovery, activation,
// installation and hook dispatch.
type PluginService interface {
	// Bootstrap discovers plugins, restores the persisted active set and
	// reconciles tool embeddings. Must run before any other call.
	Bootstrap(ctx context.Context) error

	// List returns the administrative view of every known plugin.
	List(ctx context.Context) []domain.PluginInfo

	// Toggle flips a plugin between active and inactive, persists the
	// allow-list and reconciles tool embeddings.
	Toggle(ctx context.Context, pluginID string) error

	// Install unpacks a plugin archive into the plugin directory and
	// activates the new plugin.
	Install(ctx context.Context, archivePath string) (pluginID string, err error)

	// Uninstall deactivates a plugin and removes its folder from disk.
	Uninstall(ctx context.Context, pluginID string) error

	// ExecuteHook dispatches a named hook against the globally active set.
	ExecuteHook(ctx context.Context, name string, value any) (any, error)

	// SettingsSchema returns the JSON schema describing a plugin's settings.
	SettingsSchema(ctx context.Context, pluginID string) (map[string]any, error)

	// LoadSettings returns a plugin's stored settings.
	LoadSettings(ctx context.Context, pluginID string) (map[string]any, error)

	// SaveSettings shallow-merges the given settings over the stored ones.
	SaveSettings(ctx context.Context, pluginID string, settings map[string]any) (map[string]any, error)
}

// IngestionService feeds files and pre-parsed documents into knowledge
// base memory.
type IngestionService interface {
	// ProcessFile ingests one uploaded file. The filename must carry the
	// "({kb_id}){name}" prefix. The upload is deleted afterwards whether
	// or not ingestion succeeded.
	ProcessFile(ctx context.Context, path string) error

	// ProcessDocuments ingests pre-parsed documents fetched from a remote
	// source, skipping the work when the stored copy is current.
	ProcessDocuments(ctx context.Context, kbID string, docs []domain.Document, remoteName, remoteTitle string, remoteEdit time.Time) error

	// DeleteByFilename removes every memory ingested from one file.
	DeleteByFilename(ctx context.Context, kbID, filename string) error

	// DeleteKnowledgeBase removes a knowledge base's memories, provenance
	// and definition.
	DeleteKnowledgeBase(ctx context.Context, kbID string) error
}

// KnowledgeBaseService administers knowledge base definitions.
type KnowledgeBaseService interface {
	// Create defines a new knowledge base with a fresh id.
	Create(ctx context.Context, name string, usePlugins []string) (domain.KnowledgeBase, error)

	// Get returns one knowledge base by id.
	Get(ctx context.Context, id string) (domain.KnowledgeBase, error)

	// List returns all knowledge bases.
	List(ctx context.Context) ([]domain.KnowledgeBase, error)

	// SetPlugins replaces a knowledge base's plugin opt-in list.
	SetPlugins(ctx context.Context, id string, usePlugins []string) error
}

// ChatService answers user messages with memory-augmented generation.
type ChatService interface {
	// Reply produces the bot's answer to one message.
	Reply(ctx context.Context, kbID, message string, history []domain.ChatTurn) (domain.Reply, error)

	// Stream produces the answer incrementally, invoking onDelta per
	// content fragment. The returned Reply carries the full text.
	Stream(ctx context.Context, kbID, message string, history []domain.ChatTurn, onDelta func(string)) (domain.Reply, error)
}

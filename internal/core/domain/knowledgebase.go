package domain

import "time"

// KnowledgeBase is one isolated memory scope: one vector collection plus
// a per-base plugin opt-in list.
type KnowledgeBase struct {
	// ID is the unique identifier, used as the collection name.
	ID string

	// Name is the human-readable label.
	Name string

	// UsePlugins lists plugin ids opted into this knowledge base.
	// Scoping intersects it with the globally active set; the core
	// plugin is always included regardless.
	UsePlugins []string

	// CreatedAt is when the knowledge base was created.
	CreatedAt time.Time
}

// ProvenanceRecord links a stored vector to the source file it came from.
// It supports deletion by filename and the re-ingestion skip check for
// remote documents.
type ProvenanceRecord struct {
	// DocID is the vector id inside the knowledge base collection.
	DocID string

	// Filename is the original filename, prefix stripped.
	Filename string

	// KnowledgeBaseID scopes the record to one collection.
	KnowledgeBaseID string

	// RemoteTitle is the remote document title, empty for local uploads.
	RemoteTitle string

	// RemoteEditTime is the remote document's last edit time.
	// Zero for local uploads.
	RemoteEditTime time.Time
}

package domain

// Document is a unit of text with arbitrary metadata.
// It is both the input to the processing pipeline (one per file, CSV row,
// spreadsheet block) and the output of the splitter (one per chunk).
type Document struct {
	// Content is the text content.
	Content string

	// Metadata contains arbitrary key-value pairs. Stored chunks always
	// carry "source" and "when".
	Metadata map[string]any
}

// RecallResult is a memory entry returned by similarity search.
type RecallResult struct {
	// ID is the vector id inside the collection.
	ID string

	// Document is the stored content and metadata.
	Document Document

	// Score is the cosine similarity against the query, in [0, 1].
	Score float64
}

// SplitRequest flows through the "splitter_splits_text" hook. The default
// implementation runs the recursive character splitter with the given
// policy; plugins may substitute their own splitting entirely.
type SplitRequest struct {
	// Documents are the unsplit input documents.
	Documents []Document

	// ChunkSize is the target chunk size in characters.
	ChunkSize int

	// Overlap is the overlap between adjacent chunks in characters.
	Overlap int
}

// RecallConfig holds the parameters of one memory recall pass.
// Hooks may edit it before the search runs.
type RecallConfig struct {
	// K is the maximum number of entries to retrieve.
	K int

	// Threshold is the minimum similarity score. Entries scoring below
	// it are not returned.
	Threshold float64
}

// RecallRequest flows through the "before_bot_recalls_memories" hook,
// carrying the recall query and the per-memory configs.
type RecallRequest struct {
	// Query is the text embedded for similarity search.
	Query string

	// Declarative configures recall from the knowledge base collection.
	Declarative RecallConfig

	// Procedural configures recall from the tool-description collection.
	Procedural RecallConfig
}

// RecalledMemories flows through the "after_bot_recalled_memories" hook.
type RecalledMemories struct {
	// Declarative are the document memories recalled for the message.
	Declarative []RecallResult

	// Procedural are the tool-description memories recalled for the
	// message.
	Procedural []RecallResult
}

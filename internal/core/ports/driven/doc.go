// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorStore: per-collection on-disk vector memory
//   - EmbeddingService: generates vector embeddings
//   - ProvenanceStore: vector-to-source-file bookkeeping
//   - PluginStateStore: active-plugin allow-list persistence
//   - KnowledgeBaseStore: knowledge base persistence
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: language model operations. Without it, chat is disabled
//     but ingestion and plugin administration still work.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, plugin, or processor package
package driven

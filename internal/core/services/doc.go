// Package services contains the core application logic, free of adapter
// concerns.
//
// Services:
//   - Orchestrator: plugin lifecycle, hook dispatch, tool-embedding
//     reconciliation
//   - Ingestor: document ingestion pipeline and memory deletion
//   - Chat: memory-augmented reply generation with tool selection
//   - KnowledgeBaseManager: knowledge base definitions
//
// Services depend only on domain types and on the port interfaces in
// internal/core/ports; adapters are injected at startup.
package services

// Package domain defines the core business entities for Warren.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A unit of text flowing through the ingestion pipeline
//   - Hook: A named, prioritised plugin extension point
//   - Tool: An agent-callable capability with an embedded description
//   - KnowledgeBase: An isolated memory scope
//   - Reply: The bot's answer to one message
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

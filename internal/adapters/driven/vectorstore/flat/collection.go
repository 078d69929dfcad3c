package flat

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/logger"
)

// Ensure Collection implements the interface.
var _ driven.VectorCollection = (*Collection)(nil)

// Collection is one named flat vector index held fully in memory.
// Rows of the vector matrix align with indexToID; docstore maps the ids
// to their content and metadata. All mutations happen under mu and only
// reach disk on Save.
type Collection struct {
	mu sync.Mutex

	name         string
	indexPath    string
	docstorePath string
	embedder     driven.EmbeddingService

	vectors   [][]float32
	indexToID []string
	docstore  map[string]domain.Document
}

// indexFile is the gob-encoded on-disk form of the vector matrix.
type indexFile struct {
	Vectors   [][]float32
	IndexToID []string
}

// docstoreEntry is the JSON on-disk form of one stored document.
type docstoreEntry struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// AddTexts embeds and inserts the given texts. Texts that are empty after
// trimming are skipped without an id.
func (c *Collection) AddTexts(ctx context.Context, texts []string, metadatas []map[string]any) ([]string, error) {
	kept := make([]string, 0, len(texts))
	keptMeta := make([]map[string]any, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			logger.Debug("Skipping empty text at position %d in collection %s", i, c.name)
			continue
		}
		kept = append(kept, text)
		var meta map[string]any
		if i < len(metadatas) {
			meta = metadatas[i]
		}
		keptMeta = append(keptMeta, meta)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	embeddings, err := c.embedder.EmbedBatch(ctx, kept)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(embeddings) != len(kept) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(kept))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(kept))
	for i, text := range kept {
		id := uuid.New().String()
		c.vectors = append(c.vectors, embeddings[i])
		c.indexToID = append(c.indexToID, id)
		c.docstore[id] = domain.Document{Content: text, Metadata: keptMeta[i]}
		ids = append(ids, id)
	}
	return ids, nil
}

// Remove deletes the given ids and rebuilds a densely-indexed structure
// from the survivors. A nil ids slice empties the collection.
func (c *Collection) Remove(_ context.Context, ids []string) (int, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalBefore := len(c.indexToID)

	if ids == nil {
		c.vectors = nil
		c.indexToID = nil
		c.docstore = make(map[string]domain.Document)
		return totalBefore, totalBefore, nil
	}

	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if doomed[id] {
			return 0, totalBefore, fmt.Errorf("%w: %s", domain.ErrDuplicateRemovalID, id)
		}
		doomed[id] = true
	}

	// Rebuild from scratch rather than patching holes in place.
	newVectors := make([][]float32, 0, totalBefore)
	newIndexToID := make([]string, 0, totalBefore)
	newDocstore := make(map[string]domain.Document, totalBefore)
	removed := 0
	for i, id := range c.indexToID {
		if doomed[id] {
			removed++
			continue
		}
		newVectors = append(newVectors, c.vectors[i])
		newIndexToID = append(newIndexToID, id)
		newDocstore[id] = c.docstore[id]
	}

	c.vectors = newVectors
	c.indexToID = newIndexToID
	c.docstore = newDocstore
	return removed, totalBefore, nil
}

// Entries returns a copy of every stored entry keyed by id.
func (c *Collection) Entries() map[string]domain.Document {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make(map[string]domain.Document, len(c.docstore))
	for id, doc := range c.docstore {
		entries[id] = doc
	}
	return entries
}

// Search embeds the query and returns up to k entries scoring at or above
// threshold, best first.
func (c *Collection) Search(ctx context.Context, query string, k int, threshold float64) ([]domain.RecallResult, error) {
	queryVec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	results := make([]domain.RecallResult, 0, k)
	for i, vec := range c.vectors {
		score := cosineSimilarity(queryVec, vec)
		if score < threshold {
			continue
		}
		id := c.indexToID[i]
		results = append(results, domain.RecallResult{
			ID:       id,
			Document: c.docstore[id],
			Score:    score,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Save flushes the index and docstore to disk.
func (c *Collection) Save(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persist()
}

// persist writes both files. Callers must hold mu.
func (c *Collection) persist() error {
	f, err := os.OpenFile(c.indexPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(indexFile{Vectors: c.vectors, IndexToID: c.indexToID}); err != nil {
		f.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}

	entries := make(map[string]docstoreEntry, len(c.docstore))
	for id, doc := range c.docstore {
		entries[id] = docstoreEntry{Content: doc.Content, Metadata: doc.Metadata}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode docstore: %w", err)
	}
	if err := os.WriteFile(c.docstorePath, data, 0600); err != nil {
		return fmt.Errorf("write docstore: %w", err)
	}

	logger.Debug("Saved collection %s (%d entries)", c.name, len(c.indexToID))
	return nil
}

// load reads both files into memory. Callers must hold mu.
func (c *Collection) load() error {
	f, err := os.Open(c.indexPath)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var idx indexFile
	if err := gob.NewDecoder(f).Decode(&idx); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}

	data, err := os.ReadFile(c.docstorePath)
	if err != nil {
		return fmt.Errorf("read docstore: %w", err)
	}
	entries := make(map[string]docstoreEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode docstore: %w", err)
	}

	c.vectors = idx.Vectors
	c.indexToID = idx.IndexToID
	c.docstore = make(map[string]domain.Document, len(entries))
	for id, e := range entries {
		c.docstore[id] = domain.Document{Content: e.Content, Metadata: e.Metadata}
	}
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Package flat provides an on-disk vector store with one flat index per
// collection. Vectors and the dense id mapping live in a gob file, the
// documents in a JSON docstore next to it. Search is brute-force cosine
// similarity, which stays fast well past the collection sizes a local
// knowledge base reaches.
package flat

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// seedContent is the placeholder record every new collection starts with,
// so a collection is never empty.
const seedContent = "Hello, Warren!"

// Store opens flat collections under a root directory. The same
// *Collection instance is returned for repeated opens of one name, so
// its mutex serialises all access to that collection.
type Store struct {
	mu          sync.Mutex
	root        string
	embedder    driven.EmbeddingService
	collections map[string]*Collection
}

// NewStore creates a store rooted at dir, creating it when missing.
func NewStore(dir string, embedder driven.EmbeddingService) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create vector dir: %w", err)
	}
	return &Store{
		root:        dir,
		embedder:    embedder,
		collections: make(map[string]*Collection),
	}, nil
}

// Open loads the named collection, creating and seeding it when absent.
func (s *Store) Open(name string) (driven.VectorCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	c := &Collection{
		name:         name,
		indexPath:    filepath.Join(s.root, name+".index"),
		docstorePath: filepath.Join(s.root, name+".docstore.json"),
		embedder:     s.embedder,
		docstore:     make(map[string]domain.Document),
	}

	if _, err := os.Stat(c.indexPath); err == nil {
		if err := c.load(); err != nil {
			return nil, fmt.Errorf("load collection %s: %w", name, err)
		}
		logger.Debug("Loaded collection %s (%d entries)", name, len(c.indexToID))
	} else if os.IsNotExist(err) {
		if err := s.seed(c); err != nil {
			return nil, fmt.Errorf("seed collection %s: %w", name, err)
		}
		logger.Info("Created collection %s", name)
	} else {
		return nil, fmt.Errorf("stat collection %s: %w", name, err)
	}

	s.collections[name] = c
	return c, nil
}

// Drop removes the named collection from memory and disk.
func (s *Store) Drop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, name)

	indexPath := filepath.Join(s.root, name+".index")
	docstorePath := filepath.Join(s.root, name+".docstore.json")
	for _, path := range []string{indexPath, docstorePath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
	}
	logger.Info("Dropped collection %s", name)
	return nil
}

// seed writes the placeholder record into a brand new collection.
// The placeholder carries a zero vector: it pads the collection without
// ever matching a similarity search.
func (c *Collection) seedPlaceholder(dimensions int) {
	id := "00000000-0000-0000-0000-000000000000"
	c.vectors = append(c.vectors, make([]float32, dimensions))
	c.indexToID = append(c.indexToID, id)
	c.docstore[id] = domain.Document{
		Content:  seedContent,
		Metadata: map[string]any{"name": "Hello"},
	}
}

func (s *Store) seed(c *Collection) error {
	c.seedPlaceholder(s.embedder.Dimensions())
	return c.persist()
}

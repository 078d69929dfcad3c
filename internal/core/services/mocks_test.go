package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
)

// fakeCollection is an in-memory vector collection. Search returns canned
// results so tests control recall without real embeddings.
type fakeCollection struct {
	name    string
	entries map[string]domain.Document
	order   []string
	nextID  int

	results   []domain.RecallResult
	addCalls  int
	removeOps int
	saves     int
}

var _ driven.VectorCollection = (*fakeCollection)(nil)

func (c *fakeCollection) Name() string { return c.name }

func (c *fakeCollection) AddTexts(_ context.Context, texts []string, metadatas []map[string]any) ([]string, error) {
	c.addCalls++
	var ids []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		id := fmt.Sprintf("%s-%d", c.name, c.nextID)
		c.nextID++

		var meta map[string]any
		if i < len(metadatas) {
			meta = metadatas[i]
		}
		c.entries[id] = domain.Document{Content: text, Metadata: meta}
		c.order = append(c.order, id)
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *fakeCollection) Remove(_ context.Context, ids []string) (int, int, error) {
	c.removeOps++
	before := len(c.entries)

	if ids == nil {
		c.entries = map[string]domain.Document{}
		c.order = nil
		return before, before, nil
	}

	seen := map[string]bool{}
	removed := 0
	for _, id := range ids {
		if seen[id] {
			return 0, before, fmt.Errorf("%w: %s", domain.ErrDuplicateRemovalID, id)
		}
		seen[id] = true
		if _, ok := c.entries[id]; ok {
			delete(c.entries, id)
			removed++
		}
	}

	var order []string
	for _, id := range c.order {
		if _, ok := c.entries[id]; ok {
			order = append(order, id)
		}
	}
	c.order = order
	return removed, before, nil
}

func (c *fakeCollection) Entries() map[string]domain.Document {
	out := make(map[string]domain.Document, len(c.entries))
	for id, doc := range c.entries {
		out[id] = doc
	}
	return out
}

func (c *fakeCollection) Search(_ context.Context, _ string, k int, threshold float64) ([]domain.RecallResult, error) {
	var out []domain.RecallResult
	for _, r := range c.results {
		if r.Score >= threshold && len(out) < k {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *fakeCollection) Save(_ context.Context) error {
	c.saves++
	return nil
}

// fakeVectorStore hands out fakeCollections keyed by name.
type fakeVectorStore struct {
	collections map[string]*fakeCollection
	dropped     []string
}

var _ driven.VectorStore = (*fakeVectorStore)(nil)

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: map[string]*fakeCollection{}}
}

func (s *fakeVectorStore) Open(name string) (driven.VectorCollection, error) {
	return s.collection(name), nil
}

func (s *fakeVectorStore) collection(name string) *fakeCollection {
	if c, ok := s.collections[name]; ok {
		return c
	}
	c := &fakeCollection{name: name, entries: map[string]domain.Document{}}
	s.collections[name] = c
	return c
}

func (s *fakeVectorStore) Drop(name string) error {
	delete(s.collections, name)
	s.dropped = append(s.dropped, name)
	return nil
}

// fakeStateStore records active-plugin allow-list saves.
type fakeStateStore struct {
	ids   []string
	saves [][]string
}

var _ driven.PluginStateStore = (*fakeStateStore)(nil)

func (s *fakeStateStore) SaveActivePlugins(_ context.Context, ids []string) error {
	s.ids = append([]string{}, ids...)
	s.saves = append(s.saves, s.ids)
	return nil
}

func (s *fakeStateStore) LoadActivePlugins(_ context.Context) ([]string, error) {
	if s.ids == nil {
		return []string{}, nil
	}
	return s.ids, nil
}

// fakeKBStore is an in-memory knowledge base store.
type fakeKBStore struct {
	kbs map[string]domain.KnowledgeBase
}

var _ driven.KnowledgeBaseStore = (*fakeKBStore)(nil)

func newFakeKBStore(kbs ...domain.KnowledgeBase) *fakeKBStore {
	s := &fakeKBStore{kbs: map[string]domain.KnowledgeBase{}}
	for _, kb := range kbs {
		s.kbs[kb.ID] = kb
	}
	return s
}

func (s *fakeKBStore) SaveKnowledgeBase(_ context.Context, kb domain.KnowledgeBase) error {
	s.kbs[kb.ID] = kb
	return nil
}

func (s *fakeKBStore) GetKnowledgeBase(_ context.Context, id string) (domain.KnowledgeBase, error) {
	kb, ok := s.kbs[id]
	if !ok {
		return domain.KnowledgeBase{}, fmt.Errorf("%w: knowledge base %s", domain.ErrNotFound, id)
	}
	return kb, nil
}

func (s *fakeKBStore) ListKnowledgeBases(_ context.Context) ([]domain.KnowledgeBase, error) {
	var out []domain.KnowledgeBase
	for _, kb := range s.kbs {
		out = append(out, kb)
	}
	return out, nil
}

func (s *fakeKBStore) DeleteKnowledgeBase(_ context.Context, id string) error {
	delete(s.kbs, id)
	return nil
}

// fakeProvenanceStore is an in-memory provenance store.
type fakeProvenanceStore struct {
	records []domain.ProvenanceRecord
}

var _ driven.ProvenanceStore = (*fakeProvenanceStore)(nil)

func (s *fakeProvenanceStore) SaveRecords(_ context.Context, records []domain.ProvenanceRecord) error {
	s.records = append(s.records, records...)
	return nil
}

func (s *fakeProvenanceStore) RecordsByFilename(_ context.Context, kbID, filename string) ([]domain.ProvenanceRecord, error) {
	var out []domain.ProvenanceRecord
	for _, r := range s.records {
		if r.KnowledgeBaseID == kbID && r.Filename == filename {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeProvenanceStore) RecordsByKnowledgeBase(_ context.Context, kbID string) ([]domain.ProvenanceRecord, error) {
	var out []domain.ProvenanceRecord
	for _, r := range s.records {
		if r.KnowledgeBaseID == kbID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeProvenanceStore) DeleteByFilename(_ context.Context, kbID, filename string) error {
	var kept []domain.ProvenanceRecord
	for _, r := range s.records {
		if !(r.KnowledgeBaseID == kbID && r.Filename == filename) {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

func (s *fakeProvenanceStore) DeleteByKnowledgeBase(_ context.Context, kbID string) error {
	var kept []domain.ProvenanceRecord
	for _, r := range s.records {
		if r.KnowledgeBaseID != kbID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

func (s *fakeProvenanceStore) RemoteEditTime(_ context.Context, kbID, filename string) (time.Time, error) {
	var latest time.Time
	for _, r := range s.records {
		if r.KnowledgeBaseID == kbID && r.Filename == filename && r.RemoteEditTime.After(latest) {
			latest = r.RemoteEditTime
		}
	}
	return latest, nil
}

// fakeLLM replays canned replies in order and records the prompts it saw.
type fakeLLM struct {
	replies []string
	prompts []string
}

var _ driven.LLMService = (*fakeLLM)(nil)

func (l *fakeLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	l.prompts = append(l.prompts, messages[len(messages)-1].Content)
	if len(l.replies) == 0 {
		return "", fmt.Errorf("%w: no canned reply left", domain.ErrLLMUnavailable)
	}
	reply := l.replies[0]
	l.replies = l.replies[1:]
	return reply, nil
}

func (l *fakeLLM) ChatStream(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions, onDelta func(string)) (string, error) {
	reply, err := l.Chat(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	if onDelta != nil {
		half := len(reply) / 2
		onDelta(reply[:half])
		onDelta(reply[half:])
	}
	return reply, nil
}

func (l *fakeLLM) ModelName() string { return "fake" }

func (l *fakeLLM) Ping(_ context.Context) error { return nil }

func (l *fakeLLM) Close() error { return nil }

// fakePrompts serves fixed templates with the slots the chat service
// fills in.
type fakePrompts struct{}

var _ driven.PromptStore = (*fakePrompts)(nil)

func (fakePrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptAgentPrefix:
		return "PREFIX\n", nil
	case driven.PromptAgentInstructions:
		return "QUESTION: %s\nTOOLS:\n%s", nil
	case driven.PromptAgentSuffix:
		return "CONTEXT:\n%sHISTORY:%s\nHUMAN: %s\nAI: ", nil
	default:
		return "", fmt.Errorf("unknown prompt %q", name)
	}
}

func (fakePrompts) Reload() {}

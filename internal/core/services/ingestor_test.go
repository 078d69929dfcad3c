package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/plugins"
	"github.com/warren-labs/warren/internal/processors"
)

type ingestorFixture struct {
	ingestor   *Ingestor
	store      *fakeVectorStore
	provenance *fakeProvenanceStore
	kbs        *fakeKBStore
}

func newIngestorFixture(t *testing.T) *ingestorFixture {
	t.Helper()

	f := &ingestorFixture{
		store:      newFakeVectorStore(),
		provenance: &fakeProvenanceStore{},
		kbs:        newFakeKBStore(),
	}

	orch := NewOrchestrator(t.TempDir(), plugins.NewRegistry(), fakePrompts{}, &fakeStateStore{}, f.kbs, f.store)
	if err := orch.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.ingestor = NewIngestor(processors.NewDefaultDispatcher(), orch, f.store, f.provenance, f.kbs)
	return f
}

func writeUpload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestor_ProcessFile(t *testing.T) {
	f := newIngestorFixture(t)
	path := writeUpload(t, "(kb-123)notes.txt",
		"The first paragraph talks about cats.\n\nThe second paragraph talks about dogs.")

	before := time.Now().Unix()
	if err := f.ingestor.ProcessFile(context.Background(), path); err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}

	// Both paragraphs fit one 4000-char chunk.
	coll := f.store.collection("kb-123")
	if len(coll.entries) != 1 {
		t.Fatalf("got %d memories, want 1", len(coll.entries))
	}
	for _, doc := range coll.entries {
		if doc.Metadata["source"] != "notes.txt" {
			t.Errorf("source = %v, want notes.txt (prefix stripped)", doc.Metadata["source"])
		}
		when, ok := doc.Metadata["when"].(float64)
		if !ok || when < float64(before) {
			t.Errorf("when = %v, want recent timestamp", doc.Metadata["when"])
		}
	}
	if coll.saves == 0 {
		t.Error("collection was not saved")
	}

	if len(f.provenance.records) != 1 {
		t.Fatalf("got %d provenance rows, want 1", len(f.provenance.records))
	}
	r := f.provenance.records[0]
	if r.KnowledgeBaseID != "kb-123" || r.Filename != "notes.txt" || r.DocID == "" {
		t.Errorf("provenance row = %+v", r)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("upload was not deleted")
	}
}

func TestIngestor_ProcessFile_MissingPrefix(t *testing.T) {
	f := newIngestorFixture(t)
	path := writeUpload(t, "notes.txt", "content without routing prefix")

	err := f.ingestor.ProcessFile(context.Background(), path)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("rejected upload was not deleted")
	}
}

func TestIngestor_ProcessFile_UnsupportedType(t *testing.T) {
	f := newIngestorFixture(t)
	path := writeUpload(t, "(kb-123)photo.png", "binary-ish")

	err := f.ingestor.ProcessFile(context.Background(), path)
	if !errors.Is(err, domain.ErrUnsupportedMediaType) {
		t.Errorf("error = %v, want ErrUnsupportedMediaType", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("rejected upload was not deleted")
	}
}

func TestIngestor_ProcessDocuments_SkipsCurrentCopy(t *testing.T) {
	f := newIngestorFixture(t)
	ctx := context.Background()
	edited := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	f.provenance.records = []domain.ProvenanceRecord{
		{DocID: "kb1-0", KnowledgeBaseID: "kb1", Filename: "wiki-page", RemoteEditTime: edited},
	}

	docs := []domain.Document{{Content: "The page content did not change at all."}}
	if err := f.ingestor.ProcessDocuments(ctx, "kb1", docs, "wiki-page", "Wiki Page", edited); err != nil {
		t.Fatal(err)
	}

	if calls := f.store.collection("kb1").addCalls; calls != 0 {
		t.Errorf("embedded %d batches for a current copy, want 0", calls)
	}
}

func TestIngestor_ProcessDocuments_ReplacesStaleCopy(t *testing.T) {
	f := newIngestorFixture(t)
	ctx := context.Background()
	stored := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Seed the previous ingestion of the page.
	coll := f.store.collection("kb1")
	oldIDs, err := coll.AddTexts(ctx, []string{"Old content of the remote page."}, []map[string]any{{"source": "wiki-page"}})
	if err != nil {
		t.Fatal(err)
	}
	f.provenance.records = []domain.ProvenanceRecord{
		{DocID: oldIDs[0], KnowledgeBaseID: "kb1", Filename: "wiki-page", RemoteEditTime: stored},
	}

	docs := []domain.Document{{Content: "Fresh content of the remote page, recently edited."}}
	if err := f.ingestor.ProcessDocuments(ctx, "kb1", docs, "wiki-page", "Wiki Page", stored.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	if _, ok := coll.entries[oldIDs[0]]; ok {
		t.Error("stale memory survived re-ingestion")
	}
	if len(coll.entries) != 1 {
		t.Fatalf("got %d memories, want 1", len(coll.entries))
	}

	rows, err := f.provenance.RecordsByFilename(ctx, "kb1", "wiki-page")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || !rows[0].RemoteEditTime.Equal(stored.Add(time.Hour)) {
		t.Errorf("provenance rows = %+v", rows)
	}
}

func TestIngestor_DeleteByFilename(t *testing.T) {
	f := newIngestorFixture(t)
	ctx := context.Background()

	coll := f.store.collection("kb1")
	ids, err := coll.AddTexts(ctx,
		[]string{"Chunk from notes file.", "Another chunk from notes.", "Chunk from other file."},
		[]map[string]any{{}, {}, {}})
	if err != nil {
		t.Fatal(err)
	}
	f.provenance.records = []domain.ProvenanceRecord{
		{DocID: ids[0], KnowledgeBaseID: "kb1", Filename: "notes.txt"},
		{DocID: ids[1], KnowledgeBaseID: "kb1", Filename: "notes.txt"},
		{DocID: ids[2], KnowledgeBaseID: "kb1", Filename: "other.md"},
	}

	if err := f.ingestor.DeleteByFilename(ctx, "kb1", "notes.txt"); err != nil {
		t.Fatal(err)
	}

	if len(coll.entries) != 1 {
		t.Errorf("got %d memories, want 1 survivor", len(coll.entries))
	}
	rows, _ := f.provenance.RecordsByKnowledgeBase(ctx, "kb1")
	if len(rows) != 1 || rows[0].Filename != "other.md" {
		t.Errorf("provenance rows = %+v", rows)
	}
	if coll.saves == 0 {
		t.Error("collection was not saved after removal")
	}
}

func TestIngestor_DeleteKnowledgeBase(t *testing.T) {
	f := newIngestorFixture(t)
	ctx := context.Background()

	f.kbs.kbs["kb1"] = domain.KnowledgeBase{ID: "kb1", Name: "Research"}
	f.provenance.records = []domain.ProvenanceRecord{
		{DocID: "kb1-0", KnowledgeBaseID: "kb1", Filename: "notes.txt"},
		{DocID: "kb2-0", KnowledgeBaseID: "kb2", Filename: "notes.txt"},
	}

	if err := f.ingestor.DeleteKnowledgeBase(ctx, "kb1"); err != nil {
		t.Fatal(err)
	}

	if len(f.store.dropped) != 1 || f.store.dropped[0] != "kb1" {
		t.Errorf("dropped collections = %v, want [kb1]", f.store.dropped)
	}
	if _, ok := f.kbs.kbs["kb1"]; ok {
		t.Error("knowledge base definition survived")
	}
	rows, _ := f.provenance.RecordsByKnowledgeBase(ctx, "kb2")
	if len(rows) != 1 {
		t.Error("unrelated provenance rows were deleted")
	}
}

package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/core/ports/driving"
	"github.com/warren-labs/warren/internal/logger"
	"github.com/warren-labs/warren/internal/processors"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestionService = (*Ingestor)(nil)

// insertInterval paces chunk inserts to respect embedding-provider rate
// limits.
const insertInterval = 100 * time.Millisecond

// uploadPattern is the "({knowledge_base_id}){original_filename}" routing
// convention produced by the upload boundary.
var uploadPattern = regexp.MustCompile(`^\((.+?)\)(.+)$`)

// Ingestor runs the document ingestion pipeline: media-type dispatch,
// chunking through the splitting hooks, embedding into the knowledge
// base's vector collection and provenance bookkeeping.
type Ingestor struct {
	dispatcher *processors.Dispatcher
	orch       *Orchestrator
	vectors    driven.VectorStore
	provenance driven.ProvenanceStore
	kbs        driven.KnowledgeBaseStore
	limiter    *rate.Limiter
}

// NewIngestor creates the ingestion service.
func NewIngestor(
	dispatcher *processors.Dispatcher,
	orch *Orchestrator,
	vectors driven.VectorStore,
	provenance driven.ProvenanceStore,
	kbs driven.KnowledgeBaseStore,
) *Ingestor {
	return &Ingestor{
		dispatcher: dispatcher,
		orch:       orch,
		vectors:    vectors,
		provenance: provenance,
		kbs:        kbs,
		limiter:    rate.NewLimiter(rate.Every(insertInterval), 1),
	}
}

// ProcessFile ingests one uploaded file. The upload is deleted afterwards
// whether or not ingestion succeeded, so a failed run can be re-triggered
// by re-uploading.
func (s *Ingestor) ProcessFile(ctx context.Context, path string) (err error) {
	defer func() {
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("Could not delete upload %s: %v", path, removeErr)
		}
		if err != nil {
			logger.Warn("Ingestion of %s failed: %v", path, err)
		}
	}()

	kbID, filename, err := parseUploadName(filepath.Base(path))
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	logger.Section("Ingestion")
	logger.Info("Ingesting %s into knowledge base %s", filename, kbID)

	chunks, err := s.dispatcher.Process(ctx, raw, filename, s.orch.ExecuteHook)
	if err != nil {
		return err
	}

	return s.storeChunks(ctx, kbID, filename, chunks, "", time.Time{})
}

// ProcessDocuments ingests pre-parsed documents fetched from a remote
// source. When the stored copy is current (remote edit time not newer
// than the stored provenance edit time) the work is skipped; otherwise
// the previous memories for the same (kb, filename) are replaced.
func (s *Ingestor) ProcessDocuments(ctx context.Context, kbID string, docs []domain.Document, remoteName, remoteTitle string, remoteEdit time.Time) error {
	stored, err := s.provenance.RemoteEditTime(ctx, kbID, remoteName)
	if err != nil {
		return fmt.Errorf("check stored edit time: %w", err)
	}
	if !stored.IsZero() && !remoteEdit.After(stored) {
		logger.Info("Skipping %s: stored copy is current", remoteName)
		return nil
	}
	if !stored.IsZero() {
		if err := s.DeleteByFilename(ctx, kbID, remoteName); err != nil {
			return fmt.Errorf("replace previous memories: %w", err)
		}
	}

	logger.Section("Ingestion")
	logger.Info("Ingesting %d pre-parsed documents as %s into knowledge base %s", len(docs), remoteName, kbID)

	chunks, err := processors.ProcessParsed(ctx, docs, s.orch.ExecuteHook)
	if err != nil {
		return err
	}

	return s.storeChunks(ctx, kbID, remoteName, chunks, remoteTitle, remoteEdit)
}

// DeleteByFilename removes every memory ingested from one file: batch
// vector removal, collection save, then provenance row deletion.
func (s *Ingestor) DeleteByFilename(ctx context.Context, kbID, filename string) error {
	records, err := s.provenance.RecordsByFilename(ctx, kbID, filename)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		coll, err := s.vectors.Open(kbID)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.DocID)
		}
		removed, _, err := coll.Remove(ctx, ids)
		if err != nil {
			return err
		}
		if err := coll.Save(ctx); err != nil {
			return err
		}
		logger.Info("Removed %d memories for %s", removed, filename)
	}

	return s.provenance.DeleteByFilename(ctx, kbID, filename)
}

// DeleteKnowledgeBase removes a knowledge base's memories, provenance
// rows and definition.
func (s *Ingestor) DeleteKnowledgeBase(ctx context.Context, kbID string) error {
	if err := s.vectors.Drop(kbID); err != nil {
		return fmt.Errorf("drop collection %s: %w", kbID, err)
	}
	if err := s.provenance.DeleteByKnowledgeBase(ctx, kbID); err != nil {
		return err
	}
	if err := s.kbs.DeleteKnowledgeBase(ctx, kbID); err != nil {
		return err
	}
	logger.Info("Deleted knowledge base %s", kbID)
	return nil
}

// storeChunks embeds the chunks into the knowledge base's collection
// strictly sequentially with pacing, saves the collection, then writes
// provenance rows. Embedding errors propagate; chunks already inserted
// stay (at-least-once policy).
func (s *Ingestor) storeChunks(ctx context.Context, kbID, source string, chunks []domain.Document, remoteTitle string, remoteEdit time.Time) error {
	coll, err := s.vectors.Open(kbID)
	if err != nil {
		return err
	}

	now := float64(time.Now().Unix())
	records := make([]domain.ProvenanceRecord, 0, len(chunks))

	for _, chunk := range chunks {
		if chunk.Metadata == nil {
			chunk.Metadata = map[string]any{}
		}
		chunk.Metadata["source"] = source
		chunk.Metadata["when"] = now

		v, err := s.orch.ExecuteHook(ctx, domain.HookBeforeInsertMemory, chunk)
		if err != nil {
			return err
		}
		chunk, err = asDocument(v)
		if err != nil {
			return err
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		ids, err := coll.AddTexts(ctx, []string{chunk.Content}, []map[string]any{chunk.Metadata})
		if err != nil {
			return fmt.Errorf("embed chunk: %w", err)
		}
		for _, id := range ids {
			records = append(records, domain.ProvenanceRecord{
				DocID:           id,
				Filename:        source,
				KnowledgeBaseID: kbID,
				RemoteTitle:     remoteTitle,
				RemoteEditTime:  remoteEdit,
			})
		}
	}

	if err := coll.Save(ctx); err != nil {
		return fmt.Errorf("save collection %s: %w", kbID, err)
	}
	if err := s.provenance.SaveRecords(ctx, records); err != nil {
		return fmt.Errorf("save provenance: %w", err)
	}

	logger.Info("Stored %d memories from %s", len(records), source)
	return nil
}

// parseUploadName splits "({kb_id}){name}" into its parts.
func parseUploadName(name string) (kbID, filename string, err error) {
	m := uploadPattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", fmt.Errorf("%w: filename %q lacks the (knowledge base) prefix", domain.ErrInvalidInput, name)
	}
	return m[1], m[2], nil
}

// asDocument coerces a hook return value back to a document.
func asDocument(v any) (domain.Document, error) {
	switch d := v.(type) {
	case domain.Document:
		return d, nil
	case *domain.Document:
		return *d, nil
	default:
		return domain.Document{}, fmt.Errorf("%w: hook returned %T, want domain.Document", domain.ErrInvalidInput, v)
	}
}

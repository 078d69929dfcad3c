package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/warren-labs/warren/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.warren/data/warren.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".warren", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "warren.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ProvenanceStore returns a ProvenanceStore interface backed by this store.
func (s *Store) ProvenanceStore() driven.ProvenanceStore {
	return &provenanceStore{store: s}
}

// PluginStateStore returns a PluginStateStore interface backed by this store.
func (s *Store) PluginStateStore() driven.PluginStateStore {
	return &pluginStateStore{store: s}
}

// KnowledgeBaseStore returns a KnowledgeBaseStore interface backed by this store.
func (s *Store) KnowledgeBaseStore() driven.KnowledgeBaseStore {
	return &knowledgeBaseStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Provenance Store ====================

// provenanceStore implements driven.ProvenanceStore.
type provenanceStore struct {
	store *Store
}

var _ driven.ProvenanceStore = (*provenanceStore)(nil)

// SaveRecords inserts provenance rows in one transaction.
func (p *provenanceStore) SaveRecords(ctx context.Context, records []domain.ProvenanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO provenance (doc_id, knowledge_base_id, filename, remote_title, remote_edit_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			knowledge_base_id = excluded.knowledge_base_id,
			filename = excluded.filename,
			remote_title = excluded.remote_title,
			remote_edit_time = excluded.remote_edit_time
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.DocID, r.KnowledgeBaseID, r.Filename,
			r.RemoteTitle, nullTime(r.RemoteEditTime)); err != nil {
			return fmt.Errorf("saving provenance for %s: %w", r.DocID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing provenance: %w", err)
	}
	return nil
}

// RecordsByFilename returns the rows for one file in one knowledge base.
func (p *provenanceStore) RecordsByFilename(ctx context.Context, kbID, filename string) ([]domain.ProvenanceRecord, error) {
	rows, err := p.store.db.QueryContext(ctx, `
		SELECT doc_id, knowledge_base_id, filename, remote_title, remote_edit_time
		FROM provenance WHERE knowledge_base_id = ? AND filename = ?
	`, kbID, filename)
	if err != nil {
		return nil, fmt.Errorf("querying provenance: %w", err)
	}
	defer rows.Close()

	return scanProvenanceRows(rows)
}

// RecordsByKnowledgeBase returns every row for one knowledge base.
func (p *provenanceStore) RecordsByKnowledgeBase(ctx context.Context, kbID string) ([]domain.ProvenanceRecord, error) {
	rows, err := p.store.db.QueryContext(ctx, `
		SELECT doc_id, knowledge_base_id, filename, remote_title, remote_edit_time
		FROM provenance WHERE knowledge_base_id = ?
	`, kbID)
	if err != nil {
		return nil, fmt.Errorf("querying provenance: %w", err)
	}
	defer rows.Close()

	return scanProvenanceRows(rows)
}

// DeleteByFilename removes the rows for one file in one knowledge base.
func (p *provenanceStore) DeleteByFilename(ctx context.Context, kbID, filename string) error {
	_, err := p.store.db.ExecContext(ctx,
		"DELETE FROM provenance WHERE knowledge_base_id = ? AND filename = ?", kbID, filename)
	if err != nil {
		return fmt.Errorf("deleting provenance: %w", err)
	}
	return nil
}

// DeleteByKnowledgeBase removes every row for one knowledge base.
func (p *provenanceStore) DeleteByKnowledgeBase(ctx context.Context, kbID string) error {
	_, err := p.store.db.ExecContext(ctx,
		"DELETE FROM provenance WHERE knowledge_base_id = ?", kbID)
	if err != nil {
		return fmt.Errorf("deleting provenance: %w", err)
	}
	return nil
}

// RemoteEditTime returns the stored remote edit time for a file, or the
// zero time when no row exists.
func (p *provenanceStore) RemoteEditTime(ctx context.Context, kbID, filename string) (time.Time, error) {
	row := p.store.db.QueryRowContext(ctx, `
		SELECT remote_edit_time FROM provenance
		WHERE knowledge_base_id = ? AND filename = ?
		ORDER BY remote_edit_time DESC LIMIT 1
	`, kbID, filename)

	var t sql.NullTime
	if err := row.Scan(&t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("scanning remote edit time: %w", err)
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

// scanProvenanceRows reads provenance rows into domain records.
func scanProvenanceRows(rows *sql.Rows) ([]domain.ProvenanceRecord, error) {
	var records []domain.ProvenanceRecord
	for rows.Next() {
		var r domain.ProvenanceRecord
		var editTime sql.NullTime
		if err := rows.Scan(&r.DocID, &r.KnowledgeBaseID, &r.Filename, &r.RemoteTitle, &editTime); err != nil {
			return nil, fmt.Errorf("scanning provenance: %w", err)
		}
		if editTime.Valid {
			r.RemoteEditTime = editTime.Time
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ==================== Plugin State Store ====================

// pluginStateStore implements driven.PluginStateStore.
type pluginStateStore struct {
	store *Store
}

var _ driven.PluginStateStore = (*pluginStateStore)(nil)

// SaveActivePlugins replaces the stored allow-list.
func (p *pluginStateStore) SaveActivePlugins(ctx context.Context, ids []string) error {
	tx, err := p.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM active_plugins"); err != nil {
		return fmt.Errorf("clearing active plugins: %w", err)
	}

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO active_plugins (plugin_id, position) VALUES (?, ?)", id, i); err != nil {
			return fmt.Errorf("saving active plugin %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing active plugins: %w", err)
	}
	return nil
}

// LoadActivePlugins returns the stored allow-list in saved order.
func (p *pluginStateStore) LoadActivePlugins(ctx context.Context) ([]string, error) {
	rows, err := p.store.db.QueryContext(ctx,
		"SELECT plugin_id FROM active_plugins ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("querying active plugins: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning active plugin: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ==================== Knowledge Base Store ====================

// knowledgeBaseStore implements driven.KnowledgeBaseStore.
type knowledgeBaseStore struct {
	store *Store
}

var _ driven.KnowledgeBaseStore = (*knowledgeBaseStore)(nil)

// SaveKnowledgeBase inserts or updates a knowledge base.
func (k *knowledgeBaseStore) SaveKnowledgeBase(ctx context.Context, kb domain.KnowledgeBase) error {
	usePlugins := kb.UsePlugins
	if usePlugins == nil {
		usePlugins = []string{}
	}
	pluginsJSON, err := json.Marshal(usePlugins)
	if err != nil {
		return fmt.Errorf("marshalling use_plugins: %w", err)
	}

	if kb.CreatedAt.IsZero() {
		kb.CreatedAt = time.Now().UTC()
	}

	_, err = k.store.db.ExecContext(ctx, `
		INSERT INTO knowledge_bases (id, name, use_plugins, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			use_plugins = excluded.use_plugins
	`, kb.ID, kb.Name, string(pluginsJSON), kb.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving knowledge base: %w", err)
	}
	return nil
}

// GetKnowledgeBase returns one knowledge base by id.
func (k *knowledgeBaseStore) GetKnowledgeBase(ctx context.Context, id string) (domain.KnowledgeBase, error) {
	row := k.store.db.QueryRowContext(ctx,
		"SELECT id, name, use_plugins, created_at FROM knowledge_bases WHERE id = ?", id)

	kb, err := scanKnowledgeBase(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.KnowledgeBase{}, domain.ErrNotFound
		}
		return domain.KnowledgeBase{}, err
	}
	return kb, nil
}

// ListKnowledgeBases returns every knowledge base ordered by name.
func (k *knowledgeBaseStore) ListKnowledgeBases(ctx context.Context) ([]domain.KnowledgeBase, error) {
	rows, err := k.store.db.QueryContext(ctx,
		"SELECT id, name, use_plugins, created_at FROM knowledge_bases ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying knowledge bases: %w", err)
	}
	defer rows.Close()

	var kbs []domain.KnowledgeBase
	for rows.Next() {
		kb, err := scanKnowledgeBase(rows.Scan)
		if err != nil {
			return nil, err
		}
		kbs = append(kbs, kb)
	}
	return kbs, rows.Err()
}

// DeleteKnowledgeBase removes one knowledge base by id.
func (k *knowledgeBaseStore) DeleteKnowledgeBase(ctx context.Context, id string) error {
	_, err := k.store.db.ExecContext(ctx, "DELETE FROM knowledge_bases WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting knowledge base: %w", err)
	}
	return nil
}

// scanKnowledgeBase reads one knowledge base row.
func scanKnowledgeBase(scan func(...any) error) (domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	var pluginsJSON string
	var createdAt sql.NullTime
	if err := scan(&kb.ID, &kb.Name, &pluginsJSON, &createdAt); err != nil {
		return domain.KnowledgeBase{}, err
	}
	if err := json.Unmarshal([]byte(pluginsJSON), &kb.UsePlugins); err != nil {
		return domain.KnowledgeBase{}, fmt.Errorf("unmarshaling use_plugins: %w", err)
	}
	if createdAt.Valid {
		kb.CreatedAt = createdAt.Time
	}
	return kb, nil
}

// nullTime converts a zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

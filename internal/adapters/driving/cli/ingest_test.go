package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestCmd_StagesUploadWithPrefix(t *testing.T) {
	s, cleanup := setupTestServices()
	defer cleanup()

	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("some notes"), 0600))

	out, err := execute("ingest", "--kb", "kb1", src)

	require.NoError(t, err)
	require.Len(t, s.ingestion.processed, 1)

	staged := s.ingestion.processed[0]
	assert.Equal(t, "(kb1)notes.txt", filepath.Base(staged))
	data, readErr := os.ReadFile(staged)
	require.NoError(t, readErr)
	assert.Equal(t, "some notes", string(data))
	os.Remove(staged)

	// Original stays in place, only the staged copy is consumed.
	_, statErr := os.Stat(src)
	assert.NoError(t, statErr)
	assert.Contains(t, out, "Ingested notes.txt")
}

func TestIngestCmd_RequiresKB(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("ingest", "somefile.txt")

	assert.ErrorContains(t, err, "--kb is required")
}

func TestIngestCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("ingest", "--kb", "kb1", filepath.Join(t.TempDir(), "absent.txt"))

	assert.ErrorContains(t, err, "failed to open")
}

func TestForgetCmd(t *testing.T) {
	s, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("forget", "--kb", "kb1", "notes.txt")

	require.NoError(t, err)
	assert.Equal(t, []string{"kb1/notes.txt"}, s.ingestion.forgotten)
	assert.Contains(t, out, "Forgot notes.txt")
}

func TestForgetCmd_RequiresKB(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("forget", "notes.txt")

	assert.ErrorContains(t, err, "--kb is required")
}

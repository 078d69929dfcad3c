package excel

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/processors/splitter"
)

func splittingRunner(ctx context.Context, name string, value any) (any, error) {
	if req, ok := value.(*domain.SplitRequest); ok {
		return splitter.SplitDocuments(req.Documents, req.ChunkSize, req.Overlap), nil
	}
	return value, nil
}

// buildXlsx assembles a minimal OOXML archive from file name to content.
func buildXlsx(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtensions(t *testing.T) {
	s := New()
	assert.Equal(t, []string{".xlsx", ".xls"}, s.Extensions())
	assert.Equal(t, "excel", s.Name())
}

func TestProcess_SharedStringsResolved(t *testing.T) {
	raw := buildXlsx(t, map[string]string{
		"xl/sharedStrings.xml": `<sst><si><t>Quarterly revenue</t></si><si><t>Growth rate</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData>
			<row><c t="s"><v>0</v></c><c><v>120000</v></c></row>
			<row><c t="s"><v>1</v></c><c><v>0.14</v></c></row>
		</sheetData></worksheet>`,
	})

	s := New()
	chunks, err := s.Process(context.Background(), raw, "numbers.xlsx", splittingRunner)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	joined := ""
	for _, c := range chunks {
		joined += c.Content + "\n"
	}
	assert.Contains(t, joined, "Quarterly revenue | 120000")
	assert.Contains(t, joined, "Growth rate | 0.14")
}

func TestProcess_EmptyRowsSkipped(t *testing.T) {
	raw := buildXlsx(t, map[string]string{
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData>
			<row><c><v></v></c><c><v></v></c></row>
			<row><c><v>only data row here</v></c></row>
		</sheetData></worksheet>`,
	})

	s := New()
	chunks, err := s.Process(context.Background(), raw, "sparse.xlsx", splittingRunner)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "only data row here", chunks[0].Content)
}

func TestProcess_LegacyXlsRejected(t *testing.T) {
	s := New()
	raw := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

	_, err := s.Process(context.Background(), raw, "legacy.xls", splittingRunner)
	assert.ErrorIs(t, err, domain.ErrUnsupportedMediaType)
}

func TestCellValue(t *testing.T) {
	shared := []string{"alpha", "beta"}

	assert.Equal(t, "beta", cellValue(cellXML{Type: "s", Value: "1"}, shared))
	assert.Equal(t, "42", cellValue(cellXML{Value: "42"}, shared))
	assert.Equal(t, "", cellValue(cellXML{Type: "s", Value: "9"}, shared))
}

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	ingestKB string
	forgetKB string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into a knowledge base",
	Long: `Chunk, embed and store a document as long-term memory.

The file is copied into the upload area before processing, so the
original is left untouched. Supported formats: text, markdown, csv,
pdf, docx and xlsx.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var forgetCmd = &cobra.Command{
	Use:   "forget [filename]",
	Short: "Delete every memory ingested from a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestKB, "kb", "", "target knowledge base id (required)")
	forgetCmd.Flags().StringVar(&forgetKB, "kb", "", "knowledge base id (required)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(forgetCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if ingestKB == "" {
		return errors.New("--kb is required")
	}

	upload, err := stageUpload(args[0], ingestKB)
	if err != nil {
		return err
	}

	if err := ingestionService.ProcessFile(cmd.Context(), upload); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	cmd.Printf("Ingested %s into knowledge base %s.\n", filepath.Base(args[0]), ingestKB)
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if forgetKB == "" {
		return errors.New("--kb is required")
	}

	if err := ingestionService.DeleteByFilename(cmd.Context(), forgetKB, args[0]); err != nil {
		return fmt.Errorf("failed to forget %s: %w", args[0], err)
	}
	cmd.Printf("Forgot %s in knowledge base %s.\n", args[0], forgetKB)
	return nil
}

// stageUpload copies the file into a scratch directory under the routed
// "({kb_id}){name}" upload name. Ingestion deletes the copy when done.
func stageUpload(path, kbID string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	staged := filepath.Join(os.TempDir(), fmt.Sprintf("(%s)%s", kbID, filepath.Base(path)))
	dst, err := os.Create(staged)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(staged)
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	return staged, nil
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/warren-labs/warren/internal/adapters/driving/tui"
)

var tuiKB string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive chat interface",
	Long: `Launch the interactive terminal chat interface.

Controls:
  Enter     - Send message
  ↑/↓       - Scroll transcript
  Esc, ^C   - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiKB, "kb", "", "knowledge base id (required)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Panic recovery with a stack trace, the TUI swallows terminal output.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if chatService == nil {
		return errors.New("chat service not configured")
	}
	if kbService == nil {
		return errors.New("knowledge base service not configured")
	}
	if tuiKB == "" {
		return errors.New("--kb is required")
	}

	kb, err := kbService.Get(cmd.Context(), tuiKB)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	model := tui.New(chatService, kb.ID, kb.Name).WithContext(cmd.Context())
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

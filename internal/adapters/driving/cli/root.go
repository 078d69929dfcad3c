// Package cli implements the warren command line interface on top of the
// driving ports. Services are injected once at startup via SetServices;
// commands fail with a clear error when run unwired.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/warren-labs/warren/internal/core/ports/driving"
	"github.com/warren-labs/warren/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services bundles everything the commands need.
type Services struct {
	Plugins        driving.PluginService
	Ingestion      driving.IngestionService
	Chat           driving.ChatService
	KnowledgeBases driving.KnowledgeBaseService
}

var (
	pluginService    driving.PluginService
	ingestionService driving.IngestionService
	chatService      driving.ChatService
	kbService        driving.KnowledgeBaseService

	verbose bool
)

// SetServices wires the core services into the command tree.
func SetServices(s Services) {
	pluginService = s.Plugins
	ingestionService = s.Ingestion
	chatService = s.Chat
	kbService = s.KnowledgeBases
}

var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "Warren - a plugin-extensible chatbot with long-term memory",
	Long: `Warren is a chatbot framework that remembers what you feed it.

Documents are chunked, embedded and stored per knowledge base; plugins
extend every stage of the pipeline through prioritised hooks and
recallable tools.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context. Commands
// see it via cmd.Context().
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var kbCreatePlugins []string

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage knowledge bases",
	Long: `Create, inspect and delete knowledge bases.

Each knowledge base is an isolated memory scope with its own plugin
opt-in list. Ingested documents and recalled memories never cross
knowledge base boundaries.`,
	RunE: runKBList,
}

var kbCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runKBCreate,
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge bases",
	RunE:  runKBList,
}

var kbPluginsCmd = &cobra.Command{
	Use:   "plugins [kb-id] [plugin-id...]",
	Short: "Set the plugins a knowledge base opts into",
	Long: `Replace a knowledge base's plugin opt-in list.

Only plugins that are both globally active and opted in here contribute
hooks and tools during chat. Pass no plugin ids to clear the list.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKBPlugins,
}

var kbDeleteCmd = &cobra.Command{
	Use:   "delete [kb-id]",
	Short: "Delete a knowledge base and all its memories",
	Args:  cobra.ExactArgs(1),
	RunE:  runKBDelete,
}

func init() {
	kbCreateCmd.Flags().StringSliceVar(&kbCreatePlugins, "plugins", nil, "plugin ids to opt into")

	kbCmd.AddCommand(kbCreateCmd)
	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbPluginsCmd)
	kbCmd.AddCommand(kbDeleteCmd)
	rootCmd.AddCommand(kbCmd)
}

func runKBCreate(cmd *cobra.Command, args []string) error {
	if kbService == nil {
		return errors.New("knowledge base service not configured")
	}

	kb, err := kbService.Create(cmd.Context(), args[0], kbCreatePlugins)
	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}
	cmd.Printf("Created knowledge base %q (%s).\n", kb.Name, kb.ID)
	return nil
}

func runKBList(cmd *cobra.Command, _ []string) error {
	if kbService == nil {
		return errors.New("knowledge base service not configured")
	}

	kbs, err := kbService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list knowledge bases: %w", err)
	}
	if len(kbs) == 0 {
		cmd.Println("No knowledge bases found.")
		return nil
	}

	cmd.Println("Knowledge bases:")
	cmd.Println()
	for _, kb := range kbs {
		cmd.Printf("  %s - %s\n", kb.ID, kb.Name)
		if len(kb.UsePlugins) > 0 {
			cmd.Printf("      Plugins: %s\n", strings.Join(kb.UsePlugins, ", "))
		}
		cmd.Println()
	}
	return nil
}

func runKBPlugins(cmd *cobra.Command, args []string) error {
	if kbService == nil {
		return errors.New("knowledge base service not configured")
	}

	id, pluginIDs := args[0], args[1:]
	if err := kbService.SetPlugins(cmd.Context(), id, pluginIDs); err != nil {
		return fmt.Errorf("failed to set plugins: %w", err)
	}
	if len(pluginIDs) == 0 {
		cmd.Printf("Cleared plugin opt-ins for %s.\n", id)
	} else {
		cmd.Printf("Knowledge base %s now opts into: %s\n", id, strings.Join(pluginIDs, ", "))
	}
	return nil
}

func runKBDelete(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	if err := ingestionService.DeleteKnowledgeBase(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}
	cmd.Printf("Deleted knowledge base %s and all its memories.\n", args[0])
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	chatKB     string
	chatStream bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message to the bot",
	Long: `Send a single message and print the bot's reply.

The reply is grounded in the knowledge base's memories; recalled tools
may run as part of answering. For a full conversation use 'warren tui'.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatKB, "kb", "", "knowledge base id (required)")
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "print the reply as it is generated")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	if chatKB == "" {
		return errors.New("--kb is required")
	}

	message := args[0]
	ctx := cmd.Context()

	if chatStream {
		reply, err := chatService.Stream(ctx, chatKB, message, nil, func(delta string) {
			cmd.Print(delta)
		})
		if err != nil {
			return fmt.Errorf("chat failed: %w", err)
		}
		cmd.Println()
		printAttribution(cmd, reply.UsedTool, reply.DeclarativeSources)
		return nil
	}

	reply, err := chatService.Reply(ctx, chatKB, message, nil)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	cmd.Println(reply.Content)
	printAttribution(cmd, reply.UsedTool, reply.DeclarativeSources)
	return nil
}

func printAttribution(cmd *cobra.Command, usedTool string, sources []string) {
	if usedTool != "" {
		cmd.Printf("\n(used tool: %s)\n", usedTool)
	}
	if len(sources) > 0 {
		cmd.Printf("\nSources: %s\n", strings.Join(sources, ", "))
	}
}

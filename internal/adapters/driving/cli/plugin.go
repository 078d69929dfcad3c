package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pluginSettingsSchema bool
	pluginSettingsSet    string
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Manage plugins",
	Long: `List, activate, install and configure plugins.

Plugins live as folders under the plugin directory. Toggling a plugin
persists the choice and updates the tool embeddings used for recall.`,
	RunE: runPluginList,
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all plugins",
	RunE:  runPluginList,
}

var pluginToggleCmd = &cobra.Command{
	Use:   "toggle [plugin-id]",
	Short: "Activate or deactivate a plugin",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginToggle,
}

var pluginInstallCmd = &cobra.Command{
	Use:   "install [archive]",
	Short: "Install a plugin from a zip or tar.gz archive",
	Long: `Install a plugin from an archive file.

The archive must contain exactly one top-level folder holding the
plugin's source files. The plugin is activated after installation.`,
	Args: cobra.ExactArgs(1),
	RunE: runPluginInstall,
}

var pluginUninstallCmd = &cobra.Command{
	Use:   "uninstall [plugin-id]",
	Short: "Remove a plugin and its folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginUninstall,
}

var pluginSettingsCmd = &cobra.Command{
	Use:   "settings [plugin-id]",
	Short: "Show or update plugin settings",
	Long: `Show a plugin's settings as JSON.

Use --schema to print the settings schema instead, or --set to merge a
JSON object over the stored settings.`,
	Args: cobra.ExactArgs(1),
	RunE: runPluginSettings,
}

func init() {
	pluginSettingsCmd.Flags().BoolVar(&pluginSettingsSchema, "schema", false, "print the settings schema")
	pluginSettingsCmd.Flags().StringVar(&pluginSettingsSet, "set", "", "JSON object to merge over the stored settings")

	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginToggleCmd)
	pluginCmd.AddCommand(pluginInstallCmd)
	pluginCmd.AddCommand(pluginUninstallCmd)
	pluginCmd.AddCommand(pluginSettingsCmd)
	rootCmd.AddCommand(pluginCmd)
}

func runPluginList(cmd *cobra.Command, _ []string) error {
	if pluginService == nil {
		return errors.New("plugin service not configured")
	}

	infos := pluginService.List(cmd.Context())
	if len(infos) == 0 {
		cmd.Println("No plugins found.")
		return nil
	}

	cmd.Println("Plugins:")
	cmd.Println()
	for _, info := range infos {
		state := "inactive"
		if info.Active {
			state = "active"
		}
		cmd.Printf("  %s (%s) - %s\n", info.ID, info.Manifest.Version, state)
		cmd.Printf("      %s\n", info.Manifest.Name)
		if info.Active {
			cmd.Printf("      %d hooks, %d tools\n", info.Hooks, info.Tools)
		}
		cmd.Println()
	}
	return nil
}

func runPluginToggle(cmd *cobra.Command, args []string) error {
	if pluginService == nil {
		return errors.New("plugin service not configured")
	}

	id := args[0]
	if err := pluginService.Toggle(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to toggle plugin: %w", err)
	}

	for _, info := range pluginService.List(cmd.Context()) {
		if info.ID != id {
			continue
		}
		if info.Active {
			cmd.Printf("Plugin %s activated.\n", id)
		} else {
			cmd.Printf("Plugin %s deactivated.\n", id)
		}
	}
	return nil
}

func runPluginInstall(cmd *cobra.Command, args []string) error {
	if pluginService == nil {
		return errors.New("plugin service not configured")
	}

	id, err := pluginService.Install(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to install plugin: %w", err)
	}
	cmd.Printf("Installed and activated plugin %s.\n", id)
	return nil
}

func runPluginUninstall(cmd *cobra.Command, args []string) error {
	if pluginService == nil {
		return errors.New("plugin service not configured")
	}

	if err := pluginService.Uninstall(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to uninstall plugin: %w", err)
	}
	cmd.Printf("Uninstalled plugin %s.\n", args[0])
	return nil
}

func runPluginSettings(cmd *cobra.Command, args []string) error {
	if pluginService == nil {
		return errors.New("plugin service not configured")
	}

	id := args[0]
	ctx := cmd.Context()

	if pluginSettingsSchema {
		schema, err := pluginService.SettingsSchema(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load settings schema: %w", err)
		}
		return printJSON(cmd, schema)
	}

	if pluginSettingsSet != "" {
		var updates map[string]any
		if err := json.Unmarshal([]byte(pluginSettingsSet), &updates); err != nil {
			return fmt.Errorf("invalid --set value: %w", err)
		}
		merged, err := pluginService.SaveSettings(ctx, id, updates)
		if err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		return printJSON(cmd, merged)
	}

	settings, err := pluginService.LoadSettings(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	return printJSON(cmd, settings)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

package domain

import "context"

// CorePluginID identifies the built-in plugin that supplies default
// implementations for every dispatched hook. It is always active.
const CorePluginID = "core_plugin"

// HookFunc transforms a value flowing through the bot pipeline.
// Pass-through hooks return the value unchanged.
type HookFunc func(ctx context.Context, value any) (any, error)

// ToolFunc executes a tool with the input string produced by the agent.
type ToolFunc func(ctx context.Context, input string) (string, error)

// Hook is one named extension point implementation contributed by a plugin.
// Multiple plugins may implement the same name; dispatch picks the
// highest-priority implementation among active plugins.
type Hook struct {
	// Name identifies the extension point.
	Name string

	// Priority orders implementations, higher first. Ties break by
	// plugin discovery order.
	Priority int

	// PluginID is the owning plugin's folder name.
	PluginID string

	// Fn is the implementation.
	Fn HookFunc
}

// Tool is an agent-callable capability contributed by a plugin.
// Its description doubles as the text embedded into procedural memory
// for recall-based tool selection.
type Tool struct {
	// Name identifies the tool in agent prompts.
	Name string

	// Description tells the agent when to use the tool. It is the text
	// embedded into the procedural collection.
	Description string

	// PluginID is the owning plugin's folder name.
	PluginID string

	// ReturnDirect short-circuits the agent: the tool's output is sent
	// to the user verbatim.
	ReturnDirect bool

	// DocID is the id of the embedded description inside the procedural
	// collection. Empty until reconciliation embeds it.
	DocID string

	// Fn is the implementation.
	Fn ToolFunc
}

// PluginManifest describes a plugin for listing and administration.
// Missing fields are defaulted at load time.
type PluginManifest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AuthorName  string `json:"author_name"`
	AuthorURL   string `json:"author_url"`
	PluginURL   string `json:"plugin_url"`
	Tags        string `json:"tags"`
	Thumb       string `json:"thumb"`
	Version     string `json:"version"`
}

// PluginInfo is the administrative view of a plugin.
type PluginInfo struct {
	// ID is the plugin folder name.
	ID string

	// Path is the absolute plugin folder path. Empty for the core plugin.
	Path string

	// Manifest is the loaded (and defaulted) plugin.json content.
	Manifest PluginManifest

	// Active reports whether the plugin currently contributes hooks
	// and tools.
	Active bool

	// Hooks is the number of hooks the plugin contributes when active.
	Hooks int

	// Tools is the number of tools the plugin contributes when active.
	Tools int
}

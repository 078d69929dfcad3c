package plugins

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/warren-labs/warren/internal/core/domain"
)

// settingsFilename is the per-plugin settings document, colocated with
// the plugin's sources.
const settingsFilename = "settings.json"

// Plugin is one installed extension: an on-disk folder carrying a
// manifest and settings, plus a compiled-in provider supplying its hooks
// and tools.
type Plugin struct {
	id       string
	path     string
	manifest domain.PluginManifest
	provider Provider

	active bool
	hooks  []domain.Hook
	tools  []domain.Tool
}

// New constructs a plugin from its on-disk folder.
// The provider may be nil: a folder with no compiled-in provider still
// activates, contributing manifest and settings but zero hooks/tools.
func New(id, path string, provider Provider) *Plugin {
	return &Plugin{
		id:       id,
		path:     path,
		manifest: LoadManifest(path, id),
		provider: provider,
	}
}

// NewBuiltin constructs a plugin that has no on-disk folder, such as the
// core plugin. Settings fall back to an empty document.
func NewBuiltin(id string, manifest domain.PluginManifest, provider Provider) *Plugin {
	return &Plugin{
		id:       id,
		manifest: manifest,
		provider: provider,
	}
}

// ID returns the plugin's stable identifier (its folder name).
func (p *Plugin) ID() string { return p.id }

// Path returns the plugin's folder, empty for built-in plugins.
func (p *Plugin) Path() string { return p.path }

// Manifest returns the plugin's descriptor metadata.
func (p *Plugin) Manifest() domain.PluginManifest { return p.manifest }

// Active reports whether the plugin's hooks and tools are loaded.
func (p *Plugin) Active() bool { return p.active }

// Hooks returns the hooks loaded by the last activation.
// Empty while the plugin is inactive.
func (p *Plugin) Hooks() []domain.Hook { return p.hooks }

// Tools returns the tools loaded by the last activation.
// Empty while the plugin is inactive.
func (p *Plugin) Tools() []domain.Tool { return p.tools }

// Info returns a read-only summary for listings.
func (p *Plugin) Info() domain.PluginInfo {
	return domain.PluginInfo{
		ID:       p.id,
		Path:     p.path,
		Manifest: p.manifest,
		Active:   p.active,
		Hooks:    len(p.hooks),
		Tools:    len(p.tools),
	}
}

// Activate loads the plugin's hooks and tools into memory.
// Idempotent: activating an already-active plugin rebuilds the same set
// without duplication. A provider error leaves the plugin fully
// deactivated - it is never partially registered.
func (p *Plugin) Activate() error {
	if p.provider == nil {
		p.hooks = nil
		p.tools = nil
		p.active = true
		return nil
	}

	hooks, tools, err := p.provider()
	if err != nil {
		p.Deactivate()
		return fmt.Errorf("activate plugin %q: %w", p.id, err)
	}

	// Stamp ownership so the aggregated set can attribute each entry.
	for i := range hooks {
		hooks[i].PluginID = p.id
	}
	for i := range tools {
		tools[i].PluginID = p.id
	}

	p.hooks = hooks
	p.tools = tools
	p.active = true
	return nil
}

// Deactivate unloads the plugin's hooks and tools without touching its
// on-disk assets. Safe to call on an inactive plugin.
func (p *Plugin) Deactivate() {
	p.hooks = nil
	p.tools = nil
	p.active = false
}

// HookNamed returns the plugin's own implementation of the given hook
// name, if the plugin is active and provides one. Used for per-plugin
// delegation (settings hooks) as opposed to global dispatch.
func (p *Plugin) HookNamed(name string) (domain.Hook, bool) {
	for _, h := range p.hooks {
		if h.Name == name {
			return h, true
		}
	}
	return domain.Hook{}, false
}

// settingsPath returns the plugin's settings document path, empty for
// built-in plugins.
func (p *Plugin) settingsPath() string {
	if p.path == "" {
		return ""
	}
	return filepath.Join(p.path, settingsFilename)
}

// LoadSettingsFile reads the plugin's settings document.
// A missing file yields an empty (non-nil) map.
func (p *Plugin) LoadSettingsFile() (map[string]any, error) {
	settings := map[string]any{}

	path := p.settingsPath()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("read settings for plugin %q: %w", p.id, err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings for plugin %q: %w", p.id, err)
	}
	return settings, nil
}

// SaveSettingsFile performs a shallow merge of values into the plugin's
// settings document: new keys overwrite matching keys, unrelated existing
// keys are preserved. Returns the merged document.
func (p *Plugin) SaveSettingsFile(values map[string]any) (map[string]any, error) {
	current, err := p.LoadSettingsFile()
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		current[k] = v
	}

	path := p.settingsPath()
	if path == "" {
		return current, nil
	}

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode settings for plugin %q: %w", p.id, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("write settings for plugin %q: %w", p.id, err)
	}
	return current, nil
}

// DefaultSettingsSchema is the schema returned when a plugin supplies no
// schema hook: an open object named after the plugin.
func (p *Plugin) DefaultSettingsSchema() map[string]any {
	return map[string]any{
		"title":      p.manifest.Name,
		"type":       "object",
		"properties": map[string]any{},
	}
}

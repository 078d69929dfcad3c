package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/core/ports/driving"
	"github.com/warren-labs/warren/internal/logger"
	"github.com/warren-labs/warren/internal/plugins"
	"github.com/warren-labs/warren/internal/plugins/core"
)

// Ensure Orchestrator implements the interface.
var _ driving.PluginService = (*Orchestrator)(nil)

// ProceduralCollection is the vector collection holding tool-description
// embeddings, shared across all knowledge bases.
const ProceduralCollection = "procedural"

// Snapshot is an immutable view of the aggregated hook/tool set. A new
// snapshot is built and atomically swapped in whenever the plugin set
// changes, so in-flight requests keep reading a consistent set.
type Snapshot struct {
	// Hooks sorted by priority descending; ties keep discovery order.
	Hooks []domain.Hook

	// Tools with unique names; a duplicate name is dropped at build time.
	Tools []domain.Tool
}

// ExecuteHook dispatches to the first (highest-priority) implementation
// of the named hook. ErrHookNotFound means the core plugin's defaults are
// missing - a fatal misconfiguration, not a normal condition.
func (s *Snapshot) ExecuteHook(ctx context.Context, name string, value any) (any, error) {
	for _, h := range s.Hooks {
		if h.Name == name {
			out, err := h.Fn(ctx, value)
			if err != nil {
				return nil, fmt.Errorf("hook %s (plugin %s): %w", name, h.PluginID, err)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrHookNotFound, name)
}

// Orchestrator owns the plugin ecosystem: discovery, activation state,
// hook dispatch and tool-embedding reconciliation.
type Orchestrator struct {
	pluginDir string
	registry  *plugins.Registry
	prompts   driven.PromptStore
	state     driven.PluginStateStore
	kbs       driven.KnowledgeBaseStore
	vectors   driven.VectorStore

	mu      sync.Mutex // guards plugins, order and snapshot rebuilds
	plugins map[string]*plugins.Plugin
	order   []string // discovery order, core plugin first

	snapshot atomic.Pointer[Snapshot]
}

// NewOrchestrator creates the plugin orchestrator. Bootstrap must be
// called before any other operation.
func NewOrchestrator(
	pluginDir string,
	registry *plugins.Registry,
	prompts driven.PromptStore,
	state driven.PluginStateStore,
	kbs driven.KnowledgeBaseStore,
	vectors driven.VectorStore,
) *Orchestrator {
	o := &Orchestrator{
		pluginDir: pluginDir,
		registry:  registry,
		prompts:   prompts,
		state:     state,
		kbs:       kbs,
		vectors:   vectors,
		plugins:   make(map[string]*plugins.Plugin),
	}
	o.snapshot.Store(&Snapshot{})
	return o
}

// Bootstrap discovers plugins, restores the persisted active set, builds
// the first snapshot and reconciles tool embeddings.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	logger.Section("Plugin Bootstrap")

	allowed, err := o.state.LoadActivePlugins(ctx)
	if err != nil {
		return fmt.Errorf("load active plugins: %w", err)
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}

	discovered, err := plugins.Discover(o.pluginDir, o.registry)
	if err != nil {
		return fmt.Errorf("discover plugins: %w", err)
	}

	o.mu.Lock()
	o.plugins = make(map[string]*plugins.Plugin, len(discovered)+1)
	o.order = nil

	// The core plugin always exists and is always active.
	corePlugin := core.New(o.prompts)
	if err := corePlugin.Activate(); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("activate core plugin: %w", err)
	}
	o.add(corePlugin)

	for _, p := range discovered {
		if allowedSet[p.ID()] {
			if err := p.Activate(); err != nil {
				// A broken provider excludes the plugin entirely; it is
				// retried on the next bootstrap.
				logger.Warn("Excluding plugin %q: %v", p.ID(), err)
				continue
			}
		}
		o.add(p)
	}
	o.rebuildSnapshot()
	total, activeCount := len(o.plugins), len(o.activeIDs())+1
	o.mu.Unlock()

	logger.Info("Loaded %d plugins (%d active)", total, activeCount)

	if _, err := o.ExecuteHook(ctx, domain.HookBeforeBootstrap, nil); err != nil {
		return err
	}
	if err := o.ReconcileToolEmbeddings(ctx); err != nil {
		return fmt.Errorf("reconcile tool embeddings: %w", err)
	}
	_, err = o.ExecuteHook(ctx, domain.HookAfterBootstrap, nil)
	return err
}

// List returns the administrative view of every known plugin, in
// discovery order with the core plugin first.
func (o *Orchestrator) List(_ context.Context) []domain.PluginInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	infos := make([]domain.PluginInfo, 0, len(o.order))
	for _, id := range o.order {
		infos = append(infos, o.plugins[id].Info())
	}
	return infos
}

// ExecuteHook dispatches a named hook against the globally active set.
func (o *Orchestrator) ExecuteHook(ctx context.Context, name string, value any) (any, error) {
	return o.snapshot.Load().ExecuteHook(ctx, name, value)
}

// Toggle flips a plugin between active and inactive, persists the new
// allow-list and reconciles tool embeddings.
func (o *Orchestrator) Toggle(ctx context.Context, pluginID string) error {
	if pluginID == domain.CorePluginID {
		return fmt.Errorf("%w: the core plugin cannot be toggled", domain.ErrInvalidInput)
	}

	o.mu.Lock()
	p, ok := o.plugins[pluginID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrPluginNotFound, pluginID)
	}

	if p.Active() {
		p.Deactivate()
	} else if err := p.Activate(); err != nil {
		o.mu.Unlock()
		return err
	}

	if err := o.state.SaveActivePlugins(ctx, o.activeIDs()); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("persist active plugins: %w", err)
	}
	o.rebuildSnapshot()
	o.mu.Unlock()

	return o.ReconcileToolEmbeddings(ctx)
}

// Install unpacks a plugin archive into the plugin directory, loads the
// new plugin inactive and activates it.
func (o *Orchestrator) Install(ctx context.Context, archivePath string) (string, error) {
	id, err := plugins.ExtractArchive(archivePath, o.pluginDir)
	if err != nil {
		return "", err
	}

	p, err := plugins.Load(o.pluginDir, id, o.registry)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	if _, exists := o.plugins[id]; !exists {
		o.order = append(o.order, id)
	}
	o.plugins[id] = p
	o.mu.Unlock()

	logger.Info("Installed plugin %q", id)
	return id, o.Toggle(ctx, id)
}

// Uninstall deactivates a plugin (if active) and removes its folder.
// Uninstalling a plugin that was never active is not an error.
func (o *Orchestrator) Uninstall(ctx context.Context, pluginID string) error {
	if pluginID == domain.CorePluginID {
		return fmt.Errorf("%w: the core plugin cannot be uninstalled", domain.ErrInvalidInput)
	}

	o.mu.Lock()
	p, ok := o.plugins[pluginID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrPluginNotFound, pluginID)
	}

	p.Deactivate()
	delete(o.plugins, pluginID)
	for i, id := range o.order {
		if id == pluginID {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}

	if err := o.state.SaveActivePlugins(ctx, o.activeIDs()); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("persist active plugins: %w", err)
	}
	o.rebuildSnapshot()
	o.mu.Unlock()

	if err := o.ReconcileToolEmbeddings(ctx); err != nil {
		return err
	}

	if path := p.Path(); path != "" {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove plugin folder: %w", err)
		}
	}
	logger.Info("Uninstalled plugin %q", pluginID)
	return nil
}

// ScopeToKnowledgeBase builds a transient snapshot narrowed to the
// intersection of globally-active plugins and the knowledge base's
// opt-in list, plus the core plugin unconditionally. Nothing is
// persisted; the global snapshot is untouched.
func (o *Orchestrator) ScopeToKnowledgeBase(ctx context.Context, kbID string) (*Snapshot, error) {
	kb, err := o.kbs.GetKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, fmt.Errorf("scope to knowledge base %q: %w", kbID, err)
	}

	optIn := make(map[string]bool, len(kb.UsePlugins)+1)
	optIn[domain.CorePluginID] = true
	for _, id := range kb.UsePlugins {
		optIn[id] = true
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var scoped []*plugins.Plugin
	for _, id := range o.order {
		if p := o.plugins[id]; p.Active() && optIn[id] {
			scoped = append(scoped, p)
		}
	}
	return buildSnapshot(scoped), nil
}

// ReconcileToolEmbeddings aligns the procedural collection with the
// currently active tool set: embedded descriptions that match an active
// tool are attached to it, stale entries are batch-deleted, and tools
// without an embedding get one. Idempotent by construction - a second run
// with no plugin change deletes and embeds nothing.
func (o *Orchestrator) ReconcileToolEmbeddings(ctx context.Context) error {
	coll, err := o.vectors.Open(ProceduralCollection)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Ids are written into the plugin-owned tool structs, not a snapshot
	// copy: snapshots (per-knowledge-base ones included) copy tools by
	// value from the plugins, so an id stored anywhere else is lost on
	// the next rebuild.
	tools := o.activeTools()

	byDescription := make(map[string]*domain.Tool, len(tools))
	for _, tool := range tools {
		if _, ok := byDescription[tool.Description]; !ok {
			byDescription[tool.Description] = tool
		}
	}

	var stale []string
	for id, doc := range coll.Entries() {
		tool, ok := byDescription[doc.Content]
		if ok && (tool.DocID == "" || tool.DocID == id) {
			tool.DocID = id
			continue
		}
		stale = append(stale, id)
	}

	if len(stale) > 0 {
		sort.Strings(stale)
		if _, _, err := coll.Remove(ctx, stale); err != nil {
			return err
		}
		logger.Debug("Removed %d stale tool embeddings", len(stale))
	}

	var (
		texts     []string
		metadatas []map[string]any
		pending   []*domain.Tool
	)
	for _, tool := range tools {
		if tool.DocID != "" {
			continue
		}
		texts = append(texts, tool.Description)
		metadatas = append(metadatas, map[string]any{
			"source":    "tool",
			"when":      float64(time.Now().Unix()),
			"name":      tool.Name,
			"docstring": tool.Description,
		})
		pending = append(pending, tool)
	}

	if len(texts) > 0 {
		ids, err := coll.AddTexts(ctx, texts, metadatas)
		if err != nil {
			return err
		}
		for i, id := range ids {
			pending[i].DocID = id
		}
		logger.Debug("Embedded %d tool descriptions", len(ids))
	}

	o.rebuildSnapshot()
	return coll.Save(ctx)
}

// activeTools returns pointers into the active plugins' tool slices, in
// discovery order with duplicate names dropped to mirror the snapshot's
// tool set (caller holds mu).
func (o *Orchestrator) activeTools() []*domain.Tool {
	seen := map[string]bool{}
	var tools []*domain.Tool
	for _, id := range o.order {
		p := o.plugins[id]
		if !p.Active() {
			continue
		}
		owned := p.Tools()
		for i := range owned {
			if seen[owned[i].Name] {
				continue
			}
			seen[owned[i].Name] = true
			tools = append(tools, &owned[i])
		}
	}
	return tools
}

// SettingsSchema returns the JSON schema describing a plugin's settings,
// via the plugin's own schema hook when it provides one.
func (o *Orchestrator) SettingsSchema(ctx context.Context, pluginID string) (map[string]any, error) {
	p, err := o.plugin(pluginID)
	if err != nil {
		return nil, err
	}

	if h, ok := p.HookNamed(domain.HookSettingsSchema); ok {
		v, err := h.Fn(ctx, nil)
		if err != nil {
			return nil, err
		}
		return asSettings(v)
	}
	return p.DefaultSettingsSchema(), nil
}

// LoadSettings returns a plugin's stored settings, via the plugin's own
// load hook when it provides one, else from its settings file.
func (o *Orchestrator) LoadSettings(ctx context.Context, pluginID string) (map[string]any, error) {
	p, err := o.plugin(pluginID)
	if err != nil {
		return nil, err
	}

	if h, ok := p.HookNamed(domain.HookSettingsLoad); ok {
		v, err := h.Fn(ctx, nil)
		if err != nil {
			return nil, err
		}
		return asSettings(v)
	}
	return p.LoadSettingsFile()
}

// SaveSettings shallow-merges the given settings over the stored ones and
// returns the merged document.
func (o *Orchestrator) SaveSettings(ctx context.Context, pluginID string, settings map[string]any) (map[string]any, error) {
	p, err := o.plugin(pluginID)
	if err != nil {
		return nil, err
	}

	if h, ok := p.HookNamed(domain.HookSettingsSave); ok {
		v, err := h.Fn(ctx, settings)
		if err != nil {
			return nil, err
		}
		return asSettings(v)
	}
	return p.SaveSettingsFile(settings)
}

// plugin looks up a plugin by id.
func (o *Orchestrator) plugin(pluginID string) (*plugins.Plugin, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, ok := o.plugins[pluginID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPluginNotFound, pluginID)
	}
	return p, nil
}

// add registers a plugin in the map and discovery order (caller holds mu).
func (o *Orchestrator) add(p *plugins.Plugin) {
	o.plugins[p.ID()] = p
	o.order = append(o.order, p.ID())
}

// activeIDs returns the active plugin ids in discovery order, excluding
// the core plugin (caller holds mu). This is the persisted allow-list.
func (o *Orchestrator) activeIDs() []string {
	ids := []string{}
	for _, id := range o.order {
		if id == domain.CorePluginID {
			continue
		}
		if o.plugins[id].Active() {
			ids = append(ids, id)
		}
	}
	return ids
}

// rebuildSnapshot recomputes and swaps in the aggregated hook/tool
// snapshot (caller holds mu).
func (o *Orchestrator) rebuildSnapshot() {
	var active []*plugins.Plugin
	for _, id := range o.order {
		if p := o.plugins[id]; p.Active() {
			active = append(active, p)
		}
	}
	o.snapshot.Store(buildSnapshot(active))
}

// buildSnapshot aggregates hooks and tools from the given plugins.
// Hooks are sorted by priority descending with ties keeping the given
// (discovery) order; duplicate tool names keep the first occurrence.
func buildSnapshot(active []*plugins.Plugin) *Snapshot {
	snap := &Snapshot{}
	seenTools := map[string]string{}

	for _, p := range active {
		snap.Hooks = append(snap.Hooks, p.Hooks()...)
		for _, tool := range p.Tools() {
			if owner, dup := seenTools[tool.Name]; dup {
				logger.Warn("Dropping tool %q from plugin %q: name already provided by plugin %q",
					tool.Name, tool.PluginID, owner)
				continue
			}
			seenTools[tool.Name] = tool.PluginID
			snap.Tools = append(snap.Tools, tool)
		}
	}

	sort.SliceStable(snap.Hooks, func(i, j int) bool {
		return snap.Hooks[i].Priority > snap.Hooks[j].Priority
	})
	return snap
}

// asSettings coerces a settings hook's return value to a map.
func asSettings(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: settings hook returned %T, want map[string]any", domain.ErrInvalidInput, v)
	}
	return m, nil
}

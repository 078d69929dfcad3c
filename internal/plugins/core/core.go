// Package core provides the built-in core plugin.
//
// The core plugin is always present and always active. It supplies a
// default implementation for every hook name the orchestrator dispatches,
// so hook dispatch never fails for a known name: other plugins override
// these defaults by registering the same hook with a higher priority.
package core

import (
	"context"
	"fmt"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/plugins"
	"github.com/warren-labs/warren/internal/processors"
	"github.com/warren-labs/warren/internal/processors/splitter"
)

// New constructs the core plugin. Agent prompt defaults are served from
// the given prompt store so they stay user-editable.
func New(prompts driven.PromptStore) *plugins.Plugin {
	manifest := domain.PluginManifest{
		Name:        "Warren Core",
		Description: "Built-in defaults for every hook Warren dispatches.",
		AuthorName:  "Warren Labs",
		Version:     "1.0.0",
		Tags:        "core",
	}

	provider := func() ([]domain.Hook, []domain.Tool, error) {
		return defaultHooks(prompts), nil, nil
	}
	return plugins.NewBuiltin(domain.CorePluginID, manifest, provider)
}

// defaultHooks builds the full default hook set at priority 0, so any
// plugin hook with a positive priority wins dispatch.
func defaultHooks(prompts driven.PromptStore) []domain.Hook {
	identityHooks := []string{
		domain.HookBeforeBootstrap,
		domain.HookAfterBootstrap,
		domain.HookBeforeReadMessage,
		domain.HookBeforeSendMessage,
		domain.HookRecallQuery,
		domain.HookBeforeRecallMemories,
		domain.HookBeforeRecallDeclarative,
		domain.HookBeforeRecallProcedural,
		domain.HookAfterRecallMemories,
		domain.HookBeforeAgentStarts,
		domain.HookAgentAllowedTools,
		domain.HookBeforeInsertMemory,
		domain.HookSettingsSave,
		splitter.HookBeforeSplit,
		splitter.HookAfterSplit,
		processors.HookStoreDocuments,
	}

	hooks := make([]domain.Hook, 0, len(identityHooks)+6)
	for _, name := range identityHooks {
		hooks = append(hooks, domain.Hook{Name: name, Fn: identity})
	}

	hooks = append(hooks,
		domain.Hook{Name: splitter.HookSplit, Fn: defaultSplit},
		domain.Hook{Name: domain.HookAgentPromptPrefix, Fn: promptHook(prompts, driven.PromptAgentPrefix)},
		domain.Hook{Name: domain.HookAgentPromptInstructions, Fn: promptHook(prompts, driven.PromptAgentInstructions)},
		domain.Hook{Name: domain.HookAgentPromptSuffix, Fn: promptHook(prompts, driven.PromptAgentSuffix)},
		domain.Hook{Name: domain.HookSettingsSchema, Fn: defaultSettingsSchema},
		domain.Hook{Name: domain.HookSettingsLoad, Fn: defaultSettingsLoad},
	)
	return hooks
}

// identity passes the hook value through unchanged.
func identity(_ context.Context, value any) (any, error) {
	return value, nil
}

// defaultSplit is the stock implementation of the splitting stage: the
// recursive character splitter under the request's size/overlap policy.
func defaultSplit(_ context.Context, value any) (any, error) {
	req, ok := value.(*domain.SplitRequest)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects *domain.SplitRequest, got %T",
			domain.ErrInvalidInput, splitter.HookSplit, value)
	}
	return splitter.SplitDocuments(req.Documents, req.ChunkSize, req.Overlap), nil
}

// promptHook serves a prompt template from the store, ignoring the
// incoming value. Plugins that want to edit rather than replace the
// default can load the same template themselves.
func promptHook(prompts driven.PromptStore, name string) domain.HookFunc {
	return func(_ context.Context, _ any) (any, error) {
		return prompts.Load(name)
	}
}

// defaultSettingsSchema describes the core plugin's (empty) settings.
func defaultSettingsSchema(_ context.Context, _ any) (any, error) {
	return map[string]any{
		"title":      "Warren Core",
		"type":       "object",
		"properties": map[string]any{},
	}, nil
}

// defaultSettingsLoad returns the core plugin's (empty) settings.
func defaultSettingsLoad(_ context.Context, _ any) (any, error) {
	return map[string]any{}, nil
}

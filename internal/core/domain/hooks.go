package domain

// Hook names dispatched around the chat pipeline and plugin lifecycle.
// The splitting and ingestion stages declare their own hook names next to
// the code that runs them.
const (
	// Bootstrap bracket.
	HookBeforeBootstrap = "before_bot_bootstrap"
	HookAfterBootstrap  = "after_bot_bootstrap"

	// Message flow.
	HookBeforeReadMessage = "before_bot_reads_message"
	HookBeforeSendMessage = "before_bot_sends_message"

	// Memory recall.
	HookRecallQuery             = "bot_recall_query"
	HookBeforeRecallMemories    = "before_bot_recalls_memories"
	HookBeforeRecallDeclarative = "before_bot_recalls_declarative_memories"
	HookBeforeRecallProcedural  = "before_bot_recalls_procedural_memories"
	HookAfterRecallMemories     = "after_bot_recalled_memories"

	// Agent.
	HookBeforeAgentStarts       = "before_agent_starts"
	HookAgentAllowedTools       = "agent_allowed_tools"
	HookAgentPromptPrefix       = "agent_prompt_prefix"
	HookAgentPromptInstructions = "agent_prompt_instructions"
	HookAgentPromptSuffix       = "agent_prompt_suffix"

	// Ingestion.
	HookBeforeInsertMemory = "before_ingestion_insert_memory"

	// Plugin settings delegation.
	HookSettingsSchema = "plugin_settings_schema"
	HookSettingsLoad   = "plugin_settings_load"
	HookSettingsSave   = "plugin_settings_save"
)

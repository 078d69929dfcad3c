package driven

// PromptStore provides access to agent prompt templates.
// Implementations may load prompts from files, allowing user customisation,
// or return embedded defaults.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns an error if the prompt doesn't exist and no default is available.
	Load(name string) (string, error)

	// Reload refreshes prompts from the underlying source.
	// Useful when prompts may have been edited externally.
	Reload()
}

// Standard prompt names used by the agent.
const (
	// PromptAgentPrefix describes the assistant's identity and tone.
	// It opens every completion request sent to the LLM.
	PromptAgentPrefix = "agent_prefix"

	// PromptAgentInstructions tells the LLM how to pick a tool and
	// format its choice so the reply can be parsed.
	PromptAgentInstructions = "agent_instructions"

	// PromptAgentSuffix lays out recalled context and the conversation,
	// ending with the slot the LLM completes.
	PromptAgentSuffix = "agent_suffix"
)

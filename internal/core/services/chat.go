package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/core/ports/driving"
	"github.com/warren-labs/warren/internal/logger"
)

// Ensure Chat implements the interface.
var _ driving.ChatService = (*Chat)(nil)

// Default recall parameters, editable per message through the recall
// hooks.
var (
	defaultDeclarativeRecall = domain.RecallConfig{K: 5, Threshold: 0.5}
	defaultProceduralRecall  = domain.RecallConfig{K: 3, Threshold: 0.7}
)

// noToolName is the agent's escape hatch when no tool applies.
const noToolName = "no_tool"

// Chat answers user messages with memory-augmented generation: recalled
// document memories ground the reply, recalled tool descriptions select
// the tools the agent may call.
type Chat struct {
	orch    *Orchestrator
	vectors driven.VectorStore
	llm     driven.LLMService
}

// NewChat creates the chat service.
func NewChat(orch *Orchestrator, vectors driven.VectorStore, llm driven.LLMService) *Chat {
	return &Chat{
		orch:    orch,
		vectors: vectors,
		llm:     llm,
	}
}

// Reply produces the bot's answer to one message.
func (s *Chat) Reply(ctx context.Context, kbID, message string, history []domain.ChatTurn) (domain.Reply, error) {
	return s.reply(ctx, kbID, message, history, nil)
}

// Stream produces the answer incrementally, invoking onDelta per content
// fragment. Short-circuit replies (canned or ReturnDirect) arrive as a
// single delta.
func (s *Chat) Stream(ctx context.Context, kbID, message string, history []domain.ChatTurn, onDelta func(string)) (domain.Reply, error) {
	return s.reply(ctx, kbID, message, history, onDelta)
}

func (s *Chat) reply(ctx context.Context, kbID, message string, history []domain.ChatTurn, onDelta func(string)) (domain.Reply, error) {
	logger.Section("Chat")

	v, err := s.orch.ExecuteHook(ctx, domain.HookBeforeReadMessage, message)
	if err != nil {
		return domain.Reply{}, err
	}
	if message, err = asString(v); err != nil {
		return domain.Reply{}, err
	}

	snap, err := s.orch.ScopeToKnowledgeBase(ctx, kbID)
	if err != nil {
		return domain.Reply{}, err
	}

	memories, err := s.recall(ctx, snap, kbID, message)
	if err != nil {
		return domain.Reply{}, err
	}

	// A plugin may answer before the agent runs at all.
	v, err = snap.ExecuteHook(ctx, domain.HookBeforeAgentStarts, nil)
	if err != nil {
		return domain.Reply{}, err
	}
	if canned, ok := v.(string); ok && canned != "" {
		return s.send(ctx, snap, domain.Reply{Content: canned}, onDelta)
	}

	reply := domain.Reply{DeclarativeSources: sources(memories.Declarative)}

	toolName, toolOutput, direct, err := s.runToolPass(ctx, snap, message, memories.Procedural)
	if err != nil {
		return domain.Reply{}, err
	}
	reply.UsedTool = toolName
	if direct {
		reply.Content = toolOutput
		return s.send(ctx, snap, reply, onDelta)
	}

	prompt, err := s.assemblePrompt(ctx, snap, message, history, memories.Declarative, toolName, toolOutput)
	if err != nil {
		return domain.Reply{}, err
	}

	messages := []driven.ChatMessage{{Role: "user", Content: prompt}}
	if onDelta != nil {
		reply.Content, err = s.llm.ChatStream(ctx, messages, driven.ChatOptions{}, onDelta)
	} else {
		reply.Content, err = s.llm.Chat(ctx, messages, driven.ChatOptions{})
	}
	if err != nil {
		return domain.Reply{}, fmt.Errorf("generate reply: %w", err)
	}

	// Deltas were already delivered while streaming.
	onDelta = nil
	return s.send(ctx, snap, reply, onDelta)
}

// recall retrieves declarative and procedural memories for the message,
// letting hooks rewrite the query and tune the recall configs.
func (s *Chat) recall(ctx context.Context, snap *Snapshot, kbID, message string) (domain.RecalledMemories, error) {
	var none domain.RecalledMemories

	v, err := snap.ExecuteHook(ctx, domain.HookRecallQuery, message)
	if err != nil {
		return none, err
	}
	query, err := asString(v)
	if err != nil {
		return none, err
	}

	req := &domain.RecallRequest{
		Query:       query,
		Declarative: defaultDeclarativeRecall,
		Procedural:  defaultProceduralRecall,
	}
	if v, err = snap.ExecuteHook(ctx, domain.HookBeforeRecallMemories, req); err != nil {
		return none, err
	}
	if req, err = asRecallRequest(v); err != nil {
		return none, err
	}

	declCfg, err := s.recallConfig(ctx, snap, domain.HookBeforeRecallDeclarative, req.Declarative)
	if err != nil {
		return none, err
	}
	procCfg, err := s.recallConfig(ctx, snap, domain.HookBeforeRecallProcedural, req.Procedural)
	if err != nil {
		return none, err
	}

	declColl, err := s.vectors.Open(kbID)
	if err != nil {
		return none, err
	}
	declarative, err := declColl.Search(ctx, req.Query, declCfg.K, declCfg.Threshold)
	if err != nil {
		return none, fmt.Errorf("recall declarative memories: %w", err)
	}

	procColl, err := s.vectors.Open(ProceduralCollection)
	if err != nil {
		return none, err
	}
	procedural, err := procColl.Search(ctx, req.Query, procCfg.K, procCfg.Threshold)
	if err != nil {
		return none, fmt.Errorf("recall procedural memories: %w", err)
	}

	logger.Debug("Recalled %d declarative, %d procedural memories", len(declarative), len(procedural))

	memories := &domain.RecalledMemories{Declarative: declarative, Procedural: procedural}
	if v, err = snap.ExecuteHook(ctx, domain.HookAfterRecallMemories, memories); err != nil {
		return none, err
	}
	if memories, err = asRecalledMemories(v); err != nil {
		return none, err
	}
	return *memories, nil
}

// recallConfig runs one per-memory config hook.
func (s *Chat) recallConfig(ctx context.Context, snap *Snapshot, hook string, cfg domain.RecallConfig) (domain.RecallConfig, error) {
	v, err := snap.ExecuteHook(ctx, hook, &cfg)
	if err != nil {
		return cfg, err
	}
	return asRecallConfig(v)
}

// runToolPass selects and executes at most one tool. Only tools whose
// description was recalled procedurally are offered to the LLM; the
// allowed-tools hook may filter further. Returns the executed tool's name
// and output, and whether the output short-circuits the reply.
func (s *Chat) runToolPass(ctx context.Context, snap *Snapshot, message string, procedural []domain.RecallResult) (name, output string, direct bool, err error) {
	recalled := map[string]bool{}
	for _, r := range procedural {
		recalled[r.ID] = true
	}

	var allowed []domain.Tool
	for _, t := range snap.Tools {
		if t.DocID != "" && recalled[t.DocID] {
			allowed = append(allowed, t)
		}
	}

	v, err := snap.ExecuteHook(ctx, domain.HookAgentAllowedTools, allowed)
	if err != nil {
		return "", "", false, err
	}
	if allowed, err = asTools(v); err != nil {
		return "", "", false, err
	}
	if len(allowed) == 0 {
		return "", "", false, nil
	}

	v, err = snap.ExecuteHook(ctx, domain.HookAgentPromptInstructions, "")
	if err != nil {
		return "", "", false, err
	}
	template, err := asString(v)
	if err != nil {
		return "", "", false, err
	}

	var toolList strings.Builder
	for _, t := range allowed {
		fmt.Fprintf(&toolList, "- %s: %s\n", t.Name, t.Description)
	}

	prompt := fmt.Sprintf(template, message, toolList.String())
	answer, err := s.llm.Chat(ctx, []driven.ChatMessage{{Role: "user", Content: prompt}}, driven.ChatOptions{
		StopWords: []string{"\nObservation"},
	})
	if err != nil {
		return "", "", false, fmt.Errorf("tool selection: %w", err)
	}

	action, input := parseAction(answer)
	if action == "" || action == noToolName {
		return "", "", false, nil
	}

	for _, t := range allowed {
		if t.Name != action {
			continue
		}
		out, err := t.Fn(ctx, input)
		if err != nil {
			// A broken tool degrades to a plain reply.
			logger.Warn("Tool %q failed: %v", t.Name, err)
			return "", "", false, nil
		}
		logger.Debug("Tool %q returned %d bytes", t.Name, len(out))
		return t.Name, out, t.ReturnDirect, nil
	}

	logger.Warn("LLM selected unknown tool %q", action)
	return "", "", false, nil
}

// assemblePrompt builds the final completion prompt from the prefix and
// suffix templates, the recalled context and the conversation.
func (s *Chat) assemblePrompt(ctx context.Context, snap *Snapshot, message string, history []domain.ChatTurn, declarative []domain.RecallResult, toolName, toolOutput string) (string, error) {
	v, err := snap.ExecuteHook(ctx, domain.HookAgentPromptPrefix, "")
	if err != nil {
		return "", err
	}
	prefix, err := asString(v)
	if err != nil {
		return "", err
	}

	v, err = snap.ExecuteHook(ctx, domain.HookAgentPromptSuffix, "")
	if err != nil {
		return "", err
	}
	suffix, err := asString(v)
	if err != nil {
		return "", err
	}

	return prefix + fmt.Sprintf(suffix,
		renderContext(declarative, toolName, toolOutput),
		renderHistory(history),
		message,
	), nil
}

// send runs the outgoing-message hook and delivers short-circuited
// replies to the stream callback.
func (s *Chat) send(ctx context.Context, snap *Snapshot, reply domain.Reply, onDelta func(string)) (domain.Reply, error) {
	v, err := snap.ExecuteHook(ctx, domain.HookBeforeSendMessage, reply.Content)
	if err != nil {
		return domain.Reply{}, err
	}
	if reply.Content, err = asString(v); err != nil {
		return domain.Reply{}, err
	}

	if onDelta != nil {
		onDelta(reply.Content)
	}
	return reply, nil
}

// renderContext lays out recalled memories and tool output for the
// suffix template's context slot.
func renderContext(declarative []domain.RecallResult, toolName, toolOutput string) string {
	var b strings.Builder

	if len(declarative) > 0 {
		b.WriteString("## Relevant memories:\n")
		for _, r := range declarative {
			source, _ := r.Document.Metadata["source"].(string)
			fmt.Fprintf(&b, " - %s (source: %s)\n", strings.TrimSpace(r.Document.Content), source)
		}
		b.WriteString("\n")
	}
	if toolOutput != "" {
		fmt.Fprintf(&b, "## Output of tool %q:\n%s\n\n", toolName, toolOutput)
	}
	return b.String()
}

// renderHistory lays out the prior turns for the suffix template.
func renderHistory(history []domain.ChatTurn) string {
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "\n - %s: %s", turn.Who, turn.Message)
	}
	return b.String()
}

// parseAction extracts the "Action:" / "Action Input:" pair from a
// tool-selection reply. Missing lines yield empty strings.
func parseAction(answer string) (action, input string) {
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Action Input:"); ok {
			input = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(line, "Action:"); ok {
			action = strings.TrimSpace(rest)
		}
	}
	return action, input
}

// sources collects the unique source names of recalled memories, in
// recall order.
func sources(results []domain.RecallResult) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range results {
		source, _ := r.Document.Metadata["source"].(string)
		if source == "" || seen[source] {
			continue
		}
		seen[source] = true
		out = append(out, source)
	}
	return out
}

// asString coerces a hook return value to a string.
func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: hook returned %T, want string", domain.ErrInvalidInput, v)
	}
	return s, nil
}

// asRecallRequest coerces a hook return value to a recall request.
func asRecallRequest(v any) (*domain.RecallRequest, error) {
	req, ok := v.(*domain.RecallRequest)
	if !ok {
		return nil, fmt.Errorf("%w: hook returned %T, want *domain.RecallRequest", domain.ErrInvalidInput, v)
	}
	return req, nil
}

// asRecallConfig coerces a hook return value to a recall config.
func asRecallConfig(v any) (domain.RecallConfig, error) {
	switch c := v.(type) {
	case *domain.RecallConfig:
		return *c, nil
	case domain.RecallConfig:
		return c, nil
	default:
		return domain.RecallConfig{}, fmt.Errorf("%w: hook returned %T, want *domain.RecallConfig", domain.ErrInvalidInput, v)
	}
}

// asRecalledMemories coerces a hook return value to recalled memories.
func asRecalledMemories(v any) (*domain.RecalledMemories, error) {
	m, ok := v.(*domain.RecalledMemories)
	if !ok {
		return nil, fmt.Errorf("%w: hook returned %T, want *domain.RecalledMemories", domain.ErrInvalidInput, v)
	}
	return m, nil
}

// asTools coerces a hook return value to a tool slice.
func asTools(v any) ([]domain.Tool, error) {
	if v == nil {
		return nil, nil
	}
	tools, ok := v.([]domain.Tool)
	if !ok {
		return nil, fmt.Errorf("%w: hook returned %T, want []domain.Tool", domain.ErrInvalidInput, v)
	}
	return tools, nil
}

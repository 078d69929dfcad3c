package services

import (
	"context"
	"strings"
	"testing"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/plugins"
)

type chatFixture struct {
	chat  *Chat
	orch  *Orchestrator
	store *fakeVectorStore
	llm   *fakeLLM
}

// newChatFixture bootstraps an orchestrator with the given registry and
// allow-list, defines knowledge base kb1 opted into every plugin, and
// seeds one declarative memory.
func newChatFixture(t *testing.T, reg *plugins.Registry, active []string, pluginIDs ...string) *chatFixture {
	t.Helper()

	pluginDir := t.TempDir()
	for _, id := range pluginIDs {
		writeTestPlugin(t, pluginDir, id)
	}

	store := newFakeVectorStore()
	kbs := newFakeKBStore(domain.KnowledgeBase{ID: "kb1", Name: "Research", UsePlugins: pluginIDs})

	orch := NewOrchestrator(pluginDir, reg, fakePrompts{}, &fakeStateStore{ids: active}, kbs, store)
	if err := orch.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}

	declarative := store.collection("kb1")
	declarative.results = []domain.RecallResult{
		{ID: "kb1-7", Score: 0.8, Document: domain.Document{
			Content:  "Cats sleep most of the day.",
			Metadata: map[string]any{"source": "notes.txt"},
		}},
	}

	llm := &fakeLLM{}
	return &chatFixture{
		chat:  NewChat(orch, store, llm),
		orch:  orch,
		store: store,
		llm:   llm,
	}
}

// proceduralID returns the single tool embedding id created at bootstrap.
func (f *chatFixture) proceduralID(t *testing.T) string {
	t.Helper()
	entries := f.store.collection(ProceduralCollection).entries
	if len(entries) != 1 {
		t.Fatalf("got %d tool embeddings, want 1", len(entries))
	}
	for id := range entries {
		return id
	}
	return ""
}

func TestChat_PlainReply(t *testing.T) {
	f := newChatFixture(t, plugins.NewRegistry(), nil)
	f.llm.replies = []string{"They certainly do."}

	reply, err := f.chat.Reply(context.Background(), "kb1", "Do cats sleep a lot?", []domain.ChatTurn{
		{Who: "Human", Message: "Hello"},
		{Who: "AI", Message: "Hi there"},
	})
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	if reply.Content != "They certainly do." {
		t.Errorf("content = %q", reply.Content)
	}
	if reply.UsedTool != "" {
		t.Errorf("UsedTool = %q, want empty", reply.UsedTool)
	}
	if len(reply.DeclarativeSources) != 1 || reply.DeclarativeSources[0] != "notes.txt" {
		t.Errorf("sources = %v", reply.DeclarativeSources)
	}

	if len(f.llm.prompts) != 1 {
		t.Fatalf("LLM called %d times, want 1", len(f.llm.prompts))
	}
	prompt := f.llm.prompts[0]
	for _, want := range []string{
		"PREFIX",
		"Cats sleep most of the day.",
		"Human: Hello",
		"HUMAN: Do cats sleep a lot?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestChat_ToolPass(t *testing.T) {
	reg := plugins.NewRegistry()
	reg.Register("clock", toolProvider("get_time", "Returns the current time.", false))

	f := newChatFixture(t, reg, []string{"clock"}, "clock")
	toolID := f.proceduralID(t)

	f.store.collection(ProceduralCollection).results = []domain.RecallResult{
		{ID: toolID, Score: 0.9, Document: domain.Document{Content: "Returns the current time."}},
	}
	f.llm.replies = []string{
		"Action: get_time\nAction Input: utc",
		"It is noon.",
	}

	reply, err := f.chat.Reply(context.Background(), "kb1", "What time is it?", nil)
	if err != nil {
		t.Fatal(err)
	}

	if reply.UsedTool != "get_time" {
		t.Errorf("UsedTool = %q", reply.UsedTool)
	}
	if reply.Content != "It is noon." {
		t.Errorf("content = %q", reply.Content)
	}
	if len(f.llm.prompts) != 2 {
		t.Fatalf("LLM called %d times, want 2", len(f.llm.prompts))
	}
	if !strings.Contains(f.llm.prompts[0], "get_time: Returns the current time.") {
		t.Errorf("tool prompt missing tool listing:\n%s", f.llm.prompts[0])
	}
	if !strings.Contains(f.llm.prompts[1], "12:00") {
		t.Errorf("final prompt missing tool output:\n%s", f.llm.prompts[1])
	}
}

func TestChat_ToolNotRecalledNotOffered(t *testing.T) {
	reg := plugins.NewRegistry()
	reg.Register("clock", toolProvider("get_time", "Returns the current time.", false))

	f := newChatFixture(t, reg, []string{"clock"}, "clock")
	// No procedural recall results: the tool stays out of the prompt.
	f.llm.replies = []string{"Just a plain answer."}

	reply, err := f.chat.Reply(context.Background(), "kb1", "Anything?", nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply.UsedTool != "" {
		t.Errorf("UsedTool = %q, want empty", reply.UsedTool)
	}
	if len(f.llm.prompts) != 1 {
		t.Errorf("LLM called %d times, want 1 (no tool-selection pass)", len(f.llm.prompts))
	}
}

func TestChat_ReturnDirectTool(t *testing.T) {
	reg := plugins.NewRegistry()
	reg.Register("clock", toolProvider("get_time", "Returns the current time.", true))

	f := newChatFixture(t, reg, []string{"clock"}, "clock")
	toolID := f.proceduralID(t)

	f.store.collection(ProceduralCollection).results = []domain.RecallResult{
		{ID: toolID, Score: 0.9, Document: domain.Document{Content: "Returns the current time."}},
	}
	f.llm.replies = []string{"Action: get_time\nAction Input: "}

	reply, err := f.chat.Reply(context.Background(), "kb1", "What time is it?", nil)
	if err != nil {
		t.Fatal(err)
	}

	if reply.Content != "12:00" {
		t.Errorf("content = %q, want raw tool output", reply.Content)
	}
	if len(f.llm.prompts) != 1 {
		t.Errorf("LLM called %d times, want 1 (no final generation)", len(f.llm.prompts))
	}
}

func TestChat_CannedReplyShortCircuits(t *testing.T) {
	reg := plugins.NewRegistry()
	reg.Register("greeter", func() ([]domain.Hook, []domain.Tool, error) {
		return []domain.Hook{
			{Name: domain.HookBeforeAgentStarts, Priority: 5, Fn: func(_ context.Context, _ any) (any, error) {
				return "I am busy right now.", nil
			}},
		}, nil, nil
	})

	f := newChatFixture(t, reg, []string{"greeter"}, "greeter")

	reply, err := f.chat.Reply(context.Background(), "kb1", "Hello?", nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Content != "I am busy right now." {
		t.Errorf("content = %q", reply.Content)
	}
	if len(f.llm.prompts) != 0 {
		t.Errorf("LLM called %d times, want 0", len(f.llm.prompts))
	}
}

func TestChat_SendHookRewritesReply(t *testing.T) {
	reg := plugins.NewRegistry()
	reg.Register("censor", func() ([]domain.Hook, []domain.Tool, error) {
		return []domain.Hook{
			{Name: domain.HookBeforeSendMessage, Priority: 5, Fn: func(_ context.Context, v any) (any, error) {
				return strings.ToUpper(v.(string)), nil
			}},
		}, nil, nil
	})

	f := newChatFixture(t, reg, []string{"censor"}, "censor")
	f.llm.replies = []string{"quiet answer"}

	reply, err := f.chat.Reply(context.Background(), "kb1", "Speak up?", nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Content != "QUIET ANSWER" {
		t.Errorf("content = %q", reply.Content)
	}
}

func TestChat_Stream(t *testing.T) {
	f := newChatFixture(t, plugins.NewRegistry(), nil)
	f.llm.replies = []string{"Streamed answer."}

	var deltas []string
	reply, err := f.chat.Stream(context.Background(), "kb1", "Question?", nil, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatal(err)
	}

	if reply.Content != "Streamed answer." {
		t.Errorf("content = %q", reply.Content)
	}
	if strings.Join(deltas, "") != "Streamed answer." {
		t.Errorf("deltas = %v", deltas)
	}
}

func TestChat_UnknownKnowledgeBase(t *testing.T) {
	f := newChatFixture(t, plugins.NewRegistry(), nil)

	_, err := f.chat.Reply(context.Background(), "ghost", "Hello?", nil)
	if err == nil {
		t.Fatal("expected error for unknown knowledge base")
	}
}

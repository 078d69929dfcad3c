package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warren-labs/warren/internal/core/domain"
)

type stubChat struct {
	reply   domain.Reply
	err     error
	lastMsg string
	history []domain.ChatTurn
}

func (s *stubChat) Reply(_ context.Context, _ string, message string, history []domain.ChatTurn) (domain.Reply, error) {
	s.lastMsg = message
	s.history = history
	return s.reply, s.err
}

func (s *stubChat) Stream(ctx context.Context, kbID, message string, history []domain.ChatTurn, onDelta func(string)) (domain.Reply, error) {
	reply, err := s.Reply(ctx, kbID, message, history)
	if err == nil {
		onDelta(reply.Content)
	}
	return reply, err
}

func sizedModel(chat *stubChat) Model {
	m := New(chat, "kb1", "Research")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

// sendMessage types text into the input and presses enter, returning the
// model and the dispatched chat command.
func sendMessage(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestModel_ViewBeforeSizing(t *testing.T) {
	m := New(&stubChat{}, "kb1", "Research")
	assert.Equal(t, "Loading...", m.View())
}

func TestModel_ViewAfterSizing(t *testing.T) {
	m := sizedModel(&stubChat{})
	view := m.View()
	assert.Contains(t, view, "Warren - Research")
	assert.Contains(t, view, "Say something")
}

func TestModel_SendMessage(t *testing.T) {
	chat := &stubChat{reply: domain.Reply{Content: "Cats do sleep a lot."}}
	m := sizedModel(chat)

	m, cmd := sendMessage(t, m, "Do cats sleep?")
	require.NotNil(t, cmd, "enter should dispatch a chat command")
	assert.True(t, m.waiting)
	assert.Contains(t, m.View(), "Thinking...")

	msg := cmd()
	reply, ok := msg.(replyMsg)
	require.True(t, ok)
	require.NoError(t, reply.err)
	assert.Equal(t, "Do cats sleep?", chat.lastMsg)
	assert.Empty(t, chat.history, "first message has no history")

	updated, _ := m.Update(msg)
	m = updated.(Model)
	assert.False(t, m.waiting)
	assert.Contains(t, m.viewport.View(), "Cats do sleep a lot.")
}

func TestModel_HistoryExcludesCurrentMessage(t *testing.T) {
	chat := &stubChat{reply: domain.Reply{Content: "Indeed."}}
	m := sizedModel(chat)

	m, cmd := sendMessage(t, m, "First question")
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	_, cmd = sendMessage(t, m, "Second question")
	cmd()

	require.Len(t, chat.history, 2)
	assert.Equal(t, "Human", chat.history[0].Who)
	assert.Equal(t, "First question", chat.history[0].Message)
	assert.Equal(t, "AI", chat.history[1].Who)
}

func TestModel_ReplyErrorDropsTurn(t *testing.T) {
	chat := &stubChat{err: errors.New("llm unreachable")}
	m := sizedModel(chat)

	m, cmd := sendMessage(t, m, "Hello?")
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	assert.Empty(t, m.turns, "failed turn should be dropped for retry")
	assert.Contains(t, m.status, "llm unreachable")
}

func TestModel_StatusShowsToolAndSources(t *testing.T) {
	chat := &stubChat{reply: domain.Reply{
		Content:            "It is noon.",
		UsedTool:           "get_time",
		DeclarativeSources: []string{"notes.txt"},
	}}
	m := sizedModel(chat)

	m, cmd := sendMessage(t, m, "What time is it?")
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	assert.Contains(t, m.status, "get_time")
	assert.Contains(t, m.status, "notes.txt")
}

func TestModel_EmptyInputDoesNothing(t *testing.T) {
	m := sizedModel(&stubChat{})
	m, cmd := sendMessage(t, m, "   ")
	assert.Nil(t, cmd)
	assert.Empty(t, m.turns)
}

func TestModel_EnterIgnoredWhileWaiting(t *testing.T) {
	m := sizedModel(&stubChat{reply: domain.Reply{Content: "ok"}})
	m, _ = sendMessage(t, m, "first")
	require.True(t, m.waiting)

	m, cmd := sendMessage(t, m, "second")
	assert.Nil(t, cmd, "no second dispatch while a reply is pending")
	assert.Len(t, m.turns, 1)
}

func TestModel_QuitKeys(t *testing.T) {
	m := sizedModel(&stubChat{})
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestRecentTurns(t *testing.T) {
	var turns []domain.ChatTurn
	for i := 0; i < historyWindow+10; i++ {
		turns = append(turns, domain.ChatTurn{Who: "Human", Message: "m"})
	}
	assert.Len(t, recentTurns(turns), historyWindow)
	assert.Len(t, recentTurns(turns[:3]), 3)
}

// Package tui implements the interactive chat interface as a Bubble Tea
// model over the ChatService driving port.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driving"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	humanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	inputStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// historyWindow caps the turns passed back to the chat service.
const historyWindow = 20

// replyMsg carries the outcome of one chat round back into the model.
type replyMsg struct {
	reply domain.Reply
	err   error
}

// Model is the Bubble Tea model for the chat session. One model talks to
// one knowledge base for its whole lifetime.
type Model struct {
	chat   driving.ChatService
	kbID   string
	kbName string

	ctx      context.Context
	input    textinput.Model
	viewport viewport.Model
	turns    []domain.ChatTurn
	status   string
	waiting  bool
	ready    bool
}

// New creates a chat model bound to one knowledge base.
func New(chat driving.ChatService, kbID, kbName string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		chat:     chat,
		kbID:     kbID,
		kbName:   kbName,
		ctx:      context.Background(),
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Connected. Say something.",
	}
}

// WithContext sets the context used for chat calls.
func (m Model) WithContext(ctx context.Context) Model {
	m.ctx = ctx
	return m
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + ih + 1 // header + spacer, input frame, status
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.waiting {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				break
			}
			m.input.Reset()
			m.turns = append(m.turns, domain.ChatTurn{Who: "Human", Message: text})
			m.waiting = true
			m.status = "Thinking..."
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, m.ask(text)
		}

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			// Drop the unanswered turn so a retry does not duplicate it.
			m.turns = m.turns[:len(m.turns)-1]
			return m, nil
		}
		m.turns = append(m.turns, domain.ChatTurn{Who: "AI", Message: msg.reply.Content})
		m.status = describeReply(msg.reply)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(fmt.Sprintf("Warren - %s", m.kbName))
	return header + "\n" +
		m.viewport.View() + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		metaStyle.Render(m.status)
}

// ask runs one chat round off the update loop. The history excludes the
// message being asked, which goes in as the current message.
func (m Model) ask(text string) tea.Cmd {
	history := recentTurns(m.turns[:len(m.turns)-1])
	return func() tea.Msg {
		reply, err := m.chat.Reply(m.ctx, m.kbID, text, history)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return metaStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for _, turn := range m.turns {
		if turn.Who == "Human" {
			b.WriteString(humanStyle.Render("You: "))
		} else {
			b.WriteString(botStyle.Render("Warren: "))
		}
		b.WriteString(turn.Message)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeReply(reply domain.Reply) string {
	parts := []string{"Ready."}
	if reply.UsedTool != "" {
		parts = append(parts, "Used tool: "+reply.UsedTool)
	}
	if len(reply.DeclarativeSources) > 0 {
		parts = append(parts, "Sources: "+strings.Join(reply.DeclarativeSources, ", "))
	}
	return strings.Join(parts, "  ")
}

func recentTurns(turns []domain.ChatTurn) []domain.ChatTurn {
	if len(turns) <= historyWindow {
		return turns
	}
	return turns[len(turns)-historyWindow:]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

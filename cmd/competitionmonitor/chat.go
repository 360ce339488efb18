package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/a-h/competitionmonitor/client"
	"github.com/a-h/competitionmonitor/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var defaultSystemPrompt = `You are an expert in competitor analysis for digital products.

Give concise, practical answers. When you compare products, name the strengths, weaknesses and opportunities you see.
`

type ChatCommand struct {
	ServerFlags      `embed:""`
	SystemPromptFile string `help:"A file containing the system prompt to use." env:"CHAT_SYSTEM_PROMPT" default:""`
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	systemPrompt, err := readFileOrDefault(c.SystemPromptFile, defaultSystemPrompt)
	if err != nil {
		return fmt.Errorf("failed to read system prompt file: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := newSession(c.Client(), systemPrompt)
	go s.run(ctx)

	p := tea.NewProgram(newModel(ctx, s.toLLM, s.fromLLM, s.errors))
	_, err = p.Run()
	return err
}

type session struct {
	client  client.Client
	req     models.ChatPostRequest
	toLLM   chan models.ChatMessage
	fromLLM chan []models.ChatMessage
	errors  chan error
}

func newSession(c client.Client, systemPrompt string) *session {
	s := &session{
		client:  c,
		toLLM:   make(chan models.ChatMessage),
		fromLLM: make(chan []models.ChatMessage),
		errors:  make(chan error),
	}
	s.req.Messages = []models.ChatMessage{
		{Type: models.ChatMessageTypeSystem, Content: systemPrompt},
	}
	return s
}

// run sends each message to the server, publishing a copy of the dialog as
// the answer streams in. A failed request drops the unanswered message so that
// the user can retry.
func (s *session) run(ctx context.Context) {
	for {
		var toSend models.ChatMessage
		select {
		case <-ctx.Done():
			return
		case toSend = <-s.toLLM:
		}
		before := len(s.req.Messages)
		s.req.Messages = append(s.req.Messages, toSend)
		s.publish(ctx)

		answer := new(bytes.Buffer)
		f := func(ctx context.Context, chunk []byte) error {
			answer.Write(chunk)
			msgs := append(s.snapshot(), models.ChatMessage{
				Type:    models.ChatMessageTypeAI,
				Content: answer.String(),
			})
			select {
			case s.fromLLM <- msgs:
			case <-ctx.Done():
			}
			return nil
		}
		if err := s.client.ChatPost(ctx, s.req, f); err != nil {
			s.req.Messages = s.req.Messages[:before]
			select {
			case s.errors <- err:
			case <-ctx.Done():
				return
			}
			continue
		}
		s.req.Messages = append(s.req.Messages, models.ChatMessage{
			Type:    models.ChatMessageTypeAI,
			Content: answer.String(),
		})
	}
}

func (s *session) snapshot() []models.ChatMessage {
	msgs := make([]models.ChatMessage, len(s.req.Messages))
	copy(msgs, s.req.Messages)
	return msgs
}

func (s *session) publish(ctx context.Context) {
	select {
	case s.fromLLM <- s.snapshot():
	case <-ctx.Done():
	}
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Foreground  = lipgloss.Color("#f8f8f2")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var headerStyle = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Margin(2).Padding(1, 3)

const header = "COMPETITION MONITOR\n\nAsk about your competitors. Press esc to quit."

var errorStyle = lipgloss.NewStyle().Foreground(Red)

type model struct {
	viewport viewport.Model
	textarea textarea.Model
	err      error
	ctx      context.Context

	toLLM   chan models.ChatMessage
	fromLLM chan []models.ChatMessage
	errors  chan error
}

func newModel(ctx context.Context, toLLM chan models.ChatMessage, fromLLM chan []models.ChatMessage, errors chan error) model {
	ta := textarea.New()
	ta.Placeholder = "Ask about a competitor..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 1000
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)
	vp.SetContent(headerStyle.Render(header))

	return model{
		ctx:      ctx,
		textarea: ta,
		viewport: vp,
		fromLLM:  fromLLM,
		toLLM:    toLLM,
		errors:   errors,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToFromLLM(),
		m.subscribeToErrors(),
	)
}

func (m model) subscribeToFromLLM() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromLLM:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.errors:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

var messageTypeToStyle = map[models.ChatMessageType]lipgloss.Style{
	models.ChatMessageTypeSystem: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).MaxWidth(90).Background(Background).Foreground(Green),
	models.ChatMessageTypeHuman:  lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink),
	models.ChatMessageTypeAI:     lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan),
}

var messageTypeToLabel = map[models.ChatMessageType]string{
	models.ChatMessageTypeSystem: "system:",
	models.ChatMessageTypeHuman:  "you:",
	models.ChatMessageTypeAI:     "perplexity:",
}

func formatMessage(msg models.ChatMessage, width int) string {
	style, ok := messageTypeToStyle[msg.Type]
	if !ok {
		return msg.Content
	}
	wrapped := wordwrap.String(strings.TrimSpace(messageTypeToLabel[msg.Type]+" "+msg.Content), width)
	return style.Render(wrapped)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		return m, m.subscribeToErrors()
	case []models.ChatMessage:
		m.err = nil
		width := min(max(m.viewport.Width-6, 20), 100)
		var sb strings.Builder
		for _, cm := range msg {
			sb.WriteString(formatMessage(cm, width))
			sb.WriteString("\n")
		}
		m.viewport.SetContent(sb.String())
		m.viewport.GotoBottom()
		return m, m.subscribeToFromLLM()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 4
		m.textarea.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			v := strings.TrimSpace(m.textarea.Value())
			if v == "" {
				return m, nil
			}
			m.textarea.Reset()
			toLLM, ctx := m.toLLM, m.ctx
			return m, func() tea.Msg {
				select {
				case toLLM <- models.ChatMessage{Type: models.ChatMessageTypeHuman, Content: v}:
				case <-ctx.Done():
				}
				return nil
			}
		default:
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}
	case cursor.BlinkMsg:
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m model) View() string {
	status := ""
	if m.err != nil {
		status = errorStyle.Render("error: " + m.err.Error())
	}
	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), status, m.textarea.View()) + "\n\n"
}

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/ragnchat/internal/chat"
	"github.com/fyrsmithlabs/ragnchat/internal/embeddings"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

const (
	sparklineWidth  = 24
	sparklineHeight = 1
	historySize     = 24

	// contextTurns is how many earlier turns ride along as extra context.
	contextTurns = 4
)

// Answerer answers a single chat request.
type Answerer interface {
	Answer(ctx context.Context, req chat.Request) (string, error)
}

type turn struct {
	prompt  string
	answer  string
	err     error
	elapsed time.Duration
}

type answerMsg struct {
	prompt  string
	answer  string
	err     error
	elapsed time.Duration
}

// Model is the bubbletea model for a chat session.
type Model struct {
	answerer Answerer
	repo     *string
	timeout  time.Duration

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns     []turn
	latencies []float64
	pending   bool
	ready     bool
	quitting  bool
}

// Option configures a Model.
type Option func(*Model)

// WithTimeout bounds each answer. Zero means no extra bound.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) { m.timeout = d }
}

// NewModel creates a chat session against answerer. A nil repo chats
// without repository context.
func NewModel(answerer Answerer, repo *string, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the repository and press Enter"
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = labelStyle

	m := Model{
		answerer: answerer,
		repo:     repo,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key, resize, spinner and answer messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + ih + 1 + 1 // header lines, input, footer
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.input.Width = max(10, msg.Width-8)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.turns = nil
			m.refresh()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" || m.pending {
				return m, nil
			}
			m.input.Reset()
			m.pending = true
			m.refresh()
			return m, tea.Batch(m.ask(prompt), m.spinner.Tick)
		}

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case answerMsg:
		m.pending = false
		m.turns = append(m.turns, turn(msg))
		if msg.err == nil {
			m.latencies = appendToHistory(m.latencies, float64(msg.elapsed.Milliseconds()))
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the request off the update loop. Earlier successful turns are
// passed as extra context, newest last, each cut to the context item limit.
func (m Model) ask(prompt string) tea.Cmd {
	req := chat.Request{Prompt: prompt, Repository: m.repo, Context: m.history()}
	answerer := m.answerer
	timeout := m.timeout

	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		answer, err := answerer.Answer(ctx, req)
		return answerMsg{prompt: prompt, answer: answer, err: err, elapsed: time.Since(start)}
	}
}

func (m Model) history() []string {
	var out []string
	for _, t := range m.turns {
		if t.err != nil {
			continue
		}
		out = append(out,
			embeddings.Truncate(t.prompt, v1.MaxContextItemLength),
			embeddings.Truncate(t.answer, v1.MaxContextItemLength))
	}
	if n := 2 * contextTurns; len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the session.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	header := headerStyle.Render(" ragnchat ") + "  " +
		labelStyle.Render(FormatRepository(m.repo)) + "  " +
		m.renderLatency()

	status := dimStyle.Render("ready")
	if m.pending {
		status = m.spinner.View() + dimStyle.Render(" thinking...")
	}

	footer := footerKeyStyle.Render("[enter]") + dimStyle.Render(" send  ") +
		footerKeyStyle.Render("[pgup/pgdn]") + dimStyle.Render(" scroll  ") +
		footerKeyStyle.Render("[ctrl+l]") + dimStyle.Render(" clear  ") +
		footerKeyStyle.Render("[esc]") + dimStyle.Render(" quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		status,
		transcriptStyle.Render(m.viewport.View()),
		inputStyle.Render(m.input.View()),
		footer,
	)
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return dimStyle.Render("No messages yet.")
	}
	width := max(20, m.viewport.Width)

	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(userStyle.Render("you: ") + t.prompt + "\n")
		if t.err != nil {
			b.WriteString(errorStyle.Width(width).Render("error: " + t.err.Error()))
			continue
		}
		b.WriteString(assistantStyle.Width(width).Render(t.answer))
		b.WriteString("\n" + dimStyle.Render(FormatLatency(t.elapsed)))
	}
	return b.String()
}

func (m Model) renderLatency() string {
	if len(m.latencies) == 0 {
		return dimStyle.Render("latency: n/a")
	}
	last := time.Duration(m.latencies[len(m.latencies)-1]) * time.Millisecond
	return dimStyle.Render("latency: ") + FormatLatency(last) + " " + createSparkline(m.latencies)
}

func createSparkline(data []float64) string {
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// Run starts a full-screen session and blocks until the user quits.
func Run(answerer Answerer, repo *string, opts ...Option) error {
	if _, err := tea.NewProgram(NewModel(answerer, repo, opts...), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running chat session: %w", err)
	}
	return nil
}

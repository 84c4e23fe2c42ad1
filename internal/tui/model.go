// Package tui is the interactive query screen: a query box above a
// scrollable view of the current insight.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/docinsight/internal/insight"
)

// Answerer produces insights for a query.
type Answerer interface {
	AnswerQuery(ctx context.Context, query string) []insight.Insight
}

// answeredMsg carries the results of a finished query.
type answeredMsg struct {
	query    string
	insights []insight.Insight
}

// Model is the bubbletea model for the query screen.
type Model struct {
	ctx      context.Context
	answerer Answerer
	styles   Styles

	input    textinput.Model
	viewport viewport.Model

	query    string
	insights []insight.Insight
	cursor   int
	message  string
	busy     bool

	width, height int
}

func New(ctx context.Context, answerer Answerer) Model {
	in := textinput.New()
	in.Placeholder = "Ask about the documents..."
	in.Prompt = "> "
	in.CharLimit = 512
	in.Focus()

	return Model{
		ctx:      ctx,
		answerer: answerer,
		styles:   DefaultStyles(),
		input:    in,
		viewport: viewport.New(80, 16),
		width:    80,
		height:   24,
	}
}

// Run blocks until the user quits.
func Run(ctx context.Context, answerer Answerer) error {
	p := tea.NewProgram(New(ctx, answerer), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-4, 10)
		m.viewport.Width = max(msg.Width-4, 10)
		m.viewport.Height = max(msg.Height-8, 3)
		m.render()
		return m, nil

	case answeredMsg:
		m.busy = false
		m.query = msg.query
		m.insights = msg.insights
		m.cursor = 0
		m.message = insight.Message(msg.query, msg.insights)
		m.render()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.message = insight.MsgEmptyQuery
				m.insights = nil
				m.render()
				return m, nil
			}
			m.busy = true
			return m, m.answer(q)
		case "up":
			m.step(-1)
			return m, nil
		case "down":
			m.step(1)
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) answer(q string) tea.Cmd {
	ctx, answerer := m.ctx, m.answerer
	return func() tea.Msg {
		return answeredMsg{query: q, insights: answerer.AnswerQuery(ctx, q)}
	}
}

// step moves through results, wrapping at either end.
func (m *Model) step(delta int) {
	n := len(m.insights)
	if n == 0 {
		return
	}
	m.cursor = ((m.cursor+delta)%n + n) % n
	m.render()
}

func (m *Model) render() {
	if len(m.insights) == 0 {
		m.viewport.SetContent(m.styles.Muted.Render(m.message))
		return
	}
	in := m.insights[m.cursor]
	before, match, after := BestSentence(in.Snippet, m.query)

	var b strings.Builder
	b.WriteString(m.styles.Citation.Render(in.Citation))
	b.WriteString("\n")
	b.WriteString(m.styles.Score.Render(fmt.Sprintf("score %.3f", in.Score)))
	b.WriteString("\n\n")
	body := before
	if match != "" {
		body += m.styles.Highlight.Render(match) + after
	}
	b.WriteString(lipgloss.NewStyle().Width(m.viewport.Width).Render(body))
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("docinsight"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	status := ""
	switch {
	case m.busy:
		status = "Searching..."
	case len(m.insights) > 0:
		status = fmt.Sprintf("Result %d of %d", m.cursor+1, len(m.insights))
	}
	b.WriteString(m.styles.Muted.Render(status))
	b.WriteString("\n")
	b.WriteString(m.styles.Frame.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("enter: ask  up/down: results  pgup/pgdown: scroll  esc: quit"))
	return b.String()
}

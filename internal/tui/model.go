// Package tui provides the Bubble Tea dice rolling interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuidice/internal/dice"
	"github.com/verte-zerg/tuidice/internal/roller"
)

// Roller is the part of roller.Roller the interface drives.
type Roller interface {
	Roll(ctx context.Context, input string) (roller.Outcome, error)
	Run(ctx context.Context, name, extra string) (roller.Outcome, error)
	DiceJail() dice.Result
}

const (
	cmdRun   = ":run"
	cmdJail  = ":jail"
	cmdClear = ":clear"
	cmdHelp  = ":help"
	cmdQuit  = ":q"
)

const helpText = "Type a roll like 2d20b + 5 ! attack. :run <name> [extra] rolls a saved roll, :jail swaps dice, :clear empties the log, :q quits."

// item is one transcript entry.
type item struct {
	input   string
	outcome *roller.Outcome
	jail    *dice.Result
	err     error
	note    string
}

// Model implements the Bubble Tea rolling UI.
type Model struct {
	roller      Roller
	maxRollsLen int

	input textinput.Model
	view  viewport.Model

	items     []item
	recall    []string
	recallIdx int

	width  int
	height int

	rolls     int
	lastValue float64
	hasLast   bool
}

var (
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	inputEchoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	annotationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Italic(true)
	specStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	plainStyle      = lipgloss.NewStyle()
	keptStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	droppedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E")).Strikethrough(true)
	totalStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a rolling TUI model. maxRollsLen clips long roll
// listings; zero disables clipping.
func NewModel(r Roller, maxRollsLen int) *Model {
	input := textinput.New()
	input.Prompt = promptStyle.Render("> ")
	input.Placeholder = "2d20b + 5 ! attack"
	input.CharLimit = 512
	input.Focus()

	return &Model{
		roller:      r,
		maxRollsLen: maxRollsLen,
		input:       input,
		view:        viewport.New(0, 0),
		items:       []item{{note: helpText}},
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyUp:
			m.moveRecall(-1)
			return m, nil
		case tea.KeyDown:
			m.moveRecall(1)
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return m.renderTranscript(0) + "\n" + m.input.View()
	}
	return strings.Join([]string{m.view.View(), m.input.View(), m.renderFooter()}, "\n")
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.view.Width = m.width
	m.view.Height = max(1, m.height-2)
	m.input.Width = max(10, m.width-lipgloss.Width(m.input.Prompt)-1)
	m.refreshContent()
}

func (m *Model) refreshContent() {
	m.view.SetContent(m.renderTranscript(m.width))
	m.view.GotoBottom()
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if text == "" {
		return m, nil
	}
	m.recall = append(m.recall, text)
	m.recallIdx = len(m.recall)

	ctx := context.Background()
	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case cmdQuit, ":quit", "quit", "exit":
		return m, tea.Quit
	case cmdClear:
		m.items = nil
	case cmdHelp:
		m.items = append(m.items, item{input: text, note: helpText})
	case cmdJail:
		res := m.roller.DiceJail()
		m.items = append(m.items, item{input: text, jail: &res, note: "The previous dice have been put in dice jail."})
	case cmdRun:
		if len(fields) < 2 {
			m.items = append(m.items, item{input: text, err: fmt.Errorf("usage: %s <name> [extra]", cmdRun)})
			break
		}
		extra := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text[len(fields[0]):]), fields[1]))
		out, err := m.roller.Run(ctx, fields[1], extra)
		m.addOutcome(text, out, err)
	default:
		out, err := m.roller.Roll(ctx, text)
		m.addOutcome(text, out, err)
	}
	m.refreshContent()
	return m, nil
}

func (m *Model) addOutcome(text string, out roller.Outcome, err error) {
	if err != nil {
		m.items = append(m.items, item{input: text, err: err})
		return
	}
	m.items = append(m.items, item{input: text, outcome: &out})
	m.rolls++
	m.lastValue = out.Result.Value
	m.hasLast = true
}

func (m *Model) moveRecall(delta int) {
	if len(m.recall) == 0 {
		return
	}
	m.recallIdx = max(0, min(m.recallIdx+delta, len(m.recall)))
	if m.recallIdx == len(m.recall) {
		m.input.Reset()
		return
	}
	m.input.SetValue(m.recall[m.recallIdx])
	m.input.CursorEnd()
}

func (m *Model) renderTranscript(width int) string {
	blocks := make([]string, 0, len(m.items))
	for _, it := range m.items {
		blocks = append(blocks, m.renderItem(it, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderItem(it item, width int) string {
	var lines []string
	if it.input != "" {
		lines = append(lines, promptStyle.Render("> ")+inputEchoStyle.Render(it.input))
	}
	switch {
	case it.err != nil:
		lines = append(lines, errorStyle.Render(it.err.Error()))
	case it.outcome != nil:
		if it.outcome.Annotation != "" {
			lines = append(lines, annotationStyle.Render("Reason: "+it.outcome.Annotation))
		}
		lines = append(lines, m.renderResult(it.outcome.Result, width)...)
	case it.jail != nil:
		lines = append(lines, footerStyle.Render(it.note))
		lines = append(lines, m.renderResult(*it.jail, width)...)
		return strings.Join(lines, "\n")
	}
	if it.note != "" {
		lines = append(lines, footerStyle.Render(it.note))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderResult(res dice.Result, width int) []string {
	value := "Result: " + resultStyle.Render(dice.FormatValue(res.Value))
	if len(res.Rolls) == 0 {
		return []string{value}
	}
	plain := dice.Formatter{}.Breakdown(res)
	if m.maxRollsLen > 0 && len(plain) > m.maxRollsLen {
		return []string{footerStyle.Render(dice.ClippedNotice), value}
	}
	lines := make([]string, 0, len(res.Rolls)+1)
	for _, rec := range res.Rolls {
		lines = append(lines, wrapSegments(recordSegments(rec), width))
	}
	return append(lines, value)
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Rolls %d", m.rolls)}
	if m.hasLast {
		segments = append(segments, "Last "+dice.FormatValue(m.lastValue))
	}
	segments = append(segments, "enter: roll", "up/down: recall", "pgup/pgdn: scroll", "esc: quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}

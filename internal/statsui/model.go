// Package statsui provides the Bubble Tea roll history browser.
package statsui

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuidice/internal/dice"
	"github.com/verte-zerg/tuidice/internal/model"
	"github.com/verte-zerg/tuidice/internal/stats"
)

type tab int

const (
	tabOverview tab = iota
	tabExpressions
	tabDice
	tabCount
)

func (t tab) String() string {
	switch t {
	case tabOverview:
		return "Overview"
	case tabExpressions:
		return "Expressions"
	case tabDice:
		return "Dice"
	}
	return "?"
}

// headerLines is the height of the tab bar plus the filter summary.
const headerLines = 2

// windowSteps are the moving-average windows offered by the window keys.
var windowSteps = []int{1, 2, 5, 10, 20, 50, 100}

var (
	activeTabStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true).Underline(true)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	tabGapStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	titleStyle       = lipgloss.NewStyle().Bold(true)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle        = lipgloss.NewStyle().
				Padding(0, 2).
				MarginRight(1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

// Model implements the Bubble Tea history browser.
type Model struct {
	source stats.HistorySource
	cfg    model.StatsConfig
	report stats.Report
	errMsg string

	active tab
	pages  [tabCount]viewport.Model
	table  table.Model

	filtering bool
	form      filterForm

	keys keyMap
	help help.Model

	width  int
	height int
}

// NewModel constructs a history browser over src. The report is loaded
// immediately so load errors show on the first frame.
func NewModel(src stats.HistorySource, cfg model.StatsConfig) *Model {
	cfg.Window = max(cfg.Window, 1)
	m := &Model{
		source: src,
		cfg:    cfg,
		form:   newFilterForm(),
		keys:   defaultKeyMap(),
		help:   help.New(),
		table:  newExprTable(nil, 80, 10),
	}
	for i := range m.pages {
		m.pages[i] = viewport.New(80, 10)
	}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filtering {
			return m, m.updateForm(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.PrevTab):
		m.selectTab(m.active - 1)
		return nil
	case key.Matches(msg, m.keys.NextTab):
		m.selectTab(m.active + 1)
		return nil
	case key.Matches(msg, m.keys.Wider):
		m.setWindow(nextWindow(m.cfg.Window))
		return nil
	case key.Matches(msg, m.keys.Narrower):
		m.setWindow(prevWindow(m.cfg.Window))
		return nil
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m.form.load(m.cfg)
	case key.Matches(msg, m.keys.Top):
		if m.active == tabExpressions {
			m.table.GotoTop()
		} else {
			m.pages[m.active].GotoTop()
		}
		return nil
	case key.Matches(msg, m.keys.Bottom):
		if m.active == tabExpressions {
			m.table.GotoBottom()
		} else {
			m.pages[m.active].GotoBottom()
		}
		return nil
	}
	var cmd tea.Cmd
	if m.active == tabExpressions {
		m.table, cmd = m.table.Update(msg)
	} else {
		m.pages[m.active], cmd = m.pages[m.active].Update(msg)
	}
	return cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.form.keys.Cancel):
		m.filtering = false
		return nil
	case key.Matches(msg, m.form.keys.Apply):
		cfg, err := m.form.config()
		if err != nil {
			m.form.err = err.Error()
			return nil
		}
		m.filtering = false
		m.cfg = cfg
		m.reload()
		return nil
	}
	return m.form.update(msg)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	footer := m.renderFooter()
	bodyHeight := max(1, m.height-headerLines-lipgloss.Height(footer))
	body := lipgloss.NewStyle().
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		MaxWidth(m.width).
		Render(m.renderBody())
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, footer)
}

func (m *Model) selectTab(t tab) {
	m.active = (t + tabCount) % tabCount
	if m.active == tabExpressions {
		m.table.Focus()
	} else {
		m.table.Blur()
	}
}

func (m *Model) setWindow(window int) {
	if window == m.cfg.Window {
		return
	}
	m.cfg.Window = window
	m.reload()
}

// reload rebuilds the report for the current filters.
func (m *Model) reload() {
	report, err := stats.BuildReport(context.Background(), m.source, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{Window: m.cfg.Window}
	} else {
		m.errMsg = ""
		m.report = report
	}
	m.resize()
}

// resize fits every page to the terminal and re-renders the report.
func (m *Model) resize() {
	width, height := m.width, m.height
	if width <= 0 || height <= 0 {
		width, height = 80, 24
	}
	m.help.Width = width
	bodyHeight := max(1, height-headerLines-lipgloss.Height(m.renderFooter()))
	m.form.setWidth(width)
	for i := range m.pages {
		m.pages[i].Width = width
		m.pages[i].Height = bodyHeight
	}
	if m.errMsg != "" {
		for i := range m.pages {
			m.pages[i].SetContent("Failed to load stats.")
		}
	} else {
		m.pages[tabOverview].SetContent(overviewContent(m.report, width))
		m.pages[tabDice].SetContent(diceContent(m.report.Faces, width))
	}
	m.table = newExprTable(m.report.Expressions, width, bodyHeight)
	if m.active != tabExpressions {
		m.table.Blur()
	}
}

func (m *Model) renderHeader() string {
	labels := make([]string, 0, tabCount)
	for t := tabOverview; t < tabCount; t++ {
		if t == m.active {
			labels = append(labels, activeTabStyle.Render(t.String()))
		} else {
			labels = append(labels, inactiveTabStyle.Render(t.String()))
		}
	}
	bar := strings.Join(labels, tabGapStyle.Render(" │ "))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(bar + "\n" + mutedStyle.Render(m.filterSummary()))
}

func (m *Model) filterSummary() string {
	parts := []string{"expr " + orDefault(m.cfg.Expression, "any")}
	if m.cfg.Since != nil {
		parts = append(parts, "since "+m.cfg.Since.Format(dateLayout))
	} else {
		parts = append(parts, "since any")
	}
	if m.cfg.Last > 0 {
		parts = append(parts, "last "+strconv.Itoa(m.cfg.Last))
	} else {
		parts = append(parts, "last all")
	}
	parts = append(parts, "window "+strconv.Itoa(m.cfg.Window))
	return strings.Join(parts, " · ")
}

func (m *Model) renderBody() string {
	switch {
	case m.filtering:
		return m.form.view()
	case m.active == tabExpressions && m.errMsg == "":
		if len(m.report.Expressions) == 0 {
			return "No rolls found."
		}
		return m.table.View()
	}
	return m.pages[m.active].View()
}

func (m *Model) renderFooter() string {
	if m.filtering {
		return m.help.View(m.form.keys)
	}
	footer := m.help.View(m.keys)
	if m.errMsg != "" {
		footer = errorStyle.Render(m.errMsg) + "\n" + footer
	}
	return footer
}

func overviewContent(report stats.Report, width int) string {
	if len(report.Entries) == 0 {
		return "No rolls found."
	}
	var buf bytes.Buffer
	if err := stats.RenderTotals(&buf, report.Entries, report.Window); err != nil {
		return errorStyle.Render(err.Error())
	}
	exprs := stats.TopExpressions(report.Expressions, stats.TopExpressionCurves)
	if err := stats.RenderExpressionCurves(&buf, report.Entries, exprs, report.Window); err != nil {
		return errorStyle.Render(err.Error())
	}
	return summaryCards(report.Entries, width) + "\n\n" + strings.TrimRight(buf.String(), "\n")
}

// summaryCards lays the headline numbers out in a row, stacking them when
// the row is wider than the terminal.
func summaryCards(entries []model.RollEntry, width int) string {
	var sum float64
	var diceRolled int64
	best, worst := entries[0].Total, entries[0].Total
	for _, e := range entries {
		sum += e.Total
		diceRolled += e.DiceCount
		best = max(best, e.Total)
		worst = min(worst, e.Total)
	}
	cards := []string{
		card("Rolls", strconv.Itoa(len(entries))),
		card("Dice", strconv.FormatInt(diceRolled, 10)),
		card("Average", dice.FormatValue(sum/float64(len(entries)))),
		card("Best", dice.FormatValue(best)),
		card("Worst", dice.FormatValue(worst)),
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	if lipgloss.Width(row) <= width {
		return row
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func card(label, value string) string {
	return cardStyle.Render(labelStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func diceContent(faces []model.FaceAggregate, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderLuckTable(&buf, faces); err != nil {
		return errorStyle.Render(err.Error())
	}
	for _, l := range stats.DiceLuck(faces) {
		if l.Sides > stats.MaxBarSides {
			continue
		}
		if err := stats.RenderFaceBars(&buf, faces, l.Sides, width); err != nil {
			return errorStyle.Render(err.Error())
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

// newExprTable sizes the expression column to its longest entry and leaves
// the numeric columns a fixed width.
func newExprTable(aggs []model.ExpressionAggregate, width, height int) table.Model {
	const numWidth = 9
	exprWidth := runewidth.StringWidth("Expression")
	for _, agg := range aggs {
		exprWidth = max(exprWidth, runewidth.StringWidth(agg.Expression))
	}
	exprWidth = max(10, min(exprWidth, width-4*(numWidth+2)-2))

	rows := make([]table.Row, 0, len(aggs))
	for _, agg := range aggs {
		avg := 0.0
		if agg.Count > 0 {
			avg = agg.Sum / float64(agg.Count)
		}
		rows = append(rows, table.Row{
			runewidth.Truncate(agg.Expression, exprWidth, "…"),
			strconv.Itoa(agg.Count),
			dice.FormatValue(avg),
			dice.FormatValue(agg.Min),
			dice.FormatValue(agg.Max),
		})
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#C89A3A")).
		Bold(true)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Expression", Width: exprWidth},
			{Title: "Rolls", Width: numWidth},
			{Title: "Average", Width: numWidth},
			{Title: "Min", Width: numWidth},
			{Title: "Max", Width: numWidth},
		}),
		table.WithRows(rows),
		table.WithHeight(max(2, height)),
		table.WithFocused(true),
		table.WithStyles(styles),
	)
	return t
}

func nextWindow(n int) int {
	for _, step := range windowSteps {
		if step > n {
			return step
		}
	}
	return windowSteps[len(windowSteps)-1]
}

func prevWindow(n int) int {
	for i := len(windowSteps) - 1; i >= 0; i-- {
		if windowSteps[i] < n {
			return windowSteps[i]
		}
	}
	return windowSteps[0]
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

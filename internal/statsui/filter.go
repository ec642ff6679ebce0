package statsui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuidice/internal/model"
)

const dateLayout = "2006-01-02"

const (
	fieldExpression = iota
	fieldSince
	fieldLast
	fieldWindow
	fieldCount
)

var (
	errInvalidSince  = errors.New("since must be a date like 2026-03-01")
	errInvalidLast   = errors.New("last must be 0 or a positive number of rolls")
	errInvalidWindow = errors.New("window must be a whole number of at least 1")
)

// filterForm edits the report filters one field at a time.
type filterForm struct {
	inputs []textinput.Model
	focus  int
	err    string
	keys   formKeyMap
}

func newFilterForm() filterForm {
	labels := [fieldCount]string{
		fieldExpression: "Expression",
		fieldSince:      "Since",
		fieldLast:       "Last",
		fieldWindow:     "Window",
	}
	placeholders := [fieldCount]string{
		fieldExpression: "any",
		fieldSince:      dateLayout,
		fieldLast:       "all",
		fieldWindow:     "1",
	}
	form := filterForm{inputs: make([]textinput.Model, fieldCount), keys: defaultFormKeyMap()}
	for i := range form.inputs {
		in := textinput.New()
		in.Prompt = labelStyle.Render(labels[i]+":") + " "
		in.Placeholder = placeholders[i]
		in.Cursor.SetMode(cursor.CursorBlink)
		form.inputs[i] = in
	}
	return form
}

// load fills the fields from cfg and focuses the first one.
func (f *filterForm) load(cfg model.StatsConfig) tea.Cmd {
	values := [fieldCount]string{fieldExpression: cfg.Expression, fieldWindow: strconv.Itoa(cfg.Window)}
	if cfg.Since != nil {
		values[fieldSince] = cfg.Since.Format(dateLayout)
	}
	if cfg.Last > 0 {
		values[fieldLast] = strconv.Itoa(cfg.Last)
	}
	for i := range f.inputs {
		f.inputs[i].SetValue(values[i])
	}
	f.err = ""
	return f.focusField(fieldExpression)
}

func (f *filterForm) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(10, width-lipgloss.Width(f.inputs[i].Prompt)-1)
	}
}

func (f *filterForm) focusField(idx int) tea.Cmd {
	f.focus = (idx + len(f.inputs)) % len(f.inputs)
	var cmd tea.Cmd
	for i := range f.inputs {
		if i != f.focus {
			f.inputs[i].Blur()
			continue
		}
		cmd = f.inputs[i].Focus()
	}
	return cmd
}

// update moves between fields or edits the focused one.
func (f *filterForm) update(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, f.keys.Next):
		return f.focusField(f.focus + 1)
	case key.Matches(msg, f.keys.Prev):
		return f.focusField(f.focus - 1)
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// config parses the fields into a StatsConfig.
func (f filterForm) config() (model.StatsConfig, error) {
	value := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }
	cfg := model.StatsConfig{Expression: value(fieldExpression), Window: 1}

	if s := value(fieldSince); s != "" {
		since, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			return model.StatsConfig{}, errInvalidSince
		}
		cfg.Since = &since
	}
	if s := value(fieldLast); s != "" {
		last, err := strconv.Atoi(s)
		if err != nil || last < 0 {
			return model.StatsConfig{}, errInvalidLast
		}
		cfg.Last = last
	}
	if s := value(fieldWindow); s != "" {
		window, err := strconv.Atoi(s)
		if err != nil || window < 1 {
			return model.StatsConfig{}, errInvalidWindow
		}
		cfg.Window = window
	}
	return cfg, nil
}

func (f filterForm) view() string {
	lines := make([]string, 0, len(f.inputs)+3)
	lines = append(lines, titleStyle.Render("Filter history"), "")
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	if f.err != "" {
		lines = append(lines, "", errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}

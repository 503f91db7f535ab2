package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/frederic-klein/eapkg/internal/resolver"
)

var errChoiceCanceled = errors.New("choice canceled")

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
)

// chooserModel asks the user to pick one member of an OR-group.
type chooserModel struct {
	target   string
	choices  []resolver.Choice
	cursor   int
	chosen   string
	canceled bool
}

func newChooserModel(target string, prompt resolver.Prompt) chooserModel {
	return chooserModel{target: target, choices: prompt.OrList}
}

func (m chooserModel) Init() tea.Cmd {
	return nil
}

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.canceled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.choices) > 0 {
			m.chosen = m.choices[m.cursor].Package
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m chooserModel) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(m.target + " requires one of"))
	b.WriteString("\n")
	b.WriteString(styleDim.Render("↑/↓ navigate  ⏎ select  q cancel"))
	b.WriteString("\n\n")

	for i, c := range m.choices {
		label := c.DisplayName
		if label == "" {
			label = c.Package
		}
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + label))
		} else {
			b.WriteString(listNormalStyle.Render("  " + label))
		}
		b.WriteString(" " + styleDim.Render(c.Package) + "\n")
	}
	return b.String()
}

// runChooser shows the chooser and returns the picked package.
func runChooser(in io.Reader, out io.Writer, target string, prompt resolver.Prompt) (string, error) {
	p := tea.NewProgram(newChooserModel(target, prompt), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("running chooser: %w", err)
	}
	m := final.(chooserModel)
	if m.canceled || m.chosen == "" {
		return "", errChoiceCanceled
	}
	return m.chosen, nil
}

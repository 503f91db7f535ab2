package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/frederic-klein/eapkg/internal/resolver"
)

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // additions, success
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // removals, errors
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleAdd     = lipgloss.NewStyle().Foreground(colorGreen)
	styleRemove  = lipgloss.NewStyle().Foreground(colorRed)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)

	// styleCallout frames the add/remove summary the way the wizard's
	// confirmation box does.
	styleCallout = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorYellow).
			Padding(0, 1)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconAdd     = "+"
	iconRemove  = "-"
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleAdd.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleWarning.Render(iconWarning)+" "+styleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleDim.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+styleDim.Render(fmt.Sprintf(format, args...)))
}

func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+styleValue.Render(value))
}

// renderResult renders the packages a toggle adds and removes.
func renderResult(target string, selecting bool, res resolver.Result) string {
	var b strings.Builder
	verb := "Selecting"
	if !selecting {
		verb = "Unselecting"
	}
	b.WriteString(styleTitle.Render(verb + " " + target))
	for _, name := range res.AddList {
		b.WriteString("\n" + styleAdd.Render(iconAdd+" "+name))
	}
	for _, name := range res.RemoveList {
		b.WriteString("\n" + styleRemove.Render(iconRemove+" "+name))
	}
	if len(res.AddList) == 0 && len(res.RemoveList) == 0 {
		b.WriteString("\n" + styleDim.Render("no other changes"))
	}
	return styleCallout.Render(b.String())
}

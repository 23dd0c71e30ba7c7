package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	ColorPrimary = lipgloss.Color("#0EA5E9") // sky blue - main accent
	ColorSuccess = lipgloss.Color("#22C55E") // green
	ColorError   = lipgloss.Color("#EF4444") // red
	ColorMuted   = lipgloss.Color("#94A3B8") // slate gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

func Logo() string {
	return titleStyle.Render("railscan") + " " +
		subtitleStyle.Render("· asset code detection")
}

func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func errorLine(err error) string {
	return lipgloss.NewStyle().Foreground(ColorError).Render(fmt.Sprintf("✗ %v", err))
}

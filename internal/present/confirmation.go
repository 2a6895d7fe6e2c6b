package present

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var confirmBadge = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#F1F1F1")).
	Background(lipgloss.Color("#6B50FF")).
	Bold(true).
	Padding(0, 1).
	MarginRight(1)

// PrintConfirmation prints an uppercase action badge followed by content.
func PrintConfirmation(action, content string) {
	if action == "" {
		action = "DONE"
	}
	badge := confirmBadge.SetString(strings.ToUpper(action))
	fmt.Println(lipgloss.JoinHorizontal(lipgloss.Center, badge.String(), content))
}

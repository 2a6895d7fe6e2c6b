// Package present holds scopa's terminal presentation helpers: renderers,
// shared lipgloss styles, and markdown output.
package present

import "github.com/charmbracelet/lipgloss"

// Styles are the shared lipgloss styles, bound to a specific renderer.
type Styles struct {
	AppName      lipgloss.Style
	CliArgs      lipgloss.Style
	Comment      lipgloss.Style
	InlineCode   lipgloss.Style
	Quote        lipgloss.Style
	Pipe         lipgloss.Style
	Flag         lipgloss.Style
	FlagComma    lipgloss.Style
	FlagDesc     lipgloss.Style
	Timeago      lipgloss.Style
	SHA1         lipgloss.Style
	SessionList  lipgloss.Style
	Link         lipgloss.Style
	ErrorHeader  lipgloss.Style
	ErrorDetails lipgloss.Style
	ErrPadding   lipgloss.Style
}

// MakeStyles builds the shared styles for the given renderer.
func MakeStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		AppName:      r.NewStyle().Bold(true),
		CliArgs:      r.NewStyle().Foreground(lipgloss.Color("#585858")),
		Comment:      r.NewStyle().Foreground(lipgloss.Color("#757575")),
		InlineCode:   r.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Background(lipgloss.Color("#3A3A3A")).Padding(0, 1),
		Quote:        r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF71D0", Dark: "#FF78D2"}),
		Pipe:         r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8470FF", Dark: "#745CFF"}),
		Flag:         r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00B594", Dark: "#3EEFCF"}).Bold(true),
		FlagComma:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5DD6C0", Dark: "#427C72"}).SetString(","),
		FlagDesc:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#656565", Dark: "#9B9B9B"}),
		Timeago:      r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#767676"}),
		SHA1:         r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF6E9E"}),
		SessionList:  r.NewStyle().PaddingRight(1),
		Link:         r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00A0FF", Dark: "#58C0FF"}).Underline(true),
		ErrorHeader:  r.NewStyle().Foreground(lipgloss.Color("#F1F1F1")).Background(lipgloss.Color("#FF5F87")).Bold(true).Padding(0, 1).SetString("ERROR"),
		ErrorDetails: r.NewStyle().Foreground(lipgloss.Color("#757575")),
		ErrPadding:   r.NewStyle().Padding(0, 1),
	}
}

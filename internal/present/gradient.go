package present

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Brand ramp, teal into violet.
const (
	rampStart = "#30D5C8"
	rampEnd   = "#6B50FF"
)

// MakeGradientRamp returns a color ramp of the given length.
func MakeGradientRamp(length int) []lipgloss.Color {
	start, _ := colorful.Hex(rampStart)
	end, _ := colorful.Hex(rampEnd)
	ramp := make([]lipgloss.Color, length)
	for i := range length {
		step := start.BlendLuv(end, float64(i)/float64(length))
		ramp[i] = lipgloss.Color(step.Hex())
	}
	return ramp
}

// MakeGradientText renders str with a gradient applied rune-by-rune.
func MakeGradientText(baseStyle lipgloss.Style, str string) string {
	const minSize = 3
	if len(str) < minSize {
		return str
	}
	var b strings.Builder
	runes := []rune(str)
	for i, c := range MakeGradientRamp(len(str)) {
		b.WriteString(baseStyle.Foreground(c).Render(string(runes[i])))
	}
	return b.String()
}

package cmd

import (
	"math/rand"
	"regexp"

	"github.com/dotcommander/scopa/internal/present"
)

var examples = map[string]string{
	"Chat about your campaigns":     `scopa`,
	"Pick up where you left off":    `scopa --continue-last`,
	"Review what the agent can do":  `scopa tools list | grep campaign`,
	"Clean out last quarter's runs": `scopa history prune --older-than 90d`,
}

func randomExample() string {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.Intn(len(keys))] //nolint:gosec
	return desc
}

func cheapHighlighting(s present.Styles, code string) string {
	code = regexp.
		MustCompile(`"([^"\\]|\\.)*"`).
		ReplaceAllStringFunc(code, func(x string) string {
			return s.Quote.Render(x)
		})
	code = regexp.
		MustCompile(`\|`).
		ReplaceAllStringFunc(code, func(x string) string {
			return s.Pipe.Render(x)
		})
	return code
}

package crew

import (
	"strings"

	"fundamental/analyst-app/core"
)

const contextDivider = "\n\n----------\n\n"

// BuildTaskPrompt renders the task's description and expected output with the
// run inputs and appends the dependency context verbatim.
func BuildTaskPrompt(task TaskSpec, inputs RunInputs, context []string) string {
	labels := inputs.Labels()

	var b strings.Builder
	b.WriteString(strings.TrimSpace(core.ReplaceLabels(task.Description, labels)))
	if expected := strings.TrimSpace(core.ReplaceLabels(task.ExpectedOutput, labels)); expected != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer: ")
		b.WriteString(expected)
		b.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.")
	}
	if len(context) > 0 {
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(strings.Join(context, contextDivider))
	}
	return b.String()
}

package crew

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTaskPrompt(t *testing.T) {
	task := TaskSpec{
		ID:             "valuation",
		Description:    "Value {{company_name}} as of {{current_year}}.",
		ExpectedOutput: "A valuation memo for {{company_name}}.",
	}
	inputs := RunInputs{CompanyName: "Acme Corp", CurrentYear: "2024"}

	t.Run("without context", func(t *testing.T) {
		prompt := BuildTaskPrompt(task, inputs, nil)
		assert.True(t, strings.HasPrefix(prompt, "Value Acme Corp as of 2024."))
		assert.Contains(t, prompt, "This is the expected criteria for your final answer: A valuation memo for Acme Corp.")
		assert.NotContains(t, prompt, "context you're working with")
		assert.NotContains(t, prompt, "{{")
	})

	t.Run("context in order", func(t *testing.T) {
		prompt := BuildTaskPrompt(task, inputs, []string{"research notes", "financial notes"})
		idx := strings.Index(prompt, "This is the context you're working with:\n")
		assert.Greater(t, idx, 0)
		assert.True(t, strings.HasSuffix(prompt, "research notes"+contextDivider+"financial notes"))
	})

	t.Run("context kept verbatim", func(t *testing.T) {
		raw := "Revenue {{company_name}} grew 12%\n\n| a | b |"
		prompt := BuildTaskPrompt(task, inputs, []string{raw})
		assert.True(t, strings.HasSuffix(prompt, raw))
	})

	t.Run("no expected output", func(t *testing.T) {
		prompt := BuildTaskPrompt(TaskSpec{Description: "Summarise."}, inputs, nil)
		assert.Equal(t, "Summarise.", prompt)
	})
}

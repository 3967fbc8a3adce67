package gemini

import (
	"context"
	"testing"

	"fundamental/analyst-app/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToContents(t *testing.T) {
	history := []core.ChatContent{
		core.NewContent("user", "<task>profile Acme</task>"),
		core.NewContent("assistant", "thinking"),
		core.NewContent("system", "ignored"),
	}

	contents := toContents(history, core.LLMInput{Text: "<tool_result>[]</tool_result>"})
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "user", contents[2].Role)
	assert.Equal(t, "<tool_result>[]</tool_result>", contents[2].Parts[0].Text)

	assert.Len(t, toContents(history, core.LLMInput{}), 2)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "gemini-2.0-flash")
	assert.Error(t, err)
}

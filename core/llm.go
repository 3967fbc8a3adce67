package core

import "context"

type LLMInput struct {
	Text   string
	Labels map[string]string
}

type LLMOutput struct {
	Text  string
	Stats Stats
}

type Stats struct {
	InputTokenCount  int32 `json:"input_token_count,omitempty"`
	OutputTokenCount int32 `json:"output_token_count,omitempty"`
	TotalTokenCount  int32 `json:"total_token_count,omitempty"`
}

// Add accumulates usage from another model call.
func (s *Stats) Add(other Stats) {
	s.InputTokenCount += other.InputTokenCount
	s.OutputTokenCount += other.OutputTokenCount
	s.TotalTokenCount += other.TotalTokenCount
}

type ChatContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewContent(role string, content string) ChatContent {
	return ChatContent{
		Role:    role,
		Content: content,
	}
}

// LLM generates one model turn. history holds prior turns of the same task,
// input.Text (when non-empty) is appended as the newest user turn.
type LLM interface {
	Generate(ctx context.Context, systemContext string, history []ChatContent, input LLMInput) (LLMOutput, error)
}

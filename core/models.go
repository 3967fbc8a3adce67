package core

// ToolResult is the output of one tool call, fed back to the model inside
// <tool_result> tags.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	Output   string `json:"output"`
}

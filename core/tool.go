package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
)

var systemToolPrompt = `
You have access to the following tools to gather information for your task. Each tool has specific capabilities and parameters that you must understand to use them correctly.
<tools>
{{tools}}
</tools>
Tools Usage Instructions
When using tools, follow these guidelines:

1.Tool Selection: Choose the most appropriate tool for the information you are missing.
2.Parameter Formatting: When calling a tool, ensure all required parameters are provided in the correct JSON format.
3.Tool Invocation Format: Use the following format to invoke a tool:

<tools>
<tool_call>
  <tool_name>name_of_the_tool</tool_name>
  <parameters>
    {"param1": "value1", "param2": "value2"}
  </parameters>
</tool_call>
</tools>
4.Response Handling: Tool output is returned to you inside <tool_result> tags. Incorporate the results into your analysis and cite sources where possible.
5.Error Handling: If a tool call fails, try a different query or tool, or continue with the information you already have.
6.Multiple Tool Calls: You can make multiple tool calls in one turn or across turns. Do not put a <response> tag in a turn that contains tool calls.
`

type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents a parsed tool call from the content
type ToolCall struct {
	ToolName   string
	Parameters map[string]interface{}
}

func GetToolPrompt(tools []ToolDescriptor) (string, error) {
	var toolsStr = []byte("[]")
	if len(tools) > 0 {
		var err error
		toolsStr, err = json.Marshal(tools)
		if err != nil {
			return "", fmt.Errorf("marshal tool descriptors: %w", err)
		}
	}
	return ReplaceLabels(systemToolPrompt, map[string]string{"tools": string(toolsStr)}), nil
}

// ReplaceLabels substitutes every {{key}} placeholder in template.
// Placeholders without a replacement are left as is.
func ReplaceLabels(template string, replacements map[string]string) string {
	for key, value := range replacements {
		placeholder := "{{" + key + "}}"
		template = strings.ReplaceAll(template, placeholder, value)
	}
	return template
}

var toolPattern = `(?s)<tool_call>\s*<tool_name>(.*?)</tool_name>\s*<parameters>\s*(.*?)\s*</parameters>\s*</tool_call>`
var toolRegEx = regexp.MustCompile(toolPattern)

// ExtractToolCalls extracts tool calls from the given content
func ExtractToolCalls(content string) ([]ToolCall, error) {
	var toolCalls []ToolCall

	matches := toolRegEx.FindAllStringSubmatch(content, -1)
	for _, match := range matches {
		if len(match) != 3 {
			continue
		}

		toolName := strings.TrimSpace(match[1])
		paramsJSON := strings.TrimSpace(match[2])

		params := map[string]interface{}{}
		if paramsJSON != "" {
			if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
				return nil, fmt.Errorf("failed to parse parameters for tool %s: %w", toolName, err)
			}
		}

		toolCalls = append(toolCalls, ToolCall{
			ToolName:   toolName,
			Parameters: params,
		})
	}

	return toolCalls, nil
}

// extractTagContent returns the inner text of every <tag>...</tag> pair in
// text, joined by newlines. ok is false when no complete pair exists.
func extractTagContent(text, tag string) (string, bool) {
	var results []string
	openTag := fmt.Sprintf("<%s>", tag)
	closeTag := fmt.Sprintf("</%s>", tag)

	for {
		start := strings.Index(text, openTag)
		if start == -1 {
			break
		}
		end := strings.Index(text[start:], closeTag)
		if end == -1 {
			break
		}
		results = append(results, text[start+len(openTag):start+end])
		text = text[start+end+len(closeTag):]
	}

	if len(results) == 0 {
		return "", false
	}
	return strings.TrimSpace(strings.Join(results, "\n")), true
}

// GetSchema returns the JSON schema of the struct obj points to.
func GetSchema(obj interface{}) (*jsonschema.Schema, error) {
	if reflect.ValueOf(obj).Kind() != reflect.Ptr {
		return nil, errors.New("object must be a pointer")
	}

	pointsToValue := reflect.Indirect(reflect.ValueOf(obj))
	if pointsToValue.Kind() == reflect.Slice {
		return nil, errors.New("slice not supported as an input")
	}

	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	return reflector.Reflect(obj), nil
}

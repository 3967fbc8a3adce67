package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const DefaultMaxIterations = 15

var ErrMaxIterations = errors.New("agent exceeded maximum iterations without a final answer")

var systemAgentContext = `
You are {{agent_role}}.
{{agent_backstory}}

Your personal goal is: {{agent_goal}}

You will receive one task at a time:
<task>
{{TASK}}
</task>

Follow these steps to complete the task:

1. Read and understand the task provided in the <task> tags, including any context from your colleagues.

2. Gather whatever information you are missing, think step by step and put your thinking between the <thinking></thinking> tag.

3. When you have everything you need, write your complete final answer as Markdown.

4. Format your final answer as follows:
   <response>
   [Your complete final answer goes here]
   </response>

Remember to always wrap the final answer in the <response> tag. Only the content of the <response> tag is delivered.
`

const responseCorrection = "it look like response tag not properly completed. return your complete final answer inside <response></response> tags."

func NewAgent(name string, role string, goal string, backstory string, llm LLM, registry *ToolRegistry, tools []string) (*Agent, error) {
	agent := &Agent{
		Name:          name,
		Role:          role,
		Goal:          goal,
		Backstory:     backstory,
		LLM:           llm,
		MaxIterations: DefaultMaxIterations,
		toolRepo:      NewToolRepo(registry),
	}
	for _, tool := range tools {
		if err := agent.RegisterTool(tool); err != nil {
			return nil, err
		}
	}
	return agent, nil
}

func NewTaskHistory() *TaskHistory {
	return &TaskHistory{}
}

// TaskHistory is the conversation transcript of one task execution.
type TaskHistory struct {
	Contents   []ChatContent `json:"contents"`
	Stats      Stats         `json:"stats"`
	ToolCalls  int           `json:"toolCalls"`
	Iterations int           `json:"iterations"`
}

type Agent struct {
	Name          string
	Role          string
	Goal          string
	Backstory     string
	LLM           LLM
	MaxIterations int
	toolRepo      *ToolRepo
}

func (agent *Agent) GetName() string {
	return agent.Name
}

func (agent *Agent) RegisterTool(name string) error {
	return agent.toolRepo.RegisterTool(name)
}

func (agent *Agent) Tools() []ToolDescriptor {
	return agent.toolRepo.ListToolDescriptors()
}

// Run executes one task. input.Labels are applied to the agent's role, goal
// and backstory; input.Text is sent as the task body unchanged.
func (agent *Agent) Run(ctx context.Context, taskHistory *TaskHistory, input LLMInput) (LLMOutput, error) {
	systemContext, err := agent.systemContext(input.Labels)
	if err != nil {
		return LLMOutput{}, err
	}

	input.Text = fmt.Sprintf("<task>%s</task>", input.Text)
	out, err := agent.run(ctx, systemContext, taskHistory, input)
	if err != nil {
		return LLMOutput{}, err
	}
	out.Stats = taskHistory.Stats
	return out, nil
}

func (agent *Agent) systemContext(labels map[string]string) (string, error) {
	agentContext := ReplaceLabels(systemAgentContext, map[string]string{
		"agent_role":      ReplaceLabels(agent.Role, labels),
		"agent_goal":      ReplaceLabels(agent.Goal, labels),
		"agent_backstory": ReplaceLabels(agent.Backstory, labels),
	})
	tools := agent.toolRepo.ListToolDescriptors()
	if len(tools) == 0 {
		return agentContext, nil
	}
	toolsContext, err := GetToolPrompt(tools)
	if err != nil {
		return "", err
	}
	return agentContext + "\n" + toolsContext, nil
}

func (agent *Agent) run(ctx context.Context, systemContext string, taskHistory *TaskHistory, input LLMInput) (LLMOutput, error) {
	if err := ctx.Err(); err != nil {
		return LLMOutput{}, err
	}
	maxIterations := agent.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if taskHistory.Iterations >= maxIterations {
		return LLMOutput{}, fmt.Errorf("%s: %w", agent.Name, ErrMaxIterations)
	}
	taskHistory.Iterations++

	output, err := agent.LLM.Generate(ctx, systemContext, taskHistory.Contents, input)
	if err != nil {
		return LLMOutput{}, err
	}
	taskHistory.Stats.Add(output.Stats)
	if input.Text != "" {
		taskHistory.Contents = append(taskHistory.Contents, NewContent("user", input.Text))
	}
	taskHistory.Contents = append(taskHistory.Contents, NewContent("assistant", output.Text))

	toolCalls, err := ExtractToolCalls(output.Text)
	if err != nil {
		return agent.run(ctx, systemContext, taskHistory, LLMInput{Text: "<tool_result>" + err.Error() + "</tool_result>"})
	}
	if len(toolCalls) > 0 {
		var results []ToolResult
		for _, toolCall := range toolCalls {
			Logger().Debug("tool call", slog.String("agent", agent.Name), slog.String("tool", toolCall.ToolName))
			out, err := agent.executeTool(ctx, toolCall.ToolName, toolCall.Parameters)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return LLMOutput{}, ctxErr
				}
				out = err.Error()
			}
			results = append(results, ToolResult{ToolName: toolCall.ToolName, Output: out})
		}
		taskHistory.ToolCalls += len(results)

		resultsStr, err := json.Marshal(results)
		if err != nil {
			return LLMOutput{}, err
		}
		return agent.run(ctx, systemContext, taskHistory, LLMInput{Text: "<tool_result>" + string(resultsStr) + "</tool_result>"})
	}

	response, ok := extractTagContent(strings.TrimSpace(output.Text), "response")
	if !ok || response == "" {
		Logger().Warn("response tag missing", slog.String("agent", agent.Name))
		return agent.run(ctx, systemContext, taskHistory, LLMInput{Text: responseCorrection})
	}

	output.Text = response
	return output, nil
}

func (agent *Agent) executeTool(ctx context.Context, name string, input map[string]any) (string, error) {
	executor := agent.toolRepo.GetTool(name)
	if executor == nil {
		return "", fmt.Errorf("tool %s not found", name)
	}
	b, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return executor.Execute(ctx, string(b))
}

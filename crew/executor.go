package crew

import (
	"context"
	"log/slog"

	"fundamental/analyst-app/core"
)

// ExecutionRequest is everything the execution capability needs for one task.
type ExecutionRequest struct {
	RunID   string
	Agent   AgentSpec
	Task    TaskSpec
	Prompt  string
	Inputs  RunInputs
	Context []string
}

// Executor performs one task with one agent and returns the task's text.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (string, error)
}

type ExecutorFunc func(ctx context.Context, req ExecutionRequest) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, req ExecutionRequest) (string, error) {
	return f(ctx, req)
}

var capabilityTools = map[Capability][]string{
	CapabilitySearch: {core.ToolWebSearch, core.ToolReadWebPage, core.ToolGetCurrentTime},
}

// LLMExecutor runs tasks through a tool-using core.Agent built from the
// task's AgentSpec.
type LLMExecutor struct {
	llm           core.LLM
	registry      *core.ToolRegistry
	maxIterations int
}

func NewLLMExecutor(llm core.LLM, registry *core.ToolRegistry, maxIterations int) *LLMExecutor {
	return &LLMExecutor{
		llm:           llm,
		registry:      registry,
		maxIterations: maxIterations,
	}
}

func (e *LLMExecutor) Execute(ctx context.Context, req ExecutionRequest) (string, error) {
	agent, err := e.newAgent(req.Agent)
	if err != nil {
		return "", err
	}

	history := core.NewTaskHistory()
	out, err := agent.Run(ctx, history, core.LLMInput{
		Text:   req.Prompt,
		Labels: req.Inputs.Labels(),
	})
	if err != nil {
		return "", err
	}

	core.Logger().Info("task usage",
		slog.String("run_id", req.RunID),
		slog.String("task_id", req.Task.ID),
		slog.String("agent", req.Agent.ID),
		slog.Int("iterations", history.Iterations),
		slog.Int("tool_calls", history.ToolCalls),
		slog.Int("input_tokens", int(out.Stats.InputTokenCount)),
		slog.Int("output_tokens", int(out.Stats.OutputTokenCount)),
		slog.Int("total_tokens", int(out.Stats.TotalTokenCount)),
	)
	return out.Text, nil
}

func (e *LLMExecutor) newAgent(spec AgentSpec) (*core.Agent, error) {
	var tools []string
	for _, c := range spec.Capabilities {
		tools = append(tools, capabilityTools[c]...)
	}
	agent, err := core.NewAgent(spec.ID, spec.Role, spec.Goal, spec.Backstory, e.llm, e.registry, tools)
	if err != nil {
		return nil, err
	}
	if e.maxIterations > 0 {
		agent.MaxIterations = e.maxIterations
	}
	return agent, nil
}

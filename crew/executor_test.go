package crew

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fundamental/analyst-app/core"
	"fundamental/analyst-app/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	mu        sync.Mutex
	replies   []string
	systems   []string
	inputs    []string
	callCount int
}

func (s *scriptedLLM) Generate(ctx context.Context, systemContext string, history []core.ChatContent, input core.LLMInput) (core.LLMOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems = append(s.systems, systemContext)
	s.inputs = append(s.inputs, input.Text)
	if s.callCount >= len(s.replies) {
		return core.LLMOutput{}, errors.New("no scripted reply left")
	}
	reply := s.replies[s.callCount]
	s.callCount++
	return core.LLMOutput{Text: reply, Stats: core.Stats{InputTokenCount: 10, OutputTokenCount: 5, TotalTokenCount: 15}}, nil
}

type fakeSearcher struct {
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]tools.SearchResult, error) {
	f.queries = append(f.queries, query)
	return []tools.SearchResult{{Title: "Acme 10-K", Link: "https://example.com/10k", Snippet: "Revenue rose 12%"}}, nil
}

func newTestRegistry(t *testing.T, searcher tools.Searcher) *core.ToolRegistry {
	t.Helper()
	registry := core.NewToolRegistry()
	require.NoError(t, core.RegisterInbuiltTools(registry, tools.NewWebSearch(searcher, 0), tools.NewPageReader(time.Second)))
	return registry
}

func TestLLMExecutor_SearchAgentUsesTools(t *testing.T) {
	defs := mustDefaults(t)
	agent, _ := defs.Agent("company_researcher")
	task := defs.Tasks[0]

	searcher := &fakeSearcher{}
	llm := &scriptedLLM{replies: []string{
		`<thinking>need filings</thinking>
<tools>
<tool_call>
  <tool_name>web_search</tool_name>
  <parameters>
    {"query": "Acme Corp annual report 2024"}
  </parameters>
</tool_call>
</tools>`,
		"<response>\n# Acme Corp profile\nRevenue rose 12%.\n</response>",
	}}
	executor := NewLLMExecutor(llm, newTestRegistry(t, searcher), 5)

	out, err := executor.Execute(context.Background(), ExecutionRequest{
		RunID:  "run-1",
		Agent:  agent,
		Task:   task,
		Prompt: BuildTaskPrompt(task, acme, nil),
		Inputs: acme,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Acme Corp profile\nRevenue rose 12%.", out)

	assert.Equal(t, []string{"Acme Corp annual report 2024"}, searcher.queries)
	require.Len(t, llm.inputs, 2)
	assert.Contains(t, llm.inputs[0], "<task>")
	assert.Contains(t, llm.inputs[1], "<tool_result>")
	assert.Contains(t, llm.inputs[1], "Acme 10-K")

	assert.Contains(t, llm.systems[0], core.ToolWebSearch)
	assert.Contains(t, llm.systems[0], core.ToolReadWebPage)
	assert.Contains(t, llm.systems[0], "Acme Corp Company Researcher")
	assert.NotContains(t, llm.systems[0], "{{company_name}}")
}

func TestLLMExecutor_AgentWithoutSearchHasNoTools(t *testing.T) {
	defs := mustDefaults(t)
	agent, _ := defs.Agent("reporting_analyst")

	llm := &scriptedLLM{replies: []string{"<response>final report</response>"}}
	executor := NewLLMExecutor(llm, newTestRegistry(t, &fakeSearcher{}), 0)

	out, err := executor.Execute(context.Background(), ExecutionRequest{
		RunID:  "run-1",
		Agent:  agent,
		Task:   defs.FinalTask(),
		Prompt: "write it",
		Inputs: acme,
	})
	require.NoError(t, err)
	assert.Equal(t, "final report", out)
	assert.NotContains(t, llm.systems[0], core.ToolWebSearch)
}

func TestLLMExecutor_MaxIterations(t *testing.T) {
	defs := mustDefaults(t)
	agent, _ := defs.Agent("reporting_analyst")

	llm := &scriptedLLM{replies: []string{"no tags", "still no tags", "nope"}}
	executor := NewLLMExecutor(llm, newTestRegistry(t, &fakeSearcher{}), 2)

	_, err := executor.Execute(context.Background(), ExecutionRequest{
		Agent:  agent,
		Task:   defs.FinalTask(),
		Prompt: "write it",
		Inputs: acme,
	})
	assert.ErrorIs(t, err, core.ErrMaxIterations)
	assert.Equal(t, 2, llm.callCount)
}

func TestLLMExecutor_UnknownToolRegistry(t *testing.T) {
	agent := AgentSpec{ID: "a", Role: "r", Goal: "g", Capabilities: []Capability{CapabilitySearch}}
	executor := NewLLMExecutor(&scriptedLLM{}, core.NewToolRegistry(), 0)

	_, err := executor.Execute(context.Background(), ExecutionRequest{Agent: agent, Task: TaskSpec{ID: "t"}, Inputs: acme})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool web_search not found")
}

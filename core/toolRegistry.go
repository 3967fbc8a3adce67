package core

import (
	"fmt"
	"sort"
	"sync"

	"fundamental/analyst-app/tools"
)

const (
	ToolWebSearch      = "web_search"
	ToolReadWebPage    = "read_web_page"
	ToolGetCurrentTime = "get_current_time"
)

type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]ToolExecutor
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolExecutor)}
}

// RegisterInbuiltTools installs the research tools every search-capable agent
// can use.
func RegisterInbuiltTools(tr *ToolRegistry, webSearch *tools.WebSearch, reader *tools.PageReader) error {
	inbuilt := []struct {
		name        string
		description string
		handler     any
	}{
		{ToolWebSearch, "search the web for recent information about a company, its filings, news and market data", webSearch.Run},
		{ToolReadWebPage, "read the title and visible text of a web page found through web_search", reader.Read},
		{ToolGetCurrentTime, "get current date and time", tools.GetCurrentTime},
	}
	for _, t := range inbuilt {
		executor, err := NewInbuiltToolExecutor(t.name, t.description, t.handler)
		if err != nil {
			return fmt.Errorf("register tool %s: %w", t.name, err)
		}
		tr.RegisterTool(executor)
	}
	return nil
}

func (tr *ToolRegistry) RegisterTool(executor ToolExecutor) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tools[executor.GetName()] = executor
}

func (tr *ToolRegistry) GetTool(name string) ToolExecutor {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.tools[name]
}

func (tr *ToolRegistry) Names() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	names := make([]string, 0, len(tr.tools))
	for name := range tr.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

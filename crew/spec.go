// Package crew holds the fundamental-analysis pipeline: the agent roster, the
// task definitions and their dependency graph, the context resolver and the
// runner that executes a run end to end.
package crew

// Capability is an optional ability granted to an agent.
type Capability string

const (
	CapabilitySearch Capability = "search"
)

// AgentSpec describes one agent role. Role, Goal and Backstory may contain
// {{company_name}} and {{current_year}} labels.
type AgentSpec struct {
	ID           string       `yaml:"id" validate:"required"`
	Role         string       `yaml:"role" validate:"required"`
	Goal         string       `yaml:"goal" validate:"required"`
	Backstory    string       `yaml:"backstory"`
	Capabilities []Capability `yaml:"capabilities" validate:"dive,oneof=search"`
}

func (a AgentSpec) Has(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// TaskSpec describes one task. DependsOn lists the ids of earlier tasks whose
// outputs are passed to this task, in that order.
type TaskSpec struct {
	ID             string   `yaml:"id" validate:"required"`
	AgentID        string   `yaml:"agent" validate:"required"`
	Description    string   `yaml:"description" validate:"required"`
	ExpectedOutput string   `yaml:"expected_output"`
	DependsOn      []string `yaml:"depends_on" validate:"dive,required"`
	OutputArtifact string   `yaml:"output_file" validate:"required"`
}

// TaskResult is the output of one completed task within a run.
type TaskResult struct {
	TaskID       string `json:"task_id"`
	Text         string `json:"text"`
	ArtifactPath string `json:"artifact_path"`
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	RunID             string                `json:"run_id"`
	FinalTaskID       string                `json:"final_task_id"`
	FinalReportText   string                `json:"final_report_text"`
	FinalArtifact     string                `json:"final_artifact"`
	FinalArtifactPath string                `json:"final_artifact_path"`
	PerTaskResults    map[string]TaskResult `json:"per_task_results"`
}

package crew

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	AgentsFile = "agents.yaml"
	TasksFile  = "tasks.yaml"
)

//go:embed config/agents.yaml config/tasks.yaml
var defaultConfig embed.FS

// Definitions is an immutable agent roster plus an ordered task list.
type Definitions struct {
	Agents []AgentSpec `yaml:"agents" validate:"required,min=1,dive"`
	Tasks  []TaskSpec  `yaml:"tasks" validate:"required,min=1,dive"`

	agents map[string]AgentSpec
}

type agentsFile struct {
	Agents []AgentSpec `yaml:"agents"`
}

type tasksFile struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// DefaultDefinitions returns the built-in six-agent, six-task pipeline.
func DefaultDefinitions() (*Definitions, error) {
	sub, err := fs.Sub(defaultConfig, "config")
	if err != nil {
		return nil, err
	}
	return LoadDefinitions(sub)
}

// LoadDefinitionsDir loads agents.yaml and tasks.yaml from dir.
func LoadDefinitionsDir(dir string) (*Definitions, error) {
	return LoadDefinitions(os.DirFS(dir))
}

func LoadDefinitions(fsys fs.FS) (*Definitions, error) {
	agentsData, err := fs.ReadFile(fsys, AgentsFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", AgentsFile, err)
	}
	tasksData, err := fs.ReadFile(fsys, TasksFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TasksFile, err)
	}
	return ParseDefinitions(agentsData, tasksData)
}

// ParseDefinitions decodes and validates YAML agent and task definitions.
func ParseDefinitions(agentsData []byte, tasksData []byte) (*Definitions, error) {
	var af agentsFile
	if err := yaml.Unmarshal(agentsData, &af); err != nil {
		return nil, fmt.Errorf("parse %s: %w", AgentsFile, err)
	}
	var tf tasksFile
	if err := yaml.Unmarshal(tasksData, &tf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", TasksFile, err)
	}
	return NewDefinitions(af.Agents, tf.Tasks)
}

// NewDefinitions validates agents and tasks and indexes agents by id.
func NewDefinitions(agents []AgentSpec, tasks []TaskSpec) (*Definitions, error) {
	d := &Definitions{Agents: agents, Tasks: tasks}
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &DefinitionError{Reason: fmt.Sprintf("%s %s", verrs[0].Namespace(), describe(verrs[0]))}
		}
		return nil, &DefinitionError{Reason: err.Error()}
	}

	d.agents = make(map[string]AgentSpec, len(agents))
	for _, a := range agents {
		if _, dup := d.agents[a.ID]; dup {
			return nil, &DefinitionError{Reason: fmt.Sprintf("duplicate agent id %q", a.ID)}
		}
		d.agents[a.ID] = a
	}
	if err := ValidateTaskOrder(tasks, d.agents); err != nil {
		return nil, err
	}
	return d, nil
}

// AgentMap returns a copy of the roster keyed by agent id.
func (d *Definitions) AgentMap() map[string]AgentSpec {
	m := make(map[string]AgentSpec, len(d.agents))
	for id, a := range d.agents {
		m[id] = a
	}
	return m
}

func (d *Definitions) Agent(id string) (AgentSpec, bool) {
	a, ok := d.agents[id]
	return a, ok
}

// FinalTask is the last task in sequence; its artifact is the report.
func (d *Definitions) FinalTask() TaskSpec {
	return d.Tasks[len(d.Tasks)-1]
}

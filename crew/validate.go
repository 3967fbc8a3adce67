package crew

import (
	"fmt"
	"path/filepath"
)

// ValidateTaskOrder checks that tasks form a valid, already topologically
// ordered pipeline over agents: ids are unique, every agent exists, every
// dependency names an earlier task exactly once, and artifact names are
// unique plain file names. It has no side effects.
func ValidateTaskOrder(tasks []TaskSpec, agents map[string]AgentSpec) error {
	if len(tasks) == 0 {
		return &DefinitionError{Reason: "no tasks defined"}
	}

	seen := make(map[string]bool, len(tasks))
	artifacts := make(map[string]string, len(tasks))
	for _, task := range tasks {
		if task.ID == "" {
			return &DefinitionError{Reason: "task without id"}
		}
		if seen[task.ID] {
			return &DefinitionError{TaskID: task.ID, Reason: "duplicate task id"}
		}
		if _, ok := agents[task.AgentID]; !ok {
			return &DefinitionError{TaskID: task.ID, Reason: fmt.Sprintf("unknown agent %q", task.AgentID)}
		}

		deps := make(map[string]bool, len(task.DependsOn))
		for _, dep := range task.DependsOn {
			switch {
			case dep == task.ID:
				return &DefinitionError{TaskID: task.ID, Reason: "depends on itself"}
			case deps[dep]:
				return &DefinitionError{TaskID: task.ID, Reason: fmt.Sprintf("dependency %q listed twice", dep)}
			case !seen[dep]:
				return &DefinitionError{TaskID: task.ID, Reason: fmt.Sprintf("dependency %q is not defined before it", dep)}
			}
			deps[dep] = true
		}

		name := task.OutputArtifact
		if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
			return &DefinitionError{TaskID: task.ID, Reason: fmt.Sprintf("output file %q must be a plain file name", name)}
		}
		if name == ManifestArtifact {
			return &DefinitionError{TaskID: task.ID, Reason: fmt.Sprintf("output file %q is reserved", name)}
		}
		if other, ok := artifacts[name]; ok {
			return &DefinitionError{TaskID: task.ID, Reason: fmt.Sprintf("output file %q already used by task %s", name, other)}
		}
		artifacts[name] = task.ID
		seen[task.ID] = true
	}
	return nil
}

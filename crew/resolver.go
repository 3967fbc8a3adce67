package crew

// ResolveContext returns the output texts of task's dependencies in the order
// they are declared. Every dependency must already have a result.
func ResolveContext(task TaskSpec, results map[string]TaskResult) ([]string, error) {
	if len(task.DependsOn) == 0 {
		return nil, nil
	}
	texts := make([]string, 0, len(task.DependsOn))
	for _, dep := range task.DependsOn {
		result, ok := results[dep]
		if !ok {
			return nil, &MissingDependencyError{TaskID: task.ID, DependencyID: dep}
		}
		texts = append(texts, result.Text)
	}
	return texts, nil
}

package crew

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTaskOrder_DefaultsAreDeterministic(t *testing.T) {
	defs := mustDefaults(t)
	agents := defs.AgentMap()

	require.NoError(t, ValidateTaskOrder(defs.Tasks, agents))
	require.NoError(t, ValidateTaskOrder(defs.Tasks, agents))
	assert.Equal(t, mustDefaults(t).Tasks, defs.Tasks, "validation must not modify tasks")
}

func TestValidateTaskOrder_Invalid(t *testing.T) {
	agents := map[string]AgentSpec{"a": {ID: "a"}}
	task := func(id string, deps ...string) TaskSpec {
		return TaskSpec{ID: id, AgentID: "a", Description: "d", DependsOn: deps, OutputArtifact: id + ".md"}
	}

	tests := []struct {
		name   string
		tasks  []TaskSpec
		taskID string
		reason string
	}{
		{
			name:   "empty",
			tasks:  nil,
			reason: "no tasks defined",
		},
		{
			name:   "duplicate id",
			tasks:  []TaskSpec{task("x"), task("x")},
			taskID: "x",
			reason: "duplicate task id",
		},
		{
			name:   "forward reference",
			tasks:  []TaskSpec{task("x", "y"), task("y")},
			taskID: "x",
			reason: `dependency "y" is not defined before it`,
		},
		{
			name:   "self reference",
			tasks:  []TaskSpec{task("x", "x")},
			taskID: "x",
			reason: "depends on itself",
		},
		{
			name:   "repeated dependency",
			tasks:  []TaskSpec{task("x"), task("y", "x", "x")},
			taskID: "y",
			reason: `dependency "x" listed twice`,
		},
		{
			name:   "unknown agent",
			tasks:  []TaskSpec{{ID: "x", AgentID: "nobody", Description: "d", OutputArtifact: "x.md"}},
			taskID: "x",
			reason: `unknown agent "nobody"`,
		},
		{
			name:   "artifact path",
			tasks:  []TaskSpec{{ID: "x", AgentID: "a", Description: "d", OutputArtifact: "../x.md"}},
			taskID: "x",
			reason: `output file "../x.md" must be a plain file name`,
		},
		{
			name:   "reserved artifact",
			tasks:  []TaskSpec{{ID: "x", AgentID: "a", Description: "d", OutputArtifact: ManifestArtifact}},
			taskID: "x",
			reason: `output file "run.yaml" is reserved`,
		},
		{
			name: "shared artifact",
			tasks: []TaskSpec{
				{ID: "x", AgentID: "a", Description: "d", OutputArtifact: "out.md"},
				{ID: "y", AgentID: "a", Description: "d", OutputArtifact: "out.md"},
			},
			taskID: "y",
			reason: `output file "out.md" already used by task x`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTaskOrder(tt.tasks, agents)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDefinitions))

			var derr *DefinitionError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tt.taskID, derr.TaskID)
			assert.Equal(t, tt.reason, derr.Reason)
		})
	}
}

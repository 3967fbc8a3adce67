package crew

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloadEvent struct {
	defs *Definitions
	err  error
}

func writeDefinitions(t *testing.T, dir string, agents string, tasks string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AgentsFile), []byte(agents), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TasksFile), []byte(tasks), 0o644))
}

func startWatcher(t *testing.T, dir string) (*DefinitionsWatcher, chan reloadEvent) {
	t.Helper()
	w, err := NewDefinitionsWatcher(dir)
	require.NoError(t, err)

	events := make(chan reloadEvent, 16)
	w.OnReload(func(defs *Definitions, err error) {
		events <- reloadEvent{defs: defs, err: err}
	})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
	})
	return w, events
}

func TestDefinitionsWatcher_Reloads(t *testing.T) {
	dir := t.TempDir()
	writeDefinitions(t, dir, validAgents, validTasks)

	w, _ := startWatcher(t, dir)
	require.Len(t, w.Definitions().Tasks, 2)

	threeTasks := validTasks + `
  - id: review
    agent: writer
    description: Review
    depends_on: [final]
    output_file: review.md
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, TasksFile), []byte(threeTasks), 0o644))

	require.Eventually(t, func() bool {
		return len(w.Definitions().Tasks) == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "review", w.Definitions().FinalTask().ID)
}

func TestDefinitionsWatcher_InvalidEditKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	writeDefinitions(t, dir, validAgents, validTasks)

	w, events := startWatcher(t, dir)
	before := w.Definitions()

	broken := `
tasks:
  - id: draft
    agent: writer
    description: Draft
    depends_on: [later]
    output_file: draft.md
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, TasksFile), []byte(broken), 0o644))

	select {
	case ev := <-events:
		require.Error(t, ev.err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload attempt observed")
	}
	assert.Same(t, before, w.Definitions())
}

func TestNewDefinitionsWatcher_InvalidInitial(t *testing.T) {
	dir := t.TempDir()
	writeDefinitions(t, dir, validAgents, "tasks: [")

	_, err := NewDefinitionsWatcher(dir)
	require.Error(t, err)
}

func TestStatic(t *testing.T) {
	defs := mustDefaults(t)
	assert.Same(t, defs, Static(defs).Definitions())
}

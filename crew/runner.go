package crew

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fundamental/analyst-app/core"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ArtifactStore persists task outputs under a run id.
type ArtifactStore interface {
	Write(runID, name, text string) (string, error)
	Read(runID, name string) (string, error)
}

// Runner executes a task list for one set of inputs. A Runner is safe for
// concurrent use; every Run owns its own results and run id.
type Runner struct {
	executor    Executor
	store       ArtifactStore
	concurrent  bool
	maxParallel int
	newRunID    func() string
	now         func() time.Time
}

type RunnerOption func(*Runner)

// WithConcurrency lets tasks whose dependencies are all recorded run in
// parallel instead of strictly in sequence order.
func WithConcurrency(enabled bool) RunnerOption {
	return func(r *Runner) { r.concurrent = enabled }
}

// WithMaxParallel bounds concurrent task execution. Zero sizes the pool to the
// number of tasks without dependencies.
func WithMaxParallel(n int) RunnerOption {
	return func(r *Runner) { r.maxParallel = n }
}

func WithRunIDGenerator(f func() string) RunnerOption {
	return func(r *Runner) { r.newRunID = f }
}

func WithClock(f func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = f }
}

func NewRunner(executor Executor, store ArtifactStore, opts ...RunnerOption) *Runner {
	r := &Runner{
		executor: executor,
		store:    store,
		newRunID: func() string { return uuid.NewString() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes defs for inputs.
func (r *Runner) Run(ctx context.Context, inputs RunInputs, defs *Definitions) (*RunResult, error) {
	return r.RunTasks(ctx, inputs, defs.Tasks, defs.AgentMap())
}

// RunTasks validates inputs and the task order, then executes every task,
// persisting each output as its artifact. The first failure aborts the run
// with a *PipelineError; on success the last task's text is the report.
func (r *Runner) RunTasks(ctx context.Context, inputs RunInputs, tasks []TaskSpec, agents map[string]AgentSpec) (*RunResult, error) {
	inputs = inputs.withDefaults(r.now())
	if err := inputs.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateTaskOrder(tasks, agents); err != nil {
		return nil, err
	}

	st := &runState{
		runID:   r.newRunID(),
		inputs:  inputs,
		agents:  agents,
		results: make(map[string]TaskResult, len(tasks)),
	}
	logger := core.Logger().With(slog.String("run_id", st.runID))
	logger.Info("run started",
		slog.String("company", inputs.CompanyName),
		slog.String("year", inputs.CurrentYear),
		slog.Int("tasks", len(tasks)),
		slog.Bool("concurrent", r.concurrent),
	)
	start := time.Now()

	var perr *PipelineError
	if r.concurrent {
		perr = r.runConcurrent(ctx, st, tasks)
	} else {
		perr = r.runSequential(ctx, st, tasks)
	}
	if perr != nil {
		logger.Error("run failed",
			slog.String("task_id", perr.FailedTaskID),
			slog.Int("completed", len(perr.Completed)),
			slog.String("error", perr.Cause.Error()),
		)
		return nil, perr
	}

	final := tasks[len(tasks)-1]
	results := st.snapshot()
	names := make([]string, 0, len(tasks))
	for _, task := range tasks {
		names = append(names, task.OutputArtifact)
	}
	err := writeManifest(r.store, Manifest{
		RunID:         st.runID,
		Company:       inputs.CompanyName,
		Year:          inputs.CurrentYear,
		FinalTask:     final.ID,
		FinalArtifact: final.OutputArtifact,
		Artifacts:     names,
		CompletedAt:   r.now(),
	})
	if err != nil {
		return nil, st.fail(final.ID, err)
	}
	logger.Info("run completed", slog.Duration("elapsed", time.Since(start)))
	return &RunResult{
		RunID:             st.runID,
		FinalTaskID:       final.ID,
		FinalReportText:   results[final.ID].Text,
		FinalArtifact:     final.OutputArtifact,
		FinalArtifactPath: results[final.ID].ArtifactPath,
		PerTaskResults:    results,
	}, nil
}

func (r *Runner) runSequential(ctx context.Context, st *runState, tasks []TaskSpec) *PipelineError {
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return st.fail(task.ID, err)
		}
		if err := r.executeTask(ctx, st, task); err != nil {
			return st.fail(task.ID, err)
		}
	}
	return nil
}

type taskDone struct {
	index int
	err   error
}

// runConcurrent starts each task once its unmet-dependency count reaches zero.
// The first failure cancels the tasks still in flight.
func (r *Runner) runConcurrent(ctx context.Context, st *runState, tasks []TaskSpec) *PipelineError {
	index := make(map[string]int, len(tasks))
	for i, task := range tasks {
		index[task.ID] = i
	}
	pending := make([]int, len(tasks))
	dependents := make([][]int, len(tasks))
	roots := 0
	for i, task := range tasks {
		pending[i] = len(task.DependsOn)
		for _, dep := range task.DependsOn {
			dependents[index[dep]] = append(dependents[index[dep]], i)
		}
		if pending[i] == 0 {
			roots++
		}
	}

	limit := r.maxParallel
	if limit <= 0 {
		limit = roots
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	done := make(chan taskDone, len(tasks))
	launch := func(i int) {
		task := tasks[i]
		g.Go(func() error {
			err := gctx.Err()
			if err == nil {
				err = r.executeTask(gctx, st, task)
			}
			done <- taskDone{index: i, err: err}
			return err
		})
	}

	for i := range tasks {
		if pending[i] == 0 {
			launch(i)
		}
	}

	var failed *taskDone
	for remaining := len(tasks); remaining > 0; remaining-- {
		d := <-done
		if d.err != nil {
			failed = &d
			break
		}
		for _, j := range dependents[d.index] {
			pending[j]--
			if pending[j] == 0 {
				launch(j)
			}
		}
	}
	_ = g.Wait()

	if failed != nil {
		return st.fail(tasks[failed.index].ID, failed.err)
	}
	return nil
}

func (r *Runner) executeTask(ctx context.Context, st *runState, task TaskSpec) error {
	contextTexts, err := st.resolve(task)
	if err != nil {
		return err
	}
	agent := st.agents[task.AgentID]

	logger := core.Logger().With(slog.String("run_id", st.runID), slog.String("task_id", task.ID))
	logger.Info("task started", slog.String("agent", agent.ID), slog.Int("context_items", len(contextTexts)))
	start := time.Now()

	text, err := r.executor.Execute(ctx, ExecutionRequest{
		RunID:   st.runID,
		Agent:   agent,
		Task:    task,
		Prompt:  BuildTaskPrompt(task, st.inputs, contextTexts),
		Inputs:  st.inputs,
		Context: contextTexts,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyOutput
	}
	if err != nil {
		return &TaskExecutionError{TaskID: task.ID, AgentID: agent.ID, Err: err}
	}

	path, err := r.store.Write(st.runID, task.OutputArtifact, text)
	if err != nil {
		return err
	}
	st.record(TaskResult{TaskID: task.ID, Text: text, ArtifactPath: path})
	logger.Info("task completed", slog.String("artifact", path), slog.Duration("elapsed", time.Since(start)))
	return nil
}

type runState struct {
	runID  string
	inputs RunInputs
	agents map[string]AgentSpec

	mu      sync.Mutex
	results map[string]TaskResult
}

func (st *runState) resolve(task TaskSpec) ([]string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return ResolveContext(task, st.results)
}

func (st *runState) record(result TaskResult) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.results[result.TaskID] = result
}

func (st *runState) snapshot() map[string]TaskResult {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[string]TaskResult, len(st.results))
	for id, res := range st.results {
		out[id] = res
	}
	return out
}

func (st *runState) fail(taskID string, cause error) *PipelineError {
	return &PipelineError{
		RunID:        st.runID,
		FailedTaskID: taskID,
		Cause:        cause,
		Completed:    st.snapshot(),
	}
}

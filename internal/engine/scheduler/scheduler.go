// Package scheduler runs a chain of tasks from the dependency graph.
package scheduler

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

// RunOptions configures a scheduler run.
type RunOptions struct {
	// Parallelism is the number of tasks allowed to run at once. Values below 1 mean 1.
	Parallelism int
	// NoCache runs every task even when its inputs and outputs are unchanged.
	NoCache bool
}

// Report summarizes a run.
type Report struct {
	Completed []string
	Skipped   []string
	Failed    []string
	Blocked   []string
	// Written lists the outputs whose content changed, in completion order.
	Written []string
	// Reload is the browser refresh the completed tasks call for.
	Reload domain.ReloadEvent
}

// Scheduler manages the execution of tasks in the dependency graph.
type Scheduler struct {
	runner ports.TaskRunner
	store  ports.BuildInfoStore
	hasher ports.Hasher
	tracer ports.Tracer
	logger ports.Logger
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	runner ports.TaskRunner,
	store ports.BuildInfoStore,
	hasher ports.Hasher,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		runner: runner,
		store:  store,
		hasher: hasher,
		tracer: tracer,
		logger: logger,
	}
}

// Run executes the targets and their prerequisites. Each task starts once all
// of its prerequisites succeeded. When a task fails its dependents are blocked
// while independent branches keep running. Task errors are joined, each tagged
// with the task name. Unknown targets and cycles fail before any task starts.
func (s *Scheduler) Run(
	ctx context.Context,
	graph *domain.Graph,
	targetNames []string,
	opts RunOptions,
) (*Report, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	chain, err := graph.Chain(targetNames...)
	if err != nil {
		return nil, err
	}

	plannedTasks := make([]string, len(chain))
	depMap := make(map[string][]string, len(chain))
	for i, task := range chain {
		plannedTasks[i] = task.Name.String()
		depMap[plannedTasks[i]] = domain.Names(task.Dependencies)
	}
	s.tracer.EmitPlan(ctx, plannedTasks, depMap, targetNames)

	state := s.newRunState(ctx, graph, chain, opts)
	err = state.runExecutionLoop()
	return state.report(), err
}

type result struct {
	task      domain.InternedString
	err       error
	skipped   bool
	inputHash string
	output    domain.TaskResult
}

type schedulerRunState struct {
	s           *Scheduler
	ctx         context.Context
	graph       *domain.Graph
	tasks       map[domain.InternedString]domain.Task
	order       map[domain.InternedString]int
	inDegree    map[domain.InternedString]int
	status      map[domain.InternedString]domain.TaskStatus
	ready       []domain.InternedString
	active      int
	parallelism int
	noCache     bool
	resultsCh   chan result
	errs        error

	completed []string
	skipped   []string
	failed    []string
	written   []string
	reload    domain.ReloadEvent
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	graph *domain.Graph,
	chain []domain.Task,
	opts RunOptions,
) *schedulerRunState {
	parallelism := max(opts.Parallelism, 1)
	state := &schedulerRunState{
		s:           s,
		ctx:         ctx,
		graph:       graph,
		tasks:       make(map[domain.InternedString]domain.Task, len(chain)),
		order:       make(map[domain.InternedString]int, len(chain)),
		inDegree:    make(map[domain.InternedString]int, len(chain)),
		status:      make(map[domain.InternedString]domain.TaskStatus, len(chain)),
		parallelism: parallelism,
		noCache:     opts.NoCache,
		resultsCh:   make(chan result, parallelism),
	}

	for i, task := range chain {
		state.tasks[task.Name] = task
		state.order[task.Name] = i
		state.status[task.Name] = domain.TaskStatusPending
	}

	// The chain is in execution order, so every prerequisite is already in tasks.
	for _, task := range chain {
		degree := 0
		for _, dep := range task.Dependencies {
			if _, ok := state.tasks[dep]; ok {
				degree++
			}
		}
		state.inDegree[task.Name] = degree
		if degree == 0 {
			state.ready = append(state.ready, task.Name)
		}
	}

	return state
}

func (state *schedulerRunState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			if state.active == 0 {
				return errors.Join(state.errs, state.ctx.Err())
			}
			// Running tasks finish their current stage before returning.
			state.handleResult(<-state.resultsCh)
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return state.errs
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		taskName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.status[taskName] = domain.TaskStatusRunning

		t := state.tasks[taskName]
		go state.executeTask(&t)
	}
}

// enqueue adds a task to the ready queue keeping the chain order.
func (state *schedulerRunState) enqueue(name domain.InternedString) {
	i, _ := slices.BinarySearchFunc(state.ready, name, func(a, b domain.InternedString) int {
		return state.order[a] - state.order[b]
	})
	state.ready = slices.Insert(state.ready, i, name)
}

func (state *schedulerRunState) executeTask(t *domain.Task) {
	// The span ends before the result is sent so the renderer sees the
	// completion before the scheduler moves on.
	res := func() result {
		ctx, span := state.s.tracer.Start(state.ctx, t.Name.String())
		defer span.End()

		if !t.HasWork() {
			return result{task: t.Name}
		}

		skipped, hash, err := state.checkCache(t)
		if err != nil {
			span.RecordError(err)
			return result{task: t.Name, err: err}
		}
		if skipped {
			span.SetAttribute("basis.cached", true)
			_, _ = span.Write([]byte("inputs and outputs unchanged, cached\n"))
			return result{task: t.Name, skipped: true}
		}

		out, err := state.s.runner.Run(ctx, t, state.graph.Root(), span)
		if err != nil {
			span.RecordError(err)
			return result{task: t.Name, err: err}
		}
		span.SetAttribute("basis.written", len(out.Written))

		return result{task: t.Name, inputHash: hash, output: out}
	}()

	state.resultsCh <- res
}

// checkCache hashes the inputs of a task with stages and reports whether the
// stored build info still matches. Tasks without stages are never cached.
func (state *schedulerRunState) checkCache(t *domain.Task) (skipped bool, hash string, err error) {
	if len(t.Stages) == 0 {
		return false, "", nil
	}

	root := state.graph.Root()
	inputs, err := state.s.runner.Inputs(t, root)
	if err != nil {
		return false, "", err
	}

	hash, err = state.s.hasher.ComputeInputHash(t, inputs, root)
	if err != nil {
		return false, "", domain.Caused(domain.ErrInputHashComputationFailed, err)
	}

	if state.noCache {
		return false, hash, nil
	}

	info, err := state.s.store.Get(root, t.Name.String())
	if err != nil {
		return false, hash, err
	}
	if info == nil || info.InputHash != hash {
		return false, hash, nil
	}

	// Outputs edited or deleted since the last run are a cache miss.
	outputHash, err := state.s.hasher.ComputeOutputHash(info.Outputs, root)
	if err != nil || outputHash != info.OutputHash {
		return false, hash, nil
	}

	return true, hash, nil
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	if res.err != nil {
		enhancedErr := zerr.With(domain.Caused(domain.ErrTaskExecutionFailed, res.err), "task", res.task.String())
		state.errs = errors.Join(state.errs, enhancedErr)
		state.status[res.task] = domain.TaskStatusFailed
		state.failed = append(state.failed, res.task.String())
		return
	}

	state.handleSuccess(res)
}

func (state *schedulerRunState) handleSuccess(res result) {
	task := state.tasks[res.task]

	if res.skipped {
		state.status[res.task] = domain.TaskStatusCached
		state.skipped = append(state.skipped, res.task.String())
	} else {
		state.status[res.task] = domain.TaskStatusCompleted
		state.completed = append(state.completed, res.task.String())
		state.written = append(state.written, res.output.Written...)
		state.reload = state.reload.Merge(reloadFor(&task, res.output.Written))
		if res.inputHash != "" {
			state.updateCache(&task, res)
		}
	}

	for _, dep := range state.graph.Dependents(res.task) {
		if _, ok := state.tasks[dep]; ok {
			state.inDegree[dep]--
			if state.inDegree[dep] == 0 {
				state.enqueue(dep)
			}
		}
	}
}

// reloadFor is the refresh a completed task calls for. A task that rewrote
// nothing leaves browsers alone; reload-only tasks always fire.
func reloadFor(task *domain.Task, written []string) domain.ReloadEvent {
	if task.HasWork() && len(written) == 0 {
		return domain.ReloadEvent{Mode: domain.ReloadNone}
	}
	mode := domain.ResolveReloadMode(task.Reload, written)
	if mode != domain.ReloadInject {
		return domain.ReloadEvent{Mode: mode}
	}
	return domain.ReloadEvent{Mode: mode, Paths: written}
}

// updateCache records the build info of a task. Failures only cost a rebuild
// next time, so they are logged and the run goes on.
func (state *schedulerRunState) updateCache(task *domain.Task, res result) {
	root := state.graph.Root()
	outputHash, err := state.s.hasher.ComputeOutputHash(res.output.Outputs, root)
	if err == nil {
		err = state.s.store.Put(root, domain.BuildInfo{
			TaskName:   task.Name.String(),
			InputHash:  res.inputHash,
			OutputHash: outputHash,
			Outputs:    res.output.Outputs,
			Timestamp:  time.Now(),
		})
	}
	if err != nil && state.s.logger != nil {
		state.s.logger.Warn("could not update the build cache of " + task.Name.String() + ": " + err.Error())
	}
}

func (state *schedulerRunState) report() *Report {
	report := &Report{
		Completed: state.completed,
		Skipped:   state.skipped,
		Failed:    state.failed,
		Written:   state.written,
		Reload:    state.reload,
	}
	for name, status := range state.status {
		if status == domain.TaskStatusPending {
			report.Blocked = append(report.Blocked, name.String())
		}
	}
	slices.SortFunc(report.Blocked, func(a, b string) int {
		return state.order[domain.NewInternedString(a)] - state.order[domain.NewInternedString(b)]
	})
	if report.Reload.Mode == domain.ReloadAuto {
		report.Reload.Mode = domain.ReloadNone
	}
	return report
}

// HasFailures reports whether any task of the run failed.
func (r *Report) HasFailures() bool {
	return len(r.Failed) > 0
}

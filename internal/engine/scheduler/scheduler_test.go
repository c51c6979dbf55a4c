package scheduler_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/core/ports/mocks"
	"go.trai.ch/basis/internal/engine/scheduler"
)

const root = "/tmp/theme"

type schedulerTestMocks struct {
	runner *mocks.MockTaskRunner
	store  *mocks.MockBuildInfoStore
	hasher *mocks.MockHasher
	tracer *mocks.MockTracer
	logger *mocks.MockLogger
	span   *mocks.MockSpan
}

func setupSchedulerTest(t *testing.T) (*scheduler.Scheduler, schedulerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := schedulerTestMocks{
		runner: mocks.NewMockTaskRunner(ctrl),
		store:  mocks.NewMockBuildInfoStore(ctrl),
		hasher: mocks.NewMockHasher(ctrl),
		tracer: mocks.NewMockTracer(ctrl),
		logger: mocks.NewMockLogger(ctrl),
		span:   mocks.NewMockSpan(ctrl),
	}

	// Default optimistic mocks to reduce noise in specific tests.
	m.span.EXPECT().End().AnyTimes()
	m.span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	m.span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	m.span.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) { return len(p), nil }).AnyTimes()

	m.tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, m.span
		},
	).AnyTimes()
	m.tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	s := scheduler.NewScheduler(m.runner, m.store, m.hasher, m.tracer, m.logger)
	return s, m
}

// createGraphHelper builds a graph of clean-only tasks from a dependency map.
// deps format: "target" -> ["dep1", "dep2"].
func createGraphHelper(t *testing.T, deps map[string][]string) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.SetRoot(root)

	add := func(name string, myDeps []string) {
		if _, ok := g.GetTask(domain.NewInternedString(name)); ok {
			return
		}
		dependencies := make([]domain.InternedString, len(myDeps))
		for i, d := range myDeps {
			dependencies[i] = domain.NewInternedString(d)
		}
		require.NoError(t, g.AddTask(&domain.Task{
			Name:         domain.NewInternedString(name),
			Dependencies: dependencies,
			Clean:        []string{name + ".css"},
		}))
	}
	for name, myDeps := range deps {
		add(name, myDeps)
	}
	for _, myDeps := range deps {
		for _, d := range myDeps {
			add(d, nil)
		}
	}

	require.NoError(t, g.Validate())
	return g
}

// taskMatcher implements gomock.Matcher for *domain.Task.
type taskMatcher struct {
	name string
}

func (m taskMatcher) Matches(x any) bool {
	task, ok := x.(*domain.Task)
	return ok && task.Name.String() == m.name
}

func (m taskMatcher) String() string {
	return "is task " + m.name
}

func matchTask(name string) gomock.Matcher {
	return taskMatcher{name: name}
}

func TestScheduler_DiamondDependency(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Graph: A -> B, A -> C, B -> D, C -> D
		g := createGraphHelper(t, map[string][]string{
			"A": {"B", "C"},
			"B": {"D"},
			"C": {"D"},
		})
		s, m := setupSchedulerTest(t)

		dCall := m.runner.EXPECT().Run(gomock.Any(), matchTask("D"), root, gomock.Any()).
			Return(domain.TaskResult{}, nil).Times(1)
		bCall := m.runner.EXPECT().Run(gomock.Any(), matchTask("B"), root, gomock.Any()).
			Return(domain.TaskResult{}, nil).Times(1).After(dCall)
		cCall := m.runner.EXPECT().Run(gomock.Any(), matchTask("C"), root, gomock.Any()).
			Return(domain.TaskResult{}, nil).Times(1).After(dCall)
		m.runner.EXPECT().Run(gomock.Any(), matchTask("A"), root, gomock.Any()).
			Return(domain.TaskResult{}, nil).Times(1).After(bCall).After(cCall)

		report, err := s.Run(t.Context(), g, []string{"A"}, scheduler.RunOptions{Parallelism: 2})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, report.Completed)
		assert.Equal(t, "D", report.Completed[0])
		assert.Equal(t, "A", report.Completed[3])
	})
}

func TestScheduler_SharedPrerequisiteRunsOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := createGraphHelper(t, map[string][]string{
			"styles":  {"clean"},
			"scripts": {"clean"},
		})
		s, m := setupSchedulerTest(t)

		var order []string
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), root, gomock.Any()).DoAndReturn(
			func(_ context.Context, task *domain.Task, _ string, _ io.Writer) (domain.TaskResult, error) {
				order = append(order, task.Name.String())
				return domain.TaskResult{}, nil
			}).Times(3)

		report, err := s.Run(t.Context(), g, []string{"styles", "scripts"}, scheduler.RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"clean", "scripts", "styles"}, order)
		assert.Equal(t, order, report.Completed)
	})
}

func TestScheduler_FailureBlocksDependents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// styles fails, so default never runs; scripts is independent.
		g := createGraphHelper(t, map[string][]string{
			"default": {"styles", "scripts"},
		})
		s, m := setupSchedulerTest(t)

		bad := domain.NewTransformError("sass", "style.scss", "expected ';'").At(3, 1)
		m.runner.EXPECT().Run(gomock.Any(), matchTask("styles"), root, gomock.Any()).
			Return(domain.TaskResult{}, bad)
		m.runner.EXPECT().Run(gomock.Any(), matchTask("scripts"), root, gomock.Any()).
			Return(domain.TaskResult{Outputs: []string{"js/project.js"}}, nil)
		m.runner.EXPECT().Run(gomock.Any(), matchTask("default"), gomock.Any(), gomock.Any()).Times(0)

		report, err := s.Run(t.Context(), g, []string{"default"}, scheduler.RunOptions{})
		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrTaskExecutionFailed)
		require.ErrorIs(t, err, domain.ErrTransformFailed)
		assert.Contains(t, err.Error(), "style.scss:3:1")

		assert.Equal(t, []string{"styles"}, report.Failed)
		assert.Equal(t, []string{"scripts"}, report.Completed)
		assert.Equal(t, []string{"default"}, report.Blocked)
		assert.True(t, report.HasFailures())
	})
}

func TestScheduler_UnknownTarget(t *testing.T) {
	g := createGraphHelper(t, map[string][]string{"default": {"styles"}})
	s, m := setupSchedulerTest(t)
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	report, err := s.Run(t.Context(), g, []string{"nope"}, scheduler.RunOptions{})
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Nil(t, report)
}

func TestScheduler_Cycle(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(&domain.Task{
		Name:         domain.NewInternedString("a"),
		Dependencies: []domain.InternedString{domain.NewInternedString("b")},
	}))
	require.NoError(t, g.AddTask(&domain.Task{
		Name:         domain.NewInternedString("b"),
		Dependencies: []domain.InternedString{domain.NewInternedString("a")},
	}))
	s, _ := setupSchedulerTest(t)

	_, err := s.Run(t.Context(), g, []string{"a"}, scheduler.RunOptions{})
	require.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestScheduler_AggregatesSkipRunner(t *testing.T) {
	g := domain.NewGraph()
	g.SetRoot(root)
	require.NoError(t, g.AddTask(&domain.Task{Name: domain.NewInternedString("default")}))
	s, m := setupSchedulerTest(t)
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	report, err := s.Run(t.Context(), g, []string{"default"}, scheduler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, report.Completed)
	assert.Equal(t, domain.ReloadNone, report.Reload.Mode)
}

func stylesGraph(t *testing.T) (*domain.Graph, *domain.Task) {
	t.Helper()
	g := domain.NewGraph()
	g.SetRoot(root)
	task := &domain.Task{
		Name:   domain.NewInternedString("postcss"),
		Source: domain.ParseFileSet("", []string{"src/sass/*.scss"}),
		Base:   "src/sass",
		Stages: []domain.StageSpec{{Kind: domain.StageSass}},
		Dest:   ".",
	}
	require.NoError(t, g.AddTask(task))
	return g, task
}

func TestScheduler_CacheHit(t *testing.T) {
	g, _ := stylesGraph(t)
	s, m := setupSchedulerTest(t)

	inputs := []string{"src/sass/style.scss"}
	m.runner.EXPECT().Inputs(matchTask("postcss"), root).Return(inputs, nil)
	m.hasher.EXPECT().ComputeInputHash(matchTask("postcss"), inputs, root).Return("in", nil)
	m.store.EXPECT().Get(root, "postcss").Return(&domain.BuildInfo{
		TaskName:   "postcss",
		InputHash:  "in",
		OutputHash: "out",
		Outputs:    []string{"style.css"},
	}, nil)
	m.hasher.EXPECT().ComputeOutputHash([]string{"style.css"}, root).Return("out", nil)
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	report, err := s.Run(t.Context(), g, []string{"postcss"}, scheduler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"postcss"}, report.Skipped)
	assert.Empty(t, report.Completed)
}

func TestScheduler_CacheMissOnChangedOutputs(t *testing.T) {
	g, _ := stylesGraph(t)
	s, m := setupSchedulerTest(t)

	m.runner.EXPECT().Inputs(gomock.Any(), root).Return(nil, nil)
	m.hasher.EXPECT().ComputeInputHash(gomock.Any(), gomock.Any(), root).Return("in", nil)
	m.store.EXPECT().Get(root, "postcss").Return(&domain.BuildInfo{
		InputHash:  "in",
		OutputHash: "out",
		Outputs:    []string{"style.css"},
	}, nil)
	gomock.InOrder(
		m.hasher.EXPECT().ComputeOutputHash([]string{"style.css"}, root).Return("", errors.New("missing")),
		m.hasher.EXPECT().ComputeOutputHash([]string{"style.css"}, root).Return("out2", nil),
	)
	m.runner.EXPECT().Run(gomock.Any(), matchTask("postcss"), root, gomock.Any()).
		Return(domain.TaskResult{Outputs: []string{"style.css"}, Written: []string{"style.css"}}, nil)
	m.store.EXPECT().Put(root, gomock.Any()).DoAndReturn(func(_ string, info domain.BuildInfo) error {
		assert.Equal(t, "postcss", info.TaskName)
		assert.Equal(t, "in", info.InputHash)
		assert.Equal(t, "out2", info.OutputHash)
		assert.Equal(t, []string{"style.css"}, info.Outputs)
		return nil
	})

	report, err := s.Run(t.Context(), g, []string{"postcss"}, scheduler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"postcss"}, report.Completed)
	assert.Equal(t, []string{"style.css"}, report.Written)
	assert.Equal(t, domain.ReloadEvent{Mode: domain.ReloadInject, Paths: []string{"style.css"}}, report.Reload)
}

func TestScheduler_NoCacheSkipsLookup(t *testing.T) {
	g, _ := stylesGraph(t)
	s, m := setupSchedulerTest(t)

	m.runner.EXPECT().Inputs(gomock.Any(), root).Return(nil, nil)
	m.hasher.EXPECT().ComputeInputHash(gomock.Any(), gomock.Any(), root).Return("in", nil)
	m.store.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), root, gomock.Any()).Return(domain.TaskResult{}, nil)
	m.hasher.EXPECT().ComputeOutputHash(gomock.Any(), root).Return("out", nil)
	m.store.EXPECT().Put(root, gomock.Any()).Return(errors.New("disk full"))
	m.logger.EXPECT().Warn(gomock.Any())

	report, err := s.Run(t.Context(), g, []string{"postcss"}, scheduler.RunOptions{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"postcss"}, report.Completed)
	assert.Equal(t, domain.ReloadNone, report.Reload.Mode)
}

func TestScheduler_StoreReadFailure(t *testing.T) {
	g, _ := stylesGraph(t)
	s, m := setupSchedulerTest(t)

	m.runner.EXPECT().Inputs(gomock.Any(), root).Return(nil, nil)
	m.hasher.EXPECT().ComputeInputHash(gomock.Any(), gomock.Any(), root).Return("in", nil)
	m.store.EXPECT().Get(root, "postcss").Return(nil, domain.ErrStoreReadFailed)

	report, err := s.Run(t.Context(), g, []string{"postcss"}, scheduler.RunOptions{})
	require.ErrorIs(t, err, domain.ErrStoreReadFailed)
	require.ErrorIs(t, err, domain.ErrTaskExecutionFailed)
	assert.Equal(t, []string{"postcss"}, report.Failed)
}

func TestScheduler_ReloadOnlyTask(t *testing.T) {
	g := domain.NewGraph()
	g.SetRoot(root)
	require.NoError(t, g.AddTask(&domain.Task{
		Name:   domain.NewInternedString("markup"),
		Reload: domain.ReloadFull,
	}))
	s, _ := setupSchedulerTest(t)

	report, err := s.Run(t.Context(), g, []string{"markup"}, scheduler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.ReloadFull, report.Reload.Mode)
}

func TestScheduler_ContextCanceled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := createGraphHelper(t, map[string][]string{"B": {"A"}})
		s, m := setupSchedulerTest(t)

		ctx, cancel := context.WithCancel(t.Context())
		m.runner.EXPECT().Run(gomock.Any(), matchTask("A"), root, gomock.Any()).DoAndReturn(
			func(context.Context, *domain.Task, string, io.Writer) (domain.TaskResult, error) {
				cancel()
				return domain.TaskResult{}, nil
			})
		m.runner.EXPECT().Run(gomock.Any(), matchTask("B"), gomock.Any(), gomock.Any()).Times(0)

		report, err := s.Run(ctx, g, []string{"B"}, scheduler.RunOptions{})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"A"}, report.Completed)
		assert.Equal(t, []string{"B"}, report.Blocked)
	})
}

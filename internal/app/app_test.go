package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"path/filepath"
	"strings"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/basis/internal/adapters/detector"
	"go.trai.ch/basis/internal/app"
	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/core/ports/mocks"
)

type appMocks struct {
	loader   *mocks.MockConfigLoader
	runner   *mocks.MockTaskRunner
	fs       *mocks.MockFileSystem
	store    *mocks.MockBuildInfoStore
	hasher   *mocks.MockHasher
	logger   *mocks.MockLogger
	watcher  *mocks.MockWatcher
	reload   *mocks.MockBroadcaster
	notifier *mocks.MockNotifier
	opener   *mocks.MockAttachmentStoreOpener
	server   *mocks.MockMediaServer
}

func setupApp(t *testing.T) (*app.App, appMocks, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := appMocks{
		loader:   mocks.NewMockConfigLoader(ctrl),
		runner:   mocks.NewMockTaskRunner(ctrl),
		fs:       mocks.NewMockFileSystem(ctrl),
		store:    mocks.NewMockBuildInfoStore(ctrl),
		hasher:   mocks.NewMockHasher(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		watcher:  mocks.NewMockWatcher(ctrl),
		reload:   mocks.NewMockBroadcaster(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
		opener:   mocks.NewMockAttachmentStoreOpener(ctrl),
		server:   mocks.NewMockMediaServer(ctrl),
	}
	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	m.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	var out bytes.Buffer
	a := app.New(m.loader, m.runner, m.fs, m.store, m.hasher, m.logger,
		m.watcher, m.reload, m.notifier, m.opener, m.server).
		WithOutput(&out, &out).
		WithEnvironment(func() detector.Environment { return detector.Environment{} })
	return a, m, &out
}

// testProject has a clean-only task and a default task depending on it.
func testProject(t *testing.T, root string) *domain.Project {
	t.Helper()
	g := domain.NewGraph()
	g.SetRoot(root)
	require.NoError(t, g.AddTask(&domain.Task{
		Name:  domain.NewInternedString("clean:styles"),
		Clean: []string{"style.css", "style.css.map"},
	}))
	require.NoError(t, g.AddTask(&domain.Task{
		Name:         domain.NewInternedString("styles"),
		Dependencies: []domain.InternedString{domain.NewInternedString("clean:styles")},
		Source:       domain.ParseFileSet("", []string{"src/sass/*.scss"}),
		Stages:       []domain.StageSpec{{Kind: domain.StageSass}, {Kind: domain.StageCSSNano}},
		Dest:         ".",
	}))
	require.NoError(t, g.AddTask(&domain.Task{
		Name:         domain.NewInternedString(domain.DefaultTarget),
		Dependencies: []domain.InternedString{domain.NewInternedString("clean:styles")},
	}))
	require.NoError(t, g.Validate())

	return &domain.Project{
		Name:   "theme",
		Root:   root,
		Graph:  g,
		Reload: domain.ReloadSettings{Enabled: true, Addr: ":3000"},
		Notify: domain.NotifySettings{Enabled: true},
		Media: domain.MediaSettings{
			Database:    ".basis/media.db",
			Addr:        ":8080",
			BaseURL:     "https://example.test/wp-content/uploads",
			UploadMimes: domain.UploadMimes(nil),
		},
	}
}

func TestApp_Run(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, m, out := setupApp(t)
		m.loader.EXPECT().Load(".").Return(testProject(t, "/theme"), nil)
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), "/theme", gomock.Any()).
			DoAndReturn(func(_ context.Context, task *domain.Task, _ string, _ io.Writer) (domain.TaskResult, error) {
				assert.Equal(t, "clean:styles", task.Name.String())
				return domain.TaskResult{Removed: []string{"style.css"}}, nil
			}).Times(1)

		err := a.Run(t.Context(), nil, app.RunOptions{OutputMode: "linear"})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "clean:styles")
	})
}

func TestApp_Run_TaskFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, m, _ := setupApp(t)
		m.loader.EXPECT().Load(".").Return(testProject(t, "/theme"), nil)
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(domain.TaskResult{}, domain.FileSystemError(errors.New("permission denied"), "style.css"))

		err := a.Run(t.Context(), []string{"default"}, app.RunOptions{OutputMode: "json"})
		require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
		require.ErrorIs(t, err, domain.ErrTaskExecutionFailed)
		require.ErrorIs(t, err, domain.ErrFileSystem)
	})
}

func TestApp_Run_UnknownTask(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, m, _ := setupApp(t)
		m.loader.EXPECT().Load(".").Return(testProject(t, "/theme"), nil)

		err := a.Run(t.Context(), []string{"deploy"}, app.RunOptions{})
		require.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}

func TestApp_Run_InvalidOutputMode(t *testing.T) {
	a, m, _ := setupApp(t)
	m.loader.EXPECT().Load(".").Return(testProject(t, "/theme"), nil)

	err := a.Run(t.Context(), nil, app.RunOptions{OutputMode: "fancy"})
	require.ErrorIs(t, err, domain.ErrInvalidOutputMode)
}

func TestApp_Run_ConfigError(t *testing.T) {
	a, m, _ := setupApp(t)
	m.loader.EXPECT().Load(".").Return(nil, domain.ErrConfigNotFound)

	err := a.Run(t.Context(), nil, app.RunOptions{})
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestApp_Watch(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, m, _ := setupApp(t)
		project := testProject(t, "/theme")
		m.loader.EXPECT().Load(".").Return(project, nil)

		m.reload.EXPECT().Serve(gomock.Any(), domain.ReloadSettings{
			Enabled: true,
			Addr:    ":3001",
			Proxy:   "http://theme.test",
		}).Return(nil)
		m.watcher.EXPECT().Start(gomock.Any(), "/theme").Return(nil)
		m.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(func(ports.WatchEvent) bool) {}))
		m.watcher.EXPECT().Stop().Return(nil)
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), "/theme", gomock.Any()).
			Return(domain.TaskResult{}, nil).Times(1)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			done <- a.Watch(ctx, nil, app.WatchOptions{Addr: ":3001", Proxy: "http://theme.test", OutputMode: "linear"})
		}()

		synctest.Wait()
		cancel()
		require.NoError(t, <-done)
	})
}

func TestApp_Watch_ReloadServerFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, m, _ := setupApp(t)
		m.loader.EXPECT().Load(".").Return(testProject(t, "/theme"), nil)

		m.reload.EXPECT().Serve(gomock.Any(), gomock.Any()).Return(domain.ErrReloadServerFailed)
		m.watcher.EXPECT().Start(gomock.Any(), "/theme").Return(nil).AnyTimes()
		m.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(func(ports.WatchEvent) bool) {})).AnyTimes()
		m.watcher.EXPECT().Stop().Return(nil).AnyTimes()

		err := a.Watch(t.Context(), nil, app.WatchOptions{NoInitial: true, OutputMode: "linear"})
		require.ErrorIs(t, err, domain.ErrReloadServerFailed)
	})
}

func TestApp_Clean(t *testing.T) {
	a, m, _ := setupApp(t)
	m.loader.EXPECT().Load(".").Return(testProject(t, "/theme"), nil)
	m.fs.EXPECT().Remove("/theme", []string{"style.css", "style.css.map"}).Return([]string{"style.css"}, nil)
	m.store.EXPECT().Clear("/theme").Return(nil)

	require.NoError(t, a.Clean(t.Context(), app.CleanOptions{Cache: true}))
}

func TestApp_Clean_ReportsFailures(t *testing.T) {
	a, m, _ := setupApp(t)
	m.loader.EXPECT().Load(".").Return(testProject(t, "/theme"), nil)
	m.fs.EXPECT().Remove(gomock.Any(), gomock.Any()).Return(nil, domain.ErrFileSystem)
	m.store.EXPECT().Clear(gomock.Any()).Times(0)

	err := a.Clean(t.Context(), app.CleanOptions{})
	require.ErrorIs(t, err, domain.ErrFileSystem)
}

func TestApp_Tasks(t *testing.T) {
	a, m, _ := setupApp(t)
	m.loader.EXPECT().Load(".").Return(testProject(t, "/theme"), nil)

	var out bytes.Buffer
	require.NoError(t, a.Tasks(t.Context(), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"TASK", "DEPENDS", "ON", "STAGES", "DEST"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"clean:styles", "-", "-", "-"}, strings.Fields(lines[1]))
	assert.Contains(t, out.String(), "sass | cssnano")
}

func TestApp_Init(t *testing.T) {
	a, _, _ := setupApp(t)
	dir := t.TempDir()
	a.WithWorkingDir(dir)

	require.NoError(t, a.Init(t.Context(), app.InitOptions{}))
	assert.FileExists(t, filepath.Join(dir, domain.ConfigFileName))

	err := a.Init(t.Context(), app.InitOptions{})
	require.ErrorIs(t, err, domain.ErrConfigExists)

	require.NoError(t, a.Init(t.Context(), app.InitOptions{Force: true}))
}

func TestApp_MediaAdd(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, m, _ := setupApp(t)
	root := t.TempDir()
	m.loader.EXPECT().Load(".").Return(testProject(t, root), nil)

	store := mocks.NewMockAttachmentStore(ctrl)
	m.opener.EXPECT().Open(gomock.Any(), filepath.Join(root, ".basis", "media.db")).Return(store, nil)
	store.EXPECT().Add(gomock.Any(), domain.Attachment{
		URL:      "https://example.test/wp-content/uploads/2024/05/logo.svg",
		MimeType: "image/svg+xml",
		Title:    "logo",
	}).Return(int64(7), nil)
	store.EXPECT().Close().Return(nil)

	id, err := a.MediaAdd(t.Context(), app.MediaAddOptions{URL: "2024/05/logo.svg"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.DirExists(t, filepath.Join(root, ".basis"))
}

func TestApp_MediaAdd_UnsupportedType(t *testing.T) {
	a, m, _ := setupApp(t)
	m.loader.EXPECT().Load(".").Return(testProject(t, t.TempDir()), nil).Times(2)
	m.opener.EXPECT().Open(gomock.Any(), gomock.Any()).Times(0)

	_, err := a.MediaAdd(t.Context(), app.MediaAddOptions{URL: "notes.txt"})
	require.ErrorIs(t, err, domain.ErrUnsupportedMediaType)

	_, err = a.MediaAdd(t.Context(), app.MediaAddOptions{URL: "archive.bin", MimeType: "application/zip"})
	require.ErrorIs(t, err, domain.ErrUnsupportedMediaType)
}

func TestApp_MediaServe(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, m, _ := setupApp(t)
	root := t.TempDir()
	project := testProject(t, root)
	m.loader.EXPECT().Load(".").Return(project, nil)

	store := mocks.NewMockAttachmentStore(ctrl)
	m.opener.EXPECT().Open(gomock.Any(), gomock.Any()).Return(store, nil)
	m.server.EXPECT().Serve(gomock.Any(), ":9090", store, project.Media.UploadMimes).Return(nil)
	store.EXPECT().Close().Return(nil)

	require.NoError(t, a.MediaServe(t.Context(), app.MediaServeOptions{Addr: ":9090"}))
}

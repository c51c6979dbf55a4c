// Package app implements the application layer for basis.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"go.opentelemetry.io/otel"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"go.trai.ch/basis/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/detector"  //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/notify"    //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/engine/scheduler"
	"go.trai.ch/basis/internal/engine/watchloop"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	runner       ports.TaskRunner
	fs           ports.FileSystem
	store        ports.BuildInfoStore
	hasher       ports.Hasher
	logger       ports.Logger
	watcher      ports.Watcher
	reload       ports.Broadcaster
	notifier     ports.Notifier
	mediaOpener  ports.AttachmentStoreOpener
	mediaServer  ports.MediaServer

	stdout io.Writer
	stderr io.Writer
	cwd    string
	env    func() detector.Environment
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	runner ports.TaskRunner,
	fs ports.FileSystem,
	store ports.BuildInfoStore,
	hasher ports.Hasher,
	log ports.Logger,
	watcher ports.Watcher,
	reload ports.Broadcaster,
	notifier ports.Notifier,
	mediaOpener ports.AttachmentStoreOpener,
	mediaServer ports.MediaServer,
) *App {
	return &App{
		configLoader: loader,
		runner:       runner,
		fs:           fs,
		store:        store,
		hasher:       hasher,
		logger:       log,
		watcher:      watcher,
		reload:       reload,
		notifier:     notifier,
		mediaOpener:  mediaOpener,
		mediaServer:  mediaServer,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		cwd:          ".",
		env:          detector.Detect,
	}
}

// WithOutput sets the writers task output is rendered to.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithWorkingDir sets the directory the configuration is searched from.
func (a *App) WithWorkingDir(dir string) *App {
	a.cwd = dir
	return a
}

// WithEnvironment replaces the terminal and CI detection.
// This is primarily used for testing.
func (a *App) WithEnvironment(env func() detector.Environment) *App {
	a.env = env
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	NoCache bool
	// Jobs is the number of tasks run at once. Values below 1 mean 1.
	Jobs       int
	OutputMode string
}

// Run executes the named tasks and their prerequisites once.
// Without targets the default task runs.
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) error {
	project, err := a.load()
	if err != nil {
		return err
	}

	if len(targetNames) == 0 {
		targetNames = []string{domain.DefaultTarget}
	}
	// Unknown targets are usage errors, not build failures.
	if _, err := project.Graph.Chain(targetNames...); err != nil {
		return err
	}

	renderer, err := a.newRenderer(opts.OutputMode)
	if err != nil {
		return err
	}
	tracer, shutdown := setupOTel(renderer)
	defer shutdown(ctx)

	sched := scheduler.NewScheduler(a.runner, a.store, a.hasher, tracer, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() error {
		defer func() { _ = renderer.Stop() }()

		_, err := sched.Run(ctx, project.Graph, targetNames, scheduler.RunOptions{
			Parallelism: opts.Jobs,
			NoCache:     opts.NoCache,
		})
		if err != nil {
			return errors.Join(domain.ErrBuildExecutionFailed, err)
		}
		return nil
	})

	return g.Wait()
}

// WatchOptions configuration for the Watch method.
type WatchOptions struct {
	// NoInitial skips the run of the targets before watching starts.
	NoInitial bool
	NoCache   bool
	Jobs      int
	// Addr and Proxy override the reload settings of the project when set.
	Addr       string
	Proxy      string
	NoReload   bool
	OutputMode string
}

// Watch runs the targets, then re-runs the tasks of every watch rule whose
// files change and refreshes connected browsers, until ctx is canceled.
// Task failures are reported and never end the watch.
func (a *App) Watch(ctx context.Context, targetNames []string, opts WatchOptions) error {
	project, err := a.load()
	if err != nil {
		return err
	}

	if len(targetNames) == 0 {
		targetNames = []string{domain.DefaultTarget}
	}
	if _, err := project.Graph.Chain(targetNames...); err != nil {
		return err
	}

	settings := project.Reload
	if opts.Addr != "" {
		settings.Addr = opts.Addr
	}
	if opts.Proxy != "" {
		settings.Proxy = opts.Proxy
	}
	if opts.NoReload {
		settings.Enabled = false
	}

	var notifier ports.Notifier = notify.Discard{}
	if project.Notify.Enabled && a.env().Notifications() {
		notifier = a.notifier
	}

	renderer, err := a.newRenderer(opts.OutputMode)
	if err != nil {
		return err
	}
	tracer, shutdown := setupOTel(renderer)
	defer shutdown(ctx)

	sched := scheduler.NewScheduler(a.runner, a.store, a.hasher, tracer, a.logger)
	build := func(ctx context.Context, targets []string) (*scheduler.Report, error) {
		return sched.Run(ctx, project.Graph, targets, scheduler.RunOptions{
			Parallelism: opts.Jobs,
			NoCache:     opts.NoCache,
		})
	}
	loop := watchloop.New(project, a.watcher, a.fs, a.reload, notifier, a.logger, build)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() error {
		return a.reload.Serve(ctx, settings)
	})

	g.Go(func() error {
		defer func() { _ = renderer.Stop() }()
		if !opts.NoInitial {
			for _, target := range targetNames {
				loop.Request(target)
			}
		}
		return loop.Run(ctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Cache also clears the build info store.
	Cache bool
}

// Clean removes the files named by the clean globs of every task.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	project, err := a.load()
	if err != nil {
		return err
	}

	var errs error
	for task := range project.Graph.Walk() {
		if len(task.Clean) == 0 {
			continue
		}
		removed, err := a.fs.Remove(project.Root, task.Clean)
		if err != nil {
			errs = errors.Join(errs, domain.Tag(err, "task", task.Name.String()))
			continue
		}
		for _, p := range removed {
			a.logger.Info("removed " + p)
		}
	}

	if options.Cache {
		a.logger.Info("removing build info store...")
		if err := a.store.Clear(project.Root); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, "failed to remove build info store"))
		} else {
			a.logger.Info("removed build info store")
		}
	}

	return errs
}

// Tasks writes a table of the tasks in execution order to w.
func (a *App) Tasks(_ context.Context, w io.Writer) error {
	project, err := a.load()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TASK\tDEPENDS ON\tSTAGES\tDEST")
	for task := range project.Graph.Walk() {
		deps := domain.Names(task.Dependencies)
		stages := make([]string, len(task.Stages))
		for i, stage := range task.Stages {
			stages[i] = string(stage.Kind)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			task.Name, orDash(strings.Join(deps, ", ")), orDash(strings.Join(stages, " | ")), orDash(task.Dest))
	}
	return tw.Flush()
}

// InitOptions configuration for the Init method.
type InitOptions struct {
	Force bool
}

// Init writes the default configuration into the working directory.
func (a *App) Init(_ context.Context, opts InitOptions) error {
	path, err := config.WriteDefault(a.cwd, opts.Force)
	if err != nil {
		return err
	}
	a.logger.Info("created " + path)
	return nil
}

// MediaServeOptions configuration for the MediaServe method.
type MediaServeOptions struct {
	Addr string
}

// MediaServe answers attachment lookups until ctx is canceled.
func (a *App) MediaServe(ctx context.Context, opts MediaServeOptions) error {
	project, err := a.load()
	if err != nil {
		return err
	}

	store, err := a.openMedia(ctx, project)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	addr := project.Media.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	return a.mediaServer.Serve(ctx, addr, store, project.Media.UploadMimes)
}

// MediaAddOptions configuration for the MediaAdd method.
type MediaAddOptions struct {
	URL      string
	Title    string
	MimeType string
}

// MediaAdd registers an attachment and returns its id. The mime type is taken
// from the file extension unless given, and must be an allowed upload type.
func (a *App) MediaAdd(ctx context.Context, opts MediaAddOptions) (int64, error) {
	project, err := a.load()
	if err != nil {
		return 0, err
	}

	url := opts.URL
	if !strings.Contains(url, "://") && project.Media.BaseURL != "" {
		url = project.Media.BaseURL + "/" + strings.TrimPrefix(url, "/")
	}

	mime := opts.MimeType
	if mime == "" {
		found, ok := domain.MimeFor(project.Media.UploadMimes, url)
		if !ok {
			return 0, domain.Tag(domain.ErrUnsupportedMediaType, "file", opts.URL)
		}
		mime = found
	} else if !allowedMime(project.Media.UploadMimes, mime) {
		return 0, domain.Tag(domain.ErrUnsupportedMediaType, "mime", mime)
	}

	title := opts.Title
	if title == "" {
		base := path.Base(url)
		title = strings.TrimSuffix(base, path.Ext(base))
	}

	store, err := a.openMedia(ctx, project)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()

	id, err := store.Add(ctx, domain.Attachment{URL: url, MimeType: mime, Title: title})
	if err != nil {
		return 0, err
	}
	a.logger.Info(fmt.Sprintf("added attachment %d: %s", id, url))
	return id, nil
}

func (a *App) load() (*domain.Project, error) {
	project, err := a.configLoader.Load(a.cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return project, nil
}

func (a *App) openMedia(ctx context.Context, project *domain.Project) (ports.AttachmentStore, error) {
	dbPath := filepath.FromSlash(project.Media.Database)
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(project.Root, dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), domain.DirPerm); err != nil {
		return nil, domain.FileSystemError(err, filepath.Dir(dbPath))
	}
	return a.mediaOpener.Open(ctx, dbPath)
}

// newRenderer picks the renderer for the output mode flag and the environment.
func (a *App) newRenderer(flag string) (ports.Renderer, error) {
	mode, err := detector.ResolveMode(a.env().Mode(), flag)
	if err != nil {
		return nil, err
	}
	switch mode {
	case detector.ModeJSON:
		return linear.NewJSONRenderer(a.stdout), nil
	case detector.ModePretty:
		return linear.NewPrettyRenderer(a.stdout, a.stderr), nil
	default:
		return linear.NewRenderer(a.stdout, a.stderr), nil
	}
}

// setupOTel configures the OpenTelemetry SDK to report spans to the renderer
// and returns the tracer for the scheduler.
func setupOTel(renderer ports.Renderer) (ports.Tracer, func(context.Context)) {
	tp := telemetry.NewProvider(renderer)

	// Register it as the global provider.
	otel.SetTracerProvider(tp)

	tracer := telemetry.NewOTelTracerWithProvider(tp, "basis").WithRenderer(renderer)
	return tracer, func(ctx context.Context) {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}
}

func allowedMime(mimes map[string]string, mime string) bool {
	for _, allowed := range mimes {
		if allowed == mime {
			return true
		}
	}
	return false
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

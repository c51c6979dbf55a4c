// Package watchloop re-runs tasks when the files of their watch rules change
// and pushes the results to connected browsers.
package watchloop

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/engine/scheduler"
)

// DefaultNotificationTitle is the title of failure notifications.
const DefaultNotificationTitle = "Task Failed"

// BuildFunc runs the targets and their prerequisites.
type BuildFunc func(ctx context.Context, targets []string) (*scheduler.Report, error)

// Loop is the watch mode of a project.
type Loop struct {
	project  *domain.Project
	watcher  ports.Watcher
	fs       ports.FileSystem
	reload   ports.Broadcaster
	notifier ports.Notifier
	logger   ports.Logger
	build    BuildFunc
	queue    *Queue
}

// New creates a Loop for the project.
func New(
	project *domain.Project,
	watcher ports.Watcher,
	fs ports.FileSystem,
	reload ports.Broadcaster,
	notifier ports.Notifier,
	logger ports.Logger,
	build BuildFunc,
) *Loop {
	return &Loop{
		project:  project,
		watcher:  watcher,
		fs:       fs,
		reload:   reload,
		notifier: notifier,
		logger:   logger,
		build:    build,
		queue:    NewQueue(),
	}
}

// Run watches the project root until ctx is canceled. Task failures are
// reported and never end the loop; only a watcher that cannot start does.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.watcher.Start(ctx, l.project.Root); err != nil {
		return err
	}
	defer func() { _ = l.watcher.Stop() }()

	debounce := l.project.Watch.Debounce
	if debounce <= 0 {
		debounce = domain.DefaultDebounce
	}

	debouncers := make([]*Debouncer, len(l.project.WatchRules))
	for i, rule := range l.project.WatchRules {
		debouncers[i] = NewDebouncer(debounce, func(paths []string) {
			l.logger.Info(describeChange(rule, paths))
			for _, task := range rule.Tasks {
				l.queue.Request(task.String())
			}
		})
	}

	l.logger.Info("watching " + l.project.Root + " for changes")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.queue.Serve(ctx, l.runTask)
		return nil
	})
	g.Go(func() error {
		// Events ends once the watcher stops with ctx.
		for event := range l.watcher.Events() {
			rel, ok := l.relative(event.Path)
			if !ok {
				continue
			}
			for i, rule := range l.project.WatchRules {
				if l.fs.Match(rule.Files, rel) {
					debouncers[i].Add(rel)
				}
			}
		}
		for _, d := range debouncers {
			d.Stop()
		}
		return nil
	})
	return g.Wait()
}

// Request queues a run of the task as if one of its watched files changed.
func (l *Loop) Request(task string) {
	l.queue.Request(task)
}

func (l *Loop) runTask(ctx context.Context, task string) {
	report, err := l.build(ctx, []string{task})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		l.logger.Error(err)
		l.notifyFailure(task, err)
	}
	if report == nil || report.Reload.Mode == domain.ReloadNone {
		return
	}
	if err := l.reload.Broadcast(ctx, report.Reload); err != nil {
		l.logger.Warn("reload: " + err.Error())
	}
}

func (l *Loop) notifyFailure(task string, err error) {
	settings := l.project.Notify
	if !settings.Enabled || l.notifier == nil {
		return
	}
	title := settings.Title
	if title == "" {
		title = DefaultNotificationTitle
	}
	note := ports.Notification{
		Title:   title,
		Message: task + ": " + firstLine(err.Error()),
		Sound:   settings.Sound,
	}
	if err := l.notifier.Notify(note); err != nil {
		l.logger.Warn(err.Error())
	}
}

// relative maps an event path to the slash-separated path below the root.
func (l *Loop) relative(path string) (string, bool) {
	rel, err := filepath.Rel(l.project.Root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func describeChange(rule domain.WatchRule, paths []string) string {
	tasks := domain.Names(rule.Tasks)
	changed := paths[0]
	if len(paths) > 1 {
		changed += " and " + plural(len(paths)-1, "other file")
	}
	return changed + " changed, running " + strings.Join(tasks, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

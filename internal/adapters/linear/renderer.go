// Package linear renders task progress as chronological, task-prefixed lines.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/ui/output"
	"go.trai.ch/basis/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer prints task starts and completions to stderr and task log lines,
// prefixed with the task name, to stdout. Partial lines are held back until
// they are completed or the task ends.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu    sync.Mutex
	tasks map[string]*taskState
}

type taskState struct {
	name    string
	started time.Time
	pending bytes.Buffer
}

// NewRenderer creates a Renderer with basic ANSI colors unless NO_COLOR is set.
// Nil writers default to os.Stdout and os.Stderr.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	return newRenderer(stdout, stderr, output.ColorProfileANSI)
}

// NewPrettyRenderer creates a Renderer using the full color profile of the terminal.
func NewPrettyRenderer(stdout, stderr io.Writer) *Renderer {
	return newRenderer(stdout, stderr, output.ColorProfile)
}

func newRenderer(stdout, stderr io.Writer, profile func() termenv.Profile) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		output: output.NewWithProfile(stderr, profile),
		tasks:  make(map[string]*taskState),
	}
}

// Start does nothing; the renderer writes synchronously.
func (r *Renderer) Start(context.Context) error {
	return nil
}

// Stop prints the partial lines still held back.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		r.flushLocked(task)
	}
	return nil
}

// Wait returns immediately.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the planned tasks.
func (r *Renderer) OnPlanEmit(tasks []string, _ map[string][]string, targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	arrow := r.color(style.Arrow, string(style.Indigo))
	_, _ = fmt.Fprintf(r.stderr, "%s Running %d task(s) for %s\n",
		arrow, len(tasks), strings.Join(targets, ", "))
}

// OnTaskStart prints "[name] Starting...".
func (r *Renderer) OnTaskStart(spanID, _, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[spanID] = &taskState{name: name, started: startTime}
	_, _ = fmt.Fprintf(r.stderr, "%s Starting...\n", r.prefix(name))
}

// OnTaskLog prints the complete lines of data and keeps the remainder.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	task.pending.Write(data)
	for {
		buffered := task.pending.Bytes()
		i := bytes.IndexByte(buffered, '\n')
		if i < 0 {
			return
		}
		r.printLineLocked(task.name, buffered[:i])
		task.pending.Next(i + 1)
	}
}

// OnTaskComplete prints the remaining output and the task outcome.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	r.flushLocked(task)
	delete(r.tasks, spanID)

	elapsed := formatDuration(endTime.Sub(task.started))
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed after %s: %v\n",
			r.prefix(task.name), r.color(style.Cross, string(style.Red)), elapsed, err)
		return
	}
	_, _ = fmt.Fprintf(r.stderr, "%s %s Completed in %s\n",
		r.prefix(task.name), r.color(style.Check, string(style.Green)), elapsed)
}

func (r *Renderer) flushLocked(task *taskState) {
	if task.pending.Len() > 0 {
		r.printLineLocked(task.name, task.pending.Bytes())
		task.pending.Reset()
	}
}

func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", name, line)
}

func (r *Renderer) prefix(name string) string {
	return r.output.String("[" + name + "]").Faint().String()
}

func (r *Renderer) color(s, hex string) string {
	return r.output.String(s).Foreground(r.output.Color(hex)).String()
}

// formatDuration rounds to milliseconds, or to microseconds below one.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}

package linear

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"go.trai.ch/basis/internal/core/ports"
)

var _ ports.Renderer = (*JSONRenderer)(nil)

// Event is one line of JSON output.
type Event struct {
	Type       string              `json:"type"`
	Time       time.Time           `json:"time"`
	Task       string              `json:"task,omitempty"`
	Tasks      []string            `json:"tasks,omitempty"`
	Deps       map[string][]string `json:"deps,omitempty"`
	Targets    []string            `json:"targets,omitempty"`
	Output     string              `json:"output,omitempty"`
	DurationMS int64               `json:"duration_ms,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// JSONRenderer writes one Event per line, for tooling that consumes the
// run programmatically.
type JSONRenderer struct {
	mu    sync.Mutex
	enc   *json.Encoder
	tasks map[string]taskState
	now   func() time.Time
}

// NewJSONRenderer creates a JSONRenderer writing to w (stdout when nil).
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &JSONRenderer{
		enc:   json.NewEncoder(w),
		tasks: make(map[string]taskState),
		now:   time.Now,
	}
}

// Start does nothing.
func (r *JSONRenderer) Start(context.Context) error { return nil }

// Stop does nothing.
func (r *JSONRenderer) Stop() error { return nil }

// Wait returns immediately.
func (r *JSONRenderer) Wait() error { return nil }

// OnPlanEmit writes a "plan" event.
func (r *JSONRenderer) OnPlanEmit(tasks []string, deps map[string][]string, targets []string) {
	r.emit(Event{Type: "plan", Time: r.now(), Tasks: tasks, Deps: deps, Targets: targets})
}

// OnTaskStart writes a "start" event.
func (r *JSONRenderer) OnTaskStart(spanID, _, name string, startTime time.Time) {
	r.mu.Lock()
	r.tasks[spanID] = taskState{name: name, started: startTime}
	r.mu.Unlock()
	r.emit(Event{Type: "start", Time: startTime, Task: name})
}

// OnTaskLog writes a "log" event with the raw output chunk.
func (r *JSONRenderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	task, ok := r.tasks[spanID]
	r.mu.Unlock()
	if !ok {
		return
	}
	r.emit(Event{Type: "log", Time: r.now(), Task: task.name, Output: string(data)})
}

// OnTaskComplete writes a "complete" or "failed" event.
func (r *JSONRenderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	task, ok := r.tasks[spanID]
	delete(r.tasks, spanID)
	r.mu.Unlock()
	if !ok {
		return
	}

	event := Event{
		Type:       "complete",
		Time:       endTime,
		Task:       task.name,
		DurationMS: endTime.Sub(task.started).Milliseconds(),
	}
	if err != nil {
		event.Type = "failed"
		event.Error = err.Error()
	}
	r.emit(event)
}

func (r *JSONRenderer) emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(e)
}

// Package pipeline runs the stage chain of a single task: it cleans stale
// outputs, reads the sources, applies the stages and writes the results.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

// Runner implements ports.TaskRunner on top of the file system and the stage factory.
type Runner struct {
	fs     ports.FileSystem
	stages ports.StageFactory
}

var _ ports.TaskRunner = (*Runner)(nil)

// NewRunner creates a Runner.
func NewRunner(fs ports.FileSystem, stages ports.StageFactory) *Runner {
	return &Runner{fs: fs, stages: stages}
}

// Inputs resolves the source files of the task. Tasks without a source set have no inputs.
func (r *Runner) Inputs(task *domain.Task, root string) ([]string, error) {
	if task.Source.IsEmpty() {
		return nil, nil
	}
	inputs, err := r.fs.Resolve(root, task.Source)
	if err != nil {
		return nil, domain.Caused(domain.ErrInputResolutionFailed, err)
	}
	return inputs, nil
}

// Run executes the task. Output files are written only once every stage succeeded.
func (r *Runner) Run(ctx context.Context, task *domain.Task, root string, log io.Writer) (domain.TaskResult, error) {
	var result domain.TaskResult

	// Stages are built before anything is deleted so a bad declaration leaves the tree intact.
	stages, err := r.build(task, root)
	if err != nil {
		return result, err
	}

	if len(task.Clean) > 0 {
		removed, err := r.fs.Remove(root, task.Clean)
		if err != nil {
			return result, err
		}
		for _, p := range removed {
			logf(log, "removed %s", p)
		}
		result.Removed = removed
	}

	if len(stages) == 0 {
		return result, nil
	}

	files, err := r.read(task, root)
	if err != nil {
		return result, err
	}
	if len(files) == 0 {
		logf(log, "no source files matched")
		return result, nil
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		files, err = stage.Transform(ctx, files)
		if err != nil {
			return result, domain.Tag(err, "stage", stage.Name())
		}
	}

	return r.write(task, root, files, log, result)
}

func (r *Runner) build(task *domain.Task, root string) ([]ports.Stage, error) {
	stages := make([]ports.Stage, 0, len(task.Stages))
	for _, spec := range task.Stages {
		stage, err := r.stages.New(root, spec)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func (r *Runner) read(task *domain.Task, root string) ([]domain.File, error) {
	inputs, err := r.Inputs(task, root)
	if err != nil {
		return nil, err
	}
	files := make([]domain.File, 0, len(inputs))
	for _, rel := range inputs {
		data, err := r.fs.ReadFile(root, rel)
		if err != nil {
			return nil, err
		}
		base, p := splitBase(task.Base, rel)
		files = append(files, domain.File{Path: p, Base: base, Contents: data})
	}
	return files, nil
}

func (r *Runner) write(
	task *domain.Task,
	root string,
	files []domain.File,
	log io.Writer,
	result domain.TaskResult,
) (domain.TaskResult, error) {
	for _, f := range files {
		dest := path.Join(task.Dest, f.Path)
		changed, err := r.fs.WriteFile(root, dest, f.Contents)
		if err != nil {
			return result, err
		}
		result.Outputs = append(result.Outputs, dest)
		if changed {
			result.Written = append(result.Written, dest)
			logf(log, "wrote %s", dest)
		}
	}
	if unchanged := len(result.Outputs) - len(result.Written); unchanged > 0 {
		logf(log, "%d file(s) unchanged", unchanged)
	}
	return result, nil
}

// splitBase returns the base and the path of rel below it.
// Files outside base keep their root-relative path.
func splitBase(base, rel string) (string, string) {
	base = strings.TrimSuffix(path.Clean(base), "/")
	if base == "" || base == "." {
		return ".", rel
	}
	if p, ok := strings.CutPrefix(rel, base+"/"); ok {
		return base, p
	}
	return ".", rel
}

func logf(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

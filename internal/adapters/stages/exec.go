package stages

import (
	"bytes"
	"context"
	"strings"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

type execStage struct {
	root     string
	executor ports.Executor
	command  []string
	extname  string
}

func newExec(r *Registry, root string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "command", "extname")
	s := &execStage{
		root:     root,
		executor: r.executor,
		command:  opts.strings("command", nil),
		extname:  opts.str("extname", ""),
	}
	if opts.err != nil {
		return nil, opts.err
	}
	if len(s.command) == 0 {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "command: required")
	}
	if s.extname != "" && !strings.HasPrefix(s.extname, ".") {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "extname: must start with a dot")
	}
	return s, nil
}

func (s *execStage) Name() string { return string(domain.StageExec) }

// Transform pipes every file through the command. The file path relative to
// the project root is exposed as BASIS_FILE.
func (s *execStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var stdout, stderr bytes.Buffer
		err := s.executor.Execute(ctx, ports.Command{
			Args:   s.command,
			Dir:    s.root,
			Env:    []string{"BASIS_FILE=" + f.SourcePath()},
			Stdin:  bytes.NewReader(f.Contents),
			Stdout: &stdout,
			Stderr: &stderr,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return nil, domain.NewTransformError(s.Name(), f.SourcePath(), msg).Wrapping(err)
		}

		next := f
		if s.extname != "" {
			next = f.WithPath(strings.TrimSuffix(f.Path, f.Ext()) + s.extname)
		}
		next.Contents = stdout.Bytes()
		next.Map = nil
		out = append(out, next)
	}
	return out, nil
}

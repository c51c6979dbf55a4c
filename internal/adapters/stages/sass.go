package stages

import (
	"context"
	"path"
	"strings"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/scss"
	"go.trai.ch/basis/internal/sourcemap"
	"go.trai.ch/basis/internal/stylesheet"
	"go.trai.ch/zerr"
)

type sassStage struct {
	root         string
	fs           ports.FileSystem
	style        stylesheet.Style
	includePaths []string
	sourceMap    bool
}

func newSass(r *Registry, root string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "outputStyle", "includePaths", "sourceMap")
	name := opts.str("outputStyle", string(stylesheet.StyleExpanded))
	includes := opts.strings("includePaths", nil)
	sourceMap := opts.boolean("sourceMap", false)
	if opts.err != nil {
		return nil, opts.err
	}
	style, err := stylesheet.ParseStyle(name)
	if err != nil {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "outputStyle: "+name)
	}
	return &sassStage{root: root, fs: r.fs, style: style, includePaths: includes, sourceMap: sourceMap}, nil
}

func (s *sassStage) Name() string { return string(domain.StageSass) }

// Transform compiles every .scss entry file. Partials are dropped from the
// stream and other files pass through unchanged.
func (s *sassStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Ext() != ".scss" {
			out = append(out, f)
			continue
		}
		if strings.HasPrefix(path.Base(f.Path), "_") {
			continue
		}

		res, err := scss.Compile(f.SourcePath(), f.Contents, scss.Options{
			IncludePaths: s.includePaths,
			Load:         s.load,
		})
		if err != nil {
			return nil, transformError(s.Name(), f, err)
		}

		next := f.WithPath(strings.TrimSuffix(f.Path, ".scss") + ".css")
		printed := stylesheet.Print(res.Sheet, stylesheet.PrintOptions{
			Style:     s.style,
			File:      path.Base(next.Path),
			SourceMap: s.sourceMap || f.Map != nil,
			Contents:  res.Sources,
		})
		next.Contents = printed.CSS
		next.Map = nil
		if printed.Map != nil {
			if next.Map, err = sourcemap.Compose(printed.Map, f.Map); err != nil {
				return nil, transformError(s.Name(), f, err)
			}
		}
		out = append(out, next)
	}
	return out, nil
}

func (s *sassStage) load(p string) ([]byte, error) {
	data, err := s.fs.ReadFile(s.root, p)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read import")
	}
	return data, nil
}

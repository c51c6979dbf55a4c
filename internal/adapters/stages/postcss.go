package stages

import (
	"context"
	"path"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/sourcemap"
	"go.trai.ch/basis/internal/stylesheet"
)

type postCSSStage struct {
	autoprefixer bool
	mqpacker     bool
	sort         bool
}

func newPostCSS(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "autoprefixer", "mqpacker", "sort")
	s := &postCSSStage{
		autoprefixer: opts.boolean("autoprefixer", true),
		mqpacker:     opts.boolean("mqpacker", true),
		sort:         opts.boolean("sort", true),
	}
	if opts.err != nil {
		return nil, opts.err
	}
	return s, nil
}

func (s *postCSSStage) Name() string { return string(domain.StagePostCSS) }

// Transform rewrites every .css file and carries its source map through.
func (s *postCSSStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Ext() != ".css" {
			out = append(out, f)
			continue
		}

		source := f.SourcePath()
		sheet, err := stylesheet.Parse(source, f.Contents)
		if err != nil {
			return nil, transformError(s.Name(), f, err)
		}
		if s.autoprefixer {
			sheet.Nodes = autoprefix(sheet.Nodes)
		}
		if s.mqpacker {
			sheet.Nodes = packMedia(sheet.Nodes, s.sort)
		}

		printed := stylesheet.Print(sheet, stylesheet.PrintOptions{
			Style:     stylesheet.StyleExpanded,
			File:      path.Base(f.Path),
			SourceMap: f.Map != nil,
			Contents:  map[string]string{source: string(f.Contents)},
		})
		next := f
		next.Contents = printed.CSS
		if printed.Map != nil {
			if next.Map, err = sourcemap.Compose(printed.Map, f.Map); err != nil {
				return nil, transformError(s.Name(), f, err)
			}
		}
		out = append(out, next)
	}
	return out, nil
}

package stages

import (
	"context"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

const (
	mimeCSS = "text/css"
	mimeJS  = "application/javascript"
	mimeSVG = "image/svg+xml"
)

// minifyStage runs a tdewolff minifier over every file with a matching
// extension. Minified output has no source map: the map is dropped.
type minifyStage struct {
	kind domain.StageKind
	ext  string
	mime string
	m    *minify.M
}

func newCSSNano(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "safe")
	safe := opts.boolean("safe", true)
	if opts.err != nil {
		return nil, opts.err
	}
	precision := 5
	if safe {
		precision = 0
	}
	m := minify.New()
	m.Add(mimeCSS, &css.Minifier{Precision: precision})
	return &minifyStage{kind: domain.StageCSSNano, ext: ".css", mime: mimeCSS, m: m}, nil
}

func newUglify(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "mangle")
	mangle := opts.boolean("mangle", true)
	if opts.err != nil {
		return nil, opts.err
	}
	m := minify.New()
	m.Add(mimeJS, &js.Minifier{KeepVarNames: !mangle})
	return &minifyStage{kind: domain.StageUglify, ext: ".js", mime: mimeJS, m: m}, nil
}

func newSVGMin(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	if err := o.Check(); err != nil {
		return nil, err
	}
	m := minify.New()
	m.Add(mimeCSS, &css.Minifier{})
	m.Add(mimeSVG, &svg.Minifier{})
	return &minifyStage{kind: domain.StageSVGMin, ext: ".svg", mime: mimeSVG, m: m}, nil
}

func (s *minifyStage) Name() string { return string(s.kind) }

func (s *minifyStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Ext() != s.ext {
			out = append(out, f)
			continue
		}
		b, err := s.m.Bytes(s.mime, f.Contents)
		if err != nil {
			return nil, transformError(s.Name(), f, err)
		}
		f.Contents = b
		f.Map = nil
		out = append(out, f)
	}
	return out, nil
}

package stages

import (
	"bytes"
	"context"
	"path"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/sourcemap"
)

const (
	mapsInline   = "inline"
	mapsExternal = "external"
)

type sourceMapsStage struct {
	mode       string
	sourceRoot string
}

func newSourceMaps(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "mode", "sourceRoot")
	s := &sourceMapsStage{
		mode:       opts.str("mode", mapsExternal),
		sourceRoot: opts.str("sourceRoot", ""),
	}
	if opts.err != nil {
		return nil, opts.err
	}
	if s.mode != mapsInline && s.mode != mapsExternal {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "mode: expected inline or external, got "+s.mode)
	}
	return s, nil
}

func (s *sourceMapsStage) Name() string { return string(domain.StageSourceMaps) }

// Transform attaches the map of every file carrying one, either inline or as
// a sibling .map file referenced from a trailing comment.
func (s *sourceMapsStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Map == nil {
			out = append(out, f)
			continue
		}

		m := *f.Map
		m.File = path.Base(f.Path)
		if s.sourceRoot != "" {
			m.SourceRoot = s.sourceRoot
		}

		var url string
		var mapFile *domain.File
		if s.mode == mapsInline {
			inline, err := sourcemap.InlineURL(&m)
			if err != nil {
				return nil, transformError(s.Name(), f, err)
			}
			url = inline
		} else {
			b, err := sourcemap.Marshal(&m)
			if err != nil {
				return nil, transformError(s.Name(), f, err)
			}
			url = path.Base(f.Path) + ".map"
			mapFile = &domain.File{Path: f.Path + ".map", Base: f.Base, Contents: b}
		}

		contents := bytes.Clone(f.Contents)
		if len(contents) > 0 && contents[len(contents)-1] != '\n' {
			contents = append(contents, '\n')
		}
		contents = append(contents, sourcemap.Comment(f.Ext(), url)...)
		contents = append(contents, '\n')

		f.Contents = contents
		f.Map = nil
		out = append(out, f)
		if mapFile != nil {
			out = append(out, *mapFile)
		}
	}
	return out, nil
}

package stages

import (
	"bytes"
	"context"
	"path"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/sourcemap"
)

type concatStage struct {
	file      string
	sourceMap bool
}

func newConcat(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "file", "sourceMap")
	s := &concatStage{
		file:      opts.str("file", ""),
		sourceMap: opts.boolean("sourceMap", false),
	}
	if opts.err != nil {
		return nil, opts.err
	}
	if s.file == "" {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "file: required")
	}
	return s, nil
}

func (s *concatStage) Name() string { return string(domain.StageConcat) }

// Transform joins the files in order with a newline between them.
// The combined map covers every input line, reusing input maps when present.
func (s *concatStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		buf      bytes.Buffer
		builder  *sourcemap.Builder
		offset   int
		withMaps = s.sourceMap
	)
	for _, f := range files {
		if f.Map != nil {
			withMaps = true
		}
	}
	if withMaps {
		builder = sourcemap.NewBuilder(path.Base(s.file))
	}

	for i, f := range files {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(f.Contents)

		if builder != nil {
			m := f.Map
			if m == nil {
				m = sourcemap.Identity(path.Base(f.Path), f.SourcePath(), string(f.Contents))
			}
			if err := appendShifted(builder, m, offset); err != nil {
				return nil, transformError(s.Name(), f, err)
			}
		}
		offset += bytes.Count(f.Contents, []byte("\n")) + 1
	}

	out := domain.File{Path: s.file, Base: files[0].Base, Contents: buf.Bytes()}
	if builder != nil {
		out.Map = builder.Map()
	}
	return []domain.File{out}, nil
}

// appendShifted copies the mappings of m into b, moved down by lines.
func appendShifted(b *sourcemap.Builder, m *domain.SourceMap, lines int) error {
	mappings, err := sourcemap.Decode(m.Mappings)
	if err != nil {
		return err
	}
	index := make([]int, len(m.Sources))
	for i, src := range m.Sources {
		content := ""
		if i < len(m.SourcesContent) {
			content = m.SourcesContent[i]
		}
		index[i] = b.AddSource(src, content)
	}
	for _, mp := range mappings {
		if mp.Source < 0 || mp.Source >= len(index) {
			continue
		}
		mp.GenLine += lines
		mp.Source = index[mp.Source]
		b.Add(mp)
	}
	return nil
}

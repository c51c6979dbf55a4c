package stages

import (
	"context"
	"path"
	"strings"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

type renameStage struct {
	prefix   string
	suffix   string
	basename string
	extname  string
	hasExt   bool
}

func newRename(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "prefix", "suffix", "basename", "extname")
	_, hasExt := o["extname"]
	s := &renameStage{
		prefix:   opts.str("prefix", ""),
		suffix:   opts.str("suffix", ""),
		basename: opts.str("basename", ""),
		extname:  opts.str("extname", ""),
		hasExt:   hasExt,
	}
	if opts.err != nil {
		return nil, opts.err
	}
	if strings.ContainsAny(s.prefix+s.suffix+s.basename+s.extname, "/\\") {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "rename parts must not contain path separators")
	}
	return s, nil
}

func (s *renameStage) Name() string { return string(domain.StageRename) }

// Transform renames every file to dir/prefix+basename+suffix+extname.
func (s *renameStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.File, len(files))
	for i, f := range files {
		out[i] = f.WithPath(s.rename(f.Path))
	}
	return out, nil
}

func (s *renameStage) rename(p string) string {
	dir, name := path.Split(p)
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if s.basename != "" {
		stem = s.basename
	}
	if s.hasExt {
		ext = s.extname
	}
	return dir + s.prefix + stem + s.suffix + ext
}

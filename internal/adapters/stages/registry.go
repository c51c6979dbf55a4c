// Package stages implements the pipeline stages and the factory building
// them from task declarations.
package stages

import (
	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

type constructor func(r *Registry, root string, opts domain.Options) (ports.Stage, error)

// Registry implements ports.StageFactory.
type Registry struct {
	fs       ports.FileSystem
	executor ports.Executor
	kinds    map[domain.StageKind]constructor
}

var _ ports.StageFactory = (*Registry)(nil)

// NewRegistry creates a factory for every stage kind.
// The file system serves stylesheet imports and the executor runs exec stages.
func NewRegistry(fs ports.FileSystem, executor ports.Executor) *Registry {
	return &Registry{
		fs:       fs,
		executor: executor,
		kinds: map[domain.StageKind]constructor{
			domain.StageSass:       newSass,
			domain.StagePostCSS:    newPostCSS,
			domain.StageCSSNano:    newCSSNano,
			domain.StageSVGMin:     newSVGMin,
			domain.StageSVGStore:   newSVGStore,
			domain.StageSVGClean:   newSVGClean,
			domain.StageImageMin:   newImageMin,
			domain.StageConcat:     newConcat,
			domain.StageUglify:     newUglify,
			domain.StageRename:     newRename,
			domain.StageSourceMaps: newSourceMaps,
			domain.StageSassLint:   newSassLint,
			domain.StageJSLint:     newJSLint,
			domain.StageSassDoc:    newSassDoc,
			domain.StageExec:       newExec,
		},
	}
}

// New validates the options of spec and builds the stage.
func (r *Registry) New(root string, spec domain.StageSpec) (ports.Stage, error) {
	ctor, ok := r.kinds[spec.Kind]
	if !ok {
		return nil, domain.Tag(domain.ErrUnknownStage, "stage", string(spec.Kind))
	}
	stage, err := ctor(r, root, spec.Options)
	if err != nil {
		return nil, domain.Tag(err, "stage", string(spec.Kind))
	}
	return stage, nil
}

// Kinds returns the registered stage kinds.
func (r *Registry) Kinds() []domain.StageKind {
	out := make([]domain.StageKind, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	return out
}

// options reads several typed options, stopping at the first error.
type options struct {
	o   domain.Options
	err error
}

func readOptions(o domain.Options, known ...string) *options {
	return &options{o: o, err: o.Check(known...)}
}

func (r *options) str(key, def string) string {
	if r.err != nil {
		return def
	}
	v, err := r.o.String(key, def)
	r.err = err
	return v
}

func (r *options) boolean(key string, def bool) bool {
	if r.err != nil {
		return def
	}
	v, err := r.o.Bool(key, def)
	r.err = err
	return v
}

func (r *options) integer(key string, def int) int {
	if r.err != nil {
		return def
	}
	v, err := r.o.Int(key, def)
	r.err = err
	return v
}

func (r *options) strings(key string, def []string) []string {
	if r.err != nil {
		return def
	}
	v, err := r.o.Strings(key, def)
	r.err = err
	return v
}

func (r *options) flags(key string) map[string]bool {
	if r.err != nil {
		return nil
	}
	v, err := r.o.Flags(key)
	r.err = err
	return v
}

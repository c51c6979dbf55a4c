package domain

import (
	"fmt"
	"slices"
	"sort"
)

// StageKind identifies a pipeline stage implementation.
type StageKind string

// Stage kinds.
const (
	StageSass       StageKind = "sass"
	StagePostCSS    StageKind = "postcss"
	StageCSSNano    StageKind = "cssnano"
	StageSVGMin     StageKind = "svgmin"
	StageSVGStore   StageKind = "svgstore"
	StageSVGClean   StageKind = "svgclean"
	StageImageMin   StageKind = "imagemin"
	StageConcat     StageKind = "concat"
	StageUglify     StageKind = "uglify"
	StageRename     StageKind = "rename"
	StageSourceMaps StageKind = "sourcemaps"
	StageSassLint   StageKind = "sasslint"
	StageJSLint     StageKind = "jslint"
	StageSassDoc    StageKind = "sassdoc"
	StageExec       StageKind = "exec"
)

// EmitsFiles reports whether the stage produces output files.
// Lint stages only report issues.
func (k StageKind) EmitsFiles() bool {
	return k != StageSassLint && k != StageJSLint
}

// StageSpec is the declaration of one stage in a task.
type StageSpec struct {
	Kind    StageKind
	Options Options
}

// Options holds the configuration record of a stage as decoded from YAML.
type Options map[string]any

// Check returns ErrInvalidStageOption when the options contain a key outside known.
func (o Options) Check(known ...string) error {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !slices.Contains(known, k) {
			return Tag(ErrInvalidStageOption, "option", k)
		}
	}
	return nil
}

// String returns the string option key, or def when unset.
func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", typeError(key, "string", v)
	}
	return s, nil
}

// Bool returns the bool option key, or def when unset.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeError(key, "bool", v)
	}
	return b, nil
}

// Int returns the integer option key, or def when unset.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil //nolint:gosec // option values are small
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, typeError(key, "int", v)
}

// Strings returns the string list option key, or def when unset.
// A single string is accepted as a one-element list.
func (o Options) Strings(key string, def []string) ([]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch l := v.(type) {
	case string:
		return []string{l}, nil
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, typeError(key, "list of strings", v)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, typeError(key, "list of strings", v)
}

// Flags returns a string to bool map option key, or an empty map when unset.
func (o Options) Flags(key string) (map[string]bool, error) {
	out := make(map[string]bool)
	v, ok := o[key]
	if !ok || v == nil {
		return out, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, typeError(key, "map of booleans", v)
	}
	for k, raw := range m {
		b, ok := raw.(bool)
		if !ok {
			return nil, typeError(key+"."+k, "bool", raw)
		}
		out[k] = b
	}
	return out, nil
}

func typeError(key, want string, got any) error {
	return Tag(ErrInvalidStageOption, "option", fmt.Sprintf("%s: expected %s, got %T", key, want, got))
}

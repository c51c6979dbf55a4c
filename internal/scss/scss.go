// Package scss compiles the SCSS dialect used by theme stylesheets into a
// stylesheet tree.
//
// Supported are variables, nesting with the parent selector, partial imports,
// mixins with arguments and content blocks, interpolation, arithmetic, a set
// of color and number functions, @media bubbling and @extend. Control
// directives and user functions are rejected.
package scss

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.trai.ch/basis/internal/stylesheet"
)

// Error is a compilation error with a 1-based position.
type Error struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// Options configures Compile.
type Options struct {
	// IncludePaths are searched for imports not found next to the importing file.
	IncludePaths []string
	// Load reads a file by its slash separated path.
	Load func(path string) ([]byte, error)
}

// Result is a compiled stylesheet.
type Result struct {
	Sheet *stylesheet.Stylesheet
	// Sources maps every file read during compilation to its content.
	Sources map[string]string
}

// Compile compiles the SCSS content of file.
func Compile(file string, content []byte, opts Options) (*Result, error) {
	c := &compiler{
		opts:    opts,
		mixins:  make(map[string]*mixin),
		sources: map[string]string{file: string(content)},
	}
	stmts, err := parseFile(file, content)
	if err != nil {
		return nil, err
	}

	var nodes []stylesheet.Node
	f := &frame{env: newEnv(nil), container: &nodes, file: file}
	c.importing = []string{file}
	if err := c.run(stmts, f); err != nil {
		return nil, err
	}

	nodes = applyExtends(nodes, c.extends)
	for _, ext := range c.extends {
		if !ext.matched && !ext.optional {
			return nil, errorAt(ext.pos, fmt.Errorf("the target selector %q was not found", ext.target))
		}
	}
	return &Result{Sheet: &stylesheet.Stylesheet{Nodes: nodes}, Sources: c.sources}, nil
}

// Parse checks the syntax of file without evaluating it. Directives that
// Compile rejects are accepted here. Errors are *Error values.
func Parse(file string, content []byte) error {
	p := &parser{file: file, src: string(content), lines: stylesheet.NewLineIndex(content), syntaxOnly: true}
	_, err := p.block(false)
	return err
}

func errorAt(pos stylesheet.Pos, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{File: pos.Source, Line: pos.Line + 1, Column: pos.Column + 1, Message: err.Error()}
}

// isPlainImport reports whether an import is left for the browser.
func isPlainImport(item string) bool {
	lower := strings.ToLower(item)
	if strings.HasPrefix(lower, "url(") {
		return true
	}
	if len(item) < 2 || (item[0] != '"' && item[0] != '\'') {
		return false
	}
	end := strings.IndexByte(item[1:], item[0])
	if end < 0 {
		return false
	}
	name := item[1 : end+1]
	if strings.TrimSpace(item[end+2:]) != "" {
		return true
	}
	return strings.HasSuffix(name, ".css") || strings.HasPrefix(name, "http://") ||
		strings.HasPrefix(name, "https://") || strings.HasPrefix(name, "//")
}

func importCandidates(base, name string) []string {
	p := path.Join(base, name)
	dir, file := path.Split(p)
	if path.Ext(file) == ".scss" {
		return []string{p, path.Join(dir, "_"+file)}
	}
	return []string{
		p + ".scss",
		path.Join(dir, "_"+file+".scss"),
		path.Join(p, "_index.scss"),
		path.Join(p, "index.scss"),
	}
}

// load finds an import next to the importing file or in the include paths.
func (c *compiler) load(from, name string) (string, []byte, error) {
	if c.opts.Load == nil {
		return "", nil, fmt.Errorf("can't find stylesheet to import: %s", name)
	}
	bases := append([]string{path.Dir(from)}, c.opts.IncludePaths...)
	var firstErr error
	for _, base := range bases {
		for _, candidate := range importCandidates(base, name) {
			data, err := c.opts.Load(candidate)
			if err == nil {
				return candidate, data, nil
			}
			if !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return "", nil, firstErr
	}
	return "", nil, fmt.Errorf("can't find stylesheet to import: %s", name)
}

package domain

import (
	"path"
	"strings"
)

// File is one file flowing through a pipeline.
// Path is slash-separated and relative to Base, which is relative to the
// project root.
type File struct {
	Path     string
	Base     string
	Contents []byte
	Map      *SourceMap
}

// Ext returns the extension of the file path including the dot.
func (f File) Ext() string {
	return path.Ext(f.Path)
}

// Stem returns the base name of the file without its extension.
func (f File) Stem() string {
	name := path.Base(f.Path)
	return strings.TrimSuffix(name, path.Ext(name))
}

// SourcePath returns the file path relative to the project root.
func (f File) SourcePath() string {
	if f.Base == "" || f.Base == "." {
		return f.Path
	}
	return path.Join(f.Base, f.Path)
}

// WithPath returns a copy of the file under a new relative path.
func (f File) WithPath(p string) File {
	f.Path = p
	if f.Map != nil {
		m := *f.Map
		m.File = path.Base(p)
		f.Map = &m
	}
	return f
}

// SourceMap is a revision 3 source map.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

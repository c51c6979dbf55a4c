// Package sourcemap builds, decodes and composes revision 3 source maps.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"slices"
	"strings"

	gosourcemap "github.com/go-sourcemap/sourcemap"
	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/zerr"
)

// Mapping links a position in the generated file to a position in a source.
// Lines and columns are zero-based. Source is an index into the map sources,
// or -1 for an unmapped segment.
type Mapping struct {
	GenLine      int
	GenColumn    int
	Source       int
	SourceLine   int
	SourceColumn int
}

// Builder accumulates mappings for one generated file.
type Builder struct {
	file     string
	sources  []string
	contents []string
	index    map[string]int
	mappings []Mapping
}

// NewBuilder creates a builder for the generated file name.
func NewBuilder(file string) *Builder {
	return &Builder{file: file, index: make(map[string]int)}
}

// AddSource registers a source and returns its index.
// Adding the same path twice returns the first index.
func (b *Builder) AddSource(path, content string) int {
	if i, ok := b.index[path]; ok {
		return i
	}
	i := len(b.sources)
	b.index[path] = i
	b.sources = append(b.sources, path)
	b.contents = append(b.contents, content)
	return i
}

// Add records a mapping.
func (b *Builder) Add(m Mapping) {
	b.mappings = append(b.mappings, m)
}

// Len returns the number of recorded mappings.
func (b *Builder) Len() int {
	return len(b.mappings)
}

// Map encodes the recorded mappings.
func (b *Builder) Map() *domain.SourceMap {
	return &domain.SourceMap{
		Version:        3,
		File:           b.file,
		Sources:        slices.Clone(b.sources),
		SourcesContent: slices.Clone(b.contents),
		Names:          []string{},
		Mappings:       Encode(b.mappings),
	}
}

// Encode serializes mappings to the base64 VLQ form.
func Encode(mappings []Mapping) string {
	sorted := slices.Clone(mappings)
	slices.SortStableFunc(sorted, func(a, b Mapping) int {
		if a.GenLine != b.GenLine {
			return a.GenLine - b.GenLine
		}
		return a.GenColumn - b.GenColumn
	})

	var (
		out                                 strings.Builder
		line, prevCol                       int
		prevSource, prevSrcLine, prevSrcCol int
		first                               = true
	)
	for _, m := range sorted {
		for line < m.GenLine {
			out.WriteByte(';')
			line++
			prevCol = 0
			first = true
		}
		if !first {
			out.WriteByte(',')
		}
		first = false

		writeVLQ(&out, m.GenColumn-prevCol)
		prevCol = m.GenColumn
		if m.Source < 0 {
			continue
		}
		writeVLQ(&out, m.Source-prevSource)
		writeVLQ(&out, m.SourceLine-prevSrcLine)
		writeVLQ(&out, m.SourceColumn-prevSrcCol)
		prevSource, prevSrcLine, prevSrcCol = m.Source, m.SourceLine, m.SourceColumn
	}
	return out.String()
}

// Decode parses a base64 VLQ mappings string. Name indexes are dropped.
func Decode(s string) ([]Mapping, error) {
	var (
		out                     []Mapping
		line, col               int
		source, srcLine, srcCol int
	)
	for i := 0; i < len(s); {
		switch s[i] {
		case ';':
			line++
			col = 0
			i++
			continue
		case ',':
			i++
			continue
		}

		var fields [5]int
		n := 0
		for i < len(s) && s[i] != ',' && s[i] != ';' {
			if n == len(fields) {
				return nil, zerr.With(zerr.Wrap(ErrInvalidMappings, ""), "offset", i)
			}
			v, next, err := readVLQ(s, i)
			if err != nil {
				return nil, err
			}
			fields[n] = v
			n++
			i = next
		}

		col += fields[0]
		m := Mapping{GenLine: line, GenColumn: col, Source: -1}
		switch n {
		case 1:
		case 4, 5:
			source += fields[1]
			srcLine += fields[2]
			srcCol += fields[3]
			m.Source, m.SourceLine, m.SourceColumn = source, srcLine, srcCol
		default:
			return nil, zerr.With(zerr.Wrap(ErrInvalidMappings, ""), "segment_fields", n)
		}
		out = append(out, m)
	}
	return out, nil
}

// Identity returns a map pointing every line of content at the same line of source.
func Identity(file, source, content string) *domain.SourceMap {
	b := NewBuilder(file)
	src := b.AddSource(source, content)
	lines := strings.Count(content, "\n") + 1
	for l := range lines {
		b.Add(Mapping{GenLine: l, Source: src, SourceLine: l})
	}
	return b.Map()
}

// Compose maps the generated positions of outer through inner.
// outer describes a transformation of the file that inner was generated for,
// so the result points directly at the original sources of inner.
// A nil inner returns outer unchanged.
func Compose(outer, inner *domain.SourceMap) (*domain.SourceMap, error) {
	if inner == nil || inner.Mappings == "" {
		return outer, nil
	}
	if outer == nil {
		return inner, nil
	}

	raw, err := Marshal(inner)
	if err != nil {
		return nil, err
	}
	consumer, err := gosourcemap.Parse("", raw)
	if err != nil {
		return nil, zerr.Wrap(err, ErrInvalidMappings.Error())
	}

	mappings, err := Decode(outer.Mappings)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(outer.File)
	for _, m := range mappings {
		if m.Source < 0 {
			continue
		}
		source, _, line, col, ok := consumer.Source(m.SourceLine+1, m.SourceColumn)
		if !ok || source == "" {
			continue
		}
		idx := b.AddSource(source, consumer.SourceContent(source))
		b.Add(Mapping{
			GenLine:      m.GenLine,
			GenColumn:    m.GenColumn,
			Source:       idx,
			SourceLine:   line - 1,
			SourceColumn: col,
		})
	}
	return b.Map(), nil
}

// Shift returns a copy of m whose generated lines are moved down by lines.
func Shift(m *domain.SourceMap, lines int) (*domain.SourceMap, error) {
	mappings, err := Decode(m.Mappings)
	if err != nil {
		return nil, err
	}
	for i := range mappings {
		mappings[i].GenLine += lines
	}
	out := *m
	out.Mappings = Encode(mappings)
	return &out, nil
}

// Marshal encodes the map as JSON.
func Marshal(m *domain.SourceMap) ([]byte, error) {
	out := *m
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to marshal source map")
	}
	return b, nil
}

// Unmarshal decodes a JSON source map.
func Unmarshal(b []byte) (*domain.SourceMap, error) {
	var m domain.SourceMap
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal source map")
	}
	return &m, nil
}

// Comment returns the sourceMappingURL comment for a file with the given
// extension. CSS files get a block comment, everything else a line comment.
func Comment(ext, url string) string {
	if strings.EqualFold(ext, ".css") {
		return "/*# sourceMappingURL=" + url + " */"
	}
	return "//# sourceMappingURL=" + url
}

// InlineURL returns the map as a base64 data URL.
func InlineURL(m *domain.SourceMap) (string, error) {
	b, err := Marshal(m)
	if err != nil {
		return "", err
	}
	return "data:application/json;charset=utf8;base64," + base64.StdEncoding.EncodeToString(b), nil
}

// LineCount returns the number of lines in content.
func LineCount(content []byte) int {
	return strings.Count(string(content), "\n") + 1
}

package domain

import "strings"

// FileSet is a named group of path globs.
// Globs are slash-separated and relative to the project root.
type FileSet struct {
	Name    string
	Include []string
	Exclude []string
}

// ParseFileSet builds a FileSet from a glob list where entries prefixed with
// "!" are exclusions.
func ParseFileSet(name string, globs []string) FileSet {
	fs := FileSet{Name: name}
	for _, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(g, "!"); ok {
			fs.Exclude = append(fs.Exclude, strings.TrimPrefix(rest, "./"))
			continue
		}
		fs.Include = append(fs.Include, strings.TrimPrefix(g, "./"))
	}
	return fs
}

// IsEmpty reports whether the set has no include globs.
func (fs FileSet) IsEmpty() bool {
	return len(fs.Include) == 0
}

// Globs returns the set back in its "!"-prefixed list form.
func (fs FileSet) Globs() []string {
	out := make([]string, 0, len(fs.Include)+len(fs.Exclude))
	out = append(out, fs.Include...)
	for _, e := range fs.Exclude {
		out = append(out, "!"+e)
	}
	return out
}

package stylesheet

import "sort"

// LineIndex converts byte offsets into zero-based line and column numbers.
type LineIndex struct {
	starts []int
}

// NewLineIndex indexes the line starts of content.
func NewLineIndex(content []byte) LineIndex {
	starts := []int{0}
	for i, c := range content {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return LineIndex{starts: starts}
}

// Position returns the zero-based line and column of a byte offset.
func (l LineIndex) Position(offset int) (line, column int) {
	line = sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	return line, offset - l.starts[line]
}

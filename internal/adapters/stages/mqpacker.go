package stages

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/basis/internal/stylesheet"
)

var minWidth = regexp.MustCompile(`(?i)min-width\s*:\s*([0-9.]+)\s*(px|em|rem)?`)

// packMedia merges top-level @media blocks sharing the same query into a
// single block appended after all other nodes. With sort, min-width queries
// come first in ascending order and the rest keep their original order.
func packMedia(nodes []stylesheet.Node, sort bool) []stylesheet.Node {
	var (
		out    = make([]stylesheet.Node, 0, len(nodes))
		packed []*stylesheet.AtRule
		byKey  = make(map[string]*stylesheet.AtRule)
	)
	for _, n := range nodes {
		a, ok := n.(*stylesheet.AtRule)
		if !ok || !a.IsMedia() {
			out = append(out, n)
			continue
		}
		key := strings.Join(strings.Fields(strings.ToLower(a.Params)), " ")
		if existing, ok := byKey[key]; ok {
			existing.Body = append(existing.Body, a.Body...)
			continue
		}
		merged := *a
		merged.Body = slices.Clone(a.Body)
		byKey[key] = &merged
		packed = append(packed, &merged)
	}

	if sort {
		slices.SortStableFunc(packed, func(a, b *stylesheet.AtRule) int {
			wa, oka := mediaMinWidth(a.Params)
			wb, okb := mediaMinWidth(b.Params)
			switch {
			case oka && okb:
				switch {
				case wa < wb:
					return -1
				case wa > wb:
					return 1
				}
				return 0
			case oka:
				return -1
			case okb:
				return 1
			}
			return 0
		})
	}

	for _, a := range packed {
		out = append(out, a)
	}
	return out
}

// mediaMinWidth returns the min-width of a query in pixels.
func mediaMinWidth(params string) (float64, bool) {
	m := minWidth.FindStringSubmatch(params)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "em", "rem":
		v *= 16
	}
	return v, true
}

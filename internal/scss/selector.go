package scss

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/basis/internal/stylesheet"
)

var placeholder = regexp.MustCompile(`%[a-zA-Z_-]`)

// normalizeSelector collapses whitespace and spaces combinators.
func normalizeSelector(s string) string {
	var (
		b     strings.Builder
		depth int
		quote byte
		space bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case isSpace(c):
			space = true
			continue
		case depth == 0 && (c == '>' || c == '+' || c == '~'):
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(c)
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
		b.WriteByte(c)
	}
	return b.String()
}

func splitSelectors(text string) []string {
	var out []string
	for _, part := range splitTopLevel(text, ',') {
		if sel := normalizeSelector(part); sel != "" {
			out = append(out, sel)
		}
	}
	return out
}

// resolveSelectors combines nested selectors with their parents.
func resolveSelectors(parents, children []string) ([]string, error) {
	if parents == nil {
		for _, c := range children {
			if strings.Contains(c, "&") {
				return nil, fmt.Errorf("top-level selectors may not contain the parent selector \"&\"")
			}
		}
		return children, nil
	}
	out := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, c := range children {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
			} else {
				out = append(out, p+" "+c)
			}
		}
	}
	return out, nil
}

type extension struct {
	target    string
	extenders []string
	optional  bool
	pos       stylesheet.Pos
	matched   bool
}

// replaceSimple substitutes target where it appears as a whole simple selector.
func replaceSimple(sel, target, with string) (string, bool) {
	var (
		b     strings.Builder
		found bool
	)
	for i := 0; i < len(sel); {
		j := strings.Index(sel[i:], target)
		if j < 0 {
			b.WriteString(sel[i:])
			break
		}
		j += i
		end := j + len(target)
		before := j == 0 || !isNameByte(sel[j-1]) || strings.ContainsRune(".#%:[", rune(target[0]))
		if isNameByte(target[0]) && j > 0 && strings.ContainsRune(".#%-", rune(sel[j-1])) {
			before = false
		}
		after := end == len(sel) || !isNameByte(sel[end])
		b.WriteString(sel[i:j])
		if before && after {
			b.WriteString(with)
			found = true
		} else {
			b.WriteString(target)
		}
		i = end
	}
	return b.String(), found
}

// applyExtends adds extending selectors to matching rules and drops
// placeholder selectors.
func applyExtends(nodes []stylesheet.Node, exts []*extension) []stylesheet.Node {
	out := nodes[:0]
	for _, n := range nodes {
		switch v := n.(type) {
		case *stylesheet.Rule:
			v.Selectors = extendSelectors(v.Selectors, exts)
			v.Selectors = slices.DeleteFunc(v.Selectors, placeholder.MatchString)
			if len(v.Selectors) == 0 {
				continue
			}
		case *stylesheet.AtRule:
			v.Body = applyExtends(v.Body, exts)
		}
		out = append(out, n)
	}
	return out
}

func extendSelectors(sels []string, exts []*extension) []string {
	if len(exts) == 0 {
		return sels
	}
	out := slices.Clone(sels)
	// applied records the extensions that produced each selector so an
	// extension never rewrites its own output.
	applied := make([][]int, len(out))
	for i := 0; i < len(out); i++ {
		for k, ext := range exts {
			if slices.Contains(applied[i], k) {
				continue
			}
			for _, e := range ext.extenders {
				sel, ok := replaceSimple(out[i], ext.target, e)
				if !ok {
					continue
				}
				ext.matched = true
				if !slices.Contains(out, sel) {
					out = append(out, sel)
					applied = append(applied, append(slices.Clone(applied[i]), k))
				}
			}
		}
	}
	return out
}

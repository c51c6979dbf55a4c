package scss

import (
	"fmt"
	"strings"
)

// interp is text with embedded #{} expressions, and with $variable
// references when parsed for at-rule parameters.
type interp struct {
	parts []interpPart
}

type interpPart struct {
	lit      string
	expr     expr
	variable string
}

func parseInterp(text string, vars bool) (*interp, error) {
	out := &interp{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out.parts = append(out.parts, interpPart{lit: lit.String()})
			lit.Reset()
		}
	}
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '#' && i+1 < len(text) && text[i+1] == '{':
			end := matchBrace(text, i+1)
			if end < 0 {
				return nil, fmt.Errorf("expected \"}\"")
			}
			x, err := parseExpr(text[i+2 : end])
			if err != nil {
				return nil, err
			}
			flush()
			out.parts = append(out.parts, interpPart{expr: x})
			i = end
		case quote != 0:
			lit.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				i++
				lit.WriteByte(text[i])
			} else if c == quote {
				quote = 0
			}
		case vars && (c == '"' || c == '\''):
			quote = c
			lit.WriteByte(c)
		case vars && c == '$' && i+1 < len(text) && isNameStart(text[i+1]):
			j := i + 1
			for j < len(text) && isNameByte(text[j]) {
				j++
			}
			flush()
			out.parts = append(out.parts, interpPart{variable: normalizeName(text[i+1 : j])})
			i = j - 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return out, nil
}

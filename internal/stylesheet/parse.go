package stylesheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// SyntaxError reports malformed CSS. Line and Column are one-based.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

type frame struct {
	body  *[]Node
	at    *AtRule
	raw   *strings.Builder
	depth int
}

// Parse parses plain CSS. Positions in the returned tree refer to source.
func Parse(source string, content []byte) (*Stylesheet, error) {
	sheet := &Stylesheet{}
	lines := NewLineIndex(content)
	p := css.NewParser(parse.NewInputBytes(content), false)

	stack := []frame{{body: &sheet.Nodes}}
	prev := 0

	pos := func(start int, skipComments bool) Pos {
		off := skipSpace(content, start, skipComments)
		line, col := lines.Position(off)
		return Pos{Source: source, Line: line, Column: col}
	}

	for {
		gt, tt, data := p.Next()
		start := prev
		prev = p.Offset()
		top := &stack[len(stack)-1]

		switch gt {
		case css.ErrorGrammar:
			err := p.Err()
			if errors.Is(err, io.EOF) && !p.HasParseError() {
				if len(stack) > 1 {
					return nil, eofError(lines, len(content))
				}
				return sheet, nil
			}
			var perr *parse.Error
			if errors.As(err, &perr) {
				return nil, &SyntaxError{Line: perr.Line, Column: perr.Column, Message: perr.Message}
			}
			return nil, &SyntaxError{Line: 1, Column: 1, Message: err.Error()}

		case css.CommentGrammar:
			*top.body = append(*top.body, &Comment{Text: string(data), Pos: pos(start, false)})

		case css.AtRuleGrammar:
			*top.body = append(*top.body, &AtRule{
				Name:   strings.ToLower(string(data[1:])),
				Params: formatParams(p.Values()),
				Depth:  top.depth,
				Pos:    pos(start, true),
			})

		case css.BeginAtRuleGrammar:
			at := &AtRule{
				Name:     strings.ToLower(string(data[1:])),
				Params:   formatParams(p.Values()),
				HasBlock: true,
				Depth:    top.depth,
				Pos:      pos(start, true),
			}
			*top.body = append(*top.body, at)
			stack = append(stack, frame{body: &at.Body, at: at, raw: &strings.Builder{}, depth: top.depth + 1})

		case css.BeginRulesetGrammar:
			r := &Rule{
				Selectors: formatSelectors(p.Values()),
				Depth:     top.depth,
				Pos:       pos(start, true),
			}
			*top.body = append(*top.body, r)
			stack = append(stack, frame{body: &r.Body, depth: top.depth + 1})

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if tt == css.ErrorToken {
				return nil, eofError(lines, len(content))
			}
			if len(stack) == 1 {
				line, col := lines.Position(start)
				return nil, &SyntaxError{Line: line + 1, Column: col + 1, Message: "unexpected '}'"}
			}
			if top.at != nil && top.raw.Len() > 0 {
				top.at.Raw = strings.TrimSpace(top.raw.String())
			}
			stack = stack[:len(stack)-1]

		case css.DeclarationGrammar:
			value, important := formatValue(p.Values())
			*top.body = append(*top.body, &Decl{
				Property:  string(data),
				Value:     value,
				Important: important,
				Pos:       pos(start, true),
			})

		case css.CustomPropertyGrammar:
			var value string
			if vals := p.Values(); len(vals) > 0 {
				value = strings.TrimSpace(string(vals[0].Data))
			}
			*top.body = append(*top.body, &Decl{Property: string(data), Value: value, Pos: pos(start, true)})

		case css.TokenGrammar:
			if top.raw != nil {
				top.raw.Write(data)
			}

		case css.QualifiedRuleGrammar:
		}
	}
}

func eofError(lines LineIndex, end int) error {
	line, col := lines.Position(end)
	return &SyntaxError{Line: line + 1, Column: col + 1, Message: "unclosed block, expected '}'"}
}

// skipSpace returns the offset of the first significant byte at or after i.
func skipSpace(b []byte, i int, skipComments bool) int {
	for i < len(b) {
		switch {
		case b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r' || b[i] == '\f' || b[i] == ';':
			i++
		case skipComments && bytes.HasPrefix(b[i:], []byte("/*")):
			end := bytes.Index(b[i+2:], []byte("*/"))
			if end < 0 {
				return len(b)
			}
			i += end + 4
		default:
			return i
		}
	}
	return i
}

func formatValue(tokens []css.Token) (string, bool) {
	var b strings.Builder
	important := false
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.TokenType == css.WhitespaceToken:
			b.WriteByte(' ')
		case t.TokenType == css.CommaToken:
			b.WriteString(", ")
		case t.TokenType == css.DelimToken && len(t.Data) == 1 && t.Data[0] == '!':
			if i+1 < len(tokens) && strings.EqualFold(string(tokens[i+1].Data), "important") {
				important = true
				i++
				continue
			}
			if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
			b.WriteByte('!')
		default:
			b.Write(t.Data)
		}
	}
	return collapseSpace(b.String()), important
}

func formatParams(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		switch t.TokenType {
		case css.WhitespaceToken:
			b.WriteByte(' ')
		case css.CommaToken:
			b.WriteString(", ")
		case css.ColonToken:
			b.WriteString(": ")
		default:
			b.Write(t.Data)
		}
	}
	return collapseSpace(b.String())
}

func formatSelectors(tokens []css.Token) []string {
	var (
		out   []string
		b     strings.Builder
		level int
	)
	flush := func() {
		if s := collapseSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, t := range tokens {
		switch t.TokenType {
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			level++
		case css.RightParenthesisToken, css.RightBracketToken:
			level--
		}
		switch {
		case t.TokenType == css.CommaToken && level == 0:
			flush()
		case t.TokenType == css.WhitespaceToken:
			b.WriteByte(' ')
		case t.TokenType == css.DelimToken && level == 0 && len(t.Data) == 1 && strings.ContainsRune(">+~", rune(t.Data[0])):
			b.WriteString(" " + string(t.Data) + " ")
		default:
			b.Write(t.Data)
		}
	}
	flush()
	return out
}

// collapseSpace trims s and collapses runs of spaces outside of strings.
func collapseSpace(s string) string {
	var (
		b     strings.Builder
		quote byte
		space bool
	)
	for i := range len(s) {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == quote && (i == 0 || s[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		if c == '"' || c == '\'' {
			quote = c
		}
		b.WriteByte(c)
	}
	return b.String()
}

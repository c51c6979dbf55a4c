package scss

import (
	"fmt"
	"regexp"
	"strings"

	"go.trai.ch/basis/internal/stylesheet"
)

type stmt interface{}

type (
	ruleStmt struct {
		selector *interp
		body     []stmt
		pos      stylesheet.Pos
	}
	declStmt struct {
		name      *interp
		value     expr
		raw       *interp
		important bool
		nested    []stmt
		pos       stylesheet.Pos
	}
	varStmt struct {
		name      string
		value     expr
		isDefault bool
		isGlobal  bool
		pos       stylesheet.Pos
	}
	commentStmt struct {
		text string
		pos  stylesheet.Pos
	}
	importStmt struct {
		items []string
		pos   stylesheet.Pos
	}
	mixinStmt struct {
		name   string
		params []param
		body   []stmt
		pos    stylesheet.Pos
	}
	includeStmt struct {
		name       string
		args       []argExpr
		content    []stmt
		hasContent bool
		pos        stylesheet.Pos
	}
	contentStmt struct {
		pos stylesheet.Pos
	}
	extendStmt struct {
		selector *interp
		optional bool
		pos      stylesheet.Pos
	}
	errorStmt struct {
		message expr
		pos     stylesheet.Pos
	}
	atStmt struct {
		name     string
		params   *interp
		body     []stmt
		hasBlock bool
		pos      stylesheet.Pos
	}
)

type param struct {
	name  string
	value expr
	rest  bool
}

// unsupported directives fail compilation instead of producing wrong CSS.
var unsupported = map[string]bool{
	"if": true, "else": true, "each": true, "for": true, "while": true,
	"function": true, "return": true, "use": true, "forward": true, "at-root": true,
}

var nestedProperty = regexp.MustCompile(`^([a-zA-Z-]+)\s*:(\s+(.*))?$`)

type parser struct {
	file  string
	src   string
	pos   int
	lines stylesheet.LineIndex
	// syntaxOnly accepts unsupported directives as plain at-rules.
	syntaxOnly bool
}

func parseFile(file string, content []byte) ([]stmt, error) {
	p := &parser{file: file, src: string(content), lines: stylesheet.NewLineIndex(content)}
	return p.block(false)
}

func (p *parser) position(off int) stylesheet.Pos {
	line, col := p.lines.Position(off)
	return stylesheet.Pos{Source: p.file, Line: line, Column: col}
}

func (p *parser) errorf(off int, format string, args ...any) *Error {
	line, col := p.lines.Position(off)
	return &Error{File: p.file, Line: line + 1, Column: col + 1, Message: fmt.Sprintf(format, args...)}
}

// wrap attaches a position to an expression error.
func (p *parser) wrap(off int, err error) error {
	if err == nil {
		return nil
	}
	return p.errorf(off, "%s", err.Error())
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) hasPrefix(s string) bool { return strings.HasPrefix(p.src[p.pos:], s) }

// skipSpace skips whitespace and line comments.
func (p *parser) skipSpace() {
	for !p.eof() {
		switch {
		case isSpace(p.src[p.pos]):
			p.pos++
		case p.hasPrefix("//"):
			end := strings.IndexByte(p.src[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.src)
			} else {
				p.pos += end
			}
		default:
			return
		}
	}
}

func (p *parser) block(inBlock bool) ([]stmt, error) {
	var stmts []stmt
	for {
		p.skipSpace()
		if p.eof() {
			if inBlock {
				return nil, p.errorf(p.pos, "expected \"}\"")
			}
			return stmts, nil
		}
		start := p.pos
		var (
			s   stmt
			err error
		)
		switch c := p.src[p.pos]; {
		case c == '}':
			if !inBlock {
				return nil, p.errorf(start, "unexpected \"}\"")
			}
			p.pos++
			return stmts, nil
		case c == ';':
			p.pos++
			continue
		case p.hasPrefix("/*"):
			s, err = p.comment()
		case c == '$':
			s, err = p.variable()
		case c == '@':
			s, err = p.atRule()
		default:
			s, err = p.ruleOrDecl()
		}
		if err != nil {
			return nil, err
		}
		if s != nil {
			stmts = append(stmts, s)
		}
	}
}

func (p *parser) comment() (stmt, error) {
	start := p.pos
	end := strings.Index(p.src[p.pos+2:], "*/")
	if end < 0 {
		return nil, p.errorf(start, "unterminated comment")
	}
	p.pos += end + 4
	return commentStmt{text: p.src[start:p.pos], pos: p.position(start)}, nil
}

// scan reads up to the first of stops outside strings, parentheses and
// interpolation. Line comments are dropped. It returns the terminator, or 0 at EOF.
func (p *parser) scan(stops string) (string, byte, error) {
	var (
		b     strings.Builder
		depth int
		quote byte
	)
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && p.pos+1 < len(p.src) {
				p.pos++
				b.WriteByte(p.src[p.pos])
			} else if c == quote {
				quote = 0
			}
			p.pos++
			continue
		case c == '"' || c == '\'':
			quote = c
		case c == '#' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
			end := matchBrace(p.src, p.pos+1)
			if end < 0 {
				return "", 0, p.errorf(p.pos, "expected \"}\"")
			}
			b.WriteString(p.src[p.pos : end+1])
			p.pos = end + 1
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && p.hasPrefix("//"):
			end := strings.IndexByte(p.src[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.src)
			} else {
				p.pos += end
			}
			continue
		case depth == 0 && p.hasPrefix("/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				return "", 0, p.errorf(p.pos, "unterminated comment")
			}
			p.pos += end + 4
			b.WriteByte(' ')
			continue
		case depth == 0 && strings.IndexByte(stops, c) >= 0:
			return b.String(), c, nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return b.String(), 0, nil
}

// endStatement consumes a trailing semicolon, leaving a closing brace in place.
func (p *parser) endStatement(term byte) {
	if term == ';' {
		p.pos++
	}
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) variable() (stmt, error) {
	start := p.pos
	p.pos++
	name := normalizeName(p.ident())
	p.skipSpace()
	if p.eof() || p.src[p.pos] != ':' {
		return nil, p.errorf(p.pos, "expected \":\"")
	}
	p.pos++
	valueStart := p.pos
	text, term, err := p.scan(";}")
	if err != nil {
		return nil, err
	}
	p.endStatement(term)

	s := varStmt{name: name, pos: p.position(start)}
	text = strings.TrimSpace(text)
	for {
		lower := strings.ToLower(text)
		switch {
		case strings.HasSuffix(lower, "!default"):
			s.isDefault = true
			text = strings.TrimSpace(text[:len(text)-len("!default")])
			continue
		case strings.HasSuffix(lower, "!global"):
			s.isGlobal = true
			text = strings.TrimSpace(text[:len(text)-len("!global")])
			continue
		}
		break
	}
	s.value, err = parseExpr(text)
	if err != nil {
		return nil, p.wrap(valueStart, err)
	}
	return s, nil
}

func (p *parser) atRule() (stmt, error) {
	start := p.pos
	p.pos++
	name := strings.ToLower(p.ident())
	pos := p.position(start)
	if unsupported[name] && !p.syntaxOnly {
		return nil, p.errorf(start, "@%s is not supported", name)
	}

	switch name {
	case "import":
		return p.importRule(start)
	case "mixin":
		return p.mixin(start)
	case "include":
		return p.include(start)
	case "content":
		_, term, err := p.scan(";}")
		if err != nil {
			return nil, err
		}
		p.endStatement(term)
		return contentStmt{pos: pos}, nil
	case "extend":
		text, term, err := p.scan(";}")
		if err != nil {
			return nil, err
		}
		p.endStatement(term)
		text = strings.TrimSpace(text)
		s := extendStmt{pos: pos}
		if strings.HasSuffix(text, "!optional") {
			s.optional = true
			text = strings.TrimSpace(strings.TrimSuffix(text, "!optional"))
		}
		s.selector, err = parseInterp(text, false)
		return s, p.wrap(start, err)
	case "error", "warn", "debug":
		valueStart := p.pos
		text, term, err := p.scan(";}")
		if err != nil {
			return nil, err
		}
		p.endStatement(term)
		if name != "error" {
			return nil, nil
		}
		x, err := parseExpr(strings.TrimSpace(text))
		if err != nil {
			return nil, p.wrap(valueStart, err)
		}
		return errorStmt{message: x, pos: pos}, nil
	}

	paramStart := p.pos
	text, term, err := p.scan("{;}")
	if err != nil {
		return nil, err
	}
	vars := name == "media" || name == "supports"
	params, err := parseInterp(strings.TrimSpace(text), vars)
	if err != nil {
		return nil, p.wrap(paramStart, err)
	}
	s := atStmt{name: name, params: params, pos: pos}
	if term == '{' {
		p.pos++
		s.hasBlock = true
		if s.body, err = p.block(true); err != nil {
			return nil, err
		}
		return s, nil
	}
	p.endStatement(term)
	return s, nil
}

func (p *parser) importRule(start int) (stmt, error) {
	text, term, err := p.scan(";}")
	if err != nil {
		return nil, err
	}
	p.endStatement(term)
	s := importStmt{pos: p.position(start)}
	for _, item := range splitTopLevel(text, ',') {
		if item = strings.TrimSpace(item); item != "" {
			s.items = append(s.items, item)
		}
	}
	if len(s.items) == 0 {
		return nil, p.errorf(start, "expected file to import")
	}
	return s, nil
}

func (p *parser) mixin(start int) (stmt, error) {
	p.skipSpace()
	s := mixinStmt{name: normalizeName(p.ident()), pos: p.position(start)}
	if s.name == "" {
		return nil, p.errorf(p.pos, "expected mixin name")
	}
	p.skipSpace()
	if !p.eof() && p.src[p.pos] == '(' {
		end := matchParen(p.src, p.pos)
		if end < 0 {
			return nil, p.errorf(p.pos, "expected \")\"")
		}
		params, err := parseParams(p.src[p.pos+1 : end])
		if err != nil {
			return nil, p.wrap(p.pos, err)
		}
		s.params = params
		p.pos = end + 1
		p.skipSpace()
	}
	if p.eof() || p.src[p.pos] != '{' {
		return nil, p.errorf(p.pos, "expected \"{\"")
	}
	p.pos++
	body, err := p.block(true)
	if err != nil {
		return nil, err
	}
	s.body = body
	return s, nil
}

func parseParams(src string) ([]param, error) {
	args, err := parseArgs(src)
	if err != nil {
		return nil, err
	}
	params := make([]param, 0, len(args))
	for _, a := range args {
		switch {
		case a.name != "":
			params = append(params, param{name: a.name, value: a.value})
		default:
			v, ok := a.value.(varRef)
			if !ok {
				return nil, fmt.Errorf("expected variable")
			}
			params = append(params, param{name: v.name, rest: a.rest})
		}
	}
	return params, nil
}

func (p *parser) include(start int) (stmt, error) {
	p.skipSpace()
	s := includeStmt{name: normalizeName(p.ident()), pos: p.position(start)}
	if s.name == "" {
		return nil, p.errorf(p.pos, "expected mixin name")
	}
	p.skipSpace()
	if !p.eof() && p.src[p.pos] == '(' {
		end := matchParen(p.src, p.pos)
		if end < 0 {
			return nil, p.errorf(p.pos, "expected \")\"")
		}
		args, err := parseArgs(p.src[p.pos+1 : end])
		if err != nil {
			return nil, p.wrap(p.pos, err)
		}
		s.args = args
		p.pos = end + 1
		p.skipSpace()
	}
	switch {
	case p.eof():
	case p.src[p.pos] == '{':
		p.pos++
		body, err := p.block(true)
		if err != nil {
			return nil, err
		}
		s.content = body
		s.hasContent = true
	case p.src[p.pos] == ';':
		p.pos++
	case p.src[p.pos] != '}':
		return nil, p.errorf(p.pos, "expected \";\"")
	}
	return s, nil
}

func (p *parser) ruleOrDecl() (stmt, error) {
	start := p.pos
	text, term, err := p.scan("{;}")
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(text)
	pos := p.position(start)

	if term == '{' {
		p.pos++
		if m := nestedProperty.FindStringSubmatch(trimmed); m != nil && (m[2] == "" || m[3] != "") && !strings.Contains(m[3], "{") {
			return p.nestedDecl(start, m[1], m[3])
		}
		sel, err := parseInterp(trimmed, false)
		if err != nil {
			return nil, p.wrap(start, err)
		}
		body, err := p.block(true)
		if err != nil {
			return nil, err
		}
		return ruleStmt{selector: sel, body: body, pos: pos}, nil
	}

	p.endStatement(term)
	colon := topLevelIndex(trimmed, ':')
	if colon < 0 {
		return nil, p.errorf(start, "expected \":\" after property name")
	}
	s, err := p.declaration(start, trimmed[:colon], trimmed[colon+1:])
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) declaration(start int, name, value string) (declStmt, error) {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	s := declStmt{pos: p.position(start)}
	var err error
	if s.name, err = parseInterp(name, false); err != nil {
		return s, p.wrap(start, err)
	}
	if lower := strings.ToLower(value); strings.HasSuffix(lower, "!important") {
		s.important = true
		value = strings.TrimSpace(value[:len(value)-len("!important")])
	}
	if strings.HasPrefix(name, "--") {
		s.raw, err = parseInterp(value, false)
		return s, p.wrap(start, err)
	}
	if value == "" {
		return s, p.errorf(start, "expected value for %q", name)
	}
	s.value, err = parseExpr(value)
	return s, p.wrap(start, err)
}

func (p *parser) nestedDecl(start int, name, value string) (stmt, error) {
	s := declStmt{pos: p.position(start)}
	if strings.TrimSpace(value) != "" {
		d, err := p.declaration(start, name, value)
		if err != nil {
			return nil, err
		}
		s = d
	} else {
		s.name = &interp{parts: []interpPart{{lit: name}}}
	}
	body, err := p.block(true)
	if err != nil {
		return nil, err
	}
	for _, child := range body {
		switch child.(type) {
		case declStmt, commentStmt:
		default:
			return nil, p.errorf(start, "only declarations are allowed in nested properties")
		}
	}
	s.nested = body
	return s, nil
}

// topLevelIndex finds c outside strings, parentheses and interpolation.
func topLevelIndex(s string, c byte) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '#' && i+1 < len(s) && s[i+1] == '{':
			if end := matchBrace(s, i+1); end > 0 {
				i = end
			}
		case ch == '(' || ch == '[':
			depth++
		case ch == ')' || ch == ']':
			depth--
		case ch == c && depth == 0:
			return i
		}
	}
	return -1
}

// splitTopLevel splits s at sep outside strings, brackets and interpolation.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	for {
		i := topLevelIndex(s, sep)
		if i < 0 {
			return append(out, s)
		}
		out = append(out, s[:i])
		s = s[i+1:]
	}
}

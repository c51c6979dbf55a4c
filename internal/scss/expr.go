package scss

import (
	"fmt"
	"strconv"
	"strings"
)

type expr interface{}

type (
	numberLit struct {
		v    float64
		unit string
	}
	colorLit  struct{ raw string }
	stringLit struct {
		text  *interp
		quote byte
	}
	identLit   struct{ name string }
	varRef     struct{ name string }
	flagLit    struct{ name string }
	interpExpr struct{ text *interp }
	parenExpr  struct{ x expr }
	unaryExpr  struct {
		op byte
		x  expr
	}
	binaryExpr struct {
		op          byte
		left, right expr
	}
	listExpr struct {
		items []expr
		sep   string
	}
	callExpr struct {
		name string
		args []argExpr
	}
	rawCall struct {
		name string
		raw  *interp
	}
)

type argExpr struct {
	name  string
	value expr
	rest  bool
}

type tokKind int

const (
	tEOF tokKind = iota
	tNumber
	tColor
	tString
	tIdent
	tVar
	tFunc
	tRawFunc
	tInterp
	tFlag
	tOp
	tComma
	tColon
	tLParen
	tRParen
	tEllipsis
)

type token struct {
	kind       tokKind
	text       string
	num        float64
	unit       string
	parts      *interp
	quote      byte
	space      bool
	spaceAfter bool
}

// rawFunctions keep their arguments verbatim apart from interpolation.
var rawFunctions = map[string]bool{
	"url": true, "calc": true, "var": true, "env": true, "clamp": true,
	"format": true, "local": true, "attr": true, "element": true,
	"expression": true, "counter": true, "counters": true,
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		space := l.skipSpace()
		if l.pos >= len(l.src) {
			l.push(token{kind: tEOF, space: space})
			return l.toks, nil
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tok.space = space
		l.push(tok)
	}
}

func (l *lexer) push(t token) {
	if n := len(l.toks); n > 0 {
		l.toks[n-1].spaceAfter = t.space
	}
	l.toks = append(l.toks, t)
}

func (l *lexer) skipSpace() bool {
	start := l.pos
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r', '\f':
			l.pos++
		default:
			if strings.HasPrefix(l.src[l.pos:], "/*") {
				end := strings.Index(l.src[l.pos+2:], "*/")
				if end < 0 {
					l.pos = len(l.src)
				} else {
					l.pos += end + 4
				}
				continue
			}
			return l.pos > start
		}
	}
	return l.pos > start
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) prevAllowsSign() bool {
	if len(l.toks) == 0 {
		return true
	}
	switch l.toks[len(l.toks)-1].kind {
	case tOp, tComma, tLParen, tColon:
		return true
	}
	return false
}

func (l *lexer) next() (token, error) {
	c := l.src[l.pos]
	switch {
	case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
		return l.number(), nil
	case (c == '-' || c == '+') && (isDigit(l.peekByte(1)) || (l.peekByte(1) == '.' && isDigit(l.peekByte(2)))) &&
		(l.prevAllowsSign() || (l.pos > 0 && isSpace(l.src[l.pos-1]))):
		return l.number(), nil
	case c == '"' || c == '\'':
		return l.str()
	case c == '$':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && isNameByte(l.src[l.pos]) {
			l.pos++
		}
		if start == l.pos {
			return token{}, fmt.Errorf("expected variable name")
		}
		return token{kind: tVar, text: normalizeName(l.src[start:l.pos])}, nil
	case c == '#' && l.peekByte(1) == '{':
		return l.identOrInterp()
	case c == '#':
		start := l.pos
		l.pos++
		for l.pos < len(l.src) && isNameByte(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		if _, ok := parseHexColor(text); ok {
			return token{kind: tColor, text: text}, nil
		}
		return token{kind: tIdent, text: text}, nil
	case c == '!':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && isNameByte(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tFlag, text: "!" + strings.ToLower(l.src[start:l.pos])}, nil
	case isNameStart(c) || (c == '-' && (isNameStart(l.peekByte(1)) || l.peekByte(1) == '-' || l.peekByte(1) == '#')):
		return l.identOrInterp()
	case strings.HasPrefix(l.src[l.pos:], "..."):
		l.pos += 3
		return token{kind: tEllipsis, text: "..."}, nil
	case c == '(':
		l.pos++
		return token{kind: tLParen, text: "("}, nil
	case c == ')':
		l.pos++
		return token{kind: tRParen, text: ")"}, nil
	case c == ',':
		l.pos++
		return token{kind: tComma, text: ","}, nil
	case c == ':':
		l.pos++
		return token{kind: tColon, text: ":"}, nil
	case strings.IndexByte("+-*/%", c) >= 0:
		l.pos++
		return token{kind: tOp, text: string(c)}, nil
	}
	return token{}, fmt.Errorf("unexpected character %q", c)
}

func (l *lexer) number() token {
	start := l.pos
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || (l.src[l.pos] == '.' && isDigit(l.peekByte(1)))) {
		l.pos++
	}
	v, _ := strconv.ParseFloat(l.src[start:l.pos], 64)
	unitStart := l.pos
	if l.pos < len(l.src) && l.src[l.pos] == '%' {
		l.pos++
	} else {
		for l.pos < len(l.src) && isAlpha(l.src[l.pos]) {
			l.pos++
		}
	}
	return token{kind: tNumber, text: l.src[start:l.pos], num: v, unit: l.src[unitStart:l.pos]}
}

func (l *lexer) str() (token, error) {
	quote := l.src[l.pos]
	l.pos++
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\':
			l.pos += 2
			continue
		case c == '#' && l.peekByte(1) == '{':
			end := matchBrace(l.src, l.pos+1)
			if end < 0 {
				return token{}, fmt.Errorf("expected \"}\"")
			}
			l.pos = end + 1
			continue
		case c == quote:
			body := l.src[start:l.pos]
			l.pos++
			parts, err := parseInterp(body, false)
			if err != nil {
				return token{}, err
			}
			return token{kind: tString, text: body, parts: parts, quote: quote}, nil
		}
		l.pos++
	}
	return token{}, fmt.Errorf("unterminated string")
}

// identOrInterp reads an identifier that may contain interpolations.
func (l *lexer) identOrInterp() (token, error) {
	start := l.pos
	hasInterp := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '#' && l.peekByte(1) == '{' {
			end := matchBrace(l.src, l.pos+1)
			if end < 0 {
				return token{}, fmt.Errorf("expected \"}\"")
			}
			hasInterp = true
			l.pos = end + 1
			continue
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos += 2
			continue
		}
		if !isNameByte(c) {
			break
		}
		l.pos++
	}
	text := l.src[start:l.pos]

	if !hasInterp && l.pos < len(l.src) && l.src[l.pos] == '(' {
		name := strings.ToLower(text)
		if rawFunctions[name] || strings.HasPrefix(name, "-") {
			end := matchParen(l.src, l.pos)
			if end < 0 {
				return token{}, fmt.Errorf("expected \")\"")
			}
			inner := l.src[l.pos+1 : end]
			l.pos = end + 1
			parts, err := parseInterp(inner, false)
			if err != nil {
				return token{}, err
			}
			return token{kind: tRawFunc, text: text, parts: parts}, nil
		}
		l.pos++
		return token{kind: tFunc, text: text}, nil
	}

	if hasInterp {
		parts, err := parseInterp(text, false)
		if err != nil {
			return token{}, err
		}
		return token{kind: tInterp, text: text, parts: parts}, nil
	}
	return token{kind: tIdent, text: text}, nil
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool     { return (c|0x20) >= 'a' && (c|0x20) <= 'z' }
func isSpace(c byte) bool     { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' }
func isNameStart(c byte) bool { return isAlpha(c) || c == '_' || c >= 0x80 || c == '\\' }
func isNameByte(c byte) bool  { return isNameStart(c) || isDigit(c) || c == '-' }

// normalizeName treats hyphens and underscores in names as equivalent.
func normalizeName(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}

type exprParser struct {
	toks []token
	pos  int
}

// parseExpr parses a complete SassScript expression.
func parseExpr(src string) (expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	if p.peek().kind == tEOF {
		return nil, fmt.Errorf("expected expression")
	}
	x, err := p.commaList()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tEOF {
		return nil, fmt.Errorf("unexpected %q", t.text)
	}
	return x, nil
}

// parseArgs parses the argument list of a mixin include.
func parseArgs(src string) ([]argExpr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	args, err := p.args(tEOF)
	if err != nil {
		return nil, err
	}
	return args, nil
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) commaList() (expr, error) {
	first, err := p.spaceList()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tComma {
		return first, nil
	}
	items := []expr{first}
	for p.peek().kind == tComma {
		p.advance()
		if k := p.peek().kind; k == tEOF || k == tRParen {
			break
		}
		item, err := p.spaceList()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return listExpr{items: items, sep: ", "}, nil
}

func (p *exprParser) endsItem(t token) bool {
	switch t.kind {
	case tEOF, tComma, tRParen, tColon, tEllipsis:
		return true
	}
	return false
}

func (p *exprParser) spaceList() (expr, error) {
	first, err := p.additive()
	if err != nil {
		return nil, err
	}
	items := []expr{first}
	for !p.endsItem(p.peek()) {
		item, err := p.additive()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 1 {
		return first, nil
	}
	return listExpr{items: items, sep: " "}, nil
}

func (p *exprParser) additive() (expr, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		// "a -b" starts a new list item
		if t.space && !t.spaceAfter {
			return left, nil
		}
		p.advance()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: t.text[0], left: left, right: right}
	}
}

func (p *exprParser) multiplicative() (expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tOp || (t.text != "*" && t.text != "/" && t.text != "%") {
			return left, nil
		}
		p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: t.text[0], left: left, right: right}
	}
}

func (p *exprParser) unary() (expr, error) {
	t := p.peek()
	if t.kind == tOp && (t.text == "-" || t.text == "+" || t.text == "/") {
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: t.text[0], x: x}, nil
	}
	return p.primary()
}

func (p *exprParser) primary() (expr, error) {
	t := p.advance()
	switch t.kind {
	case tNumber:
		return numberLit{v: t.num, unit: t.unit}, nil
	case tColor:
		return colorLit{raw: t.text}, nil
	case tString:
		return stringLit{text: t.parts, quote: t.quote}, nil
	case tIdent:
		return identLit{name: t.text}, nil
	case tVar:
		return varRef{name: t.text}, nil
	case tFlag:
		return flagLit{name: t.text}, nil
	case tInterp:
		return interpExpr{text: t.parts}, nil
	case tRawFunc:
		return rawCall{name: t.text, raw: t.parts}, nil
	case tFunc:
		args, err := p.args(tRParen)
		if err != nil {
			return nil, err
		}
		return callExpr{name: t.text, args: args}, nil
	case tLParen:
		if p.peek().kind == tRParen {
			p.advance()
			return listExpr{sep: " "}, nil
		}
		x, err := p.commaList()
		if err != nil {
			return nil, err
		}
		if p.advance().kind != tRParen {
			return nil, fmt.Errorf("expected \")\"")
		}
		return parenExpr{x: x}, nil
	case tEOF:
		return nil, fmt.Errorf("expected expression")
	}
	return nil, fmt.Errorf("unexpected %q", t.text)
}

// args parses comma separated, optionally named arguments up to end.
func (p *exprParser) args(end tokKind) ([]argExpr, error) {
	var args []argExpr
	for {
		if p.peek().kind == end {
			p.advance()
			return args, nil
		}
		var arg argExpr
		if p.peek().kind == tVar && p.toks[p.pos+1].kind == tColon {
			arg.name = p.advance().text
			p.advance()
		}
		v, err := p.spaceList()
		if err != nil {
			return nil, err
		}
		arg.value = v
		if p.peek().kind == tEllipsis {
			p.advance()
			arg.rest = true
		}
		args = append(args, arg)
		switch p.peek().kind {
		case tComma:
			p.advance()
		case end:
		default:
			return nil, fmt.Errorf("expected \",\" or \")\"")
		}
	}
}

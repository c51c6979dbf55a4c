package scss

import (
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/basis/internal/stylesheet"
)

type env struct {
	vars   map[string]value
	parent *env
}

func newEnv(parent *env) *env {
	return &env{vars: make(map[string]value), parent: parent}
}

func (e *env) lookup(name string) (value, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (e *env) global() *env {
	s := e
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// assign updates the nearest local scope defining name, or defines it in e.
// Globals are only changed with !global.
func (e *env) assign(name string, v value, global bool) {
	if global {
		e.global().vars[name] = v
		return
	}
	for s := e; s != nil && s.parent != nil; s = s.parent {
		if _, ok := s.vars[name]; ok {
			s.vars[name] = v
			return
		}
	}
	e.vars[name] = v
}

type mixin struct {
	def mixinStmt
	env *env
}

type contentBlock struct {
	body   []stmt
	env    *env
	parent *contentBlock
}

// frame is the evaluation context of a block.
type frame struct {
	env       *env
	selectors []string
	// decls receives declarations; nil inside @media blocks until a
	// declaration needs a rule for the current selectors.
	decls     *[]stylesheet.Node
	container *[]stylesheet.Node
	// outer holds the container of the enclosing @media rule.
	outer       *[]stylesheet.Node
	media       string
	inKeyframes bool
	depth       int
	content     *contentBlock
	file        string
}

func (f *frame) child() *frame {
	c := *f
	c.env = newEnv(f.env)
	return &c
}

type compiler struct {
	opts      Options
	mixins    map[string]*mixin
	extends   []*extension
	sources   map[string]string
	importing []string
}

func (c *compiler) run(stmts []stmt, f *frame) error {
	for _, s := range stmts {
		if err := c.exec(s, f); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) exec(s stmt, f *frame) error {
	switch s := s.(type) {
	case commentStmt:
		target := f.decls
		if target == nil {
			target = f.container
		}
		*target = append(*target, &stylesheet.Comment{Text: s.text, Pos: s.pos})
	case varStmt:
		if s.isDefault {
			if v, ok := f.env.lookup(s.name); ok && !isNull(v) {
				return nil
			}
		}
		v, err := c.eval(s.value, f.env, false)
		if err != nil {
			return errorAt(s.pos, err)
		}
		f.env.assign(s.name, v, s.isGlobal)
	case declStmt:
		return c.declaration(s, "", f)
	case ruleStmt:
		return c.rule(s, f)
	case atStmt:
		return c.atRule(s, f)
	case importStmt:
		return c.importFiles(s, f)
	case mixinStmt:
		c.mixins[s.name] = &mixin{def: s, env: f.env}
	case includeStmt:
		return c.include(s, f)
	case contentStmt:
		if f.content == nil {
			return nil
		}
		cf := f.child()
		cf.env = newEnv(f.content.env)
		cf.content = f.content.parent
		if err := c.run(f.content.body, cf); err != nil {
			return err
		}
		f.decls = cf.decls
	case extendStmt:
		if f.selectors == nil {
			return errorAt(s.pos, fmt.Errorf("@extend may only be used within style rules"))
		}
		text, err := c.interpolate(s.selector, f.env)
		if err != nil {
			return errorAt(s.pos, err)
		}
		for _, target := range splitSelectors(text) {
			c.extends = append(c.extends, &extension{
				target:    target,
				extenders: f.selectors,
				optional:  s.optional,
				pos:       s.pos,
			})
		}
	case errorStmt:
		v, err := c.eval(s.message, f.env, false)
		if err != nil {
			return errorAt(s.pos, err)
		}
		return errorAt(s.pos, fmt.Errorf("%s", unquoted(v)))
	}
	return nil
}

// declTarget returns where declarations of f go, creating a rule for the
// current selectors when needed.
func (c *compiler) declTarget(f *frame, pos stylesheet.Pos) (*[]stylesheet.Node, error) {
	if f.decls != nil {
		return f.decls, nil
	}
	if f.selectors == nil {
		return nil, errorAt(pos, fmt.Errorf("declarations may only be used within style rules"))
	}
	r := &stylesheet.Rule{Selectors: f.selectors, Depth: f.depth, Pos: pos}
	*f.container = append(*f.container, r)
	f.decls = &r.Body
	return f.decls, nil
}

func (c *compiler) declaration(s declStmt, prefix string, f *frame) error {
	target, err := c.declTarget(f, s.pos)
	if err != nil {
		return err
	}
	name, err := c.interpolate(s.name, f.env)
	if err != nil {
		return errorAt(s.pos, err)
	}
	name = strings.TrimSpace(name)
	if prefix != "" {
		name = prefix + "-" + name
	}

	var text string
	switch {
	case s.raw != nil:
		if text, err = c.interpolate(s.raw, f.env); err != nil {
			return errorAt(s.pos, err)
		}
	case s.value != nil:
		v, err := c.eval(s.value, f.env, false)
		if err != nil {
			return errorAt(s.pos, err)
		}
		text = v.css()
	}
	if text != "" || s.raw != nil {
		*target = append(*target, &stylesheet.Decl{
			Property:  name,
			Value:     text,
			Important: s.important,
			Pos:       s.pos,
		})
	}

	for _, n := range s.nested {
		switch n := n.(type) {
		case declStmt:
			if err := c.declaration(n, name, f); err != nil {
				return err
			}
		case commentStmt:
			*target = append(*target, &stylesheet.Comment{Text: n.text, Pos: n.pos})
		}
	}
	return nil
}

func (c *compiler) rule(s ruleStmt, f *frame) error {
	text, err := c.interpolate(s.selector, f.env)
	if err != nil {
		return errorAt(s.pos, err)
	}
	selectors := splitSelectors(text)
	if len(selectors) == 0 {
		return errorAt(s.pos, fmt.Errorf("expected selector"))
	}
	if !f.inKeyframes {
		if selectors, err = resolveSelectors(f.selectors, selectors); err != nil {
			return errorAt(s.pos, err)
		}
	}

	r := &stylesheet.Rule{Selectors: selectors, Depth: f.depth, Pos: s.pos}
	*f.container = append(*f.container, r)

	rf := f.child()
	rf.selectors = selectors
	rf.decls = &r.Body
	rf.inKeyframes = false
	rf.depth = f.depth + 1
	return c.run(s.body, rf)
}

func (c *compiler) atRule(s atStmt, f *frame) error {
	params, err := c.interpolate(s.params, f.env)
	if err != nil {
		return errorAt(s.pos, err)
	}
	params = normalizeSelector(params)
	at := &stylesheet.AtRule{Name: s.name, Params: params, HasBlock: s.hasBlock, Depth: f.depth, Pos: s.pos}

	if !s.hasBlock {
		target := f.container
		if f.decls != nil {
			target = f.decls
		}
		*target = append(*target, at)
		return nil
	}

	af := f.child()
	af.container = &at.Body
	af.depth = f.depth + 1
	switch {
	case s.name == "media":
		if f.media != "" {
			at.Params = mergeMedia(f.media, params)
			*f.outer = append(*f.outer, at)
			af.outer = f.outer
		} else {
			*f.container = append(*f.container, at)
			af.outer = f.container
		}
		af.media = at.Params
		af.decls = nil
	case s.name == "supports":
		*f.container = append(*f.container, at)
		af.media = ""
		af.outer = nil
		af.decls = nil
	case strings.HasSuffix(s.name, "keyframes"):
		*f.container = append(*f.container, at)
		af.selectors = nil
		af.decls = nil
		af.inKeyframes = true
	default:
		*f.container = append(*f.container, at)
		af.selectors = nil
		af.decls = &at.Body
	}
	return c.run(s.body, af)
}

// mergeMedia combines nested media queries with "and".
func mergeMedia(outer, inner string) string {
	var out []string
	for _, o := range splitTopLevel(outer, ',') {
		for _, i := range splitTopLevel(inner, ',') {
			out = append(out, strings.TrimSpace(o)+" and "+strings.TrimSpace(i))
		}
	}
	return strings.Join(out, ", ")
}

func (c *compiler) importFiles(s importStmt, f *frame) error {
	for _, item := range s.items {
		if isPlainImport(item) {
			*f.container = append(*f.container, &stylesheet.AtRule{Name: "import", Params: item, Depth: f.depth, Pos: s.pos})
			continue
		}
		name := strings.Trim(item, `"'`)
		file, data, err := c.load(f.file, name)
		if err != nil {
			return errorAt(s.pos, err)
		}
		if slices.Contains(c.importing, file) {
			return errorAt(s.pos, fmt.Errorf("this file is already being loaded: %s", file))
		}
		c.sources[file] = string(data)
		stmts, err := parseFile(file, data)
		if err != nil {
			return err
		}
		c.importing = append(c.importing, file)
		imported := *f
		imported.file = file
		if err := c.run(stmts, &imported); err != nil {
			return err
		}
		c.importing = c.importing[:len(c.importing)-1]
		// declarations may have created a rule lazily
		f.decls = imported.decls
	}
	return nil
}

func (c *compiler) include(s includeStmt, f *frame) error {
	m, ok := c.mixins[s.name]
	if !ok {
		return errorAt(s.pos, fmt.Errorf("undefined mixin %q", s.name))
	}
	scope := newEnv(m.env)
	if err := c.bind(m.def, s.args, f.env, scope); err != nil {
		return errorAt(s.pos, err)
	}
	mf := *f
	mf.env = scope
	mf.content = nil
	if s.hasContent {
		mf.content = &contentBlock{body: s.content, env: f.env, parent: f.content}
	}
	if err := c.run(m.def.body, &mf); err != nil {
		return err
	}
	f.decls = mf.decls
	return nil
}

// bind evaluates include arguments in caller and defines the mixin
// parameters in scope.
func (c *compiler) bind(def mixinStmt, args []argExpr, caller, scope *env) error {
	var (
		positional []value
		named      = make(map[string]value)
	)
	for _, a := range args {
		v, err := c.eval(a.value, caller, false)
		if err != nil {
			return err
		}
		switch {
		case a.name != "":
			named[a.name] = v
		case a.rest:
			positional = append(positional, items(v)...)
		default:
			positional = append(positional, v)
		}
	}

	for i, p := range def.params {
		switch {
		case p.rest:
			var rest []value
			if i < len(positional) {
				rest = positional[i:]
			}
			scope.vars[p.name] = list{items: rest, sep: ", "}
			positional = nil
			continue
		case i < len(positional):
			scope.vars[p.name] = positional[i]
		case named[p.name] != nil:
			scope.vars[p.name] = named[p.name]
		case p.value != nil:
			v, err := c.eval(p.value, scope, false)
			if err != nil {
				return err
			}
			scope.vars[p.name] = v
		default:
			return fmt.Errorf("missing argument $%s", p.name)
		}
		delete(named, p.name)
	}
	if len(positional) > len(def.params) {
		return fmt.Errorf("mixin %s takes %d arguments but %d were passed", def.name, len(def.params), len(positional))
	}
	for name := range named {
		return fmt.Errorf("no argument named $%s", name)
	}
	return nil
}

func (c *compiler) interpolate(in *interp, e *env) (string, error) {
	var b strings.Builder
	for _, p := range in.parts {
		switch {
		case p.expr != nil:
			v, err := c.eval(p.expr, e, false)
			if err != nil {
				return "", err
			}
			b.WriteString(unquoted(v))
		case p.variable != "":
			v, ok := e.lookup(p.variable)
			if !ok {
				return "", fmt.Errorf("undefined variable $%s", p.variable)
			}
			b.WriteString(unquoted(v))
		default:
			b.WriteString(p.lit)
		}
	}
	return b.String(), nil
}

// isSlashLiteral reports whether a division keeps its slash, as in font
// shorthands, because both operands are plain numbers.
func isSlashLiteral(x expr) bool {
	switch x := x.(type) {
	case numberLit:
		return true
	case binaryExpr:
		return x.op == '/' && isSlashLiteral(x.left) && isSlashLiteral(x.right)
	}
	return false
}

func slashText(x expr) string {
	if b, ok := x.(binaryExpr); ok {
		return slashText(b.left) + "/" + slashText(b.right)
	}
	return number(x.(numberLit)).css()
}

func (c *compiler) eval(x expr, e *env, inParens bool) (value, error) {
	switch x := x.(type) {
	case numberLit:
		return number(x), nil
	case colorLit:
		col, _ := parseHexColor(x.raw)
		return col, nil
	case stringLit:
		s, err := c.interpolate(x.text, e)
		if err != nil {
			return nil, err
		}
		return str{s: s, quote: x.quote}, nil
	case identLit:
		switch x.name {
		case "null":
			return null{}, nil
		}
		return str{s: x.name}, nil
	case flagLit:
		return str{s: x.name}, nil
	case varRef:
		v, ok := e.lookup(x.name)
		if !ok {
			return nil, fmt.Errorf("undefined variable $%s", x.name)
		}
		return v, nil
	case interpExpr:
		s, err := c.interpolate(x.text, e)
		if err != nil {
			return nil, err
		}
		return str{s: s}, nil
	case parenExpr:
		return c.eval(x.x, e, true)
	case unaryExpr:
		v, err := c.eval(x.x, e, inParens)
		if err != nil {
			return nil, err
		}
		if n, ok := v.(number); ok && x.op != '/' {
			if x.op == '-' {
				n.v = -n.v
			}
			return n, nil
		}
		return str{s: string(x.op) + v.css()}, nil
	case binaryExpr:
		if x.op == '/' && !inParens && isSlashLiteral(x) {
			return str{s: slashText(x)}, nil
		}
		l, err := c.eval(x.left, e, true)
		if err != nil {
			return nil, err
		}
		r, err := c.eval(x.right, e, true)
		if err != nil {
			return nil, err
		}
		return operate(x.op, l, r)
	case listExpr:
		out := list{items: make([]value, 0, len(x.items)), sep: x.sep}
		for _, item := range x.items {
			v, err := c.eval(item, e, inParens)
			if err != nil {
				return nil, err
			}
			out.items = append(out.items, v)
		}
		return out, nil
	case callExpr:
		fn, isBuiltin := builtins[normalizeName(strings.ToLower(x.name))]
		args := make([]value, 0, len(x.args))
		for _, a := range x.args {
			v, err := c.eval(a.value, e, isBuiltin)
			if err != nil {
				return nil, err
			}
			if a.rest {
				args = append(args, items(v)...)
				continue
			}
			args = append(args, v)
		}
		if isBuiltin {
			return fn(args)
		}
		return plainCall(x.name, args), nil
	case rawCall:
		inner, err := c.interpolate(x.raw, e)
		if err != nil {
			return nil, err
		}
		if lit := strings.TrimSpace(inner); strings.EqualFold(x.name, "url") && strings.HasPrefix(lit, "$") {
			arg, err := parseExpr(lit)
			if err != nil {
				return nil, err
			}
			v, err := c.eval(arg, e, false)
			if err != nil {
				return nil, err
			}
			inner = v.css()
		}
		return str{s: x.name + "(" + inner + ")"}, nil
	}
	return nil, fmt.Errorf("cannot evaluate %T", x)
}

package stylesheet

import (
	"bytes"
	"strings"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/sourcemap"
	"go.trai.ch/zerr"
)

// Style is an output style of the printer.
type Style string

// Output styles.
const (
	StyleNested     Style = "nested"
	StyleExpanded   Style = "expanded"
	StyleCompact    Style = "compact"
	StyleCompressed Style = "compressed"
)

// ErrUnknownStyle is returned by ParseStyle for an unsupported output style.
var ErrUnknownStyle = zerr.New("unknown output style, expected nested, expanded, compact or compressed")

// ParseStyle validates an output style name.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(s)); st {
	case StyleNested, StyleExpanded, StyleCompact, StyleCompressed:
		return st, nil
	case "":
		return StyleExpanded, nil
	default:
		return "", zerr.With(zerr.Wrap(ErrUnknownStyle, ""), "style", s)
	}
}

// PrintOptions configures Print.
type PrintOptions struct {
	Style Style
	// File is the generated file name recorded in the source map.
	File string
	// SourceMap enables map generation.
	SourceMap bool
	// Contents holds the original source text by path, embedded in the map.
	Contents map[string]string
}

// Output is the printed stylesheet and its optional source map.
type Output struct {
	CSS []byte
	Map *domain.SourceMap
}

// Print serializes the stylesheet.
func Print(sheet *Stylesheet, opts PrintOptions) Output {
	if opts.Style == "" {
		opts.Style = StyleExpanded
	}
	p := &printer{opts: opts}
	if opts.SourceMap {
		p.maps = sourcemap.NewBuilder(opts.File)
	}

	switch opts.Style {
	case StyleCompressed:
		p.compressed(sheet.Nodes)
		if p.w.buf.Len() > 0 {
			p.w.WriteString("\n")
		}
	case StyleNested:
		p.block(sheet.Nodes, 0, true)
	case StyleCompact:
		p.block(sheet.Nodes, 0, true)
	default:
		p.block(sheet.Nodes, 0, true)
	}

	out := Output{CSS: p.w.buf.Bytes()}
	if p.maps != nil {
		out.Map = p.maps.Map()
	}
	return out
}

type printer struct {
	opts PrintOptions
	w    writer
	maps *sourcemap.Builder
}

func (p *printer) mark(pos Pos) {
	if p.maps == nil || pos.Source == "" {
		return
	}
	src := p.maps.AddSource(pos.Source, p.opts.Contents[pos.Source])
	p.maps.Add(sourcemap.Mapping{
		GenLine:      p.w.line,
		GenColumn:    p.w.col,
		Source:       src,
		SourceLine:   pos.Line,
		SourceColumn: pos.Column,
	})
}

func (p *printer) printable(n Node) bool {
	switch v := n.(type) {
	case *Comment:
		return p.opts.Style != StyleCompressed || v.IsPreserved()
	case *Decl:
		return true
	case *Rule:
		for _, c := range v.Body {
			if _, ok := c.(*Comment); !ok && p.printable(c) {
				return true
			}
		}
		return false
	case *AtRule:
		if !v.HasBlock || v.Raw != "" {
			return true
		}
		for _, c := range v.Body {
			if _, ok := c.(*Comment); !ok && p.printable(c) {
				return true
			}
		}
		return false
	}
	return false
}

func indentOf(n int) string {
	return strings.Repeat("  ", n)
}

// block prints nodes in the nested, expanded and compact styles.
func (p *printer) block(nodes []Node, indent int, top bool) {
	first := true
	for _, n := range nodes {
		if !p.printable(n) {
			continue
		}
		if top && !first && p.separated(n) {
			p.w.WriteString("\n")
		}
		first = false

		switch v := n.(type) {
		case *Comment:
			p.w.WriteString(indentOf(p.indent(indent, 0)) + v.Text + "\n")
		case *Decl:
			p.w.WriteString(indentOf(indent))
			p.mark(v.Pos)
			p.w.WriteString(declString(v) + ";\n")
		case *Rule:
			p.rule(v, indent)
		case *AtRule:
			p.atRule(v, indent)
		}
	}
}

// separated reports whether a blank line precedes a top-level node.
func (p *printer) separated(n Node) bool {
	if p.opts.Style != StyleNested {
		return true
	}
	switch v := n.(type) {
	case *Rule:
		return v.Depth == 0
	case *AtRule:
		return v.Depth == 0
	}
	return true
}

func (p *printer) indent(base, depth int) int {
	if p.opts.Style == StyleNested {
		return base + depth
	}
	return base
}

func (p *printer) rule(r *Rule, indent int) {
	ind := p.indent(indent, r.Depth)
	pad := indentOf(ind)
	p.w.WriteString(pad)
	p.mark(r.Pos)

	switch p.opts.Style {
	case StyleCompact:
		p.w.WriteString(strings.Join(r.Selectors, ", ") + " {")
		for _, n := range r.Body {
			if d, ok := n.(*Decl); ok {
				p.w.WriteString(" ")
				p.mark(d.Pos)
				p.w.WriteString(declString(d) + ";")
			}
		}
		p.w.WriteString(" }\n")
	case StyleNested:
		p.w.WriteString(strings.Join(r.Selectors, ",\n"+pad) + " {\n")
		p.block(r.Body, ind+1, false)
		p.w.trimNewline()
		p.w.WriteString(" }\n")
	default:
		p.w.WriteString(strings.Join(r.Selectors, ",\n"+pad) + " {\n")
		p.block(r.Body, ind+1, false)
		p.w.WriteString(pad + "}\n")
	}
}

func (p *printer) atRule(a *AtRule, indent int) {
	ind := p.indent(indent, 0)
	if p.opts.Style == StyleNested {
		ind = indent + a.Depth
	}
	pad := indentOf(ind)
	p.w.WriteString(pad)
	p.mark(a.Pos)
	p.w.WriteString("@" + a.Name)
	if a.Params != "" {
		p.w.WriteString(" " + a.Params)
	}
	if !a.HasBlock {
		p.w.WriteString(";\n")
		return
	}
	p.w.WriteString(" {\n")
	if a.Raw != "" {
		p.w.WriteString(indentOf(ind+1) + a.Raw + "\n")
	}

	childIndent := ind + 1
	if p.opts.Style == StyleNested {
		childIndent = indent
	}
	p.block(a.Body, childIndent, false)

	if p.opts.Style == StyleNested || p.opts.Style == StyleCompact {
		p.w.trimNewline()
		p.w.WriteString(" }\n")
		return
	}
	p.w.WriteString(pad + "}\n")
}

func (p *printer) compressed(nodes []Node) {
	first := true
	for _, n := range nodes {
		if !p.printable(n) {
			continue
		}
		switch v := n.(type) {
		case *Comment:
			p.w.WriteString(v.Text)
		case *Decl:
			if !first {
				p.w.WriteString(";")
			}
			p.mark(v.Pos)
			p.w.WriteString(v.Property + ":" + compress(v.Value))
			if v.Important {
				p.w.WriteString("!important")
			}
		case *Rule:
			sels := make([]string, len(v.Selectors))
			for i, s := range v.Selectors {
				sels[i] = compressSelector(s)
			}
			p.mark(v.Pos)
			p.w.WriteString(strings.Join(sels, ",") + "{")
			p.compressed(v.Body)
			p.w.WriteString("}")
		case *AtRule:
			p.mark(v.Pos)
			p.w.WriteString("@" + v.Name)
			if v.Params != "" {
				p.w.WriteString(" " + compress(v.Params))
			}
			if !v.HasBlock {
				p.w.WriteString(";")
				break
			}
			p.w.WriteString("{")
			if v.Raw != "" {
				p.w.WriteString(v.Raw)
			}
			p.compressed(v.Body)
			p.w.WriteString("}")
		}
		if _, ok := n.(*Decl); ok {
			first = false
		}
	}
}

func declString(d *Decl) string {
	s := d.Property + ": " + d.Value
	if strings.HasPrefix(d.Property, "--") && d.Value == "" {
		s = d.Property + ":"
	}
	if d.Important {
		s += " !important"
	}
	return s
}

// compress removes optional spaces after commas and colons outside of strings.
func compress(s string) string {
	var (
		b     strings.Builder
		quote byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == quote && s[i-1] != '\\' {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
		}
		b.WriteByte(c)
		if (c == ',' || c == ':') && i+1 < len(s) && s[i+1] == ' ' {
			i++
		}
	}
	return b.String()
}

func compressSelector(s string) string {
	for _, comb := range []string{" > ", " + ", " ~ "} {
		s = strings.ReplaceAll(s, comb, strings.TrimSpace(comb))
	}
	return s
}

// writer tracks the generated line and column.
type writer struct {
	buf     bytes.Buffer
	line    int
	col     int
	prevCol int
}

func (w *writer) WriteString(s string) {
	w.buf.WriteString(s)
	for i := range len(s) {
		if s[i] == '\n' {
			w.line++
			w.prevCol = w.col
			w.col = 0
			continue
		}
		w.col++
	}
}

// trimNewline removes one trailing newline so a closing brace joins the last line.
func (w *writer) trimNewline() {
	b := w.buf.Bytes()
	if len(b) == 0 || b[len(b)-1] != '\n' {
		return
	}
	w.buf.Truncate(len(b) - 1)
	w.line--
	w.col = w.prevCol
}

// Package stylesheet holds the CSS syntax tree shared by the style stages,
// a parser for plain CSS and a printer producing source mapped output.
package stylesheet

import "strings"

// Pos is a zero-based position in a source file.
type Pos struct {
	Source string
	Line   int
	Column int
}

// Node is an element of a stylesheet.
type Node interface {
	Position() Pos
}

// Comment is a block comment including its delimiters.
type Comment struct {
	Text string
	Pos  Pos
}

// Decl is a property declaration.
type Decl struct {
	Property  string
	Value     string
	Important bool
	Pos       Pos
}

// Rule is a style rule. Depth is the nesting level used by the nested output style.
type Rule struct {
	Selectors []string
	Body      []Node
	Depth     int
	Pos       Pos
}

// AtRule is an at-rule such as @media or @charset.
// Statements without a block have HasBlock unset. Raw holds the verbatim
// block content of at-rules whose body is neither rules nor declarations.
type AtRule struct {
	Name     string
	Params   string
	Body     []Node
	Raw      string
	HasBlock bool
	Depth    int
	Pos      Pos
}

// Stylesheet is a parsed or compiled stylesheet.
type Stylesheet struct {
	Nodes []Node
}

// Position implements Node.
func (c *Comment) Position() Pos { return c.Pos }

// Position implements Node.
func (d *Decl) Position() Pos { return d.Pos }

// Position implements Node.
func (r *Rule) Position() Pos { return r.Pos }

// Position implements Node.
func (a *AtRule) Position() Pos { return a.Pos }

// IsPreserved reports whether the comment survives compressed output.
func (c *Comment) IsPreserved() bool {
	return strings.HasPrefix(c.Text, "/*!")
}

// Decls returns the declarations of the rule body.
func (r *Rule) Decls() []*Decl {
	var out []*Decl
	for _, n := range r.Body {
		if d, ok := n.(*Decl); ok {
			out = append(out, d)
		}
	}
	return out
}

// IsMedia reports whether the at-rule is a media query block.
func (a *AtRule) IsMedia() bool {
	return a.HasBlock && strings.EqualFold(a.Name, "media")
}

// Walk calls fn for every node in depth-first order.
// Returning false from fn skips the children of that node.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch v := n.(type) {
		case *Rule:
			Walk(v.Body, fn)
		case *AtRule:
			Walk(v.Body, fn)
		}
	}
}

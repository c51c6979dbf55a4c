package stages

import (
	"strings"

	"go.trai.ch/basis/internal/stylesheet"
)

// propertyPrefixes lists the vendor prefixes still required by the last two
// versions of the major browsers.
var propertyPrefixes = map[string][]string{
	"animation":                  {"-webkit-"},
	"animation-delay":            {"-webkit-"},
	"animation-direction":        {"-webkit-"},
	"animation-duration":         {"-webkit-"},
	"animation-fill-mode":        {"-webkit-"},
	"animation-iteration-count":  {"-webkit-"},
	"animation-name":             {"-webkit-"},
	"animation-play-state":       {"-webkit-"},
	"animation-timing-function":  {"-webkit-"},
	"appearance":                 {"-webkit-", "-moz-"},
	"backdrop-filter":            {"-webkit-"},
	"backface-visibility":        {"-webkit-"},
	"box-decoration-break":       {"-webkit-"},
	"clip-path":                  {"-webkit-"},
	"column-count":               {"-webkit-", "-moz-"},
	"column-gap":                 {"-webkit-", "-moz-"},
	"column-rule":                {"-webkit-", "-moz-"},
	"column-width":               {"-webkit-", "-moz-"},
	"columns":                    {"-webkit-", "-moz-"},
	"filter":                     {"-webkit-"},
	"hyphens":                    {"-webkit-", "-ms-"},
	"mask":                       {"-webkit-"},
	"mask-image":                 {"-webkit-"},
	"perspective":                {"-webkit-"},
	"text-size-adjust":           {"-webkit-", "-ms-"},
	"transform":                  {"-webkit-"},
	"transform-origin":           {"-webkit-"},
	"transform-style":            {"-webkit-"},
	"transition":                 {"-webkit-"},
	"transition-delay":           {"-webkit-"},
	"transition-duration":        {"-webkit-"},
	"transition-property":        {"-webkit-"},
	"transition-timing-function": {"-webkit-"},
	"user-select":                {"-webkit-", "-moz-", "-ms-"},
}

// msFlexbox maps flexbox properties to the IE 10 syntax.
var msFlexbox = map[string]string{
	"align-content":   "-ms-flex-line-pack",
	"align-items":     "-ms-flex-align",
	"align-self":      "-ms-flex-item-align",
	"flex":            "-ms-flex",
	"flex-basis":      "-ms-flex-preferred-size",
	"flex-direction":  "-ms-flex-direction",
	"flex-flow":       "-ms-flex-flow",
	"flex-grow":       "-ms-flex-positive",
	"flex-shrink":     "-ms-flex-negative",
	"flex-wrap":       "-ms-flex-wrap",
	"justify-content": "-ms-flex-pack",
	"order":           "-ms-flex-order",
}

var msFlexValues = map[string]string{
	"flex-start":    "start",
	"flex-end":      "end",
	"space-between": "justify",
	"space-around":  "distribute",
}

var valuePrefixes = map[string]map[string][]string{
	"display": {
		"flex":        {"-webkit-box", "-ms-flexbox"},
		"inline-flex": {"-webkit-inline-box", "-ms-inline-flexbox"},
	},
	"position": {
		"sticky": {"-webkit-sticky"},
	},
}

var placeholderSelectors = []string{"::-webkit-input-placeholder", "::-moz-placeholder", ":-ms-input-placeholder"}

// prefixed returns the vendor variants to place before d.
func prefixed(d *stylesheet.Decl) []*stylesheet.Decl {
	var out []*stylesheet.Decl
	variant := func(prop, value string) {
		out = append(out, &stylesheet.Decl{Property: prop, Value: value, Important: d.Important, Pos: d.Pos})
	}
	prop := strings.ToLower(d.Property)
	for _, prefix := range propertyPrefixes[prop] {
		value := d.Value
		if strings.HasPrefix(prop, "transition") && prefix == "-webkit-" {
			value = prefixWord(value, "transform", "-webkit-transform")
		}
		variant(prefix+prop, value)
	}
	if ms, ok := msFlexbox[prop]; ok {
		value := d.Value
		if v, ok := msFlexValues[value]; ok {
			value = v
		}
		variant(ms, value)
	}
	for _, value := range valuePrefixes[prop][strings.ToLower(d.Value)] {
		variant(d.Property, value)
	}
	return out
}

// prefixWord replaces word where it appears as a whole value token.
func prefixWord(value, word, with string) string {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ' ' || r == ',' })
	for _, f := range fields {
		if f == word {
			parts := strings.Split(value, ",")
			for i, part := range parts {
				tokens := strings.Fields(part)
				for j, t := range tokens {
					if t == word {
						tokens[j] = with
					}
				}
				parts[i] = strings.Join(tokens, " ")
			}
			return strings.Join(parts, ", ")
		}
	}
	return value
}

// autoprefix inserts vendor prefixed declarations, placeholder selectors and
// keyframes. Variants already present in a block are not duplicated.
func autoprefix(nodes []stylesheet.Node) []stylesheet.Node {
	present := make(map[string]bool)
	for _, n := range nodes {
		if d, ok := n.(*stylesheet.Decl); ok {
			present[strings.ToLower(d.Property)+":"+d.Value] = true
			present[strings.ToLower(d.Property)] = true
		}
	}

	out := make([]stylesheet.Node, 0, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case *stylesheet.Decl:
			for _, p := range prefixed(v) {
				key := p.Property
				if strings.EqualFold(p.Property, v.Property) {
					key = strings.ToLower(p.Property) + ":" + p.Value
				}
				if present[key] {
					continue
				}
				present[key] = true
				out = append(out, p)
			}
			out = append(out, v)
		case *stylesheet.Rule:
			v.Body = autoprefix(v.Body)
			out = append(out, placeholderRules(v)...)
			out = append(out, v)
		case *stylesheet.AtRule:
			v.Body = autoprefix(v.Body)
			if strings.EqualFold(v.Name, "keyframes") {
				clone := *v
				clone.Name = "-webkit-keyframes"
				out = append(out, &clone)
			}
			out = append(out, v)
		default:
			out = append(out, n)
		}
	}
	return out
}

// placeholderRules copies a rule using ::placeholder once per vendor selector.
// The copies are separate rules since browsers drop groups with unknown selectors.
func placeholderRules(r *stylesheet.Rule) []stylesheet.Node {
	uses := false
	for _, s := range r.Selectors {
		if strings.Contains(s, "::placeholder") {
			uses = true
			break
		}
	}
	if !uses {
		return nil
	}
	out := make([]stylesheet.Node, 0, len(placeholderSelectors))
	for _, vendor := range placeholderSelectors {
		sels := make([]string, len(r.Selectors))
		for i, s := range r.Selectors {
			sels[i] = strings.ReplaceAll(s, "::placeholder", vendor)
		}
		out = append(out, &stylesheet.Rule{Selectors: sels, Body: r.Body, Depth: r.Depth, Pos: r.Pos})
	}
	return out
}

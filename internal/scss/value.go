package scss

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// precision is the number of decimals kept when printing numbers.
const precision = 5

type value interface {
	css() string
}

type number struct {
	v    float64
	unit string
}

type color struct {
	r, g, b float64
	a       float64
	raw     string
}

// str is a string; quote is 0 for unquoted identifiers.
type str struct {
	s     string
	quote byte
}

type list struct {
	items []value
	sep   string
}

type null struct{}

func (n number) css() string {
	return formatNumber(n.v) + n.unit
}

func (c color) css() string {
	if c.raw != "" {
		return c.raw
	}
	r, g, b := clampChannel(c.r), clampChannel(c.g), clampChannel(c.b)
	if c.a < 1 {
		return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, formatNumber(c.a))
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func (s str) css() string {
	if s.quote == 0 {
		return s.s
	}
	return string(s.quote) + s.s + string(s.quote)
}

// quoted creates a double quoted string, escaping embedded quotes.
func quoted(s string) str {
	return str{s: strings.ReplaceAll(s, `"`, `\"`), quote: '"'}
}

func (l list) css() string {
	parts := make([]string, 0, len(l.items))
	for _, item := range l.items {
		if _, ok := item.(null); ok {
			continue
		}
		parts = append(parts, item.css())
	}
	return strings.Join(parts, l.sep)
}

func (null) css() string { return "" }

func formatNumber(v float64) string {
	scale := math.Pow(10, precision)
	v = math.Round(v*scale) / scale
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clampChannel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(255, v))))
}

// unquoted returns the text of a value without string quotes.
func unquoted(v value) string {
	if s, ok := v.(str); ok {
		return s.s
	}
	return v.css()
}

func isNull(v value) bool {
	_, ok := v.(null)
	return ok
}

// compatible reports whether two units can be combined and returns the result unit.
func compatible(a, b string) (string, bool) {
	switch {
	case a == b:
		return a, true
	case a == "":
		return b, true
	case b == "":
		return a, true
	}
	return "", false
}

func operate(op byte, l, r value) (value, error) {
	ln, lok := l.(number)
	rn, rok := r.(number)
	if lok && rok {
		return operateNumbers(op, ln, rn)
	}

	lc, lcok := l.(color)
	if lcok {
		switch rv := r.(type) {
		case number:
			if op == '+' || op == '-' || op == '*' || op == '/' {
				return lc.channels(op, rv.v, rv.v, rv.v), nil
			}
		case color:
			if op == '+' || op == '-' {
				return lc.channels(op, rv.r, rv.g, rv.b), nil
			}
		}
	}

	switch op {
	case '+':
		var quote byte
		if s, ok := l.(str); ok {
			quote = s.quote
		} else if s, ok := r.(str); ok {
			quote = s.quote
		}
		return str{s: unquoted(l) + unquoted(r), quote: quote}, nil
	case '-', '/':
		return str{s: unquoted(l) + string(op) + unquoted(r)}, nil
	}
	return nil, fmt.Errorf("undefined operation %q %c %q", l.css(), op, r.css())
}

func operateNumbers(op byte, l, r number) (value, error) {
	switch op {
	case '+', '-', '%':
		unit, ok := compatible(l.unit, r.unit)
		if !ok {
			return nil, fmt.Errorf("incompatible units %s and %s", l.unit, r.unit)
		}
		switch op {
		case '+':
			return number{v: l.v + r.v, unit: unit}, nil
		case '-':
			return number{v: l.v - r.v, unit: unit}, nil
		default:
			if r.v == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			return number{v: math.Mod(l.v, r.v), unit: unit}, nil
		}
	case '*':
		if l.unit != "" && r.unit != "" {
			return nil, fmt.Errorf("%s*%s isn't a valid CSS value", l.css(), r.css())
		}
		unit := l.unit
		if unit == "" {
			unit = r.unit
		}
		return number{v: l.v * r.v, unit: unit}, nil
	case '/':
		if r.v == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		switch {
		case l.unit == r.unit:
			return number{v: l.v / r.v}, nil
		case r.unit == "":
			return number{v: l.v / r.v, unit: l.unit}, nil
		}
		return nil, fmt.Errorf("%s/%s isn't a valid CSS value", l.css(), r.css())
	}
	return nil, fmt.Errorf("unknown operator %c", op)
}

func (c color) channels(op byte, r, g, b float64) color {
	apply := func(x, y float64) float64 {
		switch op {
		case '+':
			return x + y
		case '-':
			return x - y
		case '*':
			return x * y
		default:
			if y == 0 {
				return x
			}
			return x / y
		}
	}
	return color{r: apply(c.r, r), g: apply(c.g, g), b: apply(c.b, b), a: c.a}
}

func parseHexColor(s string) (color, bool) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 || len(h) == 4 {
		var b strings.Builder
		for _, c := range h {
			b.WriteRune(c)
			b.WriteRune(c)
		}
		h = b.String()
	}
	if len(h) != 6 && len(h) != 8 {
		return color{}, false
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color{}, false
	}
	c := color{a: 1, raw: s}
	if len(h) == 8 {
		c.a = float64(n&0xff) / 255
		n >>= 8
	}
	c.r = float64((n >> 16) & 0xff)
	c.g = float64((n >> 8) & 0xff)
	c.b = float64(n & 0xff)
	return c, true
}

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"navy":    "#000080",
	"teal":    "#008080",
	"maroon":  "#800000",
	"olive":   "#808000",
	"lime":    "#00ff00",
	"aqua":    "#00ffff",
	"fuchsia": "#ff00ff",
}

// toColor converts hex literals and named colors.
func toColor(v value) (color, bool) {
	switch c := v.(type) {
	case color:
		return c, true
	case str:
		if c.quote != 0 {
			return color{}, false
		}
		if c.s == "transparent" {
			return color{a: 0, raw: "transparent"}, true
		}
		if hex, ok := namedColors[strings.ToLower(c.s)]; ok {
			col, _ := parseHexColor(hex)
			col.raw = c.s
			return col, true
		}
	}
	return color{}, false
}

func (c color) hsl() (h, s, l float64) {
	r, g, b := c.r/255, c.g/255, c.b/255
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2
	if maxC == minC {
		return 0, 0, l * 100
	}
	d := maxC - minC
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}
	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h * 60, s * 100, l * 100
}

func fromHSL(h, s, l, a float64) color {
	h = math.Mod(h, 360) / 360
	s = math.Max(0, math.Min(100, s)) / 100
	l = math.Max(0, math.Min(100, l)) / 100
	if s == 0 {
		return color{r: l * 255, g: l * 255, b: l * 255, a: a}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	hue := func(t float64) float64 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		switch {
		case t < 1.0/6:
			return p + (q-p)*6*t
		case t < 0.5:
			return q
		case t < 2.0/3:
			return p + (q-p)*(2.0/3-t)*6
		}
		return p
	}
	return color{r: hue(h+1.0/3) * 255, g: hue(h) * 255, b: hue(h-1.0/3) * 255, a: a}
}

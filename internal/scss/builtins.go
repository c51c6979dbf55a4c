package scss

import (
	"fmt"
	"math"
	"strings"
)

type builtin func(args []value) (value, error)

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"rgb":            rgbFunc,
		"rgba":           rgbFunc,
		"lighten":        adjustLightness(1),
		"darken":         adjustLightness(-1),
		"opacify":        adjustAlpha(1),
		"fade-in":        adjustAlpha(1),
		"transparentize": adjustAlpha(-1),
		"fade-out":       adjustAlpha(-1),
		"percentage":     percentage,
		"round":          rounding(math.Round),
		"ceil":           rounding(math.Ceil),
		"floor":          rounding(math.Floor),
		"abs":            rounding(math.Abs),
		"unquote":        unquote,
		"quote":          quote,
		"if":             ifFunc,
		"length":         length,
		"nth":            nth,
	}
}

func arity(name string, args []value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s() takes %d arguments, got %d", name, n, len(args))
	}
	return nil
}

func asNumber(name string, v value) (number, error) {
	n, ok := v.(number)
	if !ok {
		return number{}, fmt.Errorf("%s: %s is not a number", name, v.css())
	}
	return n, nil
}

func asColor(name string, v value) (color, error) {
	c, ok := toColor(v)
	if !ok {
		return color{}, fmt.Errorf("%s: %s is not a color", name, v.css())
	}
	return c, nil
}

// fraction converts 50% and 0.5 alike into 0.5.
func fraction(n number) float64 {
	if n.unit == "%" {
		return n.v / 100
	}
	return n.v
}

func rgbFunc(args []value) (value, error) {
	switch len(args) {
	case 2:
		c, err := asColor("rgba", args[0])
		if err != nil {
			return nil, err
		}
		a, err := asNumber("rgba", args[1])
		if err != nil {
			return nil, err
		}
		c.a = fraction(a)
		c.raw = ""
		return c, nil
	case 3, 4:
		var ch [3]float64
		for i := range 3 {
			n, err := asNumber("rgb", args[i])
			if err != nil {
				return nil, err
			}
			ch[i] = n.v
			if n.unit == "%" {
				ch[i] = n.v * 255 / 100
			}
		}
		c := color{r: ch[0], g: ch[1], b: ch[2], a: 1}
		if len(args) == 4 {
			a, err := asNumber("rgba", args[3])
			if err != nil {
				return nil, err
			}
			c.a = fraction(a)
		}
		return c, nil
	}
	return nil, fmt.Errorf("rgba() takes 2 to 4 arguments, got %d", len(args))
}

func adjustLightness(sign float64) builtin {
	return func(args []value) (value, error) {
		if err := arity("lighten", args, 2); err != nil {
			return nil, err
		}
		c, err := asColor("lighten", args[0])
		if err != nil {
			return nil, err
		}
		amount, err := asNumber("lighten", args[1])
		if err != nil {
			return nil, err
		}
		h, s, l := c.hsl()
		return fromHSL(h, s, l+sign*amount.v, c.a), nil
	}
}

func adjustAlpha(sign float64) builtin {
	return func(args []value) (value, error) {
		if err := arity("transparentize", args, 2); err != nil {
			return nil, err
		}
		c, err := asColor("transparentize", args[0])
		if err != nil {
			return nil, err
		}
		amount, err := asNumber("transparentize", args[1])
		if err != nil {
			return nil, err
		}
		c.a = math.Max(0, math.Min(1, c.a+sign*fraction(amount)))
		c.raw = ""
		return c, nil
	}
}

func percentage(args []value) (value, error) {
	if err := arity("percentage", args, 1); err != nil {
		return nil, err
	}
	n, err := asNumber("percentage", args[0])
	if err != nil {
		return nil, err
	}
	if n.unit != "" {
		return nil, fmt.Errorf("percentage: %s has units", n.css())
	}
	return number{v: n.v * 100, unit: "%"}, nil
}

func rounding(fn func(float64) float64) builtin {
	return func(args []value) (value, error) {
		if err := arity("round", args, 1); err != nil {
			return nil, err
		}
		n, err := asNumber("round", args[0])
		if err != nil {
			return nil, err
		}
		return number{v: fn(n.v), unit: n.unit}, nil
	}
}

func unquote(args []value) (value, error) {
	if err := arity("unquote", args, 1); err != nil {
		return nil, err
	}
	return str{s: unquoted(args[0])}, nil
}

func quote(args []value) (value, error) {
	if err := arity("quote", args, 1); err != nil {
		return nil, err
	}
	if s, ok := args[0].(str); ok && s.quote != 0 {
		return s, nil
	}
	return quoted(unquoted(args[0])), nil
}

func truthy(v value) bool {
	switch t := v.(type) {
	case null:
		return false
	case str:
		return !(t.quote == 0 && t.s == "false")
	}
	return true
}

func ifFunc(args []value) (value, error) {
	if err := arity("if", args, 3); err != nil {
		return nil, err
	}
	if truthy(args[0]) {
		return args[1], nil
	}
	return args[2], nil
}

func items(v value) []value {
	if l, ok := v.(list); ok {
		return l.items
	}
	return []value{v}
}

func length(args []value) (value, error) {
	if err := arity("length", args, 1); err != nil {
		return nil, err
	}
	return number{v: float64(len(items(args[0])))}, nil
}

func nth(args []value) (value, error) {
	if err := arity("nth", args, 2); err != nil {
		return nil, err
	}
	n, err := asNumber("nth", args[1])
	if err != nil {
		return nil, err
	}
	list := items(args[0])
	i := int(n.v)
	if i < 0 {
		i = len(list) + i + 1
	}
	if i < 1 || i > len(list) {
		return nil, fmt.Errorf("nth: index %d out of bounds for list of length %d", int(n.v), len(list))
	}
	return list[i-1], nil
}

// plainCall renders a function unknown to the compiler as CSS.
func plainCall(name string, args []value) value {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.css()
	}
	return str{s: name + "(" + strings.Join(parts, ", ") + ")"}
}

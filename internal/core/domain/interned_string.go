package domain

import "unique"

// InternedString is a task or file set name backed by a unique.Handle, so
// equal names compare by pointer and map lookups stay cheap.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// NewInternedStrings interns every name. It returns nil for no names, which
// keeps tasks without prerequisites comparable to a zero Task.
func NewInternedStrings(names []string) []InternedString {
	if len(names) == 0 {
		return nil
	}
	out := make([]InternedString, len(names))
	for i, n := range names {
		out[i] = NewInternedString(n)
	}
	return out
}

// Names returns the string values of names in order.
func Names(names []InternedString) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

// String returns the name, or "" for the zero value.
func (is InternedString) String() string {
	if is.IsZero() {
		return ""
	}
	return is.h.Value()
}

// IsZero reports whether the name was never set.
func (is InternedString) IsZero() bool {
	return is.h == unique.Handle[string]{}
}

// Value returns the underlying handle.
func (is InternedString) Value() unique.Handle[string] {
	return is.h
}

// MarshalText implements encoding.TextMarshaler.
func (is InternedString) MarshalText() ([]byte, error) {
	return []byte(is.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (is *InternedString) UnmarshalText(text []byte) error {
	is.h = unique.Make(string(text))
	return nil
}

package cache

import (
	"net/url"
	"strings"
)

// Key is the canonical encoding of every parameter that determines one
// aggregation result.
type Key struct {
	Kind   string
	Params string
}

// NewKey builds a key from kind and fields. Field order does not matter:
// fields are encoded sorted by name.
func NewKey(kind string, fields map[string]string) Key {
	v := make(url.Values, len(fields))
	for name, value := range fields {
		v.Set(name, value)
	}
	return Key{Kind: kind, Params: v.Encode()}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Kind
	}
	var b strings.Builder
	b.Grow(len(k.Kind) + 1 + len(k.Params))
	b.WriteString(k.Kind)
	b.WriteByte('?')
	b.WriteString(k.Params)
	return b.String()
}

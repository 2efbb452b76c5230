package cache

import (
	"fmt"
	"strings"
)

// AllScopes matches every session scope in invalidation patterns.
const AllScopes = "*"

// Key identifies a cached read: a resource family plus its parameters.
type Key struct {
	Family string
	Params []string
}

func NewKey(family string, params ...any) Key {
	k := Key{Family: family}
	for _, p := range params {
		k.Params = append(k.Params, fmt.Sprint(p))
	}
	return k
}

// String renders the key as family:param:param with each segment escaped.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(escape(k.Family))
	for _, p := range k.Params {
		b.WriteByte(':')
		b.WriteString(escape(p))
	}
	return b.String()
}

// Scope turns a session identifier into a key namespace.
func Scope(id string) string {
	if id == "" {
		return "anonymous"
	}
	return escape(id)
}

func storeKey(scope string, k Key) string {
	return scope + "|" + k.String()
}

// familyPatterns matches the family key itself and every key below it,
// stopping at a segment boundary so "user" never matches "users:0:10".
func familyPatterns(scope, family string) []string {
	base := scope + "|" + escape(family)
	return []string{base, base + ":*"}
}

// Segments that carry separators or glob metacharacters are percent-encoded
// so keys stay valid Redis MATCH and path.Match patterns.
func escape(s string) string {
	const special = "%:|/*?[]\\ "
	if !strings.ContainsAny(s, special) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(special, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

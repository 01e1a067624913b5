package cache

import (
	"strconv"
	"strings"
)

// Key is a composite cache key: an ordered tuple of strings encoded so that
// two keys are equal exactly when their parts are equal. Parts are length
// prefixed, so ("a:b", "c") and ("a", "b:c") never collide.
type Key string

// NewKey builds a [Key] from its ordered parts.
func NewKey(parts ...string) Key {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(strconv.Itoa(len(p)))
		sb.WriteByte(':')
		sb.WriteString(p)
	}
	return Key(sb.String())
}

// Parts decodes k back into its ordered parts. It returns nil for a key that
// was not produced by [NewKey].
func (k Key) Parts() []string {
	var parts []string
	s := string(k)
	for len(s) > 0 {
		i := strings.IndexByte(s, ':')
		if i <= 0 {
			return nil
		}
		n, err := strconv.Atoi(s[:i])
		if err != nil || n < 0 || i+1+n > len(s) {
			return nil
		}
		parts = append(parts, s[i+1:i+1+n])
		s = s[i+1+n:]
	}
	return parts
}

// First returns the first part of k, or "" when k is empty or malformed.
func (k Key) First() string {
	parts := k.Parts()
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

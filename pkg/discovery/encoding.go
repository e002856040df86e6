package discovery

import (
	"sort"
	"strings"
)

const upperHex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}

	return false
}

// EscapeRFC3986 percent-encodes every byte of s outside the RFC 3986
// unreserved set. Space becomes %20 and "+" becomes %2B.
func EscapeRFC3986(s string) string {
	n := 0

	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			n++
		}
	}

	if n == 0 {
		return s
	}

	var b strings.Builder

	b.Grow(len(s) + 2*n)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)

			continue
		}

		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}

	return b.String()
}

// EncodeQuery serializes values as key=value pairs joined by "&". Keys are
// sorted lexicographically and the values of a key keep their order. Keys
// and values are escaped with EscapeRFC3986. The result has no leading "?".
func EncodeQuery(values map[string][]string) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var b strings.Builder

	for _, key := range keys {
		escapedKey := EscapeRFC3986(key)

		for _, value := range values[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}

			b.WriteString(escapedKey)
			b.WriteByte('=')
			b.WriteString(EscapeRFC3986(value))
		}
	}

	return b.String()
}

// AppendQuery appends an encoded query to uri with a leading "?" (or "&" when
// uri already has a query). An empty query leaves uri unchanged.
func AppendQuery(uri, query string) string {
	if query == "" {
		return uri
	}

	if strings.Contains(uri, "?") {
		return uri + "&" + query
	}

	return uri + "?" + query
}

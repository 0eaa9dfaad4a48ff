package sdbind

import (
	"fmt"
	"strings"
)

// An ObjectPath names an object within a peer's object tree.
type ObjectPath string

func (p ObjectPath) String() string { return string(p) }

// Valid reports whether p is a well-formed object path: absolute,
// with nonempty elements made of [A-Za-z0-9_].
func (p ObjectPath) Valid() bool {
	if p == "/" {
		return true
	}
	if len(p) == 0 || p[0] != '/' || strings.HasSuffix(string(p), "/") {
		return false
	}
	for _, elem := range strings.Split(string(p[1:]), "/") {
		if elem == "" {
			return false
		}
		for i := 0; i < len(elem); i++ {
			if !isPathByte(elem[i]) {
				return false
			}
		}
	}
	return true
}

// Child returns the path of the named child of p. name may contain
// multiple path components.
func (p ObjectPath) Child(name string) ObjectPath {
	if p == "/" {
		return ObjectPath("/" + name)
	}
	return p + ObjectPath("/"+name)
}

func isPathByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isLabelByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// EscapeLabel escapes an arbitrary string for use as a single object
// path element, the way sd-bus escapes unit and machine names: bytes
// outside [a-zA-Z0-9] become an underscore followed by two lowercase
// hex digits, and the empty string becomes a single underscore.
func EscapeLabel(s string) string {
	if s == "" {
		return "_"
	}
	var ret strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isLabelByte(c) {
			ret.WriteByte(c)
		} else {
			fmt.Fprintf(&ret, "_%02x", c)
		}
	}
	return ret.String()
}

// UnescapeLabel reverses [EscapeLabel].
func UnescapeLabel(s string) (string, error) {
	if s == "_" {
		return "", nil
	}
	var ret strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' {
			if !isLabelByte(c) {
				return "", fmt.Errorf("invalid label byte %q", c)
			}
			ret.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape in label %q", s)
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid escape %q in label %q", s[i:i+3], s)
		}
		ret.WriteByte(hi<<4 | lo)
		i += 2
	}
	return ret.String(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

package wire

import (
	"fmt"

	"github.com/creachadair/mds/mapset"
)

// basicTypes is the set of signature codes for the basic (fixed and
// string-like) types. These are the only legal dict entry keys.
var basicTypes = mapset.New[byte](
	'y', 'b', 'n', 'q', 'i', 'u', 'x', 't', 'd', 's', 'o', 'g', 'h',
)

// alignments maps a type code to the alignment of that type's wire
// representation, in bytes.
var alignments = map[byte]int{
	'y': 1, 'b': 4, 'n': 2, 'q': 2, 'i': 4, 'u': 4,
	'x': 8, 't': 8, 'd': 8, 's': 4, 'o': 4, 'g': 1, 'h': 4,
	'a': 4, '(': 8, ')': 8, '{': 8, '}': 8, 'v': 1,
	TypeStruct: 8, TypeDictEntry: 8,
}

// Alignment returns the wire alignment in bytes of the type or
// container identified by code, or 1 if the code is unknown.
func Alignment(code byte) int {
	if a, ok := alignments[code]; ok {
		return a
	}
	return 1
}

// IsBasic reports whether code identifies a basic type.
func IsBasic(code byte) bool { return basicTypes.Has(code) }

// A SignatureError reports a malformed type signature.
type SignatureError struct {
	Sig    string
	Reason string
}

func (e SignatureError) Error() string {
	return fmt.Sprintf("invalid type signature %q: %s", e.Sig, e.Reason)
}

func sigErr(sig, format string, args ...any) error {
	return SignatureError{Sig: sig, Reason: fmt.Sprintf(format, args...)}
}

// Split splits sig into its complete types, validating each. The
// empty signature splits into nothing.
func Split(sig string) ([]string, error) {
	var (
		parts []string
		rest  = sig
	)
	for rest != "" {
		tail, err := parseOne(sig, rest, false)
		if err != nil {
			return nil, err
		}
		parts = append(parts, rest[:len(rest)-len(tail)])
		rest = tail
	}
	return parts, nil
}

// Check verifies that sig is a well-formed sequence of zero or more
// complete types.
func Check(sig string) error {
	_, err := Split(sig)
	return err
}

// CheckSingle verifies that sig is exactly one complete type.
func CheckSingle(sig string) error {
	parts, err := Split(sig)
	if err != nil {
		return err
	}
	if len(parts) != 1 {
		return sigErr(sig, "want one complete type, got %d", len(parts))
	}
	return nil
}

// parseOne consumes the first complete type from the front of rest
// and returns the remainder. full is the enclosing signature, for
// error reporting.
func parseOne(full, rest string, inArray bool) (string, error) {
	if rest == "" {
		return "", sigErr(full, "truncated signature")
	}
	if basicTypes.Has(rest[0]) || rest[0] == 'v' {
		return rest[1:], nil
	}

	switch rest[0] {
	case 'a':
		if len(rest) == 1 {
			return "", sigErr(full, "array with no element type")
		}
		return parseOne(full, rest[1:], true)
	case '(':
		rest = rest[1:]
		n := 0
		for rest != "" && rest[0] != ')' {
			var err error
			rest, err = parseOne(full, rest, false)
			if err != nil {
				return "", err
			}
			n++
		}
		if rest == "" {
			return "", sigErr(full, "missing closing ) in struct definition")
		}
		if n == 0 {
			return "", sigErr(full, "empty struct definition")
		}
		return rest[1:], nil
	case '{':
		if !inArray {
			return "", sigErr(full, "dict entry type found outside array")
		}
		if len(rest) < 2 || !basicTypes.Has(rest[1]) {
			return "", sigErr(full, "dict entry key must be a basic type")
		}
		rest, err := parseOne(full, rest[2:], false)
		if err != nil {
			return "", err
		}
		if rest == "" || rest[0] != '}' {
			return "", sigErr(full, "missing closing } in dict entry definition")
		}
		return rest[1:], nil
	default:
		return "", sigErr(full, "unknown type specifier %q", rest[0])
	}
}

// contentsOf splits the contents of a container signature: the
// element type of a<T>, the fields of (<T>...), or the key and value
// of {<K><V>}. sig must already be known valid.
func contentsOf(sig string) string {
	switch sig[0] {
	case 'a':
		return sig[1:]
	case '(', '{':
		return sig[1 : len(sig)-1]
	}
	return sig
}

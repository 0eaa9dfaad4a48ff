// Package wire models DBus values as streams of typed tokens.
//
// A [Token] pairs a DBus type code with a payload. Basic types carry
// their value as the payload. Container types are bracketed by an
// open token, whose payload is the signature of the container's
// contents, and a close token. This mirrors the append model of
// sd-bus: a marshaller can replay a token stream against a message
// without inspecting the values again.
//
// [Encode] builds a token stream from a type signature and a dynamic
// Go value. The stream is transport-independent; rendering tokens to
// aligned wire bytes is the caller's concern.
package wire

import (
	"fmt"
	"strings"
)

// Type codes for container tokens. Basic tokens use the signature
// byte of their type ('s', 'u', and so on) as the code.
const (
	TypeArray     = 'a'
	TypeVariant   = 'v'
	TypeStruct    = 'r'
	TypeDictEntry = 'e'
)

// CloseCode is the code of the token that ends the innermost open
// container. Close tokens carry no payload.
const CloseCode = -1

// A Token is one step of a marshalling plan: either a basic value,
// the opening of a container, or the closing of the innermost open
// container.
type Token struct {
	Code    int
	Payload any
}

// Basic returns a payload token for a basic type.
func Basic(code byte, payload any) Token {
	return Token{Code: int(code), Payload: payload}
}

// Open returns a container-open token. contents is the signature of
// the container's contents: the element type for an array, the field
// types for a struct, the key and value types for a dict entry, and
// the concrete inner type for a variant.
func Open(code byte, contents string) Token {
	return Token{Code: int(code), Payload: contents}
}

// Close returns the token that ends the innermost open container.
func Close() Token {
	return Token{Code: CloseCode}
}

// IsClose reports whether t ends a container.
func (t Token) IsClose() bool {
	return t.Code == CloseCode
}

// IsOpen reports whether t opens a container.
func (t Token) IsOpen() bool {
	switch t.Code {
	case TypeArray, TypeVariant, TypeStruct, TypeDictEntry:
		_, ok := t.Payload.(string)
		return ok
	}
	return false
}

// Contents returns the contents signature of a container-open token,
// or "" if t does not open a container.
func (t Token) Contents() string {
	if !t.IsOpen() {
		return ""
	}
	return t.Payload.(string)
}

func (t Token) String() string {
	switch {
	case t.IsClose():
		return "]"
	case t.IsOpen():
		return fmt.Sprintf("%c(%s)[", t.Code, t.Payload)
	default:
		return fmt.Sprintf("%c:%v", t.Code, t.Payload)
	}
}

// A TokenStream is an ordered sequence of tokens describing zero or
// more complete DBus values.
type TokenStream []Token

// String renders the stream in a compact debugging form.
func (ts TokenStream) String() string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// Balanced reports whether every container opened in the stream is
// closed, with no stray close tokens.
func (ts TokenStream) Balanced() bool {
	depth := 0
	for _, t := range ts {
		switch {
		case t.IsOpen():
			depth++
		case t.IsClose():
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// A Variant pairs a value with the signature that describes it.
// Variants are the dynamically typed escape hatch of the wire
// format: the signature travels with the value.
type Variant struct {
	Sig   string
	Value any
}

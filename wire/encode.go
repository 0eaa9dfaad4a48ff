package wire

import (
	"cmp"
	"fmt"
	"math"
	"os"
	"reflect"
	"slices"
	"strings"
)

// An EncodeError reports a value that cannot be encoded against a
// type signature.
type EncodeError struct {
	Sig    string // the signature being encoded
	Pos    int    // byte offset within Sig of the type that failed
	Reason string
}

func (e EncodeError) Error() string {
	return fmt.Sprintf("cannot encode %q at offset %d: %s", e.Sig, e.Pos, e.Reason)
}

// Encode builds the token stream for a single value of the type
// described by sig.
//
// Numeric types accept any Go integer kind, and floats with no
// fractional part. Strings accept any Go type of string kind.
// Arrays accept slices and arrays, dict arrays accept maps (entries
// are emitted in sorted key order), structs accept either a slice of
// positional values or a Go struct whose exported fields match the
// signature. Variants must be passed as a [Variant]. File descriptor
// values ('h') accept an *os.File or a raw descriptor number.
//
// Payloads in the returned stream are normalized: unsigned codes
// carry uint8/uint16/uint32/uint64, signed codes int16/int32/int64,
// 'd' carries float64, string-like codes carry string.
func Encode(sig string, v any) (TokenStream, error) {
	if err := CheckSingle(sig); err != nil {
		return nil, err
	}
	e := &encoder{sig: sig}
	if err := e.value(0, sig, v); err != nil {
		return nil, err
	}
	return e.out, nil
}

// EncodeAll encodes one value per complete type in sig and returns
// the concatenated token stream.
func EncodeAll(sig string, vs ...any) (TokenStream, error) {
	parts, err := Split(sig)
	if err != nil {
		return nil, err
	}
	if len(parts) != len(vs) {
		return nil, EncodeError{Sig: sig, Reason: fmt.Sprintf("signature has %d types, got %d values", len(parts), len(vs))}
	}
	e := &encoder{sig: sig}
	off := 0
	for i, part := range parts {
		if err := e.value(off, part, vs[i]); err != nil {
			return nil, err
		}
		off += len(part)
	}
	return e.out, nil
}

type encoder struct {
	sig string
	out TokenStream
}

func (e *encoder) errf(off int, format string, args ...any) error {
	return EncodeError{Sig: e.sig, Pos: off, Reason: fmt.Sprintf(format, args...)}
}

func (e *encoder) emit(t Token) { e.out = append(e.out, t) }

// value encodes one value against the complete type typ, which
// starts at byte offset off of e.sig.
func (e *encoder) value(off int, typ string, v any) error {
	code := typ[0]
	if IsBasic(code) {
		return e.basic(off, code, v)
	}

	switch code {
	case 'v':
		vv, ok := v.(Variant)
		if !ok {
			return e.errf(off, "%T is not a wire.Variant", v)
		}
		inner, err := Encode(vv.Sig, vv.Value)
		if err != nil {
			return err
		}
		e.emit(Open(TypeVariant, vv.Sig))
		e.out = append(e.out, inner...)
		e.emit(Close())
		return nil
	case 'a':
		if typ[1] == '{' {
			return e.dict(off, typ, v)
		}
		return e.array(off, typ, v)
	case '(':
		return e.structure(off, typ, v)
	}
	return e.errf(off, "unhandled type %q", code)
}

func (e *encoder) array(off int, typ string, v any) error {
	elem := typ[1:]
	rv := reflect.ValueOf(v)
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
		return e.errf(off, "%T is not a slice or array", v)
	}
	e.emit(Open(TypeArray, elem))
	for i := 0; i < rv.Len(); i++ {
		if err := e.value(off+1, elem, rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	e.emit(Close())
	return nil
}

func (e *encoder) dict(off int, typ string, v any) error {
	entry := typ[1:]              // {KV}
	kv := entry[1 : len(entry)-1] // KV
	keySig, valSig := kv[:1], kv[1:]

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return e.errf(off, "%T is not a map", v)
	}
	keys := rv.MapKeys()
	slices.SortFunc(keys, compareKeys)

	e.emit(Open(TypeArray, entry))
	for _, k := range keys {
		e.emit(Open(TypeDictEntry, kv))
		if err := e.value(off+2, keySig, k.Interface()); err != nil {
			return err
		}
		if err := e.value(off+3, valSig, rv.MapIndex(k).Interface()); err != nil {
			return err
		}
		e.emit(Close())
	}
	e.emit(Close())
	return nil
}

func (e *encoder) structure(off int, typ string, v any) error {
	contents := typ[1 : len(typ)-1]
	fields, err := Split(contents)
	if err != nil {
		return err
	}

	var elems []any
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elems = append(elems, rv.Index(i).Interface())
		}
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			if !rt.Field(i).IsExported() {
				continue
			}
			elems = append(elems, rv.Field(i).Interface())
		}
	default:
		return e.errf(off, "%T cannot fill a struct type", v)
	}
	if len(elems) != len(fields) {
		return e.errf(off, "struct needs %d fields, value has %d", len(fields), len(elems))
	}

	e.emit(Open(TypeStruct, contents))
	foff := off + 1
	for i, f := range fields {
		if err := e.value(foff, f, elems[i]); err != nil {
			return err
		}
		foff += len(f)
	}
	e.emit(Close())
	return nil
}

func (e *encoder) basic(off int, code byte, v any) error {
	switch code {
	case 'b':
		b, ok := v.(bool)
		if !ok {
			return e.errf(off, "%T is not a bool", v)
		}
		e.emit(Basic(code, b))
	case 's', 'o', 'g':
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return e.errf(off, "%T is not a string", v)
		}
		e.emit(Basic(code, rv.String()))
	case 'd':
		f, err := toFloat(v)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, f))
	case 'y':
		u, err := toUint(v, 8)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, uint8(u)))
	case 'q':
		u, err := toUint(v, 16)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, uint16(u)))
	case 'u':
		u, err := toUint(v, 32)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, uint32(u)))
	case 't':
		u, err := toUint(v, 64)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, u))
	case 'n':
		i, err := toInt(v, 16)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, int16(i)))
	case 'i':
		i, err := toInt(v, 32)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, int32(i)))
	case 'x':
		i, err := toInt(v, 64)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, i))
	case 'h':
		if f, ok := v.(*os.File); ok {
			e.emit(Basic(code, f))
			return nil
		}
		u, err := toUint(v, 32)
		if err != nil {
			return e.errf(off, "%s", err)
		}
		e.emit(Basic(code, uint32(u)))
	default:
		return e.errf(off, "unhandled basic type %q", code)
	}
	return nil
}

// toUint converts any integer-kinded value, or a float with no
// fractional part, to an unsigned integer of the given width.
func toUint(v any, bits int) (uint64, error) {
	limit := math.Ldexp(1, bits)
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if bits < 64 && u>>bits != 0 {
			return 0, fmt.Errorf("%d overflows uint%d", u, bits)
		}
		return u, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < 0 {
			return 0, fmt.Errorf("%d is negative", i)
		}
		if bits < 64 && uint64(i)>>bits != 0 {
			return 0, fmt.Errorf("%d overflows uint%d", i, bits)
		}
		return uint64(i), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		if f < 0 || f >= limit {
			return 0, fmt.Errorf("%v overflows uint%d", f, bits)
		}
		return uint64(f), nil
	}
	return 0, fmt.Errorf("%T is not an integer type", v)
}

// toInt is the signed counterpart of toUint.
func toInt(v any, bits int) (int64, error) {
	limit := math.Ldexp(1, bits-1)
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if bits < 64 && (i >= 1<<(bits-1) || i < -1<<(bits-1)) {
			return 0, fmt.Errorf("%d overflows int%d", i, bits)
		}
		return i, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u >= 1<<(bits-1) {
			return 0, fmt.Errorf("%d overflows int%d", u, bits)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		if f >= limit || f < -limit {
			return 0, fmt.Errorf("%v overflows int%d", f, bits)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("%T is not an integer type", v)
}

func toFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("%T is not a numeric type", v)
}

// compareKeys orders two map keys of the same basic type.
func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.String:
		return strings.Compare(a.String(), b.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.Bool:
		if a.Bool() == b.Bool() {
			return 0
		}
		if b.Bool() {
			return -1
		}
		return 1
	}
	return 0
}

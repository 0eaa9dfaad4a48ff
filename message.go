package sdbind

import (
	"fmt"
	"math"
	"os"

	"github.com/sdbind/sdbind/fragments"
	"github.com/sdbind/sdbind/wire"
)

// marshalBody renders a token stream into DBus wire format. Message
// bodies start at an 8-aligned offset of the message, so the encoder
// begins fresh. File payloads are collected in order of appearance
// and encoded as indexes into the returned slice.
func marshalBody(order fragments.ByteOrder, args wire.TokenStream) ([]byte, []*os.File, error) {
	if len(args) == 0 {
		return nil, nil, nil
	}
	r := renderer{enc: &fragments.Encoder{Order: order}}
	for i := 0; i < len(args); {
		var err error
		i, err = r.value(args, i)
		if err != nil {
			return nil, nil, err
		}
	}
	return r.enc.Out, r.files, nil
}

type renderer struct {
	enc   *fragments.Encoder
	files []*os.File
}

// value renders the single value that starts at ts[i], and returns
// the index just past it.
func (r *renderer) value(ts wire.TokenStream, i int) (int, error) {
	tok := ts[i]
	switch {
	case tok.IsClose():
		return 0, fmt.Errorf("unexpected container close at token %d", i)
	case !tok.IsOpen():
		if err := r.basic(tok); err != nil {
			return 0, fmt.Errorf("token %d: %w", i, err)
		}
		return i + 1, nil
	}

	contents := tok.Contents()
	if contents == "" {
		return 0, fmt.Errorf("container open with empty contents at token %d", i)
	}
	next := i + 1
	var err error
	body := func() {
		for next < len(ts) && !ts[next].IsClose() {
			next, err = r.value(ts, next)
			if err != nil {
				return
			}
		}
	}
	switch tok.Code {
	case wire.TypeArray:
		r.enc.Array(contents[0] == '(' || contents[0] == '{', body)
	case wire.TypeStruct, wire.TypeDictEntry:
		r.enc.Struct(body)
	case wire.TypeVariant:
		r.enc.Signature(contents)
		body()
	default:
		return 0, fmt.Errorf("unknown container code %d at token %d", tok.Code, i)
	}
	if err != nil {
		return 0, err
	}
	if next >= len(ts) || !ts[next].IsClose() {
		return 0, fmt.Errorf("unterminated container at token %d", i)
	}
	return next + 1, nil
}

func (r *renderer) basic(tok wire.Token) error {
	switch tok.Code {
	case 'y':
		v, ok := tok.Payload.(uint8)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Uint8(v)
	case 'b':
		v, ok := tok.Payload.(bool)
		if !ok {
			return badPayload(tok)
		}
		if v {
			r.enc.Uint32(1)
		} else {
			r.enc.Uint32(0)
		}
	case 'n':
		v, ok := tok.Payload.(int16)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Uint16(uint16(v))
	case 'q':
		v, ok := tok.Payload.(uint16)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Uint16(v)
	case 'i':
		v, ok := tok.Payload.(int32)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Uint32(uint32(v))
	case 'u':
		v, ok := tok.Payload.(uint32)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Uint32(v)
	case 'x':
		v, ok := tok.Payload.(int64)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Uint64(uint64(v))
	case 't':
		v, ok := tok.Payload.(uint64)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Uint64(v)
	case 'd':
		v, ok := tok.Payload.(float64)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Uint64(math.Float64bits(v))
	case 's', 'o':
		v, ok := tok.Payload.(string)
		if !ok {
			return badPayload(tok)
		}
		r.enc.String(v)
	case 'g':
		v, ok := tok.Payload.(string)
		if !ok {
			return badPayload(tok)
		}
		r.enc.Signature(v)
	case 'h':
		switch v := tok.Payload.(type) {
		case *os.File:
			r.enc.Uint32(uint32(len(r.files)))
			r.files = append(r.files, v)
		case uint32:
			r.enc.Uint32(v)
		default:
			return badPayload(tok)
		}
	default:
		return fmt.Errorf("unknown type code %d", tok.Code)
	}
	return nil
}

func badPayload(tok wire.Token) error {
	return fmt.Errorf("type %q cannot carry a %T payload", tok.Code, tok.Payload)
}

// unmarshalBody decodes a message body according to its signature.
// Basic values decode to their natural Go types, arrays to []any
// except for byte arrays which decode to []byte, dicts to maps,
// structs to []any, and variants to the value they contain.
func unmarshalBody(order fragments.ByteOrder, sig string, body []byte, files []*os.File) ([]any, error) {
	if sig == "" {
		if len(body) > 0 {
			return nil, fmt.Errorf("%d body bytes with an empty signature", len(body))
		}
		return nil, nil
	}
	parts, err := wire.Split(sig)
	if err != nil {
		return nil, err
	}
	d := &fragments.Decoder{Order: order, In: body}
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		v, err := decodeValue(d, part, files)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if n := d.Remaining(); n > 0 {
		return nil, fmt.Errorf("%d stray bytes after message body", n)
	}
	return out, nil
}

// decodeValue reads one value of type sig. sig must already be
// checked for validity.
func decodeValue(d *fragments.Decoder, sig string, files []*os.File) (any, error) {
	switch sig[0] {
	case 'y':
		return d.Uint8()
	case 'b':
		u, err := d.Uint32()
		return u != 0, err
	case 'n':
		u, err := d.Uint16()
		return int16(u), err
	case 'q':
		return d.Uint16()
	case 'i':
		u, err := d.Uint32()
		return int32(u), err
	case 'u':
		return d.Uint32()
	case 'x':
		u, err := d.Uint64()
		return int64(u), err
	case 't':
		return d.Uint64()
	case 'd':
		u, err := d.Uint64()
		return math.Float64frombits(u), err
	case 's':
		return d.String()
	case 'o':
		s, err := d.String()
		return ObjectPath(s), err
	case 'g':
		return d.Signature()
	case 'h':
		idx, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		if int(idx) >= len(files) {
			return nil, fmt.Errorf("file descriptor index %d out of range", idx)
		}
		return files[idx], nil
	case 'a':
		return decodeArray(d, sig[1:], files)
	case '(':
		fields, err := wire.Split(sig[1 : len(sig)-1])
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(fields))
		err = d.Struct(func() error {
			for _, f := range fields {
				v, err := decodeValue(d, f, files)
				if err != nil {
					return err
				}
				out = append(out, v)
			}
			return nil
		})
		return out, err
	case 'v':
		vsig, err := d.Signature()
		if err != nil {
			return nil, err
		}
		if err := wire.CheckSingle(vsig); err != nil {
			return nil, fmt.Errorf("variant: %w", err)
		}
		return decodeValue(d, vsig, files)
	}
	return nil, fmt.Errorf("unknown type code %q", sig[0])
}

func decodeArray(d *fragments.Decoder, elem string, files []*os.File) (any, error) {
	if elem == "y" {
		return d.Bytes()
	}
	if elem[0] == '{' {
		keySig, valSig := elem[1:2], elem[2:len(elem)-1]
		if keySig == "s" {
			out := map[string]any{}
			_, err := d.Array(true, func(int) error {
				return d.Struct(func() error {
					k, err := d.String()
					if err != nil {
						return err
					}
					v, err := decodeValue(d, valSig, files)
					if err != nil {
						return err
					}
					out[k] = v
					return nil
				})
			})
			return out, err
		}
		out := map[any]any{}
		_, err := d.Array(true, func(int) error {
			return d.Struct(func() error {
				k, err := decodeValue(d, keySig, files)
				if err != nil {
					return err
				}
				v, err := decodeValue(d, valSig, files)
				if err != nil {
					return err
				}
				out[k] = v
				return nil
			})
		})
		return out, err
	}

	out := []any{}
	_, err := d.Array(elem[0] == '(', func(int) error {
		v, err := decodeValue(d, elem, files)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func closeFiles(fs []*os.File) {
	for _, f := range fs {
		f.Close()
	}
}

package fragments

import (
	"bytes"
	"fmt"
	"io"
)

// A Decoder reads values out of a DBus wire format message.
//
// Methods advance the read position as needed to account for the
// padding required by DBus alignment rules, except for
// [Decoder.Read] which consumes bytes verbatim. Alignment is
// relative to the start of In, so a decoder must begin at an
// 8-aligned offset of the overall message.
type Decoder struct {
	// Order is the byte order to use when reading multi-byte values.
	Order ByteOrder
	// In is the input to read.
	In []byte

	pos int
}

// Remaining reports the number of input bytes not yet consumed.
func (d *Decoder) Remaining() int {
	return len(d.In) - d.pos
}

// Pad consumes padding bytes as needed to make the next read happen
// at a multiple of align bytes. If the decoder is already correctly
// aligned, no bytes are consumed.
func (d *Decoder) Pad(align int) error {
	extra := d.pos % align
	if extra == 0 {
		return nil
	}
	skip := align - extra
	if d.pos+skip > len(d.In) {
		return io.ErrUnexpectedEOF
	}
	d.pos += skip
	return nil
}

// Read consumes n bytes, with no framing or padding. The returned
// slice aliases the decoder's input.
func (d *Decoder) Read(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.In) {
		return nil, io.ErrUnexpectedEOF
	}
	bs := d.In[d.pos : d.pos+n]
	d.pos += n
	return bs, nil
}

// Bytes reads a DBus byte array.
func (d *Decoder) Bytes() ([]byte, error) {
	ln, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	bs, err := d.Read(int(ln))
	if err != nil {
		return nil, err
	}
	return bytes.Clone(bs), nil
}

// String reads a DBus string.
func (d *Decoder) String() (string, error) {
	ln, err := d.Uint32()
	if err != nil {
		return "", err
	}
	bs, err := d.Read(int(ln) + 1)
	if err != nil {
		return "", err
	}
	return string(bs[:ln]), nil
}

// Signature reads a DBus signature string.
func (d *Decoder) Signature() (string, error) {
	ln, err := d.Uint8()
	if err != nil {
		return "", err
	}
	bs, err := d.Read(int(ln) + 1)
	if err != nil {
		return "", err
	}
	return string(bs[:ln]), nil
}

// Uint8 reads a uint8.
func (d *Decoder) Uint8() (uint8, error) {
	bs, err := d.Read(1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

// Uint16 reads a uint16.
func (d *Decoder) Uint16() (uint16, error) {
	if err := d.Pad(2); err != nil {
		return 0, err
	}
	bs, err := d.Read(2)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint16(bs), nil
}

// Uint32 reads a uint32.
func (d *Decoder) Uint32() (uint32, error) {
	if err := d.Pad(4); err != nil {
		return 0, err
	}
	bs, err := d.Read(4)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint32(bs), nil
}

// Uint64 reads a uint64.
func (d *Decoder) Uint64() (uint64, error) {
	if err := d.Pad(8); err != nil {
		return 0, err
	}
	bs, err := d.Read(8)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint64(bs), nil
}

// Array reads an array, calling element once per array element with
// the element's index. element must consume exactly the bytes of one
// element on each call. Array returns the number of elements read.
//
// containsStructs indicates whether the array elements are 8-aligned
// types, so that the array header padding is consumed correctly even
// when the array is empty. The element function must still consume
// each element's own padding, usually via [Decoder.Struct].
func (d *Decoder) Array(containsStructs bool, element func(i int) error) (int, error) {
	ln, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	if containsStructs {
		if err := d.Pad(8); err != nil {
			return 0, err
		}
	}
	end := d.pos + int(ln)
	if end > len(d.In) {
		return 0, io.ErrUnexpectedEOF
	}
	idx := 0
	for d.pos < end {
		if err := element(idx); err != nil {
			return idx, err
		}
		idx++
	}
	if d.pos != end {
		return idx, fmt.Errorf("array elements overran the array by %d bytes", d.pos-end)
	}
	return idx, nil
}

// Struct consumes padding up to the start of a struct, then calls
// fields to read the struct's fields.
func (d *Decoder) Struct(fields func() error) error {
	if err := d.Pad(8); err != nil {
		return err
	}
	return fields()
}

// ByteOrderFlag reads a DBus byte order flag byte, and sets
// [Decoder.Order] to match it.
func (d *Decoder) ByteOrderFlag() error {
	v, err := d.Uint8()
	if err != nil {
		return err
	}
	switch v {
	case 'B':
		d.Order = BigEndian
	case 'l':
		d.Order = LittleEndian
	default:
		return fmt.Errorf("unknown byte order flag %q", v)
	}
	return nil
}

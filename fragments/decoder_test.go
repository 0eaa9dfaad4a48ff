package fragments_test

import (
	"bytes"
	"testing"

	"github.com/sdbind/sdbind/fragments"
)

type mustDecoder struct {
	t *testing.T
	*fragments.Decoder
}

func (d *mustDecoder) MustRead(n int, want []byte) {
	d.t.Helper()
	got, err := d.Read(n)
	if err != nil {
		d.t.Fatalf("Read(%d) got err: %v", n, err)
	}
	if !bytes.Equal(got, want) {
		d.t.Fatalf("Read(%d) wrong output:\n  got: % x\n want: % x", n, got, want)
	}
}

func (d *mustDecoder) MustBytes(want []byte) {
	d.t.Helper()
	got, err := d.Bytes()
	if err != nil {
		d.t.Fatalf("Bytes() got err: %v", err)
	}
	if !bytes.Equal(got, want) {
		d.t.Fatalf("Bytes() wrong output:\n  got: % x\n want: % x", got, want)
	}
}

func (d *mustDecoder) MustString(want string) {
	d.t.Helper()
	got, err := d.String()
	if err != nil {
		d.t.Fatalf("String() got err: %v", err)
	}
	if got != want {
		d.t.Fatalf("String() got %q, want %q", got, want)
	}
}

func (d *mustDecoder) MustSignature(want string) {
	d.t.Helper()
	got, err := d.Signature()
	if err != nil {
		d.t.Fatalf("Signature() got err: %v", err)
	}
	if got != want {
		d.t.Fatalf("Signature() got %q, want %q", got, want)
	}
}

func (d *mustDecoder) MustUint8(want uint8) {
	d.t.Helper()
	got, err := d.Uint8()
	if err != nil {
		d.t.Fatalf("Uint8() got err: %v", err)
	}
	if got != want {
		d.t.Fatalf("Uint8() got %d, want %d", got, want)
	}
}

func (d *mustDecoder) MustUint16(want uint16) {
	d.t.Helper()
	got, err := d.Uint16()
	if err != nil {
		d.t.Fatalf("Uint16() got err: %v", err)
	}
	if got != want {
		d.t.Fatalf("Uint16() got %d, want %d", got, want)
	}
}

func (d *mustDecoder) MustUint32(want uint32) {
	d.t.Helper()
	got, err := d.Uint32()
	if err != nil {
		d.t.Fatalf("Uint32() got err: %v", err)
	}
	if got != want {
		d.t.Fatalf("Uint32() got %d, want %d", got, want)
	}
}

func (d *mustDecoder) MustUint64(want uint64) {
	d.t.Helper()
	got, err := d.Uint64()
	if err != nil {
		d.t.Fatalf("Uint64() got err: %v", err)
	}
	if got != want {
		d.t.Fatalf("Uint64() got %d, want %d", got, want)
	}
}

func TestDecoder(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		decode func(d *mustDecoder)
	}{
		{
			"raw bytes",
			[]byte{0x01, 0x02, 0x03},
			func(d *mustDecoder) {
				d.MustRead(3, []byte{1, 2, 3})
			},
		},

		{
			"byte array",
			[]byte{
				0x00, 0x00, 0x00, 0x03,
				0x01, 0x02, 0x03,
			},
			func(d *mustDecoder) {
				d.MustBytes([]byte{1, 2, 3})
			},
		},

		{
			"string",
			[]byte{
				0x00, 0x00, 0x00, 0x03,
				0x66, 0x6f, 0x6f,
				0x00,
			},
			func(d *mustDecoder) {
				d.MustString("foo")
			},
		},

		{
			"signature",
			[]byte{
				0x00, 0x01, // unaligned start
				0x05,
				0x61, 0x28, 0x73, 0x76, 0x29,
				0x00,
			},
			func(d *mustDecoder) {
				d.MustUint16(1)
				d.MustSignature("a(sv)")
			},
		},

		{
			"uints",
			[]byte{
				0x2a,
				0x00, // pad
				0x00, 0x42,
				0x00, 0x00, 0x00, 0x2a,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x42,
			},
			func(d *mustDecoder) {
				d.MustUint8(42)
				d.MustUint16(66)
				d.MustUint32(42)
				d.MustUint64(66)
			},
		},

		{
			"uints padding",
			[]byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x42,
				0x00,             // raw
				0x00, 0x00, 0x00, // pad
				0x00, 0x00, 0x00, 0x2a,
				0x00, // raw
				0x00, // pad
				0x00, 0x42,
				0x00, // raw
				0x2a,
			},
			func(d *mustDecoder) {
				d.MustUint64(66)
				d.MustRead(1, []byte{0})
				d.MustUint32(42)
				d.MustRead(1, []byte{0})
				d.MustUint16(66)
				d.MustRead(1, []byte{0})
				d.MustUint8(42)
			},
		},

		{
			"struct padding",
			[]byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x42,
				0x00, 0x00, 0x00, 0x2a,
				0x00, 0x00, 0x00, 0x00, // pad
				0x00, 0x42,
			},
			func(d *mustDecoder) {
				d.Struct(func() error {
					d.MustUint64(66)
					return nil
				})
				d.Struct(func() error {
					d.MustUint32(42)
					return nil
				})
				d.Struct(func() error {
					d.MustUint16(66)
					return nil
				})
			},
		},

		{
			"array",
			[]byte{
				0x00, 0x00, 0x00, 0x04, // length
				0x00, 0x01,
				0x00, 0x02,
			},
			func(d *mustDecoder) {
				var got []uint16
				n, err := d.Array(false, func(int) error {
					v, err := d.Uint16()
					got = append(got, v)
					return err
				})
				if err != nil {
					d.t.Fatalf("Array() got err: %v", err)
				}
				if n != 2 {
					d.t.Errorf("Array() read %d elements, want 2", n)
				}
				if want := []uint16{1, 2}; !slicesEqual(got, want) {
					d.t.Errorf("Array() read %v, want %v", got, want)
				}
			},
		},

		{
			"empty array",
			[]byte{
				0x00, 0x00, 0x00, 0x00, // length
			},
			func(d *mustDecoder) {
				n, err := d.Array(false, func(int) error {
					d.t.Error("element read in an empty array")
					return nil
				})
				if err != nil || n != 0 {
					d.t.Fatalf("Array() = %d, %v, want 0, nil", n, err)
				}
			},
		},

		{
			"struct array",
			[]byte{
				0x00, 0x00, 0x00, 0x0a, // length
				0x00, 0x00, 0x00, 0x00, // pad
				0x00, 0x01,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // pad
				0x00, 0x02,
			},
			func(d *mustDecoder) {
				var got []uint16
				n, err := d.Array(true, func(int) error {
					return d.Struct(func() error {
						v, err := d.Uint16()
						got = append(got, v)
						return err
					})
				})
				if err != nil {
					d.t.Fatalf("Array() got err: %v", err)
				}
				if n != 2 {
					d.t.Errorf("Array() read %d elements, want 2", n)
				}
				if want := []uint16{1, 2}; !slicesEqual(got, want) {
					d.t.Errorf("Array() read %v, want %v", got, want)
				}
			},
		},

		{
			"empty struct array",
			[]byte{
				0x00, 0x00, 0x00, 0x00, // length
				0x00, 0x00, 0x00, 0x00, // pad
			},
			func(d *mustDecoder) {
				n, err := d.Array(true, func(int) error { return nil })
				if err != nil || n != 0 {
					d.t.Fatalf("Array() = %d, %v, want 0, nil", n, err)
				}
			},
		},

		{
			"byte order flag",
			[]byte{'B', 'l'},
			func(d *mustDecoder) {
				if err := d.ByteOrderFlag(); err != nil || d.Order != fragments.BigEndian {
					d.t.Fatalf("ByteOrderFlag() = %v, order %v", err, d.Order)
				}
				if err := d.ByteOrderFlag(); err != nil || d.Order != fragments.LittleEndian {
					d.t.Fatalf("ByteOrderFlag() = %v, order %v", err, d.Order)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := mustDecoder{
				t: t,
				Decoder: &fragments.Decoder{
					Order: fragments.BigEndian,
					In:    tc.in,
				},
			}
			tc.decode(&d)
			if remain := d.Remaining(); remain > 0 {
				t.Fatalf("decoder failed to consume %d trailing bytes", remain)
			}
		})
	}
}

func slicesEqual(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDecoderTruncated(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		decode func(d *fragments.Decoder) error
	}{
		{
			"short read",
			[]byte{1, 2},
			func(d *fragments.Decoder) error { _, err := d.Read(3); return err },
		},
		{
			"short string",
			[]byte{0x00, 0x00, 0x00, 0x10, 'h', 'i', 0x00},
			func(d *fragments.Decoder) error { _, err := d.String(); return err },
		},
		{
			"missing pad",
			[]byte{0x01},
			func(d *fragments.Decoder) error {
				if _, err := d.Uint8(); err != nil {
					return err
				}
				_, err := d.Uint32()
				return err
			},
		},
		{
			"array length overruns input",
			[]byte{0x00, 0x00, 0x00, 0x08, 0x00, 0x01},
			func(d *fragments.Decoder) error {
				_, err := d.Array(false, func(int) error {
					_, err := d.Uint16()
					return err
				})
				return err
			},
		},
		{
			"invalid byte order flag",
			[]byte{'?'},
			func(d *fragments.Decoder) error { return d.ByteOrderFlag() },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := &fragments.Decoder{
				Order: fragments.BigEndian,
				In:    tc.in,
			}
			if err := tc.decode(d); err == nil {
				t.Error("decode of truncated input did not fail")
			}
		})
	}
}

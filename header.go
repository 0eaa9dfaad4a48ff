package sdbind

import (
	"fmt"

	"github.com/sdbind/sdbind/fragments"
	"github.com/sdbind/sdbind/wire"
)

// msgType is the type of a DBus message.
type msgType byte

const (
	msgTypeCall msgType = iota + 1
	msgTypeReturn
	msgTypeError
	msgTypeSignal
)

// Header field keys defined by the DBus specification.
const (
	fieldPath        = 1
	fieldInterface   = 2
	fieldMember      = 3
	fieldErrName     = 4
	fieldReplySerial = 5
	fieldDestination = 6
	fieldSender      = 7
	fieldSignature   = 8
	fieldNumFDs      = 9
)

const flagNoReplyExpected = 0x1

// header is a DBus message header.
type header struct {
	// Order is the message's byte order.
	Order fragments.ByteOrder
	// Type is the message's type.
	Type msgType
	// Flags is the message's flag byte.
	Flags byte
	// Version is the DBus protocol version.
	Version uint8
	// Length is the length of the message body, not including the
	// header or the padding between header and body.
	Length uint32
	// Serial is the serial for this message. It must be non-zero.
	Serial uint32

	// Path is the target object for a call, or the source object for
	// a signal.
	Path ObjectPath
	// Interface is the interface to target for a call, or the source
	// interface for a signal.
	Interface string
	// Member is the method name for a call, or the signal name for a
	// signal.
	Member string
	// ErrName is the name of the error that occurred, for error
	// replies.
	ErrName string
	// ReplySerial is the serial of the message this one replies to.
	ReplySerial uint32
	// Destination is the bus name the message is addressed to.
	Destination string
	// Sender is the client ID of the message sender. The bus
	// populates this itself, any sent value is ignored.
	Sender string
	// Signature is the type signature of the message body.
	Signature string
	// NumFDs is the number of file descriptors attached to the
	// message.
	NumFDs uint32
}

// marshal renders the header, including the padding that precedes
// the message body. Length, Signature and NumFDs must describe the
// already encoded body.
func (h *header) marshal() []byte {
	order := h.Order
	if order == nil {
		order = fragments.NativeEndian
	}
	e := fragments.Encoder{Order: order}
	e.ByteOrderFlag()
	e.Uint8(byte(h.Type))
	e.Uint8(h.Flags)
	e.Uint8(h.Version)
	e.Uint32(h.Length)
	e.Uint32(h.Serial)

	str := func(key uint8, code byte, val string) {
		if val == "" {
			return
		}
		e.Struct(func() {
			e.Uint8(key)
			e.Signature(string(code))
			e.String(val)
		})
	}
	u32 := func(key uint8, val uint32) {
		if val == 0 {
			return
		}
		e.Struct(func() {
			e.Uint8(key)
			e.Signature("u")
			e.Uint32(val)
		})
	}
	e.Array(true, func() {
		str(fieldPath, 'o', string(h.Path))
		str(fieldInterface, 's', h.Interface)
		str(fieldMember, 's', h.Member)
		str(fieldErrName, 's', h.ErrName)
		u32(fieldReplySerial, h.ReplySerial)
		str(fieldDestination, 's', h.Destination)
		str(fieldSender, 's', h.Sender)
		if h.Signature != "" {
			e.Struct(func() {
				e.Uint8(fieldSignature)
				e.Signature("g")
				e.Signature(h.Signature)
			})
		}
		u32(fieldNumFDs, h.NumFDs)
	})
	e.Pad(8)
	return e.Out
}

// parseHeader parses a complete message header, including the
// padding that precedes the message body.
func parseHeader(buf []byte) (*header, error) {
	d := &fragments.Decoder{In: buf}
	if err := d.ByteOrderFlag(); err != nil {
		return nil, err
	}
	h := header{Order: d.Order}

	typ, err := d.Uint8()
	if err != nil {
		return nil, err
	}
	h.Type = msgType(typ)
	if h.Flags, err = d.Uint8(); err != nil {
		return nil, err
	}
	if h.Version, err = d.Uint8(); err != nil {
		return nil, err
	}
	if h.Length, err = d.Uint32(); err != nil {
		return nil, err
	}
	if h.Serial, err = d.Uint32(); err != nil {
		return nil, err
	}

	_, err = d.Array(true, func(int) error {
		return d.Struct(func() error {
			key, err := d.Uint8()
			if err != nil {
				return err
			}
			sig, err := d.Signature()
			if err != nil {
				return err
			}
			want := func(code string) error {
				if sig != code {
					return fmt.Errorf("header field %d has type %q, want %q", key, sig, code)
				}
				return nil
			}
			switch key {
			case fieldPath:
				if err := want("o"); err != nil {
					return err
				}
				s, err := d.String()
				h.Path = ObjectPath(s)
				return err
			case fieldInterface:
				if err := want("s"); err != nil {
					return err
				}
				h.Interface, err = d.String()
				return err
			case fieldMember:
				if err := want("s"); err != nil {
					return err
				}
				h.Member, err = d.String()
				return err
			case fieldErrName:
				if err := want("s"); err != nil {
					return err
				}
				h.ErrName, err = d.String()
				return err
			case fieldReplySerial:
				if err := want("u"); err != nil {
					return err
				}
				h.ReplySerial, err = d.Uint32()
				return err
			case fieldDestination:
				if err := want("s"); err != nil {
					return err
				}
				h.Destination, err = d.String()
				return err
			case fieldSender:
				if err := want("s"); err != nil {
					return err
				}
				h.Sender, err = d.String()
				return err
			case fieldSignature:
				if err := want("g"); err != nil {
					return err
				}
				h.Signature, err = d.Signature()
				return err
			case fieldNumFDs:
				if err := want("u"); err != nil {
					return err
				}
				h.NumFDs, err = d.Uint32()
				return err
			default:
				// Unknown fields must be ignored.
				if err := wire.CheckSingle(sig); err != nil {
					return fmt.Errorf("header field %d: %w", key, err)
				}
				_, err := decodeValue(d, sig, nil)
				return err
			}
		})
	})
	if err != nil {
		return nil, err
	}
	if err := d.Pad(8); err != nil {
		return nil, err
	}
	if n := d.Remaining(); n > 0 {
		return nil, fmt.Errorf("%d stray bytes after header fields", n)
	}
	return &h, nil
}

// Valid checks that the message header is valid for its message type.
func (h *header) Valid() error {
	if h.Serial == 0 {
		return fmt.Errorf("invalid message with zero Serial")
	}
	switch h.Type {
	case 0:
		return fmt.Errorf("invalid message with Type 0")
	case msgTypeCall:
		if h.Path == "" {
			return fmt.Errorf("missing required header field Path")
		}
		if h.Member == "" {
			return fmt.Errorf("missing required header field Member")
		}
	case msgTypeReturn:
		if h.ReplySerial == 0 {
			return fmt.Errorf("missing required header field ReplySerial")
		}
	case msgTypeError:
		if h.ReplySerial == 0 {
			return fmt.Errorf("missing required header field ReplySerial")
		}
		if h.ErrName == "" {
			return fmt.Errorf("missing required header field ErrName")
		}
	case msgTypeSignal:
		if h.Path == "" {
			return fmt.Errorf("missing required header field Path")
		}
		if h.Interface == "" {
			return fmt.Errorf("missing required header field Interface")
		}
		if h.Member == "" {
			return fmt.Errorf("missing required header field Member")
		}
	default:
		// Unknown message types are suspect, but the spec requires us
		// to gracefully allow them.
	}
	return nil
}

// WantReply reports whether this message requires a response.
func (h *header) WantReply() bool {
	return h.Type == msgTypeCall && h.Flags&flagNoReplyExpected == 0
}

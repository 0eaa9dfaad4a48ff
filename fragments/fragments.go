// Package fragments provides low-level helpers to encode and decode
// pieces of the DBus wire format.
//
// The Encoder and Decoder handle alignment and byte order, and
// nothing else. Callers drive them according to a message signature
// to produce or consume valid DBus data.
package fragments

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// A ByteOrder encodes and decodes multi-byte values, and knows the
// flag byte that announces the order in a DBus message header.
type ByteOrder interface {
	byteOrder
	dbusFlag() byte
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

var (
	BigEndian    ByteOrder = wrapStd{binary.BigEndian}
	LittleEndian ByteOrder = wrapStd{binary.LittleEndian}
	NativeEndian ByteOrder = wrapStd{binary.NativeEndian}
)

type wrapStd struct {
	byteOrder
}

func (w wrapStd) dbusFlag() byte {
	switch w.byteOrder {
	case binary.BigEndian:
		return 'B'
	case binary.LittleEndian:
		return 'l'
	case binary.NativeEndian:
		if cpu.IsBigEndian {
			return 'B'
		}
		return 'l'
	default:
		panic("unsupported ByteOrder")
	}
}

func (w wrapStd) String() string {
	if w.dbusFlag() == 'B' {
		return "big-endian"
	}
	return "little-endian"
}

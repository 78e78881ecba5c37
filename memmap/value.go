package memmap

import (
	"encoding/binary"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
)

// Value is the set of fixed-size unsigned integer types the *_value helpers
// operate over.
type Value interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func sizeOf[T Value]() int {
	var v T
	switch any(v).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

// ReadLE reads a little-endian T from addr in space.
func ReadLE[T Value](t *Table, addr address.Address, space address.AddressSpaceId) (T, error) {
	buf := make([]byte, sizeOf[T]())
	if err := t.Read(addr, space, buf); err != nil {
		return 0, err
	}
	return decodeLE[T](buf), nil
}

// ReadBE reads a big-endian T from addr in space.
func ReadBE[T Value](t *Table, addr address.Address, space address.AddressSpaceId) (T, error) {
	buf := make([]byte, sizeOf[T]())
	if err := t.Read(addr, space, buf); err != nil {
		return 0, err
	}
	return decodeBE[T](buf), nil
}

// WriteLE writes a little-endian T to addr in space.
func WriteLE[T Value](t *Table, addr address.Address, space address.AddressSpaceId, v T) error {
	buf := make([]byte, sizeOf[T]())
	encodeLE(buf, v)
	return t.Write(addr, space, buf)
}

// WriteBE writes a big-endian T to addr in space.
func WriteBE[T Value](t *Table, addr address.Address, space address.AddressSpaceId, v T) error {
	buf := make([]byte, sizeOf[T]())
	encodeBE(buf, v)
	return t.Write(addr, space, buf)
}

func decodeLE[T Value](buf []byte) T {
	switch len(buf) {
	case 1:
		return T(buf[0])
	case 2:
		return T(binary.LittleEndian.Uint16(buf))
	case 4:
		return T(binary.LittleEndian.Uint32(buf))
	default:
		return T(binary.LittleEndian.Uint64(buf))
	}
}

func decodeBE[T Value](buf []byte) T {
	switch len(buf) {
	case 1:
		return T(buf[0])
	case 2:
		return T(binary.BigEndian.Uint16(buf))
	case 4:
		return T(binary.BigEndian.Uint32(buf))
	default:
		return T(binary.BigEndian.Uint64(buf))
	}
}

func encodeLE[T Value](buf []byte, v T) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	default:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	}
}

func encodeBE[T Value](buf []byte, v T) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(v))
	default:
		binary.BigEndian.PutUint64(buf, uint64(v))
	}
}

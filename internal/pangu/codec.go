package pangu

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

/*
Wire format for the render-server protocol.

All multi-byte scalars travel in network byte order (big endian). Floating
point values do not use plain IEEE-754 bit layout on the wire: the protocol
packs a single-precision float as

	(((fraction << 1) | sign) << 8) | exponent

where fraction is the 23-bit mantissa, sign the 1-bit sign and exponent the
8-bit biased exponent, and then transmits the packed 32-bit word in network
order. Doubles use the analogous packing shifted by 11 for the wider
exponent, producing a 64-bit word that is split into two 32-bit halves and
transmitted LOW WORD FIRST (so the bytes of a double travel in order
3,2,1,0,7,6,5,4).

Strings are a 16-bit length (the byte count including a NUL terminator,
rounded up to even), the bytes, then a pad byte when the rounded length
differs. Booleans are a single 0/1 byte.

NaN and infinity round-trips are unspecified by the protocol and not
guaranteed here.
*/

// readFull fills p from r, retrying short reads until p is full or the
// stream ends.
func readFull(r io.Reader, p []byte) error {
	if _, err := io.ReadFull(r, p); err != nil {
		return fmt.Errorf("short read: %w", err)
	}
	return nil
}

// writeFull writes all of p to w, retrying short writes.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return fmt.Errorf("short write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// ReadU8 reads a single unsigned byte.
func ReadU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteU8 writes a single unsigned byte.
func WriteU8(w io.Writer, v uint8) error {
	return writeFull(w, []byte{v})
}

// ReadBool reads a single 0/1 byte; any non-zero value reads as true.
func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadU8(r)
	return b != 0, err
}

// WriteBool writes a bool as a single 0/1 byte.
func WriteBool(w io.Writer, v bool) error {
	if v {
		return WriteU8(w, 1)
	}
	return WriteU8(w, 0)
}

// ReadU16 reads a big-endian 16-bit unsigned integer.
func ReadU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// WriteU16 writes a big-endian 16-bit unsigned integer.
func WriteU16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return writeFull(w, b[:])
}

// ReadU32 reads a big-endian 32-bit unsigned integer.
func ReadU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// WriteU32 writes a big-endian 32-bit unsigned integer.
func WriteU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return writeFull(w, b[:])
}

// ReadI32 reads a big-endian 32-bit signed integer.
func ReadI32(r io.Reader) (int32, error) {
	v, err := ReadU32(r)
	return int32(v), err
}

// WriteI32 writes a big-endian 32-bit signed integer.
func WriteI32(w io.Writer, v int32) error {
	return WriteU32(w, uint32(v))
}

// packF32 converts an IEEE-754 single into the protocol's packed layout.
func packF32(f float32) uint32 {
	bits := math.Float32bits(f)
	sign := (bits >> 31) & 1
	exponent := (bits >> 23) & 0xff
	fraction := bits & 0x7fffff
	return (((fraction << 1) | sign) << 8) | exponent
}

// unpackF32 converts the protocol's packed layout back into a single.
func unpackF32(v uint32) float32 {
	exponent := v & 0xff
	v >>= 8
	sign := v & 1
	v >>= 1
	fraction := v & 0x7fffff
	return math.Float32frombits((sign << 31) | (exponent << 23) | fraction)
}

// ReadF32 reads a protocol-packed single-precision float.
func ReadF32(r io.Reader) (float32, error) {
	v, err := ReadU32(r)
	if err != nil {
		return 0, err
	}
	return unpackF32(v), nil
}

// WriteF32 writes a protocol-packed single-precision float.
func WriteF32(w io.Writer, f float32) error {
	return WriteU32(w, packF32(f))
}

// packF64 converts an IEEE-754 double into the protocol's packed layout.
func packF64(f float64) uint64 {
	bits := math.Float64bits(f)
	sign := (bits >> 63) & 1
	exponent := (bits >> 52) & 0x7ff
	fraction := bits & 0xfffffffffffff
	return (((fraction << 1) | sign) << 11) | exponent
}

// unpackF64 converts the protocol's packed layout back into a double.
func unpackF64(v uint64) float64 {
	exponent := v & 0x7ff
	v >>= 11
	sign := v & 1
	v >>= 1
	fraction := v & 0xfffffffffffff
	return math.Float64frombits((sign << 63) | (exponent << 52) | fraction)
}

// ReadF64 reads a protocol-packed double: two 32-bit words, low word first.
func ReadF64(r io.Reader) (float64, error) {
	lo, err := ReadU32(r)
	if err != nil {
		return 0, err
	}
	hi, err := ReadU32(r)
	if err != nil {
		return 0, err
	}
	return unpackF64(uint64(hi)<<32 | uint64(lo)), nil
}

// WriteF64 writes a protocol-packed double: two 32-bit words, low word first.
func WriteF64(w io.Writer, f float64) error {
	packed := packF64(f)
	if err := WriteU32(w, uint32(packed&0xffffffff)); err != nil {
		return err
	}
	return WriteU32(w, uint32(packed>>32))
}

// ReadString reads a length-prefixed, even-padded, NUL-terminated string.
func ReadString(r io.Reader) (string, error) {
	xlen, err := ReadU16(r)
	if err != nil {
		return "", err
	}
	if xlen == 0 {
		return "", nil
	}
	buf := make([]byte, xlen)
	if err := readFull(r, buf); err != nil {
		return "", err
	}
	// The payload carries a NUL terminator plus up to one pad byte; the
	// logical string ends at the first NUL.
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// WriteString writes a string with its NUL terminator, length-prefixed and
// padded to an even byte count.
func WriteString(w io.Writer, s string) error {
	slen := len(s) + 1
	xlen := slen + (slen & 1)
	if err := WriteU16(w, uint16(xlen)); err != nil {
		return err
	}
	if err := writeFull(w, []byte(s)); err != nil {
		return err
	}
	if err := WriteU8(w, 0); err != nil {
		return err
	}
	if xlen != slen {
		return WriteU8(w, 0)
	}
	return nil
}

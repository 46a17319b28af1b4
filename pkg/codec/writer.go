package codec

import (
	"encoding/binary"
	"fmt"
)

// Writer appends little-endian encoded values to an in-memory buffer.
// The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with capacity preallocated for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint16 writes v as 2 little-endian bytes.
func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteUint32 writes v as 4 little-endian bytes.
func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteUint64 writes v as 8 little-endian bytes.
func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteInt writes the low width bytes of v. It fails without writing
// anything if width is unsupported or v does not fit.
func (w *Writer) WriteInt(v uint64, width int) error {
	if err := CheckWidth(width); err != nil {
		return err
	}
	if !Fits(v, width) {
		return Overflow(v, width)
	}
	switch width {
	case 1:
		w.WriteUint8(uint8(v))
	case 2:
		w.WriteUint16(uint16(v))
	case 4:
		w.WriteUint32(uint32(v))
	default:
		w.WriteUint64(v)
	}
	return nil
}

// WriteBuffer writes b, which must be exactly length bytes long.
func (w *Writer) WriteBuffer(b []byte, length int) error {
	if len(b) != length {
		return SizeMismatch(length, len(b))
	}
	w.buf = append(w.buf, b...)
	return nil
}

// CheckWidth validates an integer width in bytes.
func CheckWidth(width int) error {
	switch width {
	case 1, 2, 4, 8:
		return nil
	default:
		return fmt.Errorf("codec: %w: %d", ErrInvalidWidth, width)
	}
}

// Fits reports whether v is representable in width bytes.
func Fits(v uint64, width int) bool {
	if width >= 8 {
		return true
	}
	return v>>(uint(width)*8) == 0
}

// SignExtend interprets the low width bytes of v as a two's complement integer.
func SignExtend(v uint64, width int) int64 {
	if width >= 8 {
		return int64(v)
	}
	shift := 64 - uint(width)*8
	return int64(v<<shift) >> shift
}

// Truncate returns the low width bytes of the two's complement form of v.
func Truncate(v int64, width int) uint64 {
	if width >= 8 {
		return uint64(v)
	}
	return uint64(v) & (1<<(uint(width)*8) - 1)
}

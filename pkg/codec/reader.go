package codec

import "encoding/binary"

// Reader consumes little-endian encoded values from a byte slice. Every read
// is all-or-nothing: on ErrTruncatedInput the position is left unchanged.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return Truncated(r.off, n, r.Remaining())
	}
	return nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

// ReadUint16 reads 2 little-endian bytes.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

// ReadUint32 reads 4 little-endian bytes.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// ReadUint64 reads 8 little-endian bytes.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

// ReadInt reads an unsigned integer of width bytes.
func (r *Reader) ReadInt(width int) (uint64, error) {
	if err := CheckWidth(width); err != nil {
		return 0, err
	}
	switch width {
	case 1:
		v, err := r.ReadUint8()
		return uint64(v), err
	case 2:
		v, err := r.ReadUint16()
		return uint64(v), err
	case 4:
		v, err := r.ReadUint32()
		return uint64(v), err
	default:
		return r.ReadUint64()
	}
}

// ReadBuffer reads exactly length bytes into a freshly allocated slice.
func (r *Reader) ReadBuffer(length int) ([]byte, error) {
	if err := r.need(length); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	copy(buf, r.data[r.off:r.off+length])
	r.off += length
	return buf, nil
}

// Limit returns a reader over the next n bytes that shares this reader's
// offsets, so positions reported by the sub-reader stay absolute. The parent
// is not advanced; call Skip once the bounded section has been consumed.
func (r *Reader) Limit(n int) (*Reader, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	return &Reader{data: r.data[:r.off+n], off: r.off}, nil
}

// Skip advances the reader by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

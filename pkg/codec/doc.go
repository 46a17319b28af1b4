// Package codec provides the primitive and enumeration codecs of the catbuf
// wire format.
//
// # Wire Format
//
// Every value is byte-packed with no padding or alignment. Integers are
// little-endian regardless of the host byte order:
//
//	Width   Go type   Bytes
//	──────────────────────────────
//	1       uint8     [b0]
//	2       uint16    [b0 b1]
//	4       uint32    [b0 b1 b2 b3]
//	8       uint64    [b0 ... b7]
//
// Signed integers use two's complement at the same widths. Fixed-length
// buffers are written verbatim and must match their declared length exactly.
// Enumerations are written as their underlying integer at the enum's width.
//
// # Usage
//
//	w := codec.NewWriter(16)
//	w.WriteUint16(0x4154)
//	if err := w.WriteBuffer(recipient, 25); err != nil {
//	    return err // recipient is not 25 bytes long
//	}
//
//	r := codec.NewReader(w.Bytes())
//	kind, err := r.ReadUint16()
//
// # Error Handling
//
// Failures are reported as *Error values wrapping one of three sentinels:
//   - ErrTruncatedInput: fewer bytes remain than the read requires
//   - ErrSizeMismatch: a buffer has the wrong length, an integer does not fit
//     its width, or a bounded section is overshot
//   - ErrUnknownEnumValue: a decoded integer is not a member of the enum
//
// Use errors.Is to classify and errors.As to inspect the field path, offset
// and the expected and actual lengths. Reads and writes are atomic: a failed
// read does not advance the Reader, a failed write appends nothing.
//
// # Thread Safety
//
// Enum values are immutable and safe for concurrent use. Writer and Reader
// carry a position and must not be shared between goroutines.
package codec

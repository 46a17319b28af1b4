package builder

import (
	"fmt"

	"github.com/ssargent/catbuf/pkg/codec"
)

// scope is the per-record decoding state: lengths read from count and size
// fields, and the record boundary declared by its entity size header.
type scope struct {
	rec     *Record
	start   int
	end     int
	lengths map[string]uint64
}

func newScope(rec *Record, start int) *scope {
	return &scope{rec: rec, start: start, end: -1, lengths: make(map[string]uint64)}
}

// bound records the boundary declared by an entity size header read from r.
func (sc *scope) bound(declared uint64, r *codec.Reader) error {
	consumed := r.Offset() - sc.start
	avail := uint64(consumed + r.Remaining())
	if declared < uint64(consumed) {
		return &codec.Error{
			Err:    codec.ErrSizeMismatch,
			Offset: sc.start,
			Want:   int(declared),
			Got:    consumed,
			Detail: fmt.Sprintf("declared size %d is smaller than the %d byte header", declared, consumed),
		}
	}
	if declared > avail {
		return &codec.Error{
			Err:    codec.ErrTruncatedInput,
			Offset: sc.start,
			Want:   clampInt(declared),
			Got:    int(avail),
			Detail: fmt.Sprintf("record declares %d bytes, %d available", declared, avail),
		}
	}
	sc.end = sc.start + int(declared)
	return nil
}

// remaining returns the bytes left before the declared boundary.
func (sc *scope) remaining(r *codec.Reader) (int, error) {
	if sc.end < 0 {
		return 0, fmt.Errorf("%w: %s has no entity size header", ErrInvalidSchema, sc.rec.schema.name)
	}
	n := sc.end - r.Offset()
	if n < 0 {
		return 0, &codec.Error{
			Err:    codec.ErrSizeMismatch,
			Offset: r.Offset(),
			Want:   sc.end - sc.start,
			Got:    r.Offset() - sc.start,
			Detail: fmt.Sprintf("fixed fields overrun the declared size of %d bytes", sc.end-sc.start),
		}
	}
	return n, nil
}

// length returns a byte length read from ref, checked against the input.
func (sc *scope) length(ref string, r *codec.Reader) (int, error) {
	raw := sc.lengths[ref]
	if raw > uint64(r.Remaining()) {
		return 0, codec.Truncated(r.Offset(), clampInt(raw), r.Remaining())
	}
	return int(raw), nil
}

// count returns an element count read from ref.
func (sc *scope) count(ref string) int {
	return clampInt(sc.lengths[ref])
}

func clampInt(v uint64) int {
	const maxInt = int(^uint(0) >> 1)
	if v > uint64(maxInt) {
		return maxInt
	}
	return int(v)
}

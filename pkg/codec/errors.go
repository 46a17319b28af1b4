package codec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTruncatedInput is returned when fewer bytes remain than the layout requires.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrSizeMismatch is returned when a fixed-length value has the wrong length,
	// a value does not fit its declared width, or a bounded section is overshot.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrUnknownEnumValue is returned when a decoded integer is outside an enum's value set.
	ErrUnknownEnumValue = errors.New("unknown enum value")
	// ErrInvalidWidth is returned for integer widths other than 1, 2, 4 and 8.
	ErrInvalidWidth = errors.New("invalid integer width")
)

// Error carries the context of a codec failure. Err is always one of the
// package sentinels so callers can test it with errors.Is.
type Error struct {
	Err    error
	Path   []string
	Offset int
	Want   int
	Got    int
	Raw    uint64
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("codec: ")
	b.WriteString(e.Err.Error())
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(formatPath(e.Path))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldPath returns the dotted path of the field that failed, e.g.
// "mosaics[0].amount".
func (e *Error) FieldPath() string {
	return formatPath(e.Path)
}

// formatPath joins path segments, attaching index segments ("[3]") to
// their parent without a dot.
func formatPath(path []string) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Truncated reports that want bytes were needed at offset but only have remained.
func Truncated(offset, want, have int) *Error {
	return &Error{
		Err:    ErrTruncatedInput,
		Offset: offset,
		Want:   want,
		Got:    have,
		Detail: fmt.Sprintf("need %d bytes at offset %d, have %d", want, offset, have),
	}
}

// SizeMismatch reports a length disagreement between the layout and a value.
func SizeMismatch(want, got int) *Error {
	return &Error{
		Err:    ErrSizeMismatch,
		Want:   want,
		Got:    got,
		Detail: fmt.Sprintf("expected %d bytes, got %d", want, got),
	}
}

// Overflow reports an integer that does not fit into width bytes.
func Overflow(v uint64, width int) *Error {
	return &Error{
		Err:    ErrSizeMismatch,
		Want:   width,
		Raw:    v,
		Detail: fmt.Sprintf("value %d does not fit in %d byte(s)", v, width),
	}
}

// UnknownEnum reports a raw value that is not a member of enum.
func UnknownEnum(enum string, width int, raw uint64) *Error {
	return &Error{
		Err:    ErrUnknownEnumValue,
		Want:   width,
		Raw:    raw,
		Detail: fmt.Sprintf("0x%0*x is not a value of %s", width*2, raw, enum),
	}
}

// WithPath returns err with name prepended to its field path. Errors that are
// not *Error are wrapped so the field name is still visible in the message.
func WithPath(err error, name string) error {
	if err == nil || name == "" {
		return err
	}
	var ce *Error
	if errors.As(err, &ce) {
		out := *ce
		out.Path = append([]string{name}, ce.Path...)
		return &out
	}
	return fmt.Errorf("%s: %w", name, err)
}

// WithOffset records the absolute stream offset on err if it has none yet.
func WithOffset(err error, offset int) error {
	var ce *Error
	if errors.As(err, &ce) && ce.Offset == 0 {
		out := *ce
		out.Offset = offset
		return &out
	}
	return err
}

package builder

import "fmt"

type lengthMode uint8

const (
	modeFixed lengthMode = iota
	modeCount
	modeSize
	modeRemaining
)

// Length is the policy governing how many bytes or elements a variable
// buffer or array holds on the wire.
type Length struct {
	mode lengthMode
	ref  string
}

// CountFrom takes the element count from an earlier CountOf field.
func CountFrom(ref string) Length {
	return Length{mode: modeCount, ref: ref}
}

// SizeFrom takes the byte length from an earlier SizeOf field.
func SizeFrom(ref string) Length {
	return Length{mode: modeSize, ref: ref}
}

// Remaining consumes the rest of the enclosing record, as declared by its
// EntitySize field.
func Remaining() Length {
	return Length{mode: modeRemaining}
}

// Ref returns the name of the field the policy reads its length from.
func (l Length) Ref() string {
	return l.ref
}

func (l Length) String() string {
	switch l.mode {
	case modeCount:
		return fmt.Sprintf("count(%s)", l.ref)
	case modeSize:
		return fmt.Sprintf("size(%s)", l.ref)
	case modeRemaining:
		return "remaining"
	default:
		return "fixed"
	}
}

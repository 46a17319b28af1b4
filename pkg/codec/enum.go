package codec

import "fmt"

// EnumValue is one named member of an Enum.
type EnumValue struct {
	Name  string
	Value uint64
}

func (v EnumValue) String() string {
	return v.Name
}

// Enum is a closed set of named integer constants encoded at a fixed width.
// An Enum is immutable once created and safe for concurrent use.
type Enum struct {
	name    string
	width   int
	values  []EnumValue
	byValue map[uint64]int
	byName  map[string]int
}

// NewEnum creates an enum of the given width. Values keep their declaration
// order; names and values must be unique and every value must fit the width.
func NewEnum(name string, width int, values ...EnumValue) (*Enum, error) {
	if err := CheckWidth(width); err != nil {
		return nil, fmt.Errorf("enum %s: %w", name, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("enum %s: no values", name)
	}
	e := &Enum{
		name:    name,
		width:   width,
		values:  make([]EnumValue, len(values)),
		byValue: make(map[uint64]int, len(values)),
		byName:  make(map[string]int, len(values)),
	}
	for i, v := range values {
		if !Fits(v.Value, width) {
			return nil, fmt.Errorf("enum %s: value %s=%d does not fit %d byte(s)", name, v.Name, v.Value, width)
		}
		if _, dup := e.byName[v.Name]; dup {
			return nil, fmt.Errorf("enum %s: duplicate name %s", name, v.Name)
		}
		if _, dup := e.byValue[v.Value]; dup {
			return nil, fmt.Errorf("enum %s: duplicate value %d", name, v.Value)
		}
		e.values[i] = v
		e.byName[v.Name] = i
		e.byValue[v.Value] = i
	}
	return e, nil
}

// MustEnum is NewEnum for package-level declarations; it panics on error.
func MustEnum(name string, width int, values ...EnumValue) *Enum {
	e, err := NewEnum(name, width, values...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Enum) Name() string { return e.name }

func (e *Enum) Width() int { return e.width }

// Values returns the members in declaration order.
func (e *Enum) Values() []EnumValue {
	out := make([]EnumValue, len(e.values))
	copy(out, e.values)
	return out
}

// Default returns the first declared member.
func (e *Enum) Default() EnumValue {
	return e.values[0]
}

// Lookup maps a raw integer to its member.
func (e *Enum) Lookup(raw uint64) (EnumValue, error) {
	i, ok := e.byValue[raw]
	if !ok {
		return EnumValue{}, UnknownEnum(e.name, e.width, raw)
	}
	return e.values[i], nil
}

// ByName finds a member by name.
func (e *Enum) ByName(name string) (EnumValue, bool) {
	i, ok := e.byName[name]
	if !ok {
		return EnumValue{}, false
	}
	return e.values[i], true
}

// Contains reports whether v is a member of e.
func (e *Enum) Contains(v EnumValue) bool {
	i, ok := e.byValue[v.Value]
	return ok && e.values[i].Name == v.Name
}

// Encode writes v's underlying integer. Values outside the set are rejected
// rather than written.
func (e *Enum) Encode(w *Writer, v EnumValue) error {
	if _, err := e.Lookup(v.Value); err != nil {
		return err
	}
	return w.WriteInt(v.Value, e.width)
}

// Decode reads an integer and maps it to a member.
func (e *Enum) Decode(r *Reader) (EnumValue, error) {
	start := r.Offset()
	raw, err := r.ReadInt(e.width)
	if err != nil {
		return EnumValue{}, err
	}
	v, err := e.Lookup(raw)
	if err != nil {
		return EnumValue{}, WithOffset(err, start)
	}
	return v, nil
}

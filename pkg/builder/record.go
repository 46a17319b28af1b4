package builder

import (
	"bytes"
	"fmt"

	"github.com/ssargent/catbuf/pkg/codec"
)

// Record is a mutable instance of a Schema. Setters validate values at
// assignment time; counts, sizes and the entity size header are computed
// from the current contents whenever the record is sized or serialized.
//
// A Record is not safe for concurrent mutation.
type Record struct {
	schema *Schema
	values []any
}

// Schema returns the layout of the record.
func (r *Record) Schema() *Schema {
	return r.schema
}

func (r *Record) lookup(name string) (int, field, error) {
	i, ok := r.schema.index[name]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s has no field %s", ErrUnknownField, r.schema.name, name)
	}
	f := r.schema.fields[i]
	if c, ok := f.(*conditionalField); ok && !c.present(r) {
		return 0, nil, fmt.Errorf("%w: %s requires %s == %s", ErrConditionNotMet, name, c.on, c.equals)
	}
	return i, f, nil
}

// Present reports whether the named field is currently part of the layout.
// Unconditional fields are always present.
func (r *Record) Present(name string) bool {
	_, _, err := r.lookup(name)
	return err == nil
}

// Get returns the value of a field. Integers are uint64 or int64, buffers
// []byte, enums codec.EnumValue, structs *Record and arrays []any.
// Computed fields return their current uint64 value.
func (r *Record) Get(name string) (any, error) {
	i, f, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if d, ok := f.(*derivedField); ok {
		return d.value(r), nil
	}
	return r.export(i), nil
}

// export returns the stored value, copying buffers and slices so the caller
// cannot alter the record through them. Nested records stay owned.
func (r *Record) export(i int) any {
	switch v := r.values[i].(type) {
	case []byte:
		return bytes.Clone(v)
	case []any:
		out := make([]any, len(v))
		for j, e := range v {
			if b, ok := e.([]byte); ok {
				e = bytes.Clone(b)
			}
			out[j] = e
		}
		return out
	default:
		return v
	}
}

// Set assigns a field after validating the value against its declaration.
func (r *Record) Set(name string, v any) error {
	i, f, err := r.lookup(name)
	if err != nil {
		return err
	}
	n, err := f.normalize(v)
	if err != nil {
		return codec.WithPath(err, name)
	}
	r.values[i] = n
	return nil
}

// MustSet is Set for statically known values; it panics on error.
func (r *Record) MustSet(name string, v any) *Record {
	if err := r.Set(name, v); err != nil {
		panic(err)
	}
	return r
}

func (r *Record) Uint(name string) (uint64, error) {
	v, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.(uint64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T, not uint64", ErrTypeMismatch, name, v)
	}
	return n, nil
}

func (r *Record) Int(name string) (int64, error) {
	v, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T, not int64", ErrTypeMismatch, name, v)
	}
	return n, nil
}

func (r *Record) Bytes(name string) ([]byte, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not a buffer", ErrTypeMismatch, name, v)
	}
	return b, nil
}

func (r *Record) Enum(name string) (codec.EnumValue, error) {
	v, err := r.Get(name)
	if err != nil {
		return codec.EnumValue{}, err
	}
	e, ok := v.(codec.EnumValue)
	if !ok {
		return codec.EnumValue{}, fmt.Errorf("%w: %s is %T, not an enum", ErrTypeMismatch, name, v)
	}
	return e, nil
}

// Struct returns the nested record owned by r. Changes made to it are
// visible in r.
func (r *Record) Struct(name string) (*Record, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*Record)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not a struct", ErrTypeMismatch, name, v)
	}
	return s, nil
}

// Array returns the elements of a sequence. Struct elements are the records
// owned by r.
func (r *Record) Array(name string) ([]any, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	a, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not an array", ErrTypeMismatch, name, v)
	}
	return a, nil
}

// Append validates elems and adds them to the end of a sequence.
func (r *Record) Append(name string, elems ...any) error {
	i, f, err := r.lookup(name)
	if err != nil {
		return err
	}
	if c, ok := f.(*conditionalField); ok {
		f = c.field
	}
	a, ok := f.(*arrayField)
	if !ok {
		return fmt.Errorf("%w: %s is not an array", ErrTypeMismatch, name)
	}
	cur := r.values[i].([]any)
	next := make([]any, len(cur), len(cur)+len(elems))
	copy(next, cur)
	for j, e := range elems {
		n, err := a.elem.normalize(e)
		if err != nil {
			return codec.WithPath(codec.WithPath(err, index(len(cur)+j)), name)
		}
		next = append(next, n)
	}
	r.values[i] = next
	return nil
}

func (r *Record) SetUint(name string, v uint64) error { return r.Set(name, v) }

func (r *Record) SetInt(name string, v int64) error { return r.Set(name, v) }

func (r *Record) SetBytes(name string, b []byte) error { return r.Set(name, b) }

// SetEnum assigns an enum field by member name.
func (r *Record) SetEnum(name, member string) error { return r.Set(name, member) }

func (r *Record) SetStruct(name string, s *Record) error { return r.Set(name, s) }

func (r *Record) SetArray(name string, elems []any) error { return r.Set(name, elems) }

// Size returns the encoded size of the record.
func (r *Record) Size() int {
	n := 0
	for i, f := range r.schema.fields {
		n += f.size(r, r.values[i])
	}
	return n
}

// Serialize encodes the record. Computed fields are derived from the current
// contents; a count or size that does not fit its width is an error.
func (r *Record) Serialize() ([]byte, error) {
	w := codec.NewWriter(r.Size())
	if err := r.encodeTo(w); err != nil {
		return nil, codec.WithPath(err, r.schema.name)
	}
	return w.Bytes(), nil
}

func (r *Record) encodeTo(w *codec.Writer) error {
	for i, f := range r.schema.fields {
		if err := f.encode(w, r, r.values[i]); err != nil {
			return codec.WithPath(err, f.Name())
		}
	}
	return nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := &Record{schema: r.schema, values: make([]any, len(r.values))}
	for i, v := range r.values {
		out.values[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return bytes.Clone(x)
	case *Record:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two records share a schema and would encode to the
// same bytes. Values of absent conditional fields are ignored.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.schema != o.schema {
		return false
	}
	for i, f := range r.schema.fields {
		if c, ok := f.(*conditionalField); ok && !c.present(r) && !c.present(o) {
			continue
		}
		if !valueEqual(r.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case *Record:
		y, ok := b.(*Record)
		return ok && x.Equal(y)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valueEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func (r *Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%s{%v}", r.schema.name, err)
	}
	return r.schema.name + string(b)
}

package builder

import (
	"errors"
	"fmt"
	"math"

	"github.com/ssargent/catbuf/pkg/codec"
)

// Field describes one member of a schema. Fields are immutable after
// construction and may be shared by any number of schemas.
type Field interface {
	Name() string
	Kind() Kind
	Describe() FieldInfo
}

// field is implemented by every concrete field that can appear in a
// flattened schema.
type field interface {
	Field

	zero() any
	normalize(v any) (any, error)
	size(rec *Record, v any) int
	encode(w *codec.Writer, rec *Record, v any) error
	decode(r *codec.Reader, sc *scope) (any, error)
}

// FieldInfo is the layout description of a field.
type FieldInfo struct {
	Name      string      `json:"name" yaml:"name"`
	Kind      Kind        `json:"kind" yaml:"kind"`
	Offset    int         `json:"offset" yaml:"offset"`
	Width     int         `json:"width,omitempty" yaml:"width,omitempty"`
	Signed    bool        `json:"signed,omitempty" yaml:"signed,omitempty"`
	Length    int         `json:"length,omitempty" yaml:"length,omitempty"`
	Type      string      `json:"type,omitempty" yaml:"type,omitempty"`
	Policy    string      `json:"policy,omitempty" yaml:"policy,omitempty"`
	Target    string      `json:"target,omitempty" yaml:"target,omitempty"`
	Condition string      `json:"condition,omitempty" yaml:"condition,omitempty"`
	Element   *FieldInfo  `json:"element,omitempty" yaml:"element,omitempty"`
	Values    []EnumEntry `json:"values,omitempty" yaml:"values,omitempty"`
}

// EnumEntry lists one enum member in a FieldInfo.
type EnumEntry struct {
	Name  string `json:"name" yaml:"name"`
	Value uint64 `json:"value" yaml:"value"`
}

func typeMismatch(f Field, v any) error {
	return fmt.Errorf("%w: %s field %s cannot hold %T", ErrTypeMismatch, f.Kind(), f.Name(), v)
}

// --- integers ---

type intField struct {
	name   string
	width  int
	signed bool
}

// Integer declares an integer of the given width in bytes.
func Integer(name string, width int, signed bool) Field {
	return &intField{name: name, width: width, signed: signed}
}

func Uint8(name string) Field  { return Integer(name, 1, false) }
func Uint16(name string) Field { return Integer(name, 2, false) }
func Uint32(name string) Field { return Integer(name, 4, false) }
func Uint64(name string) Field { return Integer(name, 8, false) }
func Int8(name string) Field   { return Integer(name, 1, true) }
func Int16(name string) Field  { return Integer(name, 2, true) }
func Int32(name string) Field  { return Integer(name, 4, true) }
func Int64(name string) Field  { return Integer(name, 8, true) }

func (f *intField) Name() string { return f.name }
func (f *intField) Kind() Kind   { return KindInteger }

func (f *intField) Describe() FieldInfo {
	return FieldInfo{Name: f.name, Kind: KindInteger, Width: f.width, Signed: f.signed}
}

func (f *intField) zero() any {
	if f.signed {
		return int64(0)
	}
	return uint64(0)
}

func (f *intField) normalize(v any) (any, error) {
	if f.signed {
		n, ok := toInt64(v)
		if !ok {
			return nil, typeMismatch(f, v)
		}
		if !fitsSigned(n, f.width) {
			return nil, &codec.Error{
				Err:    codec.ErrSizeMismatch,
				Want:   f.width,
				Raw:    uint64(n),
				Detail: fmt.Sprintf("value %d does not fit in %d signed byte(s)", n, f.width),
			}
		}
		return n, nil
	}
	if n, ok := toInt64(v); ok && n < 0 {
		return nil, &codec.Error{
			Err:    codec.ErrSizeMismatch,
			Want:   f.width,
			Detail: fmt.Sprintf("negative value %d for unsigned field", n),
		}
	}
	n, ok := toUint64(v)
	if !ok {
		return nil, typeMismatch(f, v)
	}
	if !codec.Fits(n, f.width) {
		return nil, codec.Overflow(n, f.width)
	}
	return n, nil
}

func (f *intField) size(*Record, any) int { return f.width }

func (f *intField) encode(w *codec.Writer, _ *Record, v any) error {
	if f.signed {
		return w.WriteInt(codec.Truncate(v.(int64), f.width), f.width)
	}
	return w.WriteInt(v.(uint64), f.width)
}

func (f *intField) decode(r *codec.Reader, _ *scope) (any, error) {
	raw, err := r.ReadInt(f.width)
	if err != nil {
		return nil, err
	}
	if f.signed {
		return codec.SignExtend(raw, f.width), nil
	}
	return raw, nil
}

func fitsSigned(n int64, width int) bool {
	if width >= 8 {
		return true
	}
	bits := uint(width) * 8
	lo := -(int64(1) << (bits - 1))
	hi := int64(1)<<(bits-1) - 1
	return n >= lo && n <= hi
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case int, int8, int16, int32, int64:
		i, _ := toInt64(n)
		if i < 0 {
			return 0, false
		}
		return uint64(i), true
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint, uint8, uint16, uint32, uint64:
		u, _ := toUint64(n)
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	default:
		return 0, false
	}
}

// --- buffers ---

type bufferField struct {
	name   string
	length int
	policy Length
}

// Bytes declares a buffer of exactly n bytes.
func Bytes(name string, n int) Field {
	return &bufferField{name: name, length: n}
}

// VarBytes declares a buffer whose length is governed by policy.
func VarBytes(name string, policy Length) Field {
	return &bufferField{name: name, policy: policy}
}

func (f *bufferField) Name() string { return f.name }
func (f *bufferField) Kind() Kind   { return KindBuffer }

func (f *bufferField) fixed() bool { return f.policy.mode == modeFixed }

func (f *bufferField) Describe() FieldInfo {
	info := FieldInfo{Name: f.name, Kind: KindBuffer}
	if f.fixed() {
		info.Length = f.length
	} else {
		info.Policy = f.policy.String()
	}
	return info
}

func (f *bufferField) zero() any {
	if f.fixed() {
		return make([]byte, f.length)
	}
	return []byte{}
}

func (f *bufferField) normalize(v any) (any, error) {
	var b []byte
	switch x := v.(type) {
	case []byte:
		b = x
	case nil:
	default:
		return nil, typeMismatch(f, v)
	}
	if f.fixed() && len(b) != f.length {
		return nil, codec.SizeMismatch(f.length, len(b))
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (f *bufferField) size(_ *Record, v any) int { return len(v.([]byte)) }

func (f *bufferField) encode(w *codec.Writer, _ *Record, v any) error {
	b := v.([]byte)
	if f.fixed() {
		return w.WriteBuffer(b, f.length)
	}
	return w.WriteBuffer(b, len(b))
}

func (f *bufferField) decode(r *codec.Reader, sc *scope) (any, error) {
	switch f.policy.mode {
	case modeFixed:
		return r.ReadBuffer(f.length)
	case modeRemaining:
		n, err := sc.remaining(r)
		if err != nil {
			return nil, err
		}
		return r.ReadBuffer(n)
	default:
		n, err := sc.length(f.policy.ref, r)
		if err != nil {
			return nil, err
		}
		return r.ReadBuffer(n)
	}
}

// --- enums ---

type enumField struct {
	name string
	enum *codec.Enum
}

// EnumOf declares a field holding a member of e.
func EnumOf(name string, e *codec.Enum) Field {
	return &enumField{name: name, enum: e}
}

func (f *enumField) Name() string { return f.name }
func (f *enumField) Kind() Kind   { return KindEnum }

// Enum returns the enumeration the field is drawn from.
func (f *enumField) Enum() *codec.Enum { return f.enum }

func (f *enumField) Describe() FieldInfo {
	info := FieldInfo{Name: f.name, Kind: KindEnum, Width: f.enum.Width(), Type: f.enum.Name()}
	for _, v := range f.enum.Values() {
		info.Values = append(info.Values, EnumEntry{Name: v.Name, Value: v.Value})
	}
	return info
}

func (f *enumField) zero() any { return f.enum.Default() }

func (f *enumField) normalize(v any) (any, error) {
	switch x := v.(type) {
	case codec.EnumValue:
		if !f.enum.Contains(x) {
			return nil, codec.UnknownEnum(f.enum.Name(), f.enum.Width(), x.Value)
		}
		return x, nil
	case string:
		ev, ok := f.enum.ByName(x)
		if !ok {
			return nil, &codec.Error{
				Err:    codec.ErrUnknownEnumValue,
				Want:   f.enum.Width(),
				Detail: fmt.Sprintf("%q is not a value of %s", x, f.enum.Name()),
			}
		}
		return ev, nil
	default:
		raw, ok := toUint64(v)
		if !ok {
			return nil, typeMismatch(f, v)
		}
		return f.enum.Lookup(raw)
	}
}

func (f *enumField) size(*Record, any) int { return f.enum.Width() }

func (f *enumField) encode(w *codec.Writer, _ *Record, v any) error {
	return f.enum.Encode(w, v.(codec.EnumValue))
}

func (f *enumField) decode(r *codec.Reader, _ *scope) (any, error) {
	return f.enum.Decode(r)
}

// --- nested records ---

type structField struct {
	name   string
	schema *Schema
}

// Struct declares a nested record laid out by s.
func Struct(name string, s *Schema) Field {
	return &structField{name: name, schema: s}
}

func (f *structField) Name() string { return f.name }
func (f *structField) Kind() Kind   { return KindStruct }

func (f *structField) Describe() FieldInfo {
	info := FieldInfo{Name: f.name, Kind: KindStruct, Type: f.schema.Name()}
	if n, ok := f.schema.FixedSize(); ok {
		info.Length = n
	}
	return info
}

func (f *structField) zero() any { return f.schema.New() }

func (f *structField) normalize(v any) (any, error) {
	rec, ok := v.(*Record)
	if !ok || rec == nil {
		return nil, typeMismatch(f, v)
	}
	if rec.schema != f.schema {
		return nil, fmt.Errorf("%w: field %s expects %s, got %s", ErrTypeMismatch, f.name, f.schema.Name(), rec.schema.Name())
	}
	return rec.Clone(), nil
}

func (f *structField) size(_ *Record, v any) int { return v.(*Record).Size() }

func (f *structField) encode(w *codec.Writer, _ *Record, v any) error {
	return v.(*Record).encodeTo(w)
}

func (f *structField) decode(r *codec.Reader, _ *scope) (any, error) {
	return decodeRecord(r, f.schema)
}

// --- sequences ---

type arrayField struct {
	name   string
	elem   field
	policy Length
}

// Array declares a sequence of elem values whose extent is governed by
// policy. Elements may be integers, enums, fixed buffers or structs.
func Array(name string, elem Field, policy Length) Field {
	e, _ := elem.(field)
	return &arrayField{name: name, elem: e, policy: policy}
}

func (f *arrayField) Name() string { return f.name }
func (f *arrayField) Kind() Kind   { return KindArray }

func (f *arrayField) Describe() FieldInfo {
	info := FieldInfo{Name: f.name, Kind: KindArray, Policy: f.policy.String()}
	if f.elem != nil {
		elem := f.elem.Describe()
		info.Type = elem.Type
		if info.Type == "" {
			info.Type = elem.Kind.String()
		}
		info.Element = &elem
	}
	return info
}

func (f *arrayField) zero() any { return []any{} }

func (f *arrayField) normalize(v any) (any, error) {
	var in []any
	switch x := v.(type) {
	case []any:
		in = x
	case []*Record:
		in = make([]any, len(x))
		for i, r := range x {
			in[i] = r
		}
	case nil:
	default:
		return nil, typeMismatch(f, v)
	}
	out := make([]any, len(in))
	for i, e := range in {
		n, err := f.elem.normalize(e)
		if err != nil {
			return nil, codec.WithPath(err, index(i))
		}
		out[i] = n
	}
	return out, nil
}

func (f *arrayField) size(_ *Record, v any) int {
	n := 0
	for _, e := range v.([]any) {
		n += f.elem.size(nil, e)
	}
	return n
}

func (f *arrayField) encode(w *codec.Writer, _ *Record, v any) error {
	for i, e := range v.([]any) {
		if err := f.elem.encode(w, nil, e); err != nil {
			return codec.WithPath(err, index(i))
		}
	}
	return nil
}

func (f *arrayField) decode(r *codec.Reader, sc *scope) (any, error) {
	switch f.policy.mode {
	case modeCount:
		n := sc.count(f.policy.ref)
		out := make([]any, 0, min(n, r.Remaining()))
		for i := 0; i < n; i++ {
			e, err := f.elem.decode(r, sc)
			if err != nil {
				return nil, codec.WithPath(err, index(i))
			}
			out = append(out, e)
		}
		return out, nil
	case modeSize:
		n, err := sc.length(f.policy.ref, r)
		if err != nil {
			return nil, err
		}
		return f.decodeBounded(r, sc, n)
	default:
		n, err := sc.remaining(r)
		if err != nil {
			return nil, err
		}
		return f.decodeBounded(r, sc, n)
	}
}

// decodeBounded decodes elements until exactly n bytes are consumed. An
// element running past the bound is a size mismatch, not truncation.
func (f *arrayField) decodeBounded(r *codec.Reader, sc *scope, n int) (any, error) {
	sub, err := r.Limit(n)
	if err != nil {
		return nil, err
	}
	out := []any{}
	for i := 0; sub.Remaining() > 0; i++ {
		at := sub.Offset()
		e, err := f.elem.decode(sub, sc)
		if err != nil {
			var ce *codec.Error
			if errors.As(err, &ce) && errors.Is(err, codec.ErrTruncatedInput) {
				err = &codec.Error{
					Err:    codec.ErrSizeMismatch,
					Offset: at,
					Want:   n,
					Got:    ce.Offset - r.Offset() + ce.Want,
					Detail: fmt.Sprintf("element %d overshoots the %d byte section", i, n),
				}
			}
			return nil, codec.WithPath(err, index(i))
		}
		out = append(out, e)
	}
	if err := r.Skip(n); err != nil {
		return nil, err
	}
	return out, nil
}

func index(i int) string {
	return fmt.Sprintf("[%d]", i)
}

// --- derived fields ---

type derivedField struct {
	name   string
	kind   Kind
	width  int
	target string
}

// CountOf declares a count field holding the number of elements of target.
// The value is computed when serializing and cannot be set.
func CountOf(name string, width int, target string) Field {
	return &derivedField{name: name, kind: KindCount, width: width, target: target}
}

// SizeOf declares a field holding the encoded byte size of target.
func SizeOf(name string, width int, target string) Field {
	return &derivedField{name: name, kind: KindSize, width: width, target: target}
}

// EntitySize declares the record's own total size header.
func EntitySize(name string, width int) Field {
	return &derivedField{name: name, kind: KindEntitySize, width: width}
}

func (f *derivedField) Name() string { return f.name }
func (f *derivedField) Kind() Kind   { return f.kind }

func (f *derivedField) Describe() FieldInfo {
	return FieldInfo{Name: f.name, Kind: f.kind, Width: f.width, Target: f.target}
}

func (f *derivedField) zero() any { return nil }

func (f *derivedField) normalize(any) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, f.name)
}

func (f *derivedField) size(*Record, any) int { return f.width }

// value computes the field from the current state of rec.
func (f *derivedField) value(rec *Record) uint64 {
	switch f.kind {
	case KindEntitySize:
		return uint64(rec.Size())
	case KindCount:
		i := rec.schema.index[f.target]
		if c, ok := rec.schema.fields[i].(*conditionalField); ok && !c.present(rec) {
			return 0
		}
		switch v := rec.values[i].(type) {
		case []any:
			return uint64(len(v))
		case []byte:
			return uint64(len(v))
		}
		return 0
	default:
		i := rec.schema.index[f.target]
		return uint64(rec.schema.fields[i].size(rec, rec.values[i]))
	}
}

func (f *derivedField) encode(w *codec.Writer, rec *Record, _ any) error {
	return w.WriteInt(f.value(rec), f.width)
}

func (f *derivedField) decode(r *codec.Reader, sc *scope) (any, error) {
	raw, err := r.ReadInt(f.width)
	if err != nil {
		return nil, err
	}
	if f.kind == KindEntitySize {
		return nil, sc.bound(raw, r)
	}
	sc.lengths[f.name] = raw
	return nil, nil
}

// --- conditional presence ---

type conditionalField struct {
	field
	on     string
	equals string
}

// When makes f present only while the earlier enum field on holds the
// member named equals. An absent field occupies no bytes.
func When(f Field, on, equals string) Field {
	inner, _ := f.(field)
	return &conditionalField{field: inner, on: on, equals: equals}
}

func (f *conditionalField) Describe() FieldInfo {
	info := f.field.Describe()
	info.Condition = fmt.Sprintf("%s == %s", f.on, f.equals)
	return info
}

func (f *conditionalField) present(rec *Record) bool {
	i, ok := rec.schema.index[f.on]
	if !ok {
		return false
	}
	v, ok := rec.values[i].(codec.EnumValue)
	return ok && v.Name == f.equals
}

func (f *conditionalField) size(rec *Record, v any) int {
	if !f.present(rec) {
		return 0
	}
	return f.field.size(rec, v)
}

func (f *conditionalField) encode(w *codec.Writer, rec *Record, v any) error {
	if !f.present(rec) {
		return nil
	}
	return f.field.encode(w, rec, v)
}

func (f *conditionalField) decode(r *codec.Reader, sc *scope) (any, error) {
	if !f.present(sc.rec) {
		return f.field.zero(), nil
	}
	return f.field.decode(r, sc)
}

// --- inline ---

type inlineField struct {
	schema *Schema
}

// Inline splices the fields of s into the enclosing schema at this
// position.
func Inline(s *Schema) Field {
	return &inlineField{schema: s}
}

func (f *inlineField) Name() string { return f.schema.Name() }
func (f *inlineField) Kind() Kind   { return KindInline }

func (f *inlineField) Describe() FieldInfo {
	return FieldInfo{Name: f.schema.Name(), Kind: KindInline, Type: f.schema.Name()}
}

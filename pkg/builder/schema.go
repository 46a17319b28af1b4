package builder

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ssargent/catbuf/pkg/codec"
	"github.com/ssargent/catbuf/pkg/logging"
)

// Schema is the ordered field layout of a record type. A Schema is
// immutable once built and safe for concurrent use.
type Schema struct {
	name   string
	fields []field
	index  map[string]int
}

// NewSchema builds and validates a schema. Inline fields are flattened in
// place.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	s := &Schema{name: name, index: make(map[string]int)}
	for _, f := range fields {
		if err := s.add(f); err != nil {
			return nil, err
		}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSchema is NewSchema for package-level declarations; it panics on error.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidSchema, s.name, fmt.Sprintf(format, args...))
}

func (s *Schema) add(f Field) error {
	if f == nil {
		return s.invalid("nil field at position %d", len(s.fields))
	}
	if in, ok := f.(*inlineField); ok {
		if in.schema == nil {
			return s.invalid("inline of nil schema")
		}
		for _, g := range in.schema.fields {
			if err := s.add(g); err != nil {
				return err
			}
		}
		return nil
	}
	ff, ok := f.(field)
	if !ok {
		return s.invalid("unsupported field type %T", f)
	}
	if c, ok := ff.(*conditionalField); ok && c.field == nil {
		return s.invalid("conditional on %s wraps an unsupported field", c.on)
	}
	name := ff.Name()
	if name == "" {
		return s.invalid("unnamed field at position %d", len(s.fields))
	}
	if _, dup := s.index[name]; dup {
		return s.invalid("duplicate field %s", name)
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, ff)
	return nil
}

func (s *Schema) validate() error {
	entity := -1
	for i, f := range s.fields {
		if c, ok := f.(*conditionalField); ok {
			j, found := s.index[c.on]
			if !found || j >= i {
				return s.invalid("%s: condition field %s must precede it", c.Name(), c.on)
			}
			ef, isEnum := s.fields[j].(*enumField)
			if !isEnum {
				return s.invalid("%s: condition field %s is not an enum", c.Name(), c.on)
			}
			if _, ok := ef.enum.ByName(c.equals); !ok {
				return s.invalid("%s: %s is not a value of %s", c.Name(), c.equals, ef.enum.Name())
			}
			if c.Kind().IsDerived() {
				return s.invalid("%s: computed fields cannot be conditional", c.Name())
			}
			f = c.field
		}
		if d, ok := f.(*derivedField); ok && d.kind == KindEntitySize {
			if entity >= 0 {
				return s.invalid("%s: second entity size field", d.name)
			}
			entity = i
		}
		if err := s.validateField(i, f, entity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validateField(i int, f field, entity int) error {
	switch x := f.(type) {
	case *intField:
		if err := codec.CheckWidth(x.width); err != nil {
			return s.invalid("%s: %v", x.name, err)
		}
	case *enumField:
		if x.enum == nil {
			return s.invalid("%s: nil enum", x.name)
		}
	case *structField:
		if x.schema == nil {
			return s.invalid("%s: nil schema", x.name)
		}
	case *bufferField:
		if x.fixed() {
			if x.length < 0 {
				return s.invalid("%s: negative length", x.name)
			}
			return nil
		}
		return s.validatePolicy(i, x.name, x.policy, entity)
	case *arrayField:
		if err := s.validateElem(x); err != nil {
			return err
		}
		if x.policy.mode == modeFixed {
			return s.invalid("%s: arrays need a length policy", x.name)
		}
		return s.validatePolicy(i, x.name, x.policy, entity)
	case *derivedField:
		if err := codec.CheckWidth(x.width); err != nil {
			return s.invalid("%s: %v", x.name, err)
		}
		if x.kind == KindEntitySize {
			return nil
		}
		j, found := s.index[x.target]
		if !found || j <= i {
			return s.invalid("%s: target %s must follow it", x.name, x.target)
		}
		want := modeCount
		if x.kind == KindSize {
			want = modeSize
		}
		if p, ok := policyOf(s.fields[j]); !ok || p.mode != want || p.ref != x.name {
			return s.invalid("%s: target %s does not take its length from it", x.name, x.target)
		}
	default:
		return s.invalid("unsupported field type %T", f)
	}
	return nil
}

func (s *Schema) validatePolicy(i int, name string, p Length, entity int) error {
	switch p.mode {
	case modeRemaining:
		if i != len(s.fields)-1 {
			return s.invalid("%s: remaining policy must be the last field", name)
		}
		if entity < 0 || entity >= i {
			return s.invalid("%s: remaining policy needs an earlier entity size field", name)
		}
	case modeCount, modeSize:
		j, found := s.index[p.ref]
		if !found || j >= i {
			return s.invalid("%s: length field %s must precede it", name, p.ref)
		}
		d, ok := s.fields[j].(*derivedField)
		if !ok || d.target != name || (p.mode == modeCount) != (d.kind == KindCount) {
			return s.invalid("%s: %s is not a matching %s field", name, p.ref, p)
		}
	}
	return nil
}

func (s *Schema) validateElem(a *arrayField) error {
	switch e := a.elem.(type) {
	case *intField:
		if err := codec.CheckWidth(e.width); err != nil {
			return s.invalid("%s: %v", a.name, err)
		}
	case *enumField:
		if e.enum == nil {
			return s.invalid("%s: nil element enum", a.name)
		}
	case *bufferField:
		if !e.fixed() || e.length <= 0 {
			return s.invalid("%s: buffer elements must have a fixed non-zero length", a.name)
		}
	case *structField:
		if e.schema == nil {
			return s.invalid("%s: nil element schema", a.name)
		}
		if n, ok := e.schema.FixedSize(); ok && n == 0 {
			return s.invalid("%s: element %s has no size", a.name, e.schema.name)
		}
	default:
		return s.invalid("%s: unsupported element type %T", a.name, a.elem)
	}
	return nil
}

func policyOf(f field) (Length, bool) {
	if c, ok := f.(*conditionalField); ok {
		f = c.field
	}
	switch x := f.(type) {
	case *bufferField:
		return x.policy, !x.fixed()
	case *arrayField:
		return x.policy, true
	}
	return Length{}, false
}

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// Fields returns the flattened fields in wire order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	for i, f := range s.fields {
		out[i] = f
	}
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// FixedSize returns the encoded size when every record of the schema has
// the same size.
func (s *Schema) FixedSize() (int, bool) {
	n := 0
	for _, f := range s.fields {
		switch x := f.(type) {
		case *intField, *enumField, *derivedField:
			n += x.size(nil, nil)
		case *bufferField:
			if !x.fixed() {
				return 0, false
			}
			n += x.length
		case *structField:
			m, ok := x.schema.FixedSize()
			if !ok {
				return 0, false
			}
			n += m
		default:
			return 0, false
		}
	}
	return n, true
}

// Describe lists the layout of the schema. Offsets are known up to the first
// variable sized field and reported as -1 after it.
func (s *Schema) Describe() []FieldInfo {
	out := make([]FieldInfo, 0, len(s.fields))
	off := 0
	for _, f := range s.fields {
		info := f.Describe()
		info.Offset = off
		if off >= 0 {
			if n, ok := fixedWidth(f); ok {
				off += n
			} else {
				off = -1
			}
		}
		out = append(out, info)
	}
	return out
}

func fixedWidth(f field) (int, bool) {
	switch x := f.(type) {
	case *intField, *enumField, *derivedField:
		return x.size(nil, nil), true
	case *bufferField:
		return x.length, x.fixed()
	case *structField:
		return x.schema.FixedSize()
	}
	return 0, false
}

// New returns a record with every field at its zero value.
func (s *Schema) New() *Record {
	rec := &Record{schema: s, values: make([]any, len(s.fields))}
	for i, f := range s.fields {
		rec.values[i] = f.zero()
	}
	return rec
}

// Load decodes a record that must span all of data.
func (s *Schema) Load(data []byte) (*Record, error) {
	r := codec.NewReader(data)
	rec, err := s.Decode(r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, &codec.Error{
			Err:    codec.ErrSizeMismatch,
			Path:   []string{s.name},
			Offset: r.Offset(),
			Want:   r.Offset(),
			Got:    len(data),
			Detail: fmt.Sprintf("%d trailing bytes after %d byte record", r.Remaining(), r.Offset()),
		}
	}
	return rec, nil
}

// Decode reads one record from r, leaving any following bytes unread. On
// failure no record is returned and the reader position is unspecified.
func (s *Schema) Decode(r *codec.Reader) (*Record, error) {
	start := r.Offset()
	rec, err := decodeRecord(r, s)
	if err != nil {
		err = codec.WithPath(err, s.name)
		logging.L().Debug("decode rejected",
			zap.String("schema", s.name),
			zap.Int("start", start),
			zap.Error(err),
		)
		return nil, err
	}
	return rec, nil
}

func decodeRecord(r *codec.Reader, s *Schema) (*Record, error) {
	rec := &Record{schema: s, values: make([]any, len(s.fields))}
	sc := newScope(rec, r.Offset())
	for i, f := range s.fields {
		at := r.Offset()
		v, err := f.decode(r, sc)
		if err != nil {
			return nil, codec.WithOffset(codec.WithPath(err, f.Name()), at)
		}
		rec.values[i] = v
	}
	if sc.end >= 0 && r.Offset() != sc.end {
		return nil, &codec.Error{
			Err:    codec.ErrSizeMismatch,
			Offset: sc.start,
			Want:   sc.end - sc.start,
			Got:    r.Offset() - sc.start,
			Detail: fmt.Sprintf("%s declares %d bytes, fields span %d", s.name, sc.end-sc.start, r.Offset()-sc.start),
		}
	}
	return rec, nil
}

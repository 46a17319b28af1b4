package builder

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ssargent/catbuf/pkg/codec"
)

// Map returns the record as plain values: integers as uint64/int64, buffers
// as hex strings, enums by member name, structs as nested maps. Computed
// fields are included with their current values; absent conditional fields
// are omitted.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.schema.fields))
	for i, f := range r.schema.fields {
		if c, ok := f.(*conditionalField); ok && !c.present(r) {
			continue
		}
		m[f.Name()] = plainValue(f, r.values[i], r)
	}
	return m
}

func plainValue(f field, v any, rec *Record) any {
	switch x := f.(type) {
	case *conditionalField:
		return plainValue(x.field, v, rec)
	case *derivedField:
		return x.value(rec)
	case *bufferField:
		return hex.EncodeToString(v.([]byte))
	case *enumField:
		return v.(codec.EnumValue).Name
	case *structField:
		return v.(*Record).Map()
	case *arrayField:
		elems := v.([]any)
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = plainValue(x.elem, e, nil)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the record as an object whose keys follow wire order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	first := true
	for i, f := range r.schema.fields {
		if c, ok := f.(*conditionalField); ok && !c.present(r) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(f.Name())
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeJSONValue(buf, f, r.values[i], r); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSONValue(buf *bytes.Buffer, f field, v any, rec *Record) error {
	switch x := f.(type) {
	case *conditionalField:
		return writeJSONValue(buf, x.field, v, rec)
	case *structField:
		return v.(*Record).writeJSON(buf)
	case *arrayField:
		buf.WriteByte('[')
		for i, e := range v.([]any) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONValue(buf, x.elem, e, nil); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(plainValue(f, v, rec))
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// ParseJSON builds a record from a JSON object in the form produced by
// MarshalJSON.
func (s *Schema) ParseJSON(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, s.name, err)
	}
	return s.FromMap(m)
}

// FromMap builds a record from plain values as returned by Map, or as
// produced by JSON and YAML decoders. Buffers are hex strings, enums member
// names or raw integers, integers numbers or numeric strings. Missing fields
// keep their zero values and computed fields are ignored. A value for a
// conditional field whose condition does not hold fails ErrConditionNotMet.
func (s *Schema) FromMap(m map[string]any) (*Record, error) {
	for k := range m {
		if _, ok := s.index[k]; !ok {
			return nil, fmt.Errorf("%w: %s has no field %s", ErrUnknownField, s.name, k)
		}
	}
	rec := s.New()
	for i, f := range s.fields {
		raw, ok := m[f.Name()]
		if !ok || f.Kind().IsDerived() {
			continue
		}
		if c, ok := f.(*conditionalField); ok && !c.present(rec) {
			return nil, fmt.Errorf("%w: %s requires %s == %s", ErrConditionNotMet, c.Name(), c.on, c.equals)
		}
		v, err := parseValue(f, raw)
		if err != nil {
			return nil, codec.WithPath(err, f.Name())
		}
		n, err := f.normalize(v)
		if err != nil {
			return nil, codec.WithPath(err, f.Name())
		}
		rec.values[i] = n
	}
	return rec, nil
}

func parseValue(f field, v any) (any, error) {
	switch x := f.(type) {
	case *conditionalField:
		return parseValue(x.field, v)
	case *intField:
		return parseInteger(x, v)
	case *bufferField:
		if s, ok := v.(string); ok {
			b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, x.name, err)
			}
			return b, nil
		}
		return v, nil
	case *enumField:
		switch n := v.(type) {
		case json.Number:
			return strconv.ParseUint(n.String(), 0, 64)
		case float64:
			return floatToUint(x, n)
		}
		return v, nil
	case *structField:
		if m, ok := v.(map[string]any); ok {
			return x.schema.FromMap(m)
		}
		return v, nil
	case *arrayField:
		elems, ok := v.([]any)
		if !ok {
			return v, nil
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			p, err := parseValue(x.elem, e)
			if err != nil {
				return nil, codec.WithPath(err, index(i))
			}
			out[i] = p
		}
		return out, nil
	}
	return v, nil
}

func parseInteger(f *intField, v any) (any, error) {
	var text string
	switch n := v.(type) {
	case json.Number:
		text = n.String()
	case string:
		text = n
	case float64:
		if f.signed {
			if n != math.Trunc(n) || n < math.MinInt64 || n > math.MaxInt64 {
				return nil, typeMismatch(f, v)
			}
			return int64(n), nil
		}
		return floatToUint(f, n)
	default:
		return v, nil
	}
	if f.signed {
		i, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, f.name, err)
		}
		return i, nil
	}
	if strings.HasPrefix(text, "-") {
		i, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, f.name, err)
		}
		return i, nil
	}
	u, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, f.name, err)
	}
	return u, nil
}

func floatToUint(f Field, n float64) (uint64, error) {
	if n != math.Trunc(n) || n < 0 || n > math.MaxUint64 {
		return 0, typeMismatch(f, n)
	}
	return uint64(n), nil
}

package builder

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ssargent/catbuf/pkg/codec"
	"github.com/ssargent/catbuf/pkg/logging"
)

var (
	direction = codec.MustEnum("Direction", 1,
		codec.EnumValue{Name: "DECREASE", Value: 0},
		codec.EnumValue{Name: "INCREASE", Value: 1},
	)

	pointSchema = MustSchema("Point", Int16("x"), Int16("y"))

	headerSchema = MustSchema("Header", EntitySize("size", 4), Uint16("version"))

	itemSchema = MustSchema("Item", Uint32("id"), EnumOf("dir", direction))

	bagSchema = MustSchema("Bag",
		Inline(headerSchema),
		Bytes("tag", 4),
		SizeOf("noteSize", 1, "note"),
		CountOf("itemsCount", 1, "items"),
		VarBytes("note", SizeFrom("noteSize")),
		Array("items", Struct("item", itemSchema), CountFrom("itemsCount")),
		EnumOf("dir", direction),
		When(Uint64("bonus"), "dir", "INCREASE"),
		Array("tail", Uint16("v"), Remaining()),
	)
)

// bagBytes is the encoding of newBag.
var bagBytes = []byte{
	0x1E, 0x00, 0x00, 0x00, // size
	0x02, 0x00, // version
	0x01, 0x02, 0x03, 0x04, // tag
	0x02,       // noteSize
	0x01,       // itemsCount
	0x68, 0x69, // note
	0x07, 0x00, 0x00, 0x00, 0x01, // items[0]
	0x01,                                           // dir
	0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // bonus
	0x02, 0x01, // tail
}

func newBag(t *testing.T) *Record {
	t.Helper()
	item := itemSchema.New()
	require.NoError(t, item.SetUint("id", 7))
	require.NoError(t, item.SetEnum("dir", "INCREASE"))

	bag := bagSchema.New()
	require.NoError(t, bag.SetUint("version", 2))
	require.NoError(t, bag.SetBytes("tag", []byte{1, 2, 3, 4}))
	require.NoError(t, bag.SetBytes("note", []byte("hi")))
	require.NoError(t, bag.Append("items", item))
	require.NoError(t, bag.SetEnum("dir", "INCREASE"))
	require.NoError(t, bag.SetUint("bonus", 9))
	require.NoError(t, bag.SetArray("tail", []any{uint16(0x0102)}))
	return bag
}

func TestSchema_New(t *testing.T) {
	rec := bagSchema.New()

	assert.Equal(t, 13, rec.Size())

	tag, err := rec.Bytes("tag")
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 4), tag)

	dir, err := rec.Enum("dir")
	require.NoError(t, err)
	assert.Equal(t, "DECREASE", dir.Name)

	items, err := rec.Array("items")
	require.NoError(t, err)
	assert.Empty(t, items)

	size, err := rec.Uint("size")
	require.NoError(t, err)
	assert.Equal(t, uint64(13), size)
}

func TestRecord_FixedLayout(t *testing.T) {
	p := pointSchema.New()
	require.NoError(t, p.SetInt("x", -2))
	require.NoError(t, p.SetInt("y", 3))

	data, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0xFF, 0x03, 0x00}, data)

	back, err := pointSchema.Load(data)
	require.NoError(t, err)
	x, err := back.Int("x")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), x)

	n, ok := pointSchema.FixedSize()
	assert.True(t, ok)
	assert.Equal(t, 4, n)
}

func TestRecord_SerializeLayout(t *testing.T) {
	bag := newBag(t)

	assert.Equal(t, len(bagBytes), bag.Size())

	data, err := bag.Serialize()
	require.NoError(t, err)
	assert.Equal(t, bagBytes, data)
	assert.Len(t, data, bag.Size())
}

func TestRecord_RoundTrip(t *testing.T) {
	bag := newBag(t)
	data, err := bag.Serialize()
	require.NoError(t, err)

	back, err := bagSchema.Load(data)
	require.NoError(t, err)
	assert.True(t, bag.Equal(back), "decoded record differs:\n%v\n%v", bag, back)

	again, err := back.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestRecord_DerivedFields(t *testing.T) {
	bag := newBag(t)

	count, err := bag.Uint("itemsCount")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, bag.Append("items", itemSchema.New(), itemSchema.New()))
	count, err = bag.Uint("itemsCount")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	noteSize, err := bag.Uint("noteSize")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), noteSize)

	err = bag.Set("itemsCount", 1)
	assert.ErrorIs(t, err, ErrReadOnlyField)
	err = bag.Set("size", 99)
	assert.ErrorIs(t, err, ErrReadOnlyField)
}

func TestRecord_SetValidation(t *testing.T) {
	testCases := []struct {
		name  string
		field string
		value any
		want  error
	}{
		{name: "short fixed buffer", field: "tag", value: []byte{1, 2, 3}, want: codec.ErrSizeMismatch},
		{name: "long fixed buffer", field: "tag", value: []byte{1, 2, 3, 4, 5}, want: codec.ErrSizeMismatch},
		{name: "integer overflow", field: "version", value: 70000, want: codec.ErrSizeMismatch},
		{name: "negative unsigned", field: "version", value: -1, want: codec.ErrSizeMismatch},
		{name: "unknown enum name", field: "dir", value: "SIDEWAYS", want: codec.ErrUnknownEnumValue},
		{name: "unknown enum value", field: "dir", value: codec.EnumValue{Name: "SIDEWAYS", Value: 4}, want: codec.ErrUnknownEnumValue},
		{name: "wrong type", field: "note", value: "hi", want: ErrTypeMismatch},
		{name: "wrong struct schema", field: "items", value: []*Record{pointSchema.New()}, want: ErrTypeMismatch},
		{name: "unknown field", field: "nope", value: 1, want: ErrUnknownField},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bag := newBag(t)
			before, err := bag.Serialize()
			require.NoError(t, err)

			err = bag.Set(tc.field, tc.value)
			assert.ErrorIs(t, err, tc.want)

			after, err := bag.Serialize()
			require.NoError(t, err)
			assert.Equal(t, before, after, "failed Set must leave the record unchanged")
		})
	}
}

func TestRecord_SignedRange(t *testing.T) {
	p := pointSchema.New()
	assert.NoError(t, p.SetInt("x", -32768))
	assert.NoError(t, p.SetInt("x", 32767))
	assert.ErrorIs(t, p.SetInt("x", 32768), codec.ErrSizeMismatch)
	assert.ErrorIs(t, p.SetInt("x", -32769), codec.ErrSizeMismatch)
}

func TestRecord_Conditional(t *testing.T) {
	bag := bagSchema.New()

	_, err := bag.Get("bonus")
	assert.ErrorIs(t, err, ErrConditionNotMet)
	assert.ErrorIs(t, bag.SetUint("bonus", 1), ErrConditionNotMet)
	assert.False(t, bag.Present("bonus"))

	base := bag.Size()
	require.NoError(t, bag.SetEnum("dir", "INCREASE"))
	assert.True(t, bag.Present("bonus"))
	assert.Equal(t, base+8, bag.Size())
	require.NoError(t, bag.SetUint("bonus", 1))

	require.NoError(t, bag.SetEnum("dir", "DECREASE"))
	data, err := bag.Serialize()
	require.NoError(t, err)
	assert.Len(t, data, base)

	back, err := bagSchema.Load(data)
	require.NoError(t, err)
	assert.False(t, back.Present("bonus"))
	assert.True(t, bag.Equal(back), "absent conditional values are ignored by Equal")
}

func TestRecord_Ownership(t *testing.T) {
	bag := newBag(t)

	tag, err := bag.Bytes("tag")
	require.NoError(t, err)
	tag[0] = 0xFF
	again, err := bag.Bytes("tag")
	require.NoError(t, err)
	assert.Equal(t, byte(1), again[0], "Bytes must return a copy")

	note := []byte("hi")
	require.NoError(t, bag.SetBytes("note", note))
	note[0] = 'X'
	got, err := bag.Bytes("note")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got), "Set must copy buffers")

	items, err := bag.Array("items")
	require.NoError(t, err)
	require.NoError(t, items[0].(*Record).SetUint("id", 8))
	items, err = bag.Array("items")
	require.NoError(t, err)
	id, err := items[0].(*Record).Uint("id")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), id, "struct elements are owned by the record")

	clone := bag.Clone()
	require.NoError(t, clone.SetUint("version", 3))
	v, err := bag.Uint("version")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)
	assert.False(t, bag.Equal(clone))
}

func TestLoad_Errors(t *testing.T) {
	mutate := func(f func([]byte) []byte) []byte {
		return f(bytes.Clone(bagBytes))
	}

	testCases := []struct {
		name string
		data []byte
		want error
		path string
	}{
		{
			name: "empty",
			data: nil,
			want: codec.ErrTruncatedInput,
			path: "Bag.size",
		},
		{
			name: "one byte short",
			data: bagBytes[:len(bagBytes)-1],
			want: codec.ErrTruncatedInput,
			path: "Bag.size",
		},
		{
			name: "trailing byte",
			data: append(bytes.Clone(bagBytes), 0x00),
			want: codec.ErrSizeMismatch,
			path: "Bag",
		},
		{
			name: "misaligned tail",
			data: mutate(func(b []byte) []byte {
				b[0] = 0x1F
				return append(b, 0xAA)
			}),
			want: codec.ErrSizeMismatch,
			path: "Bag.tail[1]",
		},
		{
			name: "declared size below fields",
			data: mutate(func(b []byte) []byte {
				b[0] = 0x05
				return b[:5]
			}),
			want: codec.ErrTruncatedInput,
			path: "Bag.version",
		},
		{
			name: "unknown nested enum",
			data: mutate(func(b []byte) []byte {
				b[18] = 0x07
				return b
			}),
			want: codec.ErrUnknownEnumValue,
			path: "Bag.items[0].dir",
		},
		{
			name: "count beyond input",
			data: mutate(func(b []byte) []byte {
				b[11] = 0x09
				b[28] = 0x01
				return b
			}),
			want: codec.ErrTruncatedInput,
			path: "Bag.items[3].id",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := bagSchema.Load(tc.data)
			assert.Nil(t, rec, "no partial record on failure")
			require.ErrorIs(t, err, tc.want)

			var ce *codec.Error
			require.True(t, errors.As(err, &ce), "expected *codec.Error, got %T", err)
			assert.Equal(t, tc.path, ce.FieldPath())
		})
	}
}

func TestLoad_FieldsOverrunDeclaredSize(t *testing.T) {
	data := bytes.Clone(bagBytes)
	data[0] = 0x10

	_, err := bagSchema.Load(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrSizeMismatch)
}

func TestDecode_Stream(t *testing.T) {
	counted := MustSchema("Counted",
		CountOf("n", 1, "values"),
		Array("values", Uint8("v"), CountFrom("n")),
	)

	r := codec.NewReader([]byte{0x02, 0x0A, 0x0B, 0xFF, 0xFF})
	rec, err := counted.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Offset(), "exactly the declared count is read")
	assert.Equal(t, rec.Size(), r.Offset())

	values, err := rec.Array("values")
	require.NoError(t, err)
	assert.Equal(t, []any{uint64(0x0A), uint64(0x0B)}, values)

	_, err = counted.Load([]byte{0x02, 0x0A, 0x0B, 0xFF})
	assert.ErrorIs(t, err, codec.ErrSizeMismatch)
}

func TestDecode_SizeBoundedSection(t *testing.T) {
	sized := MustSchema("Sized",
		SizeOf("n", 1, "points"),
		Array("points", Struct("point", pointSchema), SizeFrom("n")),
	)

	rec := sized.New()
	require.NoError(t, rec.Append("points", pointSchema.New(), pointSchema.New()))
	data, err := rec.Serialize()
	require.NoError(t, err)
	assert.Equal(t, byte(8), data[0])

	back, err := sized.Load(data)
	require.NoError(t, err)
	assert.True(t, rec.Equal(back))

	data[0] = 6
	_, err = sized.Load(data[:7])
	require.ErrorIs(t, err, codec.ErrSizeMismatch, "an element crossing the section end is a size mismatch")
	var ce *codec.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Sized.points[1]", ce.FieldPath())
}

func TestSerialize_CountOverflow(t *testing.T) {
	counted := MustSchema("Counted",
		CountOf("n", 1, "values"),
		Array("values", Uint8("v"), CountFrom("n")),
	)

	rec := counted.New()
	values := make([]any, 256)
	for i := range values {
		values[i] = uint8(i)
	}
	require.NoError(t, rec.SetArray("values", values))

	_, err := rec.Serialize()
	assert.ErrorIs(t, err, codec.ErrSizeMismatch)
}

func TestNewSchema_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		fields []Field
	}{
		{name: "duplicate", fields: []Field{Uint8("a"), Uint8("a")}},
		{name: "empty name", fields: []Field{Uint8("")}},
		{name: "bad width", fields: []Field{Integer("a", 3, false)}},
		{name: "remaining without entity size", fields: []Field{VarBytes("rest", Remaining())}},
		{name: "remaining not last", fields: []Field{EntitySize("size", 4), VarBytes("rest", Remaining()), Uint8("after")}},
		{name: "missing size field", fields: []Field{VarBytes("data", SizeFrom("n"))}},
		{name: "size field after target", fields: []Field{VarBytes("data", SizeFrom("n")), SizeOf("n", 1, "data")}},
		{name: "count used as size", fields: []Field{CountOf("n", 1, "data"), VarBytes("data", SizeFrom("n"))}},
		{name: "count without target", fields: []Field{CountOf("n", 1, "missing")}},
		{name: "two entity sizes", fields: []Field{EntitySize("a", 4), EntitySize("b", 4)}},
		{name: "condition on integer", fields: []Field{Uint8("t"), When(Uint8("x"), "t", "A")}},
		{name: "condition on unknown member", fields: []Field{EnumOf("d", direction), When(Uint8("x"), "d", "SIDEWAYS")}},
		{name: "condition after field", fields: []Field{When(Uint8("x"), "d", "INCREASE"), EnumOf("d", direction)}},
		{name: "array without policy", fields: []Field{Array("a", Uint8("v"), Length{})}},
		{name: "array of arrays", fields: []Field{CountOf("n", 1, "a"), Array("a", Array("b", Uint8("v"), Remaining()), CountFrom("n"))}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSchema("Bad", tc.fields...)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestSchema_Inline(t *testing.T) {
	names := []string{}
	for _, f := range bagSchema.Fields() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"size", "version", "tag", "noteSize", "itemsCount", "note", "items", "dir", "bonus", "tail"}, names)

	f, ok := bagSchema.Field("bonus")
	require.True(t, ok)
	assert.Equal(t, KindInteger, f.Kind())
}

func TestSchema_Describe(t *testing.T) {
	info := bagSchema.Describe()
	require.Len(t, info, 10)

	assert.Equal(t, KindEntitySize, info[0].Kind)
	assert.Equal(t, 0, info[0].Offset)
	assert.Equal(t, 6, info[2].Offset)
	assert.Equal(t, 4, info[2].Length)
	assert.Equal(t, "size(noteSize)", info[5].Policy)
	assert.Equal(t, 12, info[5].Offset)
	assert.Equal(t, -1, info[6].Offset)
	assert.Equal(t, "Item", info[6].Type)
	assert.Equal(t, "dir == INCREASE", info[8].Condition)
	assert.Equal(t, "remaining", info[9].Policy)
}

func TestRecord_JSON(t *testing.T) {
	bag := newBag(t)

	data, err := json.Marshal(bag)
	require.NoError(t, err)
	want := `{"size":30,"version":2,"tag":"01020304","noteSize":2,"itemsCount":1,"note":"6869",` +
		`"items":[{"id":7,"dir":"INCREASE"}],"dir":"INCREASE","bonus":9,"tail":[258]}`
	assert.JSONEq(t, want, string(data))
	assert.True(t, bytes.HasPrefix(data, []byte(`{"size":30,"version":2,"tag"`)), "keys follow wire order")

	back, err := bagSchema.ParseJSON(data)
	require.NoError(t, err)
	assert.True(t, bag.Equal(back))
}

func TestSchema_FromMap(t *testing.T) {
	rec, err := pointSchema.FromMap(map[string]any{"x": "-0x10", "y": float64(5)})
	require.NoError(t, err)
	x, err := rec.Int("x")
	require.NoError(t, err)
	assert.Equal(t, int64(-16), x)

	_, err = pointSchema.FromMap(map[string]any{"z": 1})
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = pointSchema.FromMap(map[string]any{"x": 1.5})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = bagSchema.FromMap(map[string]any{"tag": "zz"})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	m := newBag(t).Map()
	assert.Equal(t, "6869", m["note"])
	assert.Equal(t, uint64(1), m["itemsCount"])
	back, err := bagSchema.FromMap(m)
	require.NoError(t, err)
	assert.True(t, newBag(t).Equal(back))
}

func TestRecord_CountOfAbsentConditional(t *testing.T) {
	s := MustSchema("Gated",
		EnumOf("dir", direction),
		CountOf("valuesCount", 1, "values"),
		When(Array("values", Uint16("v"), CountFrom("valuesCount")), "dir", "INCREASE"),
	)
	rec := s.New()
	require.NoError(t, rec.SetEnum("dir", "INCREASE"))
	require.NoError(t, rec.Append("values", uint64(1), uint64(2), uint64(3)))
	require.NoError(t, rec.SetEnum("dir", "DECREASE"))

	count, err := rec.Uint("valuesCount")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	data, err := rec.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, data)
	assert.Len(t, data, rec.Size())

	back, err := s.Load(data)
	require.NoError(t, err)
	again, err := back.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestSchema_FromMapAbsentConditional(t *testing.T) {
	_, err := bagSchema.FromMap(map[string]any{"dir": "DECREASE", "bonus": 7})
	assert.ErrorIs(t, err, ErrConditionNotMet)

	rec, err := bagSchema.FromMap(map[string]any{"dir": "INCREASE", "bonus": 7})
	require.NoError(t, err)
	bonus, err := rec.Uint("bonus")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), bonus)
}

func TestDecode_LogsRejection(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logging.Set(zap.New(core))
	t.Cleanup(func() { logging.Set(nil) })

	_, err := bagSchema.Load([]byte{0x01})
	require.Error(t, err)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "decode rejected", entry.Message)
	assert.Equal(t, "Bag", entry.ContextMap()["schema"])
}

package codec

import (
	"errors"
	"testing"
)

var testEnum = MustEnum("Direction", 1,
	EnumValue{Name: "DECREASE", Value: 0},
	EnumValue{Name: "INCREASE", Value: 1},
)

func TestEnum_RoundTrip(t *testing.T) {
	for _, v := range testEnum.Values() {
		t.Run(v.Name, func(t *testing.T) {
			w := NewWriter(1)
			if err := testEnum.Encode(w, v); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := testEnum.Decode(NewReader(w.Bytes()))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got != v {
				t.Errorf("got %v, want %v", got, v)
			}
		})
	}
}

func TestEnum_DecodeUnknown(t *testing.T) {
	r := NewReader([]byte{0x07})
	_, err := testEnum.Decode(r)
	if !errors.Is(err, ErrUnknownEnumValue) {
		t.Fatalf("expected ErrUnknownEnumValue, got %v", err)
	}
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error")
	}
	if ce.Raw != 7 {
		t.Errorf("expected raw value 7, got %d", ce.Raw)
	}
	if ce.Error() != "codec: unknown enum value: 0x07 is not a value of Direction" {
		t.Errorf("unexpected message %q", ce.Error())
	}
}

func TestEnum_EncodeUnknown(t *testing.T) {
	w := NewWriter(1)
	err := testEnum.Encode(w, EnumValue{Name: "SIDEWAYS", Value: 9})
	if !errors.Is(err, ErrUnknownEnumValue) {
		t.Fatalf("expected ErrUnknownEnumValue, got %v", err)
	}
	if w.Len() != 0 {
		t.Errorf("rejected value must not be written")
	}
}

func TestEnum_Lookup(t *testing.T) {
	v, ok := testEnum.ByName("INCREASE")
	if !ok || v.Value != 1 {
		t.Fatalf("ByName failed: %v %v", v, ok)
	}
	if !testEnum.Contains(v) {
		t.Errorf("expected enum to contain %v", v)
	}
	if testEnum.Contains(EnumValue{Name: "OTHER", Value: 1}) {
		t.Errorf("a renamed value must not be a member")
	}
	if testEnum.Default().Name != "DECREASE" {
		t.Errorf("default must be the first declared value")
	}
}

func TestNewEnum_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		width  int
		values []EnumValue
	}{
		{name: "bad width", width: 3, values: []EnumValue{{Name: "A", Value: 0}}},
		{name: "empty", width: 1},
		{name: "too wide", width: 1, values: []EnumValue{{Name: "A", Value: 256}}},
		{name: "duplicate name", width: 1, values: []EnumValue{{Name: "A", Value: 0}, {Name: "A", Value: 1}}},
		{name: "duplicate value", width: 1, values: []EnumValue{{Name: "A", Value: 0}, {Name: "B", Value: 0}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEnum("E", tc.width, tc.values...); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

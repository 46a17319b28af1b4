package builder

// Kind identifies a field variant.
type Kind uint8

const (
	KindInteger Kind = iota
	KindBuffer
	KindEnum
	KindStruct
	KindArray
	KindCount
	KindSize
	KindEntitySize
	KindInline
)

var kindNames = [...]string{
	KindInteger:    "integer",
	KindBuffer:     "buffer",
	KindEnum:       "enum",
	KindStruct:     "struct",
	KindArray:      "array",
	KindCount:      "count",
	KindSize:       "size",
	KindEntitySize: "entity_size",
	KindInline:     "inline",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsDerived reports whether values of this kind are computed from other
// fields instead of being stored.
func (k Kind) IsDerived() bool {
	return k == KindCount || k == KindSize || k == KindEntitySize
}

// Package builder composes the primitive and enum codecs into record
// layouts.
//
// A Schema is an ordered list of fields. Each field is one of a closed set
// of kinds: fixed-width integers, fixed or variable buffers, enums, nested
// records, sequences, and computed fields (element counts, byte sizes and
// the record's own size header). Inline splices a shared schema such as a
// transaction header, and When makes a field depend on an earlier enum.
//
// Records are built with Schema.New, populated through setters that
// validate at assignment time, and encoded with Serialize. Computed fields
// are never stored: they are derived from the record whenever it is sized
// or serialized, so a count can not drift from its sequence.
//
//	transfer := builder.MustSchema("Transfer",
//	    builder.Bytes("recipient", 25),
//	    builder.SizeOf("messageSize", 2, "message"),
//	    builder.VarBytes("message", builder.SizeFrom("messageSize")),
//	)
//	rec := transfer.New()
//	_ = rec.SetBytes("message", []byte("hello"))
//	data, err := rec.Serialize()
//
// Decoding is all or nothing. Load and Decode return either a complete
// record or an error wrapping one of codec.ErrTruncatedInput,
// codec.ErrSizeMismatch or codec.ErrUnknownEnumValue, annotated with the
// path of the failing field.
//
// Schemas are immutable and safe for concurrent use. Records are not.
package builder

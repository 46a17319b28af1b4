package catalog

import (
	"fmt"

	"github.com/ssargent/catbuf/pkg/builder"
	"github.com/ssargent/catbuf/pkg/codec"
)

// Builder is implemented by every typed builder in the catalog.
type Builder interface {
	Size() int
	Serialize() ([]byte, error)
	Record() *builder.Record
}

// base holds the record behind a typed builder. Field accessors panic only
// when the record does not match the builder's schema, which the
// constructors rule out.
type base struct {
	rec *builder.Record
}

func (b base) Record() *builder.Record { return b.rec }

func (b base) Size() int { return b.rec.Size() }

func (b base) Serialize() ([]byte, error) { return b.rec.Serialize() }

func (b base) String() string { return b.rec.String() }

func (b base) u64(name string) uint64 {
	v, err := b.rec.Uint(name)
	must(err)
	return v
}

func (b base) buf(name string) []byte {
	v, err := b.rec.Bytes(name)
	must(err)
	return v
}

func (b base) member(name string) codec.EnumValue {
	v, err := b.rec.Enum(name)
	must(err)
	return v
}

func (b base) set(name string, v any) {
	must(b.rec.Set(name, v))
}

func (b base) records(name string) []*builder.Record {
	elems, err := b.rec.Array(name)
	must(err)
	out := make([]*builder.Record, len(elems))
	for i, e := range elems {
		out[i] = e.(*builder.Record)
	}
	return out
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func load(s *builder.Schema, data []byte) (base, error) {
	rec, err := s.Load(data)
	if err != nil {
		return base{}, err
	}
	return base{rec: rec}, nil
}

// --- MosaicProperty ---

type MosaicPropertyBuilder struct{ base }

func NewMosaicPropertyBuilder(id codec.EnumValue, value uint64) (*MosaicPropertyBuilder, error) {
	b := &MosaicPropertyBuilder{base{MosaicPropertySchema.New()}}
	if err := b.SetID(id); err != nil {
		return nil, err
	}
	b.SetValue(value)
	return b, nil
}

func LoadMosaicPropertyBuilder(data []byte) (*MosaicPropertyBuilder, error) {
	b, err := load(MosaicPropertySchema, data)
	if err != nil {
		return nil, err
	}
	return &MosaicPropertyBuilder{b}, nil
}

func (b *MosaicPropertyBuilder) ID() codec.EnumValue { return b.member("id") }

func (b *MosaicPropertyBuilder) SetID(id codec.EnumValue) error { return b.rec.Set("id", id) }

func (b *MosaicPropertyBuilder) Value() uint64 { return b.u64("value") }

func (b *MosaicPropertyBuilder) SetValue(v uint64) { b.set("value", v) }

// --- UnresolvedMosaic ---

type UnresolvedMosaicBuilder struct{ base }

func NewUnresolvedMosaicBuilder(mosaicID, amount uint64) *UnresolvedMosaicBuilder {
	b := &UnresolvedMosaicBuilder{base{UnresolvedMosaicSchema.New()}}
	b.SetMosaicID(mosaicID)
	b.SetAmount(amount)
	return b
}

func LoadUnresolvedMosaicBuilder(data []byte) (*UnresolvedMosaicBuilder, error) {
	b, err := load(UnresolvedMosaicSchema, data)
	if err != nil {
		return nil, err
	}
	return &UnresolvedMosaicBuilder{b}, nil
}

func (b *UnresolvedMosaicBuilder) MosaicID() uint64 { return b.u64("mosaicId") }

func (b *UnresolvedMosaicBuilder) SetMosaicID(v uint64) { b.set("mosaicId", v) }

func (b *UnresolvedMosaicBuilder) Amount() uint64 { return b.u64("amount") }

func (b *UnresolvedMosaicBuilder) SetAmount(v uint64) { b.set("amount", v) }

// --- Cosignature ---

type CosignatureBuilder struct{ base }

func NewCosignatureBuilder(signer, signature []byte) (*CosignatureBuilder, error) {
	b := &CosignatureBuilder{base{CosignatureSchema.New()}}
	if err := b.SetSigner(signer); err != nil {
		return nil, err
	}
	if err := b.SetSignature(signature); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *CosignatureBuilder) Signer() []byte { return b.buf("signer") }

func (b *CosignatureBuilder) SetSigner(v []byte) error { return b.rec.Set("signer", v) }

func (b *CosignatureBuilder) Signature() []byte { return b.buf("signature") }

func (b *CosignatureBuilder) SetSignature(v []byte) error { return b.rec.Set("signature", v) }

// --- transaction header ---

// TransactionHeader carries the accessors shared by all top-level
// transactions.
type TransactionHeader struct{ base }

func (h TransactionHeader) Signature() []byte { return h.buf("signature") }

func (h TransactionHeader) SetSignature(v []byte) error { return h.rec.Set("signature", v) }

func (h TransactionHeader) Signer() []byte { return h.buf("signer") }

func (h TransactionHeader) SetSigner(v []byte) error { return h.rec.Set("signer", v) }

func (h TransactionHeader) Version() uint16 { return uint16(h.u64("version")) }

func (h TransactionHeader) SetVersion(v uint16) { h.set("version", v) }

func (h TransactionHeader) Type() codec.EnumValue { return h.member("type") }

func (h TransactionHeader) SetType(t codec.EnumValue) error { return h.rec.Set("type", t) }

func (h TransactionHeader) Fee() uint64 { return h.u64("fee") }

func (h TransactionHeader) SetFee(v uint64) { h.set("fee", v) }

func (h TransactionHeader) Deadline() uint64 { return h.u64("deadline") }

func (h TransactionHeader) SetDeadline(v uint64) { h.set("deadline", v) }

// Header is the common transaction header fields.
type Header struct {
	Signature []byte
	Signer    []byte
	Version   uint16
	Type      codec.EnumValue
	Fee       uint64
	Deadline  uint64
}

func (h TransactionHeader) apply(hdr Header) error {
	if hdr.Signature != nil {
		if err := h.SetSignature(hdr.Signature); err != nil {
			return err
		}
	}
	if hdr.Signer != nil {
		if err := h.SetSigner(hdr.Signer); err != nil {
			return err
		}
	}
	if hdr.Type.Name != "" {
		if err := h.SetType(hdr.Type); err != nil {
			return err
		}
	}
	h.SetVersion(hdr.Version)
	h.SetFee(hdr.Fee)
	h.SetDeadline(hdr.Deadline)
	return nil
}

// --- TransferTransaction ---

type TransferTransactionBuilder struct{ TransactionHeader }

// NewTransferTransactionBuilder creates a transfer. Nil header buffers are
// left zero-filled.
func NewTransferTransactionBuilder(hdr Header, recipient, message []byte, mosaics ...*UnresolvedMosaicBuilder) (*TransferTransactionBuilder, error) {
	b := &TransferTransactionBuilder{TransactionHeader{base{TransferTransactionSchema.New()}}}
	if err := b.apply(hdr); err != nil {
		return nil, err
	}
	if recipient != nil {
		if err := b.SetRecipient(recipient); err != nil {
			return nil, err
		}
	}
	b.SetMessage(message)
	for _, m := range mosaics {
		if err := b.AddMosaic(m); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func LoadTransferTransactionBuilder(data []byte) (*TransferTransactionBuilder, error) {
	b, err := load(TransferTransactionSchema, data)
	if err != nil {
		return nil, err
	}
	return &TransferTransactionBuilder{TransactionHeader{b}}, nil
}

func (b *TransferTransactionBuilder) Recipient() []byte { return b.buf("recipient") }

func (b *TransferTransactionBuilder) SetRecipient(v []byte) error { return b.rec.Set("recipient", v) }

func (b *TransferTransactionBuilder) Message() []byte { return b.buf("message") }

func (b *TransferTransactionBuilder) SetMessage(v []byte) { b.set("message", v) }

func (b *TransferTransactionBuilder) Mosaics() []*UnresolvedMosaicBuilder {
	recs := b.records("mosaics")
	out := make([]*UnresolvedMosaicBuilder, len(recs))
	for i, r := range recs {
		out[i] = &UnresolvedMosaicBuilder{base{r}}
	}
	return out
}

func (b *TransferTransactionBuilder) AddMosaic(m *UnresolvedMosaicBuilder) error {
	if m == nil {
		return fmt.Errorf("%w: mosaic", ErrNilBuilder)
	}
	return b.rec.Append("mosaics", m.rec)
}

// --- MosaicDefinitionTransaction ---

type MosaicDefinitionTransactionBuilder struct{ TransactionHeader }

func NewMosaicDefinitionTransactionBuilder(hdr Header, nonce uint32, mosaicID uint64, flags, divisibility uint8, properties ...*MosaicPropertyBuilder) (*MosaicDefinitionTransactionBuilder, error) {
	b := &MosaicDefinitionTransactionBuilder{TransactionHeader{base{MosaicDefinitionTransactionSchema.New()}}}
	if err := b.apply(hdr); err != nil {
		return nil, err
	}
	b.set("nonce", nonce)
	b.set("mosaicId", mosaicID)
	b.set("flags", flags)
	b.set("divisibility", divisibility)
	for _, p := range properties {
		if err := b.AddProperty(p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func LoadMosaicDefinitionTransactionBuilder(data []byte) (*MosaicDefinitionTransactionBuilder, error) {
	b, err := load(MosaicDefinitionTransactionSchema, data)
	if err != nil {
		return nil, err
	}
	return &MosaicDefinitionTransactionBuilder{TransactionHeader{b}}, nil
}

func (b *MosaicDefinitionTransactionBuilder) Nonce() uint32 { return uint32(b.u64("nonce")) }

func (b *MosaicDefinitionTransactionBuilder) MosaicID() uint64 { return b.u64("mosaicId") }

func (b *MosaicDefinitionTransactionBuilder) Flags() uint8 { return uint8(b.u64("flags")) }

func (b *MosaicDefinitionTransactionBuilder) Divisibility() uint8 {
	return uint8(b.u64("divisibility"))
}

func (b *MosaicDefinitionTransactionBuilder) Properties() []*MosaicPropertyBuilder {
	recs := b.records("properties")
	out := make([]*MosaicPropertyBuilder, len(recs))
	for i, r := range recs {
		out[i] = &MosaicPropertyBuilder{base{r}}
	}
	return out
}

func (b *MosaicDefinitionTransactionBuilder) AddProperty(p *MosaicPropertyBuilder) error {
	if p == nil {
		return fmt.Errorf("%w: property", ErrNilBuilder)
	}
	return b.rec.Append("properties", p.rec)
}

// --- NamespaceRegistrationTransaction ---

type NamespaceRegistrationTransactionBuilder struct{ TransactionHeader }

// NewRootNamespaceBuilder registers a root namespace for duration blocks.
func NewRootNamespaceBuilder(hdr Header, id, duration uint64, name []byte) (*NamespaceRegistrationTransactionBuilder, error) {
	b, err := newNamespaceBuilder(hdr, NamespaceTypeRoot, id, name)
	if err != nil {
		return nil, err
	}
	b.set("duration", duration)
	return b, nil
}

// NewChildNamespaceBuilder registers a namespace below parentID.
func NewChildNamespaceBuilder(hdr Header, id, parentID uint64, name []byte) (*NamespaceRegistrationTransactionBuilder, error) {
	b, err := newNamespaceBuilder(hdr, NamespaceTypeChild, id, name)
	if err != nil {
		return nil, err
	}
	b.set("parentId", parentID)
	return b, nil
}

func newNamespaceBuilder(hdr Header, t codec.EnumValue, id uint64, name []byte) (*NamespaceRegistrationTransactionBuilder, error) {
	b := &NamespaceRegistrationTransactionBuilder{TransactionHeader{base{NamespaceRegistrationTransactionSchema.New()}}}
	if err := b.apply(hdr); err != nil {
		return nil, err
	}
	b.set("namespaceType", t)
	b.set("id", id)
	b.set("name", name)
	return b, nil
}

func LoadNamespaceRegistrationTransactionBuilder(data []byte) (*NamespaceRegistrationTransactionBuilder, error) {
	b, err := load(NamespaceRegistrationTransactionSchema, data)
	if err != nil {
		return nil, err
	}
	return &NamespaceRegistrationTransactionBuilder{TransactionHeader{b}}, nil
}

func (b *NamespaceRegistrationTransactionBuilder) NamespaceType() codec.EnumValue {
	return b.member("namespaceType")
}

// Duration is only present on root registrations.
func (b *NamespaceRegistrationTransactionBuilder) Duration() (uint64, error) {
	return b.rec.Uint("duration")
}

// ParentID is only present on child registrations.
func (b *NamespaceRegistrationTransactionBuilder) ParentID() (uint64, error) {
	return b.rec.Uint("parentId")
}

func (b *NamespaceRegistrationTransactionBuilder) ID() uint64 { return b.u64("id") }

func (b *NamespaceRegistrationTransactionBuilder) Name() []byte { return b.buf("name") }

// --- EmbeddedTransaction ---

type EmbeddedTransactionBuilder struct{ base }

func NewEmbeddedTransactionBuilder(signer []byte, version uint16, t codec.EnumValue, payload []byte) (*EmbeddedTransactionBuilder, error) {
	b := &EmbeddedTransactionBuilder{base{EmbeddedTransactionSchema.New()}}
	if err := b.rec.Set("signer", signer); err != nil {
		return nil, err
	}
	if err := b.rec.Set("type", t); err != nil {
		return nil, err
	}
	b.set("version", version)
	b.set("payload", payload)
	return b, nil
}

// Embed converts a top-level transaction into its embedded form for use in
// an aggregate: the signer, version and type are kept and the body after
// the header becomes the payload.
func Embed(tx Builder) (*EmbeddedTransactionBuilder, error) {
	rec := tx.Record()
	data, err := rec.Serialize()
	if err != nil {
		return nil, err
	}
	if len(data) < TransactionHeaderSize {
		return nil, codec.SizeMismatch(TransactionHeaderSize, len(data))
	}
	signer, err := rec.Bytes("signer")
	if err != nil {
		return nil, err
	}
	version, err := rec.Uint("version")
	if err != nil {
		return nil, err
	}
	t, err := rec.Enum("type")
	if err != nil {
		return nil, err
	}
	return NewEmbeddedTransactionBuilder(signer, uint16(version), t, data[TransactionHeaderSize:])
}

func (b *EmbeddedTransactionBuilder) Signer() []byte { return b.buf("signer") }

func (b *EmbeddedTransactionBuilder) Version() uint16 { return uint16(b.u64("version")) }

func (b *EmbeddedTransactionBuilder) Type() codec.EnumValue { return b.member("type") }

func (b *EmbeddedTransactionBuilder) Payload() []byte { return b.buf("payload") }

// --- AggregateTransaction ---

type AggregateTransactionBuilder struct{ TransactionHeader }

// NewAggregateTransactionBuilder creates an aggregate. The header type
// should be AGGREGATE_COMPLETE or AGGREGATE_BONDED.
func NewAggregateTransactionBuilder(hdr Header, txs ...*EmbeddedTransactionBuilder) (*AggregateTransactionBuilder, error) {
	b := &AggregateTransactionBuilder{TransactionHeader{base{AggregateTransactionSchema.New()}}}
	if err := b.apply(hdr); err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if err := b.AddTransaction(tx); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func LoadAggregateTransactionBuilder(data []byte) (*AggregateTransactionBuilder, error) {
	b, err := load(AggregateTransactionSchema, data)
	if err != nil {
		return nil, err
	}
	return &AggregateTransactionBuilder{TransactionHeader{b}}, nil
}

func (b *AggregateTransactionBuilder) Transactions() []*EmbeddedTransactionBuilder {
	recs := b.records("transactions")
	out := make([]*EmbeddedTransactionBuilder, len(recs))
	for i, r := range recs {
		out[i] = &EmbeddedTransactionBuilder{base{r}}
	}
	return out
}

func (b *AggregateTransactionBuilder) AddTransaction(tx *EmbeddedTransactionBuilder) error {
	if tx == nil {
		return fmt.Errorf("%w: transaction", ErrNilBuilder)
	}
	return b.rec.Append("transactions", tx.rec)
}

func (b *AggregateTransactionBuilder) Cosignatures() []*CosignatureBuilder {
	recs := b.records("cosignatures")
	out := make([]*CosignatureBuilder, len(recs))
	for i, r := range recs {
		out[i] = &CosignatureBuilder{base{r}}
	}
	return out
}

func (b *AggregateTransactionBuilder) AddCosignature(c *CosignatureBuilder) error {
	if c == nil {
		return fmt.Errorf("%w: cosignature", ErrNilBuilder)
	}
	return b.rec.Append("cosignatures", c.rec)
}

// FromRecord wraps a record in the typed builder for its schema.
func FromRecord(rec *builder.Record) (Builder, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", builder.ErrTypeMismatch)
	}
	b := base{rec}
	switch rec.Schema() {
	case MosaicPropertySchema:
		return &MosaicPropertyBuilder{b}, nil
	case UnresolvedMosaicSchema:
		return &UnresolvedMosaicBuilder{b}, nil
	case CosignatureSchema:
		return &CosignatureBuilder{b}, nil
	case TransferTransactionSchema:
		return &TransferTransactionBuilder{TransactionHeader{b}}, nil
	case MosaicDefinitionTransactionSchema:
		return &MosaicDefinitionTransactionBuilder{TransactionHeader{b}}, nil
	case NamespaceRegistrationTransactionSchema:
		return &NamespaceRegistrationTransactionBuilder{TransactionHeader{b}}, nil
	case EmbeddedTransactionSchema:
		return &EmbeddedTransactionBuilder{b}, nil
	case AggregateTransactionSchema:
		return &AggregateTransactionBuilder{TransactionHeader{b}}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, rec.Schema().Name())
}

package catalog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/catbuf/pkg/builder"
	"github.com/ssargent/catbuf/pkg/codec"
)

func zeros(n int) []byte { return make([]byte, n) }

func scenarioTransfer(t *testing.T) *TransferTransactionBuilder {
	t.Helper()
	hdr := Header{
		Signature: zeros(SignatureSize),
		Signer:    zeros(KeySize),
		Version:   2,
		Type:      EntityTypeReserved,
		Fee:       10,
		Deadline:  100,
	}
	tx, err := NewTransferTransactionBuilder(hdr, zeros(AddressSize), zeros(30), NewUnresolvedMosaicBuilder(0, 0))
	require.NoError(t, err)
	return tx
}

func TestMosaicProperty_Scenario(t *testing.T) {
	p, err := NewMosaicPropertyBuilder(MosaicPropertyDuration, 5)
	require.NoError(t, err)

	data, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x05, 0, 0, 0, 0, 0, 0, 0}, data)
	assert.Equal(t, 9, p.Size())

	back, err := LoadMosaicPropertyBuilder(data)
	require.NoError(t, err)
	assert.Equal(t, MosaicPropertyDuration, back.ID())
	assert.Equal(t, uint64(5), back.Value())
}

func TestTransferTransaction_Scenario(t *testing.T) {
	tx := scenarioTransfer(t)
	assert.Equal(t, 194, tx.Size())

	data, err := tx.Serialize()
	require.NoError(t, err)
	require.Len(t, data, tx.Size())

	back, err := LoadTransferTransactionBuilder(data)
	require.NoError(t, err)
	assert.Equal(t, tx.Size(), back.Size())

	assert.Equal(t, zeros(SignatureSize), back.Signature())
	assert.Equal(t, zeros(KeySize), back.Signer())
	assert.Equal(t, uint16(2), back.Version())
	assert.Equal(t, EntityTypeReserved, back.Type())
	assert.Equal(t, uint64(10), back.Fee())
	assert.Equal(t, uint64(100), back.Deadline())
	assert.Equal(t, zeros(AddressSize), back.Recipient())
	assert.Equal(t, zeros(30), back.Message())

	mosaics := back.Mosaics()
	require.Len(t, mosaics, 1)
	assert.Equal(t, uint64(0), mosaics[0].MosaicID())
	assert.Equal(t, uint64(0), mosaics[0].Amount())

	assert.True(t, tx.Record().Equal(back.Record()))
}

func TestTransferTransaction_Layout(t *testing.T) {
	tx := scenarioTransfer(t)
	data, err := tx.Serialize()
	require.NoError(t, err)

	assert.Equal(t, []byte{0xC2, 0x00, 0x00, 0x00}, data[0:4], "size")
	assert.Equal(t, []byte{0x02, 0x00}, data[100:102], "version")
	assert.Equal(t, []byte{0x00, 0x00}, data[102:104], "type")
	assert.Equal(t, byte(10), data[104], "fee")
	assert.Equal(t, byte(100), data[112], "deadline")
	assert.Equal(t, []byte{0x1E, 0x00}, data[145:147], "messageSize")
	assert.Equal(t, byte(0x01), data[147], "mosaicsCount")
}

func TestTransferTransaction_EnumRejection(t *testing.T) {
	data, err := scenarioTransfer(t).Serialize()
	require.NoError(t, err)
	data[typeOffset] = 0xFF
	data[typeOffset+1] = 0xFF

	tx, err := LoadTransferTransactionBuilder(data)
	assert.Nil(t, tx)
	require.ErrorIs(t, err, codec.ErrUnknownEnumValue)

	var ce *codec.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "TransferTransaction.type", ce.FieldPath())
	assert.Equal(t, uint64(0xFFFF), ce.Raw)
	assert.Equal(t, typeOffset, ce.Offset)
}

func TestTransferTransaction_FixedLength(t *testing.T) {
	tx := scenarioTransfer(t)

	err := tx.SetRecipient(zeros(AddressSize - 1))
	require.ErrorIs(t, err, codec.ErrSizeMismatch)
	var ce *codec.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, AddressSize, ce.Want)
	assert.Equal(t, AddressSize-1, ce.Got)
	assert.Equal(t, "recipient", ce.FieldPath())

	assert.ErrorIs(t, tx.SetSignature(zeros(SignatureSize+1)), codec.ErrSizeMismatch)
	_, err = NewTransferTransactionBuilder(Header{Signer: zeros(31)}, nil, nil)
	assert.ErrorIs(t, err, codec.ErrSizeMismatch)
}

func TestTransferTransaction_Truncated(t *testing.T) {
	data, err := scenarioTransfer(t).Serialize()
	require.NoError(t, err)

	for _, n := range []int{0, 3, 119, 150, len(data) - 1} {
		_, err := LoadTransferTransactionBuilder(data[:n])
		assert.ErrorIs(t, err, codec.ErrTruncatedInput, "length %d", n)
	}
}

func TestTransferTransaction_MessageTooLong(t *testing.T) {
	tx := scenarioTransfer(t)
	tx.SetMessage(zeros(1 << 16))

	_, err := tx.Serialize()
	require.ErrorIs(t, err, codec.ErrSizeMismatch)
	var ce *codec.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "TransferTransaction.messageSize", ce.FieldPath())
}

func TestMosaicDefinitionTransaction_RoundTrip(t *testing.T) {
	divisibility, err := NewMosaicPropertyBuilder(MosaicPropertyDivisibility, 6)
	require.NoError(t, err)
	duration, err := NewMosaicPropertyBuilder(MosaicPropertyDuration, 1000)
	require.NoError(t, err)

	tx, err := NewMosaicDefinitionTransactionBuilder(
		Header{Version: 3, Type: EntityTypeMosaicDefinition, Fee: 1},
		0xDEADBEEF, 0x85BBEA6CC462B244, 0x03, 6,
		divisibility, duration,
	)
	require.NoError(t, err)
	assert.Equal(t, 120+4+8+1+1+1+2*9, tx.Size())

	count, err := tx.Record().Uint("propertiesCount")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	data, err := tx.Serialize()
	require.NoError(t, err)
	back, err := LoadMosaicDefinitionTransactionBuilder(data)
	require.NoError(t, err)

	assert.Equal(t, uint32(0xDEADBEEF), back.Nonce())
	assert.Equal(t, uint64(0x85BBEA6CC462B244), back.MosaicID())
	assert.Equal(t, uint8(3), back.Flags())
	assert.Equal(t, uint8(6), back.Divisibility())
	props := back.Properties()
	require.Len(t, props, 2)
	assert.Equal(t, MosaicPropertyDuration, props[1].ID())
	assert.Equal(t, uint64(1000), props[1].Value())
}

func TestNamespaceRegistration_Conditional(t *testing.T) {
	hdr := Header{Version: 1, Type: EntityTypeRegisterNamespace}

	root, err := NewRootNamespaceBuilder(hdr, 0x1234, 1000, []byte("catapult"))
	require.NoError(t, err)
	child, err := NewChildNamespaceBuilder(hdr, 0x5678, 0x1234, []byte("sub"))
	require.NoError(t, err)

	assert.Equal(t, 120+1+8+8+1+8, root.Size())
	assert.Equal(t, 120+1+8+8+1+3, child.Size())

	data, err := root.Serialize()
	require.NoError(t, err)
	back, err := LoadNamespaceRegistrationTransactionBuilder(data)
	require.NoError(t, err)
	assert.Equal(t, NamespaceTypeRoot, back.NamespaceType())
	d, err := back.Duration()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), d)
	_, err = back.ParentID()
	assert.ErrorIs(t, err, builder.ErrConditionNotMet)
	assert.Equal(t, "catapult", string(back.Name()))

	data, err = child.Serialize()
	require.NoError(t, err)
	back, err = LoadNamespaceRegistrationTransactionBuilder(data)
	require.NoError(t, err)
	p, err := back.ParentID()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), p)
	_, err = back.Duration()
	assert.ErrorIs(t, err, builder.ErrConditionNotMet)
	assert.Equal(t, uint64(0x5678), back.ID())
}

func newAggregate(t *testing.T) (*AggregateTransactionBuilder, *TransferTransactionBuilder) {
	t.Helper()
	transfer := scenarioTransfer(t)
	require.NoError(t, transfer.SetType(EntityTypeTransfer))

	embedded, err := Embed(transfer)
	require.NoError(t, err)

	agg, err := NewAggregateTransactionBuilder(Header{Version: 1, Type: EntityTypeAggregateComplete}, embedded)
	require.NoError(t, err)

	cosig, err := NewCosignatureBuilder(bytes.Repeat([]byte{0xAA}, KeySize), bytes.Repeat([]byte{0xBB}, SignatureSize))
	require.NoError(t, err)
	require.NoError(t, agg.AddCosignature(cosig))
	return agg, transfer
}

func TestAddNilBuilder(t *testing.T) {
	transfer := scenarioTransfer(t)
	before := transfer.Size()
	assert.ErrorIs(t, transfer.AddMosaic(nil), ErrNilBuilder)
	assert.Equal(t, before, transfer.Size())

	_, err := NewTransferTransactionBuilder(Header{Type: EntityTypeTransfer}, nil, []byte("hi"), nil)
	assert.ErrorIs(t, err, ErrNilBuilder)

	_, err = NewMosaicDefinitionTransactionBuilder(Header{Type: EntityTypeMosaicDefinition}, 1, 2, 0, 0, nil)
	assert.ErrorIs(t, err, ErrNilBuilder)

	_, err = NewAggregateTransactionBuilder(Header{Type: EntityTypeAggregateComplete}, nil)
	assert.ErrorIs(t, err, ErrNilBuilder)

	agg, _ := newAggregate(t)
	assert.ErrorIs(t, agg.AddTransaction(nil), ErrNilBuilder)
	assert.ErrorIs(t, agg.AddCosignature(nil), ErrNilBuilder)
	assert.Len(t, agg.Cosignatures(), 1)
}

func TestAggregateTransaction_RoundTrip(t *testing.T) {
	agg, transfer := newAggregate(t)
	assert.Equal(t, 120+4+(40+74)+96, agg.Size())

	data, err := agg.Serialize()
	require.NoError(t, err)
	back, err := LoadAggregateTransactionBuilder(data)
	require.NoError(t, err)
	assert.True(t, agg.Record().Equal(back.Record()))

	txs := back.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, EntityTypeTransfer, txs[0].Type())
	assert.Equal(t, uint16(2), txs[0].Version())

	body, err := transfer.Serialize()
	require.NoError(t, err)
	assert.Equal(t, body[TransactionHeaderSize:], txs[0].Payload())

	cosigs := back.Cosignatures()
	require.Len(t, cosigs, 1)
	assert.Equal(t, bytes.Repeat([]byte{0xAA}, KeySize), cosigs[0].Signer())
}

func TestAggregateTransaction_Boundaries(t *testing.T) {
	agg, _ := newAggregate(t)
	data, err := agg.Serialize()
	require.NoError(t, err)
	size := len(data)

	t.Run("misaligned cosignatures", func(t *testing.T) {
		bad := append(bytes.Clone(data), 0x00)
		bad[0] = byte(size + 1)
		bad[1] = byte((size + 1) >> 8)

		_, err := LoadAggregateTransactionBuilder(bad)
		require.ErrorIs(t, err, codec.ErrSizeMismatch)
		var ce *codec.Error
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "AggregateTransaction.cosignatures[1]", ce.FieldPath())
	})

	t.Run("payload size cuts embedded transaction", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[TransactionHeaderSize] = 100

		_, err := LoadAggregateTransactionBuilder(bad)
		require.ErrorIs(t, err, codec.ErrSizeMismatch)
		var ce *codec.Error
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "AggregateTransaction.transactions[0]", ce.FieldPath())
	})
}

func TestRegistry_Default(t *testing.T) {
	r := Default()

	assert.Equal(t, []string{
		"AggregateTransaction",
		"Cosignature",
		"EmbeddedTransaction",
		"MosaicDefinitionTransaction",
		"MosaicProperty",
		"NamespaceRegistrationTransaction",
		"Transaction",
		"TransferTransaction",
		"UnresolvedMosaic",
	}, r.Names())

	s, err := r.Schema("TransferTransaction")
	require.NoError(t, err)
	assert.Same(t, TransferTransactionSchema, s)

	_, err = r.Schema("Nope")
	assert.ErrorIs(t, err, ErrUnknownSchema)

	e, ok := r.Enum("EntityType")
	require.True(t, ok)
	assert.Same(t, EntityType, e)
	assert.Len(t, r.Enums(), 3)
}

func TestRegistry_LoadTransaction(t *testing.T) {
	r := Default()

	agg, transfer := newAggregate(t)
	for _, tx := range []Builder{agg, transfer} {
		data, err := tx.Serialize()
		require.NoError(t, err)
		rec, err := r.LoadTransaction(data)
		require.NoError(t, err)
		assert.Same(t, tx.Record().Schema(), rec.Schema())
	}

	data, err := scenarioTransfer(t).Serialize()
	require.NoError(t, err)
	_, err = r.LoadTransaction(data)
	assert.ErrorIs(t, err, ErrUnknownSchema, "RESERVED has no schema")

	_, err = r.LoadTransaction(data[:50])
	assert.ErrorIs(t, err, codec.ErrTruncatedInput)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(CosignatureSchema))
	assert.ErrorIs(t, r.Register(CosignatureSchema), ErrDuplicate)

	require.NoError(t, r.RegisterTransaction(EntityTypeTransfer, TransferTransactionSchema))
	assert.ErrorIs(t, r.RegisterTransaction(EntityTypeTransfer, TransferTransactionSchema), ErrDuplicate)
	assert.ErrorIs(t, r.RegisterTransaction(codec.EnumValue{Name: "X", Value: 9}, TransferTransactionSchema), codec.ErrUnknownEnumValue)

	require.NoError(t, r.RegisterEnum(NamespaceType))
	assert.ErrorIs(t, r.RegisterEnum(NamespaceType), ErrDuplicate)
}

func TestFromRecord(t *testing.T) {
	tx := scenarioTransfer(t)
	b, err := FromRecord(tx.Record())
	require.NoError(t, err)
	typed, ok := b.(*TransferTransactionBuilder)
	require.True(t, ok)
	assert.Equal(t, uint64(10), typed.Fee())

	other := builder.MustSchema("Other", builder.Uint8("x")).New()
	_, err = FromRecord(other)
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

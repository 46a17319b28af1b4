package catalog

import (
	"github.com/ssargent/catbuf/pkg/builder"
)

// Sizes of the fixed buffers used across the catalog.
const (
	SignatureSize = 64
	KeySize       = 32
	AddressSize   = 25
)

var (
	UnresolvedMosaicSchema = builder.MustSchema("UnresolvedMosaic",
		builder.Uint64("mosaicId"),
		builder.Uint64("amount"),
	)

	MosaicPropertySchema = builder.MustSchema("MosaicProperty",
		builder.EnumOf("id", MosaicPropertyId),
		builder.Uint64("value"),
	)

	CosignatureSchema = builder.MustSchema("Cosignature",
		builder.Bytes("signer", KeySize),
		builder.Bytes("signature", SignatureSize),
	)

	// TransactionSchema is the header shared by every top-level transaction.
	TransactionSchema = builder.MustSchema("Transaction",
		builder.EntitySize("size", 4),
		builder.Bytes("signature", SignatureSize),
		builder.Bytes("signer", KeySize),
		builder.Uint16("version"),
		builder.EnumOf("type", EntityType),
		builder.Uint64("fee"),
		builder.Uint64("deadline"),
	)

	TransferTransactionSchema = builder.MustSchema("TransferTransaction",
		builder.Inline(TransactionSchema),
		builder.Bytes("recipient", AddressSize),
		builder.SizeOf("messageSize", 2, "message"),
		builder.CountOf("mosaicsCount", 1, "mosaics"),
		builder.VarBytes("message", builder.SizeFrom("messageSize")),
		builder.Array("mosaics", builder.Struct("mosaic", UnresolvedMosaicSchema), builder.CountFrom("mosaicsCount")),
	)

	MosaicDefinitionTransactionSchema = builder.MustSchema("MosaicDefinitionTransaction",
		builder.Inline(TransactionSchema),
		builder.Uint32("nonce"),
		builder.Uint64("mosaicId"),
		builder.CountOf("propertiesCount", 1, "properties"),
		builder.Uint8("flags"),
		builder.Uint8("divisibility"),
		builder.Array("properties", builder.Struct("property", MosaicPropertySchema), builder.CountFrom("propertiesCount")),
	)

	NamespaceRegistrationTransactionSchema = builder.MustSchema("NamespaceRegistrationTransaction",
		builder.Inline(TransactionSchema),
		builder.EnumOf("namespaceType", NamespaceType),
		builder.When(builder.Uint64("duration"), "namespaceType", NamespaceTypeRoot.Name),
		builder.When(builder.Uint64("parentId"), "namespaceType", NamespaceTypeChild.Name),
		builder.Uint64("id"),
		builder.SizeOf("nameSize", 1, "name"),
		builder.VarBytes("name", builder.SizeFrom("nameSize")),
	)

	// EmbeddedTransactionSchema is an inner transaction of an aggregate. Its
	// payload is the body of the corresponding top-level transaction.
	EmbeddedTransactionSchema = builder.MustSchema("EmbeddedTransaction",
		builder.EntitySize("size", 4),
		builder.Bytes("signer", KeySize),
		builder.Uint16("version"),
		builder.EnumOf("type", EntityType),
		builder.VarBytes("payload", builder.Remaining()),
	)

	AggregateTransactionSchema = builder.MustSchema("AggregateTransaction",
		builder.Inline(TransactionSchema),
		builder.SizeOf("payloadSize", 4, "transactions"),
		builder.Array("transactions", builder.Struct("transaction", EmbeddedTransactionSchema), builder.SizeFrom("payloadSize")),
		builder.Array("cosignatures", builder.Struct("cosignature", CosignatureSchema), builder.Remaining()),
	)
)

// TransactionHeaderSize is the encoded size of TransactionSchema.
var TransactionHeaderSize, _ = TransactionSchema.FixedSize()

// typeOffset is the position of the entity type within a transaction.
var typeOffset = offsetOf(TransactionSchema, "type")

func offsetOf(s *builder.Schema, name string) int {
	for _, f := range s.Describe() {
		if f.Name == name {
			return f.Offset
		}
	}
	return -1
}

package catalog

import "github.com/ssargent/catbuf/pkg/codec"

// Entity types carried in the transaction header.
var (
	EntityTypeReserved          = codec.EnumValue{Name: "RESERVED", Value: 0x0000}
	EntityTypeTransfer          = codec.EnumValue{Name: "TRANSFER", Value: 0x4154}
	EntityTypeRegisterNamespace = codec.EnumValue{Name: "REGISTER_NAMESPACE", Value: 0x414E}
	EntityTypeMosaicDefinition  = codec.EnumValue{Name: "MOSAIC_DEFINITION", Value: 0x414D}
	EntityTypeAggregateComplete = codec.EnumValue{Name: "AGGREGATE_COMPLETE", Value: 0x4141}
	EntityTypeAggregateBonded   = codec.EnumValue{Name: "AGGREGATE_BONDED", Value: 0x4241}

	EntityType = codec.MustEnum("EntityType", 2,
		EntityTypeReserved,
		EntityTypeTransfer,
		EntityTypeRegisterNamespace,
		EntityTypeMosaicDefinition,
		EntityTypeAggregateComplete,
		EntityTypeAggregateBonded,
	)
)

// Mosaic property identifiers.
var (
	MosaicPropertyFlags        = codec.EnumValue{Name: "FLAGS", Value: 0x00}
	MosaicPropertyDivisibility = codec.EnumValue{Name: "DIVISIBILITY", Value: 0x01}
	MosaicPropertyDuration     = codec.EnumValue{Name: "DURATION", Value: 0x02}

	MosaicPropertyId = codec.MustEnum("MosaicPropertyId", 1,
		MosaicPropertyFlags,
		MosaicPropertyDivisibility,
		MosaicPropertyDuration,
	)
)

// Namespace registration types.
var (
	NamespaceTypeRoot  = codec.EnumValue{Name: "ROOT", Value: 0}
	NamespaceTypeChild = codec.EnumValue{Name: "CHILD", Value: 1}

	NamespaceType = codec.MustEnum("NamespaceType", 1, NamespaceTypeRoot, NamespaceTypeChild)
)

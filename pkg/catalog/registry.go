package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ssargent/catbuf/pkg/builder"
	"github.com/ssargent/catbuf/pkg/codec"
)

var (
	// ErrUnknownSchema is returned when no schema is registered under a name
	// or entity type.
	ErrUnknownSchema = errors.New("catalog: unknown schema")
	// ErrDuplicate is returned when registering a name twice.
	ErrDuplicate = errors.New("catalog: already registered")
	// ErrNilBuilder is returned when a nil builder is added to a sequence.
	ErrNilBuilder = errors.New("catalog: nil builder")
)

// Registry indexes schemas by name and top-level transaction schemas by
// entity type. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*builder.Schema
	enums   map[string]*codec.Enum
	byType  map[uint64]*builder.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*builder.Schema),
		enums:   make(map[string]*codec.Enum),
		byType:  make(map[uint64]*builder.Schema),
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry holding every schema and enum in this
// package.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, e := range []*codec.Enum{EntityType, MosaicPropertyId, NamespaceType} {
			must(r.RegisterEnum(e))
		}
		for _, s := range []*builder.Schema{
			UnresolvedMosaicSchema,
			MosaicPropertySchema,
			CosignatureSchema,
			TransactionSchema,
			EmbeddedTransactionSchema,
		} {
			must(r.Register(s))
		}
		must(r.RegisterTransaction(EntityTypeTransfer, TransferTransactionSchema))
		must(r.RegisterTransaction(EntityTypeMosaicDefinition, MosaicDefinitionTransactionSchema))
		must(r.RegisterTransaction(EntityTypeRegisterNamespace, NamespaceRegistrationTransactionSchema))
		must(r.RegisterTransaction(EntityTypeAggregateComplete, AggregateTransactionSchema))
		must(r.RegisterTransaction(EntityTypeAggregateBonded, AggregateTransactionSchema))
		defaultRegistry = r
	})
	return defaultRegistry
}

// Register adds a schema under its name.
func (r *Registry) Register(s *builder.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(s)
}

func (r *Registry) register(s *builder.Schema) error {
	if _, ok := r.schemas[s.Name()]; ok {
		return fmt.Errorf("%w: schema %s", ErrDuplicate, s.Name())
	}
	r.schemas[s.Name()] = s
	return nil
}

// RegisterTransaction adds a top-level transaction schema and binds it to an
// entity type so LoadTransaction can dispatch on the header. Several types
// may share one schema.
func (r *Registry) RegisterTransaction(t codec.EnumValue, s *builder.Schema) error {
	if !EntityType.Contains(t) {
		return codec.UnknownEnum(EntityType.Name(), EntityType.Width(), t.Value)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byType[t.Value]; ok {
		return fmt.Errorf("%w: entity type %s", ErrDuplicate, t.Name)
	}
	if existing, ok := r.schemas[s.Name()]; !ok {
		if err := r.register(s); err != nil {
			return err
		}
	} else if existing != s {
		return fmt.Errorf("%w: schema %s", ErrDuplicate, s.Name())
	}
	r.byType[t.Value] = s
	return nil
}

// RegisterEnum adds an enum under its name.
func (r *Registry) RegisterEnum(e *codec.Enum) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enums[e.Name()]; ok {
		return fmt.Errorf("%w: enum %s", ErrDuplicate, e.Name())
	}
	r.enums[e.Name()] = e
	return nil
}

// Schema looks up a schema by name.
func (r *Registry) Schema(name string) (*builder.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return s, nil
}

// Names returns the registered schema names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Enums returns the registered enums sorted by name.
func (r *Registry) Enums() []*codec.Enum {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*codec.Enum, 0, len(r.enums))
	for _, e := range r.enums {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Enum looks up an enum by name.
func (r *Registry) Enum(name string) (*codec.Enum, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enums[name]
	return e, ok
}

// Load decodes data with the named schema.
func (r *Registry) Load(name string, data []byte) (*builder.Record, error) {
	s, err := r.Schema(name)
	if err != nil {
		return nil, err
	}
	return s.Load(data)
}

// LoadTransaction reads the entity type from a transaction header and
// decodes data with the schema registered for it.
func (r *Registry) LoadTransaction(data []byte) (*builder.Record, error) {
	rd := codec.NewReader(data)
	if err := rd.Skip(typeOffset); err != nil {
		return nil, codec.WithPath(err, TransactionSchema.Name())
	}
	t, err := EntityType.Decode(rd)
	if err != nil {
		return nil, codec.WithPath(codec.WithPath(err, "type"), TransactionSchema.Name())
	}

	r.mu.RLock()
	s, ok := r.byType[t.Value]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no transaction schema for %s", ErrUnknownSchema, t.Name)
	}
	return s.Load(data)
}

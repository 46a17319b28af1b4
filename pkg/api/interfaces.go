// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/catbuf/pkg/builder"
	"github.com/ssargent/catbuf/pkg/storage"
)

// SchemaResolver finds schemas by name. *catalog.Registry implements it.
type SchemaResolver interface {
	Schema(name string) (*builder.Schema, error)
	Names() []string
}

// RecordStore defines the record persistence the API needs.
// *storage.RecordStore implements it.
type RecordStore interface {
	Create(rec *builder.Record) (ksuid.KSUID, error)
	Read(id ksuid.KSUID) (*builder.Record, error)
	Delete(id ksuid.KSUID) error
	List(limit int) ([]storage.Entry, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is cancelled
	StartServer(ctx context.Context, store RecordStore, schemas SchemaResolver, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}

// StoreFactory opens record stores
type StoreFactory interface {
	OpenStore(dataDir string, schemas storage.Resolver) (*storage.RecordStore, error)
}

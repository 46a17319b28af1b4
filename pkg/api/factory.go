// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/catbuf/pkg/storage"
)

// DefaultStoreFactory is the default implementation of StoreFactory
type DefaultStoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() StoreFactory {
	return &DefaultStoreFactory{}
}

// OpenStore opens the record store under dataDir/records
func (f *DefaultStoreFactory) OpenStore(dataDir string, schemas storage.Resolver) (*storage.RecordStore, error) {
	return storage.Open(filepath.Join(dataDir, "records"), schemas)
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(
	ctx context.Context,
	store RecordStore,
	schemas SchemaResolver,
	config ServerConfig,
) error {
	reg := prometheus.NewRegistry()
	server := NewServer(store, schemas, config, NewMetrics(reg))
	return Serve(ctx, config, NewRouter(server, reg))
}

// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/catbuf/pkg/api"     //nolint:depguard
	"github.com/ssargent/catbuf/pkg/catalog" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	registry      *catalog.Registry
	storeFactory  api.StoreFactory
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		registry:      catalog.Default(),
		storeFactory:  api.NewStoreFactory(),
		serverFactory: api.NewServerFactory(),
	}
}

// GetRegistry returns the schema registry
func (c *Container) GetRegistry() *catalog.Registry {
	return c.registry
}

// GetStoreFactory returns the record store factory
func (c *Container) GetStoreFactory() api.StoreFactory {
	return c.storeFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetRegistry allows overriding the schema registry (for testing)
func (c *Container) SetRegistry(r *catalog.Registry) {
	c.registry = r
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

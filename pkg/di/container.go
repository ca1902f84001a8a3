// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/esmkit/pkg/api"
	"github.com/ssargent/esmkit/pkg/storage"
)

// StoreOpener opens the persistent index store under a data directory
type StoreOpener func(dataDir string) (*storage.IndexStore, error)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory api.ServerFactory
	storeOpener   StoreOpener
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
		storeOpener:   storage.NewIndexStore,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// OpenStore opens the index store with the configured opener
func (c *Container) OpenStore(dataDir string) (*storage.IndexStore, error) {
	return c.storeOpener(dataDir)
}

// SetStoreOpener allows overriding how the index store is opened (for testing)
func (c *Container) SetStoreOpener(opener StoreOpener) {
	c.storeOpener = opener
}

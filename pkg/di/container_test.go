package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ssargent/catbuf/pkg/api"
	"github.com/ssargent/catbuf/pkg/catalog"
)

type fakeStarter struct{ called bool }

func (f *fakeStarter) StartServer(context.Context, api.RecordStore, api.SchemaResolver, api.ServerConfig) error {
	f.called = true
	return nil
}

type fakeFactory struct{ starter *fakeStarter }

func (f fakeFactory) CreateServerStarter() api.ServerStarter { return f.starter }

func TestContainer(t *testing.T) {
	c := NewContainer()
	assert.Same(t, catalog.Default(), c.GetRegistry())
	assert.NotNil(t, c.GetStoreFactory())
	assert.NotNil(t, c.GetServerFactory())

	r := catalog.NewRegistry()
	c.SetRegistry(r)
	assert.Same(t, r, c.GetRegistry())

	starter := &fakeStarter{}
	c.SetServerFactory(fakeFactory{starter: starter})
	err := c.GetServerFactory().CreateServerStarter().StartServer(context.Background(), nil, r, api.ServerConfig{})
	assert.NoError(t, err)
	assert.True(t, starter.called)
}

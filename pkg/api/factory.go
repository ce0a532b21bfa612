// Package api provides factory implementations for dependency injection
package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/metrics"
	"github.com/ssargent/recfile/pkg/store"
)

// DefaultStoreFactory is the default implementation of StoreFactory
type DefaultStoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() StoreFactory {
	return &DefaultStoreFactory{}
}

// OpenStore opens a row store. A degraded store is returned alongside an
// open failure, as store.Open does.
func (f *DefaultStoreFactory) OpenStore(config store.Config, columns codec.Columns) (*store.RecordStore[codec.Row], error) {
	return store.Open[codec.Row](config, codec.NewRowCodec(columns.Schema()))
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
	recordStore IRecordStore,
	columns codec.Columns,
	config ServerConfig,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) error {
	return NewServer(recordStore, columns, config, m).Serve(ctx, gatherer)
}

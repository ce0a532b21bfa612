// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/metrics"
	"github.com/ssargent/recfile/pkg/store"
)

// StoreFactory opens record stores
type StoreFactory interface {
	// OpenStore opens the data file described by config with a row codec
	// for columns
	OpenStore(config store.Config, columns codec.Columns) (*store.RecordStore[codec.Row], error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves recordStore until ctx is cancelled. m may be nil;
	// gatherer, if set, is exposed at /metrics.
	StartServer(ctx context.Context, recordStore IRecordStore, columns codec.Columns,
		config ServerConfig, m *metrics.Metrics, gatherer prometheus.Gatherer) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}

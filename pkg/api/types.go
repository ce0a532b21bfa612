package api

import (
	"log/slog"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RecordResponse is one record with its position in the file
type RecordResponse struct {
	Index  int64          `json:"index"`
	Record map[string]any `json:"record"`
}

// CountResponse describes the size of the data file
type CountResponse struct {
	Records    int64 `json:"records"`
	RecordSize int   `json:"record_size"`
	SizeBytes  int64 `json:"size_bytes"`
}

// SwapRequest names the two records to exchange
type SwapRequest struct {
	A *int64 `json:"a"`
	B *int64 `json:"b"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port       int
	Bind       string
	APIKey     string // empty disables authentication
	RequestIDs bool   // tag every request with a KSUID
	Logger     *slog.Logger
}

// IRecordStore defines the store operations the API needs. It is satisfied
// by *store.RecordStore[codec.Row].
type IRecordStore interface {
	SeekRecord(index int64) error
	SeekEnd() error
	Read() (codec.Row, error)
	Write(v codec.Row) error
	Append(v codec.Row) error
	Delete() error
	Swap(a, b int64) error
	ReadRecord(index int64) (codec.Row, error)
	WriteRecord(index int64, v codec.Row) error
	ReadStartToEnd() ([]codec.Row, error)
	Count() (int64, error)
	RecordSize() int
	Stats() (*store.Stats, error)
}

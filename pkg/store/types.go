package store

import (
	"log/slog"
	"os"
	"time"

	"github.com/ssargent/recfile/pkg/codec"
)

// Config holds configuration for a record store
type Config struct {
	FilePath      string           // Path to the data file
	Text          codec.TextFormat // Text field layout (zero = codec.DefaultTextFormat)
	AtomicRewrite bool             // Rewrite via temp file + rename in Append/Delete
	Perm          os.FileMode      // Mode for newly created files (zero = 0600)
	Logger        *slog.Logger     // Failure and lifecycle logging (nil = logging.WithComponent("store"))
	Observer      Observer         // Optional operation observer, e.g. metrics
}

// Observer is notified after every record-level operation
type Observer interface {
	ObserveOperation(op string, err error, duration time.Duration)
}

// Stats summarizes the store's file
type Stats struct {
	FilePath   string `json:"file_path"`
	RecordSize int    `json:"record_size"`
	Records    int64  `json:"records"`
	SizeBytes  int64  `json:"size_bytes"`
}

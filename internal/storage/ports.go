package storage

import (
	"context"
	"errors"
)

// Keys of the two persisted documents.
const (
	KeyLogs     = "h2o_logs"
	KeySettings = "h2o_settings"
)

var ErrClosed = errors.New("store closed")

// Ports for persistence adapters.
type (
	// BlobStore keeps opaque documents under fixed keys. A missing key is
	// reported with ok=false and a nil error.
	BlobStore interface {
		Get(ctx context.Context, key string) (data []byte, ok bool, err error)
		Put(ctx context.Context, key string, data []byte) error
		Close() error
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

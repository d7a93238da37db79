// Package store defines the durable storage interface for streampay.
//
// The engine depends only on this interface, never on a concrete
// storage backend, so the accounting logic can be tested against an
// in-memory double and deployed against SQLite or Postgres unchanged.
package store

import (
	"context"

	"github.com/xraph/streampay/protocol"
	"github.com/xraph/streampay/stream"
)

// Store is the unified storage interface for streampay records: the
// protocol configuration singleton, stream records keyed by numeric id,
// and the monotonic stream-id allocator.
//
// Implementations must return records as private copies — a caller
// mutating a returned record must not affect stored state until the
// record is put back. GetConfig returns streampay.ErrNotInitialized
// when no config exists; GetStream returns streampay.ErrStreamNotFound
// for unknown ids.
type Store interface {
	// Protocol configuration singleton
	GetConfig(ctx context.Context) (*protocol.Config, error)
	PutConfig(ctx context.Context, cfg *protocol.Config) error

	// Stream records
	GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error)
	PutStream(ctx context.Context, streamID uint64, s *stream.Stream) error

	// NextStreamID allocates the next stream identifier. Ids start at 1,
	// increase monotonically, and are never reused.
	NextStreamID(ctx context.Context) (uint64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

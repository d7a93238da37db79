// Package memory provides an in-memory Store for tests and ephemeral use.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/streampay"
	"github.com/xraph/streampay/protocol"
	"github.com/xraph/streampay/store"
	"github.com/xraph/streampay/stream"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store is a mutex-guarded in-memory store.Store. Records are copied on
// the way in and out so callers never alias stored state.
type Store struct {
	mu sync.RWMutex

	config  *protocol.Config
	streams map[uint64]*stream.Stream
	lastID  uint64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		streams: make(map[uint64]*stream.Stream),
	}
}

// GetConfig returns the protocol config singleton.
func (s *Store) GetConfig(_ context.Context) (*protocol.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, streampay.ErrNotInitialized
	}
	cfg := *s.config
	return &cfg, nil
}

// PutConfig stores the protocol config singleton.
func (s *Store) PutConfig(_ context.Context, cfg *protocol.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cfg
	s.config = &c
	return nil
}

// GetStream returns the stream record for streamID.
func (s *Store) GetStream(_ context.Context, streamID uint64) (*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.streams[streamID]
	if !ok {
		return nil, streampay.ErrStreamNotFound
	}
	cp := *rec
	return &cp, nil
}

// PutStream stores the stream record under streamID.
func (s *Store) PutStream(_ context.Context, streamID uint64, rec *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.streams[streamID] = &cp
	return nil
}

// NextStreamID allocates the next stream identifier, starting at 1.
func (s *Store) NextStreamID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	return s.lastID, nil
}

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

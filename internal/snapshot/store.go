// Package snapshot holds the most recently published sample bundle.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Dicklesworthstone/sysmon/internal/model"
)

var (
	// ErrStale is returned by Publish when the snapshot is not newer than
	// the one already held.
	ErrStale = errors.New("snapshot: sequence did not advance")
	// ErrClosed is returned by Next once the store has been closed.
	ErrClosed = errors.New("snapshot: store closed")
)

// Store keeps only the latest snapshot. Reads never block on the writer.
type Store struct {
	latest atomic.Pointer[model.Snapshot]

	mu      sync.Mutex
	changed chan struct{} // closed and replaced on every publish
	closed  bool
}

func New() *Store {
	return &Store{changed: make(chan struct{})}
}

// Publish makes snap visible to readers. The caller hands over ownership:
// snap must not be modified afterwards.
func (s *Store) Publish(snap *model.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot: publish nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if cur := s.latest.Load(); cur != nil && snap.Seq <= cur.Seq {
		return fmt.Errorf("%w: have %d, got %d", ErrStale, cur.Seq, snap.Seq)
	}
	s.latest.Store(snap)
	close(s.changed)
	s.changed = make(chan struct{})
	return nil
}

// Read returns the latest snapshot, or false before the first publish.
func (s *Store) Read() (*model.Snapshot, bool) {
	snap := s.latest.Load()
	return snap, snap != nil
}

// Next blocks until a snapshot with Seq > after is available.
func (s *Store) Next(ctx context.Context, after uint64) (*model.Snapshot, error) {
	for {
		s.mu.Lock()
		if snap := s.latest.Load(); snap != nil && snap.Seq > after {
			s.mu.Unlock()
			return snap, nil
		}
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		wait := s.changed
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close releases waiters. The last snapshot stays readable.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.changed)
}

// Package export writes published snapshots as JSON.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Dicklesworthstone/sysmon/internal/snapshot"
)

// WriteOnce waits for the first snapshot and writes it as one JSON object.
func WriteOnce(ctx context.Context, w io.Writer, store *snapshot.Store) error {
	snap, err := store.Next(ctx, 0)
	if err != nil {
		return fmt.Errorf("wait for first sample: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Stream writes one JSON line per published snapshot until ctx is done or
// the store is closed. Snapshots published faster than w accepts them are
// skipped, never reordered.
func Stream(ctx context.Context, w io.Writer, store *snapshot.Store) error {
	enc := json.NewEncoder(w)
	var last uint64
	for {
		snap, err := store.Next(ctx, last)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, snapshot.ErrClosed):
			return nil
		case err != nil:
			return err
		}
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
		last = snap.Seq
	}
}

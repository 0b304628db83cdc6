// Package source defines where raw CPU and memory readings come from.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/Dicklesworthstone/sysmon/internal/model"
)

// Source performs one raw read of each metric. The two calls are
// independent: either may fail without affecting the other.
type Source interface {
	FetchCPU(ctx context.Context) (model.CPU, error)
	FetchMemory(ctx context.Context) (model.Memory, error)
}

// Func adapts a pair of functions to Source. Handy for tests and for
// wrapping a remote reader.
type Func struct {
	CPU    func(ctx context.Context) (model.CPU, error)
	Memory func(ctx context.Context) (model.Memory, error)
}

func (f Func) FetchCPU(ctx context.Context) (model.CPU, error) { return f.CPU(ctx) }

func (f Func) FetchMemory(ctx context.Context) (model.Memory, error) { return f.Memory(ctx) }

// Bounded runs fn and gives up after timeout. A hung fn keeps running in
// its own goroutine but no longer holds up the caller. timeout <= 0 only
// honours ctx.
func Bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("source panicked: %v", p)
			}
			ch <- r
		}()
		r.v, r.err = fn(ctx)
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

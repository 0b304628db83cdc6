package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/sysmon/internal/history"
	"github.com/Dicklesworthstone/sysmon/internal/model"
	"github.com/Dicklesworthstone/sysmon/internal/snapshot"
	"github.com/Dicklesworthstone/sysmon/internal/source"
)

const (
	DefaultInterval = time.Second

	metricCPU    = "cpu"
	metricMemory = "memory"
)

// Options tune a Sampler. Zero values select the defaults.
type Options struct {
	Interval      time.Duration
	HistoryLength int
	// FetchTimeout bounds each metric read; 0 means one Interval.
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

// Sampler periodically reads a Source, folds the readings into per-metric
// histories and publishes one Snapshot per tick.
//
// Everything below store is owned by the tick loop; nothing else writes it.
type Sampler struct {
	src     source.Source
	store   *snapshot.Store
	opts    Options
	logger  *slog.Logger
	started atomic.Bool

	cpu        model.CPU
	mem        model.Memory
	haveCPU    bool
	haveMem    bool
	cpuHistory *history.Buffer
	memHistory *history.Buffer
	seq        uint64
}

// New builds a Sampler with empty histories and a fresh store.
func New(src source.Source, opts Options) (*Sampler, error) {
	if src == nil {
		return nil, errors.New("sampler: nil source")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.HistoryLength == 0 {
		opts.HistoryLength = history.DefaultCapacity
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = opts.Interval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cpuHist, err := history.New(opts.HistoryLength)
	if err != nil {
		return nil, fmt.Errorf("sampler: cpu history: %w", err)
	}
	memHist, err := history.New(opts.HistoryLength)
	if err != nil {
		return nil, fmt.Errorf("sampler: memory history: %w", err)
	}

	return &Sampler{
		src:        src,
		store:      snapshot.New(),
		opts:       opts,
		logger:     logger,
		cpuHistory: cpuHist,
		memHistory: memHist,
	}, nil
}

// Store returns the store this sampler publishes to.
func (s *Sampler) Store() *snapshot.Store { return s.store }

// Start launches the tick loop. The first tick fires one Interval after
// Start. The loop runs until ctx is cancelled, Handle.Stop is called, or
// an engine fault occurs. A Sampler can be started once.
func (s *Sampler) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	if !s.started.CompareAndSwap(false, true) {
		h.err = errors.New("sampler: already started")
		close(h.done)
		return h
	}
	s.logger.Info("sampler started",
		"interval", s.opts.Interval,
		"history", s.opts.HistoryLength,
		"fetch_timeout", s.opts.FetchTimeout,
	)
	go s.run(ctx, h)
	return h
}

func (s *Sampler) run(ctx context.Context, h *Handle) {
	ticker := time.NewTicker(s.opts.Interval)
	defer func() {
		ticker.Stop()
		s.store.Close()
		s.logger.Info("sampler stopped", "ticks", s.seq, "err", h.err)
		close(h.done)
	}()

	// An in-flight tick is allowed to finish after cancellation; its fetches
	// are still bounded by FetchTimeout.
	tickCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// select picks randomly when both are ready
			if ctx.Err() != nil {
				return
			}
			if err := s.safeTick(tickCtx); err != nil {
				h.err = err
				s.logger.Error("sampling aborted", "err", err)
				return
			}
		}
	}
}

func (s *Sampler) safeTick(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fault("tick panicked: %v", p)
		}
	}()
	return s.tick(ctx)
}

// tick runs one fetch-and-publish cycle. Fetch failures are absorbed; the
// returned error is always an engine fault.
func (s *Sampler) tick(ctx context.Context) error {
	start := s.opts.Now()

	var (
		cpu    model.CPU
		mem    model.Memory
		cpuErr error
		memErr error
		g      errgroup.Group
	)
	// Each branch keeps its own outcome instead of returning it so one
	// failed read can never discard the other.
	g.Go(func() error {
		cpu, cpuErr = source.Bounded(ctx, s.opts.FetchTimeout, s.src.FetchCPU)
		return nil
	})
	g.Go(func() error {
		mem, memErr = source.Bounded(ctx, s.opts.FetchTimeout, s.src.FetchMemory)
		return nil
	})
	_ = g.Wait()

	cpuFresh := s.foldCPU(cpu, cpuErr)
	memFresh := s.foldMemory(mem, memErr)

	if err := s.cpuHistory.Check(); err != nil {
		return fault("cpu history: %w", err)
	}
	if err := s.memHistory.Check(); err != nil {
		return fault("memory history: %w", err)
	}

	s.seq++
	snap := &model.Snapshot{
		Seq:           s.seq,
		Timestamp:     s.opts.Now(),
		Interval:      s.opts.Interval,
		CPU:           s.cpu.Clone(),
		Memory:        s.mem,
		HaveCPU:       s.haveCPU,
		HaveMemory:    s.haveMem,
		CPUFresh:      cpuFresh,
		MemoryFresh:   memFresh,
		CPUHistory:    s.cpuHistory.Samples(),
		MemoryHistory: s.memHistory.Samples(),
	}
	if err := s.store.Publish(snap); err != nil {
		if errors.Is(err, snapshot.ErrClosed) {
			return nil
		}
		return fault("publish: %w", err)
	}

	s.logger.Debug("tick",
		"seq", s.seq,
		"cpu", fmt.Sprintf("%.1f%%", s.cpu.Overall),
		"mem", fmt.Sprintf("%.1f%%", s.mem.Percentage),
		"cpu_fresh", cpuFresh,
		"mem_fresh", memFresh,
		"elapsed", s.opts.Now().Sub(start),
	)
	return nil
}

func (s *Sampler) foldCPU(c model.CPU, err error) bool {
	if err == nil && s.haveCPU && len(c.PerCore) != len(s.cpu.PerCore) {
		err = fmt.Errorf("%w: had %d, got %d", ErrCoreCount, len(s.cpu.PerCore), len(c.PerCore))
	}
	if err != nil {
		s.logger.Warn("fetch failed, keeping last value", "err", &FetchError{Metric: metricCPU, Err: err}, "metric", metricCPU)
		return false
	}

	c = c.Clone()
	c.Overall = model.Clamp(c.Overall)
	for i, v := range c.PerCore {
		c.PerCore[i] = model.Clamp(v)
	}
	s.cpu = c
	s.haveCPU = true
	s.cpuHistory.Append(c.Overall)
	return true
}

func (s *Sampler) foldMemory(m model.Memory, err error) bool {
	if err != nil {
		s.logger.Warn("fetch failed, keeping last value", "err", &FetchError{Metric: metricMemory, Err: err}, "metric", metricMemory)
		return false
	}
	s.mem = m
	s.haveMem = true
	s.memHistory.Append(m.Percentage)
	return true
}

// Handle controls a running tick loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error // set before done is closed
}

// Stop cancels the loop and waits for it to exit. A tick already running
// completes and publishes first; no tick starts after Stop returns. The
// result is the engine fault that ended sampling, if any. Safe to call
// more than once and from several goroutines.
func (h *Handle) Stop() error {
	h.cancel()
	<-h.done
	return h.err
}

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the engine fault that ended sampling, or nil while running
// or after a clean stop.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

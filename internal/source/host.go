package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/sysmon/internal/model"
)

// Host reads the local machine through gopsutil. CPU usage is computed
// from the delta of CPU times between consecutive calls.
type Host struct {
	mu        sync.Mutex
	prevTotal float64
	prevIdle  float64
	prevCore  []cpu.TimesStat

	// Overridable for tests.
	times   func(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error)
	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// NewHost returns a Host primed with one CPU times reading so the first
// FetchCPU reports a real delta instead of zero.
func NewHost(ctx context.Context) *Host {
	h := &Host{
		times:   cpu.TimesWithContext,
		virtual: mem.VirtualMemoryWithContext,
	}
	_, _ = h.FetchCPU(ctx)
	return h
}

// FetchCPU returns overall and per-core usage since the previous call.
func (h *Host) FetchCPU(ctx context.Context) (model.CPU, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	times, err := h.times(ctx, false)
	if err != nil {
		return model.CPU{}, fmt.Errorf("cpu times: %w", err)
	}
	if len(times) == 0 {
		return model.CPU{}, errors.New("cpu times: empty result")
	}
	coreTimes, err := h.times(ctx, true)
	if err != nil {
		return model.CPU{}, fmt.Errorf("per-cpu times: %w", err)
	}

	var out model.CPU
	cur := times[0]
	curTotal := cur.Total()
	curIdle := cur.Idle + cur.Iowait
	if h.prevTotal > 0 {
		out.Overall = busy(curTotal-h.prevTotal, curIdle-h.prevIdle)
	}
	h.prevTotal, h.prevIdle = curTotal, curIdle

	out.PerCore = make([]float64, len(coreTimes))
	for i, c := range coreTimes {
		if i >= len(h.prevCore) {
			continue
		}
		prev := h.prevCore[i]
		out.PerCore[i] = busy(c.Total()-prev.Total(), (c.Idle+c.Iowait)-(prev.Idle+prev.Iowait))
	}
	h.prevCore = coreTimes
	return out, nil
}

// FetchMemory returns used and total RAM. Percentage is used/total*100.
func (h *Host) FetchMemory(ctx context.Context) (model.Memory, error) {
	vm, err := h.virtual(ctx)
	if err != nil {
		return model.Memory{}, fmt.Errorf("virtual memory: %w", err)
	}
	m := model.Memory{Used: vm.Used, Total: vm.Total}
	if vm.Total > 0 {
		m.Percentage = float64(vm.Used) / float64(vm.Total) * 100
	}
	return m, nil
}

func busy(dt, di float64) float64 {
	if dt <= 0 {
		return 0
	}
	return model.Clamp(100 * (1 - di/dt))
}

var _ Source = (*Host)(nil)

package source

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/sysmon/internal/model"
)

// scriptedTimes returns successive aggregate/per-core readings.
func scriptedTimes(total [][]cpu.TimesStat, perCore [][]cpu.TimesStat) func(context.Context, bool) ([]cpu.TimesStat, error) {
	var ti, ci int
	return func(_ context.Context, perCPU bool) ([]cpu.TimesStat, error) {
		if perCPU {
			r := perCore[ci]
			ci++
			return r, nil
		}
		r := total[ti]
		ti++
		return r, nil
	}
}

func TestHostFetchCPUDelta(t *testing.T) {
	h := &Host{
		times: scriptedTimes(
			[][]cpu.TimesStat{
				{{User: 100, Idle: 900}},
				{{User: 150, Idle: 950}}, // dt=100 di=50
			},
			[][]cpu.TimesStat{
				{{User: 50, Idle: 450}, {User: 50, Idle: 450}},
				{{User: 100, Idle: 450}, {User: 50, Idle: 500}},
			},
		),
	}
	ctx := context.Background()

	first, err := h.FetchCPU(ctx)
	if err != nil {
		t.Fatalf("first FetchCPU: %v", err)
	}
	if first.Overall != 0 {
		t.Errorf("priming read overall = %v, want 0", first.Overall)
	}

	got, err := h.FetchCPU(ctx)
	if err != nil {
		t.Fatalf("FetchCPU: %v", err)
	}
	if math.Abs(got.Overall-50) > 1e-9 {
		t.Errorf("overall = %v, want 50", got.Overall)
	}
	if len(got.PerCore) != 2 || got.PerCore[0] != 100 || got.PerCore[1] != 0 {
		t.Errorf("per-core = %v, want [100 0]", got.PerCore)
	}
}

func TestHostFetchCPUError(t *testing.T) {
	boom := errors.New("boom")
	h := &Host{times: func(context.Context, bool) ([]cpu.TimesStat, error) { return nil, boom }}
	if _, err := h.FetchCPU(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestHostFetchMemory(t *testing.T) {
	tests := []struct {
		name    string
		vm      *mem.VirtualMemoryStat
		wantPct float64
	}{
		{"quarter used", &mem.VirtualMemoryStat{Used: 4 << 30, Total: 16 << 30}, 25},
		{"zero total", &mem.VirtualMemoryStat{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Host{virtual: func(context.Context) (*mem.VirtualMemoryStat, error) { return tt.vm, nil }}
			m, err := h.FetchMemory(context.Background())
			if err != nil {
				t.Fatalf("FetchMemory: %v", err)
			}
			if m.Used != tt.vm.Used || m.Total != tt.vm.Total || m.Percentage != tt.wantPct {
				t.Errorf("got %+v, want used=%d total=%d pct=%v", m, tt.vm.Used, tt.vm.Total, tt.wantPct)
			}
		})
	}
}

func TestBoundedReturnsResult(t *testing.T) {
	v, err := Bounded(context.Background(), time.Second, func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Bounded = %v, %v; want 7, nil", v, err)
	}
}

func TestBoundedTimesOutHungFetch(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := Bounded(context.Background(), 20*time.Millisecond, func(context.Context) (model.CPU, error) {
		<-release
		return model.CPU{}, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Bounded did not return promptly")
	}
}

func TestBoundedRecoversPanic(t *testing.T) {
	_, err := Bounded(context.Background(), time.Second, func(context.Context) (int, error) { panic("bad read") })
	if err == nil {
		t.Error("expected error from panicking fetch")
	}
}

func TestFuncAdapter(t *testing.T) {
	var s Source = Func{
		CPU:    func(context.Context) (model.CPU, error) { return model.CPU{Overall: 1}, nil },
		Memory: func(context.Context) (model.Memory, error) { return model.Memory{Used: 2}, nil },
	}
	c, _ := s.FetchCPU(context.Background())
	m, _ := s.FetchMemory(context.Background())
	if c.Overall != 1 || m.Used != 2 {
		t.Errorf("adapter returned %+v %+v", c, m)
	}
}

package model

import (
	"math"
	"time"
)

// CPU is one reading of processor utilization.
type CPU struct {
	Overall float64   `json:"overall"`  // percent 0-100
	PerCore []float64 `json:"per_core"` // percent 0-100, index = core id
}

// Memory captures RAM usage in bytes for precision.
type Memory struct {
	Used       uint64  `json:"used"`
	Total      uint64  `json:"total"`
	Percentage float64 `json:"percentage"` // as reported by the source
}

// Free returns Total-Used, or 0 when the source reports Used > Total.
func (m Memory) Free() uint64 {
	if m.Used > m.Total {
		return 0
	}
	return m.Total - m.Used
}

// TimeSample is one history point. Age 0 is the most recent tick,
// older points have negative ages.
type TimeSample struct {
	Age   int     `json:"age"`
	Value float64 `json:"value"`
}

// Snapshot is the bundle published once per tick. Nothing mutates a
// Snapshot after it has been published; consumers may keep old ones.
type Snapshot struct {
	Seq       uint64        `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
	Interval  time.Duration `json:"-"`

	CPU    CPU    `json:"cpu"`
	Memory Memory `json:"memory"`

	// HaveCPU/HaveMemory are false until the first successful fetch of
	// that metric; CPUFresh/MemoryFresh report whether this tick updated it.
	HaveCPU     bool `json:"have_cpu"`
	HaveMemory  bool `json:"have_memory"`
	CPUFresh    bool `json:"cpu_fresh"`
	MemoryFresh bool `json:"memory_fresh"`

	CPUHistory    []TimeSample `json:"cpu_history"`    // oldest first
	MemoryHistory []TimeSample `json:"memory_history"` // oldest first
}

// Clone returns a deep copy of c.
func (c CPU) Clone() CPU {
	out := CPU{Overall: c.Overall}
	if c.PerCore != nil {
		out.PerCore = make([]float64, len(c.PerCore))
		copy(out.PerCore, c.PerCore)
	}
	return out
}

// Clamp limits v to [0,100]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

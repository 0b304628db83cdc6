package sampler

import (
	"errors"
	"fmt"
)

// ErrEngineFault marks failures that stop sampling. Test with errors.Is.
var ErrEngineFault = errors.New("sampler: engine fault")

// ErrCoreCount is reported when a CPU reading changes the number of cores
// seen on earlier ticks.
var ErrCoreCount = errors.New("core count changed")

// FetchError is a failed read of one metric on one tick. It is logged and
// absorbed by the tick; the previous value for that metric is kept.
type FetchError struct {
	Metric string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Metric, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// FaultError wraps the cause of an engine fault.
type FaultError struct {
	Err error
}

func (e *FaultError) Error() string { return fmt.Sprintf("%v: %v", ErrEngineFault, e.Err) }

func (e *FaultError) Unwrap() error { return e.Err }

func (e *FaultError) Is(target error) bool { return target == ErrEngineFault }

func fault(format string, args ...any) error {
	return &FaultError{Err: fmt.Errorf(format, args...)}
}

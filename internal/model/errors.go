package model

import (
	"fmt"
	"time"
)

// ConfigError reports an out-of-range simulation parameter. It is fatal and
// raised at construction time, never at point of use.
type ConfigError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s=%v %s", e.Param, e.Value, e.Reason)
}

// DataError reports unusable input data: a non-contiguous hourly series or
// zero totals that make a ratio undefined. Hour is the offending sample
// index when the error is positional, -1 otherwise.
type DataError struct {
	Context string
	Hour    int
	At      time.Time
	Reason  string
}

func (e *DataError) Error() string {
	if e.Hour >= 0 {
		return fmt.Sprintf("data: %s at sample %d (%s): %s",
			e.Context, e.Hour, e.At.Format("2006-01-02 15:04"), e.Reason)
	}
	return fmt.Sprintf("data: %s: %s", e.Context, e.Reason)
}

// SimulationFailed means no evaluated combination met the configured
// targets. It is a normal outcome, not a fault: BestAC and BestTC are the
// best values seen across all combinations, so the caller can tell which
// target was out of reach.
type SimulationFailed struct {
	BestAC    float64
	BestTC    float64
	Evaluated int
}

func (e *SimulationFailed) Error() string {
	return fmt.Sprintf("no scenario meets targets (best AC %.1f%%, best TC %.1f%% over %d combinations)",
		e.BestAC, e.BestTC, e.Evaluated)
}

package series

import (
	"sort"
	"time"

	"pvsizer/internal/model"
)

// Series is an ordered hourly sequence of PV/load samples. The dispatch
// simulator assumes one sample per hour with no gaps; Validate enforces
// that before any simulation runs.
type Series struct {
	samples []model.Sample
}

// New builds a Series, sorting samples by timestamp.
func New(samples []model.Sample) *Series {
	s := make([]model.Sample, len(samples))
	copy(s, samples)
	sort.Slice(s, func(i, j int) bool {
		return s[i].Timestamp.Before(s[j].Timestamp)
	})
	return &Series{samples: s}
}

// Samples returns the underlying ordered samples. Callers must treat the
// slice as read-only; it is shared across scenario evaluations.
func (s *Series) Samples() []model.Sample {
	return s.samples
}

// Len returns the number of hourly samples.
func (s *Series) Len() int {
	return len(s.samples)
}

// Validate checks that the series is non-empty and strictly
// hourly-contiguous. The returned DataError carries the index and
// timestamp of the first gap.
func (s *Series) Validate() error {
	if len(s.samples) == 0 {
		return &model.DataError{Context: "series", Hour: -1, Reason: "empty series"}
	}
	for i := 1; i < len(s.samples); i++ {
		delta := s.samples[i].Timestamp.Sub(s.samples[i-1].Timestamp)
		if delta != time.Hour {
			return &model.DataError{
				Context: "series",
				Hour:    i,
				At:      s.samples[i].Timestamp,
				Reason:  "not hourly-contiguous with previous sample",
			}
		}
	}
	return nil
}

// TimeRange returns the covered [first, last] sample timestamps.
func (s *Series) TimeRange() (model.TimeRange, bool) {
	if len(s.samples) == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{
		Start: s.samples[0].Timestamp,
		End:   s.samples[len(s.samples)-1].Timestamp,
	}, true
}

// Window returns the samples between start (inclusive) and end (exclusive)
// as a new Series sharing the backing array.
func (s *Series) Window(start, end time.Time) *Series {
	startIdx := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Timestamp.Before(end)
	})
	if startIdx >= endIdx {
		return &Series{}
	}
	return &Series{samples: s.samples[startIdx:endIdx]}
}

// Totals sums PV and load over the whole series.
func (s *Series) Totals() (pvKWh, loadKWh float64) {
	for _, smp := range s.samples {
		pvKWh += smp.PVKWh
		loadKWh += smp.LoadKWh
	}
	return pvKWh, loadKWh
}

// Scale returns a copy of the series with PV multiplied by factor.
func (s *Series) Scale(factor float64) *Series {
	scaled := make([]model.Sample, len(s.samples))
	for i, smp := range s.samples {
		scaled[i] = model.Sample{
			Timestamp: smp.Timestamp,
			PVKWh:     smp.PVKWh * factor,
			LoadKWh:   smp.LoadKWh,
		}
	}
	return &Series{samples: scaled}
}

// Package ingest provides the data sources that feed the simulator:
// hourly PV production and household consumption, aligned per hour.
package ingest

import (
	"context"
	"time"

	"pvsizer/internal/model"
)

// Source produces an ordered hourly PV/load series for a time window.
// Implementations are opaque to the simulation core: whatever the origin
// (CSV export, Home Assistant, Enphase cloud), the output is the same
// sample sequence.
type Source interface {
	HourlyPVLoad(ctx context.Context, start, end time.Time) ([]model.Sample, error)
}

// Package report computes the real-data situation from an hourly series:
// per-hour import/export split without any battery, daily rollups, window
// totals and the measured AC/TC figures.
package report

import (
	"sort"
	"time"

	"pvsizer/internal/model"
	"pvsizer/internal/simulator"
)

// Hourly is one hour of the measured situation. Import and export are the
// residual flows after direct self-consumption.
type Hourly struct {
	Timestamp time.Time
	PVKWh     float64
	LoadKWh   float64
	ImportKWh float64
	ExportKWh float64
}

// Report is the aggregate of the measured window.
type Report struct {
	Hours     []Hourly
	Days      []model.DailyTotal
	Totals    model.Totals
	ACPercent float64
	TCPercent float64
}

// Build computes the measured situation. It fails with a DataError when PV
// or load totals are zero, because AC/TC are undefined then.
func Build(samples []model.Sample) (*Report, error) {
	r := &Report{Hours: make([]Hourly, 0, len(samples))}

	daily := make(map[string]*model.DailyTotal)
	for _, smp := range samples {
		selfUsed := smp.PVKWh
		if smp.LoadKWh < selfUsed {
			selfUsed = smp.LoadKWh
		}
		h := Hourly{
			Timestamp: smp.Timestamp,
			PVKWh:     smp.PVKWh,
			LoadKWh:   smp.LoadKWh,
			ImportKWh: smp.LoadKWh - selfUsed,
			ExportKWh: smp.PVKWh - selfUsed,
		}
		r.Hours = append(r.Hours, h)

		r.Totals.PVKWh += h.PVKWh
		r.Totals.LoadKWh += h.LoadKWh
		r.Totals.ImportKWh += h.ImportKWh
		r.Totals.ExportKWh += h.ExportKWh

		day := smp.Timestamp.Format("2006-01-02")
		d, ok := daily[day]
		if !ok {
			d = &model.DailyTotal{Day: day}
			daily[day] = d
		}
		d.PVKWh += h.PVKWh
		d.LoadKWh += h.LoadKWh
		d.ImportKWh += h.ImportKWh
		d.ExportKWh += h.ExportKWh
	}

	for _, d := range daily {
		r.Days = append(r.Days, *d)
	}
	sort.Slice(r.Days, func(i, j int) bool { return r.Days[i].Day < r.Days[j].Day })

	usedPV := simulator.UsedPVFromTotals(r.Totals.PVKWh, r.Totals.ExportKWh)
	ac, err := simulator.Autoconsumption(r.Totals.PVKWh, usedPV)
	if err != nil {
		return nil, err
	}
	tc, err := simulator.Coverage(r.Totals.LoadKWh, usedPV)
	if err != nil {
		return nil, err
	}
	r.ACPercent = ac
	r.TCPercent = tc

	return r, nil
}

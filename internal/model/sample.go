package model

import "time"

// TimeLayout is the hour-resolution timestamp format used across CSV files
// and configuration (local time, no zone suffix).
const TimeLayout = "2006-01-02 15:04"

// Sample is one hour of measured energy: PV production and household
// consumption, both in kWh over that hour. Timestamps are hour-aligned
// local time.
type Sample struct {
	Timestamp time.Time
	PVKWh     float64
	LoadKWh   float64
}

// TimeRange is a half-open [Start, End) window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Totals holds aggregate energy sums over a window.
type Totals struct {
	PVKWh     float64
	LoadKWh   float64
	ImportKWh float64
	ExportKWh float64
}

// HourlyFlow records how one hour of energy was routed by the dispatcher.
// All flows are kWh and non-negative; SoCAfterKWh is the battery state at
// the end of the hour, bounded by the reserve floor and the capacity.
type HourlyFlow struct {
	Timestamp        time.Time
	PVDirect         float64 // PV consumed by the load as it was produced
	BattToLoad       float64 // battery discharge delivered to the load
	GridImport       float64 // load not covered by PV or battery
	BattChargeFromPV float64 // surplus PV stored in the battery
	GridExport       float64 // surplus PV sent to the grid
	GridCharge       float64 // off-peak grid energy stored in the battery
	SoCAfterKWh      float64
}

// ScenarioResult is the outcome of simulating one (PV factor, battery size)
// combination over the full window.
type ScenarioResult struct {
	PVFactor   float64
	BatteryKWh float64
	Trace      []HourlyFlow
	ACPercent  float64
	TCPercent  float64
}

// DailyTotal is one day's aggregate, used for the daily report CSV.
type DailyTotal struct {
	Day       string // YYYY-MM-DD
	PVKWh     float64
	LoadKWh   float64
	ImportKWh float64
	ExportKWh float64
}

// BalanceKWh is the day's net production (PV minus load).
func (d DailyTotal) BalanceKWh() float64 {
	return d.PVKWh - d.LoadKWh
}

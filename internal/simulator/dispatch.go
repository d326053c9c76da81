package simulator

import (
	"math"

	"pvsizer/internal/model"
	"pvsizer/internal/series"
)

// Simulate runs the hour-by-hour dispatch policy for one (PV factor,
// battery) combination over the whole series and returns the per-hour
// trace. SOC carries continuously across the window; there is no daily
// reset.
//
// The routing priority per hour is fixed: PV to load first, then battery
// discharge (HC-gated), then grid import for the rest of the load; surplus
// PV charges the battery before export; grid-assisted charging runs last,
// topping up whatever PV charging left below the target SoC.
func Simulate(s *series.Series, pvFactor float64, batt BatteryConfig, grid GridChargePolicy) ([]model.HourlyFlow, error) {
	if err := batt.Validate(); err != nil {
		return nil, err
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	hc := grid.hcSet()
	reserve := batt.reserveKWh()
	capacity := batt.CapacityKWh
	eff := batt.Efficiency
	targetSoC := grid.GridTargetSoC * capacity

	soc := batt.initialSoCKWh()
	trace := make([]model.HourlyFlow, 0, s.Len())

	for _, smp := range s.Samples() {
		load := math.Max(0, smp.LoadKWh)
		scaledPV := math.Max(0, smp.PVKWh*pvFactor)
		inHC := hc[smp.Timestamp.Hour()]

		pvDirect := math.Min(scaledPV, load)
		remainingLoad := load - pvDirect

		// Battery discharge, unless frozen by the HC gate. The efficiency
		// factor applies to energy delivered; the SOC debit is larger.
		var battToLoad float64
		if !inHC || grid.AllowDischargeInHC {
			available := (soc - reserve) * eff
			battToLoad = math.Max(0, math.Min(remainingLoad, capped(available, batt.MaxDischargeKW)))
		}
		gridImport := remainingLoad - battToLoad

		// Surplus PV charges the battery regardless of HC gating.
		remainingPV := scaledPV - pvDirect
		room := (capacity - soc) / eff
		battChargeFromPV := math.Max(0, math.Min(capped(remainingPV, batt.MaxChargeKW), room))
		gridExport := remainingPV - battChargeFromPV

		socAfterPV := soc - battToLoad/eff + battChargeFromPV*eff

		// Grid-assisted charge only fills what PV charging left below the
		// target, never double-reserving capacity.
		var gridCharge float64
		if inHC && grid.GridChargeInHC && socAfterPV < targetSoC {
			want := targetSoC - socAfterPV
			roomAfterPV := (capacity - socAfterPV) / eff
			gridCharge = math.Max(0, math.Min(capped(want, grid.GridChargeLimitKWh), roomAfterPV))
		}

		soc = clamp(socAfterPV+gridCharge*eff, reserve, capacity)

		trace = append(trace, model.HourlyFlow{
			Timestamp:        smp.Timestamp,
			PVDirect:         pvDirect,
			BattToLoad:       battToLoad,
			GridImport:       math.Max(0, gridImport),
			BattChargeFromPV: battChargeFromPV,
			GridExport:       math.Max(0, gridExport),
			GridCharge:       gridCharge,
			SoCAfterKWh:      soc,
		})
	}

	return trace, nil
}

// TraceTotals aggregates a dispatch trace into window totals. Grid-assisted
// charge counts as import: it is energy drawn from the grid.
func TraceTotals(scaledPVKWh, loadKWh float64, trace []model.HourlyFlow) model.Totals {
	t := model.Totals{PVKWh: scaledPVKWh, LoadKWh: loadKWh}
	for _, f := range trace {
		t.ImportKWh += f.GridImport + f.GridCharge
		t.ExportKWh += f.GridExport
	}
	return t
}

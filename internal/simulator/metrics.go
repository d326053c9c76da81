package simulator

import "pvsizer/internal/model"

// Autoconsumption returns the share of PV production consumed on-site, in
// percent, clamped to [0,100]. A zero PV total makes the ratio undefined
// and is reported as a DataError rather than a silent zero.
func Autoconsumption(pvTotalKWh, usedPVKWh float64) (float64, error) {
	if pvTotalKWh == 0 {
		return 0, &model.DataError{Context: "autoconsumption", Hour: -1, Reason: "pv total is zero, ratio undefined"}
	}
	return clamp(usedPVKWh/pvTotalKWh*100, 0, 100), nil
}

// Coverage returns the share of consumption satisfied by PV (directly or
// via the battery), in percent, clamped to [0,100]. A zero load total is a
// DataError.
func Coverage(loadTotalKWh, usedPVKWh float64) (float64, error) {
	if loadTotalKWh == 0 {
		return 0, &model.DataError{Context: "coverage", Hour: -1, Reason: "load total is zero, ratio undefined"}
	}
	return clamp(usedPVKWh/loadTotalKWh*100, 0, 100), nil
}

// UsedPVFromTotals derives on-site PV usage from aggregate sums, the way
// report mode does: everything produced and not exported was used.
func UsedPVFromTotals(pvTotalKWh, exportTotalKWh float64) float64 {
	used := pvTotalKWh - exportTotalKWh
	if used < 0 {
		return 0
	}
	return used
}

// UsedPVFromTrace sums the PV energy that reached the load in a dispatch
// trace, directly or through the battery. Grid-assisted charge is grid
// energy and does not count.
func UsedPVFromTrace(trace []model.HourlyFlow) float64 {
	var used float64
	for _, f := range trace {
		used += f.PVDirect + f.BattToLoad
	}
	return used
}

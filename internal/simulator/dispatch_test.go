package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvsizer/internal/model"
	"pvsizer/internal/series"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)

var defaultBattery = BatteryConfig{
	CapacityKWh:     10,
	Efficiency:      0.9,
	ReserveFraction: 0,
	InitialSoC:      0,
}

func constSeries(hours int, pv, load float64) *series.Series {
	samples := make([]model.Sample, hours)
	for i := range samples {
		samples[i] = model.Sample{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			PVKWh:     pv,
			LoadKWh:   load,
		}
	}
	return series.New(samples)
}

// sawtooth alternates PV surplus and deficit so the battery both charges
// and discharges over the window.
func sawtoothSeries(hours int) *series.Series {
	samples := make([]model.Sample, hours)
	for i := range samples {
		pv, load := 4.0, 1.0
		if i%2 == 1 {
			pv, load = 0.5, 3.0
		}
		samples[i] = model.Sample{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			PVKWh:     pv,
			LoadKWh:   load,
		}
	}
	return series.New(samples)
}

func allHours() []int {
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i
	}
	return hours
}

func TestSimulate_EnergyBalancePerHour(t *testing.T) {
	s := sawtoothSeries(48)
	batt := defaultBattery
	batt.ReserveFraction = 0.1
	batt.InitialSoC = 0.5

	trace, err := Simulate(s, 1.5, batt, GridChargePolicy{})
	require.NoError(t, err)
	require.Len(t, trace, 48)

	for i, f := range trace {
		scaledPV := s.Samples()[i].PVKWh * 1.5
		load := s.Samples()[i].LoadKWh
		assert.InDelta(t, scaledPV, f.PVDirect+f.BattChargeFromPV+f.GridExport, 1e-9, "pv balance hour %d", i)
		assert.InDelta(t, load, f.PVDirect+f.BattToLoad+f.GridImport, 1e-9, "load balance hour %d", i)
	}
}

func TestSimulate_SoCStaysWithinBounds(t *testing.T) {
	s := sawtoothSeries(72)
	batt := defaultBattery
	batt.ReserveFraction = 0.2
	batt.InitialSoC = 1.0

	policy := GridChargePolicy{
		AllowDischargeInHC: true,
		GridChargeInHC:     true,
		HCHours:            []int{0, 1, 2, 3, 4, 5, 22, 23},
		GridTargetSoC:      0.8,
	}

	trace, err := Simulate(s, 2.0, batt, policy)
	require.NoError(t, err)

	for i, f := range trace {
		assert.GreaterOrEqual(t, f.SoCAfterKWh, 2.0-1e-9, "hour %d below reserve", i)
		assert.LessOrEqual(t, f.SoCAfterKWh, 10.0+1e-9, "hour %d above capacity", i)
	}
}

func TestSimulate_ZeroCapacityBatteryIsInert(t *testing.T) {
	s := sawtoothSeries(24)
	batt := defaultBattery
	batt.CapacityKWh = 0

	policy := GridChargePolicy{
		GridChargeInHC: true,
		HCHours:        allHours(),
		GridTargetSoC:  1.0,
	}

	trace, err := Simulate(s, 1.0, batt, policy)
	require.NoError(t, err)

	for i, f := range trace {
		assert.Zero(t, f.BattToLoad, "hour %d", i)
		assert.Zero(t, f.BattChargeFromPV, "hour %d", i)
		assert.Zero(t, f.GridCharge, "hour %d", i)
		assert.Zero(t, f.SoCAfterKWh, "hour %d", i)
	}
}

func TestSimulate_EfficiencyAppliedOnDischarge(t *testing.T) {
	samples := []model.Sample{
		{Timestamp: t0, PVKWh: 3, LoadKWh: 1},
		{Timestamp: t0.Add(time.Hour), PVKWh: 0, LoadKWh: 2},
	}
	s := series.New(samples)

	trace, err := Simulate(s, 1.0, defaultBattery, GridChargePolicy{})
	require.NoError(t, err)

	// Hour 0: 1 kWh direct, 2 kWh surplus stored at 90% -> SoC 1.8
	assert.InDelta(t, 1.0, trace[0].PVDirect, 1e-9)
	assert.InDelta(t, 2.0, trace[0].BattChargeFromPV, 1e-9)
	assert.InDelta(t, 0.0, trace[0].GridExport, 1e-9)
	assert.InDelta(t, 1.8, trace[0].SoCAfterKWh, 1e-9)

	// Hour 1: 1.8 kWh stored delivers 1.62 kWh; the rest is imported.
	assert.InDelta(t, 1.62, trace[1].BattToLoad, 1e-9)
	assert.InDelta(t, 0.38, trace[1].GridImport, 1e-9)
	assert.InDelta(t, 0.0, trace[1].SoCAfterKWh, 1e-9)
}

func TestSimulate_BothGatesOffFreezesBatteryInHC(t *testing.T) {
	s := constSeries(24, 0, 2)
	batt := defaultBattery
	batt.InitialSoC = 1.0 // full battery, plenty to discharge

	policy := GridChargePolicy{
		AllowDischargeInHC: false,
		GridChargeInHC:     false,
		HCHours:            allHours(),
		GridTargetSoC:      1.0,
	}

	trace, err := Simulate(s, 1.0, batt, policy)
	require.NoError(t, err)

	for i, f := range trace {
		assert.Zero(t, f.BattToLoad, "hour %d", i)
		assert.Zero(t, f.GridCharge, "hour %d", i)
		assert.InDelta(t, 2.0, f.GridImport, 1e-9, "hour %d", i)
		assert.InDelta(t, 10.0, f.SoCAfterKWh, 1e-9, "hour %d", i)
	}
}

func TestSimulate_ChargeOnlyFillsFromGridInHC(t *testing.T) {
	s := constSeries(4, 0, 0)
	batt := defaultBattery
	batt.Efficiency = 1.0

	policy := GridChargePolicy{
		AllowDischargeInHC: false,
		GridChargeInHC:     true,
		HCHours:            allHours(),
		GridTargetSoC:      0.5,
		GridChargeLimitKWh: 2,
	}

	trace, err := Simulate(s, 1.0, batt, policy)
	require.NoError(t, err)

	// 2 kWh per hour up to the 5 kWh target, then nothing.
	assert.InDelta(t, 2.0, trace[0].GridCharge, 1e-9)
	assert.InDelta(t, 2.0, trace[1].GridCharge, 1e-9)
	assert.InDelta(t, 1.0, trace[2].GridCharge, 1e-9)
	assert.InDelta(t, 0.0, trace[3].GridCharge, 1e-9)
	assert.InDelta(t, 5.0, trace[3].SoCAfterKWh, 1e-9)
}

func TestSimulate_GridChargeTopsUpAfterPVCharge(t *testing.T) {
	samples := []model.Sample{{Timestamp: t0, PVKWh: 2, LoadKWh: 0}}
	s := series.New(samples)
	batt := defaultBattery
	batt.Efficiency = 1.0

	policy := GridChargePolicy{
		GridChargeInHC: true,
		HCHours:        allHours(),
		GridTargetSoC:  0.5,
	}

	trace, err := Simulate(s, 1.0, batt, policy)
	require.NoError(t, err)

	// PV stores 2 kWh first; the grid only covers the remaining 3 kWh to
	// the 5 kWh target.
	assert.InDelta(t, 2.0, trace[0].BattChargeFromPV, 1e-9)
	assert.InDelta(t, 3.0, trace[0].GridCharge, 1e-9)
	assert.InDelta(t, 5.0, trace[0].SoCAfterKWh, 1e-9)
}

func TestSimulate_DischargeAllowedOutsideHC(t *testing.T) {
	// HC covers only night hours; an afternoon deficit must discharge.
	samples := []model.Sample{
		{Timestamp: time.Date(2024, 3, 1, 14, 0, 0, 0, time.Local), PVKWh: 0, LoadKWh: 1},
	}
	s := series.New(samples)
	batt := defaultBattery
	batt.Efficiency = 1.0
	batt.InitialSoC = 0.5

	policy := GridChargePolicy{
		AllowDischargeInHC: false,
		HCHours:            []int{0, 1, 2, 3, 4, 5},
	}

	trace, err := Simulate(s, 1.0, batt, policy)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, trace[0].BattToLoad, 1e-9)
	assert.Zero(t, trace[0].GridImport)
}

func TestSimulate_MaxDischargeLimit(t *testing.T) {
	s := constSeries(2, 0, 5)
	batt := defaultBattery
	batt.Efficiency = 1.0
	batt.InitialSoC = 1.0
	batt.MaxDischargeKW = 1

	trace, err := Simulate(s, 1.0, batt, GridChargePolicy{})
	require.NoError(t, err)
	for i, f := range trace {
		assert.InDelta(t, 1.0, f.BattToLoad, 1e-9, "hour %d", i)
		assert.InDelta(t, 4.0, f.GridImport, 1e-9, "hour %d", i)
	}
}

func TestSimulate_MaxChargeLimit(t *testing.T) {
	s := constSeries(2, 5, 0)
	batt := defaultBattery
	batt.Efficiency = 1.0
	batt.MaxChargeKW = 2

	trace, err := Simulate(s, 1.0, batt, GridChargePolicy{})
	require.NoError(t, err)
	for i, f := range trace {
		assert.InDelta(t, 2.0, f.BattChargeFromPV, 1e-9, "hour %d", i)
		assert.InDelta(t, 3.0, f.GridExport, 1e-9, "hour %d", i)
	}
}

func TestSimulate_InitialSoCClampedToReserve(t *testing.T) {
	s := constSeries(1, 0, 1)
	batt := defaultBattery
	batt.ReserveFraction = 0.3
	batt.InitialSoC = 0.05 // below the reserve floor

	trace, err := Simulate(s, 1.0, batt, GridChargePolicy{})
	require.NoError(t, err)

	// Clamped to reserve at construction: nothing available to discharge.
	assert.Zero(t, trace[0].BattToLoad)
	assert.InDelta(t, 3.0, trace[0].SoCAfterKWh, 1e-9)
}

func TestSimulate_EmptySeries(t *testing.T) {
	_, err := Simulate(series.New(nil), 1.0, defaultBattery, GridChargePolicy{})
	var dataErr *model.DataError
	require.ErrorAs(t, err, &dataErr)
}

func TestSimulate_NonContiguousSeries(t *testing.T) {
	samples := []model.Sample{
		{Timestamp: t0, PVKWh: 1, LoadKWh: 1},
		{Timestamp: t0.Add(3 * time.Hour), PVKWh: 1, LoadKWh: 1}, // 2h gap
	}
	_, err := Simulate(series.New(samples), 1.0, defaultBattery, GridChargePolicy{})

	var dataErr *model.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, 1, dataErr.Hour)
}

func TestSimulate_ConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BatteryConfig)
		param  string
	}{
		{"negative capacity", func(c *BatteryConfig) { c.CapacityKWh = -1 }, "capacity_kwh"},
		{"zero efficiency", func(c *BatteryConfig) { c.Efficiency = 0 }, "efficiency"},
		{"efficiency above one", func(c *BatteryConfig) { c.Efficiency = 1.1 }, "efficiency"},
		{"reserve of one", func(c *BatteryConfig) { c.ReserveFraction = 1 }, "reserve_fraction"},
		{"negative reserve", func(c *BatteryConfig) { c.ReserveFraction = -0.1 }, "reserve_fraction"},
		{"initial soc above one", func(c *BatteryConfig) { c.InitialSoC = 1.5 }, "initial_soc"},
		{"negative charge limit", func(c *BatteryConfig) { c.MaxChargeKW = -1 }, "max_charge_kw"},
		{"negative discharge limit", func(c *BatteryConfig) { c.MaxDischargeKW = -2 }, "max_discharge_kw"},
	}

	s := constSeries(1, 1, 1)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			batt := defaultBattery
			tc.mutate(&batt)

			_, err := Simulate(s, 1.0, batt, GridChargePolicy{})
			var cfgErr *model.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.param, cfgErr.Param)
		})
	}
}

func TestSimulate_GridPolicyValidation(t *testing.T) {
	s := constSeries(1, 1, 1)

	_, err := Simulate(s, 1.0, defaultBattery, GridChargePolicy{HCHours: []int{24}})
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "hc_hours", cfgErr.Param)

	_, err = Simulate(s, 1.0, defaultBattery, GridChargePolicy{GridTargetSoC: 1.2})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "grid_target_soc", cfgErr.Param)
}

package simulator

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"pvsizer/internal/model"
	"pvsizer/internal/series"
)

// Override pins the search to a single (PV factor, battery size)
// combination, bypassing target filtering. Used for what-if runs.
type Override struct {
	PVFactor   float64 `json:"pv_factor"`
	BatteryKWh float64 `json:"batt_kwh"`
}

// SearchConfig describes the candidate grid and the acceptance targets.
type SearchConfig struct {
	BatterySizesKWh []float64
	PVFactors       []float64
	TargetACMin     float64
	TargetACMax     float64
	TargetTCMin     float64
	Override        *Override
}

func (c SearchConfig) Validate() error {
	if c.Override == nil {
		if len(c.BatterySizesKWh) == 0 {
			return &model.ConfigError{Param: "battery_sizes", Value: 0, Reason: "at least one battery size required"}
		}
		if len(c.PVFactors) == 0 {
			return &model.ConfigError{Param: "pv_factors", Value: 0, Reason: "at least one pv factor required"}
		}
	}
	for _, b := range c.BatterySizesKWh {
		if b < 0 {
			return &model.ConfigError{Param: "battery_sizes", Value: b, Reason: "must be >= 0"}
		}
	}
	for _, f := range c.PVFactors {
		if f <= 0 {
			return &model.ConfigError{Param: "pv_factors", Value: f, Reason: "must be > 0"}
		}
	}
	if c.TargetACMin > c.TargetACMax {
		return &model.ConfigError{Param: "target_ac_min", Value: c.TargetACMin, Reason: "exceeds target_ac_max"}
	}
	if c.Override != nil {
		if c.Override.PVFactor <= 0 {
			return &model.ConfigError{Param: "sim_override.pv_factor", Value: c.Override.PVFactor, Reason: "must be > 0"}
		}
		if c.Override.BatteryKWh < 0 {
			return &model.ConfigError{Param: "sim_override.batt_kwh", Value: c.Override.BatteryKWh, Reason: "must be >= 0"}
		}
	}
	return nil
}

// combo is one point of the candidate grid, in selection order.
type combo struct {
	batteryKWh float64
	pvFactor   float64
}

// Search evaluates the candidate grid and returns the cheapest combination
// meeting the targets: smallest battery first, then smallest PV factor.
// With an override set it runs that single combination unconditionally.
//
// When nothing passes, the returned error is a *model.SimulationFailed
// carrying the best AC and TC observed, so the caller can tell which
// target is out of reach.
//
// Combinations are independent and evaluated in parallel; the series and
// the templates are shared read-only.
func Search(ctx context.Context, s *series.Series, cfg SearchConfig, batt BatteryConfig, grid GridChargePolicy) (*model.ScenarioResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if cfg.Override != nil {
		return evaluate(s, cfg.Override.PVFactor, cfg.Override.BatteryKWh, batt, grid)
	}

	results, err := SearchAll(ctx, s, cfg, batt, grid)
	if err != nil {
		return nil, err
	}
	return Select(results, cfg)
}

// SearchAll evaluates the full candidate grid and returns every result in
// selection order. The simulate command uses it to export the combos CSV
// before filtering.
func SearchAll(ctx context.Context, s *series.Series, cfg SearchConfig, batt BatteryConfig, grid GridChargePolicy) ([]*model.ScenarioResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	combos := candidateGrid(cfg)
	results := make([]*model.ScenarioResult, len(combos))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range combos {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := evaluate(s, c.pvFactor, c.batteryKWh, batt, grid)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Select filters evaluated results by the targets and picks the first in
// selection order: results are ordered ascending by (battery, pv factor),
// so the first survivor is the cheapest hardware meeting every target.
func Select(results []*model.ScenarioResult, cfg SearchConfig) (*model.ScenarioResult, error) {
	var bestAC, bestTC float64
	for _, r := range results {
		if r.ACPercent > bestAC {
			bestAC = r.ACPercent
		}
		if r.TCPercent > bestTC {
			bestTC = r.TCPercent
		}
	}
	for _, r := range results {
		if r.ACPercent >= cfg.TargetACMin && r.ACPercent <= cfg.TargetACMax && r.TCPercent >= cfg.TargetTCMin {
			return r, nil
		}
	}
	return nil, &model.SimulationFailed{BestAC: bestAC, BestTC: bestTC, Evaluated: len(results)}
}

// Passing returns all results that meet the targets, in selection order.
func Passing(results []*model.ScenarioResult, cfg SearchConfig) []*model.ScenarioResult {
	var out []*model.ScenarioResult
	for _, r := range results {
		if r.ACPercent >= cfg.TargetACMin && r.ACPercent <= cfg.TargetACMax && r.TCPercent >= cfg.TargetTCMin {
			out = append(out, r)
		}
	}
	return out
}

func candidateGrid(cfg SearchConfig) []combo {
	sizes := append([]float64(nil), cfg.BatterySizesKWh...)
	factors := append([]float64(nil), cfg.PVFactors...)
	sort.Float64s(sizes)
	sort.Float64s(factors)

	combos := make([]combo, 0, len(sizes)*len(factors))
	for _, b := range sizes {
		for _, f := range factors {
			combos = append(combos, combo{batteryKWh: b, pvFactor: f})
		}
	}
	return combos
}

// evaluate simulates one combination and computes its AC/TC.
func evaluate(s *series.Series, pvFactor, batteryKWh float64, batt BatteryConfig, grid GridChargePolicy) (*model.ScenarioResult, error) {
	trace, err := Simulate(s, pvFactor, batt.WithCapacity(batteryKWh), grid)
	if err != nil {
		return nil, err
	}

	pvTotal, loadTotal := s.Totals()
	usedPV := UsedPVFromTrace(trace)

	ac, err := Autoconsumption(pvTotal*pvFactor, usedPV)
	if err != nil {
		return nil, err
	}
	tc, err := Coverage(loadTotal, usedPV)
	if err != nil {
		return nil, err
	}

	return &model.ScenarioResult{
		PVFactor:   pvFactor,
		BatteryKWh: batteryKWh,
		Trace:      trace,
		ACPercent:  ac,
		TCPercent:  tc,
	}, nil
}

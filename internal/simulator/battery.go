package simulator

import "pvsizer/internal/model"

// BatteryConfig holds the battery parameters for one simulation run. It is
// immutable once validated; each run gets its own state.
type BatteryConfig struct {
	CapacityKWh     float64 `json:"capacity_kwh"`
	Efficiency      float64 `json:"efficiency"`       // round-trip, (0,1]
	ReserveFraction float64 `json:"reserve_fraction"` // never discharged below this
	InitialSoC      float64 `json:"initial_soc"`      // fraction of capacity at start
	MaxChargeKW     float64 `json:"max_charge_kw"`    // per hour, 0 = unbounded
	MaxDischargeKW  float64 `json:"max_discharge_kw"` // per hour, 0 = unbounded
}

// Validate range-checks every parameter. A nil result means the config can
// be simulated as-is (after the initial SoC clamp).
func (c BatteryConfig) Validate() error {
	if c.CapacityKWh < 0 {
		return &model.ConfigError{Param: "capacity_kwh", Value: c.CapacityKWh, Reason: "must be >= 0"}
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		return &model.ConfigError{Param: "efficiency", Value: c.Efficiency, Reason: "must be in (0,1]"}
	}
	if c.ReserveFraction < 0 || c.ReserveFraction >= 1 {
		return &model.ConfigError{Param: "reserve_fraction", Value: c.ReserveFraction, Reason: "must be in [0,1)"}
	}
	if c.InitialSoC < 0 || c.InitialSoC > 1 {
		return &model.ConfigError{Param: "initial_soc", Value: c.InitialSoC, Reason: "must be in [0,1]"}
	}
	if c.MaxChargeKW < 0 {
		return &model.ConfigError{Param: "max_charge_kw", Value: c.MaxChargeKW, Reason: "must be >= 0"}
	}
	if c.MaxDischargeKW < 0 {
		return &model.ConfigError{Param: "max_discharge_kw", Value: c.MaxDischargeKW, Reason: "must be >= 0"}
	}
	return nil
}

// reserveKWh is the absolute discharge floor.
func (c BatteryConfig) reserveKWh() float64 {
	return c.ReserveFraction * c.CapacityKWh
}

// initialSoCKWh is the starting state, clamped into [reserve, capacity].
func (c BatteryConfig) initialSoCKWh() float64 {
	return clamp(c.InitialSoC*c.CapacityKWh, c.reserveKWh(), c.CapacityKWh)
}

// WithCapacity returns a copy sized to the given capacity. The scenario
// search uses it to instantiate the template per battery size.
func (c BatteryConfig) WithCapacity(capacityKWh float64) BatteryConfig {
	c.CapacityKWh = capacityKWh
	return c
}

// GridChargePolicy controls battery behavior during off-peak (HC) tariff
// hours: whether discharge is allowed there, and whether the grid may top
// the battery up to a target SoC.
type GridChargePolicy struct {
	AllowDischargeInHC bool    `json:"allow_discharge_in_hc"`
	GridChargeInHC     bool    `json:"grid_charge_in_hc"`
	HCHours            []int   `json:"hc_hours"` // hours of day, 0-23
	GridTargetSoC      float64 `json:"grid_target_soc"`
	GridChargeLimitKWh float64 `json:"grid_charge_limit_kwh"` // per hour, 0 = unbounded
}

func (p GridChargePolicy) Validate() error {
	for _, h := range p.HCHours {
		if h < 0 || h > 23 {
			return &model.ConfigError{Param: "hc_hours", Value: float64(h), Reason: "hour of day must be in [0,23]"}
		}
	}
	if p.GridTargetSoC < 0 || p.GridTargetSoC > 1 {
		return &model.ConfigError{Param: "grid_target_soc", Value: p.GridTargetSoC, Reason: "must be in [0,1]"}
	}
	if p.GridChargeLimitKWh < 0 {
		return &model.ConfigError{Param: "grid_charge_limit_kwh", Value: p.GridChargeLimitKWh, Reason: "must be >= 0"}
	}
	return nil
}

// hcSet returns a per-hour lookup table for HC membership.
func (p GridChargePolicy) hcSet() [24]bool {
	var set [24]bool
	for _, h := range p.HCHours {
		if h >= 0 && h < 24 {
			set[h] = true
		}
	}
	return set
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// capped applies a per-hour power limit, where 0 means unbounded. One time
// step is one hour, so a kW limit equals a kWh limit for the step.
func capped(v, limitKW float64) float64 {
	if limitKW <= 0 {
		return v
	}
	if v > limitKW {
		return limitKW
	}
	return v
}

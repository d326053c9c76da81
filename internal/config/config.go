// Package config loads and validates the run configuration. The file
// keeps the flat upper-snake key set of the original JSON config so
// existing files keep working; YAML is accepted too, and PVSIM_-prefixed
// environment variables override file values.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"pvsizer/internal/model"
	"pvsizer/internal/simulator"
)

const envPrefix = "PVSIM_"

// Config is the full run configuration.
type Config struct {
	// Data sources.
	BaseURL    string `json:"BASE_URL"`
	Token      string `json:"TOKEN"`
	PVEntity   string `json:"PV_ENTITY"`
	LoadEntity string `json:"LOAD_ENTITY"`
	SSLVerify  bool   `json:"SSL_VERIFY"`
	InCSV      string `json:"IN_CSV"`

	EnphaseAPIKey   string `json:"ENPHASE_API_KEY"`
	EnphaseUserID   string `json:"ENPHASE_USER_ID"`
	EnphaseSystemID string `json:"ENPHASE_SYSTEM_ID"`
	EnphaseSiteID   string `json:"ENPHASE_SITE_ID"`

	// Analysis window, inclusive start, exclusive end.
	Start string `json:"START"`
	End   string `json:"END"`

	// Battery parameters shared by every simulated scenario.
	BatteryEff     float64 `json:"BATTERY_EFF"`
	InitialSoC     float64 `json:"INITIAL_SOC"`
	BattMinSoC     float64 `json:"BATT_MIN_SOC"`
	MaxChargeKW    float64 `json:"MAX_CHARGE_KW_PER_HOUR"`
	MaxDischargeKW float64 `json:"MAX_DISCHARGE_KW_PER_HOUR"`

	// Off-peak (HC) tariff policy.
	AllowDischargeInHC bool    `json:"ALLOW_DISCHARGE_IN_HC"`
	GridChargeInHC     bool    `json:"GRID_CHARGE_IN_HC"`
	GridHours          []int   `json:"GRID_HOURS"`
	GridTargetSoC      float64 `json:"GRID_TARGET_SOC"`
	GridChargeLimit    float64 `json:"GRID_CHARGE_LIMIT"`

	// Scenario search.
	BatterySizes []float64           `json:"BATTERY_SIZES"`
	PVFactors    []float64           `json:"PV_FACTORS"`
	TargetACMin  float64             `json:"TARGET_AC_MIN"`
	TargetACMax  float64             `json:"TARGET_AC_MAX"`
	TargetTCMin  float64             `json:"TARGET_TC_MIN"`
	Override     *simulator.Override `json:"SIM_OVERRIDE"`

	// Outputs.
	OutCSVDetail string  `json:"OUT_CSV_DETAIL"`
	OutCSVDaily  string  `json:"OUT_CSV_DAILY"`
	OutCSVSimu   string  `json:"OUT_CSV_SIMU"`
	PVActualKW   float64 `json:"PV_ACTUAL_KW"`
}

// Load reads the config file (JSON or YAML by extension), applies
// environment overrides, fills defaults and validates ranges.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(s, envPrefix)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset values and normalizes the candidate grids:
// sizes and factors are deduplicated and sorted ascending, negative sizes
// and non-positive factors are dropped.
func (c *Config) SetDefaults() {
	if c.OutCSVDetail == "" {
		c.OutCSVDetail = "ha_energy_import_export_hourly.csv"
	}
	if c.OutCSVDaily == "" {
		c.OutCSVDaily = "ha_energy_import_export_daily.csv"
	}
	if c.OutCSVSimu == "" {
		c.OutCSVSimu = "ha_energy_simulation_combos.csv"
	}
	if c.TargetACMin == 0 {
		c.TargetACMin = 85.0
	}
	if c.TargetACMax == 0 {
		c.TargetACMax = 100.0
	}
	if c.TargetTCMin == 0 {
		c.TargetTCMin = 80.0
	}
	if c.BatteryEff == 0 {
		c.BatteryEff = 0.90
	}
	if c.PVActualKW == 0 {
		c.PVActualKW = 4.0
	}
	if len(c.BatterySizes) == 0 {
		c.BatterySizes = []float64{0, 5, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30}
	}
	if len(c.PVFactors) == 0 {
		c.PVFactors = []float64{1.0, 1.2, 1.5, 1.8, 2.0, 2.2, 2.4, 2.6, 3.0}
	}
	c.BatterySizes = normalizeGrid(c.BatterySizes, func(v float64) bool { return v >= 0 })
	c.PVFactors = normalizeGrid(c.PVFactors, func(v float64) bool { return v > 0 })
}

// Validate range-checks everything the simulator will consume, so bad
// values fail at load time rather than mid-sweep.
func (c *Config) Validate() error {
	if err := c.Battery().Validate(); err != nil {
		return err
	}
	if err := c.GridPolicy().Validate(); err != nil {
		return err
	}
	if err := c.Search().Validate(); err != nil {
		return err
	}
	if _, err := c.Window(); err != nil {
		return err
	}
	if c.PVActualKW < 0 {
		return &model.ConfigError{Param: "PV_ACTUAL_KW", Value: c.PVActualKW, Reason: "must be >= 0"}
	}
	return nil
}

// RequireSource checks the keys the given source needs. Source names match
// the --source flag: ha_ws, csv, enlighten.
func (c *Config) RequireSource(name string) error {
	var missing []string
	need := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}
	switch name {
	case "ha_ws":
		need("BASE_URL", c.BaseURL)
		need("TOKEN", c.Token)
		need("PV_ENTITY", c.PVEntity)
		need("LOAD_ENTITY", c.LoadEntity)
		need("START", c.Start)
		need("END", c.End)
	case "csv":
		need("IN_CSV", c.InCSV)
	case "enlighten":
		need("ENPHASE_API_KEY", c.EnphaseAPIKey)
		need("ENPHASE_USER_ID", c.EnphaseUserID)
		need("ENPHASE_SYSTEM_ID", c.EnphaseSystemID)
		need("START", c.Start)
		need("END", c.End)
	default:
		return &model.ConfigError{Param: "source", Reason: fmt.Sprintf("unknown source %q", name)}
	}
	if len(missing) > 0 {
		return &model.ConfigError{Param: strings.Join(missing, ", "), Reason: "required for source " + name}
	}
	return nil
}

// Battery returns the battery template. Capacity is zero; the scenario
// search sizes it per candidate.
func (c *Config) Battery() simulator.BatteryConfig {
	return simulator.BatteryConfig{
		Efficiency:      c.BatteryEff,
		ReserveFraction: c.BattMinSoC,
		InitialSoC:      c.InitialSoC,
		MaxChargeKW:     c.MaxChargeKW,
		MaxDischargeKW:  c.MaxDischargeKW,
	}
}

func (c *Config) GridPolicy() simulator.GridChargePolicy {
	return simulator.GridChargePolicy{
		AllowDischargeInHC: c.AllowDischargeInHC,
		GridChargeInHC:     c.GridChargeInHC,
		HCHours:            c.GridHours,
		GridTargetSoC:      c.GridTargetSoC,
		GridChargeLimitKWh: c.GridChargeLimit,
	}
}

func (c *Config) Search() simulator.SearchConfig {
	return simulator.SearchConfig{
		BatterySizesKWh: c.BatterySizes,
		PVFactors:       c.PVFactors,
		TargetACMin:     c.TargetACMin,
		TargetACMax:     c.TargetACMax,
		TargetTCMin:     c.TargetTCMin,
		Override:        c.Override,
	}
}

// Window parses START/END. Either may be empty, which leaves that side of
// the range open. Accepted layouts: "2006-01-02 15:04" and "2006-01-02".
func (c *Config) Window() (model.TimeRange, error) {
	start, err := parseWindowBound("START", c.Start)
	if err != nil {
		return model.TimeRange{}, err
	}
	end, err := parseWindowBound("END", c.End)
	if err != nil {
		return model.TimeRange{}, err
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return model.TimeRange{}, &model.ConfigError{Param: "START", Reason: "must be before END"}
	}
	return model.TimeRange{Start: start, End: end}, nil
}

func parseWindowBound(key, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(model.TimeLayout, value, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, &model.ConfigError{Param: key, Reason: fmt.Sprintf("cannot parse %q as a date", value)}
}

func normalizeGrid(values []float64, keep func(float64) bool) []float64 {
	seen := make(map[float64]bool, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if keep(v) && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

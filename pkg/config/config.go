// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Variant selects the validator decision table a mission runs under.
type Variant string

const (
	// VariantApogee is the continuous apogee-raising mission: hold to burn,
	// validated against a tolerance band on release.
	VariantApogee Variant = "apogee"
	// VariantLadder is the discrete multi-strength mission with a hard ceiling.
	VariantLadder Variant = "ladder"
	// VariantInjection is the escape-velocity burn validated against an
	// absolute band and the timing window on release.
	VariantInjection Variant = "injection"
)

// BurnModel selects how fuel is charged.
type BurnModel string

const (
	BurnContinuous BurnModel = "continuous"
	BurnDiscrete   BurnModel = "discrete"
)

// Config is the mission catalogue served by the simulator.
type Config struct {
	DefaultMission string          `json:"defaultMission" mapstructure:"defaultMission"`
	Missions       []MissionConfig `json:"missions" mapstructure:"missions"`
}

// MissionConfig parameterizes one generic simulation: where the craft starts,
// how the orbit advances, which window counts as correctly timed, how burns
// are charged and which stages must be met.
type MissionConfig struct {
	Name      string          `json:"name" mapstructure:"name"`
	Title     string          `json:"title" mapstructure:"title"`
	Variant   Variant         `json:"variant" mapstructure:"variant"`
	Seed      uint64          `json:"seed" mapstructure:"seed"`
	Start     StartConfig     `json:"start" mapstructure:"start"`
	Orbit     OrbitConfig     `json:"orbit" mapstructure:"orbit"`
	Window    WindowConfig    `json:"window" mapstructure:"window"`
	Burn      BurnConfig      `json:"burn" mapstructure:"burn"`
	Stages    []StageConfig   `json:"stages" mapstructure:"stages"`
	Ceiling   float64         `json:"ceiling,omitempty" mapstructure:"ceiling"`
	Band      BandConfig      `json:"band" mapstructure:"band"`
	Alignment AlignmentConfig `json:"alignment" mapstructure:"alignment"`
}

// StartConfig holds level-start values restored on reset.
type StartConfig struct {
	Anomaly      float64 `json:"anomaly" mapstructure:"anomaly"`
	Apogee       float64 `json:"apogee" mapstructure:"apogee"`
	Velocity     float64 `json:"velocity" mapstructure:"velocity"`
	BaseVelocity float64 `json:"baseVelocity" mapstructure:"baseVelocity"`
	Fuel         float64 `json:"fuel" mapstructure:"fuel"`
	Alignment    float64 `json:"alignment" mapstructure:"alignment"`
}

// OrbitConfig tunes the angular-speed approximation.
type OrbitConfig struct {
	BaseSpeed     float64 `json:"baseSpeed" mapstructure:"baseSpeed"`
	Kepler        float64 `json:"kepler" mapstructure:"kepler"`
	SizeRef       float64 `json:"sizeRef,omitempty" mapstructure:"sizeRef"`
	SizeOffset    float64 `json:"sizeOffset,omitempty" mapstructure:"sizeOffset"`
	MinSizeFactor float64 `json:"minSizeFactor,omitempty" mapstructure:"minSizeFactor"`
	BoostAbove    float64 `json:"boostAbove,omitempty" mapstructure:"boostAbove"`
	BoostFactor   float64 `json:"boostFactor,omitempty" mapstructure:"boostFactor"`
	WarpSpeed     float64 `json:"warpSpeed,omitempty" mapstructure:"warpSpeed"`
	WarpCapture   float64 `json:"warpCapture,omitempty" mapstructure:"warpCapture"`
	Fluctuation   float64 `json:"fluctuation" mapstructure:"fluctuation"`

	// FreezeUntilAligned keeps the craft parked until attitude is set.
	FreezeUntilAligned bool `json:"freezeUntilAligned" mapstructure:"freezeUntilAligned"`
}

// WindowConfig is the half-width in degrees of the band centered on perigee.
type WindowConfig struct {
	HalfWidth float64 `json:"halfWidth" mapstructure:"halfWidth"`
}

// BurnConfig describes the consumption model.
type BurnConfig struct {
	Model BurnModel `json:"model" mapstructure:"model"`

	// continuous
	MetricRate          float64 `json:"metricRate,omitempty" mapstructure:"metricRate"`
	FuelRate            float64 `json:"fuelRate,omitempty" mapstructure:"fuelRate"`
	DeltaVRate          float64 `json:"deltaVRate,omitempty" mapstructure:"deltaVRate"`
	OffWindowFuel       float64 `json:"offWindowFuel,omitempty" mapstructure:"offWindowFuel"`
	OffWindowEfficiency float64 `json:"offWindowEfficiency,omitempty" mapstructure:"offWindowEfficiency"`

	// discrete
	MistimedFraction float64            `json:"mistimedFraction,omitempty" mapstructure:"mistimedFraction"`
	Options          []BurnOptionConfig `json:"options,omitempty" mapstructure:"options"`
	DefaultOption    string             `json:"defaultOption,omitempty" mapstructure:"defaultOption"`
}

// BurnOptionConfig is a named discrete burn strength.
type BurnOptionConfig struct {
	Key         string  `json:"key" mapstructure:"key"`
	Label       string  `json:"label" mapstructure:"label"`
	Description string  `json:"description,omitempty" mapstructure:"description"`
	Gain        float64 `json:"gain" mapstructure:"gain"`
	FuelCost    float64 `json:"fuelCost" mapstructure:"fuelCost"`
}

// StageConfig is one milestone with its acceptance tolerance.
type StageConfig struct {
	Label     string  `json:"label" mapstructure:"label"`
	Target    float64 `json:"target" mapstructure:"target"`
	Tolerance float64 `json:"tolerance,omitempty" mapstructure:"tolerance"`
}

// BandConfig is an absolute acceptance band.
type BandConfig struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// AlignmentConfig describes the auxiliary control value. The apogee variant
// uses it as pitch trim (Min..Max, Tolerance, drift on stage advance); the
// injection variant ramps it by Rate per tick up to Full.
type AlignmentConfig struct {
	Tolerance    float64 `json:"tolerance,omitempty" mapstructure:"tolerance"`
	Min          float64 `json:"min,omitempty" mapstructure:"min"`
	Max          float64 `json:"max,omitempty" mapstructure:"max"`
	DriftMin     float64 `json:"driftMin,omitempty" mapstructure:"driftMin"`
	DriftMax     float64 `json:"driftMax,omitempty" mapstructure:"driftMax"`
	LockoutTicks int     `json:"lockoutTicks,omitempty" mapstructure:"lockoutTicks"`
	Rate         float64 `json:"rate,omitempty" mapstructure:"rate"`
	Full         float64 `json:"full,omitempty" mapstructure:"full"`
}

// Mission returns the mission with the given name.
func (c *Config) Mission(name string) (MissionConfig, bool) {
	for _, m := range c.Missions {
		if m.Name == name {
			return m, true
		}
	}
	return MissionConfig{}, false
}

// Validate checks every mission and the default mission reference.
func (c *Config) Validate() error {
	if len(c.Missions) == 0 {
		return errors.New("config: no missions defined")
	}
	seen := make(map[string]bool, len(c.Missions))
	for i := range c.Missions {
		m := &c.Missions[i]
		if err := m.Validate(); err != nil {
			return fmt.Errorf("config: mission %d: %w", i, err)
		}
		if seen[m.Name] {
			return fmt.Errorf("config: duplicate mission name %q", m.Name)
		}
		seen[m.Name] = true
	}
	if c.DefaultMission != "" && !seen[c.DefaultMission] {
		return fmt.Errorf("config: default mission %q not defined", c.DefaultMission)
	}
	return nil
}

// Validate checks that a mission can be simulated.
func (m *MissionConfig) Validate() error {
	if m.Name == "" {
		return errors.New("name is required")
	}
	if m.Start.Fuel <= 0 || m.Start.Fuel > 100 {
		return fmt.Errorf("%s: start fuel %.2f outside (0,100]", m.Name, m.Start.Fuel)
	}
	if m.Window.HalfWidth <= 0 || m.Window.HalfWidth >= 180 {
		return fmt.Errorf("%s: window half-width %.2f outside (0,180)", m.Name, m.Window.HalfWidth)
	}
	if m.Orbit.BaseSpeed <= 0 {
		return fmt.Errorf("%s: orbit base speed must be positive", m.Name)
	}

	switch m.Variant {
	case VariantApogee:
		if len(m.Stages) == 0 {
			return fmt.Errorf("%s: apogee variant needs stages", m.Name)
		}
		for _, s := range m.Stages {
			if s.Tolerance <= 0 {
				return fmt.Errorf("%s: stage %q tolerance must be positive", m.Name, s.Label)
			}
		}
		if m.Burn.Model != BurnContinuous {
			return fmt.Errorf("%s: apogee variant needs a continuous burn model", m.Name)
		}
	case VariantLadder:
		if len(m.Stages) == 0 {
			return fmt.Errorf("%s: ladder variant needs stages", m.Name)
		}
		if m.Ceiling <= 0 {
			return fmt.Errorf("%s: ladder variant needs a ceiling", m.Name)
		}
		if m.Burn.Model != BurnDiscrete || len(m.Burn.Options) == 0 {
			return fmt.Errorf("%s: ladder variant needs discrete burn options", m.Name)
		}
		for _, o := range m.Burn.Options {
			if o.Key == "" || o.FuelCost <= 0 || o.Gain <= 0 {
				return fmt.Errorf("%s: invalid burn option %q", m.Name, o.Key)
			}
		}
	case VariantInjection:
		if m.Band.Min >= m.Band.Max {
			return fmt.Errorf("%s: band min %.3f must be below max %.3f", m.Name, m.Band.Min, m.Band.Max)
		}
		if m.Burn.Model != BurnContinuous {
			return fmt.Errorf("%s: injection variant needs a continuous burn model", m.Name)
		}
		if m.Alignment.Rate <= 0 || m.Alignment.Full <= 0 {
			return fmt.Errorf("%s: injection variant needs an alignment ramp", m.Name)
		}
	default:
		return fmt.Errorf("%s: unknown variant %q", m.Name, m.Variant)
	}
	return nil
}

// LoadConfig loads a mission catalogue from a JSON, YAML or TOML file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig saves a configuration to a file as indented JSON.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnvironmentOverrides applies process-level overrides to the catalogue.
// ORBITSIM_SEED pins the pseudo-random source of every mission.
func ApplyEnvironmentOverrides(cfg *Config) error {
	if raw := os.Getenv("ORBITSIM_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ORBITSIM_SEED %q: %w", raw, err)
		}
		for i := range cfg.Missions {
			cfg.Missions[i].Seed = seed
		}
	}
	if name := os.Getenv("ORBITSIM_DEFAULT_MISSION"); name != "" {
		if _, ok := cfg.Mission(name); !ok {
			return fmt.Errorf("ORBITSIM_DEFAULT_MISSION %q not in catalogue", name)
		}
		cfg.DefaultMission = name
	}
	return nil
}

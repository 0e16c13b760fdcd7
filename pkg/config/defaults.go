// pkg/config/defaults.go
package config

// Stock mission names.
const (
	MissionOrbitInjection = "orbit-injection"
	MissionOrbitRaising   = "orbit-raising"
	MissionTransPlanetary = "trans-planetary-injection"
	defaultSeed           = 1
)

// DefaultConfig returns the stock three-mission catalogue.
func DefaultConfig() *Config {
	return &Config{
		DefaultMission: MissionOrbitInjection,
		Missions: []MissionConfig{
			DefaultOrbitInjection(),
			DefaultOrbitRaising(),
			DefaultTransPlanetaryInjection(),
		},
	}
}

// DefaultOrbitInjection is the continuous apogee-raising mission: three
// transfer burns at perigee, each released inside a tolerance band.
func DefaultOrbitInjection() MissionConfig {
	return MissionConfig{
		Name:    MissionOrbitInjection,
		Title:   "Injection",
		Variant: VariantApogee,
		Seed:    defaultSeed,
		Start: StartConfig{
			Anomaly:      180,
			Apogee:       400,
			BaseVelocity: 7.2,
			Fuel:         100,
			Alignment:    -15,
		},
		Orbit: OrbitConfig{
			BaseSpeed:          0.5,
			Kepler:             0.6,
			SizeRef:            5000,
			SizeOffset:         5000,
			Fluctuation:        1.5,
			FreezeUntilAligned: true,
		},
		Window: WindowConfig{HalfWidth: 15},
		Burn: BurnConfig{
			Model:         BurnContinuous,
			MetricRate:    80,
			FuelRate:      0.02,
			DeltaVRate:    0.001,
			OffWindowFuel: 0.1,
		},
		Stages: []StageConfig{
			{Label: "Transfer 1", Target: 16000, Tolerance: 2500},
			{Label: "Transfer 2", Target: 20000, Tolerance: 2000},
			{Label: "Final Injection", Target: 23500, Tolerance: 1000},
		},
		Alignment: AlignmentConfig{
			Tolerance:    5,
			Min:          -45,
			Max:          45,
			DriftMin:     8,
			DriftMax:     20,
			LockoutTicks: 60,
		},
	}
}

// DefaultOrbitRaising is the discrete multi-strength mission: burns of a
// chosen size at perigee climb a ladder of apogee targets under a hard ceiling.
func DefaultOrbitRaising() MissionConfig {
	return MissionConfig{
		Name:    MissionOrbitRaising,
		Title:   "Orbit Raising",
		Variant: VariantLadder,
		Seed:    defaultSeed,
		Start: StartConfig{
			Anomaly: 180,
			Apogee:  23500,
			Fuel:    100,
		},
		Orbit: OrbitConfig{
			BaseSpeed:     0.8,
			Kepler:        0.5,
			SizeRef:       40000,
			SizeOffset:    20000,
			MinSizeFactor: 0.4,
			BoostAbove:    90000,
			BoostFactor:   1.5,
			WarpSpeed:     25,
			WarpCapture:   15,
		},
		Window: WindowConfig{HalfWidth: 20},
		Burn: BurnConfig{
			Model:            BurnDiscrete,
			MistimedFraction: 0.5,
			DefaultOption:    "MEDIUM",
			Options: []BurnOptionConfig{
				{Key: "SMALL", Label: "Small Burn", Description: "Best Efficiency (30k km)", Gain: 30000, FuelCost: 10},
				{Key: "MEDIUM", Label: "Medium Burn", Description: "Balanced (70k km)", Gain: 70000, FuelCost: 25},
				{Key: "STRONG", Label: "Strong Burn", Description: "Inefficient (110k km)", Gain: 110000, FuelCost: 55},
			},
		},
		Stages: []StageConfig{
			{Label: "Burn 1", Target: 40000},
			{Label: "Burn 2", Target: 71600},
			{Label: "Burn 3", Target: 100000},
			{Label: "Burn 4", Target: 192000},
			{Label: "Final TMI Burn", Target: 282000},
		},
		Ceiling: 300000,
	}
}

// DefaultTransPlanetaryInjection is the escape burn: align the vector, then
// hold thrust near perigee until velocity lands inside the acceptance band.
func DefaultTransPlanetaryInjection() MissionConfig {
	return MissionConfig{
		Name:    MissionTransPlanetary,
		Title:   "Trans-Planetary Injection",
		Variant: VariantInjection,
		Seed:    defaultSeed,
		Start: StartConfig{
			Anomaly:  180,
			Velocity: 10.1,
			Fuel:     100,
		},
		Orbit: OrbitConfig{
			BaseSpeed: 0.3,
			Kepler:    0.8,
		},
		Window: WindowConfig{HalfWidth: 15},
		Burn: BurnConfig{
			Model:               BurnContinuous,
			MetricRate:          0.015,
			FuelRate:            0.4,
			DeltaVRate:          0.015,
			OffWindowFuel:       1,
			OffWindowEfficiency: 0.3,
		},
		Stages: []StageConfig{
			{Label: "Trans-Planetary Injection", Target: 11.2, Tolerance: 0.1},
		},
		Band: BandConfig{Min: 11.1, Max: 11.3},
		Alignment: AlignmentConfig{
			Rate: 0.5,
			Full: 100,
		},
	}
}

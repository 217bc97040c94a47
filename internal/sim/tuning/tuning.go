package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz       int     `yaml:"tick_rate_hz"`
	SlowTickInterval int     `yaml:"slow_tick_interval"`
	MinutesPerTick   int     `yaml:"minutes_per_tick"`
	StartingTreasury float64 `yaml:"starting_treasury"`

	Autosave  Autosave  `yaml:"autosave"`
	Roads     Roads     `yaml:"roads"`
	Spawner   Spawner   `yaml:"spawner"`
	Citizens  Citizens  `yaml:"citizens"`
	Traffic   Traffic   `yaml:"traffic"`
	Disasters Disasters `yaml:"disasters"`
	Energy    Energy    `yaml:"energy"`
}

type Autosave struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	Slots           int  `yaml:"slots"`
}

type Roads struct {
	SnapRadius float32 `yaml:"snap_radius"`
	BPRAlpha   float64 `yaml:"bpr_alpha"`
	BPRBeta    float64 `yaml:"bpr_beta"`
}

type Spawner struct {
	SpawnPerTick         int     `yaml:"spawn_per_tick"`
	ConstructionTicks    int     `yaml:"construction_ticks"`
	AbandonDemolishTicks int     `yaml:"abandon_demolish_ticks"`
	AffordableFraction   float32 `yaml:"affordable_fraction"`
}

type Citizens struct {
	SyncPathMaxDistance   int `yaml:"sync_path_max_distance"`
	PathsPerTick          int `yaml:"paths_per_tick"`
	JobSeekInterval       int `yaml:"job_seek_interval"`
	HomelessEmigrateTicks int `yaml:"homeless_emigrate_ticks"`
	ImmigrationWaveMax    int `yaml:"immigration_wave_max"`
}

type Traffic struct {
	FreightEquivFactor float32 `yaml:"freight_equiv_factor"`
	FreightEveryTicks  int     `yaml:"freight_every_ticks"`
	FreightDemandScale float32 `yaml:"freight_demand_scale"`
	DensityDecay       float32 `yaml:"density_decay"`
}

type Disasters struct {
	Enabled bool    `yaml:"enabled"`
	Chance  float64 `yaml:"chance"`
}

type Energy struct {
	DispatchInterval      int     `yaml:"dispatch_interval"`
	BatteryRoundTrip      float32 `yaml:"battery_round_trip"`
	ScarcityThreshold     float32 `yaml:"scarcity_threshold"`
	MaxScarcityMultiplier float32 `yaml:"max_scarcity_multiplier"`
}

// Defaults are the values used when no tuning file is supplied. A loaded file
// only overrides the keys it sets.
func Defaults() Tuning {
	return Tuning{
		TickRateHz:       10,
		SlowTickInterval: 100,
		MinutesPerTick:   1,
		StartingTreasury: 10000,
		Autosave: Autosave{
			Enabled:         true,
			IntervalMinutes: 5,
			Slots:           3,
		},
		Roads: Roads{
			SnapRadius: 24,
			BPRAlpha:   0.15,
			BPRBeta:    4,
		},
		Spawner: Spawner{
			SpawnPerTick:         4,
			ConstructionTicks:    60,
			AbandonDemolishTicks: 2000,
			AffordableFraction:   0,
		},
		Citizens: Citizens{
			SyncPathMaxDistance:   64,
			PathsPerTick:          64,
			JobSeekInterval:       50,
			HomelessEmigrateTicks: 1000,
			ImmigrationWaveMax:    20,
		},
		Traffic: Traffic{
			FreightEquivFactor: 2.5,
			FreightEveryTicks:  20,
			FreightDemandScale: 1,
			DensityDecay:       0.9,
		},
		Disasters: Disasters{
			Enabled: true,
			Chance:  0.0005,
		},
		Energy: Energy{
			DispatchInterval:      4,
			BatteryRoundTrip:      0.85,
			ScarcityThreshold:     0.1,
			MaxScarcityMultiplier: 3,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate rejects values that would stall or divide by zero in the scheduler.
func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.SlowTickInterval <= 0:
		return fmt.Errorf("slow_tick_interval must be > 0")
	case t.MinutesPerTick <= 0:
		return fmt.Errorf("minutes_per_tick must be > 0")
	case t.Autosave.IntervalMinutes < 1 || t.Autosave.IntervalMinutes > 30:
		return fmt.Errorf("autosave.interval_minutes must be within 1..30")
	case t.Autosave.Slots < 1:
		return fmt.Errorf("autosave.slots must be >= 1")
	case t.Energy.DispatchInterval <= 0:
		return fmt.Errorf("energy.dispatch_interval must be > 0")
	}
	return nil
}

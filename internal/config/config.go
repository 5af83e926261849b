package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rtsnav/navsim/internal/flowfield"
)

// EnvPath overrides the config path given on the command line.
const EnvPath = "NAVSIM_CONFIG"

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Navigation NavigationConfig `toml:"navigation"`
	Steering   SteeringConfig   `toml:"steering"`
	Spatial    SpatialConfig    `toml:"spatial"`
	Logging    LoggingConfig    `toml:"logging"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Data       DataConfig       `toml:"data"`
}

type SimulationConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
	CellSize float64       `toml:"cell_size"` // pixels per grid cell
	MaxTicks int           `toml:"max_ticks"` // 0 = run until interrupted
	MapID    int           `toml:"map_id"`
}

type NavigationConfig struct {
	SectorSize      int    `toml:"sector_size"`
	KeepLocalTarget int    `toml:"keep_local_target"`
	NoPathRelocate  int    `toml:"no_path_relocate"` // failures before the destination is moved
	NoPathCancel    int    `toml:"no_path_cancel"`   // failures before the order is dropped
	RelocateRadius  int    `toml:"relocate_radius"`
	RefreshInterval int    `toml:"refresh_interval"` // ticks between forced refreshes, 0 = only on cell change
	Neighborhood    string `toml:"neighborhood"`     // "octile" or "cardinal"
}

type SteeringConfig struct {
	MaxSpeed          float64 `toml:"max_speed"` // default pixels per tick for new agents
	AgentRadius       float64 `toml:"agent_radius"`
	SeparationRadius  float64 `toml:"separation_radius"`
	AvoidRadius       float64 `toml:"avoid_radius"`
	ArriveRadius      float64 `toml:"arrive_radius"`
	MinVelocity       float64 `toml:"min_velocity"`        // fraction of max speed below which velocity is zeroed
	IdleRatio         float64 `toml:"idle_ratio"`          // fraction of max speed under which the averaged speed reads as idle
	NeighborIdleSpeed float64 `toml:"neighbor_idle_speed"` // summed neighbour speed, pixels per tick
	AverageWindow     int     `toml:"average_window"`
	FlowWeight        float64 `toml:"flow_weight"`
	SeparationWeight  float64 `toml:"separation_weight"`
	AvoidWeight       float64 `toml:"avoid_weight"`
	EscapeWeight      float64 `toml:"escape_weight"`
}

type SpatialConfig struct {
	MinCellSize    float64 `toml:"min_cell_size"`
	NeighborRadius float64 `toml:"neighbor_radius"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
}

type DataConfig struct {
	MapList  string `toml:"map_list"`
	TileDir  string `toml:"tile_dir"`
	Scenario string `toml:"scenario"`
	Script   string `toml:"script"`
	Watch    bool   `toml:"watch"` // hot reload tile files into the static layer
}

func Load(path string) (*Config, error) {
	if env := os.Getenv(EnvPath); env != "" {
		path = env
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config { return defaults() }

func (c *Config) validate() error {
	if c.Simulation.CellSize <= 0 {
		return fmt.Errorf("simulation.cell_size must be positive, got %v", c.Simulation.CellSize)
	}
	if c.Navigation.SectorSize < 3 {
		return fmt.Errorf("navigation.sector_size must be at least 3, got %d", c.Navigation.SectorSize)
	}
	if _, ok := flowfield.ParseNeighborhood(c.Navigation.Neighborhood); !ok {
		return fmt.Errorf("navigation.neighborhood: unknown value %q", c.Navigation.Neighborhood)
	}
	if c.Navigation.NoPathCancel < c.Navigation.NoPathRelocate {
		return fmt.Errorf("navigation.no_path_cancel (%d) below no_path_relocate (%d)",
			c.Navigation.NoPathCancel, c.Navigation.NoPathRelocate)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate: 50 * time.Millisecond,
			CellSize: 32,
			MapID:    1,
		},
		Navigation: NavigationConfig{
			SectorSize:      12,
			KeepLocalTarget: 4,
			NoPathRelocate:  16,
			NoPathCancel:    64,
			RelocateRadius:  16,
			RefreshInterval: 8,
			Neighborhood:    "octile",
		},
		Steering: SteeringConfig{
			MaxSpeed:          4,
			AgentRadius:       12,
			SeparationRadius:  28,
			AvoidRadius:       24,
			ArriveRadius:      16,
			MinVelocity:       0.01,
			IdleRatio:         0.1,
			NeighborIdleSpeed: 0.1,
			AverageWindow:     16,
			FlowWeight:        1.5,
			SeparationWeight:  2.0,
			AvoidWeight:       1.0,
			EscapeWeight:      2.0,
		},
		Spatial: SpatialConfig{
			MinCellSize:    64,
			NeighborRadius: 32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "127.0.0.1:9108",
		},
		Data: DataConfig{
			MapList:  "data/yaml/map_list.yaml",
			TileDir:  "data/map",
			Scenario: "data/yaml/scenario.yaml",
			Script:   "scripts/scenario.lua",
			Watch:    false,
		},
	}
}

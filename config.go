package particlefx

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/gekko3d/particlefx/rt/core"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds the tunables of a particle World.
type Config struct {
	Budget     BudgetConfig     `yaml:"budget"`
	Simulation SimulationConfig `yaml:"simulation"`
	Batching   BatchingConfig   `yaml:"batching"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Assets     AssetsConfig     `yaml:"assets"`
}

type BudgetConfig struct {
	MaxParticles int  `yaml:"max_particles"`
	LiveCap      bool `yaml:"live_cap"` // re-read the cap provider every tick
}

type SimulationConfig struct {
	TickRate         int   `yaml:"tick_rate"`           // ticks per second
	MaxTicksPerFrame int   `yaml:"max_ticks_per_frame"` // backlog beyond this is dropped
	Seed             int64 `yaml:"seed"`
}

type BatchingConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

// NewLogger builds the root logger. Runtime packages log through named
// children of it, e.g. "[particles.manager]".
func (c LoggingConfig) NewLogger() core.Logger {
	return core.NewDefaultLogger(c.Prefix, c.Debug)
}

type TelemetryConfig struct {
	OutputDir   string `yaml:"output_dir"` // empty disables CSV output
	EveryNTicks int    `yaml:"every_n_ticks"`
}

type AssetsConfig struct {
	TextureDir     string `yaml:"texture_dir"`
	MaxTextureSize int    `yaml:"max_texture_size"` // 0 keeps source size
}

// DefaultConfig returns the embedded defaults.
func DefaultConfig() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the embedded defaults and overlays the file at path, if any.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MaxTickRate bounds simulation.tick_rate so the tick step stays well above
// the clock's nanosecond resolution.
const MaxTickRate = 1000

func (c *Config) Validate() error {
	if c.Budget.MaxParticles < 0 {
		return fmt.Errorf("config: budget.max_particles must not be negative")
	}
	if c.Simulation.TickRate <= 0 || c.Simulation.TickRate > MaxTickRate {
		return fmt.Errorf("config: simulation.tick_rate must be in 1..%d, got %d",
			MaxTickRate, c.Simulation.TickRate)
	}
	if c.Simulation.MaxTicksPerFrame <= 0 {
		return fmt.Errorf("config: simulation.max_ticks_per_frame must be positive")
	}
	if c.Telemetry.EveryNTicks <= 0 {
		return fmt.Errorf("config: telemetry.every_n_ticks must be positive")
	}
	if c.Assets.MaxTextureSize < 0 {
		return fmt.Errorf("config: assets.max_texture_size must not be negative")
	}
	return nil
}

// TickDuration is the fixed simulation step.
func (c *Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.Simulation.TickRate)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

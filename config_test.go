package particlefx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4000, cfg.Budget.MaxParticles)
	assert.False(t, cfg.Budget.LiveCap)
	assert.Equal(t, 30, cfg.Simulation.TickRate)
	assert.True(t, cfg.Batching.Enabled)
	assert.Equal(t, "particles", cfg.Logging.Prefix)
	assert.Equal(t, time.Second/30, cfg.TickDuration())
}

func TestLoad_OverlaysUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("budget:\n  max_particles: 250\nbatching:\n  enabled: false\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Budget.MaxParticles)
	assert.False(t, cfg.Batching.Enabled)
	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Simulation.TickRate)
	assert.Equal(t, 30, cfg.Telemetry.EveryNTicks)
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("simulation:\n  tick_rate: 0\n"), 0644))
	_, err := Load(bad)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_ValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"max tick rate", func(c *Config) { c.Simulation.TickRate = MaxTickRate }, true},
		{"tick rate too high", func(c *Config) { c.Simulation.TickRate = 5000 }, false},
		{"negative tick rate", func(c *Config) { c.Simulation.TickRate = -1 }, false},
		{"zero texture size", func(c *Config) { c.Assets.MaxTextureSize = 0 }, true},
		{"negative texture size", func(c *Config) { c.Assets.MaxTextureSize = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
				assert.Positive(t, cfg.TickDuration())
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	l := LoggingConfig{Prefix: "fx", Debug: true}.NewLogger()
	assert.True(t, l.DebugEnabled())
	dl, ok := l.(*core.DefaultLogger)
	require.True(t, ok)
	assert.Equal(t, "fx", dl.Prefix())
}

func TestConfig_WriteYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget.MaxParticles = 77
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

package particlefx

import (
	"errors"
	"fmt"
	"io"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/particle"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

const SaveVersion = 1

var ErrUnsupportedVersion = errors.New("particle: unsupported save version")

// SaveState is the persisted form of a World's systems.
type SaveState struct {
	Version int           `yaml:"version"`
	Tick    uint64        `yaml:"tick"`
	Systems []SavedSystem `yaml:"systems"`
}

// SavedSystem pairs a system snapshot with its template and emitter matrix.
// Drawable attachments are not persisted.
type SavedSystem struct {
	Template  string      `yaml:"template"`
	Transform [16]float32 `yaml:"transform,flow"`

	particle.Snapshot `yaml:",inline"`
}

// LoadReport summarizes a Load.
type LoadReport struct {
	Systems   int
	Particles int
	Dropped   int // saved particles the budget refused
}

// Snapshot captures live systems in draw order.
func (w *World) Snapshot() SaveState {
	state := SaveState{Version: SaveVersion, Tick: w.tick}
	for _, sys := range w.Manager.Systems() {
		if sys.State() == particle.Dead {
			continue
		}
		state.Systems = append(state.Systems, SavedSystem{
			Template:  sys.Template().Name,
			Transform: [16]float32(sys.WorldMatrix()),
			Snapshot:  sys.Snapshot(),
		})
	}
	return state
}

func (w *World) Save(out io.Writer) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(w.Snapshot()); err != nil {
		return fmt.Errorf("encoding particle state: %w", err)
	}
	return enc.Close()
}

// Load decodes a saved state and rebuilds its systems on top of the current
// ones. Saved particles are re-admitted through the normal budget in saved
// order, so a smaller cap drops the lowest priority ones first.
func (w *World) Load(in io.Reader) (LoadReport, error) {
	var state SaveState
	if err := yaml.NewDecoder(in).Decode(&state); err != nil {
		return LoadReport{}, fmt.Errorf("decoding particle state: %w", err)
	}
	return w.Restore(state)
}

// Restore rebuilds systems from state. Templates and system states are
// checked up front; nothing is left behind if any system fails.
func (w *World) Restore(state SaveState) (LoadReport, error) {
	var report LoadReport
	if state.Version != SaveVersion {
		return report, fmt.Errorf("%w: %d", ErrUnsupportedVersion, state.Version)
	}
	templates := make([]*core.Template, len(state.Systems))
	for i, saved := range state.Systems {
		t, err := w.templates.Get(saved.Template)
		if err != nil {
			return report, err
		}
		if _, err := particle.ParseState(saved.State); err != nil {
			return report, fmt.Errorf("system %d (%q): %w", i, saved.Template, err)
		}
		templates[i] = t
	}

	created := make([]*particle.System, 0, len(state.Systems))
	rollback := func() {
		for _, sys := range created {
			w.Manager.RemoveSystem(sys)
		}
	}
	for i, saved := range state.Systems {
		sys, err := w.Manager.CreateSystem(templates[i], core.FixedTransform(mgl32.Mat4(saved.Transform)))
		if err != nil {
			rollback()
			return LoadReport{}, err
		}
		created = append(created, sys)
		n, err := sys.Restore(saved.Snapshot)
		if err != nil {
			rollback()
			return LoadReport{}, fmt.Errorf("system %d (%q): %w", i, saved.Template, err)
		}
		report.Systems++
		report.Particles += n
		report.Dropped += len(saved.Particles) - n
	}
	w.tick = max(w.tick, state.Tick)
	w.log.Infof("restored %d systems, %d particles, %d dropped",
		report.Systems, report.Particles, report.Dropped)
	return report, nil
}

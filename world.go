package particlefx

import (
	"time"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/manager"
	"github.com/gekko3d/particlefx/rt/particle"
	"github.com/go-gl/mathgl/mgl32"
)

// WorldOptions wires a World to its scene. Config and Templates are
// required; everything else is optional.
type WorldOptions struct {
	Config    *Config
	Templates *TemplateLibrary
	Drawables core.DrawableHost
	Logger    core.Logger
	// CapProvider overrides budget.max_particles, e.g. from a quality setting.
	CapProvider func() int
	Telemetry   *Telemetry
}

// World is the scene-owned particle subsystem: the manager, the fixed-step
// clock and the render list the manager submits to.
type World struct {
	cfg       *Config
	log       core.Logger
	templates *TemplateLibrary
	telemetry *Telemetry

	Manager *manager.Manager
	Clock   *Clock
	Render  *RenderList

	tick       uint64
	lastRender RenderStats
}

func NewWorld(opts WorldOptions) *World {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	templates := opts.Templates
	if templates == nil {
		templates = NewTemplateLibrary()
	}
	log := opts.Logger
	if log == nil {
		log = cfg.Logging.NewLogger()
	}
	list := NewRenderList()
	w := &World{
		cfg:       cfg,
		log:       log,
		templates: templates,
		telemetry: opts.Telemetry,
		Clock:     NewClock(cfg.TickDuration(), cfg.Simulation.MaxTicksPerFrame),
		Render:    list,
	}
	w.Manager = manager.New(manager.Config{
		MaxParticles: cfg.Budget.MaxParticles,
		CapProvider:  opts.CapProvider,
		LiveCap:      cfg.Budget.LiveCap,
		Batching:     cfg.Batching.Enabled,
		Bucket:       list,
		Drawables:    opts.Drawables,
		Logger:       log,
		Seed:         cfg.Simulation.Seed,
	})
	return w
}

func (w *World) Templates() *TemplateLibrary { return w.templates }

// Spawn creates a system from a named template.
func (w *World) Spawn(name string, transform core.TransformSource) (*particle.System, error) {
	tmpl, err := w.templates.Get(name)
	if err != nil {
		return nil, err
	}
	return w.Manager.CreateSystem(tmpl, transform)
}

// SpawnAt creates a system at a fixed world position.
func (w *World) SpawnAt(name string, pos mgl32.Vec3) (*particle.System, error) {
	return w.Spawn(name, core.At(pos))
}

// Tick advances the simulation by one fixed step.
func (w *World) Tick() {
	w.Manager.Update(w.Clock.Step())
	w.tick++
	if err := w.telemetry.Observe(w.tick, w.Manager.Stats(), w.lastRender); err != nil {
		w.log.Warnf("%v", err)
	}
}

// Ticks is the number of simulation steps run so far.
func (w *World) Ticks() uint64 { return w.tick }

// SetViewProj enables frustum culling for subsequent renders.
func (w *World) SetViewProj(viewProj mgl32.Mat4) { w.Render.SetViewProj(viewProj) }

// Draw renders every bucket through ctx.
func (w *World) Draw(ctx core.RenderContext) (RenderStats, error) {
	st, err := w.Render.Render(ctx)
	w.lastRender = st
	return st, err
}

// Frame runs the ticks owed since the previous frame, then draws. Returns
// the number of ticks run.
func (w *World) Frame(now time.Time, ctx core.RenderContext) (int, error) {
	n := w.Clock.Advance(now)
	for i := 0; i < n; i++ {
		w.Tick()
	}
	if ctx == nil {
		return n, nil
	}
	_, err := w.Draw(ctx)
	return n, err
}

func (w *World) Summary() Summary { return w.telemetry.Summary() }

// Close disposes every system and closes telemetry output.
func (w *World) Close() error {
	w.Manager.Close()
	return w.telemetry.Close()
}

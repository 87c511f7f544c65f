package particle

import (
	"testing"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constRand float32

func (r constRand) Float32() float32 { return float32(r) }

type fakeAdmitter struct {
	deny    bool
	added   int
	removed int
	next    int32
}

func (f *fakeAdmitter) AddParticle(sys *System, slot int, priority core.Priority) (EntryHandle, bool) {
	if f.deny {
		return EntryHandle{}, false
	}
	f.added++
	f.next++
	return EntryHandle{Index: f.next}, true
}

func (f *fakeAdmitter) RemoveParticle(priority core.Priority, h EntryHandle) {
	f.removed++
}

type recordingContext struct {
	cam      core.Camera
	binds    []core.MaterialKey
	draws    int
	vertices int
	indices  int
}

func newRecordingContext() *recordingContext {
	return &recordingContext{cam: core.Camera{
		Position: mgl32.Vec3{0, 0, 10},
		Right:    mgl32.Vec3{1, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
	}}
}

func (r *recordingContext) Camera() core.Camera { return r.cam }

func (r *recordingContext) BindMaterial(key core.MaterialKey) error {
	r.binds = append(r.binds, key)
	return nil
}

func (r *recordingContext) DrawIndexed(vertices []core.ParticleVertex, indices []uint32) error {
	r.draws++
	r.vertices += len(vertices)
	r.indices += len(indices)
	return nil
}

func testTemplate() *core.Template {
	return &core.Template{
		Name:       "smoke",
		Priority:   core.PriorityConstant,
		Kind:       core.KindBillboard,
		Capacity:   4,
		Lifetime:   core.IntRange{Min: 3, Max: 3},
		BurstCount: core.IntRange{Min: 2, Max: 2},
		Size:       core.Fixed(1),
	}
}

func newTestSystem(t *testing.T, tmpl *core.Template, opts Options) *System {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = constRand(0.5)
	}
	sys, err := NewSystem(1, tmpl, core.FixedTransform(mgl32.Ident4()), opts)
	require.NoError(t, err)
	return sys
}

func TestNewSystem_RejectsNilArguments(t *testing.T) {
	_, err := NewSystem(1, nil, core.FixedTransform(mgl32.Ident4()), Options{})
	assert.ErrorIs(t, err, core.ErrNilTemplate)

	_, err = NewSystem(1, testTemplate(), nil, Options{})
	assert.ErrorIs(t, err, core.ErrNilTransform)
}

func TestNewSystem_StartsActiveAndEmpty(t *testing.T) {
	sys := newTestSystem(t, testTemplate(), Options{})
	assert.Equal(t, Active, sys.State())
	assert.Equal(t, 0, sys.LiveCount())
	assert.Equal(t, 4, sys.Capacity())
	assert.Equal(t, core.AABB{}, sys.Bounds())
}

func TestSystem_EmitsUntilCapacityThenRecyclesSlots(t *testing.T) {
	sys := newTestSystem(t, testTemplate(), Options{})

	sys.Update(1.0 / 30)
	assert.Equal(t, 2, sys.LiveCount())
	sys.Update(1.0 / 30)
	assert.Equal(t, 4, sys.LiveCount())

	// Pool is full: emission is skipped, not denied.
	sys.Update(1.0 / 30)
	assert.Equal(t, 4, sys.LiveCount())
	assert.Equal(t, 0, sys.Denied())

	// The first pair expires and their slots are reused in the same tick.
	sys.Update(1.0 / 30)
	assert.Equal(t, 4, sys.LiveCount())
	assert.Equal(t, 6, sys.Emitted())
}

func TestSystem_DeniedEmissionIsSkipped(t *testing.T) {
	adm := &fakeAdmitter{deny: true}
	sys := newTestSystem(t, testTemplate(), Options{Admitter: adm})

	sys.Update(0.1)
	assert.Equal(t, 0, sys.LiveCount())
	assert.Equal(t, 2, sys.Denied())

	// Denied slots go back to the free list.
	adm.deny = false
	sys.Update(0.1)
	assert.Equal(t, 2, sys.LiveCount())
	sys.Update(0.1)
	assert.Equal(t, 4, sys.LiveCount())
}

func TestSystem_NaturalDeathReleasesBudgetEntry(t *testing.T) {
	adm := &fakeAdmitter{}
	tmpl := testTemplate()
	tmpl.OneShot = true
	sys := newTestSystem(t, tmpl, Options{Admitter: adm})

	sys.Update(0.1)
	require.Equal(t, 2, adm.added)
	sys.Update(0.1)
	sys.Update(0.1)
	sys.Update(0.1)
	assert.Equal(t, 2, adm.removed)
	assert.Equal(t, 0, sys.LiveCount())
}

func TestSystem_MarkParticleDeadSkipsAdmitter(t *testing.T) {
	adm := &fakeAdmitter{}
	sys := newTestSystem(t, testTemplate(), Options{Admitter: adm})
	sys.Update(0.1)

	sys.MarkParticleDead(0)
	assert.True(t, sys.Particle(0).Dead)
	assert.Equal(t, 1, sys.LiveCount())
	assert.Equal(t, 0, adm.removed)

	// Already dead and out of range slots are ignored.
	sys.MarkParticleDead(0)
	sys.MarkParticleDead(99)
	assert.Equal(t, 1, sys.LiveCount())
}

func TestSystem_OneShotLifecycle(t *testing.T) {
	tmpl := testTemplate()
	tmpl.OneShot = true
	tmpl.Lifetime = core.IntRange{Min: 2, Max: 2}
	sys := newTestSystem(t, tmpl, Options{})

	sys.Update(0.1)
	assert.Equal(t, Inactive, sys.State())
	assert.Equal(t, 2, sys.LiveCount())

	sys.Update(0.1)
	assert.Equal(t, Inactive, sys.State())

	sys.Update(0.1)
	assert.Equal(t, Dead, sys.State())
	assert.Equal(t, 0, sys.LiveCount())
}

func TestSystem_SystemLifetimeEndsEmission(t *testing.T) {
	tmpl := testTemplate()
	tmpl.Capacity = 100
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.SystemLifetime = 3
	sys := newTestSystem(t, tmpl, Options{})

	for i := 0; i < 3; i++ {
		sys.Update(0.1)
	}
	assert.Equal(t, Inactive, sys.State())
	emitted := sys.Emitted()

	sys.Update(0.1)
	assert.Equal(t, emitted, sys.Emitted())
}

func TestSystem_InitialDelayAndBurstDelay(t *testing.T) {
	tmpl := testTemplate()
	tmpl.Capacity = 100
	tmpl.Lifetime = core.IntRange{Min: 100, Max: 100}
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.InitialDelay = core.IntRange{Min: 2, Max: 2}
	tmpl.BurstDelay = core.IntRange{Min: 1, Max: 1}
	sys := newTestSystem(t, tmpl, Options{})

	var counts []int
	for i := 0; i < 6; i++ {
		sys.Update(0.1)
		counts = append(counts, sys.LiveCount())
	}
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, counts)
}

func TestSystem_StopThenDrainToDead(t *testing.T) {
	sys := newTestSystem(t, testTemplate(), Options{})
	sys.Update(0.1)
	sys.Stop()
	assert.Equal(t, Inactive, sys.State())
	for i := 0; i < 3; i++ {
		sys.Update(0.1)
	}
	assert.Equal(t, Dead, sys.State())

	// Dead is terminal.
	sys.Update(0.1)
	assert.Equal(t, Dead, sys.State())
	assert.Equal(t, 0, sys.LiveCount())
}

func TestSystem_IntegratesWithDamping(t *testing.T) {
	tmpl := testTemplate()
	tmpl.OneShot = true
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.Lifetime = core.IntRange{Min: 10, Max: 10}
	tmpl.Velocity = core.EmissionVelocity{Type: core.VelocityOrtho, X: core.Fixed(2)}
	tmpl.VelocityDamping = core.Fixed(0.5)
	tmpl.SizeRate = core.Fixed(1)
	tmpl.AngularRateZ = core.Fixed(0.25)
	sys := newTestSystem(t, tmpl, Options{})

	sys.Update(1)
	p := sys.Particle(0)
	require.False(t, p.Dead)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, p.Position)

	sys.Update(1)
	assert.InDelta(t, 1.0, p.Position.X(), 1e-6)
	assert.InDelta(t, 1.0, p.Velocity.X(), 1e-6)
	assert.InDelta(t, 2.0, p.Size, 1e-6)
	assert.InDelta(t, 0.25, p.AngleZ, 1e-6)

	sys.Update(1)
	assert.InDelta(t, 1.5, p.Position.X(), 1e-6)
}

func TestSystem_EmitsInWorldSpace(t *testing.T) {
	tmpl := testTemplate()
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	sys, err := NewSystem(1, tmpl, core.At(mgl32.Vec3{5, 0, -3}), Options{Rand: constRand(0.5)})
	require.NoError(t, err)

	sys.Update(0.1)
	p := sys.Particle(0)
	assert.Equal(t, mgl32.Vec3{5, 0, -3}, p.Position)
	assert.Equal(t, mgl32.Vec3{5, 0, -3}, p.EmitterPosition)
	assert.InDelta(t, 5.0, sys.Bounds().Center().X(), 1e-6)
}

func TestSystem_TransformFuncResolvedEachTick(t *testing.T) {
	tmpl := testTemplate()
	tmpl.Capacity = 10
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.Lifetime = core.IntRange{Min: 10, Max: 10}
	x := float32(0)
	src := core.TransformFunc(func() mgl32.Mat4 { return mgl32.Translate3D(x, 0, 0) })
	sys, err := NewSystem(1, tmpl, src, Options{Rand: constRand(0.5)})
	require.NoError(t, err)

	sys.Update(0.1)
	x = 7
	sys.Update(0.1)
	assert.Equal(t, float32(0), sys.Particle(0).Position.X())
	assert.Equal(t, float32(7), sys.Particle(1).Position.X())
}

func TestSystem_AlphaCurveSampledByLifetime(t *testing.T) {
	tmpl := testTemplate()
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.OneShot = true
	tmpl.Lifetime = core.IntRange{Min: 4, Max: 4}
	tmpl.AlphaKeys = []core.AlphaKey{
		{Time: 0, Value: core.Fixed(1)},
		{Time: 1, Value: core.Fixed(0)},
	}
	sys := newTestSystem(t, tmpl, Options{})

	sys.Update(0.1)
	p := sys.Particle(0)
	assert.InDelta(t, 1.0, p.Alpha, 1e-6)
	sys.Update(0.1)
	assert.InDelta(t, 0.75, p.Alpha, 1e-6)
	sys.Update(0.1)
	assert.InDelta(t, 0.5, p.Alpha, 1e-6)
}

func TestSystem_ColorCurveAndScale(t *testing.T) {
	tmpl := testTemplate()
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.OneShot = true
	tmpl.Lifetime = core.IntRange{Min: 2, Max: 2}
	tmpl.ColorKeys = []core.ColorKey{
		{Time: 0, Color: mgl32.Vec3{0, 0, 0}},
		{Time: 1, Color: mgl32.Vec3{1, 0.5, 0}},
	}
	tmpl.ColorScale = core.Fixed(0.1)
	sys := newTestSystem(t, tmpl, Options{})

	sys.Update(0.1)
	sys.Update(0.1)
	p := sys.Particle(0)
	assert.InDelta(t, 0.6, p.Color.X(), 1e-6)
	assert.InDelta(t, 0.35, p.Color.Y(), 1e-6)
	assert.InDelta(t, 0.1, p.Color.Z(), 1e-6)
}

func TestSystem_StreakTrailResetOnReuse(t *testing.T) {
	tmpl := testTemplate()
	tmpl.Kind = core.KindStreak
	tmpl.TrailLength = 4
	tmpl.Capacity = 1
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.Lifetime = core.IntRange{Min: 3, Max: 3}
	tmpl.Velocity = core.EmissionVelocity{Type: core.VelocityOrtho, Y: core.Fixed(1)}
	sys := newTestSystem(t, tmpl, Options{})

	sys.Update(1)
	sys.Update(1)
	sys.Update(1)
	p := sys.Particle(0)
	assert.Equal(t, 3, p.Trail.Len())
	assert.Equal(t, float32(2), p.Trail.At(0).Y())

	// Slot expires and is immediately re-emitted with a fresh trail.
	sys.Update(1)
	assert.False(t, p.Dead)
	assert.Equal(t, 1, p.Trail.Len())
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, p.Trail.At(0))
}

func TestTrail_MostRecentFirstRing(t *testing.T) {
	tr := NewTrail(3)
	for i := 1; i <= 5; i++ {
		tr.Push(mgl32.Vec3{float32(i), 0, 0})
	}
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, float32(5), tr.At(0).X())
	assert.Equal(t, float32(4), tr.At(1).X())
	assert.Equal(t, float32(3), tr.At(2).X())

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}

type fakeDrawable struct {
	id    uuid.UUID
	sets  int
	world mgl32.Mat4
}

func (d *fakeDrawable) ID() uuid.UUID               { return d.id }
func (d *fakeDrawable) SetWorldMatrix(m mgl32.Mat4) { d.sets++; d.world = m }

type fakeHost struct {
	items    map[core.DrawableHandle]*fakeDrawable
	next     core.DrawableHandle
	released []core.DrawableHandle
}

func newFakeHost() *fakeHost {
	return &fakeHost{items: make(map[core.DrawableHandle]*fakeDrawable)}
}

func (h *fakeHost) Spawn(name string) (core.DrawableHandle, uuid.UUID, bool) {
	h.next++
	d := &fakeDrawable{id: uuid.New()}
	h.items[h.next] = d
	return h.next, d.id, true
}

func (h *fakeHost) Lookup(handle core.DrawableHandle) (core.Drawable, bool) {
	d, ok := h.items[handle]
	if !ok {
		return nil, false
	}
	return d, true
}

func (h *fakeHost) Release(handle core.DrawableHandle) {
	h.released = append(h.released, handle)
	delete(h.items, handle)
}

func drawableTemplate() *core.Template {
	tmpl := testTemplate()
	tmpl.Kind = core.KindDrawable
	tmpl.DrawableName = "debris"
	tmpl.Capacity = 1
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.OneShot = true
	return tmpl
}

func TestSystem_DrawableAttachmentFollowsParticle(t *testing.T) {
	host := newFakeHost()
	sys := newTestSystem(t, drawableTemplate(), Options{Drawables: host})

	sys.Update(0.1)
	p := sys.Particle(0)
	require.True(t, p.Attach.Valid())
	d := host.items[p.Attach.Handle]
	assert.Equal(t, 1, d.sets)

	sys.Update(0.1)
	assert.Equal(t, 2, d.sets)

	sys.Update(0.1)
	sys.Update(0.1)
	assert.True(t, p.Dead)
	assert.False(t, p.Attach.Valid())
	assert.Equal(t, []core.DrawableHandle{1}, host.released)
}

func TestSystem_StaleAttachmentIsIgnored(t *testing.T) {
	host := newFakeHost()
	sys := newTestSystem(t, drawableTemplate(), Options{Drawables: host})
	sys.Update(0.1)
	p := sys.Particle(0)

	// The host recycled the handle for an unrelated drawable.
	other := &fakeDrawable{id: uuid.New()}
	host.items[p.Attach.Handle] = other

	sys.Update(0.1)
	assert.Equal(t, 0, other.sets)

	sys.Update(0.1)
	sys.Update(0.1)
	assert.True(t, p.Dead)
	assert.Empty(t, host.released)
}

func TestSystem_RenderSubmitsOneDraw(t *testing.T) {
	sys := newTestSystem(t, testTemplate(), Options{})
	ctx := newRecordingContext()

	require.NoError(t, sys.Render(ctx))
	assert.Equal(t, 0, ctx.draws)
	assert.Empty(t, ctx.binds)

	sys.Update(0.1)
	sys.Update(0.1)
	require.NoError(t, sys.Render(ctx))
	assert.Equal(t, 1, ctx.draws)
	assert.Equal(t, []core.MaterialKey{sys.Material()}, ctx.binds)
	assert.Equal(t, 16, ctx.vertices)
	assert.Equal(t, 24, ctx.indices)
}

func TestSystem_DrawStreakRibbon(t *testing.T) {
	tmpl := testTemplate()
	tmpl.Kind = core.KindStreak
	tmpl.TrailLength = 3
	tmpl.Capacity = 1
	tmpl.BurstCount = core.IntRange{Min: 1, Max: 1}
	tmpl.Lifetime = core.IntRange{Min: 10, Max: 10}
	tmpl.Velocity = core.EmissionVelocity{Type: core.VelocityOrtho, Y: core.Fixed(1)}
	sys := newTestSystem(t, tmpl, Options{})
	ctx := newRecordingContext()

	// A single trail point has no segment to draw.
	sys.Update(1)
	require.NoError(t, sys.Draw(ctx))
	assert.Equal(t, 0, ctx.draws)

	sys.Update(1)
	sys.Update(1)
	require.NoError(t, sys.Draw(ctx))
	assert.Equal(t, 1, ctx.draws)
	assert.Equal(t, 6, ctx.vertices)
	assert.Equal(t, 12, ctx.indices)
}

func TestSystem_DrawableKindProducesNoGeometry(t *testing.T) {
	sys := newTestSystem(t, drawableTemplate(), Options{Drawables: newFakeHost()})
	sys.Update(0.1)
	ctx := newRecordingContext()
	require.NoError(t, sys.Render(ctx))
	assert.Equal(t, 0, ctx.draws)
}

func TestSystem_DisposeReleasesEverything(t *testing.T) {
	adm := &fakeAdmitter{}
	sys := newTestSystem(t, testTemplate(), Options{Admitter: adm})
	sys.Update(0.1)
	sys.Update(0.1)
	require.Equal(t, 4, sys.LiveCount())

	sys.Dispose()
	assert.Equal(t, Dead, sys.State())
	assert.Equal(t, 0, sys.LiveCount())
	assert.Equal(t, 4, adm.removed)
}

func TestSystem_SnapshotRestore(t *testing.T) {
	tmpl := testTemplate()
	tmpl.AlphaKeys = []core.AlphaKey{{Time: 0, Value: core.Fixed(1)}, {Time: 1, Value: core.Fixed(0.2)}}
	src := newTestSystem(t, tmpl, Options{})
	src.Update(0.5)
	src.Update(0.5)
	src.MarkParticleDead(1)
	snap := src.Snapshot()
	require.Len(t, snap.Particles, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{snap.Particles[0].Slot, snap.Particles[1].Slot, snap.Particles[2].Slot})

	adm := &fakeAdmitter{}
	dst := newTestSystem(t, tmpl, Options{Admitter: adm})
	n, err := dst.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, adm.added)
	assert.Equal(t, src.Particle(2).Position, dst.Particle(2).Position)
	assert.Equal(t, src.Particle(2).Remaining, dst.Particle(2).Remaining)
	assert.InDelta(t, src.Particle(0).Alpha, dst.Particle(0).Alpha, 1e-6)
	assert.True(t, dst.Particle(1).Dead)
	assert.Equal(t, snap, dst.Snapshot())
}

func TestSystem_RestoreDropsDeniedParticles(t *testing.T) {
	src := newTestSystem(t, testTemplate(), Options{})
	src.Update(0.1)
	snap := src.Snapshot()
	snap.State = "inactive"

	dst := newTestSystem(t, testTemplate(), Options{Admitter: &fakeAdmitter{deny: true}})
	n, err := dst.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, Dead, dst.State())

	_, err = dst.Restore(Snapshot{State: "bogus"})
	assert.Error(t, err)
}

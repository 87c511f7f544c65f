package particlefx

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

var ErrUnknownTemplate = errors.New("particle: unknown template")

// TextureResolver maps a template texture name to its TextureID.
type TextureResolver interface {
	TextureID(name string) (core.TextureID, error)
}

// floatRange accepts either a scalar or a [min, max] pair.
type floatRange struct {
	core.Range
	set bool
}

func (r *floatRange) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v float32
		if err := n.Decode(&v); err != nil {
			return err
		}
		r.Range = core.Fixed(v)
	case yaml.SequenceNode:
		var v []float32
		if err := n.Decode(&v); err != nil {
			return err
		}
		if len(v) != 2 {
			return fmt.Errorf("line %d: range needs [min, max]", n.Line)
		}
		r.Range = core.Range{Min: v[0], Max: v[1]}
	default:
		return fmt.Errorf("line %d: range must be a number or [min, max]", n.Line)
	}
	r.set = true
	return nil
}

func (r floatRange) or(def float32) core.Range {
	if !r.set {
		return core.Fixed(def)
	}
	return r.Range
}

type intRange struct {
	core.IntRange
}

func (r *intRange) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v int
		if err := n.Decode(&v); err != nil {
			return err
		}
		r.IntRange = core.IntRange{Min: v, Max: v}
	case yaml.SequenceNode:
		var v []int
		if err := n.Decode(&v); err != nil {
			return err
		}
		if len(v) != 2 {
			return fmt.Errorf("line %d: range needs [min, max]", n.Line)
		}
		r.IntRange = core.IntRange{Min: v[0], Max: v[1]}
	default:
		return fmt.Errorf("line %d: range must be an integer or [min, max]", n.Line)
	}
	return nil
}

type alphaKeyDef struct {
	Time  float32    `yaml:"time"`
	Value floatRange `yaml:"value"`
}

type colorKeyDef struct {
	Time  float32    `yaml:"time"`
	Color [3]float32 `yaml:"color,flow"`
}

type volumeDef struct {
	Type        string     `yaml:"type"`
	Radius      float32    `yaml:"radius"`
	Length      float32    `yaml:"length"`
	HalfExtents [3]float32 `yaml:"half_extents,flow"`
	Start       [3]float32 `yaml:"start,flow"`
	End         [3]float32 `yaml:"end,flow"`
	Hollow      bool       `yaml:"hollow"`
}

type velocityDef struct {
	Type       string     `yaml:"type"`
	X          floatRange `yaml:"x"`
	Y          floatRange `yaml:"y"`
	Z          floatRange `yaml:"z"`
	Speed      floatRange `yaml:"speed"`
	OtherSpeed floatRange `yaml:"other_speed"`
}

// templateDef is the on-disk form of a template. Tick counts are integers;
// rates are per second.
type templateDef struct {
	Name          string `yaml:"name"`
	Priority      string `yaml:"priority"`
	Kind          string `yaml:"kind"`
	Shader        string `yaml:"shader"`
	GroundAligned bool   `yaml:"ground_aligned"`
	Texture       string `yaml:"texture"`
	Capacity      int    `yaml:"capacity"`

	Lifetime       intRange `yaml:"lifetime"`
	SystemLifetime int      `yaml:"system_lifetime"`
	InitialDelay   intRange `yaml:"initial_delay"`
	BurstDelay     intRange `yaml:"burst_delay"`
	BurstCount     intRange `yaml:"burst_count"`
	OneShot        bool     `yaml:"one_shot"`

	Size            floatRange `yaml:"size"`
	StartSizeRate   floatRange `yaml:"start_size_rate"`
	SizeRate        floatRange `yaml:"size_rate"`
	SizeRateDamping floatRange `yaml:"size_rate_damping"`
	AngleZ          floatRange `yaml:"angle_z"`
	AngularRateZ    floatRange `yaml:"angular_rate_z"`
	AngularDamping  floatRange `yaml:"angular_damping"`
	VelocityDamping floatRange `yaml:"velocity_damping"`
	Gravity         float32    `yaml:"gravity"`
	ColorScale      floatRange `yaml:"color_scale"`

	AlphaKeys []alphaKeyDef `yaml:"alpha_keys"`
	ColorKeys []colorKeyDef `yaml:"color_keys"`

	Volume   volumeDef   `yaml:"volume"`
	Velocity velocityDef `yaml:"velocity"`

	TrailLength int    `yaml:"trail_length"`
	Drawable    string `yaml:"drawable"`
}

type templateFile struct {
	Templates []templateDef `yaml:"templates"`
}

var volumeTypes = map[string]core.VolumeType{
	"":         core.VolumePoint,
	"point":    core.VolumePoint,
	"sphere":   core.VolumeSphere,
	"box":      core.VolumeBox,
	"cylinder": core.VolumeCylinder,
	"line":     core.VolumeLine,
}

var velocityTypes = map[string]core.VelocityType{
	"":              core.VelocityOrtho,
	"ortho":         core.VelocityOrtho,
	"spherical":     core.VelocitySpherical,
	"hemispherical": core.VelocityHemispherical,
	"outward":       core.VelocityOutward,
}

func (d *templateDef) build(textures TextureResolver) (*core.Template, error) {
	priority, err := core.ParsePriority(d.Priority)
	if err != nil {
		return nil, err
	}
	kind, err := core.ParseParticleKind(d.Kind)
	if err != nil {
		return nil, err
	}
	shader, err := core.ParseShaderType(d.Shader)
	if err != nil {
		return nil, err
	}
	vol, ok := volumeTypes[d.Volume.Type]
	if !ok {
		return nil, fmt.Errorf("unknown emission volume %q", d.Volume.Type)
	}
	vel, ok := velocityTypes[d.Velocity.Type]
	if !ok {
		return nil, fmt.Errorf("unknown emission velocity %q", d.Velocity.Type)
	}

	t := &core.Template{
		Name:          d.Name,
		Priority:      priority,
		Kind:          kind,
		Shader:        shader,
		GroundAligned: d.GroundAligned,
		TextureName:   d.Texture,
		Capacity:      d.Capacity,

		Lifetime:       d.Lifetime.IntRange,
		SystemLifetime: d.SystemLifetime,
		InitialDelay:   d.InitialDelay.IntRange,
		BurstDelay:     d.BurstDelay.IntRange,
		BurstCount:     d.BurstCount.IntRange,
		OneShot:        d.OneShot,

		Size:            d.Size.or(1),
		StartSizeRate:   d.StartSizeRate.Range,
		SizeRate:        d.SizeRate.Range,
		SizeRateDamping: d.SizeRateDamping.or(1),
		AngleZ:          d.AngleZ.Range,
		AngularRateZ:    d.AngularRateZ.Range,
		AngularDamping:  d.AngularDamping.or(1),
		VelocityDamping: d.VelocityDamping.or(1),
		Gravity:         d.Gravity,
		ColorScale:      d.ColorScale.Range,

		Volume: core.EmissionVolume{
			Type:        vol,
			Radius:      d.Volume.Radius,
			Length:      d.Volume.Length,
			HalfExtents: mgl32.Vec3(d.Volume.HalfExtents),
			Start:       mgl32.Vec3(d.Volume.Start),
			End:         mgl32.Vec3(d.Volume.End),
			Hollow:      d.Volume.Hollow,
		},
		Velocity: core.EmissionVelocity{
			Type:       vel,
			X:          d.Velocity.X.Range,
			Y:          d.Velocity.Y.Range,
			Z:          d.Velocity.Z.Range,
			Speed:      d.Velocity.Speed.Range,
			OtherSpeed: d.Velocity.OtherSpeed.Range,
		},
		TrailLength:  d.TrailLength,
		DrawableName: d.Drawable,
	}
	if t.BurstCount == (core.IntRange{}) {
		t.BurstCount = core.IntRange{Min: 1, Max: 1}
	}
	for _, k := range d.AlphaKeys {
		t.AlphaKeys = append(t.AlphaKeys, core.AlphaKey{Time: k.Time, Value: k.Value.or(1)})
	}
	for _, k := range d.ColorKeys {
		t.ColorKeys = append(t.ColorKeys, core.ColorKey{Time: k.Time, Color: mgl32.Vec3(k.Color)})
	}
	if textures != nil && d.Texture != "" {
		t.Texture, err = textures.TextureID(d.Texture)
		if err != nil {
			return nil, err
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// TemplateLibrary holds validated templates by name. Templates handed out
// are shared by every system created from them and must not be mutated.
type TemplateLibrary struct {
	templates map[string]*core.Template
}

func NewTemplateLibrary() *TemplateLibrary {
	return &TemplateLibrary{templates: make(map[string]*core.Template)}
}

func (l *TemplateLibrary) LoadFile(path string, textures TextureResolver) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading templates: %w", err)
	}
	if err := l.LoadYAML(data, textures); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadYAML adds every template of a `templates:` document. Nothing is added
// if any definition is invalid.
func (l *TemplateLibrary) LoadYAML(data []byte, textures TextureResolver) error {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}
	built := make([]*core.Template, 0, len(file.Templates))
	seen := make(map[string]bool)
	for i := range file.Templates {
		d := &file.Templates[i]
		t, err := d.build(textures)
		if err != nil {
			return fmt.Errorf("template %d (%q): %w", i, d.Name, err)
		}
		if seen[t.Name] || l.templates[t.Name] != nil {
			return fmt.Errorf("%w: duplicate template %q", core.ErrInvalidTemplate, t.Name)
		}
		seen[t.Name] = true
		built = append(built, t)
	}
	for _, t := range built {
		l.templates[t.Name] = t
	}
	return nil
}

// Add registers a template built in code.
func (l *TemplateLibrary) Add(t *core.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if l.templates[t.Name] != nil {
		return fmt.Errorf("%w: duplicate template %q", core.ErrInvalidTemplate, t.Name)
	}
	l.templates[t.Name] = t
	return nil
}

func (l *TemplateLibrary) Get(name string) (*core.Template, error) {
	t, ok := l.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t, nil
}

func (l *TemplateLibrary) Len() int { return len(l.templates) }

// Names returns template names sorted.
func (l *TemplateLibrary) Names() []string {
	names := make([]string, 0, len(l.templates))
	for n := range l.templates {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

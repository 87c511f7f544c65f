package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particlefx"
	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	templatesPath := flag.String("templates", "", "Path to a templates file")
	loadPath := flag.String("load", "", "Restore a saved particle state before starting")
	width := flag.Int("width", 1280, "Window width")
	height := flag.Int("height", 720, "Window height")
	spawnEvery := flag.Duration("spawn-every", 250*time.Millisecond, "Spawn a random system this often (0 = off)")

	flag.Parse()

	if *templatesPath == "" {
		fmt.Fprintln(os.Stderr, "fxview: -templates is required")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(*configPath, *templatesPath, *loadPath, *width, *height, *spawnEvery); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, templatesPath, loadPath string, width, height int, spawnEvery time.Duration) error {
	cfg, err := particlefx.Load(configPath)
	if err != nil {
		return err
	}
	log := cfg.Logging.NewLogger()

	assets := particlefx.NewAssetServer(cfg.Assets, log)
	lib := particlefx.NewTemplateLibrary()
	if err := lib.LoadFile(templatesPath, assets); err != nil {
		return err
	}

	v, err := openViewer(width, height, "particlefx")
	if err != nil {
		return err
	}
	defer v.close()

	pass, err := gpu.NewParticlePass(v.device, v.config.Format, log)
	if err != nil {
		return err
	}
	defer pass.Release()
	for _, tex := range assets.Textures() {
		if err := pass.RegisterTexture(tex.Texture, tex.Image); err != nil {
			return err
		}
	}

	world := particlefx.NewWorld(particlefx.WorldOptions{Config: cfg, Templates: lib, Logger: log})
	defer world.Close()
	if loadPath != "" {
		f, err := os.Open(loadPath)
		if err != nil {
			return fmt.Errorf("opening save: %w", err)
		}
		_, err = world.Load(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))
	names := lib.Names()
	var lastSpawn time.Time
	var ctx core.RenderContext = pass

	for !v.window.ShouldClose() {
		glfw.PollEvents()
		now := time.Now()
		if spawnEvery > 0 && now.Sub(lastSpawn) >= spawnEvery && len(names) > 0 {
			lastSpawn = now
			pos := mgl32.Vec3{rng.Float32()*60 - 30, 0, rng.Float32()*60 - 30}
			if _, err := world.SpawnAt(names[rng.Intn(len(names))], pos); err != nil {
				return err
			}
		}
		if !v.resize() {
			world.Frame(now, nil)
			continue
		}

		angle := float32(math.Mod(glfw.GetTime()*0.2, 2*math.Pi))
		eye := mgl32.Vec3{60 * float32(math.Cos(float64(angle))), 30, 60 * float32(math.Sin(float64(angle)))}
		view := mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
		viewProj := mgl32.Perspective(mgl32.DegToRad(60), v.aspect(), 0.1, 500).Mul4(view)
		world.SetViewProj(viewProj)
		pass.Begin(viewProj, core.CameraFromView(view, eye))

		if _, err := world.Frame(now, ctx); err != nil {
			return err
		}
		if err := v.present(func(rp *wgpu.RenderPassEncoder) error { return pass.Encode(rp) }); err != nil {
			log.Warnf("fxview: %v", err)
		}
	}
	return nil
}

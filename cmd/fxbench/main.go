package main

import (
	_ "embed"
	"flag"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gekko3d/particlefx"
	"github.com/gekko3d/particlefx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/profile"
)

//go:embed bench.yaml
var benchTemplates []byte

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	templatesPath := flag.String("templates", "", "Path to a templates file (empty = built-in workload)")
	ticks := flag.Int("ticks", 3000, "Simulation ticks to run")
	spawnEvery := flag.Int("spawn-every", 3, "Spawn one random system every N ticks")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV telemetry and config snapshot")
	prof := flag.String("profile", "", "Profile mode: cpu|mem (empty = off)")
	savePath := flag.String("save", "", "Write the final particle state to this file")

	flag.Parse()

	switch *prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		fmt.Fprintf(os.Stderr, "unknown profile mode %q\n", *prof)
		os.Exit(2)
	}

	if err := run(*configPath, *templatesPath, *ticks, *spawnEvery, *seed, *outputDir, *savePath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, templatesPath string, ticks, spawnEvery int, seed int64, outputDir, savePath string) error {
	cfg, err := particlefx.Load(configPath)
	if err != nil {
		return err
	}
	if seed != 0 {
		cfg.Simulation.Seed = seed
	}
	if outputDir != "" {
		cfg.Telemetry.OutputDir = outputDir
	}
	log := cfg.Logging.NewLogger()

	assets := particlefx.NewAssetServer(cfg.Assets, log)
	assets.CreateTexture("glow", radialTexture(32, 1))
	assets.CreateTexture("smoke", radialTexture(64, 2))

	lib := particlefx.NewTemplateLibrary()
	if templatesPath != "" {
		err = lib.LoadFile(templatesPath, assets)
	} else {
		err = lib.LoadYAML(benchTemplates, assets)
	}
	if err != nil {
		return err
	}

	tel, err := particlefx.OpenTelemetry(cfg.Telemetry.OutputDir, cfg.Telemetry.EveryNTicks)
	if err != nil {
		return err
	}
	if cfg.Telemetry.OutputDir != "" {
		if err := cfg.WriteYAML(filepath.Join(cfg.Telemetry.OutputDir, "config.yaml")); err != nil {
			return err
		}
	}

	world := particlefx.NewWorld(particlefx.WorldOptions{
		Config:    cfg,
		Templates: lib,
		Logger:    log,
		Telemetry: tel,
	})
	defer world.Close()

	eye := mgl32.Vec3{0, 40, 80}
	view := mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 500)
	world.SetViewProj(proj.Mul4(view))
	ctx := particlefx.NewHeadlessContext(core.CameraFromView(view, eye))

	log.Infof("starting headless run: %d templates, %d ticks, seed %d, cap %d",
		lib.Len(), ticks, cfg.Simulation.Seed, cfg.Budget.MaxParticles)

	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))
	names := lib.Names()
	start := time.Now()
	var simTime, drawTime time.Duration
	for tick := 0; tick < ticks; tick++ {
		if spawnEvery > 0 && tick%spawnEvery == 0 {
			name := names[rng.Intn(len(names))]
			pos := mgl32.Vec3{rng.Float32()*200 - 100, 0, rng.Float32()*200 - 100}
			if _, err := world.SpawnAt(name, pos); err != nil {
				return err
			}
		}

		t0 := time.Now()
		world.Tick()
		simTime += time.Since(t0)

		t0 = time.Now()
		ctx.BeginFrame()
		if _, err := world.Draw(ctx); err != nil {
			return err
		}
		drawTime += time.Since(t0)
	}
	elapsed := time.Since(start)

	st := world.Manager.Stats()
	sum := world.Summary()
	log.Infof("done in %v (sim %v, draw %v): %d systems, %d/%d particles live",
		elapsed, simTime, drawTime, st.Systems, st.ActiveParticles, st.MaxParticles)
	log.Infof("admitted %d, denied %d, evicted %d; %d groups, cache hit rate %.2f",
		st.Admitted, st.Denied, st.Evicted, st.Groups, sum.CacheHitRate)
	if sum.Samples > 0 {
		log.Infof("active particles: mean %.1f sd %.1f p50 %.0f p95 %.0f max %.0f",
			sum.ActiveMean, sum.ActiveStdDev, sum.ActiveP50, sum.ActiveP95, sum.ActiveMax)
	}
	if ctx.Frames > 0 {
		log.Infof("avg %.1f draws, %.0f vertices per frame",
			float64(ctx.TotalDraws)/float64(ctx.Frames), float64(ctx.TotalVerts)/float64(ctx.Frames))
	}

	if savePath != "" {
		f, err := os.Create(savePath)
		if err != nil {
			return fmt.Errorf("creating save file: %w", err)
		}
		defer f.Close()
		if err := world.Save(f); err != nil {
			return err
		}
		log.Infof("saved particle state to %s", savePath)
	}
	return nil
}

// radialTexture is a white disc fading to transparent at the edge.
func radialTexture(size int, falloff float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)-c, float64(y)-c) / c
			a := math.Max(0, 1-math.Pow(d, falloff))
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: uint8(a * 255)})
		}
	}
	return img
}

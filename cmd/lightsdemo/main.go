package main

import (
	"flag"
	"fmt"
	"image/png"
	"math"
	"os"
	"runtime"
	"time"

	gekko "github.com/gekko3d/gekko-lights"
	"github.com/gekko3d/gekko-lights/lightrt/diag"
	"github.com/gekko3d/gekko-lights/lightrt/frame"
	"github.com/gekko3d/gekko-lights/lightrt/gpu"
	"github.com/gekko3d/gekko-lights/lightrt/lightset"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

func init() {
	runtime.LockOSThread()
}

type demoOptions struct {
	headless bool
	frames   uint64
	lights   int
	statsPNG string
}

func main() {
	headless := flag.Bool("headless", false, "Run without a window, uploading to memory")
	frames := flag.Uint64("frames", 600, "Frames to run before exiting (0 runs until the window closes)")
	lights := flag.Int("lights", 24, "Number of point and spot lights to spawn")
	configPath := flag.String("config", "", "YAML lights config")
	debug := flag.Bool("debug", false, "Enable debug logging and set invariant checks")
	statsPNG := flag.String("stats-png", "", "Write the final light stats as a PNG")
	flag.Parse()

	cfg := gekko.DefaultLightsConfig()
	if *configPath != "" {
		loaded, err := gekko.LoadLightsConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cfg = loaded
	}
	if *debug {
		cfg.DebugChecks = true
	}

	opts := demoOptions{headless: *headless, frames: *frames, lights: *lights, statsPNG: *statsPNG}
	if err := run(cfg, *debug, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg gekko.LightsConfig, debug bool, opts demoOptions) error {
	builder := gekko.NewAppBuilder().
		UseModule(gekko.LoggingModule{Prefix: "lightsdemo", Debug: debug})

	lightsModule := gekko.LightCullingModule{Config: cfg}
	if opts.headless {
		// Fixed 60 Hz clock so headless runs are reproducible.
		clock := time.Unix(0, 0)
		builder.UseModule(gekko.TimeModule{Now: func() time.Time {
			clock = clock.Add(time.Second / 60)
			return clock
		}})
	} else {
		builder.UseModule(
			gekko.TimeModule{},
			gekko.NewPlatformWindow(1280, 720, "Gekko Lights"),
			gekko.GpuModule{},
			gekko.InputModule{},
			gekko.FlyingCameraModule{},
		)
		lightsModule.NewSink = func(app *gekko.App, id uuid.UUID, logger gekko.Logger) lightset.UploadSink {
			gs := gekko.Resource[gekko.GpuState](app)
			return gpu.NewLightBuffers(gpu.DeviceBackend{Device: gs.Device()}, "lights-"+id.String(), logger)
		}
	}

	app := builder.UseModule(
		lightsModule,
		sceneModule{lights: opts.lights, frames: opts.frames, window: !opts.headless},
	).Build()
	app.Run()

	state := gekko.Resource[gekko.LightCullingState](app)
	app.Logger().Infof("done after %d frames: %s", app.Frame(), state.Manager.Stats())

	if opts.statsPNG != "" {
		return writeStats(opts.statsPNG, state)
	}
	return nil
}

func writeStats(path string, state *gekko.LightCullingState) error {
	text := fmt.Sprintf("pipeline %s\n%s\n%s\n", state.ID, state.Reporter.Last(), state.Profiler.GetStatsString())
	img := diag.RenderStats(text)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create stats image: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode stats image: %w", err)
	}
	return nil
}

// sceneModule spawns a camera (orbiting when headless, flown with WASD and
// the mouse in a window), one directional light and a ring
// of point and spot lights at mixed polling cadences.
type sceneModule struct {
	lights int
	frames uint64
	window bool
}

type sceneState struct {
	frames uint64
	window bool
	angle  float32
}

func (m sceneModule) Install(app *gekko.App, cmd *gekko.Commands) {
	camera := &gekko.CameraComponent{Position: mgl32.Vec3{0, 4, 30}, Fov: 60, Far: 200}
	if m.window {
		cmd.AddEntity(camera, &gekko.FlyingCameraComponent{Speed: 10})
	} else {
		cmd.AddEntity(camera)
	}

	sun := gekko.NewTransform(mgl32.Vec3{})
	cmd.AddEntity(&sun, &gekko.LightComponent{
		Type:      gekko.LightTypeDirectional,
		Color:     [3]float32{1, 0.95, 0.85},
		Intensity: 0.6,
	})

	cadences := []frame.Cadence{frame.Every1, frame.Every2, frame.Every5, frame.Every15}
	for i := 0; i < m.lights; i++ {
		angle := 2 * math.Pi * float64(i) / float64(m.lights)
		radius := 10 + float64(i%4)*6
		transform := gekko.NewTransform(mgl32.Vec3{
			float32(radius * math.Cos(angle)),
			2,
			float32(radius * math.Sin(angle)),
		})
		light := &gekko.LightComponent{
			Type:      gekko.LightTypePoint,
			Color:     [3]float32{float32(i%3) / 2, float32((i+1)%3) / 2, float32((i+2)%3) / 2},
			Intensity: 1 + float32(i%5),
			Range:     4 + float32(i%3)*2,
			PollEvery: cadences[i%len(cadences)],
		}
		if i%4 == 3 {
			light.Type = gekko.LightTypeSpot
			light.ConeAngle = 45
		}
		cmd.AddEntity(&transform, light)
	}

	cmd.AddResources(&sceneState{frames: m.frames, window: m.window})
	cmd.UseSystem(gekko.System(stopSystem).InStage(gekko.Finale))
	if m.window {
		cmd.UseSystem(gekko.System(windowTitleSystem).InStage(gekko.PostRender))
	} else {
		cmd.UseSystem(gekko.System(orbitCameraSystem).InStage(gekko.Update))
	}
}

func orbitCameraSystem(t *gekko.Time, scene *sceneState, cmd *gekko.Commands) {
	scene.angle += float32(t.Dt.Seconds()) * 20 // degrees per second
	gekko.MakeQuery1[gekko.CameraComponent](cmd).Map(func(_ gekko.EntityId, camera *gekko.CameraComponent) bool {
		rad := float64(mgl32.DegToRad(scene.angle))
		camera.Position = mgl32.Vec3{float32(30 * math.Sin(rad)), 4, float32(30 * math.Cos(rad))}
		camera.Yaw = -scene.angle
		return false
	})
}

func stopSystem(t *gekko.Time, scene *sceneState, cmd *gekko.Commands) {
	if scene.frames > 0 && t.Frame >= scene.frames {
		cmd.Exit()
	}
}

func windowTitleSystem(t *gekko.Time, ws *gekko.WindowState, state *gekko.LightCullingState) {
	if t.Frame%30 != 0 {
		return
	}
	ws.SetTitle(fmt.Sprintf("Gekko Lights  directional %d  point/spot %d  tracked %d",
		state.Manager.Directional().Len(), state.Manager.PointSpot().Len(), state.Tracked()))
}

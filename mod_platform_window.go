package gekko

import (
	"reflect"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// PlatformWindowModule ensures a single shared GLFW window (WindowState) is created
// and made available as a resource. Closing the window exits the app.
// Install is idempotent: if a WindowState resource already exists, it is reused.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

// NewPlatformWindow creates a module that provides a shared WindowState resource.
// If Width/Height are zero, sensible defaults are used.
func NewPlatformWindow(width, height int, title string) *PlatformWindowModule {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "Gekko Lights"
	}
	return &PlatformWindowModule{
		Width:  width,
		Height: height,
		Title:  title,
	}
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	t := reflect.TypeOf((*WindowState)(nil)).Elem()
	if _, ok := app.resources[t]; ok {
		return
	}

	ws, err := createWindowState(m.Width, m.Height, m.Title)
	if err != nil {
		app.Logger().Errorf("window: %v", err)
		panic(err)
	}
	cmd.AddResources(ws)
	cmd.UseSystem(System(windowEventsSystem).InStage(Prelude))
	cmd.OnShutdown(ws.release)
}

func windowEventsSystem(ws *WindowState, cmd *Commands) {
	glfw.PollEvents()
	if ws.ShouldClose() {
		cmd.Exit()
	}
}

// GpuModule creates the wgpu device for the shared window. Install it after
// PlatformWindowModule and before modules that allocate GPU buffers.
type GpuModule struct{}

func (m GpuModule) Install(app *App, cmd *Commands) {
	ws := Resource[WindowState](app)
	if ws == nil {
		panic("GpuModule requires PlatformWindowModule")
	}
	gs, err := createGpuState(ws)
	if err != nil {
		app.Logger().Errorf("gpu: %v", err)
		panic(err)
	}
	cmd.AddResources(gs)
	cmd.OnShutdown(gs.release)
}

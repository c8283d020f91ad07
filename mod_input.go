package gekko

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyW int = iota
	KeyA
	KeyS
	KeyD
	KeySpace
	KeyControl
	KeyShift
	KeyTab
	KeyEscape
	keyCount
)

var keyToGlfw = [keyCount]glfw.Key{
	KeyW:       glfw.KeyW,
	KeyA:       glfw.KeyA,
	KeyS:       glfw.KeyS,
	KeyD:       glfw.KeyD,
	KeySpace:   glfw.KeySpace,
	KeyControl: glfw.KeyLeftControl,
	KeyShift:   glfw.KeyLeftShift,
	KeyTab:     glfw.KeyTab,
	KeyEscape:  glfw.KeyEscape,
}

// InputModule polls the shared window's keyboard and mouse once per frame.
// Escape closes the app.
type InputModule struct{}

type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	MouseCaptured            bool
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
	cmd.UseSystem(System(inputSystem).InStage(PreUpdate))
}

// setKey records the key state for this frame.
func (input *Input) setKey(key int, down bool) {
	input.JustPressed[key] = down && !input.Pressed[key]
	input.JustReleased[key] = !down && input.Pressed[key]
	input.Pressed[key] = down
}

// setCursor records the cursor position. Deltas are only reported while
// the mouse is captured.
func (input *Input) setCursor(x, y float64) {
	if input.MouseCaptured {
		input.MouseDeltaX = x - input.MouseX
		input.MouseDeltaY = y - input.MouseY
	} else {
		input.MouseDeltaX = 0
		input.MouseDeltaY = 0
	}
	input.MouseX = x
	input.MouseY = y
}

func inputSystem(s *WindowState, input *Input, cmd *Commands) {
	for key, glfwKey := range keyToGlfw {
		input.setKey(key, s.windowGlfw.GetKey(glfwKey) == glfw.Press)
	}
	input.setCursor(s.windowGlfw.GetCursorPos())

	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
		if input.MouseCaptured {
			s.windowGlfw.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else {
			s.windowGlfw.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	}
	if input.JustPressed[KeyEscape] {
		cmd.Exit()
	}
}

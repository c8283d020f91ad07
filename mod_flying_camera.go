package gekko

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FlyingCameraModule moves camera entities that carry a
// FlyingCameraComponent: WASD to move, Space/Ctrl up and down, Shift to go
// faster, mouse to look while captured (Tab).
type FlyingCameraModule struct{}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	cmd.UseSystem(System(FlyingCameraInputSystem).InStage(Update))
	cmd.UseSystem(System(FlyingCameraControlSystem).InStage(Update))
}

type FlyingCameraComponent struct {
	Speed       float32 // units per second
	Sensitivity float32 // degrees per pixel
	Boost       bool
	Move        mgl32.Vec3
	Look        mgl32.Vec2
}

func FlyingCameraInputSystem(input *Input, cmd *Commands) {
	MakeQuery1[FlyingCameraComponent](cmd).Map(func(eid EntityId, fly *FlyingCameraComponent) bool {
		fly.Move = mgl32.Vec3{}
		if input.Pressed[KeyW] {
			fly.Move[2] += 1
		}
		if input.Pressed[KeyS] {
			fly.Move[2] -= 1
		}
		if input.Pressed[KeyA] {
			fly.Move[0] -= 1
		}
		if input.Pressed[KeyD] {
			fly.Move[0] += 1
		}
		if input.Pressed[KeySpace] {
			fly.Move[1] += 1
		}
		if input.Pressed[KeyControl] {
			fly.Move[1] -= 1
		}
		fly.Boost = input.Pressed[KeyShift]
		fly.Look = mgl32.Vec2{float32(input.MouseDeltaX), float32(input.MouseDeltaY)}
		return true
	})
}

func FlyingCameraControlSystem(cmd *Commands, time *Time) {
	dt := float32(time.Dt.Seconds())
	if dt <= 0 {
		return
	}
	MakeQuery2[CameraComponent, FlyingCameraComponent](cmd).Map(func(eid EntityId, cam *CameraComponent, fly *FlyingCameraComponent) bool {
		flyCamera(cam, fly, dt)
		return true
	})
}

// flyCamera applies one frame of look and movement input to cam.
func flyCamera(cam *CameraComponent, fly *FlyingCameraComponent, dt float32) {
	if fly.Sensitivity == 0 {
		fly.Sensitivity = 0.1
	}
	if fly.Speed == 0 {
		fly.Speed = 5.0
	}

	cam.Yaw += fly.Look[0] * fly.Sensitivity
	cam.Pitch -= fly.Look[1] * fly.Sensitivity
	cam.Pitch = mgl32.Clamp(cam.Pitch, -89, 89)

	yawRad := float64(mgl32.DegToRad(cam.Yaw))
	pitchRad := float64(mgl32.DegToRad(cam.Pitch))
	forward := mgl32.Vec3{
		float32(math.Sin(yawRad) * math.Cos(pitchRad)),
		float32(math.Sin(pitchRad)),
		float32(-math.Cos(yawRad) * math.Cos(pitchRad)),
	}.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	right := forward.Cross(up).Normalize()

	moveDir := right.Mul(fly.Move[0]).Add(up.Mul(fly.Move[1])).Add(forward.Mul(fly.Move[2]))
	if moveDir.Len() == 0 {
		return
	}
	speed := fly.Speed
	if fly.Boost {
		speed *= 4
	}
	cam.Position = cam.Position.Add(moveDir.Normalize().Mul(speed * dt))
}

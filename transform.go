package gekko

import (
	"github.com/go-gl/mathgl/mgl32"
)

type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// NewTransform returns an identity transform at position.
func NewTransform(position mgl32.Vec3) TransformComponent {
	return TransformComponent{
		Position: position,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// rotation treats the zero quaternion as identity so zero-value
// transforms behave.
func (t *TransformComponent) rotation() mgl32.Quat {
	if t.Rotation.W == 0 && t.Rotation.V == (mgl32.Vec3{}) {
		return mgl32.QuatIdent()
	}
	return t.Rotation
}

// CameraComponent drives the light pipeline's view. Angles are in degrees;
// zero projection fields keep the pipeline camera's values.
type CameraComponent struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Fov      float32
	Aspect   float32
	Near     float32
	Far      float32
}

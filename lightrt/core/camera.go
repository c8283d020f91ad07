package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// View is what visibility checks and eviction read from the active camera.
type View interface {
	Frustum() Frustum
	Eye() mgl32.Vec3
}

// Camera is a Y-up perspective camera. Yaw and Pitch are in radians.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	FovY     float32 // radians
	Aspect   float32
	Near     float32
	Far      float32

	frustum Frustum
	valid   bool
}

func NewCamera() *Camera {
	return &Camera{
		Position: mgl32.Vec3{0, 2, 20},
		FovY:     mgl32.DegToRad(60),
		Aspect:   16.0 / 9.0,
		Near:     0.1,
		Far:      500,
	}
}

func (c *Camera) Forward() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Sin(float64(c.Yaw)) * math.Cos(float64(c.Pitch))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Yaw)) * math.Cos(float64(c.Pitch))),
	}.Normalize()
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	eye := c.Position
	return mgl32.LookAtV(eye, eye.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// Update recomputes the cached frustum. Call it once per frame after the
// camera pose changed and before any visibility check runs.
func (c *Camera) Update() {
	c.frustum = ExtractFrustum(c.ProjectionMatrix().Mul4(c.ViewMatrix()))
	c.valid = true
}

func (c *Camera) Frustum() Frustum {
	if !c.valid {
		c.Update()
	}
	return c.frustum
}

func (c *Camera) Eye() mgl32.Vec3 {
	return c.Position
}

package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Frustum holds 6 planes in Ax+By+Cz+D=0 form with normals pointing inside,
// ordered Left, Right, Bottom, Top, Near, Far.
type Frustum [6]mgl32.Vec4

// ExtractFrustum extracts the frustum planes from a view-projection matrix.
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	var planes Frustum

	// Left: row 3 + row 0, Right: row 3 - row 0, and so on for rows 1 and 2.
	for axis := 0; axis < 3; axis++ {
		for col := 0; col < 4; col++ {
			planes[axis*2][col] = vp.At(3, col) + vp.At(axis, col)
			planes[axis*2+1][col] = vp.At(3, col) - vp.At(axis, col)
		}
	}

	for i := range planes {
		p := planes[i]
		length := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
		if length > 0 {
			planes[i] = p.Mul(1.0 / length)
		}
	}
	return planes
}

// ContainsSphere reports whether a sphere touches the frustum. The test is
// conservative near frustum corners, like every plane-only test.
func (f Frustum) ContainsSphere(center mgl32.Vec3, radius float32) bool {
	for _, plane := range f {
		dist := plane[0]*center[0] + plane[1]*center[1] + plane[2]*center[2] + plane[3]
		if dist < -radius {
			return false
		}
	}
	return true
}

// ContainsAABB reports whether a box touches the frustum.
func (f Frustum) ContainsAABB(aabb [2]mgl32.Vec3) bool {
	for _, plane := range f {
		// Positive vertex: the corner furthest along the plane normal.
		// If even that one is behind the plane the whole box is outside.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = aabb[1][axis]
			} else {
				p[axis] = aabb[0][axis]
			}
		}

		if plane[0]*p[0]+plane[1]*p[1]+plane[2]*p[2]+plane[3] < 0 {
			return false
		}
	}
	return true
}

// SphereAABB returns the box enclosing a sphere.
func SphereAABB(center mgl32.Vec3, radius float32) [2]mgl32.Vec3 {
	r := mgl32.Vec3{radius, radius, radius}
	return [2]mgl32.Vec3{center.Sub(r), center.Add(r)}
}

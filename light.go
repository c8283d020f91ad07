package gekko

import (
	"fmt"

	"github.com/gekko3d/gekko-lights/lightrt/core"
	"github.com/gekko3d/gekko-lights/lightrt/frame"
	"github.com/go-gl/mathgl/mgl32"
)

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeDirectional LightType = 1
	LightTypeSpot        LightType = 2
	LightTypeAmbient     LightType = 3
)

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeDirectional:
		return "directional"
	case LightTypeSpot:
		return "spot"
	case LightTypeAmbient:
		return "ambient"
	}
	return fmt.Sprintf("LightType(%d)", uint32(t))
}

// Kind maps the component type onto a tracked light kind. Ambient lights
// are not tracked.
func (t LightType) Kind() (core.Kind, bool) {
	switch t {
	case LightTypePoint:
		return core.KindPoint, true
	case LightTypeDirectional:
		return core.KindDirectional, true
	case LightTypeSpot:
		return core.KindSpot, true
	}
	return 0, false
}

// LightComponent is the ECS component for lights
type LightComponent struct {
	Type      LightType  `gekko:"light" usage:"type"`
	Color     [3]float32 `gekko:"light" usage:"color"` // RGB
	Intensity float32    `gekko:"light" usage:"intensity"`
	Range     float32    `gekko:"light" usage:"range"`      // For point/spot
	ConeAngle float32    `gekko:"light" usage:"cone_angle"` // Full cone angle in degrees (spot)

	// PollEvery is how often the light's visibility is checked. Zero uses
	// the pipeline default.
	PollEvery frame.Cadence `gekko:"light" usage:"poll_every"`
}

// baseForward is the light direction before the transform's rotation.
func (l *LightComponent) baseForward() mgl32.Vec3 {
	switch l.Type {
	case LightTypeDirectional:
		return mgl32.Vec3{1, -1, 0}.Normalize()
	case LightTypeSpot:
		return mgl32.Vec3{0, -1, 0}
	}
	return mgl32.Vec3{0, 0, -1}
}

// lightRecord builds the tracked state of an entity's light. ok is false
// for light types that are not tracked.
func lightRecord(id EntityId, transform *TransformComponent, light *LightComponent) (core.LightRecord, bool) {
	kind, ok := light.Type.Kind()
	if !ok {
		return core.LightRecord{}, false
	}
	return core.LightRecord{
		ID:        uint64(id),
		Kind:      kind,
		Position:  transform.Position,
		Direction: transform.rotation().Rotate(light.baseForward()).Normalize(),
		Color:     light.Color,
		Range:     light.Range,
		Intensity: light.Intensity,
		ConeAngle: light.ConeAngle,
	}, true
}

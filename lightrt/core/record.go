package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrMalformedRecord is wrapped by every LightRecord.Validate failure.
var ErrMalformedRecord = errors.New("malformed light record")

// Kind is the light category. The numeric value doubles as the kind tag
// written into packed GPU data.
type Kind uint32

const (
	KindDirectional Kind = 0
	KindPoint       Kind = 1
	KindSpot        Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindDirectional:
		return "directional"
	case KindPoint:
		return "point"
	case KindSpot:
		return "spot"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

func (k Kind) Valid() bool {
	return k <= KindSpot
}

// IsDirectional reports whether lights of this kind go to the directional set.
func (k Kind) IsDirectional() bool {
	return k == KindDirectional
}

// LightRecord is the state of one tracked light at admission or refresh time.
type LightRecord struct {
	ID        uint64
	Kind      Kind
	Position  mgl32.Vec3 // unused for directional lights
	Direction mgl32.Vec3 // normalized forward, directional and spot
	Color     [3]float32 // linear RGB
	Range     float32
	Intensity float32
	ConeAngle float32 // full cone angle in degrees, spot only

	// Slot is assigned by the owning set. Values set by callers are ignored.
	Slot int
}

// Validate rejects records that cannot be packed for the GPU.
func (r LightRecord) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: light %d has unknown kind %d", ErrMalformedRecord, r.ID, uint32(r.Kind))
	}
	for i := 0; i < 3; i++ {
		if !finite(r.Position[i]) {
			return fmt.Errorf("%w: light %d position %v is not finite", ErrMalformedRecord, r.ID, r.Position)
		}
		if !finite(r.Direction[i]) {
			return fmt.Errorf("%w: light %d direction %v is not finite", ErrMalformedRecord, r.ID, r.Direction)
		}
		if !finite(r.Color[i]) {
			return fmt.Errorf("%w: light %d color %v is not finite", ErrMalformedRecord, r.ID, r.Color)
		}
	}
	if !finite(r.Range) || r.Range < 0 {
		return fmt.Errorf("%w: light %d range %v", ErrMalformedRecord, r.ID, r.Range)
	}
	if !finite(r.Intensity) || r.Intensity < 0 {
		return fmt.Errorf("%w: light %d intensity %v", ErrMalformedRecord, r.ID, r.Intensity)
	}
	if r.Kind == KindSpot && (!finite(r.ConeAngle) || r.ConeAngle <= 0 || r.ConeAngle > 180) {
		return fmt.Errorf("%w: spot light %d cone angle %v outside (0, 180]", ErrMalformedRecord, r.ID, r.ConeAngle)
	}
	return nil
}

// DistanceTo returns the distance used to rank the record against other
// residents. Directional lights have no position and always rank at 0.
func (r LightRecord) DistanceTo(eye mgl32.Vec3) float32 {
	if r.Kind.IsDirectional() {
		return 0
	}
	return r.Position.Sub(eye).Len()
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package lightset

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/gekko-lights/lightrt/core"
)

// vectorsPerLight is the number of vec4 rows each light occupies.
const vectorsPerLight = 4

// headerSize is the {count, capacity, 0, 0} u32 header of an encoded set.
const headerSize = 16

// PackedSet is the structure-of-arrays form of one Set. Every array has
// the set's capacity; entries at or beyond Count are zero.
//
//	Positions  {x, y, z, range}
//	Colors     {r, g, b, 1}
//	Directions {dx, dy, dz, 0}
//	Variables  {cone angle (spot) or range, intensity, kind tag, id bits}
//
// The id is stored as the bit pattern of its low 32 bits; shaders read it
// back with bitcast<u32>.
type PackedSet struct {
	Positions  [][4]float32
	Colors     [][4]float32
	Directions [][4]float32
	Variables  [][4]float32
	Count      int
}

func newPackedSet(capacity int) PackedSet {
	return PackedSet{
		Positions:  make([][4]float32, capacity),
		Colors:     make([][4]float32, capacity),
		Directions: make([][4]float32, capacity),
		Variables:  make([][4]float32, capacity),
	}
}

func (p *PackedSet) fill(s *Set) {
	n := s.Len()
	for i := 0; i < n; i++ {
		rec := s.records[i]
		p.Positions[i] = [4]float32{rec.Position[0], rec.Position[1], rec.Position[2], rec.Range}
		p.Colors[i] = [4]float32{rec.Color[0], rec.Color[1], rec.Color[2], 1}
		p.Directions[i] = [4]float32{rec.Direction[0], rec.Direction[1], rec.Direction[2], 0}
		p.Variables[i] = packVariables(rec)
	}
	clear(p.Positions[n:])
	clear(p.Colors[n:])
	clear(p.Directions[n:])
	clear(p.Variables[n:])
	p.Count = n
}

func packVariables(rec core.LightRecord) [4]float32 {
	x := rec.Range
	if rec.Kind == core.KindSpot {
		x = rec.ConeAngle
	}
	return [4]float32{x, rec.Intensity, float32(rec.Kind), math.Float32frombits(uint32(rec.ID))}
}

// ID decodes the light id stored in slot i.
func (p PackedSet) ID(i int) uint32 {
	return math.Float32bits(p.Variables[i][3])
}

func (p PackedSet) Cap() int {
	return len(p.Positions)
}

// ByteSize is the length of the AppendBytes encoding.
func (p PackedSet) ByteSize() int {
	return headerSize + p.Cap()*vectorsPerLight*16
}

// AppendBytes encodes the set little-endian: the header followed by the
// four arrays back to back, capacity entries each.
func (p PackedSet) AppendBytes(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(p.Count))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(p.Cap()))
	dst = binary.LittleEndian.AppendUint32(dst, 0)
	dst = binary.LittleEndian.AppendUint32(dst, 0)
	for _, arr := range [vectorsPerLight][][4]float32{p.Positions, p.Colors, p.Directions, p.Variables} {
		for _, v := range arr {
			dst = appendVec4(dst, v)
		}
	}
	return dst
}

func appendVec4(dst []byte, v [4]float32) []byte {
	for _, f := range v {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// Clone returns a deep copy.
func (p PackedSet) Clone() PackedSet {
	return PackedSet{
		Positions:  append([][4]float32(nil), p.Positions...),
		Colors:     append([][4]float32(nil), p.Colors...),
		Directions: append([][4]float32(nil), p.Directions...),
		Variables:  append([][4]float32(nil), p.Variables...),
		Count:      p.Count,
	}
}

// Snapshot is what the manager hands to its sink. The manager reuses it
// between uploads; sinks must copy anything they keep.
type Snapshot struct {
	Directional PackedSet
	PointSpot   PackedSet
}

func (s *Snapshot) Clone() Snapshot {
	return Snapshot{
		Directional: s.Directional.Clone(),
		PointSpot:   s.PointSpot.Clone(),
	}
}

func (s *Snapshot) ByteSize() int {
	return s.Directional.ByteSize() + s.PointSpot.ByteSize()
}

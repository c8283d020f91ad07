package lightset

import (
	"fmt"

	"github.com/gekko3d/gekko-lights/lightrt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Set is a fixed-capacity, densely packed collection of light records.
// Slots [0, Len()) are occupied; idToSlot maps every resident id to its
// slot and nothing else.
type Set struct {
	name     string
	records  []core.LightRecord
	count    int
	idToSlot map[uint64]int
}

func newSet(name string, capacity int) *Set {
	return &Set{
		name:     name,
		records:  make([]core.LightRecord, capacity),
		idToSlot: make(map[uint64]int, capacity),
	}
}

func (s *Set) Name() string { return s.name }
func (s *Set) Len() int     { return s.count }
func (s *Set) Cap() int     { return len(s.records) }
func (s *Set) Full() bool   { return s.count == len(s.records) }

// Slot returns the slot holding id.
func (s *Set) Slot(id uint64) (int, bool) {
	slot, ok := s.idToSlot[id]
	return slot, ok
}

func (s *Set) Contains(id uint64) bool {
	_, ok := s.idToSlot[id]
	return ok
}

// At returns the record in an occupied slot.
func (s *Set) At(slot int) core.LightRecord {
	if slot < 0 || slot >= s.count {
		panic(fmt.Sprintf("lightset: %s slot %d out of range [0, %d)", s.name, slot, s.count))
	}
	return s.records[slot]
}

// Records returns a copy of the occupied slots in slot order.
func (s *Set) Records() []core.LightRecord {
	out := make([]core.LightRecord, s.count)
	copy(out, s.records[:s.count])
	return out
}

// IDs returns the resident ids in slot order.
func (s *Set) IDs() []uint64 {
	ids := make([]uint64, s.count)
	for i := 0; i < s.count; i++ {
		ids[i] = s.records[i].ID
	}
	return ids
}

func (s *Set) append(rec core.LightRecord) int {
	slot := s.count
	rec.Slot = slot
	s.records[slot] = rec
	s.idToSlot[rec.ID] = slot
	s.count++
	return slot
}

func (s *Set) overwrite(slot int, rec core.LightRecord) {
	rec.Slot = slot
	s.records[slot] = rec
}

// replace puts rec into an occupied slot and returns the evicted record.
func (s *Set) replace(slot int, rec core.LightRecord) core.LightRecord {
	evicted := s.records[slot]
	delete(s.idToSlot, evicted.ID)
	s.overwrite(slot, rec)
	s.idToSlot[rec.ID] = slot
	return evicted
}

// remove deletes id and shifts later slots down by one, keeping admission
// order.
func (s *Set) remove(id uint64) (core.LightRecord, bool) {
	slot, ok := s.idToSlot[id]
	if !ok {
		return core.LightRecord{}, false
	}
	removed := s.records[slot]
	delete(s.idToSlot, id)

	for i := slot; i < s.count-1; i++ {
		moved := s.records[i+1]
		moved.Slot = i
		s.records[i] = moved
		s.idToSlot[moved.ID] = i
	}
	s.count--
	s.records[s.count] = core.LightRecord{}
	return removed, true
}

// farthest returns the occupied slot farthest from eye. Ties go to the
// lowest slot. The set must not be empty.
func (s *Set) farthest(eye mgl32.Vec3) (int, float32) {
	best, bestDist := 0, s.records[0].DistanceTo(eye)
	for i := 1; i < s.count; i++ {
		if d := s.records[i].DistanceTo(eye); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Verify checks the slot/id bijection.
func (s *Set) Verify() error {
	if s.count < 0 || s.count > len(s.records) {
		return fmt.Errorf("lightset: %s count %d outside [0, %d]", s.name, s.count, len(s.records))
	}
	if len(s.idToSlot) != s.count {
		return fmt.Errorf("lightset: %s has %d ids mapped for %d occupied slots", s.name, len(s.idToSlot), s.count)
	}
	for i := 0; i < s.count; i++ {
		rec := s.records[i]
		slot, ok := s.idToSlot[rec.ID]
		if !ok || slot != i {
			return fmt.Errorf("lightset: %s slot %d holds light %d mapped to slot %d (present=%v)", s.name, i, rec.ID, slot, ok)
		}
		if rec.Slot != i {
			return fmt.Errorf("lightset: %s slot %d holds record tagged with slot %d", s.name, i, rec.Slot)
		}
	}
	return nil
}

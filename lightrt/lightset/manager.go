package lightset

import (
	"errors"
	"fmt"

	"github.com/gekko3d/gekko-lights/lightrt/core"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultDirectionalCapacity = 4
	DefaultPointSpotCapacity   = 8
	MaxCapacity                = 1024
)

var ErrInvalidConfig = errors.New("lightset: invalid config")

type Config struct {
	DirectionalCapacity int
	PointSpotCapacity   int
	// VerifyInvariants checks both sets after every mutation and logs
	// violations. Meant for debug builds and tests.
	VerifyInvariants bool
}

func DefaultConfig() Config {
	return Config{
		DirectionalCapacity: DefaultDirectionalCapacity,
		PointSpotCapacity:   DefaultPointSpotCapacity,
	}
}

func (c Config) Validate() error {
	if c.DirectionalCapacity < 1 || c.DirectionalCapacity > MaxCapacity {
		return fmt.Errorf("%w: directional capacity %d outside [1, %d]", ErrInvalidConfig, c.DirectionalCapacity, MaxCapacity)
	}
	if c.PointSpotCapacity < 1 || c.PointSpotCapacity > MaxCapacity {
		return fmt.Errorf("%w: point/spot capacity %d outside [1, %d]", ErrInvalidConfig, c.PointSpotCapacity, MaxCapacity)
	}
	return nil
}

// EyeProvider supplies the camera position used to rank lights when a set
// is full. core.View satisfies it.
type EyeProvider interface {
	Eye() mgl32.Vec3
}

// Outcome describes what an admission or refresh did.
type Outcome int

const (
	Admitted Outcome = iota
	Replaced
	Refreshed
	Dropped
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Replaced:
		return "replaced"
	case Refreshed:
		return "refreshed"
	case Dropped:
		return "dropped"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Manager owns the directional and point/spot working sets and uploads
// them through its sink when they change. Not safe for concurrent use:
// all calls must happen on the frame thread.
type Manager struct {
	directional *Set
	pointSpot   *Set

	eye    EyeProvider
	sink   UploadSink
	logger core.Logger
	verify bool

	dirty           bool
	lastDirectional int
	lastPointSpot   int
	released        bool
	snapshot        Snapshot
	stats           Stats
}

func NewManager(cfg Config, eye EyeProvider, sink UploadSink, logger core.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eye == nil {
		return nil, fmt.Errorf("%w: nil eye provider", ErrInvalidConfig)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil upload sink", ErrInvalidConfig)
	}

	return &Manager{
		directional: newSet("directional", cfg.DirectionalCapacity),
		pointSpot:   newSet("point/spot", cfg.PointSpotCapacity),
		eye:         eye,
		sink:        sink,
		logger:      core.OrNop(logger),
		verify:      cfg.VerifyInvariants,
		snapshot: Snapshot{
			Directional: newPackedSet(cfg.DirectionalCapacity),
			PointSpot:   newPackedSet(cfg.PointSpotCapacity),
		},
	}, nil
}

// OnEnter admits a light that became visible. A light that is already
// resident is refreshed instead. When the target set is full the farthest
// resident is evicted if the candidate is strictly closer; otherwise the
// candidate is dropped.
func (m *Manager) OnEnter(rec core.LightRecord) Outcome {
	if err := rec.Validate(); err != nil {
		return m.reject(err)
	}
	if set, slot, ok := m.locate(rec.ID); ok {
		return m.refresh(set, slot, rec)
	}
	return m.admit(rec)
}

// OnExit removes a light. Unknown ids are ignored and leave the manager
// clean.
func (m *Manager) OnExit(id uint64) bool {
	set, _, ok := m.locate(id)
	if !ok {
		return false
	}
	set.remove(id)
	m.dirty = true
	m.stats.Exits++
	m.check()
	return true
}

// OnRefresh updates a resident light in place. A light that is not
// resident is admitted as if it had just entered. An invalid record leaves
// the resident copy untouched.
func (m *Manager) OnRefresh(id uint64, rec core.LightRecord) Outcome {
	rec.ID = id
	if err := rec.Validate(); err != nil {
		return m.reject(err)
	}
	if set, slot, ok := m.locate(id); ok {
		return m.refresh(set, slot, rec)
	}
	return m.admit(rec)
}

func (m *Manager) refresh(set *Set, slot int, rec core.LightRecord) Outcome {
	if set != m.setFor(rec.Kind) {
		// The light changed category; move it to the other set.
		set.remove(rec.ID)
		m.dirty = true
		return m.admit(rec)
	}
	set.overwrite(slot, rec)
	m.dirty = true
	m.stats.Refreshed++
	m.check()
	return Refreshed
}

func (m *Manager) admit(rec core.LightRecord) Outcome {
	set := m.setFor(rec.Kind)
	if !set.Full() {
		set.append(rec)
		m.dirty = true
		m.stats.Admitted++
		m.check()
		return Admitted
	}

	eye := m.eye.Eye()
	slot, farthest := set.farthest(eye)
	if rec.DistanceTo(eye) >= farthest {
		m.stats.Dropped++
		return Dropped
	}

	evicted := set.replace(slot, rec)
	m.dirty = true
	m.stats.Replaced++
	m.logger.Debugf("lightset: %s light %d evicted light %d from slot %d", set.name, rec.ID, evicted.ID, slot)
	m.check()
	return Replaced
}

func (m *Manager) reject(err error) Outcome {
	m.stats.Rejected++
	m.logger.Warnf("lightset: rejected record: %v", err)
	return Rejected
}

func (m *Manager) setFor(kind core.Kind) *Set {
	if kind.IsDirectional() {
		return m.directional
	}
	return m.pointSpot
}

func (m *Manager) locate(id uint64) (*Set, int, bool) {
	if slot, ok := m.directional.Slot(id); ok {
		return m.directional, slot, true
	}
	if slot, ok := m.pointSpot.Slot(id); ok {
		return m.pointSpot, slot, true
	}
	return nil, 0, false
}

func (m *Manager) check() {
	if !m.verify {
		return
	}
	if err := m.Verify(); err != nil {
		m.logger.Errorf("%v", err)
	}
}

// UploadIfDirty packs both sets and hands them to the sink when anything
// changed since the last successful upload. It reports whether the sink
// was called successfully. After a failed upload the manager stays dirty
// so the next frame retries. After Release it does nothing.
func (m *Manager) UploadIfDirty() (bool, error) {
	if m.released {
		return false, nil
	}
	nd, nps := m.directional.Len(), m.pointSpot.Len()
	if !m.dirty && nd == m.lastDirectional && nps == m.lastPointSpot {
		return false, nil
	}

	m.snapshot.Directional.fill(m.directional)
	m.snapshot.PointSpot.fill(m.pointSpot)

	if err := m.sink.Upload(&m.snapshot); err != nil {
		m.stats.UploadErrors++
		m.logger.Errorf("lightset: upload failed (directional=%d point/spot=%d): %v", nd, nps, err)
		return false, fmt.Errorf("lightset: upload: %w", err)
	}

	m.dirty = false
	m.lastDirectional = nd
	m.lastPointSpot = nps
	m.stats.Uploads++
	m.stats.BytesUploaded += uint64(m.snapshot.ByteSize())
	return true, nil
}

// Release frees the sink's resources. Only the first call has an effect.
func (m *Manager) Release() {
	if m.released {
		return
	}
	m.released = true
	m.sink.Release()
}

func (m *Manager) Released() bool { return m.released }

func (m *Manager) Directional() *Set { return m.directional }
func (m *Manager) PointSpot() *Set   { return m.pointSpot }
func (m *Manager) Dirty() bool       { return m.dirty }
func (m *Manager) Stats() Stats      { return m.stats }

// LastUploaded returns the active counts sent with the last upload.
func (m *Manager) LastUploaded() (directional, pointSpot int) {
	return m.lastDirectional, m.lastPointSpot
}

// Verify checks the invariants of both sets.
func (m *Manager) Verify() error {
	if err := m.directional.Verify(); err != nil {
		return err
	}
	if err := m.pointSpot.Verify(); err != nil {
		return err
	}
	for _, id := range m.directional.IDs() {
		if m.pointSpot.Contains(id) {
			return fmt.Errorf("lightset: light %d resident in both sets", id)
		}
	}
	return nil
}

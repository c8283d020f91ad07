package lightset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/gekko3d/gekko-lights/lightrt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEye mgl32.Vec3

func (e fixedEye) Eye() mgl32.Vec3 { return mgl32.Vec3(e) }

type warnLogger struct {
	warnings []string
	errors   []string
}

func (l *warnLogger) Debugf(format string, args ...any) {}
func (l *warnLogger) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (l *warnLogger) Errorf(format string, args ...any) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

// pointAt returns a point light at distance d from the origin along +X.
func pointAt(id uint64, d float32) core.LightRecord {
	return core.LightRecord{
		ID:        id,
		Kind:      core.KindPoint,
		Position:  mgl32.Vec3{d, 0, 0},
		Color:     [3]float32{1, 1, 1},
		Range:     4,
		Intensity: 1,
	}
}

func directional(id uint64) core.LightRecord {
	return core.LightRecord{
		ID:        id,
		Kind:      core.KindDirectional,
		Direction: mgl32.Vec3{0, -1, 0},
		Color:     [3]float32{1, 1, 0.9},
		Intensity: 0.5,
	}
}

func newTestManager(t *testing.T, directionalCap, pointSpotCap int) (*Manager, *MemorySink) {
	t.Helper()
	sink := &MemorySink{}
	m, err := NewManager(Config{
		DirectionalCapacity: directionalCap,
		PointSpotCapacity:   pointSpotCap,
		VerifyInvariants:    true,
	}, fixedEye{}, sink, nil)
	require.NoError(t, err)
	return m, sink
}

func TestManager_EvictsFarthestWhenFull(t *testing.T) {
	m, _ := newTestManager(t, 1, 2)
	const a, b, c = 1, 2, 3

	assert.Equal(t, Admitted, m.OnEnter(pointAt(a, 5)))
	assert.Equal(t, Admitted, m.OnEnter(pointAt(b, 3)))
	assert.Equal(t, 2, m.PointSpot().Len())

	assert.Equal(t, Replaced, m.OnEnter(pointAt(c, 1)))
	assert.Equal(t, 2, m.PointSpot().Len())
	assert.False(t, m.PointSpot().Contains(a))
	assert.ElementsMatch(t, []uint64{b, c}, m.PointSpot().IDs())

	// C took A's slot.
	slot, ok := m.PointSpot().Slot(c)
	require.True(t, ok)
	assert.Equal(t, 0, slot)
	assert.Equal(t, uint64(1), m.Stats().Replaced)
	require.NoError(t, m.Verify())
}

func TestManager_DropsCandidateFartherThanEveryResident(t *testing.T) {
	m, _ := newTestManager(t, 1, 2)
	m.OnEnter(pointAt(1, 5))
	m.OnEnter(pointAt(2, 3))
	_, err := m.UploadIfDirty()
	require.NoError(t, err)

	before := m.PointSpot().Records()
	assert.Equal(t, Dropped, m.OnEnter(pointAt(3, 9)))
	// Equal distance is not strictly closer.
	assert.Equal(t, Dropped, m.OnEnter(pointAt(4, 5)))

	assert.Equal(t, before, m.PointSpot().Records())
	assert.False(t, m.Dirty())
	assert.Equal(t, uint64(2), m.Stats().Dropped)
}

func TestManager_EvictionTieGoesToLowestSlot(t *testing.T) {
	m, _ := newTestManager(t, 1, 3)
	m.OnEnter(pointAt(1, 2))
	m.OnEnter(pointAt(2, 7))
	m.OnEnter(core.LightRecord{ID: 3, Kind: core.KindPoint, Position: mgl32.Vec3{0, 7, 0}, Range: 1, Intensity: 1})

	assert.Equal(t, Replaced, m.OnEnter(pointAt(4, 1)))
	assert.Equal(t, []uint64{1, 4, 3}, m.PointSpot().IDs())
}

func TestManager_FullDirectionalSetKeepsResidents(t *testing.T) {
	m, _ := newTestManager(t, 2, 2)
	assert.Equal(t, Admitted, m.OnEnter(directional(1)))
	assert.Equal(t, Admitted, m.OnEnter(directional(2)))
	assert.Equal(t, Dropped, m.OnEnter(directional(3)))
	assert.Equal(t, []uint64{1, 2}, m.Directional().IDs())
	assert.Equal(t, 0, m.PointSpot().Len())
}

func TestManager_OnEnterResidentRefreshes(t *testing.T) {
	m, _ := newTestManager(t, 1, 4)
	m.OnEnter(pointAt(1, 2))
	m.OnEnter(pointAt(2, 3))

	moved := pointAt(1, 8)
	assert.Equal(t, Refreshed, m.OnEnter(moved))
	assert.Equal(t, 2, m.PointSpot().Len())
	assert.Equal(t, float32(8), m.PointSpot().At(0).Position.X())
}

func TestManager_OnExitShiftsLaterSlots(t *testing.T) {
	m, _ := newTestManager(t, 1, 4)
	const d, e = 10, 11
	m.OnEnter(pointAt(d, 1))
	m.OnEnter(pointAt(e, 2))

	assert.True(t, m.OnExit(d))
	slot, ok := m.PointSpot().Slot(e)
	require.True(t, ok)
	assert.Equal(t, 0, slot)
	assert.Equal(t, 0, m.PointSpot().At(0).Slot)
	assert.Equal(t, 1, m.PointSpot().Len())
	require.NoError(t, m.Verify())
}

func TestManager_OnExitPreservesAdmissionOrder(t *testing.T) {
	m, _ := newTestManager(t, 1, 5)
	for id := uint64(1); id <= 5; id++ {
		m.OnEnter(pointAt(id, float32(id)))
	}
	m.OnExit(2)
	m.OnExit(4)
	assert.Equal(t, []uint64{1, 3, 5}, m.PointSpot().IDs())
}

func TestManager_OnExitUnknownIsNoop(t *testing.T) {
	m, _ := newTestManager(t, 1, 2)
	m.OnEnter(pointAt(1, 1))
	_, err := m.UploadIfDirty()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.False(t, m.OnExit(42))
	})
	assert.False(t, m.Dirty())
	assert.Equal(t, []uint64{1}, m.PointSpot().IDs())
	assert.Equal(t, uint64(0), m.Stats().Exits)
}

func TestManager_OnRefresh(t *testing.T) {
	m, _ := newTestManager(t, 1, 4)
	m.OnEnter(pointAt(1, 1))
	m.OnEnter(pointAt(2, 2))
	_, err := m.UploadIfDirty()
	require.NoError(t, err)

	updated := pointAt(999, 3) // id argument wins over the record's
	updated.Intensity = 4
	assert.Equal(t, Refreshed, m.OnRefresh(2, updated))

	rec := m.PointSpot().At(1)
	assert.Equal(t, uint64(2), rec.ID)
	assert.Equal(t, float32(4), rec.Intensity)
	assert.Equal(t, 1, rec.Slot)
	assert.True(t, m.Dirty())

	// Unknown id falls back to admission.
	assert.Equal(t, Admitted, m.OnRefresh(7, pointAt(7, 5)))
	assert.Equal(t, []uint64{1, 2, 7}, m.PointSpot().IDs())
}

func TestManager_RefreshMovesLightBetweenCategories(t *testing.T) {
	m, _ := newTestManager(t, 2, 2)
	m.OnEnter(pointAt(1, 1))
	m.OnEnter(pointAt(2, 2))

	asDirectional := directional(1)
	assert.Equal(t, Admitted, m.OnRefresh(1, asDirectional))
	assert.Equal(t, []uint64{2}, m.PointSpot().IDs())
	assert.Equal(t, []uint64{1}, m.Directional().IDs())
	require.NoError(t, m.Verify())
}

func TestManager_RejectsMalformedRecords(t *testing.T) {
	logger := &warnLogger{}
	sink := &MemorySink{}
	m, err := NewManager(DefaultConfig(), fixedEye{}, sink, logger)
	require.NoError(t, err)

	bad := pointAt(1, 1)
	bad.Position[0] = float32(math.NaN())
	assert.Equal(t, Rejected, m.OnEnter(bad))
	assert.Equal(t, 0, m.PointSpot().Len())
	assert.False(t, m.Dirty())

	negative := pointAt(2, 1)
	negative.Range = -3
	assert.Equal(t, Rejected, m.OnEnter(negative))

	// A bad refresh keeps the resident copy.
	m.OnEnter(pointAt(3, 4))
	assert.Equal(t, Rejected, m.OnRefresh(3, bad))
	assert.Equal(t, float32(4), m.PointSpot().At(0).Position.X())

	assert.Equal(t, uint64(3), m.Stats().Rejected)
	assert.Len(t, logger.warnings, 3)
	assert.Contains(t, logger.warnings[0], core.ErrMalformedRecord.Error())
}

func TestManager_DirtySuppression(t *testing.T) {
	m, sink := newTestManager(t, 1, 2)

	uploaded, err := m.UploadIfDirty()
	require.NoError(t, err)
	assert.False(t, uploaded, "nothing changed yet")

	m.OnEnter(pointAt(1, 1))
	uploaded, err = m.UploadIfDirty()
	require.NoError(t, err)
	assert.True(t, uploaded)

	uploaded, err = m.UploadIfDirty()
	require.NoError(t, err)
	assert.False(t, uploaded)
	assert.Equal(t, 1, sink.Uploads)

	m.OnRefresh(1, pointAt(1, 2))
	_, err = m.UploadIfDirty()
	require.NoError(t, err)
	assert.Equal(t, 2, sink.Uploads)
}

func TestManager_UploadsShrinkingCounts(t *testing.T) {
	m, sink := newTestManager(t, 1, 2)
	m.OnEnter(pointAt(1, 1))
	m.OnEnter(pointAt(2, 2))
	m.OnEnter(directional(3))
	_, err := m.UploadIfDirty()
	require.NoError(t, err)
	assert.Equal(t, 2, sink.Last.PointSpot.Count)
	assert.Equal(t, 1, sink.Last.Directional.Count)

	m.OnExit(1)
	m.OnExit(2)
	_, err = m.UploadIfDirty()
	require.NoError(t, err)
	assert.Equal(t, 0, sink.Last.PointSpot.Count)
	assert.Equal(t, [4]float32{}, sink.Last.PointSpot.Positions[0])

	d, ps := m.LastUploaded()
	assert.Equal(t, 1, d)
	assert.Equal(t, 0, ps)
}

type failingSink struct {
	MemorySink
	fail bool
}

func (s *failingSink) Upload(snap *Snapshot) error {
	if s.fail {
		return errors.New("device lost")
	}
	return s.MemorySink.Upload(snap)
}

func TestManager_FailedUploadRetries(t *testing.T) {
	sink := &failingSink{fail: true}
	m, err := NewManager(DefaultConfig(), fixedEye{}, sink, nil)
	require.NoError(t, err)

	m.OnEnter(pointAt(1, 1))
	uploaded, err := m.UploadIfDirty()
	assert.False(t, uploaded)
	assert.ErrorContains(t, err, "device lost")
	assert.True(t, m.Dirty())
	assert.Equal(t, uint64(1), m.Stats().UploadErrors)

	sink.fail = false
	uploaded, err = m.UploadIfDirty()
	require.NoError(t, err)
	assert.True(t, uploaded)
	assert.Equal(t, 1, sink.Uploads)
}

func TestManager_ReleaseOnce(t *testing.T) {
	m, sink := newTestManager(t, 1, 2)
	m.OnEnter(pointAt(1, 1))

	m.Release()
	m.Release()
	assert.Equal(t, 1, sink.Releases)
	assert.True(t, m.Released())

	uploaded, err := m.UploadIfDirty()
	require.NoError(t, err)
	assert.False(t, uploaded)
	assert.Equal(t, 0, sink.Uploads)
}

func TestManager_PackedSnapshot(t *testing.T) {
	m, sink := newTestManager(t, 1, 3)
	spot := core.LightRecord{
		ID:        77,
		Kind:      core.KindSpot,
		Position:  mgl32.Vec3{1, 2, 3},
		Direction: mgl32.Vec3{0, -1, 0},
		Color:     [3]float32{0.5, 0.25, 1},
		Range:     12,
		Intensity: 3,
		ConeAngle: 40,
	}
	m.OnEnter(pointAt(5, 1))
	m.OnEnter(spot)
	m.OnEnter(directional(9))
	_, err := m.UploadIfDirty()
	require.NoError(t, err)

	ps := sink.Last.PointSpot
	assert.Equal(t, 2, ps.Count)
	assert.Equal(t, 3, ps.Cap())
	assert.Equal(t, [4]float32{1, 2, 3, 12}, ps.Positions[1])
	assert.Equal(t, [4]float32{0.5, 0.25, 1, 1}, ps.Colors[1])
	assert.Equal(t, [4]float32{0, -1, 0, 0}, ps.Directions[1])
	assert.Equal(t, float32(40), ps.Variables[1][0])
	assert.Equal(t, float32(3), ps.Variables[1][1])
	assert.Equal(t, float32(core.KindSpot), ps.Variables[1][2])
	assert.Equal(t, uint32(77), ps.ID(1))

	// Point lights carry their range in the first variable.
	assert.Equal(t, float32(4), ps.Variables[0][0])
	assert.Equal(t, float32(core.KindPoint), ps.Variables[0][2])
	assert.Equal(t, uint32(5), ps.ID(0))

	assert.Equal(t, [4]float32{}, ps.Variables[2])
	assert.Equal(t, float32(core.KindDirectional), sink.Last.Directional.Variables[0][2])
	assert.Equal(t, uint32(9), sink.Last.Directional.ID(0))
}

func TestPackedSet_AppendBytes(t *testing.T) {
	m, sink := newTestManager(t, 1, 2)
	m.OnEnter(pointAt(5, 1))
	_, err := m.UploadIfDirty()
	require.NoError(t, err)

	ps := sink.Last.PointSpot
	buf := ps.AppendBytes(nil)
	require.Len(t, buf, ps.ByteSize())
	assert.Equal(t, headerSize+2*vectorsPerLight*16, len(buf))

	le := func(off int) uint32 {
		return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
	}
	assert.Equal(t, uint32(1), le(0))
	assert.Equal(t, uint32(2), le(4))
	// First position x, then the first color starts after both positions.
	assert.Equal(t, math.Float32bits(1), le(headerSize))
	assert.Equal(t, math.Float32bits(1), le(headerSize+2*16))
	assert.Equal(t, sink.Last.ByteSize(), sink.Last.Directional.ByteSize()+ps.ByteSize())
}

func TestManager_RandomOperationsKeepInvariants(t *testing.T) {
	m, sink := newTestManager(t, 3, 5)
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 5000; step++ {
		id := uint64(rng.Intn(20))
		rec := pointAt(id, rng.Float32()*50)
		if rng.Intn(4) == 0 {
			rec = directional(id)
		}

		switch rng.Intn(4) {
		case 0, 1:
			m.OnEnter(rec)
		case 2:
			m.OnExit(id)
		case 3:
			m.OnRefresh(id, rec)
		}
		if rng.Intn(10) == 0 {
			_, err := m.UploadIfDirty()
			require.NoError(t, err)
		}

		require.NoError(t, m.Verify(), "step %d", step)
		require.LessOrEqual(t, m.Directional().Len(), 3)
		require.LessOrEqual(t, m.PointSpot().Len(), 5)
		for _, id := range m.PointSpot().IDs() {
			slot, ok := m.PointSpot().Slot(id)
			require.True(t, ok)
			require.Equal(t, id, m.PointSpot().At(slot).ID)
		}
	}
	assert.Positive(t, sink.Uploads)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for _, cfg := range []Config{
		{DirectionalCapacity: 0, PointSpotCapacity: 8},
		{DirectionalCapacity: 4, PointSpotCapacity: -1},
		{DirectionalCapacity: 4, PointSpotCapacity: MaxCapacity + 1},
	} {
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	}

	_, err := NewManager(DefaultConfig(), nil, &MemorySink{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewManager(DefaultConfig(), fixedEye{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

package gekko

import (
	"slices"

	"github.com/gekko3d/gekko-lights/lightrt/core"
	"github.com/gekko3d/gekko-lights/lightrt/diag"
	"github.com/gekko3d/gekko-lights/lightrt/frame"
	"github.com/gekko3d/gekko-lights/lightrt/lightset"
	"github.com/gekko3d/gekko-lights/lightrt/visibility"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// SinkFactory builds the upload sink of a light pipeline. id identifies the
// pipeline instance.
type SinkFactory func(app *App, id uuid.UUID, logger Logger) lightset.UploadSink

// LightCullingModule tracks ECS lights against the camera frustum and keeps
// a bounded working set of them uploaded through a sink.
//
// Each frame: PreRender syncs the camera, creates or retires one poller per
// light entity and ticks the scheduler; Render uploads the sets if they
// changed; PostRender records diagnostics.
type LightCullingModule struct {
	Config LightsConfig
	// NewSink defaults to an in-memory sink.
	NewSink SinkFactory
}

type LightCullingState struct {
	ID        uuid.UUID
	Config    LightsConfig
	Camera    *core.Camera
	Scheduler *frame.Scheduler
	Manager   *lightset.Manager
	Sink      lightset.UploadSink
	Profiler  *diag.Profiler
	Reporter  *diag.Reporter

	logger     Logger
	tracked    map[EntityId]*trackedLight
	generation uint64
	counters   diag.FrameCounters
	lastBytes  uint64
	closed     bool
}

type trackedLight struct {
	poller *visibility.Poller
	record core.LightRecord
	seen   uint64
}

func (m LightCullingModule) Install(app *App, cmd *Commands) {
	ensureSingleLightPipeline(app, "LightCullingModule")

	cfg := m.Config
	if cfg == (LightsConfig{}) {
		cfg = DefaultLightsConfig()
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	id := uuid.New()
	logger := WithPrefix(app.Logger(), "lights "+id.String()[:8])

	var sink lightset.UploadSink
	if m.NewSink != nil {
		sink = m.NewSink(app, id, logger)
	}
	if sink == nil {
		sink = &lightset.MemorySink{}
	}

	camera := core.NewCamera()
	manager, err := lightset.NewManager(cfg.setConfig(), camera, sink, logger)
	if err != nil {
		panic(err)
	}

	state := &LightCullingState{
		ID:        id,
		Config:    cfg,
		Camera:    camera,
		Scheduler: frame.NewScheduler(logger),
		Manager:   manager,
		Sink:      sink,
		Profiler:  diag.NewProfiler(),
		Reporter:  diag.NewReporter(cfg.StatsLogInterval, logger),
		logger:    logger,
		tracked:   make(map[EntityId]*trackedLight),
	}
	logger.Infof("light pipeline started: directional=%d point/spot=%d poll=%s policy=%s",
		cfg.DirectionalCapacity, cfg.PointSpotCapacity, cfg.cadence(), cfg.policy())

	cmd.AddResources(state)
	cmd.UseSystem(System(lightCameraSyncSystem).InStage(PreRender))
	cmd.UseSystem(System(lightTrackSystem).InStage(PreRender))
	cmd.UseSystem(System(lightPollSystem).InStage(PreRender))
	cmd.UseSystem(System(lightUploadSystem).InStage(Render))
	cmd.UseSystem(System(lightDiagnosticsSystem).InStage(PostRender))
	cmd.OnShutdown(state.Close)
}

// lightCameraSyncSystem copies the first camera entity into the pipeline
// camera and refreshes its frustum.
func lightCameraSyncSystem(state *LightCullingState, cmd *Commands) {
	cam := state.Camera
	MakeQuery1[CameraComponent](cmd).Map(func(entityId EntityId, camera *CameraComponent) bool {
		cam.Position = camera.Position
		cam.Yaw = mgl32.DegToRad(camera.Yaw)
		cam.Pitch = mgl32.DegToRad(camera.Pitch)
		if camera.Fov > 0 {
			cam.FovY = mgl32.DegToRad(camera.Fov)
		}
		if camera.Aspect > 0 {
			cam.Aspect = camera.Aspect
		}
		if camera.Near > 0 {
			cam.Near = camera.Near
		}
		if camera.Far > 0 {
			cam.Far = camera.Far
		}
		return false
	})
	cam.Update()
}

// lightTrackSystem keeps one poller per tracked light entity.
func lightTrackSystem(state *LightCullingState, cmd *Commands) {
	state.generation++
	MakeQuery2[TransformComponent, LightComponent](cmd).Map(func(entityId EntityId, transform *TransformComponent, light *LightComponent) bool {
		if rec, ok := lightRecord(entityId, transform, light); ok {
			state.track(entityId, rec, light.PollEvery)
		}
		return true
	})
	state.retireUnseen()
}

func lightPollSystem(state *LightCullingState) {
	state.Profiler.Measure("visibility", func() {
		state.Scheduler.Tick()
	})
}

func lightUploadSystem(state *LightCullingState) {
	var uploaded bool
	state.Profiler.Measure("upload", func() {
		// Failures are logged by the manager and retried next frame.
		uploaded, _ = state.Manager.UploadIfDirty()
	})
	if uploaded {
		bytes := state.Manager.Stats().BytesUploaded
		state.counters.Uploads++
		state.counters.UploadedBytes += int(bytes - state.lastBytes)
		state.lastBytes = bytes
	}
}

func lightDiagnosticsSystem(state *LightCullingState) {
	fc := state.counters
	fc.Frame = state.generation
	fc.Directional = state.Manager.Directional().Len()
	fc.PointSpot = state.Manager.PointSpot().Len()
	fc.Visibility = state.Profiler.Scopes["visibility"]
	fc.Upload = state.Profiler.Scopes["upload"]

	state.Profiler.SetCount("directional", fc.Directional)
	state.Profiler.SetCount("point/spot", fc.PointSpot)
	state.Profiler.SetCount("tracked", len(state.tracked))
	state.Profiler.SetCount("checks", fc.Checks)

	state.Reporter.Record(fc)
	state.counters = diag.FrameCounters{}
}

func (s *LightCullingState) track(id EntityId, rec core.LightRecord, pollEvery frame.Cadence) {
	cadence := s.Config.cadence()
	if pollEvery != 0 {
		if pollEvery.Valid() {
			cadence = pollEvery
		} else if _, known := s.tracked[id]; !known {
			s.logger.Warnf("light %d: unsupported poll interval %d, using %s", id, int(pollEvery), cadence)
		}
	}

	tl, ok := s.tracked[id]
	if ok && tl.poller.Cadence() != cadence {
		tl.poller.Close()
		ok = false
	}
	if !ok {
		tl = &trackedLight{}
		poller, err := visibility.New(visibility.Options{
			ID:        uint64(id),
			Cadence:   cadence,
			Scheduler: s.Scheduler,
			Source: visibility.SourceFunc(func() core.LightRecord {
				s.counters.Checks++
				return tl.record
			}),
			View:        s.Camera,
			Sink:        managerSink{s.Manager},
			Directional: s.Config.policy(),
		})
		if err != nil {
			s.logger.Errorf("light %d: %v", id, err)
			delete(s.tracked, id)
			return
		}
		tl.poller = poller
		s.tracked[id] = tl
	}
	tl.record = rec
	tl.seen = s.generation
}

// managerSink feeds poller transitions to the manager. Outcomes are
// counted in the manager's stats.
type managerSink struct {
	m *lightset.Manager
}

func (s managerSink) OnEnter(rec core.LightRecord)              { s.m.OnEnter(rec) }
func (s managerSink) OnExit(id uint64)                          { s.m.OnExit(id) }
func (s managerSink) OnRefresh(id uint64, rec core.LightRecord) { s.m.OnRefresh(id, rec) }

// retireUnseen closes the pollers of entities that were despawned or lost
// their light this frame. Visible ones leave the working set.
func (s *LightCullingState) retireUnseen() {
	for _, id := range s.trackedIds() {
		if tl := s.tracked[id]; tl.seen != s.generation {
			tl.poller.Close()
			delete(s.tracked, id)
		}
	}
}

func (s *LightCullingState) trackedIds() []EntityId {
	ids := make([]EntityId, 0, len(s.tracked))
	for id := range s.tracked {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Poller returns the poller tracking id, or nil.
func (s *LightCullingState) Poller(id EntityId) *visibility.Poller {
	if tl, ok := s.tracked[id]; ok {
		return tl.poller
	}
	return nil
}

func (s *LightCullingState) Tracked() int { return len(s.tracked) }

// Close retires every poller and releases the sink. Later calls do nothing.
func (s *LightCullingState) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, id := range s.trackedIds() {
		s.tracked[id].poller.Close()
		delete(s.tracked, id)
	}
	s.Manager.Release()
	s.logger.Infof("light pipeline stopped: %s", s.Manager.Stats())
}

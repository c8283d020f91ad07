package visibility

import (
	"errors"
	"fmt"

	"github.com/gekko3d/gekko-lights/lightrt/core"
	"github.com/gekko3d/gekko-lights/lightrt/frame"
)

type State int

const (
	Hidden State = iota
	Visible
)

func (s State) String() string {
	if s == Visible {
		return "visible"
	}
	return "hidden"
}

// DirectionalPolicy decides how directional lights are tested. Every
// poller in one pipeline uses the same policy.
type DirectionalPolicy int

const (
	// DirectionalAlwaysVisible treats directional lights as visible on
	// every check; they light the whole scene.
	DirectionalAlwaysVisible DirectionalPolicy = iota
	// DirectionalFrustumTested runs the same sphere test as point and spot
	// lights, centered on the directional light's position.
	DirectionalFrustumTested
)

func (p DirectionalPolicy) String() string {
	switch p {
	case DirectionalAlwaysVisible:
		return "always"
	case DirectionalFrustumTested:
		return "frustum"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseDirectionalPolicy accepts "always" and "frustum".
func ParseDirectionalPolicy(s string) (DirectionalPolicy, error) {
	switch s {
	case "", "always":
		return DirectionalAlwaysVisible, nil
	case "frustum":
		return DirectionalFrustumTested, nil
	}
	return 0, fmt.Errorf("unknown directional policy %q", s)
}

// Source yields the current state of one light. It is read, never written.
type Source interface {
	LightRecord() core.LightRecord
}

// SourceFunc adapts a function to Source.
type SourceFunc func() core.LightRecord

func (f SourceFunc) LightRecord() core.LightRecord { return f() }

// Sink receives visibility transitions.
type Sink interface {
	OnEnter(rec core.LightRecord)
	OnExit(id uint64)
	OnRefresh(id uint64, rec core.LightRecord)
}

type Options struct {
	ID          uint64
	Cadence     frame.Cadence
	Scheduler   *frame.Scheduler
	Source      Source
	View        core.View
	Sink        Sink
	Directional DirectionalPolicy
}

var errMissingCollaborator = errors.New("visibility: missing collaborator")

// Poller tracks whether one light is inside the camera frustum and reports
// transitions to its sink at a fixed cadence.
type Poller struct {
	id          uint64
	cadence     frame.Cadence
	scheduler   *frame.Scheduler
	source      Source
	view        core.View
	sink        Sink
	directional DirectionalPolicy

	sub        frame.Subscription
	subscribed bool

	state      State
	wasVisible bool
	lastTick   int
	checks     uint64
}

// New resolves the poller's collaborators and subscribes it to the
// scheduler at opts.Cadence.
func New(opts Options) (*Poller, error) {
	switch {
	case opts.Scheduler == nil:
		return nil, fmt.Errorf("%w: scheduler", errMissingCollaborator)
	case opts.Source == nil:
		return nil, fmt.Errorf("%w: source", errMissingCollaborator)
	case opts.View == nil:
		return nil, fmt.Errorf("%w: view", errMissingCollaborator)
	case opts.Sink == nil:
		return nil, fmt.Errorf("%w: sink", errMissingCollaborator)
	}

	p := &Poller{
		id:          opts.ID,
		cadence:     opts.Cadence,
		scheduler:   opts.Scheduler,
		source:      opts.Source,
		view:        opts.View,
		sink:        opts.Sink,
		directional: opts.Directional,
		state:       Hidden,
	}

	sub, err := opts.Scheduler.Subscribe(opts.Cadence, p.CheckVisibility)
	if err != nil {
		return nil, fmt.Errorf("visibility: light %d: %w", opts.ID, err)
	}
	p.sub = sub
	p.subscribed = true
	return p, nil
}

// CheckVisibility runs one frustum test and reports the resulting
// transition. The scheduler calls it; tests may call it directly.
func (p *Poller) CheckVisibility(tick int) {
	rec := p.source.LightRecord()
	rec.ID = p.id

	inside := p.inFrustum(rec)

	switch {
	case inside && p.state == Hidden:
		p.state = Visible
		p.sink.OnEnter(rec)
	case inside && p.state == Visible:
		p.sink.OnRefresh(p.id, rec)
	case !inside && p.state == Visible:
		p.state = Hidden
		p.sink.OnExit(p.id)
	}

	p.wasVisible = p.state == Visible
	p.lastTick = tick
	p.checks++
}

func (p *Poller) inFrustum(rec core.LightRecord) bool {
	if rec.Kind.IsDirectional() && p.directional == DirectionalAlwaysVisible {
		return true
	}
	return p.view.Frustum().ContainsSphere(rec.Position, rec.Range)
}

// Close unsubscribes the poller. A visible light is reported as exited so
// it leaves the working set. Close is idempotent.
func (p *Poller) Close() {
	if !p.subscribed {
		return
	}
	p.scheduler.Unsubscribe(p.sub)
	p.subscribed = false

	if p.state == Visible {
		p.state = Hidden
		p.wasVisible = false
		p.sink.OnExit(p.id)
	}
}

func (p *Poller) ID() uint64             { return p.id }
func (p *Poller) Cadence() frame.Cadence { return p.cadence }
func (p *Poller) State() State           { return p.state }

// WasPreviouslyVisible reports the outcome of the last completed check.
func (p *Poller) WasPreviouslyVisible() bool { return p.wasVisible }

// LastTick is the scheduler tick of the last check, 0 before the first.
func (p *Poller) LastTick() int { return p.lastTick }

// Checks counts completed visibility checks.
func (p *Poller) Checks() uint64 { return p.checks }

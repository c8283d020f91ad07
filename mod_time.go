package gekko

import (
	"time"
)

// Time is the frame clock. Frame starts at 1 on the first Step.
type Time struct {
	Time  time.Time
	Dt    time.Duration
	Frame uint64
}

type TimeModule struct {
	// Now replaces time.Now, for deterministic tests.
	Now func() time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	now := mod.Now
	if now == nil {
		now = time.Now
	}
	cmd.AddResources(&Time{
		Time: now(),
		Dt:   0,
	})
	cmd.UseSystem(System(func(timeResource *Time) {
		timeSystem(timeResource, now())
	}).InStage(PreUpdate))
}

func timeSystem(timeResource *Time, now time.Time) {
	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Time = now
	timeResource.Frame++
}

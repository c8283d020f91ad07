package diag

import (
	"fmt"
	"time"
)

// FrameCounters is what the light pipeline did in one frame.
type FrameCounters struct {
	Frame         uint64
	Directional   int // resident directional lights
	PointSpot     int // resident point and spot lights
	Checks        int // visibility checks run this frame
	Uploads       int
	UploadedBytes int
	Visibility    time.Duration
	Upload        time.Duration
}

// Logger is satisfied by the engine logger.
type Logger interface {
	Infof(format string, args ...any)
}

// Reporter folds FrameCounters over a window of frames and logs one summary
// line at the end of each window.
type Reporter struct {
	Interval int
	Logger   Logger

	window  Window
	last    Window
	reports int
}

// Window aggregates FrameCounters over consecutive frames.
type Window struct {
	Frames        int
	FirstFrame    uint64
	LastFrame     uint64
	Directional   int // at the last frame
	PointSpot     int
	Checks        int
	Uploads       int
	UploadedBytes int
	Visibility    time.Duration
	Upload        time.Duration
}

func (w Window) String() string {
	if w.Frames == 0 {
		return "no frames"
	}
	avg := func(d time.Duration) float64 {
		return float64(d.Microseconds()) / 1000.0 / float64(w.Frames)
	}
	return fmt.Sprintf("frames %d-%d: directional=%d point/spot=%d checks=%d uploads=%d bytes=%d visibility=%.3fms upload=%.3fms",
		w.FirstFrame, w.LastFrame, w.Directional, w.PointSpot, w.Checks, w.Uploads, w.UploadedBytes,
		avg(w.Visibility), avg(w.Upload))
}

func NewReporter(interval int, logger Logger) *Reporter {
	return &Reporter{Interval: interval, Logger: logger}
}

// Record adds one frame and reports whether it closed a window. An
// Interval of zero or less disables logging but keeps aggregating.
func (r *Reporter) Record(fc FrameCounters) bool {
	w := &r.window
	if w.Frames == 0 {
		w.FirstFrame = fc.Frame
	}
	w.Frames++
	w.LastFrame = fc.Frame
	w.Directional = fc.Directional
	w.PointSpot = fc.PointSpot
	w.Checks += fc.Checks
	w.Uploads += fc.Uploads
	w.UploadedBytes += fc.UploadedBytes
	w.Visibility += fc.Visibility
	w.Upload += fc.Upload

	if r.Interval <= 0 || w.Frames < r.Interval {
		return false
	}
	r.last = *w
	r.window = Window{}
	r.reports++
	if r.Logger != nil {
		r.Logger.Infof("lights %s", r.last)
	}
	return true
}

// Last returns the most recently closed window.
func (r *Reporter) Last() Window { return r.last }

// Current returns the window being aggregated.
func (r *Reporter) Current() Window { return r.window }

func (r *Reporter) Reports() int { return r.reports }

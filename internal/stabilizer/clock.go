package stabilizer

import (
	"math"
	"time"
)

// DefaultFrameInterval is the nominal render tick (60 fps).
const DefaultFrameInterval = time.Second / 60

const (
	// Observed intervals outside this range are clamped before averaging so a
	// single stalled frame cannot stretch every lock window.
	minFrameInterval = time.Millisecond
	maxFrameInterval = 250 * time.Millisecond

	// frameIntervalSmoothing is the EMA weight given to each new observation.
	frameIntervalSmoothing = 0.1
)

// Clock converts wall-clock windows into frame counts.
//
// Buffer capacities are sized once from the nominal interval (NominalFrames).
// Lock thresholds are re-derived every frame from the averaged observed
// interval (Frames), so a slower render loop still holds a 10 s lock for
// roughly 10 s.
type Clock struct {
	nominal  time.Duration
	avg      float64 // nanoseconds
	observed bool
}

// NewClock creates a clock with the given nominal frame interval.
// A non-positive interval selects DefaultFrameInterval.
func NewClock(nominal time.Duration) *Clock {
	if nominal <= 0 {
		nominal = DefaultFrameInterval
	}
	return &Clock{nominal: nominal, avg: float64(nominal)}
}

// Observe feeds the measured duration of the last frame into the average.
func (c *Clock) Observe(dt time.Duration) {
	if dt <= 0 {
		return
	}
	if dt < minFrameInterval {
		dt = minFrameInterval
	}
	if dt > maxFrameInterval {
		dt = maxFrameInterval
	}
	if !c.observed {
		c.avg = float64(dt)
		c.observed = true
		return
	}
	c.avg += frameIntervalSmoothing * (float64(dt) - c.avg)
}

// Nominal returns the configured frame interval.
func (c *Clock) Nominal() time.Duration {
	return c.nominal
}

// FrameInterval returns the averaged observed frame interval.
func (c *Clock) FrameInterval() time.Duration {
	return time.Duration(math.Round(c.avg))
}

// Frames converts d into a frame count using the observed interval.
// The result is at least 1 for any positive duration.
func (c *Clock) Frames(d time.Duration) int {
	return framesFor(d, c.avg)
}

// NominalFrames converts d into a frame count using the nominal interval.
func (c *Clock) NominalFrames(d time.Duration) int {
	return framesFor(d, float64(c.nominal))
}

// Reset forgets every observation.
func (c *Clock) Reset() {
	c.avg = float64(c.nominal)
	c.observed = false
}

func framesFor(d time.Duration, interval float64) int {
	if d <= 0 || interval <= 0 {
		return 0
	}
	n := int(math.Round(float64(d) / interval))
	if n < 1 {
		n = 1
	}
	return n
}

package monitoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/timeutil"
)

// StageTiming is the wall-clock duration of one named pipeline stage.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Millis returns the duration in fractional milliseconds.
func (s StageTiming) Millis() float64 {
	return float64(s.Duration) / float64(time.Millisecond)
}

// Timer records consecutive stage durations for a single frame.
// A Timer is not safe for concurrent use.
type Timer struct {
	clock  timeutil.Clock
	last   time.Time
	stages []StageTiming
}

// NewTimer starts a timer at the current time.
func NewTimer() *Timer {
	return NewTimerWithClock(timeutil.RealClock{})
}

// NewTimerWithClock starts a timer on the given clock.
func NewTimerWithClock(clock timeutil.Clock) *Timer {
	return &Timer{clock: clock, last: clock.Now()}
}

// Mark closes the current stage under the given name and starts the next one.
func (t *Timer) Mark(stage string) time.Duration {
	now := t.clock.Now()
	d := now.Sub(t.last)
	t.last = now
	t.stages = append(t.stages, StageTiming{Stage: stage, Duration: d})
	return d
}

// Stages returns a copy of the recorded stages in order.
func (t *Timer) Stages() []StageTiming {
	out := make([]StageTiming, len(t.stages))
	copy(out, t.stages)
	return out
}

// Total is the sum of all recorded stages.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, s := range t.stages {
		total += s.Duration
	}
	return total
}

// String renders the stages as "name=1.23ms" pairs.
func (t *Timer) String() string {
	parts := make([]string, 0, len(t.stages))
	for _, s := range t.stages {
		parts = append(parts, fmt.Sprintf("%s=%.2fms", s.Stage, s.Millis()))
	}
	return strings.Join(parts, " ")
}

// Log writes the recorded stages through Logf with the given prefix.
func (t *Timer) Log(prefix string) {
	Logf("%s %s total=%.2fms", prefix, t.String(), float64(t.Total())/float64(time.Millisecond))
}

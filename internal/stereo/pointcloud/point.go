package pointcloud

import (
	"fmt"
	"math"
)

// Point is a 3D point in the vehicle (velodyne) frame, in metres.
// X points forward, Y left, Z up.
type Point struct {
	X, Y, Z float64
}

// Cloud is an ordered sequence of vehicle-frame points.
type Cloud []Point

// Clone returns an independent copy of the cloud.
func (c Cloud) Clone() Cloud {
	if c == nil {
		return nil
	}
	out := make(Cloud, len(c))
	copy(out, c)
	return out
}

// NumericInvariantError reports a NaN or infinite coordinate in a cloud that
// should only ever contain finite values.
type NumericInvariantError struct {
	Index int
	Point Point
	Stage string
}

func (e *NumericInvariantError) Error() string {
	return fmt.Sprintf("non-finite point at index %d after %s: (%v, %v, %v)",
		e.Index, e.Stage, e.Point.X, e.Point.Y, e.Point.Z)
}

// CheckFinite returns a *NumericInvariantError for the first point with a
// NaN or infinite coordinate. stage names the producer for the message.
func CheckFinite(c Cloud, stage string) error {
	for i, p := range c {
		if !isFinite(p.X) || !isFinite(p.Y) || !isFinite(p.Z) {
			return &NumericInvariantError{Index: i, Point: p, Stage: stage}
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

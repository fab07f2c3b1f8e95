// Package geometry implements the pure 2-D geometry kernel shared by the
// planner and robot: points, line segments, distance/projection math, and
// angle normalization. No package-level state; every function is a pure
// mapping from its inputs.
package geometry

import "math"

// degenerateLength is the segment-length threshold below which a segment
// is treated as a single point (spec.md §4.G).
const degenerateLength = 1e-6

// Point is a location in meters.
type Point struct {
	X float64
	Y float64
}

// Segment is a directed line from Start to End.
type Segment struct {
	Start Point
	End   Point
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Hypot(dx, dy)
}

// Length returns the segment's Euclidean length.
func (s Segment) Length() float64 {
	return Distance(s.Start, s.End)
}

// Angle returns atan2(Δy, Δx) for the segment, in radians.
func (s Segment) Angle() float64 {
	return math.Atan2(s.End.Y-s.Start.Y, s.End.X-s.Start.X)
}

// Degenerate reports whether the segment's length is below the threshold
// at which Start and End are treated as coincident.
func (s Segment) Degenerate() bool {
	return s.Length() < degenerateLength
}

// ClosestPointOnSegment returns the point on seg closest to p, via the
// clamped projection parameter t = ((p-start)·(end-start)) / |end-start|^2.
// Degenerate segments always return Start.
func ClosestPointOnSegment(seg Segment, p Point) Point {
	if seg.Degenerate() {
		return seg.Start
	}

	dx := seg.End.X - seg.Start.X
	dy := seg.End.Y - seg.Start.Y
	lenSq := dx*dx + dy*dy

	t := ((p.X-seg.Start.X)*dx + (p.Y-seg.Start.Y)*dy) / lenSq
	t = clamp(t, 0, 1)

	return Point{
		X: seg.Start.X + t*dx,
		Y: seg.Start.Y + t*dy,
	}
}

// DistancePointToSegment is Distance(p, ClosestPointOnSegment(seg, p)).
func DistancePointToSegment(seg Segment, p Point) float64 {
	return Distance(p, ClosestPointOnSegment(seg, p))
}

// NormalizeAngleDeg folds a into (-180, 180].
func NormalizeAngleDeg(a float64) float64 {
	for a <= -180 {
		a += 360
	}
	for a > 180 {
		a -= 360
	}
	return a
}

// NormalizeAngleRad folds a into (-π, π].
func NormalizeAngleRad(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// cardinalAnglesDeg are the four snap targets for SnapAngleToCardinal.
var cardinalAnglesDeg = [4]float64{0, 90, 180, 270}

// SnapAngleToCardinal returns the nearest of {0, 90, 180, 270} to a, under
// the (-180, 180] normalization.
func SnapAngleToCardinal(a float64) float64 {
	a = NormalizeAngleDeg(a)
	best := cardinalAnglesDeg[0]
	bestDiff := math.Abs(NormalizeAngleDeg(a - best))
	for _, c := range cardinalAnglesDeg[1:] {
		diff := math.Abs(NormalizeAngleDeg(a - c))
		if diff < bestDiff {
			best = c
			bestDiff = diff
		}
	}
	return NormalizeAngleDeg(best)
}

// SnapLengthAngle rounds the candidate endpoint to the nearest positive
// multiple of stepLen (minimum stepLen) for distance from start, and the
// nearest multiple of stepDeg for heading, then reconstructs the endpoint.
func SnapLengthAngle(start, candidate Point, stepLen, stepDeg float64) Point {
	dist := Distance(start, candidate)
	steps := math.Round(dist / stepLen)
	if steps < 1 {
		steps = 1
	}
	snappedLen := steps * stepLen

	angleDeg := math.Atan2(candidate.Y-start.Y, candidate.X-start.X) * 180 / math.Pi
	snappedAngleDeg := math.Round(angleDeg/stepDeg) * stepDeg
	snappedAngleRad := snappedAngleDeg * math.Pi / 180

	return Point{
		X: start.X + snappedLen*math.Cos(snappedAngleRad),
		Y: start.Y + snappedLen*math.Sin(snappedAngleRad),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

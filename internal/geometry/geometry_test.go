package geometry

import (
	"math"
	"testing"
)

func TestDistancePointToSegmentBounds(t *testing.T) {
	seg := Segment{Start: Point{X: 0, Y: 0}, End: Point{X: 4, Y: 0}}
	p := Point{X: 2, Y: 3}

	d := DistancePointToSegment(seg, p)
	toStart := Distance(p, seg.Start)
	toEnd := Distance(p, seg.End)

	if d > toStart+1e-9 {
		t.Errorf("distance to segment %f exceeds distance to start %f", d, toStart)
	}
	if d > toEnd+1e-9 {
		t.Errorf("distance to segment %f exceeds distance to end %f", d, toEnd)
	}
}

func TestClosestPointProjectionRange(t *testing.T) {
	seg := Segment{Start: Point{X: 0, Y: 0}, End: Point{X: 10, Y: 0}}
	q := ClosestPointOnSegment(seg, Point{X: 5, Y: 5})

	dx := seg.End.X - seg.Start.X
	dy := seg.End.Y - seg.Start.Y
	dot := (q.X-seg.Start.X)*dx + (q.Y-seg.Start.Y)*dy
	lenSq := dx*dx + dy*dy

	if dot < -1e-9 || dot > lenSq+1e-9 {
		t.Errorf("projection %f out of range [0, %f]", dot, lenSq)
	}
}

func TestDegenerateSegmentReturnsStart(t *testing.T) {
	seg := Segment{Start: Point{X: 1, Y: 1}, End: Point{X: 1 + 1e-9, Y: 1}}
	q := ClosestPointOnSegment(seg, Point{X: 5, Y: 5})
	if q != seg.Start {
		t.Errorf("expected degenerate segment to return Start, got %v", q)
	}
}

func TestNormalizeAngleDegRange(t *testing.T) {
	cases := []float64{-540, -181, -180, 0, 180, 181, 540, 721}
	for _, a := range cases {
		n := NormalizeAngleDeg(a)
		if n <= -180 || n > 180 {
			t.Errorf("NormalizeAngleDeg(%f) = %f out of (-180, 180]", a, n)
		}
	}
}

func TestNormalizeAngleDegPeriodic(t *testing.T) {
	for k := -3; k <= 3; k++ {
		a := 37.5
		got := NormalizeAngleDeg(a + 360*float64(k))
		want := NormalizeAngleDeg(a)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("NormalizeAngleDeg(%f) = %f, want %f (k=%d)", a+360*float64(k), got, want, k)
		}
	}
}

func TestSnapAngleToCardinal(t *testing.T) {
	cases := map[float64]float64{
		10:  0,
		80:  90,
		100: 90,
		185: 180,
		-10: 0,
		269: -90,
		-91: -90,
	}
	for in, want := range cases {
		got := SnapAngleToCardinal(in)
		if got != want {
			t.Errorf("SnapAngleToCardinal(%f) = %f, want %f", in, got, want)
		}
	}
}

func TestSnapLengthAngleRoundsToGrid(t *testing.T) {
	start := Point{X: 0, Y: 0}
	candidate := Point{X: 23, Y: 1}
	p := SnapLengthAngle(start, candidate, 10, 90)

	d := Distance(start, p)
	if math.Abs(d-20) > 1e-9 {
		t.Errorf("expected snapped length 20, got %f", d)
	}
	if math.Abs(p.Y) > 1e-9 {
		t.Errorf("expected snapped angle to flatten Y to 0, got %f", p.Y)
	}
}

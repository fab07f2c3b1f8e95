package mapmodel

import (
	"math"
	"testing"

	"github.com/omniplanner/pathbridge/internal/geometry"
)

func TestMapDataRoundTrip(t *testing.T) {
	m := MapData{
		Name:     "M",
		GridSize: 0.5,
		Lines: []geometry.Segment{
			{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 1, Y: 0}},
		},
	}

	data, err := EncodeMapData(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMapData(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Name != m.Name || got.GridSize != m.GridSize {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, m)
	}
	if len(got.Lines) != 1 || got.Lines[0] != m.Lines[0] {
		t.Errorf("line round-trip mismatch: got %+v", got.Lines)
	}
}

func TestMapDataLengthHintEmitted(t *testing.T) {
	m := MapData{
		Name: "M",
		Lines: []geometry.Segment{
			{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 1, Y: 0}},
		},
	}
	data, err := EncodeMapData(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !contains(data, `"length":1`) {
		t.Errorf("expected length hint 1.0 in %s", data)
	}
}

func TestWaypointHeadingFromDegrees(t *testing.T) {
	input := []byte(`{"x":1,"y":2,"theta":90,"velocity":0.5}`)
	wp, err := decodeSingleWaypoint(input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if math.Abs(wp.Heading-math.Pi/2) > 1e-9 {
		t.Errorf("heading = %f, want ~pi/2", wp.Heading)
	}
	if wp.Velocity != 0.5 {
		t.Errorf("velocity = %f, want 0.5", wp.Velocity)
	}

	reencoded := toWireWaypoint(wp)
	if reencoded.ThetaRad == nil || math.Abs(*reencoded.ThetaRad-math.Pi/2) > 1e-7 {
		t.Errorf("re-encoded theta_rad missing/wrong: %+v", reencoded.ThetaRad)
	}
	if reencoded.Theta == nil || math.Abs(*reencoded.Theta-90) > 1e-7 {
		t.Errorf("re-encoded theta missing/wrong: %+v", reencoded.Theta)
	}
}

func TestWaypointHeadingPrecedence(t *testing.T) {
	// theta_rad wins over theta/heading_deg/heading when multiple are present.
	input := []byte(`{"x":0,"y":0,"theta_rad":1.0,"theta":45,"heading_deg":10,"heading":2.0}`)
	wp, err := decodeSingleWaypoint(input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if math.Abs(wp.Heading-1.0) > 1e-12 {
		t.Errorf("expected theta_rad to win, got heading=%f", wp.Heading)
	}
}

func TestAddThenRemoveWaypointIsNoop(t *testing.T) {
	p := Path{Name: "P", Waypoints: []Waypoint{
		{Position: geometry.Point{X: 0, Y: 0}},
		{Position: geometry.Point{X: 1, Y: 0}},
	}}
	inserted := InsertWaypoint(p, 1, Waypoint{Position: geometry.Point{X: 5, Y: 5}})
	removed := RemoveWaypoint(inserted, 1)

	if len(removed.Waypoints) != len(p.Waypoints) {
		t.Fatalf("expected %d waypoints, got %d", len(p.Waypoints), len(removed.Waypoints))
	}
	for i := range p.Waypoints {
		if removed.Waypoints[i] != p.Waypoints[i] {
			t.Errorf("waypoint %d mismatch: got %+v, want %+v", i, removed.Waypoints[i], p.Waypoints[i])
		}
	}
}

func TestPathCollectionUpsertDedup(t *testing.T) {
	c := NewPathCollection()
	c.Upsert(Path{Name: "P", Waypoints: []Waypoint{{Position: geometry.Point{X: 0, Y: 0}}}})
	c.Upsert(Path{Name: "P", Waypoints: []Waypoint{{Position: geometry.Point{X: 9, Y: 9}}}})

	if len(c.Paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(c.Paths))
	}
	if c.Paths[0].Waypoints[0].Position.X != 9 {
		t.Errorf("expected second sendPath to win, got %+v", c.Paths[0])
	}
}

func TestActivePathIndexClampedOnMutation(t *testing.T) {
	c := NewPathCollection()
	c.Upsert(Path{Name: "A"})
	c.Upsert(Path{Name: "B"})
	c.ActivePathIndex = 1

	c.Paths = c.Paths[:1]
	c.clampActiveIndex()

	if c.ActivePathIndex != 0 {
		t.Errorf("expected clamp to 0, got %d", c.ActivePathIndex)
	}
}

func decodeSingleWaypoint(data []byte) (Waypoint, error) {
	path, err := DecodePath([]byte(`{"name":"x","waypoints":[` + string(data) + `]}`))
	if err != nil {
		return Waypoint{}, err
	}
	return path.Waypoints[0], nil
}

func contains(data []byte, sub string) bool {
	return len(data) >= len(sub) && indexOf(string(data), sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// Package mapmodel defines the persisted/wire data model shared by the
// planner and robot: maps, reference points, waypoints, paths, and path
// collections (spec.md §4.M). Types here are plain data; JSON marshaling
// lives in codec.go and file I/O in file.go.
package mapmodel

import "github.com/omniplanner/pathbridge/internal/geometry"

// ReferencePoint is a named anchor, optionally carrying a heading.
type ReferencePoint struct {
	Position   geometry.Point
	Name       string
	Heading    float64 // radians
	HasHeading bool
}

// RobotShape is the footprint used for display/collision purposes.
type RobotShape int

const (
	ShapeRectangle RobotShape = iota
	ShapeSquare
	ShapeTriangle
)

func (s RobotShape) String() string {
	switch s {
	case ShapeRectangle:
		return "rectangle"
	case ShapeSquare:
		return "square"
	case ShapeTriangle:
		return "triangle"
	default:
		return "rectangle"
	}
}

// ParseRobotShape maps a wire string to a RobotShape, defaulting to
// Rectangle for unrecognized values.
func ParseRobotShape(s string) RobotShape {
	switch s {
	case "square":
		return ShapeSquare
	case "triangle":
		return ShapeTriangle
	default:
		return ShapeRectangle
	}
}

// RobotPose is the robot's position, heading and footprint.
type RobotPose struct {
	Position geometry.Point
	Heading  float64 // CCW radians, 0 along +X
	Shape    RobotShape
	Width    float64
	Length   float64
}

// Waypoint is an authored pose plus advisory max linear velocity.
type Waypoint struct {
	Position geometry.Point
	Heading  float64 // radians
	Velocity float64 // m/s, advisory
}

// MapData is the planner's editable wall/reference-point map. Origin is
// always (0,0); spec.md §3 treats a persisted non-zero origin as cosmetic
// and re-anchors it on load.
type MapData struct {
	Name            string
	GridSize        float64
	Lines           []geometry.Segment
	ReferencePoints []ReferencePoint
}

// Path is a named, ordered sequence of waypoints.
type Path struct {
	Name      string
	Color     string // display-only
	Visible   bool   // display-only
	Waypoints []Waypoint
}

// TotalLength sums the Euclidean distance between consecutive waypoints.
func (p Path) TotalLength() float64 {
	total := 0.0
	for i := 1; i < len(p.Waypoints); i++ {
		total += geometry.Distance(p.Waypoints[i-1].Position, p.Waypoints[i].Position)
	}
	return total
}

// PathCollection is the robot's/planner's ordered set of named paths, with
// at most one "active" path for editing/display purposes.
type PathCollection struct {
	Paths           []Path
	ActivePathIndex int // -1 if empty
}

// NewPathCollection returns an empty collection with ActivePathIndex -1.
func NewPathCollection() PathCollection {
	return PathCollection{ActivePathIndex: -1}
}

// clampActiveIndex sets ActivePathIndex to -1 for an empty collection and
// clamps an index >= len(Paths) to len(Paths)-1. Negative indices on a
// non-empty collection are left unchanged.
func (c *PathCollection) clampActiveIndex() {
	if len(c.Paths) == 0 {
		c.ActivePathIndex = -1
		return
	}
	if c.ActivePathIndex >= len(c.Paths) {
		c.ActivePathIndex = len(c.Paths) - 1
	}
}

// Upsert replaces the path with a matching name in place, or appends it as
// a new path otherwise (spec.md §3 lifecycle rule for the robot's store).
func (c *PathCollection) Upsert(p Path) {
	for i := range c.Paths {
		if c.Paths[i].Name == p.Name {
			c.Paths[i] = p
			c.clampActiveIndex()
			return
		}
	}
	c.Paths = append(c.Paths, p)
	c.clampActiveIndex()
}

// ByName returns the path with the given name and whether it was found.
func (c PathCollection) ByName(name string) (Path, bool) {
	for _, p := range c.Paths {
		if p.Name == name {
			return p, true
		}
	}
	return Path{}, false
}

// RemoveWaypoint deletes the waypoint at idx from p's Waypoints, returning
// the updated Path. Out-of-range idx is a no-op.
func RemoveWaypoint(p Path, idx int) Path {
	if idx < 0 || idx >= len(p.Waypoints) {
		return p
	}
	out := make([]Waypoint, 0, len(p.Waypoints)-1)
	out = append(out, p.Waypoints[:idx]...)
	out = append(out, p.Waypoints[idx+1:]...)
	p.Waypoints = out
	return p
}

// InsertWaypoint inserts wp at idx into p's Waypoints, returning the
// updated Path. idx == len(Waypoints) appends.
func InsertWaypoint(p Path, idx int, wp Waypoint) Path {
	if idx < 0 || idx > len(p.Waypoints) {
		idx = len(p.Waypoints)
	}
	out := make([]Waypoint, 0, len(p.Waypoints)+1)
	out = append(out, p.Waypoints[:idx]...)
	out = append(out, wp)
	out = append(out, p.Waypoints[idx:]...)
	p.Waypoints = out
	return p
}

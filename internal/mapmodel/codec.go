package mapmodel

import (
	"encoding/json"
	"math"

	"github.com/omniplanner/pathbridge/internal/geometry"
)

// Wire DTOs mirror the JSON schema in spec.md §4.M exactly; domain types in
// types.go never carry json tags directly so that wire-format quirks (the
// waypoint heading precedence chain, degrees-vs-radians) stay isolated here.

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireSegment struct {
	Start  wirePoint `json:"start"`
	End    wirePoint `json:"end"`
	Length float64   `json:"length,omitempty"`
	Angle  float64   `json:"angle,omitempty"`
}

type wireReferencePoint struct {
	Position   wirePoint `json:"position"`
	Name       string    `json:"name"`
	HasHeading bool      `json:"hasHeading"`
	Heading    float64   `json:"heading,omitempty"` // degrees
}

type wireMapData struct {
	Name            string               `json:"name"`
	GridSize        *float64             `json:"gridSize,omitempty"`
	Lines           []wireSegment        `json:"lines"`
	ReferencePoints []wireReferencePoint `json:"referencePoints"`
}

// wireWaypoint carries every heading alias the wire format tolerates; the
// precedence order on decode is theta_rad -> theta (deg) -> heading_deg
// (deg) -> heading (rad legacy), per spec.md §4.M.
type wireWaypoint struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	ThetaRad   *float64 `json:"theta_rad,omitempty"`
	Theta      *float64 `json:"theta,omitempty"`
	HeadingDeg *float64 `json:"heading_deg,omitempty"`
	Heading    *float64 `json:"heading,omitempty"`
	Velocity   *float64 `json:"velocity,omitempty"`
}

type wirePath struct {
	Name      string         `json:"name"`
	Color     string         `json:"color,omitempty"`
	Visible   *bool          `json:"visible,omitempty"`
	Waypoints []wireWaypoint `json:"waypoints"`
}

// wirePathCollection additionally carries informational metadata fields
// (spec.md §6); they are emitted on encode but never drive decode.
type wirePathCollection struct {
	Version           string     `json:"version"`
	Paths             []wirePath `json:"paths"`
	ActivePathIndex   *int       `json:"activePathIndex,omitempty"`
	Description       string     `json:"description,omitempty"`
	Units             string     `json:"units,omitempty"`
	CoordinateSystem  string     `json:"coordinate_system,omitempty"`
	TotalPaths        int        `json:"total_paths,omitempty"`
	PathIndex         int        `json:"path_index,omitempty"`
	PathLengthMeters  float64    `json:"path_length_meters,omitempty"`
	WaypointCount     int        `json:"waypoint_count,omitempty"`
}

func toWirePoint(p geometry.Point) wirePoint { return wirePoint{X: p.X, Y: p.Y} }
func fromWirePoint(w wirePoint) geometry.Point { return geometry.Point{X: w.X, Y: w.Y} }

func toWireSegment(s geometry.Segment) wireSegment {
	return wireSegment{
		Start:  toWirePoint(s.Start),
		End:    toWirePoint(s.End),
		Length: s.Length(),
		Angle:  s.Angle() * 180 / math.Pi,
	}
}

func fromWireSegment(w wireSegment) geometry.Segment {
	// Endpoints are truth; length/angle are hints only (spec.md §4.M).
	return geometry.Segment{Start: fromWirePoint(w.Start), End: fromWirePoint(w.End)}
}

func toWireReferencePoint(r ReferencePoint) wireReferencePoint {
	w := wireReferencePoint{
		Position:   toWirePoint(r.Position),
		Name:       r.Name,
		HasHeading: r.HasHeading,
	}
	if r.HasHeading {
		w.Heading = r.Heading * 180 / math.Pi
	}
	return w
}

func fromWireReferencePoint(w wireReferencePoint) ReferencePoint {
	r := ReferencePoint{
		Position:   fromWirePoint(w.Position),
		Name:       w.Name,
		HasHeading: w.HasHeading,
	}
	if w.HasHeading {
		r.Heading = w.Heading * math.Pi / 180
	}
	return r
}

// EncodeMapData converts a MapData into JSON bytes per the wire schema.
func EncodeMapData(m MapData) ([]byte, error) {
	return json.Marshal(toWireMapData(m))
}

func toWireMapData(m MapData) wireMapData {
	grid := m.GridSize
	w := wireMapData{
		Name:     m.Name,
		GridSize: &grid,
	}
	for _, s := range m.Lines {
		w.Lines = append(w.Lines, toWireSegment(s))
	}
	for _, r := range m.ReferencePoints {
		w.ReferencePoints = append(w.ReferencePoints, toWireReferencePoint(r))
	}
	return w
}

// DecodeMapData parses JSON bytes into a MapData. The origin is always
// re-anchored to (0,0) regardless of what the file contained (spec.md §3).
func DecodeMapData(data []byte) (MapData, error) {
	var w wireMapData
	if err := json.Unmarshal(data, &w); err != nil {
		return MapData{}, errMalformed(err)
	}
	return fromWireMapData(w), nil
}

func fromWireMapData(w wireMapData) MapData {
	m := MapData{Name: w.Name, GridSize: 1.0}
	if w.GridSize != nil {
		m.GridSize = *w.GridSize
	}
	for _, s := range w.Lines {
		m.Lines = append(m.Lines, fromWireSegment(s))
	}
	for _, r := range w.ReferencePoints {
		m.ReferencePoints = append(m.ReferencePoints, fromWireReferencePoint(r))
	}
	return m
}

// toWireWaypoint converts a Waypoint to its wire form, emitting both
// theta_rad and theta (deg) so any reader's precedence chain agrees.
func toWireWaypoint(wp Waypoint) wireWaypoint {
	thetaRad := wp.Heading
	thetaDeg := wp.Heading * 180 / math.Pi
	vel := wp.Velocity
	return wireWaypoint{
		X:        wp.Position.X,
		Y:        wp.Position.Y,
		ThetaRad: &thetaRad,
		Theta:    &thetaDeg,
		Velocity: &vel,
	}
}

func fromWireWaypoint(w wireWaypoint) Waypoint {
	wp := Waypoint{
		Position: geometry.Point{X: w.X, Y: w.Y},
		Velocity: 1.0,
	}
	switch {
	case w.ThetaRad != nil:
		wp.Heading = *w.ThetaRad
	case w.Theta != nil:
		wp.Heading = *w.Theta * math.Pi / 180
	case w.HeadingDeg != nil:
		wp.Heading = *w.HeadingDeg * math.Pi / 180
	case w.Heading != nil:
		wp.Heading = *w.Heading
	}
	if w.Velocity != nil {
		wp.Velocity = *w.Velocity
	}
	return wp
}

func toWirePath(p Path) wirePath {
	visible := p.Visible
	w := wirePath{Name: p.Name, Color: p.Color, Visible: &visible}
	for _, wp := range p.Waypoints {
		w.Waypoints = append(w.Waypoints, toWireWaypoint(wp))
	}
	return w
}

func fromWirePath(w wirePath) Path {
	p := Path{Name: w.Name, Color: w.Color, Visible: true}
	if w.Visible != nil {
		p.Visible = *w.Visible
	}
	for _, wp := range w.Waypoints {
		p.Waypoints = append(p.Waypoints, fromWireWaypoint(wp))
	}
	return p
}

// EncodePath converts a Path into JSON bytes per the wire schema.
func EncodePath(p Path) ([]byte, error) {
	return json.Marshal(toWirePath(p))
}

// DecodePath parses JSON bytes into a Path.
func DecodePath(data []byte) (Path, error) {
	var w wirePath
	if err := json.Unmarshal(data, &w); err != nil {
		return Path{}, errMalformed(err)
	}
	if w.Name == "" {
		return Path{}, errMissingField("name")
	}
	return fromWirePath(w), nil
}

// EncodePathCollection converts a PathCollection into JSON bytes, filling
// in the informational metadata fields version, units, coordinate_system,
// total_paths and, for the active path, path_index, path_length_meters and
// waypoint_count. description is never set, and metadata fields whose value
// is zero or empty are omitted from the output.
func EncodePathCollection(c PathCollection) ([]byte, error) {
	idx := c.ActivePathIndex
	w := wirePathCollection{
		Version:          "1.0",
		ActivePathIndex:  &idx,
		Units:            "meters/radians",
		CoordinateSystem: "planar",
		TotalPaths:       len(c.Paths),
	}
	if idx >= 0 && idx < len(c.Paths) {
		w.PathIndex = idx
		w.PathLengthMeters = c.Paths[idx].TotalLength()
		w.WaypointCount = len(c.Paths[idx].Waypoints)
	}
	for _, p := range c.Paths {
		w.Paths = append(w.Paths, toWirePath(p))
	}
	return json.Marshal(w)
}

// DecodePathCollection parses JSON bytes into a PathCollection.
func DecodePathCollection(data []byte) (PathCollection, error) {
	var w wirePathCollection
	if err := json.Unmarshal(data, &w); err != nil {
		return PathCollection{}, errMalformed(err)
	}
	c := NewPathCollection()
	for _, p := range w.Paths {
		c.Paths = append(c.Paths, fromWirePath(p))
	}
	c.ActivePathIndex = -1
	if w.ActivePathIndex != nil {
		c.ActivePathIndex = *w.ActivePathIndex
	}
	c.clampActiveIndex()
	return c, nil
}

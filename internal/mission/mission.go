// Package mission implements the path-execution policy glue between the
// protocol's path store and the point-to-point controller (spec.md §4.C
// "Path execution").
package mission

import (
	"fmt"
	"math"

	"github.com/omniplanner/pathbridge/internal/controller"
	"github.com/omniplanner/pathbridge/internal/hardware"
	"github.com/omniplanner/pathbridge/internal/mapmodel"
)

// Lifecycle receives the pathExecutionStarted/Finished notifications
// (spec.md §4.P) that bracket a run.
type Lifecycle interface {
	PathExecutionStarted()
	PathExecutionFinished(success bool)
}

// PathNotFoundError is returned when the named path is absent from the
// store (spec.md §7: PathNotFound).
type PathNotFoundError struct {
	Name      string
	Available []string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("mission: path %q not found (available: %v)", e.Name, e.Available)
}

// PathStore is the subset of the protocol's path store the mission glue
// needs: lookup by name, and a listing for error reporting.
type PathStore interface {
	ByName(name string) (mapmodel.Path, bool)
	Names() []string
}

// Runner executes named paths against a controller, honoring the
// nearest-waypoint start/direction policy (spec.md §4.C).
type Runner struct {
	store   PathStore
	ctl     *controller.Controller
	pose    func() (x, y, headingDeg float64)
	digital hardware.DigitalInputs
	life    Lifecycle
}

func NewRunner(store PathStore, ctl *controller.Controller, pose func() (x, y, headingDeg float64),
	digital hardware.DigitalInputs, life Lifecycle) *Runner {
	return &Runner{store: store, ctl: ctl, pose: pose, digital: digital, life: life}
}

// Execute runs the named path to completion, or until the hardware stop
// input is asserted between waypoints (treated as user-cancel, spec.md
// §7 StopAsserted).
func (r *Runner) Execute(name string) error {
	path, ok := r.store.ByName(name)
	if !ok {
		return &PathNotFoundError{Name: name, Available: r.store.Names()}
	}
	if len(path.Waypoints) == 0 {
		r.life.PathExecutionStarted()
		r.life.PathExecutionFinished(true)
		return nil
	}

	order := executionOrder(path, r.pose)

	r.life.PathExecutionStarted()
	success := true
	for _, idx := range order {
		if r.digital.StopAsserted() {
			success = false
			break
		}
		wp := path.Waypoints[idx]
		headingDeg := wp.Heading * 180 / math.Pi
		r.ctl.DriveToPose(wp.Position.X*100, wp.Position.Y*100, headingDeg)
	}
	r.life.PathExecutionFinished(success)
	return nil
}

// executionOrder implements the nearest-waypoint start policy: find the
// waypoint nearest the current pose; if it's the first, run forward to
// the end; if it's the last, run in reverse to the start; otherwise
// compare distance to the neighbors and either cover the whole path
// (nearest -> start -> end) or just run forward from nearest to the end
// (spec.md §4.C).
func executionOrder(path mapmodel.Path, pose func() (x, y, headingDeg float64)) []int {
	x, y, _ := pose()
	nearest := nearestWaypointIndex(path, x, y)
	n := len(path.Waypoints)

	if nearest == 0 {
		return forwardRange(0, n-1)
	}
	if nearest == n-1 {
		return backwardRange(n-1, 0)
	}

	distPrev := distanceToWaypoint(path.Waypoints[nearest-1], x, y)
	distNext := distanceToWaypoint(path.Waypoints[nearest+1], x, y)
	if distPrev < distNext {
		order := backwardRange(nearest, 0)
		order = append(order, forwardRange(1, n-1)...)
		return order
	}
	return forwardRange(nearest, n-1)
}

func nearestWaypointIndex(path mapmodel.Path, x, y float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, wp := range path.Waypoints {
		d := distanceToWaypoint(wp, x, y)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func distanceToWaypoint(wp mapmodel.Waypoint, x, y float64) float64 {
	return math.Hypot(wp.Position.X-x, wp.Position.Y-y)
}

func forwardRange(from, to int) []int {
	order := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		order = append(order, i)
	}
	return order
}

func backwardRange(from, to int) []int {
	order := make([]int, 0, from-to+1)
	for i := from; i >= to; i-- {
		order = append(order, i)
	}
	return order
}

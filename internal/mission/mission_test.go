package mission

import (
	"testing"

	"github.com/omniplanner/pathbridge/internal/geometry"
	"github.com/omniplanner/pathbridge/internal/mapmodel"
)

func straightPath() mapmodel.Path {
	return mapmodel.Path{
		Name: "P",
		Waypoints: []mapmodel.Waypoint{
			{Position: geometry.Point{X: 0}},
			{Position: geometry.Point{X: 1}},
			{Position: geometry.Point{X: 2}},
			{Position: geometry.Point{X: 3}},
			{Position: geometry.Point{X: 4}},
		},
	}
}

func TestNearestWaypointForwardSelection(t *testing.T) {
	path := straightPath()
	order := executionOrder(path, func() (float64, float64, float64) { return 2.4, 0, 0 })

	if len(order) == 0 || order[0] != 2 {
		t.Fatalf("expected start index 2, got order %v", order)
	}
	if order[len(order)-1] != 4 {
		t.Errorf("expected forward run to the end, got %v", order)
	}
}

func TestNearestWaypointIsFirstRunsForward(t *testing.T) {
	path := straightPath()
	order := executionOrder(path, func() (float64, float64, float64) { return -1, 0, 0 })

	want := []int{0, 1, 2, 3, 4}
	assertOrder(t, order, want)
}

func TestNearestWaypointIsLastRunsBackward(t *testing.T) {
	path := straightPath()
	order := executionOrder(path, func() (float64, float64, float64) { return 5, 0, 0 })

	want := []int{4, 3, 2, 1, 0}
	assertOrder(t, order, want)
}

func TestNearestWaypointPrevCloserCoversWholePath(t *testing.T) {
	path := straightPath()
	// x=1.4: nearest is index 1 (dist 0.4), prev (index 0, dist 1.4) vs
	// next (index 2, dist 0.6) -- next is closer, so this should still
	// run forward, not the whole-path branch.
	order := executionOrder(path, func() (float64, float64, float64) { return 1.4, 0, 0 })
	assertOrder(t, order, []int{1, 2, 3, 4})

	// x=0.6: nearest is index 1 (dist 0.4), prev (index0, dist 0.6) vs
	// next (index2, dist 1.4) -- prev is closer, whole-path branch.
	order = executionOrder(path, func() (float64, float64, float64) { return 0.6, 0, 0 })
	assertOrder(t, order, []int{1, 0, 1, 2, 3, 4})
}

func assertOrder(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

type fakeDigital struct{ stop bool }

func (f *fakeDigital) StopAsserted() bool  { return f.stop }
func (f *fakeDigital) StartAsserted() bool { return false }

type fakeLifecycle struct {
	started  int
	finished []bool
}

func (f *fakeLifecycle) PathExecutionStarted()          { f.started++ }
func (f *fakeLifecycle) PathExecutionFinished(ok bool)  { f.finished = append(f.finished, ok) }

type fakeStore struct{ paths map[string]mapmodel.Path }

func (f *fakeStore) ByName(name string) (mapmodel.Path, bool) { p, ok := f.paths[name]; return p, ok }
func (f *fakeStore) Names() []string {
	names := make([]string, 0, len(f.paths))
	for n := range f.paths {
		names = append(names, n)
	}
	return names
}

func TestExecuteUnknownPathReturnsNotFound(t *testing.T) {
	store := &fakeStore{paths: map[string]mapmodel.Path{}}
	r := NewRunner(store, nil, nil, &fakeDigital{}, &fakeLifecycle{})

	err := r.Execute("missing")
	if _, ok := err.(*PathNotFoundError); !ok {
		t.Fatalf("expected PathNotFoundError, got %v", err)
	}
}

func TestExecuteStopAssertedReportsFailure(t *testing.T) {
	store := &fakeStore{paths: map[string]mapmodel.Path{"P": straightPath()}}
	life := &fakeLifecycle{}
	digital := &fakeDigital{stop: true}
	r := NewRunner(store, nil, func() (float64, float64, float64) { return 0, 0, 0 }, digital, life)

	if err := r.Execute("P"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if life.started != 1 {
		t.Errorf("started count = %d, want 1", life.started)
	}
	if len(life.finished) != 1 || life.finished[0] != false {
		t.Errorf("finished = %v, want [false]", life.finished)
	}
}

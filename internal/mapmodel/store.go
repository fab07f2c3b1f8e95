package mapmodel

import "sync"

// Store is the robot-side path store: a mutex-guarded PathCollection.
// Readers copy out by value (spec.md §5: "Path store... guarded by a
// mutex; readers copy out by value").
type Store struct {
	mu   sync.Mutex
	coll PathCollection
}

func NewStore() *Store {
	return &Store{coll: NewPathCollection()}
}

// Upsert inserts or replaces a path by name (spec.md §3).
func (s *Store) Upsert(p Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll.Upsert(p)
}

// ByName returns a copy of the named path.
func (s *Store) ByName(name string) (Path, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.ByName(name)
}

// Names lists all stored path names, for PathNotFound error reporting.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.coll.Paths))
	for i, p := range s.coll.Paths {
		names[i] = p.Name
	}
	return names
}

// Snapshot returns a copy of the full collection.
func (s *Store) Snapshot() PathCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.coll
	coll.Paths = append([]Path(nil), s.coll.Paths...)
	return coll
}

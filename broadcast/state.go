package broadcast

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// state holds the values this node has seen and the neighbors it gossips
// to.
//
// The value set is grow-only: values are added at most once and never
// removed. The neighbor list is replaced wholesale by each topology
// assignment and is empty until the first assignment arrives, so no
// outbound flooding happens before the topology is known.
type state struct {
	values mapset.Set[uint64]

	// mu guards neighbors.
	mu        sync.Mutex
	neighbors []string
}

func newState() *state {
	return &state{
		values: mapset.NewSet[uint64](),
	}
}

// AddValue adds the value to the seen set, returning whether the value was
// not already known.
func (s *state) AddValue(v uint64) bool {
	return s.values.Add(v)
}

// Values returns a snapshot of the seen values, in no particular order.
func (s *state) Values() []uint64 {
	return s.values.ToSlice()
}

func (s *state) NumValues() int {
	return s.values.Cardinality()
}

// SetNeighbors replaces the neighbor list with the given assignment.
func (s *state) SetNeighbors(neighbors []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.neighbors = neighbors
}

// Neighbors returns a copy of the current neighbor list.
func (s *state) Neighbors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	neighbors := make([]string, len(s.neighbors))
	copy(neighbors, s.neighbors)
	return neighbors
}

package tracer

import "fmt"

// Per-query traversal counters. Attach to an Intersector to diagnose
// traversal behavior; a nil Stats keeps the hot path counter-free.
// Counters are not synchronized; use one Stats per goroutine.
type Stats struct {
	// Interior nodes visited per kind.
	AlignedNodes  uint64
	OrientedNodes uint64

	// Leaves reached and primitive kernel invocations.
	Leafs     uint64
	PrimTests uint64

	// Filter invocations.
	FilterCalls uint64
}

// Zero all counters.
func (s *Stats) Reset() {
	*s = Stats{}
}

func (s *Stats) String() string {
	return fmt.Sprintf("aligned: %d, oriented: %d, leafs: %d, prim tests: %d, filter calls: %d",
		s.AlignedNodes, s.OrientedNodes, s.Leafs, s.PrimTests, s.FilterCalls)
}

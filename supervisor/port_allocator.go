package supervisor

import (
	"fmt"
	"math/rand"
)

// PortAllocator picks a port for a newly launched process. The production
// supervisor assigns ports itself; allocators exist for in-process
// supervisors that have to pick their own.
type PortAllocator interface {
	// Allocate returns a port not present in inUse
	Allocate(inUse map[int]bool) (int, error)
}

// RandomPortAllocator picks random ports in a range, retrying on collision
// against the supervisor's own table
type RandomPortAllocator struct {
	Min, Max int
	Attempts int
}

// NewRandomPortAllocator creates an allocator over the default ephemeral range
func NewRandomPortAllocator() *RandomPortAllocator {
	return &RandomPortAllocator{Min: 20000, Max: 30000, Attempts: 32}
}

// Allocate returns a random free port in the configured range
func (a *RandomPortAllocator) Allocate(inUse map[int]bool) (int, error) {
	span := a.Max - a.Min
	if span <= 0 {
		return 0, fmt.Errorf("invalid port range [%d, %d)", a.Min, a.Max)
	}
	for i := 0; i < a.Attempts; i++ {
		port := a.Min + rand.Intn(span)
		if !inUse[port] {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port found in [%d, %d) after %d attempts", a.Min, a.Max, a.Attempts)
}

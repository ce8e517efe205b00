package supervisor

import (
	"context"
	"fmt"
	"sync"

	"trustbit/domain/entities"
	"trustbit/domain/interfaces"
)

// InMemory is a process supervisor that keeps its process table in memory.
// Used by tests and local development in place of the external supervisor.
type InMemory struct {
	mu        sync.Mutex
	processes map[string]int // process name -> port
	allocator PortAllocator

	// FailNext makes the next Start fail with ErrLaunchFailed
	FailNext bool

	// StartCalls and StopCalls record call order for assertions
	StartCalls []string
	StopCalls  []string
}

// NewInMemory creates an empty in-memory supervisor
func NewInMemory() *InMemory {
	return &InMemory{
		processes: make(map[string]int),
		allocator: NewRandomPortAllocator(),
	}
}

// Start records the process and allocates a port for it
func (s *InMemory) Start(ctx context.Context, processName string, spec interfaces.LaunchSpec) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", entities.ErrSupervisorTimeout, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.StartCalls = append(s.StartCalls, processName)

	if s.FailNext {
		s.FailNext = false
		return 0, entities.ErrLaunchFailed
	}

	if port, ok := s.processes[processName]; ok {
		// Already running; launching is idempotent on name
		return port, nil
	}

	inUse := make(map[int]bool, len(s.processes))
	for _, port := range s.processes {
		inUse[port] = true
	}

	port, err := s.allocator.Allocate(inUse)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entities.ErrLaunchFailed, err)
	}

	s.processes[processName] = port
	return port, nil
}

// Stop removes the process. A name that is not present counts as success.
func (s *InMemory) Stop(ctx context.Context, processName string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSupervisorTimeout, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.StopCalls = append(s.StopCalls, processName)
	delete(s.processes, processName)
	return nil
}

// Running reports whether a process is currently in the table
func (s *InMemory) Running(processName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processes[processName]
	return ok
}

// StopCount returns how many times Stop was invoked for a process name
func (s *InMemory) StopCount(processName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, name := range s.StopCalls {
		if name == processName {
			count++
		}
	}
	return count
}

package repository

import (
	"context"
	"sync"

	"github.com/orbit-run/orbit/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe implementation of WorkflowStore
// and RunStore backed by maps. Runs are stored as deep copies so callers
// can keep mutating their Run value after SaveRun without racing readers.
type InMemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]api.WorkflowSpec
	runs      map[string][]byte
	runOrder  []string
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		workflows: make(map[string]api.WorkflowSpec),
		runs:      make(map[string][]byte),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ WorkflowStore = (*InMemoryStore)(nil)
var _ RunStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveWorkflow(spec api.WorkflowSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[spec.Name] = spec
	return nil
}

func (s *InMemoryStore) GetWorkflow(name string) (api.WorkflowSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, ok := s.workflows[name]
	if !ok {
		return api.WorkflowSpec{}, api.ErrWorkflowNotFound
	}
	return spec, nil
}

func (s *InMemoryStore) ListWorkflows() ([]api.WorkflowSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	specs := make([]api.WorkflowSpec, 0, len(s.workflows))
	for _, spec := range s.workflows {
		specs = append(specs, spec)
	}
	return specs, nil
}

func (s *InMemoryStore) DeleteWorkflow(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.workflows, name)
	return nil
}

func (s *InMemoryStore) SaveRun(ctx context.Context, run *api.Run) error {
	data, err := EncodeRun(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		s.runOrder = append(s.runOrder, run.ID)
	}
	s.runs[run.ID] = data
	return nil
}

func (s *InMemoryStore) UpdateRun(ctx context.Context, run *api.Run) error {
	data, err := EncodeRun(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return api.ErrRunNotFound
	}
	s.runs[run.ID] = data
	return nil
}

func (s *InMemoryStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	s.mu.RLock()
	data, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, api.ErrRunNotFound
	}
	return DecodeRun(data)
}

func (s *InMemoryStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	s.mu.RLock()
	encoded := make([][]byte, 0, len(s.runOrder))
	for _, id := range s.runOrder {
		encoded = append(encoded, s.runs[id])
	}
	s.mu.RUnlock()

	var result []*api.Run
	for _, data := range encoded {
		run, err := DecodeRun(data)
		if err != nil {
			return nil, err
		}
		if filter.WorkflowName != "" && run.WorkflowName != filter.WorkflowName {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, run)
	}
	return result, nil
}
